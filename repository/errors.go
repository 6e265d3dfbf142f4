package repository

import (
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
)

var (
	// ErrNotFound is returned when no document matches.
	ErrNotFound = errors.New("record not found")
	// ErrStatusConflict is returned when a payment's status changed between read and write.
	ErrStatusConflict = errors.New("payment status changed concurrently")
)

// DuplicateKeyError reports a unique index violation on Field.
type DuplicateKeyError struct {
	Field string
	Err   error
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate value for %s", e.Field)
}

func (e *DuplicateKeyError) Unwrap() error { return e.Err }

// Unique index names. The driver reports the violated index by name, which is how
// duplicate-key errors are mapped back to a field.
const (
	indexAttributeSetName      = "uniq_name"
	indexVariantSKU            = "uniq_sku"
	indexVariantBarcode        = "uniq_barcode_sparse"
	indexPaymentIdempotencyKey = "uniq_idempotency_key_sparse"
)

// uniqueIndexFields maps each unique index to the API field it guards.
var uniqueIndexFields = map[string]string{
	indexAttributeSetName:      "name",
	indexVariantSKU:            "sku",
	indexVariantBarcode:        "barcode",
	indexPaymentIdempotencyKey: "idempotencyKey",
}

// translateWriteError converts duplicate-key failures into *DuplicateKeyError and leaves
// everything else wrapped as-is.
func translateWriteError(err error, op string) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		msg := err.Error()
		for index, field := range uniqueIndexFields {
			if strings.Contains(msg, index) {
				return &DuplicateKeyError{Field: field, Err: err}
			}
		}
		return &DuplicateKeyError{Field: "unknown", Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

func translateFindError(err error, op string) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
