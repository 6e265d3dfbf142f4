package repository

import (
	"context"
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zumerkk/entas-sub001/models"
)

// Collection names.
const (
	AttributeSetsCollection   = "attributeSets"
	ProductVariantsCollection = "productVariants"
	PaymentsCollection        = "payments"
)

// Page is a 1-based page request.
type Page struct {
	Page  int
	Limit int
}

// skip saturates at math.MaxInt64 instead of wrapping negative.
func (p Page) skip() int64 {
	if p.Page <= 1 || p.Limit <= 0 {
		return 0
	}
	pages, limit := int64(p.Page-1), int64(p.Limit)
	if pages > math.MaxInt64/limit {
		return math.MaxInt64
	}
	return pages * limit
}

// AttributeSetFilter narrows attribute-set listings. A nil Lifecycle lists both states.
type AttributeSetFilter struct {
	Lifecycle *models.Lifecycle
}

// PaymentFilter selects payments by any combination of order, customer and status.
type PaymentFilter struct {
	OrderID    *primitive.ObjectID
	CustomerID *primitive.ObjectID
	Status     *models.PaymentStatus
}

// AttributeSetRepo persists attribute sets.
type AttributeSetRepo interface {
	Create(ctx context.Context, set *models.AttributeSet) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.AttributeSet, error)
	Find(ctx context.Context, filter AttributeSetFilter, page Page) ([]models.AttributeSet, int64, error)
	// Update replaces name, description and the attribute list.
	Update(ctx context.Context, set *models.AttributeSet) (*models.AttributeSet, error)
	SetLifecycle(ctx context.Context, id primitive.ObjectID, state models.Lifecycle) (*models.AttributeSet, error)
	EnsureIndexes(ctx context.Context) error
}

// VariantRepo persists product variants.
type VariantRepo interface {
	Create(ctx context.Context, variant *models.ProductVariant) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.ProductVariant, error)
	// FindBySKU expects an already normalized SKU.
	FindBySKU(ctx context.Context, sku string) (*models.ProductVariant, error)
	FindByProduct(ctx context.Context, productID primitive.ObjectID, state *models.Lifecycle) ([]models.ProductVariant, error)
	// Update writes the mutable fields of variant; a nil barcode or attribute set id removes the field.
	Update(ctx context.Context, variant *models.ProductVariant) (*models.ProductVariant, error)
	SetLifecycle(ctx context.Context, id primitive.ObjectID, state models.Lifecycle) (*models.ProductVariant, error)
	EnsureIndexes(ctx context.Context) error
}

// PaymentRepo persists payments. Payments are never deleted and status only changes
// through ApplyTransition.
type PaymentRepo interface {
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.Payment, error)
	FindByIdempotencyKey(ctx context.Context, key string) (*models.Payment, error)
	FindByTransactionID(ctx context.Context, transactionID string) (*models.Payment, error)
	Find(ctx context.Context, filter PaymentFilter, page Page) ([]models.Payment, int64, error)
	// ApplyTransition writes t only if the stored status still equals t.From.
	ApplyTransition(ctx context.Context, id primitive.ObjectID, t *models.PaymentTransition) (*models.Payment, error)
	UpdateNotes(ctx context.Context, id primitive.ObjectID, notes string) (*models.Payment, error)
	MarkNotified(ctx context.Context, id primitive.ObjectID, status models.PaymentStatus) error
	// FindUnnotified returns payments whose current status has not been published and which
	// were last updated before olderThan.
	FindUnnotified(ctx context.Context, olderThan time.Time, limit int) ([]models.Payment, error)
	EnsureIndexes(ctx context.Context) error
}
