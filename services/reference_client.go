package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrReferenceNotFound means the owning service answered that the referenced entity does not exist.
	ErrReferenceNotFound = errors.New("referenced entity not found")
	// ErrReferenceUnavailable means the owning service could not be asked.
	ErrReferenceUnavailable = errors.New("reference service unavailable")
)

// ReferenceChecker confirms that ids owned by other services exist.
type ReferenceChecker interface {
	ProductExists(ctx context.Context, productID string) error
	OrderExists(ctx context.Context, orderID string) error
	CustomerExists(ctx context.Context, customerID string) error
}

// ReferenceClient checks references against the internal endpoints of the product, order and
// user services. A service with no configured URL is not checked.
type ReferenceClient struct {
	productURL  string
	orderURL    string
	customerURL string
	client      *http.Client
}

func NewReferenceClient(productURL, orderURL, customerURL string, log *zap.Logger) *ReferenceClient {
	rc := &ReferenceClient{
		productURL:  strings.TrimSuffix(productURL, "/"),
		orderURL:    strings.TrimSuffix(orderURL, "/"),
		customerURL: strings.TrimSuffix(customerURL, "/"),
		client:      &http.Client{Timeout: 5 * time.Second},
	}
	for name, url := range map[string]string{"product": rc.productURL, "order": rc.orderURL, "customer": rc.customerURL} {
		if url == "" {
			log.Warn("reference checks disabled, service URL not configured", zap.String("reference", name))
		}
	}
	return rc
}

func (rc *ReferenceClient) ProductExists(ctx context.Context, productID string) error {
	return rc.exists(ctx, rc.productURL, "/products/internal/", "product", productID)
}

func (rc *ReferenceClient) OrderExists(ctx context.Context, orderID string) error {
	return rc.exists(ctx, rc.orderURL, "/orders/internal/", "order", orderID)
}

func (rc *ReferenceClient) CustomerExists(ctx context.Context, customerID string) error {
	return rc.exists(ctx, rc.customerURL, "/users/internal/", "customer", customerID)
}

func (rc *ReferenceClient) exists(ctx context.Context, baseURL, path, kind, id string) error {
	if baseURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+path+id, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrReferenceUnavailable, err)
	}

	resp, err := rc.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrReferenceUnavailable, kind, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s %s", ErrReferenceNotFound, kind, id)
	default:
		return fmt.Errorf("%w: %s service returned %d", ErrReferenceUnavailable, kind, resp.StatusCode)
	}
}

// noReferenceChecks accepts every reference.
type noReferenceChecks struct{}

func (noReferenceChecks) ProductExists(context.Context, string) error  { return nil }
func (noReferenceChecks) OrderExists(context.Context, string) error    { return nil }
func (noReferenceChecks) CustomerExists(context.Context, string) error { return nil }

// referenceError reports a failed reference check against field.
func referenceError(ctx context.Context, log *zap.Logger, err error, field string) *ServiceError {
	svcErr := classify(ctx, log, err, "", "Failed to verify reference")
	if svcErr.StatusCode == http.StatusUnprocessableEntity {
		svcErr.Field = field
	}
	return svcErr
}
