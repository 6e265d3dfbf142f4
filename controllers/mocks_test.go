package controllers_test

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/zumerkk/entas-sub001/common/errors"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// --- Mock AttributeSetService ---

type mockAttributeSetService struct {
	createFn    func(ctx context.Context, req *models.CreateAttributeSetRequest) (*models.AttributeSet, *services.ServiceError)
	getFn       func(ctx context.Context, id string) (*models.AttributeSet, *services.ServiceError)
	listFn      func(ctx context.Context, state *models.Lifecycle, page, limit int) ([]models.AttributeSet, int64, *services.ServiceError)
	updateFn    func(ctx context.Context, id string, req *models.UpdateAttributeSetRequest) (*models.AttributeSet, *services.ServiceError)
	lifecycleFn func(ctx context.Context, id string, state models.Lifecycle) (*models.AttributeSet, *services.ServiceError)
}

func (m *mockAttributeSetService) CreateAttributeSet(ctx context.Context, req *models.CreateAttributeSetRequest) (*models.AttributeSet, *services.ServiceError) {
	return m.createFn(ctx, req)
}
func (m *mockAttributeSetService) GetAttributeSet(ctx context.Context, id string) (*models.AttributeSet, *services.ServiceError) {
	return m.getFn(ctx, id)
}
func (m *mockAttributeSetService) ListAttributeSets(ctx context.Context, state *models.Lifecycle, page, limit int) ([]models.AttributeSet, int64, *services.ServiceError) {
	return m.listFn(ctx, state, page, limit)
}
func (m *mockAttributeSetService) UpdateAttributeSet(ctx context.Context, id string, req *models.UpdateAttributeSetRequest) (*models.AttributeSet, *services.ServiceError) {
	return m.updateFn(ctx, id, req)
}
func (m *mockAttributeSetService) SetLifecycle(ctx context.Context, id string, state models.Lifecycle) (*models.AttributeSet, *services.ServiceError) {
	return m.lifecycleFn(ctx, id, state)
}

// --- Mock VariantService ---

type mockVariantService struct {
	createFn    func(ctx context.Context, req *models.CreateVariantRequest) (*models.ProductVariant, *services.ServiceError)
	getFn       func(ctx context.Context, id string) (*models.ProductVariant, *services.ServiceError)
	getBySKUFn  func(ctx context.Context, sku string) (*models.ProductVariant, *services.ServiceError)
	listFn      func(ctx context.Context, productID string, state *models.Lifecycle) ([]models.ProductVariant, *services.ServiceError)
	updateFn    func(ctx context.Context, id string, req *models.UpdateVariantRequest) (*models.ProductVariant, *services.ServiceError)
	lifecycleFn func(ctx context.Context, id string, state models.Lifecycle) (*models.ProductVariant, *services.ServiceError)
}

func (m *mockVariantService) CreateVariant(ctx context.Context, req *models.CreateVariantRequest) (*models.ProductVariant, *services.ServiceError) {
	return m.createFn(ctx, req)
}
func (m *mockVariantService) GetVariant(ctx context.Context, id string) (*models.ProductVariant, *services.ServiceError) {
	return m.getFn(ctx, id)
}
func (m *mockVariantService) GetVariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, *services.ServiceError) {
	return m.getBySKUFn(ctx, sku)
}
func (m *mockVariantService) ListProductVariants(ctx context.Context, productID string, state *models.Lifecycle) ([]models.ProductVariant, *services.ServiceError) {
	return m.listFn(ctx, productID, state)
}
func (m *mockVariantService) UpdateVariant(ctx context.Context, id string, req *models.UpdateVariantRequest) (*models.ProductVariant, *services.ServiceError) {
	return m.updateFn(ctx, id, req)
}
func (m *mockVariantService) SetLifecycle(ctx context.Context, id string, state models.Lifecycle) (*models.ProductVariant, *services.ServiceError) {
	return m.lifecycleFn(ctx, id, state)
}

// --- Mock PaymentService ---

type mockPaymentService struct {
	createFn     func(ctx context.Context, req *models.CreatePaymentRequest, caller services.Caller) (*models.Payment, *services.ServiceError)
	getFn        func(ctx context.Context, id string, caller services.Caller) (*models.Payment, *services.ServiceError)
	listFn       func(ctx context.Context, q services.PaymentQuery, caller services.Caller) ([]models.Payment, int64, *services.ServiceError)
	transitionFn func(ctx context.Context, id string, req models.TransitionRequest, source string) (*models.Payment, *services.ServiceError)
	gatewayFn    func(ctx context.Context, lookup services.GatewayLookup, req models.TransitionRequest, source string) (*models.Payment, bool, *services.ServiceError)
	notesFn      func(ctx context.Context, id, notes string) (*models.Payment, *services.ServiceError)
	republishFn  func(ctx context.Context, id string) (*models.Payment, *services.ServiceError)
}

func (m *mockPaymentService) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest, caller services.Caller) (*models.Payment, *services.ServiceError) {
	return m.createFn(ctx, req, caller)
}
func (m *mockPaymentService) GetPayment(ctx context.Context, id string, caller services.Caller) (*models.Payment, *services.ServiceError) {
	return m.getFn(ctx, id, caller)
}
func (m *mockPaymentService) ListPayments(ctx context.Context, q services.PaymentQuery, caller services.Caller) ([]models.Payment, int64, *services.ServiceError) {
	return m.listFn(ctx, q, caller)
}
func (m *mockPaymentService) TransitionStatus(ctx context.Context, id string, req models.TransitionRequest, source string) (*models.Payment, *services.ServiceError) {
	return m.transitionFn(ctx, id, req, source)
}
func (m *mockPaymentService) RecordGatewayResult(ctx context.Context, lookup services.GatewayLookup, req models.TransitionRequest, source string) (*models.Payment, bool, *services.ServiceError) {
	return m.gatewayFn(ctx, lookup, req, source)
}
func (m *mockPaymentService) UpdateNotes(ctx context.Context, id, notes string) (*models.Payment, *services.ServiceError) {
	return m.notesFn(ctx, id, notes)
}
func (m *mockPaymentService) RepublishEvent(ctx context.Context, id string) (*models.Payment, *services.ServiceError) {
	return m.republishFn(ctx, id)
}
func (m *mockPaymentService) RepublishPending(context.Context, time.Duration, int) (int, error) {
	return 0, nil
}

// --- Helpers ---

// newTestRouter mirrors the production chain: error rendering plus the identity the auth
// middleware would have set.
func newTestRouter(userID, role string) *gin.Engine {
	r := gin.New()
	r.Use(apperrors.ErrorMiddleware())
	r.Use(func(c *gin.Context) {
		c.Set("userID", userID)
		c.Set("role", role)
		c.Next()
	})
	return r
}
