package services

import (
	"context"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/common/logger"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/repository"
	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

// VariantService defines product variant business logic.
type VariantService interface {
	CreateVariant(ctx context.Context, req *models.CreateVariantRequest) (*models.ProductVariant, *ServiceError)
	GetVariant(ctx context.Context, id string) (*models.ProductVariant, *ServiceError)
	GetVariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, *ServiceError)
	ListProductVariants(ctx context.Context, productID string, state *models.Lifecycle) ([]models.ProductVariant, *ServiceError)
	UpdateVariant(ctx context.Context, id string, req *models.UpdateVariantRequest) (*models.ProductVariant, *ServiceError)
	SetLifecycle(ctx context.Context, id string, state models.Lifecycle) (*models.ProductVariant, *ServiceError)
}

type variantService struct {
	repo       repository.VariantRepo
	attrSets   AttributeSetService
	references ReferenceChecker
	metrics    awspkg.MetricsRecorder
	logger     *zap.Logger
}

// NewVariantService wires the service. references and metrics may be nil.
func NewVariantService(repo repository.VariantRepo, attrSets AttributeSetService, references ReferenceChecker, metrics awspkg.MetricsRecorder, log *zap.Logger) VariantService {
	if references == nil {
		references = noReferenceChecks{}
	}
	return &variantService{repo: repo, attrSets: attrSets, references: references, metrics: metrics, logger: log}
}

func (s *variantService) CreateVariant(ctx context.Context, req *models.CreateVariantRequest) (*models.ProductVariant, *ServiceError) {
	if strings.TrimSpace(req.ProductID) == "" {
		return nil, badRequest("productId", "is required")
	}
	productID, svcErr := parseID("productId", req.ProductID)
	if svcErr != nil {
		return nil, svcErr
	}

	variant := &models.ProductVariant{
		ProductID:     productID,
		SKU:           req.SKU,
		Barcode:       &req.Barcode,
		Title:         req.Title,
		Attributes:    req.Attributes,
		PriceModifier: req.PriceModifier,
		IsActive:      req.IsActive == nil || *req.IsActive,
	}
	if strings.TrimSpace(req.AttributeSetID) != "" {
		setID, svcErr := parseID("attributeSetId", req.AttributeSetID)
		if svcErr != nil {
			return nil, svcErr
		}
		variant.AttributeSetID = &setID
	}

	variant.Normalize()
	if err := variant.Validate(); err != nil {
		return nil, classify(ctx, s.logger, err, "", "Failed to create variant")
	}
	if svcErr := s.checkAttributes(ctx, variant); svcErr != nil {
		return nil, svcErr
	}
	if err := s.references.ProductExists(ctx, productID.Hex()); err != nil {
		return nil, referenceError(ctx, s.logger, err, "productId")
	}

	if err := s.repo.Create(ctx, variant); err != nil {
		return nil, s.writeError(ctx, err, "Failed to create variant")
	}

	recordCount(s.metrics, awspkg.MetricVariantsCreated, nil)
	logger.FromContext(ctx, s.logger).Info("variant created",
		zap.String("variant_id", variant.ID.Hex()),
		zap.String("product_id", productID.Hex()),
		zap.String("sku", variant.SKU),
	)
	return variant, nil
}

func (s *variantService) GetVariant(ctx context.Context, id string) (*models.ProductVariant, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}
	v, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Variant not found", "Failed to fetch variant")
	}
	return v, nil
}

// GetVariantBySKU normalizes sku the same way writes do, so lookups are case-insensitive.
func (s *variantService) GetVariantBySKU(ctx context.Context, sku string) (*models.ProductVariant, *ServiceError) {
	normalized := models.NormalizeSKU(sku)
	if normalized == "" {
		return nil, badRequest("sku", "is required")
	}
	v, err := s.repo.FindBySKU(ctx, normalized)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Variant not found", "Failed to fetch variant")
	}
	return v, nil
}

func (s *variantService) ListProductVariants(ctx context.Context, productID string, state *models.Lifecycle) ([]models.ProductVariant, *ServiceError) {
	oid, svcErr := parseID("productId", productID)
	if svcErr != nil {
		return nil, svcErr
	}
	variants, err := s.repo.FindByProduct(ctx, oid, state)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "", "Failed to list variants")
	}
	return variants, nil
}

func (s *variantService) UpdateVariant(ctx context.Context, id string, req *models.UpdateVariantRequest) (*models.ProductVariant, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}

	variant, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Variant not found", "Failed to update variant")
	}

	if req.Title != nil {
		variant.Title = *req.Title
	}
	if req.Barcode != nil {
		variant.Barcode = req.Barcode
	}
	if req.Attributes != nil {
		variant.Attributes = *req.Attributes
	}
	if req.PriceModifier != nil {
		variant.PriceModifier = *req.PriceModifier
	}
	if req.AttributeSetID != nil {
		if strings.TrimSpace(*req.AttributeSetID) == "" {
			variant.AttributeSetID = nil
		} else {
			setID, svcErr := parseID("attributeSetId", *req.AttributeSetID)
			if svcErr != nil {
				return nil, svcErr
			}
			variant.AttributeSetID = &setID
		}
	}

	variant.Normalize()
	if err := variant.Validate(); err != nil {
		return nil, classify(ctx, s.logger, err, "", "Failed to update variant")
	}
	// Re-check only when the attribute map or its set changes; an inactive set must not
	// block unrelated edits.
	if req.Attributes != nil || req.AttributeSetID != nil {
		if svcErr := s.checkAttributes(ctx, variant); svcErr != nil {
			return nil, svcErr
		}
	}

	updated, err := s.repo.Update(ctx, variant)
	if err != nil {
		return nil, s.writeError(ctx, err, "Failed to update variant")
	}

	logger.FromContext(ctx, s.logger).Info("variant updated", zap.String("variant_id", oid.Hex()))
	return updated, nil
}

func (s *variantService) SetLifecycle(ctx context.Context, id string, state models.Lifecycle) (*models.ProductVariant, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}
	if !state.IsValid() {
		return nil, badRequest("lifecycle", "must be active or inactive")
	}

	updated, err := s.repo.SetLifecycle(ctx, oid, state)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Variant not found", "Failed to change variant lifecycle")
	}

	logger.FromContext(ctx, s.logger).Info("variant lifecycle changed",
		zap.String("variant_id", oid.Hex()),
		zap.String("lifecycle", string(state)),
	)
	return updated, nil
}

// checkAttributes validates the attribute map against the referenced set. Variants without a
// set keep an open attribute map.
func (s *variantService) checkAttributes(ctx context.Context, v *models.ProductVariant) *ServiceError {
	if v.AttributeSetID == nil {
		return nil
	}

	set, svcErr := s.attrSets.GetAttributeSet(ctx, v.AttributeSetID.Hex())
	if svcErr != nil {
		if svcErr.StatusCode == http.StatusNotFound {
			return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "Attribute set not found", Field: "attributeSetId"}
		}
		return svcErr
	}
	if !set.Lifecycle().IsActive() {
		return &ServiceError{StatusCode: http.StatusUnprocessableEntity, Message: "Attribute set is inactive", Field: "attributeSetId"}
	}

	if err := set.CheckValues(v.Attributes); err != nil {
		return classify(ctx, s.logger, err, "", "Failed to validate attributes")
	}
	return nil
}

func (s *variantService) writeError(ctx context.Context, err error, failMsg string) *ServiceError {
	svcErr := classify(ctx, s.logger, err, "Variant not found", failMsg)
	if svcErr.StatusCode == http.StatusConflict {
		recordCount(s.metrics, awspkg.MetricUniquenessViolations, map[string]string{"Collection": repository.ProductVariantsCollection})
	}
	return svcErr
}
