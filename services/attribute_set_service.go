package services

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/common/logger"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/repository"
	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

// AttributeSetService defines attribute set business logic.
type AttributeSetService interface {
	CreateAttributeSet(ctx context.Context, req *models.CreateAttributeSetRequest) (*models.AttributeSet, *ServiceError)
	GetAttributeSet(ctx context.Context, id string) (*models.AttributeSet, *ServiceError)
	ListAttributeSets(ctx context.Context, state *models.Lifecycle, page, limit int) ([]models.AttributeSet, int64, *ServiceError)
	UpdateAttributeSet(ctx context.Context, id string, req *models.UpdateAttributeSetRequest) (*models.AttributeSet, *ServiceError)
	SetLifecycle(ctx context.Context, id string, state models.Lifecycle) (*models.AttributeSet, *ServiceError)
}

type attributeSetService struct {
	repo    repository.AttributeSetRepo
	cache   AttributeSetCache
	metrics awspkg.MetricsRecorder
	logger  *zap.Logger
}

// NewAttributeSetService wires the service. cache and metrics may be nil.
func NewAttributeSetService(repo repository.AttributeSetRepo, cache AttributeSetCache, metrics awspkg.MetricsRecorder, log *zap.Logger) AttributeSetService {
	if cache == nil {
		cache = noopCache{}
	}
	return &attributeSetService{repo: repo, cache: cache, metrics: metrics, logger: log}
}

func (s *attributeSetService) CreateAttributeSet(ctx context.Context, req *models.CreateAttributeSetRequest) (*models.AttributeSet, *ServiceError) {
	set := &models.AttributeSet{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    req.IsActive == nil || *req.IsActive,
		Attributes:  req.Attributes,
	}
	set.Normalize()
	if err := set.Validate(); err != nil {
		return nil, classify(ctx, s.logger, err, "", "Failed to create attribute set")
	}

	if err := s.repo.Create(ctx, set); err != nil {
		return nil, s.writeError(ctx, err, "Failed to create attribute set")
	}

	recordCount(s.metrics, awspkg.MetricAttributeSetsCreated, nil)
	logger.FromContext(ctx, s.logger).Info("attribute set created",
		zap.String("attribute_set_id", set.ID.Hex()),
		zap.String("name", set.Name),
		zap.Int("attributes", len(set.Attributes)),
	)
	return set, nil
}

func (s *attributeSetService) GetAttributeSet(ctx context.Context, id string) (*models.AttributeSet, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}
	set, err := s.load(ctx, oid)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Attribute set not found", "Failed to fetch attribute set")
	}
	return set, nil
}

// load reads through the cache. The version from the cache lookup is taken before the
// database read and is the one the loaded set is cached under.
func (s *attributeSetService) load(ctx context.Context, id primitive.ObjectID) (*models.AttributeSet, error) {
	set, version, ok := s.cache.Get(ctx, id.Hex())
	if ok {
		recordCount(s.metrics, awspkg.MetricCacheHits, map[string]string{"Cache": "attributeSet"})
		return set, nil
	}
	recordCount(s.metrics, awspkg.MetricCacheMisses, map[string]string{"Cache": "attributeSet"})

	set, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.SetAsync(set, version)
	return set, nil
}

func (s *attributeSetService) ListAttributeSets(ctx context.Context, state *models.Lifecycle, page, limit int) ([]models.AttributeSet, int64, *ServiceError) {
	sets, total, err := s.repo.Find(ctx, repository.AttributeSetFilter{Lifecycle: state}, repository.Page{Page: page, Limit: limit})
	if err != nil {
		return nil, 0, classify(ctx, s.logger, err, "", "Failed to list attribute sets")
	}
	return sets, total, nil
}

func (s *attributeSetService) UpdateAttributeSet(ctx context.Context, id string, req *models.UpdateAttributeSetRequest) (*models.AttributeSet, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}

	set, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Attribute set not found", "Failed to update attribute set")
	}

	if req.Name != nil {
		set.Name = *req.Name
	}
	if req.Description != nil {
		set.Description = *req.Description
	}
	if req.Attributes != nil {
		set.Attributes = *req.Attributes
	}
	set.Normalize()
	if err := set.Validate(); err != nil {
		return nil, classify(ctx, s.logger, err, "", "Failed to update attribute set")
	}

	updated, err := s.repo.Update(ctx, set)
	if err != nil {
		return nil, s.writeError(ctx, err, "Failed to update attribute set")
	}
	s.cache.Invalidate(ctx)

	logger.FromContext(ctx, s.logger).Info("attribute set updated", zap.String("attribute_set_id", oid.Hex()))
	return updated, nil
}

func (s *attributeSetService) SetLifecycle(ctx context.Context, id string, state models.Lifecycle) (*models.AttributeSet, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}
	if !state.IsValid() {
		return nil, badRequest("lifecycle", "must be active or inactive")
	}

	updated, err := s.repo.SetLifecycle(ctx, oid, state)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Attribute set not found", "Failed to change attribute set lifecycle")
	}
	s.cache.Invalidate(ctx)

	logger.FromContext(ctx, s.logger).Info("attribute set lifecycle changed",
		zap.String("attribute_set_id", oid.Hex()),
		zap.String("lifecycle", string(state)),
	)
	return updated, nil
}

func (s *attributeSetService) writeError(ctx context.Context, err error, failMsg string) *ServiceError {
	svcErr := classify(ctx, s.logger, err, "Attribute set not found", failMsg)
	if svcErr.StatusCode == http.StatusConflict {
		recordCount(s.metrics, awspkg.MetricUniquenessViolations, map[string]string{"Collection": repository.AttributeSetsCollection})
	}
	return svcErr
}

func parseID(field, raw string) (primitive.ObjectID, *ServiceError) {
	oid, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, badRequest(field, "must be a valid id")
	}
	return oid, nil
}
