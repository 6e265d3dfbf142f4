package services_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

func boyutRequest() *models.CreateAttributeSetRequest {
	return &models.CreateAttributeSetRequest{
		Name: "Boyut",
		Attributes: []models.AttributeDefinition{
			{Key: "renk", Label: "Renk", Type: models.AttributeTypeSelect, Options: []string{"kırmızı", "mavi"}},
		},
	}
}

func TestAttributeSetService_Create_DuplicateName(t *testing.T) {
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), nil, nil, testLogger())
	ctx := context.Background()

	set, svcErr := svc.CreateAttributeSet(ctx, boyutRequest())
	require.Nil(t, svcErr)
	assert.False(t, set.ID.IsZero())
	assert.True(t, set.IsActive)

	_, svcErr = svc.CreateAttributeSet(ctx, boyutRequest())
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
	assert.Equal(t, "name", svcErr.Field)
}

func TestAttributeSetService_Create_Invalid(t *testing.T) {
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), nil, nil, testLogger())

	req := boyutRequest()
	req.Attributes[0].Options = nil

	_, svcErr := svc.CreateAttributeSet(context.Background(), req)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "attributes[0].options", svcErr.Field)
}

func TestAttributeSetService_Create_Inactive(t *testing.T) {
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), nil, nil, testLogger())

	inactive := false
	req := boyutRequest()
	req.IsActive = &inactive

	set, svcErr := svc.CreateAttributeSet(context.Background(), req)
	require.Nil(t, svcErr)
	assert.False(t, set.IsActive)
}

func TestAttributeSetService_Get(t *testing.T) {
	cache := newMockCache()
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), cache, nil, testLogger())
	ctx := context.Background()

	created, svcErr := svc.CreateAttributeSet(ctx, boyutRequest())
	require.Nil(t, svcErr)

	got, svcErr := svc.GetAttributeSet(ctx, created.ID.Hex())
	require.Nil(t, svcErr)
	assert.Equal(t, "Boyut", got.Name)

	// second read is served from the cache
	_, svcErr = svc.GetAttributeSet(ctx, created.ID.Hex())
	require.Nil(t, svcErr)
	assert.Equal(t, 1, cache.hits)

	_, svcErr = svc.GetAttributeSet(ctx, primitive.NewObjectID().Hex())
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)

	_, svcErr = svc.GetAttributeSet(ctx, "not-an-id")
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, "id", svcErr.Field)
}

func TestAttributeSetService_UpdateInvalidatesCache(t *testing.T) {
	cache := newMockCache()
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), cache, nil, testLogger())
	ctx := context.Background()

	created, _ := svc.CreateAttributeSet(ctx, boyutRequest())
	_, _ = svc.GetAttributeSet(ctx, created.ID.Hex())

	name := "Beden"
	attrs := []models.AttributeDefinition{
		{Key: "beden", Label: "Beden", Type: models.AttributeTypeSelect, Options: []string{"S", "M", "L"}, IsRequired: true},
	}
	updated, svcErr := svc.UpdateAttributeSet(ctx, created.ID.Hex(), &models.UpdateAttributeSetRequest{Name: &name, Attributes: &attrs})
	require.Nil(t, svcErr)
	assert.Equal(t, "Beden", updated.Name)
	assert.Len(t, updated.Attributes, 1)
	assert.Equal(t, 1, cache.invalidated)

	got, svcErr := svc.GetAttributeSet(ctx, created.ID.Hex())
	require.Nil(t, svcErr)
	assert.Equal(t, "Beden", got.Name)
}

func TestAttributeSetService_Update_NameTaken(t *testing.T) {
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), nil, nil, testLogger())
	ctx := context.Background()

	_, _ = svc.CreateAttributeSet(ctx, boyutRequest())
	other := boyutRequest()
	other.Name = "Renk"
	second, svcErr := svc.CreateAttributeSet(ctx, other)
	require.Nil(t, svcErr)

	name := "Boyut"
	_, svcErr = svc.UpdateAttributeSet(ctx, second.ID.Hex(), &models.UpdateAttributeSetRequest{Name: &name})
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusConflict, svcErr.StatusCode)
}

func TestAttributeSetService_LifecycleAndList(t *testing.T) {
	cache := newMockCache()
	svc := services.NewAttributeSetService(newMemAttributeSetRepo(), cache, nil, testLogger())
	ctx := context.Background()

	first, _ := svc.CreateAttributeSet(ctx, boyutRequest())
	other := boyutRequest()
	other.Name = "Ağırlık"
	_, svcErr := svc.CreateAttributeSet(ctx, other)
	require.Nil(t, svcErr)

	deactivated, svcErr := svc.SetLifecycle(ctx, first.ID.Hex(), models.LifecycleInactive)
	require.Nil(t, svcErr)
	assert.False(t, deactivated.IsActive)
	assert.Equal(t, 1, cache.invalidated)

	active := models.LifecycleActive
	sets, total, svcErr := svc.ListAttributeSets(ctx, &active, 1, 20)
	require.Nil(t, svcErr)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Ağırlık", sets[0].Name)

	_, total, svcErr = svc.ListAttributeSets(ctx, nil, 1, 20)
	require.Nil(t, svcErr)
	assert.Equal(t, int64(2), total)

	_, svcErr = svc.SetLifecycle(ctx, first.ID.Hex(), models.Lifecycle("archived"))
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)

	_, svcErr = svc.SetLifecycle(ctx, primitive.NewObjectID().Hex(), models.LifecycleActive)
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusNotFound, svcErr.StatusCode)
}

func TestAttributeSetService_ConcurrentUpdateDuringMiss(t *testing.T) {
	repo := newMemAttributeSetRepo()
	cache := newMockCache()
	svc := services.NewAttributeSetService(repo, cache, nil, testLogger())
	ctx := context.Background()

	created, svcErr := svc.CreateAttributeSet(ctx, boyutRequest())
	require.Nil(t, svcErr)

	// An update lands between the database read and the cache write.
	repo.afterFind = func() {
		repo.afterFind = nil
		renamed := *created
		renamed.Name = "Beden"
		_, err := repo.Update(ctx, &renamed)
		require.NoError(t, err)
		cache.Invalidate(ctx)
	}

	stale, svcErr := svc.GetAttributeSet(ctx, created.ID.Hex())
	require.Nil(t, svcErr)
	assert.Equal(t, "Boyut", stale.Name)

	got, svcErr := svc.GetAttributeSet(ctx, created.ID.Hex())
	require.Nil(t, svcErr)
	assert.Equal(t, "Beden", got.Name)
	assert.Equal(t, 0, cache.hits)

	_, svcErr = svc.GetAttributeSet(ctx, created.ID.Hex())
	require.Nil(t, svcErr)
	assert.Equal(t, 1, cache.hits)
}
