package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

// AttributeSetController handles HTTP requests for attribute sets.
type AttributeSetController struct {
	service services.AttributeSetService
}

func NewAttributeSetController(service services.AttributeSetService) *AttributeSetController {
	return &AttributeSetController{service: service}
}

// CreateAttributeSet handles POST /attribute-sets (admin only).
func (ac *AttributeSetController) CreateAttributeSet(ctx *gin.Context) {
	var req models.CreateAttributeSetRequest
	if !bindJSON(ctx, &req) {
		return
	}

	set, svcErr := ac.service.CreateAttributeSet(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"attributeSet": set})
}

// GetAttributeSet handles GET /attribute-sets/:id.
func (ac *AttributeSetController) GetAttributeSet(ctx *gin.Context) {
	set, svcErr := ac.service.GetAttributeSet(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"attributeSet": set})
}

// ListAttributeSets handles GET /attribute-sets?active=&page=&limit=.
func (ac *AttributeSetController) ListAttributeSets(ctx *gin.Context) {
	state, ok := parseLifecycleQuery(ctx)
	if !ok {
		return
	}
	page, limit := parsePaginationParams(ctx)

	sets, total, svcErr := ac.service.ListAttributeSets(ctx.Request.Context(), state, page, limit)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"attributeSets": sets, "meta": pageMeta(page, limit, total)})
}

// UpdateAttributeSet handles PUT /attribute-sets/:id (admin only).
func (ac *AttributeSetController) UpdateAttributeSet(ctx *gin.Context) {
	var req models.UpdateAttributeSetRequest
	if !bindJSON(ctx, &req) {
		return
	}

	set, svcErr := ac.service.UpdateAttributeSet(ctx.Request.Context(), ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"attributeSet": set})
}

// DeactivateAttributeSet handles POST /attribute-sets/:id/deactivate (admin only).
func (ac *AttributeSetController) DeactivateAttributeSet(ctx *gin.Context) {
	ac.setLifecycle(ctx, models.LifecycleInactive)
}

// ActivateAttributeSet handles POST /attribute-sets/:id/activate (admin only).
func (ac *AttributeSetController) ActivateAttributeSet(ctx *gin.Context) {
	ac.setLifecycle(ctx, models.LifecycleActive)
}

func (ac *AttributeSetController) setLifecycle(ctx *gin.Context, state models.Lifecycle) {
	set, svcErr := ac.service.SetLifecycle(ctx.Request.Context(), ctx.Param("id"), state)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"attributeSet": set})
}
