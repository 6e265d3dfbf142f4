package controllers

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

// VariantController handles HTTP requests for product variants.
type VariantController struct {
	service services.VariantService
}

func NewVariantController(service services.VariantService) *VariantController {
	return &VariantController{service: service}
}

// CreateVariant handles POST /variants (admin only).
func (vc *VariantController) CreateVariant(ctx *gin.Context) {
	var req models.CreateVariantRequest
	if !bindJSON(ctx, &req) {
		return
	}

	variant, svcErr := vc.service.CreateVariant(ctx.Request.Context(), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"variant": variant})
}

// GetVariant handles GET /variants/:id. With ?basePrice= the response also carries the
// variant's effective price.
func (vc *VariantController) GetVariant(ctx *gin.Context) {
	variant, svcErr := vc.service.GetVariant(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}

	resp := gin.H{"variant": variant}
	if raw := ctx.Query("basePrice"); raw != "" {
		base, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsNaN(base) || math.IsInf(base, 0) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "must be a number", "field": "basePrice"})
			return
		}
		resp["effectivePrice"] = variant.EffectivePrice(base)
	}
	ctx.JSON(http.StatusOK, resp)
}

// GetVariantBySKU handles GET /variants/sku/:sku.
func (vc *VariantController) GetVariantBySKU(ctx *gin.Context) {
	variant, svcErr := vc.service.GetVariantBySKU(ctx.Request.Context(), ctx.Param("sku"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variant": variant})
}

// ListProductVariants handles GET /products/:productId/variants?active=.
func (vc *VariantController) ListProductVariants(ctx *gin.Context) {
	state, ok := parseLifecycleQuery(ctx)
	if !ok {
		return
	}

	variants, svcErr := vc.service.ListProductVariants(ctx.Request.Context(), ctx.Param("productId"), state)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variants": variants, "count": len(variants)})
}

// UpdateVariant handles PUT /variants/:id (admin only).
func (vc *VariantController) UpdateVariant(ctx *gin.Context) {
	var req models.UpdateVariantRequest
	if !bindJSON(ctx, &req) {
		return
	}

	variant, svcErr := vc.service.UpdateVariant(ctx.Request.Context(), ctx.Param("id"), &req)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variant": variant})
}

// DeactivateVariant handles POST /variants/:id/deactivate (admin only).
func (vc *VariantController) DeactivateVariant(ctx *gin.Context) {
	vc.setLifecycle(ctx, models.LifecycleInactive)
}

// ActivateVariant handles POST /variants/:id/activate (admin only).
func (vc *VariantController) ActivateVariant(ctx *gin.Context) {
	vc.setLifecycle(ctx, models.LifecycleActive)
}

func (vc *VariantController) setLifecycle(ctx *gin.Context, state models.Lifecycle) {
	variant, svcErr := vc.service.SetLifecycle(ctx.Request.Context(), ctx.Param("id"), state)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"variant": variant})
}
