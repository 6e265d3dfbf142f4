package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "github.com/zumerkk/entas-sub001/common/errors"
	"github.com/zumerkk/entas-sub001/middleware"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

func respondError(ctx *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message}
	if svcErr.Field != "" {
		body["field"] = svcErr.Field
	}
	ctx.JSON(svcErr.StatusCode, body)
}

// bindJSON decodes the body into dst and reports a 400 through the error middleware on failure.
func bindJSON(ctx *gin.Context, dst interface{}) bool {
	if err := ctx.ShouldBindJSON(dst); err != nil {
		apperrors.Abort(ctx, apperrors.ErrInvalidInput.Wrap(err))
		return false
	}
	return true
}

func callerFrom(ctx *gin.Context) services.Caller {
	return services.Caller{
		UserID: ctx.GetString(middleware.UserContextKey),
		Role:   ctx.GetString(middleware.RoleContextKey),
	}
}

// parseLifecycleQuery reads ?active=true|false. Absent means no filter.
func parseLifecycleQuery(ctx *gin.Context) (*models.Lifecycle, bool) {
	raw, ok := ctx.GetQuery("active")
	if !ok || raw == "" {
		return nil, true
	}
	active, err := strconv.ParseBool(raw)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "must be true or false", "field": "active"})
		return nil, false
	}
	state := models.LifecycleOf(active)
	return &state, true
}

// parsePaginationParams extracts and validates pagination parameters.
func parsePaginationParams(ctx *gin.Context) (int, int) {
	const (
		maxLimit     = 100
		maxPage      = 10000
		defaultPage  = 1
		defaultLimit = 20
	)

	page, limit := defaultPage, defaultLimit
	if p, err := strconv.Atoi(ctx.Query("page")); err == nil && p > 0 {
		page = p
		if page > maxPage {
			page = maxPage
		}
	}
	if l, err := strconv.Atoi(ctx.Query("limit")); err == nil && l > 0 {
		limit = l
		if limit > maxLimit {
			limit = maxLimit
		}
	}
	return page, limit
}

func pageMeta(page, limit int, total int64) gin.H {
	totalPages := int64(0)
	if limit > 0 {
		totalPages = (total + int64(limit) - 1) / int64(limit)
	}
	return gin.H{
		"page":        page,
		"limit":       limit,
		"total":       total,
		"total_pages": totalPages,
		"has_more":    total > int64(page*limit),
	}
}
