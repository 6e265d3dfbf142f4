package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

// IdempotencyKeyHeader takes precedence over the idempotencyKey body field.
const IdempotencyKeyHeader = "Idempotency-Key"

// PaymentController handles HTTP requests for payments.
type PaymentController struct {
	service services.PaymentService
	stripe  *services.StripeService
	logger  *zap.Logger
}

func NewPaymentController(service services.PaymentService, stripe *services.StripeService, log *zap.Logger) *PaymentController {
	return &PaymentController{service: service, stripe: stripe, logger: log}
}

// CreatePayment handles POST /payments.
func (pc *PaymentController) CreatePayment(ctx *gin.Context) {
	var req models.CreatePaymentRequest
	if !bindJSON(ctx, &req) {
		return
	}
	if key := strings.TrimSpace(ctx.GetHeader(IdempotencyKeyHeader)); key != "" {
		if req.IdempotencyKey != "" && req.IdempotencyKey != key {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "header and body idempotency keys differ", "field": "idempotencyKey"})
			return
		}
		req.IdempotencyKey = key
	}

	payment, svcErr := pc.service.CreatePayment(ctx.Request.Context(), &req, callerFrom(ctx))
	if svcErr != nil {
		if payment == nil {
			respondError(ctx, svcErr)
			return
		}
		ctx.JSON(svcErr.StatusCode, gin.H{"error": svcErr.Message, "field": svcErr.Field, "payment": payment})
		return
	}
	ctx.JSON(http.StatusCreated, gin.H{"payment": payment})
}

// GetPayment handles GET /payments/:id.
func (pc *PaymentController) GetPayment(ctx *gin.Context) {
	payment, svcErr := pc.service.GetPayment(ctx.Request.Context(), ctx.Param("id"), callerFrom(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}

// ListPayments handles GET /payments?orderId=&customerId=&status=.
func (pc *PaymentController) ListPayments(ctx *gin.Context) {
	page, limit := parsePaginationParams(ctx)
	q := services.PaymentQuery{
		OrderID:    ctx.Query("orderId"),
		CustomerID: ctx.Query("customerId"),
		Status:     ctx.Query("status"),
		Page:       page,
		Limit:      limit,
	}

	payments, total, svcErr := pc.service.ListPayments(ctx.Request.Context(), q, callerFrom(ctx))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payments": payments, "meta": pageMeta(page, limit, total)})
}

// TransitionPayment handles POST /payments/:id/transition (admin only).
func (pc *PaymentController) TransitionPayment(ctx *gin.Context) {
	var req models.TransitionRequest
	if !bindJSON(ctx, &req) {
		return
	}

	payment, svcErr := pc.service.TransitionStatus(ctx.Request.Context(), ctx.Param("id"), req, models.TransitionSourceAdmin)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}

type updateNotesRequest struct {
	Notes string `json:"notes"`
}

// UpdateNotes handles PATCH /payments/:id/notes (admin only).
func (pc *PaymentController) UpdateNotes(ctx *gin.Context) {
	var req updateNotesRequest
	if !bindJSON(ctx, &req) {
		return
	}

	payment, svcErr := pc.service.UpdateNotes(ctx.Request.Context(), ctx.Param("id"), req.Notes)
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"payment": payment})
}

// RepublishEvent handles POST /payments/:id/republish (admin only).
func (pc *PaymentController) RepublishEvent(ctx *gin.Context) {
	payment, svcErr := pc.service.RepublishEvent(ctx.Request.Context(), ctx.Param("id"))
	if svcErr != nil {
		respondError(ctx, svcErr)
		return
	}
	ctx.JSON(http.StatusAccepted, gin.H{"payment": payment, "event": models.PaymentEventType(payment.Status)})
}
