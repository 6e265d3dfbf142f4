package controllers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/common/logger"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

// maxWebhookBody matches the limit Stripe documents for event payloads.
const maxWebhookBody = 65536

// StripeWebhook handles POST /payments/webhooks/stripe.
// Stripe retries anything that is not 2xx, so only failures worth retrying return 5xx.
func (pc *PaymentController) StripeWebhook(ctx *gin.Context) {
	log := logger.FromContext(ctx.Request.Context(), pc.logger)

	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ctx.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
		return
	}

	event, err := pc.stripe.ParseWebhook(payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, services.ErrStripeNotConfigured) {
			log.Error("stripe webhook received but no signing secret configured")
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": "webhooks not configured"})
			return
		}
		log.Warn("stripe webhook signature verification failed", zap.Error(err))
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook"})
		return
	}

	log = log.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	update, err := services.PaymentUpdateFromEvent(event)
	if err != nil {
		log.Warn("stripe event could not be mapped to a payment", zap.Error(err))
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}
	if update == nil {
		log.Debug("unhandled stripe event type")
		ctx.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	payment, applied, svcErr := pc.service.RecordGatewayResult(ctx.Request.Context(), update.Lookup, update.Request, models.TransitionSourceStripe)
	if svcErr != nil {
		if svcErr.StatusCode >= http.StatusInternalServerError {
			respondError(ctx, svcErr)
			return
		}
		log.Warn("stripe event rejected", zap.Int("status_code", svcErr.StatusCode), zap.String("error", svcErr.Message))
		ctx.JSON(http.StatusOK, gin.H{"status": "rejected", "reason": svcErr.Message})
		return
	}

	status := "duplicate"
	if applied {
		status = "applied"
	}
	log.Info("stripe event processed", zap.String("payment_id", payment.ID.Hex()), zap.String("result", status))
	ctx.JSON(http.StatusOK, gin.H{"status": status, "paymentId": payment.ID.Hex()})
}
