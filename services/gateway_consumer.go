package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/models"
	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

// GatewayCallbackHandler applies payment gateway callbacks read from SQS.
type GatewayCallbackHandler struct {
	payments PaymentService
	metrics  awspkg.MetricsRecorder
	logger   *zap.Logger
}

func NewGatewayCallbackHandler(payments PaymentService, metrics awspkg.MetricsRecorder, log *zap.Logger) *GatewayCallbackHandler {
	return &GatewayCallbackHandler{payments: payments, metrics: metrics, logger: log}
}

// Handle is an awspkg.MessageHandler. A nil return deletes the message. Malformed messages,
// illegal transitions and infrastructure failures return an error so the message is redelivered
// and eventually lands in the dead letter queue.
func (h *GatewayCallbackHandler) Handle(ctx context.Context, body string) error {
	var cb models.GatewayCallback
	if err := json.Unmarshal([]byte(body), &cb); err != nil {
		h.logger.Error("invalid gateway callback", zap.Error(err))
		return fmt.Errorf("decode gateway callback: %w", err)
	}
	if cb.PaymentID == "" && cb.TransactionID == "" {
		h.logger.Error("gateway callback without payment reference")
		return fmt.Errorf("gateway callback without payment reference")
	}

	req := models.TransitionRequest{Status: cb.Status, Reason: cb.Reason}
	if cb.TransactionID != "" {
		req.TransactionID = &cb.TransactionID
	}
	if cb.GatewayResponse != "" {
		req.GatewayResponse = &cb.GatewayResponse
	}

	lookup := GatewayLookup{PaymentID: cb.PaymentID}
	if lookup.PaymentID == "" {
		lookup.TransactionID = cb.TransactionID
	}

	p, applied, svcErr := h.payments.RecordGatewayResult(ctx, lookup, req, models.TransitionSourceGateway)
	if svcErr != nil {
		log := h.logger.With(zap.String("payment_id", cb.PaymentID), zap.String("status", string(cb.Status)))
		if svcErr.StatusCode >= http.StatusInternalServerError {
			log.Error("gateway callback failed, will retry", zap.String("error", svcErr.Message))
		} else {
			log.Warn("gateway callback rejected", zap.Int("status_code", svcErr.StatusCode), zap.String("error", svcErr.Message))
		}
		return svcErr
	}

	recordCount(h.metrics, awspkg.MetricSQSMessages, map[string]string{"Queue": "paymentCallbacks"})
	h.logger.Info("gateway callback processed",
		zap.String("payment_id", p.ID.Hex()),
		zap.String("status", string(p.Status)),
		zap.Bool("applied", applied),
	)
	return nil
}
