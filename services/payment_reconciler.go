package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// PaymentReconciler periodically republishes payment events that were not delivered when the
// status changed, keeping the order service eventually consistent with payments.
type PaymentReconciler struct {
	payments PaymentService
	interval time.Duration
	grace    time.Duration
	batch    int
	logger   *zap.Logger
}

func NewPaymentReconciler(payments PaymentService, interval, grace time.Duration, batch int, log *zap.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if grace <= 0 {
		grace = 30 * time.Second
	}
	if batch <= 0 {
		batch = 100
	}
	return &PaymentReconciler{payments: payments, interval: interval, grace: grace, batch: batch, logger: log}
}

// Run blocks until ctx is cancelled.
func (r *PaymentReconciler) Run(ctx context.Context) {
	r.logger.Info("payment reconciler started", zap.Duration("interval", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("payment reconciler stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one reconciliation pass and returns the number of events published.
func (r *PaymentReconciler) RunOnce(ctx context.Context) int {
	n, err := r.payments.RepublishPending(ctx, r.grace, r.batch)
	if err != nil && ctx.Err() == nil {
		r.logger.Error("payment reconciliation failed", zap.Error(err))
	}
	if n > 0 {
		r.logger.Info("payment events republished", zap.Int("count", n))
	}
	return n
}
