package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/zumerkk/entas-sub001/common/logger"
	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/repository"
	awspkg "github.com/zumerkk/entas-sub001/pkg/aws"
)

const (
	RoleAdmin = "admin"

	publishTimeout = 5 * time.Second
)

// Caller identifies who is making a request.
type Caller struct {
	UserID string
	Role   string
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

// PaymentQuery filters payment listings. Empty fields are ignored.
type PaymentQuery struct {
	OrderID    string
	CustomerID string
	Status     string
	Page       int
	Limit      int
}

// GatewayLookup locates the payment a gateway result refers to: by id when known,
// otherwise by the gateway's transaction id.
type GatewayLookup struct {
	PaymentID     string
	TransactionID string
}

// PaymentService defines payment business logic. TransitionStatus and RecordGatewayResult are
// the only paths that change a payment's status.
type PaymentService interface {
	// CreatePayment returns the existing payment along with the 409 when the idempotency key
	// was already used and the caller may see that payment.
	CreatePayment(ctx context.Context, req *models.CreatePaymentRequest, caller Caller) (*models.Payment, *ServiceError)
	GetPayment(ctx context.Context, id string, caller Caller) (*models.Payment, *ServiceError)
	ListPayments(ctx context.Context, q PaymentQuery, caller Caller) ([]models.Payment, int64, *ServiceError)
	TransitionStatus(ctx context.Context, id string, req models.TransitionRequest, source string) (*models.Payment, *ServiceError)
	// RecordGatewayResult applies a gateway-reported status. A result matching the current
	// status is a duplicate delivery and returns applied=false without error.
	RecordGatewayResult(ctx context.Context, lookup GatewayLookup, req models.TransitionRequest, source string) (*models.Payment, bool, *ServiceError)
	UpdateNotes(ctx context.Context, id, notes string) (*models.Payment, *ServiceError)
	RepublishEvent(ctx context.Context, id string) (*models.Payment, *ServiceError)
	// RepublishPending publishes events for payments whose status changed more than grace ago
	// without a successful publish. It returns how many were published.
	RepublishPending(ctx context.Context, grace time.Duration, limit int) (int, error)
}

type paymentService struct {
	repo        repository.PaymentRepo
	references  ReferenceChecker
	snsClient   awspkg.SNSPublisher
	snsTopicArn string
	metrics     awspkg.MetricsRecorder
	logger      *zap.Logger
	now         func() time.Time
}

// NewPaymentService wires the service. references, snsClient and metrics may be nil; without
// a publisher no events are sent and the outbox marker is left untouched.
func NewPaymentService(
	repo repository.PaymentRepo,
	references ReferenceChecker,
	snsClient awspkg.SNSPublisher,
	snsTopicArn string,
	metrics awspkg.MetricsRecorder,
	log *zap.Logger,
) PaymentService {
	if references == nil {
		references = noReferenceChecks{}
	}
	return &paymentService{
		repo:        repo,
		references:  references,
		snsClient:   snsClient,
		snsTopicArn: snsTopicArn,
		metrics:     metrics,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, req *models.CreatePaymentRequest, caller Caller) (*models.Payment, *ServiceError) {
	if strings.TrimSpace(req.OrderID) == "" {
		return nil, badRequest("orderId", "is required")
	}
	orderID, svcErr := parseID("orderId", req.OrderID)
	if svcErr != nil {
		return nil, svcErr
	}

	customerID, svcErr := s.resolveCustomer(req.CustomerID, caller)
	if svcErr != nil {
		return nil, svcErr
	}

	payment := &models.Payment{
		OrderID:    orderID,
		CustomerID: customerID,
		Amount:     req.Amount,
		Currency:   req.Currency,
		Method:     req.Method,
		Notes:      req.Notes,
	}
	if req.IdempotencyKey != "" {
		key := req.IdempotencyKey
		payment.IdempotencyKey = &key
	}
	payment.ApplyDefaults()
	// Creation is not a transition; only later status changes are published.
	payment.NotifiedStatus = payment.Status

	if err := payment.Validate(); err != nil {
		return nil, classify(ctx, s.logger, err, "", "Failed to create payment")
	}

	if err := s.references.OrderExists(ctx, orderID.Hex()); err != nil {
		return nil, referenceError(ctx, s.logger, err, "orderId")
	}
	if err := s.references.CustomerExists(ctx, customerID.Hex()); err != nil {
		return nil, referenceError(ctx, s.logger, err, "customerId")
	}

	if err := s.repo.Create(ctx, payment); err != nil {
		svcErr := classify(ctx, s.logger, err, "", "Failed to create payment")
		if svcErr.StatusCode == http.StatusConflict {
			recordCount(s.metrics, awspkg.MetricUniquenessViolations, map[string]string{"Collection": repository.PaymentsCollection})
			logger.FromContext(ctx, s.logger).Info("duplicate payment submission rejected",
				zap.String("order_id", orderID.Hex()),
				zap.String("idempotency_key", req.IdempotencyKey),
			)
		}
		if svcErr.Field == "idempotencyKey" && payment.IdempotencyKey != nil {
			return s.existingForKey(ctx, *payment.IdempotencyKey, caller), svcErr
		}
		return nil, svcErr
	}

	recordCount(s.metrics, awspkg.MetricPaymentsCreated, map[string]string{"Method": string(payment.Method)})
	logger.FromContext(ctx, s.logger).Info("payment created",
		zap.String("payment_id", payment.ID.Hex()),
		zap.String("order_id", orderID.Hex()),
		zap.Float64("amount", payment.Amount),
		zap.String("currency", payment.Currency),
	)
	return payment, nil
}

// existingForKey finds the payment that already holds key, or nil if the caller may not see it.
func (s *paymentService) existingForKey(ctx context.Context, key string, caller Caller) *models.Payment {
	existing, err := s.repo.FindByIdempotencyKey(ctx, key)
	if err != nil {
		logger.FromContext(ctx, s.logger).Warn("failed to look up payment by idempotency key", zap.Error(err))
		return nil
	}
	if !caller.IsAdmin() && existing.CustomerID.Hex() != caller.UserID {
		return nil
	}
	return existing
}

// resolveCustomer defaults the customer to the caller. Only admins may act for someone else.
func (s *paymentService) resolveCustomer(raw string, caller Caller) (primitive.ObjectID, *ServiceError) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if caller.IsAdmin() {
			return primitive.NilObjectID, badRequest("customerId", "is required")
		}
		raw = caller.UserID
	}

	customerID, svcErr := parseID("customerId", raw)
	if svcErr != nil {
		return primitive.NilObjectID, svcErr
	}
	if !caller.IsAdmin() && customerID.Hex() != caller.UserID {
		return primitive.NilObjectID, forbidden()
	}
	return customerID, nil
}

func (s *paymentService) GetPayment(ctx context.Context, id string, caller Caller) (*models.Payment, *ServiceError) {
	p, svcErr := s.load(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if !caller.IsAdmin() && p.CustomerID.Hex() != caller.UserID {
		// Same answer as a missing payment so ids cannot be enumerated
		return nil, notFound("Payment not found")
	}
	return p, nil
}

func (s *paymentService) ListPayments(ctx context.Context, q PaymentQuery, caller Caller) ([]models.Payment, int64, *ServiceError) {
	var filter repository.PaymentFilter

	if q.OrderID != "" {
		oid, svcErr := parseID("orderId", q.OrderID)
		if svcErr != nil {
			return nil, 0, svcErr
		}
		filter.OrderID = &oid
	}

	customer := q.CustomerID
	if !caller.IsAdmin() {
		if customer != "" && customer != caller.UserID {
			return nil, 0, forbidden()
		}
		customer = caller.UserID
	}
	if customer != "" {
		cid, svcErr := parseID("customerId", customer)
		if svcErr != nil {
			return nil, 0, svcErr
		}
		filter.CustomerID = &cid
	}

	if q.Status != "" {
		status := models.PaymentStatus(q.Status)
		if !status.IsValid() {
			return nil, 0, badRequest("status", "must be one of: pending, completed, failed, refunded, cancelled")
		}
		filter.Status = &status
	}

	if filter.OrderID == nil && filter.CustomerID == nil && filter.Status == nil {
		return nil, 0, badRequest("", "one of orderId, customerId or status is required")
	}

	payments, total, err := s.repo.Find(ctx, filter, repository.Page{Page: q.Page, Limit: q.Limit})
	if err != nil {
		return nil, 0, classify(ctx, s.logger, err, "", "Failed to list payments")
	}
	return payments, total, nil
}

func (s *paymentService) TransitionStatus(ctx context.Context, id string, req models.TransitionRequest, source string) (*models.Payment, *ServiceError) {
	p, svcErr := s.load(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	return s.transition(ctx, p, req, source)
}

func (s *paymentService) RecordGatewayResult(ctx context.Context, lookup GatewayLookup, req models.TransitionRequest, source string) (*models.Payment, bool, *ServiceError) {
	var (
		p      *models.Payment
		svcErr *ServiceError
	)
	byID := lookup.PaymentID != ""
	if byID && lookup.TransactionID != "" && !primitive.IsValidObjectID(lookup.PaymentID) {
		logger.FromContext(ctx, s.logger).Warn("malformed gateway payment id, falling back to transaction id",
			zap.String("payment_id", lookup.PaymentID),
			zap.String("transaction_id", lookup.TransactionID),
		)
		byID = false
	}
	switch {
	case byID:
		p, svcErr = s.load(ctx, lookup.PaymentID)
	case lookup.TransactionID != "":
		found, err := s.repo.FindByTransactionID(ctx, lookup.TransactionID)
		if err != nil {
			svcErr = classify(ctx, s.logger, err, "Payment not found", "Failed to fetch payment")
		}
		p = found
	default:
		svcErr = badRequest("paymentId", "payment id or transaction id is required")
	}
	if svcErr != nil {
		return nil, false, svcErr
	}

	if p.Status == req.Status {
		logger.FromContext(ctx, s.logger).Info("duplicate gateway result ignored",
			zap.String("payment_id", p.ID.Hex()),
			zap.String("status", string(p.Status)),
			zap.String("source", source),
		)
		return p, false, nil
	}

	updated, svcErr := s.transition(ctx, p, req, source)
	if svcErr != nil {
		return nil, false, svcErr
	}
	return updated, true, nil
}

// transition is the single place a payment's status is written.
func (s *paymentService) transition(ctx context.Context, p *models.Payment, req models.TransitionRequest, source string) (*models.Payment, *ServiceError) {
	log := logger.FromContext(ctx, s.logger).With(zap.String("payment_id", p.ID.Hex()), zap.String("source", source))

	plan, err := p.PlanTransition(req, source, s.now())
	if err != nil {
		recordCount(s.metrics, awspkg.MetricPaymentTransitionsBad, map[string]string{"From": string(p.Status), "To": string(req.Status)})
		log.Warn("payment transition rejected", zap.String("from", string(p.Status)), zap.String("to", string(req.Status)), zap.Error(err))
		return nil, classify(ctx, s.logger, err, "", "Failed to change payment status")
	}

	updated, err := s.repo.ApplyTransition(ctx, p.ID, plan)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Payment not found", "Failed to change payment status")
	}

	recordCount(s.metrics, awspkg.MetricPaymentTransitions, map[string]string{"To": string(plan.To)})
	log.Info("payment status changed", zap.String("from", string(plan.From)), zap.String("to", string(plan.To)))

	if err := s.publish(ctx, updated); err != nil {
		log.Warn("payment event not published, reconciler will retry", zap.Error(err))
	}
	return updated, nil
}

func (s *paymentService) UpdateNotes(ctx context.Context, id, notes string) (*models.Payment, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}
	updated, err := s.repo.UpdateNotes(ctx, oid, strings.TrimSpace(notes))
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Payment not found", "Failed to update payment notes")
	}
	return updated, nil
}

func (s *paymentService) RepublishEvent(ctx context.Context, id string) (*models.Payment, *ServiceError) {
	p, svcErr := s.load(ctx, id)
	if svcErr != nil {
		return nil, svcErr
	}
	if !s.publishingEnabled() {
		return nil, &ServiceError{StatusCode: http.StatusServiceUnavailable, Message: "Payment events are not configured"}
	}
	if err := s.publish(ctx, p); err != nil {
		return nil, &ServiceError{StatusCode: http.StatusBadGateway, Message: "Failed to publish payment event"}
	}
	return p, nil
}

func (s *paymentService) RepublishPending(ctx context.Context, grace time.Duration, limit int) (int, error) {
	if !s.publishingEnabled() {
		return 0, nil
	}

	pending, err := s.repo.FindUnnotified(ctx, s.now().Add(-grace), limit)
	if err != nil {
		return 0, err
	}

	published := 0
	for i := range pending {
		if ctx.Err() != nil {
			return published, ctx.Err()
		}
		if err := s.publish(ctx, &pending[i]); err != nil {
			s.logger.Warn("republish failed", zap.String("payment_id", pending[i].ID.Hex()), zap.Error(err))
			continue
		}
		published++
	}
	return published, nil
}

func (s *paymentService) publishingEnabled() bool {
	return s.snsClient != nil && s.snsTopicArn != ""
}

// publish sends the payment's current status and records it as notified. The publish is
// detached from request cancellation.
func (s *paymentService) publish(ctx context.Context, p *models.Payment) error {
	if !s.publishingEnabled() {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()

	event := models.NewPaymentEvent(p, s.now())
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal payment event: %w", err)
	}

	if err := s.snsClient.Publish(ctx, s.snsTopicArn, body, map[string]string{"eventType": event.Type}); err != nil {
		recordCount(s.metrics, awspkg.MetricPaymentEventsFailed, map[string]string{"Type": event.Type})
		return err
	}

	if err := s.repo.MarkNotified(ctx, p.ID, p.Status); err != nil {
		// The event went out; a retry would only publish a duplicate, which consumers tolerate.
		return err
	}
	p.NotifiedStatus = p.Status

	logger.FromContext(ctx, s.logger).Info("payment event published",
		zap.String("payment_id", p.ID.Hex()),
		zap.String("event_type", event.Type),
		zap.String("event_id", event.EventID),
	)
	return nil
}

func (s *paymentService) load(ctx context.Context, id string) (*models.Payment, *ServiceError) {
	oid, svcErr := parseID("id", id)
	if svcErr != nil {
		return nil, svcErr
	}
	p, err := s.repo.FindByID(ctx, oid)
	if err != nil {
		return nil, classify(ctx, s.logger, err, "Payment not found", "Failed to fetch payment")
	}
	return p, nil
}
