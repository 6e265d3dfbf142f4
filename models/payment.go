package models

import (
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DefaultCurrency is applied when a payment is created without one.
const DefaultCurrency = "TRY"

type PaymentMethod string

const (
	PaymentMethodWireTransfer PaymentMethod = "wire_transfer"
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDeferred     PaymentMethod = "deferred"
)

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodWireTransfer, PaymentMethodCreditCard, PaymentMethodDeferred:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

// paymentTransitions is the complete table of legal status moves. Anything absent is illegal,
// including staying in the same state.
var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending:   {PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusCancelled},
	PaymentStatusCompleted: {PaymentStatusRefunded},
}

func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusCompleted, PaymentStatusFailed, PaymentStatusRefunded, PaymentStatusCancelled:
		return true
	}
	return false
}

// IsTerminal reports whether no transition leaves s.
func (s PaymentStatus) IsTerminal() bool {
	return len(paymentTransitions[s]) == 0
}

// CanTransitionTo reports whether s -> next is in the transition table.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from s in one step.
func (s PaymentStatus) AllowedTransitions() []PaymentStatus {
	return append([]PaymentStatus(nil), paymentTransitions[s]...)
}

// InvalidTransitionError is returned for a status move outside the transition table.
type InvalidTransitionError struct {
	From PaymentStatus
	To   PaymentStatus
}

func (e *InvalidTransitionError) Error() string {
	if e.From == e.To {
		return fmt.Sprintf("payment is already %s", e.From)
	}
	if e.From.IsTerminal() {
		return fmt.Sprintf("payment is %s and can no longer change status", e.From)
	}
	return fmt.Sprintf("cannot transition payment from %s to %s", e.From, e.To)
}

// Transition sources recorded in the status history.
const (
	TransitionSourceAdmin   = "admin"
	TransitionSourceGateway = "gateway"
	TransitionSourceStripe  = "stripe"
)

// StatusChange is one entry of a payment's status history.
type StatusChange struct {
	From   PaymentStatus `json:"from" bson:"from"`
	To     PaymentStatus `json:"to" bson:"to"`
	Source string        `json:"source" bson:"source"`
	Reason string        `json:"reason,omitempty" bson:"reason,omitempty"`
	At     time.Time     `json:"at" bson:"at"`
}

// Payment is a monetary transaction for one order, stored in the payments collection.
// It is never deleted.
type Payment struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	OrderID         primitive.ObjectID `json:"orderId" bson:"orderId"`
	CustomerID      primitive.ObjectID `json:"customerId" bson:"customerId"`
	Amount          float64            `json:"amount" bson:"amount" validate:"gt=0"`
	Currency        string             `json:"currency" bson:"currency" validate:"required,len=3"`
	Method          PaymentMethod      `json:"method" bson:"method" validate:"required,oneof=wire_transfer credit_card deferred"`
	Status          PaymentStatus      `json:"status" bson:"status" validate:"required,oneof=pending completed failed refunded cancelled"`
	TransactionID   string             `json:"transactionId,omitempty" bson:"transactionId,omitempty"`
	GatewayResponse string             `json:"gatewayResponse,omitempty" bson:"gatewayResponse,omitempty"`
	Notes           string             `json:"notes,omitempty" bson:"notes,omitempty"`
	PaidAt          *time.Time         `json:"paidAt,omitempty" bson:"paidAt,omitempty"`
	IdempotencyKey  *string            `json:"idempotencyKey,omitempty" bson:"idempotencyKey,omitempty"`
	StatusHistory   []StatusChange     `json:"statusHistory" bson:"statusHistory"`
	NotifiedStatus  PaymentStatus      `json:"-" bson:"notifiedStatus,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// CreatePaymentRequest is the payload for initiating a payment.
type CreatePaymentRequest struct {
	OrderID        string        `json:"orderId"`
	CustomerID     string        `json:"customerId"`
	Amount         float64       `json:"amount"`
	Currency       string        `json:"currency"`
	Method         PaymentMethod `json:"method"`
	IdempotencyKey string        `json:"idempotencyKey"`
	Notes          string        `json:"notes"`
}

// TransitionRequest asks the transition authority to move a payment to Status.
type TransitionRequest struct {
	Status          PaymentStatus `json:"status"`
	TransactionID   *string       `json:"transactionId"`
	GatewayResponse *string       `json:"gatewayResponse"`
	PaidAt          *time.Time    `json:"paidAt"`
	Reason          string        `json:"reason"`
}

// PaymentTransition is a validated status move ready to be applied with compare-and-set on From.
type PaymentTransition struct {
	From            PaymentStatus
	To              PaymentStatus
	PaidAt          *time.Time
	TransactionID   *string
	GatewayResponse *string
	Change          StatusChange
}

// ApplyDefaults fills the creation defaults and normalizes text fields.
func (p *Payment) ApplyDefaults() {
	p.Currency = strings.ToUpper(strings.TrimSpace(p.Currency))
	if p.Currency == "" {
		p.Currency = DefaultCurrency
	}
	if p.Status == "" {
		p.Status = PaymentStatusPending
	}
	if p.IdempotencyKey != nil {
		k := strings.TrimSpace(*p.IdempotencyKey)
		if k == "" {
			p.IdempotencyKey = nil
		} else {
			p.IdempotencyKey = &k
		}
	}
	p.Notes = strings.TrimSpace(p.Notes)
	if p.StatusHistory == nil {
		p.StatusHistory = []StatusChange{}
	}
}

func (p *Payment) Validate() error {
	if p.OrderID.IsZero() {
		return newValidationError("orderId", "is required")
	}
	if p.CustomerID.IsZero() {
		return newValidationError("customerId", "is required")
	}
	return validateStruct(p)
}

// PlanTransition validates req against the transition table and resolves the fields the move
// writes. Completing a payment always sets paidAt, defaulting to now.
func (p *Payment) PlanTransition(req TransitionRequest, source string, now time.Time) (*PaymentTransition, error) {
	if !req.Status.IsValid() {
		return nil, newValidationError("status", "must be one of: pending, completed, failed, refunded, cancelled")
	}
	if !p.Status.CanTransitionTo(req.Status) {
		return nil, &InvalidTransitionError{From: p.Status, To: req.Status}
	}

	t := &PaymentTransition{
		From:            p.Status,
		To:              req.Status,
		TransactionID:   trimmedOrNil(req.TransactionID),
		GatewayResponse: req.GatewayResponse,
		Change: StatusChange{
			From:   p.Status,
			To:     req.Status,
			Source: source,
			Reason: strings.TrimSpace(req.Reason),
			At:     now,
		},
	}

	if req.Status == PaymentStatusCompleted {
		paidAt := now
		if req.PaidAt != nil && !req.PaidAt.IsZero() {
			paidAt = req.PaidAt.UTC()
		}
		t.PaidAt = &paidAt
	}
	return t, nil
}

// Apply mirrors a persisted transition onto the in-memory document.
func (p *Payment) Apply(t *PaymentTransition) {
	p.Status = t.To
	if t.PaidAt != nil {
		p.PaidAt = t.PaidAt
	}
	if t.TransactionID != nil {
		p.TransactionID = *t.TransactionID
	}
	if t.GatewayResponse != nil {
		p.GatewayResponse = *t.GatewayResponse
	}
	p.StatusHistory = append(p.StatusHistory, t.Change)
	p.UpdatedAt = t.Change.At
}

// NeedsNotification reports whether the current status has not been published yet.
func (p Payment) NeedsNotification() bool {
	return p.NotifiedStatus != p.Status
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
