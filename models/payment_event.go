package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEvent is published to SNS after every status transition.
// The order service marks orders paid or failed from these.
type PaymentEvent struct {
	EventID       string        `json:"eventId"`
	Type          string        `json:"type"`
	PaymentID     string        `json:"paymentId"`
	OrderID       string        `json:"orderId"`
	CustomerID    string        `json:"customerId"`
	Amount        float64       `json:"amount"`
	Currency      string        `json:"currency"`
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transactionId,omitempty"`
	PaidAt        *time.Time    `json:"paidAt,omitempty"`
	Timestamp     time.Time     `json:"timestamp"`
}

// PaymentEventType is the event name for a payment in status s, e.g. "payment.completed".
func PaymentEventType(s PaymentStatus) string {
	return "payment." + string(s)
}

// NewPaymentEvent snapshots p for publication.
func NewPaymentEvent(p *Payment, now time.Time) PaymentEvent {
	return PaymentEvent{
		EventID:       uuid.NewString(),
		Type:          PaymentEventType(p.Status),
		PaymentID:     p.ID.Hex(),
		OrderID:       p.OrderID.Hex(),
		CustomerID:    p.CustomerID.Hex(),
		Amount:        p.Amount,
		Currency:      p.Currency,
		Method:        p.Method,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		PaidAt:        p.PaidAt,
		Timestamp:     now.UTC(),
	}
}

// GatewayCallback is the message the payment gateway adapter drops on the callback queue.
type GatewayCallback struct {
	PaymentID       string        `json:"paymentId"`
	Status          PaymentStatus `json:"status"`
	TransactionID   string        `json:"transactionId"`
	GatewayResponse string        `json:"gatewayResponse"`
	Reason          string        `json:"reason,omitempty"`
}
