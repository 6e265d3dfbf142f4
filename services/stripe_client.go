package services

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/zumerkk/entas-sub001/models"
)

// ErrStripeNotConfigured is returned when a webhook arrives but no signing secret is set.
var ErrStripeNotConfigured = errors.New("stripe webhook secret not configured")

// StripeService verifies Stripe webhooks.
type StripeService struct {
	webhookKey string
}

func NewStripeService(webhookKey string) *StripeService {
	return &StripeService{webhookKey: webhookKey}
}

// ParseWebhook checks the Stripe-Signature header against payload. The account's API version
// may lag the library's, so version mismatches are tolerated; only the fields read below are used.
func (s *StripeService) ParseWebhook(payload []byte, sigHeader string) (stripe.Event, error) {
	if s == nil || s.webhookKey == "" {
		return stripe.Event{}, ErrStripeNotConfigured
	}
	return webhook.ConstructEventWithOptions(payload, sigHeader, s.webhookKey, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
}

// StripePaymentUpdate is a Stripe event translated into a gateway result.
type StripePaymentUpdate struct {
	EventID   string
	EventType string
	Lookup    GatewayLookup
	Request   models.TransitionRequest
}

// stripeEventStatus maps the handled Stripe event types to payment statuses.
var stripeEventStatus = map[stripe.EventType]models.PaymentStatus{
	"payment_intent.succeeded":      models.PaymentStatusCompleted,
	"payment_intent.payment_failed": models.PaymentStatusFailed,
	"payment_intent.canceled":       models.PaymentStatusCancelled,
	"charge.refunded":               models.PaymentStatusRefunded,
}

// PaymentUpdateFromEvent returns nil for events that do not affect payments, including
// partial refunds.
func PaymentUpdateFromEvent(event stripe.Event) (*StripePaymentUpdate, error) {
	status, ok := stripeEventStatus[event.Type]
	if !ok {
		return nil, nil
	}

	update := &StripePaymentUpdate{
		EventID:   event.ID,
		EventType: string(event.Type),
		Request:   models.TransitionRequest{Status: status, Reason: "stripe " + string(event.Type)},
	}
	if event.Data == nil {
		return nil, fmt.Errorf("stripe event %s has no data", event.ID)
	}

	var gatewayResponse string
	if event.Type == "charge.refunded" {
		var ch stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &ch); err != nil {
			return nil, fmt.Errorf("decode charge: %w", err)
		}
		// charge.refunded also fires for partial refunds; only a full refund ends the payment.
		if !ch.Refunded {
			return nil, nil
		}
		update.Lookup.PaymentID = ch.Metadata["payment_id"]
		if ch.PaymentIntent != nil {
			update.Lookup.TransactionID = ch.PaymentIntent.ID
		}
		gatewayResponse = fmt.Sprintf("charge %s refunded %d %s", ch.ID, ch.AmountRefunded, ch.Currency)
	} else {
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		update.Lookup.PaymentID = pi.Metadata["payment_id"]
		update.Lookup.TransactionID = pi.ID
		gatewayResponse = string(pi.Status)
		if pi.LastPaymentError != nil && pi.LastPaymentError.Msg != "" {
			gatewayResponse += ": " + pi.LastPaymentError.Msg
		}
		if pi.ID != "" {
			txID := pi.ID
			update.Request.TransactionID = &txID
		}
	}
	update.Request.GatewayResponse = &gatewayResponse

	if update.Lookup.PaymentID == "" && update.Lookup.TransactionID == "" {
		return nil, fmt.Errorf("stripe event %s carries no payment reference", event.ID)
	}
	return update, nil
}
