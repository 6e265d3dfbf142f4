package services_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/webhook"

	"github.com/zumerkk/entas-sub001/models"
	"github.com/zumerkk/entas-sub001/services"
)

const testWebhookSecret = "whsec_test_secret"

func stripeEvent(eventType, object string) stripe.Event {
	return stripe.Event{
		ID:   "evt_123",
		Type: stripe.EventType(eventType),
		Data: &stripe.EventData{Raw: json.RawMessage(object)},
	}
}

func TestPaymentUpdateFromEvent(t *testing.T) {
	tests := []struct {
		name      string
		eventType string
		object    string
		status    models.PaymentStatus
		paymentID string
		txID      string
	}{
		{
			name:      "succeeded",
			eventType: "payment_intent.succeeded",
			object:    `{"id":"pi_1","object":"payment_intent","status":"succeeded","metadata":{"payment_id":"65f000000000000000000001"}}`,
			status:    models.PaymentStatusCompleted,
			paymentID: "65f000000000000000000001",
			txID:      "pi_1",
		},
		{
			name:      "failed without metadata",
			eventType: "payment_intent.payment_failed",
			object:    `{"id":"pi_2","object":"payment_intent","status":"requires_payment_method","last_payment_error":{"message":"card declined"}}`,
			status:    models.PaymentStatusFailed,
			txID:      "pi_2",
		},
		{
			name:      "canceled",
			eventType: "payment_intent.canceled",
			object:    `{"id":"pi_3","object":"payment_intent","status":"canceled"}`,
			status:    models.PaymentStatusCancelled,
			txID:      "pi_3",
		},
		{
			name:      "refunded charge",
			eventType: "charge.refunded",
			object:    `{"id":"ch_1","object":"charge","refunded":true,"amount_refunded":1000,"currency":"try","payment_intent":"pi_4","metadata":{"payment_id":"65f000000000000000000004"}}`,
			status:    models.PaymentStatusRefunded,
			paymentID: "65f000000000000000000004",
			txID:      "pi_4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			update, err := services.PaymentUpdateFromEvent(stripeEvent(tt.eventType, tt.object))
			require.NoError(t, err)
			require.NotNil(t, update)
			assert.Equal(t, tt.status, update.Request.Status)
			assert.Equal(t, tt.paymentID, update.Lookup.PaymentID)
			assert.Equal(t, tt.txID, update.Lookup.TransactionID)
			assert.Equal(t, "evt_123", update.EventID)
			require.NotNil(t, update.Request.GatewayResponse)
		})
	}
}

func TestPaymentUpdateFromEvent_FailureMessage(t *testing.T) {
	update, err := services.PaymentUpdateFromEvent(stripeEvent("payment_intent.payment_failed",
		`{"id":"pi_2","object":"payment_intent","status":"requires_payment_method","last_payment_error":{"message":"card declined"}}`))
	require.NoError(t, err)
	assert.Equal(t, "requires_payment_method: card declined", *update.Request.GatewayResponse)
}

func TestPaymentUpdateFromEvent_Ignored(t *testing.T) {
	update, err := services.PaymentUpdateFromEvent(stripeEvent("customer.created", `{"id":"cus_1"}`))
	assert.NoError(t, err)
	assert.Nil(t, update)
}

func TestPaymentUpdateFromEvent_PartialRefundIgnored(t *testing.T) {
	update, err := services.PaymentUpdateFromEvent(stripeEvent("charge.refunded",
		`{"id":"ch_1","object":"charge","refunded":false,"amount":1000,"amount_refunded":400,"currency":"try","payment_intent":"pi_4","metadata":{"payment_id":"65f000000000000000000004"}}`))
	assert.NoError(t, err)
	assert.Nil(t, update)
}

func TestPaymentUpdateFromEvent_NoReference(t *testing.T) {
	_, err := services.PaymentUpdateFromEvent(stripeEvent("charge.refunded", `{"id":"ch_1","object":"charge","refunded":true}`))
	assert.Error(t, err)
}

func signedPayload(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func stripeWebhookPayload(paymentID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": "evt_webhook_1",
		"object": "event",
		"api_version": "2020-08-27",
		"type": "payment_intent.succeeded",
		"data": {"object": {"id": "pi_9", "object": "payment_intent", "status": "succeeded", "metadata": {"payment_id": %q}}}
	}`, paymentID))
}

func TestStripeService_ParseWebhook(t *testing.T) {
	svc := services.NewStripeService(testWebhookSecret)
	payload := stripeWebhookPayload("65f000000000000000000009")

	event, err := svc.ParseWebhook(payload, signedPayload(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, "evt_webhook_1", event.ID)

	update, err := services.PaymentUpdateFromEvent(event)
	require.NoError(t, err)
	assert.Equal(t, "65f000000000000000000009", update.Lookup.PaymentID)

	_, err = svc.ParseWebhook(payload, signedPayload(t, payload, "whsec_other"))
	assert.Error(t, err)

	_, err = services.NewStripeService("").ParseWebhook(payload, "t=1,v1=abc")
	assert.ErrorIs(t, err, services.ErrStripeNotConfigured)
}
