package payment

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedHeader(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return signed.Header
}

func TestCreateCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, "a@b.com", r.PostForm.Get("customer_email"))
		assert.Equal(t, "sess-1", r.PostForm.Get("metadata[session_id]"))
		assert.Equal(t, "rush", r.PostForm.Get("metadata[delivery_speed]"))
		assert.Equal(t, "7900", r.PostForm.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "3900", r.PostForm.Get("line_items[1][price_data][unit_amount]"))

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"cs_test_123","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_123","amount_total":11800,"currency":"usd","expires_at":1767225600}`))
	}))
	defer srv.Close()

	gw := NewStripeGateway("sk_test_x", testWebhookSecret, WithBaseURL(srv.URL), WithMaxNetworkRetries(0))
	s, err := gw.CreateCheckoutSession(context.Background(), CheckoutRequest{
		CustomerEmail: "a@b.com",
		Currency:      "usd",
		LineItems: []LineItem{
			{Name: "Custom Song", UnitAmount: 7900, Quantity: 1},
			{Name: "Rush Delivery", UnitAmount: 3900, Quantity: 1},
		},
		Metadata:   map[string]string{"session_id": "sess-1", "delivery_speed": "rush"},
		SuccessURL: "https://songgift.app/checkout/success?session_id={CHECKOUT_SESSION_ID}",
		CancelURL:  "https://songgift.app/checkout?canceled=1",
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", s.ID)
	assert.Equal(t, int64(11800), s.AmountTotal)
	assert.Equal(t, "usd", s.Currency)
	assert.Equal(t, time.Unix(1767225600, 0).UTC(), s.ExpiresAt)
}

func TestCreateCheckoutSession_Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"bad email"}}`))
	}))
	defer srv.Close()

	gw := NewStripeGateway("sk_test_x", testWebhookSecret, WithBaseURL(srv.URL), WithMaxNetworkRetries(0))
	_, err := gw.CreateCheckoutSession(context.Background(), CheckoutRequest{CustomerEmail: "x", Currency: "usd"})
	assert.Error(t, err)
}

func TestVerifyEvent(t *testing.T) {
	gw := NewStripeGateway("sk_test_x", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{"id":"cs_1","amount_total":7900,"payment_intent":"pi_1","metadata":{"session_id":"sess-1"}}}}`)

	ev, err := gw.VerifyEvent(payload, signedHeader(t, payload, testWebhookSecret))
	require.NoError(t, err)
	assert.Equal(t, EventCheckoutSessionCompleted, ev.Type)

	s, err := DecodeCompletedSession(ev.Data)
	require.NoError(t, err)
	assert.Equal(t, "cs_1", s.ID)
	assert.Equal(t, "pi_1", s.PaymentIntentID())
	assert.Equal(t, "sess-1", s.Metadata["session_id"])
}

func TestVerifyEvent_Rejects(t *testing.T) {
	gw := NewStripeGateway("sk_test_x", testWebhookSecret)
	payload := []byte(`{"id":"evt_1","object":"event","type":"checkout.session.completed","data":{"object":{}}}`)

	_, err := gw.VerifyEvent(payload, "")
	assert.ErrorIs(t, err, ErrMissingSignature)

	_, err = gw.VerifyEvent(payload, signedHeader(t, payload, "whsec_wrong"))
	assert.ErrorIs(t, err, ErrInvalidSignature)

	_, err = gw.VerifyEvent(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)

	// 签名后篡改内容
	header := signedHeader(t, payload, testWebhookSecret)
	_, err = gw.VerifyEvent(append(payload, ' '), header)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestPaymentIntentID_Expanded(t *testing.T) {
	s := &CompletedSession{PaymentIntent: []byte(`{"id":"pi_expanded","object":"payment_intent"}`)}
	assert.Equal(t, "pi_expanded", s.PaymentIntentID())

	s = &CompletedSession{PaymentIntent: []byte(`null`)}
	assert.Equal(t, "", s.PaymentIntentID())
}
