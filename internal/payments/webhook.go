package payments

import (
	"encoding/json"

	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
)

type webhookEnvelope struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// ParseWebhook decodes a gateway webhook body into a WebhookEvent. The event
// id used for idempotency comes from the X-Razorpay-Event-Id header, not the
// body, so it is handled by the transport layer.
func ParseWebhook(body []byte) (WebhookEvent, error) {
	var envelope webhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return WebhookEvent{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "malformed webhook payload")
	}
	if envelope.Event == "" {
		return WebhookEvent{}, pkgerrors.New(pkgerrors.CodeValidation, "webhook event type missing")
	}
	return WebhookEvent{
		Kind:             envelope.Event,
		GatewayOrderID:   envelope.Payload.Payment.Entity.OrderID,
		GatewayPaymentID: envelope.Payload.Payment.Entity.ID,
	}, nil
}
