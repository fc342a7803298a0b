package webhooks

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/safanavk/smileshop-backend/api/responses"
	paymentsvc "github.com/safanavk/smileshop-backend/internal/payments"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/razorpay"
)

const (
	signatureHeader = "X-Razorpay-Signature"
	eventIDHeader   = "X-Razorpay-Event-Id"

	maxWebhookBody = 1 << 20
)

type webhookService interface {
	HandleWebhookEvent(ctx context.Context, event paymentsvc.WebhookEvent) error
}

type webhookGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

// RazorpayWebhook receives gateway payment events. The body signature proves
// origin; the event id claim makes redeliveries no-ops.
func RazorpayWebhook(svc webhookService, guard webhookGuard, webhookSecret string, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook service unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}
		if webhookSecret == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook secret not configured"))
			return
		}

		payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if signature == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "webhook signature missing"))
			return
		}
		if !razorpay.VerifyWebhookSignature(payload, signature, webhookSecret) {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeSignature, "webhook signature verification failed"))
			return
		}

		event, err := paymentsvc.ParseWebhook(payload)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		eventID := strings.TrimSpace(r.Header.Get(eventIDHeader))
		if eventID == "" {
			// Deliveries without an id cannot be deduplicated; the confirm
			// compare-and-set still keeps processing idempotent.
			eventID = event.Kind + ":" + event.GatewayOrderID
		}

		firstClaim, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if !firstClaim {
			responses.WriteSuccess(w, nil)
			return
		}

		if err := svc.HandleWebhookEvent(ctx, event); err != nil {
			// Release the claim so the gateway retry can be processed.
			if releaseErr := guard.Release(ctx, eventID); releaseErr != nil && logg != nil {
				logg.Error(ctx, "failed to release webhook event claim", releaseErr)
			}
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithField(ctx, "webhook_event", event.Kind)
			logg.Info(ctx, "gateway webhook processed")
		}
		responses.WriteSuccess(w, nil)
	}
}
