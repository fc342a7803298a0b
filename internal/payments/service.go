package payments

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/internal/cart"
	"github.com/safanavk/smileshop-backend/internal/inventory"
	"github.com/safanavk/smileshop-backend/internal/orders"
	"github.com/safanavk/smileshop-backend/internal/users"
	"github.com/safanavk/smileshop-backend/internal/wallet"
	"github.com/safanavk/smileshop-backend/pkg/config"
	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/metrics"
	"github.com/safanavk/smileshop-backend/pkg/razorpay"
)

// Source labels where a confirmation arrived from.
const (
	SourceCallback = "callback"
	SourceWebhook  = "webhook"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway is the slice of the payment gateway needed to open orders.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*razorpay.Order, error)
}

// Service reconciles gateway payments against local orders. Confirmation is
// idempotent: the payment status flip is a compare-and-set, and every side
// effect rides behind it.
type Service interface {
	CreateGatewayOrder(ctx context.Context, input orders.CreateInput) (*GatewayOrderResult, error)
	ConfirmCallback(ctx context.Context, input ConfirmInput) (*models.Order, error)
	HandleWebhookEvent(ctx context.Context, event WebhookEvent) error
}

// GatewayOrderResult is returned to the client to launch the checkout widget.
type GatewayOrderResult struct {
	Order          *models.Order `json:"order"`
	GatewayOrderID string        `json:"gateway_order_id"`
	AmountCents    int64         `json:"amount_cents"`
	Currency       string        `json:"currency"`
	KeyID          string        `json:"key_id"`
}

// ConfirmInput carries the checkout callback fields.
type ConfirmInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// WebhookEvent is the parsed, signature-verified webhook payload.
type WebhookEvent struct {
	Kind             string
	GatewayOrderID   string
	GatewayPaymentID string
}

// Webhook event kinds the reconciler understands.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

type service struct {
	ordersSvc  orders.Service
	ordersRepo orders.Repository
	tx         txRunner
	inventory  inventory.Repository
	cart       cart.Service
	users      users.Repository
	wallet     wallet.Service
	gateway    Gateway
	cfg        config.RazorpayConfig
	referral   config.ReferralConfig
	logg       *logger.Logger
	metrics    *metrics.PaymentMetrics
}

// NewService builds a payment reconciliation service.
func NewService(
	ordersSvc orders.Service,
	ordersRepo orders.Repository,
	tx txRunner,
	inv inventory.Repository,
	cartSvc cart.Service,
	usersRepo users.Repository,
	walletSvc wallet.Service,
	gateway Gateway,
	cfg config.RazorpayConfig,
	referral config.ReferralConfig,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if ordersSvc == nil {
		return nil, fmt.Errorf("orders service required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if usersRepo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		ordersSvc:  ordersSvc,
		ordersRepo: ordersRepo,
		tx:         tx,
		inventory:  inv,
		cart:       cartSvc,
		users:      usersRepo,
		wallet:     walletSvc,
		gateway:    gateway,
		cfg:        cfg,
		referral:   referral,
		logg:       logg,
		metrics:    paymentMetrics,
	}, nil
}

// CreateGatewayOrder commits a pending local order, then registers the amount
// with the gateway. Stock stays untouched until the payment is confirmed.
func (s *service) CreateGatewayOrder(ctx context.Context, input orders.CreateInput) (*GatewayOrderResult, error) {
	input.PaymentMethod = enums.PaymentMethodRazorpay

	order, err := s.ordersSvc.CreateGatewayPending(ctx, input)
	if err != nil {
		return nil, err
	}

	gatewayOrder, err := s.gateway.CreateOrder(ctx, order.TotalCents, s.cfg.Currency, order.ID.String())
	if err != nil {
		if _, failErr := s.ordersRepo.MarkPaymentFailed(ctx, order.ID); failErr != nil {
			s.logg.Error(ctx, "failed to mark order after gateway rejection", failErr)
		}
		return nil, err
	}

	if err := s.ordersRepo.SetGatewayOrderID(ctx, order.ID, gatewayOrder.ID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach gateway order id")
	}
	order.GatewayOrderID = &gatewayOrder.ID

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "gateway order registered")

	return &GatewayOrderResult{
		Order:          order,
		GatewayOrderID: gatewayOrder.ID,
		AmountCents:    order.TotalCents,
		Currency:       s.cfg.Currency,
		KeyID:          s.cfg.KeyID,
	}, nil
}

// ConfirmCallback settles a payment reported by the checkout callback. The
// signature binds the gateway order and payment ids to the key secret.
func (s *service) ConfirmCallback(ctx context.Context, input ConfirmInput) (*models.Order, error) {
	if input.GatewayOrderID == "" || input.GatewayPaymentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order and payment ids required")
	}
	if !razorpay.VerifyPaymentSignature(input.GatewayOrderID, input.GatewayPaymentID, input.Signature, s.cfg.KeySecret) {
		s.metrics.IncSignatureFailure()
		if order, err := s.ordersRepo.FindByGatewayOrderID(ctx, input.GatewayOrderID); err == nil {
			if _, failErr := s.ordersRepo.MarkPaymentFailed(ctx, order.ID); failErr != nil {
				s.logg.Error(ctx, "failed to record signature failure", failErr)
			}
		}
		return nil, pkgerrors.New(pkgerrors.CodeSignature, "payment signature verification failed")
	}

	return s.confirm(ctx, input.GatewayOrderID, input.GatewayPaymentID, SourceCallback)
}

// HandleWebhookEvent converges webhook deliveries onto the same settlement
// path as the callback. The transport layer has already verified the body
// signature and claimed the event id.
func (s *service) HandleWebhookEvent(ctx context.Context, event WebhookEvent) error {
	switch event.Kind {
	case EventPaymentCaptured:
		_, err := s.confirm(ctx, event.GatewayOrderID, event.GatewayPaymentID, SourceWebhook)
		return err
	case EventPaymentFailed:
		order, err := s.loadByGatewayOrder(ctx, event.GatewayOrderID)
		if err != nil {
			return err
		}
		if _, err := s.ordersRepo.MarkPaymentFailed(ctx, order.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark payment failed")
		}
		return nil
	default:
		// Unknown events are acknowledged so the gateway stops retrying.
		return nil
	}
}

func (s *service) confirm(ctx context.Context, gatewayOrderID, gatewayPaymentID, source string) (*models.Order, error) {
	order, err := s.loadByGatewayOrder(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}

	var (
		settled       bool
		stockConflict bool
		lateCapture   bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.ordersRepo.WithTx(tx)

		ok, err := repo.MarkPaid(ctx, order.ID, &gatewayPaymentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
		}
		if !ok {
			// Either the other delivery channel already settled, or the order
			// was cancelled before the capture landed. A cancelled order stays
			// cancelled; the captured amount is recorded and owed back.
			lateCapture, err = repo.MarkPaidAfterCancel(ctx, order.ID, &gatewayPaymentID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record late capture")
			}
			return nil
		}
		settled = true

		inv := s.inventory.WithTx(tx)
		taken := make([]models.OrderItem, 0, len(order.Items))
		for _, item := range order.Items {
			decremented, err := inv.Decrement(ctx, item.VariantID, item.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
			}
			if !decremented {
				stockConflict = true
				break
			}
			taken = append(taken, item)
		}
		if stockConflict {
			// The money is captured but the goods are gone. Put back the lines
			// already taken, keep the payment settled, fail the order and
			// leave the refund owed.
			for _, item := range taken {
				if err := inv.Restock(ctx, item.VariantID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock oversold order")
				}
			}
			if _, err := repo.UpdateStatus(ctx, order.ID, []enums.OrderStatus{enums.OrderStatusProcessing}, enums.OrderStatusFailed); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fail oversold order")
			}
			return repo.SetRefundStatus(ctx, order.ID, enums.RefundStatusPending)
		}

		if err := s.creditReferralReward(ctx, tx, order); err != nil {
			return err
		}
		return s.cart.ClearTx(ctx, tx, order.UserID)
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	if settled {
		s.metrics.IncConfirmed(source)
		s.logg.Info(ctx, "payment confirmed")
	}
	if stockConflict {
		s.metrics.IncStockConflict()
		s.metrics.IncIntegrityWarning("oversell")
		s.logg.Error(ctx, "payment settled but stock was exhausted, refund owed", nil)
	}
	if lateCapture {
		s.metrics.IncRefundPending()
		s.metrics.IncIntegrityWarning("paid_after_cancel")
		s.logg.Error(ctx, "payment captured for a cancelled order, refund owed", nil)
	}

	updated, err := s.ordersRepo.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload confirmed order")
	}
	return updated, nil
}

// creditReferralReward pays the signup reward to the referrer exactly once,
// on the buyer's first confirmed gateway payment. The flag clear is a
// conditional update so retries and webhook races cannot pay twice.
func (s *service) creditReferralReward(ctx context.Context, tx *gorm.DB, order *models.Order) error {
	if s.referral.RewardCents <= 0 {
		return nil
	}

	usersRepo := s.users.WithTx(tx)
	buyer, err := usersRepo.FindByID(ctx, order.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load buyer")
	}
	if !buyer.ReferralRewardPending || buyer.ReferredBy == nil {
		return nil
	}

	cleared, err := usersRepo.ClearReferralReward(ctx, buyer.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear referral flag")
	}
	if !cleared {
		return nil
	}

	return s.wallet.CreditTx(ctx, tx, wallet.EntryInput{
		UserID:      *buyer.ReferredBy,
		AmountCents: int64(s.referral.RewardCents),
		Description: "referral reward",
		OrderID:     &order.ID,
	})
}

func (s *service) loadByGatewayOrder(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	if gatewayOrderID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway order id required")
	}
	order, err := s.ordersRepo.FindByGatewayOrderID(ctx, gatewayOrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no order for gateway order id")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order by gateway id")
	}
	return order, nil
}
