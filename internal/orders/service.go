package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/internal/cart"
	"github.com/safanavk/smileshop-backend/internal/coupons"
	"github.com/safanavk/smileshop-backend/internal/inventory"
	"github.com/safanavk/smileshop-backend/internal/wallet"
	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/metrics"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
	"github.com/safanavk/smileshop-backend/pkg/razorpay"
	"github.com/safanavk/smileshop-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Gateway is the slice of the payment gateway needed to execute refunds.
type Gateway interface {
	FetchPayment(ctx context.Context, paymentID string) (*razorpay.Payment, error)
	Refund(ctx context.Context, paymentID string, amountMinor int64) (*razorpay.Refund, error)
}

// Service owns the order lifecycle: creation from the cart, cancellation with
// restock and refund, and admin fulfillment transitions.
type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Order, error)
	CreateGatewayPending(ctx context.Context, input CreateInput) (*models.Order, error)
	Cancel(ctx context.Context, userID, orderID uuid.UUID) (*CancelResult, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error
	Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	ListAll(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
}

// CreateInput carries everything needed to commit an order from the cart.
type CreateInput struct {
	UserID        uuid.UUID
	PaymentMethod enums.PaymentMethod
	Address       types.Address
	CouponCode    *string
}

// CancelResult reports how the cancellation settled.
type CancelResult struct {
	Order        *models.Order      `json:"order"`
	RefundStatus enums.RefundStatus `json:"refund_status"`
}

type service struct {
	repo      Repository
	tx        txRunner
	cart      cart.Service
	coupons   coupons.Service
	inventory inventory.Repository
	wallet    wallet.Service
	gateway   Gateway
	logg      *logger.Logger
	metrics   *metrics.PaymentMetrics
}

// NewService builds an order service with the required dependencies. The
// gateway may be nil only when gateway refunds are disabled.
func NewService(
	repo Repository,
	tx txRunner,
	cartSvc cart.Service,
	couponSvc coupons.Service,
	inv inventory.Repository,
	walletSvc wallet.Service,
	gateway Gateway,
	logg *logger.Logger,
	paymentMetrics *metrics.PaymentMetrics,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if cartSvc == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if couponSvc == nil {
		return nil, fmt.Errorf("coupon service required")
	}
	if inv == nil {
		return nil, fmt.Errorf("inventory repository required")
	}
	if walletSvc == nil {
		return nil, fmt.Errorf("wallet service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		cart:      cartSvc,
		coupons:   couponSvc,
		inventory: inv,
		wallet:    walletSvc,
		gateway:   gateway,
		logg:      logg,
		metrics:   paymentMetrics,
	}, nil
}

// Create commits a cash-on-delivery or wallet order. Stock decrements, the
// coupon redemption, the wallet debit and the cart clear all succeed or fail
// together.
func (s *service) Create(ctx context.Context, input CreateInput) (*models.Order, error) {
	if input.PaymentMethod == enums.PaymentMethodRazorpay {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "gateway orders are created through the payment flow")
	}
	draft, err := s.buildDraft(ctx, input)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.decrementStock(ctx, tx, draft.lines); err != nil {
			return err
		}

		if input.PaymentMethod == enums.PaymentMethodWallet {
			if err := s.wallet.DebitTx(ctx, tx, wallet.EntryInput{
				UserID:      input.UserID,
				AmountCents: draft.totalCents,
				Description: "order payment",
				OrderID:     &draft.orderID,
			}); err != nil {
				return err
			}
		}

		created, err := s.persistOrder(ctx, tx, input, draft, nil)
		if err != nil {
			return err
		}
		if input.PaymentMethod == enums.PaymentMethodWallet {
			if _, err := s.repo.WithTx(tx).MarkPaid(ctx, created.ID, nil); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle wallet payment")
			}
			created.PaymentStatus = enums.PaymentStatusPaid
			created.OrderStatus = enums.OrderStatusProcessing
		}

		if err := s.cart.ClearTx(ctx, tx, input.UserID); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "order created")
	return order, nil
}

// CreateGatewayPending records a pending order awaiting its gateway order id.
// Stock is not touched and the cart is kept until the payment is confirmed.
func (s *service) CreateGatewayPending(ctx context.Context, input CreateInput) (*models.Order, error) {
	draft, err := s.buildDraft(ctx, input)
	if err != nil {
		return nil, err
	}

	var order *models.Order
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		created, err := s.persistOrder(ctx, tx, input, draft, nil)
		if err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Info(ctx, "gateway order created")
	return order, nil
}

type orderDraft struct {
	orderID       uuid.UUID
	lines         []cart.Line
	subtotalCents int64
	discountCents int64
	totalCents    int64
	couponCode    *string
}

func (s *service) buildDraft(ctx context.Context, input CreateInput) (*orderDraft, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method")
	}
	if input.Address.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	lines, err := s.cart.LoadLines(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}

	var subtotal int64
	for _, line := range lines {
		subtotal += line.UnitPriceCents * int64(line.Quantity)
	}

	draft := &orderDraft{
		orderID:       uuid.New(),
		lines:         lines,
		subtotalCents: subtotal,
		totalCents:    subtotal,
	}

	if input.CouponCode != nil && *input.CouponCode != "" {
		coupon, discount, err := s.coupons.FindEligible(ctx, *input.CouponCode, subtotal, time.Now().UTC())
		if err != nil {
			return nil, err
		}
		draft.discountCents = discount
		draft.totalCents = subtotal - discount
		draft.couponCode = &coupon.Code
	}
	return draft, nil
}

func (s *service) decrementStock(ctx context.Context, tx *gorm.DB, lines []cart.Line) error {
	inv := s.inventory.WithTx(tx)
	for _, line := range lines {
		ok, err := inv.Decrement(ctx, line.VariantID, line.Quantity)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			s.metrics.IncStockConflict()
			return pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{
				"variant_id": line.VariantID,
				"requested":  line.Quantity,
			})
		}
	}
	return nil
}

func (s *service) persistOrder(ctx context.Context, tx *gorm.DB, input CreateInput, draft *orderDraft, gatewayOrderID *string) (*models.Order, error) {
	if draft.couponCode != nil {
		if err := s.coupons.RedeemTx(ctx, tx, *draft.couponCode, time.Now().UTC()); err != nil {
			return nil, err
		}
	}

	order := models.Order{
		ID:              draft.orderID,
		UserID:          input.UserID,
		SubtotalCents:   draft.subtotalCents,
		DiscountCents:   draft.discountCents,
		TotalCents:      draft.totalCents,
		CouponCode:      draft.couponCode,
		ShippingAddress: input.Address,
		PaymentMethod:   input.PaymentMethod,
		PaymentStatus:   enums.PaymentStatusPending,
		OrderStatus:     enums.OrderStatusPending,
		RefundStatus:    enums.RefundStatusNone,
		GatewayOrderID:  gatewayOrderID,
	}

	repo := s.repo.WithTx(tx)
	if err := repo.Create(ctx, &order); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}

	items := make([]models.OrderItem, 0, len(draft.lines))
	for _, line := range draft.lines {
		items = append(items, models.OrderItem{
			ID:             uuid.New(),
			OrderID:        order.ID,
			VariantID:      line.VariantID,
			ProductName:    line.ProductName,
			Size:           line.Size,
			Quantity:       line.Quantity,
			UnitPriceCents: line.UnitPriceCents,
			LineTotalCents: line.UnitPriceCents * int64(line.Quantity),
		})
	}
	if err := repo.CreateItems(ctx, items); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order items")
	}
	order.Items = items
	return &order, nil
}

// Cancel stops a pending or processing order. The status flip and restock
// commit first; money owed back is settled afterwards so a refund failure can
// never resurrect the order.
func (s *service) Cancel(ctx context.Context, userID, orderID uuid.UUID) (*CancelResult, error) {
	order, err := s.loadOwned(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}

	refundOwed := order.PaymentStatus == enums.PaymentStatusPaid
	walletRefund := refundOwed && order.PaymentMethod == enums.PaymentMethodWallet
	now := time.Now().UTC()

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		ok, err := repo.MarkCancelled(ctx, orderID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "cancel order")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").WithDetails(map[string]any{
				"order_status": order.OrderStatus,
			})
		}

		// Stock only moved for orders whose payment flow decremented it:
		// COD and wallet at creation, gateway orders once paid.
		if order.PaymentMethod != enums.PaymentMethodRazorpay || order.PaymentStatus == enums.PaymentStatusPaid {
			inv := s.inventory.WithTx(tx)
			for _, item := range order.Items {
				if err := inv.Restock(ctx, item.VariantID, item.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restock cancelled order")
				}
			}
		}

		if walletRefund {
			if err := s.wallet.CreditTx(ctx, tx, wallet.EntryInput{
				UserID:      userID,
				AmountCents: order.TotalCents,
				Description: "refund for cancelled order",
				OrderID:     &order.ID,
			}); err != nil {
				return err
			}
			return repo.SetRefundStatus(ctx, orderID, enums.RefundStatusRefunded)
		}
		if refundOwed {
			return repo.SetRefundStatus(ctx, orderID, enums.RefundStatusPending)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	ctx = s.logg.WithOrderID(ctx, orderID.String())
	s.logg.Info(ctx, "order cancelled")

	result := &CancelResult{RefundStatus: enums.RefundStatusNone}
	if walletRefund {
		result.RefundStatus = enums.RefundStatusRefunded
	} else if refundOwed {
		result.RefundStatus = s.settleGatewayRefund(ctx, order)
	}

	updated, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload cancelled order")
	}
	result.Order = updated
	return result, nil
}

// settleGatewayRefund runs after the cancellation committed. Failures leave
// the order cancelled with refund_status pending for operator follow-up.
func (s *service) settleGatewayRefund(ctx context.Context, order *models.Order) enums.RefundStatus {
	if s.gateway == nil || order.GatewayPaymentID == nil {
		s.warnRefundPending(ctx, order, fmt.Errorf("no gateway payment reference"))
		return enums.RefundStatusPending
	}

	payment, err := s.gateway.FetchPayment(ctx, *order.GatewayPaymentID)
	if err != nil {
		s.warnRefundPending(ctx, order, err)
		return enums.RefundStatusPending
	}

	if payment.AmountRefunded < payment.Amount {
		if _, err := s.gateway.Refund(ctx, *order.GatewayPaymentID, order.TotalCents); err != nil {
			s.warnRefundPending(ctx, order, err)
			return enums.RefundStatusPending
		}
	}

	if err := s.repo.SetRefundStatus(ctx, order.ID, enums.RefundStatusRefunded); err != nil {
		s.warnRefundPending(ctx, order, err)
		return enums.RefundStatusPending
	}
	return enums.RefundStatusRefunded
}

func (s *service) warnRefundPending(ctx context.Context, order *models.Order, cause error) {
	s.metrics.IncRefundPending()
	s.metrics.IncIntegrityWarning("refund")
	ctx = s.logg.WithOrderID(ctx, order.ID.String())
	s.logg.Error(ctx, "cancellation committed but refund is still owed", cause)
}

// UpdateStatus applies an admin fulfillment transition. Delivering a
// cash-on-delivery order also settles its payment.
func (s *service) UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus) error {
	if !status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order status")
	}

	now := time.Now().UTC()
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		var (
			ok  bool
			err error
		)
		switch status {
		case enums.OrderStatusProcessing:
			ok, err = repo.UpdateStatus(ctx, orderID, []enums.OrderStatus{enums.OrderStatusPending}, status)
		case enums.OrderStatusShipped:
			ok, err = repo.UpdateStatus(ctx, orderID, []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}, status)
		case enums.OrderStatusDelivered:
			ok, err = repo.MarkDelivered(ctx, orderID, now)
		default:
			return pkgerrors.New(pkgerrors.CodeValidation, "unsupported status transition")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order cannot move to requested status")
		}

		if status == enums.OrderStatusDelivered {
			order, err := repo.FindByID(ctx, orderID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load delivered order")
			}
			if order.PaymentMethod == enums.PaymentMethodCOD && order.PaymentStatus == enums.PaymentStatusPending {
				if _, err := repo.SettlePayment(ctx, orderID); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle cod payment")
				}
			}
		}
		return nil
	})
}

func (s *service) Get(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	return s.loadOwned(ctx, userID, orderID)
}

func (s *service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	if userID == uuid.Nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	return s.repo.ListByUser(ctx, userID, params)
}

func (s *service) ListAll(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return s.repo.List(ctx, params)
}

func (s *service) loadOwned(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if userID != uuid.Nil && order.UserID != userID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order does not belong to user")
	}
	return order, nil
}
