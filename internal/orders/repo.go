package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/pkg/db/models"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	"github.com/safanavk/smileshop-backend/pkg/pagination"
)

// Repository persists orders. Status changes are conditional updates keyed on
// the current status so concurrent transitions cannot double-apply.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	CreateItems(ctx context.Context, items []models.OrderItem) error
	FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error)
	ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	List(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus) (bool, error)
	MarkCancelled(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error)
	MarkPaid(ctx context.Context, orderID uuid.UUID, gatewayPaymentID *string) (bool, error)
	MarkPaidAfterCancel(ctx context.Context, orderID uuid.UUID, gatewayPaymentID *string) (bool, error)
	SettlePayment(ctx context.Context, orderID uuid.UUID) (bool, error)
	MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error)
	SetRefundStatus(ctx context.Context, orderID uuid.UUID, status enums.RefundStatus) error
	SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Omit("Items").Create(order).Error
}

func (r *repository) CreateItems(ctx context.Context, items []models.OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) FindByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("gateway_order_id = ?", gatewayOrderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return r.list(ctx, params, func(query *gorm.DB) *gorm.DB {
		return query.Where("user_id = ?", userID)
	})
}

func (r *repository) List(ctx context.Context, params pagination.Params) ([]models.Order, *pagination.Cursor, error) {
	return r.list(ctx, params, nil)
}

func (r *repository) list(ctx context.Context, params pagination.Params, scope func(*gorm.DB) *gorm.DB) ([]models.Order, *pagination.Cursor, error) {
	normalized := pagination.NormalizeLimit(params.Limit)
	limit := pagination.LimitWithBuffer(params.Limit)

	query := r.db.WithContext(ctx).Preload("Items")
	if scope != nil {
		query = scope(query)
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, nil, err
	}
	if cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", cursor.CreatedAt, cursor.ID)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC, id DESC").Limit(limit).Find(&orders).Error; err != nil {
		return nil, nil, err
	}

	if len(orders) > normalized {
		next := orders[normalized]
		orders = orders[:normalized]
		return orders, &pagination.Cursor{CreatedAt: next.CreatedAt, ID: next.ID}, nil
	}
	return orders, nil, nil
}

// UpdateStatus moves the order to a new status only when it currently holds
// one of the expected statuses. It reports false when the guard matched no row.
func (r *repository) UpdateStatus(ctx context.Context, orderID uuid.UUID, from []enums.OrderStatus, to enums.OrderStatus) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status IN ?", orderID, from).
		UpdateColumn("order_status", to)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkCancelled transitions a still-cancellable order to cancelled.
func (r *repository) MarkCancelled(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status IN ?", orderID, []enums.OrderStatus{enums.OrderStatusPending, enums.OrderStatusProcessing}).
		UpdateColumns(map[string]any{
			"order_status": enums.OrderStatusCancelled,
			"canceled_at":  now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkDelivered completes a shipped order.
func (r *repository) MarkDelivered(ctx context.Context, orderID uuid.UUID, now time.Time) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", orderID, enums.OrderStatusShipped).
		UpdateColumns(map[string]any{
			"order_status": enums.OrderStatusDelivered,
			"delivered_at": now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaid settles a pending payment exactly once and moves the order into
// fulfillment. Only pending orders qualify; cancelled and failed orders never
// re-enter processing.
func (r *repository) MarkPaid(ctx context.Context, orderID uuid.UUID, gatewayPaymentID *string) (bool, error) {
	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"order_status":   enums.OrderStatusProcessing,
	}
	if gatewayPaymentID != nil {
		updates["gateway_payment_id"] = *gatewayPaymentID
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND order_status = ?",
			orderID, enums.PaymentStatusPending, enums.OrderStatusPending).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaidAfterCancel records a capture that arrived after the order was
// cancelled. The cancellation stands and the captured amount is owed back.
func (r *repository) MarkPaidAfterCancel(ctx context.Context, orderID uuid.UUID, gatewayPaymentID *string) (bool, error) {
	updates := map[string]any{
		"payment_status": enums.PaymentStatusPaid,
		"refund_status":  enums.RefundStatusPending,
	}
	if gatewayPaymentID != nil {
		updates["gateway_payment_id"] = *gatewayPaymentID
	}
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND order_status = ?",
			orderID, enums.PaymentStatusPending, enums.OrderStatusCancelled).
		UpdateColumns(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SettlePayment flips only the payment status, leaving the fulfillment status
// alone. Used when a delivered cash-on-delivery order collects its payment.
func (r *repository) SettlePayment(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", orderID, enums.PaymentStatusPending).
		UpdateColumn("payment_status", enums.PaymentStatusPaid)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// MarkPaymentFailed records a failed settlement while both the payment and
// the order are still pending. Cancelled orders keep their status.
func (r *repository) MarkPaymentFailed(ctx context.Context, orderID uuid.UUID) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ? AND order_status = ?",
			orderID, enums.PaymentStatusPending, enums.OrderStatusPending).
		UpdateColumns(map[string]any{
			"payment_status": enums.PaymentStatusFailed,
			"order_status":   enums.OrderStatusFailed,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) SetRefundStatus(ctx context.Context, orderID uuid.UUID, status enums.RefundStatus) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("refund_status", status).Error
}

func (r *repository) SetGatewayOrderID(ctx context.Context, orderID uuid.UUID, gatewayOrderID string) error {
	return r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ?", orderID).
		UpdateColumn("gateway_order_id", gatewayOrderID).Error
}
