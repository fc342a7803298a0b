package payments

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/safanavk/smileshop-backend/internal/cart"
	"github.com/safanavk/smileshop-backend/internal/coupons"
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
	"github.com/safanavk/smileshop-backend/pkg/types"
)

type sqliteTxRunner struct {
	db *gorm.DB
}

func (r sqliteTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit().Error
}

type fakeGateway struct {
	createOrderFn func(ctx context.Context, amountMinor int64, currency, receipt string) (*razorpay.Order, error)
	created       []int64
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (*razorpay.Order, error) {
	g.created = append(g.created, amountMinor)
	if g.createOrderFn != nil {
		return g.createOrderFn(ctx, amountMinor, currency, receipt)
	}
	return &razorpay.Order{
		ID:       "order_" + uuid.NewString()[:12],
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
		Status:   "created",
	}, nil
}

var reconcileDDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  phone TEXT,
  role TEXT NOT NULL DEFAULT 'customer',
  blocked INTEGER NOT NULL DEFAULT 0,
  referral_code TEXT NOT NULL UNIQUE,
  referred_by TEXT,
  referral_reward_pending INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS categories (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  description TEXT,
  listed INTEGER NOT NULL DEFAULT 1,
  offer_percent INTEGER NOT NULL DEFAULT 0,
  offer_active INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS products (
  id TEXT PRIMARY KEY,
  category_id TEXT NOT NULL,
  name TEXT NOT NULL,
  description TEXT,
  price_cents INTEGER NOT NULL,
  offer_percent INTEGER NOT NULL DEFAULT 0,
  offer_active INTEGER NOT NULL DEFAULT 0,
  offer_price_cents INTEGER NOT NULL DEFAULT 0,
  listed INTEGER NOT NULL DEFAULT 1,
  image_urls TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS product_variants (
  id TEXT PRIMARY KEY,
  product_id TEXT NOT NULL,
  size TEXT NOT NULL,
  stock INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS carts (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS cart_items (
  id TEXT PRIMARY KEY,
  cart_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS coupons (
  id TEXT PRIMARY KEY,
  code TEXT NOT NULL UNIQUE,
  discount_rate INTEGER NOT NULL,
  max_discount_cents INTEGER NOT NULL,
  min_purchase_cents INTEGER NOT NULL DEFAULT 0,
  usage_limit INTEGER,
  used_by INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'active',
  expires_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS orders (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  subtotal_cents INTEGER NOT NULL,
  discount_cents INTEGER NOT NULL DEFAULT 0,
  total_cents INTEGER NOT NULL,
  coupon_code TEXT,
  shipping_address TEXT,
  payment_method TEXT NOT NULL,
  payment_status TEXT NOT NULL DEFAULT 'pending',
  order_status TEXT NOT NULL DEFAULT 'pending',
  refund_status TEXT NOT NULL DEFAULT 'none',
  gateway_order_id TEXT UNIQUE,
  gateway_payment_id TEXT,
  canceled_at DATETIME,
  delivered_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS order_items (
  id TEXT PRIMARY KEY,
  order_id TEXT NOT NULL,
  variant_id TEXT NOT NULL,
  product_name TEXT NOT NULL,
  size TEXT NOT NULL,
  quantity INTEGER NOT NULL,
  unit_price_cents INTEGER NOT NULL,
  line_total_cents INTEGER NOT NULL,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS wallets (
  id TEXT PRIMARY KEY,
  user_id TEXT NOT NULL,
  balance_cents INTEGER NOT NULL DEFAULT 0,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE IF NOT EXISTS wallet_transactions (
  id TEXT PRIMARY KEY,
  wallet_id TEXT NOT NULL,
  type TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  description TEXT NOT NULL,
  order_id TEXT,
  created_at DATETIME
);`,
}

const (
	testKeySecret   = "test_key_secret"
	testRewardCents = 15000
)

type paymentFixture struct {
	db        *gorm.DB
	svc       Service
	ordersSvc orders.Service
	cartSvc   cart.Service
	walletSvc wallet.Service
	invRepo   inventory.Repository
	gateway   *fakeGateway
	buyerID   uuid.UUID
	variantID uuid.UUID
}

func setupPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:payments_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	for _, ddl := range reconcileDDL {
		require.NoError(t, db.Exec(ddl).Error)
	}

	tx := sqliteTxRunner{db: db}
	invRepo := inventory.NewRepository(db)
	ordersRepo := orders.NewRepository(db)
	usersRepo := users.NewRepository(db)
	cartSvc, err := cart.NewService(cart.NewRepository(db), invRepo)
	require.NoError(t, err)
	couponSvc, err := coupons.NewService(coupons.NewRepository(db))
	require.NoError(t, err)
	walletSvc, err := wallet.NewService(wallet.NewRepository(db), tx)
	require.NoError(t, err)

	logg := logger.New(logger.Options{ServiceName: "payments-test", Output: io.Discard})
	ordersSvc, err := orders.NewService(ordersRepo, tx, cartSvc, couponSvc, invRepo, walletSvc, nil, logg, metrics.NewPaymentMetrics(nil))
	require.NoError(t, err)

	gateway := &fakeGateway{}
	svc, err := NewService(
		ordersSvc,
		ordersRepo,
		tx,
		invRepo,
		cartSvc,
		usersRepo,
		walletSvc,
		gateway,
		config.RazorpayConfig{KeyID: "rzp_test_key", KeySecret: testKeySecret, Currency: "INR"},
		config.ReferralConfig{RewardCents: testRewardCents},
		logg,
		metrics.NewPaymentMetrics(nil),
	)
	require.NoError(t, err)

	f := &paymentFixture{
		db:        db,
		svc:       svc,
		ordersSvc: ordersSvc,
		cartSvc:   cartSvc,
		walletSvc: walletSvc,
		invRepo:   invRepo,
		gateway:   gateway,
	}
	f.buyerID = f.seedUser(t, nil, false)
	f.variantID = f.seedCatalog(t, 10000, 10)
	return f
}

func (f *paymentFixture) seedUser(t *testing.T, referredBy *uuid.UUID, rewardPending bool) uuid.UUID {
	t.Helper()
	user := models.User{
		ID:                    uuid.New(),
		Name:                  "Buyer",
		Email:                 uuid.NewString() + "@example.com",
		Role:                  enums.UserRoleCustomer,
		ReferralCode:          uuid.NewString()[:8],
		ReferredBy:            referredBy,
		ReferralRewardPending: rewardPending,
	}
	require.NoError(t, f.db.Create(&user).Error)
	return user.ID
}

func (f *paymentFixture) seedCatalog(t *testing.T, priceCents int64, stock int) uuid.UUID {
	t.Helper()

	category := models.Category{ID: uuid.New(), Name: "cat-" + uuid.NewString(), Listed: true}
	require.NoError(t, f.db.Create(&category).Error)

	product := models.Product{
		ID:         uuid.New(),
		CategoryID: category.ID,
		Name:       "product-" + uuid.NewString(),
		PriceCents: priceCents,
		Listed:     true,
	}
	require.NoError(t, f.db.Create(&product).Error)

	variant := models.ProductVariant{ID: uuid.New(), ProductID: product.ID, Size: "L", Stock: stock}
	require.NoError(t, f.db.Create(&variant).Error)
	return variant.ID
}

func (f *paymentFixture) stock(t *testing.T, variantID uuid.UUID) int {
	t.Helper()
	variant, err := f.invRepo.FindVariant(context.Background(), variantID)
	require.NoError(t, err)
	return variant.Stock
}

func (f *paymentFixture) openGatewayOrder(t *testing.T, userID uuid.UUID, qty int) *GatewayOrderResult {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.cartSvc.AddItem(ctx, userID, f.variantID, qty))

	result, err := f.svc.CreateGatewayOrder(ctx, orders.CreateInput{
		UserID: userID,
		Address: types.Address{
			HouseNumber: "7",
			Street:      "MG Road",
			City:        "Bengaluru",
			Zipcode:     "560001",
			Country:     "IN",
		},
	})
	require.NoError(t, err)
	return result
}

func signPayment(gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, []byte(testKeySecret))
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestCreateGatewayOrder_LeavesStockAndCartUntouched(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	result := f.openGatewayOrder(t, f.buyerID, 3)

	require.Equal(t, enums.PaymentStatusPending, result.Order.PaymentStatus)
	require.Equal(t, int64(30000), result.AmountCents)
	require.Equal(t, "INR", result.Currency)
	require.Equal(t, "rzp_test_key", result.KeyID)
	require.NotEmpty(t, result.GatewayOrderID)
	require.Equal(t, []int64{30000}, f.gateway.created)

	require.Equal(t, 10, f.stock(t, f.variantID), "stock must not move before payment confirmation")

	lines, err := f.cartSvc.LoadLines(context.Background(), f.buyerID)
	require.NoError(t, err)
	require.Len(t, lines, 1, "cart must survive until the payment settles")
}

func TestCreateGatewayOrder_GatewayFailureFailsOrder(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	f.gateway.createOrderFn = func(context.Context, int64, string, string) (*razorpay.Order, error) {
		return nil, fmt.Errorf("gateway unavailable")
	}
	require.NoError(t, f.cartSvc.AddItem(ctx, f.buyerID, f.variantID, 1))

	_, err := f.svc.CreateGatewayOrder(ctx, orders.CreateInput{
		UserID:  f.buyerID,
		Address: types.Address{Street: "MG Road", City: "Bengaluru", Zipcode: "560001", Country: "IN"},
	})
	require.Error(t, err)

	var order models.Order
	require.NoError(t, f.db.Where("user_id = ?", f.buyerID).First(&order).Error)
	require.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	require.Equal(t, enums.OrderStatusFailed, order.OrderStatus)
}

func TestConfirmCallback_SettlesOnce(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 3)
	paymentID := "pay_" + uuid.NewString()[:12]

	order, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	require.Equal(t, enums.OrderStatusProcessing, order.OrderStatus)
	require.NotNil(t, order.GatewayPaymentID)
	require.Equal(t, paymentID, *order.GatewayPaymentID)

	require.Equal(t, 7, f.stock(t, f.variantID))

	lines, err := f.cartSvc.LoadLines(ctx, f.buyerID)
	require.NoError(t, err)
	require.Empty(t, lines, "cart must be cleared once the payment settles")
}

func TestConfirm_CallbackAndWebhookConverge(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 2)
	paymentID := "pay_" + uuid.NewString()[:12]

	_, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)
	require.Equal(t, 8, f.stock(t, f.variantID))

	// The webhook for the same payment lands afterwards. It must be a no-op.
	err = f.svc.HandleWebhookEvent(ctx, WebhookEvent{
		Kind:             EventPaymentCaptured,
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
	})
	require.NoError(t, err)
	require.Equal(t, 8, f.stock(t, f.variantID), "duplicate confirmation must not decrement stock again")
}

func TestConfirmCallback_BadSignatureFailsPayment(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 1)

	_, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: "pay_forged",
		Signature:        "deadbeef",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	require.Equal(t, pkgerrors.CodeSignature, typed.Code())

	var order models.Order
	require.NoError(t, f.db.Where("id = ?", result.Order.ID).First(&order).Error)
	require.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	require.Equal(t, 10, f.stock(t, f.variantID))
}

func TestHandleWebhookEvent_PaymentFailed(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 1)

	err := f.svc.HandleWebhookEvent(ctx, WebhookEvent{
		Kind:           EventPaymentFailed,
		GatewayOrderID: result.GatewayOrderID,
	})
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, f.db.Where("id = ?", result.Order.ID).First(&order).Error)
	require.Equal(t, enums.PaymentStatusFailed, order.PaymentStatus)
	require.Equal(t, enums.OrderStatusFailed, order.OrderStatus)
}

func TestHandleWebhookEvent_PaymentFailedKeepsCancelledOrder(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 1)

	_, err := f.ordersSvc.Cancel(ctx, f.buyerID, result.Order.ID)
	require.NoError(t, err)

	err = f.svc.HandleWebhookEvent(ctx, WebhookEvent{
		Kind:           EventPaymentFailed,
		GatewayOrderID: result.GatewayOrderID,
	})
	require.NoError(t, err)

	var order models.Order
	require.NoError(t, f.db.Where("id = ?", result.Order.ID).First(&order).Error)
	require.Equal(t, enums.OrderStatusCancelled, order.OrderStatus)
	require.Equal(t, enums.PaymentStatusPending, order.PaymentStatus)
}

func TestHandleWebhookEvent_UnknownKindIsAcknowledged(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	err := f.svc.HandleWebhookEvent(context.Background(), WebhookEvent{Kind: "refund.processed"})
	require.NoError(t, err)
}

func TestConfirm_OversellKeepsPaymentAndOwesRefund(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 3)

	// Stock drains between order creation and payment confirmation.
	require.NoError(t, f.invRepo.SetStock(ctx, f.variantID, 1))

	paymentID := "pay_" + uuid.NewString()[:12]
	order, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus, "captured money stays recorded as paid")
	require.Equal(t, enums.OrderStatusFailed, order.OrderStatus)
	require.Equal(t, enums.RefundStatusPending, order.RefundStatus)
}

func TestConfirm_OversellRestocksEarlierLines(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	scarce := f.seedCatalog(t, 4000, 1)

	require.NoError(t, f.cartSvc.AddItem(ctx, f.buyerID, f.variantID, 2))
	require.NoError(t, f.cartSvc.AddItem(ctx, f.buyerID, scarce, 1))

	result, err := f.svc.CreateGatewayOrder(ctx, orders.CreateInput{
		UserID: f.buyerID,
		Address: types.Address{
			HouseNumber: "7",
			Street:      "MG Road",
			City:        "Bengaluru",
			Zipcode:     "560001",
			Country:     "IN",
		},
	})
	require.NoError(t, err)

	// The scarce line drains between order creation and confirmation.
	require.NoError(t, f.invRepo.SetStock(ctx, scarce, 0))

	paymentID := "pay_" + uuid.NewString()[:12]
	order, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)
	require.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus)
	require.Equal(t, enums.OrderStatusFailed, order.OrderStatus)
	require.Equal(t, enums.RefundStatusPending, order.RefundStatus)

	require.Equal(t, 10, f.stock(t, f.variantID), "lines taken before the conflict must be put back")
	require.Equal(t, 0, f.stock(t, scarce))
}

func TestConfirm_CancelledOrderStaysCancelled(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	result := f.openGatewayOrder(t, f.buyerID, 2)

	cancelled, err := f.ordersSvc.Cancel(ctx, f.buyerID, result.Order.ID)
	require.NoError(t, err)
	require.Equal(t, enums.OrderStatusCancelled, cancelled.Order.OrderStatus)

	paymentID := "pay_" + uuid.NewString()[:12]
	order, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)

	require.Equal(t, enums.OrderStatusCancelled, order.OrderStatus, "a late capture must not resurrect the order")
	require.Equal(t, enums.PaymentStatusPaid, order.PaymentStatus, "the captured amount is recorded")
	require.Equal(t, enums.RefundStatusPending, order.RefundStatus, "the captured amount is owed back")
	require.NotNil(t, order.GatewayPaymentID)
	require.Equal(t, paymentID, *order.GatewayPaymentID)

	require.Equal(t, 10, f.stock(t, f.variantID), "confirm must not take stock for a cancelled order")

	lines, err := f.cartSvc.LoadLines(ctx, f.buyerID)
	require.NoError(t, err)
	require.Len(t, lines, 1, "the cart is only cleared when the order is fulfilled")
}

func TestConfirm_ReferralRewardPaidToReferrerOnce(t *testing.T) {
	t.Parallel()

	f := setupPaymentFixture(t)
	ctx := context.Background()
	referrerID := f.seedUser(t, nil, false)
	buyerID := f.seedUser(t, &referrerID, true)

	result := f.openGatewayOrder(t, buyerID, 1)
	paymentID := "pay_" + uuid.NewString()[:12]
	_, err := f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)

	balance, err := f.walletSvc.GetBalance(ctx, referrerID)
	require.NoError(t, err)
	require.Equal(t, int64(testRewardCents), balance)

	buyerBalance, err := f.walletSvc.GetBalance(ctx, buyerID)
	require.NoError(t, err)
	require.Zero(t, buyerBalance, "the reward goes to the referrer, not the buyer")

	// A second confirmed order must not pay the reward again.
	result = f.openGatewayOrder(t, buyerID, 1)
	paymentID = "pay_" + uuid.NewString()[:12]
	_, err = f.svc.ConfirmCallback(ctx, ConfirmInput{
		GatewayOrderID:   result.GatewayOrderID,
		GatewayPaymentID: paymentID,
		Signature:        signPayment(result.GatewayOrderID, paymentID),
	})
	require.NoError(t, err)

	balance, err = f.walletSvc.GetBalance(ctx, referrerID)
	require.NoError(t, err)
	require.Equal(t, int64(testRewardCents), balance, "reward must be paid exactly once")
}

func TestParseWebhook(t *testing.T) {
	t.Parallel()

	t.Run("captured event", func(t *testing.T) {
		t.Parallel()
		body := []byte(`{
  "event": "payment.captured",
  "payload": {
    "payment": {
      "entity": {
        "id": "pay_MkHmPZHubXuYTM",
        "order_id": "order_MkHk1vDpdtqpzy"
      }
    }
  }
}`)
		event, err := ParseWebhook(body)
		require.NoError(t, err)
		require.Equal(t, EventPaymentCaptured, event.Kind)
		require.Equal(t, "order_MkHk1vDpdtqpzy", event.GatewayOrderID)
		require.Equal(t, "pay_MkHmPZHubXuYTM", event.GatewayPaymentID)
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()
		_, err := ParseWebhook([]byte("{not json"))
		require.Error(t, err)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		require.Equal(t, pkgerrors.CodeValidation, typed.Code())
	})

	t.Run("missing event type", func(t *testing.T) {
		t.Parallel()
		_, err := ParseWebhook([]byte(`{"payload":{}}`))
		require.Error(t, err)
	})
}
