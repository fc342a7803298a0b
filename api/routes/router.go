package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/safanavk/smileshop-backend/api/controllers"
	webhookcontrollers "github.com/safanavk/smileshop-backend/api/controllers/webhooks"
	"github.com/safanavk/smileshop-backend/api/middleware"
	"github.com/safanavk/smileshop-backend/internal/cart"
	"github.com/safanavk/smileshop-backend/internal/coupons"
	"github.com/safanavk/smileshop-backend/internal/orders"
	"github.com/safanavk/smileshop-backend/internal/payments"
	"github.com/safanavk/smileshop-backend/internal/returns"
	"github.com/safanavk/smileshop-backend/internal/wallet"
	"github.com/safanavk/smileshop-backend/pkg/config"
	"github.com/safanavk/smileshop-backend/pkg/db"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/redis"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	webhookGuard *redis.IdempotencyStore,
	cartService cart.Service,
	couponService coupons.Service,
	orderService orders.Service,
	paymentService payments.Service,
	walletService wallet.Service,
	returnService returns.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbClient, redisClient))
	})

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/razorpay", webhookcontrollers.RazorpayWebhook(paymentService, webhookGuard, cfg.Razorpay.WebhookSecret, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.CartQuote(cartService, logg))
			r.Post("/items", controllers.CartAddItem(cartService, logg))
			r.Patch("/items/{variantId}", controllers.CartUpdateItem(cartService, logg))
			r.Delete("/items/{variantId}", controllers.CartRemoveItem(cartService, logg))
			r.Post("/coupon", controllers.CouponPreview(cartService, couponService, logg))
			r.Delete("/coupon", controllers.CouponRemove(cartService, logg))
		})

		r.Get("/checkout", controllers.CheckoutSummary(cartService, couponService, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.OrderList(orderService, logg))
			r.Post("/", controllers.OrderCreate(orderService, logg))
			r.Post("/gateway", controllers.GatewayOrderCreate(paymentService, logg))
			r.Get("/{orderId}", controllers.OrderDetail(orderService, logg))
			r.Post("/{orderId}/cancel", controllers.OrderCancel(orderService, logg))
			r.Post("/{orderId}/return", controllers.OrderReturn(returnService, logg))
		})

		r.Post("/payments/confirm", controllers.PaymentConfirm(paymentService, logg))

		r.Route("/wallet", func(r chi.Router) {
			r.Get("/", controllers.WalletBalance(walletService, logg))
			r.Get("/transactions", controllers.WalletTransactions(walletService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole("admin", logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.AdminOrderList(orderService, logg))
			r.Post("/{orderId}/status", controllers.AdminOrderStatus(orderService, logg))
		})
		r.Route("/returns", func(r chi.Router) {
			r.Get("/", controllers.AdminReturnList(returnService, logg))
			r.Post("/{returnId}/approve", controllers.AdminReturnApprove(returnService, logg))
			r.Post("/{returnId}/reject", controllers.AdminReturnReject(returnService, logg))
		})
		r.Post("/coupons", controllers.AdminCouponCreate(couponService, logg))
	})

	return r
}
