package controllers

import (
	"net/http"

	"github.com/safanavk/smileshop-backend/api/responses"
	"github.com/safanavk/smileshop-backend/api/validators"
	ordersvc "github.com/safanavk/smileshop-backend/internal/orders"
	paymentsvc "github.com/safanavk/smileshop-backend/internal/payments"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
)

type gatewayOrderRequest struct {
	Address    addressPayload `json:"address" validate:"required"`
	CouponCode *string        `json:"coupon_code,omitempty" validate:"omitempty,min=2,max=32"`
}

type confirmPaymentRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" validate:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" validate:"required"`
	RazorpaySignature string `json:"razorpay_signature" validate:"required"`
}

// GatewayOrderCreate opens a gateway order for the cart. Stock and the cart
// are left untouched until the payment is confirmed.
func GatewayOrderCreate(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload gatewayOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CreateGatewayOrder(r.Context(), ordersvc.CreateInput{
			UserID:        userID,
			PaymentMethod: enums.PaymentMethodRazorpay,
			Address:       payload.Address.toAddress(),
			CouponCode:    payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentConfirm settles a payment reported by the checkout callback.
func PaymentConfirm(svc paymentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payment service unavailable"))
			return
		}
		if _, err := userIDFromContext(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmCallback(r.Context(), paymentsvc.ConfirmInput{
			GatewayOrderID:   payload.RazorpayOrderID,
			GatewayPaymentID: payload.RazorpayPaymentID,
			Signature:        payload.RazorpaySignature,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}
