package controllers

import (
	"net/http"

	"github.com/safanavk/smileshop-backend/api/responses"
	"github.com/safanavk/smileshop-backend/api/validators"
	couponsvc "github.com/safanavk/smileshop-backend/internal/coupons"
	ordersvc "github.com/safanavk/smileshop-backend/internal/orders"
	returnsvc "github.com/safanavk/smileshop-backend/internal/returns"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
)

type orderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=processing shipped delivered"`
}

type resolveReturnRequest struct {
	Note *string `json:"note,omitempty" validate:"omitempty,max=500"`
}

type createCouponRequest struct {
	Code             string `json:"code" validate:"required,min=2,max=32"`
	DiscountRate     int    `json:"discount_rate" validate:"required,min=1,max=100"`
	MaxDiscountCents int64  `json:"max_discount_cents" validate:"required,min=1"`
	MinPurchaseCents int64  `json:"min_purchase_cents" validate:"min=0"`
	UsageLimit       *int   `json:"usage_limit,omitempty" validate:"omitempty,min=1"`
	ExpiresAt        *int64 `json:"expires_at,omitempty"`
}

// AdminOrderList pages through every order, newest first.
func AdminOrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orders, next, err := svc.ListAll(r.Context(), paginationParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(orders, next))
	}
}

// AdminOrderStatus applies a fulfillment transition.
func AdminOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload orderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		status, err := enums.ParseOrderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order status"))
			return
		}

		if err := svc.UpdateStatus(r.Context(), orderID, status); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": payload.Status})
	}
}

func AdminReturnList(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		requests, next, err := svc.List(r.Context(), paginationParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(requests, next))
	}
}

// AdminReturnApprove restocks the returned goods and refunds the wallet.
func AdminReturnApprove(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveReturn(svc, logg, true)
}

func AdminReturnReject(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return resolveReturn(svc, logg, false)
}

func resolveReturn(svc returnsvc.Service, logg *logger.Logger, approve bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		requestID, err := pathUUID(r, "returnId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload resolveReturnRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		resolve := svc.Reject
		if approve {
			resolve = svc.Approve
		}
		request, err := resolve(r.Context(), requestID, payload.Note)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, request)
	}
}

// AdminCouponCreate registers a new coupon code.
func AdminCouponCreate(svc couponsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "coupon service unavailable"))
			return
		}

		var payload createCouponRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := couponsvc.CreateInput{
			Code:             payload.Code,
			DiscountRate:     payload.DiscountRate,
			MaxDiscountCents: payload.MaxDiscountCents,
			MinPurchaseCents: payload.MinPurchaseCents,
			UsageLimit:       payload.UsageLimit,
		}
		if payload.ExpiresAt != nil {
			expires := unixTime(*payload.ExpiresAt)
			input.ExpiresAt = &expires
		}

		coupon, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, coupon)
	}
}
