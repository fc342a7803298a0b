package controllers

import (
	"net/http"

	"github.com/safanavk/smileshop-backend/api/responses"
	"github.com/safanavk/smileshop-backend/api/validators"
	ordersvc "github.com/safanavk/smileshop-backend/internal/orders"
	returnsvc "github.com/safanavk/smileshop-backend/internal/returns"
	"github.com/safanavk/smileshop-backend/pkg/enums"
	pkgerrors "github.com/safanavk/smileshop-backend/pkg/errors"
	"github.com/safanavk/smileshop-backend/pkg/logger"
	"github.com/safanavk/smileshop-backend/pkg/types"
)

type addressPayload struct {
	HouseNumber string `json:"house_number" validate:"max=32"`
	Street      string `json:"street" validate:"required,max=128"`
	City        string `json:"city" validate:"required,max=64"`
	Zipcode     string `json:"zipcode" validate:"required,max=16"`
	Country     string `json:"country" validate:"required,max=64"`
}

func (a addressPayload) toAddress() types.Address {
	return types.Address{
		HouseNumber: a.HouseNumber,
		Street:      a.Street,
		City:        a.City,
		Zipcode:     a.Zipcode,
		Country:     a.Country,
	}
}

type createOrderRequest struct {
	PaymentMethod string         `json:"payment_method" validate:"required,oneof=cod wallet"`
	Address       addressPayload `json:"address" validate:"required"`
	CouponCode    *string        `json:"coupon_code,omitempty" validate:"omitempty,min=2,max=32"`
}

type returnRequestBody struct {
	Reason string `json:"reason" validate:"required,min=3,max=500"`
}

// OrderCreate commits a cash-on-delivery or wallet order from the cart.
func OrderCreate(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createOrderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		method, err := enums.ParsePaymentMethod(payload.PaymentMethod)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}

		order, err := svc.Create(r.Context(), ordersvc.CreateInput{
			UserID:        userID,
			PaymentMethod: method,
			Address:       payload.Address.toAddress(),
			CouponCode:    payload.CouponCode,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

func OrderList(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		orders, next, err := svc.ListMine(r.Context(), userID, paginationParams(r))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listEnvelope(orders, next))
	}
}

func OrderDetail(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Get(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// OrderCancel stops a pending or processing order, restocking and settling any
// refund owed.
func OrderCancel(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "order service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Cancel(r.Context(), userID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// OrderReturn files a return request for a delivered order.
func OrderReturn(svc returnsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "returns service unavailable"))
			return
		}
		userID, err := userIDFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload returnRequestBody
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		request, err := svc.Request(r.Context(), userID, orderID, payload.Reason)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, request)
	}
}
