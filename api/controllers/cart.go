package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tsiki-shop/storefront-backend/api/middleware"
	"github.com/tsiki-shop/storefront-backend/api/responses"
	"github.com/tsiki-shop/storefront-backend/api/validators"
	"github.com/tsiki-shop/storefront-backend/internal/cart"
	pkgerrors "github.com/tsiki-shop/storefront-backend/pkg/errors"
	"github.com/tsiki-shop/storefront-backend/pkg/logger"
)

const maxCouponCodeLength = 64

type setQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,gte=1,lte=10000"`
}

type applyCouponRequest struct {
	Code string `json:"code" validate:"required"`
}

// CartFetch returns the visitor's cart.
func CartFetch(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		return svc.Get(r.Context(), cartID)
	})
}

// CartClear empties the cart and drops the coupon.
func CartClear(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		return svc.Clear(r.Context(), cartID)
	})
}

// CartAddItem merges a catalog product into the cart.
func CartAddItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		var body cart.AddItemInput
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.AddItem(r.Context(), cartID, body)
	})
}

// CartSetQuantity sets the quantity of every line for the product.
func CartSetQuantity(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		var body setQuantityRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.SetQuantity(r.Context(), cartID, productIDParam(r), body.Quantity)
	})
}

func CartIncrement(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		return svc.Increment(r.Context(), cartID, productIDParam(r))
	})
}

func CartDecrement(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		return svc.Decrement(r.Context(), cartID, productIDParam(r))
	})
}

func CartRemoveItem(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		return svc.RemoveItem(r.Context(), cartID, productIDParam(r))
	})
}

// CartApplyCoupon replaces the applied coupon. Unknown codes leave the cart untouched.
func CartApplyCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		var body applyCouponRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.ApplyCoupon(r.Context(), cartID, validators.SanitizeString(body.Code, maxCouponCodeLength))
	})
}

func CartRemoveCoupon(svc cart.Service, logg *logger.Logger) http.HandlerFunc {
	return cartHandler(svc, logg, http.StatusOK, func(r *http.Request, cartID string) (*cart.View, error) {
		return svc.RemoveCoupon(r.Context(), cartID)
	})
}

func cartHandler(svc cart.Service, logg *logger.Logger, status int, run func(*http.Request, string) (*cart.View, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		cartID := middleware.CartIDFromContext(r.Context())
		if cartID == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart context missing"))
			return
		}

		view, err := run(r, cartID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, status, view)
	}
}

func productIDParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "productId"))
}
