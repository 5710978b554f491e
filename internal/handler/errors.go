package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/yega-app/yega-api/internal/domain/auth"
	"github.com/yega-app/yega-api/internal/domain/order"
	"github.com/yega-app/yega-api/internal/domain/payment"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
	"github.com/yega-app/yega-api/internal/domain/user"
)

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps a domain error to its HTTP representation. Unknown errors
// yield ok == false.
func classify(err error) (e apiError, ok bool) {
	var (
		qtyErr        *order.InvalidQuantityError
		statusErr     *order.InvalidStatusError
		storeErr      *order.StoreNotFoundError
		productsErr   *order.InvalidProductsError
		stockErr      *order.InsufficientStockError
		transitionErr *order.InvalidTransitionError
	)
	switch {
	// Orders.
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrStoreRequired),
		errors.As(err, &qtyErr),
		errors.As(err, &statusErr):
		return apiError{http.StatusBadRequest, codeBadRequest, err.Error()}, true
	case errors.As(err, &storeErr):
		return apiError{http.StatusNotFound, "STORE_NOT_FOUND", storeErr.Error()}, true
	case errors.As(err, &productsErr):
		return apiError{http.StatusBadRequest, "INVALID_PRODUCTS", productsErr.Error()}, true
	case errors.As(err, &stockErr):
		return apiError{http.StatusBadRequest, "INSUFFICIENT_STOCK", stockErr.Error()}, true
	case errors.As(err, &transitionErr):
		return apiError{http.StatusBadRequest, "INVALID_STATUS_TRANSITION", transitionErr.Error()}, true
	case errors.Is(err, order.ErrNotFound):
		return apiError{http.StatusNotFound, codeNotFound, "Order not found"}, true
	case errors.Is(err, order.ErrForbidden):
		return apiError{http.StatusForbidden, codeForbidden, order.ErrForbidden.Error()}, true

	// Stores and catalog.
	case errors.Is(err, store.ErrNotFound):
		return apiError{http.StatusNotFound, "STORE_NOT_FOUND", "Store not found"}, true
	case errors.Is(err, store.ErrForbidden),
		errors.Is(err, product.ErrForbidden),
		errors.Is(err, product.ErrStoreNotOwned):
		return apiError{http.StatusForbidden, codeForbidden, err.Error()}, true
	case errors.Is(err, store.ErrInUse):
		return apiError{http.StatusConflict, codeConflict, store.ErrInUse.Error()}, true
	case errors.Is(err, product.ErrNotFound):
		return apiError{http.StatusNotFound, codeNotFound, "Product not found"}, true
	case errors.Is(err, store.ErrNameMissing),
		errors.Is(err, product.ErrNameMissing),
		errors.Is(err, product.ErrNegativePrice),
		errors.Is(err, product.ErrNegativeStock):
		return apiError{http.StatusBadRequest, codeValidation, err.Error()}, true

	// Accounts.
	case errors.Is(err, user.ErrMissingFields):
		return apiError{http.StatusBadRequest, codeValidation, "Missing required fields"}, true
	case errors.Is(err, auth.ErrInvalidRole),
		errors.Is(err, user.ErrPasswordTooLong):
		return apiError{http.StatusBadRequest, codeValidation, err.Error()}, true
	case errors.Is(err, user.ErrEmailTaken):
		return apiError{http.StatusBadRequest, "EMAIL_TAKEN", "A user with this email already exists."}, true
	case errors.Is(err, user.ErrInvalidCredentials):
		return apiError{http.StatusUnauthorized, "AUTH_INVALID", "Invalid credentials"}, true
	case errors.Is(err, user.ErrRefreshTokenRequired):
		return apiError{http.StatusBadRequest, "REFRESH_TOKEN_REQUIRED", "Refresh token is required"}, true
	case errors.Is(err, user.ErrInvalidRefreshToken):
		return apiError{http.StatusUnauthorized, "INVALID_REFRESH_TOKEN", "Invalid or expired refresh token"}, true

	// Payments.
	case errors.Is(err, payment.ErrOrderRequired):
		return apiError{http.StatusBadRequest, codeValidation, err.Error()}, true
	case errors.Is(err, payment.ErrInvalidAmount):
		return apiError{http.StatusBadRequest, "INVALID_ORDER_TOTAL", err.Error()}, true
	case errors.Is(err, payment.ErrInvalidSignature):
		return apiError{http.StatusBadRequest, "WEBHOOK_ERROR", err.Error()}, true

	case errors.Is(err, errBadJSON):
		return apiError{http.StatusBadRequest, codeBadRequest, errBadJSON.Error()}, true
	}
	return apiError{}, false
}

// fail writes the response for err. Unclassified errors are logged and
// reported as an opaque internal error.
func fail(w http.ResponseWriter, r *http.Request, err error) {
	if e, ok := classify(err); ok {
		writeError(w, e.status, e.code, e.message)
		return
	}
	zctx.From(r.Context()).Error("Request failed",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Error(err),
	)
	writeError(w, http.StatusInternalServerError, codeInternal, "Internal server error")
}
