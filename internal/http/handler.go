package http

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"PhoneStore/internal/feed"
	"PhoneStore/internal/models"
	"PhoneStore/internal/pricing"
	"PhoneStore/internal/processor"
	"PhoneStore/internal/reconcile"
	"PhoneStore/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stripe/stripe-go/v76"
	"go.uber.org/zap"
)

type PaymentMirror interface {
	SyncPayment(ctx context.Context, rec models.PaymentRecord, transition bool) (string, error)
}

type CustomerLinker interface {
	LinkCustomer(ctx context.Context, userID, customerID, email string) error
}

type SessionFetcher interface {
	FetchSession(ctx context.Context, sessionID string) (*stripe.CheckoutSession, error)
}

type Handler struct {
	Orders     services.OrderService
	Catalog    services.CatalogService
	Checkout   services.CheckoutService
	Billing    services.BillingService
	Reconciler *reconcile.Reconciler
	Payments   PaymentMirror
	Customers  CustomerLinker
	Webhook    processor.Webhook
	Sessions   SessionFetcher
	Feed       *feed.Hub
	// InternalToken guards the payment trigger and fulfillment routes.
	// Empty disables the check.
	InternalToken string
	Log           *zap.Logger
}

type checkoutRequest struct {
	Items []pricing.Line `json:"items"`
}

type portalRequest struct {
	Email string `json:"email"`
}

type portalResponse struct {
	URL string `json:"url"`
}

type statusRequest struct {
	Status models.OrderStatus `json:"status"`
}

func userID(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get("X-User-Id"))
}

func (h *Handler) authorizedInternal(r *http.Request) bool {
	if h.InternalToken == "" {
		return true
	}
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.InternalToken)) == 1
}

func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Catalog.ListProducts(r.Context())
	if err != nil {
		h.Log.Error("list products failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list products failed")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.Catalog.GetProduct(r.Context(), chi.URLParam(r, "productId"))
	if err != nil {
		if errors.Is(err, services.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		h.Log.Error("get product failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "get product failed")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) CreateCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	res, err := h.Checkout.Checkout(r.Context(), userID(r), r.Header.Get("X-User-Email"), req.Items)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingUserID):
			writeError(w, http.StatusUnauthorized, "missing user id")
		case errors.Is(err, pricing.ErrEmptyCart):
			writeError(w, http.StatusBadRequest, "cart is empty")
		case errors.Is(err, pricing.ErrInvalidQuantity):
			writeError(w, http.StatusBadRequest, "quantity must be positive")
		case errors.Is(err, pricing.ErrUnknownProduct):
			writeError(w, http.StatusBadRequest, "unknown product")
		case errors.Is(err, pricing.ErrInsufficientStock):
			writeError(w, http.StatusConflict, "insufficient stock")
		case errors.Is(err, services.ErrCheckoutUnavailable):
			writeError(w, http.StatusServiceUnavailable, "checkout unavailable")
		default:
			h.Log.Error("create checkout failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "create checkout failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.Orders.ListOrders(r.Context(), userID(r))
	if err != nil {
		if errors.Is(err, services.ErrMissingUserID) {
			writeError(w, http.StatusUnauthorized, "missing user id")
			return
		}
		h.Log.Error("list orders failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "list orders failed")
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderId")
	if orderID == "" {
		writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.Orders.GetOrder(r.Context(), userID(r), orderID)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingUserID):
			writeError(w, http.StatusUnauthorized, "missing user id")
		case errors.Is(err, services.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		default:
			h.Log.Error("get order failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "get order failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	if !h.authorizedInternal(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	order, err := h.Orders.AdvanceStatus(r.Context(), chi.URLParam(r, "orderId"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, services.ErrInvalidStatus):
			writeError(w, http.StatusBadRequest, "invalid order status")
		case errors.Is(err, services.ErrStatusTransition), errors.Is(err, services.ErrConcurrentUpdate):
			writeError(w, http.StatusConflict, err.Error())
		default:
			h.Log.Error("update order status failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "update order status failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, order)
}

// BillingPortal opens a processor billing portal for the current user. The
// email is only needed until a customer is linked.
func (h *Handler) BillingPortal(w http.ResponseWriter, r *http.Request) {
	var req portalRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json body")
			return
		}
	}
	email := strings.TrimSpace(r.Header.Get("X-User-Email"))
	if email == "" {
		email = strings.TrimSpace(req.Email)
	}

	url, err := h.Billing.OpenPortal(r.Context(), userID(r), email)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingUserID):
			writeError(w, http.StatusUnauthorized, "missing user id")
		case errors.Is(err, services.ErrMissingEmail):
			writeError(w, http.StatusBadRequest, "email is required")
		case errors.Is(err, services.ErrBillingUnavailable):
			writeError(w, http.StatusServiceUnavailable, "billing portal unavailable")
		default:
			h.Log.Error("open billing portal failed", zap.Error(err))
			writeError(w, http.StatusBadGateway, "open billing portal failed")
		}
		return
	}
	writeJSON(w, http.StatusOK, portalResponse{URL: url})
}
