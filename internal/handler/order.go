package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yega-app/yega-api/internal/domain/order"
)

const (
	defaultOrdersPageSize = 20
	maxOrdersPageSize     = 50
)

type createOrderRequest struct {
	StoreID string              `json:"storeId"`
	Items   []order.ItemRequest `json:"items"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

type summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type orderItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"productId"`
	Quantity  int     `json:"quantity"`
	Price     string  `json:"price"`
	Product   summary `json:"product"`
}

type orderResponse struct {
	ID        string              `json:"id"`
	UserID    string              `json:"userId"`
	StoreID   string              `json:"storeId"`
	Total     string              `json:"total"`
	Status    order.Status        `json:"status"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	Store     summary             `json:"store"`
	Items     []orderItemResponse `json:"items"`
}

func toOrder(o *order.Order) orderResponse {
	items := make([]orderItemResponse, len(o.Items))
	for i, item := range o.Items {
		items[i] = orderItemResponse{
			ID:        item.ID,
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
			Price:     item.Price.StringFixed(2),
			Product:   summary{ID: item.ProductID, Name: item.ProductName},
		}
	}
	return orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		StoreID:   o.StoreID,
		Total:     o.Total.StringFixed(2),
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
		Store:     summary{ID: o.Store.ID, Name: o.Store.Name},
		Items:     items,
	}
}

// ListOrders handles GET /orders for the caller's own orders.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultOrdersPageSize, maxOrdersPageSize)
	orders, total, err := h.orders.List(r.Context(), caller(r).UserID, limit, offset)
	if err != nil {
		fail(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i := range orders {
		out[i] = toOrder(&orders[i])
	}
	setTotal(w, total)
	writeJSON(w, http.StatusOK, out)
}

// GetOrder handles GET /orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), caller(r).UserID, chi.URLParam(r, "orderID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}

// CreateOrder handles POST /orders.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	o, err := h.orders.Create(r.Context(), order.CreateRequest{
		UserID:  caller(r).UserID,
		StoreID: req.StoreID,
		Items:   req.Items,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrder(o))
}

// UpdateOrderStatus handles PATCH /orders/{orderID}/status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if strings.TrimSpace(req.Status) == "" {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Status must be a non-empty string.")
		return
	}

	// Unknown values are rejected by the service once visibility and
	// permission have been checked.
	status, err := order.ParseStatus(req.Status)
	if err != nil {
		status = order.Status(req.Status)
	}

	o, err := h.orders.UpdateStatus(r.Context(), order.UpdateStatusRequest{
		Caller:  caller(r),
		OrderID: chi.URLParam(r, "orderID"),
		Status:  status,
	})
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrder(o))
}
