package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/yega-app/yega-api/internal/domain/product"
)

type productRequest struct {
	StoreID     string           `json:"storeId"`
	Name        *string          `json:"name"`
	Description *string          `json:"description"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock"`
}

func (req productRequest) input() product.Input {
	return product.Input{
		StoreID:     req.StoreID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	}
}

type productResponse struct {
	ID          string    `json:"id"`
	StoreID     string    `json:"storeId"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toProduct(p *product.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		StoreID:     p.StoreID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.StringFixed(2),
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ListProducts handles GET /catalog/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultPageSize, maxPageSize)
	products, total, err := h.products.List(r.Context(), limit, offset)
	if err != nil {
		fail(w, r, err)
		return
	}

	out := make([]productResponse, len(products))
	for i := range products {
		out[i] = toProduct(&products[i])
	}
	setTotal(w, total)
	writeJSON(w, http.StatusOK, out)
}

// GetProduct handles GET /catalog/products/{productID}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Get(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

// CreateProduct handles POST /catalog/products.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}
	if req.StoreID == "" || req.Name == nil || req.Price == nil {
		writeError(w, http.StatusBadRequest, codeValidation, "storeId, name and price are required")
		return
	}

	p, err := h.products.Create(r.Context(), caller(r).UserID, req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProduct(p))
}

// UpdateProduct handles PUT /catalog/products/{productID}. Omitted fields
// keep their current value.
func (h *Handler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	p, err := h.products.Update(r.Context(), caller(r).UserID, chi.URLParam(r, "productID"), req.input())
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toProduct(p))
}

// DeleteProduct handles DELETE /catalog/products/{productID}.
func (h *Handler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := h.products.Delete(r.Context(), caller(r).UserID, chi.URLParam(r, "productID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
