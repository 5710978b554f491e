package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yega-app/yega-api/internal/domain/store"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

type storeRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type storeResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	OwnerID     string    `json:"ownerId"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toStore(s *store.Store) storeResponse {
	return storeResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		OwnerID:     s.OwnerID,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
	}
}

// ListStores handles GET /stores.
func (h *Handler) ListStores(w http.ResponseWriter, r *http.Request) {
	limit, offset := page(r, defaultPageSize, maxPageSize)
	stores, total, err := h.stores.List(r.Context(), limit, offset)
	if err != nil {
		fail(w, r, err)
		return
	}

	out := make([]storeResponse, len(stores))
	for i := range stores {
		out[i] = toStore(&stores[i])
	}
	setTotal(w, total)
	writeJSON(w, http.StatusOK, out)
}

// GetStore handles GET /stores/{storeID}.
func (h *Handler) GetStore(w http.ResponseWriter, r *http.Request) {
	s, err := h.stores.Get(r.Context(), chi.URLParam(r, "storeID"))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStore(s))
}

// CreateStore handles POST /stores. The caller becomes the owner.
func (h *Handler) CreateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	s, err := h.stores.Create(r.Context(), caller(r).UserID, req.Name, req.Description)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toStore(s))
}

// UpdateStore handles PUT /stores/{storeID}.
func (h *Handler) UpdateStore(w http.ResponseWriter, r *http.Request) {
	var req storeRequest
	if err := decode(r, &req); err != nil {
		fail(w, r, err)
		return
	}

	s, err := h.stores.Update(r.Context(), caller(r).UserID, chi.URLParam(r, "storeID"), req.Name, req.Description)
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toStore(s))
}

// DeleteStore handles DELETE /stores/{storeID}.
func (h *Handler) DeleteStore(w http.ResponseWriter, r *http.Request) {
	if err := h.stores.Delete(r.Context(), caller(r).UserID, chi.URLParam(r, "storeID")); err != nil {
		fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
