package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-storefront/storefront/internal/domain"
	"github.com/go-storefront/storefront/internal/repository"
)

// cartService is the slice of CartService the handler needs; the interface
// lives on the consumer side so tests can swap in a mock.
type cartService interface {
	GetCart(ctx context.Context, userID string) (*domain.Cart, error)
	AddItem(ctx context.Context, userID string, item domain.CartItem) error
	RemoveItem(ctx context.Context, userID string, productID string) error
	ClearCart(ctx context.Context, userID string) error
}

type CartHandler struct {
	svc cartService
}

func NewCartHandler(svc cartService) *CartHandler {
	return &CartHandler{svc: svc}
}

type AddItemRequestDTO struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !repository.IsValidID(userID) {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "invalid user ID")
		return
	}

	cart, err := h.svc.GetCart(r.Context(), userID)
	if err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "cart not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get cart")
		return
	}

	respondJSON(w, http.StatusOK, cart)
}

func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !repository.IsValidID(userID) {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "invalid user ID")
		return
	}

	var req AddItemRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if !repository.IsValidID(req.ProductID) {
		respondError(w, http.StatusBadRequest, "invalid_product_id", "invalid product ID")
		return
	}
	if req.Quantity <= 0 || req.Quantity > 99 {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity must be between 1 and 99")
		return
	}

	err := h.svc.AddItem(r.Context(), userID, domain.CartItem{
		ProductID: req.ProductID,
		Quantity:  req.Quantity,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "product not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to add item to cart")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]string{"message": "item added to cart"})
}

func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	productID := chi.URLParam(r, "productId")
	if !repository.IsValidID(userID) || !repository.IsValidID(productID) {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid user or product ID")
		return
	}

	if err := h.svc.RemoveItem(r.Context(), userID, productID); err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "cart not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to remove item from cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "item removed from cart"})
}

func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !repository.IsValidID(userID) {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "invalid user ID")
		return
	}

	if err := h.svc.ClearCart(r.Context(), userID); err != nil {
		if errors.Is(err, repository.ErrCartNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "cart not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to clear cart")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "cart cleared"})
}
