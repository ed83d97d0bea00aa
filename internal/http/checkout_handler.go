package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/go-storefront/storefront/internal/domain"
	"github.com/go-storefront/storefront/internal/repository"
	"github.com/go-storefront/storefront/internal/service"
)

type checkoutService interface {
	Checkout(ctx context.Context, userID, purchaser string) (*domain.CheckoutResult, error)
}

type CheckoutHandler struct {
	svc checkoutService
}

func NewCheckoutHandler(svc checkoutService) *CheckoutHandler {
	return &CheckoutHandler{svc: svc}
}

type PurchaseResponseDTO struct {
	Message             string         `json:"message"`
	Ticket              *domain.Ticket `json:"ticket"`
	ProductsUnavailable []string       `json:"productsUnavailable"`
}

// Purchase handles POST /carts/{userId}/purchase. The purchaser identity is
// taken from the authenticated caller, never from the cart's owner.
func (h *CheckoutHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !repository.IsValidID(userID) {
		respondError(w, http.StatusBadRequest, "invalid_user_id", "invalid user ID")
		return
	}

	purchaser := callerEmail(r.Context())
	if purchaser == "" {
		respondError(w, http.StatusUnauthorized, "unauthorized", "missing caller identity")
		return
	}

	result, err := h.svc.Checkout(r.Context(), userID, purchaser)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrCartNotFound):
			respondError(w, http.StatusNotFound, "not_found", "cart not found")
		case errors.Is(err, service.ErrNoFulfillableItems):
			respondError(w, http.StatusBadRequest, "no_fulfillable_items", "no products available for purchase")
		default:
			respondError(w, http.StatusInternalServerError, "internal_error", "error processing purchase")
		}
		return
	}

	respondJSON(w, http.StatusOK, PurchaseResponseDTO{
		Message:             "Purchase successful",
		Ticket:              result.Ticket,
		ProductsUnavailable: result.ProductsUnavailable,
	})
}
