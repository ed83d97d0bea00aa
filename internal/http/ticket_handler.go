package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/go-storefront/storefront/internal/repository"
)

type TicketHandler struct {
	repo repository.TicketRepository
}

func NewTicketHandler(repo repository.TicketRepository) *TicketHandler {
	return &TicketHandler{repo: repo}
}

func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := uuid.Parse(code); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_code", "invalid ticket code")
		return
	}

	ticket, err := h.repo.GetTicket(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "ticket not found")
			return
		}
		respondError(w, http.StatusInternalServerError, "internal_error", "failed to get ticket")
		return
	}

	respondJSON(w, http.StatusOK, ticket)
}
