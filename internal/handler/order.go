package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/auth"
	"github.com/vasiliy-maslov/ecommerce-microservices/checkout-service/internal/order"
)

// OrderHandler handles the order placement routes.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{
		svc:      svc,
		validate: validator.New(),
	}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/process_order", h.handleProcessOrder)
	router.Get("/checkout/{order_id}", h.handleCheckout)
	router.Get("/order-history", h.handleOrderHistory)
	router.Get("/order_completed/{order_id}", h.handleOrderCompleted)
}

type processOrderSubmission struct {
	Lines []order.Line `validate:"dive"`
}

// handleProcessOrder creates an order from the submitted cart and redirects
// to its checkout view.
func (h *OrderHandler) handleProcessOrder(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	lines, err := parseOrderForm(r)
	if err != nil {
		log.Warn().Err(err).Msg("handler: invalid order submission")
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.validate.Struct(processOrderSubmission{Lines: lines}); err != nil {
		log.Warn().Err(err).Msg("handler: order submission failed validation")
		respondWithError(w, http.StatusBadRequest, "quantities and prices must be non-negative")
		return
	}

	ord, err := h.svc.PlaceOrder(r.Context(), userID, lines)
	if err != nil {
		respondWithError(w, mapErrorToStatusCode(err), err.Error())
		return
	}

	http.Redirect(w, r, "/orders/checkout/"+ord.ID.String(), http.StatusSeeOther)
}

// handleCheckout returns the confirmation view for one order.
func (h *OrderHandler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.FromString(chi.URLParam(r, "order_id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	view, err := h.svc.GetCheckout(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("handler: failed to build checkout view")
		respondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, view)
}

// handleOrderHistory returns all orders of the caller.
func (h *OrderHandler) handleOrderHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	history, err := h.svc.GetHistory(r.Context(), userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("handler: failed to build order history")
		respondWithError(w, http.StatusInternalServerError, "failed to get order history")
		return
	}

	respondWithJSON(w, http.StatusOK, history)
}

// handleOrderCompleted returns the completion view. A caller who does not
// own the order is sent back to the history page with a warning instead of
// getting an error response.
func (h *OrderHandler) handleOrderCompleted(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	orderID, err := uuid.FromString(chi.URLParam(r, "order_id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	ord, err := h.svc.GetCompletion(r.Context(), orderID, userID)
	if err != nil {
		if errors.Is(err, order.ErrNotOwner) {
			warning := url.Values{"warning": {"You are not authorized to view this order."}}
			http.Redirect(w, r, "/orders/order-history?"+warning.Encode(), http.StatusSeeOther)
			return
		}
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "order not found")
			return
		}
		log.Error().Err(err).Stringer("order_id", orderID).Msg("handler: failed to get completed order")
		respondWithError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	respondWithJSON(w, http.StatusOK, ord)
}
