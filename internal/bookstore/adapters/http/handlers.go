package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/dejobratic/bookstore/internal/bookstore/app"
	"github.com/dejobratic/bookstore/internal/bookstore/domain"
	"github.com/dejobratic/bookstore/internal/bookstore/ports"
)

// Handler exposes HTTP endpoints for cart and catalog operations.
type Handler struct {
	service *app.Service
	now     func() time.Time
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{
		service: service,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Register binds the handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/carts/staging", h.stagingCart)
	mux.HandleFunc("POST /v1/carts/items", h.addItemToCart)
	mux.HandleFunc("PUT /v1/carts/{cartID}/items/{itemID}", h.updateItemInCart)
	mux.HandleFunc("GET /v1/carts/{cartID}", h.getCart)
	mux.HandleFunc("POST /v1/carts/{cartID}/submit", h.submitOrder)
	mux.HandleFunc("GET /v1/books", h.searchBooks)
	mux.HandleFunc("GET /v1/books/{id}", h.getBook)
	mux.HandleFunc("POST /v1/books", h.addBook)
	mux.HandleFunc("POST /v1/maintenance", h.runMaintenance)
}

func (h *Handler) stagingCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"cart_id": h.service.StagingCartID()})
}

func (h *Handler) addItemToCart(w http.ResponseWriter, r *http.Request) {
	var payload app.AddItemToCartInput
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	order, err := h.service.AddItemToCart(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) updateItemInCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathInt(w, r, "cartID")
	if !ok {
		return
	}
	itemID, ok := pathInt(w, r, "itemID")
	if !ok {
		return
	}

	var payload updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	order, err := h.service.UpdateItemInCart(r.Context(), domain.CartID(cartID), itemID, payload.Quantity)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathInt(w, r, "cartID")
	if !ok {
		return
	}
	cart := h.service.GetItemsInCart(r.Context(), domain.CartID(cartID))
	writeJSON(w, http.StatusOK, map[string]any{"cart": cart})
}

func (h *Handler) submitOrder(w http.ResponseWriter, r *http.Request) {
	cartID, ok := pathInt(w, r, "cartID")
	if !ok {
		return
	}
	order, err := h.service.SubmitOrder(r.Context(), domain.CartID(cartID))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) searchBooks(w http.ResponseWriter, r *http.Request) {
	var title *string
	if values, ok := r.URL.Query()["title"]; ok && len(values) > 0 {
		title = &values[0]
	}

	books, err := h.service.GetItemByTitle(r.Context(), title)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"books": books})
}

func (h *Handler) getBook(w http.ResponseWriter, r *http.Request) {
	id, ok := pathInt(w, r, "id")
	if !ok {
		return
	}
	book, err := h.service.GetItemByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"book": book})
}

func (h *Handler) addBook(w http.ResponseWriter, r *http.Request) {
	var payload domain.Book
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	book, err := h.service.AddNewItemToInventory(r.Context(), payload)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"book": book})
}

func (h *Handler) runMaintenance(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.RunMaintenance(r.Context(), h.now())
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{"report": report, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"report": report})
}

func pathInt(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	value, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+name)
		return 0, false
	}
	return value, true
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ports.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ports.ErrConflict), errors.Is(err, ports.ErrEmptyCart):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
