package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion/publisher"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/internal/ingestion/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/storefront-search/pkg/logger"
)

// maxBodyBytes bounds add-item request bodies.
const maxBodyBytes = 64 << 10

type Handler struct {
	publisher *publisher.Publisher
	logger    *slog.Logger
}

func New(pub *publisher.Publisher) *Handler {
	return &Handler{
		publisher: pub,
		logger:    logger.WithComponent("catalog-handler"),
	}
}

// Register mounts the admin item routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/items", h.Create)
	mux.HandleFunc("GET /api/v1/items", h.List)
	mux.HandleFunc("GET /api/v1/items/{id}", h.Get)
	mux.HandleFunc("DELETE /api/v1/items/{id}", h.Delete)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	var req ingestion.ItemRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := validator.ValidateItemRequest(&req); err != nil {
		var validationErr *validator.ValidationError
		if errors.As(err, &validationErr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": validationErr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := h.publisher.Create(ctx, &req)
	if err != nil {
		statusCode := apperrors.HTTPStatusCode(apperrors.Retrieval("create", err))
		log.Error("item creation failed", "error", err, "status_code", statusCode)
		h.writeError(w, statusCode, "item creation failed")
		return
	}
	log.Info("item created", "item_id", item.ID, "name", item.Name)
	h.writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.publisher.List(r.Context())
	if err != nil {
		logger.FromContext(r.Context()).Error("listing items failed", "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(apperrors.Retrieval("list", err)), "listing items failed")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	item, err := h.publisher.Get(r.Context(), id)
	if err != nil {
		h.writeItemError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.publisher.Delete(r.Context(), id); err != nil {
		h.writeItemError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("item deleted", "item_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		h.writeError(w, http.StatusBadRequest, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func (h *Handler) writeItemError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, apperrors.ErrItemNotFound) {
		h.writeError(w, http.StatusNotFound, "item not found")
		return
	}
	logger.FromContext(r.Context()).Error("item request failed", "error", err)
	h.writeError(w, apperrors.HTTPStatusCode(apperrors.Retrieval("item", err)), "item request failed")
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
