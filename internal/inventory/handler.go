package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler wires HTTP endpoints for transfers, adjustments and the movement log.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/transfers", h.handleTransfer)
	r.Get("/movements", h.handleMovements)
	r.Post("/adjustments", h.handleCreateAdjustment)
	r.Get("/adjustments", h.handleListAdjustments)
	r.Get("/adjustments/{id}", h.handleGetAdjustment)
}

type transferRequest struct {
	StockCode string  `json:"stock_code" validate:"required"`
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	Direction string  `json:"direction" validate:"required,oneof=to_store to_warehouse"`
	Note      string  `json:"note"`
}

type adjustmentRequest struct {
	Reference string                  `json:"reference" validate:"required"`
	Reason    string                  `json:"reason" validate:"required"`
	Lines     []adjustmentLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type adjustmentLineRequest struct {
	StockCode string  `json:"stock_code" validate:"required"`
	Name      string  `json:"name"`
	Operation string  `json:"operation" validate:"required,oneof=add minus replace"`
	Quantity  float64 `json:"quantity" validate:"gte=0"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	result, err := h.service.Transfer(r.Context(), TransferInput{
		StockCode: req.StockCode,
		Qty:       req.Qty,
		Direction: TransferDirection(req.Direction),
		Note:      req.Note,
	})
	if err != nil {
		h.respondError(w, "transfer", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleMovements(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	entries, err := h.service.Movements(r.Context(), r.URL.Query().Get("code"), limit)
	if err != nil {
		h.respondError(w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"movements": entries})
}

func (h *Handler) handleCreateAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	input := AdjustmentInput{Reference: req.Reference, Reason: req.Reason}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, AdjustmentLineInput{
			StockCode: line.StockCode,
			Name:      line.Name,
			Operation: AdjustmentOperation(line.Operation),
			Quantity:  line.Quantity,
		})
	}
	adjustment, err := h.service.RecordAdjustment(r.Context(), input)
	if err != nil {
		h.respondError(w, "record adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, adjustment)
}

func (h *Handler) handleListAdjustments(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.Adjustments(r.Context(), limit)
	if err != nil {
		h.respondError(w, "list adjustments", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"adjustments": list})
}

func (h *Handler) handleGetAdjustment(w http.ResponseWriter, r *http.Request) {
	adjustment, err := h.service.Adjustment(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.respondError(w, "get adjustment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, adjustment)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrUnknownDirection), errors.Is(err, ErrInvalidAdjustment):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
