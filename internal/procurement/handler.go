package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler wires HTTP endpoints for goods received vouchers.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs procurement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers GRV routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/grvs", h.handleList)
	r.Post("/grvs", h.handleCreate)
	r.Get("/grvs/{number}", h.handleGet)
	r.Post("/grvs/{number}/complete", h.handleComplete)
}

type createGRVRequest struct {
	Number       string           `json:"number" validate:"required,max=64"`
	SupplierCode string           `json:"supplier_code" validate:"required"`
	Notes        string           `json:"notes"`
	Lines        []grvLineRequest `json:"lines" validate:"required,min=1,dive"`
}

type grvLineRequest struct {
	StockCode    string  `json:"stock_code" validate:"required"`
	Description  string  `json:"description"`
	Qty          float64 `json:"qty" validate:"required,gt=0"`
	CostPrice    float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice float64 `json:"selling_price" validate:"gte=0"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createGRVRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	input := CreateGRVInput{
		Number:       req.Number,
		SupplierCode: req.SupplierCode,
		Notes:        req.Notes,
	}
	for _, line := range req.Lines {
		input.Lines = append(input.Lines, GRVLineInput{
			StockCode:    line.StockCode,
			Description:  line.Description,
			Qty:          line.Qty,
			CostPrice:    line.CostPrice,
			SellingPrice: line.SellingPrice,
		})
	}
	grv, err := h.service.Create(r.Context(), input)
	if err != nil {
		h.respondError(w, "create grv", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, grv)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	grv, err := h.service.Get(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, "get grv", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grv)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.service.List(r.Context(), GRVStatus(r.URL.Query().Get("status")), limit)
	if err != nil {
		h.respondError(w, "list grvs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"grvs": list})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	grv, err := h.service.Complete(r.Context(), chi.URLParam(r, "number"), 0)
	if err != nil {
		h.respondError(w, "complete grv", err)
		return
	}
	httpx.JSON(w, http.StatusOK, grv)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrGRVNotFound), errors.Is(err, ErrItemNotFound), errors.Is(err, ErrSupplierNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateNumber), errors.Is(err, ErrAlreadyCompleted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrInvalidGRV):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
