package pos

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler wires HTTP endpoints for the terminal sale flow.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs pos handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers pos routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/terminals/{terminal}", func(r chi.Router) {
		r.Get("/cart", h.handleGetCart)
		r.Delete("/cart", h.handleClearCart)
		r.Post("/cart/lines", h.handleAddLine)
		r.Patch("/cart/lines/{code}", h.handleUpdateLine)
		r.Delete("/cart/lines/{code}", h.handleRemoveLine)
		r.Post("/cart/validate", h.handleValidate)
		r.Post("/sale", h.handleFinalize)
	})
	r.Get("/sales/{number}", h.handleGetSale)
	r.Get("/sales/{number}/receipt", h.handleGetReceipt)
	r.Get("/summary", h.handleDailySummary)
}

type addLineRequest struct {
	StockCode string   `json:"stock_code" validate:"required"`
	Qty       float64  `json:"qty" validate:"required,gt=0"`
	UnitPrice *float64 `json:"unit_price"`
}

// updateLineRequest carries no qty constraint; a requested quantity below one
// clamps to one in the service.
type updateLineRequest struct {
	Qty float64 `json:"qty"`
}

type finalizeRequest struct {
	Method       string  `json:"method" validate:"required,oneof=cash card account"`
	Tendered     float64 `json:"tendered" validate:"gte=0"`
	CustomerCode string  `json:"customer_code"`
	Output       string  `json:"output" validate:"omitempty,oneof=print archive"`
	RequestID    string  `json:"request_id"`
}

type finalizeResponse struct {
	Sale    SaleRecord `json:"sale"`
	Receipt string     `json:"receipt,omitempty"`
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Cart(r.Context(), chi.URLParam(r, "terminal"))
	if err != nil {
		h.respondError(w, "get cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.ClearCart(r.Context(), chi.URLParam(r, "terminal")); err != nil {
		h.respondError(w, "clear cart", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleAddLine(w http.ResponseWriter, r *http.Request) {
	var req addLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	cart, err := h.service.AddItem(r.Context(), chi.URLParam(r, "terminal"), req.StockCode, req.Qty, req.UnitPrice)
	if err != nil {
		h.respondError(w, "add line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	var req updateLineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	cart, err := h.service.UpdateQty(r.Context(), chi.URLParam(r, "terminal"), chi.URLParam(r, "code"), req.Qty)
	if err != nil {
		h.respondError(w, "update line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleRemoveLine(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveLine(r.Context(), chi.URLParam(r, "terminal"), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, "remove line", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Validate(r.Context(), chi.URLParam(r, "terminal"))
	if err != nil {
		h.respondError(w, "validate cart", err)
		return
	}
	httpx.JSON(w, http.StatusOK, cart)
}

func (h *Handler) handleFinalize(w http.ResponseWriter, r *http.Request) {
	var req finalizeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	sale, receipt, err := h.service.Finalize(r.Context(), FinalizeInput{
		TerminalID:   chi.URLParam(r, "terminal"),
		Method:       PaymentMethod(req.Method),
		Tendered:     req.Tendered,
		CustomerCode: req.CustomerCode,
		Output:       OutputChoice(req.Output),
		RequestID:    req.RequestID,
	})
	if err != nil {
		h.respondError(w, "finalize sale", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, finalizeResponse{Sale: sale, Receipt: receipt})
}

func (h *Handler) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := h.service.Sale(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, "get sale", err)
		return
	}
	httpx.JSON(w, http.StatusOK, sale)
}

func (h *Handler) handleGetReceipt(w http.ResponseWriter, r *http.Request) {
	receipt, err := h.service.Receipt(r.Context(), chi.URLParam(r, "number"))
	if err != nil {
		h.respondError(w, "get receipt", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(receipt))
}

func (h *Handler) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.DailySummary(r.Context(), r.URL.Query().Get("day"))
	if err != nil {
		h.respondError(w, "daily summary", err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrCartNotFound), errors.Is(err, ErrSaleNotFound), errors.Is(err, ErrItemNotFound), errors.Is(err, ErrLineNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInsufficientStock), errors.Is(err, ErrDuplicateRequest), errors.Is(err, ErrNotValidated):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrEmptyCart), errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrBelowCost),
		errors.Is(err, ErrInsufficientTender), errors.Is(err, ErrCustomerRequired), errors.Is(err, ErrUnknownMethod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
