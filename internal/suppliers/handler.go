package suppliers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler wires HTTP endpoints for suppliers.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs suppliers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers supplier routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{code}", h.handleGet)
	r.Patch("/{code}", h.handleUpdate)
	r.Post("/{code}/payments", h.handlePay)
}

type createSupplierRequest struct {
	Code       string `json:"code" validate:"required,max=64"`
	Name       string `json:"name" validate:"required,max=200"`
	Address    string `json:"address"`
	CellNumber string `json:"cell_number"`
	Contra     string `json:"contra"`
}

type updateSupplierRequest struct {
	Name       *string `json:"name"`
	Address    *string `json:"address"`
	CellNumber *string `json:"cell_number"`
	Contra     *string `json:"contra"`
}

type payRequest struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	supplier, err := h.service.Create(r.Context(), CreateSupplierInput{
		Code:       req.Code,
		Name:       req.Name,
		Address:    req.Address,
		CellNumber: req.CellNumber,
		Contra:     req.Contra,
	})
	if err != nil {
		h.respondError(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, supplier)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	supplier, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, "get supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateSupplierRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	supplier, err := h.service.Update(r.Context(), chi.URLParam(r, "code"), UpdateSupplierInput{
		Name:       req.Name,
		Address:    req.Address,
		CellNumber: req.CellNumber,
		Contra:     req.Contra,
	})
	if err != nil {
		h.respondError(w, "update supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, supplier)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.respondError(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"suppliers": list})
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	var req payRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	payment, err := h.service.Pay(r.Context(), chi.URLParam(r, "code"), req.Amount, req.Reference)
	if err != nil {
		h.respondError(w, "pay supplier", err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrSupplierNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidSupplier), errors.Is(err, ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
