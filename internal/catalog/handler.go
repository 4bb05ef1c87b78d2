package catalog

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tillpoint/tillpoint/internal/platform/httpx"
	"github.com/tillpoint/tillpoint/internal/shared"
)

// Handler wires HTTP endpoints for the stock catalog.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/items", h.handleList)
	r.Post("/items", h.handleCreate)
	r.Get("/items/low-stock", h.handleLowStock)
	r.Get("/items/{code}", h.handleGet)
	r.Patch("/items/{code}", h.handleUpdate)
	r.Delete("/items/{code}", h.handleDelete)
}

type createItemRequest struct {
	Code           string  `json:"code" validate:"required,max=64"`
	Description    string  `json:"description" validate:"required,max=200"`
	Category       string  `json:"category"`
	Size           string  `json:"size"`
	CostPrice      float64 `json:"cost_price" validate:"gte=0"`
	SellingPrice   float64 `json:"selling_price" validate:"gte=0"`
	QtyOnHand      float64 `json:"qty_on_hand" validate:"gte=0"`
	QtyInWarehouse float64 `json:"qty_in_warehouse" validate:"gte=0"`
	SupplierCode   string  `json:"supplier_code"`
	VATPercent     float64 `json:"vat_percent" validate:"gte=0,lte=100"`
	MinLevel       float64 `json:"min_level" validate:"gte=0"`
	MaxLevel       float64 `json:"max_level" validate:"gte=0"`
	ImageRef       string  `json:"image_ref"`
}

type updateItemRequest struct {
	Description  *string  `json:"description"`
	Category     *string  `json:"category"`
	Size         *string  `json:"size"`
	CostPrice    *float64 `json:"cost_price"`
	SellingPrice *float64 `json:"selling_price"`
	SupplierCode *string  `json:"supplier_code"`
	VATPercent   *float64 `json:"vat_percent"`
	MinLevel     *float64 `json:"min_level"`
	MaxLevel     *float64 `json:"max_level"`
	ImageRef     *string  `json:"image_ref"`
	IsActive     *bool    `json:"is_active"`
}

type listItemsResponse struct {
	Items      []StockItem       `json:"items"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := shared.ValidateStruct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", shared.UserSafeMessage(err))
		return
	}
	item, err := h.service.Create(r.Context(), CreateItemInput{
		Code:           req.Code,
		Description:    req.Description,
		Category:       req.Category,
		Size:           req.Size,
		CostPrice:      req.CostPrice,
		SellingPrice:   req.SellingPrice,
		QtyOnHand:      req.QtyOnHand,
		QtyInWarehouse: req.QtyInWarehouse,
		SupplierCode:   req.SupplierCode,
		VATPercent:     req.VATPercent,
		MinLevel:       req.MinLevel,
		MaxLevel:       req.MaxLevel,
		ImageRef:       req.ImageRef,
	})
	if err != nil {
		h.respondError(w, "create item", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	item, err := h.service.Get(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, "get item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	item, err := h.service.Update(r.Context(), chi.URLParam(r, "code"), UpdateItemInput{
		Description:  req.Description,
		Category:     req.Category,
		Size:         req.Size,
		CostPrice:    req.CostPrice,
		SellingPrice: req.SellingPrice,
		SupplierCode: req.SupplierCode,
		VATPercent:   req.VATPercent,
		MinLevel:     req.MinLevel,
		MaxLevel:     req.MaxLevel,
		ImageRef:     req.ImageRef,
		IsActive:     req.IsActive,
	})
	if err != nil {
		h.respondError(w, "update item", err)
		return
	}
	httpx.JSON(w, http.StatusOK, item)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Remove(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.respondError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		Search:   q.Get("search"),
		Category: q.Get("category"),
	}
	if active := q.Get("active"); active != "" {
		parsed := active == "true" || active == "1"
		filter.IsActive = &parsed
	}
	filter.Page, _ = strconv.Atoi(q.Get("page"))
	filter.PerPage, _ = strconv.Atoi(q.Get("per_page"))

	items, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, "list items", err)
		return
	}
	httpx.JSON(w, http.StatusOK, listItemsResponse{
		Items:      items,
		Pagination: shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) handleLowStock(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.LowStock(r.Context())
	if err != nil {
		h.respondError(w, "low stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) respondError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidItem):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error(op+" failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
