package transport

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"

	"storefront/internal/domain"
	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	maxUploadSize = 32 << 20

	contentTypeCSV  = "text/csv; charset=utf-8"
	contentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// ProductRequest represents the product admin form
type ProductRequest struct {
	Name         string `json:"name" validate:"required,max=100"`
	Category     string `json:"category" validate:"max=100"`
	Subcategory  string `json:"subcategory" validate:"max=50"`
	MRP          int    `json:"mrp" validate:"gte=0"`
	SellingPrice int    `json:"selling_price" validate:"gte=0"`
	Description  string `json:"description" validate:"max=300"`
	Image1       string `json:"image1" validate:"max=255"`
	Image2       string `json:"image2" validate:"max=255"`
	Image3       string `json:"image3" validate:"max=255"`
}

func (p ProductRequest) product(id int64) *domain.Product {
	return &domain.Product{
		ID:           id,
		Name:         p.Name,
		Category:     p.Category,
		Subcategory:  p.Subcategory,
		MRP:          p.MRP,
		SellingPrice: p.SellingPrice,
		Description:  p.Description,
		Image1:       p.Image1,
		Image2:       p.Image2,
		Image3:       p.Image3,
	}
}

// CarouselAdRequest represents the carousel ad admin form
type CarouselAdRequest struct {
	Title    string `json:"title" validate:"max=150"`
	Image    string `json:"image" validate:"required,max=255"`
	Link     string `json:"link" validate:"max=500"`
	IsActive bool   `json:"is_active"`
}

// OrderUpdateRequest represents a staff status note on an order
type OrderUpdateRequest struct {
	Description string `json:"description" validate:"required,max=5000"`
	Delivered   bool   `json:"delivered"`
}

// AdminHandler handles the staff pages
type AdminHandler struct {
	dashboardService service.DashboardService
	csvService       service.CSVService
	adminService     service.AdminService
	logger           *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(
	dashboardService service.DashboardService,
	csvService service.CSVService,
	adminService service.AdminService,
	logger *zap.Logger,
) *AdminHandler {
	return &AdminHandler{
		dashboardService: dashboardService,
		csvService:       csvService,
		adminService:     adminService,
		logger:           logger,
	}
}

// RegisterRoutes registers the admin routes behind the given middlewares
func (h *AdminHandler) RegisterRoutes(r chi.Router, guards ...func(http.Handler) http.Handler) {
	r.Route("/admin", func(r chi.Router) {
		r.Use(guards...)

		r.Get("/dashboard/", h.Dashboard)

		r.Get("/contacts/export-csv/", h.ExportContacts)
		r.Post("/contacts/import-csv/", h.ImportContacts)
		r.Get("/orders/export-csv/", h.ExportOrders)
		r.Get("/orders/export-xlsx/", h.ExportOrdersXLSX)
		r.Post("/orders/import-csv/", h.ImportOrders)

		r.Get("/orders/{id}/updates/", h.ListOrderUpdates)
		r.Post("/orders/{id}/updates/", h.AddOrderUpdate)

		r.Post("/products/", h.CreateProduct)
		r.Put("/products/{id}/", h.UpdateProduct)
		r.Delete("/products/{id}/", h.DeleteProduct)

		r.Get("/carousel-ads/", h.ListCarouselAds)
		r.Post("/carousel-ads/", h.CreateCarouselAd)
		r.Put("/carousel-ads/{id}/", h.UpdateCarouselAd)
		r.Delete("/carousel-ads/{id}/", h.DeleteCarouselAd)
	})
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.dashboardService.Stats(r.Context())
	if err != nil {
		h.logger.Error("Failed to build dashboard", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ExportContacts(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "contacts", ".csv", contentTypeCSV, h.csvService.ExportContacts)
}

func (h *AdminHandler) ExportOrders(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "orders", ".csv", contentTypeCSV, h.csvService.ExportOrders)
}

func (h *AdminHandler) ExportOrdersXLSX(w http.ResponseWriter, r *http.Request) {
	h.export(w, r, "orders", ".xlsx", contentTypeXLSX, h.csvService.ExportOrdersXLSX)
}

type exportFunc func(ctx context.Context, w io.Writer, ids []int64) error

// export buffers the file so a failure can still be answered with an error
func (h *AdminHandler) export(w http.ResponseWriter, r *http.Request, name, ext, contentType string, fn exportFunc) {
	ids := idsQuery(r)

	var buf bytes.Buffer
	if err := fn(r.Context(), &buf, ids); err != nil {
		h.logger.Error("Export failed", zap.String("export", name+ext), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to export "+name)
		return
	}

	filename := name + "_all" + ext
	if len(ids) > 0 {
		filename = name + "_selected" + ext
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *AdminHandler) ImportContacts(w http.ResponseWriter, r *http.Request) {
	h.importCSV(w, r, "contacts", h.csvService.ImportContacts)
}

func (h *AdminHandler) ImportOrders(w http.ResponseWriter, r *http.Request) {
	h.importCSV(w, r, "orders", h.csvService.ImportOrders)
}

type importFunc func(ctx context.Context, r io.Reader) (*service.ImportResult, error)

func (h *AdminHandler) importCSV(w http.ResponseWriter, r *http.Request, name string, fn importFunc) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "please upload a CSV file")
		return
	}

	file, _, err := r.FormFile("csv_file")
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "please upload a CSV file")
		return
	}
	defer file.Close()

	result, err := fn(r.Context(), file)
	if err != nil {
		var missing *service.MissingHeadersError
		if errors.As(err, &missing) || errors.Is(err, service.ErrInvalidCSV) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Import failed", zap.String("import", name), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to import "+name)
		return
	}

	h.logger.Info("CSV imported",
		zap.String("import", name),
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped),
	)
	middleware.RespondWithJSON(w, http.StatusOK, result)
}

func (h *AdminHandler) ListOrderUpdates(w http.ResponseWriter, r *http.Request) {
	orderID, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	updates, err := h.adminService.ListOrderUpdates(r.Context(), orderID)
	if err != nil {
		h.respondAdminError(w, "Failed to list order updates", err)
		return
	}
	if updates == nil {
		updates = []*domain.OrderUpdate{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, updates)
}

func (h *AdminHandler) AddOrderUpdate(w http.ResponseWriter, r *http.Request) {
	orderID, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid order ID")
		return
	}

	var req OrderUpdateRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	update, err := h.adminService.AddOrderUpdate(r.Context(), orderID, req.Description, req.Delivered)
	if err != nil {
		h.respondAdminError(w, "Failed to add order update", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, update)
}

func (h *AdminHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req ProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product := req.product(0)
	if err := h.adminService.CreateProduct(r.Context(), product); err != nil {
		h.respondAdminError(w, "Failed to create product", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, product)
}

func (h *AdminHandler) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	var req ProductRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	product := req.product(id)
	if err := h.adminService.UpdateProduct(r.Context(), product); err != nil {
		h.respondAdminError(w, "Failed to update product", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, product)
}

func (h *AdminHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid product ID")
		return
	}

	if err := h.adminService.DeleteProduct(r.Context(), id); err != nil {
		h.respondAdminError(w, "Failed to delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListCarouselAds(w http.ResponseWriter, r *http.Request) {
	ads, err := h.adminService.ListCarouselAds(r.Context())
	if err != nil {
		h.respondAdminError(w, "Failed to list carousel ads", err)
		return
	}
	if ads == nil {
		ads = []*domain.CarouselAd{}
	}
	middleware.RespondWithJSON(w, http.StatusOK, ads)
}

func (h *AdminHandler) CreateCarouselAd(w http.ResponseWriter, r *http.Request) {
	var req CarouselAdRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	ad := &domain.CarouselAd{Title: req.Title, Image: req.Image, Link: req.Link, IsActive: req.IsActive}
	if err := h.adminService.CreateCarouselAd(r.Context(), ad); err != nil {
		h.respondAdminError(w, "Failed to create carousel ad", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusCreated, ad)
}

func (h *AdminHandler) UpdateCarouselAd(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid carousel ad ID")
		return
	}

	var req CarouselAdRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	ad := &domain.CarouselAd{ID: id, Title: req.Title, Image: req.Image, Link: req.Link, IsActive: req.IsActive}
	if err := h.adminService.UpdateCarouselAd(r.Context(), ad); err != nil {
		h.respondAdminError(w, "Failed to update carousel ad", err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, ad)
}

func (h *AdminHandler) DeleteCarouselAd(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r, "id")
	if !ok {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid carousel ad ID")
		return
	}

	if err := h.adminService.DeleteCarouselAd(r.Context(), id); err != nil {
		h.respondAdminError(w, "Failed to delete carousel ad", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) respondAdminError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrCarouselAdNotFound),
		errors.Is(err, service.ErrOrderNotFound):
		middleware.RespondWithError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrFieldsRequired), errors.Is(err, service.ErrAdImageRequired):
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}
