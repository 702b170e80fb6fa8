package transport

import (
	"errors"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// ContactRequest represents the contact form
type ContactRequest struct {
	Name  string `json:"name" validate:"required,max=50"`
	Email string `json:"email" validate:"required,email,max=254"`
	Desc  string `json:"desc" validate:"required,max=500"`
	Phone string `json:"pnumber" validate:"required,max=20"`
}

// CatalogHandler serves the public storefront pages
type CatalogHandler struct {
	catalogService service.CatalogService
	logger         *zap.Logger
}

// NewCatalogHandler creates a new CatalogHandler
func NewCatalogHandler(catalogService service.CatalogService, logger *zap.Logger) *CatalogHandler {
	return &CatalogHandler{
		catalogService: catalogService,
		logger:         logger,
	}
}

func (h *CatalogHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Index)
	r.Get("/about/", h.About)
}

// Index lists the catalog grouped by category, optionally filtered by ?query=
func (h *CatalogHandler) Index(w http.ResponseWriter, r *http.Request) {
	catalog, err := h.catalogService.Browse(r.Context(), r.URL.Query().Get("query"))
	if err != nil {
		h.logger.Error("Failed to browse catalog", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load products")
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, catalog)
}

func (h *CatalogHandler) About(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, h.catalogService.About())
}

// ContactHandler serves the contact form
type ContactHandler struct {
	contactService service.ContactService
	logger         *zap.Logger
}

// NewContactHandler creates a new ContactHandler
func NewContactHandler(contactService service.ContactService, logger *zap.Logger) *ContactHandler {
	return &ContactHandler{
		contactService: contactService,
		logger:         logger,
	}
}

// RegisterRoutes registers the contact routes. limit throttles submissions.
func (h *ContactHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Get("/contact/", h.Form)
	r.With(limit).Post("/contact/", h.Submit)
}

func (h *ContactHandler) Form(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, FormResponse{
		Action: "/contact/",
		Fields: []FormField{
			{Name: "name", Type: "text", Required: true},
			{Name: "email", Type: "email", Required: true},
			{Name: "desc", Type: "textarea", Required: true},
			{Name: "pnumber", Type: "tel", Required: true},
		},
	})
}

// Submit stores a contact message
func (h *ContactHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	contact, err := h.contactService.Submit(r.Context(), req.Name, req.Email, req.Desc, req.Phone)
	if err != nil {
		if errors.Is(err, service.ErrFieldsRequired) || errors.Is(err, service.ErrInvalidPhone) {
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.Error("Failed to store contact", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to send message")
		return
	}

	h.logger.Info("Contact message received", zap.Int64("contact_id", contact.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, RedirectResponse{
		Redirect: "/contact/",
		Message:  service.ContactAcknowledgement,
	})
}
