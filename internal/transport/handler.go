package transport

import (
	"net/http"
	"strconv"

	"storefront/internal/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// RedirectResponse tells the client where to go next
type RedirectResponse struct {
	Redirect string `json:"redirect"`
	Message  string `json:"message,omitempty"`
}

// FormField describes one input of a form page
type FormField struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// FormResponse is returned by the GET side of form pages
type FormResponse struct {
	Action string      `json:"action"`
	Fields []FormField `json:"fields"`
}

// decodeRequest decodes and validates the body into v. It writes the error
// response and returns false when the body is unusable.
func decodeRequest(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := middleware.DecodeAndValidate(r, v); err != nil {
		logger.Debug("Request validation failed", zap.String("path", r.URL.Path), zap.Error(err))

		if validationErrors := middleware.FormatValidationErrors(err); len(validationErrors) > 0 {
			middleware.RespondWithValidationErrors(w, validationErrors)
			return false
		}

		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// idParam parses a numeric URL parameter
func idParam(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// idsQuery parses the repeated id query parameter used for admin selections.
// Values that are not ids are ignored.
func idsQuery(r *http.Request) []int64 {
	var ids []int64
	for _, raw := range r.URL.Query()["id"] {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// requestBaseURL returns scheme://host of the request, honouring the proxy
// forwarded protocol
func requestBaseURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "https" || proto == "http" {
		scheme = proto
	}
	return scheme + "://" + r.Host
}
