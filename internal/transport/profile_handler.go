package transport

import (
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProfileResponse is the customer profile page
type ProfileResponse struct {
	Username string                      `json:"username"`
	Email    string                      `json:"email"`
	Orders   []service.OrderHistoryEntry `json:"orders"`
}

// ProfileHandler serves the customer order history
type ProfileHandler struct {
	profileService service.ProfileService
	userService    service.UserService
	logger         *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler
func NewProfileHandler(profileService service.ProfileService, userService service.UserService, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		profileService: profileService,
		userService:    userService,
		logger:         logger,
	}
}

func (h *ProfileHandler) RegisterRoutes(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.With(requireSession).Get("/profile/", h.Profile)
}

// Profile lists the orders placed with the account's email
func (h *ProfileHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userIDStr, ok := middleware.GetUserID(r.Context())
	if !ok {
		http.Redirect(w, r, middleware.LoginPath, http.StatusSeeOther)
		return
	}

	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		h.logger.Error("Invalid user ID format", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	user, err := h.userService.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to get user profile", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to get user profile")
		return
	}

	orders, err := h.profileService.OrderHistory(r.Context(), user.Email)
	if err != nil {
		h.logger.Error("Failed to load order history", zap.String("user_id", userIDStr), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to load orders")
		return
	}
	if orders == nil {
		orders = []service.OrderHistoryEntry{}
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProfileResponse{
		Username: user.Username,
		Email:    user.Email,
		Orders:   orders,
	})
}
