package transport

import (
	"errors"
	"net/http"
	"time"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SignupRequest represents the signup form
type SignupRequest struct {
	Email string `json:"email" validate:"required,max=150"`
	Pass1 string `json:"pass1" validate:"required"`
	Pass2 string `json:"pass2" validate:"required"`
}

// LoginRequest represents the login form. Email may also be a username.
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// ResetEmailRequest represents the password reset request form
type ResetEmailRequest struct {
	Email string `json:"email" validate:"required"`
}

// SetPasswordRequest represents the new password form
type SetPasswordRequest struct {
	Pass1 string `json:"pass1"`
	Pass2 string `json:"pass2"`
}

// AccountResponse is returned after a successful signup or login
type AccountResponse struct {
	RedirectResponse
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

// ResetLinkResponse describes a valid password reset link
type ResetLinkResponse struct {
	FormResponse
	Username string `json:"username"`
}

// ResetRequestedMessage is answered for every reset request
const ResetRequestedMessage = "If an account exists for that email, a password reset link has been sent."

// CookieConfig controls the session cookie
type CookieConfig struct {
	Name   string
	Secure bool
}

// AuthHandler handles HTTP requests for account operations
type AuthHandler struct {
	userService   service.UserService
	cookie        CookieConfig
	publicBaseURL string
	logger        *zap.Logger
}

// NewAuthHandler creates a new AuthHandler. When publicBaseURL is empty reset
// links point at the host the request was made to.
func NewAuthHandler(userService service.UserService, cookie CookieConfig, publicBaseURL string, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService:   userService,
		cookie:        cookie,
		publicBaseURL: publicBaseURL,
		logger:        logger,
	}
}

// RegisterRoutes registers all account routes. limit throttles the form posts.
func (h *AuthHandler) RegisterRoutes(r chi.Router, limit func(http.Handler) http.Handler) {
	r.Route("/auth", func(r chi.Router) {
		r.Get("/signup/", h.SignupForm)
		r.With(limit).Post("/signup/", h.Signup)
		r.Get("/login/", h.LoginForm)
		r.With(limit).Post("/login/", h.Login)
		r.Get("/logout/", h.Logout)
		r.Get("/request-reset-email/", h.ResetEmailForm)
		r.With(limit).Post("/request-reset-email/", h.RequestResetEmail)
		r.Get("/set-new-password/{uidb64}/{token}/", h.CheckResetLink)
		r.With(limit).Post("/set-new-password/{uidb64}/{token}/", h.SetNewPassword)
	})
}

func (h *AuthHandler) SignupForm(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, FormResponse{
		Action: "/auth/signup/",
		Fields: []FormField{
			{Name: "email", Type: "email", Required: true},
			{Name: "pass1", Type: "password", Required: true},
			{Name: "pass2", Type: "password", Required: true},
		},
	})
}

// Signup creates an account and logs it in
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	user, sess, err := h.userService.Signup(r.Context(), req.Email, req.Pass1, req.Pass2)
	if err != nil {
		h.respondAccountError(w, "Signup failed", err)
		return
	}

	h.setSessionCookie(w, sess)
	h.logger.Info("User signed up", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusCreated, AccountResponse{
		RedirectResponse: RedirectResponse{Redirect: "/", Message: "Signup success"},
		UserID:           user.ID.String(),
		Username:         user.Username,
		IsStaff:          user.IsStaff,
	})
}

func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, FormResponse{
		Action: "/auth/login/",
		Fields: []FormField{
			{Name: "email", Type: "text", Required: true},
			{Name: "password", Type: "password", Required: true},
		},
	})
}

// Login authenticates by username or email
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	user, sess, err := h.userService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.respondAccountError(w, "Login failed", err)
		return
	}

	h.setSessionCookie(w, sess)
	h.logger.Info("User logged in", zap.String("user_id", user.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, AccountResponse{
		RedirectResponse: RedirectResponse{Redirect: "/", Message: "Login success"},
		UserID:           user.ID.String(),
		Username:         user.Username,
		IsStaff:          user.IsStaff,
	})
}

// Logout revokes the session and always clears the cookie
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token, ok := middleware.GetSessionToken(r.Context())
	if !ok {
		if cookie, err := r.Cookie(h.cookie.Name); err == nil {
			token = cookie.Value
		}
	}
	if err := h.userService.Logout(r.Context(), token); err != nil {
		h.logger.Error("Failed to revoke session", zap.Error(err))
	}

	h.clearSessionCookie(w)
	middleware.RespondWithJSON(w, http.StatusOK, RedirectResponse{
		Redirect: middleware.LoginPath,
		Message:  "Logout success",
	})
}

func (h *AuthHandler) ResetEmailForm(w http.ResponseWriter, r *http.Request) {
	middleware.RespondWithJSON(w, http.StatusOK, FormResponse{
		Action: "/auth/request-reset-email/",
		Fields: []FormField{{Name: "email", Type: "email", Required: true}},
	})
}

// RequestResetEmail mails a reset link. The answer does not depend on
// whether the account exists.
func (h *AuthHandler) RequestResetEmail(w http.ResponseWriter, r *http.Request) {
	var req ResetEmailRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	baseURL := h.publicBaseURL
	if baseURL == "" {
		baseURL = requestBaseURL(r)
	}

	if err := h.userService.RequestPasswordReset(r.Context(), req.Email, baseURL); err != nil {
		h.respondAccountError(w, "Password reset request failed", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RedirectResponse{
		Redirect: "/auth/request-reset-email/",
		Message:  ResetRequestedMessage,
	})
}

// CheckResetLink validates the link before the new password form is shown
func (h *AuthHandler) CheckResetLink(w http.ResponseWriter, r *http.Request) {
	uidb64, token := chi.URLParam(r, "uidb64"), chi.URLParam(r, "token")

	user, err := h.userService.CheckResetLink(r.Context(), uidb64, token)
	if err != nil {
		h.respondAccountError(w, "Reset link check failed", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ResetLinkResponse{
		FormResponse: FormResponse{
			Action: r.URL.Path,
			Fields: []FormField{
				{Name: "pass1", Type: "password", Required: true},
				{Name: "pass2", Type: "password", Required: true},
			},
		},
		Username: user.Username,
	})
}

// SetNewPassword stores the new password of a valid reset link
func (h *AuthHandler) SetNewPassword(w http.ResponseWriter, r *http.Request) {
	var req SetPasswordRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	uidb64, token := chi.URLParam(r, "uidb64"), chi.URLParam(r, "token")
	if err := h.userService.SetNewPassword(r.Context(), uidb64, token, req.Pass1, req.Pass2); err != nil {
		h.respondAccountError(w, "Set new password failed", err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, RedirectResponse{
		Redirect: middleware.LoginPath,
		Message:  "Password reset success, please login with your new password",
	})
}

func (h *AuthHandler) respondAccountError(w http.ResponseWriter, msg string, err error) {
	switch {
	case errors.Is(err, service.ErrFieldsRequired),
		errors.Is(err, service.ErrPasswordMismatch),
		errors.Is(err, service.ErrPasswordTooShort),
		errors.Is(err, service.ErrInvalidResetLink):
		h.logger.Debug(msg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrEmailTaken):
		h.logger.Debug(msg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrInvalidCredentials):
		h.logger.Debug(msg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, service.ErrAccountInactive):
		h.logger.Info(msg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrEmailService):
		middleware.RespondWithError(w, http.StatusBadGateway, err.Error())
	default:
		h.logger.Error(msg, zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, sess *service.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(time.Until(sess.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}
