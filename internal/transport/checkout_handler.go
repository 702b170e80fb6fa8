package transport

import (
	"errors"
	"io"
	"net/http"

	"storefront/internal/middleware"
	"storefront/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 1 << 20

// CheckoutFormRequest represents the checkout form posted by the cart page
type CheckoutFormRequest struct {
	ItemsJSON string `json:"itemsJson" validate:"max=5000"`
	Name      string `json:"name" validate:"max=90"`
	Email     string `json:"email" validate:"max=90"`
	Address1  string `json:"address1" validate:"max=200"`
	Address2  string `json:"address2" validate:"max=200"`
	City      string `json:"city" validate:"max=100"`
	State     string `json:"state" validate:"max=100"`
	ZipCode   string `json:"zip_code" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=100"`
	Amount    string `json:"amt" validate:"max=40"`
}

// PaymentConfigResponse is what the checkout page needs before an order exists
type PaymentConfigResponse struct {
	RazorpayKey string `json:"razorpay_key"`
	Currency    string `json:"currency"`
}

// CheckoutHandler handles checkout and payment callbacks
type CheckoutHandler struct {
	checkoutService service.CheckoutService
	logger          *zap.Logger
}

// NewCheckoutHandler creates a new CheckoutHandler
func NewCheckoutHandler(checkoutService service.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: checkoutService,
		logger:          logger,
	}
}

// RegisterRoutes registers the checkout routes. The gateway callbacks are
// public, checkout itself needs a session.
func (h *CheckoutHandler) RegisterRoutes(r chi.Router, requireSession func(http.Handler) http.Handler) {
	r.Group(func(r chi.Router) {
		r.Use(requireSession)
		r.Get("/checkout/", h.CheckoutPage)
		r.Post("/checkout/", h.Checkout)
	})

	r.Post("/payment_success/", h.PaymentSuccess)
	r.Post("/payment/webhook/", h.Webhook)
}

func (h *CheckoutHandler) CheckoutPage(w http.ResponseWriter, r *http.Request) {
	key, currency := h.checkoutService.PaymentConfig()
	middleware.RespondWithJSON(w, http.StatusOK, PaymentConfigResponse{
		RazorpayKey: key,
		Currency:    currency,
	})
}

// Checkout creates the order and its gateway order
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutFormRequest
	if !decodeRequest(w, r, &req, h.logger) {
		return
	}

	result, err := h.checkoutService.Checkout(r.Context(), service.CheckoutRequest{
		ItemsJSON: req.ItemsJSON,
		Name:      req.Name,
		Email:     req.Email,
		Address1:  req.Address1,
		Address2:  req.Address2,
		City:      req.City,
		State:     req.State,
		ZipCode:   req.ZipCode,
		Phone:     req.Phone,
		Amount:    req.Amount,
	})
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCart):
			h.logger.Debug("Rejected cart", zap.Error(err))
			middleware.RespondWithError(w, http.StatusBadRequest, service.ErrInvalidCart.Error())
		case errors.Is(err, service.ErrInvalidAmount), errors.Is(err, service.ErrCartEmpty):
			middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrPaymentInit):
			middleware.RespondWithError(w, http.StatusBadGateway, err.Error())
		default:
			h.logger.Error("Checkout failed", zap.Error(err))
			middleware.RespondWithError(w, http.StatusInternalServerError, "failed to place order")
		}
		return
	}

	h.logger.Info("Order placed",
		zap.Int64("order_id", result.OrderID),
		zap.String("gateway_order_id", result.GatewayOrderID),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, result)
}

// PaymentSuccess is the browser callback of the payment widget. It always
// answers with a redirect.
func (h *CheckoutHandler) PaymentSuccess(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.Warn("Malformed payment callback", zap.Error(err))
		http.Redirect(w, r, "/checkout/", http.StatusSeeOther)
		return
	}

	orderRef := r.PostForm.Get("razorpay_order_id")
	paymentRef := r.PostForm.Get("razorpay_payment_id")
	signature := r.PostForm.Get("razorpay_signature")

	order, err := h.checkoutService.ConfirmPayment(r.Context(), orderRef, paymentRef, signature)
	if err != nil {
		if errors.Is(err, service.ErrSignatureMismatch) || errors.Is(err, service.ErrUnknownOrder) {
			h.logger.Warn("Payment confirmation rejected",
				zap.String("gateway_order_id", orderRef),
				zap.Error(err),
			)
		} else {
			h.logger.Error("Payment confirmation failed", zap.String("gateway_order_id", orderRef), zap.Error(err))
		}
		http.Redirect(w, r, "/checkout/", http.StatusSeeOther)
		return
	}

	h.logger.Info("Payment confirmed", zap.Int64("order_id", order.ID), zap.String("payment_id", paymentRef))
	http.Redirect(w, r, "/profile/", http.StatusSeeOther)
}

// Webhook applies signed server to server gateway events
func (h *CheckoutHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		middleware.RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err = h.checkoutService.HandleWebhook(r.Context(), body, r.Header.Get("X-Razorpay-Signature"))
	switch {
	case err == nil:
		middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, service.ErrInvalidWebhook):
		h.logger.Warn("Webhook signature rejected")
		middleware.RespondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrMalformedWebhook):
		h.logger.Warn("Malformed webhook", zap.Error(err))
		middleware.RespondWithError(w, http.StatusBadRequest, service.ErrMalformedWebhook.Error())
	case errors.Is(err, service.ErrUnknownOrder):
		// acknowledged so the gateway stops retrying
		h.logger.Warn("Webhook for unknown order", zap.Error(err))
		middleware.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
	default:
		h.logger.Error("Webhook processing failed", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to process webhook")
	}
}
