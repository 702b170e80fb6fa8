package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MinMinorUnits is the smallest amount the gateway accepts
const MinMinorUnits = 100

// Webhook events that confirm a payment
const (
	EventOrderPaid       = "order.paid"
	EventPaymentCaptured = "payment.captured"
)

var (
	ErrInvalidCart       = errors.New("invalid cart")
	ErrInvalidAmount     = errors.New("invalid amount in cart")
	ErrCartEmpty         = errors.New("cart is empty")
	ErrPaymentInit       = errors.New("payment initialization failed")
	ErrSignatureMismatch = errors.New("payment signature verification failed")
	ErrUnknownOrder      = errors.New("no order matches the payment reference")
	ErrInvalidWebhook    = errors.New("invalid webhook signature")
	ErrMalformedWebhook  = errors.New("malformed webhook payload")
)

var (
	oneHundred         = decimal.NewFromInt(100)
	minimumOrderAmount = decimal.NewFromInt(1)
	// orders.amount is an INTEGER column
	maximumOrderAmount = decimal.NewFromInt(math.MaxInt32)
)

// CheckoutRequest carries the checkout form
type CheckoutRequest struct {
	ItemsJSON string
	Name      string
	Email     string
	Address1  string
	Address2  string
	City      string
	State     string
	ZipCode   string
	Phone     string
	Amount    string
}

// CheckoutResult is what the payment page needs to open the gateway widget
type CheckoutResult struct {
	OrderID        int64   `json:"order_id"`
	GatewayOrderID string  `json:"razorpay_order_id"`
	AmountMinor    int64   `json:"razorpay_amount"`
	Currency       string  `json:"currency"`
	PublicKey      string  `json:"razorpay_key"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Phone          string  `json:"phone"`
	Amount         float64 `json:"amount"`
}

// CheckoutService defines the checkout and payment confirmation flow
type CheckoutService interface {
	PaymentConfig() (publicKey, currency string)
	Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error)
	ConfirmPayment(ctx context.Context, orderRef, paymentRef, signature string) (*domain.Order, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) error
}

type checkoutService struct {
	orderRepo repository.OrderRepository
	gateway   gateway.Gateway
	currency  string
	logger    *zap.Logger
}

// NewCheckoutService creates a new instance of CheckoutService
func NewCheckoutService(orderRepo repository.OrderRepository, gw gateway.Gateway, currency string, logger *zap.Logger) CheckoutService {
	return &checkoutService{
		orderRepo: orderRepo,
		gateway:   gw,
		currency:  currency,
		logger:    logger,
	}
}

func (s *checkoutService) PaymentConfig() (string, string) {
	return s.gateway.PublicKey(), s.currency
}

// Checkout stores a pending order, then creates the gateway order for it.
// When the gateway call fails the order stays pending without a reference.
func (s *checkoutService) Checkout(ctx context.Context, req CheckoutRequest) (*CheckoutResult, error) {
	items, err := domain.ParseCart(strings.TrimSpace(req.ItemsJSON))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}

	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(maximumOrderAmount) {
		return nil, ErrInvalidAmount
	}
	if amount.LessThan(minimumOrderAmount) || len(items) == 0 {
		return nil, ErrCartEmpty
	}

	minor := MinorUnits(amount)

	order := &domain.Order{
		ItemsJSON:     strings.TrimSpace(req.ItemsJSON),
		Amount:        StoredAmount(amount),
		Name:          strings.TrimSpace(req.Name),
		Email:         strings.TrimSpace(req.Email),
		Address1:      strings.TrimSpace(req.Address1),
		Address2:      strings.TrimSpace(req.Address2),
		City:          strings.TrimSpace(req.City),
		State:         strings.TrimSpace(req.State),
		ZipCode:       strings.TrimSpace(req.ZipCode),
		Phone:         strings.TrimSpace(req.Phone),
		PaymentStatus: domain.PaymentStatusPending,
	}

	if err := s.orderRepo.CreateWithUpdate(ctx, order, domain.UpdateOrderPlaced); err != nil {
		return nil, fmt.Errorf("failed to create order: %w", err)
	}

	intent, err := s.gateway.CreateIntent(ctx, minor, s.currency, "order_"+strconv.FormatInt(order.ID, 10))
	if err != nil {
		s.logger.Error("Payment gateway order creation failed",
			zap.Int64("order_id", order.ID),
			zap.Int64("amount_minor", minor),
			zap.Error(err),
		)
		return nil, ErrPaymentInit
	}

	if err := s.orderRepo.AttachGatewayOrder(ctx, order.ID, intent.ID); err != nil {
		s.logger.Error("Failed to link gateway order",
			zap.Int64("order_id", order.ID),
			zap.String("gateway_order_id", intent.ID),
			zap.Error(err),
		)
		return nil, ErrPaymentInit
	}

	major, _ := amount.Float64()
	return &CheckoutResult{
		OrderID:        order.ID,
		GatewayOrderID: intent.ID,
		AmountMinor:    minor,
		Currency:       s.currency,
		PublicKey:      s.gateway.PublicKey(),
		Name:           order.Name,
		Email:          order.Email,
		Phone:          order.Phone,
		Amount:         major,
	}, nil
}

// ConfirmPayment verifies the checkout callback and marks the order paid.
// Repeated confirmations leave the order untouched.
func (s *checkoutService) ConfirmPayment(ctx context.Context, orderRef, paymentRef, signature string) (*domain.Order, error) {
	if !s.gateway.VerifySignature(orderRef, paymentRef, signature) {
		s.logger.Warn("Payment signature verification failed", zap.String("gateway_order_id", orderRef))
		return nil, ErrSignatureMismatch
	}

	if err := s.markPaid(ctx, orderRef); err != nil {
		return nil, err
	}

	order, err := s.orderRepo.FindByGatewayOrderID(ctx, orderRef)
	if err != nil {
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return order, nil
}

type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// HandleWebhook applies signed gateway events. Events other than payment
// confirmations are acknowledged without effect.
func (s *checkoutService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	if !s.gateway.VerifyWebhook(body, signature) {
		return ErrInvalidWebhook
	}

	var event webhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedWebhook, err)
	}

	switch event.Event {
	case EventOrderPaid, EventPaymentCaptured:
	default:
		s.logger.Debug("Ignoring webhook event", zap.String("event", event.Event))
		return nil
	}

	orderRef := event.Payload.Order.Entity.ID
	if orderRef == "" {
		orderRef = event.Payload.Payment.Entity.OrderID
	}
	if orderRef == "" {
		return fmt.Errorf("%w: no order reference", ErrMalformedWebhook)
	}

	return s.markPaid(ctx, orderRef)
}

func (s *checkoutService) markPaid(ctx context.Context, orderRef string) error {
	changed, err := s.orderRepo.MarkPaid(ctx, orderRef, domain.UpdatePaymentSuccessful)
	if err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return ErrUnknownOrder
		}
		return fmt.Errorf("failed to mark order paid: %w", err)
	}

	if changed {
		s.logger.Info("Order paid", zap.String("gateway_order_id", orderRef))
	} else {
		s.logger.Info("Duplicate payment confirmation ignored", zap.String("gateway_order_id", orderRef))
	}
	return nil
}

// ParseAmount parses a client supplied total. Blank and "NaN" mean zero.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "NaN" {
		return decimal.Zero, nil
	}

	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// MinorUnits converts to the gateway's minor units, rounding half away from
// zero, with a floor of MinMinorUnits
func MinorUnits(amount decimal.Decimal) int64 {
	minor := amount.Mul(oneHundred).Round(0).IntPart()
	if minor < MinMinorUnits {
		return MinMinorUnits
	}
	return minor
}

// StoredAmount is the whole currency amount kept on the order
func StoredAmount(amount decimal.Decimal) int {
	return int(amount.Truncate(0).IntPart())
}
