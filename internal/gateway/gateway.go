// Package gateway talks to the external payment gateway.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"storefront/internal/config"

	razorpay "github.com/razorpay/razorpay-go"
	"github.com/razorpay/razorpay-go/utils"
)

const createTimeout = 30 * time.Second

var (
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrNotConfigured      = errors.New("payment gateway not configured")
)

// Intent is a payment order created at the gateway
type Intent struct {
	ID       string
	Amount   int64
	Currency string
	Receipt  string
}

// Gateway creates payment intents and verifies gateway signatures
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (*Intent, error)
	VerifySignature(orderRef, paymentRef, signature string) bool
	VerifyWebhook(body []byte, signature string) bool
	PublicKey() string
}

type orderCreator interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

type razorpayGateway struct {
	orders        orderCreator
	keyID         string
	keySecret     string
	webhookSecret string
}

// NewRazorpay builds the Razorpay-backed gateway once from configuration
func NewRazorpay(cfg config.RazorpayConfig) Gateway {
	client := razorpay.NewClient(cfg.KeyID, cfg.KeySecret)
	return &razorpayGateway{
		orders:        client.Order,
		keyID:         cfg.KeyID,
		keySecret:     cfg.KeySecret,
		webhookSecret: cfg.WebhookSecret,
	}
}

func (g *razorpayGateway) PublicKey() string {
	return g.keyID
}

func (g *razorpayGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (*Intent, error) {
	if g.keyID == "" || g.keySecret == "" {
		return nil, ErrNotConfigured
	}

	data := map[string]interface{}{
		"amount":          amountMinor,
		"currency":        currency,
		"receipt":         receipt,
		"payment_capture": 1,
	}

	ctx, cancel := context.WithTimeout(ctx, createTimeout)
	defer cancel()

	type result struct {
		body map[string]interface{}
		err  error
	}
	done := make(chan result, 1)
	go func() {
		body, err := g.orders.Create(data, nil)
		done <- result{body: body, err: err}
	}()

	var res result
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, ctx.Err())
	case res = <-done:
	}

	if res.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGatewayUnavailable, res.err)
	}

	id, _ := res.body["id"].(string)
	if id == "" {
		return nil, fmt.Errorf("%w: response without order id", ErrGatewayUnavailable)
	}

	return &Intent{ID: id, Amount: amountMinor, Currency: currency, Receipt: receipt}, nil
}

// VerifySignature checks the checkout callback signature with the client
// library's verification
func (g *razorpayGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	if g.keySecret == "" || orderRef == "" || paymentRef == "" || signature == "" {
		return false
	}
	attributes := map[string]interface{}{
		"razorpay_order_id":   orderRef,
		"razorpay_payment_id": paymentRef,
	}
	return utils.VerifyPaymentSignature(attributes, signature, g.keySecret)
}

func (g *razorpayGateway) VerifyWebhook(body []byte, signature string) bool {
	if g.webhookSecret == "" || signature == "" {
		return false
	}
	return utils.VerifyWebhookSignature(string(body), signature, g.webhookSecret)
}
