package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

// Payment statuses. Rows imported from older systems may carry other casings,
// see Order.IsPaid.
const (
	PaymentStatusPending = "Pending"
	PaymentStatusPaid    = "Paid"
)

// Audit trail notes written by the checkout flow
const (
	UpdateOrderPlaced       = "Order placed - Payment pending"
	UpdatePaymentSuccessful = "Payment successful"
)

// DeliveryWindow is added to the order date to estimate delivery
const DeliveryWindow = 10 * 24 * time.Hour

var ErrInvalidCart = errors.New("invalid cart")

// Order represents a placed order with its cart snapshot and shipping details
type Order struct {
	ID             int64      `json:"order_id" db:"order_id"`
	ItemsJSON      string     `json:"items_json" db:"items_json"`
	Amount         int        `json:"amount" db:"amount"`
	Name           string     `json:"name" db:"name"`
	Email          string     `json:"email" db:"email"`
	Address1       string     `json:"address1" db:"address1"`
	Address2       string     `json:"address2" db:"address2"`
	City           string     `json:"city" db:"city"`
	State          string     `json:"state" db:"state"`
	ZipCode        string     `json:"zip_code" db:"zip_code"`
	GatewayOrderID string     `json:"oid" db:"gateway_order_id"`
	AmountPaid     string     `json:"amountpaid" db:"amount_paid"`
	PaymentStatus  string     `json:"paymentstatus" db:"payment_status"`
	Phone          string     `json:"phone" db:"phone"`
	CreatedAt      *time.Time `json:"created_at,omitempty" db:"created_at"`
}

// IsPaid reports whether the payment status is any casing of "Paid"
func (o *Order) IsPaid() bool {
	return strings.EqualFold(strings.TrimSpace(o.PaymentStatus), PaymentStatusPaid)
}

// ExpectedDelivery estimates delivery from the order date. Legacy rows without
// a creation time are estimated from now.
func (o *Order) ExpectedDelivery(now time.Time) time.Time {
	base := now
	if o.CreatedAt != nil {
		base = *o.CreatedAt
	}
	return base.Add(DeliveryWindow)
}

// ProductsSummary renders the cart as "1x- Shampoo, 4x- Soap". A snapshot that
// cannot be parsed is returned verbatim.
func (o *Order) ProductsSummary() string {
	if o.ItemsJSON == "" {
		return ""
	}
	items, err := ParseCart(o.ItemsJSON)
	if err != nil || len(items) == 0 {
		return o.ItemsJSON
	}
	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, fmt.Sprintf("%dx- %s", item.Quantity, item.Name))
	}
	return strings.Join(parts, ", ")
}

// OrderUpdate is one entry of an order's audit trail
type OrderUpdate struct {
	ID          int64     `json:"update_id" db:"update_id"`
	OrderID     int64     `json:"order_id" db:"order_id"`
	Description string    `json:"update_desc" db:"description"`
	Delivered   bool      `json:"delivered" db:"delivered"`
	CreatedAt   time.Time `json:"timestamp" db:"created_at"`
}

// LineItem is one entry of a cart snapshot
type LineItem struct {
	Key      string   `json:"key"`
	Quantity int      `json:"quantity"`
	Name     string   `json:"name"`
	Price    *float64 `json:"price,omitempty"`
}

// ParseCart decodes a cart snapshot of the form {"pr7": [2, "Neem Soap", 120]}.
// Entries keep their original order. Any entry without a positive integer
// quantity and a non-empty name makes the whole cart invalid.
func ParseCart(raw string) ([]LineItem, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("%w: expected an object", ErrInvalidCart)
	}

	items := []LineItem{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
		}
		key, _ := keyTok.(string)

		var values []interface{}
		if err := dec.Decode(&values); err != nil {
			return nil, fmt.Errorf("%w: entry %q is not a list", ErrInvalidCart, key)
		}

		item, err := lineItemFromValues(key, values)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCart, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data", ErrInvalidCart)
	}

	return items, nil
}

func lineItemFromValues(key string, values []interface{}) (LineItem, error) {
	if len(values) < 2 {
		return LineItem{}, fmt.Errorf("%w: entry %q needs a quantity and a name", ErrInvalidCart, key)
	}

	qty, ok := values[0].(json.Number)
	if !ok {
		return LineItem{}, fmt.Errorf("%w: entry %q has a non-numeric quantity", ErrInvalidCart, key)
	}
	quantity, err := qty.Int64()
	if err != nil || quantity <= 0 {
		return LineItem{}, fmt.Errorf("%w: entry %q has an invalid quantity", ErrInvalidCart, key)
	}

	name, ok := values[1].(string)
	name = strings.TrimSpace(name)
	if !ok || name == "" {
		return LineItem{}, fmt.Errorf("%w: entry %q has no product name", ErrInvalidCart, key)
	}

	item := LineItem{Key: key, Quantity: int(quantity), Name: name}
	if len(values) > 2 {
		if p, ok := values[2].(json.Number); ok {
			if price, err := p.Float64(); err == nil {
				item.Price = &price
			}
		}
	}
	return item, nil
}
