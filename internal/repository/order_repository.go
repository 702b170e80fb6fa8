package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/database"
	"storefront/internal/domain"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrGatewayOrderAlreadySet = errors.New("order already linked to a gateway order")
	ErrGatewayOrderInUse      = errors.New("gateway order already linked to another order")
)

// OrderRepository defines the interface for order and order update data access.
// Order updates are owned by their order and are removed with it.
type OrderRepository interface {
	// CreateWithUpdate stores a new order and its first audit note in one transaction
	CreateWithUpdate(ctx context.Context, order *domain.Order, note string) error
	// Create stores an order as-is without an audit note
	Create(ctx context.Context, order *domain.Order) error
	FindByID(ctx context.Context, id int64) (*domain.Order, error)
	FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error)
	// AttachGatewayOrder links an order to its gateway order. The link is set once.
	AttachGatewayOrder(ctx context.Context, id int64, gatewayOrderID string) error
	// MarkPaid transitions the order referenced by the gateway order to paid and
	// appends the note. It reports false when the order was already paid.
	MarkPaid(ctx context.Context, gatewayOrderID string, note string) (bool, error)
	ListByEmail(ctx context.Context, email string) ([]*domain.Order, error)
	// List returns orders newest first; an empty ids slice selects all
	List(ctx context.Context, ids []int64) ([]*domain.Order, error)
	AddUpdate(ctx context.Context, update *domain.OrderUpdate) error
	ListUpdates(ctx context.Context, orderID int64) ([]*domain.OrderUpdate, error)
	DeliveredOrderIDs(ctx context.Context, orderIDs []int64) (map[int64]bool, error)
}

type orderRepository struct {
	db *sql.DB
}

// NewOrderRepository creates a new instance of OrderRepository
func NewOrderRepository(db *sql.DB) OrderRepository {
	return &orderRepository{db: db}
}

const orderColumns = `order_id, items_json, amount, name, email, address1, address2, city, state, zip_code,
	gateway_order_id, amount_paid, payment_status, phone, created_at`

const insertOrder = `
	INSERT INTO orders (items_json, amount, name, email, address1, address2, city, state, zip_code,
		gateway_order_id, amount_paid, payment_status, phone)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	RETURNING order_id, created_at
`

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func insertOrderRow(ctx context.Context, q queryRower, order *domain.Order) error {
	return q.QueryRowContext(
		ctx,
		insertOrder,
		order.ItemsJSON,
		order.Amount,
		order.Name,
		order.Email,
		order.Address1,
		order.Address2,
		order.City,
		order.State,
		order.ZipCode,
		order.GatewayOrderID,
		order.AmountPaid,
		order.PaymentStatus,
		order.Phone,
	).Scan(&order.ID, &order.CreatedAt)
}

func (r *orderRepository) CreateWithUpdate(ctx context.Context, order *domain.Order, note string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := insertOrderRow(ctx, tx, order); err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_updates (order_id, description) VALUES ($1, $2)`,
		order.ID, note,
	); err != nil {
		return fmt.Errorf("failed to create order update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order: %w", err)
	}

	return nil
}

func (r *orderRepository) Create(ctx context.Context, order *domain.Order) error {
	if err := insertOrderRow(ctx, r.db, order); err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return ErrGatewayOrderInUse
		}
		return fmt.Errorf("failed to create order: %w", err)
	}
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE order_id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by ID: %w", err)
	}

	return order, nil
}

func (r *orderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	if gatewayOrderID == "" {
		return nil, ErrOrderNotFound
	}

	query := `SELECT ` + orderColumns + ` FROM orders WHERE gateway_order_id = $1`

	order, err := scanOrder(r.db.QueryRowContext(ctx, query, gatewayOrderID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order by gateway order ID: %w", err)
	}

	return order, nil
}

func (r *orderRepository) AttachGatewayOrder(ctx context.Context, id int64, gatewayOrderID string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE orders SET gateway_order_id = $2 WHERE order_id = $1 AND gateway_order_id = ''`,
		id, gatewayOrderID,
	)
	if err != nil {
		if database.IsPgError(err, database.CodeUniqueViolation) {
			return ErrGatewayOrderInUse
		}
		return fmt.Errorf("failed to attach gateway order: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 1 {
		return nil
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		return err
	}
	return ErrGatewayOrderAlreadySet
}

func (r *orderRepository) MarkPaid(ctx context.Context, gatewayOrderID string, note string) (bool, error) {
	if gatewayOrderID == "" {
		return false, ErrOrderNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var (
		orderID int64
		status  string
	)
	err = tx.QueryRowContext(ctx,
		`SELECT order_id, payment_status FROM orders WHERE gateway_order_id = $1 FOR UPDATE`,
		gatewayOrderID,
	).Scan(&orderID, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrOrderNotFound
		}
		return false, fmt.Errorf("failed to lock order: %w", err)
	}

	if (&domain.Order{PaymentStatus: status}).IsPaid() {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE orders SET payment_status = $2, amount_paid = amount::text WHERE order_id = $1`,
		orderID, domain.PaymentStatusPaid,
	); err != nil {
		return false, fmt.Errorf("failed to mark order paid: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO order_updates (order_id, description) VALUES ($1, $2)`,
		orderID, note,
	); err != nil {
		return false, fmt.Errorf("failed to create order update: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit payment: %w", err)
	}

	return true, nil
}

func (r *orderRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Order, error) {
	query := `
		SELECT ` + orderColumns + `
		FROM orders
		WHERE email = $1
		ORDER BY created_at DESC NULLS LAST, order_id DESC
	`
	return r.query(ctx, query, email)
}

func (r *orderRepository) List(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	args := []interface{}{}
	if len(ids) > 0 {
		query += ` WHERE order_id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY order_id DESC`

	return r.query(ctx, query, args...)
}

func (r *orderRepository) AddUpdate(ctx context.Context, update *domain.OrderUpdate) error {
	query := `
		INSERT INTO order_updates (order_id, description, delivered)
		VALUES ($1, $2, $3)
		RETURNING update_id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, update.OrderID, update.Description, update.Delivered).
		Scan(&update.ID, &update.CreatedAt)
	if err != nil {
		if database.IsPgError(err, database.CodeForeignKeyViolation) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("failed to create order update: %w", err)
	}

	return nil
}

func (r *orderRepository) ListUpdates(ctx context.Context, orderID int64) ([]*domain.OrderUpdate, error) {
	query := `
		SELECT update_id, order_id, description, delivered, created_at
		FROM order_updates
		WHERE order_id = $1
		ORDER BY created_at ASC, update_id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order updates: %w", err)
	}
	defer rows.Close()

	updates := []*domain.OrderUpdate{}
	for rows.Next() {
		u := &domain.OrderUpdate{}
		if err := rows.Scan(&u.ID, &u.OrderID, &u.Description, &u.Delivered, &u.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order update: %w", err)
		}
		updates = append(updates, u)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating order updates: %w", err)
	}

	return updates, nil
}

func (r *orderRepository) DeliveredOrderIDs(ctx context.Context, orderIDs []int64) (map[int64]bool, error) {
	delivered := make(map[int64]bool)
	if len(orderIDs) == 0 {
		return delivered, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT DISTINCT order_id FROM order_updates WHERE delivered AND order_id = ANY($1)`,
		orderIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list delivered orders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan delivered order: %w", err)
		}
		delivered[id] = true
	}

	return delivered, rows.Err()
}

func (r *orderRepository) query(ctx context.Context, query string, args ...interface{}) ([]*domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	orders := []*domain.Order{}
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, order)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating orders: %w", err)
	}

	return orders, nil
}

func scanOrder(row interface{ Scan(...any) error }) (*domain.Order, error) {
	order := &domain.Order{}
	err := row.Scan(
		&order.ID,
		&order.ItemsJSON,
		&order.Amount,
		&order.Name,
		&order.Email,
		&order.Address1,
		&order.Address2,
		&order.City,
		&order.State,
		&order.ZipCode,
		&order.GatewayOrderID,
		&order.AmountPaid,
		&order.PaymentStatus,
		&order.Phone,
		&order.CreatedAt,
	)
	return order, err
}
