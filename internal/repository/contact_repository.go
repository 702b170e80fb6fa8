package repository

import (
	"context"
	"database/sql"
	"fmt"

	"storefront/internal/domain"
)

// ContactRepository defines the interface for contact message data access
type ContactRepository interface {
	Create(ctx context.Context, contact *domain.Contact) error
	// List returns contacts ordered by ID; an empty ids slice selects all
	List(ctx context.Context, ids []int64) ([]*domain.Contact, error)
	Count(ctx context.Context) (int, error)
	Emails(ctx context.Context) ([]string, error)
}

type contactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new instance of ContactRepository
func NewContactRepository(db *sql.DB) ContactRepository {
	return &contactRepository{db: db}
}

func (r *contactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	query := `
		INSERT INTO contacts (name, email, description, phone_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, contact.Name, contact.Email, contact.Description, contact.PhoneNumber).
		Scan(&contact.ID, &contact.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create contact: %w", err)
	}

	return nil
}

func (r *contactRepository) List(ctx context.Context, ids []int64) ([]*domain.Contact, error) {
	query := `SELECT id, name, email, description, phone_number, created_at FROM contacts`
	args := []interface{}{}
	if len(ids) > 0 {
		query += ` WHERE id = ANY($1)`
		args = append(args, ids)
	}
	query += ` ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	defer rows.Close()

	contacts := []*domain.Contact{}
	for rows.Next() {
		c := &domain.Contact{}
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.Description, &c.PhoneNumber, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating contacts: %w", err)
	}

	return contacts, nil
}

func (r *contactRepository) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM contacts`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count contacts: %w", err)
	}
	return total, nil
}

// Emails returns every non-empty contact email
func (r *contactRepository) Emails(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT email FROM contacts WHERE email <> ''`)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact emails: %w", err)
	}
	defer rows.Close()

	emails := []string{}
	for rows.Next() {
		var email string
		if err := rows.Scan(&email); err != nil {
			return nil, fmt.Errorf("failed to scan contact email: %w", err)
		}
		emails = append(emails, email)
	}

	return emails, rows.Err()
}
