package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"storefront/internal/domain"
)

var (
	ErrCarouselAdNotFound = errors.New("carousel ad not found")
)

// CarouselAdRepository defines the interface for carousel ad data access
type CarouselAdRepository interface {
	Create(ctx context.Context, ad *domain.CarouselAd) error
	Update(ctx context.Context, ad *domain.CarouselAd) error
	Delete(ctx context.Context, id int64) error
	FindByID(ctx context.Context, id int64) (*domain.CarouselAd, error)
	List(ctx context.Context) ([]*domain.CarouselAd, error)
	ListActive(ctx context.Context) ([]*domain.CarouselAd, error)
	CountActive(ctx context.Context) (int, error)
}

type carouselAdRepository struct {
	db *sql.DB
}

// NewCarouselAdRepository creates a new instance of CarouselAdRepository
func NewCarouselAdRepository(db *sql.DB) CarouselAdRepository {
	return &carouselAdRepository{db: db}
}

// Create inserts a new carousel ad and fills in its ID and creation time
func (r *carouselAdRepository) Create(ctx context.Context, ad *domain.CarouselAd) error {
	query := `
		INSERT INTO carousel_ads (title, image, link, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query, ad.Title, ad.Image, ad.Link, ad.IsActive).
		Scan(&ad.ID, &ad.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create carousel ad: %w", err)
	}

	return nil
}

func (r *carouselAdRepository) Update(ctx context.Context, ad *domain.CarouselAd) error {
	query := `
		UPDATE carousel_ads
		SET title = $2, image = $3, link = $4, is_active = $5
		WHERE id = $1
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query, ad.ID, ad.Title, ad.Image, ad.Link, ad.IsActive).
		Scan(&ad.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrCarouselAdNotFound
		}
		return fmt.Errorf("failed to update carousel ad: %w", err)
	}

	return nil
}

func (r *carouselAdRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM carousel_ads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete carousel ad: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCarouselAdNotFound
	}

	return nil
}

// FindByID retrieves a carousel ad by ID using parameterized queries
func (r *carouselAdRepository) FindByID(ctx context.Context, id int64) (*domain.CarouselAd, error) {
	query := `
		SELECT id, title, image, link, is_active, created_at
		FROM carousel_ads
		WHERE id = $1
	`

	ad := &domain.CarouselAd{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ad.ID,
		&ad.Title,
		&ad.Image,
		&ad.Link,
		&ad.IsActive,
		&ad.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCarouselAdNotFound
		}
		return nil, fmt.Errorf("failed to find carousel ad by ID: %w", err)
	}

	return ad, nil
}

// List retrieves all carousel ads, newest first
func (r *carouselAdRepository) List(ctx context.Context) ([]*domain.CarouselAd, error) {
	return r.list(ctx, `
		SELECT id, title, image, link, is_active, created_at
		FROM carousel_ads
		ORDER BY created_at DESC, id DESC
	`)
}

// ListActive retrieves the ads shown on the homepage: active, with an image,
// newest first
func (r *carouselAdRepository) ListActive(ctx context.Context) ([]*domain.CarouselAd, error) {
	return r.list(ctx, `
		SELECT id, title, image, link, is_active, created_at
		FROM carousel_ads
		WHERE is_active AND image <> ''
		ORDER BY created_at DESC, id DESC
	`)
}

// CountActive returns the number of active ads
func (r *carouselAdRepository) CountActive(ctx context.Context) (int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM carousel_ads WHERE is_active`).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to count carousel ads: %w", err)
	}
	return total, nil
}

func (r *carouselAdRepository) list(ctx context.Context, query string) ([]*domain.CarouselAd, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list carousel ads: %w", err)
	}
	defer rows.Close()

	ads := []*domain.CarouselAd{}
	for rows.Next() {
		ad := &domain.CarouselAd{}
		err := rows.Scan(
			&ad.ID,
			&ad.Title,
			&ad.Image,
			&ad.Link,
			&ad.IsActive,
			&ad.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan carousel ad: %w", err)
		}
		ads = append(ads, ad)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating carousel ads: %w", err)
	}

	return ads, nil
}
