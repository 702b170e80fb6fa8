package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

var (
	ErrProductNotFound    = errors.New("product not found")
	ErrCarouselAdNotFound = errors.New("carousel ad not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrAdImageRequired    = errors.New("carousel ad image is required")
)

// AdminService defines the staff catalog and order maintenance operations
type AdminService interface {
	CreateProduct(ctx context.Context, product *domain.Product) error
	UpdateProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id int64) error

	ListCarouselAds(ctx context.Context) ([]*domain.CarouselAd, error)
	CreateCarouselAd(ctx context.Context, ad *domain.CarouselAd) error
	UpdateCarouselAd(ctx context.Context, ad *domain.CarouselAd) error
	DeleteCarouselAd(ctx context.Context, id int64) error

	ListOrderUpdates(ctx context.Context, orderID int64) ([]*domain.OrderUpdate, error)
	AddOrderUpdate(ctx context.Context, orderID int64, description string, delivered bool) (*domain.OrderUpdate, error)
}

type adminService struct {
	productRepo repository.ProductRepository
	adRepo      repository.CarouselAdRepository
	orderRepo   repository.OrderRepository
	logger      *zap.Logger
}

// NewAdminService creates a new instance of AdminService
func NewAdminService(
	productRepo repository.ProductRepository,
	adRepo repository.CarouselAdRepository,
	orderRepo repository.OrderRepository,
	logger *zap.Logger,
) AdminService {
	return &adminService{
		productRepo: productRepo,
		adRepo:      adRepo,
		orderRepo:   orderRepo,
		logger:      logger,
	}
}

func (s *adminService) CreateProduct(ctx context.Context, product *domain.Product) error {
	trimProduct(product)
	if err := s.productRepo.Create(ctx, product); err != nil {
		return fmt.Errorf("failed to create product: %w", err)
	}
	s.logger.Info("Product created", zap.Int64("product_id", product.ID))
	return nil
}

func (s *adminService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	trimProduct(product)
	if err := s.productRepo.Update(ctx, product); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to update product: %w", err)
	}
	s.logger.Info("Product updated", zap.Int64("product_id", product.ID))
	return nil
}

func (s *adminService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.productRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	s.logger.Info("Product deleted", zap.Int64("product_id", id))
	return nil
}

func (s *adminService) ListCarouselAds(ctx context.Context) ([]*domain.CarouselAd, error) {
	ads, err := s.adRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list carousel ads: %w", err)
	}
	return ads, nil
}

func (s *adminService) CreateCarouselAd(ctx context.Context, ad *domain.CarouselAd) error {
	ad.Title = strings.TrimSpace(ad.Title)
	ad.Link = strings.TrimSpace(ad.Link)
	ad.Image = strings.TrimSpace(ad.Image)
	if ad.Image == "" {
		return ErrAdImageRequired
	}

	if err := s.adRepo.Create(ctx, ad); err != nil {
		return fmt.Errorf("failed to create carousel ad: %w", err)
	}
	s.logger.Info("Carousel ad created", zap.Int64("ad_id", ad.ID))
	return nil
}

func (s *adminService) UpdateCarouselAd(ctx context.Context, ad *domain.CarouselAd) error {
	ad.Title = strings.TrimSpace(ad.Title)
	ad.Link = strings.TrimSpace(ad.Link)
	ad.Image = strings.TrimSpace(ad.Image)
	if ad.Image == "" {
		return ErrAdImageRequired
	}

	if err := s.adRepo.Update(ctx, ad); err != nil {
		if errors.Is(err, repository.ErrCarouselAdNotFound) {
			return ErrCarouselAdNotFound
		}
		return fmt.Errorf("failed to update carousel ad: %w", err)
	}
	return nil
}

func (s *adminService) DeleteCarouselAd(ctx context.Context, id int64) error {
	if err := s.adRepo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrCarouselAdNotFound) {
			return ErrCarouselAdNotFound
		}
		return fmt.Errorf("failed to delete carousel ad: %w", err)
	}
	return nil
}

func (s *adminService) ListOrderUpdates(ctx context.Context, orderID int64) ([]*domain.OrderUpdate, error) {
	if _, err := s.orderRepo.FindByID(ctx, orderID); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to find order: %w", err)
	}

	updates, err := s.orderRepo.ListUpdates(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order updates: %w", err)
	}
	return updates, nil
}

func (s *adminService) AddOrderUpdate(ctx context.Context, orderID int64, description string, delivered bool) (*domain.OrderUpdate, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrFieldsRequired
	}

	update := &domain.OrderUpdate{
		OrderID:     orderID,
		Description: description,
		Delivered:   delivered,
	}
	if err := s.orderRepo.AddUpdate(ctx, update); err != nil {
		if errors.Is(err, repository.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to add order update: %w", err)
	}

	s.logger.Info("Order update added",
		zap.Int64("order_id", orderID),
		zap.Bool("delivered", delivered),
	)
	return update, nil
}

func trimProduct(p *domain.Product) {
	p.Name = strings.TrimSpace(p.Name)
	p.Category = strings.TrimSpace(p.Category)
	p.Subcategory = strings.TrimSpace(p.Subcategory)
	p.Description = strings.TrimSpace(p.Description)
	p.Image1 = strings.TrimSpace(p.Image1)
	p.Image2 = strings.TrimSpace(p.Image2)
	p.Image3 = strings.TrimSpace(p.Image3)
}
