package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

// ProductsPerSlide is the number of product cards in one carousel slide
const ProductsPerSlide = 4

// CategoryGroup is one category row of the storefront
type CategoryGroup struct {
	Category string            `json:"category"`
	Products []*domain.Product `json:"products"`
	Slides   int               `json:"slides"`
}

// Catalog is the homepage content
type Catalog struct {
	Query  string               `json:"query,omitempty"`
	Groups []CategoryGroup      `json:"groups"`
	Ads    []*domain.CarouselAd `json:"ads"`
}

// StoreInfo is the static about page content
type StoreInfo struct {
	Name        string `json:"name"`
	Tagline     string `json:"tagline"`
	Description string `json:"description"`
}

// CatalogService defines the public product browsing operations
type CatalogService interface {
	Browse(ctx context.Context, query string) (*Catalog, error)
	About() StoreInfo
}

type catalogService struct {
	productRepo repository.ProductRepository
	adRepo      repository.CarouselAdRepository
	logger      *zap.Logger
}

// NewCatalogService creates a new instance of CatalogService
func NewCatalogService(productRepo repository.ProductRepository, adRepo repository.CarouselAdRepository, logger *zap.Logger) CatalogService {
	return &catalogService{
		productRepo: productRepo,
		adRepo:      adRepo,
		logger:      logger,
	}
}

// Browse returns the products matching query grouped by category, together
// with the active carousel ads
func (s *catalogService) Browse(ctx context.Context, query string) (*Catalog, error) {
	query = strings.TrimSpace(query)

	products, err := s.productRepo.Search(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to search products: %w", err)
	}

	ads, err := s.adRepo.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list carousel ads: %w", err)
	}

	s.logger.Debug("Catalog browsed", zap.String("query", query), zap.Int("products", len(products)))

	return &Catalog{
		Query:  query,
		Groups: GroupByCategory(products),
		Ads:    ads,
	}, nil
}

func (s *catalogService) About() StoreInfo {
	return StoreInfo{
		Name:        "Natural Nikhaar",
		Tagline:     "Herbal care for hair and skin",
		Description: "Natural Nikhaar makes herbal shampoos, soaps and oils from plant based ingredients.",
	}
}

// GroupByCategory groups products by category in alphabetical order. Products
// keep their relative order inside a group.
func GroupByCategory(products []*domain.Product) []CategoryGroup {
	byCategory := make(map[string][]*domain.Product)
	for _, p := range products {
		byCategory[p.Category] = append(byCategory[p.Category], p)
	}

	categories := make([]string, 0, len(byCategory))
	for category := range byCategory {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	groups := make([]CategoryGroup, 0, len(categories))
	for _, category := range categories {
		items := byCategory[category]
		groups = append(groups, CategoryGroup{
			Category: category,
			Products: items,
			Slides:   SlideCount(len(items)),
		})
	}
	return groups
}

// SlideCount is ceil(n / ProductsPerSlide)
func SlideCount(n int) int {
	slides := n / ProductsPerSlide
	if n%ProductsPerSlide != 0 {
		slides++
	}
	return slides
}
