package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"storefront/internal/domain"
	"storefront/internal/repository"
)

const (
	// DashboardTopN bounds the state, category and domain charts
	DashboardTopN = 7

	InvalidEmailLabel = "invalid-email"
)

// DashboardService defines the admin dashboard aggregation
type DashboardService interface {
	Stats(ctx context.Context) (*domain.DashboardStats, error)
}

type dashboardService struct {
	reportRepo  repository.ReportRepository
	productRepo repository.ProductRepository
	contactRepo repository.ContactRepository
	adRepo      repository.CarouselAdRepository
}

// NewDashboardService creates a new instance of DashboardService
func NewDashboardService(
	reportRepo repository.ReportRepository,
	productRepo repository.ProductRepository,
	contactRepo repository.ContactRepository,
	adRepo repository.CarouselAdRepository,
) DashboardService {
	return &dashboardService{
		reportRepo:  reportRepo,
		productRepo: productRepo,
		contactRepo: contactRepo,
		adRepo:      adRepo,
	}
}

func (s *dashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	stats := &domain.DashboardStats{}
	var err error

	if stats.TotalOrders, stats.TotalRevenue, err = s.reportRepo.OrderTotals(ctx); err != nil {
		return nil, err
	}
	if stats.TotalProducts, err = s.productRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count products: %w", err)
	}
	if stats.TotalContacts, err = s.contactRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count contacts: %w", err)
	}
	if stats.ActiveAds, err = s.adRepo.CountActive(ctx); err != nil {
		return nil, fmt.Errorf("failed to count carousel ads: %w", err)
	}
	if stats.PaymentStatus, err = s.reportRepo.PaymentStatusCounts(ctx); err != nil {
		return nil, err
	}
	if stats.TopStates, err = s.reportRepo.TopStates(ctx, DashboardTopN); err != nil {
		return nil, err
	}
	if stats.TopCategories, err = s.reportRepo.TopCategories(ctx, DashboardTopN); err != nil {
		return nil, err
	}
	if stats.OrdersPerDay, err = s.reportRepo.OrdersPerDay(ctx); err != nil {
		return nil, err
	}

	emails, err := s.contactRepo.Emails(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list contact emails: %w", err)
	}
	stats.ContactDomains = EmailDomains(emails, DashboardTopN)

	return stats, nil
}

// EmailDomains counts lower-cased address domains, most common first. Blank
// values are ignored and values without "@" count as InvalidEmailLabel.
func EmailDomains(emails []string, limit int) []domain.LabelCount {
	counts := make(map[string]int)
	for _, email := range emails {
		value := strings.ToLower(strings.TrimSpace(email))
		if value == "" {
			continue
		}
		if _, host, ok := strings.Cut(value, "@"); ok {
			counts[host]++
		} else {
			counts[InvalidEmailLabel]++
		}
	}

	domains := make([]domain.LabelCount, 0, len(counts))
	for label, count := range counts {
		domains = append(domains, domain.LabelCount{Label: label, Count: count})
	}
	sort.Slice(domains, func(i, j int) bool {
		if domains[i].Count != domains[j].Count {
			return domains[i].Count > domains[j].Count
		}
		return domains[i].Label < domains[j].Label
	})

	if len(domains) > limit {
		domains = domains[:limit]
	}
	return domains
}
