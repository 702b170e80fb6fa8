package transport

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"storefront/internal/domain"
	"storefront/internal/repository"
	"storefront/internal/service"
	"storefront/internal/session"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Mock repositories for testing
type mockUserRepository struct {
	mu    sync.Mutex
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByEmailFold(ctx context.Context, email string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if strings.EqualFold(user.Email, email) {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) UpsertStaff(ctx context.Context, user *domain.User) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.users[user.Username]; ok {
		existing.IsStaff, existing.IsActive = true, true
		existing.PasswordHash = user.PasswordHash
		return false, nil
	}
	user.IsStaff, user.IsActive = true, true
	m.users[user.Username] = user
	return true, nil
}

type sentMail struct {
	to, subject, body string
}

type mockMailer struct {
	mu       sync.Mutex
	sent     []sentMail
	err      error
	notReady error
}

func (m *mockMailer) Ready() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notReady
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type authFixture struct {
	users    *mockUserRepository
	mailer   *mockMailer
	sessions session.Manager
	service  service.UserService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	f := &authFixture{
		users:    newMockUserRepository(),
		mailer:   &mockMailer{},
		sessions: session.NewManager(client, "test-secret", time.Hour),
	}
	f.service = service.NewUserService(
		f.users,
		f.sessions,
		session.NewResetTokens("test-secret", 72*time.Hour),
		f.mailer,
		zap.NewNop(),
	)
	return f
}

// Service fakes for handlers whose logic is covered by service tests

type fakeCheckoutService struct {
	checkoutErr error
	confirmErr  error
	webhookErr  error
	lastRequest service.CheckoutRequest
	lastBody    []byte
	lastSig     string
}

func (f *fakeCheckoutService) PaymentConfig() (string, string) {
	return "rzp_test_public", "INR"
}

func (f *fakeCheckoutService) Checkout(ctx context.Context, req service.CheckoutRequest) (*service.CheckoutResult, error) {
	f.lastRequest = req
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return &service.CheckoutResult{
		OrderID:        7,
		GatewayOrderID: "order_gw_7",
		AmountMinor:    5000,
		Currency:       "INR",
		PublicKey:      "rzp_test_public",
		Name:           req.Name,
		Email:          req.Email,
		Phone:          req.Phone,
		Amount:         49.999,
	}, nil
}

func (f *fakeCheckoutService) ConfirmPayment(ctx context.Context, orderRef, paymentRef, signature string) (*domain.Order, error) {
	if f.confirmErr != nil {
		return nil, f.confirmErr
	}
	return &domain.Order{ID: 7, GatewayOrderID: orderRef, PaymentStatus: domain.PaymentStatusPaid}, nil
}

func (f *fakeCheckoutService) HandleWebhook(ctx context.Context, body []byte, signature string) error {
	f.lastBody, f.lastSig = body, signature
	return f.webhookErr
}

type fakeCSVService struct {
	exportIDs    []int64
	importErr    error
	importResult *service.ImportResult
	imported     string
}

func (f *fakeCSVService) ExportContacts(ctx context.Context, w io.Writer, ids []int64) error {
	f.exportIDs = ids
	_, err := io.WriteString(w, strings.Join(service.ContactCSVHeader, ",")+"\n")
	return err
}

func (f *fakeCSVService) ImportContacts(ctx context.Context, r io.Reader) (*service.ImportResult, error) {
	return f.importCSV(r)
}

func (f *fakeCSVService) ExportOrders(ctx context.Context, w io.Writer, ids []int64) error {
	f.exportIDs = ids
	_, err := io.WriteString(w, strings.Join(service.OrderCSVHeader, ",")+"\n")
	return err
}

func (f *fakeCSVService) ExportOrdersXLSX(ctx context.Context, w io.Writer, ids []int64) error {
	f.exportIDs = ids
	_, err := w.Write([]byte("PK"))
	return err
}

func (f *fakeCSVService) ImportOrders(ctx context.Context, r io.Reader) (*service.ImportResult, error) {
	return f.importCSV(r)
}

func (f *fakeCSVService) importCSV(r io.Reader) (*service.ImportResult, error) {
	data, _ := io.ReadAll(r)
	f.imported = string(data)
	if f.importErr != nil {
		return nil, f.importErr
	}
	return f.importResult, nil
}

type fakeDashboardService struct{}

func (fakeDashboardService) Stats(ctx context.Context) (*domain.DashboardStats, error) {
	return &domain.DashboardStats{TotalOrders: 3, TotalRevenue: 1250}, nil
}

type fakeAdminService struct {
	products map[int64]*domain.Product
	nextID   int64
}

func newFakeAdminService() *fakeAdminService {
	return &fakeAdminService{products: make(map[int64]*domain.Product)}
}

func (f *fakeAdminService) CreateProduct(ctx context.Context, product *domain.Product) error {
	f.nextID++
	product.ID = f.nextID
	f.products[product.ID] = product
	return nil
}

func (f *fakeAdminService) UpdateProduct(ctx context.Context, product *domain.Product) error {
	if _, ok := f.products[product.ID]; !ok {
		return service.ErrProductNotFound
	}
	f.products[product.ID] = product
	return nil
}

func (f *fakeAdminService) DeleteProduct(ctx context.Context, id int64) error {
	if _, ok := f.products[id]; !ok {
		return service.ErrProductNotFound
	}
	delete(f.products, id)
	return nil
}

func (f *fakeAdminService) ListCarouselAds(ctx context.Context) ([]*domain.CarouselAd, error) {
	return nil, nil
}

func (f *fakeAdminService) CreateCarouselAd(ctx context.Context, ad *domain.CarouselAd) error {
	if strings.TrimSpace(ad.Image) == "" {
		return service.ErrAdImageRequired
	}
	ad.ID = 1
	return nil
}

func (f *fakeAdminService) UpdateCarouselAd(ctx context.Context, ad *domain.CarouselAd) error {
	return service.ErrCarouselAdNotFound
}

func (f *fakeAdminService) DeleteCarouselAd(ctx context.Context, id int64) error {
	return service.ErrCarouselAdNotFound
}

func (f *fakeAdminService) ListOrderUpdates(ctx context.Context, orderID int64) ([]*domain.OrderUpdate, error) {
	if orderID != 7 {
		return nil, service.ErrOrderNotFound
	}
	return []*domain.OrderUpdate{{ID: 1, OrderID: 7, Description: domain.UpdateOrderPlaced}}, nil
}

func (f *fakeAdminService) AddOrderUpdate(ctx context.Context, orderID int64, description string, delivered bool) (*domain.OrderUpdate, error) {
	if orderID != 7 {
		return nil, service.ErrOrderNotFound
	}
	return &domain.OrderUpdate{ID: 2, OrderID: orderID, Description: description, Delivered: delivered}, nil
}

type fakeProfileService struct {
	email string
}

func (f *fakeProfileService) OrderHistory(ctx context.Context, email string) ([]service.OrderHistoryEntry, error) {
	f.email = email
	return nil, nil
}

type nopContactRepo struct{}

func (nopContactRepo) Create(ctx context.Context, contact *domain.Contact) error {
	contact.ID = 1
	return nil
}

func (nopContactRepo) List(ctx context.Context, ids []int64) ([]*domain.Contact, error) {
	return nil, nil
}

func (nopContactRepo) Count(ctx context.Context) (int, error) {
	return 0, nil
}

func (nopContactRepo) Emails(ctx context.Context) ([]string, error) {
	return nil, nil
}
