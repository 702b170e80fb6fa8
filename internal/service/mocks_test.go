package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"storefront/internal/domain"
	"storefront/internal/gateway"
	"storefront/internal/repository"
	"storefront/internal/session"

	"github.com/google/uuid"
)

// Mock repositories for testing
type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users: make(map[string]*domain.User),
	}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Username]; exists {
		return repository.ErrUserAlreadyExists
	}
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	user, exists := m.users[username]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByEmailFold(ctx context.Context, email string) (*domain.User, error) {
	var found *domain.User
	for _, user := range m.users {
		if !strings.EqualFold(user.Email, email) {
			continue
		}
		if found == nil || user.CreatedAt.Before(found.CreatedAt) {
			found = user
		}
	}
	if found == nil {
		return nil, repository.ErrUserNotFound
	}
	return found, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
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
	user.PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepository) UpsertStaff(ctx context.Context, user *domain.User) (bool, error) {
	if existing, ok := m.users[user.Username]; ok {
		existing.Email = user.Email
		existing.PasswordHash = user.PasswordHash
		existing.IsStaff = true
		existing.IsActive = true
		return false, nil
	}
	user.IsStaff = true
	user.IsActive = true
	m.users[user.Username] = user
	return true, nil
}

type mockSessionManager struct {
	sessions map[string]*session.Claims
	revoked  []string
	issueErr error
}

func newMockSessionManager() *mockSessionManager {
	return &mockSessionManager{sessions: make(map[string]*session.Claims)}
}

func (m *mockSessionManager) Issue(ctx context.Context, user *domain.User) (string, time.Time, error) {
	if m.issueErr != nil {
		return "", time.Time{}, m.issueErr
	}
	token := "token-" + uuid.NewString()
	m.sessions[token] = &session.Claims{UserID: user.ID.String(), Role: user.Role()}
	return token, time.Now().Add(time.Hour), nil
}

func (m *mockSessionManager) Validate(ctx context.Context, token string) (*session.Claims, error) {
	claims, ok := m.sessions[token]
	if !ok {
		return nil, session.ErrInvalidSession
	}
	return claims, nil
}

func (m *mockSessionManager) Revoke(ctx context.Context, token string) error {
	delete(m.sessions, token)
	m.revoked = append(m.revoked, token)
	return nil
}

func (m *mockSessionManager) TTL() time.Duration {
	return time.Hour
}

type sentMail struct {
	To, Subject, Body string
}

type mockMailer struct {
	sent     []sentMail
	err      error
	notReady error
}

func (m *mockMailer) Ready() error {
	return m.notReady
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

type mockOrderRepository struct {
	mu      sync.Mutex
	orders  map[int64]*domain.Order
	updates map[int64][]*domain.OrderUpdate
	nextID  int64
	nextUID int64
	events  []string
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		orders:  make(map[int64]*domain.Order),
		updates: make(map[int64][]*domain.OrderUpdate),
	}
}

func (m *mockOrderRepository) insert(order *domain.Order) error {
	if order.GatewayOrderID != "" {
		for _, o := range m.orders {
			if o.GatewayOrderID == order.GatewayOrderID {
				return repository.ErrGatewayOrderInUse
			}
		}
	}
	if order.Amount < 0 {
		return errors.New("amount violates check constraint")
	}
	m.nextID++
	order.ID = m.nextID
	now := time.Now()
	order.CreatedAt = &now
	stored := *order
	m.orders[order.ID] = &stored
	return nil
}

func (m *mockOrderRepository) appendUpdate(orderID int64, desc string, delivered bool) *domain.OrderUpdate {
	m.nextUID++
	u := &domain.OrderUpdate{ID: m.nextUID, OrderID: orderID, Description: desc, Delivered: delivered, CreatedAt: time.Now()}
	m.updates[orderID] = append(m.updates[orderID], u)
	return u
}

func (m *mockOrderRepository) CreateWithUpdate(ctx context.Context, order *domain.Order, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.insert(order); err != nil {
		return err
	}
	m.appendUpdate(order.ID, note, false)
	m.events = append(m.events, "create_order")
	return nil
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insert(order)
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id int64) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockOrderRepository) FindByGatewayOrderID(ctx context.Context, gatewayOrderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if gatewayOrderID != "" && o.GatewayOrderID == gatewayOrderID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) AttachGatewayOrder(ctx context.Context, id int64, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if o.GatewayOrderID != "" {
		return repository.ErrGatewayOrderAlreadySet
	}
	o.GatewayOrderID = gatewayOrderID
	m.events = append(m.events, "attach")
	return nil
}

func (m *mockOrderRepository) MarkPaid(ctx context.Context, gatewayOrderID string, note string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if gatewayOrderID == "" || o.GatewayOrderID != gatewayOrderID {
			continue
		}
		if o.IsPaid() {
			return false, nil
		}
		o.PaymentStatus = domain.PaymentStatusPaid
		o.AmountPaid = fmt.Sprint(o.Amount)
		m.appendUpdate(o.ID, note, false)
		return true, nil
	}
	return false, repository.ErrOrderNotFound
}

func (m *mockOrderRepository) ListByEmail(ctx context.Context, email string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.Email == email {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockOrderRepository) List(ctx context.Context, ids []int64) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if len(ids) == 0 || containsID(ids, o.ID) {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockOrderRepository) AddUpdate(ctx context.Context, update *domain.OrderUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[update.OrderID]; !ok {
		return repository.ErrOrderNotFound
	}
	stored := m.appendUpdate(update.OrderID, update.Description, update.Delivered)
	update.ID = stored.ID
	update.CreatedAt = stored.CreatedAt
	return nil
}

func (m *mockOrderRepository) ListUpdates(ctx context.Context, orderID int64) ([]*domain.OrderUpdate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.OrderUpdate{}, m.updates[orderID]...), nil
}

func (m *mockOrderRepository) DeliveredOrderIDs(ctx context.Context, orderIDs []int64) (map[int64]bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delivered := make(map[int64]bool)
	for _, id := range orderIDs {
		for _, u := range m.updates[id] {
			if u.Delivered {
				delivered[id] = true
			}
		}
	}
	return delivered, nil
}

func (m *mockOrderRepository) countUpdates(orderID int64, desc string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, u := range m.updates[orderID] {
		if u.Description == desc {
			n++
		}
	}
	return n
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

type mockGateway struct {
	mu        sync.Mutex
	createErr error
	intents   []gateway.Intent
	validSig  string
	validHook string
	orders    *mockOrderRepository
	sawOrder  bool
}

func (g *mockGateway) CreateIntent(ctx context.Context, amountMinor int64, currency, receipt string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.orders != nil {
		g.orders.mu.Lock()
		g.sawOrder = len(g.orders.orders) > 0
		g.orders.mu.Unlock()
	}
	if g.createErr != nil {
		return nil, g.createErr
	}
	intent := gateway.Intent{
		ID:       fmt.Sprintf("order_gw%d", len(g.intents)+1),
		Amount:   amountMinor,
		Currency: currency,
		Receipt:  receipt,
	}
	g.intents = append(g.intents, intent)
	return &intent, nil
}

func (g *mockGateway) VerifySignature(orderRef, paymentRef, signature string) bool {
	return signature != "" && signature == g.validSig
}

func (g *mockGateway) VerifyWebhook(body []byte, signature string) bool {
	return signature != "" && signature == g.validHook
}

func (g *mockGateway) PublicKey() string {
	return "rzp_test_public"
}

type mockContactRepository struct {
	contacts []*domain.Contact
	failOn   string
}

func (m *mockContactRepository) Create(ctx context.Context, contact *domain.Contact) error {
	if m.failOn != "" && contact.Name == m.failOn {
		return errors.New("insert failed")
	}
	contact.ID = int64(len(m.contacts) + 1)
	contact.CreatedAt = time.Now()
	m.contacts = append(m.contacts, contact)
	return nil
}

func (m *mockContactRepository) List(ctx context.Context, ids []int64) ([]*domain.Contact, error) {
	var out []*domain.Contact
	for _, c := range m.contacts {
		if len(ids) == 0 || containsID(ids, c.ID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockContactRepository) Count(ctx context.Context) (int, error) {
	return len(m.contacts), nil
}

func (m *mockContactRepository) Emails(ctx context.Context) ([]string, error) {
	emails := make([]string, 0, len(m.contacts))
	for _, c := range m.contacts {
		emails = append(emails, c.Email)
	}
	return emails, nil
}

type mockProductRepository struct {
	products map[int64]*domain.Product
	nextID   int64
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[int64]*domain.Product)}
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	m.nextID++
	product.ID = m.nextID
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if _, ok := m.products[product.ID]; !ok {
		return repository.ErrProductNotFound
	}
	m.products[product.ID] = product
	return nil
}

func (m *mockProductRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id int64) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	out := make([]*domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockProductRepository) Search(ctx context.Context, query string) ([]*domain.Product, error) {
	all, _ := m.List(ctx)
	if query == "" {
		return all, nil
	}
	q := strings.ToLower(query)
	var out []*domain.Product
	for _, p := range all {
		haystack := strings.ToLower(p.Name + " " + p.Category + " " + p.Subcategory + " " + p.Description)
		if strings.Contains(haystack, q) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *mockProductRepository) Count(ctx context.Context) (int, error) {
	return len(m.products), nil
}

type mockCarouselAdRepository struct {
	ads    map[int64]*domain.CarouselAd
	nextID int64
}

func newMockCarouselAdRepository() *mockCarouselAdRepository {
	return &mockCarouselAdRepository{ads: make(map[int64]*domain.CarouselAd)}
}

func (m *mockCarouselAdRepository) Create(ctx context.Context, ad *domain.CarouselAd) error {
	m.nextID++
	ad.ID = m.nextID
	m.ads[ad.ID] = ad
	return nil
}

func (m *mockCarouselAdRepository) Update(ctx context.Context, ad *domain.CarouselAd) error {
	if _, ok := m.ads[ad.ID]; !ok {
		return repository.ErrCarouselAdNotFound
	}
	m.ads[ad.ID] = ad
	return nil
}

func (m *mockCarouselAdRepository) Delete(ctx context.Context, id int64) error {
	if _, ok := m.ads[id]; !ok {
		return repository.ErrCarouselAdNotFound
	}
	delete(m.ads, id)
	return nil
}

func (m *mockCarouselAdRepository) FindByID(ctx context.Context, id int64) (*domain.CarouselAd, error) {
	ad, ok := m.ads[id]
	if !ok {
		return nil, repository.ErrCarouselAdNotFound
	}
	return ad, nil
}

func (m *mockCarouselAdRepository) List(ctx context.Context) ([]*domain.CarouselAd, error) {
	out := make([]*domain.CarouselAd, 0, len(m.ads))
	for _, ad := range m.ads {
		out = append(out, ad)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (m *mockCarouselAdRepository) ListActive(ctx context.Context) ([]*domain.CarouselAd, error) {
	all, _ := m.List(ctx)
	var out []*domain.CarouselAd
	for _, ad := range all {
		if ad.IsActive && ad.Image != "" {
			out = append(out, ad)
		}
	}
	return out, nil
}

func (m *mockCarouselAdRepository) CountActive(ctx context.Context) (int, error) {
	n := 0
	for _, ad := range m.ads {
		if ad.IsActive {
			n++
		}
	}
	return n, nil
}

type mockReportRepository struct {
	perDay []domain.LabelCount
}

func (m *mockReportRepository) OrderTotals(ctx context.Context) (int, int64, error) {
	return 3, 1250, nil
}

func (m *mockReportRepository) PaymentStatusCounts(ctx context.Context) ([]domain.LabelCount, error) {
	return []domain.LabelCount{{Label: "Paid", Count: 2}, {Label: "Pending", Count: 1}}, nil
}

func (m *mockReportRepository) TopStates(ctx context.Context, limit int) ([]domain.LabelCount, error) {
	return []domain.LabelCount{{Label: "Kerala", Count: 3}}, nil
}

func (m *mockReportRepository) TopCategories(ctx context.Context, limit int) ([]domain.LabelCount, error) {
	return []domain.LabelCount{{Label: "Hair Care", Count: 2}}, nil
}

func (m *mockReportRepository) OrdersPerDay(ctx context.Context) ([]domain.LabelCount, error) {
	return m.perDay, nil
}
