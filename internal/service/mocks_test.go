package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/llm"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/storage"

	"github.com/google/uuid"
)

// Mock repositories for testing

type mockUserRepository struct {
	users map[uuid.UUID]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uuid.UUID]*domain.User)}
}

func (m *mockUserRepository) add(role string) *domain.User {
	u := &domain.User{
		ID:                 uuid.New(),
		FullName:           "User " + role,
		Email:              uuid.NewString() + "@example.com",
		Role:               role,
		VerificationStatus: domain.AccountVerificationNone,
	}
	m.users[u.ID] = u
	return u
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrUserAlreadyExists
		}
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (m *mockUserRepository) FindNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string)
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			names[id] = u.FullName
		}
	}
	return names, nil
}

func (m *mockUserRepository) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	u, ok := m.users[id]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.VerificationStatus = status
	return nil
}

type mockRefreshTokenRepository struct {
	tokens map[string]*domain.RefreshToken
}

func newMockRefreshTokenRepository() *mockRefreshTokenRepository {
	return &mockRefreshTokenRepository{tokens: make(map[string]*domain.RefreshToken)}
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, token *domain.RefreshToken) error {
	m.tokens[token.Token] = token
	return nil
}

func (m *mockRefreshTokenRepository) FindByToken(ctx context.Context, token string) (*domain.RefreshToken, error) {
	rt, ok := m.tokens[token]
	if !ok {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if rt.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	if time.Now().After(rt.ExpiresAt) {
		return nil, repository.ErrRefreshTokenExpired
	}
	return rt, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	rt, ok := m.tokens[token]
	if !ok || rt.UserID != userID || rt.Revoked {
		return repository.ErrRefreshTokenNotFound
	}
	rt.Revoked = true
	return nil
}

type mockCategoryRepository struct {
	categories map[uuid.UUID]*domain.Category
	// listingCount and verificationCount answer CountReferences
	listingCount      map[uuid.UUID]int
	verificationCount map[uuid.UUID]int
	countErr          error
	// deleteErr overrides Delete
	deleteErr error
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories:        make(map[uuid.UUID]*domain.Category),
		listingCount:      make(map[uuid.UUID]int),
		verificationCount: make(map[uuid.UUID]int),
	}
}

func (m *mockCategoryRepository) add(name string) *domain.Category {
	c := &domain.Category{ID: uuid.New(), Name: name, CreatedAt: time.Now()}
	m.categories[c.ID] = c
	return c
}

func (m *mockCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, category.Name) {
			return repository.ErrCategoryAlreadyExists
		}
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if _, ok := m.categories[category.ID]; !ok {
		return repository.ErrCategoryNotFound
	}
	m.categories[category.ID] = category
	return nil
}

func (m *mockCategoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.categories[id]; !ok {
		return repository.ErrCategoryNotFound
	}
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.listingCount[id] > 0 || m.verificationCount[id] > 0 {
		return repository.ErrCategoryInUse
	}
	delete(m.categories, id)
	return nil
}

func (m *mockCategoryRepository) sorted(less func(a, b *domain.Category) bool) []*domain.Category {
	out := make([]*domain.Category, 0, len(m.categories))
	for _, c := range m.categories {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

func (m *mockCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	return m.sorted(func(a, b *domain.Category) bool { return a.Name < b.Name }), nil
}

func (m *mockCategoryRepository) ListByCreation(ctx context.Context) ([]*domain.Category, error) {
	return m.sorted(func(a, b *domain.Category) bool { return a.CreatedAt.Before(b.CreatedAt) }), nil
}

func (m *mockCategoryRepository) Search(ctx context.Context, term string) ([]*domain.Category, error) {
	var out []*domain.Category
	for _, c := range m.sorted(func(a, b *domain.Category) bool { return a.Name < b.Name }) {
		if strings.Contains(strings.ToLower(c.Name), strings.ToLower(term)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return nil, repository.ErrCategoryNotFound
	}
	return c, nil
}

func (m *mockCategoryRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Category, error) {
	out := make(map[uuid.UUID]*domain.Category)
	for _, id := range ids {
		if c, ok := m.categories[id]; ok {
			out[id] = c
		}
	}
	return out, nil
}

func (m *mockCategoryRepository) FindByName(ctx context.Context, name string) (*domain.Category, error) {
	for _, c := range m.categories {
		if strings.EqualFold(c.Name, name) {
			return c, nil
		}
	}
	return nil, repository.ErrCategoryNotFound
}

func (m *mockCategoryRepository) CountReferences(ctx context.Context, id uuid.UUID) (repository.CategoryUsage, error) {
	if m.countErr != nil {
		return repository.CategoryUsage{}, m.countErr
	}
	return repository.CategoryUsage{Listings: m.listingCount[id], VerificationRequests: m.verificationCount[id]}, nil
}

type mockListingRepository struct {
	listings map[uuid.UUID]*domain.Listing
	order    []uuid.UUID
	// products backs PriceRanges when set
	products *mockProductRepository
}

func newMockListingRepository() *mockListingRepository {
	return &mockListingRepository{listings: make(map[uuid.UUID]*domain.Listing)}
}

func (m *mockListingRepository) add(sellerID uuid.UUID, categoryID *uuid.UUID, name string, lat, lng float64) *domain.Listing {
	l := &domain.Listing{
		ID:         uuid.New(),
		Name:       name,
		Latitude:   lat,
		Longitude:  lng,
		SellerID:   sellerID,
		CategoryID: categoryID,
		CreatedAt:  time.Now(),
	}
	_ = m.Create(context.Background(), l)
	return l
}

func (m *mockListingRepository) Create(ctx context.Context, listing *domain.Listing) error {
	m.listings[listing.ID] = listing
	m.order = append(m.order, listing.ID)
	return nil
}

func (m *mockListingRepository) Update(ctx context.Context, listing *domain.Listing) error {
	if _, ok := m.listings[listing.ID]; !ok {
		return repository.ErrListingNotFound
	}
	m.listings[listing.ID] = listing
	return nil
}

func (m *mockListingRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Listing, error) {
	l, ok := m.listings[id]
	if !ok {
		return nil, repository.ErrListingNotFound
	}
	return l, nil
}

func (m *mockListingRepository) List(ctx context.Context) ([]*domain.Listing, error) {
	out := make([]*domain.Listing, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		out = append(out, m.listings[m.order[i]])
	}
	return out, nil
}

func (m *mockListingRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Listing, error) {
	all, _ := m.List(ctx)
	out := []*domain.Listing{}
	for _, l := range all {
		if l.SellerID == sellerID {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *mockListingRepository) PriceRanges(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]domain.PriceRange, error) {
	out := make(map[uuid.UUID]domain.PriceRange)
	if m.products == nil {
		return out, nil
	}
	for _, id := range ids {
		for _, p := range m.products.products {
			if p.ListingID != id {
				continue
			}
			pr, ok := out[id]
			if !ok {
				pr = domain.PriceRange{Min: p.Price, Max: p.Price}
			}
			pr.Min = min(pr.Min, p.Price)
			pr.Max = max(pr.Max, p.Price)
			pr.Count++
			out[id] = pr
		}
	}
	return out, nil
}

func (m *mockListingRepository) WithinRadius(ctx context.Context, q repository.ProximityQuery) ([]*domain.ListingHit, error) {
	return nil, errors.New("not used in service tests")
}

type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
	listings *mockListingRepository
	stats    map[uuid.UUID]domain.PriceStats
	// lastFilter records the most recent Search call
	lastFilter repository.ProductFilter
}

func newMockProductRepository(listings *mockListingRepository) *mockProductRepository {
	m := &mockProductRepository{
		products: make(map[uuid.UUID]*domain.Product),
		listings: listings,
		stats:    make(map[uuid.UUID]domain.PriceStats),
	}
	listings.products = m
	return m
}

func (m *mockProductRepository) add(listingID uuid.UUID, name string, price float64) *domain.Product {
	p := &domain.Product{ID: uuid.New(), ListingID: listingID, Name: name, Price: price, CreatedAt: time.Now()}
	m.products[p.ID] = p
	return p
}

func (m *mockProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if _, ok := m.listings.listings[product.ListingID]; !ok {
		return repository.ErrListingNotFound
	}
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

func (m *mockProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := m.products[id]; !ok {
		return repository.ErrProductNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *mockProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return nil, repository.ErrProductNotFound
	}
	return p, nil
}

func (m *mockProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Product, error) {
	out := make(map[uuid.UUID]*domain.Product)
	for _, id := range ids {
		if p, ok := m.products[id]; ok {
			out[id] = p
		}
	}
	return out, nil
}

func (m *mockProductRepository) sorted(keep func(*domain.Product) bool) []*domain.Product {
	out := []*domain.Product{}
	for _, p := range m.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *mockProductRepository) List(ctx context.Context) ([]*domain.Product, error) {
	return m.sorted(func(*domain.Product) bool { return true }), nil
}

func (m *mockProductRepository) ListByListing(ctx context.Context, listingID uuid.UUID) ([]*domain.Product, error) {
	return m.sorted(func(p *domain.Product) bool { return p.ListingID == listingID }), nil
}

func (m *mockProductRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Product, error) {
	return m.sorted(func(p *domain.Product) bool {
		l, ok := m.listings.listings[p.ListingID]
		return ok && l.SellerID == sellerID
	}), nil
}

func (m *mockProductRepository) Search(ctx context.Context, filter repository.ProductFilter) ([]*domain.ProductMatch, error) {
	m.lastFilter = filter
	var out []*domain.ProductMatch
	for _, p := range m.sorted(func(p *domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), strings.ToLower(filter.Query))
	}) {
		out = append(out, &domain.ProductMatch{Product: p})
	}
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// PriceStats answers from the canned stats keyed by category, or from every
// product when categoryID is nil
func (m *mockProductRepository) PriceStats(ctx context.Context, categoryID *uuid.UUID, excludeSeller *uuid.UUID) (domain.PriceStats, error) {
	if categoryID != nil {
		return m.stats[*categoryID], nil
	}
	var stats domain.PriceStats
	var sum float64
	for _, p := range m.products {
		if stats.Count == 0 || p.Price < stats.Min {
			stats.Min = p.Price
		}
		stats.Max = max(stats.Max, p.Price)
		sum += p.Price
		stats.Count++
	}
	if stats.Count > 0 {
		stats.Avg = sum / float64(stats.Count)
	}
	return stats, nil
}

type mockOrderRepository struct {
	orders   map[uuid.UUID]*domain.Order
	listings *mockListingRepository
}

func newMockOrderRepository(listings *mockListingRepository) *mockOrderRepository {
	return &mockOrderRepository{orders: make(map[uuid.UUID]*domain.Order), listings: listings}
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	m.orders[order.ID] = order
	return nil
}

func (m *mockOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	o, ok := m.orders[id]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *mockOrderRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	out := []*domain.Order{}
	for _, o := range m.orders {
		if l, ok := m.listings.listings[o.ListingID]; ok && l.SellerID == sellerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, order *domain.Order, fromStatus string) error {
	stored, ok := m.orders[order.ID]
	if !ok {
		return repository.ErrOrderNotFound
	}
	if stored.Status != fromStatus {
		return repository.ErrOrderStatusConflict
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

// mockVerificationRepository mirrors the conditional updates of the SQL
// repository, guarded by a mutex so approvals can race
type mockVerificationRepository struct {
	mu       sync.Mutex
	requests map[uuid.UUID]*domain.VerificationRequest
	users    *mockUserRepository
	listings *mockListingRepository
}

func newMockVerificationRepository(users *mockUserRepository, listings *mockListingRepository) *mockVerificationRepository {
	return &mockVerificationRepository{
		requests: make(map[uuid.UUID]*domain.VerificationRequest),
		users:    users,
		listings: listings,
	}
}

func (m *mockVerificationRepository) Create(ctx context.Context, req *domain.VerificationRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.requests {
		if r.UserID == req.UserID && r.Status == domain.VerificationStatusPending {
			return repository.ErrVerificationAlreadyPending
		}
	}
	m.requests[req.ID] = req
	if u, ok := m.users.users[req.UserID]; ok {
		u.VerificationStatus = domain.AccountVerificationPending
	}
	return nil
}

func (m *mockVerificationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrVerificationNotFound
	}
	return r, nil
}

func (m *mockVerificationRepository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*domain.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *domain.VerificationRequest
	for _, r := range m.requests {
		if r.UserID == userID && (latest == nil || r.CreatedAt.After(latest.CreatedAt)) {
			latest = r
		}
	}
	if latest == nil {
		return nil, repository.ErrVerificationNotFound
	}
	return latest, nil
}

func (m *mockVerificationRepository) ListByStatus(ctx context.Context, status string) ([]*domain.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []*domain.VerificationRequest{}
	for _, r := range m.requests {
		if r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockVerificationRepository) Approve(ctx context.Context, id, reviewerID, listingID uuid.UUID, now time.Time) (*domain.VerificationRequest, *domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, nil, repository.ErrVerificationNotFound
	}
	if r.Status != domain.VerificationStatusPending {
		return nil, nil, repository.ErrVerificationNotPending
	}
	u, ok := m.users.users[r.UserID]
	if !ok {
		return nil, nil, repository.ErrUserNotFound
	}

	_ = m.listings.Create(ctx, r.ToListing(listingID, now))
	r.Status = domain.VerificationStatusApproved
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &now
	r.CreatedListingID = &listingID
	u.Role = domain.RoleSeller
	u.VerificationStatus = domain.AccountVerificationVerified
	u.Phone = r.Phone
	return r, u, nil
}

func (m *mockVerificationRepository) Reject(ctx context.Context, id, reviewerID uuid.UUID, reason string, now time.Time) (*domain.VerificationRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, repository.ErrVerificationNotFound
	}
	if r.Status != domain.VerificationStatusPending {
		return nil, repository.ErrVerificationNotPending
	}
	r.Status = domain.VerificationStatusRejected
	r.RejectionReason = reason
	r.ReviewedBy = &reviewerID
	r.ReviewedAt = &now
	if u, ok := m.users.users[r.UserID]; ok {
		u.VerificationStatus = domain.AccountVerificationRejected
	}
	return r, nil
}

type mockChatLogRepository struct {
	logs []*domain.ChatLog
}

func (m *mockChatLogRepository) Insert(ctx context.Context, log *domain.ChatLog) error {
	log.ID = fmt.Sprintf("%024x", len(m.logs)+1)
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockChatLogRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]*domain.ChatLog, int64, error) {
	var mine []*domain.ChatLog
	for i := len(m.logs) - 1; i >= 0; i-- {
		if m.logs[i].UserID == userID {
			mine = append(mine, m.logs[i])
		}
	}
	start := min((page-1)*limit, len(mine))
	end := min(start+limit, len(mine))
	return mine[start:end], int64(len(mine)), nil
}

func (m *mockChatLogRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	kept := m.logs[:0]
	var deleted int64
	for _, l := range m.logs {
		if l.UserID == userID {
			deleted++
			continue
		}
		kept = append(kept, l)
	}
	m.logs = kept
	return deleted, nil
}

// mockImageStore records saved uploads by folder
type mockImageStore struct {
	mu    sync.Mutex
	saved map[string][]string
	err   error
}

func newMockImageStore() *mockImageStore {
	return &mockImageStore{saved: make(map[string][]string)}
}

func (m *mockImageStore) Save(ctx context.Context, folder string, upload storage.Upload) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	url := "/files/" + folder + "/" + upload.Filename
	m.saved[folder] = append(m.saved[folder], url)
	return url, nil
}

func (m *mockImageStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, urls := range m.saved {
		n += len(urls)
	}
	return n
}

type publishedEvent struct {
	Type    string
	Key     string
	Payload any
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (m *mockPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, publishedEvent{Type: eventType, Key: key, Payload: payload})
	return nil
}

func (m *mockPublisher) Close() error { return nil }

// mockCompleter replies with reply or fails with err and keeps the prompts
type mockCompleter struct {
	reply    string
	err      error
	messages [][]llm.Message
}

func (m *mockCompleter) Complete(ctx context.Context, messages []llm.Message) (string, error) {
	m.messages = append(m.messages, messages)
	if m.err != nil {
		return "", m.err
	}
	return m.reply, nil
}

func testUpload(name string) *storage.Upload {
	return &storage.Upload{Filename: name, ContentType: "image/png", Size: 4, Body: strings.NewReader("data")}
}
