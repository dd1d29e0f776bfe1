package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/geo"
	"levelup-marketplace/internal/middleware"
	"levelup-marketplace/internal/repository"
	"levelup-marketplace/internal/storage"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type mockUserRepository struct {
	users map[string]*domain.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if _, exists := m.users[user.Email]; exists {
		return repository.ErrUserAlreadyExists
	}
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	m.users[user.Email] = user
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	user, exists := m.users[email]
	if !exists {
		return nil, repository.ErrUserNotFound
	}
	return user, nil
}

func (m *mockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	for _, user := range m.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindNamesByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]string, error) {
	names := make(map[uuid.UUID]string)
	for _, user := range m.users {
		for _, id := range ids {
			if user.ID == id {
				names[id] = user.FullName
			}
		}
	}
	return names, nil
}

func (m *mockUserRepository) UpdateVerificationStatus(ctx context.Context, id uuid.UUID, status string) error {
	user, err := m.FindByID(ctx, id)
	if err != nil {
		return err
	}
	user.VerificationStatus = status
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
	refreshToken, exists := m.tokens[token]
	if !exists {
		return nil, repository.ErrRefreshTokenNotFound
	}
	if refreshToken.Revoked {
		return nil, repository.ErrRefreshTokenRevoked
	}
	return refreshToken, nil
}

func (m *mockRefreshTokenRepository) Revoke(ctx context.Context, userID uuid.UUID, token string) error {
	refreshToken, exists := m.tokens[token]
	if !exists || refreshToken.UserID != userID || refreshToken.Revoked {
		return repository.ErrRefreshTokenNotFound
	}
	refreshToken.Revoked = true
	return nil
}

// mockListingStore answers proximity queries over an in-memory slice
type mockListingStore struct {
	listings []*domain.Listing
	calls    int
	err      error
}

func (m *mockListingStore) WithinRadius(ctx context.Context, q repository.ProximityQuery) ([]*domain.ListingHit, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}

	var hits []*domain.ListingHit
	for _, l := range m.listings {
		meters := geo.HaversineKm(q.Center, geo.Point{Lat: l.Latitude, Lng: l.Longitude}) * geo.MetersPerKm
		if meters > q.RadiusMeters {
			continue
		}
		if q.CategoryID != nil && (l.CategoryID == nil || *l.CategoryID != *q.CategoryID) {
			continue
		}
		if len(q.Keywords) > 0 {
			haystack := strings.ToLower(l.Name + " " + l.Address + " " + l.Caption)
			matched := false
			for _, kw := range q.Keywords {
				matched = matched || strings.Contains(haystack, kw)
			}
			if !matched {
				continue
			}
		}
		hits = append(hits, &domain.ListingHit{Listing: l, DistanceMeters: meters})
	}
	return hits, nil
}

type mockCategoryCatalog struct {
	categories []*domain.Category
}

func (m *mockCategoryCatalog) ListByCreation(ctx context.Context) ([]*domain.Category, error) {
	return m.categories, nil
}

func (m *mockCategoryCatalog) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*domain.Category, error) {
	found := make(map[uuid.UUID]*domain.Category)
	for _, id := range ids {
		for _, c := range m.categories {
			if c.ID == id {
				found[id] = c
			}
		}
	}
	return found, nil
}

// mockFileSource serves files from memory
type mockFileSource struct {
	files map[string][]byte
	types map[string]string
}

func (m *mockFileSource) Open(ctx context.Context, id string) (io.ReadCloser, string, error) {
	data, ok := m.files[id]
	if !ok {
		return nil, "", storage.ErrFileNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), m.types[id], nil
}

// withUser attaches an authenticated caller to req
func withUser(req *http.Request, id uuid.UUID, role string) *http.Request {
	return req.WithContext(middleware.WithUser(req.Context(), id, role))
}

func jsonRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeEnvelope decodes a response envelope, leaving data as raw JSON
func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) (middleware.Envelope, json.RawMessage) {
	t.Helper()
	var raw struct {
		middleware.Envelope
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	return raw.Envelope, raw.Data
}
