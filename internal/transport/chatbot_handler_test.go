package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubChatbotService struct {
	service.ChatbotService
	query       service.ProductQuery
	matches     []*domain.ProductMatch
	page, limit int
	queryErr    error
}

func (s *stubChatbotService) Query(ctx context.Context, actor service.Actor, message string) (*service.ChatReply, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return &service.ChatReply{Role: actor.Role, UserMessage: message, BotResponse: "Halo!"}, nil
}

func (s *stubChatbotService) Search(ctx context.Context, q service.ProductQuery) ([]*domain.ProductMatch, error) {
	s.query = q
	return s.matches, nil
}

func (s *stubChatbotService) History(ctx context.Context, userID uuid.UUID, page, limit int) (*service.ChatHistory, error) {
	s.page, s.limit = page, limit
	return &service.ChatHistory{Chats: []*domain.ChatLog{}}, nil
}

func (s *stubChatbotService) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	return 4, nil
}

func newChatbotRouter(svc service.ChatbotService, role string) chi.Router {
	user := uuid.New()
	auth := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, withUser(r, user, role))
		})
	}
	r := chi.NewRouter()
	NewChatbotHandler(svc, zap.NewNop()).RegisterRoutes(r, auth, func(next http.Handler) http.Handler { return next })
	return r
}

func TestChatbotQuery(t *testing.T) {
	tests := []struct {
		name string
		body ChatQueryRequest
		err  error
		want int
	}{
		{"answered", ChatQueryRequest{Message: "Produk apa yang laris?"}, nil, http.StatusOK},
		{"empty message", ChatQueryRequest{}, nil, http.StatusBadRequest},
		{"too long", ChatQueryRequest{Message: "x"}, service.ErrMessageTooLong, http.StatusBadRequest},
		{"admin", ChatQueryRequest{Message: "halo"}, service.ErrForbidden, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newChatbotRouter(&stubChatbotService{queryErr: tt.err}, domain.RoleBuyer)

			w := httptest.NewRecorder()
			r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/chatbot/query", tt.body))
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestChatbotSearchShapesProducts(t *testing.T) {
	listing := uuid.New()
	svc := &stubChatbotService{matches: []*domain.ProductMatch{{
		Product:      &domain.Product{ID: uuid.New(), ListingID: listing, Name: "Kopi Gayo", Price: 25000},
		ListingName:  "Kedai Aceh",
		CategoryName: "Minuman",
	}}}
	r := newChatbotRouter(svc, domain.RoleBuyer)

	minPrice := 10000.0
	w := httptest.NewRecorder()
	r.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/chatbot/search", ProductSearchRequest{
		Query:    "kopi",
		Category: "Minuman",
		MinPrice: &minPrice,
	}))
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "kopi", svc.query.Query)
	require.NotNil(t, svc.query.MinPrice)
	assert.Equal(t, 10000.0, *svc.query.MinPrice)
	assert.Nil(t, svc.query.MaxPrice)

	_, data := decodeEnvelope(t, w)
	var resp ProductSearchResponse
	require.NoError(t, json.Unmarshal(data, &resp))
	assert.Equal(t, 1, resp.TotalFound)
	assert.Equal(t, "Kedai Aceh", resp.Products[0].Listing.Name)
	assert.Equal(t, listing, resp.Products[0].Listing.ID)
}

func TestChatbotHistoryPagination(t *testing.T) {
	svc := &stubChatbotService{}
	r := newChatbotRouter(svc, domain.RoleBuyer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chatbot/history?page=2&limit=5", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, svc.page)
	assert.Equal(t, 5, svc.limit)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chatbot/history?page=abc", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Zero(t, svc.page)
}

func TestChatbotClearHistory(t *testing.T) {
	r := newChatbotRouter(&stubChatbotService{}, domain.RoleBuyer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/chatbot/history", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"deleted_count":4`)
}

func TestChatbotInsightsRequiresSeller(t *testing.T) {
	r := newChatbotRouter(&stubChatbotService{}, domain.RoleBuyer)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/chatbot/insights", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)
}
