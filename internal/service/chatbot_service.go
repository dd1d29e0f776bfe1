package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"levelup-marketplace/internal/domain"
	"levelup-marketplace/internal/llm"
	"levelup-marketplace/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxChatMessageRunes = 1000
	defaultSearchLimit  = 10
	maxSearchLimit      = 50
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	ErrEmptyMessage    = errors.New("message cannot be empty")
	ErrMessageTooLong  = errors.New("message is too long, the maximum is 1000 characters")
	ErrNoListing       = errors.New("seller has no registered umkm")
	ErrEmptySearchText = errors.New("search query cannot be empty")
)

// Business health statuses
const (
	HealthExcellent        = "excellent"
	HealthGood             = "good"
	HealthFair             = "fair"
	HealthNeedsImprovement = "needs_improvement"
)

// ChatReply is the answer to one chatbot message
type ChatReply struct {
	Role        string    `json:"role"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	ChatID      string    `json:"chat_id"`
	Timestamp   time.Time `json:"timestamp"`
}

// ProductQuery filters the chatbot product search
type ProductQuery struct {
	Query    string
	Category string
	MinPrice *float64
	MaxPrice *float64
	Limit    int
}

// BusinessHealth scores how complete a seller's catalog is
type BusinessHealth struct {
	Score  int    `json:"score"`
	Status string `json:"status"`
}

// SellerInsights summarises a seller's catalog with concrete next steps
type SellerInsights struct {
	BusinessHealth       BusinessHealth `json:"business_health"`
	PriceCompetitiveness string         `json:"price_competitiveness"`
	TotalProducts        int            `json:"total_products"`
	Recommendations      []string       `json:"recommendations"`
	NextSteps            []string       `json:"next_steps"`
}

// Pagination describes one page of a list
type Pagination struct {
	CurrentPage int   `json:"current_page"`
	TotalPages  int   `json:"total_pages"`
	Total       int64 `json:"total_chats"`
	PerPage     int   `json:"per_page"`
}

// ChatHistory is one page of a user's chat log
type ChatHistory struct {
	Chats      []*domain.ChatLog `json:"chats"`
	Pagination Pagination        `json:"pagination"`
}

// ChatbotService defines the interface for the marketplace assistant
type ChatbotService interface {
	Query(ctx context.Context, actor Actor, message string) (*ChatReply, error)
	Search(ctx context.Context, q ProductQuery) ([]*domain.ProductMatch, error)
	Insights(ctx context.Context, sellerID uuid.UUID) (*SellerInsights, error)
	History(ctx context.Context, userID uuid.UUID, page, limit int) (*ChatHistory, error)
	ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error)
}

type chatbotService struct {
	llm        llm.Completer
	chatLogs   repository.ChatLogRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	listings   repository.ListingRepository
	products   repository.ProductRepository
	logger     *zap.Logger
	now        func() time.Time
}

// NewChatbotService creates a new instance of ChatbotService
func NewChatbotService(
	completer llm.Completer,
	chatLogs repository.ChatLogRepository,
	users repository.UserRepository,
	categories repository.CategoryRepository,
	listings repository.ListingRepository,
	products repository.ProductRepository,
	logger *zap.Logger,
) ChatbotService {
	return &chatbotService{
		llm:        completer,
		chatLogs:   chatLogs,
		users:      users,
		categories: categories,
		listings:   listings,
		products:   products,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Query answers a buyer or seller message with a prompt grounded on
// marketplace data. A model failure yields a fixed apology instead of an
// error. Every exchange is logged.
func (s *chatbotService) Query(ctx context.Context, actor Actor, message string) (*ChatReply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > maxChatMessageRunes {
		return nil, ErrMessageTooLong
	}

	if _, err := s.users.FindByID(ctx, actor.UserID); err != nil {
		return nil, err
	}

	var (
		systemPrompt string
		chatContext  any
		summary      string
	)
	switch actor.Role {
	case domain.RoleSeller:
		sc, err := s.sellerContext(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		systemPrompt, chatContext, summary = sellerSystemPrompt, sc, sc.summary()
	case domain.RoleBuyer:
		bc, err := s.buyerContext(ctx)
		if err != nil {
			return nil, err
		}
		systemPrompt, chatContext, summary = buyerSystemPrompt, bc, bc.summary()
	default:
		return nil, ErrForbidden
	}

	prompt, err := buildPrompt(systemPrompt, message, chatContext)
	if err != nil {
		return nil, err
	}

	reply, err := s.llm.Complete(ctx, []llm.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Error("Chatbot completion failed",
			zap.String("user_id", actor.UserID.String()),
			zap.Error(err),
		)
		reply = apologyReply
	}

	now := s.now()
	log := &domain.ChatLog{
		UserID:         actor.UserID.String(),
		UserRole:       actor.Role,
		UserMessage:    message,
		BotResponse:    reply,
		ContextType:    actor.Role,
		ContextSummary: summary,
		CreatedAt:      now,
	}
	if err := s.chatLogs.Insert(ctx, log); err != nil {
		return nil, err
	}

	return &ChatReply{
		Role:        actor.Role,
		UserMessage: message,
		BotResponse: reply,
		ChatID:      log.ID,
		Timestamp:   now,
	}, nil
}

// Search finds products by name or description
func (s *chatbotService) Search(ctx context.Context, q ProductQuery) ([]*domain.ProductMatch, error) {
	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, ErrEmptySearchText
	}
	if q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice {
		return nil, invalidInput("min_price cannot exceed max_price")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	limit = min(limit, maxSearchLimit)

	category := strings.TrimSpace(q.Category)
	if strings.EqualFold(category, "all") {
		category = ""
	}

	return s.products.Search(ctx, repository.ProductFilter{
		Query:        query,
		CategoryName: category,
		MinPrice:     q.MinPrice,
		MaxPrice:     q.MaxPrice,
		Limit:        limit,
	})
}

func healthStatus(score int) string {
	switch {
	case score >= 80:
		return HealthExcellent
	case score >= 60:
		return HealthGood
	case score >= 40:
		return HealthFair
	default:
		return HealthNeedsImprovement
	}
}

// Insights scores a seller's catalog and lists what to do next
func (s *chatbotService) Insights(ctx context.Context, sellerID uuid.UUID) (*SellerInsights, error) {
	sc, err := s.sellerContext(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if !sc.HasListing {
		return nil, ErrNoListing
	}

	score := sc.Quality.CompletionRate
	insights := &SellerInsights{
		BusinessHealth:       BusinessHealth{Score: score, Status: healthStatus(score)},
		PriceCompetitiveness: sc.Market.PricePosition,
		TotalProducts:        sc.Summary.TotalProducts,
		Recommendations:      sc.Recommendations,
		NextSteps:            []string{},
	}

	switch {
	case insights.TotalProducts == 0:
		insights.NextSteps = append(insights.NextSteps, "Tambahkan produk pertama Anda hari ini")
	case insights.TotalProducts < minimumCatalogProducts:
		insights.NextSteps = append(insights.NextSteps, "Perbanyak variasi produk hingga minimal 5 item")
	}
	if sc.Quality.WithoutImage > 0 {
		insights.NextSteps = append(insights.NextSteps, "Upload foto untuk semua produk")
	}
	if score < 80 {
		insights.NextSteps = append(insights.NextSteps, "Lengkapi deskripsi produk untuk meningkatkan conversion")
	}
	if insights.PriceCompetitiveness == PriceAboveMarket {
		insights.NextSteps = append(insights.NextSteps, "Pertimbangkan untuk adjust harga atau highlight value proposition Anda")
	}

	return insights, nil
}

// History returns one page of the user's chat log, newest first
func (s *chatbotService) History(ctx context.Context, userID uuid.UUID, page, limit int) (*ChatHistory, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultHistoryLimit
	}
	limit = min(limit, maxHistoryLimit)

	chats, total, err := s.chatLogs.ListByUser(ctx, userID.String(), page, limit)
	if err != nil {
		return nil, err
	}

	return &ChatHistory{
		Chats: chats,
		Pagination: Pagination{
			CurrentPage: page,
			TotalPages:  int(math.Ceil(float64(total) / float64(limit))),
			Total:       total,
			PerPage:     limit,
		},
	}, nil
}

func (s *chatbotService) ClearHistory(ctx context.Context, userID uuid.UUID) (int64, error) {
	deleted, err := s.chatLogs.DeleteByUser(ctx, userID.String())
	if err != nil {
		return 0, err
	}

	s.logger.Info("Chat history cleared",
		zap.String("user_id", userID.String()),
		zap.Int64("deleted", deleted),
	)
	return deleted, nil
}
