package repository

import (
	"context"
	"fmt"

	"levelup-marketplace/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const chatLogCollection = "chatbot_logs"

// ChatLogRepository stores chatbot exchanges in the document store
type ChatLogRepository interface {
	Insert(ctx context.Context, log *domain.ChatLog) error
	ListByUser(ctx context.Context, userID string, page, limit int) ([]*domain.ChatLog, int64, error)
	DeleteByUser(ctx context.Context, userID string) (int64, error)
}

type chatLogRepository struct {
	collection *mongo.Collection
}

// NewChatLogRepository creates a ChatLogRepository over db
func NewChatLogRepository(db *mongo.Database) ChatLogRepository {
	return &chatLogRepository{collection: db.Collection(chatLogCollection)}
}

// EnsureChatLogIndexes creates the per-user history index
func EnsureChatLogIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(chatLogCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("failed to create chat log index: %w", err)
	}
	return nil
}

// Insert stores a chat exchange and sets its ID
func (r *chatLogRepository) Insert(ctx context.Context, log *domain.ChatLog) error {
	result, err := r.collection.InsertOne(ctx, log)
	if err != nil {
		return fmt.Errorf("failed to insert chat log: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		log.ID = oid.Hex()
	}
	return nil
}

// ListByUser returns one page of a user's history, newest first, and the
// total number of exchanges
func (r *chatLogRepository) ListByUser(ctx context.Context, userID string, page, limit int) ([]*domain.ChatLog, int64, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}

	filter := bson.M{"user_id": userID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chat logs: %w", err)
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64((page - 1) * limit)).
		SetLimit(int64(limit))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list chat logs: %w", err)
	}
	defer cursor.Close(ctx)

	logs := []*domain.ChatLog{}
	if err := cursor.All(ctx, &logs); err != nil {
		return nil, 0, fmt.Errorf("failed to decode chat logs: %w", err)
	}

	return logs, total, nil
}

// DeleteByUser clears a user's history and reports how many exchanges were
// removed
func (r *chatLogRepository) DeleteByUser(ctx context.Context, userID string) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete chat logs: %w", err)
	}
	return result.DeletedCount, nil
}
