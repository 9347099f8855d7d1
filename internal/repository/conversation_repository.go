package repository

import (
	"context"
	"time"

	"counto/internal/models"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConversationRepository struct {
	db     DBTX
	logger *zap.Logger
}

func NewConversationRepository(db DBTX, logger *zap.Logger) *ConversationRepository {
	return &ConversationRepository{
		db:     db,
		logger: logger,
	}
}

func (r *ConversationRepository) Create(ctx context.Context, c *models.Conversation) error {
	query := squirrel.Insert("conversations").
		Columns("id", "user_id", "created_at", "updated_at").
		Values(c.ID, c.UserID, c.CreatedAt, c.UpdatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err, "conversation", c.ID)
}

func (r *ConversationRepository) Get(ctx context.Context, id, userID uuid.UUID) (*models.Conversation, error) {
	query := squirrel.Select("id", "user_id", "created_at", "updated_at").
		From("conversations").
		Where(squirrel.Eq{"id": id, "user_id": userID}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	var c models.Conversation
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, mapError(err, "conversation", id)
	}
	return &c, nil
}

func (r *ConversationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Conversation, error) {
	query := squirrel.Select("id", "user_id", "created_at", "updated_at").
		From("conversations").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("updated_at DESC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conversations []*models.Conversation
	for rows.Next() {
		var c models.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		conversations = append(conversations, &c)
	}
	return conversations, rows.Err()
}

func (r *ConversationRepository) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	query := squirrel.Update("conversations").
		Set("updated_at", at).
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return err
}

func (r *ConversationRepository) AppendMessage(ctx context.Context, m *models.Message) error {
	query := squirrel.Insert("messages").
		Columns("id", "conversation_id", "sender", "content", "created_at").
		Values(m.ID, m.ConversationID, m.Sender, m.Content, m.CreatedAt).
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err, "conversation", m.ConversationID)
}

func (r *ConversationRepository) Messages(ctx context.Context, conversationID uuid.UUID, limit int) ([]*models.Message, error) {
	inner := squirrel.Select("id", "conversation_id", "sender", "content", "created_at").
		From("messages").
		Where(squirrel.Eq{"conversation_id": conversationID}).
		OrderBy("created_at DESC")
	if limit > 0 {
		inner = inner.Limit(uint64(limit))
	}

	// newest N, returned oldest first
	query := squirrel.Select("*").
		FromSelect(inner, "recent").
		OrderBy("created_at ASC").
		PlaceholderFormat(squirrel.Dollar)

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.CreatedAt); err != nil {
			return nil, err
		}
		messages = append(messages, &m)
	}
	return messages, rows.Err()
}
