package repo

import (
	"context"

	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// ChatRepository — доступ к зашифрованным сообщениям комнат.
type ChatRepository interface {
	CreateMessage(ctx context.Context, m *model.ChatMessage) error
	// ListMessages — последние limit сообщений комнаты, новые первыми.
	ListMessages(ctx context.Context, roomID int64, limit, offset int) ([]model.ChatMessage, error)
}

type chatRepo struct {
	db *gorm.DB
}

// NewChatRepository создаёт реализацию репозитория для ChatMessage.
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepo{db: db}
}

func (r *chatRepo) CreateMessage(ctx context.Context, m *model.ChatMessage) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *chatRepo) ListMessages(ctx context.Context, roomID int64, limit, offset int) ([]model.ChatMessage, error) {
	var msgs []model.ChatMessage
	err := r.db.WithContext(ctx).Preload("Sender").
		Where("room_id = ?", roomID).
		Order("sent_at DESC, id DESC").
		Offset(offset).Limit(limit).Find(&msgs).Error
	return msgs, err
}
