package service

import (
	"context"
	"fmt"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
)

const defaultChatLimit = 50

// ChatService — обмен зашифрованными сообщениями внутри комнаты.
// Шифрование — на стороне клиента ключом комнаты; сервис проверяет
// роль участника и сохраняет тройку (шифртекст, nonce, tag) как есть,
// расшифровать её он не способен.
type ChatService struct {
	chat  repo.ChatRepository
	rooms *RoomService
	audit *AuditService
}

func NewChatService(chat repo.ChatRepository, rooms *RoomService, audit *AuditService) *ChatService {
	return &ChatService{chat: chat, rooms: rooms, audit: audit}
}

// PostMessage сохраняет шифртекст сообщения (роль member и выше).
func (s *ChatService) PostMessage(ctx context.Context, roomID, senderID int64, ciphertext, nonce, tag []byte) (*model.ChatMessage, error) {
	ok, err := s.rooms.CheckPermission(ctx, roomID, senderID, model.RoleMember)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: viewers cannot send messages", ErrPermissionDenied)
	}

	if len(ciphertext) == 0 || len(nonce) == 0 || len(tag) == 0 {
		return nil, fmt.Errorf("%w: ciphertext, nonce and tag are required", ErrValidation)
	}

	m := &model.ChatMessage{
		RoomID:     roomID,
		SenderID:   senderID,
		Ciphertext: ciphertext,
		Nonce:      nonce,
		Tag:        tag,
	}
	if err := s.chat.CreateMessage(ctx, m); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, senderID, "chat_send", fmt.Sprintf("message to room %d", roomID))
	return m, nil
}

// History — последние сообщения комнаты в хронологическом порядке
// (роль viewer и выше). Отдаётся шифртекст, расшифровка — у клиента.
func (s *ChatService) History(ctx context.Context, roomID, userID int64, limit, offset int) ([]model.ChatMessage, error) {
	ok, err := s.rooms.CheckPermission(ctx, roomID, userID, model.RoleViewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRoomMember
	}

	if limit <= 0 {
		limit = defaultChatLimit
	}
	msgs, err := s.chat.ListMessages(ctx, roomID, limit, offset)
	if err != nil {
		return nil, err
	}
	// Репозиторий отдаёт новые первыми; история читается сверху вниз.
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}
