package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"SecureVault/internal/model"
	"SecureVault/internal/service"
)

// ChatHandler зашифрованные сообщения комнат.
type ChatHandler struct {
	ChatService *service.ChatService
	Logger      *zap.SugaredLogger
}

// NewChatHandler создаёт хендлер чата комнат
func NewChatHandler(chatService *service.ChatService, logger *zap.SugaredLogger) *ChatHandler {
	return &ChatHandler{ChatService: chatService, Logger: logger}
}

// Байтовые поля ходят по проводу как base64 (стандартный JSON-маршалинг
// []byte): сервер видит только шифртекст.
type chatMessageDTO struct {
	ID             int64  `json:"id"`
	RoomID         int64  `json:"room_id"`
	SenderID       int64  `json:"sender_id"`
	SenderUsername string `json:"sender_username,omitempty"`
	Ciphertext     []byte `json:"ciphertext"`
	Nonce          []byte `json:"nonce"`
	Tag            []byte `json:"tag"`
	SentAt         string `json:"sent_at"`
}

func toChatMessageDTO(m *model.ChatMessage) chatMessageDTO {
	dto := chatMessageDTO{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		Ciphertext: m.Ciphertext,
		Nonce:      m.Nonce,
		Tag:        m.Tag,
		SentAt:     m.SentAt.UTC().Format(time.RFC3339),
	}
	if m.Sender != nil {
		dto.SenderUsername = m.Sender.Username
	}
	return dto
}

type postMessageRequest struct {
	Ciphertext []byte `json:"ciphertext"`
	Nonce      []byte `json:"nonce"`
	Tag        []byte `json:"tag"`
}

// Post принимает зашифрованное сообщение в комнату (роль member и выше).
func (h *ChatHandler) Post(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	m, err := h.ChatService.PostMessage(r.Context(), roomID, userID, req.Ciphertext, req.Nonce, req.Tag)
	if err != nil {
		h.Logger.Warnw("PostMessage failed", "room_id", roomID, "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toChatMessageDTO(m))
}

// History отдаёт историю комнаты в хронологическом порядке (viewer+).
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))

	msgs, err := h.ChatService.History(r.Context(), roomID, userID, limit, offset)
	if err != nil {
		serviceError(w, err)
		return
	}
	out := make([]chatMessageDTO, 0, len(msgs))
	for i := range msgs {
		out = append(out, toChatMessageDTO(&msgs[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room_id":  roomID,
		"messages": out,
		"count":    len(out),
	})
}
