package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"SecureVault/internal/config"
	"SecureVault/internal/model"
	"SecureVault/internal/service"

	"go.uber.org/zap"
)

// RoomHandler комнаты, участники и файлы комнат.
type RoomHandler struct {
	RoomService *service.RoomService
	FileService *service.FileService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewRoomHandler создаёт хендлер комнат
func NewRoomHandler(roomService *service.RoomService, fileService *service.FileService, logger *zap.SugaredLogger, cfg *config.Config) *RoomHandler {
	return &RoomHandler{RoomService: roomService, FileService: fileService, Logger: logger, Config: cfg}
}

type roomDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	OwnerID     int64  `json:"owner_id"`
	Role        string `json:"role,omitempty"`
	CreatedAt   string `json:"created_at"`
}

func toRoomDTO(room *model.Room, role string) roomDTO {
	return roomDTO{
		ID:          room.ID,
		Name:        room.Name,
		Description: room.Description,
		OwnerID:     room.OwnerID,
		Role:        role,
		CreatedAt:   room.CreatedAt.UTC().Format(time.RFC3339),
	}
}

type memberDTO struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username,omitempty"`
	Role     string `json:"role"`
	JoinedAt string `json:"joined_at"`
}

type createRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Create создаёт комнату; создатель становится owner.
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req createRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	room, err := h.RoomService.CreateRoom(r.Context(), userID, req.Name, req.Description)
	if err != nil {
		h.Logger.Warnw("CreateRoom failed", "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRoomDTO(room, model.RoleOwner))
}

// List отдаёт комнаты пользователя вместе с его ролью в каждой.
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	rooms, roles, err := h.RoomService.ListRooms(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}
	out := make([]roomDTO, 0, len(rooms))
	for i := range rooms {
		out = append(out, toRoomDTO(&rooms[i], roles[rooms[i].ID]))
	}
	writeJSON(w, http.StatusOK, out)
}

// Get отдаёт комнату и список участников.
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	room, members, err := h.RoomService.GetRoom(r.Context(), roomID, userID)
	if err != nil {
		serviceError(w, err)
		return
	}

	out := make([]memberDTO, 0, len(members))
	role := ""
	for i := range members {
		m := &members[i]
		dto := memberDTO{UserID: m.UserID, Role: m.Role, JoinedAt: m.JoinedAt.UTC().Format(time.RFC3339)}
		if m.User != nil {
			dto.Username = m.User.Username
		}
		if m.UserID == userID {
			role = m.Role
		}
		out = append(out, dto)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"room":    toRoomDTO(room, role),
		"members": out,
	})
}

// Delete удаляет комнату со всеми файлами. Только owner.
func (h *RoomHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	if err := h.RoomService.DeleteRoom(r.Context(), roomID, userID); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type addMemberRequest struct {
	UserID int64  `json:"user_id"`
	Role   string `json:"role"`
}

// AddMember добавляет участника и раздаёт ему обёрнутый ключ комнаты.
func (h *RoomHandler) AddMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	var req addMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.RoomService.AddMember(r.Context(), roomID, req.UserID, req.Role, actorID); err != nil {
		h.Logger.Warnw("AddMember failed", "room_id", roomID, "user_id", req.UserID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"status": "added"})
}

// RemoveMember убирает участника и его копию ключа комнаты.
func (h *RoomHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	userID, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	if err := h.RoomService.RemoveMember(r.Context(), roomID, userID, actorID); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}

type changeRoleRequest struct {
	Role string `json:"role"`
}

// ChangeRole меняет роль участника. Только owner.
func (h *RoomHandler) ChangeRole(w http.ResponseWriter, r *http.Request) {
	actorID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	userID, err := parseID(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	var req changeRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.RoomService.ChangeRole(r.Context(), roomID, userID, req.Role, actorID); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// UploadFile шифрует файл в комнату (роль member и выше).
func (h *RoomHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	fh := &FileHandler{FileService: h.FileService, Logger: h.Logger, Config: h.Config}
	filename, data, ok := fh.readUploadForm(w, r)
	if !ok {
		return
	}

	f, err := h.FileService.UploadToRoom(r.Context(), roomID, userID, filename, data,
		r.FormValue("passphrase"), r.FormValue("algorithm"))
	if err != nil {
		h.Logger.Warnw("UploadToRoom failed", "room_id", roomID, "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFileDTO(f))
}

// ListFiles отдаёт файлы комнаты (роль viewer и выше).
func (h *RoomHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}

	files, err := h.FileService.ListRoomFiles(r.Context(), roomID, userID)
	if err != nil {
		serviceError(w, err)
		return
	}
	out := make([]fileDTO, 0, len(files))
	for i := range files {
		out = append(out, toFileDTO(&files[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

// DecryptFile расшифровывает файл комнаты (роль viewer и выше).
func (h *RoomHandler) DecryptFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	roomID, err := parseID(r, "roomID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid room id")
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	var req decryptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	plain, f, err := h.FileService.DecryptRoomFile(r.Context(), roomID, fileID, userID, req.Passphrase)
	if err != nil {
		h.Logger.Warnw("DecryptRoomFile failed", "room_id", roomID, "file_id", fileID, "error", err)
		serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(plain)
}
