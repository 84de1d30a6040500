package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"SecureVault/internal/model"
	"SecureVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// SecurityHandler share-ссылки и журнал аудита.
type SecurityHandler struct {
	ShareService *service.ShareService
	AuditService *service.AuditService
	Logger       *zap.SugaredLogger
}

// NewSecurityHandler создаёт хендлер безопасности
func NewSecurityHandler(shareService *service.ShareService, auditService *service.AuditService, logger *zap.SugaredLogger) *SecurityHandler {
	return &SecurityHandler{ShareService: shareService, AuditService: auditService, Logger: logger}
}

type createShareRequest struct {
	TTLMinutes int    `json:"ttl_minutes"`
	Passphrase string `json:"passphrase,omitempty"`
}

// CreateShare выдаёт одноразовую ссылку на файл.
func (h *SecurityHandler) CreateShare(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	link, err := h.ShareService.Create(r.Context(), fileID, userID,
		time.Duration(req.TTLMinutes)*time.Minute, req.Passphrase)
	if err != nil {
		h.Logger.Warnw("CreateShare failed", "file_id", fileID, "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"token":  link.Token,
		"expiry": link.Expiry.UTC().Format(time.RFC3339),
	})
}

type accessShareRequest struct {
	Passphrase     string `json:"passphrase,omitempty"`
	FilePassphrase string `json:"file_passphrase"`
}

// AccessShare расшифровывает файл по токену ссылки. Аутентификация не нужна.
func (h *SecurityHandler) AccessShare(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req accessShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	plain, f, err := h.ShareService.Access(r.Context(), token, req.Passphrase, req.FilePassphrase)
	if err != nil {
		h.Logger.Warnw("AccessShare failed", "token", token, "error", err)
		serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(plain)
}

type auditDTO struct {
	UserID    *int64 `json:"user_id,omitempty"`
	Action    string `json:"action"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Timestamp string `json:"timestamp"`
}

func toAuditDTOs(logs []model.AuditLog) []auditDTO {
	out := make([]auditDTO, 0, len(logs))
	for i := range logs {
		l := &logs[i]
		out = append(out, auditDTO{
			UserID:    l.UserID,
			Action:    l.Action,
			Status:    l.Status,
			Detail:    l.Detail,
			Timestamp: l.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return out
}

// AuditLogs отдаёт последние записи аудита текущего пользователя.
func (h *SecurityHandler) AuditLogs(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.AuditService.UserLogs(r.Context(), userID, limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(logs))
}

// FailedLogins отдаёт последние неуспешные попытки входа.
func (h *SecurityHandler) FailedLogins(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	logs, err := h.AuditService.FailedLogins(r.Context(), limit)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toAuditDTOs(logs))
}
