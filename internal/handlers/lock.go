package handlers

import (
	"net/http"
	"time"

	"SecureVault/internal/model"
	"SecureVault/internal/service"

	"go.uber.org/zap"
)

// LockHandler советующие блокировки файлов.
type LockHandler struct {
	LockService *service.LockService
	Logger      *zap.SugaredLogger
}

// NewLockHandler создаёт хендлер блокировок
func NewLockHandler(lockService *service.LockService, logger *zap.SugaredLogger) *LockHandler {
	return &LockHandler{LockService: lockService, Logger: logger}
}

type lockDTO struct {
	FileID    int64  `json:"file_id"`
	LockedBy  int64  `json:"locked_by"`
	LockedAt  string `json:"locked_at"`
	ExpiresAt string `json:"expires_at"`
}

func toLockDTO(l *model.FileLock) lockDTO {
	return lockDTO{
		FileID:    l.FileID,
		LockedBy:  l.LockedBy,
		LockedAt:  l.LockedAt.UTC().Format(time.RFC3339),
		ExpiresAt: l.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

// Acquire берёт (или продлевает свою) блокировку.
func (h *LockHandler) Acquire(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	lock, err := h.LockService.Acquire(r.Context(), fileID, userID)
	if err != nil {
		h.Logger.Warnw("Lock acquire failed", "file_id", fileID, "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLockDTO(lock))
}

// Release снимает блокировку.
func (h *LockHandler) Release(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := h.LockService.Release(r.Context(), fileID, userID); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "released"})
}

// Status отдаёт активную блокировку либо {"locked": false}.
func (h *LockHandler) Status(w http.ResponseWriter, r *http.Request) {
	if _, ok := requireUser(w, r); !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	lock, err := h.LockService.Status(r.Context(), fileID)
	if err != nil {
		serviceError(w, err)
		return
	}
	if lock == nil {
		writeJSON(w, http.StatusOK, map[string]any{"locked": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"locked": true, "lock": toLockDTO(lock)})
}
