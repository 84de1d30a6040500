package handlers

import (
	"net/http"
	"strconv"
	"time"

	"SecureVault/internal/model"
	"SecureVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// VersionHandler снимки и восстановление версий файла.
type VersionHandler struct {
	FileService *service.FileService
	Logger      *zap.SugaredLogger
}

// NewVersionHandler создаёт хендлер версий
func NewVersionHandler(fileService *service.FileService, logger *zap.SugaredLogger) *VersionHandler {
	return &VersionHandler{FileService: fileService, Logger: logger}
}

type versionDTO struct {
	VersionNumber int    `json:"version_number"`
	FileSize      int64  `json:"file_size"`
	CreatedAt     string `json:"created_at"`
}

func toVersionDTO(v *model.FileVersion) versionDTO {
	return versionDTO{
		VersionNumber: v.VersionNumber,
		FileSize:      v.FileSize,
		CreatedAt:     v.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// List отдаёт версии файла, новые первыми.
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	f, versions, err := h.FileService.ListVersions(r.Context(), fileID, userID)
	if err != nil {
		serviceError(w, err)
		return
	}
	out := make([]versionDTO, 0, len(versions))
	for i := range versions {
		out = append(out, toVersionDTO(&versions[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"current_version": f.CurrentVersion,
		"versions":        out,
	})
}

// Snapshot сохраняет текущее состояние файла как новую версию.
func (h *VersionHandler) Snapshot(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	v, err := h.FileService.SnapshotVersion(r.Context(), fileID, userID)
	if err != nil {
		h.Logger.Warnw("Snapshot failed", "file_id", fileID, "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVersionDTO(v))
}

// Restore откатывает файл к указанной версии.
func (h *VersionHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}
	version, err := strconv.Atoi(chi.URLParam(r, "version"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid version number")
		return
	}

	f, err := h.FileService.RestoreVersion(r.Context(), fileID, version, userID)
	if err != nil {
		h.Logger.Warnw("Restore failed", "file_id", fileID, "version", version, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toFileDTO(f))
}
