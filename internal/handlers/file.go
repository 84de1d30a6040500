package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"SecureVault/internal/config"
	"SecureVault/internal/model"
	"SecureVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// FileHandler обрабатывает загрузку, расшифровку и удаление личных файлов.
type FileHandler struct {
	FileService *service.FileService
	Logger      *zap.SugaredLogger
	Config      *config.Config
}

// NewFileHandler создаёт хендлер файлов
func NewFileHandler(fileService *service.FileService, logger *zap.SugaredLogger, cfg *config.Config) *FileHandler {
	return &FileHandler{FileService: fileService, Logger: logger, Config: cfg}
}

type fileDTO struct {
	ID             int64  `json:"id"`
	Filename       string `json:"filename"`
	Algorithm      string `json:"algorithm"`
	FileSize       int64  `json:"file_size"`
	CurrentVersion int    `json:"current_version"`
	RoomID         *int64 `json:"room_id,omitempty"`
	UploadTime     string `json:"upload_time"`
	ExpiryTime     string `json:"expiry_time,omitempty"`
}

func toFileDTO(f *model.File) fileDTO {
	dto := fileDTO{
		ID:             f.ID,
		Filename:       f.Filename,
		Algorithm:      f.Algorithm,
		FileSize:       f.FileSize,
		CurrentVersion: f.CurrentVersion,
		RoomID:         f.RoomID,
		UploadTime:     f.UploadTime.UTC().Format(time.RFC3339),
	}
	if f.ExpiryTime != nil {
		dto.ExpiryTime = f.ExpiryTime.UTC().Format(time.RFC3339)
	}
	return dto
}

func parseID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

// readUploadForm читает multipart-форму с полем file и возвращает содержимое.
func (h *FileHandler) readUploadForm(w http.ResponseWriter, r *http.Request) (name string, data []byte, ok bool) {
	maxBody := int64(h.Config.UploadMaxSizeMB)*1024*1024 + 1*1024*1024
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(10 << 20); err != nil {
		h.Logger.Warnw("Upload: invalid multipart form", "error", err)
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return "", nil, false
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file")
		return "", nil, false
	}
	defer file.Close()

	data, err = io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "failed to read file")
		return "", nil, false
	}
	if int64(len(data)) > int64(h.Config.UploadMaxSizeMB)*1024*1024 {
		writeError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return "", nil, false
	}
	return header.Filename, data, true
}

// Upload принимает multipart-форму: file, passphrase, algorithm, expiry_hours.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	filename, data, ok := h.readUploadForm(w, r)
	if !ok {
		return
	}

	var expiry *time.Time
	if v := r.FormValue("expiry_hours"); v != "" {
		hours, err := strconv.Atoi(v)
		if err != nil || hours <= 0 {
			writeError(w, http.StatusBadRequest, "invalid expiry_hours")
			return
		}
		t := time.Now().Add(time.Duration(hours) * time.Hour)
		expiry = &t
	}

	f, err := h.FileService.Upload(r.Context(), userID, filename, data,
		r.FormValue("passphrase"), r.FormValue("algorithm"), expiry)
	if err != nil {
		h.Logger.Warnw("Upload failed", "user_id", userID, "error", err)
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toFileDTO(f))
}

// List отдаёт личные файлы пользователя.
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	files, err := h.FileService.ListPersonal(r.Context(), userID)
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

type decryptRequest struct {
	Passphrase string `json:"passphrase"`
}

// Decrypt отдаёт расшифрованное содержимое как вложение.
func (h *FileHandler) Decrypt(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
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

	plain, f, err := h.FileService.Decrypt(r.Context(), fileID, userID, req.Passphrase)
	if err != nil {
		h.Logger.Warnw("Decrypt failed", "user_id", userID, "file_id", fileID, "error", err)
		serviceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.Filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(plain)
}

// Delete безвозвратно удаляет файл вместе с версиями.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	fileID, err := parseID(r, "fileID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid file id")
		return
	}

	if err := h.FileService.Delete(r.Context(), fileID, userID); err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// Stats количество и суммарный размер личных файлов.
func (h *FileHandler) Stats(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	count, total, err := h.FileService.Stats(r.Context(), userID)
	if err != nil {
		serviceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"file_count": count, "total_size": total})
}
