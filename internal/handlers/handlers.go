package handlers

import (
	"SecureVault/internal/config"
	"SecureVault/internal/middleware"
	"SecureVault/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type Handler struct {
	Router chi.Router
}

// NewHandler разводящий для хендлеров
func NewHandler(
	userService *service.UserService,
	fileService *service.FileService,
	roomService *service.RoomService,
	chatService *service.ChatService,
	lockService *service.LockService,
	shareService *service.ShareService,
	auditService *service.AuditService,
	logger *zap.SugaredLogger,
	config *config.Config,
) *Handler {
	r := chi.NewRouter()

	r.Use(middleware.WithGzip)
	r.Use(middleware.WithLogging)
	r.Use(middleware.WithAuth(config.AuthSecret))

	// Handlers
	userHandler := NewUserHandler(userService, logger, config)
	fileHandler := NewFileHandler(fileService, logger, config)
	roomHandler := NewRoomHandler(roomService, fileService, logger, config)
	chatHandler := NewChatHandler(chatService, logger)
	lockHandler := NewLockHandler(lockService, logger)
	versionHandler := NewVersionHandler(fileService, logger)
	securityHandler := NewSecurityHandler(shareService, auditService, logger)

	// User routes
	r.Post("/api/user/register", userHandler.Register)
	r.Post("/api/user/login", userHandler.Login)

	// Personal files
	r.Post("/api/files", fileHandler.Upload)
	r.Get("/api/files", fileHandler.List)
	r.Post("/api/files/{fileID}/decrypt", fileHandler.Decrypt)
	r.Delete("/api/files/{fileID}", fileHandler.Delete)
	r.Get("/api/files/stats", fileHandler.Stats)

	// File locks
	r.Post("/api/files/{fileID}/lock", lockHandler.Acquire)
	r.Delete("/api/files/{fileID}/lock", lockHandler.Release)
	r.Get("/api/files/{fileID}/lock", lockHandler.Status)

	// File versions
	r.Get("/api/files/{fileID}/versions", versionHandler.List)
	r.Post("/api/files/{fileID}/versions", versionHandler.Snapshot)
	r.Post("/api/files/{fileID}/versions/{version}/restore", versionHandler.Restore)

	// Rooms
	r.Post("/api/rooms", roomHandler.Create)
	r.Get("/api/rooms", roomHandler.List)
	r.Get("/api/rooms/{roomID}", roomHandler.Get)
	r.Delete("/api/rooms/{roomID}", roomHandler.Delete)
	r.Post("/api/rooms/{roomID}/members", roomHandler.AddMember)
	r.Delete("/api/rooms/{roomID}/members/{userID}", roomHandler.RemoveMember)
	r.Patch("/api/rooms/{roomID}/members/{userID}", roomHandler.ChangeRole)
	r.Post("/api/rooms/{roomID}/files", roomHandler.UploadFile)
	r.Get("/api/rooms/{roomID}/files", roomHandler.ListFiles)
	r.Post("/api/rooms/{roomID}/files/{fileID}/decrypt", roomHandler.DecryptFile)

	// Room chat (zero-knowledge: сервер хранит только шифртекст)
	r.Post("/api/rooms/{roomID}/chat", chatHandler.Post)
	r.Get("/api/rooms/{roomID}/chat", chatHandler.History)

	// Shares and audit
	r.Post("/api/files/{fileID}/share", securityHandler.CreateShare)
	r.Post("/api/share/{token}", securityHandler.AccessShare)
	r.Get("/api/audit", securityHandler.AuditLogs)
	r.Get("/api/audit/failed-logins", securityHandler.FailedLogins)

	return &Handler{Router: r}
}
