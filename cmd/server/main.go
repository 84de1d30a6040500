package main

import (
	"SecureVault/internal/cache"
	"SecureVault/internal/config"
	"SecureVault/internal/handlers"
	"SecureVault/internal/middleware"
	"SecureVault/internal/repo"
	"SecureVault/internal/service"
	"SecureVault/internal/storage"
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.NewConfig()

	// создаём предустановленный регистратор zap
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err)
	}

	// делаем регистратор SugaredLogger
	sugar := logger.Sugar()
	middleware.SetLogger(sugar) // передаём логгер в middleware
	//сброс буфера логгера
	defer func() {
		if err := logger.Sync(); err != nil {
			sugar.Errorw("Failed to sync logger", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	gormDB, err := repo.InitDB(cfg.DatabaseDSN)
	if err != nil {
		sugar.Fatalw("failed to initialize database", "error", err)
	}

	store, err := storage.NewFSStore(cfg.StorageDir)
	if err != nil {
		sugar.Fatalw("failed to initialize content storage", "dir", cfg.StorageDir, "error", err)
	}

	// Redis для счётчиков IDS; при недоступности — in-memory fallback.
	var kv cache.KeyValue
	if cfg.RedisAddr != "" {
		rkv := cache.NewRedisKV(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			DB:       cfg.RedisDB,
			Password: cfg.RedisPassword,
		})
		if err := rkv.Ping(ctx); err != nil {
			sugar.Warnw("Redis unavailable, falling back to in-memory counters", "addr", cfg.RedisAddr, "error", err)
			kv = cache.NewMemoryKV()
		} else {
			defer rkv.Close()
			kv = rkv
		}
	} else {
		kv = cache.NewMemoryKV()
	}

	userRepo := repo.NewUserRepository(gormDB)
	keyRepo := repo.NewKeyRepository(gormDB)
	roomRepo := repo.NewRoomRepository(gormDB)
	fileRepo := repo.NewFileRepository(gormDB)
	chatRepo := repo.NewChatRepository(gormDB)
	lockRepo := repo.NewLockRepository(gormDB)
	shareRepo := repo.NewShareRepository(gormDB)
	auditRepo := repo.NewAuditRepository(gormDB)

	auditService := service.NewAuditService(auditRepo, sugar)
	keyService := service.NewKeyService(keyRepo, cfg.KeyWrapSecret)
	securityService := service.NewSecurityService(kv, userRepo, auditService, sugar,
		cfg.MaxFailedLogins, time.Duration(cfg.FailedLoginWindowS)*time.Second)
	userService := service.NewUserService(userRepo, keyService, securityService, auditService)
	roomService := service.NewRoomService(roomRepo, fileRepo, keyService, store, auditService, sugar)
	chatService := service.NewChatService(chatRepo, roomService, auditService)
	fileService := service.NewFileService(fileRepo, roomService, store, auditService, sugar)
	lockService := service.NewLockService(lockRepo, fileRepo, auditService,
		time.Duration(cfg.LockTimeoutMinutes)*time.Minute)
	shareService := service.NewShareService(shareRepo, fileService, auditService)

	// Фоновая зачистка файлов с истёкшим сроком хранения.
	go func() {
		interval := time.Duration(cfg.CleanupIntervalMinutes) * time.Minute
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := fileService.CleanupExpired(ctx)
				if err != nil {
					sugar.Errorw("Expired files cleanup failed", "error", err)
					continue
				}
				if removed > 0 {
					sugar.Infow("Expired files removed", "count", removed)
				}
			}
		}
	}()

	h := handlers.NewHandler(userService, fileService, roomService, chatService,
		lockService, shareService, auditService, sugar, cfg)

	addr := cfg.BaseURL

	sugar.Infow(
		"Starting server",
		"addr", addr,
	)

	sugar.Infow("Config",
		"BaseURL", cfg.BaseURL,
		"EnableHTTPS", cfg.EnableHTTPS,
		"StorageDir", cfg.StorageDir,
		"LockTimeoutMinutes", cfg.LockTimeoutMinutes,
	)

	if err := http.ListenAndServe(addr, h.Router); err != nil {
		sugar.Fatalw("Server failed", "error", err)
	}
}
