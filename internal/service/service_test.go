package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	_ "modernc.org/sqlite"

	"SecureVault/internal/cache"
	"SecureVault/internal/model"
	"SecureVault/internal/repo"
	"SecureVault/internal/storage"
)

// newTestDB инициализирует in-memory SQLite (modernc.org/sqlite) для тестов сервисов
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Имя теста в DSN изолирует базы разных тестов внутри одного процесса.
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dial := gormsqlite.Dialector{DriverName: "sqlite", DSN: fmt.Sprintf("file:%s?mode=memory&cache=shared", name)}
	db, err := gorm.Open(dial, &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open sqlite (modernc): %v", err)
	}
	if err := repo.Migrate(db); err != nil {
		t.Fatalf("failed to automigrate: %v", err)
	}
	return db
}

// testEnv собирает все сервисы поверх одной тестовой БД и временного
// каталога контента.
type testEnv struct {
	db    *gorm.DB
	store *storage.FSStore
	kv    *cache.MemoryKV

	users    *UserService
	keys     *KeyService
	rooms    *RoomService
	chat     *ChatService
	files    *FileService
	locks    *LockService
	shares   *ShareService
	security *SecurityService
	audit    *AuditService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db := newTestDB(t)
	store, err := storage.NewFSStore(t.TempDir())
	require.NoError(t, err)

	logger := zap.NewNop().Sugar()
	kv := cache.NewMemoryKV()

	userRepo := repo.NewUserRepository(db)
	keyRepo := repo.NewKeyRepository(db)
	roomRepo := repo.NewRoomRepository(db)
	fileRepo := repo.NewFileRepository(db)
	chatRepo := repo.NewChatRepository(db)
	lockRepo := repo.NewLockRepository(db)
	shareRepo := repo.NewShareRepository(db)
	auditRepo := repo.NewAuditRepository(db)

	audit := NewAuditService(auditRepo, logger)
	keys := NewKeyService(keyRepo, "test-wrap-secret")
	security := NewSecurityService(kv, userRepo, audit, logger, 5, 10*time.Minute)
	users := NewUserService(userRepo, keys, security, audit)
	rooms := NewRoomService(roomRepo, fileRepo, keys, store, audit, logger)
	chat := NewChatService(chatRepo, rooms, audit)
	files := NewFileService(fileRepo, rooms, store, audit, logger)
	locks := NewLockService(lockRepo, fileRepo, audit, 15*time.Minute)
	shares := NewShareService(shareRepo, files, audit)

	return &testEnv{
		db: db, store: store, kv: kv,
		users: users, keys: keys, rooms: rooms, chat: chat, files: files,
		locks: locks, shares: shares, security: security, audit: audit,
	}
}

func (e *testEnv) register(t *testing.T, username string) *model.User {
	t.Helper()
	u, err := e.users.Register(context.Background(), username, username+"@example.com", "password123")
	require.NoError(t, err)
	return u
}
