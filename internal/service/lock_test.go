package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SecureVault/internal/model"
	"SecureVault/internal/vaultcrypto"
)

// lockFixture — комната с двумя участниками и одним файлом, лок-сервис
// на фиктивных часах.
func lockFixture(t *testing.T) (env *testEnv, fileID int64, a, b *model.User, now *time.Time) {
	t.Helper()
	env = newTestEnv(t)
	ctx := context.Background()

	a = env.register(t, "alice")
	b = env.register(t, "bob")

	room, err := env.rooms.CreateRoom(ctx, a.ID, "room", "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.AddMember(ctx, room.ID, b.ID, model.RoleMember, a.ID))

	f, err := env.files.UploadToRoom(ctx, room.ID, a.ID, "doc.txt", []byte("x"), "", vaultcrypto.AlgAESGCM)
	require.NoError(t, err)

	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	now = &start
	env.locks.WithClock(func() time.Time { return *now })
	return env, f.ID, a, b, now
}

func TestLockService_MutualExclusion(t *testing.T) {
	env, fileID, a, b, now := lockFixture(t)
	ctx := context.Background()

	lock, err := env.locks.Acquire(ctx, fileID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.ID, lock.LockedBy)
	assert.Equal(t, now.Add(15*time.Minute), lock.ExpiresAt)

	// Чужая попытка при живом локе — конфликт.
	_, err = env.locks.Acquire(ctx, fileID, b.ID)
	assert.ErrorIs(t, err, ErrFileLocked)
	assert.ErrorIs(t, err, ErrConflict)

	// После истечения аренды лок перехватывается.
	*now = now.Add(16 * time.Minute)
	lock, err = env.locks.Acquire(ctx, fileID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.ID, lock.LockedBy)
}

func TestLockService_HolderExtends(t *testing.T) {
	env, fileID, a, _, now := lockFixture(t)
	ctx := context.Background()

	_, err := env.locks.Acquire(ctx, fileID, a.ID)
	require.NoError(t, err)

	*now = now.Add(10 * time.Minute)
	lock, err := env.locks.Acquire(ctx, fileID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute), lock.ExpiresAt, "повторный Acquire держателя продлевает аренду")
}

func TestLockService_Release(t *testing.T) {
	env, fileID, a, b, now := lockFixture(t)
	ctx := context.Background()

	t.Run("missing lock is a no-op", func(t *testing.T) {
		require.NoError(t, env.locks.Release(ctx, fileID, a.ID))
	})

	_, err := env.locks.Acquire(ctx, fileID, a.ID)
	require.NoError(t, err)

	t.Run("stranger cannot release a live lock", func(t *testing.T) {
		err := env.locks.Release(ctx, fileID, b.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("holder releases", func(t *testing.T) {
		require.NoError(t, env.locks.Release(ctx, fileID, a.ID))
		lock, err := env.locks.Status(ctx, fileID)
		require.NoError(t, err)
		assert.Nil(t, lock)
	})

	t.Run("anyone releases an expired lock", func(t *testing.T) {
		_, err := env.locks.Acquire(ctx, fileID, a.ID)
		require.NoError(t, err)
		*now = now.Add(time.Hour)
		require.NoError(t, env.locks.Release(ctx, fileID, b.ID))
	})
}

func TestLockService_StatusPrunesExpired(t *testing.T) {
	env, fileID, a, _, now := lockFixture(t)
	ctx := context.Background()

	_, err := env.locks.Acquire(ctx, fileID, a.ID)
	require.NoError(t, err)

	lock, err := env.locks.Status(ctx, fileID)
	require.NoError(t, err)
	require.NotNil(t, lock)

	*now = now.Add(time.Hour)
	lock, err = env.locks.Status(ctx, fileID)
	require.NoError(t, err)
	assert.Nil(t, lock, "истёкший лок снаружи выглядит как отсутствие лока")

	var count int64
	require.NoError(t, env.db.Model(&model.FileLock{}).Where("file_id = ?", fileID).Count(&count).Error)
	assert.Zero(t, count, "истёкшая запись попутно удалена")
}

func TestLockService_FileChecks(t *testing.T) {
	env, _, a, b, _ := lockFixture(t)
	ctx := context.Background()

	t.Run("missing file", func(t *testing.T) {
		_, err := env.locks.Acquire(ctx, 9999, a.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("personal file of another user", func(t *testing.T) {
		personal, err := env.files.Upload(ctx, a.ID, "mine.txt", []byte("x"), "p", vaultcrypto.AlgAESGCM, nil)
		require.NoError(t, err)
		_, err = env.locks.Acquire(ctx, personal.ID, b.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}
