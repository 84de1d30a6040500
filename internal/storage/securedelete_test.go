package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureDelete(t *testing.T) {
	t.Run("wipes and removes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "victim.enc")
		require.NoError(t, os.WriteFile(path, []byte("sensitive ciphertext"), 0o600))

		ok, err := SecureDelete(path, DefaultDeletePasses)
		require.NoError(t, err)
		assert.True(t, ok)

		_, err = os.Stat(path)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing file is a no-op", func(t *testing.T) {
		ok, err := SecureDelete(filepath.Join(t.TempDir(), "nope.enc"), DefaultDeletePasses)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("double delete", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "once.enc")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))

		ok, err := SecureDelete(path, DefaultDeletePasses)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = SecureDelete(path, DefaultDeletePasses)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("pass count floor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "few.enc")
		require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

		// Меньше минимума — всё равно затирается и удаляется.
		ok, err := SecureDelete(path, 1)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestFSStore(t *testing.T) {
	store, err := NewFSStore(t.TempDir())
	require.NoError(t, err)

	t.Run("put and get", func(t *testing.T) {
		path, err := store.Put("blob.enc", []byte("ciphertext"))
		require.NoError(t, err)

		data, err := store.Get(path)
		require.NoError(t, err)
		assert.Equal(t, []byte("ciphertext"), data)

		size, ok := store.Size(path)
		assert.True(t, ok)
		assert.Equal(t, int64(len("ciphertext")), size)
	})

	t.Run("copy", func(t *testing.T) {
		src, err := store.Put("orig.enc", []byte("v1"))
		require.NoError(t, err)

		dst, err := store.Copy(src, "orig_v1.enc")
		require.NoError(t, err)
		assert.NotEqual(t, src, dst)

		data, err := store.Get(dst)
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), data)
	})

	t.Run("delete is secure and idempotent", func(t *testing.T) {
		path, err := store.Put("gone.enc", []byte("bye"))
		require.NoError(t, err)

		ok, err := store.Delete(path)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.Delete(path)
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok = store.Size(path)
		assert.False(t, ok)
	})

	t.Run("name is sanitized to base", func(t *testing.T) {
		path, err := store.Put("../escape.enc", []byte("x"))
		require.NoError(t, err)
		assert.Equal(t, "escape.enc", filepath.Base(path))
	})

	t.Run("empty dir rejected", func(t *testing.T) {
		_, err := NewFSStore("")
		assert.Error(t, err)
	})
}
