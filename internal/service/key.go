package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
	"SecureVault/internal/vaultcrypto"
)

const masterKeyLen = 32

// KeyService — хранилище мастер-ключей. Ключ генерируется при регистрации,
// в БД лежит только завёрнутым (AES-GCM под корневым секретом процесса),
// разворачивается на каждый wrap/unwrap ключа комнаты.
type KeyService struct {
	repo repo.KeyRepository
	kek  []byte // ключ обёртки, выведенный из корневого секрета
}

// NewKeyService растягивает wrapSecret в 256-битный ключ обёртки.
func NewKeyService(r repo.KeyRepository, wrapSecret string) *KeyService {
	sum := sha256.Sum256([]byte(wrapSecret))
	return &KeyService{repo: r, kek: sum[:]}
}

// Generate возвращает свежий 256-битный случайный ключ.
// Из пользовательского ввода ключ не выводится никогда.
func (s *KeyService) Generate() ([]byte, error) {
	key := make([]byte, masterKeyLen)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("generate master key: %w", err)
	}
	return key, nil
}

// Store заворачивает ключ и сохраняет его для пользователя.
// Повторный вызов перезаписывает обёртку, второй ключ не появляется.
func (s *KeyService) Store(ctx context.Context, userID int64, masterKey []byte) error {
	ct, nonce, tag, err := vaultcrypto.WrapKey(masterKey, s.kek)
	if err != nil {
		return fmt.Errorf("wrap master key: %w", err)
	}
	// Тег храним в хвосте шифртекста: обёртка мастер-ключа никогда
	// не смешивается с конвертами файлов, где тег — отдельное поле.
	rec := &model.MasterKey{
		UserID:     userID,
		WrappedKey: append(ct, tag...),
		WrapNonce:  nonce,
	}
	return s.repo.Upsert(ctx, rec)
}

// Retrieve возвращает развёрнутый ключ пользователя либо ErrNoMasterKey.
// Нулевой или мусорный ключ молча не возвращается никогда.
func (s *KeyService) Retrieve(ctx context.Context, userID int64) ([]byte, error) {
	rec, err := s.repo.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoMasterKey
	}
	if len(rec.WrappedKey) <= 16 {
		return nil, fmt.Errorf("unwrap master key: %w", vaultcrypto.ErrCiphertextCorrupted)
	}
	ct := rec.WrappedKey[:len(rec.WrappedKey)-16]
	tag := rec.WrappedKey[len(rec.WrappedKey)-16:]
	key, err := vaultcrypto.UnwrapKey(ct, rec.WrapNonce, tag, s.kek)
	if err != nil {
		return nil, fmt.Errorf("unwrap master key: %w", err)
	}
	return key, nil
}
