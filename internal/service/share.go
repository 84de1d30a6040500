package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"golang.org/x/crypto/bcrypt"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
)

const shareTokenBytes = 32

// ShareService — ссылки-возможности: непрозрачный токен даёт ограниченный
// по времени доступ к одному файлу мимо комнат и ролей, опционально
// под дополнительной парольной фразой.
type ShareService struct {
	shares repo.ShareRepository
	files  *FileService
	audit  *AuditService
}

func NewShareService(shares repo.ShareRepository, files *FileService, audit *AuditService) *ShareService {
	return &ShareService{shares: shares, files: files, audit: audit}
}

// Create выпускает ссылку на личный файл владельца.
func (s *ShareService) Create(ctx context.Context, fileID, ownerID int64, ttl time.Duration, passphrase string) (*model.ShareLink, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("%w: share ttl must be positive", ErrValidation)
	}
	if _, err := s.files.ownedFile(ctx, fileID, ownerID); err != nil {
		return nil, err
	}

	raw := make([]byte, shareTokenBytes)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return nil, fmt.Errorf("generate share token: %w", err)
	}

	link := &model.ShareLink{
		FileID: fileID,
		Token:  hex.EncodeToString(raw),
		Expiry: time.Now().UTC().Add(ttl),
	}
	if passphrase != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(passphrase), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		link.PassphraseHash = string(hash)
	}

	if err := s.shares.Create(ctx, link); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, ownerID, "share_create", fmt.Sprintf("shared file %d", fileID))
	return link, nil
}

// Access обменивает токен на расшифрованное содержимое файла.
// Просроченный или неизвестный токен, как и неверная фраза ссылки,
// не раскрывают, существует ли файл.
func (s *ShareService) Access(ctx context.Context, token, linkPassphrase, filePassphrase string) ([]byte, *model.File, error) {
	link, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, nil, err
	}
	if link == nil {
		return nil, nil, fmt.Errorf("%w: share link", ErrNotFound)
	}
	if time.Now().UTC().After(link.Expiry) {
		return nil, nil, fmt.Errorf("%w: share link expired", ErrNotFound)
	}
	if link.PassphraseHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(link.PassphraseHash), []byte(linkPassphrase)) != nil {
			return nil, nil, fmt.Errorf("%w: share passphrase", ErrPermissionDenied)
		}
	}

	f, err := s.files.files.GetByID(ctx, link.FileID)
	if err != nil {
		return nil, nil, err
	}
	if f == nil {
		return nil, nil, fmt.Errorf("%w: shared file", ErrNotFound)
	}

	plaintext, err := s.files.decryptRecord(ctx, f.OwnerID, f, filePassphrase, "share_access")
	if err != nil {
		return nil, nil, err
	}
	s.audit.Success(ctx, f.OwnerID, "share_access",
		fmt.Sprintf("shared file %q accessed", f.Filename))
	return plaintext, f, nil
}
