package service

import (
	"context"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
	"SecureVault/internal/storage"
	"SecureVault/internal/vaultcrypto"
)

// FileService — файлы хранилища: шифрование при загрузке, расшифровка
// по требованию, версии и зачистка истёкших. Открытый текст на диск
// не попадает; после каждой расшифровки — проверка SHA-256.
type FileService struct {
	files  repo.FileRepository
	rooms  *RoomService
	store  storage.ContentStore
	audit  *AuditService
	logger *zap.SugaredLogger
}

func NewFileService(
	files repo.FileRepository,
	rooms *RoomService,
	store storage.ContentStore,
	audit *AuditService,
	logger *zap.SugaredLogger,
) *FileService {
	return &FileService{files: files, rooms: rooms, store: store, audit: audit, logger: logger}
}

func envelopeFor(f *model.File, ciphertext []byte) *vaultcrypto.Envelope {
	return &vaultcrypto.Envelope{
		Ciphertext: ciphertext,
		Salt:       f.Salt,
		NonceOrIV:  f.NonceOrIV,
		Tag:        f.Tag,
	}
}

// Upload шифрует данные выбранным алгоритмом под парольной фразой
// и сохраняет шифртекст в content store, метаданные — в БД.
func (s *FileService) Upload(ctx context.Context, ownerID int64, filename string, data []byte, passphrase, algorithm string, expiry *time.Time) (*model.File, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("%w: encryption passphrase is required", ErrValidation)
	}
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", ErrValidation)
	}
	return s.encryptAndStore(ctx, ownerID, nil, filename, data, passphrase, algorithm, expiry)
}

// UploadToRoom шифрует файл комнаты. Ключевой материал — hex ключа
// комнаты, к которому дописывается необязательная фраза пользователя.
// Требует роли member и выше.
func (s *FileService) UploadToRoom(ctx context.Context, roomID, userID int64, filename string, data []byte, passphrase, algorithm string) (*model.File, error) {
	ok, err := s.rooms.CheckPermission(ctx, roomID, userID, model.RoleMember)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: viewers cannot upload files", ErrPermissionDenied)
	}

	roomKey, err := s.rooms.GetRoomKey(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	combined := hex.EncodeToString(roomKey) + passphrase

	f, err := s.encryptAndStore(ctx, userID, &roomID, filename, data, combined, algorithm, nil)
	if err != nil {
		return nil, err
	}
	s.audit.Success(ctx, userID, "room_upload",
		fmt.Sprintf("uploaded %q to room %d", filename, roomID))
	return f, nil
}

func (s *FileService) encryptAndStore(ctx context.Context, ownerID int64, roomID *int64, filename string, data []byte, keyMaterial, algorithm string, expiry *time.Time) (*model.File, error) {
	if !vaultcrypto.SupportedAlgorithm(algorithm) {
		return nil, fmt.Errorf("%w: %q", vaultcrypto.ErrUnsupportedAlgorithm, algorithm)
	}

	// Хеш считается по исходному открытому тексту: это эталон
	// для проверки целостности после каждой будущей расшифровки.
	contentHash := vaultcrypto.HashContent(data)

	env, err := vaultcrypto.Encrypt(data, keyMaterial, algorithm)
	if err != nil {
		return nil, err
	}

	path, err := s.store.Put(uuid.New().String()+".enc", env.Ciphertext)
	if err != nil {
		return nil, err
	}

	f := &model.File{
		OwnerID:       ownerID,
		RoomID:        roomID,
		Filename:      filename,
		EncryptedPath: path,
		Algorithm:     algorithm,
		Salt:          env.Salt,
		NonceOrIV:     env.NonceOrIV,
		Tag:           env.Tag,
		HashValue:     contentHash,
		FileSize:      int64(len(data)),
		ExpiryTime:    expiry,
	}
	if err := s.files.Create(ctx, f); err != nil {
		// Запись в БД не случилась — затираем осиротевший шифртекст.
		if _, derr := s.store.Delete(path); derr != nil {
			s.logger.Errorw("failed to wipe orphan ciphertext", "path", path, "error", derr)
		}
		return nil, err
	}

	if roomID == nil {
		s.audit.Success(ctx, ownerID, "upload",
			fmt.Sprintf("uploaded %q using %s", filename, algorithm))
	}
	return f, nil
}

// Decrypt расшифровывает личный файл владельца. Неверная фраза и
// подмена различаются: authentication-failure против tamper-detected.
func (s *FileService) Decrypt(ctx context.Context, fileID, userID int64, passphrase string) ([]byte, *model.File, error) {
	if passphrase == "" {
		return nil, nil, fmt.Errorf("%w: decryption passphrase is required", ErrValidation)
	}

	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if f == nil || f.OwnerID != userID || f.RoomID != nil {
		s.audit.Failure(ctx, userID, "decrypt", fmt.Sprintf("file %d not found", fileID))
		return nil, nil, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}

	plaintext, err := s.decryptRecord(ctx, userID, f, passphrase, "decrypt")
	if err != nil {
		return nil, nil, err
	}
	s.audit.Success(ctx, userID, "decrypt", fmt.Sprintf("decrypted %q", f.Filename))
	return plaintext, f, nil
}

// DecryptRoomFile расшифровывает файл комнаты (viewer+), ключевой
// материал собирается так же, как при загрузке.
func (s *FileService) DecryptRoomFile(ctx context.Context, roomID, fileID, userID int64, passphrase string) ([]byte, *model.File, error) {
	ok, err := s.rooms.CheckPermission(ctx, roomID, userID, model.RoleViewer)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotRoomMember
	}

	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	if f == nil || f.RoomID == nil || *f.RoomID != roomID {
		return nil, nil, fmt.Errorf("%w: file %d in room %d", ErrNotFound, fileID, roomID)
	}

	roomKey, err := s.rooms.GetRoomKey(ctx, roomID, userID)
	if err != nil {
		return nil, nil, err
	}
	combined := hex.EncodeToString(roomKey) + passphrase

	plaintext, err := s.decryptRecord(ctx, userID, f, combined, "room_decrypt")
	if err != nil {
		return nil, nil, err
	}
	s.audit.Success(ctx, userID, "room_decrypt",
		fmt.Sprintf("decrypted %q from room %d", f.Filename, roomID))
	return plaintext, f, nil
}

// decryptRecord — общий путь: чтение шифртекста, расшифровка и
// терминальная проверка целостности перед выдачей открытого текста.
func (s *FileService) decryptRecord(ctx context.Context, userID int64, f *model.File, keyMaterial, auditAction string) ([]byte, error) {
	ciphertext, err := s.store.Get(f.EncryptedPath)
	if err != nil {
		return nil, fmt.Errorf("%w: ciphertext missing from storage", ErrNotFound)
	}

	plaintext, err := vaultcrypto.Decrypt(envelopeFor(f, ciphertext), keyMaterial, f.Algorithm)
	if err != nil {
		s.audit.Failure(ctx, userID, auditAction,
			fmt.Sprintf("decryption failed for %q: wrong passphrase or corrupted data", f.Filename))
		return nil, err
	}

	// Проверка обязана выполняться и для аутентифицированных алгоритмов:
	// для AES-CBC она — единственная защита от подмены шифртекста.
	if !vaultcrypto.VerifyContent(plaintext, f.HashValue) {
		s.audit.Failure(ctx, userID, auditAction,
			fmt.Sprintf("TAMPERING DETECTED for %q", f.Filename))
		return nil, fmt.Errorf("%w: content hash mismatch for %q", ErrTamperDetected, f.Filename)
	}
	return plaintext, nil
}

// ListPersonal — личные файлы пользователя.
func (s *FileService) ListPersonal(ctx context.Context, ownerID int64) ([]model.File, error) {
	return s.files.ListPersonal(ctx, ownerID)
}

// ListRoomFiles — файлы комнаты (viewer+).
func (s *FileService) ListRoomFiles(ctx context.Context, roomID, userID int64) ([]model.File, error) {
	ok, err := s.rooms.CheckPermission(ctx, roomID, userID, model.RoleViewer)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRoomMember
	}
	return s.files.ListByRoom(ctx, roomID)
}

// Delete затирает шифртекст файла и его версий, затем удаляет записи.
// Личный файл удаляет владелец; файл комнаты — загрузивший или admin+.
func (s *FileService) Delete(ctx context.Context, fileID, userID int64) error {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}

	if f.RoomID != nil {
		if f.OwnerID != userID {
			ok, err := s.rooms.CheckPermission(ctx, *f.RoomID, userID, model.RoleAdmin)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%w: only the uploader or a room admin can delete", ErrPermissionDenied)
			}
		}
	} else if f.OwnerID != userID {
		return fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}

	// Затирание перед удалением метаданных (см. RoomService.DeleteRoom).
	if _, err := s.store.Delete(f.EncryptedPath); err != nil {
		return fmt.Errorf("wipe ciphertext: %w", err)
	}
	versions, err := s.files.ListVersions(ctx, fileID)
	if err != nil {
		return err
	}
	for _, v := range versions {
		if _, err := s.store.Delete(v.EncryptedPath); err != nil {
			return fmt.Errorf("wipe version %d: %w", v.VersionNumber, err)
		}
	}

	if err := s.files.Delete(ctx, fileID); err != nil {
		return err
	}

	s.audit.Success(ctx, userID, "delete", fmt.Sprintf("securely deleted %q", f.Filename))
	return nil
}

// SnapshotVersion сохраняет текущее состояние файла как неизменяемый
// снимок: шифртекст копируется на версионный путь, координаты конверта
// переносятся в запись версии.
func (s *FileService) SnapshotVersion(ctx context.Context, fileID, userID int64) (*model.FileVersion, error) {
	f, err := s.ownedFile(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}

	// Номер снимка не переиспользуется: после отката текущий номер файла
	// может совпасть с уже существующим снимком.
	maxVersion, err := s.files.MaxVersionNumber(ctx, fileID)
	if err != nil {
		return nil, err
	}
	number := f.CurrentVersion
	if maxVersion >= number {
		number = maxVersion + 1
	}

	versionName := fmt.Sprintf("%s_v%d.enc", uuid.New().String(), number)
	versionPath, err := s.store.Copy(f.EncryptedPath, versionName)
	if err != nil {
		return nil, fmt.Errorf("snapshot ciphertext: %w", err)
	}

	v := &model.FileVersion{
		FileID:        f.ID,
		VersionNumber: number,
		EncryptedPath: versionPath,
		Salt:          f.Salt,
		NonceOrIV:     f.NonceOrIV,
		Tag:           f.Tag,
		HashValue:     f.HashValue,
		FileSize:      f.FileSize,
		CreatedBy:     userID,
	}
	if err := s.files.CreateVersion(ctx, v); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, userID, "version_create",
		fmt.Sprintf("created version %d of %q", v.VersionNumber, f.Filename))
	return v, nil
}

// ListVersions — версии файла, новые первыми.
func (s *FileService) ListVersions(ctx context.Context, fileID, userID int64) (*model.File, []model.FileVersion, error) {
	f, err := s.ownedFile(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	versions, err := s.files.ListVersions(ctx, fileID)
	if err != nil {
		return nil, nil, err
	}
	return f, versions, nil
}

// RestoreVersion откатывает файл к прошлой версии: текущее состояние
// сперва само снимается в версию, затем файл принимает шифртекст и
// конверт целевой версии. Версии указывают только назад, не вперёд.
func (s *FileService) RestoreVersion(ctx context.Context, fileID int64, versionNumber int, userID int64) (*model.File, error) {
	f, err := s.ownedFile(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}

	target, err := s.files.GetVersion(ctx, fileID, versionNumber)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, fmt.Errorf("%w: version %d", ErrNotFound, versionNumber)
	}

	if _, err := s.SnapshotVersion(ctx, fileID, userID); err != nil {
		return nil, err
	}

	restoredPath, err := s.store.Copy(target.EncryptedPath, uuid.New().String()+".enc")
	if err != nil {
		return nil, fmt.Errorf("restore ciphertext: %w", err)
	}
	// Прежний текущий шифртекст уже скопирован в снимок — затираем его.
	if _, err := s.store.Delete(f.EncryptedPath); err != nil {
		return nil, fmt.Errorf("wipe previous ciphertext: %w", err)
	}

	f.EncryptedPath = restoredPath
	f.Salt = target.Salt
	f.NonceOrIV = target.NonceOrIV
	f.Tag = target.Tag
	f.HashValue = target.HashValue
	f.FileSize = target.FileSize
	f.CurrentVersion++
	if err := s.files.Save(ctx, f); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, userID, "version_restore",
		fmt.Sprintf("restored %q to version %d", f.Filename, versionNumber))
	return f, nil
}

func (s *FileService) ownedFile(ctx context.Context, fileID, userID int64) (*model.File, error) {
	f, err := s.files.GetByID(ctx, fileID)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return nil, fmt.Errorf("%w: file %d", ErrNotFound, fileID)
	}
	if f.OwnerID != userID {
		return nil, fmt.Errorf("%w: file %d", ErrPermissionDenied, fileID)
	}
	return f, nil
}

// Stats — сводка по личным файлам пользователя.
func (s *FileService) Stats(ctx context.Context, ownerID int64) (count int, totalSize int64, err error) {
	files, err := s.files.ListPersonal(ctx, ownerID)
	if err != nil {
		return 0, 0, err
	}
	for _, f := range files {
		if sz, ok := s.store.Size(f.EncryptedPath); ok {
			totalSize += sz
		}
	}
	return len(files), totalSize, nil
}

// CleanupExpired — эффект фоновой зачистки: затереть и удалить файлы,
// чей срок хранения прошёл. Возвращает число удалённых.
func (s *FileService) CleanupExpired(ctx context.Context) (int, error) {
	expired, err := s.files.ListExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}
	removed := 0
	for i := range expired {
		f := &expired[i]
		if _, err := s.store.Delete(f.EncryptedPath); err != nil {
			s.logger.Errorw("cleanup: failed to wipe ciphertext",
				"file_id", f.ID, "error", err)
			continue
		}
		versions, err := s.files.ListVersions(ctx, f.ID)
		if err != nil {
			return removed, err
		}
		for _, v := range versions {
			if _, err := s.store.Delete(v.EncryptedPath); err != nil {
				s.logger.Errorw("cleanup: failed to wipe version",
					"file_id", f.ID, "version", v.VersionNumber, "error", err)
			}
		}
		if err := s.files.Delete(ctx, f.ID); err != nil {
			return removed, err
		}
		s.audit.Success(ctx, f.OwnerID, "expiry_cleanup",
			fmt.Sprintf("expired file %q removed", f.Filename))
		removed++
	}
	return removed, nil
}
