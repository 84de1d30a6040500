package service

import (
	"errors"
	"fmt"
)

// Таксономия ошибок ядра. Сервисы не глотают ошибки: каждая неудача
// доходит до вызывающего со своим различимым видом, ретраев в ядре нет.
var (
	// ErrValidation — негодный вход, без побочных эффектов.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound — сущность, на которую ссылаются, отсутствует.
	ErrNotFound = errors.New("not found")
	// ErrPermissionDenied — RBAC-предикат ложен или чужая сущность.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrConflict — состояние занято: чужой лок, дубль членства.
	ErrConflict = errors.New("conflict")

	// ErrTamperDetected — хеш содержимого не сошёлся после расшифровки.
	// Никогда не понижается до общей ошибки: это инцидент безопасности,
	// он срабатывает и для AES-CBC, у которого собственного тега нет.
	ErrTamperDetected = errors.New("tamper detected")

	// ErrNoMasterKey — у пользователя не сгенерирован мастер-ключ.
	ErrNoMasterKey = errors.New("user has no master key")
	// ErrNotRoomMember — нет копии ключа комнаты: отказ в доступе,
	// а не not-found.
	ErrNotRoomMember = fmt.Errorf("%w: not a room member", ErrPermissionDenied)

	ErrUsernameTaken = fmt.Errorf("%w: username taken", ErrConflict)
	ErrEmailTaken    = fmt.Errorf("%w: email taken", ErrConflict)
	// ErrFileLocked — лок держит другой пользователь и он не истёк.
	ErrFileLocked = fmt.Errorf("%w: file is locked by another user", ErrConflict)

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account is locked")
)
