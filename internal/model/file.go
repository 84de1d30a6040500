package model

import "time"

// File — метаданные зашифрованного файла. Открытое содержимое на сервер
// не попадает: шифртекст лежит в content store по пути EncryptedPath,
// а salt/nonce/tag здесь позволяют обратить шифрование при верном ключе.
// Форма полей зависит от алгоритма: у AES-CBC тега нет, у GCM/ChaCha20 есть.
type File struct {
	ID      int64  `gorm:"primaryKey;autoIncrement"`
	OwnerID int64  `gorm:"index;not null"`
	RoomID  *int64 `gorm:"index"` // nil — личный файл, иначе файл комнаты

	Owner *User `gorm:"foreignKey:OwnerID"`
	Room  *Room `gorm:"foreignKey:RoomID"`

	Filename      string `gorm:"size:255;not null"`
	EncryptedPath string `gorm:"size:512;not null"`
	Algorithm     string `gorm:"size:50;not null"`
	Salt          []byte `gorm:"not null"`
	NonceOrIV     []byte `gorm:"not null"`
	Tag           []byte `gorm:""` // nil для AES-CBC

	HashValue string `gorm:"size:64;not null"` // SHA-256 hex открытого текста
	FileSize  int64  `gorm:"not null;default:0"`

	CurrentVersion int `gorm:"not null;default:1"`

	UploadTime time.Time  `gorm:"autoCreateTime"`
	ExpiryTime *time.Time `gorm:"index"`
}

// FileVersion — неизменяемый снимок координат шифртекста файла
// на момент прошлой версии. Пара (file, version_number) уникальна:
// GetVersion обязан быть однозначным.
type FileVersion struct {
	ID            int64 `gorm:"primaryKey;autoIncrement"`
	FileID        int64 `gorm:"uniqueIndex:uq_file_version;not null"`
	VersionNumber int   `gorm:"uniqueIndex:uq_file_version;not null"`

	EncryptedPath string `gorm:"size:512;not null"`
	Salt          []byte `gorm:"not null"`
	NonceOrIV     []byte `gorm:"not null"`
	Tag           []byte `gorm:""`
	HashValue     string `gorm:"size:64;not null"`
	FileSize      int64  `gorm:"not null;default:0"`

	CreatedBy int64     `gorm:"not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// FileLock — аренда на эксклюзивную запись: не более одной на файл.
// Просроченную аренду вправе перехватить любой, продлевать — только держатель.
type FileLock struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	FileID   int64 `gorm:"uniqueIndex;not null"`
	LockedBy int64 `gorm:"not null"`

	LockedAt  time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

// Expired — истекла ли аренда на момент now.
func (l *FileLock) Expired(now time.Time) bool {
	return now.After(l.ExpiresAt)
}
