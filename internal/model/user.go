package model

import "time"

// User — учётная запись пользователя хранилища.
// Пароль хранится как bcrypt-хеш, мастер-ключ создаётся при регистрации.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:80;not null"`
	Email        string `gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string `gorm:"size:255;not null"`

	IsLocked bool `gorm:"not null;default:false"`

	CreatedAt time.Time  `gorm:"autoCreateTime"`
	LastLogin *time.Time `gorm:""`
}
