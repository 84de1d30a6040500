package model

import "time"

// ShareLink — токен-возможность: ограниченный по времени доступ к одному
// файлу в обход комнат и ролей, опционально под парольной фразой.
type ShareLink struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	FileID int64  `gorm:"index;not null"`
	Token  string `gorm:"uniqueIndex;size:128;not null"`

	Expiry         time.Time `gorm:"not null"`
	PassphraseHash string    `gorm:"size:255"` // bcrypt; пусто — без фразы

	CreatedAt time.Time `gorm:"autoCreateTime"`
}
