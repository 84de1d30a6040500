package model

// MasterKey — персональный 256-битный ключ пользователя.
// Хранится только в завёрнутом виде (AES-GCM под корневым секретом процесса),
// открытый ключ в БД не попадает никогда.
type MasterKey struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	UserID int64 `gorm:"uniqueIndex;not null"`

	User *User `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`

	// Шифртекст ключа и nonce обёртки.
	WrappedKey []byte `gorm:"not null"`
	WrapNonce  []byte `gorm:"not null"`
}
