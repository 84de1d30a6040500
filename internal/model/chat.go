package model

import "time"

// ChatMessage — зашифрованное сообщение комнаты. Сообщение шифруется
// ключом комнаты на стороне клиента; сервер — ретранслятор и хранит
// только шифртекст, прочитать его он не может.
type ChatMessage struct {
	ID       int64 `gorm:"primaryKey;autoIncrement"`
	RoomID   int64 `gorm:"index;not null"`
	SenderID int64 `gorm:"not null"`

	Ciphertext []byte `gorm:"not null"`
	Nonce      []byte `gorm:"not null"`
	Tag        []byte `gorm:"not null"`

	Sender *User `gorm:"foreignKey:SenderID"`

	SentAt time.Time `gorm:"autoCreateTime;index"`
}
