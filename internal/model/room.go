package model

import "time"

// Роли участников комнаты. Порядок задаёт решётку прав:
// owner(4) > admin(3) > member(2) > viewer(1).
const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleMember = "member"
	RoleViewer = "viewer"
)

var roleRanks = map[string]int{
	RoleOwner:  4,
	RoleAdmin:  3,
	RoleMember: 2,
	RoleViewer: 1,
}

// RoleRank возвращает ранг роли, 0 для неизвестной.
func RoleRank(role string) int {
	return roleRanks[role]
}

// AssignableRole — true для ролей, которые можно выдавать участникам.
// Роль owner существует ровно у одного участника и не назначается.
func AssignableRole(role string) bool {
	return role == RoleAdmin || role == RoleMember || role == RoleViewer
}

// Room — защищённый домен: общий ключ комнаты раздаётся каждому участнику
// в зашифрованном виде под его мастер-ключом.
type Room struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:100;not null"`
	Description string `gorm:"type:text"`
	OwnerID     int64  `gorm:"index;not null"`

	Owner *User `gorm:"foreignKey:OwnerID"`

	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// RoomMember — членство (room, user, role), уникальное на пару (room, user).
type RoomMember struct {
	ID     int64  `gorm:"primaryKey;autoIncrement"`
	RoomID int64  `gorm:"uniqueIndex:uq_room_user;not null"`
	UserID int64  `gorm:"uniqueIndex:uq_room_user;not null"`
	Role   string `gorm:"size:20;not null;default:member"`

	User *User `gorm:"foreignKey:UserID"`

	JoinedAt time.Time `gorm:"autoCreateTime"`
}

// RoomKey — копия ключа комнаты, зашифрованная мастер-ключом участника.
// Инвариант: запись существует тогда и только тогда, когда существует
// соответствующее членство; создаются и удаляются в одной транзакции.
type RoomKey struct {
	ID     int64 `gorm:"primaryKey;autoIncrement"`
	RoomID int64 `gorm:"uniqueIndex:uq_roomkey_user;not null"`
	UserID int64 `gorm:"uniqueIndex:uq_roomkey_user;not null"`

	EncryptedRoomKey []byte `gorm:"not null"`
	Nonce            []byte `gorm:"not null"`
	Tag              []byte `gorm:"not null"`
}
