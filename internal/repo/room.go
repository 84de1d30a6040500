package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"SecureVault/internal/model"
)

// RoomRepository — доступ к комнатам, членствам и копиям ключа комнаты.
// Все мутации, затрагивающие пару членство+ключ, транзакционны:
// читатель никогда не увидит членство без ключа и наоборот.
type RoomRepository interface {
	// CreateRoomWithOwner пишет комнату, членство владельца (role=owner)
	// и его копию ключа одной транзакцией. Room.ID заполняется.
	CreateRoomWithOwner(ctx context.Context, room *model.Room, key *model.RoomKey) error

	GetRoom(ctx context.Context, roomID int64) (*model.Room, error)
	ListRoomsForUser(ctx context.Context, userID int64) ([]model.Room, []model.RoomMember, error)

	// GetMember возвращает (nil, nil), если пользователь не участник.
	GetMember(ctx context.Context, roomID, userID int64) (*model.RoomMember, error)
	ListMembers(ctx context.Context, roomID int64) ([]model.RoomMember, error)
	UpdateMemberRole(ctx context.Context, roomID, userID int64, role string) error

	// AddMemberWithKey пишет членство и копию ключа одной транзакцией.
	AddMemberWithKey(ctx context.Context, member *model.RoomMember, key *model.RoomKey) error
	// RemoveMemberWithKey удаляет членство и копию ключа одной транзакцией.
	RemoveMemberWithKey(ctx context.Context, roomID, userID int64) error

	// GetRoomKey возвращает (nil, nil), если копии ключа нет.
	GetRoomKey(ctx context.Context, roomID, userID int64) (*model.RoomKey, error)

	// DeleteRoom явно перечисляет и удаляет зависимые строки (ключи,
	// членства, сообщения, версии и записи файлов), затем комнату —
	// одной транзакцией. Пути шифртекста к этому моменту уже затёрты
	// сервисом.
	DeleteRoom(ctx context.Context, roomID int64) error
}

type roomRepo struct {
	db *gorm.DB
}

// NewRoomRepository создаёт реализацию репозитория для Room.
func NewRoomRepository(db *gorm.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) CreateRoomWithOwner(ctx context.Context, room *model.Room, key *model.RoomKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		member := &model.RoomMember{
			RoomID: room.ID,
			UserID: room.OwnerID,
			Role:   model.RoleOwner,
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		key.RoomID = room.ID
		key.UserID = room.OwnerID
		return tx.Create(key).Error
	})
}

func (r *roomRepo) GetRoom(ctx context.Context, roomID int64) (*model.Room, error) {
	var room model.Room
	err := r.db.WithContext(ctx).First(&room, roomID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) ListRoomsForUser(ctx context.Context, userID int64) ([]model.Room, []model.RoomMember, error) {
	var members []model.RoomMember
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Find(&members).Error; err != nil {
		return nil, nil, err
	}
	if len(members) == 0 {
		return nil, nil, nil
	}
	ids := make([]int64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.RoomID)
	}
	var rooms []model.Room
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rooms).Error; err != nil {
		return nil, nil, err
	}
	return rooms, members, nil
}

func (r *roomRepo) GetMember(ctx context.Context, roomID, userID int64) (*model.RoomMember, error) {
	var m model.RoomMember
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *roomRepo) ListMembers(ctx context.Context, roomID int64) ([]model.RoomMember, error) {
	var members []model.RoomMember
	err := r.db.WithContext(ctx).Preload("User").
		Where("room_id = ?", roomID).Find(&members).Error
	return members, err
}

func (r *roomRepo) UpdateMemberRole(ctx context.Context, roomID, userID int64, role string) error {
	return r.db.WithContext(ctx).Model(&model.RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("role", role).Error
}

func (r *roomRepo) AddMemberWithKey(ctx context.Context, member *model.RoomMember, key *model.RoomKey) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(member).Error; err != nil {
			return err
		}
		return tx.Create(key).Error
	})
}

func (r *roomRepo) RemoveMemberWithKey(ctx context.Context, roomID, userID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			Delete(&model.RoomKey{}).Error; err != nil {
			return err
		}
		return tx.Where("room_id = ? AND user_id = ?", roomID, userID).
			Delete(&model.RoomMember{}).Error
	})
}

func (r *roomRepo) GetRoomKey(ctx context.Context, roomID, userID int64) (*model.RoomKey, error) {
	var k model.RoomKey
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND user_id = ?", roomID, userID).First(&k).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &k, nil
}

func (r *roomRepo) DeleteRoom(ctx context.Context, roomID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var fileIDs []int64
		if err := tx.Model(&model.File{}).Where("room_id = ?", roomID).
			Pluck("id", &fileIDs).Error; err != nil {
			return err
		}
		if len(fileIDs) > 0 {
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&model.FileVersion{}).Error; err != nil {
				return err
			}
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&model.FileLock{}).Error; err != nil {
				return err
			}
			if err := tx.Where("file_id IN ?", fileIDs).Delete(&model.ShareLink{}).Error; err != nil {
				return err
			}
			if err := tx.Where("id IN ?", fileIDs).Delete(&model.File{}).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&model.ChatMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&model.RoomKey{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&model.RoomMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.Room{}, roomID).Error
	})
}
