package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"

	"go.uber.org/zap"

	"SecureVault/internal/model"
	"SecureVault/internal/repo"
	"SecureVault/internal/storage"
	"SecureVault/internal/vaultcrypto"
)

const roomKeyLen = 32

// RoomService — раздача ключей комнат и RBAC.
//
// У комнаты один симметричный ключ; в БД он существует только в виде
// пер-участниковых копий, зашифрованных мастер-ключами участников
// (AES-256-GCM). Открытый ключ комнаты живёт в памяти ровно на время
// одной операции wrap/unwrap и никогда не кешируется.
type RoomService struct {
	rooms  repo.RoomRepository
	files  repo.FileRepository
	keys   *KeyService
	store  storage.ContentStore
	audit  *AuditService
	logger *zap.SugaredLogger
}

func NewRoomService(
	rooms repo.RoomRepository,
	files repo.FileRepository,
	keys *KeyService,
	store storage.ContentStore,
	audit *AuditService,
	logger *zap.SugaredLogger,
) *RoomService {
	return &RoomService{
		rooms:  rooms,
		files:  files,
		keys:   keys,
		store:  store,
		audit:  audit,
		logger: logger,
	}
}

// CreateRoom генерирует свежий ключ комнаты, заворачивает его под
// мастер-ключом владельца и пишет комнату + членство owner + копию ключа
// одной транзакцией. Открытый ключ комнаты после обёртки не сохраняется.
func (s *RoomService) CreateRoom(ctx context.Context, ownerID int64, name, description string) (*model.Room, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: room name is required", ErrValidation)
	}

	roomKey := make([]byte, roomKeyLen)
	if _, err := io.ReadFull(rand.Reader, roomKey); err != nil {
		return nil, fmt.Errorf("generate room key: %w", err)
	}

	masterKey, err := s.keys.Retrieve(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	ct, nonce, tag, err := vaultcrypto.WrapKey(roomKey, masterKey)
	if err != nil {
		return nil, fmt.Errorf("wrap room key: %w", err)
	}

	room := &model.Room{Name: name, Description: description, OwnerID: ownerID}
	keyRec := &model.RoomKey{EncryptedRoomKey: ct, Nonce: nonce, Tag: tag}
	if err := s.rooms.CreateRoomWithOwner(ctx, room, keyRec); err != nil {
		return nil, err
	}

	s.audit.Success(ctx, ownerID, "room_create", fmt.Sprintf("created room %q", name))
	return room, nil
}

// AddMember добавляет участника и раздаёт ему ключ комнаты.
// Ключ разворачивается копией ДЕЙСТВУЮЩЕГО пользователя: админ, сам
// не состоящий в комнате, раздать членство не может.
func (s *RoomService) AddMember(ctx context.Context, roomID, userID int64, role string, actorID int64) error {
	ok, err := s.CheckPermission(ctx, roomID, actorID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: only admins and above can add members", ErrPermissionDenied)
	}

	existing, err := s.rooms.GetMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if existing != nil {
		return fmt.Errorf("%w: user is already a member", ErrConflict)
	}

	if !model.AssignableRole(role) {
		return fmt.Errorf("%w: invalid role %q, must be admin, member or viewer", ErrValidation, role)
	}

	roomKey, err := s.GetRoomKey(ctx, roomID, actorID)
	if err != nil {
		return err
	}

	memberMasterKey, err := s.keys.Retrieve(ctx, userID)
	if err != nil {
		return err
	}

	ct, nonce, tag, err := vaultcrypto.WrapKey(roomKey, memberMasterKey)
	if err != nil {
		return fmt.Errorf("wrap room key for member: %w", err)
	}

	member := &model.RoomMember{RoomID: roomID, UserID: userID, Role: role}
	keyRec := &model.RoomKey{
		RoomID:           roomID,
		UserID:           userID,
		EncryptedRoomKey: ct,
		Nonce:            nonce,
		Tag:              tag,
	}
	if err := s.rooms.AddMemberWithKey(ctx, member, keyRec); err != nil {
		return err
	}

	s.audit.Success(ctx, actorID, "room_add_member",
		fmt.Sprintf("added user %d as %s to room %d", userID, role, roomID))
	return nil
}

// RemoveMember удаляет членство и копию ключа одной транзакцией.
// Владельца этим путём удалить нельзя.
func (s *RoomService) RemoveMember(ctx context.Context, roomID, userID, actorID int64) error {
	ok, err := s.CheckPermission(ctx, roomID, actorID, model.RoleAdmin)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: only admins and above can remove members", ErrPermissionDenied)
	}

	member, err := s.rooms.GetMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return fmt.Errorf("%w: user is not a member", ErrNotFound)
	}
	if member.Role == model.RoleOwner {
		return fmt.Errorf("%w: cannot remove the room owner", ErrValidation)
	}

	if err := s.rooms.RemoveMemberWithKey(ctx, roomID, userID); err != nil {
		return err
	}

	s.audit.Success(ctx, actorID, "room_remove_member",
		fmt.Sprintf("removed user %d from room %d", userID, roomID))
	return nil
}

// ChangeRole меняет роль участника. Только владелец; роль владельца
// неизменяема, owner не назначается.
func (s *RoomService) ChangeRole(ctx context.Context, roomID, userID int64, newRole string, actorID int64) error {
	ok, err := s.CheckPermission(ctx, roomID, actorID, model.RoleOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: only the owner can change roles", ErrPermissionDenied)
	}

	if !model.AssignableRole(newRole) {
		return fmt.Errorf("%w: invalid role %q", ErrValidation, newRole)
	}

	member, err := s.rooms.GetMember(ctx, roomID, userID)
	if err != nil {
		return err
	}
	if member == nil {
		return fmt.Errorf("%w: user is not a member", ErrNotFound)
	}
	if member.Role == model.RoleOwner {
		return fmt.Errorf("%w: cannot change the owner role", ErrValidation)
	}

	if err := s.rooms.UpdateMemberRole(ctx, roomID, userID, newRole); err != nil {
		return err
	}

	s.audit.Success(ctx, actorID, "room_role_change",
		fmt.Sprintf("changed user %d role to %s in room %d", userID, newRole, roomID))
	return nil
}

// GetRoomKey — единственный путь, которым открытый ключ комнаты попадает
// в память. Разворачивается на каждый вызов заново, не кешируется.
// Отсутствие копии ключа — отказ в доступе, а не not-found.
func (s *RoomService) GetRoomKey(ctx context.Context, roomID, userID int64) ([]byte, error) {
	keyRec, err := s.rooms.GetRoomKey(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if keyRec == nil {
		return nil, ErrNotRoomMember
	}

	masterKey, err := s.keys.Retrieve(ctx, userID)
	if err != nil {
		return nil, err
	}

	roomKey, err := vaultcrypto.UnwrapKey(keyRec.EncryptedRoomKey, keyRec.Nonce, keyRec.Tag, masterKey)
	if err != nil {
		return nil, fmt.Errorf("unwrap room key: %w", err)
	}
	return roomKey, nil
}

// CheckPermission — единственный RBAC-предикат, через который проходит
// каждая операция в комнате: rank(роль участника) >= rank(требуемая).
func (s *RoomService) CheckPermission(ctx context.Context, roomID, userID int64, requiredRole string) (bool, error) {
	member, err := s.rooms.GetMember(ctx, roomID, userID)
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}
	return model.RoleRank(member.Role) >= model.RoleRank(requiredRole), nil
}

// GetRoom возвращает комнату со списком участников (viewer+).
func (s *RoomService) GetRoom(ctx context.Context, roomID, userID int64) (*model.Room, []model.RoomMember, error) {
	ok, err := s.CheckPermission(ctx, roomID, userID, model.RoleViewer)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, ErrNotRoomMember
	}

	room, err := s.rooms.GetRoom(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	if room == nil {
		return nil, nil, fmt.Errorf("%w: room %d", ErrNotFound, roomID)
	}

	members, err := s.rooms.ListMembers(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	return room, members, nil
}

// ListRooms — комнаты, где пользователь состоит, вместе с его ролями.
func (s *RoomService) ListRooms(ctx context.Context, userID int64) ([]model.Room, map[int64]string, error) {
	rooms, members, err := s.rooms.ListRoomsForUser(ctx, userID)
	if err != nil {
		return nil, nil, err
	}
	roles := make(map[int64]string, len(members))
	for _, m := range members {
		roles[m.RoomID] = m.Role
	}
	return rooms, roles, nil
}

// DeleteRoom уничтожает комнату: сперва затирает шифртексты её файлов,
// затем одной транзакцией удаляет зависимые строки и саму комнату.
// Каскад явный: инвариант членство/ключ поддерживается логикой, не ORM.
func (s *RoomService) DeleteRoom(ctx context.Context, roomID, actorID int64) error {
	ok, err := s.CheckPermission(ctx, roomID, actorID, model.RoleOwner)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: only the owner can delete the room", ErrPermissionDenied)
	}

	files, err := s.files.ListByRoom(ctx, roomID)
	if err != nil {
		return err
	}
	// Затирание до удаления метаданных: сбой между шагами оставит
	// осиротевшую, но уже затёртую запись, а не живую ссылку в никуда.
	for _, f := range files {
		if _, err := s.store.Delete(f.EncryptedPath); err != nil {
			return fmt.Errorf("wipe room file %d: %w", f.ID, err)
		}
		versions, err := s.files.ListVersions(ctx, f.ID)
		if err != nil {
			return err
		}
		for _, v := range versions {
			if _, err := s.store.Delete(v.EncryptedPath); err != nil {
				return fmt.Errorf("wipe room file %d version %d: %w", f.ID, v.VersionNumber, err)
			}
		}
	}

	if err := s.rooms.DeleteRoom(ctx, roomID); err != nil {
		return err
	}

	s.audit.Success(ctx, actorID, "room_delete", fmt.Sprintf("deleted room %d", roomID))
	return nil
}
