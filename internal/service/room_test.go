package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"SecureVault/internal/model"
)

func TestRoomService_CreateRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "design", "drawings")
	require.NoError(t, err)
	assert.Equal(t, owner.ID, room.OwnerID)

	// Ровно одно членство (owner) и ровно одна копия ключа.
	var members, keys int64
	require.NoError(t, env.db.Model(&model.RoomMember{}).Where("room_id = ?", room.ID).Count(&members).Error)
	require.NoError(t, env.db.Model(&model.RoomKey{}).Where("room_id = ?", room.ID).Count(&keys).Error)
	assert.Equal(t, int64(1), members)
	assert.Equal(t, int64(1), keys)

	m, err := env.rooms.rooms.GetMember(ctx, room.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, m)
	assert.Equal(t, model.RoleOwner, m.Role)
}

func TestRoomService_CreateRoom_EmptyName(t *testing.T) {
	env := newTestEnv(t)
	owner := env.register(t, "owner")

	_, err := env.rooms.CreateRoom(context.Background(), owner.ID, "", "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestRoomService_GetRoomKey_SharedAcrossMembers(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	member := env.register(t, "member")

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "shared", "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.AddMember(ctx, room.ID, member.ID, model.RoleMember, owner.ID))

	ownerKey, err := env.rooms.GetRoomKey(ctx, room.ID, owner.ID)
	require.NoError(t, err)
	memberKey, err := env.rooms.GetRoomKey(ctx, room.ID, member.ID)
	require.NoError(t, err)

	assert.Len(t, ownerKey, 32)
	assert.Equal(t, ownerKey, memberKey, "обе копии разворачиваются в один ключ комнаты")

	// Копии в БД зашифрованы разными мастер-ключами и потому различны.
	var recs []model.RoomKey
	require.NoError(t, env.db.Where("room_id = ?", room.ID).Find(&recs).Error)
	require.Len(t, recs, 2)
	assert.NotEqual(t, recs[0].EncryptedRoomKey, recs[1].EncryptedRoomKey)
}

func TestRoomService_AddMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	bob := env.register(t, "bob")
	eve := env.register(t, "eve")

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "room", "")
	require.NoError(t, err)

	t.Run("duplicate membership", func(t *testing.T) {
		require.NoError(t, env.rooms.AddMember(ctx, room.ID, bob.ID, model.RoleViewer, owner.ID))
		err := env.rooms.AddMember(ctx, room.ID, bob.ID, model.RoleMember, owner.ID)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid role", func(t *testing.T) {
		err := env.rooms.AddMember(ctx, room.ID, eve.ID, "owner", owner.ID)
		assert.ErrorIs(t, err, ErrValidation)

		err = env.rooms.AddMember(ctx, room.ID, eve.ID, "superuser", owner.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("actor outside the room", func(t *testing.T) {
		err := env.rooms.AddMember(ctx, room.ID, eve.ID, model.RoleMember, eve.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("viewer cannot add", func(t *testing.T) {
		err := env.rooms.AddMember(ctx, room.ID, eve.ID, model.RoleMember, bob.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})
}

func TestRoomService_RemoveMember(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	bob := env.register(t, "bob")

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "room", "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.AddMember(ctx, room.ID, bob.ID, model.RoleMember, owner.ID))

	require.NoError(t, env.rooms.RemoveMember(ctx, room.ID, bob.ID, owner.ID))

	// Членство и копия ключа уходят вместе.
	var members, keys int64
	require.NoError(t, env.db.Model(&model.RoomMember{}).Where("room_id = ? AND user_id = ?", room.ID, bob.ID).Count(&members).Error)
	require.NoError(t, env.db.Model(&model.RoomKey{}).Where("room_id = ? AND user_id = ?", room.ID, bob.ID).Count(&keys).Error)
	assert.Zero(t, members)
	assert.Zero(t, keys)

	_, err = env.rooms.GetRoomKey(ctx, room.ID, bob.ID)
	assert.ErrorIs(t, err, ErrNotRoomMember)

	t.Run("not a member", func(t *testing.T) {
		err := env.rooms.RemoveMember(ctx, room.ID, bob.ID, owner.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("owner is not removable", func(t *testing.T) {
		err := env.rooms.RemoveMember(ctx, room.ID, owner.ID, owner.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestRoomService_ChangeRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	admin := env.register(t, "admin")
	bob := env.register(t, "bob")

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "room", "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.AddMember(ctx, room.ID, admin.ID, model.RoleAdmin, owner.ID))
	require.NoError(t, env.rooms.AddMember(ctx, room.ID, bob.ID, model.RoleViewer, owner.ID))

	t.Run("owner promotes", func(t *testing.T) {
		require.NoError(t, env.rooms.ChangeRole(ctx, room.ID, bob.ID, model.RoleAdmin, owner.ID))
		m, err := env.rooms.rooms.GetMember(ctx, room.ID, bob.ID)
		require.NoError(t, err)
		assert.Equal(t, model.RoleAdmin, m.Role)
	})

	t.Run("admin cannot change roles", func(t *testing.T) {
		err := env.rooms.ChangeRole(ctx, room.ID, bob.ID, model.RoleViewer, admin.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	t.Run("owner role is immutable", func(t *testing.T) {
		err := env.rooms.ChangeRole(ctx, room.ID, owner.ID, model.RoleAdmin, owner.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("owner is not assignable", func(t *testing.T) {
		err := env.rooms.ChangeRole(ctx, room.ID, bob.ID, model.RoleOwner, owner.ID)
		assert.ErrorIs(t, err, ErrValidation)
	})
}

func TestRoomService_PermissionLattice(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	users := map[string]*model.User{
		model.RoleAdmin:  env.register(t, "admin"),
		model.RoleMember: env.register(t, "member"),
		model.RoleViewer: env.register(t, "viewer"),
	}

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "lattice", "")
	require.NoError(t, err)
	for role, u := range users {
		require.NoError(t, env.rooms.AddMember(ctx, room.ID, u.ID, role, owner.ID))
	}

	check := func(userID int64, required string) bool {
		ok, err := env.rooms.CheckPermission(ctx, room.ID, userID, required)
		require.NoError(t, err)
		return ok
	}

	// Роль проходит проверку на свой уровень и всё, что ниже.
	assert.True(t, check(owner.ID, model.RoleOwner))
	assert.True(t, check(owner.ID, model.RoleViewer))

	assert.False(t, check(users[model.RoleAdmin].ID, model.RoleOwner))
	assert.True(t, check(users[model.RoleAdmin].ID, model.RoleAdmin))
	assert.True(t, check(users[model.RoleAdmin].ID, model.RoleMember))

	assert.False(t, check(users[model.RoleMember].ID, model.RoleAdmin))
	assert.True(t, check(users[model.RoleMember].ID, model.RoleMember))
	assert.True(t, check(users[model.RoleMember].ID, model.RoleViewer))

	assert.False(t, check(users[model.RoleViewer].ID, model.RoleMember))
	assert.True(t, check(users[model.RoleViewer].ID, model.RoleViewer))

	// Не участник не проходит ни одну проверку.
	outsider := env.register(t, "outsider")
	assert.False(t, check(outsider.ID, model.RoleViewer))
}

func TestRoomService_ListRooms(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	bob := env.register(t, "bob")

	r1, err := env.rooms.CreateRoom(ctx, owner.ID, "one", "")
	require.NoError(t, err)
	_, err = env.rooms.CreateRoom(ctx, owner.ID, "two", "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.AddMember(ctx, r1.ID, bob.ID, model.RoleViewer, owner.ID))

	rooms, roles, err := env.rooms.ListRooms(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, r1.ID, rooms[0].ID)
	assert.Equal(t, model.RoleViewer, roles[r1.ID])

	rooms, _, err = env.rooms.ListRooms(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, rooms, 2)
}

func TestRoomService_DeleteRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.register(t, "owner")
	admin := env.register(t, "admin")

	room, err := env.rooms.CreateRoom(ctx, owner.ID, "doomed", "")
	require.NoError(t, err)
	require.NoError(t, env.rooms.AddMember(ctx, room.ID, admin.ID, model.RoleAdmin, owner.ID))

	f, err := env.files.UploadToRoom(ctx, room.ID, owner.ID, "doc.txt", []byte("payload"), "", "AES-GCM")
	require.NoError(t, err)
	_, err = env.chat.PostMessage(ctx, room.ID, admin.ID, []byte("ct"), []byte("n"), []byte("t"))
	require.NoError(t, err)

	t.Run("admin cannot delete", func(t *testing.T) {
		err := env.rooms.DeleteRoom(ctx, room.ID, admin.ID)
		assert.ErrorIs(t, err, ErrPermissionDenied)
	})

	require.NoError(t, env.rooms.DeleteRoom(ctx, room.ID, owner.ID))

	// Шифртекст затёрт, зависимые строки ушли.
	_, ok := env.store.Size(f.EncryptedPath)
	assert.False(t, ok)

	for _, tc := range []struct {
		m     any
		label string
	}{
		{&model.RoomMember{}, "members"},
		{&model.RoomKey{}, "keys"},
		{&model.File{}, "files"},
		{&model.ChatMessage{}, "messages"},
	} {
		var count int64
		require.NoError(t, env.db.Model(tc.m).Where("room_id = ?", room.ID).Count(&count).Error)
		assert.Zero(t, count, tc.label)
	}

	got, err := env.rooms.rooms.GetRoom(ctx, room.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}
