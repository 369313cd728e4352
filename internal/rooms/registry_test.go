package rooms

import (
	"context"
	"errors"
	"testing"

	"feedback-bot/internal/database"
	"feedback-bot/internal/database/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_RoleOf(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	reg := NewRegistry(store)

	require.NoError(t, reg.Assign(ctx, -100, "Admins", models.RoleAdmin))
	require.NoError(t, reg.Assign(ctx, -200, "Users", models.RoleUser))

	tests := []struct {
		name   string
		roomID int64
		want   models.RoomRole
	}{
		{"admin room", -100, models.RoleAdmin},
		{"user room", -200, models.RoleUser},
		{"unknown room", -300, models.RoleNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := reg.RoleOf(ctx, tt.roomID)
			require.NoError(t, err)
			assert.Equal(t, tt.want, role)
		})
	}
}

func TestRegistry_AssignAdminDemotesPrevious(t *testing.T) {
	ctx := context.Background()
	store := database.NewMemoryStore()
	reg := NewRegistry(store)

	require.NoError(t, reg.Assign(ctx, -100, "Old admins", models.RoleAdmin))
	require.NoError(t, reg.Assign(ctx, -101, "New admins", models.RoleAdmin))

	admin, ok, err := reg.AdminRoom(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(-101), admin)

	role, err := reg.RoleOf(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, role, "previous admin room keeps a user role")

	admins, err := reg.List(ctx, models.RoleAdmin)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
}

func TestRegistry_RoleChangeVisibleImmediately(t *testing.T) {
	ctx := context.Background()
	reg := NewRegistry(database.NewMemoryStore())

	require.NoError(t, reg.Assign(ctx, -100, "", models.RoleAdmin))
	ok, err := reg.IsAuthorizedModerator(ctx, -100)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, reg.Assign(ctx, -100, "", models.RoleUser))
	ok, err = reg.IsAuthorizedModerator(ctx, -100)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = reg.IsIntakeRoom(ctx, -100)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, reg.Unassign(ctx, -100))
	ok, err = reg.IsIntakeRoom(ctx, -100)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_NoAdminRoom(t *testing.T) {
	reg := NewRegistry(database.NewMemoryStore())
	_, ok, err := reg.AdminRoom(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRegistry_AssignRejectsNone(t *testing.T) {
	reg := NewRegistry(database.NewMemoryStore())
	assert.Error(t, reg.Assign(context.Background(), -1, "", models.RoleNone))
}

type failingRooms struct {
	database.RoomRepository
}

func (failingRooms) GetRoom(context.Context, int64) (*models.Room, error) {
	return nil, database.ErrStorageUnavailable
}

func TestRegistry_StorageFailurePropagates(t *testing.T) {
	reg := NewRegistry(failingRooms{})
	_, err := reg.RoleOf(context.Background(), -1)
	assert.True(t, errors.Is(err, database.ErrStorageUnavailable))
}
