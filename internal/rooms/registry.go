// Package rooms decides which chats act as the admin room and which accept
// submissions. Every query reads storage, so a role change takes effect on
// the next event without a restart.
package rooms

import (
	"context"
	"errors"
	"fmt"
	"log"

	"feedback-bot/internal/database"
	"feedback-bot/internal/database/models"
)

// Registry is the role policy over stored room records.
type Registry struct {
	repo database.RoomRepository
}

// NewRegistry creates a Registry backed by repo.
func NewRegistry(repo database.RoomRepository) *Registry {
	return &Registry{repo: repo}
}

// RoleOf returns the stored role of roomID, or models.RoleNone when the chat
// has no record.
func (r *Registry) RoleOf(ctx context.Context, roomID int64) (models.RoomRole, error) {
	room, err := r.repo.GetRoom(ctx, roomID)
	if err != nil {
		if errors.Is(err, database.ErrRoomNotFound) {
			return models.RoleNone, nil
		}
		return models.RoleNone, fmt.Errorf("failed to look up room %d: %w", roomID, err)
	}
	return room.Role(), nil
}

// Assign gives roomID the role. Assigning admin first demotes any other admin
// room, so at most one admin room exists after the call returns.
func (r *Registry) Assign(ctx context.Context, roomID int64, name string, role models.RoomRole) error {
	switch role {
	case models.RoleAdmin:
		if err := r.repo.DemoteAdminRooms(ctx, roomID); err != nil {
			return fmt.Errorf("failed to demote previous admin room: %w", err)
		}
	case models.RoleUser:
	default:
		return fmt.Errorf("cannot assign role %q", role)
	}

	err := r.repo.UpsertRoom(ctx, models.Room{
		RoomID:      roomID,
		Name:        name,
		IsAdminRoom: role == models.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("failed to assign role %s to room %d: %w", role, roomID, err)
	}
	log.Printf("[Rooms Room:%d] Assigned role %s", roomID, role)
	return nil
}

// Unassign removes any role from roomID.
func (r *Registry) Unassign(ctx context.Context, roomID int64) error {
	if err := r.repo.RemoveRoom(ctx, roomID); err != nil {
		return fmt.Errorf("failed to unassign room %d: %w", roomID, err)
	}
	log.Printf("[Rooms Room:%d] Role removed", roomID)
	return nil
}

// AdminRoom returns the current admin room. ok is false when none is assigned.
func (r *Registry) AdminRoom(ctx context.Context) (roomID int64, ok bool, err error) {
	rooms, err := r.repo.ListRooms(ctx, models.RoleAdmin)
	if err != nil {
		return 0, false, fmt.Errorf("failed to list admin rooms: %w", err)
	}
	if len(rooms) == 0 {
		return 0, false, nil
	}
	if len(rooms) > 1 {
		log.Printf("[Rooms] Found %d admin rooms, using %d", len(rooms), rooms[0].RoomID)
	}
	return rooms[0].RoomID, true, nil
}

// IsAuthorizedModerator reports whether moderation actions may be taken from
// roomID.
func (r *Registry) IsAuthorizedModerator(ctx context.Context, roomID int64) (bool, error) {
	role, err := r.RoleOf(ctx, roomID)
	if err != nil {
		return false, err
	}
	return role == models.RoleAdmin, nil
}

// IsIntakeRoom reports whether submissions are accepted from roomID.
func (r *Registry) IsIntakeRoom(ctx context.Context, roomID int64) (bool, error) {
	role, err := r.RoleOf(ctx, roomID)
	if err != nil {
		return false, err
	}
	return role == models.RoleUser, nil
}

// List returns rooms holding role, or all rooms for models.RoleNone.
func (r *Registry) List(ctx context.Context, role models.RoomRole) ([]models.Room, error) {
	rooms, err := r.repo.ListRooms(ctx, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	return rooms, nil
}
