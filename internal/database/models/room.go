package models

import "time"

// RoomRole is the role a chat plays in the intake pipeline.
type RoomRole string

const (
	// RoleNone is returned for chats without a stored record. Passed to a
	// listing it means "any role".
	RoleNone  RoomRole = ""
	RoleAdmin RoomRole = "admin"
	RoleUser  RoomRole = "user"
)

// Room is a chat that has been assigned a role.
type Room struct {
	RoomID      int64     `bson:"room_id"`
	Name        string    `bson:"name,omitempty"`
	IsAdminRoom bool      `bson:"is_admin_room"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// Role derives the role from the stored flag.
func (r Room) Role() RoomRole {
	if r.IsAdminRoom {
		return RoleAdmin
	}
	return RoleUser
}
