package database

import (
	"context"
	"errors"
	"time"

	"feedback-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// UpsertRoom creates or updates the record of a room.
func (s *MongoStore) UpsertRoom(ctx context.Context, room models.Room) error {
	now := time.Now()
	update := bson.M{
		"$set": bson.M{
			"name":          room.Name,
			"is_admin_room": room.IsAdminRoom,
			"updated_at":    now,
		},
		"$setOnInsert": bson.M{
			"room_id":    room.RoomID,
			"created_at": now,
		},
	}
	_, err := s.rooms.UpdateOne(ctx, bson.M{"room_id": room.RoomID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return unavailable("upsert room", err)
	}
	return nil
}

// GetRoom retrieves the record of a room.
func (s *MongoStore) GetRoom(ctx context.Context, roomID int64) (*models.Room, error) {
	var room models.Room
	err := s.rooms.FindOne(ctx, bson.M{"room_id": roomID}).Decode(&room)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrRoomNotFound
		}
		return nil, unavailable("find room", err)
	}
	return &room, nil
}

// ListRooms lists rooms with the given role, or all rooms for models.RoleNone.
func (s *MongoStore) ListRooms(ctx context.Context, role models.RoomRole) ([]models.Room, error) {
	filter := bson.M{}
	switch role {
	case models.RoleAdmin:
		filter["is_admin_room"] = true
	case models.RoleUser:
		filter["is_admin_room"] = false
	}

	cursor, err := s.rooms.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, unavailable("find rooms", err)
	}
	defer cursor.Close(ctx)

	rooms := []models.Room{}
	if err := cursor.All(ctx, &rooms); err != nil {
		return nil, unavailable("decode rooms", err)
	}
	return rooms, nil
}

// RemoveRoom deletes the record of a room. Removing an unknown room is not an error.
func (s *MongoStore) RemoveRoom(ctx context.Context, roomID int64) error {
	if _, err := s.rooms.DeleteOne(ctx, bson.M{"room_id": roomID}); err != nil {
		return unavailable("delete room", err)
	}
	return nil
}

// DemoteAdminRooms turns every admin room other than except into a user room.
func (s *MongoStore) DemoteAdminRooms(ctx context.Context, except int64) error {
	filter := bson.M{"is_admin_room": true, "room_id": bson.M{"$ne": except}}
	update := bson.M{"$set": bson.M{"is_admin_room": false, "updated_at": time.Now()}}
	if _, err := s.rooms.UpdateMany(ctx, filter, update); err != nil {
		return unavailable("demote admin rooms", err)
	}
	return nil
}
