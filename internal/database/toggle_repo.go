package database

import (
	"context"
	"errors"

	"feedback-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// GetToggle reads a feature toggle; toggles that were never set are enabled.
func (s *MongoStore) GetToggle(ctx context.Context, name string) (bool, error) {
	var toggle models.FeatureToggle
	err := s.toggles.FindOne(ctx, bson.M{"name": name}).Decode(&toggle)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return true, nil
		}
		return false, unavailable("find feature toggle", err)
	}
	return toggle.Enabled, nil
}

// SetToggle upserts a feature toggle.
func (s *MongoStore) SetToggle(ctx context.Context, name string, enabled bool) error {
	_, err := s.toggles.UpdateOne(ctx,
		bson.M{"name": name},
		bson.M{"$set": bson.M{"name": name, "enabled": enabled}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return unavailable("upsert feature toggle", err)
	}
	return nil
}
