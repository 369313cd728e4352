package database

import (
	"context"
	"time"

	"feedback-bot/internal/database/models"
)

// LogAction writes an audit entry for a moderation or administrative action.
func (s *MongoStore) LogAction(ctx context.Context, entry models.ActionLog) error {
	if entry.Time.IsZero() {
		entry.Time = time.Now()
	}
	if _, err := s.actionLogs.InsertOne(ctx, entry); err != nil {
		return unavailable("insert action log into "+actionLogCollectionName, err)
	}
	return nil
}
