package database

import (
	"context"
	"time"

	"feedback-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
)

// CreateSubscription stores a new subscription record and returns its ID.
func (s *MongoStore) CreateSubscription(ctx context.Context, sub *models.Subscription) (int64, error) {
	id, err := s.nextID(ctx, subscriptionCollectionName)
	if err != nil {
		return 0, err
	}
	sub.ID = id
	if sub.Status == "" {
		sub.Status = models.SubscriptionPending
	}
	sub.CreatedAt = time.Now()
	sub.UpdatedAt = sub.CreatedAt

	if _, err := s.subscriptions.InsertOne(ctx, sub); err != nil {
		return 0, unavailable("insert subscription", err)
	}
	return id, nil
}

// UpdateSubscriptionStatus performs the pending -> status compare-and-set.
func (s *MongoStore) UpdateSubscriptionStatus(ctx context.Context, id int64, status models.SubscriptionStatus, reviewerID int64) (bool, error) {
	filter := bson.M{"_id": id, "status": models.SubscriptionPending}
	update := bson.M{"$set": bson.M{
		"status":      status,
		"reviewed_by": reviewerID,
		"updated_at":  time.Now(),
	}}
	result, err := s.subscriptions.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, unavailable("update subscription status", err)
	}
	return result.MatchedCount > 0, nil
}
