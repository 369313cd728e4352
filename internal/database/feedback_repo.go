package database

import (
	"context"
	"errors"
	"strings"
	"time"

	"feedback-bot/internal/database/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func cardFilter(ref models.CardRef) bson.M {
	return bson.M{"card_chat_id": ref.ChatID, "message_id": ref.MessageID}
}

// CreateFeedback saves a new feedback item and returns its sequential ID.
func (s *MongoStore) CreateFeedback(ctx context.Context, item *models.Feedback) (int64, error) {
	id, err := s.nextID(ctx, feedbackCollectionName)
	if err != nil {
		return 0, err
	}
	now := time.Now()
	item.ID = id
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = item.CreatedAt
	if item.Status == "" {
		item.Status = models.StatusPending
	}

	if _, err := s.feedback.InsertOne(ctx, item); err != nil {
		return 0, unavailable("insert feedback", err)
	}
	return id, nil
}

// SetCardRef records the card of an item that has none yet.
func (s *MongoStore) SetCardRef(ctx context.Context, id int64, ref models.CardRef) error {
	filter := bson.M{"_id": id, "message_id": 0}
	update := bson.M{"$set": bson.M{
		"card_chat_id": ref.ChatID,
		"message_id":   ref.MessageID,
		"updated_at":   time.Now(),
	}}
	result, err := s.feedback.UpdateOne(ctx, filter, update)
	if err != nil {
		return unavailable("set card ref", err)
	}
	if result.MatchedCount == 0 {
		return ErrCardRefAlreadySet
	}
	return nil
}

// DeleteFeedback removes an item, used when its card could not be posted.
func (s *MongoStore) DeleteFeedback(ctx context.Context, id int64) error {
	if _, err := s.feedback.DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return unavailable("delete feedback", err)
	}
	return nil
}

// UpdateStatus performs the pending -> status compare-and-set on an
// unclaimed item.
func (s *MongoStore) UpdateStatus(ctx context.Context, ref models.CardRef, status models.FeedbackStatus, actorID int64, actorName string) (bool, error) {
	return s.CommitClaimed(ctx, ref, "", status, actorID, actorName)
}

// claimFilter matches a pending item claimed by token; an empty token
// matches unclaimed items.
func claimFilter(ref models.CardRef, token string) bson.M {
	filter := cardFilter(ref)
	filter["status"] = models.StatusPending
	if token == "" {
		filter["claim_token"] = bson.M{"$in": bson.A{nil, ""}}
	} else {
		filter["claim_token"] = token
	}
	return filter
}

// ClaimFeedback reserves a pending item for the decision holding token.
func (s *MongoStore) ClaimFeedback(ctx context.Context, ref models.CardRef, token string) (bool, error) {
	update := bson.M{"$set": bson.M{"claim_token": token, "updated_at": time.Now()}}
	result, err := s.feedback.UpdateOne(ctx, claimFilter(ref, ""), update)
	if err != nil {
		return false, unavailable("claim feedback", err)
	}
	return result.MatchedCount > 0, nil
}

// ReleaseClaim drops the claim held by token.
func (s *MongoStore) ReleaseClaim(ctx context.Context, ref models.CardRef, token string) error {
	filter := cardFilter(ref)
	filter["claim_token"] = token
	if _, err := s.feedback.UpdateOne(ctx, filter, bson.M{"$unset": bson.M{"claim_token": ""}}); err != nil {
		return unavailable("release claim", err)
	}
	return nil
}

// CommitClaimed performs the pending -> status compare-and-set for the
// holder of token and clears the claim.
func (s *MongoStore) CommitClaimed(ctx context.Context, ref models.CardRef, token string, status models.FeedbackStatus, actorID int64, actorName string) (bool, error) {
	update := bson.M{
		"$set": bson.M{
			"status":        status,
			"resolved_by":   actorID,
			"resolver_name": actorName,
			"updated_at":    time.Now(),
		},
		"$unset": bson.M{"claim_token": ""},
	}
	result, err := s.feedback.UpdateOne(ctx, claimFilter(ref, token), update)
	if err != nil {
		return false, unavailable("update feedback status", err)
	}
	return result.MatchedCount > 0, nil
}

// GetByCardRef looks an item up by its moderation card.
func (s *MongoStore) GetByCardRef(ctx context.Context, ref models.CardRef) (*models.Feedback, error) {
	var item models.Feedback
	err := s.feedback.FindOne(ctx, cardFilter(ref)).Decode(&item)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrFeedbackNotFound
		}
		return nil, unavailable("find feedback by card", err)
	}
	return &item, nil
}

// ListPending returns every pending item, oldest first.
func (s *MongoStore) ListPending(ctx context.Context) ([]models.Feedback, error) {
	findOptions := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}})
	cursor, err := s.feedback.Find(ctx, bson.M{"status": models.StatusPending}, findOptions)
	if err != nil {
		return nil, unavailable("find pending feedback", err)
	}
	defer cursor.Close(ctx)

	items := []models.Feedback{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, unavailable("decode pending feedback", err)
	}
	return items, nil
}

// Stats counts items by status, today's submissions and movie requests.
func (s *MongoStore) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	now := time.Now()
	y, m, d := now.Date()
	startOfDay := time.Date(y, m, d, 0, 0, 0, 0, now.Location())

	stats := &models.FeedbackStats{}
	counts := []struct {
		name   string
		filter bson.M
		dst    *int64
	}{
		{"total", bson.M{}, &stats.Total},
		{"pending", bson.M{"status": models.StatusPending}, &stats.Pending},
		{"resolved", bson.M{"status": models.StatusResolved}, &stats.Resolved},
		{"rejected", bson.M{"status": models.StatusRejected}, &stats.Rejected},
		{"today", bson.M{"created_at": bson.M{"$gte": startOfDay}}, &stats.Today},
		{"requests", bson.M{"feedback_type": models.KindMovieRequest}, &stats.Requests},
	}

	for _, f := range counts {
		n, err := s.feedback.CountDocuments(ctx, f.filter)
		if err != nil {
			return nil, unavailable("count "+f.name+" feedback", err)
		}
		*f.dst = n
	}
	return stats, nil
}

// ClearAll deletes all feedback and room records in one transaction. Standalone
// servers reject transactions; there the two deletes run back to back.
func (s *MongoStore) ClearAll(ctx context.Context) error {
	session, err := s.db.Client().StartSession()
	if err != nil {
		return unavailable("start session", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		if _, err := s.feedback.DeleteMany(sc, bson.M{}); err != nil {
			return nil, err
		}
		if _, err := s.rooms.DeleteMany(sc, bson.M{}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err == nil {
		return nil
	}
	if !transactionsUnsupported(err) {
		return unavailable("clear all", err)
	}

	if _, err := s.feedback.DeleteMany(ctx, bson.M{}); err != nil {
		return unavailable("delete feedback", err)
	}
	if _, err := s.rooms.DeleteMany(ctx, bson.M{}); err != nil {
		return unavailable("delete rooms", err)
	}
	return nil
}

func transactionsUnsupported(err error) bool {
	var cmdErr mongo.CommandError
	if !errors.As(err, &cmdErr) {
		return false
	}
	// IllegalOperation: "Transaction numbers are only allowed on a replica set member or mongos"
	return cmdErr.Code == 20 || strings.Contains(cmdErr.Message, "Transaction numbers")
}
