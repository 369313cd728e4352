package models

import "time"

// SubscriptionStatus defines the possible states of a catalog subscription.
type SubscriptionStatus string

const (
	SubscriptionPending  SubscriptionStatus = "pending"
	SubscriptionApproved SubscriptionStatus = "approved"
	SubscriptionRejected SubscriptionStatus = "rejected"
)

// MediaType is the kind of title requested from the catalog.
type MediaType string

const (
	MediaMovie MediaType = "movie"
	MediaTV    MediaType = "tv"
)

// Subscription records a moderator decision on a movie request.
// At most one of the catalog IDs is normally populated.
type Subscription struct {
	ID         int64              `bson:"_id"`
	UserID     int64              `bson:"user_id"`
	FeedbackID int64              `bson:"feedback_id,omitempty"`
	CatalogID  string             `bson:"catalog_id"`
	TMDBID     string             `bson:"tmdb_id,omitempty"`
	DoubanID   string             `bson:"douban_id,omitempty"`
	BangumiID  string             `bson:"bangumi_id,omitempty"`
	Title      string             `bson:"title,omitempty"`
	Year       string             `bson:"year,omitempty"`
	MediaType  MediaType          `bson:"media_type"`
	Status     SubscriptionStatus `bson:"status"`
	ReviewedBy int64              `bson:"reviewed_by,omitempty"`
	CreatedAt  time.Time          `bson:"created_at"`
	UpdatedAt  time.Time          `bson:"updated_at"`
}
