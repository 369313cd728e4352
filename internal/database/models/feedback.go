package models

import (
	"time"
)

// FeedbackStatus is the moderation state of a feedback item.
type FeedbackStatus string

const (
	StatusPending  FeedbackStatus = "pending"
	StatusResolved FeedbackStatus = "resolved"
	StatusRejected FeedbackStatus = "rejected"
)

// IsTerminal reports whether no further transition is allowed from s.
func (s FeedbackStatus) IsTerminal() bool {
	return s == StatusResolved || s == StatusRejected
}

// Category is the topic a feedback item was tagged with.
type Category string

const (
	CategoryBug        Category = "bug"
	CategoryFeature    Category = "feature"
	CategoryQuestion   Category = "question"
	CategorySuggestion Category = "suggestion"
	CategoryGeneral    Category = "general"
)

// Priority is how urgent the requester marked an item.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Kind separates plain feedback from movie requests.
type Kind string

const (
	KindFeedback     Kind = "feedback"
	KindMovieRequest Kind = "movie_request"
)

// CardRef identifies the moderation card posted for an item. Telegram message
// IDs are only unique within a chat, so the chat is part of the reference.
type CardRef struct {
	ChatID    int64 `bson:"card_chat_id"`
	MessageID int   `bson:"message_id"`
}

// IsZero reports whether the card has not been posted yet.
func (r CardRef) IsZero() bool {
	return r.MessageID == 0
}

// Feedback represents a feedback item or movie request submitted from a user room.
type Feedback struct {
	ID              int64              `bson:"_id"`
	UserID          int64              `bson:"user_id"`
	Username        string             `bson:"username,omitempty"`
	DisplayName     string             `bson:"display_name,omitempty"`
	Persona         string             `bson:"persona,omitempty"` // Virtual identity shown instead of the account
	Content         string             `bson:"content"`
	Category        Category           `bson:"category"`
	Priority        Priority           `bson:"priority"`
	Kind            Kind               `bson:"feedback_type"`
	RoomID          int64              `bson:"room_id"`           // Origin room, never changes
	SourceMessageID int                `bson:"source_message_id"` // Requester's message in the origin room
	Card            CardRef            `bson:",inline"`
	Candidates      []RequestCandidate `bson:"candidates,omitempty"` // Catalog hits offered on a movie request card
	Status          FeedbackStatus     `bson:"status"`
	ClaimToken      string             `bson:"claim_token,omitempty"` // Set while an approval talks to the catalog
	ResolvedBy      int64              `bson:"resolved_by,omitempty"`
	ResolverName    string             `bson:"resolver_name,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

// RequestCandidate is a catalog search hit offered for approval on a movie
// request card.
type RequestCandidate struct {
	CatalogID string    `bson:"catalog_id"`
	Title     string    `bson:"title"`
	Year      string    `bson:"year,omitempty"`
	MediaType MediaType `bson:"media_type"`
}

// FeedbackStats aggregates counts over all stored items.
type FeedbackStats struct {
	Total    int64
	Pending  int64
	Resolved int64
	Rejected int64
	Today    int64
	Requests int64 // Movie requests, any status
}

// Candidate returns the offered candidate with the given catalog id.
func (f *Feedback) Candidate(catalogID string) (RequestCandidate, bool) {
	for _, c := range f.Candidates {
		if c.CatalogID == catalogID {
			return c, true
		}
	}
	return RequestCandidate{}, false
}
