package database

import (
	"context"

	"feedback-bot/internal/database/models"
)

// FeedbackRepository defines storage operations for feedback items.
type FeedbackRepository interface {
	// CreateFeedback stores a new item and returns its assigned numeric ID.
	CreateFeedback(ctx context.Context, item *models.Feedback) (int64, error)
	// SetCardRef records the moderation card of an item. It succeeds at most
	// once per item; later calls return ErrCardRefAlreadySet.
	SetCardRef(ctx context.Context, id int64, ref models.CardRef) error
	// DeleteFeedback removes an item whose card could not be posted.
	DeleteFeedback(ctx context.Context, id int64) error
	// UpdateStatus moves a pending, unclaimed item to status. It reports false
	// when no such item matched, which includes losing a race to another
	// moderator.
	UpdateStatus(ctx context.Context, ref models.CardRef, status models.FeedbackStatus, actorID int64, actorName string) (bool, error)
	// ClaimFeedback reserves a pending, unclaimed item for the holder of
	// token. It reports false when the item is decided or already claimed.
	ClaimFeedback(ctx context.Context, ref models.CardRef, token string) (bool, error)
	// ReleaseClaim drops the claim held by token, if any.
	ReleaseClaim(ctx context.Context, ref models.CardRef, token string) error
	// CommitClaimed moves the item claimed by token to status and clears the
	// claim.
	CommitClaimed(ctx context.Context, ref models.CardRef, token string, status models.FeedbackStatus, actorID int64, actorName string) (bool, error)
	// GetByCardRef returns ErrFeedbackNotFound when no item matches.
	GetByCardRef(ctx context.Context, ref models.CardRef) (*models.Feedback, error)
	ListPending(ctx context.Context) ([]models.Feedback, error)
	Stats(ctx context.Context) (*models.FeedbackStats, error)
	// ClearAll deletes every feedback item and every room record together.
	ClearAll(ctx context.Context) error
}

// RoomRepository defines storage operations for room role records.
type RoomRepository interface {
	UpsertRoom(ctx context.Context, room models.Room) error
	// GetRoom returns ErrRoomNotFound when the chat has no record.
	GetRoom(ctx context.Context, roomID int64) (*models.Room, error)
	// ListRooms lists rooms holding role; models.RoleNone lists all rooms.
	ListRooms(ctx context.Context, role models.RoomRole) ([]models.Room, error)
	RemoveRoom(ctx context.Context, roomID int64) error
	// DemoteAdminRooms clears the admin flag on every room except the given one.
	DemoteAdminRooms(ctx context.Context, except int64) error
}

// ToggleRepository defines storage operations for feature toggles.
type ToggleRepository interface {
	// GetToggle reports true for toggles that were never set.
	GetToggle(ctx context.Context, name string) (bool, error)
	SetToggle(ctx context.Context, name string, enabled bool) error
}

// SubscriptionRepository defines storage operations for catalog subscriptions.
type SubscriptionRepository interface {
	CreateSubscription(ctx context.Context, sub *models.Subscription) (int64, error)
	// UpdateSubscriptionStatus moves a pending subscription to status and
	// reports false when it was not pending.
	UpdateSubscriptionStatus(ctx context.Context, id int64, status models.SubscriptionStatus, reviewerID int64) (bool, error)
}

// ActionLogger defines the interface for auditing moderator and administrator actions.
type ActionLogger interface {
	LogAction(ctx context.Context, entry models.ActionLog) error
}

// Store is every repository the bot needs, backed by one storage engine.
type Store interface {
	FeedbackRepository
	RoomRepository
	ToggleRepository
	SubscriptionRepository
	ActionLogger
}
