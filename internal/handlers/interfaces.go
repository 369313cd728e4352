package handlers

import (
	"context"

	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/feedback"
)

// FeedbackWorkflow defines the workflow operations used by MessageHandler.
type FeedbackWorkflow interface {
	Intake(ctx context.Context, roomID int64, requester feedback.Requester, raw string) (*models.Feedback, error)
	RequestMovie(ctx context.Context, roomID int64, requester feedback.Requester, raw string) (*models.Feedback, error)
	Stats(ctx context.Context) (*models.FeedbackStats, error)
	Pending(ctx context.Context) ([]models.Feedback, error)
	DailySummary(ctx context.Context) (int, error)
	ClearAll(ctx context.Context, actor feedback.Actor) error
}

// RoomRegistry defines the room role operations used by MessageHandler.
type RoomRegistry interface {
	Assign(ctx context.Context, roomID int64, name string, role models.RoomRole) error
	Unassign(ctx context.Context, roomID int64) error
	List(ctx context.Context, role models.RoomRole) ([]models.Room, error)
	AdminRoom(ctx context.Context) (int64, bool, error)
	IsAuthorizedModerator(ctx context.Context, roomID int64) (bool, error)
}

// ToggleStore reads and writes feature toggles.
type ToggleStore interface {
	GetToggle(ctx context.Context, name string) (bool, error)
	SetToggle(ctx context.Context, name string, enabled bool) error
}

// CatalogSearcher searches the media catalog for /search.
type CatalogSearcher interface {
	Search(ctx context.Context, title string) ([]catalog.Candidate, error)
}

// AdminCheckerInterface decides who may run administrative commands.
type AdminCheckerInterface interface {
	IsAdmin(ctx context.Context, userID int64) (bool, error)
}
