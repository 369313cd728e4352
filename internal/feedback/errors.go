package feedback

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthorized is returned when an action comes from a room that is
	// not the admin room.
	ErrNotAuthorized = errors.New("not authorized")
	// ErrNotFound is returned when no item matches a card.
	ErrNotFound = errors.New("feedback item not found")
	// ErrAlreadyProcessed is returned when the item is no longer pending,
	// including when another moderator won the race for it.
	ErrAlreadyProcessed = errors.New("already processed")
	// ErrSubscribeFailed is returned when the catalog refused a subscription.
	// The request stays pending so it can be approved again.
	ErrSubscribeFailed = errors.New("catalog subscription failed")
	// ErrNoSummaryTarget is returned when neither a display chat nor an admin
	// room is configured.
	ErrNoSummaryTarget = errors.New("no room to post the summary to")
)

// RejectReason explains why a submission was not accepted.
type RejectReason string

const (
	ReasonWrongRoom       RejectReason = "wrong_room"
	ReasonEmptyContent    RejectReason = "empty_content"
	ReasonNoAdminRoom     RejectReason = "no_admin_room"
	ReasonFeatureDisabled RejectReason = "feature_disabled"
)

// IntakeRejectedError is returned for submissions that are not persisted.
type IntakeRejectedError struct {
	Reason RejectReason
}

func (e *IntakeRejectedError) Error() string {
	return fmt.Sprintf("intake rejected: %s", e.Reason)
}

func rejected(reason RejectReason) error {
	return &IntakeRejectedError{Reason: reason}
}
