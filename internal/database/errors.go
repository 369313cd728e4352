package database

import (
	"errors"
	"fmt"
)

var (
	// ErrStorageUnavailable wraps every failure to reach the storage engine.
	ErrStorageUnavailable = errors.New("storage unavailable")
	// ErrFeedbackNotFound is returned when no feedback item matches a lookup.
	ErrFeedbackNotFound = errors.New("feedback not found")
	// ErrRoomNotFound is returned when a chat has no room record.
	ErrRoomNotFound = errors.New("room not found")
	// ErrCardRefAlreadySet is returned when an item already has a card.
	ErrCardRefAlreadySet = errors.New("card reference already set")
)

// unavailable wraps a driver error so callers can match ErrStorageUnavailable.
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
