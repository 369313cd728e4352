package auth

import (
	"context"
	"fmt"
	"log"
	"strings"

	"feedback-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// AdminRoomLocator finds the current admin room.
type AdminRoomLocator interface {
	AdminRoom(ctx context.Context) (int64, bool, error)
}

// AdminChecker decides who may run administrative commands: users listed in
// ADMIN_IDS, and the creator and administrators of the current admin room.
type AdminChecker struct {
	bot      telegoapi.BotAPI
	adminIDs map[int64]struct{}
	rooms    AdminRoomLocator
}

// NewAdminChecker creates a new AdminChecker.
// It requires a non-nil bot and room locator. adminIDs may be empty.
func NewAdminChecker(bot telegoapi.BotAPI, adminIDs []int64, rooms AdminRoomLocator) (*AdminChecker, error) {
	if bot == nil {
		return nil, fmt.Errorf("bot instance cannot be nil")
	}
	if rooms == nil {
		return nil, fmt.Errorf("admin room locator cannot be nil")
	}
	ids := make(map[int64]struct{}, len(adminIDs))
	for _, id := range adminIDs {
		ids[id] = struct{}{}
	}
	return &AdminChecker{bot: bot, adminIDs: ids, rooms: rooms}, nil
}

// IsAdmin reports whether userID is a configured administrator or manages the
// current admin room. Without an admin room only configured IDs qualify.
func (ac *AdminChecker) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	if _, ok := ac.adminIDs[userID]; ok {
		return true, nil
	}

	roomID, ok, err := ac.rooms.AdminRoom(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to find admin room: %w", err)
	}
	if !ok {
		return false, nil
	}

	member, err := ac.bot.GetChatMember(ctx, &telego.GetChatMemberParams{
		ChatID: telego.ChatID{ID: roomID},
		UserID: userID,
	})
	if err != nil {
		// A user not found in the room is simply not an admin.
		if strings.Contains(strings.ToLower(err.Error()), "user not found") {
			return false, nil
		}
		log.Printf("[AdminCheck User:%d Room:%d] Error checking chat member: %v. Assuming non-admin.", userID, roomID, err)
		return false, fmt.Errorf("failed to get chat member info: %w", err)
	}

	status := member.MemberStatus()
	return status == telego.MemberStatusCreator || status == telego.MemberStatusAdministrator, nil
}
