package handlers

import (
	"context"
	"log"

	"feedback-bot/internal/database"
	"feedback-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// Access levels of a command.
type Access int

const (
	AccessEveryone      Access = iota
	AccessAdminRoom            // Must be sent from the admin room
	AccessAdministrator        // Sender must pass the AdminChecker
)

// Command represents a bot command, mapping the command string to its description and handler function.
type Command struct {
	Command     string // The command string (e.g., "start").
	Description string // Message ID of the localized description.
	Access      Access
	Handler     func(context.Context, telegoapi.BotAPI, telego.Message) error
}

// Options configures a MessageHandler.
type Options struct {
	FeedbackTag     string
	MovieRequestTag string
	Version         string
}

// MessageHandler handles incoming Telegram messages: commands and tagged
// submissions.
type MessageHandler struct {
	opts     Options
	commands []Command

	workflow     FeedbackWorkflow
	rooms        RoomRegistry
	toggles      ToggleStore
	catalog      CatalogSearcher
	adminChecker AdminCheckerInterface
	actionLogger database.ActionLogger
}

// NewMessageHandler creates and initializes a new MessageHandler instance.
// It sets up dependencies and defines the available bot commands.
func NewMessageHandler(
	opts Options,
	workflow FeedbackWorkflow,
	rooms RoomRegistry,
	toggles ToggleStore,
	catalog CatalogSearcher,
	adminChecker AdminCheckerInterface,
	actionLogger database.ActionLogger,
) *MessageHandler {
	if adminChecker == nil {
		log.Fatal("MessageHandler: Admin checker dependency is nil")
	}
	h := &MessageHandler{
		opts:         opts,
		workflow:     workflow,
		rooms:        rooms,
		toggles:      toggles,
		catalog:      catalog,
		adminChecker: adminChecker,
		actionLogger: actionLogger,
	}
	h.commands = []Command{
		{Command: "start", Description: "CmdStartDesc", Access: AccessEveryone, Handler: h.HandleStart},
		{Command: "help", Description: "CmdHelpDesc", Access: AccessEveryone, Handler: h.HandleHelp},
		{Command: "stats", Description: "CmdStatsDesc", Access: AccessAdminRoom, Handler: h.HandleStats},
		{Command: "pending", Description: "CmdPendingDesc", Access: AccessAdminRoom, Handler: h.HandlePending},
		{Command: "summary", Description: "CmdSummaryDesc", Access: AccessAdminRoom, Handler: h.HandleSummary},
		{Command: "search", Description: "CmdSearchDesc", Access: AccessAdminRoom, Handler: h.HandleSearch},
		{Command: "setroom", Description: "CmdSetRoomDesc", Access: AccessAdministrator, Handler: h.HandleSetRoom},
		{Command: "unsetroom", Description: "CmdUnsetRoomDesc", Access: AccessAdministrator, Handler: h.HandleUnsetRoom},
		{Command: "rooms", Description: "CmdRoomsDesc", Access: AccessAdministrator, Handler: h.HandleRooms},
		{Command: "toggle_movie", Description: "CmdToggleMovieDesc", Access: AccessAdministrator, Handler: h.HandleToggleMovie},
		{Command: "clear_db", Description: "CmdClearDesc", Access: AccessAdministrator, Handler: h.HandleClear},
	}
	return h
}

// GetCommandHandler retrieves the handler function associated with a specific command string (e.g., "start").
// The returned handler enforces the command's access level. It returns nil if the command is not found.
func (h *MessageHandler) GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error {
	for _, cmd := range h.commands {
		if cmd.Command == command {
			return h.guard(cmd)
		}
	}
	return nil
}

// Commands returns the registered commands.
func (h *MessageHandler) Commands() []Command {
	return h.commands
}
