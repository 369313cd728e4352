package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"feedback-bot/internal/callbacks/payload"
	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/feedback"
	"feedback-bot/internal/locales"
	"feedback-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// maxSearchResults is how many hits /search offers for subscription.
const maxSearchResults = 5

// HandleStart handles the /start command.
// It sets up the bot commands, logs the action, and sends a welcome message.
func (h *MessageHandler) HandleStart(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.SetupCommands(ctx, bot); err != nil {
		return h.sendError(ctx, bot, message, fmt.Errorf("failed to set up commands: %w", err))
	}
	h.RecordAction(ctx, message, ActionCommandStart, nil)
	return h.reply(ctx, bot, message, "MsgStart", h.tagData())
}

// HandleHelp handles the /help command.
// Administrators see every command, everyone else only the public ones.
func (h *MessageHandler) HandleHelp(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)

	isAdmin, err := h.isAdmin(ctx, message.From)
	if err != nil {
		log.Printf("[Cmd:help User:%d] Admin check failed: %v. Assuming non-admin.", senderID(message), err)
		isAdmin = false
	}

	var helpText strings.Builder
	helpText.WriteString(locales.GetMessage(localizer, "MsgHelpHeader", nil, nil) + "\n")
	for _, cmd := range h.commands {
		if cmd.Access != AccessEveryone && !isAdmin {
			continue
		}
		desc := locales.GetMessage(localizer, cmd.Description, nil, nil)
		helpText.WriteString(fmt.Sprintf("/%s - %s\n", cmd.Command, desc))
	}
	helpText.WriteString("\n" + locales.GetMessage(localizer, "MsgHelpFooter", h.tagData(), nil))

	h.RecordAction(ctx, message, ActionCommandHelp, map[string]interface{}{"is_admin": isAdmin})
	return h.sendSuccess(ctx, bot, message.Chat.ID, helpText.String())
}

// HandleStats handles the /stats command.
func (h *MessageHandler) HandleStats(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	stats, err := h.workflow.Stats(ctx)
	if err != nil {
		return h.sendError(ctx, bot, message, fmt.Errorf("failed to load stats: %w", err))
	}
	h.RecordAction(ctx, message, ActionCommandStats, nil)
	return h.reply(ctx, bot, message, "MsgStats", map[string]interface{}{
		"Total":    stats.Total,
		"Pending":  stats.Pending,
		"Resolved": stats.Resolved,
		"Rejected": stats.Rejected,
		"Today":    stats.Today,
		"Requests": stats.Requests,
	})
}

// HandlePending handles the /pending command, listing items that still await a
// decision across as many messages as needed.
func (h *MessageHandler) HandlePending(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	items, err := h.workflow.Pending(ctx)
	if err != nil {
		return h.sendError(ctx, bot, message, fmt.Errorf("failed to list pending items: %w", err))
	}
	h.RecordAction(ctx, message, ActionCommandPending, map[string]interface{}{"count": len(items)})
	if len(items) == 0 {
		return h.reply(ctx, bot, message, "MsgPendingEmpty", nil)
	}

	header := locales.GetMessage(h.getLocalizer(message.From), "MsgPendingHeader", map[string]interface{}{"Count": len(items)}, nil)
	for _, chunk := range feedback.PendingChunks(header, items) {
		if _, err := bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), chunk)); err != nil {
			return fmt.Errorf("failed to send pending list: %w", err)
		}
	}
	return nil
}

// HandleSummary handles the /summary command by running the daily summary now.
func (h *MessageHandler) HandleSummary(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	n, err := h.workflow.DailySummary(ctx)
	if errors.Is(err, feedback.ErrNoSummaryTarget) {
		return h.reply(ctx, bot, message, "MsgSummaryNoTarget", nil)
	}
	if err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	h.RecordAction(ctx, message, ActionCommandSummary, map[string]interface{}{"count": n})
	if n == 0 {
		return h.reply(ctx, bot, message, "MsgSummaryNothingPending", nil)
	}
	return h.reply(ctx, bot, message, "MsgSummarySent", map[string]interface{}{"Count": n})
}

// HandleClear handles the /clear_db command.
func (h *MessageHandler) HandleClear(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.workflow.ClearAll(ctx, actorFrom(message)); err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	return h.reply(ctx, bot, message, "MsgClearDone", nil)
}

// HandleSetRoom handles /setroom admin|user for the current chat.
func (h *MessageHandler) HandleSetRoom(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	var role models.RoomRole
	switch strings.ToLower(commandArgs(message.Text)) {
	case "admin":
		role = models.RoleAdmin
	case "user":
		role = models.RoleUser
	default:
		return h.reply(ctx, bot, message, "MsgSetRoomUsage", nil)
	}

	if err := h.rooms.Assign(ctx, message.Chat.ID, message.Chat.Title, role); err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	log.Printf("[Cmd:setroom User:%d Chat:%d] Room assigned role %s", senderID(message), message.Chat.ID, role)
	h.RecordAction(ctx, message, ActionCommandSetRoom, map[string]interface{}{"role": string(role)})
	return h.reply(ctx, bot, message, "MsgRoomAssigned", map[string]interface{}{
		"Role": locales.GetMessage(h.getLocalizer(message.From), "Role_"+string(role), nil, nil),
	})
}

// HandleUnsetRoom handles /unsetroom for the current chat.
func (h *MessageHandler) HandleUnsetRoom(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	if err := h.rooms.Unassign(ctx, message.Chat.ID); err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	log.Printf("[Cmd:unsetroom User:%d Chat:%d] Room role removed", senderID(message), message.Chat.ID)
	h.RecordAction(ctx, message, ActionCommandUnsetRoom, nil)
	return h.reply(ctx, bot, message, "MsgRoomUnassigned", nil)
}

// HandleRooms handles /rooms, listing every room with a role.
func (h *MessageHandler) HandleRooms(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	all, err := h.rooms.List(ctx, models.RoleNone)
	if err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	h.RecordAction(ctx, message, ActionCommandRooms, nil)
	if len(all) == 0 {
		return h.reply(ctx, bot, message, "MsgRoomsEmpty", nil)
	}

	localizer := h.getLocalizer(message.From)
	lines := []string{locales.GetMessage(localizer, "MsgRoomsHeader", nil, nil)}
	for _, room := range all {
		lines = append(lines, locales.GetMessage(localizer, "MsgRoomLine", map[string]interface{}{
			"Name": room.Name,
			"ID":   room.RoomID,
			"Role": locales.GetMessage(localizer, "Role_"+string(room.Role()), nil, nil),
		}, nil))
	}
	return h.sendSuccess(ctx, bot, message.Chat.ID, strings.Join(lines, "\n"))
}

// HandleToggleMovie handles /toggle_movie [yes|no]. Without an argument it
// shows the current state; a change is also announced in the admin room.
func (h *MessageHandler) HandleToggleMovie(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	localizer := h.getLocalizer(message.From)
	stateName := func(enabled bool) string {
		return locales.GetMessage(localizer, toggleStateID(enabled), nil, nil)
	}

	var enabled bool
	switch strings.ToLower(commandArgs(message.Text)) {
	case "":
		current, err := h.toggles.GetToggle(ctx, models.FeatureMovieRequest)
		if err != nil {
			return h.sendError(ctx, bot, message, err)
		}
		return h.reply(ctx, bot, message, "MsgToggleStatus", map[string]interface{}{"Status": stateName(current)})
	case "yes":
		enabled = true
	case "no":
		enabled = false
	default:
		return h.reply(ctx, bot, message, "MsgToggleUsage", nil)
	}

	if err := h.toggles.SetToggle(ctx, models.FeatureMovieRequest, enabled); err != nil {
		return h.sendError(ctx, bot, message, err)
	}
	log.Printf("[Cmd:toggle_movie User:%d] Movie requests enabled=%t", senderID(message), enabled)
	h.RecordAction(ctx, message, ActionCommandToggleMovie, map[string]interface{}{"enabled": enabled})

	adminRoom, ok, err := h.rooms.AdminRoom(ctx)
	if err != nil {
		log.Printf("[Cmd:toggle_movie] Failed to find admin room for the notice: %v", err)
	} else if ok && adminRoom != message.Chat.ID {
		notice := locales.Message("MsgToggleNotice", map[string]interface{}{
			"Status": locales.Message(toggleStateID(enabled), nil),
			"Actor":  feedback.UserName(message.From),
		})
		_ = h.sendSuccess(ctx, bot, adminRoom, notice)
	}
	return h.reply(ctx, bot, message, "MsgToggleChanged", map[string]interface{}{"Status": stateName(enabled)})
}

// HandleSearch handles /search <title>, offering the hits as subscribe buttons.
func (h *MessageHandler) HandleSearch(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
	query := commandArgs(message.Text)
	if query == "" {
		return h.reply(ctx, bot, message, "MsgSearchUsage", nil)
	}
	h.RecordAction(ctx, message, ActionCommandSearch, map[string]interface{}{"query": query})

	found, err := h.catalog.Search(ctx, query)
	if err != nil {
		log.Printf("[Cmd:search Chat:%d] Catalog search for %q failed: %v", message.Chat.ID, query, err)
	}

	var hits []catalog.Candidate
	var buttons [][]telego.InlineKeyboardButton
	for _, c := range found {
		data, encErr := payload.Subscribe{CatalogID: c.IDs.CatalogID(), Title: c.Title, Year: c.Year}.Encode()
		if encErr != nil {
			continue
		}
		hits = append(hits, c)
		label := locales.Message("BtnSubscribe", map[string]interface{}{"Index": len(hits)})
		buttons = append(buttons, tu.InlineKeyboardRow(tu.InlineKeyboardButton(label).WithCallbackData(data)))
		if len(hits) == maxSearchResults {
			break
		}
	}

	if len(hits) == 0 {
		if err != nil {
			return h.reply(ctx, bot, message, "MsgSearchFailed", nil)
		}
		return h.reply(ctx, bot, message, "MsgSearchNoResults", map[string]interface{}{"Query": query})
	}

	text := locales.GetMessage(h.getLocalizer(message.From), "MsgSearchResults", map[string]interface{}{
		"Query":   query,
		"Results": feedback.CandidateLines(hits),
	}, nil)
	_, err = bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), text).WithReplyMarkup(tu.InlineKeyboard(buttons...)))
	if err != nil {
		return fmt.Errorf("failed to send search results: %w", err)
	}
	return nil
}

// SetupCommands registers the bot's commands with Telegram, with descriptions
// in the default language.
func (h *MessageHandler) SetupCommands(ctx context.Context, bot telegoapi.BotAPI) error {
	if len(h.commands) == 0 {
		log.Println("No commands defined in handler, skipping SetMyCommands.")
		return nil
	}

	localizer := locales.NewLocalizer()
	commands := make([]telego.BotCommand, 0, len(h.commands))
	for _, cmd := range h.commands {
		commands = append(commands, telego.BotCommand{
			Command:     cmd.Command,
			Description: locales.GetMessage(localizer, cmd.Description, nil, nil),
		})
	}

	if err := bot.SetMyCommands(ctx, &telego.SetMyCommandsParams{Commands: commands}); err != nil {
		return fmt.Errorf("failed to set bot commands: %w", err)
	}
	log.Printf("Successfully set %d bot commands.", len(commands))
	return nil
}

func toggleStateID(enabled bool) string {
	if enabled {
		return "ToggleOn"
	}
	return "ToggleOff"
}

func (h *MessageHandler) tagData() map[string]interface{} {
	return map[string]interface{}{
		"FeedbackTag":     h.opts.FeedbackTag,
		"MovieRequestTag": h.opts.MovieRequestTag,
		"Version":         h.opts.Version,
	}
}
