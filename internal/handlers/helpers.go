package handlers

import (
	"context"
	"log"
	"strings"
	"unicode"

	"feedback-bot/internal/database/models"
	"feedback-bot/internal/feedback"
	"feedback-bot/internal/locales"
	"feedback-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"github.com/nicksnyder/go-i18n/v2/i18n"
)

// sendSuccess sends text to the chat. Failures are only logged.
func (h *MessageHandler) sendSuccess(ctx context.Context, bot telegoapi.BotAPI, chatID int64, text string) error {
	_, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), text))
	if err != nil {
		log.Printf("Error sending success message to chat %d: %v", chatID, err)
	}
	return nil
}

// sendError sends a generic, localized error message to the chat and returns
// the original error so the update loop can report it.
func (h *MessageHandler) sendError(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, originalErr error) error {
	log.Printf("Error for user in chat %d: %v", message.Chat.ID, originalErr)

	errMsg := locales.GetMessage(h.getLocalizer(message.From), "MsgErrorGeneral", nil, nil)
	if _, sendErr := bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), errMsg)); sendErr != nil {
		log.Printf("Error sending generic error message to chat %d: %v", message.Chat.ID, sendErr)
	}
	return originalErr
}

// reply sends the localized message msgID to the chat of message.
func (h *MessageHandler) reply(ctx context.Context, bot telegoapi.BotAPI, message telego.Message, msgID string, data map[string]interface{}) error {
	text := locales.GetMessage(h.getLocalizer(message.From), msgID, data, nil)
	return h.sendSuccess(ctx, bot, message.Chat.ID, text)
}

// getLocalizer prefers the user's Telegram language and falls back to the
// default language.
func (h *MessageHandler) getLocalizer(user *telego.User) *i18n.Localizer {
	if user != nil && user.LanguageCode != "" {
		return locales.NewLocalizer(user.LanguageCode)
	}
	return locales.NewLocalizer()
}

// guard wraps a command handler with its access check.
func (h *MessageHandler) guard(cmd Command) func(context.Context, telegoapi.BotAPI, telego.Message) error {
	return func(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) error {
		switch cmd.Access {
		case AccessAdminRoom:
			ok, err := h.rooms.IsAuthorizedModerator(ctx, message.Chat.ID)
			if err != nil {
				return h.sendError(ctx, bot, message, err)
			}
			if !ok {
				log.Printf("[Cmd:%s Chat:%d] Used outside the admin room", cmd.Command, message.Chat.ID)
				return h.reply(ctx, bot, message, "MsgErrorRequiresAdminRoom", nil)
			}
		case AccessAdministrator:
			isAdmin, err := h.isAdmin(ctx, message.From)
			if err != nil {
				return h.sendError(ctx, bot, message, err)
			}
			if !isAdmin {
				log.Printf("[Cmd:%s User:%d] Non-admin attempted to use the command", cmd.Command, senderID(message))
				return h.reply(ctx, bot, message, "MsgErrorRequiresAdmin", nil)
			}
		}
		return cmd.Handler(ctx, bot, message)
	}
}

func (h *MessageHandler) isAdmin(ctx context.Context, user *telego.User) (bool, error) {
	if user == nil {
		return false, nil
	}
	return h.adminChecker.IsAdmin(ctx, user.ID)
}

func senderID(message telego.Message) int64 {
	if message.From == nil {
		return 0
	}
	return message.From.ID
}

// actorFrom describes the sender of a command.
func actorFrom(message telego.Message) feedback.Actor {
	return feedback.Actor{
		UserID: senderID(message),
		Name:   feedback.UserName(message.From),
		RoomID: message.Chat.ID,
	}
}

// commandArgs returns the text after the command word.
func commandArgs(text string) string {
	text = strings.TrimSpace(text)
	i := strings.IndexFunc(text, unicode.IsSpace)
	if i < 0 {
		return ""
	}
	return strings.TrimSpace(text[i:])
}

// RecordAction writes an audit entry for a command. Failures are only logged.
func (h *MessageHandler) RecordAction(ctx context.Context, message telego.Message, action string, details map[string]interface{}) {
	if h.actionLogger == nil {
		return
	}
	err := h.actionLogger.LogAction(ctx, models.ActionLog{
		ActorID:   senderID(message),
		ActorName: feedback.UserName(message.From),
		ChatID:    message.Chat.ID,
		Action:    action,
		Details:   details,
	})
	if err != nil {
		log.Printf("Error logging action %s for user %d: %v", action, senderID(message), err)
	}
}
