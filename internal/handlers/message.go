package handlers

import (
	"context"
	"errors"
	"log"
	"strings"

	"feedback-bot/internal/database/models"
	"feedback-bot/internal/feedback"
	"feedback-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
)

// HandleText routes tagged submissions to the workflow. It reports false for
// messages that carry neither intake tag.
func (h *MessageHandler) HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) (bool, error) {
	text := message.Text
	if text == "" {
		text = message.Caption
	}
	text = strings.TrimSpace(text)

	var submit func(context.Context, int64, feedback.Requester, string) (*models.Feedback, error)
	switch {
	case h.opts.MovieRequestTag != "" && strings.HasPrefix(text, h.opts.MovieRequestTag):
		submit = h.workflow.RequestMovie
	case h.opts.FeedbackTag != "" && strings.HasPrefix(text, h.opts.FeedbackTag):
		submit = h.workflow.Intake
	default:
		return false, nil
	}

	requester := feedback.RequesterFrom(&message)
	item, err := submit(ctx, message.Chat.ID, requester, text)

	var rejectedErr *feedback.IntakeRejectedError
	switch {
	case errors.As(err, &rejectedErr):
		log.Printf("[HandleText User:%d Chat:%d] Submission rejected: %s", requester.UserID, message.Chat.ID, rejectedErr.Reason)
		return true, h.reply(ctx, bot, message, "IntakeRejected_"+string(rejectedErr.Reason), h.tagData())
	case err != nil:
		return true, h.sendError(ctx, bot, message, err)
	}
	log.Printf("[HandleText User:%d Chat:%d] Item %d submitted", requester.UserID, message.Chat.ID, item.ID)
	return true, nil
}
