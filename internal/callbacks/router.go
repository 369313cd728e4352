// Package callbacks dispatches inline button presses to the feedback
// workflow and the catalog.
package callbacks

import (
	"context"
	"errors"
	"fmt"
	"log"

	"feedback-bot/internal/callbacks/payload"
	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/feedback"
	"feedback-bot/internal/locales"
	"feedback-bot/internal/metrics"
	"feedback-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Workflow is the part of the feedback workflow buttons can trigger.
type Workflow interface {
	Resolve(ctx context.Context, ref models.CardRef, actor feedback.Actor) (*feedback.Outcome, error)
	Reject(ctx context.Context, ref models.CardRef, actor feedback.Actor) (*feedback.Outcome, error)
	ApproveRequest(ctx context.Context, ref models.CardRef, decision feedback.RequestDecision, actor feedback.Actor) (*feedback.Outcome, error)
	RejectRequest(ctx context.Context, ref models.CardRef, decision feedback.RequestDecision, actor feedback.Actor) (*feedback.Outcome, error)
}

// ModeratorChecker tells whether actions may be taken from a room.
type ModeratorChecker interface {
	IsAuthorizedModerator(ctx context.Context, roomID int64) (bool, error)
}

// Subscriber subscribes to catalog titles.
type Subscriber interface {
	Subscribe(ctx context.Context, req catalog.SubscribeRequest) error
}

// Router decodes callback data and dispatches it.
type Router struct {
	bot      telegoapi.BotAPI
	workflow Workflow
	rooms    ModeratorChecker
	catalog  Subscriber
}

// NewRouter creates a Router.
func NewRouter(bot telegoapi.BotAPI, workflow Workflow, rooms ModeratorChecker, cat Subscriber) *Router {
	return &Router{bot: bot, workflow: workflow, rooms: rooms, catalog: cat}
}

// errStaleCard is returned when a button does not belong to the message it
// is attached to, or that message is no longer accessible.
var errStaleCard = errors.New("stale card")

// Handle processes one button press and always answers the callback. Only
// unexpected failures are returned; refusals are shown to the actor instead.
func (r *Router) Handle(ctx context.Context, query telego.CallbackQuery) error {
	msg, _ := query.Message.(*telego.Message)

	p, err := payload.Decode(query.Data)
	if err != nil {
		log.Printf("[Callback User:%d] Rejected payload %q: %v", query.From.ID, query.Data, err)
		metrics.Callbacks.WithLabelValues("unknown", metrics.ResultRejected).Inc()
		r.answer(ctx, query.ID, locales.Message("CbUnknownAction", nil), true)
		return nil
	}
	if msg == nil {
		metrics.Callbacks.WithLabelValues(p.Kind(), metrics.ResultRejected).Inc()
		r.answer(ctx, query.ID, locales.Message("CbStaleCard", nil), true)
		return nil
	}

	actor := feedback.Actor{
		UserID: query.From.ID,
		Name:   feedback.UserName(&query.From),
		RoomID: msg.Chat.ID,
	}
	log.Printf("[Callback User:%d Chat:%d] %s", actor.UserID, actor.RoomID, query.Data)

	var answerID string
	switch p := p.(type) {
	case payload.Feedback:
		answerID, err = r.handleFeedback(ctx, p, msg, actor)
	case payload.Request:
		answerID, err = r.handleRequest(ctx, p, msg, actor)
	case payload.Subscribe:
		answerID, err = r.handleSubscribe(ctx, p, msg, actor)
	default:
		err = fmt.Errorf("%w: %T", payload.ErrUnknownAction, p)
	}

	if err != nil {
		refusalID, expected := refusal(err)
		if !expected {
			metrics.Callbacks.WithLabelValues(p.Kind(), metrics.ResultError).Inc()
			r.answer(ctx, query.ID, locales.Message("MsgErrorGeneral", nil), true)
			return fmt.Errorf("callback %q: %w", query.Data, err)
		}
		log.Printf("[Callback User:%d] %q refused: %v", actor.UserID, query.Data, err)
		metrics.Callbacks.WithLabelValues(p.Kind(), metrics.ResultRejected).Inc()
		r.answer(ctx, query.ID, locales.Message(refusalID, nil), true)
		return nil
	}

	metrics.Callbacks.WithLabelValues(p.Kind(), metrics.ResultOK).Inc()
	r.answer(ctx, query.ID, locales.Message(answerID, nil), false)
	return nil
}

// refusal maps the errors an actor is told about to their message.
func refusal(err error) (msgID string, expected bool) {
	switch {
	case errors.Is(err, feedback.ErrNotAuthorized):
		return "CbNotAuthorized", true
	case errors.Is(err, feedback.ErrNotFound):
		return "CbNotFound", true
	case errors.Is(err, feedback.ErrAlreadyProcessed):
		return "CbAlreadyProcessed", true
	case errors.Is(err, feedback.ErrSubscribeFailed):
		return "CbSubscribeFailed", true
	case errors.Is(err, errStaleCard):
		return "CbStaleCard", true
	case errors.Is(err, payload.ErrUnknownAction):
		return "CbUnknownAction", true
	}
	return "", false
}

func (r *Router) handleFeedback(ctx context.Context, p payload.Feedback, msg *telego.Message, actor feedback.Actor) (string, error) {
	if p.MessageID != msg.MessageID {
		return "", errStaleCard
	}
	ref := models.CardRef{ChatID: msg.Chat.ID, MessageID: p.MessageID}
	switch p.Action {
	case payload.ActionResolve:
		_, err := r.workflow.Resolve(ctx, ref, actor)
		return "CbResolved", err
	case payload.ActionReject:
		_, err := r.workflow.Reject(ctx, ref, actor)
		return "CbRejected", err
	}
	return "", fmt.Errorf("%w: %s", payload.ErrUnknownAction, p.Action)
}

func (r *Router) handleRequest(ctx context.Context, p payload.Request, msg *telego.Message, actor feedback.Actor) (string, error) {
	ref := models.CardRef{ChatID: msg.Chat.ID, MessageID: msg.MessageID}
	decision := feedback.RequestDecision{
		CatalogID:   p.CatalogID,
		MediaType:   p.MediaType,
		RequesterID: p.RequesterID,
	}
	switch p.Action {
	case payload.ActionApprove:
		_, err := r.workflow.ApproveRequest(ctx, ref, decision, actor)
		return "CbApproved", err
	case payload.ActionReject:
		_, err := r.workflow.RejectRequest(ctx, ref, decision, actor)
		return "CbRejected", err
	}
	return "", fmt.Errorf("%w: %s", payload.ErrUnknownAction, p.Action)
}

// handleSubscribe subscribes to a /search result. The title kind is not part
// of the payload, so it is subscribed as a movie.
func (r *Router) handleSubscribe(ctx context.Context, p payload.Subscribe, msg *telego.Message, actor feedback.Actor) (string, error) {
	ok, err := r.rooms.IsAuthorizedModerator(ctx, actor.RoomID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", feedback.ErrNotAuthorized
	}
	ids, err := catalog.ParseCatalogID(p.CatalogID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", payload.ErrUnknownAction, err)
	}

	err = r.catalog.Subscribe(ctx, catalog.SubscribeRequest{
		Title:     p.Title,
		Year:      p.Year,
		MediaType: models.MediaMovie,
		IDs:       ids,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %w", feedback.ErrSubscribeFailed, err)
	}

	_, editErr := r.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(msg.Chat.ID),
		MessageID: msg.MessageID,
		Text: locales.Message("SubscribedEdit", map[string]interface{}{
			"Title": p.Title,
			"Year":  p.Year,
			"Actor": actor.Name,
		}),
	})
	if editErr != nil {
		log.Printf("[Callback Chat:%d] Failed to edit search results after subscribing: %v", msg.Chat.ID, editErr)
		sentry.CaptureException(fmt.Errorf("edit search results: %w", editErr))
	}
	return "CbSubscribed", nil
}

func (r *Router) answer(ctx context.Context, queryID, text string, alert bool) {
	params := tu.CallbackQuery(queryID).WithText(text)
	if alert {
		params = params.WithShowAlert()
	}
	if err := r.bot.AnswerCallbackQuery(ctx, params); err != nil {
		log.Printf("[Callback Query:%s] Failed to answer: %v", queryID, err)
	}
}
