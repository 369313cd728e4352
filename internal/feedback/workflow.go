// Package feedback turns tagged messages into moderated items: it classifies
// and stores submissions, posts their cards to the admin room and applies
// moderator decisions.
package feedback

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/locales"
	"feedback-bot/internal/metrics"
	"feedback-bot/internal/personas"
	"feedback-bot/internal/rooms"
	"feedback-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/google/uuid"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// Catalog is the part of the catalog client the workflow uses.
type Catalog interface {
	Search(ctx context.Context, title string) ([]catalog.Candidate, error)
	Subscribe(ctx context.Context, req catalog.SubscribeRequest) error
}

// Options configures a Workflow.
type Options struct {
	FeedbackTag     string
	MovieRequestTag string
	DisplayChatID   int64 // Daily summary target, 0 means the admin room
	// CardDeleteDelay is how long a decided card stays in the admin room
	// before it is deleted. Zero keeps cards.
	CardDeleteDelay time.Duration
	Personas        *personas.Directory
}

// cardDeleteTimeout bounds the delayed deletion of one card.
const cardDeleteTimeout = 10 * time.Second

// Requester is the author of a submission.
type Requester struct {
	UserID      int64
	Username    string
	DisplayName string
	MessageID   int // The submitted message, replied to with confirmations
}

// Actor is a moderator pressing a button or running a command.
type Actor struct {
	UserID int64
	Name   string
	RoomID int64 // Room the action came from
}

// Outcome is the result of a committed transition.
type Outcome struct {
	Item   *models.Feedback
	Status models.FeedbackStatus
}

// RequestDecision identifies the candidate a movie request decision is about.
type RequestDecision struct {
	CatalogID   string
	MediaType   models.MediaType
	RequesterID int64
}

// Workflow owns the lifecycle of feedback items and movie requests.
type Workflow struct {
	bot     telegoapi.BotAPI
	store   database.Store
	rooms   *rooms.Registry
	catalog Catalog
	opts    Options
	after   func(time.Duration, func()) // Schedules delayed card deletion
}

// NewWorkflow creates a Workflow.
func NewWorkflow(bot telegoapi.BotAPI, store database.Store, registry *rooms.Registry, cat Catalog, opts Options) *Workflow {
	return &Workflow{
		bot:     bot,
		store:   store,
		rooms:   registry,
		catalog: cat,
		opts:    opts,
		after: func(d time.Duration, f func()) {
			time.AfterFunc(d, f)
		},
	}
}

// Intake accepts a #反馈 message posted in roomID. Rejected submissions return
// *IntakeRejectedError and are not stored.
func (w *Workflow) Intake(ctx context.Context, roomID int64, requester Requester, raw string) (*models.Feedback, error) {
	kind := string(models.KindFeedback)

	ok, err := w.rooms.IsIntakeRoom(ctx, roomID)
	if err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		return nil, err
	}
	if !ok {
		metrics.Intake.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return nil, rejected(ReasonWrongRoom)
	}

	content, category, priority := Classify(raw, w.opts.FeedbackTag)
	if content == "" {
		metrics.Intake.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return nil, rejected(ReasonEmptyContent)
	}

	adminRoom, err := w.adminRoom(ctx, kind)
	if err != nil {
		return nil, err
	}

	item := w.newItem(roomID, requester, content)
	item.Category = category
	item.Priority = priority
	item.Kind = models.KindFeedback
	if _, err := w.store.CreateFeedback(ctx, item); err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to save feedback: %w", err)
	}
	log.Printf("[Workflow Item:%d User:%d] Feedback stored (%s/%s)", item.ID, item.UserID, category, priority)

	if err := w.postCard(ctx, adminRoom, item, feedbackCardText(item), feedbackKeyboard); err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		w.discard(ctx, item)
		return nil, err
	}

	w.bestEffort(item, "confirm_requester",
		w.reply(ctx, roomID, requester.MessageID, locales.Message("IntakeConfirmFeedback", itemData(item))))
	metrics.Intake.WithLabelValues(kind, metrics.ResultOK).Inc()
	return item, nil
}

// RequestMovie accepts a #求片 message: it searches the catalog and posts a
// card offering the best hits for approval.
func (w *Workflow) RequestMovie(ctx context.Context, roomID int64, requester Requester, raw string) (*models.Feedback, error) {
	kind := string(models.KindMovieRequest)

	enabled, err := w.store.GetToggle(ctx, models.FeatureMovieRequest)
	if err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to read feature toggle: %w", err)
	}
	if !enabled {
		metrics.Intake.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return nil, rejected(ReasonFeatureDisabled)
	}

	ok, err := w.rooms.IsIntakeRoom(ctx, roomID)
	if err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		return nil, err
	}
	if !ok {
		metrics.Intake.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return nil, rejected(ReasonWrongRoom)
	}

	content := stripTag(raw, w.opts.MovieRequestTag)
	if content == "" {
		metrics.Intake.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return nil, rejected(ReasonEmptyContent)
	}

	adminRoom, err := w.adminRoom(ctx, kind)
	if err != nil {
		return nil, err
	}

	found, searchErr := w.catalog.Search(ctx, content)
	if searchErr != nil {
		log.Printf("[Workflow User:%d] Catalog search for %q failed: %v", requester.UserID, content, searchErr)
	}
	candidates := offerable(found)

	item := w.newItem(roomID, requester, content)
	item.Category = models.CategoryGeneral
	item.Priority = models.PriorityNormal
	item.Kind = models.KindMovieRequest
	for _, c := range candidates {
		item.Candidates = append(item.Candidates, models.RequestCandidate{
			CatalogID: c.IDs.CatalogID(),
			Title:     c.Title,
			Year:      c.Year,
			MediaType: catalog.MediaTypeOf(c),
		})
	}
	if _, err := w.store.CreateFeedback(ctx, item); err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to save movie request: %w", err)
	}
	log.Printf("[Workflow Item:%d User:%d] Movie request stored with %d candidate(s)", item.ID, item.UserID, len(candidates))

	keyboard := func(models.CardRef) (*telego.InlineKeyboardMarkup, error) { return requestKeyboard(item) }
	if err := w.postCard(ctx, adminRoom, item, requestCardText(item, candidates, searchErr), keyboard); err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		w.discard(ctx, item)
		return nil, err
	}

	w.bestEffort(item, "confirm_requester",
		w.reply(ctx, roomID, requester.MessageID, locales.Message("IntakeConfirmRequest", itemData(item))))
	metrics.Intake.WithLabelValues(kind, metrics.ResultOK).Inc()
	return item, nil
}

// offerable keeps the first hits that carry a catalog id.
func offerable(found []catalog.Candidate) []catalog.Candidate {
	var candidates []catalog.Candidate
	for _, c := range found {
		if c.IDs.CatalogID() == "" {
			continue
		}
		candidates = append(candidates, c)
		if len(candidates) == maxCandidates {
			break
		}
	}
	return candidates
}

func (w *Workflow) newItem(roomID int64, requester Requester, content string) *models.Feedback {
	item := &models.Feedback{
		UserID:          requester.UserID,
		Username:        requester.Username,
		DisplayName:     requester.DisplayName,
		Content:         content,
		RoomID:          roomID,
		SourceMessageID: requester.MessageID,
		Status:          models.StatusPending,
	}
	if persona, ok := w.opts.Personas.Lookup(requester.UserID, requester.Username); ok {
		item.Persona = persona
	}
	return item
}

// discard removes an item whose card could not be posted, so no half-created
// item is left pending.
func (w *Workflow) discard(ctx context.Context, item *models.Feedback) {
	if err := w.store.DeleteFeedback(context.WithoutCancel(ctx), item.ID); err != nil {
		w.bestEffort(item, "discard_item", err)
		return
	}
	log.Printf("[Workflow Item:%d] Discarded after failed card post", item.ID)
}

func (w *Workflow) adminRoom(ctx context.Context, kind string) (int64, error) {
	adminRoom, ok, err := w.rooms.AdminRoom(ctx)
	if err != nil {
		metrics.Intake.WithLabelValues(kind, metrics.ResultError).Inc()
		return 0, err
	}
	if !ok {
		metrics.Intake.WithLabelValues(kind, metrics.ResultRejected).Inc()
		return 0, rejected(ReasonNoAdminRoom)
	}
	return adminRoom, nil
}

// postCard sends the card, records its reference and then attaches the
// buttons, which carry that reference. Pinning is best-effort.
func (w *Workflow) postCard(ctx context.Context, adminRoom int64, item *models.Feedback, text string,
	keyboard func(models.CardRef) (*telego.InlineKeyboardMarkup, error)) error {
	msg, err := w.bot.SendMessage(ctx, tu.Message(tu.ID(adminRoom), text))
	if err != nil {
		return fmt.Errorf("failed to post card for item %d: %w", item.ID, err)
	}
	if msg == nil {
		return fmt.Errorf("failed to post card for item %d: empty response", item.ID)
	}

	ref := models.CardRef{ChatID: adminRoom, MessageID: msg.MessageID}
	if err := w.attachButtons(ctx, item, ref, keyboard); err != nil {
		w.bestEffort(item, "delete_orphan_card", w.bot.DeleteMessage(context.WithoutCancel(ctx), &telego.DeleteMessageParams{
			ChatID:    tu.ID(adminRoom),
			MessageID: ref.MessageID,
		}))
		return err
	}

	w.bestEffort(item, "pin_card", w.bot.PinChatMessage(ctx, &telego.PinChatMessageParams{
		ChatID:              tu.ID(adminRoom),
		MessageID:           ref.MessageID,
		DisableNotification: true,
	}))
	log.Printf("[Workflow Item:%d] Card %d posted in admin room %d", item.ID, ref.MessageID, adminRoom)
	return nil
}

// attachButtons records the card reference and adds the buttons carrying it.
func (w *Workflow) attachButtons(ctx context.Context, item *models.Feedback, ref models.CardRef,
	keyboard func(models.CardRef) (*telego.InlineKeyboardMarkup, error)) error {
	if err := w.store.SetCardRef(ctx, item.ID, ref); err != nil {
		return fmt.Errorf("failed to record card of item %d: %w", item.ID, err)
	}
	item.Card = ref

	markup, err := keyboard(ref)
	if err != nil {
		return fmt.Errorf("failed to build buttons for item %d: %w", item.ID, err)
	}
	_, err = w.bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(ref.ChatID),
		MessageID:   ref.MessageID,
		ReplyMarkup: markup,
	})
	if err != nil {
		return fmt.Errorf("failed to attach buttons to card of item %d: %w", item.ID, err)
	}
	return nil
}

// Resolve marks the item behind ref as resolved.
func (w *Workflow) Resolve(ctx context.Context, ref models.CardRef, actor Actor) (*Outcome, error) {
	return w.transition(ctx, ref, actor, models.StatusResolved)
}

// Reject marks the item behind ref as rejected.
func (w *Workflow) Reject(ctx context.Context, ref models.CardRef, actor Actor) (*Outcome, error) {
	return w.transition(ctx, ref, actor, models.StatusRejected)
}

func actionOf(status models.FeedbackStatus) string {
	if status == models.StatusResolved {
		return "resolve"
	}
	return "reject"
}

func (w *Workflow) transition(ctx context.Context, ref models.CardRef, actor Actor, status models.FeedbackStatus) (*Outcome, error) {
	action := actionOf(status)
	item, err := w.loadPending(ctx, ref, actor, action)
	if err != nil {
		return nil, err
	}
	if err := w.commit(ctx, item, "", actor, status, action); err != nil {
		return nil, err
	}

	outcomeID, notifyID := "OutcomeResolved", "NotifyResolved"
	if status == models.StatusRejected {
		outcomeID, notifyID = "OutcomeRejected", "NotifyRejected"
	}
	w.closeCard(ctx, item, outcomeID, nil)
	w.notifyRequester(ctx, item, locales.Message(notifyID, itemData(item)))
	w.audit(ctx, actor, action, item, nil)
	return &Outcome{Item: item, Status: status}, nil
}

// loadPending runs the checks every decision shares: the action must come
// from the admin room and the item must exist and still be pending.
func (w *Workflow) loadPending(ctx context.Context, ref models.CardRef, actor Actor, action string) (*models.Feedback, error) {
	ok, err := w.rooms.IsAuthorizedModerator(ctx, actor.RoomID)
	if err != nil {
		metrics.Transitions.WithLabelValues(action, metrics.ResultError).Inc()
		return nil, err
	}
	if !ok {
		metrics.Transitions.WithLabelValues(action, metrics.ResultDenied).Inc()
		return nil, ErrNotAuthorized
	}

	item, err := w.store.GetByCardRef(ctx, ref)
	if errors.Is(err, database.ErrFeedbackNotFound) {
		metrics.Transitions.WithLabelValues(action, metrics.ResultNotFound).Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		metrics.Transitions.WithLabelValues(action, metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to load item of card %d: %w", ref.MessageID, err)
	}
	if item.Status.IsTerminal() || item.ClaimToken != "" {
		metrics.Transitions.WithLabelValues(action, metrics.ResultConflict).Inc()
		return nil, ErrAlreadyProcessed
	}
	return item, nil
}

// commit performs the compare-and-set, on behalf of the holder of claim when
// the item was claimed. Losing it to another moderator is reported as
// ErrAlreadyProcessed.
func (w *Workflow) commit(ctx context.Context, item *models.Feedback, claim string, actor Actor, status models.FeedbackStatus, action string) error {
	var won bool
	var err error
	if claim == "" {
		won, err = w.store.UpdateStatus(ctx, item.Card, status, actor.UserID, actor.Name)
	} else {
		won, err = w.store.CommitClaimed(ctx, item.Card, claim, status, actor.UserID, actor.Name)
	}
	if err != nil {
		metrics.Transitions.WithLabelValues(action, metrics.ResultError).Inc()
		return fmt.Errorf("failed to update item %d: %w", item.ID, err)
	}
	if !won {
		metrics.Transitions.WithLabelValues(action, metrics.ResultConflict).Inc()
		return ErrAlreadyProcessed
	}
	item.Status = status
	item.ResolvedBy = actor.UserID
	item.ResolverName = actor.Name
	metrics.Transitions.WithLabelValues(action, metrics.ResultOK).Inc()
	log.Printf("[Workflow Item:%d Actor:%d] %s committed", item.ID, actor.UserID, action)
	return nil
}

// ApproveRequest subscribes to the chosen candidate and resolves the request.
// When the catalog refuses, the request stays pending and ErrSubscribeFailed
// is returned.
func (w *Workflow) ApproveRequest(ctx context.Context, ref models.CardRef, decision RequestDecision, actor Actor) (*Outcome, error) {
	const action = "approve"
	item, err := w.loadPending(ctx, ref, actor, action)
	if err != nil {
		return nil, err
	}
	candidate, ok := item.Candidate(decision.CatalogID)
	if item.Kind != models.KindMovieRequest || item.UserID != decision.RequesterID || !ok {
		metrics.Transitions.WithLabelValues(action, metrics.ResultNotFound).Inc()
		return nil, ErrNotFound
	}
	ids, err := catalog.ParseCatalogID(candidate.CatalogID)
	if err != nil {
		metrics.Transitions.WithLabelValues(action, metrics.ResultNotFound).Inc()
		return nil, fmt.Errorf("%w: %v", ErrNotFound, err)
	}

	// Every other decision is refused while the claim is held.
	claim := uuid.NewString()
	won, err := w.store.ClaimFeedback(ctx, item.Card, claim)
	if err != nil {
		metrics.Transitions.WithLabelValues(action, metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to claim item %d: %w", item.ID, err)
	}
	if !won {
		metrics.Transitions.WithLabelValues(action, metrics.ResultConflict).Inc()
		return nil, ErrAlreadyProcessed
	}
	release := func() {
		w.bestEffort(item, "release_claim", w.store.ReleaseClaim(context.WithoutCancel(ctx), item.Card, claim))
	}

	sub := newSubscription(item, candidate.CatalogID, ids, decision.MediaType)
	sub.Title = candidate.Title
	sub.Year = candidate.Year
	if _, err := w.store.CreateSubscription(ctx, sub); err != nil {
		release()
		metrics.Transitions.WithLabelValues(action, metrics.ResultError).Inc()
		return nil, fmt.Errorf("failed to save subscription: %w", err)
	}

	err = w.catalog.Subscribe(ctx, catalog.SubscribeRequest{
		Title:     candidate.Title,
		Year:      candidate.Year,
		MediaType: decision.MediaType,
		IDs:       ids,
	})
	if err != nil {
		release()
		_, updateErr := w.store.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionRejected, actor.UserID)
		w.bestEffort(item, "reject_subscription", updateErr)
		metrics.Transitions.WithLabelValues(action, metrics.ResultError).Inc()
		log.Printf("[Workflow Item:%d] Catalog refused subscription to %s: %v", item.ID, candidate.CatalogID, err)
		return nil, fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	if err := w.commit(ctx, item, claim, actor, models.StatusResolved, action); err != nil {
		release()
		return nil, err
	}
	_, err = w.store.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionApproved, actor.UserID)
	w.bestEffort(item, "approve_subscription", err)

	data := map[string]interface{}{"Title": candidate.Title, "Year": candidate.Year}
	w.closeCard(ctx, item, "OutcomeApproved", data)
	notify := itemData(item)
	notify["Title"] = candidate.Title
	w.notifyRequester(ctx, item, locales.Message("NotifyRequestApproved", notify))
	w.audit(ctx, actor, action, item, map[string]interface{}{"catalog_id": candidate.CatalogID, "subscription_id": sub.ID})
	return &Outcome{Item: item, Status: models.StatusResolved}, nil
}

// RejectRequest rejects a movie request and records the declined candidate.
func (w *Workflow) RejectRequest(ctx context.Context, ref models.CardRef, decision RequestDecision, actor Actor) (*Outcome, error) {
	const action = "reject_request"
	item, err := w.loadPending(ctx, ref, actor, action)
	if err != nil {
		return nil, err
	}
	if item.Kind != models.KindMovieRequest || item.UserID != decision.RequesterID {
		metrics.Transitions.WithLabelValues(action, metrics.ResultNotFound).Inc()
		return nil, ErrNotFound
	}

	if err := w.commit(ctx, item, "", actor, models.StatusRejected, action); err != nil {
		return nil, err
	}

	var ids catalog.IDs
	if decision.CatalogID != noCandidateID {
		ids, _ = catalog.ParseCatalogID(decision.CatalogID)
	}
	sub := newSubscription(item, decision.CatalogID, ids, decision.MediaType)
	if candidate, ok := item.Candidate(decision.CatalogID); ok {
		sub.Title = candidate.Title
		sub.Year = candidate.Year
	}
	if _, err := w.store.CreateSubscription(ctx, sub); err != nil {
		w.bestEffort(item, "record_subscription", err)
	} else {
		_, err := w.store.UpdateSubscriptionStatus(ctx, sub.ID, models.SubscriptionRejected, actor.UserID)
		w.bestEffort(item, "reject_subscription", err)
	}

	w.closeCard(ctx, item, "OutcomeRejected", nil)
	w.notifyRequester(ctx, item, locales.Message("NotifyRequestRejected", itemData(item)))
	w.audit(ctx, actor, action, item, nil)
	return &Outcome{Item: item, Status: models.StatusRejected}, nil
}

func newSubscription(item *models.Feedback, catalogID string, ids catalog.IDs, mediaType models.MediaType) *models.Subscription {
	return &models.Subscription{
		UserID:     item.UserID,
		FeedbackID: item.ID,
		CatalogID:  catalogID,
		TMDBID:     ids.TMDB,
		DoubanID:   ids.Douban,
		BangumiID:  ids.Bangumi,
		Title:      item.Content,
		MediaType:  mediaType,
		Status:     models.SubscriptionPending,
	}
}

// closeCard replaces the card text with the outcome, which also drops the
// buttons, and unpins it.
func (w *Workflow) closeCard(ctx context.Context, item *models.Feedback, outcomeID string, data map[string]interface{}) {
	_, err := w.bot.EditMessageText(ctx, &telego.EditMessageTextParams{
		ChatID:    tu.ID(item.Card.ChatID),
		MessageID: item.Card.MessageID,
		Text:      closedCardText(item, outcomeID, data),
	})
	w.bestEffort(item, "edit_card", err)

	w.bestEffort(item, "unpin_card", w.bot.UnpinChatMessage(ctx, &telego.UnpinChatMessageParams{
		ChatID:    tu.ID(item.Card.ChatID),
		MessageID: item.Card.MessageID,
	}))
	w.scheduleCardDeletion(item)
}

// scheduleCardDeletion deletes a decided card once CardDeleteDelay has passed.
// Pending deletions are lost on restart.
func (w *Workflow) scheduleCardDeletion(item *models.Feedback) {
	if w.opts.CardDeleteDelay <= 0 {
		return
	}
	card := item.Card
	w.after(w.opts.CardDeleteDelay, func() {
		ctx, cancel := context.WithTimeout(context.Background(), cardDeleteTimeout)
		defer cancel()
		err := w.bot.DeleteMessage(ctx, &telego.DeleteMessageParams{
			ChatID:    tu.ID(card.ChatID),
			MessageID: card.MessageID,
		})
		w.bestEffort(item, "delete_card", err)
	})
}

func (w *Workflow) notifyRequester(ctx context.Context, item *models.Feedback, text string) {
	w.bestEffort(item, "notify_requester", w.reply(ctx, item.RoomID, item.SourceMessageID, text))
}

// reply sends text to roomID as a reply to messageID when it still exists.
func (w *Workflow) reply(ctx context.Context, roomID int64, messageID int, text string) error {
	params := tu.Message(tu.ID(roomID), text)
	if messageID != 0 {
		params = params.WithReplyParameters(&telego.ReplyParameters{
			MessageID:                messageID,
			AllowSendingWithoutReply: true,
		})
	}
	_, err := w.bot.SendMessage(ctx, params)
	return err
}

func (w *Workflow) audit(ctx context.Context, actor Actor, action string, item *models.Feedback, details map[string]interface{}) {
	if details == nil {
		details = map[string]interface{}{}
	}
	if item != nil {
		details["feedback_id"] = item.ID
	}
	err := w.store.LogAction(ctx, models.ActionLog{
		ActorID:   actor.UserID,
		ActorName: actor.Name,
		ChatID:    actor.RoomID,
		Action:    action,
		Details:   details,
	})
	if err != nil {
		log.Printf("[Workflow Actor:%d] Failed to write audit entry for %s: %v", actor.UserID, action, err)
	}
}

// bestEffort records the failure of a step that must not undo a committed
// change.
func (w *Workflow) bestEffort(item *models.Feedback, step string, err error) {
	if err == nil {
		return
	}
	log.Printf("[Workflow Item:%d Step:%s] %v", item.ID, step, err)
	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("step", step)
		scope.SetTag("feedback_id", strconv.FormatInt(item.ID, 10))
		sentry.CaptureException(err)
	})
}

// Stats returns the counts shown by /stats.
func (w *Workflow) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	return w.store.Stats(ctx)
}

// Pending lists every item still awaiting a decision, oldest first.
func (w *Workflow) Pending(ctx context.Context) ([]models.Feedback, error) {
	return w.store.ListPending(ctx)
}

// ClearAll deletes every item and every room assignment.
func (w *Workflow) ClearAll(ctx context.Context, actor Actor) error {
	if err := w.store.ClearAll(ctx); err != nil {
		return fmt.Errorf("failed to clear storage: %w", err)
	}
	log.Printf("[Workflow Actor:%d] Cleared all feedback and rooms", actor.UserID)
	w.audit(ctx, actor, "clear_all", nil, nil)
	return nil
}
