package feedback

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/locales"
	"feedback-bot/internal/personas"
	"feedback-bot/internal/rooms"
	"feedback-bot/pkg/telegoapi/telegoapimock"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	adminRoomID = int64(-100)
	userRoomID  = int64(-200)
	otherRoomID = int64(-300)
)

func TestMain(m *testing.M) {
	locales.Init("en")
	os.Exit(m.Run())
}

type fakeCatalog struct {
	mu           sync.Mutex
	candidates   []catalog.Candidate
	searchErr    error
	subscribeErr error
	subscribed   []catalog.SubscribeRequest
	entered      chan struct{} // Signalled when Subscribe starts
	release      chan struct{} // Subscribe waits for it when set
}

func (f *fakeCatalog) Search(context.Context, string) ([]catalog.Candidate, error) {
	if f.searchErr != nil {
		return []catalog.Candidate{}, f.searchErr
	}
	return f.candidates, nil
}

func (f *fakeCatalog) Subscribe(_ context.Context, req catalog.SubscribeRequest) error {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subscribed = append(f.subscribed, req)
	return f.subscribeErr
}

type testEnv struct {
	workflow *Workflow
	store    *database.MemoryStore
	bot      *telegoapimock.MockBot
	catalog  *fakeCatalog
}

// newTestEnv wires a workflow with an admin room, a user room and a bot on
// which every call succeeds.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	store := database.NewMemoryStore()
	registry := rooms.NewRegistry(store)
	require.NoError(t, registry.Assign(ctx, adminRoomID, "Moderators", models.RoleAdmin))
	require.NoError(t, registry.Assign(ctx, userRoomID, "Community", models.RoleUser))

	bot := new(telegoapimock.MockBot)
	bot.On("SendMessage", mock.Anything, mock.AnythingOfType("*telego.SendMessageParams")).
		Return(telegoapimock.SequentialMessages(500), nil).Maybe()
	bot.On("EditMessageReplyMarkup", mock.Anything, mock.AnythingOfType("*telego.EditMessageReplyMarkupParams")).
		Return(&telego.Message{}, nil).Maybe()
	bot.On("EditMessageText", mock.Anything, mock.AnythingOfType("*telego.EditMessageTextParams")).
		Return(&telego.Message{}, nil).Maybe()

	cat := &fakeCatalog{}
	wf := NewWorkflow(bot, store, registry, cat, Options{FeedbackTag: "#反馈", MovieRequestTag: "#求片"})
	return &testEnv{workflow: wf, store: store, bot: bot, catalog: cat}
}

func (e *testEnv) allowPins() {
	e.bot.On("PinChatMessage", mock.Anything, mock.AnythingOfType("*telego.PinChatMessageParams")).Return(nil).Maybe()
	e.bot.On("UnpinChatMessage", mock.Anything, mock.AnythingOfType("*telego.UnpinChatMessageParams")).Return(nil).Maybe()
}

var requester = Requester{UserID: 1001, Username: "alice", DisplayName: "Alice", MessageID: 77}

var moderator = Actor{UserID: 9, Name: "Mod", RoomID: adminRoomID}

func TestIntake_Scenario(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()

	item, err := env.workflow.Intake(ctx, userRoomID, requester, "#反馈 #bug !! display crashes")
	require.NoError(t, err)

	assert.Equal(t, "display crashes", item.Content)
	assert.Equal(t, models.CategoryBug, item.Category)
	assert.Equal(t, models.PriorityHigh, item.Priority)
	assert.Equal(t, models.StatusPending, item.Status)
	assert.Equal(t, models.CardRef{ChatID: adminRoomID, MessageID: 500}, item.Card)

	stored, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)
	assert.Equal(t, item.ID, stored.ID)
	assert.Equal(t, userRoomID, stored.RoomID)

	cards := env.bot.SentTo(adminRoomID)
	require.Len(t, cards, 1)
	assert.Contains(t, cards[0], "display crashes")

	env.bot.AssertCalled(t, "PinChatMessage", mock.Anything, mock.MatchedBy(func(p *telego.PinChatMessageParams) bool {
		return p.ChatID.ID == adminRoomID && p.MessageID == 500
	}))
	env.bot.AssertCalled(t, "EditMessageReplyMarkup", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageReplyMarkupParams) bool {
		buttons := p.ReplyMarkup.InlineKeyboard[0]
		return p.MessageID == 500 && len(buttons) == 2 &&
			buttons[0].CallbackData == "fb_resolve_500" && buttons[1].CallbackData == "fb_reject_500"
	}))

	confirmations := env.bot.SentTo(userRoomID)
	require.Len(t, confirmations, 1)
}

func TestIntake_Rejections(t *testing.T) {
	tests := []struct {
		name   string
		room   int64
		raw    string
		reason RejectReason
	}{
		{"admin room is not an intake room", adminRoomID, "#反馈 hello", ReasonWrongRoom},
		{"unknown room", otherRoomID, "#反馈 hello", ReasonWrongRoom},
		{"empty after tag", userRoomID, "#反馈   ", ReasonEmptyContent},
		{"only markers", userRoomID, "#反馈 #bug !!", ReasonEmptyContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			_, err := env.workflow.Intake(context.Background(), tt.room, requester, tt.raw)

			var rejectedErr *IntakeRejectedError
			require.True(t, errors.As(err, &rejectedErr))
			assert.Equal(t, tt.reason, rejectedErr.Reason)
			assert.Zero(t, env.bot.CallCount("SendMessage"))

			pending, err := env.store.ListPending(context.Background())
			require.NoError(t, err)
			assert.Empty(t, pending)
		})
	}
}

func TestIntake_NoAdminRoom(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.RemoveRoom(ctx, adminRoomID))

	_, err := env.workflow.Intake(ctx, userRoomID, requester, "#反馈 hello")
	var rejectedErr *IntakeRejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, ReasonNoAdminRoom, rejectedErr.Reason)
}

func TestIntake_PinFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t)
	env.bot.On("PinChatMessage", mock.Anything, mock.Anything).Return(errors.New("not enough rights")).Once()

	item, err := env.workflow.Intake(context.Background(), userRoomID, requester, "#反馈 hello")
	require.NoError(t, err)
	assert.False(t, item.Card.IsZero())
	assert.Len(t, env.bot.SentTo(userRoomID), 1, "requester still gets a confirmation")
}

func TestIntake_CardSendFailure(t *testing.T) {
	env := newTestEnv(t)
	bot := new(telegoapimock.MockBot)
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("chat not found"))
	env.workflow.bot = bot

	_, err := env.workflow.Intake(context.Background(), userRoomID, requester, "#反馈 hello")
	assert.Error(t, err)

	pending, err := env.store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending, "failed intake leaves nothing behind")
}

func TestIntake_ButtonFailureRemovesCardAndItem(t *testing.T) {
	env := newTestEnv(t)
	bot := new(telegoapimock.MockBot)
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(telegoapimock.SequentialMessages(500), nil)
	bot.On("EditMessageReplyMarkup", mock.Anything, mock.Anything).Return(nil, errors.New("boom"))
	bot.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(p *telego.DeleteMessageParams) bool {
		return p.ChatID.ID == adminRoomID && p.MessageID == 500
	})).Return(nil).Once()
	env.workflow.bot = bot

	_, err := env.workflow.RequestMovie(context.Background(), userRoomID, requester, "#求片 Inception")
	require.Error(t, err)

	pending, err := env.store.ListPending(context.Background())
	require.NoError(t, err)
	assert.Empty(t, pending)
	bot.AssertExpectations(t)
	assert.Empty(t, bot.SentTo(userRoomID), "no confirmation for a failed intake")
}

func TestIntake_LongContentFitsOnCard(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()

	item, err := env.workflow.Intake(context.Background(), userRoomID, requester, "#反馈 "+strings.Repeat("长", 5000))
	require.NoError(t, err)
	assert.Equal(t, 5000, len([]rune(item.Content)), "stored content is not truncated")

	cards := env.bot.SentTo(adminRoomID)
	require.Len(t, cards, 1)
	assert.LessOrEqual(t, len([]rune(cards[0])), maxMessageLen)
}

func TestIntake_PersonaHidesAccount(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	dir, err := personas.Parse([]byte(`{"virtual_users": [{"user_id": 1001, "display_name": "Hoshino"}]}`))
	require.NoError(t, err)
	env.workflow.opts.Personas = dir

	item, err := env.workflow.Intake(context.Background(), userRoomID, requester, "#反馈 hello")
	require.NoError(t, err)
	assert.Equal(t, "Hoshino", item.Persona)
	assert.Equal(t, "Hoshino", RequesterName(item))

	cards := env.bot.SentTo(adminRoomID)
	require.Len(t, cards, 1)
	assert.Contains(t, cards[0], "Hoshino")
	assert.NotContains(t, cards[0], "1001")
	assert.NotContains(t, cards[0], "alice")
}

func postItem(t *testing.T, env *testEnv) *models.Feedback {
	t.Helper()
	item, err := env.workflow.Intake(context.Background(), userRoomID, requester, "#反馈 #feature dark mode")
	require.NoError(t, err)
	return item
}

func TestResolve(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	item := postItem(t, env)

	outcome, err := env.workflow.Resolve(ctx, item.Card, moderator)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, outcome.Status)
	assert.Equal(t, int64(9), outcome.Item.ResolvedBy)

	env.bot.AssertCalled(t, "EditMessageText", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageTextParams) bool {
		return p.ChatID.ID == adminRoomID && p.MessageID == item.Card.MessageID && strings.Contains(p.Text, "Mod")
	}))
	env.bot.AssertCalled(t, "UnpinChatMessage", mock.Anything, mock.MatchedBy(func(p *telego.UnpinChatMessageParams) bool {
		return p.MessageID == item.Card.MessageID
	}))
	assert.Len(t, env.bot.SentTo(userRoomID), 2, "confirmation plus status notification")

	stored, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Len(t, env.store.Actions(), 1)
}

func TestResolve_SecondDecisionIsAlreadyProcessed(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	item := postItem(t, env)

	_, err := env.workflow.Reject(ctx, item.Card, moderator)
	require.NoError(t, err)
	first, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)

	for _, decide := range []func(context.Context, models.CardRef, Actor) (*Outcome, error){
		env.workflow.Resolve, env.workflow.Reject,
	} {
		_, err = decide(ctx, item.Card, moderator)
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	}

	second, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, second.Status)
	assert.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestResolve_NotAuthorized(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	item := postItem(t, env)

	for _, room := range []int64{userRoomID, otherRoomID} {
		_, err := env.workflow.Resolve(ctx, item.Card, Actor{UserID: 1001, RoomID: room})
		assert.ErrorIs(t, err, ErrNotAuthorized)
	}

	stored, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
	env.bot.AssertNotCalled(t, "EditMessageText", mock.Anything, mock.Anything)
}

func TestResolve_StaleButtonAfterRoleChange(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	item := postItem(t, env)

	registry := rooms.NewRegistry(env.store)
	require.NoError(t, registry.Assign(ctx, otherRoomID, "New moderators", models.RoleAdmin))

	_, err := env.workflow.Resolve(ctx, item.Card, moderator)
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestResolve_NotFound(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.workflow.Resolve(context.Background(), models.CardRef{ChatID: adminRoomID, MessageID: 12345}, moderator)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_ConcurrentDecisions(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	item := postItem(t, env)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	decisions := []func(context.Context, models.CardRef, Actor) (*Outcome, error){env.workflow.Resolve, env.workflow.Reject}
	for i, decide := range decisions {
		wg.Add(1)
		go func(i int, decide func(context.Context, models.CardRef, Actor) (*Outcome, error)) {
			defer wg.Done()
			_, errs[i] = decide(ctx, item.Card, Actor{UserID: int64(i + 1), RoomID: adminRoomID})
		}(i, decide)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyProcessed)
	}
	assert.Equal(t, 1, successes)
}

func TestResolve_NotificationFailureKeepsTransition(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	item := postItem(t, env)

	bot := new(telegoapimock.MockBot)
	bot.On("SendMessage", mock.Anything, mock.Anything).Return(nil, errors.New("bot was kicked"))
	bot.On("EditMessageText", mock.Anything, mock.Anything).Return(nil, errors.New("message to edit not found"))
	bot.On("UnpinChatMessage", mock.Anything, mock.Anything).Return(errors.New("not enough rights"))
	env.workflow.bot = bot

	outcome, err := env.workflow.Resolve(ctx, item.Card, moderator)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, outcome.Status)
}

func requestEnv(t *testing.T) *testEnv {
	env := newTestEnv(t)
	env.allowPins()
	env.catalog.candidates = []catalog.Candidate{
		{Title: "Inception", Year: "2010", Type: "电影", IDs: catalog.IDs{TMDB: "27205"}},
		{Title: "No id"},
		{Title: "Dark", Year: "2017", Type: "电视剧", IDs: catalog.IDs{Douban: "26925313"}},
	}
	return env
}

func TestRequestMovie(t *testing.T) {
	env := requestEnv(t)

	item, err := env.workflow.RequestMovie(context.Background(), userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)
	assert.Equal(t, "Inception", item.Content)
	assert.Equal(t, models.KindMovieRequest, item.Kind)
	require.Len(t, item.Candidates, 2, "hits without an id are not offered")
	assert.Equal(t, "db26925313", item.Candidates[1].CatalogID)
	assert.Equal(t, models.MediaTV, item.Candidates[1].MediaType)

	env.bot.AssertCalled(t, "EditMessageReplyMarkup", mock.Anything, mock.MatchedBy(func(p *telego.EditMessageReplyMarkupParams) bool {
		rows := p.ReplyMarkup.InlineKeyboard
		return len(rows) == 2 && len(rows[0]) == 2 &&
			rows[0][0].CallbackData == "req_approve_27205_movie_1001" &&
			rows[0][1].CallbackData == "req_approve_db26925313_tv_1001" &&
			rows[1][0].CallbackData == "req_reject_27205_movie_1001"
	}))
}

func TestRequestMovie_SearchFailureStillPostsCard(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	env.catalog.searchErr = catalog.ErrAuthFailed

	item, err := env.workflow.RequestMovie(context.Background(), userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)
	assert.Empty(t, item.Candidates)
	assert.Len(t, env.bot.SentTo(adminRoomID), 1)
}

func TestRequestMovie_Disabled(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.SetToggle(ctx, models.FeatureMovieRequest, false))

	_, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	var rejectedErr *IntakeRejectedError
	require.ErrorAs(t, err, &rejectedErr)
	assert.Equal(t, ReasonFeatureDisabled, rejectedErr.Reason)
}

func TestApproveRequest(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	item, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)

	decision := RequestDecision{CatalogID: "27205", MediaType: models.MediaMovie, RequesterID: 1001}
	outcome, err := env.workflow.ApproveRequest(ctx, item.Card, decision, moderator)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, outcome.Status)

	require.Len(t, env.catalog.subscribed, 1)
	assert.Equal(t, "Inception", env.catalog.subscribed[0].Title)
	assert.Equal(t, "27205", env.catalog.subscribed[0].IDs.TMDB)

	sub, ok := env.store.Subscription(1)
	require.True(t, ok)
	assert.Equal(t, models.SubscriptionApproved, sub.Status)
	assert.Equal(t, item.ID, sub.FeedbackID)

	_, err = env.workflow.ApproveRequest(ctx, item.Card, decision, moderator)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
}

func TestApproveRequest_SubscribeFailureKeepsPending(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	item, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)
	env.catalog.subscribeErr = catalog.ErrCatalogUnavailable

	decision := RequestDecision{CatalogID: "27205", MediaType: models.MediaMovie, RequesterID: 1001}
	_, err = env.workflow.ApproveRequest(ctx, item.Card, decision, moderator)
	assert.ErrorIs(t, err, ErrSubscribeFailed)

	stored, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)

	assert.Empty(t, stored.ClaimToken, "claim released for a retry")

	sub, ok := env.store.Subscription(1)
	require.True(t, ok)
	assert.Equal(t, models.SubscriptionRejected, sub.Status)

	env.catalog.subscribeErr = nil
	outcome, err := env.workflow.ApproveRequest(ctx, item.Card, decision, moderator)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, outcome.Status)
}

func TestApproveRequest_OtherDecisionsWaitForSubscribe(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	item, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)
	env.catalog.entered = make(chan struct{}, 1)
	env.catalog.release = make(chan struct{})

	decision := RequestDecision{CatalogID: "27205", MediaType: models.MediaMovie, RequesterID: 1001}
	approved := make(chan error, 1)
	go func() {
		_, err := env.workflow.ApproveRequest(ctx, item.Card, decision, moderator)
		approved <- err
	}()
	<-env.catalog.entered

	other := Actor{UserID: 10, Name: "Other", RoomID: adminRoomID}
	_, err = env.workflow.RejectRequest(ctx, item.Card, decision, other)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)
	_, err = env.workflow.ApproveRequest(ctx, item.Card, decision, other)
	assert.ErrorIs(t, err, ErrAlreadyProcessed)

	close(env.catalog.release)
	require.NoError(t, <-approved)

	stored, err := env.store.GetByCardRef(ctx, item.Card)
	require.NoError(t, err)
	assert.Equal(t, models.StatusResolved, stored.Status)
	assert.Equal(t, int64(9), stored.ResolvedBy)
	assert.Len(t, env.catalog.subscribed, 1)

	sub, ok := env.store.Subscription(1)
	require.True(t, ok)
	assert.Equal(t, models.SubscriptionApproved, sub.Status)
	_, ok = env.store.Subscription(2)
	assert.False(t, ok, "the refused decisions recorded nothing")
}

func TestResolve_DeletesCardAfterDelay(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	env.workflow.opts.CardDeleteDelay = 10 * time.Minute
	var scheduled []time.Duration
	env.workflow.after = func(d time.Duration, f func()) {
		scheduled = append(scheduled, d)
		f()
	}
	env.bot.On("DeleteMessage", mock.Anything, mock.MatchedBy(func(p *telego.DeleteMessageParams) bool {
		return p.ChatID.ID == adminRoomID && p.MessageID == 500
	})).Return(nil).Once()

	item := postItem(t, env)
	_, err := env.workflow.Resolve(context.Background(), item.Card, moderator)
	require.NoError(t, err)

	assert.Equal(t, []time.Duration{10 * time.Minute}, scheduled)
	env.bot.AssertCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestResolve_KeepsCardWithoutDelay(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	env.workflow.after = func(time.Duration, func()) {
		t.Fatal("nothing should be scheduled")
	}

	item := postItem(t, env)
	_, err := env.workflow.Resolve(context.Background(), item.Card, moderator)
	require.NoError(t, err)
	env.bot.AssertNotCalled(t, "DeleteMessage", mock.Anything, mock.Anything)
}

func TestApproveRequest_UnknownCandidate(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	item, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)

	_, err = env.workflow.ApproveRequest(ctx, item.Card, RequestDecision{CatalogID: "999", MediaType: models.MediaMovie, RequesterID: 1001}, moderator)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = env.workflow.ApproveRequest(ctx, item.Card, RequestDecision{CatalogID: "27205", MediaType: models.MediaMovie, RequesterID: 5}, moderator)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Empty(t, env.catalog.subscribed)
}

func TestRejectRequest(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	item, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)

	decision := RequestDecision{CatalogID: "27205", MediaType: models.MediaMovie, RequesterID: 1001}
	outcome, err := env.workflow.RejectRequest(ctx, item.Card, decision, moderator)
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, outcome.Status)
	assert.Empty(t, env.catalog.subscribed)

	sub, ok := env.store.Subscription(1)
	require.True(t, ok)
	assert.Equal(t, models.SubscriptionRejected, sub.Status)
	assert.Equal(t, "Inception", sub.Title)
}

func TestClearAll(t *testing.T) {
	env := newTestEnv(t)
	env.allowPins()
	ctx := context.Background()
	postItem(t, env)

	require.NoError(t, env.workflow.ClearAll(ctx, moderator))

	pending, err := env.workflow.Pending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	all, err := env.store.ListRooms(ctx, models.RoleNone)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestStats(t *testing.T) {
	env := requestEnv(t)
	ctx := context.Background()
	postItem(t, env)
	_, err := env.workflow.RequestMovie(ctx, userRoomID, requester, "#求片 Inception")
	require.NoError(t, err)

	stats, err := env.workflow.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Pending)
	assert.Equal(t, int64(2), stats.Today)
	assert.Equal(t, int64(1), stats.Requests)
}

func TestNextRun(t *testing.T) {
	loc := time.FixedZone("test", 8*3600)
	tests := []struct {
		name string
		now  time.Time
		want time.Time
	}{
		{"later today", time.Date(2024, 5, 1, 7, 30, 0, 0, loc), time.Date(2024, 5, 1, 9, 0, 0, 0, loc)},
		{"exactly now runs tomorrow", time.Date(2024, 5, 1, 9, 0, 0, 0, loc), time.Date(2024, 5, 2, 9, 0, 0, 0, loc)},
		{"already passed", time.Date(2024, 5, 31, 22, 0, 0, 0, loc), time.Date(2024, 6, 1, 9, 0, 0, 0, loc)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextRun(tt.now, 9))
		})
	}
}
