package handlers

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/feedback"
	"feedback-bot/internal/locales"
	"feedback-bot/internal/rooms"
	"feedback-bot/pkg/telegoapi/telegoapimock"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// --- Mocks ---

// MockWorkflow is a mock implementing FeedbackWorkflow
type MockWorkflow struct {
	mock.Mock
}

func (m *MockWorkflow) item(args mock.Arguments) (*models.Feedback, error) {
	item, _ := args.Get(0).(*models.Feedback)
	return item, args.Error(1)
}

func (m *MockWorkflow) Intake(ctx context.Context, roomID int64, requester feedback.Requester, raw string) (*models.Feedback, error) {
	return m.item(m.Called(ctx, roomID, requester, raw))
}

func (m *MockWorkflow) RequestMovie(ctx context.Context, roomID int64, requester feedback.Requester, raw string) (*models.Feedback, error) {
	return m.item(m.Called(ctx, roomID, requester, raw))
}

func (m *MockWorkflow) Stats(ctx context.Context) (*models.FeedbackStats, error) {
	args := m.Called(ctx)
	stats, _ := args.Get(0).(*models.FeedbackStats)
	return stats, args.Error(1)
}

func (m *MockWorkflow) Pending(ctx context.Context) ([]models.Feedback, error) {
	args := m.Called(ctx)
	items, _ := args.Get(0).([]models.Feedback)
	return items, args.Error(1)
}

func (m *MockWorkflow) DailySummary(ctx context.Context) (int, error) {
	args := m.Called(ctx)
	return args.Int(0), args.Error(1)
}

func (m *MockWorkflow) ClearAll(ctx context.Context, actor feedback.Actor) error {
	return m.Called(ctx, actor).Error(0)
}

// MockAdminChecker is a mock implementing the AdminCheckerInterface
type MockAdminChecker struct {
	mock.Mock
}

func (m *MockAdminChecker) IsAdmin(ctx context.Context, userID int64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type fakeSearcher struct {
	hits []catalog.Candidate
	err  error
}

func (f fakeSearcher) Search(context.Context, string) ([]catalog.Candidate, error) {
	return f.hits, f.err
}

// --- Test Suite Setup ---

const (
	adminRoomID = int64(-100)
	userRoomID  = int64(-200)
	adminUserID = int64(42)
	plainUserID = int64(7)
)

type testHandlerSuite struct {
	mockBot          *telegoapimock.MockBot
	mockWorkflow     *MockWorkflow
	mockAdminChecker *MockAdminChecker
	store            *database.MemoryStore
	searcher         *fakeSearcher
	handler          *MessageHandler
}

func TestMain(m *testing.M) {
	locales.Init("en")
	os.Exit(m.Run())
}

// setupTestHandlerSuite creates a new suite with fresh mocks, an admin room,
// a user room and a handler instance.
func setupTestHandlerSuite(t *testing.T) *testHandlerSuite {
	t.Helper()
	ctx := context.Background()

	store := database.NewMemoryStore()
	registry := rooms.NewRegistry(store)
	require.NoError(t, registry.Assign(ctx, adminRoomID, "Moderators", models.RoleAdmin))
	require.NoError(t, registry.Assign(ctx, userRoomID, "Community", models.RoleUser))

	mockBot := new(telegoapimock.MockBot)
	mockBot.On("SendMessage", mock.Anything, mock.AnythingOfType("*telego.SendMessageParams")).
		Return(telegoapimock.SequentialMessages(1), nil).Maybe()

	mockAdminChecker := new(MockAdminChecker)
	mockAdminChecker.On("IsAdmin", mock.Anything, adminUserID).Return(true, nil).Maybe()
	mockAdminChecker.On("IsAdmin", mock.Anything, plainUserID).Return(false, nil).Maybe()

	mockWorkflow := new(MockWorkflow)
	searcher := &fakeSearcher{}
	handler := NewMessageHandler(
		Options{FeedbackTag: "#反馈", MovieRequestTag: "#求片", Version: "v1.2.3-test"},
		mockWorkflow, registry, store, searcher, mockAdminChecker, store,
	)

	return &testHandlerSuite{
		mockBot:          mockBot,
		mockWorkflow:     mockWorkflow,
		mockAdminChecker: mockAdminChecker,
		store:            store,
		searcher:         searcher,
		handler:          handler,
	}
}

// run dispatches a command message through its guarded handler.
func (s *testHandlerSuite) run(t *testing.T, userID, chatID int64, text string) error {
	t.Helper()
	name := strings.TrimPrefix(strings.Fields(text)[0], "/")
	handler := s.handler.GetCommandHandler(name)
	require.NotNil(t, handler, "command %s is registered", name)
	return handler(context.Background(), s.mockBot, message(userID, chatID, text))
}

func message(userID, chatID int64, text string) telego.Message {
	return telego.Message{
		MessageID: 100,
		From:      &telego.User{ID: userID, FirstName: "Test", Username: "tester", LanguageCode: "en"},
		Chat:      telego.Chat{ID: chatID, Title: "Some chat"},
		Text:      text,
	}
}

func en(msgID string, data map[string]interface{}) string {
	return locales.GetMessage(locales.NewLocalizer("en"), msgID, data, nil)
}

// --- Test Functions ---

func TestHandleStart(t *testing.T) {
	s := setupTestHandlerSuite(t)
	s.mockBot.On("SetMyCommands", mock.Anything, mock.MatchedBy(func(p *telego.SetMyCommandsParams) bool {
		return len(p.Commands) == len(s.handler.Commands())
	})).Return(nil).Once()

	require.NoError(t, s.run(t, plainUserID, userRoomID, "/start"))

	s.mockBot.AssertExpectations(t)
	assert.Equal(t, []string{en("MsgStart", s.handler.tagData())}, s.mockBot.SentTo(userRoomID))
	require.Len(t, s.store.Actions(), 1)
	assert.Equal(t, ActionCommandStart, s.store.Actions()[0].Action)
}

func TestHandleStart_SetCommandsFailure(t *testing.T) {
	s := setupTestHandlerSuite(t)
	s.mockBot.On("SetMyCommands", mock.Anything, mock.Anything).Return(errors.New("flood")).Once()

	err := s.run(t, plainUserID, userRoomID, "/start")
	assert.Error(t, err)
	assert.Equal(t, []string{en("MsgErrorGeneral", nil)}, s.mockBot.SentTo(userRoomID))
}

func TestHandleHelp(t *testing.T) {
	t.Run("AdminUser", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, adminRoomID, "/help"))

		sent := s.mockBot.SentTo(adminRoomID)
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "/clear_db")
		assert.Contains(t, sent[0], "/stats")
	})

	t.Run("RegularUser", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, plainUserID, userRoomID, "/help"))

		sent := s.mockBot.SentTo(userRoomID)
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "/start")
		assert.NotContains(t, sent[0], "/clear_db")
		assert.NotContains(t, sent[0], "/stats")
	})

	t.Run("AdminCheckFailureShowsPublicHelp", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockAdminChecker.On("IsAdmin", mock.Anything, int64(9)).Return(false, errors.New("timeout"))
		require.NoError(t, s.run(t, 9, userRoomID, "/help"))
		assert.NotContains(t, s.mockBot.SentTo(userRoomID)[0], "/clear_db")
	})
}

func TestAdminRoomCommands(t *testing.T) {
	t.Run("refused outside the admin room", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		for _, cmd := range []string{"/stats", "/pending", "/summary", "/search dune"} {
			require.NoError(t, s.run(t, adminUserID, userRoomID, cmd))
		}
		s.mockWorkflow.AssertNotCalled(t, "Stats", mock.Anything)
		s.mockWorkflow.AssertNotCalled(t, "Pending", mock.Anything)
		s.mockWorkflow.AssertNotCalled(t, "DailySummary", mock.Anything)
		for _, text := range s.mockBot.SentTo(userRoomID) {
			assert.Equal(t, en("MsgErrorRequiresAdminRoom", nil), text)
		}
	})

	t.Run("stats", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflow.On("Stats", mock.Anything).
			Return(&models.FeedbackStats{Total: 5, Pending: 2, Resolved: 2, Rejected: 1, Today: 3, Requests: 1}, nil).Once()

		require.NoError(t, s.run(t, plainUserID, adminRoomID, "/stats"))
		sent := s.mockBot.SentTo(adminRoomID)
		require.Len(t, sent, 1)
		assert.Equal(t, en("MsgStats", map[string]interface{}{
			"Total": int64(5), "Pending": int64(2), "Resolved": int64(2), "Rejected": int64(1), "Today": int64(3), "Requests": int64(1),
		}), sent[0])
	})

	t.Run("pending empty", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflow.On("Pending", mock.Anything).Return([]models.Feedback{}, nil).Once()

		require.NoError(t, s.run(t, plainUserID, adminRoomID, "/pending"))
		assert.Equal(t, []string{en("MsgPendingEmpty", nil)}, s.mockBot.SentTo(adminRoomID))
	})

	t.Run("pending lists items", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflow.On("Pending", mock.Anything).Return([]models.Feedback{
			{ID: 1, Kind: models.KindFeedback, Content: "dark mode"},
			{ID: 2, Kind: models.KindMovieRequest, Content: "Inception"},
		}, nil).Once()

		require.NoError(t, s.run(t, plainUserID, adminRoomID, "/pending"))
		sent := s.mockBot.SentTo(adminRoomID)
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "dark mode")
		assert.Contains(t, sent[0], "Inception")
	})

	t.Run("summary", func(t *testing.T) {
		tests := []struct {
			n    int
			err  error
			want string
		}{
			{0, nil, en("MsgSummaryNothingPending", nil)},
			{3, nil, en("MsgSummarySent", map[string]interface{}{"Count": 3})},
			{0, feedback.ErrNoSummaryTarget, en("MsgSummaryNoTarget", nil)},
		}
		for _, tt := range tests {
			s := setupTestHandlerSuite(t)
			s.mockWorkflow.On("DailySummary", mock.Anything).Return(tt.n, tt.err).Once()
			require.NoError(t, s.run(t, plainUserID, adminRoomID, "/summary"))
			assert.Equal(t, []string{tt.want}, s.mockBot.SentTo(adminRoomID))
		}
	})
}

func TestHandleSearch(t *testing.T) {
	t.Run("offers subscribe buttons", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.searcher.hits = []catalog.Candidate{
			{Title: "Dune", Year: "2021", IDs: catalog.IDs{TMDB: "438631"}},
			{Title: "No id"},
			{Title: "Dune", Year: "1984", IDs: catalog.IDs{Douban: "1292"}},
		}

		require.NoError(t, s.run(t, plainUserID, adminRoomID, "/search dune"))
		s.mockBot.AssertCalled(t, "SendMessage", mock.Anything, mock.MatchedBy(func(p *telego.SendMessageParams) bool {
			markup, ok := p.ReplyMarkup.(*telego.InlineKeyboardMarkup)
			return ok && len(markup.InlineKeyboard) == 2 &&
				markup.InlineKeyboard[0][0].CallbackData == "sub_438631_Dune_2021" &&
				markup.InlineKeyboard[1][0].CallbackData == "sub_db1292_Dune_1984"
		}))
	})

	t.Run("usage", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, plainUserID, adminRoomID, "/search"))
		assert.Equal(t, []string{en("MsgSearchUsage", nil)}, s.mockBot.SentTo(adminRoomID))
	})

	t.Run("catalog unavailable", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.searcher.err = catalog.ErrCatalogUnavailable
		require.NoError(t, s.run(t, plainUserID, adminRoomID, "/search dune"))
		assert.Equal(t, []string{en("MsgSearchFailed", nil)}, s.mockBot.SentTo(adminRoomID))
	})
}

func TestAdministratorCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("refused for regular users", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		for _, cmd := range []string{"/clear_db", "/setroom user", "/unsetroom", "/rooms", "/toggle_movie no"} {
			require.NoError(t, s.run(t, plainUserID, adminRoomID, cmd))
		}
		s.mockWorkflow.AssertNotCalled(t, "ClearAll", mock.Anything, mock.Anything)
		enabled, err := s.store.GetToggle(ctx, models.FeatureMovieRequest)
		require.NoError(t, err)
		assert.True(t, enabled)
		room, err := s.store.GetRoom(ctx, adminRoomID)
		require.NoError(t, err)
		assert.True(t, room.IsAdminRoom)
	})

	t.Run("clear_db", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflow.On("ClearAll", mock.Anything, mock.MatchedBy(func(a feedback.Actor) bool {
			return a.UserID == adminUserID
		})).Return(nil).Once()

		require.NoError(t, s.run(t, adminUserID, adminRoomID, "/clear_db"))
		s.mockWorkflow.AssertExpectations(t)
		assert.Equal(t, []string{en("MsgClearDone", nil)}, s.mockBot.SentTo(adminRoomID))
	})

	t.Run("setroom admin moves the admin room", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, -300, "/setroom admin"))

		moved, err := s.store.GetRoom(ctx, -300)
		require.NoError(t, err)
		assert.True(t, moved.IsAdminRoom)
		assert.Equal(t, "Some chat", moved.Name)
		previous, err := s.store.GetRoom(ctx, adminRoomID)
		require.NoError(t, err)
		assert.False(t, previous.IsAdminRoom)
	})

	t.Run("setroom usage", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, -300, "/setroom moderators"))
		assert.Equal(t, []string{en("MsgSetRoomUsage", nil)}, s.mockBot.SentTo(-300))
		_, err := s.store.GetRoom(ctx, -300)
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})

	t.Run("unsetroom", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, userRoomID, "/unsetroom"))
		_, err := s.store.GetRoom(ctx, userRoomID)
		assert.ErrorIs(t, err, database.ErrRoomNotFound)
	})

	t.Run("rooms", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, adminRoomID, "/rooms"))
		sent := s.mockBot.SentTo(adminRoomID)
		require.Len(t, sent, 1)
		assert.Contains(t, sent[0], "Moderators")
		assert.Contains(t, sent[0], "Community")
	})
}

func TestHandleToggleMovie(t *testing.T) {
	ctx := context.Background()

	t.Run("shows the current state", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, userRoomID, "/toggle_movie"))
		assert.Equal(t, []string{en("MsgToggleStatus", map[string]interface{}{"Status": en("ToggleOn", nil)})}, s.mockBot.SentTo(userRoomID))
	})

	t.Run("disables and notifies the admin room", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, userRoomID, "/toggle_movie no"))

		enabled, err := s.store.GetToggle(ctx, models.FeatureMovieRequest)
		require.NoError(t, err)
		assert.False(t, enabled)
		assert.Equal(t, []string{en("MsgToggleChanged", map[string]interface{}{"Status": en("ToggleOff", nil)})}, s.mockBot.SentTo(userRoomID))
		assert.Len(t, s.mockBot.SentTo(adminRoomID), 1)
	})

	t.Run("invalid argument", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		require.NoError(t, s.run(t, adminUserID, userRoomID, "/toggle_movie maybe"))
		assert.Equal(t, []string{en("MsgToggleUsage", nil)}, s.mockBot.SentTo(userRoomID))
	})
}

func TestHandleText(t *testing.T) {
	ctx := context.Background()

	t.Run("untagged text is ignored", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		processed, err := s.handler.HandleText(ctx, s.mockBot, message(plainUserID, userRoomID, "hello #反馈"))
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("feedback goes to intake", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflow.On("Intake", mock.Anything, userRoomID, mock.MatchedBy(func(r feedback.Requester) bool {
			return r.UserID == plainUserID && r.MessageID == 100
		}), "#反馈 dark mode").Return(&models.Feedback{ID: 1}, nil).Once()

		processed, err := s.handler.HandleText(ctx, s.mockBot, message(plainUserID, userRoomID, "  #反馈 dark mode"))
		require.NoError(t, err)
		assert.True(t, processed)
		s.mockWorkflow.AssertExpectations(t)
	})

	t.Run("movie request in a caption", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		s.mockWorkflow.On("RequestMovie", mock.Anything, userRoomID, mock.Anything, "#求片 Dune").
			Return(&models.Feedback{ID: 2}, nil).Once()

		msg := message(plainUserID, userRoomID, "")
		msg.Caption = "#求片 Dune"
		processed, err := s.handler.HandleText(ctx, s.mockBot, msg)
		require.NoError(t, err)
		assert.True(t, processed)
		s.mockWorkflow.AssertExpectations(t)
	})

	t.Run("rejections get guidance", func(t *testing.T) {
		for _, reason := range []feedback.RejectReason{
			feedback.ReasonWrongRoom, feedback.ReasonEmptyContent, feedback.ReasonNoAdminRoom, feedback.ReasonFeatureDisabled,
		} {
			s := setupTestHandlerSuite(t)
			s.mockWorkflow.On("Intake", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
				Return(nil, &feedback.IntakeRejectedError{Reason: reason}).Once()

			processed, err := s.handler.HandleText(ctx, s.mockBot, message(plainUserID, userRoomID, "#反馈"))
			require.NoError(t, err)
			assert.True(t, processed)
			assert.Equal(t, []string{en("IntakeRejected_"+string(reason), s.handler.tagData())}, s.mockBot.SentTo(userRoomID))
		}
	})

	t.Run("unexpected failure", func(t *testing.T) {
		s := setupTestHandlerSuite(t)
		storageErr := errors.New("storage unavailable")
		s.mockWorkflow.On("Intake", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, storageErr).Once()

		processed, err := s.handler.HandleText(ctx, s.mockBot, message(plainUserID, userRoomID, "#反馈 hi"))
		assert.True(t, processed)
		assert.ErrorIs(t, err, storageErr)
		assert.Equal(t, []string{en("MsgErrorGeneral", nil)}, s.mockBot.SentTo(userRoomID))
	})
}

func TestCommandArgs(t *testing.T) {
	assert.Equal(t, "", commandArgs("/rooms"))
	assert.Equal(t, "admin", commandArgs("/setroom   admin "))
	assert.Equal(t, "the dark knight", commandArgs("/search the dark knight"))
	assert.Equal(t, "admin", commandArgs("/setroom\nadmin"))
	assert.Equal(t, "admin", commandArgs("/setroom@feedback_bot\tadmin"))
}
