// Package telegoapimock provides a testify mock of telegoapi.BotAPI.
package telegoapimock

import (
	"context"
	"sync"

	"feedback-bot/pkg/telegoapi"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/mock"
)

// MockBot is a mock implementing the telegoapi.BotAPI interface.
type MockBot struct {
	mock.Mock
}

var _ telegoapi.BotAPI = (*MockBot)(nil)

// SendMessage returns the configured message, or calls the configured
// func(*telego.SendMessageParams) *telego.Message to build one per call.
func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if fn, ok := args.Get(0).(func(*telego.SendMessageParams) *telego.Message); ok {
		return fn(params), args.Error(1)
	}
	msg, _ := args.Get(0).(*telego.Message)
	return msg, args.Error(1)
}

func (m *MockBot) GetMe(ctx context.Context) (*telego.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*telego.User)
	return user, args.Error(1)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) GetChatMember(ctx context.Context, params *telego.GetChatMemberParams) (telego.ChatMember, error) {
	args := m.Called(ctx, params)
	member, _ := args.Get(0).(telego.ChatMember)
	return member, args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*telego.Message)
	return msg, args.Error(1)
}

func (m *MockBot) EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	msg, _ := args.Get(0).(*telego.Message)
	return msg, args.Error(1)
}

func (m *MockBot) PinChatMessage(ctx context.Context, params *telego.PinChatMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) UnpinChatMessage(ctx context.Context, params *telego.UnpinChatMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) DeleteMessage(ctx context.Context, params *telego.DeleteMessageParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// SentTexts returns the text of every SendMessage call recorded so far.
func (m *MockBot) SentTexts() []string {
	var texts []string
	for _, call := range m.Calls {
		if call.Method != "SendMessage" {
			continue
		}
		if params, ok := call.Arguments.Get(1).(*telego.SendMessageParams); ok {
			texts = append(texts, params.Text)
		}
	}
	return texts
}

// SequentialMessages returns a SendMessage result func that hands out
// increasing message IDs starting at first, echoing the target chat.
func SequentialMessages(first int) func(*telego.SendMessageParams) *telego.Message {
	var mu sync.Mutex
	next := first
	return func(params *telego.SendMessageParams) *telego.Message {
		mu.Lock()
		defer mu.Unlock()
		msg := &telego.Message{MessageID: next, Chat: telego.Chat{ID: params.ChatID.ID}, Text: params.Text}
		next++
		return msg
	}
}

// SentTo returns the texts sent to chatID.
func (m *MockBot) SentTo(chatID int64) []string {
	var texts []string
	for _, call := range m.Calls {
		if call.Method != "SendMessage" {
			continue
		}
		if params, ok := call.Arguments.Get(1).(*telego.SendMessageParams); ok && params.ChatID.ID == chatID {
			texts = append(texts, params.Text)
		}
	}
	return texts
}

// CallCount returns how many times method was called.
func (m *MockBot) CallCount(method string) int {
	n := 0
	for _, call := range m.Calls {
		if call.Method == method {
			n++
		}
	}
	return n
}
