package bot

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"feedback-bot/internal/locales"
	"feedback-bot/pkg/telegoapi"

	"github.com/getsentry/sentry-go"
	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
	"go.uber.org/ratelimit"
)

// updateTimeout bounds the processing of a single update.
const updateTimeout = 30 * time.Second

// failureReplyTimeout bounds the reply sent after a failed update.
const failureReplyTimeout = 5 * time.Second

// MessageHandler handles commands and tagged submissions.
type MessageHandler interface {
	GetCommandHandler(command string) func(context.Context, telegoapi.BotAPI, telego.Message) error
	HandleText(ctx context.Context, bot telegoapi.BotAPI, message telego.Message) (bool, error)
	SetupCommands(ctx context.Context, bot telegoapi.BotAPI) error
}

// CallbackRouter handles inline button presses.
type CallbackRouter interface {
	Handle(ctx context.Context, query telego.CallbackQuery) error
}

// Bot represents the main application logic for the Telegram bot.
// It consumes the update stream and routes each update to its handler.
type Bot struct {
	bot         telegoapi.BotAPI
	updatesChan <-chan telego.Update
	debug       bool
	username    string
	handler     MessageHandler
	callbacks   CallbackRouter
	ratelimiter ratelimit.Limiter
}

// BotDeps holds the dependencies required by the Bot.
type BotDeps struct {
	Bot         telegoapi.BotAPI
	UpdatesChan <-chan telego.Update
	Debug       bool
	Username    string // The bot's own username, used to ignore commands addressed to other bots
	RateLimit   int    // Updates per second, 0 means 20
	Handler     MessageHandler
	Callbacks   CallbackRouter
}

// New creates a new Bot instance from its dependencies.
// Returns the new Bot instance or an error if dependencies are missing.
func New(deps BotDeps) (*Bot, error) {
	if deps.Bot == nil {
		return nil, fmt.Errorf("telego bot (BotAPI) instance cannot be nil")
	}
	if deps.Handler == nil {
		return nil, fmt.Errorf("message handler cannot be nil")
	}
	if deps.Callbacks == nil {
		return nil, fmt.Errorf("callback router cannot be nil")
	}
	if deps.UpdatesChan == nil {
		return nil, fmt.Errorf("updates channel cannot be nil")
	}
	rate := deps.RateLimit
	if rate <= 0 {
		rate = 20
	}

	return &Bot{
		bot:         deps.Bot,
		updatesChan: deps.UpdatesChan,
		debug:       deps.Debug,
		username:    deps.Username,
		handler:     deps.Handler,
		callbacks:   deps.Callbacks,
		ratelimiter: ratelimit.New(rate),
	}, nil
}

// parseCommand extracts the command name from text such as "/setroom@my_bot admin".
// addressed is false when the command names another bot.
func parseCommand(text, username string) (command string, addressed bool) {
	word := strings.Fields(text)[0]
	command = strings.TrimPrefix(word, "/")
	if at := strings.IndexByte(command, '@'); at >= 0 {
		target := command[at+1:]
		command = command[:at]
		if username != "" && !strings.EqualFold(target, username) {
			return command, false
		}
	}
	return command, true
}

// handleCommandUpdate processes a message identified as a command.
func (b *Bot) handleCommandUpdate(ctx context.Context, message telego.Message) {
	command, addressed := parseCommand(message.Text, b.username)
	if !addressed {
		return
	}
	logPrefix := fmt.Sprintf("[Cmd:%s User:%d]", command, message.From.ID)

	handlerFunc := b.handler.GetCommandHandler(command)
	if handlerFunc == nil {
		log.Printf("%s No handler found", logPrefix)
		// Group chats see commands meant for other bots.
		if message.Chat.Type != telego.ChatTypePrivate {
			return
		}
		localizer := locales.NewLocalizer(message.From.LanguageCode)
		unknownCmdMsg := locales.GetMessage(localizer, "MsgErrorUnknownCommand", nil, nil)
		if _, err := b.bot.SendMessage(ctx, tu.Message(tu.ID(message.Chat.ID), unknownCmdMsg)); err != nil {
			log.Printf("%s Failed to send unknown command message: %v", logPrefix, err)
		}
		return
	}

	if b.debug {
		log.Printf("%s Executing handler", logPrefix)
	}
	if err := handlerFunc(ctx, b.bot, message); err != nil {
		log.Printf("%s Handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s handler error: %w", logPrefix, err))
	} else if b.debug {
		log.Printf("%s Handler finished successfully", logPrefix)
	}
}

// handleTextUpdate processes a text or captioned message.
func (b *Bot) handleTextUpdate(ctx context.Context, message telego.Message) {
	logPrefix := fmt.Sprintf("[Text User:%d Msg:%d]", message.From.ID, message.MessageID)
	processed, err := b.handler.HandleText(ctx, b.bot, message)
	if err != nil {
		log.Printf("%s Text handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s text handler error: %w", logPrefix, err))
		return
	}
	if b.debug && !processed {
		log.Printf("%s Ignoring untagged message", logPrefix)
	}
}

// handleCallbackQuery processes an incoming callback query.
func (b *Bot) handleCallbackQuery(ctx context.Context, query telego.CallbackQuery) {
	logPrefix := fmt.Sprintf("[Callback User:%d QueryID:%s]", query.From.ID, query.ID)
	if b.debug {
		log.Printf("%s Received callback query with data: %q", logPrefix, query.Data)
	}
	if err := b.callbacks.Handle(ctx, query); err != nil {
		log.Printf("%s Callback handler error: %v", logPrefix, err)
		sentry.CaptureException(fmt.Errorf("%s callback handler error: %w", logPrefix, err))
	}
}

// reportFailure tells whoever sent update that it could not be processed.
func (b *Bot) reportFailure(ctx context.Context, update telego.Update) {
	replyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), failureReplyTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		var lang string
		if update.Message.From != nil {
			lang = update.Message.From.LanguageCode
		}
		text := locales.GetMessage(locales.NewLocalizer(lang), "MsgErrorGeneral", nil, nil)
		params := tu.Message(tu.ID(update.Message.Chat.ID), text).WithReplyParameters(&telego.ReplyParameters{
			MessageID:                update.Message.MessageID,
			AllowSendingWithoutReply: true,
		})
		if _, err := b.bot.SendMessage(replyCtx, params); err != nil {
			log.Printf("Failed to report failure in chat %d: %v", update.Message.Chat.ID, err)
		}
	case update.CallbackQuery != nil:
		query := update.CallbackQuery
		text := locales.GetMessage(locales.NewLocalizer(query.From.LanguageCode), "MsgErrorGeneral", nil, nil)
		err := b.bot.AnswerCallbackQuery(replyCtx, tu.CallbackQuery(query.ID).WithText(text).WithShowAlert())
		if err != nil {
			log.Printf("Failed to answer callback %s after failure: %v", query.ID, err)
		}
	}
}

// processUpdate routes incoming updates to the appropriate handlers.
func (b *Bot) processUpdate(ctx context.Context, update telego.Update) {
	b.ratelimiter.Take()

	defer func() {
		if r := recover(); r != nil {
			log.Printf("PANIC recovered in processUpdate: %v\n%s", r, debug.Stack())
			sentry.CurrentHub().Recover(r)
			b.reportFailure(ctx, update)
			sentry.Flush(time.Second * 2)
		}
	}()

	processingCtx, cancel := context.WithTimeout(ctx, updateTimeout)
	defer cancel()

	switch {
	case update.Message != nil:
		message := *update.Message
		if message.From == nil {
			log.Printf("Ignoring message %d from chat %d without sender", message.MessageID, message.Chat.ID)
			return
		}
		switch {
		case strings.HasPrefix(message.Text, "/"):
			b.handleCommandUpdate(processingCtx, message)
		case message.Text != "" || message.Caption != "":
			b.handleTextUpdate(processingCtx, message)
		default:
			if b.debug {
				log.Printf("Ignoring unhandled message type (ID: %d)", message.MessageID)
			}
		}

	case update.CallbackQuery != nil:
		b.handleCallbackQuery(processingCtx, *update.CallbackQuery)

	default:
		if b.debug {
			log.Printf("Ignoring unhandled update type: %+v", update)
		}
	}
}

// Start registers the commands and runs the update loop until ctx is
// cancelled or the updates channel closes. Every update is processed in its
// own goroutine; Start waits for them before returning.
func (b *Bot) Start(ctx context.Context) {
	if err := b.handler.SetupCommands(ctx, b.bot); err != nil {
		log.Printf("Failed to register bot commands: %v", err)
		sentry.CaptureException(err)
	}
	log.Println("Listening for updates...")

	var wg sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			log.Println("Context done, stopping update processing...")
			wg.Wait()
			log.Println("All update processing finished.")
			return
		case update, ok := <-b.updatesChan:
			if !ok {
				log.Println("Updates channel closed.")
				wg.Wait()
				return
			}
			wg.Add(1)
			go func(up telego.Update) {
				defer wg.Done()
				b.processUpdate(ctx, up)
			}(update)
		}
	}
}
