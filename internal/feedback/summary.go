package feedback

import (
	"context"
	"fmt"
	"log"
	"time"

	"feedback-bot/internal/locales"

	"github.com/getsentry/sentry-go"
	tu "github.com/mymmrac/telego/telegoutil"
)

// summaryTimeout bounds one run of the daily summary.
const summaryTimeout = time.Minute

// DailySummary posts every pending item to the display chat, or the admin
// room when no display chat is configured. Nothing is sent when no item is
// pending. It returns the number of items summarised.
func (w *Workflow) DailySummary(ctx context.Context) (int, error) {
	items, err := w.store.ListPending(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending items: %w", err)
	}
	if len(items) == 0 {
		log.Printf("[Summary] No pending items, nothing to send")
		return 0, nil
	}

	target := w.opts.DisplayChatID
	if target == 0 {
		adminRoom, ok, err := w.rooms.AdminRoom(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			return 0, ErrNoSummaryTarget
		}
		target = adminRoom
	}

	header := locales.Message("SummaryHeader", map[string]interface{}{
		"Count": len(items),
		"Date":  time.Now().Format("2006-01-02"),
	})
	for i, chunk := range PendingChunks(header, items) {
		if _, err := w.bot.SendMessage(ctx, tu.Message(tu.ID(target), chunk)); err != nil {
			return 0, fmt.Errorf("failed to send summary part %d: %w", i+1, err)
		}
	}
	log.Printf("[Summary] Sent %d pending item(s) to %d", len(items), target)
	return len(items), nil
}

// RunDailySummary runs DailySummary every day at hour:00 local time until ctx
// is cancelled. A negative hour disables it.
func (w *Workflow) RunDailySummary(ctx context.Context, hour int) {
	if hour < 0 {
		log.Printf("[Summary] Daily summary disabled")
		return
	}
	for {
		next := nextRun(time.Now(), hour)
		log.Printf("[Summary] Next daily summary at %s", next.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		runCtx, cancel := context.WithTimeout(ctx, summaryTimeout)
		if _, err := w.DailySummary(runCtx); err != nil {
			log.Printf("[Summary] Daily summary failed: %v", err)
			sentry.CaptureException(fmt.Errorf("daily summary: %w", err))
		}
		cancel()
	}
}

// nextRun returns the first hour:00 strictly after now.
func nextRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
