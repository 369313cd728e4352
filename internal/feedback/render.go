package feedback

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"feedback-bot/internal/callbacks/payload"
	"feedback-bot/internal/catalog"
	"feedback-bot/internal/database/models"
	"feedback-bot/internal/locales"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"
)

// maxMessageLen is Telegram's limit for a text message, in characters.
const maxMessageLen = 4096

// maxCandidates is how many search hits a movie request card offers.
const maxCandidates = 3

const timeLayout = "2006-01-02 15:04"

// maxCardContent caps the content quoted on a card so the card stays within
// maxMessageLen.
const maxCardContent = 3000

// RequesterName renders the identity of whoever submitted an item. A virtual
// identity replaces the account.
func RequesterName(item *models.Feedback) string {
	if item.Persona != "" {
		return item.Persona
	}
	name := item.DisplayName
	if name == "" {
		name = fmt.Sprintf("%d", item.UserID)
	}
	if item.Username != "" {
		return fmt.Sprintf("%s (@%s)", name, item.Username)
	}
	return name
}

func categoryName(c models.Category) string {
	return locales.Message("Category_"+string(c), nil)
}

func priorityName(p models.Priority) string {
	return locales.Message("Priority_"+string(p), nil)
}

// cardFrom renders the requester lines of a card. Virtual identities do not
// reveal the account behind them.
func cardFrom(item *models.Feedback) string {
	if item.Persona != "" {
		return locales.Message("CardFromPersona", map[string]interface{}{"Persona": item.Persona})
	}
	return locales.Message("CardFromUser", map[string]interface{}{
		"Requester": RequesterName(item),
		"UserID":    item.UserID,
	})
}

func cardContent(item *models.Feedback) string {
	if utf8.RuneCountInString(item.Content) <= maxCardContent {
		return item.Content
	}
	return truncateRunes(item.Content, maxCardContent) + "…"
}

func feedbackCardText(item *models.Feedback) string {
	return locales.Message("CardFeedback", map[string]interface{}{
		"ID":       item.ID,
		"From":     cardFrom(item),
		"Category": categoryName(item.Category),
		"Priority": priorityName(item.Priority),
		"Content":  cardContent(item),
	})
}

func feedbackKeyboard(ref models.CardRef) (*telego.InlineKeyboardMarkup, error) {
	resolve, err := payload.Feedback{Action: payload.ActionResolve, MessageID: ref.MessageID}.Encode()
	if err != nil {
		return nil, err
	}
	reject, err := payload.Feedback{Action: payload.ActionReject, MessageID: ref.MessageID}.Encode()
	if err != nil {
		return nil, err
	}
	return tu.InlineKeyboard(tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(locales.Message("BtnResolve", nil)).WithCallbackData(resolve),
		tu.InlineKeyboardButton(locales.Message("BtnReject", nil)).WithCallbackData(reject),
	)), nil
}

// CandidateLines renders search hits as a numbered list.
func CandidateLines(candidates []catalog.Candidate) string {
	var b strings.Builder
	for i, c := range candidates {
		b.WriteString(locales.Message("CandidateLine", map[string]interface{}{
			"Index":  i + 1,
			"Title":  c.Title,
			"Year":   c.Year,
			"Source": c.Source,
			"Rating": fmt.Sprintf("%.1f", c.Rating),
		}))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func requestCardText(item *models.Feedback, candidates []catalog.Candidate, searchErr error) string {
	var results string
	switch {
	case len(candidates) > 0:
		results = CandidateLines(candidates)
	case searchErr != nil:
		results = locales.Message("CardSearchUnavailable", nil)
	default:
		results = locales.Message("CardNoCandidates", nil)
	}
	return locales.Message("CardRequest", map[string]interface{}{
		"ID":      item.ID,
		"From":    cardFrom(item),
		"Content": cardContent(item),
		"Results": results,
	})
}

// requestKeyboard offers one approve button per candidate and one reject
// button. The reject button names the first candidate, or "none".
func requestKeyboard(item *models.Feedback) (*telego.InlineKeyboardMarkup, error) {
	var approveRow []telego.InlineKeyboardButton
	for i, c := range item.Candidates {
		data, err := payload.Request{
			Action:      payload.ActionApprove,
			CatalogID:   c.CatalogID,
			MediaType:   c.MediaType,
			RequesterID: item.UserID,
		}.Encode()
		if err != nil {
			return nil, err
		}
		label := locales.Message("BtnApproveCandidate", map[string]interface{}{"Index": i + 1})
		approveRow = append(approveRow, tu.InlineKeyboardButton(label).WithCallbackData(data))
	}

	rejectRef := payload.Request{Action: payload.ActionReject, CatalogID: noCandidateID, MediaType: models.MediaMovie, RequesterID: item.UserID}
	if len(item.Candidates) > 0 {
		rejectRef.CatalogID = item.Candidates[0].CatalogID
		rejectRef.MediaType = item.Candidates[0].MediaType
	}
	reject, err := rejectRef.Encode()
	if err != nil {
		return nil, err
	}

	rows := [][]telego.InlineKeyboardButton{}
	if len(approveRow) > 0 {
		rows = append(rows, approveRow)
	}
	rows = append(rows, tu.InlineKeyboardRow(
		tu.InlineKeyboardButton(locales.Message("BtnReject", nil)).WithCallbackData(reject),
	))
	return tu.InlineKeyboard(rows...), nil
}

// noCandidateID stands in for the catalog id on cards without search hits.
const noCandidateID = "none"

// closedCardText is the card after a decision, with the outcome appended.
func closedCardText(item *models.Feedback, outcomeID string, data map[string]interface{}) string {
	if data == nil {
		data = map[string]interface{}{}
	}
	data["Actor"] = item.ResolverName
	var card string
	if item.Kind == models.KindMovieRequest {
		card = locales.Message("CardRequestClosed", map[string]interface{}{
			"ID":      item.ID,
			"From":    cardFrom(item),
			"Content": cardContent(item),
		})
	} else {
		card = feedbackCardText(item)
	}
	return card + "\n\n" + locales.Message(outcomeID, data)
}

func itemData(item *models.Feedback) map[string]interface{} {
	return map[string]interface{}{
		"ID":        item.ID,
		"Content":   item.Content,
		"Requester": RequesterName(item),
	}
}

// summaryEntry renders one pending item of the daily summary or /pending.
func summaryEntry(item *models.Feedback) string {
	return locales.Message("SummaryItem", map[string]interface{}{
		"ID":        item.ID,
		"Kind":      locales.Message("Kind_"+string(item.Kind), nil),
		"Requester": RequesterName(item),
		"Time":      formatTime(item.CreatedAt),
		"Content":   item.Content,
	})
}

// PendingChunks renders items under header and splits the text into chunks
// that each fit in one message. Entries are never split unless a single
// entry is itself too long.
func PendingChunks(header string, items []models.Feedback) []string {
	var chunks []string
	current := header
	for i := range items {
		entry := summaryEntry(&items[i])
		if utf8.RuneCountInString(entry) > maxMessageLen-2 {
			entry = truncateRunes(entry, maxMessageLen-3) + "…"
		}
		if utf8.RuneCountInString(current)+2+utf8.RuneCountInString(entry) > maxMessageLen {
			chunks = append(chunks, current)
			current = entry
			continue
		}
		if current == "" {
			current = entry
		} else {
			current += "\n\n" + entry
		}
	}
	if current != "" {
		chunks = append(chunks, current)
	}
	return chunks
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func formatTime(t time.Time) string {
	return t.Local().Format(timeLayout)
}

// UserName is how a Telegram user is shown on cards and in audit entries.
func UserName(u *telego.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}

// RequesterFrom builds the requester of msg.
func RequesterFrom(msg *telego.Message) Requester {
	r := Requester{MessageID: msg.MessageID}
	if msg.From != nil {
		r.UserID = msg.From.ID
		r.Username = msg.From.Username
		r.DisplayName = UserName(msg.From)
	}
	return r
}
