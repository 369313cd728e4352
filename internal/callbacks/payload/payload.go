// Package payload encodes and decodes inline button callback data.
//
// Every payload starts with a discriminant naming its variant, followed by
// underscore separated fields:
//
//	fb_<resolve|reject>_<messageID>
//	req_<approve|reject>_<catalogID>_<movie|tv>_<requesterID>
//	sub_<catalogID>_<title>_<year>
//
// The title of a sub_ payload is every field between the catalog id and the
// year, so it may itself contain underscores.
package payload

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"feedback-bot/internal/database/models"
)

// MaxLen is Telegram's limit for callback data, in bytes.
const MaxLen = 64

const sep = "_"

// Variant discriminants.
const (
	KindFeedback  = "fb"
	KindRequest   = "req"
	KindSubscribe = "sub"
)

var (
	// ErrUnknownAction is returned for an unknown discriminant or action.
	ErrUnknownAction = errors.New("unknown callback action")
	// ErrMalformedPayload is returned when the fields of a known variant do
	// not parse.
	ErrMalformedPayload = errors.New("malformed callback payload")
)

// Action is what a moderator decided.
type Action string

const (
	ActionResolve Action = "resolve"
	ActionReject  Action = "reject"
	ActionApprove Action = "approve"
)

// Payload is one decoded callback.
type Payload interface {
	// Kind returns the variant discriminant.
	Kind() string
	// Encode renders the payload as callback data of at most MaxLen bytes.
	Encode() (string, error)
}

// Feedback resolves or rejects the feedback card it is attached to.
type Feedback struct {
	Action    Action
	MessageID int
}

func (Feedback) Kind() string { return KindFeedback }

func (p Feedback) Encode() (string, error) {
	if p.Action != ActionResolve && p.Action != ActionReject {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}
	return join(KindFeedback, string(p.Action), strconv.Itoa(p.MessageID))
}

// Request approves or rejects a movie request.
type Request struct {
	Action      Action
	CatalogID   string
	MediaType   models.MediaType
	RequesterID int64
}

func (Request) Kind() string { return KindRequest }

func (p Request) Encode() (string, error) {
	if p.Action != ActionApprove && p.Action != ActionReject {
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, p.Action)
	}
	if err := checkField("catalog id", p.CatalogID); err != nil {
		return "", err
	}
	if p.MediaType != models.MediaMovie && p.MediaType != models.MediaTV {
		return "", fmt.Errorf("%w: media type %q", ErrMalformedPayload, p.MediaType)
	}
	return join(KindRequest, string(p.Action), p.CatalogID, string(p.MediaType), strconv.FormatInt(p.RequesterID, 10))
}

// Subscribe subscribes to a search result directly.
type Subscribe struct {
	CatalogID string
	Title     string
	Year      string
}

func (Subscribe) Kind() string { return KindSubscribe }

// Encode shortens the title to fit MaxLen, never splitting a rune.
func (p Subscribe) Encode() (string, error) {
	if err := checkField("catalog id", p.CatalogID); err != nil {
		return "", err
	}
	if strings.Contains(p.Year, sep) {
		return "", fmt.Errorf("%w: year %q", ErrMalformedPayload, p.Year)
	}
	title := strings.TrimSpace(p.Title)
	fixed := len(KindSubscribe) + len(p.CatalogID) + len(p.Year) + 3*len(sep)
	if room := MaxLen - fixed; len(title) > room {
		title = truncate(title, room)
	}
	if title == "" {
		return "", fmt.Errorf("%w: empty title", ErrMalformedPayload)
	}
	return join(KindSubscribe, p.CatalogID, title, p.Year)
}

// Decode parses callback data. It never panics; any input that is not a
// payload this package encodes yields ErrUnknownAction or ErrMalformedPayload.
func Decode(data string) (Payload, error) {
	if len(data) > MaxLen {
		return nil, fmt.Errorf("%w: %d bytes", ErrMalformedPayload, len(data))
	}
	parts := strings.Split(data, sep)
	switch parts[0] {
	case KindFeedback:
		return decodeFeedback(parts[1:])
	case KindRequest:
		return decodeRequest(parts[1:])
	case KindSubscribe:
		return decodeSubscribe(parts[1:])
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAction, parts[0])
}

func decodeFeedback(fields []string) (Payload, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: missing action", ErrMalformedPayload)
	}
	action := Action(fields[0])
	if action != ActionResolve && action != ActionReject {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownAction, KindFeedback, action)
	}
	if len(fields) != 2 {
		return nil, fmt.Errorf("%w: %s wants 2 fields, got %d", ErrMalformedPayload, KindFeedback, len(fields))
	}
	messageID, err := strconv.Atoi(fields[1])
	if err != nil || messageID <= 0 {
		return nil, fmt.Errorf("%w: card reference %q", ErrMalformedPayload, fields[1])
	}
	return Feedback{Action: action, MessageID: messageID}, nil
}

func decodeRequest(fields []string) (Payload, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: missing action", ErrMalformedPayload)
	}
	action := Action(fields[0])
	if action != ActionApprove && action != ActionReject {
		return nil, fmt.Errorf("%w: %s %q", ErrUnknownAction, KindRequest, action)
	}
	if len(fields) != 4 {
		return nil, fmt.Errorf("%w: %s wants 4 fields, got %d", ErrMalformedPayload, KindRequest, len(fields))
	}
	if fields[1] == "" {
		return nil, fmt.Errorf("%w: empty catalog id", ErrMalformedPayload)
	}
	mediaType := models.MediaType(fields[2])
	if mediaType != models.MediaMovie && mediaType != models.MediaTV {
		return nil, fmt.Errorf("%w: media type %q", ErrMalformedPayload, fields[2])
	}
	requesterID, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: requester id %q", ErrMalformedPayload, fields[3])
	}
	return Request{Action: action, CatalogID: fields[1], MediaType: mediaType, RequesterID: requesterID}, nil
}

func decodeSubscribe(fields []string) (Payload, error) {
	if len(fields) < 3 {
		return nil, fmt.Errorf("%w: %s wants at least 3 fields, got %d", ErrMalformedPayload, KindSubscribe, len(fields))
	}
	p := Subscribe{
		CatalogID: fields[0],
		Title:     strings.Join(fields[1:len(fields)-1], sep),
		Year:      fields[len(fields)-1],
	}
	if p.CatalogID == "" || p.Title == "" {
		return nil, fmt.Errorf("%w: empty catalog id or title", ErrMalformedPayload)
	}
	return p, nil
}

func checkField(name, value string) error {
	if value == "" || strings.Contains(value, sep) {
		return fmt.Errorf("%w: %s %q", ErrMalformedPayload, name, value)
	}
	return nil
}

func join(fields ...string) (string, error) {
	data := strings.Join(fields, sep)
	if len(data) > MaxLen {
		return "", fmt.Errorf("%w: %d bytes exceeds %d", ErrMalformedPayload, len(data), MaxLen)
	}
	return data, nil
}

// truncate cuts s to at most n bytes on a rune boundary.
func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return strings.TrimRight(s[:n], sep+" ")
}
