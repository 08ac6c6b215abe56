package whatsapp

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrNotText is returned by Extract for message records that are not plain
// text (images, audio, reactions, ...).
var ErrNotText = errors.New("whatsapp: message is not text")

// InboundMessage is the part of a webhook delivery the relay acts on.
type InboundMessage struct {
	SenderID      string
	SenderName    string
	Text          string
	MessageID     string
	PhoneNumberID string
	Timestamp     time.Time
	Type          string
}

// ExtractionError reports a field missing from a delivery.
type ExtractionError struct {
	Path string
	Err  error
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("whatsapp: extract %s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("whatsapp: extract %s: missing", e.Path)
}

func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// Extract pulls the sender and text out of entry[0].changes[0].value.
func Extract(raw []byte) (InboundMessage, error) {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return InboundMessage{}, &ExtractionError{Path: "$", Err: err}
	}
	return ExtractPayload(payload)
}

// ExtractPayload is Extract for an already decoded JSON value.
func ExtractPayload(payload any) (InboundMessage, error) {
	var msg InboundMessage
	w := walker{root: payload}

	value := w.path("entry", 0, "changes", 0, "value")
	contact := value.path("contacts", 0)
	record := value.path("messages", 0)

	// Optional fields first so a non-text record can still be identified.
	msg.MessageID, _ = record.path("id").str()
	msg.Type, _ = record.path("type").str()
	msg.PhoneNumberID, _ = value.path("metadata", "phone_number_id").str()
	if ts, ok := record.path("timestamp").str(); ok {
		if secs, err := strconv.ParseInt(ts, 10, 64); err == nil {
			msg.Timestamp = time.Unix(secs, 0).UTC()
		}
	}

	var ok bool
	if msg.SenderID, ok = contact.path("wa_id").str(); !ok {
		return msg, contact.missing("wa_id")
	}
	if msg.SenderName, ok = contact.path("profile", "name").str(); !ok {
		return msg, contact.missing("profile", "name")
	}
	if msg.Type != "" && msg.Type != "text" {
		return msg, fmt.Errorf("%w: %s", ErrNotText, msg.Type)
	}
	if msg.Text, ok = record.path("text", "body").str(); !ok {
		return msg, record.missing("text", "body")
	}
	return msg, nil
}

// walker follows a JSON path through decoded maps and slices, remembering
// where it went so a failed lookup can name the full path.
type walker struct {
	root  any
	trail []string
	lost  bool
}

func (w walker) path(steps ...any) walker {
	cur := w.root
	trail := append([]string(nil), w.trail...)
	lost := w.lost
	for _, step := range steps {
		switch s := step.(type) {
		case string:
			trail = append(trail, s)
			if lost {
				continue
			}
			obj, ok := cur.(map[string]any)
			if !ok {
				lost = true
				continue
			}
			if cur, ok = obj[s]; !ok || cur == nil {
				lost = true
			}
		case int:
			trail = append(trail, fmt.Sprintf("[%d]", s))
			if lost {
				continue
			}
			arr, ok := cur.([]any)
			if !ok || s >= len(arr) {
				lost = true
				continue
			}
			cur = arr[s]
		}
	}
	return walker{root: cur, trail: trail, lost: lost}
}

func (w walker) str() (string, bool) {
	if w.lost {
		return "", false
	}
	s, ok := w.root.(string)
	return s, ok
}

func (w walker) missing(steps ...any) *ExtractionError {
	return &ExtractionError{Path: w.path(steps...).String()}
}

func (w walker) String() string {
	var b strings.Builder
	for _, part := range w.trail {
		if b.Len() > 0 && !strings.HasPrefix(part, "[") {
			b.WriteByte('.')
		}
		b.WriteString(part)
	}
	return b.String()
}
