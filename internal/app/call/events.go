package call

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dkeye/roomcast/internal/domain"
)

// Event is a videoroom notification normalized at the relay boundary.
type Event interface{ isEvent() }

// Joined confirms our own join. Publishers lists feeds already in the room.
type Joined struct {
	ID         domain.FeedID
	Publishers []domain.Publisher
}

// RelayFailure is an error reported by the plugin. MissingFeed marks the
// "nobody is publishing yet" case, which is expected and transient.
type RelayFailure struct {
	Code        int
	Text        string
	MissingFeed bool
}

// PublisherAvailable is emitted for every message shape that announces a
// feed: a joined reply, a generic event or a publishers event.
type PublisherAvailable struct {
	Feed domain.FeedID
}

// PublisherLeft reports a departed or unpublished feed. Feed is zero when
// the relay only said "ok".
type PublisherLeft struct {
	Feed domain.FeedID
}

type Configured struct{}

type Ignored struct {
	Tag string
}

func (Joined) isEvent()             {}
func (RelayFailure) isEvent()       {}
func (PublisherAvailable) isEvent() {}
func (PublisherLeft) isEvent()      {}
func (Configured) isEvent()         {}
func (Ignored) isEvent()            {}

// Videoroom plugin error codes the session cares about.
const (
	codeNoSuchFeed     = 428
	codeMissingElement = 429
)

const missingFeedText = "Missing mandatory element (feed)"

type wireMessage struct {
	VideoRoom   string            `json:"videoroom"`
	ID          json.RawMessage   `json:"id"`
	Publishers  []json.RawMessage `json:"publishers"`
	Error       string            `json:"error"`
	ErrorCode   int               `json:"error_code"`
	Leaving     json.RawMessage   `json:"leaving"`
	Unpublished json.RawMessage   `json:"unpublished"`
	Configured  json.RawMessage   `json:"configured"`
}

// Normalize maps a plugin message to the events it carries, in the order
// they must be handled. A RelayFailure is always the only event.
func Normalize(raw json.RawMessage) []Event {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var m wireMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return []Event{Ignored{Tag: "malformed"}}
	}

	pubs := decodePublishers(m.Publishers)

	switch m.VideoRoom {
	case "joined":
		evs := []Event{Joined{ID: decodeFeed(m.ID), Publishers: pubs}}
		if len(pubs) > 0 {
			evs = append(evs, PublisherAvailable{Feed: pubs[0].ID})
		}
		return evs

	case "event":
		if m.Error != "" || m.ErrorCode != 0 {
			return []Event{classifyFailure(m.ErrorCode, m.Error)}
		}
		var evs []Event
		if len(pubs) > 0 {
			evs = append(evs, PublisherAvailable{Feed: pubs[0].ID})
		}
		if feed, ok := truthyFeed(m.Leaving); ok {
			evs = append(evs, PublisherLeft{Feed: feed})
		} else if feed, ok := truthyFeed(m.Unpublished); ok {
			evs = append(evs, PublisherLeft{Feed: feed})
		}
		if _, ok := truthyFeed(m.Configured); ok {
			evs = append(evs, Configured{})
		}
		if len(evs) == 0 {
			return []Event{Ignored{Tag: m.VideoRoom}}
		}
		return evs

	case "publishers":
		if len(pubs) > 0 {
			return []Event{PublisherAvailable{Feed: pubs[0].ID}}
		}
		return []Event{Ignored{Tag: m.VideoRoom}}
	}

	if m.Error != "" || m.ErrorCode != 0 {
		return []Event{classifyFailure(m.ErrorCode, m.Error)}
	}
	return []Event{Ignored{Tag: m.VideoRoom}}
}

// classifyFailure prefers the structured code and falls back to the text
// older relays send without one.
func classifyFailure(code int, text string) RelayFailure {
	if text == "" {
		text = fmt.Sprintf("relay error %d", code)
	}
	missing := code == codeNoSuchFeed ||
		(code == codeMissingElement && strings.Contains(text, "(feed)")) ||
		strings.Contains(text, missingFeedText)
	return RelayFailure{Code: code, Text: text, MissingFeed: missing}
}

// decodePublishers keeps the entries with a usable id. One bad entry does
// not cost the rest of the message.
func decodePublishers(raws []json.RawMessage) []domain.Publisher {
	if raws == nil {
		return nil
	}
	out := make([]domain.Publisher, 0, len(raws))
	for _, raw := range raws {
		var p domain.Publisher
		if err := json.Unmarshal(raw, &p); err != nil || !p.ID.Valid() {
			continue
		}
		out = append(out, p)
	}
	return out
}

func decodeFeed(raw json.RawMessage) domain.FeedID {
	var f domain.FeedID
	if len(raw) == 0 || json.Unmarshal(raw, &f) != nil {
		return ""
	}
	return f
}

// truthyFeed reads flags such as "leaving" that are either a feed id, a
// boolean or the string "ok".
func truthyFeed(raw json.RawMessage) (domain.FeedID, bool) {
	switch string(bytes.TrimSpace(raw)) {
	case "", "null", "false", "0", `""`:
		return "", false
	case "true", `"ok"`:
		return "", true
	}
	return decodeFeed(raw), true
}
