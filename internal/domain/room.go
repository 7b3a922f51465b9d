package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidRoom = errors.New("room id must be a positive number")

// RoomID is the numeric videoroom identifier handed out by the allocator.
type RoomID int64

func (id RoomID) Valid() bool { return id > 0 }

func (id RoomID) String() string { return strconv.FormatInt(int64(id), 10) }

// ParseRoomID accepts user input the way the join form does: base 10, positive.
func ParseRoomID(s string) (RoomID, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return 0, ErrInvalidRoom
	}
	return RoomID(n), nil
}

// FeedID identifies one publisher stream inside a room. Relays send numeric
// ids by default and strings when rooms use string ids, so the id is kept in
// its wire form and echoed back unchanged. The zero value means no feed.
type FeedID string

// Publisher is an entry of a publisher list announced by the relay.
type Publisher struct {
	ID      FeedID `json:"id"`
	Display string `json:"display,omitempty"`
}

func (f FeedID) Valid() bool { return f != "" }

func (f FeedID) String() string {
	if s, err := strconv.Unquote(string(f)); err == nil {
		return s
	}
	return string(f)
}

func (f FeedID) MarshalJSON() ([]byte, error) {
	if f == "" {
		return []byte("null"), nil
	}
	if json.Valid([]byte(f)) {
		return []byte(f), nil
	}
	return json.Marshal(string(f))
}

// UnmarshalJSON accepts unsigned numbers and non-empty strings.
func (f *FeedID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case string(b) == "null":
		*f = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return fmt.Errorf("feed id %s: %w", b, err)
		}
		if s == "" {
			*f = ""
			return nil
		}
		q, _ := json.Marshal(s)
		*f = FeedID(q)
		return nil
	}
	if _, err := strconv.ParseUint(string(b), 10, 64); err != nil {
		return fmt.Errorf("feed id %s: %w", b, err)
	}
	*f = FeedID(b)
	return nil
}
