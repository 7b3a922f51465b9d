package janus

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/roomcast/internal/core"
)

var (
	ErrBackpressure   = errors.New("backpressure")
	ErrConnClosed     = errors.New("connection closed")
	ErrSessionClosed  = errors.New("relay session closed")
	ErrSessionTimeout = errors.New("relay session timed out")
	ErrTimeout        = errors.New("relay request timed out")
	ErrNoLocalTrack   = errors.New("stream track cannot be sent")
)

// Error is an error reply of the gateway itself, not of a plugin.
type Error struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("janus error %d: %s", e.Code, e.Reason)
}

type request struct {
	Janus       string     `json:"janus"`
	Transaction string     `json:"transaction"`
	SessionID   uint64     `json:"session_id,omitempty"`
	HandleID    uint64     `json:"handle_id,omitempty"`
	Plugin      string     `json:"plugin,omitempty"`
	OpaqueID    string     `json:"opaque_id,omitempty"`
	Body        any        `json:"body,omitempty"`
	JSEP        *core.JSEP `json:"jsep,omitempty"`
}

type pluginData struct {
	Plugin string          `json:"plugin"`
	Data   json.RawMessage `json:"data"`
}

type candidate struct {
	Candidate     string  `json:"candidate"`
	SDPMid        *string `json:"sdpMid,omitempty"`
	SDPMLineIndex *uint16 `json:"sdpMLineIndex,omitempty"`
	Completed     bool    `json:"completed,omitempty"`
}

type idData struct {
	ID uint64 `json:"id"`
}

// envelope is every message the gateway sends.
type envelope struct {
	Janus       string      `json:"janus"`
	Transaction string      `json:"transaction,omitempty"`
	SessionID   uint64      `json:"session_id,omitempty"`
	Sender      uint64      `json:"sender,omitempty"`
	Data        *idData     `json:"data,omitempty"`
	Error       *Error      `json:"error,omitempty"`
	PluginData  *pluginData `json:"plugindata,omitempty"`
	JSEP        *core.JSEP  `json:"jsep,omitempty"`
	Candidate   *candidate  `json:"candidate,omitempty"`
	Reason      string      `json:"reason,omitempty"`
	Type        string      `json:"type,omitempty"`
	Receiving   *bool       `json:"receiving,omitempty"`
	Uplink      *bool       `json:"uplink,omitempty"`

	// set on synthetic envelopes when the transport dies
	err error
}

// isReply reports whether e answers a pending transaction.
func (e *envelope) isReply() bool {
	switch e.Janus {
	case "success", "error", "ack", "server_info":
		return e.Transaction != ""
	}
	return false
}
