package core

//go:generate mockgen -source=relay_iface.go -destination=mock/relay_mock.go -package=mock

import (
	"context"
	"encoding/json"
)

const (
	JSEPOffer  = "offer"
	JSEPAnswer = "answer"
)

// JSEP is a session description exchanged with the relay.
type JSEP struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

func (j *JSEP) IsOffer() bool { return j != nil && j.Type == JSEPOffer }

// MediaConstraints describe which directions a negotiation declares.
type MediaConstraints struct {
	AudioSend bool
	VideoSend bool
	AudioRecv bool
	VideoRecv bool
}

// SessionCallbacks are invoked for relay session level events.
type SessionCallbacks struct {
	OnError     func(error)
	OnDestroyed func()
}

// HandleCallbacks are invoked for plugin handle events. Implementations
// must deliver them sequentially, in the order the relay sent them.
type HandleCallbacks struct {
	OnMessage      func(msg json.RawMessage, jsep *JSEP)
	OnLocalStream  func(LocalStream)
	OnRemoteStream func(RemoteStream)
	OnCleanup      func()
}

// RelayClient opens sessions on a media relay.
type RelayClient interface {
	Connect(ctx context.Context, url string, cb SessionCallbacks) (RelaySession, error)
}

type RelaySession interface {
	Attach(ctx context.Context, plugin, opaqueID string, cb HandleCallbacks) (PluginHandle, error)
	Destroy(ctx context.Context) error
}

// PluginHandle is an attached plugin instance. Send returns the synchronous
// plugin reply, or nil when the relay only acknowledged the request and
// will answer through OnMessage.
type PluginHandle interface {
	Send(ctx context.Context, body any, jsep *JSEP) (json.RawMessage, error)
	CreateOffer(ctx context.Context, media MediaConstraints, stream LocalStream) (*JSEP, error)
	CreateAnswer(ctx context.Context, remote *JSEP, media MediaConstraints) (*JSEP, error)
	HandleRemoteJSEP(ctx context.Context, jsep *JSEP) error
	Destroy(ctx context.Context) error
}
