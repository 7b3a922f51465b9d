// Package janus binds the relay ports to a Janus gateway over its
// WebSocket API.
package janus

import (
	"context"
	"time"

	"github.com/dkeye/roomcast/internal/adapters/rtc"
	"github.com/dkeye/roomcast/internal/core"
	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultKeepalive      = 25 * time.Second
	DefaultRequestTimeout = 15 * time.Second
)

type Config struct {
	Keepalive      time.Duration
	RequestTimeout time.Duration
	STUNServers    []string
}

// Client opens relay sessions. It is safe for concurrent use.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	api    *webrtc.API
	rtcCfg webrtc.Configuration
}

var _ core.RelayClient = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	if cfg.Keepalive <= 0 {
		cfg.Keepalive = DefaultKeepalive
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = DefaultRequestTimeout
	}
	api, err := rtc.NewAPI()
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Subprotocols:     []string{subprotocol},
			HandshakeTimeout: cfg.RequestTimeout,
		},
		api:    api,
		rtcCfg: rtc.DefaultWebRTCConfig(cfg.STUNServers),
	}, nil
}

// Connect dials url and creates a gateway session on it.
func (c *Client) Connect(ctx context.Context, url string, cb core.SessionCallbacks) (core.RelaySession, error) {
	logger := log.With().Str("module", "janus").Str("url", url).Logger()

	ws, _, err := c.dialer.DialContext(ctx, url, nil)
	if err != nil {
		logger.Error().Err(err).Msg("dial")
		return nil, err
	}

	s := newSession(newWSConn(ws), c.cfg, cb, logger, c.newPeer)
	s.start()

	env, err := s.request(ctx, &request{Janus: "create"})
	if err != nil {
		s.close()
		return nil, err
	}
	if env.Data == nil {
		s.close()
		return nil, &Error{Reason: "create: missing session id"}
	}
	s.id = env.Data.ID
	s.log.Info().Uint64("session_id", s.id).Msg("session created")

	go s.keepalive()
	return s, nil
}

func (c *Client) newPeer(logger zerolog.Logger) (*rtc.WebRTCConnection, error) {
	return rtc.NewWebRTCConnection(c.api, c.rtcCfg, logger)
}
