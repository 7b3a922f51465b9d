// Package allocclient talks to the room allocator service.
package allocclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"sync"
	"time"

	"github.com/dkeye/roomcast/internal/core"
	"github.com/dkeye/roomcast/internal/domain"
)

var (
	ErrUnexpectedStatus = errors.New("allocator returned unexpected status")
	ErrRateLimited      = errors.New("allocator rate limit exceeded")
	ErrBadResponse      = errors.New("allocator returned a malformed response")
)

type roomResponse struct {
	RoomID  *int64 `json:"room_id"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

type janusURLResponse struct {
	JanusURL string `json:"janus_url"`
}

// Client wraps the allocator HTTP API. Its cookie jar keeps the client
// token, so rate limits apply per Client. The relay URL is cached.
type Client struct {
	baseURL    string
	httpClient *http.Client

	mu       sync.RWMutex
	relayURL string
}

var _ core.RoomAllocator = (*Client)(nil)

func New(baseURL string) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
			Jar:     jar,
		},
	}
}

// CreateRoom asks the allocator for a fresh room number.
func (c *Client) CreateRoom(ctx context.Context) (domain.RoomID, error) {
	var resp roomResponse
	if err := c.do(ctx, http.MethodPost, "/api/room/create", nil, &resp); err != nil {
		return 0, err
	}
	if resp.RoomID == nil {
		return 0, ErrBadResponse
	}
	return domain.RoomID(*resp.RoomID), nil
}

// JoinRoom registers interest in room and returns the room the allocator
// confirmed, which may be zero when it echoes nothing usable.
func (c *Client) JoinRoom(ctx context.Context, room domain.RoomID) (domain.RoomID, error) {
	var resp roomResponse
	body := map[string]int64{"room": int64(room)}
	if err := c.do(ctx, http.MethodPost, "/api/room/join", body, &resp); err != nil {
		return 0, err
	}
	if resp.RoomID == nil {
		return 0, nil
	}
	return domain.RoomID(*resp.RoomID), nil
}

// RelayURL returns the media relay endpoint.
func (c *Client) RelayURL(ctx context.Context) (string, error) {
	c.mu.RLock()
	cached := c.relayURL
	c.mu.RUnlock()
	if cached != "" {
		return cached, nil
	}

	var resp janusURLResponse
	if err := c.do(ctx, http.MethodGet, "/api/janus-url", nil, &resp); err != nil {
		return "", err
	}
	if resp.JanusURL == "" {
		return "", ErrBadResponse
	}

	c.mu.Lock()
	c.relayURL = resp.JanusURL
	c.mu.Unlock()
	return resp.JanusURL, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call allocator: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return ErrRateLimited
	}
	if resp.StatusCode != http.StatusOK {
		var e roomResponse
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, e.Error)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	return nil
}
