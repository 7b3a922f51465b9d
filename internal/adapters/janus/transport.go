package janus

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	subprotocol  = "janus-protocol"
	writeTimeout = 5 * time.Second
	sendBuffer   = 32
	eventBuffer  = 256
)

type wsConn struct {
	conn *websocket.Conn
	send chan []byte

	mu     sync.RWMutex
	closed bool
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn, send: make(chan []byte, sendBuffer)}
}

func (c *wsConn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

func writePump(ctx context.Context, c *wsConn, log zerolog.Logger) {
	for {
		select {
		case <-ctx.Done():
			log.Debug().Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
				log.Error().Err(err).Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Msg("writePump write error")
				return
			}
		}
	}
}

// readPump hands every frame to onFrame until the socket fails, then
// reports the read error.
func readPump(c *wsConn, log zerolog.Logger, onFrame func([]byte), onExit func(error)) {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("readPump closing")
			onExit(err)
			return
		}
		onFrame(data)
	}
}
