package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/dkeye/roomcast/internal/app"
	"github.com/dkeye/roomcast/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type Handlers struct {
	Rooms    *app.RoomManager
	JanusURL string
}

type JoinRequest struct {
	Room *int64 `json:"room"`
}

type RoomResponse struct {
	RoomID  domain.RoomID `json:"room_id"`
	Message string        `json:"message,omitempty"`
}

type JanusURLResponse struct {
	JanusURL string `json:"janus_url"`
}

func (h *Handlers) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "recent_rooms": h.Rooms.Recent()})
}

func (h *Handlers) CreateRoom(c *gin.Context) {
	room := h.Rooms.Create()
	remember(c, int64(room))
	c.JSON(http.StatusOK, RoomResponse{RoomID: room})
}

// JoinRoom echoes the requested room. Without a body the client's last
// room from its session is used.
func (h *Handlers) JoinRoom(c *gin.Context) {
	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room"})
		return
	}
	if req.Room == nil {
		if last, ok := lastRoom(c); ok {
			req.Room = &last
		}
	}
	if req.Room == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing or invalid room"})
		return
	}
	room, err := h.Rooms.Join(domain.RoomID(*req.Room))
	if errors.Is(err, domain.ErrInvalidRoom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	remember(c, int64(room))
	c.JSON(http.StatusOK, RoomResponse{RoomID: room, Message: "Joined"})
}

func (h *Handlers) JanusURLHandler(c *gin.Context) {
	c.JSON(http.StatusOK, JanusURLResponse{JanusURL: h.JanusURL})
}

const lastRoomKey = "last_room"

// remember keeps the client's last room in its cookie session.
func remember(c *gin.Context, room int64) {
	s := sessions.Default(c)
	s.Set(lastRoomKey, room)
	if err := s.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("session save")
	}
}

func lastRoom(c *gin.Context) (int64, bool) {
	room, ok := sessions.Default(c).Get(lastRoomKey).(int64)
	return room, ok
}
