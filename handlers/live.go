package handlers

import (
	"net/http"
	"sync"
	"time"

	"city-samadhan/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// the mobile client sends no Origin header; the bearer token authenticates
	CheckOrigin: func(r *http.Request) bool { return true },
}

// LiveReports handles GET /api/reports/live. Every change to the user's
// reports is pushed as the full list with counts; the client replaces what
// it holds with each message.
func (h *Handler) LiveReports(c *gin.Context) {
	user := currentUser(c)
	tab := tabParam(c)
	log := h.Log.WithField("user_id", user.ID)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("Failed to upgrade connection to WebSocket")
		return
	}
	defer conn.Close()

	var writeMu sync.Mutex
	write := func(fn func() error) error {
		writeMu.Lock()
		defer writeMu.Unlock()
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		return fn()
	}

	gone := make(chan struct{})
	var goneOnce sync.Once
	markGone := func() { goneOnce.Do(func() { close(gone) }) }

	sub, err := h.Feed.Subscribe(c.Request.Context(), user.ID, func(reports []types.Report) {
		payload := h.listPayload(user.ID, reports, tab)
		if err := write(func() error { return conn.WriteJSON(payload) }); err != nil {
			log.WithError(err).Debug("Live feed write failed")
			markGone()
		}
	})
	if err != nil {
		_ = write(func() error {
			return conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseInternalServerErr, types.UserMessage(types.KindOf(err))))
		})
		log.WithError(err).Warn("Failed to open live feed")
		return
	}
	defer sub.Close()

	// only control frames are expected from the client
	go func() {
		conn.SetReadLimit(512)
		conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			conn.SetReadDeadline(time.Now().Add(pongWait))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				markGone()
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-gone:
			return
		case <-sub.Done():
			closeCode, reason := websocket.CloseNormalClosure, ""
			if err := sub.Err(); err != nil {
				log.WithError(err).Warn("Live feed ended")
				closeCode, reason = websocket.CloseInternalServerErr, types.UserMessage(types.KindOf(err))
			}
			_ = write(func() error {
				return conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(closeCode, reason))
			})
			return
		case <-ticker.C:
			if err := write(func() error { return conn.WriteMessage(websocket.PingMessage, nil) }); err != nil {
				return
			}
		}
	}
}
