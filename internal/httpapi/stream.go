package httpapi

import (
	"net/http"
	"strings"
	"time"

	"admissions-crm/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
)

// upgrader follows the REST CORS policy: with no allowed origins configured
// only same-origin browsers may connect, otherwise the Origin must be listed.
// Clients that send no Origin header are not browsers and pass.
func (h Handlers) upgrader() *websocket.Upgrader {
	u := &websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024}
	if len(h.AllowedOrigins) > 0 {
		u.CheckOrigin = h.originAllowed
	}
	return u
}

func (h Handlers) originAllowed(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	for _, o := range h.AllowedOrigins {
		if o == "*" || strings.EqualFold(strings.TrimRight(o, "/"), origin) {
			return true
		}
	}
	return false
}

// StreamSession pushes a JSON snapshot of the caller's session over a
// websocket: once on connect and again after every change.
func (h Handlers) StreamSession(c *gin.Context) {
	if h.Calls == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "calls not configured"})
		return
	}
	agent, ok := agentFromRequest(c)
	if !ok {
		return
	}
	tracker, err := h.Calls.Tracker(agent)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	log := logger.FromGin(c).With("agent_id", agent.UserID)
	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		log.Warn("session stream upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	updates, unsubscribe := tracker.Subscribe()
	defer unsubscribe()

	// The reader only drains control frames; it ends when the client goes away.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeJSON(conn, tracker.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-closed:
			return
		case snap, ok := <-updates:
			if !ok {
				return
			}
			if err := writeJSON(conn, snap); err != nil {
				log.Debug("session stream write failed", "err", err)
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func writeJSON(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
	return conn.WriteJSON(v)
}
