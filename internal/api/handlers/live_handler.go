package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/mirelio/echodesk/internal/hub"
)

type LiveHandler struct {
	hub      *hub.Hub
	upgrader websocket.Upgrader
}

func NewLiveHandler(h *hub.Hub) *LiveHandler {
	return &LiveHandler{
		hub: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

// Events streams domain events as server-sent events. The connection stays
// open until the client goes away or the hub drops the channel.
func (h *LiveHandler) Events(c *gin.Context) {
	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, open := <-ch.Events():
			if !open {
				return
			}
			b, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := c.Writer.WriteString("data: " + string(b) + "\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteJSON(v)
}

// WS streams the same domain events over a websocket. Client frames are read
// only to detect disconnects and keep pong handling alive.
func (h *LiveHandler) WS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ch := h.hub.Subscribe()
	defer h.hub.Unsubscribe(ch)

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			return nil
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		}
	}()

	ctx := c.Request.Context()
	for {
		select {
		case <-readDone:
			return
		case <-ctx.Done():
			return
		case ev, open := <-ch.Events():
			if !open {
				return
			}
			if err := wc.writeJSON(ev); err != nil {
				return
			}
		}
	}
}
