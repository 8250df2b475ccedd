package handler

import (
	"net/http"
	"sync"
	"time"

	"inkcloud/internal/settings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
	streamBuffer     = 64
)

var upgrader = websocket.Upgrader{
	// Origins are checked by the CORS middleware and the auth key.
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// StreamEvent is one message of the settings stream.
type StreamEvent struct {
	Type     string               `json:"type"`
	Domain   string               `json:"domain"`
	Snapshot settings.RawSnapshot `json:"snapshot"`
}

// StreamSettings upgrades to a websocket that first receives every domain snapshot and then
// every state change. A client too slow to keep up is disconnected.
func (s *Server) StreamSettings(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).Debug("Settings stream upgrade failed")
		return
	}
	defer conn.Close()

	logger := logrus.WithField("remote", c.ClientIP())
	events := make(chan StreamEvent, streamBuffer)
	overflow := make(chan struct{})
	var overflowOnce sync.Once

	cancel := s.SettingsService.Subscribe(func(name string, snap settings.RawSnapshot) {
		select {
		case events <- StreamEvent{Type: "update", Domain: name, Snapshot: snap}:
		default:
			overflowOnce.Do(func() { close(overflow) })
		}
	})
	defer cancel()

	for _, view := range s.SettingsService.List() {
		if err := writeEvent(conn, StreamEvent{Type: "snapshot", Domain: view.Name, Snapshot: view.Snapshot}); err != nil {
			return
		}
	}

	// The reader only detects the client going away.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(streamPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case event := <-events:
			if err := writeEvent(conn, event); err != nil {
				logger.WithError(err).Debug("Settings stream write failed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				return
			}
		case <-overflow:
			logger.Warn("Settings stream client too slow, disconnecting")
			return
		case <-closed:
			return
		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(conn *websocket.Conn, event StreamEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(streamWriteWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}
