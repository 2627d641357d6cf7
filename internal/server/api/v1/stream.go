package v1

import (
	"net/http"
	"sync/atomic"
	"time"

	"alfred/internal/types"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongTimeout  = 60 * time.Second
	streamPingInterval = (streamPongTimeout * 9) / 10
	streamReadLimit    = 512
)

// StatusStream pushes fleet status to websocket clients: once on connect,
// then after every discovery run and completed health sweep
type StatusStream struct {
	service  Service
	upgrader websocket.Upgrader
	clients  atomic.Int64
	logger   *zap.Logger
}

// NewStatusStream creates a status stream over svc
func NewStatusStream(svc Service, logger *zap.Logger) *StatusStream {
	return &StatusStream{
		service: svc,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.Named("stream"),
	}
}

// Clients returns the number of connected clients
func (s *StatusStream) Clients() int64 {
	return s.clients.Load()
}

// Handle upgrades the request and streams until the client goes away
func (s *StatusStream) Handle(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("Failed to upgrade websocket", zap.Error(err))
		return
	}

	updates, unsubscribe := s.service.Subscribe()
	s.clients.Add(1)
	s.logger.Debug("Status client connected", zap.String("remote", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go s.readPump(conn, done)
	s.writePump(c, conn, updates, done)

	unsubscribe()
	s.clients.Add(-1)
	_ = conn.Close()
	s.logger.Debug("Status client disconnected", zap.String("remote", conn.RemoteAddr().String()))
}

// readPump discards client frames and closes done when the peer goes away
func (s *StatusStream) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(streamReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongTimeout))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("Websocket read failed", zap.Error(err))
			}
			return
		}
	}
}

func (s *StatusStream) writePump(c *gin.Context, conn *websocket.Conn, updates <-chan types.FleetStatus, done <-chan struct{}) {
	ticker := time.NewTicker(streamPingInterval)
	defer ticker.Stop()

	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	if err := conn.WriteJSON(s.service.Status(c.Request.Context())); err != nil {
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case status, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := conn.WriteJSON(status); err != nil {
				s.logger.Debug("Websocket write failed", zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
