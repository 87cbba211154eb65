package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"tokenvesting/internal/metrics"
	"tokenvesting/internal/vesting"
)

const (
	streamWriteWait  = 10 * time.Second
	streamPongWait   = 60 * time.Second
	streamPingPeriod = streamPongWait * 9 / 10
	streamBuffer     = 64
)

type streamClient struct {
	conn    *websocket.Conn
	send    chan []byte
	company string
}

// ClaimStream pushes committed claim events to websocket subscribers. It implements
// vesting.EventPublisher. Slow subscribers are dropped rather than blocking claims.
type ClaimStream struct {
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*streamClient]struct{}
}

// NewClaimStream returns a stream accepting browser connections from allowedOrigins.
// Requests without an Origin header are always accepted.
func NewClaimStream(allowedOrigins []string) *ClaimStream {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &ClaimStream{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed[origin]
			},
		},
		clients: make(map[*streamClient]struct{}),
	}
}

// ClientCount returns the number of connected subscribers.
func (s *ClaimStream) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *ClaimStream) PublishClaim(_ context.Context, ev vesting.ClaimEvent) error {
	msg, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for cl := range s.clients {
		if cl.company != "" && cl.company != ev.CompanyName {
			continue
		}
		select {
		case cl.send <- msg:
		default:
			log.Warnf("Claim stream client %s too slow, disconnecting", cl.conn.RemoteAddr())
			s.removeLocked(cl)
		}
	}
	return nil
}

// Serve upgrades the request and streams claim events, optionally filtered by ?company=.
func (s *ClaimStream) Serve(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error
		log.Warnf("Claim stream upgrade failed: %v", err)
		return
	}

	cl := &streamClient{
		conn:    conn,
		send:    make(chan []byte, streamBuffer),
		company: c.Query("company"),
	}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()
	metrics.StreamClientConnected()

	go s.writeLoop(cl)
	s.readLoop(cl)
}

// Close disconnects every subscriber.
func (s *ClaimStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for cl := range s.clients {
		s.removeLocked(cl)
	}
}

func (s *ClaimStream) remove(cl *streamClient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(cl)
}

func (s *ClaimStream) removeLocked(cl *streamClient) {
	if _, ok := s.clients[cl]; !ok {
		return
	}
	delete(s.clients, cl)
	close(cl.send)
	metrics.StreamClientDisconnected()
}

// readLoop discards client messages and notices disconnects.
func (s *ClaimStream) readLoop(cl *streamClient) {
	defer func() {
		s.remove(cl)
		cl.conn.Close()
	}()

	cl.conn.SetReadLimit(512)
	cl.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})
	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *ClaimStream) writeLoop(cl *streamClient) {
	ticker := time.NewTicker(streamPingPeriod)
	defer func() {
		ticker.Stop()
		cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			cl.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if !ok {
				cl.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			cl.conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
