package server

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/zeusync/voxelphys/internal/core/observability/log"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// ClientSession is one connected viewer.
type ClientSession struct {
	ID   string
	conn *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newClientSession(conn *websocket.Conn, buffer int) *ClientSession {
	return &ClientSession{
		ID:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// enqueue reports false when the client's queue is full or it is closed.
func (c *ClientSession) enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *ClientSession) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.conn.Close()
	})
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if atomic.AddInt64(&s.clientCount, 1) > int64(s.config.MaxClients) {
		atomic.AddInt64(&s.clientCount, -1)
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		atomic.AddInt64(&s.clientCount, -1)
		s.logger.Warn("WebSocket upgrade failed", log.Error(err))
		return
	}

	session := newClientSession(conn, s.config.SendBuffer)
	s.clients.Store(session.ID, session)
	s.logger.Info("Client connected",
		log.String("client_id", session.ID),
		log.String("remote_addr", conn.RemoteAddr().String()))

	if frame := s.latest.Load(); frame != nil {
		session.enqueue(*frame)
	}

	s.workerGroup.Add(1)
	go func() {
		defer s.workerGroup.Done()
		s.writePump(session)
	}()

	s.readPump(session)

	session.close()
	s.clients.Delete(session.ID)
	atomic.AddInt64(&s.clientCount, -1)
	s.logger.Info("Client disconnected", log.String("client_id", session.ID))
}

// readPump discards inbound frames and returns when the peer goes away.
func (s *Server) readPump(session *ClientSession) {
	session.conn.SetReadLimit(512)
	for {
		if _, _, err := session.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writePump(session *ClientSession) {
	ping := time.NewTicker(s.config.PingInterval)
	defer ping.Stop()

	for {
		select {
		case frame := <-session.send:
			_ = session.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := session.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.logger.Debug("Write failed", log.String("client_id", session.ID), log.Error(err))
				session.close()
				return
			}
		case <-ping.C:
			deadline := time.Now().Add(s.config.WriteTimeout)
			if err := session.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				session.close()
				return
			}
		case <-session.done:
			return
		case <-s.stopChan:
			return
		}
	}
}
