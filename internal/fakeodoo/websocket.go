package fakeodoo

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/odoojs/odoo.go/pkg/constants"
)

// Notification mirrors one element of the array Odoo pushes on the bus.
type Notification struct {
	ID      int64      `json:"id"`
	Message BusMessage `json:"message"`
}

type BusMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (s *Server) handleWebsocket(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.requests = append(s.requests, Request{Path: r.URL.Path, Header: r.Header.Clone()})
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.wsConns = append(s.wsConns, conn)
	s.mu.Unlock()

	go s.readLoop(conn)
}

func (s *Server) readLoop(conn *websocket.Conn) {
	defer conn.Close()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.mu.Lock()
		s.subscribe = append(s.subscribe, data)
		s.mu.Unlock()
		select {
		case s.subCh <- data:
		default:
		}
	}
}

// WaitSubscription returns the next message a bus client sent, or false
// after timeout.
func (s *Server) WaitSubscription(timeout time.Duration) (json.RawMessage, bool) {
	select {
	case msg := <-s.subCh:
		return msg, true
	case <-time.After(timeout):
		return nil, false
	}
}

// Push sends notifications to every connected bus client as one JSON array.
func (s *Server) Push(notifications ...Notification) error {
	data, err := json.Marshal(notifications)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.wsConns {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return err
		}
	}
	return nil
}

// DropBusClients closes every bus connection from the server side.
func (s *Server) DropBusClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, conn := range s.wsConns {
		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server restart"),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	}
	s.wsConns = nil
}

// BusCookie returns the cookie sent by the most recent bus client.
func (s *Server) BusCookie() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.requests) - 1; i >= 0; i-- {
		if s.requests[i].Path == constants.WebsocketPath {
			return cookieValue(s.requests[i].Header)
		}
	}
	return ""
}

// Close disconnects bus clients and shuts the server down.
func (s *Server) Close() {
	s.DropBusClients()
	s.Server.Close()
}
