package platformtest

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 5 * time.Second

type session struct {
	conn       *websocket.Conn
	writeMutex sync.Mutex
}

func (s *session) write(data []byte) error {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()

	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (p *Platform) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		p.log.Error(err)
		return
	}
	defer conn.Close()

	s := &session{conn: conn}

	p.mutex.Lock()
	if p.closed {
		p.mutex.Unlock()
		return
	}
	p.handlers.Add(1)
	p.conns[s] = struct{}{}
	p.connections++
	ignorePings := p.ignorePings
	p.mutex.Unlock()

	defer func() {
		p.mutex.Lock()
		delete(p.conns, s)
		p.mutex.Unlock()
		p.handlers.Done()
	}()

	if ignorePings {
		conn.SetPingHandler(func(string) error { return nil })
	}

	ready, ok := p.authenticate(s)
	if !ok {
		return
	}

	// Registered before Ready goes out, so frames sent once a client is ready reach it.
	p.mutex.Lock()
	p.sessions[s] = struct{}{}
	p.mutex.Unlock()

	defer func() {
		p.mutex.Lock()
		delete(p.sessions, s)
		p.mutex.Unlock()
	}()

	if err := s.write([]byte(`{"type":"Authenticated"}`)); err != nil {
		return
	}
	if err := s.write(ready); err != nil {
		return
	}

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			p.log.Debugf("Event stream closed: %v", err)
			return
		}

		var frame struct {
			Type string          `json:"type"`
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		if frame.Type == "Ping" {
			p.mutex.Lock()
			ignore := p.ignorePings
			p.mutex.Unlock()
			if ignore {
				continue
			}
			pong, _ := json.Marshal(map[string]any{"type": "Pong", "data": frame.Data})
			if err := s.write(pong); err != nil {
				return
			}
		}
	}
}

// authenticate reads the Authenticate frame and returns the Ready frame to answer with.
func (p *Platform) authenticate(s *session) ([]byte, bool) {
	s.conn.SetReadDeadline(time.Now().Add(10 * time.Second))
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		p.log.Debugf("No Authenticate frame: %v", err)
		return nil, false
	}
	s.conn.SetReadDeadline(time.Time{})

	var auth struct {
		Type  string `json:"type"`
		Token string `json:"token"`
	}
	json.Unmarshal(data, &auth)

	p.mutex.Lock()
	p.authFrameSeen = append(p.authFrameSeen, auth.Token)
	authError := p.authError
	ready := p.ready
	p.mutex.Unlock()

	if auth.Type != "Authenticate" || auth.Token != p.Token {
		authError = "InvalidSession"
	}
	if authError != "" {
		frame, _ := json.Marshal(map[string]string{"type": "Error", "error": authError})
		s.write(frame)
		return nil, false
	}

	if ready == nil {
		ready, _ = json.Marshal(map[string]any{
			"type":     "Ready",
			"users":    []any{p.Self},
			"servers":  []any{},
			"channels": []any{},
			"emojis":   []any{},
		})
	}
	return ready, true
}
