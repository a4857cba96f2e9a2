// Package platformtest runs an in-process imitation of the chat platform: the JSON API
// behind a chi router and the event stream behind a websocket endpoint.
package platformtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"stoat-client/models"
)

const DefaultToken = "test-session-token"

// Request is an API call the platform received.
type Request struct {
	Method string
	Path   string
	Body   []byte
}

type Platform struct {
	Server *httptest.Server
	Token  string
	Self   models.User

	log *zap.SugaredLogger
	api chi.Router

	handlers sync.WaitGroup

	mutex         sync.Mutex
	closed        bool
	conns         map[*session]struct{}
	sessions      map[*session]struct{}
	connections   int
	ready         []byte
	authError     string
	ignorePings   bool
	onboarding    bool
	email         string
	password      string
	mfa           bool
	users         map[string]models.User
	typingStarts  map[string]int
	typingStops   map[string]int
	typingStatus  int
	requests      []Request
	authFrameSeen []string
}

func New(t testing.TB) *Platform {
	t.Helper()

	p := &Platform{
		Token:        DefaultToken,
		Self:         models.User{ID: "01HZZZZZZZZZZZZZZZZZZZSELF", Username: "tester", Discriminator: "0001", Relationship: "User", Online: true},
		log:          zaptest.NewLogger(t).Sugar().Named("platform"),
		conns:        make(map[*session]struct{}),
		sessions:     make(map[*session]struct{}),
		users:        make(map[string]models.User),
		typingStarts: make(map[string]int),
		typingStops:  make(map[string]int),
		email:        "tester@example.com",
		password:     "Password123",
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(p.recordRequests)

	r.Get("/ws", p.handleWebSocket)

	r.Route("/api", func(api chi.Router) {
		p.api = api
		api.Get("/", p.handleQuery)
		api.Post("/auth/session/login", p.handleLogin)

		api.Group(func(r chi.Router) {
			r.Use(p.tokenVerifier)
			r.Get("/onboard/hello", p.handleOnboarding)
			r.Get("/users/@me", p.handleSelf)
			r.Get("/users/{userID}", p.handleUser)
			r.Put("/channels/{channelID}/typing", p.handleTyping(true))
			r.Delete("/channels/{channelID}/typing", p.handleTyping(false))
		})
	})

	r.Post("/autumn/{tag}", p.handleUpload)

	p.Server = httptest.NewServer(r)
	t.Cleanup(p.Close)
	return p
}

// Close cuts every connection and waits for the platform's handlers to return.
func (p *Platform) Close() {
	p.mutex.Lock()
	p.closed = true
	conns := make([]*session, 0, len(p.conns))
	for s := range p.conns {
		conns = append(conns, s)
	}
	p.mutex.Unlock()

	for _, s := range conns {
		s.conn.NetConn().Close()
	}
	p.Server.Close()
	p.handlers.Wait()
}

func (p *Platform) APIURL() string { return p.Server.URL + "/api" }

func (p *Platform) UploadURL() string { return p.Server.URL + "/autumn" }

func (p *Platform) WebsocketURL() string {
	return "ws" + strings.TrimPrefix(p.Server.URL, "http") + "/ws"
}

// Handle registers an extra API route, relative to the API root. Register routes before
// the code under test calls them.
func (p *Platform) Handle(method, pattern string, handler http.HandlerFunc) {
	p.api.With(p.tokenVerifier).MethodFunc(method, pattern, handler)
}

// HandlePublic registers an extra API route that doesn't check the session token.
func (p *Platform) HandlePublic(method, pattern string, handler http.HandlerFunc) {
	p.api.MethodFunc(method, pattern, handler)
}

// SetReady replaces the Ready frame sent after authentication. frame may be raw JSON or
// any value that encodes to a JSON object; its "type" is forced to Ready.
func (p *Platform) SetReady(frame any) {
	data := mustObject(frame)
	data["type"] = json.RawMessage(`"Ready"`)
	encoded, _ := json.Marshal(data)

	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.ready = encoded
}

// RejectAuthentication makes the event stream answer Authenticate with an Error frame
// carrying code. An empty code restores normal behaviour.
func (p *Platform) RejectAuthentication(code string) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.authError = code
}

// IgnorePings stops the platform from answering heartbeats.
func (p *Platform) IgnorePings(ignore bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.ignorePings = ignore
}

func (p *Platform) SetOnboarding(required bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.onboarding = required
}

// SetLogin sets the credentials accepted by the login endpoint. With mfa set, a correct
// password yields an MFA ticket instead of a session.
func (p *Platform) SetLogin(email, password string, mfa bool) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.email, p.password, p.mfa = email, password, mfa
}

func (p *Platform) AddUser(user models.User) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.users[user.ID] = user
}

// FailTyping makes the typing endpoints answer with status. Zero restores success.
func (p *Platform) FailTyping(status int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.typingStatus = status
}

func (p *Platform) TypingCounts(channelID string) (starts, stops int) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.typingStarts[channelID], p.typingStops[channelID]
}

// Connections returns how many event stream connections were accepted so far.
func (p *Platform) Connections() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.connections
}

func (p *Platform) ActiveSessions() int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return len(p.sessions)
}

func (p *Platform) Requests() []Request {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]Request(nil), p.requests...)
}

// AuthTokens returns the tokens of every Authenticate frame received.
func (p *Platform) AuthTokens() []string {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return append([]string(nil), p.authFrameSeen...)
}

// Send writes a frame to every authenticated event stream connection.
func (p *Platform) Send(frame any) error {
	data, err := encodeFrame(frame)
	if err != nil {
		return err
	}
	for _, s := range p.activeSessions() {
		if err := s.write(data); err != nil {
			return err
		}
	}
	return nil
}

// Drop cuts every event stream connection without a close handshake.
func (p *Platform) Drop() {
	for _, s := range p.activeSessions() {
		s.conn.NetConn().Close()
	}
}

func (p *Platform) activeSessions() []*session {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	sessions := make([]*session, 0, len(p.sessions))
	for s := range p.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

func (p *Platform) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ws" {
			body, _ := io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))

			p.mutex.Lock()
			p.requests = append(p.requests, Request{Method: r.Method, Path: r.URL.Path, Body: body})
			p.mutex.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

func (p *Platform) tokenVerifier(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := r.Header.Get("x-session-token")
		if token == "" {
			token = r.Header.Get("x-bot-token")
		}
		if token != p.Token {
			p.log.Debugf("Rejecting %s %s with token [%s]", r.Method, r.URL.Path, token)
			WriteError(w, http.StatusUnauthorized, "InvalidSession")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func WriteError(w http.ResponseWriter, status int, errType string) {
	WriteJSON(w, status, map[string]string{"type": errType})
}

func encodeFrame(frame any) ([]byte, error) {
	switch f := frame.(type) {
	case []byte:
		return f, nil
	case string:
		return []byte(f), nil
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	return data, nil
}

func mustObject(frame any) map[string]json.RawMessage {
	data, err := encodeFrame(frame)
	if err != nil {
		panic(err)
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(data, &object); err != nil {
		panic(fmt.Sprintf("frame is not a JSON object: %v", err))
	}
	return object
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}
