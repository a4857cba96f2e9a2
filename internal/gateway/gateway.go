package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"stoat-client/events"
	"stoat-client/internal/cache"
	"stoat-client/internal/dispatch"
)

var (
	ErrNoToken          = errors.New("gateway: no session token")
	ErrAlreadyRunning   = errors.New("gateway: already running")
	ErrInvalidSession   = errors.New("gateway: invalid session")
	ErrRetriesExhausted = errors.New("gateway: reconnect attempts exhausted")
	ErrStopped          = errors.New("gateway: stopped")
	ErrHeartbeatTimeout = errors.New("gateway: heartbeat not acknowledged")
)

const invalidSessionCode = "InvalidSession"

type Config struct {
	URL string
	// Token returns the session token to authenticate with. It is read on every connect.
	Token      func() string
	Dialer     Dialer
	Dispatcher *dispatch.Dispatcher
	Cache      *cache.Cache
	Bus        *events.Bus
	Logger     *zap.SugaredLogger

	HeartbeatInterval time.Duration
	// HeartbeatMisses is how many heartbeats may go unacknowledged in a row before the
	// connection is considered dead.
	HeartbeatMisses  int
	HandshakeTimeout time.Duration
	ReconnectMin     time.Duration
	ReconnectMax     time.Duration
	// MaxReconnectAttempts bounds consecutive failed connections. Zero means no limit.
	MaxReconnectAttempts int
}

func (cfg *Config) withDefaults() {
	if cfg.Dialer == nil {
		cfg.Dialer = WebsocketDialer{}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop().Sugar()
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 30 * time.Second
	}
	if cfg.HeartbeatMisses <= 0 {
		cfg.HeartbeatMisses = 2
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 30 * time.Second
	}
	if cfg.ReconnectMin <= 0 {
		cfg.ReconnectMin = time.Second
	}
	if cfg.ReconnectMax < cfg.ReconnectMin {
		cfg.ReconnectMax = max(cfg.ReconnectMin, time.Minute)
	}
}

// Gateway keeps one authenticated event stream open and feeds its frames to the
// dispatcher, reconnecting with backoff when the stream fails.
type Gateway struct {
	cfg Config
	log *zap.SugaredLogger

	mutex   sync.Mutex
	url     string
	state   events.State
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(cfg Config) *Gateway {
	cfg.withDefaults()
	return &Gateway{
		cfg: cfg,
		log: cfg.Logger,
		url: cfg.URL,
	}
}

func (g *Gateway) SetURL(url string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	g.url = url
}

func (g *Gateway) State() events.State {
	g.mutex.Lock()
	defer g.mutex.Unlock()
	return g.state
}

func (g *Gateway) setState(to events.State) {
	g.mutex.Lock()
	from := g.state
	g.state = to
	g.mutex.Unlock()

	if from == to {
		return
	}
	g.log.Debugf("Gateway state [%s] -> [%s]", from, to)
	g.cfg.Bus.Publish(events.StateChanged{From: from, To: to})
}

// Start connects and blocks until the first Ready frame has been applied, ctx ends, or the
// connection fails in a way retrying can't fix. Once Start returns nil the gateway keeps
// reconnecting in the background until Stop.
func (g *Gateway) Start(ctx context.Context) error {
	if g.cfg.Token == nil || g.cfg.Token() == "" {
		return ErrNoToken
	}

	g.mutex.Lock()
	if g.running {
		g.mutex.Unlock()
		return ErrAlreadyRunning
	}
	if g.url == "" {
		g.mutex.Unlock()
		return fmt.Errorf("gateway: no websocket url")
	}
	runCtx, cancel := context.WithCancel(context.Background())
	g.running = true
	g.cancel = cancel
	g.done = make(chan struct{})
	done := g.done
	g.mutex.Unlock()

	ready := make(chan error, 1)
	go g.run(runCtx, done, ready)

	select {
	case err := <-ready:
		return err
	case <-ctx.Done():
		g.Stop(context.Background())
		return ctx.Err()
	}
}

// Stop closes the connection, clears the cache and waits for the run loop to exit or ctx
// to end. Stopping a stopped gateway does nothing. Event handlers must not call Stop with
// a context that never ends, since the run loop waits for them.
func (g *Gateway) Stop(ctx context.Context) error {
	g.mutex.Lock()
	if !g.running {
		g.mutex.Unlock()
		return nil
	}
	cancel, done := g.cancel, g.done
	g.mutex.Unlock()

	cancel()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *Gateway) run(ctx context.Context, done chan struct{}, ready chan<- error) {
	signaled := false
	signal := func(err error) {
		if !signaled {
			signaled = true
			ready <- err
		}
	}

	defer func() {
		g.cfg.Cache.Reset()
		g.setState(events.StateDisconnected)

		g.mutex.Lock()
		g.running = false
		g.mutex.Unlock()

		signal(ErrStopped)
		close(done)
	}()

	retry := backoff.NewExponentialBackOff()
	retry.InitialInterval = g.cfg.ReconnectMin
	retry.MaxInterval = g.cfg.ReconnectMax
	retry.MaxElapsedTime = 0
	retry.Reset()

	failures := 0
	for {
		err := g.session(ctx, func() {
			failures = 0
			retry.Reset()
			signal(nil)
		})
		if ctx.Err() != nil {
			g.log.Info("Gateway stopped")
			return
		}

		g.cfg.Cache.Reset()

		if errors.Is(err, ErrInvalidSession) {
			g.log.Errorf("Gateway session rejected: %v", err)
			signal(err)
			return
		}

		failures++
		if g.cfg.MaxReconnectAttempts > 0 && failures >= g.cfg.MaxReconnectAttempts {
			g.log.Errorf("Giving up after [%d] failed connections: %v", failures, err)
			signal(fmt.Errorf("%w: %w", ErrRetriesExhausted, err))
			return
		}

		g.setState(events.StateReconnecting)
		wait := retry.NextBackOff()
		g.log.Warnf("Gateway connection lost: %v, reconnecting in %s", err, wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			g.log.Info("Gateway stopped")
			return
		case <-timer.C:
		}
	}
}

type authenticateFrame struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type pingFrame struct {
	Type string `json:"type"`
	Data int64  `json:"data"`
}

// session runs one connection from dial to failure. onReady is called the first time the
// connection reaches Ready.
func (g *Gateway) session(ctx context.Context, onReady func()) error {
	g.setState(events.StateConnecting)

	g.mutex.Lock()
	url := g.url
	g.mutex.Unlock()

	dialCtx, cancelDial := context.WithTimeout(ctx, g.cfg.HandshakeTimeout)
	conn, err := g.cfg.Dialer.Dial(dialCtx, url)
	cancelDial()
	if err != nil {
		return err
	}
	defer conn.Close()

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stopClose := context.AfterFunc(sessionCtx, func() { conn.Close() })
	defer stopClose()

	g.setState(events.StateAuthenticating)

	auth, err := json.Marshal(authenticateFrame{Type: "Authenticate", Token: g.cfg.Token()})
	if err != nil {
		return fmt.Errorf("encode authenticate frame: %w", err)
	}
	if err := conn.WriteFrame(auth); err != nil {
		return fmt.Errorf("send authenticate frame: %w", err)
	}

	handshakeExpired := atomic.Bool{}
	handshakeTimer := time.AfterFunc(g.cfg.HandshakeTimeout, func() {
		handshakeExpired.Store(true)
		conn.Close()
	})
	defer handshakeTimer.Stop()

	var unacknowledged atomic.Int32
	conn.SetPongHandler(func() { unacknowledged.Store(0) })
	heartbeatErr := make(chan error, 1)

	isReady := false
	for {
		data, err := conn.ReadFrame()
		if err != nil {
			select {
			case hbErr := <-heartbeatErr:
				return hbErr
			default:
			}
			if handshakeExpired.Load() && !isReady {
				return fmt.Errorf("gateway: no Ready frame within %s", g.cfg.HandshakeTimeout)
			}
			return fmt.Errorf("read frame: %w", err)
		}

		frameType, err := dispatch.FrameType(data)
		if err != nil {
			g.log.Debugf("Dropping undecodable frame: %v", err)
			continue
		}

		switch frameType {
		case dispatch.FramePong:
			unacknowledged.Store(0)
			continue

		case dispatch.FrameError:
			if isReady {
				break
			}
			var frame struct {
				Error string `json:"error"`
			}
			json.Unmarshal(data, &frame)
			if frame.Error == invalidSessionCode {
				return ErrInvalidSession
			}
			return fmt.Errorf("gateway: authentication failed: %s", frame.Error)

		case dispatch.FrameReady:
			if err := g.cfg.Dispatcher.Bootstrap(data); err != nil {
				return err
			}
			if !isReady {
				isReady = true
				handshakeTimer.Stop()
				go g.heartbeat(sessionCtx, conn, &unacknowledged, heartbeatErr)
				g.setState(events.StateReady)
				g.log.Info("Gateway ready")
				g.cfg.Bus.Publish(events.Connected{})
				onReady()
			}
			continue
		}

		g.cfg.Dispatcher.Dispatch(sessionCtx, data)
	}
}

func (g *Gateway) heartbeat(ctx context.Context, conn Conn, unacknowledged *atomic.Int32, fail chan<- error) {
	ticker := time.NewTicker(g.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if int(unacknowledged.Load()) >= g.cfg.HeartbeatMisses {
			fail <- ErrHeartbeatTimeout
			conn.Close()
			return
		}
		unacknowledged.Add(1)

		if err := conn.Ping(); err != nil {
			fail <- fmt.Errorf("send ping: %w", err)
			conn.Close()
			return
		}
		ping, _ := json.Marshal(pingFrame{Type: "Ping", Data: time.Now().UnixMilli()})
		if err := conn.WriteFrame(ping); err != nil {
			fail <- fmt.Errorf("send ping frame: %w", err)
			conn.Close()
			return
		}
	}
}
