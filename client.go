// Package stoat is a client for the Stoat chat platform. A Client authenticates a session,
// keeps an event stream open, mirrors the servers, channels, users and emojis the session
// can see, and wraps the JSON API calls bots and tools commonly need.
package stoat

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"stoat-client/events"
	"stoat-client/internal/cache"
	"stoat-client/internal/dispatch"
	"stoat-client/internal/gateway"
	"stoat-client/internal/logging"
	"stoat-client/models"
	"stoat-client/rest"
	"stoat-client/typing"
)

var (
	ErrNoToken          = gateway.ErrNoToken
	ErrAlreadyRunning   = gateway.ErrAlreadyRunning
	ErrInvalidSession   = gateway.ErrInvalidSession
	ErrRetriesExhausted = gateway.ErrRetriesExhausted
)

type Client struct {
	cfg Config
	log *zap.SugaredLogger

	rest       *rest.Client
	cache      *cache.Cache
	bus        *events.Bus
	dispatcher *dispatch.Dispatcher
	gateway    *gateway.Gateway
	typing     *typing.Registry

	mutex sync.Mutex
	query *models.Query
}

func New(cfg Config) (*Client, error) {
	cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("stoat: %w", err)
	}

	base := cfg.Logger
	if base == nil {
		var err error
		base, err = logging.New(cfg.LogLevel)
		if err != nil {
			return nil, fmt.Errorf("stoat: %w", err)
		}
	}
	bus := events.NewBus(base.Sugar().Named("events"))
	log := logging.Forward(base, bus).Sugar()

	restClient, err := rest.New(rest.Config{
		BaseURL:    cfg.APIURL,
		UploadURL:  cfg.UploadURL,
		UserAgent:  cfg.UserAgent,
		HTTPClient: cfg.HTTPClient,
		Logger:     log.Named("rest"),
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:   cfg,
		log:   log,
		rest:  restClient,
		cache: cache.New(log.Named("cache")),
		bus:   bus,
	}

	c.dispatcher = dispatch.New(dispatch.Config{
		Cache:               c.cache,
		Bus:                 bus,
		Logger:              log.Named("dispatch"),
		Users:               c,
		FetchMissingAuthors: cfg.FetchMissingAuthors,
	})
	c.gateway = gateway.New(gateway.Config{
		URL:                  cfg.WebsocketURL,
		Token:                restClient.Token,
		Dispatcher:           c.dispatcher,
		Cache:                c.cache,
		Bus:                  bus,
		Logger:               log.Named("gateway"),
		HeartbeatInterval:    cfg.HeartbeatInterval,
		HeartbeatMisses:      cfg.HeartbeatMisses,
		ReconnectMin:         cfg.ReconnectMin,
		ReconnectMax:         cfg.ReconnectMax,
		MaxReconnectAttempts: cfg.MaxReconnectAttempts,
	})
	c.typing = typing.NewRegistry(c, cfg.TypingInterval, log.Named("typing"))

	return c, nil
}

func (c *Client) Logger() *zap.SugaredLogger { return c.log }

// REST exposes the underlying API client for calls this package doesn't wrap.
func (c *Client) REST() *rest.Client { return c.rest }

func (c *Client) Mode() Mode { return c.cfg.Mode }

func (c *Client) Token() string { return c.rest.Token() }

func (c *Client) State() events.State { return c.gateway.State() }

// writesCache reports whether the results of changes made over HTTP go into the cache
// directly. With an event stream the platform echoes every change and the dispatcher
// applies it, with the matching event.
func (c *Client) writesCache() bool { return c.cfg.Mode == ModeHTTP }

// Start learns the event stream and file server addresses from the API root unless they
// were configured, then connects the event stream and blocks until the cache holds the
// first Ready snapshot. In HTTP mode it returns after discovery.
func (c *Client) Start(ctx context.Context) error {
	if c.rest.Token() == "" {
		return ErrNoToken
	}

	if c.cfg.WebsocketURL == "" || c.rest.UploadURL() == "" {
		query, err := c.Query(ctx)
		if err != nil {
			return fmt.Errorf("stoat: discover service urls: %w", err)
		}
		if c.cfg.WebsocketURL == "" {
			c.gateway.SetURL(query.WebsocketURL)
		}
		if c.rest.UploadURL() == "" && query.Features.Autumn.Enabled {
			c.rest.SetUploadURL(query.Features.Autumn.URL)
		}
	}

	if c.cfg.Mode == ModeHTTP {
		return nil
	}
	return c.gateway.Start(ctx)
}

// Stop ends every typing notifier and closes the event stream. The cache is emptied;
// the session token and the self user are kept so Start can be called again.
func (c *Client) Stop(ctx context.Context) error {
	c.typing.StopAll()
	if c.cfg.Mode == ModeHTTP {
		c.dispatcher.Store(func(cached *cache.Cache) { cached.Reset() })
		return nil
	}
	return c.gateway.Stop(ctx)
}

// Query fetches the API root document. The result is kept for later calls.
func (c *Client) Query(ctx context.Context) (*models.Query, error) {
	c.mutex.Lock()
	query := c.query
	c.mutex.Unlock()
	if query != nil {
		return query, nil
	}

	query = &models.Query{}
	if err := c.rest.Get(ctx, "", query, rest.WithoutAuth()); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	c.query = query
	c.mutex.Unlock()
	return query, nil
}

// On subscribes handler to events of type E. Handlers run on the goroutine that applied
// the event, after the cache reflects it, and must not block for long.
func On[E events.Event](c *Client, handler func(E)) *events.Subscription {
	return events.On(c.bus, handler)
}

// Subscribe registers handler for one event type.
func (c *Client) Subscribe(typ events.Type, handler events.Handler) *events.Subscription {
	return c.bus.Subscribe(typ, handler)
}

// OnAny subscribes handler to every event.
func (c *Client) OnAny(handler events.Handler) *events.Subscription {
	return c.bus.SubscribeAll(handler)
}

func (c *Client) Self() *models.SelfUser { return c.cache.Self() }

func (c *Client) Server(id string) (*models.Server, bool) { return c.cache.Servers.Get(id) }

func (c *Client) Servers() []*models.Server { return c.cache.Servers.GetAll() }

func (c *Client) Channel(id string) (models.Channel, bool) { return c.cache.Channels.Get(id) }

func (c *Client) Channels() []models.Channel { return c.cache.Channels.GetAll() }

func (c *Client) User(id string) (*models.User, bool) { return c.cache.Users.Get(id) }

func (c *Client) Users() []*models.User { return c.cache.Users.GetAll() }

func (c *Client) Emoji(id string) (*models.Emoji, bool) { return c.cache.Emojis.Get(id) }

func (c *Client) Emojis() []*models.Emoji { return c.cache.Emojis.GetAll() }

func (c *Client) TextChannel(id string) (*models.TextChannel, bool) {
	return c.cache.TextChannel(id)
}

func (c *Client) VoiceChannel(id string) (*models.VoiceChannel, bool) {
	return c.cache.VoiceChannel(id)
}

func (c *Client) GroupChannel(id string) (*models.GroupChannel, bool) {
	return c.cache.GroupChannel(id)
}

func (c *Client) DMChannel(id string) (*models.DMChannel, bool) {
	return c.cache.DMChannel(id)
}

func (c *Client) SavedMessagesChannel(id string) (*models.SavedMessagesChannel, bool) {
	return c.cache.SavedMessagesChannel(id)
}

// ServerChannels returns the cached channels of a server in the server's order.
func (c *Client) ServerChannels(serverID string) []models.Channel {
	return c.cache.ServerChannels(serverID)
}

func (c *Client) ServerEmojis(serverID string) []*models.Emoji {
	return c.cache.ServerEmojis(serverID)
}

// Role finds a role in any cached server.
func (c *Client) Role(roleID string) (serverID string, role models.Role, ok bool) {
	return c.cache.Role(roleID)
}
