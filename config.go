package stoat

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"stoat-client/rest"
	"stoat-client/typing"
)

// DefaultAPIURL is the API root of the public instance.
const DefaultAPIURL = "https://stoat.chat/api/"

// Mode decides whether the client keeps an event stream open.
type Mode int

const (
	// ModeWebSocket keeps the cache live through the event stream.
	ModeWebSocket Mode = iota
	// ModeHTTP only talks to the JSON API. The cache holds whatever requests put into it.
	ModeHTTP
)

func (m Mode) String() string {
	if m == ModeHTTP {
		return "HTTP"
	}
	return "WebSocket"
}

type TokenType = rest.TokenType

const (
	UserToken = rest.UserToken
	BotToken  = rest.BotToken
)

type Config struct {
	APIURL string
	// WebsocketURL and UploadURL are discovered from the API root by Start when left empty.
	WebsocketURL string
	UploadURL    string

	// LogLevel is the console threshold: debug, info, warn, error or none. Log
	// subscribers receive every entry regardless. Ignored when Logger is set.
	LogLevel string
	// Logger replaces the console logger.
	Logger *zap.Logger

	UserAgent  string
	HTTPClient *http.Client
	Mode       Mode
	TokenType  TokenType

	HeartbeatInterval    time.Duration
	HeartbeatMisses      int
	ReconnectMin         time.Duration
	ReconnectMax         time.Duration
	MaxReconnectAttempts int
	TypingInterval       time.Duration

	// FetchMissingAuthors resolves the author of a pushed message over HTTP when it is not
	// cached. The fetched user is handed to subscribers but not cached.
	FetchMissingAuthors bool
}

func (cfg *Config) withDefaults() {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if !strings.HasSuffix(cfg.APIURL, "/") {
		cfg.APIURL += "/"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "stoat-client-go"
	}
	if cfg.TypingInterval == 0 {
		cfg.TypingInterval = typing.DefaultInterval
	}
}

func (cfg *Config) validate() error {
	parsed, err := url.Parse(cfg.APIURL)
	if err != nil {
		return fmt.Errorf("invalid APIURL %q: %w", cfg.APIURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid APIURL %q: scheme must be http or https", cfg.APIURL)
	}
	if cfg.Mode != ModeWebSocket && cfg.Mode != ModeHTTP {
		return fmt.Errorf("unknown mode %d", cfg.Mode)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"HeartbeatInterval", cfg.HeartbeatInterval},
		{"ReconnectMin", cfg.ReconnectMin},
		{"ReconnectMax", cfg.ReconnectMax},
		{"TypingInterval", cfg.TypingInterval},
	}
	for _, d := range durations {
		if d.value < 0 {
			return fmt.Errorf("%s can't be negative", d.name)
		}
	}
	if cfg.HeartbeatMisses < 0 {
		return fmt.Errorf("HeartbeatMisses can't be negative")
	}
	if cfg.MaxReconnectAttempts < 0 {
		return fmt.Errorf("MaxReconnectAttempts can't be negative")
	}
	return nil
}
