package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"
)

const maxResponseSize = 8 << 20

// maxErrorMessage bounds the part of a non-JSON error body kept as the message.
const maxErrorMessage = 256

type TokenType int

const (
	UserToken TokenType = iota
	BotToken
)

func (t TokenType) header() string {
	if t == BotToken {
		return "x-bot-token"
	}
	return "x-session-token"
}

type Config struct {
	// BaseURL is the API root, e.g. "https://stoat.chat/api/".
	BaseURL string
	// UploadURL is the file server root. It is normally learnt from the API's root query
	// and set later with SetUploadURL.
	UploadURL  string
	UserAgent  string
	HTTPClient *http.Client
	Logger     *zap.SugaredLogger
}

// Client performs single, non-retried calls against the platform API. It is safe for
// concurrent use; the session token can be swapped at any time.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	log        *zap.SugaredLogger

	mu        sync.RWMutex
	token     string
	tokenType TokenType
	uploadURL string
}

func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("rest: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("rest: invalid BaseURL %q: %w", cfg.BaseURL, err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		log:        log,
		uploadURL:  strings.TrimRight(cfg.UploadURL, "/"),
	}, nil
}

func (c *Client) SetToken(token string, tokenType TokenType) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.tokenType = tokenType
}

func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) TokenType() TokenType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tokenType
}

func (c *Client) SetUploadURL(uploadURL string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.uploadURL = strings.TrimRight(uploadURL, "/")
}

func (c *Client) UploadURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.uploadURL
}

// RequestOption adjusts an outgoing request.
type RequestOption func(*http.Request)

// WithIdempotencyKey makes the platform drop duplicate submissions carrying the same key.
func WithIdempotencyKey(key string) RequestOption {
	return func(r *http.Request) {
		r.Header.Set("Idempotency-Key", key)
	}
}

// WithoutAuth sends the request without the session header, for endpoints like the root
// query and webhook execution that must not see the user's token.
func WithoutAuth() RequestOption {
	return func(r *http.Request) {
		r.Header.Del(TokenType(UserToken).header())
		r.Header.Del(TokenType(BotToken).header())
	}
}

func (c *Client) Get(ctx context.Context, path string, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodGet, path, nil, out, opts...)
}

func (c *Client) Post(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPost, path, body, out, opts...)
}

func (c *Client) Put(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPut, path, body, out, opts...)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodPatch, path, body, out, opts...)
}

func (c *Client) Delete(ctx context.Context, path string, body any, opts ...RequestOption) error {
	return c.Do(ctx, http.MethodDelete, path, body, nil, opts...)
}

// Do sends a JSON request to the API and decodes a 2xx body into out (when out is
// non-nil). Paths are relative to BaseURL; a leading slash is optional.
func (c *Client) Do(ctx context.Context, method, path string, body, out any, opts ...RequestOption) error {
	requestURL := c.baseURL + "/" + strings.TrimLeft(path, "/")

	var bodyReader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("rest: encode %s %s body: %w", method, path, err)
		}
		bodyReader = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return fmt.Errorf("rest: create request: %w", err)
	}
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}

	responseBody, err := c.send(request, opts)
	if err != nil {
		return err
	}

	if out == nil || len(responseBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(responseBody, out); err != nil {
		return fmt.Errorf("rest: decode %s %s response: %w", method, path, err)
	}
	return nil
}

// Upload stores a file on the upload server under tag ("attachments", "avatars", "icons",
// "banners", "emojis", ...) and returns the attachment id to reference it with.
func (c *Client) Upload(ctx context.Context, tag, filename string, data io.Reader) (string, error) {
	uploadURL := c.UploadURL()
	if uploadURL == "" {
		return "", fmt.Errorf("rest: upload url is not known yet, start the client first")
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("rest: create upload form: %w", err)
	}
	if _, err := io.Copy(part, data); err != nil {
		return "", fmt.Errorf("rest: read upload data: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("rest: close upload form: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL+"/"+tag, &buf)
	if err != nil {
		return "", fmt.Errorf("rest: create upload request: %w", err)
	}
	request.Header.Set("Content-Type", form.FormDataContentType())

	responseBody, err := c.send(request, nil)
	if err != nil {
		return "", err
	}

	var uploaded struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(responseBody, &uploaded); err != nil {
		return "", fmt.Errorf("rest: decode upload response: %w", err)
	}
	return uploaded.ID, nil
}

func (c *Client) send(request *http.Request, opts []RequestOption) ([]byte, error) {
	c.mu.RLock()
	token, tokenType := c.token, c.tokenType
	c.mu.RUnlock()

	if token != "" {
		request.Header.Set(tokenType.header(), token)
	}
	if c.userAgent != "" {
		request.Header.Set("User-Agent", c.userAgent)
	}
	for _, opt := range opts {
		opt(request)
	}

	method, path := request.Method, request.URL.Path
	response, err := c.httpClient.Do(request)
	if err != nil {
		return nil, fmt.Errorf("rest: request to %s %s failed: %w", method, path, err)
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(response.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("rest: read %s %s response: %w", method, path, err)
	}

	c.log.Debugf("%s %s -> %d", method, path, response.StatusCode)

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}

	restErr := &Error{
		StatusCode: response.StatusCode,
		Type:       ErrTypeUnknown,
		Method:     method,
		Path:       path,
	}
	if len(responseBody) > 0 {
		if jsonErr := json.Unmarshal(responseBody, restErr); jsonErr != nil {
			c.log.Debugf("non-JSON error body from %s %s: %s", method, path, string(responseBody))
			restErr.Message = strings.TrimSpace(string(responseBody[:min(len(responseBody), maxErrorMessage)]))
		}
	}
	if restErr.Type == "" {
		restErr.Type = ErrTypeUnknown
	}
	return nil, restErr
}
