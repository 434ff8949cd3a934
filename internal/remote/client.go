package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/ratelimit"
)

const (
	// Rate limit: one request every two seconds per host, burst of 2
	defaultRPS   = 0.5
	defaultBurst = 2

	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:128.0) Gecko/20100101 Firefox/128.0"

	maxBodySize = 16 << 20
)

// Session is the per-adapter login state.
type Session struct {
	Cookies   map[string]string `json:"cookies"`
	UserAgent string            `json:"user_agent"`
	LastUsed  time.Time         `json:"last_used"`
}

// Clone returns a copy that shares nothing with s.
func (s Session) Clone() Session {
	s.Cookies = maps.Clone(s.Cookies)
	return s
}

// SessionStore persists sessions between runs.
type SessionStore interface {
	Load(ctx context.Context, name string) (Session, bool, error)
	Save(ctx context.Context, name string, s Session) error
}

// ClientOptions configures a Client. Zero values pick defaults.
type ClientOptions struct {
	Timeout   time.Duration
	UserAgent string
	// Limiter is shared between adapters; nil gives the client its own.
	Limiter  *ratelimit.KeyedRateLimiter
	Sessions SessionStore
	// HTTP overrides the transport, for tests.
	HTTP *http.Client
}

// Client is the rate-limited HTTP client adapters build on. Requests carry
// the session's cookies and user agent; cookies the server sets are kept.
type Client struct {
	source     string
	http       *http.Client
	limiter    *ratelimit.KeyedRateLimiter
	ownLimiter bool
	sessions   SessionStore
	logger     *slog.Logger

	mu      sync.Mutex
	session Session
}

// NewClient creates a client for source and restores its saved session.
func NewClient(ctx context.Context, source string, opts ClientOptions, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	c := &Client{
		source:   source,
		http:     opts.HTTP,
		limiter:  opts.Limiter,
		sessions: opts.Sessions,
		logger:   logger,
		session:  Session{Cookies: map[string]string{}, UserAgent: opts.UserAgent},
	}
	if c.http == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		c.http = &http.Client{Timeout: timeout}
	}
	if c.limiter == nil {
		c.limiter = ratelimit.New(defaultRPS, defaultBurst)
		c.ownLimiter = true
	}
	if c.session.UserAgent == "" {
		c.session.UserAgent = defaultUserAgent
	}

	if c.sessions != nil {
		saved, ok, err := c.sessions.Load(ctx, source)
		switch {
		case err != nil:
			logger.Warn("failed to restore session", "source", source, "error", err)
		case ok:
			if saved.Cookies == nil {
				saved.Cookies = map[string]string{}
			}
			if saved.UserAgent == "" {
				saved.UserAgent = c.session.UserAgent
			}
			c.session = saved
		}
	}
	return c
}

// Close persists the session and releases the limiter if the client owns it.
func (c *Client) Close() error {
	if c.ownLimiter {
		c.limiter.Stop()
	}
	return c.save(context.Background())
}

// Session returns a copy of the current session.
func (c *Client) Session() Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Clone()
}

// SetSession replaces the session and persists it.
func (c *Client) SetSession(ctx context.Context, s Session) error {
	s = s.Clone()
	if s.Cookies == nil {
		s.Cookies = map[string]string{}
	}
	c.mu.Lock()
	if s.UserAgent == "" {
		s.UserAgent = c.session.UserAgent
	}
	c.session = s
	c.mu.Unlock()
	return c.save(ctx)
}

// Cookie returns one session cookie.
func (c *Client) Cookie(name string) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session.Cookies[name]
}

func (c *Client) save(ctx context.Context) error {
	if c.sessions == nil {
		return nil
	}
	return c.sessions.Save(ctx, c.source, c.Session())
}

// Get fetches rawURL.
func (c *Client) Get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransport, "create request")
	}
	return c.Do(req)
}

// PostJSON posts payload as JSON to rawURL.
func (c *Client) PostJSON(ctx context.Context, rawURL string, payload any) ([]byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInternal, "encode request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransport, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	return c.Do(req)
}

// Do executes req after waiting on the host's rate limit.
func (c *Client) Do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	if err := c.limiter.Wait(ctx, req.URL.Host); err != nil {
		if ctx.Err() != nil {
			return nil, errors.Cancelled(ctx.Err())
		}
		return nil, errors.Wrap(err, errors.CodeRateLimited, "rate limit wait")
	}

	sess := c.Session()
	req.Header.Set("User-Agent", sess.UserAgent)
	for name, value := range sess.Cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}

	c.logger.Debug("remote request", "source", c.source, "method", req.Method, "url", req.URL.String())

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Cancelled(ctx.Err())
		}
		return nil, errors.Wrap(err, errors.CodeTransport, "execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeTransport, "read response")
	}
	c.keepCookies(resp.Cookies())

	if err := statusError(resp.StatusCode, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) keepCookies(cookies []*http.Cookie) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session.LastUsed = time.Now()
	for _, ck := range cookies {
		if ck.Value == "" || ck.Value == "mystery" || ck.Value == "deleted" {
			continue
		}
		c.session.Cookies[ck.Name] = ck.Value
	}
}

func statusError(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return errors.ErrAuthRequired
	case code == http.StatusNotFound:
		return errors.ErrRemoteNotFound
	case code == http.StatusTooManyRequests || code == 509:
		return errors.ErrRateLimited
	case code >= 500:
		return errors.Wrapf(errors.ErrTransport, errors.CodeTransport, "server error %d", code)
	default:
		snippet := strings.TrimSpace(string(body))
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return errors.Wrapf(fmt.Errorf("status %d: %s", code, snippet), errors.CodeTransport, "unexpected status %d", code)
	}
}
