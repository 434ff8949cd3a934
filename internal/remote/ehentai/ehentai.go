// Package ehentai is the primary metadata source: e-hentai.org and, with
// login cookies, exhentai.org. Galleries are found by page digest through
// the site's file search and described through the JSON gdata API.
package ehentai

import (
	"bytes"
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
)

// Name is the adapter name.
const Name = "ehentai"

const (
	// DefaultBaseURL is the public site.
	DefaultBaseURL = "https://e-hentai.org"
	// ExBaseURL is the members-only mirror.
	ExBaseURL = "https://exhentai.org"
	// DefaultAPIURL serves gdata for both sites.
	DefaultAPIURL = "https://api.e-hentai.org/api.php"

	// batchSize is the gdata limit per request.
	batchSize = 25
)

// Login cookie names.
const (
	CookieMemberID = "ipb_member_id"
	CookiePassHash = "ipb_pass_hash"
	CookieIgneous  = "igneous"
)

// galleryURL matches gallery links on either site and captures the host,
// gallery id and token.
var galleryURL = regexp.MustCompile(`^https?://(?:www\.)?((?:e-|ex)hentai\.org)/g/(\d+)/([0-9a-f]+)/?`)

// Options configures the adapter.
type Options struct {
	// BaseURL is where searches go: DefaultBaseURL or ExBaseURL.
	BaseURL string
	APIURL  string
	Client  remote.ClientOptions
}

// Adapter implements remote.Adapter.
type Adapter struct {
	base   string
	api    string
	client *remote.Client
	logger *slog.Logger
}

var _ remote.Adapter = (*Adapter)(nil)

// New creates the adapter and restores its saved session.
func New(ctx context.Context, opts Options, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIURL == "" {
		opts.APIURL = DefaultAPIURL
	}
	return &Adapter{
		base:   strings.TrimSuffix(opts.BaseURL, "/"),
		api:    opts.APIURL,
		client: remote.NewClient(ctx, Name, opts.Client, logger),
		logger: logger,
	}
}

// Close persists the session.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func (a *Adapter) Name() string            { return Name }
func (a *Adapter) Pattern() *regexp.Regexp { return galleryURL }
func (a *Adapter) BatchSize() int          { return batchSize }

// Client exposes the underlying HTTP client.
func (a *Adapter) Client() *remote.Client { return a.client }

// exhentai reports whether searches go to the members-only site.
func (a *Adapter) exhentai() bool {
	return strings.Contains(a.base, "exhentai")
}

// Login stores the member cookies and verifies them against the
// members-only site.
func (a *Adapter) Login(ctx context.Context, creds remote.Credentials) (remote.Session, error) {
	member, pass := creds[CookieMemberID], creds[CookiePassHash]
	if member == "" || pass == "" {
		return remote.Session{}, remote.WrapError("login", Name, "",
			errors.Wrap(errors.ErrAuthRequired, errors.CodeAuthRequired, "ipb_member_id and ipb_pass_hash are required"))
	}

	sess := a.client.Session()
	sess.Cookies[CookieMemberID] = member
	sess.Cookies[CookiePassHash] = pass
	if ig := creds[CookieIgneous]; ig != "" {
		sess.Cookies[CookieIgneous] = ig
	}
	if err := a.client.SetSession(ctx, sess); err != nil {
		return remote.Session{}, remote.WrapError("login", Name, "", err)
	}

	ok, err := a.CheckLogin(ctx)
	if err != nil {
		return remote.Session{}, err
	}
	if !ok {
		return remote.Session{}, remote.WrapError("login", Name, "",
			errors.Wrap(errors.ErrAuthRequired, errors.CodeAuthRequired, "exhentai rejected the cookies"))
	}
	a.logger.Info("logged in", "source", Name, "member_id", member)
	return a.client.Session(), nil
}

// CheckLogin reports whether the session opens the members-only site.
// Without cookies it answers false without a request.
func (a *Adapter) CheckLogin(ctx context.Context) (bool, error) {
	if a.client.Cookie(CookieMemberID) == "" || a.client.Cookie(CookiePassHash) == "" {
		return false, nil
	}
	body, err := a.client.Get(ctx, a.exBase()+"/")
	switch {
	case errors.Is(err, errors.ErrAuthRequired):
		return false, nil
	case err != nil:
		return false, remote.WrapError("check login", Name, "", err)
	}
	return bytes.Contains(bytes.ToLower(body), []byte("<html")), nil
}

// exBase is the members-only base. It follows BaseURL when that already
// points there, which keeps test servers in charge.
func (a *Adapter) exBase() string {
	if a.exhentai() || !strings.Contains(a.base, "e-hentai.org") {
		return a.base
	}
	return ExBaseURL
}

// parseGalleryURL extracts the id and token of a gallery link.
func parseGalleryURL(u string) (id int64, token string, ok bool) {
	m := galleryURL.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil {
		return 0, "", false
	}
	n, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return 0, "", false
	}
	return n, m[3], true
}
