// Package chaika is the fallback metadata source backed by the
// panda.chaika.moe archive index. It needs no login.
package chaika

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/listenupapp/doujinshelf/internal/title"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Name is the adapter name.
const Name = "chaika"

// DefaultBaseURL is the public instance.
const DefaultBaseURL = "https://panda.chaika.moe"

const batchSize = 10

// pageURL matches archive and gallery pages and captures the kind and id.
var pageURL = regexp.MustCompile(`^https?://panda\.chaika\.moe/(archive|gallery)/(\d+)/?`)

var sha1Hex = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Options configures the adapter.
type Options struct {
	BaseURL string
	Client  remote.ClientOptions
}

// Adapter implements remote.Adapter.
type Adapter struct {
	base   string
	client *remote.Client
	logger *slog.Logger
}

var _ remote.Adapter = (*Adapter)(nil)

// New creates the adapter.
func New(ctx context.Context, opts Options, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	return &Adapter{
		base:   strings.TrimSuffix(opts.BaseURL, "/"),
		client: remote.NewClient(ctx, Name, opts.Client, logger),
		logger: logger,
	}
}

// Close persists the session.
func (a *Adapter) Close() error {
	return a.client.Close()
}

func (a *Adapter) Name() string            { return Name }
func (a *Adapter) Pattern() *regexp.Regexp { return pageURL }
func (a *Adapter) BatchSize() int          { return batchSize }

// Login is a no-op; the index is public.
func (a *Adapter) Login(context.Context, remote.Credentials) (remote.Session, error) {
	return a.client.Session(), nil
}

// CheckLogin always succeeds.
func (a *Adapter) CheckLogin(context.Context) (bool, error) {
	return true, nil
}

type archive struct {
	ID       int64    `json:"id"`
	Title    string   `json:"title"`
	TitleJpn string   `json:"title_jpn"`
	Category string   `json:"category"`
	Posted   int64    `json:"posted"`
	Tags     []string `json:"tags"`
}

// Search looks up a page URL or a page SHA-1.
func (a *Adapter) Search(ctx context.Context, query string) ([]remote.Candidate, error) {
	query = strings.TrimSpace(query)
	if pageURL.MatchString(query) {
		return []remote.Candidate{{URL: query}}, nil
	}
	if !sha1Hex.MatchString(query) {
		return nil, remote.WrapError("search", Name, "",
			errors.Validation("search needs an archive URL or a SHA-1 page digest"))
	}

	apiURL := a.base + "/api?" + url.Values{"sha1": {strings.ToLower(query)}}.Encode()
	body, err := a.client.Get(ctx, apiURL)
	if errors.Is(err, errors.ErrRemoteNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, remote.WrapError("search", Name, apiURL, err)
	}

	var found []archive
	if err := json.Unmarshal(body, &found); err != nil {
		return nil, remote.WrapError("search", Name, apiURL, remote.Parsef("decode search: %v", err))
	}
	hits := make([]remote.Candidate, 0, len(found))
	for _, arc := range found {
		hits = append(hits, remote.Candidate{
			URL:   DefaultBaseURL + "/archive/" + strconv.FormatInt(arc.ID, 10) + "/",
			Title: arc.Title,
		})
	}
	return hits, nil
}

// FetchMetadata asks the API about each URL in turn. Unknown URLs are left
// out; a transport failure stops the batch.
func (a *Adapter) FetchMetadata(ctx context.Context, urls []string) (map[string]*remote.Metadata, error) {
	out := make(map[string]*remote.Metadata, len(urls))
	for _, u := range urls {
		m := pageURL.FindStringSubmatch(strings.TrimSpace(u))
		if m == nil {
			a.logger.Warn("not a chaika url", "url", u)
			continue
		}
		if err := ctx.Err(); err != nil {
			return out, errors.Cancelled(err)
		}

		apiURL := a.base + "/api?" + url.Values{m[1]: {m[2]}}.Encode()
		body, err := a.client.Get(ctx, apiURL)
		if errors.Is(err, errors.ErrRemoteNotFound) {
			continue
		}
		if err != nil {
			return out, remote.WrapError("fetch", Name, u, err)
		}

		var arc archive
		if err := json.Unmarshal(body, &arc); err != nil {
			return out, remote.WrapError("fetch", Name, u, remote.Parsef("decode archive: %v", err))
		}
		out[u] = toMetadata(arc, u)
	}
	return out, nil
}

func toMetadata(arc archive, link string) *remote.Metadata {
	parsed := title.Parse(arc.Title, "")
	m := &remote.Metadata{
		Title: parsed.Title,
		Type:  arc.Category,
		Link:  link,
		Tags:  tags.New(),
	}
	if arc.Posted > 0 {
		t := time.Unix(arc.Posted, 0).UTC()
		m.PubDate = &t
	}

	capitalize := cases.Title(language.Und)
	for _, raw := range arc.Tags {
		ns, tag, found := strings.Cut(strings.ReplaceAll(raw, "_", " "), ":")
		if !found {
			ns, tag = tags.Default, ns
		}
		switch ns {
		case "language":
			if m.Language == "" && tag != "translated" {
				m.Language = capitalize.String(tag)
			}
			continue
		case "artist":
			if m.Artist == "" {
				m.Artist = capitalize.String(tag)
			}
		}
		m.Tags.Add(ns, tag)
	}
	if m.Artist == "" {
		m.Artist = parsed.Artist
	}
	if m.Language == "" {
		m.Language = parsed.Language
	}
	return m
}
