package ehentai

import (
	"context"
	"encoding/json"
	"html"
	"strconv"
	"strings"
	"time"

	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"github.com/listenupapp/doujinshelf/internal/title"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type gdataRequest struct {
	Method    string  `json:"method"`
	GIDList   [][]any `json:"gidlist"`
	Namespace int     `json:"namespace"`
}

type gdataResponse struct {
	GMetadata []gmetadata `json:"gmetadata"`
}

type gmetadata struct {
	GID      int64    `json:"gid"`
	Token    string   `json:"token"`
	Title    string   `json:"title"`
	TitleJpn string   `json:"title_jpn"`
	Category string   `json:"category"`
	Posted   string   `json:"posted"`
	Tags     []string `json:"tags"`
	Error    string   `json:"error"`
}

// languageMarkers are language-namespace tags that describe a release
// rather than name a language.
var languageMarkers = map[string]bool{
	"translated":   true,
	"rewrite":      true,
	"speechless":   true,
	"text cleaned": true,
}

type ref struct {
	id    int64
	token string
	url   string
}

// FetchMetadata resolves gallery URLs through gdata, batchSize at a time.
// URLs that are not gallery links, or that the API reports an error for,
// are left out of the result.
func (a *Adapter) FetchMetadata(ctx context.Context, urls []string) (map[string]*remote.Metadata, error) {
	var refs []ref
	for _, u := range urls {
		id, token, ok := parseGalleryURL(u)
		if !ok {
			a.logger.Warn("not a gallery url", "source", Name, "url", u)
			continue
		}
		refs = append(refs, ref{id: id, token: token, url: u})
	}

	out := make(map[string]*remote.Metadata, len(refs))
	for start := 0; start < len(refs); start += batchSize {
		end := min(start+batchSize, len(refs))
		if err := a.fetchBatch(ctx, refs[start:end], out); err != nil {
			return out, err
		}
	}
	return out, nil
}

func (a *Adapter) fetchBatch(ctx context.Context, batch []ref, out map[string]*remote.Metadata) error {
	req := gdataRequest{Method: "gdata", Namespace: 1}
	byKey := make(map[string]ref, len(batch))
	for _, r := range batch {
		req.GIDList = append(req.GIDList, []any{r.id, r.token})
		byKey[strconv.FormatInt(r.id, 10)+"/"+r.token] = r
	}

	body, err := a.client.PostJSON(ctx, a.api, req)
	if err != nil {
		return remote.WrapError("fetch", Name, a.api, err)
	}
	var resp gdataResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return remote.WrapError("fetch", Name, a.api, remote.Parsef("decode gdata: %v", err))
	}

	for _, gm := range resp.GMetadata {
		r, ok := byKey[strconv.FormatInt(gm.GID, 10)+"/"+gm.Token]
		if !ok {
			continue
		}
		if gm.Error != "" {
			a.logger.Debug("gdata entry failed", "source", Name, "url", r.url, "error", gm.Error)
			continue
		}
		out[r.url] = toMetadata(gm, canonicalURL(r.url))
	}
	return nil
}

func toMetadata(gm gmetadata, link string) *remote.Metadata {
	parsed := title.Parse(html.UnescapeString(gm.Title), "")
	m := &remote.Metadata{
		Title:    parsed.Title,
		Type:     gm.Category,
		Link:     link,
		Tags:     tags.New(),
	}
	if posted, err := strconv.ParseInt(gm.Posted, 10, 64); err == nil && posted > 0 {
		t := time.Unix(posted, 0).UTC()
		m.PubDate = &t
	}

	capitalize := cases.Title(language.Und)
	for _, raw := range gm.Tags {
		ns, tag, found := strings.Cut(html.UnescapeString(raw), ":")
		if !found {
			ns, tag = tags.Default, ns
		}
		switch ns {
		case "language":
			if !languageMarkers[tag] && m.Language == "" {
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
