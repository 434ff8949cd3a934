package ehentai

import (
	"bytes"
	"context"
	"net/url"
	"regexp"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"golang.org/x/net/html"
)

var sha1Hex = regexp.MustCompile(`^[0-9a-fA-F]{40}$`)

// Search looks up a gallery URL or a page SHA-1. A URL is answered
// without a request.
func (a *Adapter) Search(ctx context.Context, query string) ([]remote.Candidate, error) {
	query = strings.TrimSpace(query)
	if _, _, ok := parseGalleryURL(query); ok {
		return []remote.Candidate{{URL: canonicalURL(query)}}, nil
	}
	if !sha1Hex.MatchString(query) {
		return nil, remote.WrapError("search", Name, "",
			errors.Validation("search needs a gallery URL or a SHA-1 page digest"))
	}
	if a.exhentai() && a.client.Cookie(CookieMemberID) == "" {
		return nil, remote.WrapError("search", Name, "", errors.ErrAuthRequired)
	}

	q := url.Values{}
	q.Set("f_shash", strings.ToLower(query))
	q.Set("fs_similar", "1")
	q.Set("fs_exp", "1")
	searchURL := a.base + "/?" + q.Encode()

	body, err := a.client.Get(ctx, searchURL)
	if err != nil {
		return nil, remote.WrapError("search", Name, searchURL, err)
	}
	hits, err := parseSearchPage(body)
	if err != nil {
		return nil, remote.WrapError("search", Name, searchURL, err)
	}
	a.logger.Debug("hash search", "source", Name, "hash", query, "hits", len(hits))
	return hits, nil
}

// parseSearchPage extracts gallery links from a result page, in page order
// and without repeats. Ban notices and empty bodies are errors.
func parseSearchPage(body []byte) ([]remote.Candidate, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, errors.ErrAuthRequired
	}
	if bytes.Contains(trimmed, []byte("temporarily banned")) {
		return nil, errors.Wrap(errors.ErrRateLimited, errors.CodeRateLimited, "ip temporarily banned")
	}

	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, remote.Parsef("parse search page: %v", err)
	}

	var hits []remote.Candidate
	seen := make(map[string]int)
	findAll(doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || n.Data != "a" {
			return false
		}
		href := getAttr(n, "href")
		if _, _, ok := parseGalleryURL(href); !ok {
			return false
		}
		hit := remote.Candidate{
			URL:   canonicalURL(href),
			Title: findText(n, hasClass("glink")),
			Thumb: findAttr(n, isElement("img"), "src"),
		}
		// Layouts link each gallery from both its thumbnail and its title.
		if i, ok := seen[hit.URL]; ok {
			if hits[i].Title == "" {
				hits[i].Title = hit.Title
			}
			if hits[i].Thumb == "" {
				hits[i].Thumb = hit.Thumb
			}
			return true
		}
		seen[hit.URL] = len(hits)
		hits = append(hits, hit)
		return true
	})
	return hits, nil
}

// canonicalURL rewrites a gallery link as https://host/g/id/token/.
func canonicalURL(u string) string {
	m := galleryURL.FindStringSubmatch(strings.TrimSpace(u))
	if m == nil {
		return u
	}
	return "https://" + m[1] + "/g/" + m[2] + "/" + m[3] + "/"
}
