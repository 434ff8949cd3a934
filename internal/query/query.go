// Package query implements the gallery search language used by the filter
// box and by auto lists.
//
// A query is a list of terms separated by spaces or commas. Every term must
// match for a gallery to match. Terms take these forms:
//
//	word              any field or tag contains word
//	"two words"       quoted atom
//	ns:tag            tag in namespace ns, or a field (title, artist, ...)
//	ns:[a, b]         shorthand for ns:a ns:b
//	-term             the term must not match
package query

import (
	"regexp"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/tags"
	"golang.org/x/text/cases"
)

// Options control how atoms are compared.
type Options struct {
	// Case makes comparisons case-sensitive.
	Case bool
	// Strict requires whole tags and whole words instead of substrings.
	Strict bool
	// Regex treats atoms as regular expressions.
	Regex bool
}

// Term is one parsed search term.
type Term struct {
	Namespace string
	Value     string
	Negate    bool
}

// Query is a compiled search.
type Query struct {
	Terms   []Term
	opts    Options
	matches []func(string) bool
}

// fields maps namespace names to gallery attributes.
var fields = map[string]func(*domain.Gallery) string{
	"title":    func(g *domain.Gallery) string { return g.Title },
	"artist":   func(g *domain.Gallery) string { return g.Artist },
	"language": func(g *domain.Gallery) string { return g.Language },
	"lang":     func(g *domain.Gallery) string { return g.Language },
	"type":     func(g *domain.Gallery) string { return g.Type },
	"status":   func(g *domain.Gallery) string { return g.Status },
	"link":     func(g *domain.Gallery) string { return g.Link },
	"url":      func(g *domain.Gallery) string { return g.Link },
	"path":     func(g *domain.Gallery) string { return g.Path },
	"info":     func(g *domain.Gallery) string { return g.Info },
}

// unscoped lists the fields an unqualified term is checked against.
var unscoped = []string{"title", "artist", "language", "type", "status", "link", "info"}

// Parse compiles a query string.
func Parse(s string, opts Options) (*Query, error) {
	terms, err := split(s)
	if err != nil {
		return nil, err
	}
	q := &Query{Terms: terms, opts: opts, matches: make([]func(string) bool, len(terms))}
	for i, term := range terms {
		m, err := compile(term.Value, opts)
		if err != nil {
			return nil, err
		}
		q.matches[i] = m
	}
	return q, nil
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string, opts Options) *Query {
	q, err := Parse(s, opts)
	if err != nil {
		panic(err)
	}
	return q
}

// Empty reports whether the query has no terms. An empty query matches
// everything.
func (q *Query) Empty() bool {
	return len(q.Terms) == 0
}

// Match reports whether g satisfies every term.
func (q *Query) Match(g *domain.Gallery) bool {
	for i, term := range q.Terms {
		if q.matchTerm(g, term, q.matches[i]) == term.Negate {
			return false
		}
	}
	return true
}

// Filter returns the galleries that match.
func (q *Query) Filter(galleries []*domain.Gallery) []*domain.Gallery {
	var out []*domain.Gallery
	for _, g := range galleries {
		if q.Match(g) {
			out = append(out, g)
		}
	}
	return out
}

func (q *Query) matchTerm(g *domain.Gallery, term Term, match func(string) bool) bool {
	if term.Namespace == "" {
		for _, name := range unscoped {
			if match(fields[name](g)) {
				return true
			}
		}
		for _, values := range g.Tags {
			for _, v := range values {
				if match(v) {
					return true
				}
			}
		}
		return false
	}

	if field, ok := fields[strings.ToLower(term.Namespace)]; ok {
		return match(field(g))
	}

	ns := tags.NormalizeNamespace(term.Namespace)
	for _, v := range g.Tags[ns] {
		if match(v) {
			return true
		}
	}
	return false
}

// compile builds the comparison function for one atom.
func compile(atom string, opts Options) (func(string) bool, error) {
	switch {
	case opts.Regex:
		pattern := atom
		if !opts.Case {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, errors.Wrapf(err, errors.CodeFormat, "query: invalid regex %q", atom)
		}
		if opts.Strict {
			anchored, err := regexp.Compile(`^(?:` + pattern + `)$`)
			if err != nil {
				return nil, errors.Wrapf(err, errors.CodeFormat, "query: invalid regex %q", atom)
			}
			re = anchored
		}
		return re.MatchString, nil

	case opts.Strict:
		// Whole-value equality, or a whole word inside longer text.
		pattern := `\b` + regexp.QuoteMeta(atom) + `\b`
		if !opts.Case {
			pattern = "(?i)" + pattern
		}
		re := regexp.MustCompile(pattern)
		return func(s string) bool {
			if opts.Case {
				return s == atom || re.MatchString(s)
			}
			return strings.EqualFold(s, atom) || re.MatchString(s)
		}, nil

	case opts.Case:
		return func(s string) bool { return strings.Contains(s, atom) }, nil

	default:
		folded := fold(atom)
		return func(s string) bool { return strings.Contains(fold(s), folded) }, nil
	}
}

func fold(s string) string {
	return cases.Fold().String(s)
}
