package query

import (
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// split tokenizes the query into terms, expanding ns:[a, b] groups.
func split(s string) ([]Term, error) {
	l := &lexer{src: []rune(s)}
	var terms []Term
	for {
		l.skipSeparators()
		if l.eof() {
			return terms, nil
		}
		got, err := l.term()
		if err != nil {
			return nil, err
		}
		terms = append(terms, got...)
	}
}

type lexer struct {
	src []rune
	pos int
}

func (l *lexer) eof() bool  { return l.pos >= len(l.src) }
func (l *lexer) peek() rune { return l.src[l.pos] }

func (l *lexer) skipSeparators() {
	for !l.eof() && isSeparator(l.peek()) {
		l.pos++
	}
}

func isSeparator(r rune) bool {
	return r == ' ' || r == ',' || r == '\t' || r == '\n'
}

func (l *lexer) term() ([]Term, error) {
	negate := false
	if l.peek() == '-' {
		negate = true
		l.pos++
		if l.eof() || isSeparator(l.peek()) {
			return nil, errors.Formatf("query: dangling '-' at offset %d", l.pos-1)
		}
	}

	first, quoted, err := l.atom(true)
	if err != nil {
		return nil, err
	}

	if quoted || l.eof() || l.peek() != ':' {
		if first == "" {
			return nil, nil
		}
		return []Term{{Value: first, Negate: negate}}, nil
	}

	l.pos++ // ':'
	ns := first
	if !l.eof() && l.peek() == '[' {
		values, err := l.group()
		if err != nil {
			return nil, err
		}
		out := make([]Term, 0, len(values))
		for _, v := range values {
			out = append(out, Term{Namespace: ns, Value: v, Negate: negate})
		}
		return out, nil
	}

	value, _, err := l.atom(false)
	if err != nil || value == "" {
		return nil, err
	}
	return []Term{{Namespace: ns, Value: value, Negate: negate}}, nil
}

func (l *lexer) group() ([]string, error) {
	start := l.pos
	l.pos++ // '['
	var values []string
	for {
		for !l.eof() && (isSeparator(l.peek())) {
			l.pos++
		}
		if l.eof() {
			return nil, errors.Formatf("query: unclosed '[' at offset %d", start)
		}
		if l.peek() == ']' {
			l.pos++
			return values, nil
		}
		v, _, err := l.groupAtom()
		if err != nil {
			return nil, err
		}
		if v != "" {
			values = append(values, v)
		}
	}
}

// groupAtom reads one element of a bracket group. Spaces are allowed
// inside unquoted elements; commas separate them.
func (l *lexer) groupAtom() (string, bool, error) {
	if l.peek() == '"' {
		return l.quoted()
	}
	start := l.pos
	for !l.eof() && l.peek() != ',' && l.peek() != ']' {
		l.pos++
	}
	return strings.TrimSpace(string(l.src[start:l.pos])), false, nil
}

func (l *lexer) atom(stopAtColon bool) (string, bool, error) {
	if l.eof() {
		return "", false, nil
	}
	if l.peek() == '"' {
		return l.quoted()
	}
	start := l.pos
	for !l.eof() {
		r := l.peek()
		if isSeparator(r) || (stopAtColon && r == ':') {
			break
		}
		l.pos++
	}
	return string(l.src[start:l.pos]), false, nil
}

func (l *lexer) quoted() (string, bool, error) {
	start := l.pos
	l.pos++
	var b strings.Builder
	for !l.eof() {
		r := l.peek()
		l.pos++
		switch r {
		case '\\':
			if l.eof() {
				return "", true, errors.Formatf("query: dangling escape at offset %d", l.pos-1)
			}
			b.WriteRune(l.peek())
			l.pos++
		case '"':
			return b.String(), true, nil
		default:
			b.WriteRune(r)
		}
	}
	return "", true, errors.Formatf("query: unterminated quote at offset %d", start)
}
