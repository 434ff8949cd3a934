package tags

import (
	"strings"

	"github.com/listenupapp/doujinshelf/internal/errors"
)

// specialChars force a tag to be quoted in the canonical form.
const specialChars = `,[]:"\`

// Encode renders the canonical text form.
func (t Tags) Encode() string {
	var parts []string
	for _, ns := range t.Namespaces() {
		values := t[ns]
		quoted := make([]string, len(values))
		for i, v := range values {
			quoted[i] = quote(v)
		}
		switch {
		case ns == Default:
			parts = append(parts, quoted...)
		case len(quoted) == 1:
			parts = append(parts, quote(ns)+":"+quoted[0])
		default:
			parts = append(parts, quote(ns)+":["+strings.Join(quoted, ", ")+"]")
		}
	}
	return strings.Join(parts, ", ")
}

// String returns the canonical text form.
func (t Tags) String() string {
	return t.Encode()
}

func quote(s string) string {
	if !strings.ContainsAny(s, specialChars) {
		return s
	}
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		if r == '"' || r == '\\' {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	b.WriteByte('"')
	return b.String()
}

// Parse reads the canonical text form. It also accepts quoted tags,
// bracket groups without a namespace, and nested bracket groups, which are
// flattened into the enclosing namespace.
func Parse(s string) (Tags, error) {
	p := &parser{src: []rune(s)}
	t := New()
	for {
		p.skipSpace()
		if p.eof() {
			return t, nil
		}
		switch p.peek() {
		case ',':
			p.pos++
		case ']':
			return nil, errors.Formatf("tags: unbalanced ']' at offset %d", p.pos)
		default:
			if err := p.item(t, ""); err != nil {
				return nil, err
			}
		}
	}
}

// MustParse is Parse for literals known to be valid.
func MustParse(s string) Tags {
	t, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return t
}

type parser struct {
	src []rune
	pos int
}

func (p *parser) eof() bool  { return p.pos >= len(p.src) }
func (p *parser) peek() rune { return p.src[p.pos] }

func (p *parser) skipSpace() {
	for !p.eof() && (p.peek() == ' ' || p.peek() == '\t' || p.peek() == '\n' || p.peek() == '\r') {
		p.pos++
	}
}

// item reads one entry: an optional namespace prefix and either an atom or
// a bracket group. Inside a namespace a colon is part of the tag.
func (p *parser) item(t Tags, ns string) error {
	p.skipSpace()
	if !p.eof() && p.peek() == '[' {
		return p.group(t, ns)
	}

	text, err := p.atom(ns == "")
	if err != nil {
		return err
	}
	p.skipSpace()
	if ns == "" && !p.eof() && p.peek() == ':' {
		p.pos++
		if text == "" {
			return errors.Formatf("tags: empty namespace at offset %d", p.pos-1)
		}
		return p.item(t, text)
	}
	t.Add(ns, text)
	return nil
}

func (p *parser) group(t Tags, ns string) error {
	start := p.pos
	p.pos++ // '['
	for {
		p.skipSpace()
		if p.eof() {
			return errors.Formatf("tags: unclosed '[' at offset %d", start)
		}
		switch p.peek() {
		case ']':
			p.pos++
			return nil
		case ',':
			p.pos++
		default:
			if err := p.item(t, nsOrDefault(ns)); err != nil {
				return err
			}
		}
	}
}

func nsOrDefault(ns string) string {
	if ns == "" {
		return Default
	}
	return ns
}

// atom reads a quoted string or bare text up to the next delimiter.
func (p *parser) atom(stopAtColon bool) (string, error) {
	if !p.eof() && p.peek() == '"' {
		return p.quoted()
	}
	start := p.pos
	for !p.eof() {
		r := p.peek()
		if r == ',' || r == '[' || r == ']' || (stopAtColon && r == ':') {
			break
		}
		if r == '"' {
			return "", errors.Formatf("tags: stray quote at offset %d", p.pos)
		}
		p.pos++
	}
	return strings.TrimSpace(string(p.src[start:p.pos])), nil
}

func (p *parser) quoted() (string, error) {
	start := p.pos
	p.pos++ // opening quote
	var b strings.Builder
	for !p.eof() {
		r := p.peek()
		p.pos++
		switch r {
		case '\\':
			if p.eof() {
				return "", errors.Formatf("tags: dangling escape at offset %d", p.pos-1)
			}
			b.WriteRune(p.peek())
			p.pos++
		case '"':
			return b.String(), nil
		default:
			b.WriteRune(r)
		}
	}
	return "", errors.Formatf("tags: unterminated quote at offset %d", start)
}
