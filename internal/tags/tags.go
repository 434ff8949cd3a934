// Package tags implements the namespaced tag set attached to galleries and
// its canonical one-line text form:
//
//	tag1, tag2, Namespace:tag3, Other:[tag4, tag5]
//
// Tags without a namespace live in the default namespace and are written
// first. Tags are lowercased; namespaces are capitalized.
package tags

import (
	"encoding/json"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Default is the namespace of tags written without a prefix.
const Default = "default"

// Tags maps a namespace to its sorted, deduplicated tags.
type Tags map[string][]string

// New returns an empty tag set.
func New() Tags {
	return make(Tags)
}

// NormalizeNamespace returns the stored form of a namespace.
func NormalizeNamespace(ns string) string {
	ns = collapse(ns)
	if ns == "" || strings.EqualFold(ns, Default) {
		return Default
	}
	lower := cases.Lower(language.Und).String(ns)
	r, size := utf8.DecodeRuneInString(lower)
	return string(unicode.ToUpper(r)) + lower[size:]
}

// NormalizeTag returns the stored form of a tag.
func NormalizeTag(tag string) string {
	return cases.Lower(language.Und).String(collapse(tag))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Add inserts tags under ns, normalizing both. Empty tags are ignored.
func (t Tags) Add(ns string, tags ...string) {
	ns = NormalizeNamespace(ns)
	cur := t[ns]
	for _, tag := range tags {
		tag = NormalizeTag(tag)
		if tag == "" {
			continue
		}
		i, found := slices.BinarySearch(cur, tag)
		if !found {
			cur = slices.Insert(cur, i, tag)
		}
	}
	if len(cur) > 0 {
		t[ns] = cur
	}
}

// Has reports whether tag is present under ns.
func (t Tags) Has(ns, tag string) bool {
	_, found := slices.BinarySearch(t[NormalizeNamespace(ns)], NormalizeTag(tag))
	return found
}

// Len returns the total number of tags.
func (t Tags) Len() int {
	n := 0
	for _, v := range t {
		n += len(v)
	}
	return n
}

// Namespaces returns the namespaces in canonical order: default first, the
// rest sorted.
func (t Tags) Namespaces() []string {
	out := make([]string, 0, len(t))
	for ns, v := range t {
		if len(v) > 0 && ns != Default {
			out = append(out, ns)
		}
	}
	slices.Sort(out)
	if len(t[Default]) > 0 {
		out = slices.Insert(out, 0, Default)
	}
	return out
}

// Clone returns a deep copy. Cloning nil yields an empty set.
func (t Tags) Clone() Tags {
	c := make(Tags, len(t))
	for ns, v := range t {
		if len(v) > 0 {
			c[ns] = slices.Clone(v)
		}
	}
	return c
}

// Union returns a new set holding every tag of t and other.
func (t Tags) Union(other Tags) Tags {
	u := t.Clone()
	for ns, v := range other {
		u.Add(ns, v...)
	}
	return u
}

// Equal reports whether both sets hold the same tags.
func (t Tags) Equal(other Tags) bool {
	a, b := t.Namespaces(), other.Namespaces()
	if !slices.Equal(a, b) {
		return false
	}
	for _, ns := range a {
		if !slices.Equal(t[ns], other[ns]) {
			return false
		}
	}
	return true
}

// UnmarshalJSON accepts a namespace to tags object and normalizes it.
func (t *Tags) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := New()
	for ns, v := range raw {
		out.Add(ns, v...)
	}
	*t = out
	return nil
}
