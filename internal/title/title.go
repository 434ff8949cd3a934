// Package title extracts title, artist and language from gallery folder and
// archive names such as "[Artist] Some Title [English]".
package title

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/archive"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Parsed is the result of Parse.
type Parsed struct {
	Title    string
	Artist   string
	Language string
}

var bracket = regexp.MustCompile(`\[([^\[\]]*)\]`)

// Languages is the set of names recognized inside brackets.
var Languages = map[string]bool{
	"English":              true,
	"Japanese":             true,
	"Chinese":              true,
	"Korean":               true,
	"Russian":              true,
	"French":               true,
	"German":               true,
	"Spanish":              true,
	"Italian":              true,
	"Portuguese":           true,
	"Brazilian Portuguese": true,
	"Polish":               true,
	"Dutch":                true,
	"Thai":                 true,
	"Vietnamese":           true,
	"Indonesian":           true,
	"Hungarian":            true,
	"Czech":                true,
	"Turkish":              true,
	"Arabic":               true,
	"Other":                true,
}

// Parse reads name. The first bracketed token is the artist; the first later
// token naming a known language is the language. Everything outside
// brackets is the title. defaultLanguage is used when no language is found.
func Parse(name, defaultLanguage string) Parsed {
	name = StripExtension(strings.TrimSpace(name))
	p := Parsed{Language: defaultLanguage}

	matches := bracket.FindAllStringSubmatch(name, -1)
	for i, m := range matches {
		inner := collapse(m[1])
		if i == 0 {
			p.Artist = inner
			continue
		}
		if lang := capitalize(inner); Languages[lang] {
			p.Language = lang
			break
		}
	}

	p.Title = collapse(bracket.ReplaceAllString(name, " "))
	if p.Title == "" {
		p.Title = collapse(name)
	}
	return p
}

// StripExtension removes a trailing archive extension, if any.
func StripExtension(name string) string {
	if archive.IsArchive(name) {
		return strings.TrimSuffix(name, filepath.Ext(name))
	}
	return name
}

func capitalize(s string) string {
	return cases.Title(language.Und).String(s)
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
