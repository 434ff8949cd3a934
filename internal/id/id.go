// Package id generates opaque tokens for scratch directories and other
// short-lived resources. Persisted entities use database row ids instead.
package id

import (
	"fmt"
	"strings"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// alphabet avoids characters that are awkward in file names on any platform.
const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// tokenLength gives ~103 bits of entropy with the alphabet above.
const tokenLength = 20

// Generate creates a prefixed token: prefix-xxxxxxxxxxxxxxxxxxxx.
// The token is lowercase alphanumeric so it is safe as a directory name.
func Generate(prefix string) (string, error) {
	token, err := gonanoid.Generate(alphabet, tokenLength)
	if err != nil {
		return "", fmt.Errorf("generate nanoid: %w", err)
	}
	if prefix == "" {
		return token, nil
	}
	return prefix + "-" + token, nil
}

// MustGenerate is like Generate but panics if token generation fails.
func MustGenerate(prefix string) string {
	token, err := Generate(prefix)
	if err != nil {
		panic(fmt.Sprintf("failed to generate ID: %v", err))
	}
	return token
}

// HasPrefix reports whether token was generated with prefix.
func HasPrefix(token, prefix string) bool {
	rest, ok := strings.CutPrefix(token, prefix+"-")
	return ok && len(rest) == tokenLength
}
