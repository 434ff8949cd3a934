package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
)

// parseIDs converts gallery id arguments.
func parseIDs(args []string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		id, err := strconv.ParseInt(strings.TrimSpace(a), 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.Validation(fmt.Sprintf("invalid gallery id %q", a))
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// parseURLOverrides reads id=url pairs.
func parseURLOverrides(values []string) (map[int64]string, error) {
	out := make(map[int64]string, len(values))
	for _, v := range values {
		idStr, u, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(u) == "" {
			return nil, errors.Validation(fmt.Sprintf("expected id=url, got %q", v))
		}
		ids, err := parseIDs([]string{idStr})
		if err != nil {
			return nil, err
		}
		out[ids[0]] = strings.TrimSpace(u)
	}
	return out, nil
}

func galleryLabel(g *domain.Gallery) string {
	if g == nil {
		return ""
	}
	if g.Artist != "" {
		return fmt.Sprintf("#%d [%s] %s", g.ID, g.Artist, g.Title)
	}
	return fmt.Sprintf("#%d %s", g.ID, g.Title)
}

// plural formats a count with the singular or plural noun.
func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
