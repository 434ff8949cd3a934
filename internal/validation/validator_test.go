package validation_test

import (
	"testing"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGallery() domain.Gallery {
	return domain.Gallery{
		Title:    "Test",
		Path:     "/lib/test",
		Rating:   3,
		Chapters: []domain.Chapter{{Number: 0, Path: "/lib/test", Pages: 12}},
	}
}

func TestValidator_ValidateSuccess(t *testing.T) {
	v := validation.New()
	g := validGallery()
	assert.NoError(t, v.Validate(g))
	assert.NoError(t, v.Validate(domain.GalleryList{Name: "Favs", Type: domain.ListAuto}))
}

func TestValidator_ValidateErrors(t *testing.T) {
	v := validation.New()

	tests := []struct {
		name       string
		mutate     func(*domain.Gallery)
		wantErrMsg string
	}{
		{"missing title", func(g *domain.Gallery) { g.Title = "" }, "title"},
		{"rating too high", func(g *domain.Gallery) { g.Rating = 6 }, "rating"},
		{"negative times read", func(g *domain.Gallery) { g.TimesRead = -1 }, "times_read"},
		{"no chapters", func(g *domain.Gallery) { g.Chapters = nil }, "chapters"},
		{"chapter without path", func(g *domain.Gallery) { g.Chapters[0].Path = "" }, "chapters[0].path"},
		{"bad link", func(g *domain.Gallery) { g.Link = "not a url" }, "link"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := validGallery()
			tt.mutate(&g)

			err := v.Validate(g)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrValidation))
			assert.Equal(t, errors.KindFormat, errors.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantErrMsg)
		})
	}
}

func TestValidator_JSONFieldNames(t *testing.T) {
	v := validation.New()
	g := validGallery()
	g.TimesRead = -2

	err := v.Validate(g)
	require.Error(t, err)

	// Should use JSON tag name, not struct field name.
	assert.Contains(t, err.Error(), "times_read")
	assert.NotContains(t, err.Error(), "TimesRead")

	var derr *errors.Error
	require.True(t, errors.As(err, &derr))
	details, ok := derr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "times_read")
}
