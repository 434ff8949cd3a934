package title

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Parsed
	}{
		{"artist and language", "Gallery A [artist1] [English]", Parsed{"Gallery A", "artist1", "English"}},
		{"leading artist", "[artist2] Title.zip", Parsed{"Title", "artist2", "Japanese"}},
		{"no brackets", "Just A Title", Parsed{"Just A Title", "", "Japanese"}},
		{"language case folded", "[a] T [CHINESE]", Parsed{"T", "a", "Chinese"}},
		{"first language wins", "[a] T [Korean] [English]", Parsed{"T", "a", "Korean"}},
		{"non language brackets", "[a] T [Digital] [Decensored]", Parsed{"T", "a", "Japanese"}},
		{"multi word language", "[a] T [brazilian portuguese]", Parsed{"T", "a", "Brazilian Portuguese"}},
		{"first bracket is never language", "[English] Title", Parsed{"Title", "English", "Japanese"}},
		{"whitespace collapses", "  [a]   Two   Words  .cbz", Parsed{"Two Words", "a", "Japanese"}},
		{"only brackets", "[a] [b]", Parsed{"[a] [b]", "a", "Japanese"}},
		{"unknown extension kept", "[a] T.txt", Parsed{"T.txt", "a", "Japanese"}},
		{"uppercase extension", "[a] T.CBR", Parsed{"T", "a", "Japanese"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.in, "Japanese"))
		})
	}
}
