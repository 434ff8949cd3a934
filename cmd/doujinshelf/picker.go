package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/errors"
	"github.com/listenupapp/doujinshelf/internal/remote"
	"github.com/listenupapp/doujinshelf/internal/resolver"
)

// terminalPicker asks the user to settle a multi-hit search.
type terminalPicker struct {
	in  *bufio.Reader
	out io.Writer
}

var _ resolver.Picker = (*terminalPicker)(nil)

func newTerminalPicker(in io.Reader, out io.Writer) *terminalPicker {
	return &terminalPicker{in: bufio.NewReader(in), out: out}
}

// Pick lists the candidates and reads a choice: a number picks, s skips
// this gallery, S skips every remaining one. Invalid input asks again; end
// of input skips.
func (p *terminalPicker) Pick(ctx context.Context, g *domain.Gallery, candidates []remote.Candidate) (resolver.Choice, error) {
	fmt.Fprintf(p.out, "\n%s has %d matches:\n", galleryLabel(g), len(candidates))
	for i, c := range candidates {
		fmt.Fprintf(p.out, "  %d) %s\n     %s\n", i+1, c.Title, c.URL)
	}

	for {
		if err := ctx.Err(); err != nil {
			return resolver.Choice{}, errors.Cancelled(err)
		}
		fmt.Fprintf(p.out, "Pick 1-%d, s to skip, S to skip all: ", len(candidates))

		line, err := p.in.ReadString('\n')
		answer := strings.TrimSpace(line)
		if err != nil && answer == "" {
			if err == io.EOF {
				return resolver.Choice{Action: resolver.ActionSkip}, nil
			}
			return resolver.Choice{}, errors.Wrap(err, errors.CodeIO, "read choice")
		}

		if choice, ok := parseChoice(answer, candidates); ok {
			return choice, nil
		}
		fmt.Fprintln(p.out, "Invalid choice")
	}
}

func parseChoice(answer string, candidates []remote.Candidate) (resolver.Choice, bool) {
	switch answer {
	case "s":
		return resolver.Choice{Action: resolver.ActionSkip}, true
	case "S":
		return resolver.Choice{Action: resolver.ActionSkipAll}, true
	}
	n, err := strconv.Atoi(answer)
	if err != nil || n < 1 || n > len(candidates) {
		return resolver.Choice{}, false
	}
	return resolver.Choice{Action: resolver.ActionPick, Candidate: candidates[n-1]}, true
}
