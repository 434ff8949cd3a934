package resolver

import (
	"context"
	"fmt"

	"github.com/listenupapp/doujinshelf/internal/domain"
	"github.com/listenupapp/doujinshelf/internal/remote"
)

// Progress messages. Callers match on the leading words.
const (
	MsgCheckingURL      = "Checking URL…"
	MsgGeneratingHash   = "Generating hash"
	MsgAddingToQueue    = "Adding to queue"
	MsgApplyingMetadata = "Applying metadata"
	MsgFinished         = "Finished"
)

// Failure reasons recorded per gallery.
const (
	ReasonHashFailure = "hash failure"
	ReasonNoMatch     = "no match"
	ReasonDeleted     = "gallery was deleted"
)

func counted(msg string, k, n int) string {
	return fmt.Sprintf("%s %d/%d", msg, k, n)
}

// Item is one gallery to resolve. URL, when set, skips the hash search.
type Item struct {
	Gallery *domain.Gallery
	URL     string
}

// EventType distinguishes resolver events.
type EventType int

const (
	EventProgress EventType = iota
	EventApplied
	EventFailed
	EventFinished
)

// Event reports resolver progress. Applied events carry the updated
// gallery; the Finished event carries the report.
type Event struct {
	Type    EventType
	Message string
	Source  string
	Gallery *domain.Gallery
	Err     error
	Report  *Report
}

// Failure is one gallery the resolver could not resolve.
type Failure struct {
	Gallery *domain.Gallery
	URL     string
	Reason  string
	Err     error
}

// Report is the outcome of one Resolve call.
type Report struct {
	RunID    string
	Applied  []*domain.Gallery
	Failures []Failure
	Skipped  []*domain.Gallery
}

// Action is the user's answer to a multi-hit.
type Action int

const (
	ActionPick Action = iota
	ActionSkip
	// ActionSkipAll skips this and every remaining multi-hit.
	ActionSkipAll
)

// Choice is a Picker's answer.
type Choice struct {
	Action    Action
	Candidate remote.Candidate
}

// Picker asks the user to choose between several search hits.
type Picker interface {
	Pick(ctx context.Context, g *domain.Gallery, candidates []remote.Candidate) (Choice, error)
}

// PickerFunc adapts a function to Picker.
type PickerFunc func(ctx context.Context, g *domain.Gallery, candidates []remote.Candidate) (Choice, error)

// Pick calls f.
func (f PickerFunc) Pick(ctx context.Context, g *domain.Gallery, candidates []remote.Candidate) (Choice, error) {
	return f(ctx, g, candidates)
}

// firstPicker always takes the first hit.
type firstPicker struct{}

func (firstPicker) Pick(_ context.Context, _ *domain.Gallery, candidates []remote.Candidate) (Choice, error) {
	return Choice{Action: ActionPick, Candidate: candidates[0]}, nil
}
