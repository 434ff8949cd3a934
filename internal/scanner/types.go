package scanner

import (
	"time"

	"github.com/listenupapp/doujinshelf/internal/domain"
)

// EventType is the kind of an ingestion event.
type EventType int

const (
	// EventCreated reports a gallery persisted to the store.
	EventCreated EventType = iota
	// EventSkipped reports a candidate that produced no gallery.
	EventSkipped
	// EventProgress reports that one top-level candidate finished.
	EventProgress
	// EventDone is always the last event of a scan.
	EventDone
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventSkipped:
		return "skipped"
	case EventProgress:
		return "progress"
	case EventDone:
		return "done"
	default:
		return "unknown"
	}
}

// Event is one item of the ingestion stream.
type Event struct {
	Type EventType
	// Path is the candidate the event is about.
	Path string
	// Gallery is set on EventCreated.
	Gallery *domain.Gallery
	// Reason is the short skip reason on EventSkipped.
	Reason string
	// Err is the underlying failure behind a skip, if any.
	Err error
	// Current and Total are set on EventProgress.
	Current int
	Total   int
	// Result is set on EventDone.
	Result *ScanResult
}

// ScanResult summarizes one ingestion run.
type ScanResult struct {
	StartedAt   time.Time
	CompletedAt time.Time
	Created     int
	Skipped     int
	Errors      int
	GalleryIDs  []int64
	Cancelled   bool
}

// ScanPhase is the stage a scan is in.
type ScanPhase string

const (
	PhaseDiscovering ScanPhase = "discovering"
	PhaseIngesting   ScanPhase = "ingesting"
	PhaseComplete    ScanPhase = "complete"
)

// Progress is a snapshot of a running scan. Current and Total count
// top-level candidates; Created and Skipped count galleries, so one archive
// split into subfolder galleries can move them by more than one.
type Progress struct {
	Phase       ScanPhase
	Current     int
	Total       int
	CurrentItem string
	Created     int
	Skipped     int
	Errors      []ScanError
}

// ScanError is a per-candidate failure.
type ScanError struct {
	Time  time.Time
	Error error
	Path  string
	Phase ScanPhase
}

// Skip reasons shown to the user.
const (
	ReasonExists         = "already exists"
	ReasonIgnored        = "ignored"
	ReasonDestinationUse = "destination already exists"
)
