package scanner

import (
	"sync"
	"time"
)

// ProgressTracker keeps the running counters of one scan and hands a
// snapshot to the callback after every change. The callback runs under the
// tracker's lock so snapshots arrive in order; it must not call back into
// the tracker.
type ProgressTracker struct {
	mu       sync.Mutex
	callback func(Progress)
	progress Progress
}

// NewProgressTracker creates a tracker in the discovering phase. A nil
// callback only keeps counters.
func NewProgressTracker(callback func(Progress)) *ProgressTracker {
	return &ProgressTracker{
		callback: callback,
		progress: Progress{Phase: PhaseDiscovering},
	}
}

// SetPhase moves to phase and resets the candidate counters. Gallery
// counters and errors carry over.
func (p *ProgressTracker) SetPhase(phase ScanPhase) {
	p.update(func(pr *Progress) {
		pr.Phase = phase
		pr.Current, pr.Total = 0, 0
	})
}

// SetTotal sets how many candidates the current phase will visit.
func (p *ProgressTracker) SetTotal(total int) {
	p.update(func(pr *Progress) { pr.Total = total })
}

// Increment marks candidate as visited.
func (p *ProgressTracker) Increment(candidate string) {
	p.update(func(pr *Progress) {
		pr.Current++
		pr.CurrentItem = candidate
	})
}

// GalleryAdded counts one gallery written to the store.
func (p *ProgressTracker) GalleryAdded() {
	p.update(func(pr *Progress) { pr.Created++ })
}

// GallerySkipped counts one candidate that produced no gallery.
func (p *ProgressTracker) GallerySkipped() {
	p.update(func(pr *Progress) { pr.Skipped++ })
}

// AddError records a per-candidate failure. The skip itself is counted
// separately by GallerySkipped.
func (p *ProgressTracker) AddError(err ScanError) {
	if err.Time.IsZero() {
		err.Time = time.Now()
	}
	p.update(func(pr *Progress) { pr.Errors = append(pr.Errors, err) })
}

// Get returns the current snapshot.
func (p *ProgressTracker) Get() Progress {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *ProgressTracker) update(fn func(*Progress)) {
	p.mu.Lock()
	defer p.mu.Unlock()

	fn(&p.progress)
	if p.callback != nil {
		p.callback(p.snapshot())
	}
}

func (p *ProgressTracker) snapshot() Progress {
	out := p.progress
	out.Errors = append([]ScanError(nil), p.progress.Errors...)
	return out
}
