package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProgressTracker_Counters(t *testing.T) {
	var snapshots []Progress
	p := NewProgressTracker(func(pr Progress) { snapshots = append(snapshots, pr) })

	p.SetPhase(PhaseIngesting)
	p.SetTotal(2)
	p.GalleryAdded()
	p.Increment("/in/a")
	p.GallerySkipped()
	p.AddError(ScanError{Path: "/in/b", Error: errors.New("boom"), Phase: PhaseIngesting})
	p.Increment("/in/b")

	got := p.Get()
	assert.Equal(t, PhaseIngesting, got.Phase)
	assert.Equal(t, 2, got.Current)
	assert.Equal(t, 2, got.Total)
	assert.Equal(t, "/in/b", got.CurrentItem)
	assert.Equal(t, 1, got.Created)
	assert.Equal(t, 1, got.Skipped)
	require.Len(t, got.Errors, 1)
	assert.False(t, got.Errors[0].Time.IsZero())

	assert.Len(t, snapshots, 7)
	assert.Equal(t, 1, snapshots[2].Created)
	assert.Zero(t, snapshots[2].Current)
}

func TestProgressTracker_PhaseKeepsGalleryCounters(t *testing.T) {
	p := NewProgressTracker(nil)
	assert.Equal(t, PhaseDiscovering, p.Get().Phase)

	p.SetPhase(PhaseIngesting)
	p.SetTotal(1)
	p.Increment("x")
	p.GalleryAdded()
	p.SetPhase(PhaseComplete)

	got := p.Get()
	assert.Zero(t, got.Current)
	assert.Zero(t, got.Total)
	assert.Equal(t, 1, got.Created)
}

func TestProgressTracker_SnapshotsDoNotShareErrors(t *testing.T) {
	p := NewProgressTracker(nil)
	p.AddError(ScanError{Path: "a"})

	first := p.Get()
	p.AddError(ScanError{Path: "b"})

	assert.Len(t, first.Errors, 1)
	assert.Len(t, p.Get().Errors, 2)
}
