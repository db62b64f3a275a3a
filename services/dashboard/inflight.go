package dashboard

import (
	"errors"
	"fmt"
	"sync"
)

// ErrSubmissionInFlight rejects a second write for a milestone that already
// has one running.
var ErrSubmissionInFlight = errors.New("a submission for this milestone is already in progress")

// MilestoneRef addresses one milestone of one project.
type MilestoneRef struct {
	ProjectID   int64
	MilestoneID int64
}

func (r MilestoneRef) String() string {
	return fmt.Sprintf("%d/%d", r.ProjectID, r.MilestoneID)
}

// InFlight tracks which milestones have a write running. Writes for
// different milestones run concurrently; a milestone allows one at a time.
type InFlight struct {
	mu       sync.Mutex
	busy     map[MilestoneRef]struct{}
	observer func(ref MilestoneRef, busy bool)
}

// NewInFlight creates a tracker. observer, when set, is called on every
// busy/idle transition.
func NewInFlight(observer func(ref MilestoneRef, busy bool)) *InFlight {
	return &InFlight{busy: make(map[MilestoneRef]struct{}), observer: observer}
}

// Begin marks ref busy. It returns false if ref already was.
func (f *InFlight) Begin(ref MilestoneRef) bool {
	f.mu.Lock()
	if _, ok := f.busy[ref]; ok {
		f.mu.Unlock()
		return false
	}
	f.busy[ref] = struct{}{}
	f.mu.Unlock()

	if f.observer != nil {
		f.observer(ref, true)
	}
	return true
}

// End marks ref idle. Ending an idle ref does nothing.
func (f *InFlight) End(ref MilestoneRef) {
	f.mu.Lock()
	if _, ok := f.busy[ref]; !ok {
		f.mu.Unlock()
		return
	}
	delete(f.busy, ref)
	f.mu.Unlock()

	if f.observer != nil {
		f.observer(ref, false)
	}
}

func (f *InFlight) Busy(ref MilestoneRef) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.busy[ref]
	return ok
}
