package dashboard

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestInFlight(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []bool
	)
	f := NewInFlight(func(ref MilestoneRef, busy bool) {
		mu.Lock()
		transitions = append(transitions, busy)
		mu.Unlock()
	})
	ref := MilestoneRef{ProjectID: 3, MilestoneID: 7}
	other := MilestoneRef{ProjectID: 3, MilestoneID: 8}

	assert.True(t, f.Begin(ref))
	assert.True(t, f.Busy(ref))
	assert.False(t, f.Begin(ref), "same milestone is exclusive")
	assert.True(t, f.Begin(other), "other milestones proceed")

	f.End(ref)
	f.End(ref)
	assert.False(t, f.Busy(ref))
	assert.True(t, f.Busy(other))

	assert.Equal(t, []bool{true, true, false}, transitions)
	assert.Equal(t, "3/7", ref.String())
}
