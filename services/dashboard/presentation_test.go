package dashboard

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"milestone_dashboard/services/backend"
)

func TestPresentStatus(t *testing.T) {
	tests := []struct {
		status   backend.MilestoneStatus
		label    string
		tone     Tone
		icon     Icon
		submit   bool
		evidence bool
	}{
		{backend.MilestoneStatusCompleted, "completed", ToneSuccess, IconCheck, false, false},
		{backend.MilestoneStatusSubmitted, "submitted", ToneWarning, IconClock, false, false},
		{backend.MilestoneStatusInProgress, "in progress", ToneAccent, IconAlert, true, true},
		{backend.MilestoneStatusPending, "pending", ToneNeutral, IconClock, false, false},
		{"on-hold-long", "on hold-long", ToneNeutral, IconClock, false, false},
		{"", "", ToneNeutral, IconClock, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			v := PresentStatus(tt.status)
			assert.Equal(t, tt.label, v.Label)
			assert.Equal(t, tt.tone, v.Tone)
			assert.Equal(t, tt.icon, v.Icon)
			assert.Equal(t, tt.submit, v.ShowSubmit)
			assert.Equal(t, tt.evidence, v.ShowEvidence)
		})
	}
}

func TestSubmitOnlyForInProgress(t *testing.T) {
	for _, s := range []backend.MilestoneStatus{
		backend.MilestoneStatusPending,
		backend.MilestoneStatusInProgress,
		backend.MilestoneStatusSubmitted,
		backend.MilestoneStatusCompleted,
		"archived",
	} {
		assert.Equal(t, s == backend.MilestoneStatusInProgress, PresentStatus(s).ShowSubmit, string(s))
	}
}

func TestBadgeClass(t *testing.T) {
	assert.Equal(t, "bg-success text-success-foreground", PresentStatus(backend.MilestoneStatusCompleted).BadgeClass())
	assert.Equal(t, "bg-crypto text-crypto-foreground", PresentStatus(backend.MilestoneStatusInProgress).BadgeClass())
	assert.Equal(t, "bg-secondary text-secondary-foreground", PresentStatus("whatever").BadgeClass())
}

func TestProgressPercent(t *testing.T) {
	assert.Equal(t, 0, ProgressPercent(backend.Project{}))
	assert.Equal(t, 50, ProgressPercent(backend.Project{CompletedMilestones: 1, TotalMilestones: 2}))
	assert.Equal(t, 100, ProgressPercent(backend.Project{CompletedMilestones: 7, TotalMilestones: 2}))
}
