package dashboard

import (
	"strings"

	"milestone_dashboard/services/backend"
)

// Tone is the colour family of a badge.
type Tone string

const (
	ToneSuccess Tone = "success"
	ToneWarning Tone = "warning"
	ToneAccent  Tone = "crypto"
	ToneNeutral Tone = "secondary"
)

// Icon names follow the lucide set.
type Icon string

const (
	IconCheck  Icon = "circle-check"
	IconClock  Icon = "clock"
	IconAlert  Icon = "circle-alert"
	IconUpload Icon = "upload"
	IconCamera Icon = "camera"
	IconFile   Icon = "file-text"
)

// StatusView is everything a milestone row needs to render its status.
type StatusView struct {
	Label        string
	Tone         Tone
	Icon         Icon
	ShowSubmit   bool
	ShowEvidence bool
}

// BadgeClass returns the css classes for the badge.
func (v StatusView) BadgeClass() string {
	return "bg-" + string(v.Tone) + " text-" + string(v.Tone) + "-foreground"
}

// PresentStatus maps every status string, known or not, to a view.
func PresentStatus(status backend.MilestoneStatus) StatusView {
	view := StatusView{Label: strings.Replace(string(status), "-", " ", 1)}
	switch status {
	case backend.MilestoneStatusCompleted:
		view.Tone, view.Icon = ToneSuccess, IconCheck
	case backend.MilestoneStatusSubmitted:
		view.Tone, view.Icon = ToneWarning, IconClock
	case backend.MilestoneStatusInProgress:
		view.Tone, view.Icon = ToneAccent, IconAlert
		view.ShowSubmit = true
		view.ShowEvidence = true
	default:
		view.Tone, view.Icon = ToneNeutral, IconClock
	}
	return view
}

// ProgressPercent is completed/total as a whole percentage, 0 when the
// project has no milestones.
func ProgressPercent(p backend.Project) int {
	completed, total := p.Progress()
	if total == 0 {
		return 0
	}
	return completed * 100 / total
}
