package backend

import (
	"fmt"
	"strconv"
	"strings"
)

// MilestoneStatus moves strictly forward:
// pending -> in-progress -> submitted -> completed.
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in-progress"
	MilestoneStatusSubmitted  MilestoneStatus = "submitted"
	MilestoneStatusCompleted  MilestoneStatus = "completed"
)

// Known reports whether s is one of the four defined statuses.
func (s MilestoneStatus) Known() bool {
	switch s {
	case MilestoneStatusPending, MilestoneStatusInProgress, MilestoneStatusSubmitted, MilestoneStatusCompleted:
		return true
	}
	return false
}

// Submittable reports whether a contractor may submit the milestone for
// verification. Only work in progress can be submitted.
func (s MilestoneStatus) Submittable() bool {
	return s == MilestoneStatusInProgress
}

type Milestone struct {
	ID      int64           `json:"id"`
	Name    string          `json:"name"`
	Status  MilestoneStatus `json:"status"`
	Amount  Money           `json:"amount"`
	DueDate string          `json:"dueDate"`
}

// Project as returned by the contractor and government listings.
// Milestones are kept in display order.
type Project struct {
	ID                  int64       `json:"id"`
	Name                string      `json:"name"`
	Description         string      `json:"description,omitempty"`
	Budget              Money       `json:"budget"`
	Contractor          string      `json:"contractor,omitempty"`
	Status              string      `json:"status"`
	CompletedMilestones int         `json:"completedMilestones"`
	TotalMilestones     int         `json:"totalMilestones"`
	FundsReleased       Money       `json:"fundsReleased"`
	StartDate           string      `json:"startDate,omitempty"`
	ExpectedCompletion  string      `json:"expectedCompletion,omitempty"`
	Milestones          []Milestone `json:"milestones,omitempty"`
}

// Validate checks the progress counters the backend promises.
func (p Project) Validate() error {
	if p.TotalMilestones < 0 {
		return fmt.Errorf("project %d: negative milestone total %d", p.ID, p.TotalMilestones)
	}
	if p.CompletedMilestones < 0 || p.CompletedMilestones > p.TotalMilestones {
		return fmt.Errorf("project %d: completed milestones %d outside 0..%d", p.ID, p.CompletedMilestones, p.TotalMilestones)
	}
	return nil
}

// Progress returns the counters clamped so 0 <= completed <= total.
func (p Project) Progress() (completed, total int) {
	total = max(p.TotalMilestones, 0)
	completed = min(max(p.CompletedMilestones, 0), total)
	return completed, total
}

// AllocatedBudget sums milestone amounts. It should approach Budget but the
// dashboard does not enforce that.
func (p Project) AllocatedBudget() Money {
	var sum Money
	for _, m := range p.Milestones {
		sum += m.Amount
	}
	return sum
}

// FindMilestone looks a milestone up by id.
func (p Project) FindMilestone(id int64) (Milestone, bool) {
	for _, m := range p.Milestones {
		if m.ID == id {
			return m, true
		}
	}
	return Milestone{}, false
}

// Transaction is a read-only public ledger entry.
type Transaction struct {
	Date      string `json:"date"`
	Amount    Money  `json:"amount"`
	Type      string `json:"type"`
	Milestone string `json:"milestone"`
}

type PublicProject struct {
	Project
	Transactions []Transaction `json:"transactions"`
}

type ContractorStats struct {
	TotalEarned    Money `json:"totalEarned"`
	PendingAmount  Money `json:"pendingAmount"`
	ActiveProjects int   `json:"activeProjects"`
}

type GovernmentStats struct {
	TotalBudget         Money `json:"totalBudget"`
	ActiveProjects      int   `json:"activeProjects"`
	VerifiedContractors int   `json:"verifiedContractors"`
	FundsReleased       Money `json:"fundsReleased"`
}

type PublicStats struct {
	TotalBudget       Money   `json:"totalBudget"`
	FundsReleased     Money   `json:"fundsReleased"`
	ActiveProjects    int     `json:"activeProjects"`
	TransparencyScore float64 `json:"transparencyScore"`
}

// MilestoneDraft is one milestone row of a create-project request.
type MilestoneDraft struct {
	Name    string `json:"name"`
	Amount  Money  `json:"amount"`
	DueDate string `json:"dueDate"`
}

type CreateProjectRequest struct {
	Name              string           `json:"name"`
	Budget            Money            `json:"budget"`
	Description       string           `json:"description"`
	ContractorAddress string           `json:"contractorAddress"`
	Milestones        []MilestoneDraft `json:"milestones"`
}

// Validate rejects requests the backend would refuse anyway.
func (r CreateProjectRequest) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if r.Budget <= 0 {
		return fmt.Errorf("budget must be positive")
	}
	if strings.TrimSpace(r.ContractorAddress) == "" {
		return fmt.Errorf("contractor address is required")
	}
	for i, m := range r.Milestones {
		if strings.TrimSpace(m.Name) == "" {
			return fmt.Errorf("milestone %d: name is required", i+1)
		}
		if m.Amount <= 0 {
			return fmt.Errorf("milestone %d: amount must be positive", i+1)
		}
	}
	return nil
}

// verifyRequest omits notes entirely when none were given.
type verifyRequest struct {
	Approved bool    `json:"approved"`
	Notes    *string `json:"notes,omitempty"`
}

// PendingVerification is an untyped record from the auditor queue.
type PendingVerification map[string]any

// String returns a field rendered as text, or "" when absent.
func (v PendingVerification) String(key string) string {
	switch val := v[key].(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return fmt.Sprint(val)
	}
}

// Int64 returns a numeric field, accepting numbers and numeric strings.
func (v PendingVerification) Int64(key string) (int64, bool) {
	switch val := v[key].(type) {
	case float64:
		return int64(val), true
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		return n, err == nil
	}
	return 0, false
}

// MilestoneID finds the milestone identifier under the spellings the queue uses.
func (v PendingVerification) MilestoneID() (int64, bool) {
	for _, key := range []string{"milestoneId", "milestone_id", "id"} {
		if id, ok := v.Int64(key); ok {
			return id, true
		}
	}
	return 0, false
}
