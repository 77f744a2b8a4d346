package repository

import "time"

// ── Domain types for approval workflows ──────────────────────────────────────

// Status is the closed set of workflow and step statuses.
type Status string

const (
	StatusDraft            Status = "DRAFT"
	StatusPending          Status = "PENDING" // step default, never workflow-wide
	StatusInProgress       Status = "IN_PROGRESS"
	StatusApproved         Status = "APPROVED"
	StatusRejected         Status = "REJECTED"
	StatusChangesRequested Status = "CHANGES_REQUESTED"
	StatusCancelled        Status = "CANCELLED"
)

// IsTerminal reports whether no further transition is permitted.
func (s Status) IsTerminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusInProgress, StatusApproved,
		StatusRejected, StatusChangesRequested, StatusCancelled:
		return true
	}
	return false
}

// Action is an approval decision taken on the current step. APPROVE doubles
// as the audit tag for submission and REJECT for cancellation, both at level
// 0 / current level, matching the audit vocabulary callers already consume.
type Action string

const (
	ActionApprove        Action = "APPROVE"
	ActionReject         Action = "REJECT"
	ActionRequestChanges Action = "REQUEST_CHANGES"
)

// Valid reports whether a is one of the known action values.
func (a Action) Valid() bool {
	switch a {
	case ActionApprove, ActionReject, ActionRequestChanges:
		return true
	}
	return false
}

// User is a directory entry referenced as workflow creator or step approver.
// The user directory itself is owned by the identity service; this service
// only reads.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"full_name"`
	Active   bool   `json:"active"`
}

// Workflow is a multi-level sequential approval workflow. CurrentLevel is 0
// until submission and points at the active step (1-based) while the
// workflow is IN_PROGRESS.
type Workflow struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description,omitempty"`
	Status       Status    `json:"status"`
	CreatedByID  string    `json:"created_by_id"`
	CurrentLevel int       `json:"current_level"`
	TotalLevels  int       `json:"total_levels"`
	Metadata     *string   `json:"metadata,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Steps is populated by the service when returning a full workflow,
	// ordered by level ascending. Not scanned by workflow queries.
	Steps []*ApprovalStep `json:"steps,omitempty"`
}

// ApprovalStep is one level of a workflow's approval chain. Steps are
// created in bulk at workflow creation and cascade-deleted with it.
type ApprovalStep struct {
	ID         string     `json:"id"`
	WorkflowID string     `json:"workflow_id"`
	ApproverID string     `json:"approver_id"`
	Level      int        `json:"level"`
	StepName   string     `json:"step_name"`
	Status     Status     `json:"status"`
	Comments   *string    `json:"comments,omitempty"`
	ActedAt    *time.Time `json:"acted_at,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// ApprovalHistory is one immutable record in a workflow's audit trail,
// appended on every state transition. Level is the level in effect at the
// time of the action; 0 for submission.
type ApprovalHistory struct {
	ID         string    `json:"id"`
	WorkflowID string    `json:"workflow_id"`
	ActorID    string    `json:"actor_id"`
	Action     Action    `json:"action"`
	Level      int       `json:"level"`
	Comments   *string   `json:"comments,omitempty"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	CreatedAt  time.Time `json:"created_at"`
}
