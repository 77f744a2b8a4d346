package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/flowdeck/be-approval-workflows/internal/database"
	"github.com/flowdeck/be-approval-workflows/internal/errors"
)

// ApprovalStepsRepository handles reads and updates on individual approval
// steps. Step creation is handled by WorkflowRepository.Create
// (transactionally); steps are never deleted on their own.
type ApprovalStepsRepository struct {
	db *database.DB
}

// NewApprovalStepsRepository creates a new ApprovalStepsRepository.
func NewApprovalStepsRepository(db *database.DB) *ApprovalStepsRepository {
	return &ApprovalStepsRepository{db: db}
}

const stepColumns = `
	id, workflow_id, approver_id, level, step_name,
	status, comments, acted_at, created_at, updated_at
`

// GetByWorkflowID returns all steps for a workflow ordered by level.
func (r *ApprovalStepsRepository) GetByWorkflowID(ctx context.Context, workflowID string) ([]*ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps
		WHERE workflow_id = $1
		ORDER BY level ASC
	`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approval steps")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// GetByLevel returns the step at the given level within a workflow.
func (r *ApprovalStepsRepository) GetByLevel(ctx context.Context, workflowID string, level int) (*ApprovalStep, error) {
	query := `
		SELECT ` + stepColumns + `
		FROM approval_steps
		WHERE workflow_id = $1 AND level = $2
	`

	step, err := r.scanStep(r.db.QueryRow(ctx, query, workflowID, level))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("approval_step", workflowID)
	}
	return step, err
}

// RecordAction stores the outcome of an approval action on a step: its new
// status, the approver's comments and the action timestamp.
func (r *ApprovalStepsRepository) RecordAction(ctx context.Context, id string, status Status, comments *string) error {
	query := `
		UPDATE approval_steps
		SET status     = $2::workflow_status,
		    comments   = $3,
		    acted_at   = NOW(),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status, comments).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("approval_step", id)
	}
	return err
}

// ResetForResubmit returns every step of a workflow to PENDING with comments
// and acted_at cleared, so a resubmitted workflow starts a clean cycle.
func (r *ApprovalStepsRepository) ResetForResubmit(ctx context.Context, workflowID string) error {
	query := `
		UPDATE approval_steps
		SET status     = 'PENDING'::workflow_status,
		    comments   = NULL,
		    acted_at   = NULL,
		    updated_at = NOW()
		WHERE workflow_id = $1
	`

	return r.db.Exec(ctx, query, workflowID)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type stepScanner interface {
	Scan(dest ...any) error
}

func (r *ApprovalStepsRepository) scanStep(row stepScanner) (*ApprovalStep, error) {
	s := &ApprovalStep{}
	err := row.Scan(
		&s.ID,
		&s.WorkflowID,
		&s.ApproverID,
		&s.Level,
		&s.StepName,
		&s.Status,
		&s.Comments,
		&s.ActedAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (r *ApprovalStepsRepository) scanRows(rows pgx.Rows) ([]*ApprovalStep, error) {
	var steps []*ApprovalStep
	for rows.Next() {
		step, err := r.scanStep(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan approval step")
		}
		steps = append(steps, step)
	}
	return steps, nil
}
