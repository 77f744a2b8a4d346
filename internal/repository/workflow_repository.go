package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/flowdeck/be-approval-workflows/internal/database"
	"github.com/flowdeck/be-approval-workflows/internal/errors"
)

// WorkflowRepository manages workflow instances and their steps.
// Workflow + step creation is always done together in a single transaction.
type WorkflowRepository struct {
	db *database.DB
}

// NewWorkflowRepository creates a new WorkflowRepository.
func NewWorkflowRepository(db *database.DB) *WorkflowRepository {
	return &WorkflowRepository{db: db}
}

const workflowColumns = `
	id, title, description, status, created_by_id,
	current_level, total_levels, metadata,
	created_at, updated_at
`

// Create inserts a workflow and its approval steps in one transaction.
func (r *WorkflowRepository) Create(ctx context.Context, wf *Workflow, steps []*ApprovalStep) error {
	return r.db.InTransaction(ctx, func(ctx context.Context) error {
		wfQuery := `
			INSERT INTO workflows
			    (title, description, status, created_by_id,
			     current_level, total_levels, metadata)
			VALUES ($1, $2, $3::workflow_status, $4, $5, $6, $7)
			RETURNING id, created_at, updated_at
		`

		err := r.db.QueryRow(ctx, wfQuery,
			wf.Title,
			wf.Description,
			wf.Status,
			wf.CreatedByID,
			wf.CurrentLevel,
			wf.TotalLevels,
			wf.Metadata,
		).Scan(&wf.ID, &wf.CreatedAt, &wf.UpdatedAt)
		if err != nil {
			return errors.Wrap(err, errors.ErrCodeInternal, "failed to create workflow")
		}

		stepQuery := `
			INSERT INTO approval_steps
			    (workflow_id, approver_id, level, step_name, status)
			VALUES ($1, $2, $3, $4, $5::workflow_status)
			RETURNING id, created_at, updated_at
		`

		for _, step := range steps {
			step.WorkflowID = wf.ID

			err := r.db.QueryRow(ctx, stepQuery,
				step.WorkflowID,
				step.ApproverID,
				step.Level,
				step.StepName,
				step.Status,
			).Scan(&step.ID, &step.CreatedAt, &step.UpdatedAt)
			if err != nil {
				return errors.Wrap(err, errors.ErrCodeInternal, "failed to create approval step")
			}
		}

		return nil
	})
}

// GetByID retrieves a workflow by its primary key.
func (r *WorkflowRepository) GetByID(ctx context.Context, id string) (*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1`

	wf, err := r.scanWorkflow(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow", id)
	}
	return wf, err
}

// GetByIDForUpdate retrieves a workflow and takes a row lock on it, so
// concurrent transitions against one workflow serialize. Must run inside a
// transaction.
func (r *WorkflowRepository) GetByIDForUpdate(ctx context.Context, id string) (*Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 FOR UPDATE`

	wf, err := r.scanWorkflow(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, errors.NotFound("workflow", id)
	}
	return wf, err
}

// UpdateState sets the workflow status and current level.
func (r *WorkflowRepository) UpdateState(ctx context.Context, id string, status Status, currentLevel int) error {
	query := `
		UPDATE workflows
		SET status        = $2::workflow_status,
		    current_level = $3,
		    updated_at    = NOW()
		WHERE id = $1
		RETURNING id
	`

	var returnedID string
	err := r.db.QueryRow(ctx, query, id, status, currentLevel).Scan(&returnedID)
	if err == pgx.ErrNoRows {
		return errors.NotFound("workflow", id)
	}
	return err
}

// ListByCreator returns workflows created by a user, newest first.
func (r *WorkflowRepository) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE created_by_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, creatorID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflows by creator")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListByStatus returns workflows in a given status, newest first.
func (r *WorkflowRepository) ListByStatus(ctx context.Context, status Status, limit, offset int) ([]*Workflow, error) {
	query := `
		SELECT ` + workflowColumns + `
		FROM workflows
		WHERE status = $1::workflow_status
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, status, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflows by status")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListByApprover returns workflows that have the user as approver on any
// level, newest first.
func (r *WorkflowRepository) ListByApprover(ctx context.Context, approverID string, limit, offset int) ([]*Workflow, error) {
	query := `
		SELECT DISTINCT w.id, w.title, w.description, w.status, w.created_by_id,
		       w.current_level, w.total_levels, w.metadata,
		       w.created_at, w.updated_at
		FROM workflows w
		JOIN approval_steps s ON s.workflow_id = w.id
		WHERE s.approver_id = $1
		ORDER BY w.created_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(ctx, query, approverID, limit, offset)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list workflows by approver")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ListPendingForApprover returns IN_PROGRESS workflows whose current-level
// step is assigned to the user.
func (r *WorkflowRepository) ListPendingForApprover(ctx context.Context, approverID string) ([]*Workflow, error) {
	query := `
		SELECT w.id, w.title, w.description, w.status, w.created_by_id,
		       w.current_level, w.total_levels, w.metadata,
		       w.created_at, w.updated_at
		FROM workflows w
		JOIN approval_steps s ON s.workflow_id = w.id
		WHERE s.approver_id = $1
		  AND s.level = w.current_level
		  AND w.status = 'IN_PROGRESS'::workflow_status
		ORDER BY w.updated_at ASC
	`

	rows, err := r.db.Query(ctx, query, approverID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to list pending workflows")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type workflowScanner interface {
	Scan(dest ...any) error
}

func (r *WorkflowRepository) scanWorkflow(row workflowScanner) (*Workflow, error) {
	wf := &Workflow{}
	err := row.Scan(
		&wf.ID,
		&wf.Title,
		&wf.Description,
		&wf.Status,
		&wf.CreatedByID,
		&wf.CurrentLevel,
		&wf.TotalLevels,
		&wf.Metadata,
		&wf.CreatedAt,
		&wf.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return wf, nil
}

func (r *WorkflowRepository) scanRows(rows pgx.Rows) ([]*Workflow, error) {
	var workflows []*Workflow
	for rows.Next() {
		wf, err := r.scanWorkflow(rows)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan workflow")
		}
		workflows = append(workflows, wf)
	}
	return workflows, nil
}
