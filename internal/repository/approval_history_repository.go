package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/flowdeck/be-approval-workflows/internal/database"
	"github.com/flowdeck/be-approval-workflows/internal/errors"
)

// ApprovalHistoryRepository appends and reads immutable audit trail entries.
// The table has a delete/update-prevention trigger so Append is the only
// mutation operation exposed.
type ApprovalHistoryRepository struct {
	db *database.DB
}

// NewApprovalHistoryRepository creates a new ApprovalHistoryRepository.
func NewApprovalHistoryRepository(db *database.DB) *ApprovalHistoryRepository {
	return &ApprovalHistoryRepository{db: db}
}

// Append inserts one audit entry.
func (r *ApprovalHistoryRepository) Append(ctx context.Context, entry *ApprovalHistory) error {
	query := `
		INSERT INTO approval_history
		    (workflow_id, actor_id, action, level,
		     comments, from_status, to_status)
		VALUES ($1, $2, $3::approval_action, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	return r.db.QueryRow(ctx, query,
		entry.WorkflowID,
		entry.ActorID,
		entry.Action,
		entry.Level,
		entry.Comments,
		entry.FromStatus,
		entry.ToStatus,
	).Scan(&entry.ID, &entry.CreatedAt)
}

// ListByWorkflowID returns the audit trail for a workflow, newest first.
// The seq tie-break keeps entries written in the same instant in insertion
// order.
func (r *ApprovalHistoryRepository) ListByWorkflowID(ctx context.Context, workflowID string) ([]*ApprovalHistory, error) {
	query := `
		SELECT id, workflow_id, actor_id, action, level,
		       comments, from_status, to_status, created_at
		FROM approval_history
		WHERE workflow_id = $1
		ORDER BY created_at DESC, seq DESC
	`

	rows, err := r.db.Query(ctx, query, workflowID)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to get approval history")
	}
	defer rows.Close()

	return r.scanRows(rows)
}

// ── scan helpers ──────────────────────────────────────────────────────────────

func (r *ApprovalHistoryRepository) scanRows(rows pgx.Rows) ([]*ApprovalHistory, error) {
	var entries []*ApprovalHistory
	for rows.Next() {
		entry := &ApprovalHistory{}
		err := rows.Scan(
			&entry.ID,
			&entry.WorkflowID,
			&entry.ActorID,
			&entry.Action,
			&entry.Level,
			&entry.Comments,
			&entry.FromStatus,
			&entry.ToStatus,
			&entry.CreatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrCodeInternal, "failed to scan history entry")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
