package service

import (
	"context"
	"fmt"

	"github.com/flowdeck/be-approval-workflows/internal/config"
	"github.com/flowdeck/be-approval-workflows/internal/errors"
	"github.com/flowdeck/be-approval-workflows/internal/logger"
	"github.com/flowdeck/be-approval-workflows/internal/repository"
)

// The service declares the store contracts it needs; the pgx repositories
// satisfy them implicitly and tests plug in in-memory fakes.

// WorkflowStore persists workflow instances.
type WorkflowStore interface {
	Create(ctx context.Context, wf *repository.Workflow, steps []*repository.ApprovalStep) error
	GetByID(ctx context.Context, id string) (*repository.Workflow, error)
	GetByIDForUpdate(ctx context.Context, id string) (*repository.Workflow, error)
	UpdateState(ctx context.Context, id string, status repository.Status, currentLevel int) error
	ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*repository.Workflow, error)
	ListByStatus(ctx context.Context, status repository.Status, limit, offset int) ([]*repository.Workflow, error)
	ListByApprover(ctx context.Context, approverID string, limit, offset int) ([]*repository.Workflow, error)
	ListPendingForApprover(ctx context.Context, approverID string) ([]*repository.Workflow, error)
}

// StepStore persists approval steps.
type StepStore interface {
	GetByWorkflowID(ctx context.Context, workflowID string) ([]*repository.ApprovalStep, error)
	GetByLevel(ctx context.Context, workflowID string, level int) (*repository.ApprovalStep, error)
	RecordAction(ctx context.Context, id string, status repository.Status, comments *string) error
	ResetForResubmit(ctx context.Context, workflowID string) error
}

// HistoryStore persists the append-only audit trail.
type HistoryStore interface {
	Append(ctx context.Context, entry *repository.ApprovalHistory) error
	ListByWorkflowID(ctx context.Context, workflowID string) ([]*repository.ApprovalHistory, error)
}

// IdentityResolver resolves user references against the identity directory.
type IdentityResolver interface {
	GetByID(ctx context.Context, id string) (*repository.User, error)
	GetByUsername(ctx context.Context, username string) (*repository.User, error)
}

// TxRunner runs a function inside one atomic unit of work. Every state
// transition commits its status change, step mutation and history entry
// together or not at all.
type TxRunner interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// History comments for the synthetic submit/cancel audit entries.
const (
	submitComment = "Workflow submitted for approval"
	cancelComment = "Workflow cancelled by creator"
)

// WorkflowService orchestrates the approval workflow state machine.
type WorkflowService struct {
	workflowRepo WorkflowStore
	stepsRepo    StepStore
	historyRepo  HistoryStore
	identity     IdentityResolver
	tx           TxRunner
	cfg          config.WorkflowConfig
	log          *logger.Logger
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(
	workflowRepo WorkflowStore,
	stepsRepo StepStore,
	historyRepo HistoryStore,
	identity IdentityResolver,
	tx TxRunner,
	cfg config.WorkflowConfig,
	log *logger.Logger,
) *WorkflowService {
	return &WorkflowService{
		workflowRepo: workflowRepo,
		stepsRepo:    stepsRepo,
		historyRepo:  historyRepo,
		identity:     identity,
		tx:           tx,
		cfg:          cfg,
		log:          log,
	}
}

// ── Requests ──────────────────────────────────────────────────────────────────

// CreateWorkflowRequest is the input for creating a workflow.
type CreateWorkflowRequest struct {
	Title         string      `json:"title"`
	Description   *string     `json:"description,omitempty"`
	Metadata      *string     `json:"metadata,omitempty"`
	ApprovalSteps []StepInput `json:"approval_steps"`
}

// ApprovalActionRequest is the input for processing an approval decision.
type ApprovalActionRequest struct {
	Action   repository.Action `json:"action"`
	Comments *string           `json:"comments,omitempty"`
}

// ── Create ────────────────────────────────────────────────────────────────────

// CreateWorkflow validates the step sequence, resolves every approver and
// persists the workflow in DRAFT with its steps. Creation is not a
// transition, so no history entry is written.
func (s *WorkflowService) CreateWorkflow(ctx context.Context, req *CreateWorkflowRequest, creatorID string) (*repository.Workflow, error) {
	if req.Title == "" {
		return nil, errors.InvalidInput("title", "title is required")
	}

	creator, err := s.identity.GetByID(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	sorted, err := ValidateStepSequence(req.ApprovalSteps)
	if err != nil {
		return nil, err
	}

	steps := make([]*repository.ApprovalStep, 0, len(sorted))
	for _, in := range sorted {
		if _, err := s.identity.GetByID(ctx, in.ApproverID); err != nil {
			return nil, err
		}

		stepName := in.StepName
		if stepName == "" {
			stepName = fmt.Sprintf("Level %d", in.Level)
		}

		steps = append(steps, &repository.ApprovalStep{
			ApproverID: in.ApproverID,
			Level:      in.Level,
			StepName:   stepName,
			Status:     repository.StatusPending,
		})
	}

	wf := &repository.Workflow{
		Title:        req.Title,
		Description:  req.Description,
		Metadata:     req.Metadata,
		Status:       repository.StatusDraft,
		CreatedByID:  creator.ID,
		CurrentLevel: 0,
		TotalLevels:  len(steps),
	}

	if err := s.workflowRepo.Create(ctx, wf, steps); err != nil {
		return nil, err
	}
	wf.Steps = steps

	s.log.Info().
		Str("workflow_id", wf.ID).
		Str("created_by", creator.ID).
		Int("total_levels", wf.TotalLevels).
		Msg("Workflow created")

	return wf, nil
}

// ── Submit ────────────────────────────────────────────────────────────────────

// Submit moves a DRAFT or CHANGES_REQUESTED workflow into approval at level
// 1. Only the creator may submit.
func (s *WorkflowService) Submit(ctx context.Context, workflowID, actorID string) (*repository.Workflow, error) {
	actor, err := s.identity.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		wf, err := s.workflowRepo.GetByIDForUpdate(ctx, workflowID)
		if err != nil {
			return err
		}

		if !IsCreator(wf, actor.ID) {
			return errors.Unauthorized("only the workflow creator can submit it")
		}
		if err := CanSubmit(wf.Status); err != nil {
			return err
		}

		if wf.Status == repository.StatusChangesRequested && s.cfg.ResetStepsOnResubmit {
			if err := s.stepsRepo.ResetForResubmit(ctx, wf.ID); err != nil {
				return err
			}
		}

		if err := s.workflowRepo.UpdateState(ctx, wf.ID, repository.StatusInProgress, 1); err != nil {
			return err
		}

		comment := submitComment
		return s.historyRepo.Append(ctx, &repository.ApprovalHistory{
			WorkflowID: wf.ID,
			ActorID:    actor.ID,
			Action:     repository.ActionApprove,
			Level:      0,
			Comments:   &comment,
			FromStatus: string(wf.Status),
			ToStatus:   string(repository.StatusInProgress),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("workflow_id", workflowID).Msg("Workflow submitted")
	return s.getWithSteps(ctx, workflowID)
}

// ── Process approval ──────────────────────────────────────────────────────────

// ProcessApproval applies an approval decision to the current-level step of
// an IN_PROGRESS workflow. Only the approver assigned to that step may act.
func (s *WorkflowService) ProcessApproval(ctx context.Context, workflowID string, req *ApprovalActionRequest, actorID string) (*repository.Workflow, error) {
	if !req.Action.Valid() {
		return nil, errors.InvalidInput("action", fmt.Sprintf("unknown approval action %q", req.Action))
	}

	actor, err := s.identity.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		wf, err := s.workflowRepo.GetByIDForUpdate(ctx, workflowID)
		if err != nil {
			return err
		}

		outcome, err := ApplyAction(wf.Status, req.Action, wf.CurrentLevel, wf.TotalLevels)
		if err != nil {
			return err
		}

		step, err := s.stepsRepo.GetByLevel(ctx, wf.ID, wf.CurrentLevel)
		if err != nil {
			return err
		}
		if !IsCurrentApprover(wf, step, actor.ID) {
			return errors.Unauthorized("you are not the approver for the current level")
		}

		if err := s.stepsRepo.RecordAction(ctx, step.ID, outcome.StepStatus, req.Comments); err != nil {
			return err
		}
		if err := s.workflowRepo.UpdateState(ctx, wf.ID, outcome.WorkflowStatus, outcome.CurrentLevel); err != nil {
			return err
		}

		return s.historyRepo.Append(ctx, &repository.ApprovalHistory{
			WorkflowID: wf.ID,
			ActorID:    actor.ID,
			Action:     req.Action,
			Level:      wf.CurrentLevel,
			Comments:   req.Comments,
			FromStatus: string(wf.Status),
			ToStatus:   string(outcome.WorkflowStatus),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("workflow_id", workflowID).
		Str("action", string(req.Action)).
		Str("actor_id", actor.ID).
		Msg("Approval action processed")

	return s.getWithSteps(ctx, workflowID)
}

// ── Cancel ────────────────────────────────────────────────────────────────────

// Cancel closes a workflow that has not yet reached APPROVED. Only the
// creator may cancel. REJECT is reused as the audit action tag.
func (s *WorkflowService) Cancel(ctx context.Context, workflowID, actorID string) (*repository.Workflow, error) {
	actor, err := s.identity.GetByID(ctx, actorID)
	if err != nil {
		return nil, err
	}

	err = s.tx.InTransaction(ctx, func(ctx context.Context) error {
		wf, err := s.workflowRepo.GetByIDForUpdate(ctx, workflowID)
		if err != nil {
			return err
		}

		if !IsCreator(wf, actor.ID) {
			return errors.Unauthorized("only the workflow creator can cancel it")
		}
		if err := CanCancel(wf.Status); err != nil {
			return err
		}

		if err := s.workflowRepo.UpdateState(ctx, wf.ID, repository.StatusCancelled, wf.CurrentLevel); err != nil {
			return err
		}

		comment := cancelComment
		return s.historyRepo.Append(ctx, &repository.ApprovalHistory{
			WorkflowID: wf.ID,
			ActorID:    actor.ID,
			Action:     repository.ActionReject,
			Level:      wf.CurrentLevel,
			Comments:   &comment,
			FromStatus: string(wf.Status),
			ToStatus:   string(repository.StatusCancelled),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("workflow_id", workflowID).Msg("Workflow cancelled")
	return s.getWithSteps(ctx, workflowID)
}

// ── Queries ───────────────────────────────────────────────────────────────────

// GetWorkflow returns a workflow with its steps.
func (s *WorkflowService) GetWorkflow(ctx context.Context, workflowID string) (*repository.Workflow, error) {
	return s.getWithSteps(ctx, workflowID)
}

// GetHistory returns the audit trail for a workflow, newest first.
func (s *WorkflowService) GetHistory(ctx context.Context, workflowID string) ([]*repository.ApprovalHistory, error) {
	if _, err := s.workflowRepo.GetByID(ctx, workflowID); err != nil {
		return nil, err
	}
	return s.historyRepo.ListByWorkflowID(ctx, workflowID)
}

// GetPendingForApprover returns workflows awaiting action from the user at
// their current level.
func (s *WorkflowService) GetPendingForApprover(ctx context.Context, approverID string) ([]*repository.Workflow, error) {
	return s.workflowRepo.ListPendingForApprover(ctx, approverID)
}

// ListByCreator returns workflows created by a user, newest first.
func (s *WorkflowService) ListByCreator(ctx context.Context, creatorID string, limit, offset int) ([]*repository.Workflow, error) {
	return s.workflowRepo.ListByCreator(ctx, creatorID, limit, offset)
}

// ListByStatus returns workflows in the given status, newest first.
func (s *WorkflowService) ListByStatus(ctx context.Context, status repository.Status, limit, offset int) ([]*repository.Workflow, error) {
	if !status.Valid() {
		return nil, errors.InvalidInput("status", fmt.Sprintf("unknown workflow status %q", status))
	}
	return s.workflowRepo.ListByStatus(ctx, status, limit, offset)
}

// ListByApprover returns workflows that involve the user as approver on any
// level, newest first.
func (s *WorkflowService) ListByApprover(ctx context.Context, approverID string, limit, offset int) ([]*repository.Workflow, error) {
	return s.workflowRepo.ListByApprover(ctx, approverID, limit, offset)
}

// ── Internal helpers ──────────────────────────────────────────────────────────

func (s *WorkflowService) getWithSteps(ctx context.Context, workflowID string) (*repository.Workflow, error) {
	wf, err := s.workflowRepo.GetByID(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	steps, err := s.stepsRepo.GetByWorkflowID(ctx, wf.ID)
	if err != nil {
		return nil, err
	}
	wf.Steps = steps

	return wf, nil
}
