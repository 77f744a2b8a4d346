package service

import "github.com/flowdeck/be-approval-workflows/internal/repository"

// Actor eligibility checks are centralized here so identity comparisons are
// not repeated across operations.

// IsCreator reports whether the actor created the workflow.
func IsCreator(wf *repository.Workflow, actorID string) bool {
	return wf.CreatedByID == actorID
}

// IsCurrentApprover reports whether the actor is the approver assigned to
// the step at the workflow's current level.
func IsCurrentApprover(wf *repository.Workflow, step *repository.ApprovalStep, actorID string) bool {
	return step.Level == wf.CurrentLevel && step.ApproverID == actorID
}
