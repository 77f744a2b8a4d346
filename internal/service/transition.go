package service

import (
	"fmt"

	"github.com/flowdeck/be-approval-workflows/internal/errors"
	"github.com/flowdeck/be-approval-workflows/internal/repository"
)

// The transition rules live here as pure functions so they can be tested
// without persistence. The service applies their outcomes inside a
// transaction.

// submittableFrom lists the statuses a workflow can be submitted from.
var submittableFrom = map[repository.Status]bool{
	repository.StatusDraft:            true,
	repository.StatusChangesRequested: true,
}

// CanSubmit checks whether a workflow in the given status may be submitted.
func CanSubmit(status repository.Status) error {
	if !submittableFrom[status] {
		return errors.Conflict(fmt.Sprintf(
			"workflow can only be submitted from DRAFT or CHANGES_REQUESTED status (current: %s)", status))
	}
	return nil
}

// CanCancel checks whether a workflow in the given status may be cancelled.
// APPROVED and CANCELLED are final for cancellation purposes; REJECTED and
// CHANGES_REQUESTED workflows may still be closed out by their creator.
func CanCancel(status repository.Status) error {
	if status == repository.StatusApproved || status == repository.StatusCancelled {
		return errors.Conflict(fmt.Sprintf("cannot cancel a workflow in %s status", status))
	}
	return nil
}

// ActionOutcome is the successor state computed for an approval action: the
// acted-on step's new status and the workflow's new status and level.
type ActionOutcome struct {
	StepStatus     repository.Status
	WorkflowStatus repository.Status
	CurrentLevel   int
}

// ApplyAction computes the state transition for an approval action processed
// at the given level.
//
//	APPROVE on the last level       → workflow APPROVED, level unchanged
//	APPROVE on an earlier level     → level advances, workflow stays IN_PROGRESS
//	REJECT                          → workflow REJECTED (terminal), level unchanged
//	REQUEST_CHANGES                 → workflow CHANGES_REQUESTED, level back to 0
func ApplyAction(status repository.Status, action repository.Action, currentLevel, totalLevels int) (ActionOutcome, error) {
	if status != repository.StatusInProgress {
		return ActionOutcome{}, errors.Conflict(fmt.Sprintf(
			"cannot process approval on a workflow in %s status", status))
	}

	switch action {
	case repository.ActionApprove:
		if currentLevel >= totalLevels {
			return ActionOutcome{
				StepStatus:     repository.StatusApproved,
				WorkflowStatus: repository.StatusApproved,
				CurrentLevel:   currentLevel,
			}, nil
		}
		return ActionOutcome{
			StepStatus:     repository.StatusApproved,
			WorkflowStatus: repository.StatusInProgress,
			CurrentLevel:   currentLevel + 1,
		}, nil

	case repository.ActionReject:
		return ActionOutcome{
			StepStatus:     repository.StatusRejected,
			WorkflowStatus: repository.StatusRejected,
			CurrentLevel:   currentLevel,
		}, nil

	case repository.ActionRequestChanges:
		return ActionOutcome{
			StepStatus:     repository.StatusChangesRequested,
			WorkflowStatus: repository.StatusChangesRequested,
			CurrentLevel:   0,
		}, nil

	default:
		return ActionOutcome{}, errors.InvalidInput("action",
			fmt.Sprintf("unknown approval action %q", action))
	}
}
