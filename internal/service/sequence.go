package service

import (
	"fmt"
	"sort"

	"github.com/flowdeck/be-approval-workflows/internal/errors"
)

// StepInput is one requested approval step in a create request. StepName is
// optional and defaults to "Level {level}".
type StepInput struct {
	ApproverID string `json:"approver_id"`
	Level      int    `json:"level"`
	StepName   string `json:"step_name,omitempty"`
}

// ValidateStepSequence sorts the requested steps by level and verifies they
// form the exact sequence 1..N. The returned slice is a sorted copy; the
// input is not modified. The first gap or duplicate fails with the expected
// and actual level.
func ValidateStepSequence(steps []StepInput) ([]StepInput, error) {
	if len(steps) == 0 {
		return nil, errors.InvalidInput("approval_steps", "at least one approval step is required")
	}

	sorted := make([]StepInput, len(steps))
	copy(sorted, steps)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Level < sorted[j].Level })

	for i, step := range sorted {
		expected := i + 1
		if step.Level != expected {
			return nil, errors.InvalidInput("approval_steps", fmt.Sprintf(
				"levels must be sequential starting from 1: expected level %d but got %d",
				expected, step.Level))
		}
	}

	return sorted, nil
}
