package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowdeck/be-approval-workflows/internal/config"
	"github.com/flowdeck/be-approval-workflows/internal/errors"
	"github.com/flowdeck/be-approval-workflows/internal/handler"
	"github.com/flowdeck/be-approval-workflows/internal/logger"
	"github.com/flowdeck/be-approval-workflows/internal/middleware"
	"github.com/flowdeck/be-approval-workflows/internal/repository"
	"github.com/flowdeck/be-approval-workflows/internal/service"
)

// stubStore backs the handler tests with a single workflow held in memory.
type stubStore struct {
	wf      *repository.Workflow
	steps   []*repository.ApprovalStep
	history []*repository.ApprovalHistory
	nextID  int
}

func (s *stubStore) id() string {
	s.nextID++
	return fmt.Sprintf("id-%d", s.nextID)
}

func (s *stubStore) InTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (s *stubStore) Create(_ context.Context, wf *repository.Workflow, steps []*repository.ApprovalStep) error {
	now := time.Now()
	wf.ID = s.id()
	wf.CreatedAt = now
	wf.UpdatedAt = now
	stored := *wf
	stored.Steps = nil
	s.wf = &stored

	for _, step := range steps {
		step.ID = s.id()
		step.WorkflowID = wf.ID
		copied := *step
		s.steps = append(s.steps, &copied)
	}
	return nil
}

func (s *stubStore) GetByID(_ context.Context, id string) (*repository.Workflow, error) {
	if s.wf == nil || s.wf.ID != id {
		return nil, errors.NotFound("workflow", id)
	}
	copied := *s.wf
	return &copied, nil
}

func (s *stubStore) GetByIDForUpdate(ctx context.Context, id string) (*repository.Workflow, error) {
	return s.GetByID(ctx, id)
}

func (s *stubStore) UpdateState(_ context.Context, id string, status repository.Status, currentLevel int) error {
	s.wf.Status = status
	s.wf.CurrentLevel = currentLevel
	return nil
}

func (s *stubStore) ListByCreator(_ context.Context, creatorID string, limit, offset int) ([]*repository.Workflow, error) {
	if s.wf != nil && s.wf.CreatedByID == creatorID {
		copied := *s.wf
		return []*repository.Workflow{&copied}, nil
	}
	return nil, nil
}

func (s *stubStore) ListByStatus(_ context.Context, status repository.Status, limit, offset int) ([]*repository.Workflow, error) {
	if s.wf != nil && s.wf.Status == status {
		copied := *s.wf
		return []*repository.Workflow{&copied}, nil
	}
	return nil, nil
}

func (s *stubStore) ListByApprover(_ context.Context, approverID string, limit, offset int) ([]*repository.Workflow, error) {
	for _, step := range s.steps {
		if step.ApproverID == approverID {
			copied := *s.wf
			return []*repository.Workflow{&copied}, nil
		}
	}
	return nil, nil
}

func (s *stubStore) ListPendingForApprover(_ context.Context, approverID string) ([]*repository.Workflow, error) {
	if s.wf == nil || s.wf.Status != repository.StatusInProgress {
		return nil, nil
	}
	for _, step := range s.steps {
		if step.Level == s.wf.CurrentLevel && step.ApproverID == approverID {
			copied := *s.wf
			return []*repository.Workflow{&copied}, nil
		}
	}
	return nil, nil
}

func (s *stubStore) GetByWorkflowID(_ context.Context, workflowID string) ([]*repository.ApprovalStep, error) {
	var out []*repository.ApprovalStep
	for _, step := range s.steps {
		copied := *step
		out = append(out, &copied)
	}
	return out, nil
}

func (s *stubStore) GetByLevel(_ context.Context, workflowID string, level int) (*repository.ApprovalStep, error) {
	for _, step := range s.steps {
		if step.Level == level {
			copied := *step
			return &copied, nil
		}
	}
	return nil, errors.NotFound("approval_step", workflowID)
}

func (s *stubStore) RecordAction(_ context.Context, id string, status repository.Status, comments *string) error {
	for _, step := range s.steps {
		if step.ID == id {
			now := time.Now()
			step.Status = status
			step.Comments = comments
			step.ActedAt = &now
			return nil
		}
	}
	return errors.NotFound("approval_step", id)
}

func (s *stubStore) ResetForResubmit(_ context.Context, workflowID string) error {
	for _, step := range s.steps {
		step.Status = repository.StatusPending
		step.Comments = nil
		step.ActedAt = nil
	}
	return nil
}

func (s *stubStore) Append(_ context.Context, entry *repository.ApprovalHistory) error {
	entry.ID = s.id()
	entry.CreatedAt = time.Now()
	copied := *entry
	s.history = append(s.history, &copied)
	return nil
}

func (s *stubStore) ListByWorkflowID(_ context.Context, workflowID string) ([]*repository.ApprovalHistory, error) {
	out := make([]*repository.ApprovalHistory, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		copied := *s.history[i]
		out = append(out, &copied)
	}
	return out, nil
}

type stubDirectory struct{}

func (stubDirectory) GetByID(_ context.Context, id string) (*repository.User, error) {
	switch id {
	case "creator-1", "approver-1":
		return &repository.User{ID: id, Username: id, Active: true}, nil
	}
	return nil, errors.NotFound("user", id)
}

func (stubDirectory) GetByUsername(_ context.Context, username string) (*repository.User, error) {
	return nil, errors.NotFound("user", username)
}

// asUser fills the context slot the auth middleware normally populates.
func asUser(h http.HandlerFunc, userID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.ServeHTTP(w, r.WithContext(middleware.WithUserID(r.Context(), userID)))
	})
}

func newTestHandler(t *testing.T) (*handler.HTTPHandler, *stubStore) {
	t.Helper()
	store := &stubStore{}
	log := logger.New(logger.Config{Level: "disabled"})
	svc := service.NewWorkflowService(store, store, store, stubDirectory{}, store, config.WorkflowConfig{}, log)
	return handler.NewHTTPHandler(svc, log), store
}

func createViaHTTP(t *testing.T, h *handler.HTTPHandler) string {
	t.Helper()

	body := `{"title":"Expense report","approval_steps":[{"approver_id":"approver-1","level":1}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	asUser(h.CreateWorkflow, "creator-1").ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)

	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	return created.ID
}

func TestCreateWorkflowHTTP(t *testing.T) {
	h, _ := newTestHandler(t)

	id := createViaHTTP(t, h)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/get?id="+id, nil)
	rec := httptest.NewRecorder()
	asUser(h.GetWorkflow, "creator-1").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var wf struct {
		Status      string `json:"status"`
		TotalLevels int    `json:"total_levels"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	assert.Equal(t, "DRAFT", wf.Status)
	assert.Equal(t, 1, wf.TotalLevels)
}

func TestCreateWorkflowRejectsMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	asUser(h.CreateWorkflow, "creator-1").ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSubmitAndApproveHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createViaHTTP(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/submit",
		bytes.NewBufferString(fmt.Sprintf(`{"id":%q}`, id)))
	rec := httptest.NewRecorder()
	asUser(h.SubmitWorkflow, "creator-1").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/workflows/approve",
		bytes.NewBufferString(fmt.Sprintf(`{"id":%q,"action":"APPROVE","comments":"looks good"}`, id)))
	rec = httptest.NewRecorder()
	asUser(h.ProcessApproval, "approver-1").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var wf struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wf))
	assert.Equal(t, "APPROVED", wf.Status)
}

func TestErrorStatusMapping(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createViaHTTP(t, h)

	t.Run("missing workflow is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows/get?id=no-such", nil)
		rec := httptest.NewRecorder()
		asUser(h.GetWorkflow, "creator-1").ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)

		var body struct {
			Code string `json:"code"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, errors.ErrCodeNotFound, body.Code)
	})

	t.Run("submit by non-creator is 403", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/submit",
			bytes.NewBufferString(fmt.Sprintf(`{"id":%q}`, id)))
		rec := httptest.NewRecorder()
		asUser(h.SubmitWorkflow, "approver-1").ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("approve on DRAFT is 409", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/approve",
			bytes.NewBufferString(fmt.Sprintf(`{"id":%q,"action":"APPROVE"}`, id)))
		rec := httptest.NewRecorder()
		asUser(h.ProcessApproval, "approver-1").ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("unknown action is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/approve",
			bytes.NewBufferString(fmt.Sprintf(`{"id":%q,"action":"DEFER"}`, id)))
		rec := httptest.NewRecorder()
		asUser(h.ProcessApproval, "approver-1").ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetHistoryHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createViaHTTP(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/submit",
		bytes.NewBufferString(fmt.Sprintf(`{"id":%q}`, id)))
	rec := httptest.NewRecorder()
	asUser(h.SubmitWorkflow, "creator-1").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/workflows/history?id="+id, nil)
	rec = httptest.NewRecorder()
	asUser(h.GetHistory, "creator-1").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		History []struct {
			Action string `json:"action"`
			Level  int    `json:"level"`
		} `json:"history"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.History, 1)
	assert.Equal(t, "APPROVE", body.History[0].Action)
	assert.Equal(t, 0, body.History[0].Level)
}

func TestPendingApprovalsHTTP(t *testing.T) {
	h, _ := newTestHandler(t)
	id := createViaHTTP(t, h)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/workflows/submit",
		bytes.NewBufferString(fmt.Sprintf(`{"id":%q}`, id)))
	rec := httptest.NewRecorder()
	asUser(h.SubmitWorkflow, "creator-1").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/workflows/pending", nil)
	rec = httptest.NewRecorder()
	asUser(h.PendingApprovals, "approver-1").ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Workflows []struct {
			ID string `json:"id"`
		} `json:"workflows"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Workflows, 1)
	assert.Equal(t, id, body.Workflows[0].ID)
}
