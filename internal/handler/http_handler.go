package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/flowdeck/be-approval-workflows/internal/errors"
	"github.com/flowdeck/be-approval-workflows/internal/logger"
	"github.com/flowdeck/be-approval-workflows/internal/middleware"
	"github.com/flowdeck/be-approval-workflows/internal/repository"
	"github.com/flowdeck/be-approval-workflows/internal/service"
)

// HTTPHandler maps the workflow operations onto HTTP requests. The acting
// user always comes from the auth middleware context, never from the body.
type HTTPHandler struct {
	service *service.WorkflowService
	log     *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(service *service.WorkflowService, log *logger.Logger) *HTTPHandler {
	return &HTTPHandler{
		service: service,
		log:     log,
	}
}

// CreateWorkflow handles workflow creation requests.
func (h *HTTPHandler) CreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req service.CreateWorkflowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	wf, err := h.service.CreateWorkflow(r.Context(), &req, middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, wf)
}

// GetWorkflow handles single-workflow reads.
func (h *HTTPHandler) GetWorkflow(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, r, errors.InvalidInput("id", "workflow id is required"))
		return
	}

	wf, err := h.service.GetWorkflow(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wf)
}

// ListByStatus handles status-filtered listings.
func (h *HTTPHandler) ListByStatus(w http.ResponseWriter, r *http.Request) {
	status := r.URL.Query().Get("status")
	if status == "" {
		h.writeError(w, r, errors.InvalidInput("status", "status is required"))
		return
	}

	limit, offset := pagination(r)
	workflows, err := h.service.ListByStatus(r.Context(), repository.Status(status), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

// MyWorkflows lists workflows created by the current user.
func (h *HTTPHandler) MyWorkflows(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	workflows, err := h.service.ListByCreator(r.Context(), middleware.UserID(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

// AssignedWorkflows lists workflows where the current user is an approver on
// any level.
func (h *HTTPHandler) AssignedWorkflows(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	workflows, err := h.service.ListByApprover(r.Context(), middleware.UserID(r.Context()), limit, offset)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

// PendingApprovals lists workflows awaiting the current user at their
// current level.
func (h *HTTPHandler) PendingApprovals(w http.ResponseWriter, r *http.Request) {
	workflows, err := h.service.GetPendingForApprover(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"workflows": workflows})
}

// SubmitWorkflow handles submission requests.
func (h *HTTPHandler) SubmitWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	wf, err := h.service.Submit(r.Context(), req.ID, middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wf)
}

// ProcessApproval handles approve / reject / request-changes decisions.
func (h *HTTPHandler) ProcessApproval(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID       string            `json:"id"`
		Action   repository.Action `json:"action"`
		Comments *string           `json:"comments,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	wf, err := h.service.ProcessApproval(r.Context(), req.ID, &service.ApprovalActionRequest{
		Action:   req.Action,
		Comments: req.Comments,
	}, middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wf)
}

// CancelWorkflow handles cancellation requests.
func (h *HTTPHandler) CancelWorkflow(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, errors.InvalidInput("body", "invalid request body"))
		return
	}

	wf, err := h.service.Cancel(r.Context(), req.ID, middleware.UserID(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, wf)
}

// GetHistory handles audit trail reads.
func (h *HTTPHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, r, errors.InvalidInput("id", "workflow id is required"))
		return
	}

	history, err := h.service.GetHistory(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"history": history})
}

// ── Response helpers ──────────────────────────────────────────────────────────

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code := errors.Code(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeUnauthorized:
		status = http.StatusForbidden
	case errors.ErrCodeConflict:
		status = http.StatusConflict
	case errors.ErrCodeInvalidInput:
		status = http.StatusBadRequest
	}

	if status == http.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("path", r.URL.Path).
			Msg("Request failed")
	}

	h.writeJSON(w, status, map[string]string{
		"code":  code,
		"error": errors.Message(err),
	})
}

func pagination(r *http.Request) (limit, offset int) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 50
	}

	return pageSize, (page - 1) * pageSize
}
