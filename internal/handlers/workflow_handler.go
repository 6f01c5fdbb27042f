package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/repositories"
	"bhiv/hr-platform/internal/services"
)

const (
	defaultWorkflowListLimit = 50
	maxWorkflowListLimit     = 200
)

type WorkflowHandler struct {
	runner  services.WorkflowRunner
	tracker services.WorkflowTracker
	log     *zap.Logger
}

func NewWorkflowHandler(runner services.WorkflowRunner, tracker services.WorkflowTracker, log *zap.Logger) *WorkflowHandler {
	return &WorkflowHandler{
		runner:  runner,
		tracker: tracker,
		log:     log,
	}
}

// HandleStartApplication handles POST /workflows/application/start
func (h *WorkflowHandler) HandleStartApplication(c *fiber.Ctx) error {
	var req models.StartWorkflowRequest

	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request payload",
		})
	}

	if req.CandidateID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "candidate_id must be a positive integer",
		})
	}

	if req.JobID <= 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "job_id must be a positive integer",
		})
	}

	wf, err := h.runner.Submit(c.UserContext(), req)
	if err != nil {
		h.log.Error("❌ Failed to start workflow", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to start workflow",
		})
	}

	return c.Status(fiber.StatusAccepted).JSON(models.StartWorkflowResponse{
		WorkflowID: wf.WorkflowID.String(),
		Status:     string(wf.Status),
		Message:    "Candidate application workflow started",
		Timestamp:  time.Now().UTC(),
	})
}

// HandleGetStatus handles GET /workflows/:id/status
func (h *WorkflowHandler) HandleGetStatus(c *fiber.Ctx) error {
	wf, err := h.lookup(c)
	if err != nil || wf == nil {
		return err
	}
	return c.JSON(models.NewWorkflowStatusResponse(wf))
}

// HandleList handles GET /workflows
func (h *WorkflowHandler) HandleList(c *fiber.Ctx) error {
	limit := defaultWorkflowListLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "limit must be a positive integer",
			})
		}
		limit = min(n, maxWorkflowListLimit)
	}

	status := models.WorkflowStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unknown workflow status",
		})
	}

	workflows, err := h.tracker.List(c.UserContext(), limit, status)
	if err != nil {
		h.log.Error("❌ Failed to list workflows", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to list workflows",
		})
	}

	resp := models.WorkflowListResponse{Workflows: make([]models.WorkflowStatusResponse, 0, len(workflows))}
	for i := range workflows {
		resp.Workflows = append(resp.Workflows, models.NewWorkflowStatusResponse(&workflows[i]))
	}
	resp.Total = len(resp.Workflows)

	return c.JSON(resp)
}

// HandleCancel handles POST /workflows/:id/cancel
func (h *WorkflowHandler) HandleCancel(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return workflowNotFound(c)
	}

	wf, err := h.runner.Cancel(c.UserContext(), id)
	switch {
	case errors.Is(err, repositories.ErrWorkflowNotFound):
		return workflowNotFound(c)
	case errors.Is(err, repositories.ErrWorkflowTerminal):
		body := fiber.Map{"error": "Workflow already finished"}
		if wf != nil {
			body["status"] = wf.Status
		}
		return c.Status(fiber.StatusConflict).JSON(body)
	case err != nil:
		h.log.Error("❌ Failed to cancel workflow", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to cancel workflow",
		})
	}

	body := fiber.Map{
		"workflow_id": id.String(),
		"message":     "Cancellation requested",
	}
	if wf != nil {
		body["status"] = wf.Status
	}
	return c.JSON(body)
}

// lookup writes the error response itself and returns nil, nil when it did.
func (h *WorkflowHandler) lookup(c *fiber.Ctx) (*models.Workflow, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return nil, workflowNotFound(c)
	}

	wf, err := h.tracker.Get(c.UserContext(), id)
	if err != nil {
		h.log.Error("❌ Failed to load workflow", zap.Error(err))
		return nil, c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load workflow",
		})
	}
	if wf == nil {
		return nil, workflowNotFound(c)
	}
	return wf, nil
}

func workflowNotFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Workflow not found",
	})
}
