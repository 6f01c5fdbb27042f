package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"bhiv/hr-platform/internal/models"
	"bhiv/hr-platform/internal/repositories"
)

// WorkflowPatch is a partial update. Nil fields are untouched and Output keys are merged.
type WorkflowPatch struct {
	Status       *models.WorkflowStatus
	Progress     *int
	CurrentStep  *string
	Output       map[string]any
	ErrorMessage *string
}

type WorkflowTracker interface {
	Create(ctx context.Context, wf *models.Workflow) error
	Update(ctx context.Context, id uuid.UUID, patch WorkflowPatch) (*models.Workflow, error)
	// Get returns nil, nil for an unknown id.
	Get(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	List(ctx context.Context, limit int, status models.WorkflowStatus) ([]models.Workflow, error)
	Pending(ctx context.Context, limit int) ([]models.Workflow, error)
}

type workflowTracker struct {
	repo  repositories.WorkflowRepository
	hub   *ProgressHub
	locks sync.Map
	log   *zap.Logger
}

func NewWorkflowTracker(repo repositories.WorkflowRepository, hub *ProgressHub, log *zap.Logger) WorkflowTracker {
	return &workflowTracker{
		repo: repo,
		hub:  hub,
		log:  log.Named("tracker"),
	}
}

func (t *workflowTracker) lock(id uuid.UUID) func() {
	mu, _ := t.locks.LoadOrStore(id, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

func (t *workflowTracker) Create(ctx context.Context, wf *models.Workflow) error {
	if wf.WorkflowID == uuid.Nil {
		wf.WorkflowID = uuid.New()
	}
	if wf.Status == "" {
		wf.Status = models.WorkflowPending
	}
	if wf.OutputData == nil {
		wf.OutputData = datatypes.JSONMap{}
	}
	wf.ProgressPercentage = clampProgress(wf.ProgressPercentage)

	if err := t.repo.Create(ctx, wf); err != nil {
		return err
	}
	t.log.Info("📝 Workflow created",
		zap.String("workflow_id", wf.WorkflowID.String()),
		zap.String("type", wf.WorkflowType))
	return nil
}

func (t *workflowTracker) Update(ctx context.Context, id uuid.UUID, patch WorkflowPatch) (*models.Workflow, error) {
	unlock := t.lock(id)
	defer unlock()

	current, err := t.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current == nil {
		return nil, repositories.ErrWorkflowNotFound
	}
	if current.Status.IsTerminal() {
		return current, repositories.ErrWorkflowTerminal
	}

	data := &repositories.WorkflowUpdateData{
		CurrentStep:  patch.CurrentStep,
		ErrorMessage: patch.ErrorMessage,
	}

	if patch.Status != nil {
		if !patch.Status.IsValid() {
			return nil, fmt.Errorf("invalid workflow status %q", *patch.Status)
		}
		data.Status = patch.Status
		now := time.Now().UTC()
		if *patch.Status == models.WorkflowRunning && current.StartedAt == nil {
			data.StartedAt = &now
		}
		if patch.Status.IsTerminal() {
			data.CompletedAt = &now
		}
	}

	if patch.Progress != nil {
		p := clampProgress(*patch.Progress)
		if p < current.ProgressPercentage {
			p = current.ProgressPercentage
		}
		data.ProgressPercentage = &p
	}

	if len(patch.Output) > 0 {
		merged := datatypes.JSONMap{}
		for k, v := range current.OutputData {
			merged[k] = v
		}
		for k, v := range patch.Output {
			merged[k] = v
		}
		data.OutputData = merged
	}

	if err := t.repo.Update(ctx, id, data); err != nil {
		return nil, err
	}

	updated, err := t.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, repositories.ErrWorkflowNotFound
	}

	if t.hub != nil {
		t.hub.Publish(models.NewProgressEvent(updated))
	}
	if updated.Status.IsTerminal() {
		t.locks.Delete(id)
	}
	return updated, nil
}

func (t *workflowTracker) Get(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	return t.repo.FindByID(ctx, id)
}

func (t *workflowTracker) List(ctx context.Context, limit int, status models.WorkflowStatus) ([]models.Workflow, error) {
	return t.repo.List(ctx, limit, status)
}

func (t *workflowTracker) Pending(ctx context.Context, limit int) ([]models.Workflow, error) {
	return t.repo.FindPending(ctx, limit)
}

func clampProgress(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
