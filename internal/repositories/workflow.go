package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"bhiv/hr-platform/internal/models"
)

type WorkflowRepository interface {
	Create(ctx context.Context, wf *models.Workflow) error
	// FindByID returns nil, nil when the workflow does not exist.
	FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error)
	Update(ctx context.Context, id uuid.UUID, data *WorkflowUpdateData) error
	List(ctx context.Context, limit int, status models.WorkflowStatus) ([]models.Workflow, error)
	FindPending(ctx context.Context, limit int) ([]models.Workflow, error)
}

// WorkflowUpdateData holds the whitelisted columns an update may touch. Nil fields are left alone.
type WorkflowUpdateData struct {
	Status             *models.WorkflowStatus
	ProgressPercentage *int
	CurrentStep        *string
	OutputData         datatypes.JSONMap
	ErrorMessage       *string
	StartedAt          *time.Time
	CompletedAt        *time.Time
}

type workflowRepository struct {
	db *gorm.DB
}

func NewWorkflowRepository(db *gorm.DB) WorkflowRepository {
	return &workflowRepository{db: db}
}

func (r *workflowRepository) Create(ctx context.Context, wf *models.Workflow) error {
	if err := r.db.WithContext(ctx).Create(wf).Error; err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}
	return nil
}

func (r *workflowRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Workflow, error) {
	var wf models.Workflow
	if err := r.db.WithContext(ctx).Where("workflow_id = ?", id).First(&wf).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find workflow: %w", err)
	}
	return &wf, nil
}

func (r *workflowRepository) Update(ctx context.Context, id uuid.UUID, data *WorkflowUpdateData) error {
	updates := map[string]interface{}{
		"updated_at": time.Now().UTC(),
	}

	if data.Status != nil {
		updates["status"] = *data.Status
	}
	if data.ProgressPercentage != nil {
		updates["progress_percentage"] = gorm.Expr("GREATEST(progress_percentage, ?)", *data.ProgressPercentage)
	}
	if data.CurrentStep != nil {
		updates["current_step"] = *data.CurrentStep
	}
	if data.OutputData != nil {
		updates["output_data"] = data.OutputData
	}
	if data.ErrorMessage != nil {
		updates["error_message"] = *data.ErrorMessage
	}
	if data.StartedAt != nil {
		updates["started_at"] = *data.StartedAt
	}
	if data.CompletedAt != nil {
		updates["completed_at"] = *data.CompletedAt
	}

	result := r.db.WithContext(ctx).Model(&models.Workflow{}).
		Where("workflow_id = ? AND status NOT IN ?", id, models.TerminalStatuses).
		Updates(updates)

	if result.Error != nil {
		return fmt.Errorf("failed to update workflow: %w", result.Error)
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Workflow{}).Where("workflow_id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check workflow: %w", err)
		}
		if count == 0 {
			return ErrWorkflowNotFound
		}
		return ErrWorkflowTerminal
	}

	return nil
}

func (r *workflowRepository) List(ctx context.Context, limit int, status models.WorkflowStatus) ([]models.Workflow, error) {
	var workflows []models.Workflow
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	if err := query.Find(&workflows).Error; err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	return workflows, nil
}

func (r *workflowRepository) FindPending(ctx context.Context, limit int) ([]models.Workflow, error) {
	var workflows []models.Workflow
	err := r.db.WithContext(ctx).
		Where("status = ?", models.WorkflowPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&workflows).Error

	if err != nil {
		return nil, fmt.Errorf("failed to find pending workflows: %w", err)
	}

	return workflows, nil
}
