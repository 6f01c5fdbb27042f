package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type WorkflowStatus string

const (
	WorkflowPending   WorkflowStatus = "pending"
	WorkflowRunning   WorkflowStatus = "running"
	WorkflowCompleted WorkflowStatus = "completed"
	WorkflowFailed    WorkflowStatus = "failed"
	WorkflowCancelled WorkflowStatus = "cancelled"
)

// TerminalStatuses never transition again.
var TerminalStatuses = []WorkflowStatus{WorkflowCompleted, WorkflowFailed, WorkflowCancelled}

func (s WorkflowStatus) IsTerminal() bool {
	for _, t := range TerminalStatuses {
		if s == t {
			return true
		}
	}
	return false
}

func (s WorkflowStatus) IsValid() bool {
	return s == WorkflowPending || s == WorkflowRunning || s.IsTerminal()
}

const WorkflowTypeCandidateApplication = "candidate_application"

type Workflow struct {
	WorkflowID         uuid.UUID         `gorm:"type:uuid;primary_key" json:"workflow_id"`
	WorkflowType       string            `gorm:"type:text;not null" json:"workflow_type"`
	Status             WorkflowStatus    `gorm:"type:text;not null;default:'pending';index" json:"status"`
	ProgressPercentage int               `gorm:"not null;default:0" json:"progress_percentage"`
	CurrentStep        string            `gorm:"type:text" json:"current_step"`
	TotalSteps         int               `gorm:"not null;default:0" json:"total_steps"`
	CandidateID        int64             `gorm:"index" json:"candidate_id"`
	JobID              int64             `gorm:"index" json:"job_id"`
	InputData          datatypes.JSONMap `gorm:"type:jsonb" json:"input_data"`
	OutputData         datatypes.JSONMap `gorm:"type:jsonb" json:"output_data"`
	ErrorMessage       *string           `gorm:"type:text" json:"error_message,omitempty"`
	StartedAt          *time.Time        `json:"started_at,omitempty"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	CreatedAt          time.Time         `gorm:"default:CURRENT_TIMESTAMP;index" json:"created_at"`
	UpdatedAt          time.Time         `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Workflow) TableName() string {
	return "workflow_states"
}

// ProgressEvent is pushed to live subscribers on every workflow transition.
type ProgressEvent struct {
	Type               string         `json:"type"`
	WorkflowID         string         `json:"workflow_id"`
	Status             WorkflowStatus `json:"status"`
	ProgressPercentage int            `json:"progress_percentage"`
	CurrentStep        string         `json:"current_step"`
	ErrorMessage       *string        `json:"error_message,omitempty"`
	Timestamp          time.Time      `json:"timestamp"`
}

func NewProgressEvent(wf *Workflow) ProgressEvent {
	eventType := "progress"
	switch wf.Status {
	case WorkflowCompleted:
		eventType = "completed"
	case WorkflowFailed:
		eventType = "error"
	case WorkflowCancelled:
		eventType = "cancelled"
	}
	return ProgressEvent{
		Type:               eventType,
		WorkflowID:         wf.WorkflowID.String(),
		Status:             wf.Status,
		ProgressPercentage: wf.ProgressPercentage,
		CurrentStep:        wf.CurrentStep,
		ErrorMessage:       wf.ErrorMessage,
		Timestamp:          wf.UpdatedAt,
	}
}
