package models

import "time"

type StartWorkflowRequest struct {
	CandidateID    int64  `json:"candidate_id"`
	JobID          int64  `json:"job_id"`
	ApplicationID  int64  `json:"application_id"`
	CandidateEmail string `json:"candidate_email"`
	CandidatePhone string `json:"candidate_phone"`
	CandidateName  string `json:"candidate_name"`
	JobTitle       string `json:"job_title"`
	JobDescription string `json:"job_description,omitempty"`
	TelegramChatID string `json:"telegram_chat_id,omitempty"`
}

type StartWorkflowResponse struct {
	WorkflowID string    `json:"workflow_id"`
	Status     string    `json:"status"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}

type WorkflowStatusResponse struct {
	WorkflowID         string         `json:"workflow_id"`
	WorkflowType       string         `json:"workflow_type"`
	Status             WorkflowStatus `json:"status"`
	ProgressPercentage int            `json:"progress_percentage"`
	CurrentStep        string         `json:"current_step"`
	TotalSteps         int            `json:"total_steps"`
	OutputData         map[string]any `json:"output_data"`
	ErrorMessage       *string        `json:"error_message,omitempty"`
	Completed          bool           `json:"completed"`
	StartedAt          *time.Time     `json:"started_at,omitempty"`
	CompletedAt        *time.Time     `json:"completed_at,omitempty"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

func NewWorkflowStatusResponse(wf *Workflow) WorkflowStatusResponse {
	output := map[string]any(wf.OutputData)
	if output == nil {
		output = map[string]any{}
	}
	return WorkflowStatusResponse{
		WorkflowID:         wf.WorkflowID.String(),
		WorkflowType:       wf.WorkflowType,
		Status:             wf.Status,
		ProgressPercentage: wf.ProgressPercentage,
		CurrentStep:        wf.CurrentStep,
		TotalSteps:         wf.TotalSteps,
		OutputData:         output,
		ErrorMessage:       wf.ErrorMessage,
		Completed:          wf.Status == WorkflowCompleted,
		StartedAt:          wf.StartedAt,
		CompletedAt:        wf.CompletedAt,
		UpdatedAt:          wf.UpdatedAt,
	}
}

type WorkflowListResponse struct {
	Workflows []WorkflowStatusResponse `json:"workflows"`
	Total     int                      `json:"total"`
}

type SendNotificationRequest struct {
	CandidateName     string   `json:"candidate_name"`
	CandidateEmail    string   `json:"candidate_email"`
	CandidatePhone    string   `json:"candidate_phone"`
	TelegramChatID    string   `json:"telegram_chat_id"`
	JobTitle          string   `json:"job_title"`
	ApplicationStatus string   `json:"application_status"`
	Message           string   `json:"message"`
	Channels          []string `json:"channels"`
}

type SendNotificationResponse struct {
	Success      bool                 `json:"success"`
	ChannelsSent []Channel            `json:"channels_sent"`
	Results      []NotificationResult `json:"results"`
}
