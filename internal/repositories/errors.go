package repositories

import "errors"

var (
	ErrJobNotFound      = errors.New("job not found")
	ErrWorkflowNotFound = errors.New("workflow not found")
	ErrWorkflowTerminal = errors.New("workflow already in terminal state")
)
