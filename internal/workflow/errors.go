package workflow

import "errors"

var (
	ErrWorkflowNotFound   = errors.New("workflow not found")
	ErrTaskNotFound       = errors.New("task not found")
	ErrDefinitionNotFound = errors.New("workflow definition not found")
	ErrTaskNotInProgress  = errors.New("task is not in progress")
	ErrWorkflowNotActive  = errors.New("workflow is not active")
	ErrInvalidTransition  = errors.New("invalid transition")
)
