package controllers

import (
	"errors"
	"net/http"

	"github.com/RealZimboGuy/workflowrest/internal/rest"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
)

// writeError maps workflow sentinel errors onto HTTP statuses before rendering.
func writeError(w http.ResponseWriter, err error) {
	var se *rest.ScriptError
	switch {
	case errors.As(err, &se):
	case errors.Is(err, workflow.ErrTaskNotFound),
		errors.Is(err, workflow.ErrWorkflowNotFound),
		errors.Is(err, workflow.ErrDefinitionNotFound),
		errors.Is(err, workflow.ErrWorkflowNotActive):
		err = rest.NewScriptError(http.StatusNotFound, "%s", err.Error())
	case errors.Is(err, workflow.ErrTaskNotInProgress),
		errors.Is(err, workflow.ErrInvalidTransition):
		err = rest.NewScriptError(http.StatusBadRequest, "%s", err.Error())
	}
	rest.WriteError(w, err)
}
