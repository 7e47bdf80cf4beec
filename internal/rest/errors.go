package rest

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/workflowrest/internal/util"
)

// ScriptError is an error with the HTTP status it should be reported with.
type ScriptError struct {
	Status  int
	Message string
}

func NewScriptError(status int, format string, args ...any) *ScriptError {
	return &ScriptError{Status: status, Message: fmt.Sprintf(format, args...)}
}

func (e *ScriptError) Error() string {
	return fmt.Sprintf("%d %s", e.Status, e.Message)
}

type statusModel struct {
	Code        int    `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type errorModel struct {
	Status  statusModel `json:"status"`
	Message string      `json:"message"`
}

var statusDescriptions = map[int]string{
	http.StatusBadRequest:          "Request sent by the client was syntactically incorrect.",
	http.StatusUnauthorized:        "The request requires HTTP authentication.",
	http.StatusForbidden:           "Server understood the request but refused to fulfill it.",
	http.StatusNotFound:            "Requested resource is not available.",
	http.StatusInternalServerError: "An error inside the HTTP server which prevented it from fulfilling the request.",
}

// WriteError renders err as a status document. Errors that are not a ScriptError become a 500.
func WriteError(w http.ResponseWriter, err error) {
	var se *ScriptError
	if !errors.As(err, &se) {
		slog.Error("Unhandled error", "error", err)
		se = &ScriptError{Status: http.StatusInternalServerError, Message: err.Error()}
	}
	util.WriteJSONResponse(w, se.Status, errorModel{
		Status: statusModel{
			Code:        se.Status,
			Name:        http.StatusText(se.Status),
			Description: statusDescriptions[se.Status],
		},
		Message: se.Message,
	})
}
