package rest

import (
	"net/http"

	"github.com/RealZimboGuy/workflowrest/internal/util"
)

type dataEnvelope struct {
	Data any `json:"data"`
}

type listEnvelope struct {
	Data   any    `json:"data"`
	Paging Paging `json:"paging"`
}

// WriteData writes {"data": data} with status 200.
func WriteData(w http.ResponseWriter, data any) {
	util.WriteJSONResponse(w, http.StatusOK, dataEnvelope{Data: data})
}

// WriteList writes {"data": data, "paging": {...}} with status 200.
func WriteList[T any](w http.ResponseWriter, data []T, paging Paging) {
	if data == nil {
		data = []T{}
	}
	util.WriteJSONResponse(w, http.StatusOK, listEnvelope{Data: data, Paging: paging})
}
