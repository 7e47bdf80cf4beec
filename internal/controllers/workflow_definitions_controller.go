package controllers

import (
	"log/slog"
	"net/http"

	"github.com/RealZimboGuy/workflowrest/internal/modelbuilder"
	"github.com/RealZimboGuy/workflowrest/internal/rest"
)

type WorkflowDefinitionsController struct {
	AuthController
	Workflows WorkflowService
	Builder   *modelbuilder.WorkflowModelBuilder
}

func NewWorkflowDefinitionsController(userRepo UserRepo, workflows WorkflowService, builder *modelbuilder.WorkflowModelBuilder) *WorkflowDefinitionsController {
	return &WorkflowDefinitionsController{
		AuthController: AuthController{UserRepo: userRepo},
		Workflows:      workflows,
		Builder:        builder,
	}
}

func (c *WorkflowDefinitionsController) handleGetDefinitions(w http.ResponseWriter, r *http.Request) {
	defs, err := c.Workflows.GetDefinitions(r.Context())
	if err != nil {
		slog.Error("Failed to get workflow definitions", "error", err)
		writeError(w, err)
		return
	}
	exclude := rest.ParseExcludeFilter(r, paramExclude)
	models := make([]*modelbuilder.WorkflowDefinitionModel, 0, len(defs))
	for _, def := range defs {
		if exclude.IsMatch(def.Name) {
			continue
		}
		models = append(models, c.Builder.BuildWorkflowDefinition(def))
	}
	rest.WriteData(w, models)
}

func (c *WorkflowDefinitionsController) handleGetDefinition(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	def, err := c.Workflows.GetDefinitionByID(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get workflow definition", "definitionId", id, "error", err)
		writeError(w, err)
		return
	}
	if def == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "Unable to find workflow definition with id: %s", id))
		return
	}
	m, err := c.Builder.BuildWorkflowDefinitionDetailed(r.Context(), def)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteData(w, m)
}
