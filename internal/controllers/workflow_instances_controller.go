package controllers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/modelbuilder"
	"github.com/RealZimboGuy/workflowrest/internal/rest"
	"github.com/RealZimboGuy/workflowrest/internal/util"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/duke-git/lancet/v2/slice"
)

const (
	paramInitiator       = "initiator"
	paramStartedBefore   = "startedBefore"
	paramStartedAfter    = "startedAfter"
	paramCompletedBefore = "completedBefore"
	paramCompletedAfter  = "completedAfter"
	paramDefinitionName  = "definitionName"
	paramIncludeTasks    = "includeTasks"
	paramForced          = "forced"

	stateActive    = "active"
	stateCompleted = "completed"
)

type WorkflowInstancesController struct {
	AuthController
	Workflows WorkflowService
	People    People
	Nodes     Nodes
	Builder   *modelbuilder.WorkflowModelBuilder
}

func NewWorkflowInstancesController(userRepo UserRepo, workflows WorkflowService, people People, nodes Nodes,
	builder *modelbuilder.WorkflowModelBuilder) *WorkflowInstancesController {
	return &WorkflowInstancesController{
		AuthController: AuthController{UserRepo: userRepo},
		Workflows:      workflows,
		People:         people,
		Nodes:          nodes,
		Builder:        builder,
	}
}

// workflowFilter holds the in-memory conditions of a workflow instance list request.
type workflowFilter struct {
	state           string
	initiator       string
	initiatorRef    domain.NodeRef
	priority        *int
	dueBefore       rest.DateParam
	dueAfter        rest.DateParam
	startedBefore   rest.DateParam
	startedAfter    rest.DateParam
	completedBefore rest.DateParam
	completedAfter  rest.DateParam
	definitionName  string
	exclude         *rest.ExcludeFilter
}

func parseWorkflowFilter(r *http.Request) (workflowFilter, error) {
	q := r.URL.Query()
	f := workflowFilter{
		initiator:      strings.TrimSpace(q.Get(paramInitiator)),
		definitionName: strings.TrimSpace(q.Get(paramDefinitionName)),
		exclude:        rest.ParseExcludeFilter(r, paramExclude),
	}
	switch state := strings.ToLower(strings.TrimSpace(q.Get(paramState))); state {
	case "", stateActive, stateCompleted:
		f.state = state
	default:
		return f, rest.NewScriptError(http.StatusBadRequest, "Unrecognised State parameter: %s", q.Get(paramState))
	}
	var err error
	if f.priority, err = rest.ParseIntParam(r, paramPriority); err != nil {
		return f, err
	}
	for _, d := range []struct {
		name string
		dst  *rest.DateParam
	}{
		{paramDueBefore, &f.dueBefore},
		{paramDueAfter, &f.dueAfter},
		{paramStartedBefore, &f.startedBefore},
		{paramStartedAfter, &f.startedAfter},
		{paramCompletedBefore, &f.completedBefore},
		{paramCompletedAfter, &f.completedAfter},
	} {
		if *d.dst, err = rest.ParseDateParam(r, d.name); err != nil {
			return f, err
		}
	}
	return f, nil
}

func (f workflowFilter) matches(wi *domain.WorkflowInstance) bool {
	var defName string
	if wi.Definition != nil {
		defName = wi.Definition.Name
	}
	if f.exclude.IsMatch(defName) {
		return false
	}
	if f.definitionName != "" && f.definitionName != defName {
		return false
	}
	if f.initiator != "" && (f.initiatorRef.IsZero() || wi.Initiator != f.initiatorRef) {
		return false
	}
	if f.priority != nil && (wi.Priority == nil || *wi.Priority != *f.priority) {
		return false
	}
	return f.dueBefore.Before(wi.DueDate) && f.dueAfter.After(wi.DueDate) &&
		f.startedBefore.Before(&wi.StartDate) && f.startedAfter.After(&wi.StartDate) &&
		f.completedBefore.Before(wi.EndDate) && f.completedAfter.After(wi.EndDate)
}

func (c *WorkflowInstancesController) findWorkflows(ctx context.Context, definitionID, state string) ([]*domain.WorkflowInstance, error) {
	switch state {
	case stateActive:
		return c.Workflows.GetActiveWorkflows(ctx, definitionID)
	case stateCompleted:
		return c.Workflows.GetCompletedWorkflows(ctx, definitionID)
	}
	return c.Workflows.GetWorkflows(ctx, definitionID)
}

func (c *WorkflowInstancesController) handleGetWorkflowInstances(w http.ResponseWriter, r *http.Request) {
	c.listWorkflows(w, r, "")
}

func (c *WorkflowInstancesController) handleGetDefinitionWorkflowInstances(w http.ResponseWriter, r *http.Request) {
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
	c.listWorkflows(w, r, id)
}

func (c *WorkflowInstancesController) listWorkflows(w http.ResponseWriter, r *http.Request, definitionID string) {
	ctx := r.Context()
	filter, err := parseWorkflowFilter(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	page, err := rest.ParsePaging(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	if filter.initiator != "" {
		p, err := c.People.GetPerson(ctx, filter.initiator)
		if err != nil {
			writeError(w, err)
			return
		}
		if p != nil {
			filter.initiatorRef = p.NodeRef
		}
	}

	workflows, err := c.findWorkflows(ctx, definitionID, filter.state)
	if err != nil {
		slog.Error("Failed to query workflows", "error", err)
		writeError(w, err)
		return
	}
	workflows = slice.Filter(workflows, func(_ int, wi *domain.WorkflowInstance) bool { return filter.matches(wi) })
	rest.SortByDueDate(workflows,
		func(wi *domain.WorkflowInstance) *time.Time { return wi.DueDate },
		func(wi *domain.WorkflowInstance) string { return wi.ID })

	window, paging := rest.ApplyPaging(workflows, page)
	models, err := c.buildInstances(ctx, window)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteList(w, models, paging)
}

func (c *WorkflowInstancesController) buildInstances(ctx context.Context, instances []*domain.WorkflowInstance) ([]*modelbuilder.WorkflowInstanceModel, error) {
	models := make([]*modelbuilder.WorkflowInstanceModel, 0, len(instances))
	for _, wi := range instances {
		m, err := c.Builder.BuildWorkflowInstance(ctx, wi)
		if err != nil {
			slog.Error("Failed to build workflow model", "workflowId", wi.ID, "error", err)
			return nil, err
		}
		models = append(models, m)
	}
	return models, nil
}

func (c *WorkflowInstancesController) getWorkflow(w http.ResponseWriter, r *http.Request) *domain.WorkflowInstance {
	id := r.PathValue("id")
	wi, err := c.Workflows.GetWorkflowByID(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get workflow", "workflowId", id, "error", err)
		writeError(w, err)
		return nil
	}
	if wi == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "Unable to find workflow instance with id: %s", id))
	}
	return wi
}

func (c *WorkflowInstancesController) handleGetWorkflowInstance(w http.ResponseWriter, r *http.Request) {
	includeTasks, err := rest.BoolParam(r, paramIncludeTasks)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	wi := c.getWorkflow(w, r)
	if wi == nil {
		return
	}
	m, err := c.Builder.BuildWorkflowInstanceDetailed(r.Context(), wi, includeTasks)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteData(w, m)
}

// handleDeleteWorkflowInstance cancels the workflow, or removes it entirely with forced=true.
func (c *WorkflowInstancesController) handleDeleteWorkflowInstance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	forced, err := rest.BoolParam(r, paramForced)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	wi := c.getWorkflow(w, r)
	if wi == nil {
		return
	}
	allowed, err := c.Workflows.CanUserEndWorkflow(ctx, wi, core.Username(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	action := "end"
	if forced {
		action = "delete"
	}
	if !allowed {
		rest.WriteError(w, rest.NewScriptError(http.StatusForbidden, "Failed to %s workflow instance with id: %s", action, wi.ID))
		return
	}
	if forced {
		err = c.Workflows.DeleteWorkflow(ctx, wi.ID)
	} else {
		_, err = c.Workflows.CancelWorkflow(ctx, wi.ID)
	}
	if err != nil {
		slog.Error("Failed to "+action+" workflow", "workflowId", wi.ID, "error", err)
		writeError(w, err)
		return
	}
	util.WriteJSONResponse(w, http.StatusOK, map[string]any{})
}

// handleGetNodeWorkflowInstances lists the active workflows whose package contains the node.
func (c *WorkflowInstancesController) handleGetNodeWorkflowInstances(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	ref := domain.NodeRef{
		StoreProtocol: r.PathValue("store_type"),
		StoreID:       r.PathValue("store_id"),
		ID:            r.PathValue("id"),
	}
	exists, err := c.Nodes.Exists(ctx, ref)
	if err != nil {
		writeError(w, err)
		return
	}
	if !exists {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "Unable to find node: %s", ref))
		return
	}
	workflows, err := c.Workflows.GetWorkflowsForContent(ctx, ref, true)
	if err != nil {
		slog.Error("Failed to get workflows for node", "nodeRef", ref.String(), "error", err)
		writeError(w, err)
		return
	}
	models, err := c.buildInstances(ctx, workflows)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteData(w, models)
}
