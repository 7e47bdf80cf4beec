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
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/duke-git/lancet/v2/slice"
)

const (
	paramAuthority   = "authority"
	paramState       = "state"
	paramPriority    = "priority"
	paramPooledTasks = "pooledTasks"
	paramDueBefore   = "dueBefore"
	paramDueAfter    = "dueAfter"
	paramProperties  = "properties"
	paramExclude     = "exclude"
)

type TaskInstancesController struct {
	AuthController
	Workflows WorkflowService
	Builder   *modelbuilder.WorkflowModelBuilder
}

func NewTaskInstancesController(userRepo UserRepo, workflows WorkflowService, builder *modelbuilder.WorkflowModelBuilder) *TaskInstancesController {
	return &TaskInstancesController{
		AuthController: AuthController{UserRepo: userRepo},
		Workflows:      workflows,
		Builder:        builder,
	}
}

// taskFilter holds the in-memory conditions of a task list request.
type taskFilter struct {
	priority  *int
	dueBefore rest.DateParam
	dueAfter  rest.DateParam
	exclude   *rest.ExcludeFilter
}

func parseTaskFilter(r *http.Request) (taskFilter, error) {
	var f taskFilter
	var err error
	if f.priority, err = rest.ParseIntParam(r, paramPriority); err != nil {
		return f, err
	}
	if f.dueBefore, err = rest.ParseDateParam(r, paramDueBefore); err != nil {
		return f, err
	}
	if f.dueAfter, err = rest.ParseDateParam(r, paramDueAfter); err != nil {
		return f, err
	}
	f.exclude = rest.ParseExcludeFilter(r, paramExclude)
	return f, nil
}

func (f taskFilter) matches(t *domain.WorkflowTask) bool {
	if f.exclude.IsMatch(t.Name) {
		return false
	}
	if f.priority != nil {
		p := t.Priority()
		if p == nil || *p != *f.priority {
			return false
		}
	}
	due := t.DueDate()
	return f.dueBefore.Before(due) && f.dueAfter.After(due)
}

func parseStateParam(r *http.Request) (*domain.TaskState, error) {
	v := strings.TrimSpace(r.URL.Query().Get(paramState))
	if v == "" {
		return nil, nil
	}
	state, err := domain.ParseTaskState(v)
	if err != nil {
		return nil, rest.NewScriptError(http.StatusBadRequest, "Unrecognised State parameter: %s", v)
	}
	return &state, nil
}

// propertyFilter reads the comma separated list of property keys to include in each task.
func propertyFilter(r *http.Request) []string {
	v := r.URL.Query().Get(paramProperties)
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return slice.Filter(strings.Split(v, ","), func(_ int, key string) bool {
		return strings.TrimSpace(key) != ""
	})
}

// findTasks selects the candidate tasks before filtering.
func (c *TaskInstancesController) findTasks(ctx context.Context, workflowID, authority string,
	state *domain.TaskState, pooled *bool) ([]*domain.WorkflowTask, error) {
	if workflowID != "" || authority == "" {
		q := workflow.TaskQuery{InstanceID: workflowID, ActorID: authority}
		if state != nil {
			q.State = *state
		}
		return c.Workflows.QueryTasks(ctx, q)
	}
	if state != nil && *state == domain.TaskStateCompleted {
		return c.Workflows.GetAssignedTasks(ctx, authority, domain.TaskStateCompleted)
	}
	var tasks []*domain.WorkflowTask
	if pooled == nil || !*pooled {
		assigned, err := c.Workflows.GetAssignedTasks(ctx, authority, domain.TaskStateInProgress)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, assigned...)
	}
	if pooled == nil || *pooled {
		pooledTasks, err := c.Workflows.GetPooledTasks(ctx, authority)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, pooledTasks...)
	}
	return tasks, nil
}

func (c *TaskInstancesController) handleGetTaskInstances(w http.ResponseWriter, r *http.Request) {
	c.listTasks(w, r, "")
}

func (c *TaskInstancesController) handleGetWorkflowTaskInstances(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wi, err := c.Workflows.GetWorkflowByID(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get workflow", "workflowId", id, "error", err)
		writeError(w, err)
		return
	}
	// a missing workflow is a 404 like the other workflow-instances routes, never a 500
	if wi == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "Unable to find workflow instance with id: %s", id))
		return
	}
	c.listTasks(w, r, id)
}

func (c *TaskInstancesController) listTasks(w http.ResponseWriter, r *http.Request, workflowID string) {
	ctx := r.Context()
	state, err := parseStateParam(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	pooled, err := rest.ParseBoolParam(r, paramPooledTasks)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	filter, err := parseTaskFilter(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}
	page, err := rest.ParsePaging(r)
	if err != nil {
		rest.WriteError(w, err)
		return
	}

	authority := strings.TrimSpace(r.URL.Query().Get(paramAuthority))
	tasks, err := c.findTasks(ctx, workflowID, authority, state, pooled)
	if err != nil {
		slog.Error("Failed to query tasks", "error", err)
		writeError(w, err)
		return
	}
	tasks = slice.Filter(tasks, func(_ int, t *domain.WorkflowTask) bool { return filter.matches(t) })
	rest.SortByDueDate(tasks,
		func(t *domain.WorkflowTask) *time.Time { return t.DueDate() },
		func(t *domain.WorkflowTask) string { return t.ID })

	window, paging := rest.ApplyPaging(tasks, page)
	props := propertyFilter(r)
	models := make([]*modelbuilder.TaskModel, 0, len(window))
	for _, t := range window {
		m, err := c.Builder.BuildTask(ctx, t, props)
		if err != nil {
			slog.Error("Failed to build task model", "taskId", t.ID, "error", err)
			writeError(w, err)
			return
		}
		models = append(models, m)
	}
	rest.WriteList(w, models, paging)
}

func (c *TaskInstancesController) handleGetTaskInstance(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	task, err := c.Workflows.GetTaskByID(r.Context(), id)
	if err != nil {
		slog.Error("Failed to get task", "taskId", id, "error", err)
		writeError(w, err)
		return
	}
	if task == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "Unable to find workflow task with id: %s", id))
		return
	}
	m, err := c.Builder.BuildTaskDetailed(r.Context(), task)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteData(w, m)
}

// handleUpdateTaskInstance applies a JSON object of task properties. Setting cm_owner claims,
// reassigns or (with null) releases the task.
func (c *TaskInstancesController) handleUpdateTaskInstance(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := r.PathValue("id")
	task, err := c.Workflows.GetTaskByID(ctx, id)
	if err != nil {
		slog.Error("Failed to get task", "taskId", id, "error", err)
		writeError(w, err)
		return
	}
	if task == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusNotFound, "Unable to find workflow task with id: %s", id))
		return
	}
	editable, err := c.Workflows.IsTaskEditable(ctx, task, core.Username(ctx))
	if err != nil {
		writeError(w, err)
		return
	}
	if !editable {
		rest.WriteError(w, rest.NewScriptError(http.StatusUnauthorized, "Failed to update workflow task with id: %s", id))
		return
	}
	body, err := util.DecodeJSONBody[map[string]any](r)
	if err != nil || body == nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "Could not parse JSON from request"))
		return
	}
	add, remove, err := c.Builder.SplitAssociationChanges(body)
	if err != nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "%s", err.Error()))
		return
	}
	props, err := c.Builder.ParseTaskProperties(task, body)
	if err != nil {
		rest.WriteError(w, rest.NewScriptError(http.StatusBadRequest, "%s", err.Error()))
		return
	}
	updated, err := c.Workflows.UpdateTask(ctx, id, props, add, remove)
	if err != nil {
		slog.Error("Failed to update task", "taskId", id, "error", err)
		writeError(w, err)
		return
	}
	m, err := c.Builder.BuildTaskDetailed(ctx, updated)
	if err != nil {
		writeError(w, err)
		return
	}
	rest.WriteData(w, m)
}
