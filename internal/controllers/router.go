package controllers

import (
	"net/http"

	"github.com/RealZimboGuy/workflowrest/internal/tracing"
)

// handle registers h under pattern inside a server span named after the pattern.
func handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, tracing.Middleware(pattern, h))
}

func (c *AuthController) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, "POST /api/login", c.handleLogin)
	handle(mux, "POST /api/logout", c.handleLogout)
}

func (c *UsersController) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, "GET /api/users", c.RequireAuth(c.requireAdmin(c.handleGetUsers)))
	handle(mux, "POST /api/users", c.RequireAuth(c.requireAdmin(c.handleCreateUser)))
	handle(mux, "GET /api/users/{id}", c.RequireAuth(c.requireAdmin(c.handleGetUserById)))
	handle(mux, "DELETE /api/users/{id}", c.RequireAuth(c.requireAdmin(c.handleDeleteUser)))
}

func (c *TaskInstancesController) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, "GET /api/task-instances", c.RequireAuth(c.handleGetTaskInstances))
	handle(mux, "GET /api/task-instances/{id}", c.RequireAuth(c.handleGetTaskInstance))
	handle(mux, "PUT /api/task-instances/{id}", c.RequireAuth(c.handleUpdateTaskInstance))
	handle(mux, "GET /api/workflow-instances/{id}/task-instances", c.RequireAuth(c.handleGetWorkflowTaskInstances))
}

func (c *WorkflowInstancesController) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, "GET /api/workflow-instances", c.RequireAuth(c.handleGetWorkflowInstances))
	handle(mux, "GET /api/workflow-instances/{id}", c.RequireAuth(c.handleGetWorkflowInstance))
	handle(mux, "DELETE /api/workflow-instances/{id}", c.RequireAuth(c.handleDeleteWorkflowInstance))
	handle(mux, "GET /api/workflow-definitions/{id}/workflow-instances", c.RequireAuth(c.handleGetDefinitionWorkflowInstances))
	handle(mux, "GET /api/node/{store_type}/{store_id}/{id}/workflow-instances", c.RequireAuth(c.handleGetNodeWorkflowInstances))
}

func (c *WorkflowDefinitionsController) RegisterRoutes(mux *http.ServeMux) {
	handle(mux, "GET /api/workflow-definitions", c.RequireAuth(c.handleGetDefinitions))
	handle(mux, "GET /api/workflow-definitions/{id}", c.RequireAuth(c.handleGetDefinition))
}
