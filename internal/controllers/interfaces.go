package controllers

import (
	"context"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

type UserRepo interface {
	FindBySessionID(ctx context.Context, sessionID string, now time.Time) (*domain.User, error)
	FindByApiKey(ctx context.Context, apiKey string) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindById(ctx context.Context, id int64) (*domain.User, error)
	FindAll(ctx context.Context) ([]domain.User, error)
	DeleteById(ctx context.Context, id int64) error
	UpdateSession(ctx context.Context, userID int64, sessionID string, expiry time.Time) error
	ClearSessionBySessionID(ctx context.Context, sessionID string) error
}

// WorkflowService is the workflow façade the REST endpoints call.
type WorkflowService interface {
	GetDefinitions(ctx context.Context) ([]*domain.WorkflowDefinition, error)
	GetDefinitionByID(ctx context.Context, id string) (*domain.WorkflowDefinition, error)

	GetWorkflows(ctx context.Context, definitionID string) ([]*domain.WorkflowInstance, error)
	GetActiveWorkflows(ctx context.Context, definitionID string) ([]*domain.WorkflowInstance, error)
	GetCompletedWorkflows(ctx context.Context, definitionID string) ([]*domain.WorkflowInstance, error)
	GetWorkflowByID(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	GetWorkflowsForContent(ctx context.Context, ref domain.NodeRef, active bool) ([]*domain.WorkflowInstance, error)
	CancelWorkflow(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	DeleteWorkflow(ctx context.Context, id string) error
	CanUserEndWorkflow(ctx context.Context, wi *domain.WorkflowInstance, username string) (bool, error)

	GetTaskByID(ctx context.Context, id string) (*domain.WorkflowTask, error)
	GetAssignedTasks(ctx context.Context, authority string, state domain.TaskState) ([]*domain.WorkflowTask, error)
	GetPooledTasks(ctx context.Context, authority string) ([]*domain.WorkflowTask, error)
	QueryTasks(ctx context.Context, q workflow.TaskQuery) ([]*domain.WorkflowTask, error)
	IsTaskEditable(ctx context.Context, task *domain.WorkflowTask, username string) (bool, error)
	UpdateTask(ctx context.Context, taskID string, props map[domain.QName]any,
		add, remove map[domain.QName][]domain.NodeRef) (*domain.WorkflowTask, error)
}

type People interface {
	GetPerson(ctx context.Context, username string) (*domain.Person, error)
}

type Nodes interface {
	Exists(ctx context.Context, ref domain.NodeRef) (bool, error)
}

type Authorities interface {
	IsAdminAuthority(ctx context.Context, username string) (bool, error)
}

// Accounts creates the person node and API user behind a login.
type Accounts interface {
	EnsureAccount(ctx context.Context, d people.PersonDetails, password string) (*domain.Person, *domain.User, error)
}
