package workflow

import (
	"context"

	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// DefinitionRepo matches repository.DefinitionRepository.
type DefinitionRepo interface {
	Save(ctx context.Context, def *domain.WorkflowDefinition) error
	SaveTaskDefinitions(ctx context.Context, definitionID string, defs []*domain.WorkflowTaskDefinition) error
	FindByID(ctx context.Context, id string) (*domain.WorkflowDefinition, error)
	FindLatestByName(ctx context.Context, name string) (*domain.WorkflowDefinition, error)
	FindAll(ctx context.Context) ([]*domain.WorkflowDefinition, error)
	FindTaskDefinitions(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error)
}

// InstanceRepo matches repository.InstanceRepository.
type InstanceRepo interface {
	Save(ctx context.Context, wi *domain.WorkflowInstance) error
	Update(ctx context.Context, wi *domain.WorkflowInstance) error
	FindByID(ctx context.Context, id string) (*domain.WorkflowInstance, error)
	Search(ctx context.Context, s repository.InstanceSearch) ([]*domain.WorkflowInstance, error)
	FindByPackageItem(ctx context.Context, item domain.NodeRef, active *bool) ([]*domain.WorkflowInstance, error)
	Delete(ctx context.Context, id string) error
}

// TaskRepo matches repository.TaskRepository.
type TaskRepo interface {
	Save(ctx context.Context, st *repository.StoredTask) error
	Update(ctx context.Context, t *domain.WorkflowTask) error
	FindByID(ctx context.Context, id string) (*repository.StoredTask, error)
	Search(ctx context.Context, s repository.TaskSearch) ([]*repository.StoredTask, error)
}

// Transactor runs fn in one store transaction, see repository.Transactor.
type Transactor interface {
	Transaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// People resolves users, see people.PersonService.
type People interface {
	GetPerson(ctx context.Context, username string) (*domain.Person, error)
	GetPersonByRef(ctx context.Context, ref domain.NodeRef) (*domain.Person, error)
}

// Authorities answers group questions, see people.AuthorityService.
type Authorities interface {
	IsAdminAuthority(ctx context.Context, username string) (bool, error)
	GetContainingAuthorities(ctx context.Context, authority string) ([]string, error)
	GetGroup(ctx context.Context, name string) (*domain.Node, error)
	AuthorityName(ctx context.Context, ref domain.NodeRef) (string, error)
}

// Nodes is the part of people.NodeService the workflow service needs.
type Nodes interface {
	GetNode(ctx context.Context, ref domain.NodeRef) (*domain.Node, error)
	CreateNode(ctx context.Context, typeName domain.QName, name string, props map[domain.QName]any) (*domain.Node, error)
	AddChild(ctx context.Context, parent, child domain.NodeRef) error
}
