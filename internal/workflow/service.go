package workflow

import (
	"context"
	"fmt"
	"strings"

	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// Service is the workflow façade used by the REST controllers. It keeps definitions, instances
// and tasks in the store and walks the definition graph when a task ends.
type Service struct {
	definitions DefinitionRepo
	instances   InstanceRepo
	tasks       TaskRepo
	people      People
	authorities Authorities
	nodes       Nodes
	dictionary  *dictionary.Service
	clock       core.Clock
	tx          Transactor
}

func NewService(definitions DefinitionRepo, instances InstanceRepo, tasks TaskRepo, people People,
	authorities Authorities, nodes Nodes, dict *dictionary.Service, clock core.Clock, tx Transactor) *Service {
	return &Service{
		definitions: definitions,
		instances:   instances,
		tasks:       tasks,
		people:      people,
		authorities: authorities,
		nodes:       nodes,
		dictionary:  dict,
		clock:       clock,
		tx:          tx,
	}
}

// enginePrefix returns the "activiti$" part of a definition id, "" when there is none.
func enginePrefix(definitionID string) string {
	if i := strings.Index(definitionID, "$"); i >= 0 {
		return definitionID[:i+1]
	}
	return ""
}

// DeployDefinition stores a definition and replaces its task definitions.
func (s *Service) DeployDefinition(ctx context.Context, def *domain.WorkflowDefinition, taskDefs []*domain.WorkflowTaskDefinition) error {
	if def.Created.IsZero() {
		def.Created = s.clock.Now().UTC()
	}
	if err := s.definitions.Save(ctx, def); err != nil {
		return fmt.Errorf("save definition %s: %w", def.ID, err)
	}
	if err := s.definitions.SaveTaskDefinitions(ctx, def.ID, taskDefs); err != nil {
		return fmt.Errorf("save task definitions of %s: %w", def.ID, err)
	}
	return nil
}

// GetDefinitions returns the latest version of every deployed definition.
func (s *Service) GetDefinitions(ctx context.Context) ([]*domain.WorkflowDefinition, error) {
	all, err := s.definitions.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	latest := map[string]int{}
	out := make([]*domain.WorkflowDefinition, 0, len(all))
	for _, def := range all {
		if i, ok := latest[def.Name]; ok {
			out[i] = def
			continue
		}
		latest[def.Name] = len(out)
		out = append(out, def)
	}
	l := s.newLoader()
	for _, def := range out {
		if err := l.attachStartTask(ctx, def); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// GetDefinitionByID returns nil when no definition has the id.
func (s *Service) GetDefinitionByID(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	return s.newLoader().definition(ctx, id)
}

// GetDefinitionByName returns the latest version deployed under name, nil when none.
func (s *Service) GetDefinitionByName(ctx context.Context, name string) (*domain.WorkflowDefinition, error) {
	def, err := s.definitions.FindLatestByName(ctx, name)
	if err != nil || def == nil {
		return nil, err
	}
	if err := s.newLoader().attachStartTask(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

// GetTaskDefinitions returns the task definitions of a workflow definition, start task first.
func (s *Service) GetTaskDefinitions(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error) {
	return s.newLoader().taskDefinitions(ctx, definitionID)
}

func (s *Service) searchInstances(ctx context.Context, search repository.InstanceSearch) ([]*domain.WorkflowInstance, error) {
	found, err := s.instances.Search(ctx, search)
	if err != nil {
		return nil, err
	}
	return s.newLoader().attachDefinitions(ctx, found)
}

// GetWorkflows returns active and completed instances. An empty definition id matches every definition.
func (s *Service) GetWorkflows(ctx context.Context, definitionID string) ([]*domain.WorkflowInstance, error) {
	return s.searchInstances(ctx, repository.InstanceSearch{DefinitionID: definitionID})
}

func (s *Service) GetActiveWorkflows(ctx context.Context, definitionID string) ([]*domain.WorkflowInstance, error) {
	active := true
	return s.searchInstances(ctx, repository.InstanceSearch{DefinitionID: definitionID, Active: &active})
}

func (s *Service) GetCompletedWorkflows(ctx context.Context, definitionID string) ([]*domain.WorkflowInstance, error) {
	active := false
	return s.searchInstances(ctx, repository.InstanceSearch{DefinitionID: definitionID, Active: &active})
}

// GetWorkflowByID returns nil when the instance does not exist.
func (s *Service) GetWorkflowByID(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	return s.newLoader().instance(ctx, id)
}

// GetWorkflowsForContent returns the instances whose package contains the node.
func (s *Service) GetWorkflowsForContent(ctx context.Context, ref domain.NodeRef, active bool) ([]*domain.WorkflowInstance, error) {
	found, err := s.instances.FindByPackageItem(ctx, ref, &active)
	if err != nil {
		return nil, err
	}
	return s.newLoader().attachDefinitions(ctx, found)
}
