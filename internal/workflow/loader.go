package workflow

import (
	"context"
	"fmt"

	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// loader resolves the object graph around stored rows: an instance gets its definition, a task
// gets its path, instance and task definition. It memoises lookups for the duration of one call.
type loader struct {
	s           *Service
	instances   map[string]*domain.WorkflowInstance
	definitions map[string]*domain.WorkflowDefinition
	taskDefs    map[string][]*domain.WorkflowTaskDefinition
}

func (s *Service) newLoader() *loader {
	return &loader{
		s:           s,
		instances:   map[string]*domain.WorkflowInstance{},
		definitions: map[string]*domain.WorkflowDefinition{},
		taskDefs:    map[string][]*domain.WorkflowTaskDefinition{},
	}
}

func (l *loader) taskDefinitions(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error) {
	if defs, ok := l.taskDefs[definitionID]; ok {
		return defs, nil
	}
	defs, err := l.s.definitions.FindTaskDefinitions(ctx, definitionID)
	if err != nil {
		return nil, fmt.Errorf("task definitions of %s: %w", definitionID, err)
	}
	for _, td := range defs {
		td.Metadata = l.s.dictionary.TypeDefinition(td.Metadata.Name)
	}
	l.taskDefs[definitionID] = defs
	return defs, nil
}

// taskDefinition returns nil when the definition has no task node with the id.
func (l *loader) taskDefinition(ctx context.Context, definitionID, id string) (*domain.WorkflowTaskDefinition, error) {
	defs, err := l.taskDefinitions(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	for _, td := range defs {
		if td.ID == id {
			return td, nil
		}
	}
	return nil, nil
}

func (l *loader) attachStartTask(ctx context.Context, def *domain.WorkflowDefinition) error {
	defs, err := l.taskDefinitions(ctx, def.ID)
	if err != nil {
		return err
	}
	for _, td := range defs {
		if td.IsStart {
			def.StartTaskDefinition = td
			break
		}
	}
	l.definitions[def.ID] = def
	return nil
}

func (l *loader) definition(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	if def, ok := l.definitions[id]; ok {
		return def, nil
	}
	def, err := l.s.definitions.FindByID(ctx, id)
	if err != nil || def == nil {
		return nil, err
	}
	if err := l.attachStartTask(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (l *loader) attachDefinitions(ctx context.Context, instances []*domain.WorkflowInstance) ([]*domain.WorkflowInstance, error) {
	for _, wi := range instances {
		def, err := l.definition(ctx, wi.DefinitionID)
		if err != nil {
			return nil, err
		}
		wi.Definition = def
		l.instances[wi.ID] = wi
	}
	return instances, nil
}

func (l *loader) instance(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	if wi, ok := l.instances[id]; ok {
		return wi, nil
	}
	wi, err := l.s.instances.FindByID(ctx, id)
	if err != nil || wi == nil {
		return nil, err
	}
	if _, err := l.attachDefinitions(ctx, []*domain.WorkflowInstance{wi}); err != nil {
		return nil, err
	}
	return wi, nil
}

// task links a stored task to its path, instance and task definition.
func (l *loader) task(ctx context.Context, st *repository.StoredTask) (*domain.WorkflowTask, error) {
	wi, err := l.instance(ctx, st.InstanceID)
	if err != nil {
		return nil, err
	}
	if wi == nil {
		return nil, fmt.Errorf("task %s references missing workflow %s", st.ID, st.InstanceID)
	}
	t := st.WorkflowTask
	t.Path = &domain.WorkflowPath{ID: st.PathID, Instance: wi, Active: wi.Active}
	if t.Definition, err = l.taskDefinition(ctx, wi.DefinitionID, t.DefinitionID); err != nil {
		return nil, err
	}
	if t.Title == "" && t.Definition != nil {
		t.Title = t.Definition.Metadata.Title
	}
	return t, nil
}

func (l *loader) tasks(ctx context.Context, stored []*repository.StoredTask) ([]*domain.WorkflowTask, error) {
	out := make([]*domain.WorkflowTask, 0, len(stored))
	for _, st := range stored {
		t, err := l.task(ctx, st)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}
