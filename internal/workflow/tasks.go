package workflow

import (
	"context"
	"fmt"

	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/duke-git/lancet/v2/slice"
)

// TaskQuery selects tasks for QueryTasks. Zero values match everything.
type TaskQuery struct {
	InstanceID string
	ActorID    string
	State      domain.TaskState
}

func (s *Service) searchTasks(ctx context.Context, search repository.TaskSearch) ([]*domain.WorkflowTask, error) {
	stored, err := s.tasks.Search(ctx, search)
	if err != nil {
		return nil, err
	}
	return s.newLoader().tasks(ctx, stored)
}

// GetTaskByID returns nil when the task does not exist.
func (s *Service) GetTaskByID(ctx context.Context, id string) (*domain.WorkflowTask, error) {
	st, err := s.tasks.FindByID(ctx, id)
	if err != nil || st == nil {
		return nil, err
	}
	return s.newLoader().task(ctx, st)
}

// GetAssignedTasks returns the tasks owned by authority in the given state.
func (s *Service) GetAssignedTasks(ctx context.Context, authority string, state domain.TaskState) ([]*domain.WorkflowTask, error) {
	return s.searchTasks(ctx, repository.TaskSearch{Owner: authority, State: state})
}

// GetPooledTasks returns unclaimed in-progress tasks offered to the person or to one of their groups.
func (s *Service) GetPooledTasks(ctx context.Context, authority string) ([]*domain.WorkflowTask, error) {
	actors, err := s.actorRefs(ctx, authority)
	if err != nil {
		return nil, err
	}
	if len(actors) == 0 {
		return []*domain.WorkflowTask{}, nil
	}
	return s.searchTasks(ctx, repository.TaskSearch{
		State:        domain.TaskStateInProgress,
		PooledActors: actors,
		Unclaimed:    true,
	})
}

// actorRefs returns the person node of authority and the nodes of every group containing it.
func (s *Service) actorRefs(ctx context.Context, authority string) ([]domain.NodeRef, error) {
	var refs []domain.NodeRef
	p, err := s.people.GetPerson(ctx, authority)
	if err != nil {
		return nil, err
	}
	if p != nil {
		refs = append(refs, p.NodeRef)
	}
	groups, err := s.authorities.GetContainingAuthorities(ctx, authority)
	if err != nil {
		return nil, err
	}
	for _, name := range groups {
		g, err := s.authorities.GetGroup(ctx, name)
		if err != nil {
			return nil, err
		}
		if g != nil {
			refs = append(refs, g.Ref)
		}
	}
	return refs, nil
}

func (s *Service) QueryTasks(ctx context.Context, q TaskQuery) ([]*domain.WorkflowTask, error) {
	return s.searchTasks(ctx, repository.TaskSearch{InstanceID: q.InstanceID, Owner: q.ActorID, State: q.State})
}

// GetStartTask returns the start task of a workflow, nil when it has none.
func (s *Service) GetStartTask(ctx context.Context, workflowID string) (*domain.WorkflowTask, error) {
	tasks, err := s.QueryTasks(ctx, TaskQuery{InstanceID: workflowID})
	if err != nil {
		return nil, err
	}
	for _, t := range tasks {
		if t.Definition != nil && t.Definition.IsStart {
			return t, nil
		}
	}
	return nil, nil
}

// UpdateTask merges props into the task. A nil value removes the property. add and remove
// change multi-valued associations such as bpm:pooledActors.
func (s *Service) UpdateTask(ctx context.Context, taskID string, props map[domain.QName]any,
	add, remove map[domain.QName][]domain.NodeRef) (*domain.WorkflowTask, error) {
	st, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	if st.State != domain.TaskStateInProgress {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotInProgress, taskID)
	}
	if st.Properties == nil {
		st.Properties = map[domain.QName]any{}
	}
	for name, value := range props {
		if value == nil {
			delete(st.Properties, name)
			continue
		}
		st.Properties[name] = value
	}
	for name, refs := range add {
		current := refList(st.Properties[name])
		for _, ref := range refs {
			if !slice.Contain(current, ref) {
				current = append(current, ref)
			}
		}
		st.Properties[name] = current
	}
	for name, refs := range remove {
		current := slice.Filter(refList(st.Properties[name]), func(_ int, ref domain.NodeRef) bool {
			return !slice.Contain(refs, ref)
		})
		if len(current) == 0 {
			delete(st.Properties, name)
		} else {
			st.Properties[name] = current
		}
	}
	if d, ok := st.Properties[domain.PropDescription].(string); ok {
		st.Description = d
	}
	if err := s.tasks.Update(ctx, st.WorkflowTask); err != nil {
		return nil, fmt.Errorf("update task %s: %w", taskID, err)
	}
	return s.newLoader().task(ctx, st)
}

func refList(v any) []domain.NodeRef {
	switch refs := v.(type) {
	case []domain.NodeRef:
		return append([]domain.NodeRef(nil), refs...)
	case domain.NodeRef:
		return []domain.NodeRef{refs}
	case []any:
		out := make([]domain.NodeRef, 0, len(refs))
		for _, item := range refs {
			if ref, ok := item.(domain.NodeRef); ok {
				out = append(out, ref)
			}
		}
		return out
	}
	return nil
}
