package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/idgen"
	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// OutcomeCancelled is recorded on tasks that were still open when their workflow was cancelled.
const OutcomeCancelled = "cancelled"

const statusCompleted = "Completed"

// CreatePackage creates an empty bpm:package node to hold the workflow's content.
func (s *Service) CreatePackage(ctx context.Context) (domain.NodeRef, error) {
	n, err := s.nodes.CreateNode(ctx, domain.TypePackage, "package", nil)
	if err != nil {
		return domain.NodeRef{}, fmt.Errorf("create package: %w", err)
	}
	return n.Ref, nil
}

// AddPackageItem places a content node in a workflow package.
func (s *Service) AddPackageItem(ctx context.Context, pkg, item domain.NodeRef) error {
	return s.nodes.AddChild(ctx, pkg, item)
}

// StartWorkflow creates an instance of the definition for the user on ctx, together with its
// in-progress start task. params become start task properties. bpm:workflowDescription,
// bpm:workflowPriority and bpm:workflowDueDate also describe the instance.
func (s *Service) StartWorkflow(ctx context.Context, definitionID string, params map[domain.QName]any) (*domain.WorkflowPath, error) {
	l := s.newLoader()
	def, err := l.definition(ctx, definitionID)
	if err != nil {
		return nil, err
	}
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrDefinitionNotFound, definitionID)
	}
	if def.StartTaskDefinition == nil {
		return nil, fmt.Errorf("%w: definition %s has no start task", ErrInvalidTransition, definitionID)
	}
	now := s.clock.Now().UTC()
	wi := &domain.WorkflowInstance{
		ID:           enginePrefix(def.ID) + idgen.New(),
		DefinitionID: def.ID,
		Definition:   def,
		PathID:       idgen.New(),
		Active:       true,
		StartDate:    now,
	}
	username := core.Username(ctx)
	if username != "" {
		p, err := s.people.GetPerson(ctx, username)
		if err != nil {
			return nil, err
		}
		if p != nil {
			wi.Initiator = p.NodeRef
			wi.InitiatorHome = p.HomeFolder
		}
	}
	if ref, ok := params[domain.PropPackage].(domain.NodeRef); ok && !ref.IsZero() {
		wi.Package = ref
	}
	if ref, ok := params[domain.PropContext].(domain.NodeRef); ok {
		wi.Context = ref
	}

	start := s.newTask(wi, def.StartTaskDefinition, now)
	for name, value := range params {
		if value != nil {
			start.Properties[name] = value
		}
	}
	if d, ok := start.Properties[domain.PropWorkflowDescription].(string); ok && d != "" {
		wi.Description = d
	} else if d, ok := params[domain.PropDescription].(string); ok {
		wi.Description = d
	}
	wi.Priority = intValue(start.Properties[domain.PropWorkflowPriority])
	if d, ok := start.Properties[domain.PropWorkflowDueDate].(time.Time); ok {
		due := d.UTC()
		wi.DueDate = &due
	}
	if wi.Description != "" {
		start.Description = wi.Description
		start.Properties[domain.PropDescription] = wi.Description
	}
	if username != "" {
		start.Properties[domain.PropOwner] = username
	}

	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if wi.Package.IsZero() {
			pkg, err := s.CreatePackage(ctx)
			if err != nil {
				return err
			}
			wi.Package = pkg
			start.Properties[domain.PropPackage] = pkg
		}
		if err := s.instances.Save(ctx, wi); err != nil {
			return fmt.Errorf("save workflow: %w", err)
		}
		if err := s.tasks.Save(ctx, start); err != nil {
			return fmt.Errorf("save start task: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Started workflow", "workflowId", wi.ID, "definition", def.Name, "initiator", username)
	return &domain.WorkflowPath{ID: wi.PathID, Instance: wi, Active: true}, nil
}

// newTask builds an in-progress task for a task node with the type's default property values.
func (s *Service) newTask(wi *domain.WorkflowInstance, td *domain.WorkflowTaskDefinition, now time.Time) *repository.StoredTask {
	props := map[domain.QName]any{}
	for name, def := range s.dictionary.TypeProperties(td.Metadata.Name) {
		if def.Default != nil {
			props[name] = def.Default
		}
	}
	props[domain.PropStartDate] = now
	if !wi.Package.IsZero() {
		props[domain.PropPackage] = wi.Package
	}
	if !wi.Context.IsZero() {
		props[domain.PropContext] = wi.Context
	}
	if wi.Description != "" {
		props[domain.PropDescription] = wi.Description
	}
	if wi.DueDate != nil {
		props[domain.PropDueDate] = *wi.DueDate
	}
	if wi.Priority != nil {
		props[domain.PropPriority] = *wi.Priority
	}
	description := wi.Description
	if description == "" {
		description = td.Metadata.Description
	}
	return &repository.StoredTask{
		WorkflowTask: &domain.WorkflowTask{
			ID:           enginePrefix(wi.DefinitionID) + idgen.New(),
			Name:         s.dictionary.Namespaces().PrefixString(td.Metadata.Name),
			Title:        td.Metadata.Title,
			Description:  description,
			State:        domain.TaskStateInProgress,
			DefinitionID: td.ID,
			Definition:   td,
			Properties:   props,
			Created:      now,
		},
		InstanceID: wi.ID,
		PathID:     wi.PathID,
	}
}

func complete(t *domain.WorkflowTask, outcome string, now time.Time) {
	if t.Properties == nil {
		t.Properties = map[domain.QName]any{}
	}
	t.State = domain.TaskStateCompleted
	t.Completed = &now
	t.Properties[domain.PropCompletionDate] = now
	t.Properties[domain.PropStatus] = statusCompleted
	if outcome != "" {
		t.Properties[domain.PropOutcome] = outcome
	}
}

// EndTask completes an in-progress task and follows the transition. An empty transition id
// follows the default transition. When the transition leads to a task node the next task is
// created and assigned; any other target ends the workflow.
func (s *Service) EndTask(ctx context.Context, taskID, transitionID string) (*domain.WorkflowTask, error) {
	l := s.newLoader()
	st, err := s.tasks.FindByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	task, err := l.task(ctx, st)
	if err != nil {
		return nil, err
	}
	if task.State != domain.TaskStateInProgress {
		return nil, fmt.Errorf("%w: %s", ErrTaskNotInProgress, taskID)
	}
	wi := task.Instance()
	if !wi.Active {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotActive, wi.ID)
	}

	var transition *domain.WorkflowTransition
	if task.Definition != nil {
		transition = task.Definition.Node.Transition(transitionID)
		if transition == nil && (transitionID != "" || len(task.Definition.Node.Transitions) > 0) {
			return nil, fmt.Errorf("%w: %q on task %s", ErrInvalidTransition, transitionID, taskID)
		}
	} else if transitionID != "" {
		return nil, fmt.Errorf("%w: %q on task %s", ErrInvalidTransition, transitionID, taskID)
	}

	var next *repository.StoredTask
	now := s.clock.Now().UTC()
	if transition != nil {
		target, err := l.taskDefinition(ctx, wi.DefinitionID, transition.To)
		if err != nil {
			return nil, err
		}
		if target != nil {
			next = s.newTask(wi, target, now)
			if err := s.assign(ctx, l, next, task); err != nil {
				return nil, err
			}
		}
	}

	outcome := ""
	if transition != nil {
		outcome = transition.ID
	}
	complete(task, outcome, now)
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := s.tasks.Update(ctx, task); err != nil {
			return fmt.Errorf("complete task %s: %w", taskID, err)
		}
		if next != nil {
			if err := s.tasks.Save(ctx, next); err != nil {
				return fmt.Errorf("create task %s: %w", next.DefinitionID, err)
			}
			return nil
		}
		ended := *wi
		ended.Active = false
		ended.EndDate = &now
		if err := s.instances.Update(ctx, &ended); err != nil {
			return fmt.Errorf("end workflow %s: %w", wi.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if next != nil {
		slog.Debug("Workflow moved to task", "workflowId", wi.ID, "task", next.DefinitionID, "owner", next.Owner())
		return task, nil
	}
	wi.Active = false
	wi.EndDate = &now
	slog.Info("Workflow ended", "workflowId", wi.ID)
	return task, nil
}

// assign sets the owner or the pooled actors of next. Assignees are read from the start task
// of the workflow, falling back to the task being completed.
func (s *Service) assign(ctx context.Context, l *loader, next *repository.StoredTask, current *domain.WorkflowTask) error {
	source := current.Properties
	if current.Definition == nil || !current.Definition.IsStart {
		start, err := s.startTaskOf(ctx, l, current.Instance().ID)
		if err != nil {
			return err
		}
		if start != nil {
			source = start.Properties
		}
	}
	assignment := next.Definition.Assignment
	switch assignment {
	case domain.AssignAssignee:
		refs := refList(source[domain.AssocAssignee])
		if len(refs) == 0 {
			return fmt.Errorf("%w: task %s needs bpm:assignee", ErrInvalidTransition, next.DefinitionID)
		}
		p, err := s.people.GetPersonByRef(ctx, refs[0])
		if err != nil {
			return err
		}
		if p == nil {
			return fmt.Errorf("%w: assignee %s is not a person", ErrInvalidTransition, refs[0])
		}
		next.Properties[domain.PropOwner] = p.UserName
		next.Properties[domain.AssocAssignee] = refs[0]
	case domain.AssignGroupAssignee:
		refs := refList(source[domain.AssocGroupAssignee])
		if len(refs) == 0 {
			return fmt.Errorf("%w: task %s needs bpm:groupAssignee", ErrInvalidTransition, next.DefinitionID)
		}
		next.Properties[domain.AssocPooledActors] = refs[:1]
	default:
		initiator, err := s.GetWorkflowInitiatorUsername(ctx, current.Instance())
		if err != nil {
			return err
		}
		if initiator != "" {
			next.Properties[domain.PropOwner] = initiator
		}
	}
	return nil
}

func (s *Service) startTaskOf(ctx context.Context, l *loader, workflowID string) (*domain.WorkflowTask, error) {
	stored, err := s.tasks.Search(ctx, repository.TaskSearch{InstanceID: workflowID})
	if err != nil {
		return nil, err
	}
	tasks, err := l.tasks(ctx, stored)
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

// CancelWorkflow ends an active workflow. Open tasks are completed with outcome "cancelled".
func (s *Service) CancelWorkflow(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	l := s.newLoader()
	wi, err := l.instance(ctx, id)
	if err != nil {
		return nil, err
	}
	if wi == nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if !wi.Active {
		return nil, fmt.Errorf("%w: %s", ErrWorkflowNotActive, id)
	}
	open, err := s.tasks.Search(ctx, repository.TaskSearch{InstanceID: id, State: domain.TaskStateInProgress})
	if err != nil {
		return nil, err
	}
	now := s.clock.Now().UTC()
	wi.Active = false
	wi.EndDate = &now
	err = s.tx.Transaction(ctx, func(ctx context.Context) error {
		for _, st := range open {
			complete(st.WorkflowTask, OutcomeCancelled, now)
			if err := s.tasks.Update(ctx, st.WorkflowTask); err != nil {
				return fmt.Errorf("cancel task %s: %w", st.ID, err)
			}
		}
		if err := s.instances.Update(ctx, wi); err != nil {
			return fmt.Errorf("cancel workflow %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slog.Info("Workflow cancelled", "workflowId", id, "user", core.Username(ctx))
	return wi, nil
}

// DeleteWorkflow removes the instance and all of its tasks whatever their state.
func (s *Service) DeleteWorkflow(ctx context.Context, id string) error {
	wi, err := s.instances.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if wi == nil {
		return fmt.Errorf("%w: %s", ErrWorkflowNotFound, id)
	}
	if err := s.instances.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete workflow %s: %w", id, err)
	}
	slog.Info("Workflow deleted", "workflowId", id, "user", core.Username(ctx))
	return nil
}

func intValue(v any) *int {
	switch n := v.(type) {
	case int:
		return &n
	case int64:
		i := int(n)
		return &i
	case float64:
		i := int(n)
		return &i
	}
	return nil
}
