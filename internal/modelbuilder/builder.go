// Package modelbuilder turns workflow domain objects into the JSON models served by the REST API.
package modelbuilder

import (
	"context"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/viant/toolbox"
)

const (
	taskInstancesURL       = "api/task-instances/"
	taskDefinitionsURL     = "api/task-definitions/"
	workflowInstancesURL   = "api/workflow-instances/"
	workflowDefinitionsURL = "api/workflow-definitions/"
	workflowPathsURL       = "api/workflow-paths/"
	classesURL             = "api/classes/"
)

// Workflows is the part of workflow.Service the builder reads from.
type Workflows interface {
	Permissions(ctx context.Context, task *domain.WorkflowTask, username string) (workflow.TaskPermissions, error)
	GetStartTask(ctx context.Context, workflowID string) (*domain.WorkflowTask, error)
	GetTaskDefinitions(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error)
	QueryTasks(ctx context.Context, q workflow.TaskQuery) ([]*domain.WorkflowTask, error)
}

type People interface {
	GetPerson(ctx context.Context, username string) (*domain.Person, error)
	GetPersonByRef(ctx context.Context, ref domain.NodeRef) (*domain.Person, error)
}

type WorkflowModelBuilder struct {
	dictionary *dictionary.Service
	namespaces *dictionary.NamespaceService
	workflows  Workflows
	people     People
}

func NewWorkflowModelBuilder(dict *dictionary.Service, workflows Workflows, people People) *WorkflowModelBuilder {
	return &WorkflowModelBuilder{dictionary: dict, namespaces: dict.Namespaces(), workflows: workflows, people: people}
}

// PropertyKey turns a QName into its JSON key: bpm:priority becomes bpm_priority.
func (b *WorkflowModelBuilder) PropertyKey(q domain.QName) string {
	return strings.Replace(b.namespaces.PrefixString(q), ":", "_", 1)
}

// ResolveKey is the reverse of PropertyKey. Only the first underscore separates prefix and name.
func (b *WorkflowModelBuilder) ResolveKey(key string) (domain.QName, error) {
	return b.namespaces.ResolveQName(strings.Replace(key, "_", ":", 1))
}

func classURL(prefixed string) string {
	return classesURL + strings.Replace(prefixed, ":", "_", 1)
}

func formatDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := dictionary.FormatISO8601(*t)
	return &s
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func optionalRef(ref domain.NodeRef) *string {
	if ref.IsZero() {
		return nil
	}
	return optionalString(ref.String())
}

// BuildPerson returns nil for a missing person.
func (b *WorkflowModelBuilder) BuildPerson(p *domain.Person) *PersonModel {
	if p == nil {
		return nil
	}
	return &PersonModel{UserName: p.UserName, FirstName: p.FirstName, LastName: p.LastName}
}

func (b *WorkflowModelBuilder) personByName(ctx context.Context, username string) (*PersonModel, error) {
	if username == "" {
		return nil, nil
	}
	p, err := b.people.GetPerson(ctx, username)
	if err != nil {
		return nil, err
	}
	return b.BuildPerson(p), nil
}

// ConvertValue makes a property value JSON safe. Strings, numbers and booleans pass through,
// collections convert element-wise and anything else becomes a string.
func (b *WorkflowModelBuilder) ConvertValue(v any) any {
	switch value := v.(type) {
	case nil:
		return nil
	case string, bool, int, int32, int64, float32, float64:
		return value
	case time.Time:
		return dictionary.FormatISO8601(value)
	case *time.Time:
		return formatDate(value)
	case domain.NodeRef:
		return value.String()
	case domain.QName:
		return b.namespaces.PrefixString(value)
	case []domain.NodeRef:
		out := make([]any, 0, len(value))
		for _, ref := range value {
			out = append(out, ref.String())
		}
		return out
	case []byte:
		return string(value)
	case []any:
		out := make([]any, 0, len(value))
		for _, item := range value {
			out = append(out, b.ConvertValue(item))
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(value))
		for k, item := range value {
			out[k] = b.ConvertValue(item)
		}
		return out
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		out := make([]any, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out = append(out, b.ConvertValue(rv.Index(i).Interface()))
		}
		return out
	}
	return toolbox.AsString(v)
}

// BuildProperties converts task properties to JSON keys. Without a filter the result holds every
// property set on the task plus every property and association declared by its type, unset ones as
// null. With a filter it holds exactly the filter keys.
func (b *WorkflowModelBuilder) BuildProperties(task *domain.WorkflowTask, filter []string) map[string]any {
	out := map[string]any{}
	if len(filter) > 0 {
		for _, key := range filter {
			key = strings.TrimSpace(key)
			if key == "" {
				continue
			}
			q, err := b.ResolveKey(key)
			if err != nil {
				out[key] = nil
				continue
			}
			out[key] = b.ConvertValue(task.Property(q))
		}
		return out
	}
	if task.Definition != nil {
		typeName := task.Definition.Metadata.Name
		for name := range b.dictionary.TypeProperties(typeName) {
			out[b.PropertyKey(name)] = nil
		}
		for name := range b.dictionary.TypeAssociations(typeName) {
			out[b.PropertyKey(name)] = nil
		}
	}
	for name, value := range task.Properties {
		out[b.PropertyKey(name)] = b.ConvertValue(value)
	}
	return out
}

// outcome is the title of the transition a completed task left through.
func outcome(task *domain.WorkflowTask) *string {
	if task.State != domain.TaskStateCompleted {
		return nil
	}
	id, _ := task.Property(domain.PropOutcome).(string)
	if id == "" {
		return nil
	}
	if task.Definition != nil {
		if tr := task.Definition.Node.Transition(id); tr != nil && tr.Title != "" {
			return &tr.Title
		}
	}
	return &id
}

// BuildTask builds the simple task model for the user on ctx.
func (b *WorkflowModelBuilder) BuildTask(ctx context.Context, task *domain.WorkflowTask, filter []string) (*TaskModel, error) {
	perms, err := b.workflows.Permissions(ctx, task, core.Username(ctx))
	if err != nil {
		return nil, err
	}
	owner, err := b.personByName(ctx, task.Owner())
	if err != nil {
		return nil, err
	}
	m := &TaskModel{
		ID:             task.ID,
		URL:            taskInstancesURL + task.ID,
		Name:           task.Name,
		Title:          task.Title,
		Description:    task.Description,
		State:          string(task.State),
		IsPooled:       perms.IsPooled,
		IsEditable:     perms.IsEditable,
		IsReassignable: perms.IsReassignable,
		IsClaimable:    perms.IsClaimable,
		IsReleasable:   perms.IsReleasable,
		Outcome:        outcome(task),
		Owner:          owner,
		Properties:     b.BuildProperties(task, filter),
	}
	if task.Path != nil {
		m.Path = workflowPathsURL + task.Path.ID
	}
	if wi := task.Instance(); wi != nil {
		if m.WorkflowInstance, err = b.BuildWorkflowInstance(ctx, wi); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// BuildTaskDetailed adds the task definition to the simple model.
func (b *WorkflowModelBuilder) BuildTaskDetailed(ctx context.Context, task *domain.WorkflowTask) (*TaskModel, error) {
	m, err := b.BuildTask(ctx, task, nil)
	if err != nil {
		return nil, err
	}
	if task.Definition != nil {
		m.Definition = b.BuildTaskDefinition(task.Definition)
	}
	return m, nil
}

func (b *WorkflowModelBuilder) BuildTaskDefinition(td *domain.WorkflowTaskDefinition) *TaskDefinitionModel {
	prefixed := b.namespaces.PrefixString(td.Metadata.Name)
	transitions := make([]TransitionModel, 0, len(td.Node.Transitions))
	for _, tr := range td.Node.Transitions {
		transitions = append(transitions, TransitionModel{
			ID:          tr.ID,
			Title:       tr.Title,
			Description: tr.Description,
			IsDefault:   tr.IsDefault,
			IsHidden:    tr.IsHidden,
		})
	}
	return &TaskDefinitionModel{
		ID:  td.ID,
		URL: taskDefinitionsURL + td.ID,
		Type: TypeModel{
			Name:        prefixed,
			Title:       td.Metadata.Title,
			Description: td.Metadata.Description,
			URL:         classURL(prefixed),
		},
		Node: NodeModel{
			Name:        td.Node.Name,
			Title:       td.Node.Title,
			Description: td.Node.Description,
			IsTaskNode:  td.Node.IsTaskNode,
			Transitions: transitions,
		},
	}
}

// BuildWorkflowInstance builds the simple instance model.
func (b *WorkflowModelBuilder) BuildWorkflowInstance(ctx context.Context, wi *domain.WorkflowInstance) (*WorkflowInstanceModel, error) {
	m := &WorkflowInstanceModel{
		ID:            wi.ID,
		URL:           workflowInstancesURL + wi.ID,
		Message:       optionalString(wi.Description),
		IsActive:      wi.Active,
		StartDate:     formatDate(&wi.StartDate),
		Priority:      wi.Priority,
		EndDate:       formatDate(wi.EndDate),
		DueDate:       formatDate(wi.DueDate),
		Context:       optionalRef(wi.Context),
		Package:       optionalRef(wi.Package),
		DefinitionURL: workflowDefinitionsURL + wi.DefinitionID,
	}
	if def := wi.Definition; def != nil {
		m.Name = def.Name
		m.Title = def.Title
		m.Description = def.Description
	}
	initiator, err := b.people.GetPersonByRef(ctx, wi.Initiator)
	if err != nil {
		return nil, err
	}
	m.Initiator = b.BuildPerson(initiator)
	start, err := b.workflows.GetStartTask(ctx, wi.ID)
	if err != nil {
		return nil, err
	}
	if start != nil {
		m.StartTaskInstanceID = &start.ID
	}
	return m, nil
}

// BuildWorkflowInstanceDetailed adds the definition and, when includeTasks is set, every task of
// the instance.
func (b *WorkflowModelBuilder) BuildWorkflowInstanceDetailed(ctx context.Context, wi *domain.WorkflowInstance, includeTasks bool) (*WorkflowInstanceModel, error) {
	m, err := b.BuildWorkflowInstance(ctx, wi)
	if err != nil {
		return nil, err
	}
	if wi.Definition != nil {
		if m.Definition, err = b.BuildWorkflowDefinitionDetailed(ctx, wi.Definition); err != nil {
			return nil, err
		}
	}
	if includeTasks {
		tasks, err := b.workflows.QueryTasks(ctx, workflow.TaskQuery{InstanceID: wi.ID})
		if err != nil {
			return nil, err
		}
		m.Tasks = make([]*TaskModel, 0, len(tasks))
		for _, t := range tasks {
			tm, err := b.BuildTask(ctx, t, nil)
			if err != nil {
				return nil, err
			}
			m.Tasks = append(m.Tasks, tm)
		}
	}
	return m, nil
}

func (b *WorkflowModelBuilder) BuildWorkflowDefinition(def *domain.WorkflowDefinition) *WorkflowDefinitionModel {
	return &WorkflowDefinitionModel{
		ID:          def.ID,
		URL:         workflowDefinitionsURL + def.ID,
		Name:        def.Name,
		Title:       def.Title,
		Description: def.Description,
		Version:     def.Version,
	}
}

// BuildWorkflowDefinitionDetailed adds the start task type and the other task types of the definition.
func (b *WorkflowModelBuilder) BuildWorkflowDefinitionDetailed(ctx context.Context, def *domain.WorkflowDefinition) (*WorkflowDefinitionModel, error) {
	m := b.BuildWorkflowDefinition(def)
	if def.StartTaskDefinition != nil {
		prefixed := b.namespaces.PrefixString(def.StartTaskDefinition.Metadata.Name)
		m.StartTaskDefinitionType = prefixed
		m.StartTaskDefinitionURL = classURL(prefixed)
	}
	taskDefs, err := b.workflows.GetTaskDefinitions(ctx, def.ID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(taskDefs, func(i, j int) bool { return taskDefs[i].Position < taskDefs[j].Position })
	m.TaskDefinitions = make([]TaskDefinitionRef, 0, len(taskDefs))
	for _, td := range taskDefs {
		if td.IsStart {
			continue
		}
		prefixed := b.namespaces.PrefixString(td.Metadata.Name)
		m.TaskDefinitions = append(m.TaskDefinitions, TaskDefinitionRef{URL: classURL(prefixed), Type: prefixed})
	}
	return m, nil
}
