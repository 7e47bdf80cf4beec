package modelbuilder

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type MockWorkflows struct {
	PermissionsFunc        func(ctx context.Context, task *domain.WorkflowTask, username string) (workflow.TaskPermissions, error)
	GetStartTaskFunc       func(ctx context.Context, workflowID string) (*domain.WorkflowTask, error)
	GetTaskDefinitionsFunc func(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error)
	QueryTasksFunc         func(ctx context.Context, q workflow.TaskQuery) ([]*domain.WorkflowTask, error)
}

func (m *MockWorkflows) Permissions(ctx context.Context, task *domain.WorkflowTask, username string) (workflow.TaskPermissions, error) {
	if m.PermissionsFunc != nil {
		return m.PermissionsFunc(ctx, task, username)
	}
	return workflow.TaskPermissions{}, nil
}

func (m *MockWorkflows) GetStartTask(ctx context.Context, workflowID string) (*domain.WorkflowTask, error) {
	if m.GetStartTaskFunc != nil {
		return m.GetStartTaskFunc(ctx, workflowID)
	}
	return nil, nil
}

func (m *MockWorkflows) GetTaskDefinitions(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error) {
	if m.GetTaskDefinitionsFunc != nil {
		return m.GetTaskDefinitionsFunc(ctx, definitionID)
	}
	return nil, nil
}

func (m *MockWorkflows) QueryTasks(ctx context.Context, q workflow.TaskQuery) ([]*domain.WorkflowTask, error) {
	if m.QueryTasksFunc != nil {
		return m.QueryTasksFunc(ctx, q)
	}
	return nil, nil
}

type MockPeople struct {
	People map[string]*domain.Person
}

func (m *MockPeople) GetPerson(_ context.Context, username string) (*domain.Person, error) {
	return m.People[username], nil
}

func (m *MockPeople) GetPersonByRef(_ context.Context, ref domain.NodeRef) (*domain.Person, error) {
	for _, p := range m.People {
		if p.NodeRef == ref {
			return p, nil
		}
	}
	return nil, nil
}

var (
	testStart = time.Date(2024, 3, 4, 10, 30, 0, 0, time.UTC)
	testDue   = time.Date(2024, 3, 11, 17, 0, 0, 0, time.UTC)
	aliceRef  = domain.NewNodeRef("alice-node")
	pkgRef    = domain.NewNodeRef("package-node")
)

func newTestBuilder(t *testing.T, wf *MockWorkflows) (*WorkflowModelBuilder, *dictionary.Service) {
	t.Helper()
	dict, err := dictionary.Load()
	require.NoError(t, err)
	people := &MockPeople{People: map[string]*domain.Person{
		"alice": {UserName: "alice", FirstName: "Alice", LastName: "Smith", NodeRef: aliceRef},
	}}
	return NewWorkflowModelBuilder(dict, wf, people), dict
}

func testInstance(dict *dictionary.Service) *domain.WorkflowInstance {
	priority := 1
	due := testDue
	start := &domain.WorkflowTaskDefinition{
		ID:       "start",
		Metadata: dict.TypeDefinition(domain.NewQName(domain.WorkflowURI, "submitAdhocTask")),
		IsStart:  true,
	}
	return &domain.WorkflowInstance{
		ID:           "activiti$42",
		DefinitionID: "activiti$activitiAdhoc:1",
		Definition: &domain.WorkflowDefinition{
			ID:                  "activiti$activitiAdhoc:1",
			Name:                "activiti$activitiAdhoc",
			Title:               "Adhoc Activiti Process",
			Description:         "Assign arbitrary task",
			Version:             "1",
			StartTaskDefinition: start,
		},
		Description: "Do the thing",
		Active:      true,
		Initiator:   aliceRef,
		StartDate:   testStart,
		DueDate:     &due,
		Priority:    &priority,
		Package:     pkgRef,
	}
}

func testTask(dict *dictionary.Service, wi *domain.WorkflowInstance) *domain.WorkflowTask {
	td := &domain.WorkflowTaskDefinition{
		ID:       "adhocTask",
		Metadata: dict.TypeDefinition(domain.NewQName(domain.WorkflowURI, "adhocTask")),
		Node: domain.WorkflowNode{
			Name:       "adhocTask",
			Title:      "Adhoc Task",
			IsTaskNode: true,
			Transitions: []domain.WorkflowTransition{
				{ID: "Next", Title: "Task Done", IsDefault: true, To: "end"},
			},
		},
	}
	return &domain.WorkflowTask{
		ID:          "activiti$43",
		Name:        "wf:adhocTask",
		Title:       "Adhoc Task",
		Description: "Do the thing",
		State:       domain.TaskStateInProgress,
		Path:        &domain.WorkflowPath{ID: "path-1", Instance: wi, Active: true},
		Definition:  td,
		Properties: map[domain.QName]any{
			domain.PropOwner:         "alice",
			domain.PropPriority:      1,
			domain.PropDueDate:       testDue,
			domain.PropPackage:       pkgRef,
			domain.AssocPooledActors: []domain.NodeRef{},
			domain.NewQName(domain.DefaultURI, "custom"): map[string]any{"a": 1},
		},
	}
}

func TestPropertyKeyTranslation(t *testing.T) {
	b, _ := newTestBuilder(t, &MockWorkflows{})
	assert.Equal(t, "bpm_priority", b.PropertyKey(domain.PropPriority))
	assert.Equal(t, "cm_owner", b.PropertyKey(domain.PropOwner))
	assert.Equal(t, "custom", b.PropertyKey(domain.NewQName(domain.DefaultURI, "custom")))

	q, err := b.ResolveKey("bpm_workflow_extra")
	require.NoError(t, err)
	assert.Equal(t, domain.NewQName(domain.BPMModelURI, "workflow_extra"), q)

	_, err = b.ResolveKey("zz_thing")
	assert.Error(t, err)
}

func TestConvertValue(t *testing.T) {
	b, _ := newTestBuilder(t, &MockWorkflows{})
	assert.Equal(t, "x", b.ConvertValue("x"))
	assert.Equal(t, 3, b.ConvertValue(3))
	assert.Equal(t, true, b.ConvertValue(true))
	assert.Nil(t, b.ConvertValue(nil))
	assert.Equal(t, "2024-03-11T17:00:00.000Z", b.ConvertValue(testDue))
	assert.Equal(t, pkgRef.String(), b.ConvertValue(pkgRef))
	assert.Equal(t, "bpm:priority", b.ConvertValue(domain.PropPriority))
	assert.Equal(t, []any{pkgRef.String(), "2024-03-11T17:00:00.000Z"}, b.ConvertValue([]any{pkgRef, testDue}))
	assert.Equal(t, "1.5", b.ConvertValue(json.Number("1.5")))
	assert.Equal(t, []any{"a", "b"}, b.ConvertValue([]string{"a", "b"}))
	assert.Equal(t, []any{"2024-03-11T17:00:00.000Z"}, b.ConvertValue([]time.Time{testDue}))
	assert.Equal(t, []any{"bpm:priority", "bpm:dueDate"}, b.ConvertValue([]domain.QName{domain.PropPriority, domain.PropDueDate}))
	assert.Equal(t, []any{1, 2}, b.ConvertValue([2]int{1, 2}))
	assert.Equal(t, []any{[]any{pkgRef.String()}}, b.ConvertValue([][]domain.NodeRef{{pkgRef}}))
}

func TestBuildTask(t *testing.T) {
	b, dict := newTestBuilder(t, &MockWorkflows{
		PermissionsFunc: func(_ context.Context, _ *domain.WorkflowTask, username string) (workflow.TaskPermissions, error) {
			return workflow.TaskPermissions{IsEditable: username == "alice", IsReassignable: true}, nil
		},
		GetStartTaskFunc: func(_ context.Context, workflowID string) (*domain.WorkflowTask, error) {
			return &domain.WorkflowTask{ID: "activiti$start"}, nil
		},
	})
	task := testTask(dict, testInstance(dict))
	ctx := core.WithUsername(context.Background(), "alice")

	m, err := b.BuildTask(ctx, task, nil)
	require.NoError(t, err)
	assert.Equal(t, "api/task-instances/activiti$43", m.URL)
	assert.Equal(t, "api/workflow-paths/path-1", m.Path)
	assert.Equal(t, "wf:adhocTask", m.Name)
	assert.Equal(t, "IN_PROGRESS", m.State)
	assert.True(t, m.IsEditable)
	assert.True(t, m.IsReassignable)
	assert.Nil(t, m.Outcome)
	require.NotNil(t, m.Owner)
	assert.Equal(t, PersonModel{UserName: "alice", FirstName: "Alice", LastName: "Smith"}, *m.Owner)
	assert.Nil(t, m.Definition)

	assert.Equal(t, 1, m.Properties["bpm_priority"])
	assert.Equal(t, "2024-03-11T17:00:00.000Z", m.Properties["bpm_dueDate"])
	assert.Equal(t, pkgRef.String(), m.Properties["bpm_package"])
	assert.Equal(t, map[string]any{"a": 1}, m.Properties["custom"])
	assert.Contains(t, m.Properties, "bpm_comment", "declared but unset properties are listed")
	assert.Nil(t, m.Properties["bpm_comment"])
	assert.Contains(t, m.Properties, "bpm_context")

	require.NotNil(t, m.WorkflowInstance)
	assert.Equal(t, "activiti$activitiAdhoc", m.WorkflowInstance.Name)
	require.NotNil(t, m.WorkflowInstance.StartTaskInstanceID)
	assert.Equal(t, "activiti$start", *m.WorkflowInstance.StartTaskInstanceID)

	other, err := b.BuildTask(core.WithUsername(context.Background(), "bob"), task, nil)
	require.NoError(t, err)
	assert.False(t, other.IsEditable)
}

func TestBuildTaskWithPropertyFilter(t *testing.T) {
	b, dict := newTestBuilder(t, &MockWorkflows{})
	task := testTask(dict, testInstance(dict))

	m, err := b.BuildTask(context.Background(), task, []string{"bpm_priority", "bpm_description", " cm_owner "})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"bpm_priority": 1, "bpm_description": nil, "cm_owner": "alice"}, m.Properties)
}

func TestBuildTaskDetailedAndOutcome(t *testing.T) {
	b, dict := newTestBuilder(t, &MockWorkflows{})
	task := testTask(dict, testInstance(dict))
	task.State = domain.TaskStateCompleted
	task.Properties[domain.PropOutcome] = "Next"

	m, err := b.BuildTaskDetailed(context.Background(), task)
	require.NoError(t, err)
	require.NotNil(t, m.Outcome)
	assert.Equal(t, "Task Done", *m.Outcome)
	require.NotNil(t, m.Definition)
	assert.Equal(t, "api/task-definitions/adhocTask", m.Definition.URL)
	assert.Equal(t, "wf:adhocTask", m.Definition.Type.Name)
	assert.Equal(t, "Adhoc Task", m.Definition.Type.Title)
	assert.Equal(t, "api/classes/wf_adhocTask", m.Definition.Type.URL)
	assert.Equal(t, []TransitionModel{{ID: "Next", Title: "Task Done", IsDefault: true}}, m.Definition.Node.Transitions)
}

func TestBuildWorkflowInstance(t *testing.T) {
	b, dict := newTestBuilder(t, &MockWorkflows{})
	wi := testInstance(dict)
	m, err := b.BuildWorkflowInstance(context.Background(), wi)
	require.NoError(t, err)

	raw, err := json.Marshal(m)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(raw, &got))

	assert.Equal(t, "api/workflow-instances/activiti$42", got["url"])
	assert.Equal(t, "Adhoc Activiti Process", got["title"])
	assert.Equal(t, "Do the thing", got["message"])
	assert.Equal(t, true, got["isActive"])
	assert.Equal(t, "2024-03-04T10:30:00.000Z", got["startDate"])
	assert.Equal(t, "2024-03-11T17:00:00.000Z", got["dueDate"])
	assert.Equal(t, float64(1), got["priority"])
	assert.Nil(t, got["endDate"])
	assert.Nil(t, got["context"])
	assert.Nil(t, got["startTaskInstanceId"])
	assert.Equal(t, pkgRef.String(), got["package"])
	assert.Equal(t, "api/workflow-definitions/activiti$activitiAdhoc:1", got["definitionUrl"])
	assert.Equal(t, map[string]any{"userName": "alice", "firstName": "Alice", "lastName": "Smith"}, got["initiator"])
	assert.NotContains(t, got, "definition")
	assert.NotContains(t, got, "tasks")

	wi.Initiator = domain.NewNodeRef("gone")
	m, err = b.BuildWorkflowInstance(context.Background(), wi)
	require.NoError(t, err)
	assert.Nil(t, m.Initiator)
}

func TestBuildWorkflowInstanceDetailed(t *testing.T) {
	var queried workflow.TaskQuery
	var dict *dictionary.Service
	wf := &MockWorkflows{
		GetTaskDefinitionsFunc: func(_ context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error) {
			return []*domain.WorkflowTaskDefinition{
				{ID: "verify", Metadata: dict.TypeDefinition(domain.NewQName(domain.WorkflowURI, "completedAdhocTask")), Position: 2},
				{ID: "start", Metadata: dict.TypeDefinition(domain.NewQName(domain.WorkflowURI, "submitAdhocTask")), IsStart: true},
				{ID: "adhocTask", Metadata: dict.TypeDefinition(domain.NewQName(domain.WorkflowURI, "adhocTask")), Position: 1},
			}, nil
		},
	}
	b, d := newTestBuilder(t, wf)
	dict = d
	wi := testInstance(dict)
	wf.QueryTasksFunc = func(_ context.Context, q workflow.TaskQuery) ([]*domain.WorkflowTask, error) {
		queried = q
		return []*domain.WorkflowTask{testTask(dict, wi)}, nil
	}

	m, err := b.BuildWorkflowInstanceDetailed(context.Background(), wi, false)
	require.NoError(t, err)
	require.NotNil(t, m.Definition)
	assert.Equal(t, "wf:submitAdhocTask", m.Definition.StartTaskDefinitionType)
	assert.Equal(t, "api/classes/wf_submitAdhocTask", m.Definition.StartTaskDefinitionURL)
	assert.Equal(t, []TaskDefinitionRef{
		{URL: "api/classes/wf_adhocTask", Type: "wf:adhocTask"},
		{URL: "api/classes/wf_completedAdhocTask", Type: "wf:completedAdhocTask"},
	}, m.Definition.TaskDefinitions)
	assert.Nil(t, m.Tasks)

	m, err = b.BuildWorkflowInstanceDetailed(context.Background(), wi, true)
	require.NoError(t, err)
	assert.Equal(t, wi.ID, queried.InstanceID)
	require.Len(t, m.Tasks, 1)
	assert.Equal(t, "activiti$43", m.Tasks[0].ID)
}

func TestBuildWorkflowDefinition(t *testing.T) {
	b, dict := newTestBuilder(t, &MockWorkflows{})
	def := testInstance(dict).Definition
	m := b.BuildWorkflowDefinition(def)
	assert.Equal(t, &WorkflowDefinitionModel{
		ID:          "activiti$activitiAdhoc:1",
		URL:         "api/workflow-definitions/activiti$activitiAdhoc:1",
		Name:        "activiti$activitiAdhoc",
		Title:       "Adhoc Activiti Process",
		Description: "Assign arbitrary task",
		Version:     "1",
	}, m)
}

func TestParseTaskProperties(t *testing.T) {
	b, dict := newTestBuilder(t, &MockWorkflows{})
	task := testTask(dict, testInstance(dict))
	task.Properties[domain.NewQName(domain.DefaultURI, "count")] = 4

	props, err := b.ParseTaskProperties(task, map[string]any{
		"bpm_priority":          "3",
		"bpm_dueDate":           "2024-04-01T00:00:00.000Z",
		"bpm_reassignable":      false,
		"bpm_pooledActors":      []any{aliceRef.String()},
		"bpm_assignee":          aliceRef.String(),
		"bpm_hiddenTransitions": []any{"a", "b"},
		"bpm_comment":           nil,
		"count":                 float64(7),
		"note":                  12,
		"urgent":                true,
		"ratio":                 2.5,
		"label":                 "draft",
		"tags":                  []any{"x"},
	})
	require.NoError(t, err)
	assert.Equal(t, 3, props[domain.PropPriority])
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), props[domain.PropDueDate])
	assert.Equal(t, false, props[domain.PropReassignable])
	assert.Equal(t, []domain.NodeRef{aliceRef}, props[domain.AssocPooledActors])
	assert.Equal(t, aliceRef, props[domain.AssocAssignee])
	assert.Equal(t, []any{"a", "b"}, props[domain.NewQName(domain.BPMModelURI, "hiddenTransitions")])
	comment, ok := props[domain.NewQName(domain.BPMModelURI, "comment")]
	assert.True(t, ok)
	assert.Nil(t, comment)
	assert.Equal(t, 7, props[domain.NewQName(domain.DefaultURI, "count")])
	assert.Equal(t, 12, props[domain.NewQName(domain.DefaultURI, "note")])
	assert.Equal(t, true, props[domain.NewQName(domain.DefaultURI, "urgent")])
	assert.Equal(t, 2.5, props[domain.NewQName(domain.DefaultURI, "ratio")])
	assert.Equal(t, "draft", props[domain.NewQName(domain.DefaultURI, "label")])
	assert.Equal(t, []any{"x"}, props[domain.NewQName(domain.DefaultURI, "tags")])

	_, err = b.ParseTaskProperties(task, map[string]any{"bpm_dueDate": "yesterday"})
	assert.Error(t, err)
	_, err = b.ParseTaskProperties(task, map[string]any{"nope_key": "v"})
	assert.Error(t, err)
}

func TestSplitAssociationChanges(t *testing.T) {
	b, _ := newTestBuilder(t, &MockWorkflows{})
	other := domain.NewNodeRef("group-node")
	body := map[string]any{
		"bpm_pooledActors_added":   aliceRef.String() + ", " + other.String(),
		"bpm_pooledActors_removed": []any{pkgRef.String()},
		"bpm_comment_added":        "kept, not an association",
		"bpm_priority":             2,
	}

	add, remove, err := b.SplitAssociationChanges(body)
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeRef{aliceRef, other}, add[domain.AssocPooledActors])
	assert.Equal(t, []domain.NodeRef{pkgRef}, remove[domain.AssocPooledActors])
	assert.Len(t, body, 2)
	assert.Contains(t, body, "bpm_comment_added")

	_, _, err = b.SplitAssociationChanges(map[string]any{"bpm_pooledActors_added": "not a ref"})
	assert.Error(t, err)
}
