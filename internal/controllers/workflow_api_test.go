package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/modelbuilder"
	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/internal/rest"
	"github.com/RealZimboGuy/workflowrest/internal/testenv"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiServer struct {
	env  *testenv.Env
	mux  *http.ServeMux
	keys map[string]string
}

func newAPIServer(t *testing.T) *apiServer {
	t.Helper()
	env := testenv.New(t)
	builder := modelbuilder.NewWorkflowModelBuilder(env.Dictionary, env.Workflow, env.People)
	mux := http.NewServeMux()
	NewTaskInstancesController(env.Users, env.Workflow, builder).RegisterRoutes(mux)
	NewWorkflowInstancesController(env.Users, env.Workflow, env.People, env.Nodes, builder).RegisterRoutes(mux)
	NewWorkflowDefinitionsController(env.Users, env.Workflow, builder).RegisterRoutes(mux)
	s := &apiServer{env: env, mux: mux, keys: map[string]string{}}
	s.user(t, testenv.AdminUser)
	return s
}

// user creates the person and API user and remembers the API key.
func (s *apiServer) user(t *testing.T, username string) *domain.Person {
	t.Helper()
	p, u, err := s.env.Bootstrap.EnsureAccount(context.Background(), people.PersonDetails{
		UserName:  username,
		FirstName: username,
		LastName:  "Tester",
	}, "secret")
	require.NoError(t, err)
	s.keys[username] = u.ApiKey.String
	return p
}

func (s *apiServer) do(t *testing.T, username, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	if username != "" {
		req.Header.Set("X-API-Key", s.keys[username])
	}
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

type listResponse[T any] struct {
	Data   []T         `json:"data"`
	Paging rest.Paging `json:"paging"`
}

type dataResponse[T any] struct {
	Data T `json:"data"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))
	return out
}

func taskIDs(tasks []*modelbuilder.TaskModel) []string {
	ids := make([]string, len(tasks))
	for i, t := range tasks {
		ids[i] = t.ID
	}
	return ids
}

func inProgressTask(t *testing.T, env *testenv.Env, wi *domain.WorkflowInstance) *domain.WorkflowTask {
	t.Helper()
	open := env.Tasks(t, wi.ID, domain.TaskStateInProgress)
	require.Len(t, open, 1)
	return open[0]
}

func date(day int) time.Time {
	return time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC)
}

func TestUnauthenticatedRequestIsChallenged(t *testing.T) {
	s := newAPIServer(t)
	rec := s.do(t, "", http.MethodGet, "/api/workflow-definitions", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
}

func TestTaskInstancesForAuthority(t *testing.T) {
	s := newAPIServer(t)
	s.user(t, "alice")
	bob := s.user(t, "bob")
	assignBob := func(extra map[domain.QName]any) map[domain.QName]any {
		params := map[domain.QName]any{domain.AssocAssignee: []domain.NodeRef{bob.NodeRef}}
		for k, v := range extra {
			params[k] = v
		}
		return params
	}
	late := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, assignBob(map[domain.QName]any{
		domain.PropWorkflowDueDate: date(20), domain.PropWorkflowPriority: 1,
	}))
	undated := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, assignBob(map[domain.QName]any{
		domain.PropWorkflowPriority: 3,
	}))
	early := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, assignBob(map[domain.QName]any{
		domain.PropWorkflowDueDate: date(5), domain.PropWorkflowPriority: 1,
	}))
	lateTask := inProgressTask(t, s.env, late)
	undatedTask := inProgressTask(t, s.env, undated)
	earlyTask := inProgressTask(t, s.env, early)

	all := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "bob", http.MethodGet, "/api/task-instances?authority=bob", nil))
	assert.Equal(t, []string{earlyTask.ID, lateTask.ID, undatedTask.ID}, taskIDs(all.Data), "due date ascending, undated last")
	assert.Equal(t, rest.Paging{TotalItems: 3, MaxItems: 3, SkipCount: 0}, all.Paging)
	assert.Equal(t, "bob", all.Data[0].Owner.UserName)
	assert.True(t, all.Data[0].IsEditable)
	require.NotNil(t, all.Data[0].WorkflowInstance)
	assert.Equal(t, early.ID, all.Data[0].WorkflowInstance.ID)

	page := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "bob", http.MethodGet, "/api/task-instances?authority=bob&maxItems=1&skipCount=1", nil))
	assert.Equal(t, []string{lateTask.ID}, taskIDs(page.Data))
	assert.Equal(t, rest.Paging{TotalItems: 3, MaxItems: 1, SkipCount: 1}, page.Paging)

	tests := []struct {
		query string
		want  []string
	}{
		{"authority=bob&priority=3", []string{undatedTask.ID}},
		{"authority=bob&dueBefore=" + url.QueryEscape("2024-06-10T00:00:00.000Z"), []string{earlyTask.ID}},
		{"authority=bob&dueAfter=" + url.QueryEscape("2024-06-05T00:00:00.000Z"), []string{lateTask.ID}},
		{"authority=bob&dueBefore=", []string{undatedTask.ID}},
		{"authority=bob&exclude=" + url.QueryEscape("wf:adhoc*"), []string{}},
		{"authority=bob&state=completed", []string{}},
		{"authority=alice", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "bob", http.MethodGet, "/api/task-instances?"+tt.query, nil))
			assert.Equal(t, tt.want, taskIDs(got.Data))
			assert.Equal(t, len(tt.want), got.Paging.TotalItems)
		})
	}

	completed := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "alice", http.MethodGet, "/api/task-instances?authority=alice&state=COMPLETED", nil))
	assert.Len(t, completed.Data, 3, "the submitted start tasks")
	for _, task := range completed.Data {
		assert.Equal(t, "wf:submitAdhocTask", task.Name)
		require.NotNil(t, task.Outcome)
		assert.False(t, task.IsEditable)
	}

	everything := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "admin", http.MethodGet, "/api/task-instances", nil))
	assert.Equal(t, 6, everything.Paging.TotalItems)

	filtered := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "bob", http.MethodGet, "/api/task-instances?authority=bob&properties=bpm_priority,bpm_dueDate", nil))
	assert.Equal(t, map[string]any{"bpm_priority": float64(1), "bpm_dueDate": "2024-06-05T00:00:00.000Z"}, filtered.Data[0].Properties)

	for _, bad := range []string{"state=finished", "maxItems=-1", "priority=high", "dueBefore=tomorrow", "pooledTasks=perhaps"} {
		rec := s.do(t, "bob", http.MethodGet, "/api/task-instances?"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestPooledTasksClaimAndRelease(t *testing.T) {
	s := newAPIServer(t)
	s.user(t, "alice")
	s.user(t, "carol")
	s.user(t, "dave")
	reviewers := s.env.Group(t, "reviewers", "carol")
	wi := s.env.StartAndSubmit(t, "alice", testenv.ReviewPooledDefinitionID, map[domain.QName]any{
		domain.AssocGroupAssignee: []domain.NodeRef{reviewers},
	})
	task := inProgressTask(t, s.env, wi)

	list := func(query string) []string {
		got := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "carol", http.MethodGet, "/api/task-instances?authority=carol"+query, nil))
		return taskIDs(got.Data)
	}
	assert.Equal(t, []string{task.ID}, list(""))
	assert.Equal(t, []string{task.ID}, list("&pooledTasks=true"))
	assert.Empty(t, list("&pooledTasks=false"))

	rec := s.do(t, "dave", http.MethodPut, "/api/task-instances/"+task.ID, map[string]any{"cm_owner": "dave"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "dave is not in the pool")

	claimed := decode[dataResponse[*modelbuilder.TaskModel]](t, s.do(t, "carol", http.MethodPut, "/api/task-instances/"+task.ID, map[string]any{"cm_owner": "carol"}))
	require.NotNil(t, claimed.Data.Owner)
	assert.Equal(t, "carol", claimed.Data.Owner.UserName)
	assert.True(t, claimed.Data.IsPooled)
	assert.True(t, claimed.Data.IsReleasable)
	assert.False(t, claimed.Data.IsClaimable)
	require.NotNil(t, claimed.Data.Definition)

	assert.Equal(t, []string{task.ID}, list("&pooledTasks=false"))
	assert.Empty(t, list("&pooledTasks=true"))

	released := decode[dataResponse[*modelbuilder.TaskModel]](t, s.do(t, "carol", http.MethodPut, "/api/task-instances/"+task.ID, map[string]any{"cm_owner": nil}))
	assert.Nil(t, released.Data.Owner)
	assert.True(t, released.Data.IsClaimable)
	assert.Equal(t, []string{task.ID}, list("&pooledTasks=true"))
}

func TestTaskInstanceGetAndUpdate(t *testing.T) {
	s := newAPIServer(t)
	s.user(t, "alice")
	bob := s.user(t, "bob")
	s.user(t, "dave")
	extra := s.user(t, "extra")
	wi := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee: []domain.NodeRef{bob.NodeRef},
	})
	task := inProgressTask(t, s.env, wi)
	target := "/api/task-instances/" + task.ID

	got := decode[dataResponse[*modelbuilder.TaskModel]](t, s.do(t, "bob", http.MethodGet, target, nil))
	assert.Equal(t, "wf:adhocTask", got.Data.Name)
	assert.Equal(t, "IN_PROGRESS", got.Data.State)
	assert.Nil(t, got.Data.Outcome)
	require.NotNil(t, got.Data.Definition)
	assert.Equal(t, "wf:adhocTask", got.Data.Definition.Type.Name)

	assert.Equal(t, http.StatusNotFound, s.do(t, "bob", http.MethodGet, "/api/task-instances/activiti$missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "bob", http.MethodPut, "/api/task-instances/activiti$missing", map[string]any{}).Code)

	updated := decode[dataResponse[*modelbuilder.TaskModel]](t, s.do(t, "alice", http.MethodPut, target, map[string]any{
		"bpm_priority":           3,
		"bpm_comment":            "looks fine",
		"bpm_pooledActors_added": extra.NodeRef.String(),
	}))
	assert.Equal(t, float64(3), updated.Data.Properties["bpm_priority"])
	assert.Equal(t, "looks fine", updated.Data.Properties["bpm_comment"])
	assert.Equal(t, []any{extra.NodeRef.String()}, updated.Data.Properties["bpm_pooledActors"])

	assert.Equal(t, http.StatusUnauthorized, s.do(t, "dave", http.MethodPut, target, map[string]any{"bpm_priority": 1}).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "bob", http.MethodPut, target, "{not json").Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "bob", http.MethodPut, target, map[string]any{"bpm_dueDate": "soon"}).Code)

	_, err := s.env.Workflow.EndTask(testenv.As("bob"), task.ID, "")
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, s.do(t, "bob", http.MethodPut, target, map[string]any{"bpm_priority": 1}).Code,
		"completed tasks are not editable")

	done := decode[dataResponse[*modelbuilder.TaskModel]](t, s.do(t, "bob", http.MethodGet, target, nil))
	assert.Equal(t, "COMPLETED", done.Data.State)
	require.NotNil(t, done.Data.Outcome)
	assert.Equal(t, "Task Done", *done.Data.Outcome)
}

func TestWorkflowInstancesList(t *testing.T) {
	s := newAPIServer(t)
	alice := s.user(t, "alice")
	bob := s.user(t, "bob")
	adhoc := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee:        []domain.NodeRef{bob.NodeRef},
		domain.PropWorkflowDueDate:  date(20),
		domain.PropWorkflowPriority: 1,
	})
	review := s.env.StartAndSubmit(t, "bob", testenv.ReviewDefinitionID, map[domain.QName]any{
		domain.AssocAssignee:        []domain.NodeRef{alice.NodeRef},
		domain.PropWorkflowDueDate:  date(10),
		domain.PropWorkflowPriority: 2,
	})
	cancelled := s.env.Start(t, "alice", testenv.AdhocDefinitionID, nil)
	_, err := s.env.Workflow.CancelWorkflow(testenv.As("alice"), cancelled.ID)
	require.NoError(t, err)

	ids := func(query string) []string {
		t.Helper()
		got := decode[listResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "admin", http.MethodGet, "/api/workflow-instances?"+query, nil))
		out := make([]string, len(got.Data))
		for i, m := range got.Data {
			out[i] = m.ID
		}
		if got.Paging.MaxItems == got.Paging.TotalItems && got.Paging.SkipCount == 0 {
			assert.Equal(t, len(out), got.Paging.TotalItems)
		}
		return out
	}

	assert.Equal(t, []string{review.ID, adhoc.ID, cancelled.ID}, ids(""))
	assert.Equal(t, []string{review.ID, adhoc.ID}, ids("state=ACTIVE"))
	assert.Equal(t, []string{cancelled.ID}, ids("state=completed"))
	assert.Equal(t, []string{adhoc.ID, cancelled.ID}, ids("initiator=alice"))
	assert.Empty(t, ids("initiator=nobody"))
	assert.Equal(t, []string{adhoc.ID}, ids("priority=1"))
	assert.Equal(t, []string{review.ID}, ids("definitionName="+url.QueryEscape("activiti$activitiReview")))
	assert.Equal(t, []string{review.ID}, ids("exclude="+url.QueryEscape("activiti$activitiAdhoc")))
	assert.Equal(t, []string{review.ID, adhoc.ID}, ids("completedBefore="))
	assert.Equal(t, []string{cancelled.ID}, ids("dueAfter="))
	assert.Equal(t, []string{review.ID}, ids("dueBefore="+url.QueryEscape("2024-06-20T00:00:00.000Z")))
	assert.Len(t, ids("startedAfter=2000-01-01"), 3)
	assert.Empty(t, ids("startedBefore=2000-01-01"))
	assert.Equal(t, []string{adhoc.ID}, ids("maxItems=1&skipCount=1"))

	paged := decode[listResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "admin", http.MethodGet, "/api/workflow-instances?maxItems=1&skipCount=1", nil))
	require.Len(t, paged.Data, 1)
	assert.Equal(t, rest.Paging{TotalItems: 3, MaxItems: 1, SkipCount: 1}, paged.Paging)

	huge := decode[listResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "admin", http.MethodGet, "/api/workflow-instances?maxItems=9223372036854775807&skipCount=1", nil))
	assert.Len(t, huge.Data, 2)
	assert.Equal(t, 3, huge.Paging.TotalItems)

	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin", http.MethodGet, "/api/workflow-instances?state=paused", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, "admin", http.MethodGet, "/api/workflow-instances?startedAfter=never", nil).Code)

	first := decode[listResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "admin", http.MethodGet, "/api/workflow-instances?maxItems=1", nil)).Data[0]
	assert.Equal(t, "activiti$activitiReview", first.Name)
	assert.True(t, first.IsActive)
	require.NotNil(t, first.Initiator)
	assert.Equal(t, "bob", first.Initiator.UserName)
	require.NotNil(t, first.Priority)
	assert.Equal(t, 2, *first.Priority)
	assert.Nil(t, first.DiagramURL)

	scoped := decode[listResponse[*modelbuilder.WorkflowInstanceModel]](t,
		s.do(t, "admin", http.MethodGet, "/api/workflow-definitions/"+testenv.AdhocDefinitionID+"/workflow-instances?state=active", nil))
	require.Len(t, scoped.Data, 1)
	assert.Equal(t, adhoc.ID, scoped.Data[0].ID)

	rec := s.do(t, "admin", http.MethodGet, "/api/workflow-definitions/activiti$missing:1/workflow-instances", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestWorkflowInstanceGetAndDelete(t *testing.T) {
	s := newAPIServer(t)
	s.user(t, "alice")
	bob := s.user(t, "bob")
	wi := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee:           []domain.NodeRef{bob.NodeRef},
		domain.PropWorkflowDescription: "Check the numbers",
	})
	target := "/api/workflow-instances/" + wi.ID

	detailed := decode[dataResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "bob", http.MethodGet, target+"?includeTasks=true", nil))
	require.NotNil(t, detailed.Data.Definition)
	assert.Equal(t, testenv.AdhocDefinitionID, detailed.Data.Definition.ID)
	assert.Len(t, detailed.Data.Tasks, 2)
	require.NotNil(t, detailed.Data.Message)
	assert.Equal(t, "Check the numbers", *detailed.Data.Message)
	require.NotNil(t, detailed.Data.StartTaskInstanceID)

	plain := decode[dataResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "bob", http.MethodGet, target, nil))
	assert.Empty(t, plain.Data.Tasks)

	assert.Equal(t, http.StatusNotFound, s.do(t, "bob", http.MethodGet, "/api/workflow-instances/activiti$missing", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "bob", http.MethodDelete, "/api/workflow-instances/activiti$missing", nil).Code)

	assert.Equal(t, http.StatusForbidden, s.do(t, "bob", http.MethodDelete, target, nil).Code, "only the initiator or an admin may end it")
	assert.Equal(t, http.StatusOK, s.do(t, "alice", http.MethodDelete, target, nil).Code)

	ended := decode[dataResponse[*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "alice", http.MethodGet, target+"?includeTasks=true", nil))
	assert.False(t, ended.Data.IsActive)
	assert.NotNil(t, ended.Data.EndDate)
	for _, task := range ended.Data.Tasks {
		assert.Equal(t, "COMPLETED", task.State)
	}

	assert.Equal(t, http.StatusNotFound, s.do(t, "alice", http.MethodDelete, target, nil).Code, "already ended")
	assert.Equal(t, http.StatusForbidden, s.do(t, "bob", http.MethodDelete, target+"?forced=true", nil).Code)
	assert.Equal(t, http.StatusOK, s.do(t, "admin", http.MethodDelete, target+"?forced=true", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, "alice", http.MethodGet, target, nil).Code)
}

func TestWorkflowTaskInstances(t *testing.T) {
	s := newAPIServer(t)
	s.user(t, "alice")
	bob := s.user(t, "bob")
	wi := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee: []domain.NodeRef{bob.NodeRef},
	})
	target := "/api/workflow-instances/" + wi.ID + "/task-instances"

	all := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "alice", http.MethodGet, target, nil))
	assert.Equal(t, 2, all.Paging.TotalItems)

	open := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "alice", http.MethodGet, target+"?state=in_progress", nil))
	require.Len(t, open.Data, 1)
	assert.Equal(t, "wf:adhocTask", open.Data[0].Name)

	mine := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "alice", http.MethodGet, target+"?authority=bob", nil))
	assert.Len(t, mine.Data, 1)

	excluded := decode[listResponse[*modelbuilder.TaskModel]](t, s.do(t, "alice", http.MethodGet, target+"?exclude="+url.QueryEscape("wf:submitAdhocTask"), nil))
	require.Len(t, excluded.Data, 1)
	assert.Equal(t, "wf:adhocTask", excluded.Data[0].Name)

	assert.Equal(t, http.StatusNotFound, s.do(t, "alice", http.MethodGet, "/api/workflow-instances/activiti$missing/task-instances", nil).Code)
}

func TestNodeWorkflowInstances(t *testing.T) {
	s := newAPIServer(t)
	s.user(t, "alice")
	bob := s.user(t, "bob")
	doc := s.env.Content(t, "report.pdf")
	wi := s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee: []domain.NodeRef{bob.NodeRef},
	})
	require.NoError(t, s.env.Workflow.AddPackageItem(context.Background(), wi.Package, doc))
	s.env.StartAndSubmit(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee: []domain.NodeRef{bob.NodeRef},
	})

	target := "/api/node/" + doc.StoreProtocol + "/" + doc.StoreID + "/" + doc.ID + "/workflow-instances"
	got := decode[dataResponse[[]*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "alice", http.MethodGet, target, nil))
	require.Len(t, got.Data, 1)
	assert.Equal(t, wi.ID, got.Data[0].ID)

	_, err := s.env.Workflow.CancelWorkflow(testenv.As("alice"), wi.ID)
	require.NoError(t, err)
	got = decode[dataResponse[[]*modelbuilder.WorkflowInstanceModel]](t, s.do(t, "alice", http.MethodGet, target, nil))
	assert.Empty(t, got.Data, "only active workflows are listed")

	missing := "/api/node/workspace/SpacesStore/no-such-node/workflow-instances"
	assert.Equal(t, http.StatusNotFound, s.do(t, "alice", http.MethodGet, missing, nil).Code)
}

func TestWorkflowDefinitions(t *testing.T) {
	s := newAPIServer(t)

	all := decode[dataResponse[[]*modelbuilder.WorkflowDefinitionModel]](t, s.do(t, "admin", http.MethodGet, "/api/workflow-definitions", nil))
	assert.Len(t, all.Data, 3)
	for _, d := range all.Data {
		assert.Empty(t, d.TaskDefinitions, "the list uses the simple form")
	}

	some := decode[dataResponse[[]*modelbuilder.WorkflowDefinitionModel]](t,
		s.do(t, "admin", http.MethodGet, "/api/workflow-definitions?exclude="+url.QueryEscape("activiti$activitiReview*"), nil))
	require.Len(t, some.Data, 1)
	assert.Equal(t, "activiti$activitiAdhoc", some.Data[0].Name)

	one := decode[dataResponse[*modelbuilder.WorkflowDefinitionModel]](t, s.do(t, "admin", http.MethodGet, "/api/workflow-definitions/"+testenv.AdhocDefinitionID, nil))
	assert.Equal(t, "wf:submitAdhocTask", one.Data.StartTaskDefinitionType)
	assert.NotEmpty(t, one.Data.TaskDefinitions)

	rec := s.do(t, "admin", http.MethodGet, "/api/workflow-definitions/activiti$missing:1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Message string `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Contains(t, body.Message, "activiti$missing:1")
}
