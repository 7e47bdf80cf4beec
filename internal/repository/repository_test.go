package repository

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserRepositorySessionsAndApiKeys(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository(newTestDB(t), testClock())

	u := &domain.User{Username: "alice", Password: "hash", ApiKey: sql.NullString{String: "key-1", Valid: true}}
	id, err := repo.Save(ctx, u)
	require.NoError(t, err)
	assert.NotZero(t, id)

	found, err := repo.FindByApiKey(ctx, "key-1")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "alice", found.Username)
	assert.True(t, found.Enabled.Bool)

	require.NoError(t, repo.UpdateSession(ctx, id, "sess", testNow.Add(time.Hour)))
	found, err = repo.FindBySessionID(ctx, "sess", testNow)
	require.NoError(t, err)
	require.NotNil(t, found)

	found, err = repo.FindBySessionID(ctx, "sess", testNow.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Nil(t, found, "expired session must not resolve")

	require.NoError(t, repo.ClearSessionBySessionID(ctx, "sess"))
	found, err = repo.FindBySessionID(ctx, "sess", testNow)
	require.NoError(t, err)
	assert.Nil(t, found)

	missing, err := repo.FindByUsername(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, missing)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.DeleteById(ctx, id))
	gone, err := repo.FindById(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestNodeRepositoryPropertiesRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := NewNodeRepository(newTestDB(t), testClock())

	due := time.Date(2024, 6, 1, 8, 30, 0, 0, time.UTC)
	n := &domain.Node{
		Ref:  domain.NewNodeRef("p1"),
		Type: domain.TypePerson,
		Name: "alice",
		Properties: map[domain.QName]any{
			domain.PropUserName:   "alice",
			domain.PropHomeFolder: domain.NewNodeRef("home1"),
			domain.PropDueDate:    due,
			domain.PropPriority:   3,
			domain.AssocPooledActors: []domain.NodeRef{
				domain.NewNodeRef("g1"),
			},
			domain.NewQName("", "mixed"): []any{"a", int64(2), true},
		},
	}
	require.NoError(t, repo.Save(ctx, n))

	got, err := repo.FindByTypeAndName(ctx, domain.TypePerson, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, n.Ref, got.Ref)
	assert.Equal(t, "alice", got.Properties[domain.PropUserName])
	assert.Equal(t, domain.NewNodeRef("home1"), got.Properties[domain.PropHomeFolder])
	assert.True(t, due.Equal(got.Properties[domain.PropDueDate].(time.Time)))
	assert.Equal(t, 3, got.Properties[domain.PropPriority])
	assert.Equal(t, []domain.NodeRef{domain.NewNodeRef("g1")}, got.Properties[domain.AssocPooledActors])
	assert.Equal(t, []any{"a", int64(2), true}, got.Properties[domain.NewQName("", "mixed")])

	pkg := domain.NewNodeRef("pkg")
	doc := domain.NewNodeRef("doc")
	require.NoError(t, repo.AddChild(ctx, pkg, doc))
	require.NoError(t, repo.AddChild(ctx, pkg, doc))
	children, err := repo.FindChildren(ctx, pkg)
	require.NoError(t, err)
	assert.Equal(t, []domain.NodeRef{doc}, children)

	require.NoError(t, repo.Delete(ctx, n.Ref))
	got, err = repo.FindByRef(ctx, n.Ref)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestAuthorityRepositoryMembership(t *testing.T) {
	ctx := context.Background()
	repo := NewAuthorityRepository(newTestDB(t))

	require.NoError(t, repo.AddMember(ctx, "GROUP_reviewers", "alice"))
	require.NoError(t, repo.AddMember(ctx, "GROUP_reviewers", "alice"))
	require.NoError(t, repo.AddMember(ctx, "GROUP_all", "GROUP_reviewers"))

	members, err := repo.FindMembers(ctx, "GROUP_reviewers")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	groups, err := repo.FindGroups(ctx, "GROUP_reviewers")
	require.NoError(t, err)
	assert.Equal(t, []string{"GROUP_all"}, groups)

	require.NoError(t, repo.RemoveMember(ctx, "GROUP_reviewers", "alice"))
	groups, err = repo.FindGroups(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, groups)
}

func TestDefinitionRepositoryVersions(t *testing.T) {
	ctx := context.Background()
	repo := NewDefinitionRepository(newTestDB(t))

	for _, v := range []string{"1", "2"} {
		require.NoError(t, repo.Save(ctx, &domain.WorkflowDefinition{
			ID: "activiti$review:" + v, Name: "activiti$review", Title: "Review", Version: v, Created: testNow,
		}))
	}
	require.NoError(t, repo.Save(ctx, &domain.WorkflowDefinition{
		ID: "activiti$review:2", Name: "activiti$review", Title: "Review v2", Version: "2", Created: testNow,
	}))

	latest, err := repo.FindLatestByName(ctx, "activiti$review")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, "activiti$review:2", latest.ID)
	assert.Equal(t, "Review v2", latest.Title)

	all, err := repo.FindAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	taskDefs := []*domain.WorkflowTaskDefinition{
		{ID: "start", Metadata: domain.TypeDefinition{Name: domain.TypeStartTask}, IsStart: true,
			Node: domain.WorkflowNode{Name: "start", IsTaskNode: true, Transitions: []domain.WorkflowTransition{{ID: "", IsDefault: true, To: "review"}}}},
		{ID: "review", Metadata: domain.TypeDefinition{Name: domain.TypeWorkflowTask}, Assignment: domain.AssignAssignee,
			Node: domain.WorkflowNode{Name: "review", IsTaskNode: true, Transitions: []domain.WorkflowTransition{{ID: "approve", To: "end"}, {ID: "reject", To: "end"}}}},
	}
	require.NoError(t, repo.SaveTaskDefinitions(ctx, "activiti$review:2", taskDefs))
	require.NoError(t, repo.SaveTaskDefinitions(ctx, "activiti$review:2", taskDefs))

	got, err := repo.FindTaskDefinitions(ctx, "activiti$review:2")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].IsStart)
	assert.Equal(t, domain.TypeWorkflowTask, got[1].Metadata.Name)
	assert.Equal(t, domain.AssignAssignee, got[1].Assignment)
	assert.Equal(t, "reject", got[1].Node.Transitions[1].ID)
}

func TestInstanceAndTaskRepositories(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	instances := NewInstanceRepository(db)
	tasks := NewTaskRepository(db)
	nodes := NewNodeRepository(db, testClock())

	priority := 1
	due := testNow.Add(48 * time.Hour)
	wi := &domain.WorkflowInstance{
		ID: "activiti$1", DefinitionID: "activiti$review:1", PathID: "activiti$1-path", Active: true,
		Initiator: domain.NewNodeRef("p1"), StartDate: testNow, DueDate: &due, Priority: &priority,
		Package: domain.NewNodeRef("pkg1"),
	}
	require.NoError(t, instances.Save(ctx, wi))

	got, err := instances.FindByID(ctx, wi.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Active)
	assert.Equal(t, 1, *got.Priority)
	assert.True(t, due.Equal(*got.DueDate))
	assert.Nil(t, got.EndDate)
	assert.True(t, got.Context.IsZero())

	require.NoError(t, nodes.AddChild(ctx, wi.Package, domain.NewNodeRef("doc1")))
	active := true
	forContent, err := instances.FindByPackageItem(ctx, domain.NewNodeRef("doc1"), &active)
	require.NoError(t, err)
	require.Len(t, forContent, 1)
	assert.Equal(t, wi.ID, forContent[0].ID)

	owned := &StoredTask{InstanceID: wi.ID, PathID: wi.PathID, WorkflowTask: &domain.WorkflowTask{
		ID: "activiti$t1", Name: "wf:submitReviewTask", State: domain.TaskStateInProgress, DefinitionID: "start",
		Created:    testNow,
		Properties: map[domain.QName]any{domain.PropOwner: "alice"},
	}}
	pooled := &StoredTask{InstanceID: wi.ID, PathID: wi.PathID, WorkflowTask: &domain.WorkflowTask{
		ID: "activiti$t2", Name: "wf:activitiReviewTask", State: domain.TaskStateInProgress, DefinitionID: "review",
		Created: testNow.Add(time.Minute),
		Properties: map[domain.QName]any{
			domain.AssocPooledActors: []domain.NodeRef{domain.NewNodeRef("g1")},
		},
	}}
	require.NoError(t, tasks.Save(ctx, owned))
	require.NoError(t, tasks.Save(ctx, pooled))

	byOwner, err := tasks.Search(ctx, TaskSearch{Owner: "alice", State: domain.TaskStateInProgress})
	require.NoError(t, err)
	require.Len(t, byOwner, 1)
	assert.Equal(t, "activiti$t1", byOwner[0].ID)

	byPool, err := tasks.Search(ctx, TaskSearch{PooledActors: []domain.NodeRef{domain.NewNodeRef("g1"), domain.NewNodeRef("p1")}, Unclaimed: true})
	require.NoError(t, err)
	require.Len(t, byPool, 1)
	assert.Equal(t, "activiti$t2", byPool[0].ID)

	claimed := byPool[0].WorkflowTask
	claimed.Properties[domain.PropOwner] = "bob"
	require.NoError(t, tasks.Update(ctx, claimed))
	byPool, err = tasks.Search(ctx, TaskSearch{PooledActors: []domain.NodeRef{domain.NewNodeRef("g1")}, Unclaimed: true})
	require.NoError(t, err)
	assert.Empty(t, byPool)

	all, err := tasks.Search(ctx, TaskSearch{InstanceID: wi.ID})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	end := testNow.Add(time.Hour)
	wi.Active = false
	wi.EndDate = &end
	require.NoError(t, instances.Update(ctx, wi))
	inactive := false
	completed, err := instances.Search(ctx, InstanceSearch{Active: &inactive})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.True(t, end.Equal(*completed[0].EndDate))

	require.NoError(t, instances.Delete(ctx, wi.ID))
	gone, err := tasks.FindByID(ctx, "activiti$t1")
	require.NoError(t, err)
	assert.Nil(t, gone)
	missing, err := instances.FindByID(ctx, wi.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}
