package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/internal/testenv"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDiskFull = errors.New("disk full")

// brokenTaskInserts stores task updates but fails every insert.
type brokenTaskInserts struct {
	*repository.TaskRepository
}

func (brokenTaskInserts) Save(ctx context.Context, st *repository.StoredTask) error {
	return errDiskFull
}

func serviceWithBrokenTaskInserts(env *testenv.Env) *workflow.Service {
	return workflow.NewService(
		repository.NewDefinitionRepository(env.DB),
		repository.NewInstanceRepository(env.DB),
		brokenTaskInserts{repository.NewTaskRepository(env.DB)},
		env.People, env.Authorities, env.Nodes, env.Dictionary, env.Clock,
		repository.NewTransactor(env.DB),
	)
}

func TestStartWorkflowSavesNothingWhenTheStartTaskFails(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	env.Person(t, "alice")
	instances := repository.NewInstanceRepository(env.DB)
	before, err := instances.Search(ctx, repository.InstanceSearch{})
	require.NoError(t, err)

	_, err = serviceWithBrokenTaskInserts(env).StartWorkflow(testenv.As("alice"), testenv.AdhocDefinitionID, nil)
	require.ErrorIs(t, err, errDiskFull)

	after, err := instances.Search(ctx, repository.InstanceSearch{})
	require.NoError(t, err)
	assert.Len(t, after, len(before))
	active, err := env.Workflow.GetActiveWorkflows(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestEndTaskKeepsTheTaskOpenWhenTheNextTaskFails(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	env.Person(t, "alice")
	bob := env.Person(t, "bob")
	wi := env.Start(t, "alice", testenv.AdhocDefinitionID, map[domain.QName]any{
		domain.AssocAssignee: []domain.NodeRef{bob.NodeRef},
	})
	start, err := env.Workflow.GetStartTask(ctx, wi.ID)
	require.NoError(t, err)

	_, err = serviceWithBrokenTaskInserts(env).EndTask(testenv.As("alice"), start.ID, "")
	require.ErrorIs(t, err, errDiskFull)

	reloaded, err := env.Workflow.GetTaskByID(ctx, start.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStateInProgress, reloaded.State)
	assert.Nil(t, reloaded.Completed)
	assert.Len(t, env.Tasks(t, wi.ID, domain.TaskStateInProgress), 1)
	assert.Empty(t, env.Tasks(t, wi.ID, domain.TaskStateCompleted))

	// the stack still works once inserts succeed again
	_, err = env.Workflow.EndTask(testenv.As("alice"), start.ID, "")
	require.NoError(t, err)
	open := env.Tasks(t, wi.ID, domain.TaskStateInProgress)
	require.Len(t, open, 1)
	assert.Equal(t, "wf:adhocTask", open[0].Name)
}

func TestTransactionRollsBackEveryWrite(t *testing.T) {
	env := testenv.New(t)
	ctx := context.Background()
	env.Person(t, "alice")
	wi := env.Start(t, "alice", testenv.AdhocDefinitionID, nil)
	instances := repository.NewInstanceRepository(env.DB)

	err := repository.NewTransactor(env.DB).Transaction(ctx, func(ctx context.Context) error {
		ended := *wi
		ended.Active = false
		if err := instances.Update(ctx, &ended); err != nil {
			return err
		}
		got, err := instances.FindByID(ctx, wi.ID)
		require.NoError(t, err)
		assert.False(t, got.Active)
		return errDiskFull
	})
	require.ErrorIs(t, err, errDiskFull)

	got, err := instances.FindByID(ctx, wi.ID)
	require.NoError(t, err)
	assert.True(t, got.Active)
}
