// Package testenv wires the full service stack over a fresh sqlite database for tests.
package testenv

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/RealZimboGuy/workflowrest/internal/bootstrap"
	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/internal/migrations"
	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/internal/repository"
	"github.com/RealZimboGuy/workflowrest/internal/workflow"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	_ "github.com/mattn/go-sqlite3"
)

const (
	AdhocDefinitionID        = "activiti$activitiAdhoc:1"
	ReviewDefinitionID       = "activiti$activitiReview:1"
	ReviewPooledDefinitionID = "activiti$activitiReviewPooled:1"

	AdminUser     = "admin"
	AdminPassword = "admin"
)

// StepClock starts at Start and moves one second forward on every call, so rows written in one
// test keep a stable order.
type StepClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewStepClock(start time.Time) *StepClock {
	return &StepClock{now: start}
}

func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

type Env struct {
	DB          *sql.DB
	Clock       core.Clock
	Dictionary  *dictionary.Service
	Nodes       *people.NodeService
	People      *people.PersonService
	Authorities *people.AuthorityService
	Users       *repository.UserRepository
	Workflow    *workflow.Service
	Bootstrap   *bootstrap.Bootstrapper
}

// New migrates a temporary sqlite database, deploys the bundled definitions and creates the admin.
func New(t testing.TB) *Env {
	t.Helper()
	t.Setenv(config.DATABASE_TYPE, config.DATABASE_TYPE_SQLLITE)
	path := filepath.Join(t.TempDir(), "workflowrest.db")
	if err := migrations.Up(migrations.DialectSQLite, "sqlite3://"+path); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	dict, err := dictionary.Load()
	if err != nil {
		t.Fatalf("dictionary: %v", err)
	}
	clock := NewStepClock(time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC))
	nodeRepo := repository.NewNodeRepository(db, clock)
	users := repository.NewUserRepository(db, clock)
	nodes := people.NewNodeService(nodeRepo)
	persons := people.NewPersonService(nodeRepo, nil)
	authorities := people.NewAuthorityService(repository.NewAuthorityRepository(db), nodeRepo, AdminUser)
	wf := workflow.NewService(
		repository.NewDefinitionRepository(db),
		repository.NewInstanceRepository(db),
		repository.NewTaskRepository(db),
		persons, authorities, nodes, dict, clock,
		repository.NewTransactor(db),
	)
	boot := bootstrap.NewBootstrapper(dict, wf, persons, authorities, users)
	if err := boot.Run(context.Background(), AdminUser, AdminPassword); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return &Env{
		DB:          db,
		Clock:       clock,
		Dictionary:  dict,
		Nodes:       nodes,
		People:      persons,
		Authorities: authorities,
		Users:       users,
		Workflow:    wf,
		Bootstrap:   boot,
	}
}

// As returns a context authenticated as username.
func As(username string) context.Context {
	return core.WithUsername(context.Background(), username)
}

// Person creates a person with a home folder.
func (e *Env) Person(t testing.TB, username string) *domain.Person {
	t.Helper()
	p, err := e.People.CreatePerson(context.Background(), people.PersonDetails{
		UserName:  username,
		FirstName: username + "First",
		LastName:  username + "Last",
		Email:     username + "@example.com",
	})
	if err != nil {
		t.Fatalf("create person %s: %v", username, err)
	}
	return p
}

// Group creates a group containing the given members.
func (e *Env) Group(t testing.TB, name string, members ...string) domain.NodeRef {
	t.Helper()
	ctx := context.Background()
	ref, err := e.Authorities.CreateGroup(ctx, name, "")
	if err != nil {
		t.Fatalf("create group %s: %v", name, err)
	}
	for _, m := range members {
		if err := e.Authorities.AddToGroup(ctx, name, m); err != nil {
			t.Fatalf("add %s to %s: %v", m, name, err)
		}
	}
	return ref
}

// Content creates a cm:content node.
func (e *Env) Content(t testing.TB, name string) domain.NodeRef {
	t.Helper()
	n, err := e.Nodes.CreateNode(context.Background(), domain.TypeContent, name, map[domain.QName]any{domain.PropName: name})
	if err != nil {
		t.Fatalf("create content %s: %v", name, err)
	}
	return n.Ref
}

// Start starts a workflow as initiator and returns the instance.
func (e *Env) Start(t testing.TB, initiator, definitionID string, params map[domain.QName]any) *domain.WorkflowInstance {
	t.Helper()
	path, err := e.Workflow.StartWorkflow(As(initiator), definitionID, params)
	if err != nil {
		t.Fatalf("start %s: %v", definitionID, err)
	}
	return path.Instance
}

// StartAndSubmit starts a workflow and ends its start task along the default transition.
func (e *Env) StartAndSubmit(t testing.TB, initiator, definitionID string, params map[domain.QName]any) *domain.WorkflowInstance {
	t.Helper()
	wi := e.Start(t, initiator, definitionID, params)
	start, err := e.Workflow.GetStartTask(context.Background(), wi.ID)
	if err != nil || start == nil {
		t.Fatalf("start task of %s: %v", wi.ID, err)
	}
	if _, err := e.Workflow.EndTask(As(initiator), start.ID, ""); err != nil {
		t.Fatalf("end start task: %v", err)
	}
	return wi
}

// Tasks returns the tasks of a workflow in the given state.
func (e *Env) Tasks(t testing.TB, workflowID string, state domain.TaskState) []*domain.WorkflowTask {
	t.Helper()
	tasks, err := e.Workflow.QueryTasks(context.Background(), workflow.TaskQuery{InstanceID: workflowID, State: state})
	if err != nil {
		t.Fatalf("query tasks: %v", err)
	}
	return tasks
}
