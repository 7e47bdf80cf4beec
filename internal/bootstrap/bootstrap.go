// Package bootstrap deploys the bundled workflow definitions and makes sure the admin account exists.
package bootstrap

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"

	"github.com/RealZimboGuy/workflowrest/internal/dictionary"
	"github.com/RealZimboGuy/workflowrest/internal/idgen"
	"github.com/RealZimboGuy/workflowrest/internal/people"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

//go:embed definitions/*.yaml
var definitionFS embed.FS

type definitionFile struct {
	Definitions []struct {
		ID          string `yaml:"id"`
		Name        string `yaml:"name"`
		Title       string `yaml:"title"`
		Description string `yaml:"description"`
		Version     int    `yaml:"version"`
		Tasks       []struct {
			ID          string                      `yaml:"id"`
			Type        string                      `yaml:"type"`
			Title       string                      `yaml:"title"`
			Description string                      `yaml:"description"`
			Start       bool                        `yaml:"start"`
			Assignment  string                      `yaml:"assignment"`
			Transitions []domain.WorkflowTransition `yaml:"transitions"`
		} `yaml:"tasks"`
	} `yaml:"definitions"`
}

// Deployment is a definition together with its task nodes.
type Deployment struct {
	Definition *domain.WorkflowDefinition
	Tasks      []*domain.WorkflowTaskDefinition
}

// Deployer matches workflow.Service.
type Deployer interface {
	DeployDefinition(ctx context.Context, def *domain.WorkflowDefinition, taskDefs []*domain.WorkflowTaskDefinition) error
}

type PersonStore interface {
	GetPerson(ctx context.Context, username string) (*domain.Person, error)
	CreatePerson(ctx context.Context, d people.PersonDetails) (*domain.Person, error)
}

type GroupStore interface {
	CreateGroup(ctx context.Context, name, displayName string) (domain.NodeRef, error)
	AddToGroup(ctx context.Context, group, member string) error
}

type UserStore interface {
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	Save(ctx context.Context, u *domain.User) (int64, error)
}

type Bootstrapper struct {
	dictionary *dictionary.Service
	deployer   Deployer
	people     PersonStore
	groups     GroupStore
	users      UserStore
}

func NewBootstrapper(dict *dictionary.Service, deployer Deployer, people PersonStore, groups GroupStore, users UserStore) *Bootstrapper {
	return &Bootstrapper{dictionary: dict, deployer: deployer, people: people, groups: groups, users: users}
}

// LoadDefinitions parses every embedded definition file.
func LoadDefinitions(dict *dictionary.Service) ([]Deployment, error) {
	files, err := fs.Glob(definitionFS, "definitions/*.yaml")
	if err != nil {
		return nil, err
	}
	var out []Deployment
	for _, f := range files {
		b, err := definitionFS.ReadFile(f)
		if err != nil {
			return nil, err
		}
		deployments, err := ParseDefinitions(dict, b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		out = append(out, deployments...)
	}
	return out, nil
}

// ParseDefinitions reads a YAML definition document. Every task type must exist in the dictionary
// and each definition needs exactly one start task.
func ParseDefinitions(dict *dictionary.Service, data []byte) ([]Deployment, error) {
	var file definitionFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse workflow definitions: %w", err)
	}
	out := make([]Deployment, 0, len(file.Definitions))
	for _, d := range file.Definitions {
		if d.ID == "" || d.Name == "" {
			return nil, fmt.Errorf("workflow definition needs an id and a name")
		}
		version := d.Version
		if version == 0 {
			version = 1
		}
		def := &domain.WorkflowDefinition{
			ID:          d.ID,
			Name:        d.Name,
			Title:       d.Title,
			Description: d.Description,
			Version:     strconv.Itoa(version),
		}
		seen := map[string]bool{}
		tasks := make([]*domain.WorkflowTaskDefinition, 0, len(d.Tasks))
		for i, t := range d.Tasks {
			if seen[t.ID] {
				return nil, fmt.Errorf("%s: duplicate task %s", d.ID, t.ID)
			}
			seen[t.ID] = true
			typeName, err := dict.ResolveTypeName(t.Type)
			if err != nil {
				return nil, fmt.Errorf("%s task %s: %w", d.ID, t.ID, err)
			}
			assignment := t.Assignment
			if assignment == "" {
				assignment = domain.AssignInitiator
			}
			td := &domain.WorkflowTaskDefinition{
				ID:           t.ID,
				DefinitionID: d.ID,
				Metadata:     dict.TypeDefinition(typeName),
				Node: domain.WorkflowNode{
					Name:        t.ID,
					Title:       t.Title,
					Description: t.Description,
					Type:        "task",
					IsTaskNode:  true,
					Transitions: t.Transitions,
				},
				Assignment: assignment,
				IsStart:    t.Start,
				Position:   i,
			}
			if td.Node.Description == "" {
				td.Node.Description = td.Node.Title
			}
			if t.Start {
				if def.StartTaskDefinition != nil {
					return nil, fmt.Errorf("%s: more than one start task", d.ID)
				}
				def.StartTaskDefinition = td
			}
			tasks = append(tasks, td)
		}
		if def.StartTaskDefinition == nil {
			return nil, fmt.Errorf("%s: no start task", d.ID)
		}
		out = append(out, Deployment{Definition: def, Tasks: tasks})
	}
	return out, nil
}

// DeployDefinitions registers the bundled definitions, replacing earlier deployments with the same id.
func (b *Bootstrapper) DeployDefinitions(ctx context.Context) error {
	deployments, err := LoadDefinitions(b.dictionary)
	if err != nil {
		return err
	}
	for _, d := range deployments {
		if err := b.deployer.DeployDefinition(ctx, d.Definition, d.Tasks); err != nil {
			return err
		}
		slog.Info("Deployed workflow definition", "id", d.Definition.ID, "tasks", len(d.Tasks))
	}
	return nil
}

// EnsureAdmin creates the admin person, API user and the administrators group when missing.
func (b *Bootstrapper) EnsureAdmin(ctx context.Context, username, password string) error {
	if _, _, err := b.EnsureAccount(ctx, people.PersonDetails{UserName: username, FirstName: "Administrator"}, password); err != nil {
		return err
	}
	if _, err := b.groups.CreateGroup(ctx, people.AdminGroup, "Administrators"); err != nil {
		return fmt.Errorf("create admin group: %w", err)
	}
	return b.groups.AddToGroup(ctx, people.AdminGroup, username)
}

// EnsureAccount creates the person and an API user with a bcrypt hashed password and a generated
// API key. Existing records are left untouched.
func (b *Bootstrapper) EnsureAccount(ctx context.Context, d people.PersonDetails, password string) (*domain.Person, *domain.User, error) {
	p, err := b.people.GetPerson(ctx, d.UserName)
	if err != nil {
		return nil, nil, err
	}
	if p == nil {
		if p, err = b.people.CreatePerson(ctx, d); err != nil {
			return nil, nil, err
		}
	}
	u, err := b.users.FindByUsername(ctx, d.UserName)
	if err != nil {
		return nil, nil, err
	}
	if u != nil {
		return p, u, nil
	}
	if password == "" {
		return nil, nil, fmt.Errorf("password is required for %s", d.UserName)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}
	u = &domain.User{
		Username: d.UserName,
		Password: string(hashed),
		ApiKey:   sql.NullString{String: idgen.New(), Valid: true},
	}
	if _, err := b.users.Save(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("save user %s: %w", d.UserName, err)
	}
	slog.Info("Created API user", "username", d.UserName)
	return p, u, nil
}

// Run deploys the definitions and ensures the admin account.
func (b *Bootstrapper) Run(ctx context.Context, adminUser, adminPassword string) error {
	if err := b.DeployDefinitions(ctx); err != nil {
		return err
	}
	return b.EnsureAdmin(ctx, adminUser, adminPassword)
}
