package domain

import (
	"fmt"
	"strings"
	"time"
)

type TaskState string

const (
	TaskStateInProgress TaskState = "IN_PROGRESS"
	TaskStateCompleted  TaskState = "COMPLETED"
)

// ParseTaskState accepts the state name in any case.
func ParseTaskState(s string) (TaskState, error) {
	switch TaskState(strings.ToUpper(strings.TrimSpace(s))) {
	case TaskStateInProgress:
		return TaskStateInProgress, nil
	case TaskStateCompleted:
		return TaskStateCompleted, nil
	}
	return "", fmt.Errorf("unrecognised task state %q", s)
}

// Assignment strategies for a task node.
const (
	AssignInitiator     = "initiator"
	AssignAssignee      = "assignee"
	AssignGroupAssignee = "groupAssignee"
)

type TypeDefinition struct {
	Name        QName
	Title       string
	Description string
}

type WorkflowTransition struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	IsDefault   bool   `yaml:"isDefault"`
	IsHidden    bool   `yaml:"isHidden"`
	To          string `yaml:"to"`
}

type WorkflowNode struct {
	Name        string
	Title       string
	Description string
	Type        string
	IsTaskNode  bool
	Transitions []WorkflowTransition
}

// DefaultTransition returns the transition marked as default, or the first one.
func (n *WorkflowNode) DefaultTransition() *WorkflowTransition {
	for i := range n.Transitions {
		if n.Transitions[i].IsDefault {
			return &n.Transitions[i]
		}
	}
	if len(n.Transitions) > 0 {
		return &n.Transitions[0]
	}
	return nil
}

// Transition finds a transition by id. An empty id selects the default transition.
func (n *WorkflowNode) Transition(id string) *WorkflowTransition {
	if id == "" {
		return n.DefaultTransition()
	}
	for i := range n.Transitions {
		if n.Transitions[i].ID == id {
			return &n.Transitions[i]
		}
	}
	return nil
}

type WorkflowTaskDefinition struct {
	ID           string
	DefinitionID string
	Metadata     TypeDefinition
	Node         WorkflowNode
	Assignment   string
	IsStart      bool
	Position     int
}

type WorkflowDefinition struct {
	ID                  string
	Name                string
	Title               string
	Description         string
	Version             string
	StartTaskDefinition *WorkflowTaskDefinition
	Created             time.Time
}

type WorkflowInstance struct {
	ID            string
	DefinitionID  string
	Definition    *WorkflowDefinition
	PathID        string
	Description   string
	Active        bool
	Initiator     NodeRef
	InitiatorHome NodeRef
	StartDate     time.Time
	EndDate       *time.Time
	DueDate       *time.Time
	Priority      *int
	Context       NodeRef
	Package       NodeRef
}

type WorkflowPath struct {
	ID       string
	Instance *WorkflowInstance
	Active   bool
}

type WorkflowTask struct {
	ID           string
	Name         string
	Title        string
	Description  string
	State        TaskState
	Path         *WorkflowPath
	Definition   *WorkflowTaskDefinition
	DefinitionID string
	Properties   map[QName]any
	Created      time.Time
	Completed    *time.Time
}

func (t *WorkflowTask) Property(name QName) any {
	if t.Properties == nil {
		return nil
	}
	return t.Properties[name]
}

// Owner returns the cm:owner property, "" when unassigned.
func (t *WorkflowTask) Owner() string {
	s, _ := t.Property(PropOwner).(string)
	return s
}

// PooledActors returns the bpm:pooledActors association targets.
func (t *WorkflowTask) PooledActors() []NodeRef {
	switch v := t.Property(AssocPooledActors).(type) {
	case []NodeRef:
		return v
	case NodeRef:
		return []NodeRef{v}
	case []any:
		refs := make([]NodeRef, 0, len(v))
		for _, item := range v {
			if ref, ok := item.(NodeRef); ok {
				refs = append(refs, ref)
			}
		}
		return refs
	}
	return nil
}

// DueDate returns bpm:dueDate, nil when unset.
func (t *WorkflowTask) DueDate() *time.Time {
	if d, ok := t.Property(PropDueDate).(time.Time); ok {
		return &d
	}
	return nil
}

// Priority returns bpm:priority, nil when unset.
func (t *WorkflowTask) Priority() *int {
	switch v := t.Property(PropPriority).(type) {
	case int:
		return &v
	case int64:
		p := int(v)
		return &p
	case float64:
		p := int(v)
		return &p
	}
	return nil
}

func (t *WorkflowTask) Instance() *WorkflowInstance {
	if t.Path == nil {
		return nil
	}
	return t.Path.Instance
}
