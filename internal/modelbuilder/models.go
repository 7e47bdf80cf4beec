package modelbuilder

type PersonModel struct {
	UserName  string `json:"userName"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type TypeModel struct {
	Name        string `json:"name"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

type TransitionModel struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	IsDefault   bool   `json:"isDefault"`
	IsHidden    bool   `json:"isHidden"`
}

type NodeModel struct {
	Name        string            `json:"name"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	IsTaskNode  bool              `json:"isTaskNode"`
	Transitions []TransitionModel `json:"transitions"`
}

type TaskDefinitionModel struct {
	ID   string    `json:"id"`
	URL  string    `json:"url"`
	Type TypeModel `json:"type"`
	Node NodeModel `json:"node"`
}

// TaskModel is a task instance. Definition is only set by the detailed form.
type TaskModel struct {
	ID               string                 `json:"id"`
	URL              string                 `json:"url"`
	Name             string                 `json:"name"`
	Title            string                 `json:"title"`
	Description      string                 `json:"description"`
	State            string                 `json:"state"`
	Path             string                 `json:"path"`
	IsPooled         bool                   `json:"isPooled"`
	IsEditable       bool                   `json:"isEditable"`
	IsReassignable   bool                   `json:"isReassignable"`
	IsClaimable      bool                   `json:"isClaimable"`
	IsReleasable     bool                   `json:"isReleasable"`
	Outcome          *string                `json:"outcome"`
	Owner            *PersonModel           `json:"owner"`
	Properties       map[string]any         `json:"properties"`
	WorkflowInstance *WorkflowInstanceModel `json:"workflowInstance"`
	Definition       *TaskDefinitionModel   `json:"definition,omitempty"`
}

// WorkflowInstanceModel is a workflow instance. Definition and Tasks are only set by the detailed form.
type WorkflowInstanceModel struct {
	ID                  string                   `json:"id"`
	URL                 string                   `json:"url"`
	Name                string                   `json:"name"`
	Title               string                   `json:"title"`
	Description         string                   `json:"description"`
	Message             *string                  `json:"message"`
	IsActive            bool                     `json:"isActive"`
	StartDate           *string                  `json:"startDate"`
	Priority            *int                     `json:"priority"`
	EndDate             *string                  `json:"endDate"`
	DueDate             *string                  `json:"dueDate"`
	Initiator           *PersonModel             `json:"initiator"`
	Context             *string                  `json:"context"`
	Package             *string                  `json:"package"`
	StartTaskInstanceID *string                  `json:"startTaskInstanceId"`
	DefinitionURL       string                   `json:"definitionUrl"`
	DiagramURL          *string                  `json:"diagramUrl"`
	Definition          *WorkflowDefinitionModel `json:"definition,omitempty"`
	Tasks               []*TaskModel             `json:"tasks,omitempty"`
}

type TaskDefinitionRef struct {
	URL  string `json:"url"`
	Type string `json:"type"`
}

// WorkflowDefinitionModel is a definition. The start task and task definition fields are only set
// by the detailed form.
type WorkflowDefinitionModel struct {
	ID                      string              `json:"id"`
	URL                     string              `json:"url"`
	Name                    string              `json:"name"`
	Title                   string              `json:"title"`
	Description             string              `json:"description"`
	Version                 string              `json:"version"`
	StartTaskDefinitionURL  string              `json:"startTaskDefinitionUrl,omitempty"`
	StartTaskDefinitionType string              `json:"startTaskDefinitionType,omitempty"`
	TaskDefinitions         []TaskDefinitionRef `json:"taskDefinitions,omitempty"`
}
