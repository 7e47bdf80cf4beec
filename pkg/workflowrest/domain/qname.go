package domain

import (
	"fmt"
	"strings"
)

const (
	DefaultURI      = ""
	SystemModelURI  = "http://www.alfresco.org/model/system/1.0"
	ContentModelURI = "http://www.alfresco.org/model/content/1.0"
	BPMModelURI     = "http://www.alfresco.org/model/bpm/1.0"
	WorkflowURI     = "http://www.alfresco.org/model/workflow/1.0"
)

// QName is a namespace qualified name used for types, properties and associations.
type QName struct {
	Namespace string
	LocalName string
}

func NewQName(namespace, localName string) QName {
	return QName{Namespace: namespace, LocalName: localName}
}

// String renders the name as {namespace}localName.
func (q QName) String() string {
	return "{" + q.Namespace + "}" + q.LocalName
}

func (q QName) IsZero() bool {
	return q.Namespace == "" && q.LocalName == ""
}

// ParseQName parses the {namespace}localName form produced by String.
// A value without braces is placed in the default namespace.
func ParseQName(s string) (QName, error) {
	if s == "" {
		return QName{}, fmt.Errorf("empty qname")
	}
	if !strings.HasPrefix(s, "{") {
		return QName{Namespace: DefaultURI, LocalName: s}, nil
	}
	end := strings.Index(s, "}")
	if end < 0 || end == len(s)-1 {
		return QName{}, fmt.Errorf("invalid qname %q", s)
	}
	return QName{Namespace: s[1:end], LocalName: s[end+1:]}, nil
}

var (
	TypePerson             = NewQName(ContentModelURI, "person")
	TypeAuthorityContainer = NewQName(ContentModelURI, "authorityContainer")
	TypeFolder             = NewQName(ContentModelURI, "folder")
	TypeContent            = NewQName(ContentModelURI, "content")
	TypePackage            = NewQName(BPMModelURI, "package")
	TypeWorkflowTask       = NewQName(BPMModelURI, "workflowTask")
	TypeStartTask          = NewQName(BPMModelURI, "startTask")

	PropName          = NewQName(ContentModelURI, "name")
	PropTitle         = NewQName(ContentModelURI, "title")
	PropOwner         = NewQName(ContentModelURI, "owner")
	PropUserName      = NewQName(ContentModelURI, "userName")
	PropFirstName     = NewQName(ContentModelURI, "firstName")
	PropLastName      = NewQName(ContentModelURI, "lastName")
	PropEmail         = NewQName(ContentModelURI, "email")
	PropHomeFolder    = NewQName(ContentModelURI, "homeFolder")
	PropAuthorityName = NewQName(ContentModelURI, "authorityName")

	PropAuthorityDisplayName = NewQName(ContentModelURI, "authorityDisplayName")

	PropDescription         = NewQName(BPMModelURI, "description")
	PropPriority            = NewQName(BPMModelURI, "priority")
	PropDueDate             = NewQName(BPMModelURI, "dueDate")
	PropStartDate           = NewQName(BPMModelURI, "startDate")
	PropCompletionDate      = NewQName(BPMModelURI, "completionDate")
	PropStatus              = NewQName(BPMModelURI, "status")
	PropPercentComplete     = NewQName(BPMModelURI, "percentComplete")
	PropOutcome             = NewQName(BPMModelURI, "outcome")
	PropReassignable        = NewQName(BPMModelURI, "reassignable")
	PropPackage             = NewQName(BPMModelURI, "package")
	PropContext             = NewQName(BPMModelURI, "context")
	PropWorkflowDescription = NewQName(BPMModelURI, "workflowDescription")
	PropWorkflowDueDate     = NewQName(BPMModelURI, "workflowDueDate")
	PropWorkflowPriority    = NewQName(BPMModelURI, "workflowPriority")

	AssocAssignee      = NewQName(BPMModelURI, "assignee")
	AssocGroupAssignee = NewQName(BPMModelURI, "groupAssignee")
	AssocPooledActors  = NewQName(BPMModelURI, "pooledActors")
)
