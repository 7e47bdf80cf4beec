package workflow

import (
	"context"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/duke-git/lancet/v2/slice"
)

// TaskPermissions are the actions a user may take on a task.
type TaskPermissions struct {
	IsPooled       bool
	IsEditable     bool
	IsReassignable bool
	IsClaimable    bool
	IsReleasable   bool
}

// Permissions evaluates every task permission for username in one pass.
func (s *Service) Permissions(ctx context.Context, task *domain.WorkflowTask, username string) (TaskPermissions, error) {
	perms := TaskPermissions{IsPooled: len(task.PooledActors()) > 0}
	if task.State != domain.TaskStateInProgress {
		return perms, nil
	}
	owner := task.Owner()
	ownerOrInitiator := owner != "" && owner == username
	if !ownerOrInitiator && username != "" {
		initiator, err := s.GetWorkflowInitiatorUsername(ctx, task.Instance())
		if err != nil {
			return perms, err
		}
		ownerOrInitiator = initiator == username
	}
	inPool := false
	if perms.IsPooled {
		var err error
		if inPool, err = s.IsUserInPooledActors(ctx, task, username); err != nil {
			return perms, err
		}
	}

	perms.IsEditable = ownerOrInitiator || (owner == "" && inPool)
	perms.IsClaimable = owner == "" && inPool
	perms.IsReleasable = owner != "" && perms.IsPooled && ownerOrInitiator
	reassignable, ok := task.Property(domain.PropReassignable).(bool)
	perms.IsReassignable = owner != "" && !perms.IsPooled && (!ok || reassignable) && ownerOrInitiator
	return perms, nil
}

func (s *Service) IsTaskEditable(ctx context.Context, task *domain.WorkflowTask, username string) (bool, error) {
	p, err := s.Permissions(ctx, task, username)
	return p.IsEditable, err
}

func (s *Service) IsTaskReassignable(ctx context.Context, task *domain.WorkflowTask, username string) (bool, error) {
	p, err := s.Permissions(ctx, task, username)
	return p.IsReassignable, err
}

func (s *Service) IsTaskClaimable(ctx context.Context, task *domain.WorkflowTask, username string) (bool, error) {
	p, err := s.Permissions(ctx, task, username)
	return p.IsClaimable, err
}

func (s *Service) IsTaskReleasable(ctx context.Context, task *domain.WorkflowTask, username string) (bool, error) {
	p, err := s.Permissions(ctx, task, username)
	return p.IsReleasable, err
}

// IsUserInPooledActors reports whether username is a pooled actor of the task, either as a person
// or through membership of a pooled group.
func (s *Service) IsUserInPooledActors(ctx context.Context, task *domain.WorkflowTask, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	var groups []string
	loaded := false
	for _, ref := range task.PooledActors() {
		name, err := s.authorities.AuthorityName(ctx, ref)
		if err != nil {
			return false, err
		}
		if name == "" {
			continue
		}
		if name == username {
			return true, nil
		}
		if !loaded {
			if groups, err = s.authorities.GetContainingAuthorities(ctx, username); err != nil {
				return false, err
			}
			loaded = true
		}
		if slice.Contain(groups, name) {
			return true, nil
		}
	}
	return false, nil
}

// GetWorkflowInitiatorUsername returns the user name of the initiator node, "" when the instance has
// no initiator or the node is gone.
func (s *Service) GetWorkflowInitiatorUsername(ctx context.Context, wi *domain.WorkflowInstance) (string, error) {
	if wi == nil || wi.Initiator.IsZero() {
		return "", nil
	}
	p, err := s.people.GetPersonByRef(ctx, wi.Initiator)
	if err != nil || p == nil {
		return "", err
	}
	return p.UserName, nil
}

// CanUserEndWorkflow reports whether username may cancel or delete the workflow: admins always may,
// otherwise only the initiator. The initiator is taken from the initiator node, then from the
// owner of the start task, then from the owner of the initiator's home folder when the initiator
// node has been removed.
func (s *Service) CanUserEndWorkflow(ctx context.Context, wi *domain.WorkflowInstance, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	admin, err := s.authorities.IsAdminAuthority(ctx, username)
	if err != nil || admin {
		return admin, err
	}
	initiator, err := s.GetWorkflowInitiatorUsername(ctx, wi)
	if err != nil {
		return false, err
	}
	if initiator == "" {
		start, err := s.GetStartTask(ctx, wi.ID)
		if err != nil {
			return false, err
		}
		if start != nil {
			initiator = start.Owner()
		}
	}
	if initiator == "" && !wi.Initiator.IsZero() && !wi.InitiatorHome.IsZero() {
		home, err := s.nodes.GetNode(ctx, wi.InitiatorHome)
		if err != nil {
			return false, err
		}
		if home != nil {
			initiator = home.StringProperty(domain.PropOwner)
		}
	}
	return initiator != "" && initiator == username, nil
}
