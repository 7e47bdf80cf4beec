package people

import (
	"context"
	"fmt"
	"strings"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
	"github.com/duke-git/lancet/v2/slice"
)

const (
	GroupPrefix = "GROUP_"
	AdminGroup  = "GROUP_ALFRESCO_ADMINISTRATORS"
)

// AuthorityService answers group membership and admin questions.
type AuthorityService struct {
	authorities AuthorityRepo
	nodes       *NodeService
	repo        NodeRepo
	adminUser   string
}

func NewAuthorityService(authorities AuthorityRepo, repo NodeRepo, adminUser string) *AuthorityService {
	return &AuthorityService{authorities: authorities, nodes: NewNodeService(repo), repo: repo, adminUser: adminUser}
}

// IsAdminAuthority is true for the configured admin user and members of the admin group.
func (s *AuthorityService) IsAdminAuthority(ctx context.Context, username string) (bool, error) {
	if username == "" {
		return false, nil
	}
	if s.adminUser != "" && username == s.adminUser {
		return true, nil
	}
	groups, err := s.GetContainingAuthorities(ctx, username)
	if err != nil {
		return false, err
	}
	return slice.Contain(groups, AdminGroup), nil
}

// GetContainingAuthorities returns every group that contains the authority, directly or through
// nested groups.
func (s *AuthorityService) GetContainingAuthorities(ctx context.Context, authority string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	queue := []string{authority}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		groups, err := s.authorities.FindGroups(ctx, current)
		if err != nil {
			return nil, fmt.Errorf("groups of %s: %w", current, err)
		}
		for _, g := range groups {
			if seen[g] {
				continue
			}
			seen[g] = true
			out = append(out, g)
			queue = append(queue, g)
		}
	}
	return out, nil
}

// IsMember reports whether username belongs to group, directly or through nested groups.
func (s *AuthorityService) IsMember(ctx context.Context, username, group string) (bool, error) {
	groups, err := s.GetContainingAuthorities(ctx, username)
	if err != nil {
		return false, err
	}
	return slice.Contain(groups, group), nil
}

func groupName(name string) string {
	if strings.HasPrefix(name, GroupPrefix) {
		return name
	}
	return GroupPrefix + name
}

// CreateGroup returns the node of the group, creating it when missing.
func (s *AuthorityService) CreateGroup(ctx context.Context, name, displayName string) (domain.NodeRef, error) {
	name = groupName(name)
	existing, err := s.repo.FindByTypeAndName(ctx, domain.TypeAuthorityContainer, name)
	if err != nil {
		return domain.NodeRef{}, err
	}
	if existing != nil {
		return existing.Ref, nil
	}
	if displayName == "" {
		displayName = strings.TrimPrefix(name, GroupPrefix)
	}
	n, err := s.nodes.CreateNode(ctx, domain.TypeAuthorityContainer, name, map[domain.QName]any{
		domain.PropAuthorityName:        name,
		domain.PropAuthorityDisplayName: displayName,
	})
	if err != nil {
		return domain.NodeRef{}, err
	}
	return n.Ref, nil
}

// GetGroup returns the node of a group, nil when it does not exist.
func (s *AuthorityService) GetGroup(ctx context.Context, name string) (*domain.Node, error) {
	return s.repo.FindByTypeAndName(ctx, domain.TypeAuthorityContainer, groupName(name))
}

// AddToGroup adds a user or a group to group.
func (s *AuthorityService) AddToGroup(ctx context.Context, group, member string) error {
	g, err := s.GetGroup(ctx, group)
	if err != nil {
		return err
	}
	if g == nil {
		return fmt.Errorf("%w: %s", ErrGroupNotFound, group)
	}
	return s.authorities.AddMember(ctx, g.Name, member)
}

func (s *AuthorityService) RemoveFromGroup(ctx context.Context, group, member string) error {
	return s.authorities.RemoveMember(ctx, groupName(group), member)
}

// AuthorityName resolves an actor node to its authority name: the user name of a person or the
// group name of an authority container. "" when the node is neither.
func (s *AuthorityService) AuthorityName(ctx context.Context, ref domain.NodeRef) (string, error) {
	n, err := s.repo.FindByRef(ctx, ref)
	if err != nil || n == nil {
		return "", err
	}
	switch n.Type {
	case domain.TypePerson:
		return n.StringProperty(domain.PropUserName), nil
	case domain.TypeAuthorityContainer:
		if name := n.StringProperty(domain.PropAuthorityName); name != "" {
			return name, nil
		}
		return n.Name, nil
	}
	return "", nil
}
