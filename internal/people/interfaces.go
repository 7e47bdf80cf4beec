package people

import (
	"context"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// NodeRepo matches repository.NodeRepository.
type NodeRepo interface {
	Save(ctx context.Context, n *domain.Node) error
	Update(ctx context.Context, n *domain.Node) error
	FindByRef(ctx context.Context, ref domain.NodeRef) (*domain.Node, error)
	FindByTypeAndName(ctx context.Context, typeName domain.QName, name string) (*domain.Node, error)
	Delete(ctx context.Context, ref domain.NodeRef) error
	AddChild(ctx context.Context, parent, child domain.NodeRef) error
	RemoveChild(ctx context.Context, parent, child domain.NodeRef) error
	FindChildren(ctx context.Context, parent domain.NodeRef) ([]domain.NodeRef, error)
}

// AuthorityRepo matches repository.AuthorityRepository.
type AuthorityRepo interface {
	AddMember(ctx context.Context, group, member string) error
	RemoveMember(ctx context.Context, group, member string) error
	FindMembers(ctx context.Context, group string) ([]string, error)
	FindGroups(ctx context.Context, member string) ([]string, error)
}

// PersonCache keeps resolved people between requests. A nil cache disables caching.
type PersonCache interface {
	Get(ctx context.Context, username string) (*domain.Person, bool)
	Set(ctx context.Context, p *domain.Person)
	Delete(ctx context.Context, username string)
}
