package people

import (
	"context"

	"github.com/RealZimboGuy/workflowrest/internal/idgen"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

type NodeService struct {
	nodes NodeRepo
}

func NewNodeService(nodes NodeRepo) *NodeService {
	return &NodeService{nodes: nodes}
}

func (s *NodeService) Exists(ctx context.Context, ref domain.NodeRef) (bool, error) {
	if ref.IsZero() {
		return false, nil
	}
	n, err := s.nodes.FindByRef(ctx, ref)
	return n != nil, err
}

// GetNode returns nil when the node does not exist.
func (s *NodeService) GetNode(ctx context.Context, ref domain.NodeRef) (*domain.Node, error) {
	return s.nodes.FindByRef(ctx, ref)
}

func (s *NodeService) GetProperty(ctx context.Context, ref domain.NodeRef, name domain.QName) (any, error) {
	n, err := s.nodes.FindByRef(ctx, ref)
	if err != nil || n == nil {
		return nil, err
	}
	return n.Property(name), nil
}

func (s *NodeService) SetProperty(ctx context.Context, ref domain.NodeRef, name domain.QName, value any) error {
	n, err := s.nodes.FindByRef(ctx, ref)
	if err != nil {
		return err
	}
	if n == nil {
		return ErrNodeNotFound
	}
	if n.Properties == nil {
		n.Properties = map[domain.QName]any{}
	}
	if value == nil {
		delete(n.Properties, name)
	} else {
		n.Properties[name] = value
	}
	return s.nodes.Update(ctx, n)
}

// CreateNode stores a new node in the default store under a generated id.
func (s *NodeService) CreateNode(ctx context.Context, typeName domain.QName, name string, props map[domain.QName]any) (*domain.Node, error) {
	if props == nil {
		props = map[domain.QName]any{}
	}
	n := &domain.Node{
		Ref:        domain.NewNodeRef(idgen.New()),
		Type:       typeName,
		Name:       name,
		Properties: props,
	}
	if err := s.nodes.Save(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (s *NodeService) AddChild(ctx context.Context, parent, child domain.NodeRef) error {
	return s.nodes.AddChild(ctx, parent, child)
}

func (s *NodeService) RemoveChild(ctx context.Context, parent, child domain.NodeRef) error {
	return s.nodes.RemoveChild(ctx, parent, child)
}

func (s *NodeService) GetChildren(ctx context.Context, parent domain.NodeRef) ([]domain.NodeRef, error) {
	return s.nodes.FindChildren(ctx, parent)
}

func (s *NodeService) DeleteNode(ctx context.Context, ref domain.NodeRef) error {
	return s.nodes.Delete(ctx, ref)
}
