package people

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

// PersonDetails are the fields accepted when creating a person.
type PersonDetails struct {
	UserName  string
	FirstName string
	LastName  string
	Email     string
}

// PersonService resolves people stored as cm:person nodes.
type PersonService struct {
	nodes *NodeService
	repo  NodeRepo
	cache PersonCache
}

// NewPersonService builds the service. cache may be nil.
func NewPersonService(repo NodeRepo, cache PersonCache) *PersonService {
	return &PersonService{nodes: NewNodeService(repo), repo: repo, cache: cache}
}

func toPerson(n *domain.Node) *domain.Person {
	p := &domain.Person{
		UserName:  n.StringProperty(domain.PropUserName),
		FirstName: n.StringProperty(domain.PropFirstName),
		LastName:  n.StringProperty(domain.PropLastName),
		Email:     n.StringProperty(domain.PropEmail),
		NodeRef:   n.Ref,
	}
	if home, ok := n.Property(domain.PropHomeFolder).(domain.NodeRef); ok {
		p.HomeFolder = home
	}
	return p
}

// GetPerson returns nil when no person has the user name.
func (s *PersonService) GetPerson(ctx context.Context, username string) (*domain.Person, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	if s.cache != nil {
		if p, ok := s.cache.Get(ctx, username); ok {
			return p, nil
		}
	}
	n, err := s.repo.FindByTypeAndName(ctx, domain.TypePerson, username)
	if err != nil {
		return nil, fmt.Errorf("find person %s: %w", username, err)
	}
	if n == nil {
		return nil, nil
	}
	p := toPerson(n)
	if s.cache != nil {
		s.cache.Set(ctx, p)
	}
	return p, nil
}

// GetPersonByRef returns nil when the node is missing or is not a person.
func (s *PersonService) GetPersonByRef(ctx context.Context, ref domain.NodeRef) (*domain.Person, error) {
	if ref.IsZero() {
		return nil, nil
	}
	n, err := s.repo.FindByRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if n == nil || n.Type != domain.TypePerson {
		return nil, nil
	}
	return toPerson(n), nil
}

func (s *PersonService) PersonExists(ctx context.Context, username string) (bool, error) {
	p, err := s.GetPerson(ctx, username)
	return p != nil, err
}

// CreatePerson stores the person and a home folder owned by them.
func (s *PersonService) CreatePerson(ctx context.Context, d PersonDetails) (*domain.Person, error) {
	d.UserName = strings.TrimSpace(d.UserName)
	if d.UserName == "" {
		return nil, fmt.Errorf("user name is required")
	}
	exists, err := s.PersonExists(ctx, d.UserName)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrPersonExists, d.UserName)
	}
	home, err := s.nodes.CreateNode(ctx, domain.TypeFolder, d.UserName+" home", map[domain.QName]any{
		domain.PropName:  d.UserName,
		domain.PropOwner: d.UserName,
	})
	if err != nil {
		return nil, fmt.Errorf("create home folder: %w", err)
	}
	n, err := s.nodes.CreateNode(ctx, domain.TypePerson, d.UserName, map[domain.QName]any{
		domain.PropUserName:   d.UserName,
		domain.PropFirstName:  d.FirstName,
		domain.PropLastName:   d.LastName,
		domain.PropEmail:      d.Email,
		domain.PropHomeFolder: home.Ref,
		domain.PropOwner:      d.UserName,
	})
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	slog.Info("Created person", "userName", d.UserName, "nodeRef", n.Ref.String())
	return toPerson(n), nil
}

// DeletePerson removes the person node. The home folder is kept.
func (s *PersonService) DeletePerson(ctx context.Context, username string) error {
	p, err := s.GetPerson(ctx, username)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: %s", ErrPersonNotFound, username)
	}
	if s.cache != nil {
		s.cache.Delete(ctx, username)
	}
	return s.repo.Delete(ctx, p.NodeRef)
}
