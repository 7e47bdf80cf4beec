package dictionary

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

var ErrUnknownPrefix = errors.New("namespace prefix is not registered")

// NamespaceService maps namespace prefixes to URIs and back.
type NamespaceService struct {
	prefixToURI map[string]string
	uriToPrefix map[string]string
}

func NewNamespaceService() *NamespaceService {
	return &NamespaceService{
		prefixToURI: map[string]string{"": domain.DefaultURI},
		uriToPrefix: map[string]string{domain.DefaultURI: ""},
	}
}

func (n *NamespaceService) Register(prefix, uri string) {
	n.prefixToURI[prefix] = uri
	n.uriToPrefix[uri] = prefix
}

// Prefixes returns the registered prefixes in sorted order.
func (n *NamespaceService) Prefixes() []string {
	out := make([]string, 0, len(n.prefixToURI))
	for p := range n.prefixToURI {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// PrefixString renders q as prefix:localName. Names in the default namespace have no prefix.
func (n *NamespaceService) PrefixString(q domain.QName) string {
	prefix, ok := n.uriToPrefix[q.Namespace]
	if !ok {
		return q.String()
	}
	if prefix == "" {
		return q.LocalName
	}
	return prefix + ":" + q.LocalName
}

// ResolveQName parses prefix:localName, a bare localName or the {uri}localName form.
func (n *NamespaceService) ResolveQName(s string) (domain.QName, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "{") {
		return domain.ParseQName(s)
	}
	prefix, local, found := strings.Cut(s, ":")
	if !found {
		if s == "" {
			return domain.QName{}, fmt.Errorf("empty qname")
		}
		return domain.NewQName(domain.DefaultURI, s), nil
	}
	uri, ok := n.prefixToURI[prefix]
	if !ok {
		return domain.QName{}, fmt.Errorf("%w: %q", ErrUnknownPrefix, prefix)
	}
	if local == "" {
		return domain.QName{}, fmt.Errorf("invalid qname %q", s)
	}
	return domain.NewQName(uri, local), nil
}

// MustResolve panics on unknown names. Only used for names that ship with the embedded model.
func (n *NamespaceService) MustResolve(s string) domain.QName {
	q, err := n.ResolveQName(s)
	if err != nil {
		panic(err)
	}
	return q
}
