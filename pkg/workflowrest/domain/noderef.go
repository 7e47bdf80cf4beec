package domain

import (
	"fmt"
	"strings"
)

const (
	StoreProtocolWorkspace = "workspace"
	StoreIDSpacesStore     = "SpacesStore"
)

// NodeRef identifies a node in a store, rendered as protocol://storeId/id.
type NodeRef struct {
	StoreProtocol string
	StoreID       string
	ID            string
}

// NewNodeRef returns a reference in the default workspace://SpacesStore store.
func NewNodeRef(id string) NodeRef {
	return NodeRef{StoreProtocol: StoreProtocolWorkspace, StoreID: StoreIDSpacesStore, ID: id}
}

func (n NodeRef) String() string {
	return n.StoreProtocol + "://" + n.StoreID + "/" + n.ID
}

func (n NodeRef) IsZero() bool {
	return n.ID == ""
}

func ParseNodeRef(s string) (NodeRef, error) {
	protocol, rest, ok := strings.Cut(s, "://")
	if !ok || protocol == "" {
		return NodeRef{}, fmt.Errorf("invalid node ref %q", s)
	}
	storeID, id, ok := strings.Cut(rest, "/")
	if !ok || storeID == "" || id == "" || strings.Contains(id, "/") {
		return NodeRef{}, fmt.Errorf("invalid node ref %q", s)
	}
	return NodeRef{StoreProtocol: protocol, StoreID: storeID, ID: id}, nil
}

// IsNodeRef reports whether s parses as a node reference.
func IsNodeRef(s string) bool {
	_, err := ParseNodeRef(s)
	return err == nil
}

func (n NodeRef) MarshalText() ([]byte, error) {
	if n.IsZero() {
		return []byte{}, nil
	}
	return []byte(n.String()), nil
}

func (n *NodeRef) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*n = NodeRef{}
		return nil
	}
	ref, err := ParseNodeRef(string(b))
	if err != nil {
		return err
	}
	*n = ref
	return nil
}
