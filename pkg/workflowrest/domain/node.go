package domain

import "time"

type Node struct {
	Ref        NodeRef
	Type       QName
	Name       string
	Properties map[QName]any
	Created    time.Time
	Modified   time.Time
}

// Property returns the named property or nil.
func (n *Node) Property(name QName) any {
	if n == nil || n.Properties == nil {
		return nil
	}
	return n.Properties[name]
}

// StringProperty returns the named property when it holds a string.
func (n *Node) StringProperty(name QName) string {
	s, _ := n.Property(name).(string)
	return s
}

type Person struct {
	UserName   string  `json:"userName"`
	FirstName  string  `json:"firstName"`
	LastName   string  `json:"lastName"`
	Email      string  `json:"email,omitempty"`
	NodeRef    NodeRef `json:"nodeRef"`
	HomeFolder NodeRef `json:"homeFolder"`
}
