package people

import "errors"

var (
	ErrNodeNotFound   = errors.New("node not found")
	ErrPersonExists   = errors.New("person already exists")
	ErrPersonNotFound = errors.New("person not found")
	ErrGroupNotFound  = errors.New("group not found")
)
