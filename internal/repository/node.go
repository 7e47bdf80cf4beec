package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/core"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

const nodeColumns = `node_ref, type_qname, name, properties, created, modified`

// NodeRepository stores the small slice of the content model the workflow API needs:
// people, groups, home folders, packages and the content placed in packages.
type NodeRepository struct {
	db    *sql.DB
	clock core.Clock
}

func NewNodeRepository(db *sql.DB, clock core.Clock) *NodeRepository {
	return &NodeRepository{db: db, clock: clock}
}

func scanNode(row rowScanner) (*domain.Node, error) {
	var (
		ref, typeName string
		name, props   sql.NullString
		n             domain.Node
	)
	err := row.Scan(&ref, &typeName, &name, &props, &n.Created, &n.Modified)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if n.Ref, err = domain.ParseNodeRef(ref); err != nil {
		return nil, err
	}
	if n.Type, err = domain.ParseQName(typeName); err != nil {
		return nil, err
	}
	n.Name = name.String
	if n.Properties, err = decodeProperties(props.String); err != nil {
		return nil, fmt.Errorf("node %s: %w", ref, err)
	}
	return &n, nil
}

func (r *NodeRepository) Save(ctx context.Context, n *domain.Node) error {
	now := r.clock.Now().UTC()
	if n.Created.IsZero() {
		n.Created = now
	}
	n.Modified = now
	props, err := encodeProperties(n.Properties)
	if err != nil {
		return err
	}
	query := `INSERT INTO nodes (` + nodeColumns + `) VALUES (` + placeholders(1, 6) + `)`
	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		n.Ref.String(),
		n.Type.String(),
		nullString(n.Name),
		props,
		formatDateInDatabase(n.Created),
		formatDateInDatabase(n.Modified),
	)
	return err
}

// Update rewrites name and properties of an existing node.
func (r *NodeRepository) Update(ctx context.Context, n *domain.Node) error {
	n.Modified = r.clock.Now().UTC()
	props, err := encodeProperties(n.Properties)
	if err != nil {
		return err
	}
	query := `UPDATE nodes SET name = ` + placeholder(1) + `, properties = ` + placeholder(2) +
		`, modified = ` + placeholder(3) + ` WHERE node_ref = ` + placeholder(4)
	_, err = conn(ctx, r.db).ExecContext(ctx, query, nullString(n.Name), props, formatDateInDatabase(n.Modified), n.Ref.String())
	return err
}

// FindByRef returns (nil, nil) if the node does not exist.
func (r *NodeRepository) FindByRef(ctx context.Context, ref domain.NodeRef) (*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE node_ref = ` + placeholder(1)
	return scanNode(conn(ctx, r.db).QueryRowContext(ctx, query, ref.String()))
}

// FindByTypeAndName looks a node up by its type and indexed name, e.g. a person by user name.
func (r *NodeRepository) FindByTypeAndName(ctx context.Context, typeName domain.QName, name string) (*domain.Node, error) {
	query := `SELECT ` + nodeColumns + ` FROM nodes WHERE type_qname = ` + placeholder(1) + ` AND name = ` + placeholder(2)
	return scanNode(conn(ctx, r.db).QueryRowContext(ctx, query, typeName.String(), name))
}

// Delete removes the node and its child links in either direction.
func (r *NodeRepository) Delete(ctx context.Context, ref domain.NodeRef) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM node_children WHERE parent_ref = `+placeholder(1)+` OR child_ref = `+placeholder(2), ref.String(), ref.String()); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM nodes WHERE node_ref = `+placeholder(1), ref.String())
		return err
	})
}

func (r *NodeRepository) AddChild(ctx context.Context, parent, child domain.NodeRef) error {
	exists, err := r.hasChild(ctx, parent, child)
	if err != nil || exists {
		return err
	}
	query := `INSERT INTO node_children (parent_ref, child_ref) VALUES (` + placeholders(1, 2) + `)`
	_, err = conn(ctx, r.db).ExecContext(ctx, query, parent.String(), child.String())
	return err
}

func (r *NodeRepository) RemoveChild(ctx context.Context, parent, child domain.NodeRef) error {
	query := `DELETE FROM node_children WHERE parent_ref = ` + placeholder(1) + ` AND child_ref = ` + placeholder(2)
	_, err := conn(ctx, r.db).ExecContext(ctx, query, parent.String(), child.String())
	return err
}

func (r *NodeRepository) hasChild(ctx context.Context, parent, child domain.NodeRef) (bool, error) {
	var n int
	query := `SELECT COUNT(*) FROM node_children WHERE parent_ref = ` + placeholder(1) + ` AND child_ref = ` + placeholder(2)
	if err := conn(ctx, r.db).QueryRowContext(ctx, query, parent.String(), child.String()).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *NodeRepository) FindChildren(ctx context.Context, parent domain.NodeRef) ([]domain.NodeRef, error) {
	return r.findLinks(ctx, `SELECT child_ref FROM node_children WHERE parent_ref = `+placeholder(1)+` ORDER BY child_ref`, parent)
}

func (r *NodeRepository) FindParents(ctx context.Context, child domain.NodeRef) ([]domain.NodeRef, error) {
	return r.findLinks(ctx, `SELECT parent_ref FROM node_children WHERE child_ref = `+placeholder(1)+` ORDER BY parent_ref`, child)
}

func (r *NodeRepository) findLinks(ctx context.Context, query string, ref domain.NodeRef) ([]domain.NodeRef, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, ref.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	refs := make([]domain.NodeRef, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		nr, err := domain.ParseNodeRef(s)
		if err != nil {
			return nil, err
		}
		refs = append(refs, nr)
	}
	return refs, rows.Err()
}
