package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

const instanceColumns = `id, definition_id, path_id, description, active, initiator_ref, initiator_home_ref,
	start_date, end_date, due_date, priority, context_ref, package_ref`

// InstanceSearch narrows Search. Zero values are ignored.
type InstanceSearch struct {
	DefinitionID string
	Active       *bool
}

type InstanceRepository struct {
	db *sql.DB
}

func NewInstanceRepository(db *sql.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

func parseOptionalRef(s sql.NullString) (domain.NodeRef, error) {
	if !s.Valid || s.String == "" {
		return domain.NodeRef{}, nil
	}
	return domain.ParseNodeRef(s.String)
}

func refValue(ref domain.NodeRef) sql.NullString {
	if ref.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: ref.String(), Valid: true}
}

func scanInstance(row rowScanner) (*domain.WorkflowInstance, error) {
	var (
		wi                                 domain.WorkflowInstance
		desc, initiator, home, ctxRef, pkg sql.NullString
		endDate, dueDate                   sql.NullTime
		priority                           sql.NullInt64
	)
	err := row.Scan(&wi.ID, &wi.DefinitionID, &wi.PathID, &desc, &wi.Active, &initiator, &home,
		&wi.StartDate, &endDate, &dueDate, &priority, &ctxRef, &pkg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	wi.Description = desc.String
	wi.StartDate = wi.StartDate.UTC()
	wi.EndDate = nullTimePtr(endDate)
	wi.DueDate = nullTimePtr(dueDate)
	wi.Priority = intPtr(priority)
	for _, f := range []struct {
		dst *domain.NodeRef
		src sql.NullString
	}{{&wi.Initiator, initiator}, {&wi.InitiatorHome, home}, {&wi.Context, ctxRef}, {&wi.Package, pkg}} {
		if *f.dst, err = parseOptionalRef(f.src); err != nil {
			return nil, fmt.Errorf("workflow %s: %w", wi.ID, err)
		}
	}
	return &wi, nil
}

func (r *InstanceRepository) Save(ctx context.Context, wi *domain.WorkflowInstance) error {
	query := `INSERT INTO workflow_instances (` + instanceColumns + `) VALUES (` + placeholders(1, 13) + `)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		wi.ID,
		wi.DefinitionID,
		wi.PathID,
		nullString(wi.Description),
		wi.Active,
		refValue(wi.Initiator),
		refValue(wi.InitiatorHome),
		formatDateInDatabase(wi.StartDate),
		formatNullableDate(wi.EndDate),
		formatNullableDate(wi.DueDate),
		nullIntPtr(wi.Priority),
		refValue(wi.Context),
		refValue(wi.Package),
	)
	return err
}

// Update persists the mutable state of an instance: active flag, end date, due date, priority and description.
func (r *InstanceRepository) Update(ctx context.Context, wi *domain.WorkflowInstance) error {
	query := `UPDATE workflow_instances SET active = ` + placeholder(1) +
		`, end_date = ` + placeholder(2) +
		`, due_date = ` + placeholder(3) +
		`, priority = ` + placeholder(4) +
		`, description = ` + placeholder(5) +
		` WHERE id = ` + placeholder(6)
	_, err := conn(ctx, r.db).ExecContext(ctx, query, wi.Active, formatNullableDate(wi.EndDate), formatNullableDate(wi.DueDate),
		nullIntPtr(wi.Priority), nullString(wi.Description), wi.ID)
	return err
}

// FindByID returns (nil, nil) if not found.
func (r *InstanceRepository) FindByID(ctx context.Context, id string) (*domain.WorkflowInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances WHERE id = ` + placeholder(1)
	return scanInstance(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *InstanceRepository) Search(ctx context.Context, s InstanceSearch) ([]*domain.WorkflowInstance, error) {
	var clauses []string
	var args []any
	if s.DefinitionID != "" {
		args = append(args, s.DefinitionID)
		clauses = append(clauses, "definition_id = "+placeholder(len(args)))
	}
	if s.Active != nil {
		args = append(args, *s.Active)
		clauses = append(clauses, "active = "+placeholder(len(args)))
	}
	query := `SELECT ` + instanceColumns + ` FROM workflow_instances`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY start_date, id"
	return r.query(ctx, query, args...)
}

// FindByPackageItem returns the instances whose package contains item.
func (r *InstanceRepository) FindByPackageItem(ctx context.Context, item domain.NodeRef, active *bool) ([]*domain.WorkflowInstance, error) {
	args := []any{item.String()}
	query := `SELECT ` + prefixColumns("wi", instanceColumns) + ` FROM workflow_instances wi
		JOIN node_children nc ON nc.parent_ref = wi.package_ref
		WHERE nc.child_ref = ` + placeholder(1)
	if active != nil {
		args = append(args, *active)
		query += " AND wi.active = " + placeholder(2)
	}
	query += " ORDER BY wi.start_date, wi.id"
	return r.query(ctx, query, args...)
}

func (r *InstanceRepository) query(ctx context.Context, query string, args ...any) ([]*domain.WorkflowInstance, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.WorkflowInstance, 0)
	for rows.Next() {
		wi, err := scanInstance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, wi)
	}
	return out, rows.Err()
}

// Delete removes the instance together with its tasks and their pooled actors.
func (r *InstanceRepository) Delete(ctx context.Context, id string) error {
	stmts := []string{
		`DELETE FROM task_pooled_actors WHERE task_id IN (SELECT id FROM workflow_tasks WHERE instance_id = ` + placeholder(1) + `)`,
		`DELETE FROM workflow_tasks WHERE instance_id = ` + placeholder(1),
		`DELETE FROM workflow_instances WHERE id = ` + placeholder(1),
	}
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		for _, stmt := range stmts {
			if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// prefixColumns qualifies a comma separated column list with a table alias.
func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
