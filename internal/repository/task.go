package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

const taskColumns = `id, instance_id, path_id, definition_id, name, title, description, state, owner, properties, created, completed`

// TaskSearch narrows Search. Zero values are ignored.
type TaskSearch struct {
	InstanceID string
	Owner      string
	State      domain.TaskState
	// PooledActors matches tasks offered to any of the given authorities.
	PooledActors []domain.NodeRef
	// Unclaimed keeps only tasks without an owner.
	Unclaimed bool
}

// StoredTask is a task row. InstanceID links it back to the workflow instance.
type StoredTask struct {
	*domain.WorkflowTask
	InstanceID string
	PathID     string
}

type TaskRepository struct {
	db *sql.DB
}

func NewTaskRepository(db *sql.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

func scanTask(row rowScanner) (*StoredTask, error) {
	var (
		t                         domain.WorkflowTask
		st                        StoredTask
		title, desc, owner, props sql.NullString
		state                     string
		completed                 sql.NullTime
	)
	err := row.Scan(&t.ID, &st.InstanceID, &st.PathID, &t.DefinitionID, &t.Name, &title, &desc, &state, &owner, &props, &t.Created, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	t.Title = title.String
	t.Description = desc.String
	t.State = domain.TaskState(state)
	t.Created = t.Created.UTC()
	t.Completed = nullTimePtr(completed)
	if t.Properties, err = decodeProperties(props.String); err != nil {
		return nil, fmt.Errorf("task %s: %w", t.ID, err)
	}
	st.WorkflowTask = &t
	return &st, nil
}

// Save inserts the task and its pooled actors.
func (r *TaskRepository) Save(ctx context.Context, st *StoredTask) error {
	props, err := encodeProperties(st.Properties)
	if err != nil {
		return err
	}
	query := `INSERT INTO workflow_tasks (` + taskColumns + `) VALUES (` + placeholders(1, 12) + `)`
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query,
			st.ID,
			st.InstanceID,
			st.PathID,
			st.DefinitionID,
			st.Name,
			nullString(st.Title),
			nullString(st.Description),
			string(st.State),
			nullString(st.Owner()),
			props,
			formatDateInDatabase(st.Created),
			formatNullableDate(st.Completed),
		); err != nil {
			return err
		}
		return savePooledActors(ctx, tx, st.ID, st.PooledActors())
	})
}

// Update persists state, owner, properties, completion date and pooled actors.
func (r *TaskRepository) Update(ctx context.Context, t *domain.WorkflowTask) error {
	props, err := encodeProperties(t.Properties)
	if err != nil {
		return err
	}
	query := `UPDATE workflow_tasks SET state = ` + placeholder(1) +
		`, owner = ` + placeholder(2) +
		`, properties = ` + placeholder(3) +
		`, completed = ` + placeholder(4) +
		`, description = ` + placeholder(5) +
		` WHERE id = ` + placeholder(6)
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, query, string(t.State), nullString(t.Owner()), props,
			formatNullableDate(t.Completed), nullString(t.Description), t.ID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM task_pooled_actors WHERE task_id = `+placeholder(1), t.ID); err != nil {
			return err
		}
		return savePooledActors(ctx, tx, t.ID, t.PooledActors())
	})
}

func savePooledActors(ctx context.Context, tx *sql.Tx, taskID string, actors []domain.NodeRef) error {
	seen := map[domain.NodeRef]bool{}
	query := `INSERT INTO task_pooled_actors (task_id, actor_ref) VALUES (` + placeholders(1, 2) + `)`
	for _, a := range actors {
		if seen[a] {
			continue
		}
		seen[a] = true
		if _, err := tx.ExecContext(ctx, query, taskID, a.String()); err != nil {
			return err
		}
	}
	return nil
}

// FindByID returns (nil, nil) if not found.
func (r *TaskRepository) FindByID(ctx context.Context, id string) (*StoredTask, error) {
	query := `SELECT ` + taskColumns + ` FROM workflow_tasks WHERE id = ` + placeholder(1)
	return scanTask(conn(ctx, r.db).QueryRowContext(ctx, query, id))
}

func (r *TaskRepository) Search(ctx context.Context, s TaskSearch) ([]*StoredTask, error) {
	query, args := buildTaskWhereClause(s)
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+prefixColumns("t", taskColumns)+` FROM workflow_tasks t`+query+` ORDER BY t.created, t.id`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*StoredTask, 0)
	for rows.Next() {
		st, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

func buildTaskWhereClause(s TaskSearch) (string, []any) {
	var clauses []string
	var args []any
	if s.InstanceID != "" {
		args = append(args, s.InstanceID)
		clauses = append(clauses, "t.instance_id = "+placeholder(len(args)))
	}
	if s.Owner != "" {
		args = append(args, s.Owner)
		clauses = append(clauses, "t.owner = "+placeholder(len(args)))
	}
	if s.State != "" {
		args = append(args, string(s.State))
		clauses = append(clauses, "t.state = "+placeholder(len(args)))
	}
	if s.Unclaimed {
		clauses = append(clauses, "(t.owner IS NULL OR t.owner = '')")
	}
	if len(s.PooledActors) > 0 {
		pps := make([]string, 0, len(s.PooledActors))
		for _, a := range s.PooledActors {
			args = append(args, a.String())
			pps = append(pps, placeholder(len(args)))
		}
		clauses = append(clauses, "EXISTS (SELECT 1 FROM task_pooled_actors pa WHERE pa.task_id = t.id AND pa.actor_ref IN ("+strings.Join(pps, ", ")+"))")
	}
	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
