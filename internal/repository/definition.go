package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"

	"github.com/RealZimboGuy/workflowrest/internal/config"
	"github.com/RealZimboGuy/workflowrest/pkg/workflowrest/domain"
)

const definitionColumns = `id, name, title, description, version, created`
const taskDefinitionColumns = `id, definition_id, type_qname, node_name, node_title, node_description, node_type, is_task_node, transitions, assignment, is_start, position`

type DefinitionRepository struct {
	db *sql.DB
}

func NewDefinitionRepository(db *sql.DB) *DefinitionRepository {
	return &DefinitionRepository{db: db}
}

func scanDefinition(row rowScanner) (*domain.WorkflowDefinition, error) {
	var (
		def         domain.WorkflowDefinition
		title, desc sql.NullString
		version     int
	)
	err := row.Scan(&def.ID, &def.Name, &title, &desc, &version, &def.Created)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	def.Title = title.String
	def.Description = desc.String
	def.Version = strconv.Itoa(version)
	return &def, nil
}

// Save inserts a workflow definition or updates the existing one with the same id.
func (r *DefinitionRepository) Save(ctx context.Context, def *domain.WorkflowDefinition) error {
	version, err := strconv.Atoi(def.Version)
	if err != nil {
		version = 1
	}
	values := `VALUES (` + placeholders(1, 6) + `)`
	var query string
	if config.GetSystemSettingString(config.DATABASE_TYPE) == config.DATABASE_TYPE_MYSQL {
		query = `INSERT INTO workflow_definitions (` + definitionColumns + `) ` + values + `
		ON DUPLICATE KEY UPDATE name = VALUES(name), title = VALUES(title),
			description = VALUES(description), version = VALUES(version)`
	} else {
		query = `INSERT INTO workflow_definitions (` + definitionColumns + `) ` + values + `
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, title = EXCLUDED.title,
			description = EXCLUDED.description, version = EXCLUDED.version`
	}
	_, err = r.db.ExecContext(ctx, query, def.ID, def.Name, nullString(def.Title), nullString(def.Description), version, formatDateInDatabase(def.Created))
	return err
}

// SaveTaskDefinitions replaces the task definitions of a workflow definition.
func (r *DefinitionRepository) SaveTaskDefinitions(ctx context.Context, definitionID string, defs []*domain.WorkflowTaskDefinition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM task_definitions WHERE definition_id = `+placeholder(1), definitionID); err != nil {
		return err
	}
	query := `INSERT INTO task_definitions (` + taskDefinitionColumns + `) VALUES (` + placeholders(1, 12) + `)`
	for i, td := range defs {
		transitions, err := json.Marshal(td.Node.Transitions)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, query,
			td.ID,
			definitionID,
			td.Metadata.Name.String(),
			td.Node.Name,
			nullString(td.Node.Title),
			nullString(td.Node.Description),
			nullString(td.Node.Type),
			td.Node.IsTaskNode,
			string(transitions),
			nullString(td.Assignment),
			td.IsStart,
			i,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// FindByID returns (nil, nil) if not found.
func (r *DefinitionRepository) FindByID(ctx context.Context, id string) (*domain.WorkflowDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM workflow_definitions WHERE id = ` + placeholder(1)
	return scanDefinition(r.db.QueryRowContext(ctx, query, id))
}

// FindLatestByName returns the highest version deployed under name, (nil, nil) if none.
func (r *DefinitionRepository) FindLatestByName(ctx context.Context, name string) (*domain.WorkflowDefinition, error) {
	query := `SELECT ` + definitionColumns + ` FROM workflow_definitions WHERE name = ` + placeholder(1) +
		` ORDER BY version DESC LIMIT 1`
	return scanDefinition(r.db.QueryRowContext(ctx, query, name))
}

// FindAll returns every deployed version ordered by name then version.
func (r *DefinitionRepository) FindAll(ctx context.Context) ([]*domain.WorkflowDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+definitionColumns+` FROM workflow_definitions ORDER BY name, version`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	defs := make([]*domain.WorkflowDefinition, 0)
	for rows.Next() {
		d, err := scanDefinition(rows)
		if err != nil {
			return nil, err
		}
		defs = append(defs, d)
	}
	return defs, rows.Err()
}

// FindTaskDefinitions returns the task definitions in graph order, start task first.
func (r *DefinitionRepository) FindTaskDefinitions(ctx context.Context, definitionID string) ([]*domain.WorkflowTaskDefinition, error) {
	query := `SELECT ` + taskDefinitionColumns + ` FROM task_definitions WHERE definition_id = ` + placeholder(1) + ` ORDER BY position`
	rows, err := r.db.QueryContext(ctx, query, definitionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]*domain.WorkflowTaskDefinition, 0)
	for rows.Next() {
		var (
			td                                     domain.WorkflowTaskDefinition
			typeName                               string
			title, desc, nodeType, trans, assignee sql.NullString
		)
		if err := rows.Scan(&td.ID, &td.DefinitionID, &typeName, &td.Node.Name, &title, &desc, &nodeType,
			&td.Node.IsTaskNode, &trans, &assignee, &td.IsStart, &td.Position); err != nil {
			return nil, err
		}
		if td.Metadata.Name, err = domain.ParseQName(typeName); err != nil {
			return nil, err
		}
		td.Node.Title = title.String
		td.Node.Description = desc.String
		td.Node.Type = nodeType.String
		td.Assignment = assignee.String
		if trans.String != "" {
			if err := json.Unmarshal([]byte(trans.String), &td.Node.Transitions); err != nil {
				return nil, err
			}
		}
		out = append(out, &td)
	}
	return out, rows.Err()
}
