package repository

import (
	"context"
	"database/sql"
)

// AuthorityRepository stores group membership. Members are user names or group names.
type AuthorityRepository struct {
	db *sql.DB
}

func NewAuthorityRepository(db *sql.DB) *AuthorityRepository {
	return &AuthorityRepository{db: db}
}

func (r *AuthorityRepository) AddMember(ctx context.Context, group, member string) error {
	var n int
	check := `SELECT COUNT(*) FROM authority_members WHERE group_name = ` + placeholder(1) + ` AND member_name = ` + placeholder(2)
	if err := r.db.QueryRowContext(ctx, check, group, member).Scan(&n); err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	query := `INSERT INTO authority_members (group_name, member_name) VALUES (` + placeholders(1, 2) + `)`
	_, err := r.db.ExecContext(ctx, query, group, member)
	return err
}

func (r *AuthorityRepository) RemoveMember(ctx context.Context, group, member string) error {
	query := `DELETE FROM authority_members WHERE group_name = ` + placeholder(1) + ` AND member_name = ` + placeholder(2)
	_, err := r.db.ExecContext(ctx, query, group, member)
	return err
}

// FindMembers returns the direct members of group.
func (r *AuthorityRepository) FindMembers(ctx context.Context, group string) ([]string, error) {
	return r.names(ctx, `SELECT member_name FROM authority_members WHERE group_name = `+placeholder(1)+` ORDER BY member_name`, group)
}

// FindGroups returns the groups that directly contain member.
func (r *AuthorityRepository) FindGroups(ctx context.Context, member string) ([]string, error) {
	return r.names(ctx, `SELECT group_name FROM authority_members WHERE member_name = `+placeholder(1)+` ORDER BY group_name`, member)
}

func (r *AuthorityRepository) names(ctx context.Context, query string, arg string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
