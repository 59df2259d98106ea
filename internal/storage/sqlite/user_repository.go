package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(dbConn *sql.DB) *UserRepository {
	return &UserRepository{db: dbConn}
}

// UpsertUser records the user on first contact and keeps the profile
// fields current afterwards. The banned flag is never touched here.
func (r *UserRepository) UpsertUser(ctx context.Context, id int64, username, firstName string) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, username, first_name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			first_name = excluded.first_name
	`, id, username, firstName)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}

	return nil
}

func (r *UserRepository) SetBanned(ctx context.Context, id int64, banned bool) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (id, banned) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET banned = excluded.banned
	`, id, banned)
	if err != nil {
		return fmt.Errorf("failed to set banned flag: %w", err)
	}

	return nil
}

func (r *UserRepository) IsBanned(ctx context.Context, id int64) (bool, error) {
	var banned bool

	err := r.db.QueryRowContext(ctx, `SELECT banned FROM users WHERE id = ?`, id).Scan(&banned)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("failed to query banned flag: %w", err)
	}

	return banned, nil
}
