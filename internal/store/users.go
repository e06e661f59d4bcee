package store

import (
	"context"
	"fmt"

	"github.com/erazemk/irontrace/internal/db"
	"github.com/erazemk/irontrace/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

func scanUser(r db.Row) *model.User {
	return &model.User{
		ID:           r.Int64("id"),
		Username:     r.String("username"),
		PasswordHash: r.String("password_hash"),
		Role:         r.String("role"),
		CreatedAt:    r.Time("created_at"),
		DeletedAt:    r.NullTime("deleted_at"),
	}
}

// CreateUser creates a new operator account.
func CreateUser(ctx context.Context, ex db.Execer, username, passwordHash, role string) (*model.User, error) {
	if !model.ValidRole(role) {
		return nil, fmt.Errorf("unknown role %q: %w", role, ErrInvalidInput)
	}

	row, err := db.QueryOne(ctx, ex,
		`INSERT INTO users (username, password_hash, role, created_at) VALUES (?, ?, ?, ?) RETURNING id`,
		username, passwordHash, role, timestamp(),
	)
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return GetUser(ctx, ex, row.Int64("id"))
}

// GetUser returns a user by ID, or nil if there is none.
func GetUser(ctx context.Context, ex db.Execer, id int64) (*model.User, error) {
	row, err := db.QueryOne(ctx, ex, `SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return scanUser(row), nil
}

// GetUserByUsername returns the newest account with that username, including
// soft-deleted ones so login can tell them apart.
func GetUserByUsername(ctx context.Context, ex db.Execer, username string) (*model.User, error) {
	row, err := db.QueryOne(ctx, ex,
		`SELECT `+userColumns+` FROM users WHERE username = ? ORDER BY id DESC LIMIT 1`, username,
	)
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	if row == nil {
		return nil, nil
	}
	return scanUser(row), nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, ex db.Execer) ([]model.User, error) {
	rows, err := ex.Query(ctx, `SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}

	users := make([]model.User, 0, len(rows))
	for _, r := range rows {
		users = append(users, *scanUser(r))
	}
	return users, nil
}

// UpdateUser updates a user's role.
func UpdateUser(ctx context.Context, ex db.Execer, id int64, role string) error {
	if !model.ValidRole(role) {
		return fmt.Errorf("unknown role %q: %w", role, ErrInvalidInput)
	}
	_, err := ex.Exec(ctx, `UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`, role, id)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	return nil
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, ex db.Execer, id int64, passwordHash string) error {
	_, err := ex.Exec(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`, passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, ex db.Execer, id int64) error {
	res, err := ex.Exec(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

// CountAdmins returns the number of active admin accounts.
func CountAdmins(ctx context.Context, ex db.Execer) (int, error) {
	row, err := db.QueryOne(ctx, ex,
		`SELECT COUNT(*) AS n FROM users WHERE role = ? AND deleted_at IS NULL`, model.RoleAdmin,
	)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return row.Int("n"), nil
}
