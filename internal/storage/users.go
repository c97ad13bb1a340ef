package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spendlog/internal/models"
)

const userColumns = "user_id, username, email, password, created_at"

// CreateUser creates a new user with the given profile and password hash.
func (db *DB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO users (username, email, password) VALUES (?, ?, ?)",
		username, email, passwordHash,
	)
	if err != nil {
		return nil, fmt.Errorf("insert user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return db.GetUserByID(ctx, id)
}

// GetUserByID retrieves a user by ID.
func (db *DB) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE user_id = ?",
		id,
	)
	return scanUser(row)
}

// GetUserByUsername retrieves a user by username.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = ?",
		username,
	)
	return scanUser(row)
}

func scanUser(row *sql.Row) (*models.User, error) {
	var u models.User
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// UpdateUserProfile sets the username and email of a user. Updating an
// absent user is not an error.
func (db *DB) UpdateUserProfile(ctx context.Context, id int64, username, email string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE users SET username = ?, email = ? WHERE user_id = ?",
		username, email, id,
	)
	return err
}

// UpdatePassword replaces the stored password hash of a user.
func (db *DB) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE users SET password = ? WHERE user_id = ?",
		passwordHash, id,
	)
	return err
}

// UserCount returns the number of users in the database.
func (db *DB) UserCount(ctx context.Context) (int, error) {
	var count int
	err := db.conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	return count, err
}
