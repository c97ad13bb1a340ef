package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"spendlog/internal/models"
)

const expenseColumns = "expense_id, user_id, category, amount, description, date"

// ExpenseFilter selects a user's expenses. Empty Category and nil Date match
// everything.
type ExpenseFilter struct {
	UserID   int64
	Category string
	Date     *models.Date
}

// CreateExpense inserts e and sets its ID.
func (db *DB) CreateExpense(ctx context.Context, e *models.Expense) error {
	result, err := db.conn.ExecContext(ctx,
		"INSERT INTO expenses (user_id, category, amount, description, date) VALUES (?, ?, ?, ?, ?)",
		e.UserID, e.Category, e.Amount, nullString(e.Description), e.Date,
	)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	e.ID = id
	return nil
}

// GetExpense retrieves a single expense by ID, scoped to its owner.
func (db *DB) GetExpense(ctx context.Context, id, userID int64) (*models.Expense, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+expenseColumns+" FROM expenses WHERE expense_id = ? AND user_id = ?",
		id, userID,
	)

	e, err := scanExpense(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return e, nil
}

// ListExpenses returns the expenses matching f, newest first.
func (db *DB) ListExpenses(ctx context.Context, f ExpenseFilter) ([]models.Expense, error) {
	var query strings.Builder
	query.WriteString("SELECT " + expenseColumns + " FROM expenses WHERE user_id = ?")
	args := []any{f.UserID}

	if f.Category != "" {
		query.WriteString(" AND category = ?")
		args = append(args, f.Category)
	}
	if f.Date != nil {
		query.WriteString(" AND date = ?")
		args = append(args, *f.Date)
	}
	query.WriteString(" ORDER BY date DESC, expense_id DESC")

	rows, err := db.conn.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]models.Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}

	return expenses, rows.Err()
}

// UpdateExpense overwrites the editable fields of an expense owned by
// e.UserID. Updating an absent expense is not an error.
func (db *DB) UpdateExpense(ctx context.Context, e *models.Expense) error {
	_, err := db.conn.ExecContext(ctx,
		"UPDATE expenses SET category = ?, amount = ?, description = ?, date = ? WHERE expense_id = ? AND user_id = ?",
		e.Category, e.Amount, nullString(e.Description), e.Date, e.ID, e.UserID,
	)
	return err
}

// DeleteExpense removes an expense owned by userID. Deleting an absent
// expense is not an error.
func (db *DB) DeleteExpense(ctx context.Context, id, userID int64) error {
	_, err := db.conn.ExecContext(ctx,
		"DELETE FROM expenses WHERE expense_id = ? AND user_id = ?",
		id, userID,
	)
	return err
}

// CategoryTotals sums a user's expenses per category, largest first. A
// non-nil from/to restricts the sum to dates in [from, to).
func (db *DB) CategoryTotals(ctx context.Context, userID int64, from, to *models.Date) ([]models.CategoryTotal, error) {
	query := "SELECT category, SUM(amount), COUNT(*) FROM expenses WHERE user_id = ?"
	args := []any{userID}
	if from != nil {
		query += " AND date >= ?"
		args = append(args, *from)
	}
	if to != nil {
		query += " AND date < ?"
		args = append(args, *to)
	}
	query += " GROUP BY category ORDER BY SUM(amount) DESC, category"

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	totals := make([]models.CategoryTotal, 0)
	for rows.Next() {
		var ct models.CategoryTotal
		if err := rows.Scan(&ct.Category, &ct.Total, &ct.Count); err != nil {
			return nil, err
		}
		totals = append(totals, ct)
	}
	return totals, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExpense(s scanner) (*models.Expense, error) {
	var (
		e    models.Expense
		desc sql.NullString
	)
	if err := s.Scan(&e.ID, &e.UserID, &e.Category, &e.Amount, &desc, &e.Date); err != nil {
		return nil, err
	}
	e.Description = desc.String
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
