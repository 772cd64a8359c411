package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
)

// CreateExpense persists an expense, its items, its participant links and its
// allocation batch in one transaction. IDs and timestamps are assigned by the
// expense service before this call.
func (s *SQLiteStore) CreateExpense(ctx context.Context, exp *models.Expense, allocations []models.Allocation) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO expenses (id, group_id, payer_id, title, total_amount, kind, spent_at, receipt_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		exp.ID, exp.GroupID, exp.PayerID, exp.Title, exp.TotalAmount,
		string(exp.Kind), exp.SpentAt, exp.ReceiptID, exp.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert expense: %w", err)
	}

	for _, userID := range exp.Participants {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_participants (expense_id, user_id) VALUES (?, ?)",
			exp.ID, userID,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense participant: %w", err)
		}
	}

	for i := range exp.Items {
		item := &exp.Items[i]
		_, err = tx.ExecContext(ctx,
			"INSERT INTO expense_items (id, expense_id, name, line_amount) VALUES (?, ?, ?, ?)",
			item.ID, exp.ID, item.Name, item.LineAmount,
		)
		if err != nil {
			return fmt.Errorf("failed to insert expense item: %w", err)
		}
		for _, userID := range item.Participants {
			_, err = tx.ExecContext(ctx,
				"INSERT INTO expense_item_participants (item_id, user_id) VALUES (?, ?)",
				item.ID, userID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert item participant: %w", err)
			}
		}
	}

	for _, a := range allocations {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO allocations (id, group_id, expense_id, item_id, sender_id, receiver_id, share_amount, status, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.GroupID, a.ExpenseID, a.ItemID, a.SenderID, a.ReceiverID,
			a.ShareAmount, string(a.Status), a.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert allocation: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// GetExpense retrieves an expense by ID, including items and participants.
func (s *SQLiteStore) GetExpense(ctx context.Context, id string) (*models.Expense, error) {
	exp := &models.Expense{}
	var kind string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, group_id, payer_id, title, total_amount, kind, spent_at, receipt_id, created_at
		 FROM expenses WHERE id = ?`, id,
	).Scan(&exp.ID, &exp.GroupID, &exp.PayerID, &exp.Title, &exp.TotalAmount,
		&kind, &exp.SpentAt, &exp.ReceiptID, &exp.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "expense %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get expense: %w", err)
	}
	exp.Kind = models.SettlementKind(kind)

	if err := s.loadExpenseGraph(ctx, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// ListExpensesByGroup returns a group's expenses, newest spending first.
// start/end bound spent_at when non-zero.
func (s *SQLiteStore) ListExpensesByGroup(ctx context.Context, groupID string, start, end int64) ([]models.Expense, error) {
	query := `SELECT id, group_id, payer_id, title, total_amount, kind, spent_at, receipt_id, created_at
		 FROM expenses WHERE group_id = ?`
	args := []any{groupID}
	if start != 0 {
		query += " AND spent_at >= ?"
		args = append(args, start)
	}
	if end != 0 {
		query += " AND spent_at <= ?"
		args = append(args, end)
	}
	query += " ORDER BY spent_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var expenses []models.Expense
	for rows.Next() {
		var exp models.Expense
		var kind string
		if err := rows.Scan(&exp.ID, &exp.GroupID, &exp.PayerID, &exp.Title, &exp.TotalAmount,
			&kind, &exp.SpentAt, &exp.ReceiptID, &exp.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		exp.Kind = models.SettlementKind(kind)
		expenses = append(expenses, exp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate expenses: %w", err)
	}

	for i := range expenses {
		if err := s.loadExpenseGraph(ctx, &expenses[i]); err != nil {
			return nil, err
		}
	}
	return expenses, nil
}

// GroupExpenseTotal sums the total amounts of a group's expenses.
func (s *SQLiteStore) GroupExpenseTotal(ctx context.Context, groupID string) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_amount), 0) FROM expenses WHERE group_id = ?",
		groupID,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("failed to sum group expenses: %w", err)
	}
	return total, nil
}

// loadExpenseGraph fills in participants, items and item participants.
func (s *SQLiteStore) loadExpenseGraph(ctx context.Context, exp *models.Expense) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM expense_participants WHERE expense_id = ? ORDER BY user_id", exp.ID)
	if err != nil {
		return fmt.Errorf("failed to get expense participants: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return fmt.Errorf("failed to scan participant: %w", err)
		}
		exp.Participants = append(exp.Participants, userID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate participants: %w", err)
	}

	itemRows, err := s.db.QueryContext(ctx,
		"SELECT id, expense_id, name, line_amount FROM expense_items WHERE expense_id = ?", exp.ID)
	if err != nil {
		return fmt.Errorf("failed to get expense items: %w", err)
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var item models.ExpenseItem
		if err := itemRows.Scan(&item.ID, &item.ExpenseID, &item.Name, &item.LineAmount); err != nil {
			return fmt.Errorf("failed to scan expense item: %w", err)
		}
		exp.Items = append(exp.Items, item)
	}
	if err := itemRows.Err(); err != nil {
		return fmt.Errorf("failed to iterate expense items: %w", err)
	}

	for i := range exp.Items {
		item := &exp.Items[i]
		partRows, err := s.db.QueryContext(ctx,
			"SELECT user_id FROM expense_item_participants WHERE item_id = ? ORDER BY user_id", item.ID)
		if err != nil {
			return fmt.Errorf("failed to get item participants: %w", err)
		}
		for partRows.Next() {
			var userID string
			if err := partRows.Scan(&userID); err != nil {
				partRows.Close()
				return fmt.Errorf("failed to scan item participant: %w", err)
			}
			item.Participants = append(item.Participants, userID)
		}
		err = partRows.Err()
		partRows.Close()
		if err != nil {
			return fmt.Errorf("failed to iterate item participants: %w", err)
		}
	}
	return nil
}
