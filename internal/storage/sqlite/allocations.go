package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
)

const allocationColumns = "a.id, a.group_id, a.expense_id, a.item_id, a.sender_id, a.receiver_id, a.share_amount, a.status, a.created_at"

// detailQuery resolves the display fields for an allocation in one join.
const detailQuery = `
	SELECT ` + allocationColumns + `,
	       su.nickname, ru.nickname, g.name, e.title, COALESCE(i.name, '')
	FROM allocations a
	JOIN users su ON su.id = a.sender_id
	JOIN users ru ON ru.id = a.receiver_id
	JOIN groups g ON g.id = a.group_id
	JOIN expenses e ON e.id = a.expense_id
	LEFT JOIN expense_items i ON i.id = a.item_id`

func scanAllocation(row interface{ Scan(...any) error }) (models.Allocation, error) {
	var a models.Allocation
	var status string
	err := row.Scan(&a.ID, &a.GroupID, &a.ExpenseID, &a.ItemID, &a.SenderID,
		&a.ReceiverID, &a.ShareAmount, &status, &a.CreatedAt)
	a.Status = models.SettlementStatus(status)
	return a, err
}

func scanAllocationDetail(row interface{ Scan(...any) error }) (models.AllocationDetail, error) {
	var d models.AllocationDetail
	var status string
	err := row.Scan(&d.ID, &d.GroupID, &d.ExpenseID, &d.ItemID, &d.SenderID,
		&d.ReceiverID, &d.ShareAmount, &status, &d.CreatedAt,
		&d.SenderNickname, &d.ReceiverNickname, &d.GroupName, &d.ExpenseTitle, &d.ItemName)
	d.Status = models.SettlementStatus(status)
	return d, err
}

// GetAllocation retrieves one allocation with sender, receiver, expense and
// group resolved.
func (s *SQLiteStore) GetAllocation(ctx context.Context, id string) (*models.AllocationDetail, error) {
	row := s.db.QueryRowContext(ctx, detailQuery+" WHERE a.id = ?", id)
	detail, err := scanAllocationDetail(row)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeNotFound, "allocation %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get allocation: %w", err)
	}
	return &detail, nil
}

// ListAllocationsByUser returns every allocation where the user is sender or
// receiver, newest first, with display fields resolved.
func (s *SQLiteStore) ListAllocationsByUser(ctx context.Context, userID string) ([]models.AllocationDetail, error) {
	rows, err := s.db.QueryContext(ctx,
		detailQuery+" WHERE a.sender_id = ? OR a.receiver_id = ? ORDER BY a.created_at DESC, a.id",
		userID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations by user: %w", err)
	}
	defer rows.Close()

	var details []models.AllocationDetail
	for rows.Next() {
		detail, err := scanAllocationDetail(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		details = append(details, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return details, nil
}

// ListAllocationsByGroup returns every allocation generated for a group's
// expenses.
func (s *SQLiteStore) ListAllocationsByGroup(ctx context.Context, groupID string) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations a WHERE a.group_id = ? ORDER BY a.created_at, a.id",
		groupID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations by group: %w", err)
	}
	defer rows.Close()

	var allocations []models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocations, nil
}

// ListAllocationsBetween returns allocations from sender to receiver,
// optionally restricted to a status set.
func (s *SQLiteStore) ListAllocationsBetween(ctx context.Context, senderID, receiverID string, statuses []models.SettlementStatus) ([]models.Allocation, error) {
	query := "SELECT " + allocationColumns + " FROM allocations a WHERE a.sender_id = ? AND a.receiver_id = ?"
	args := []any{senderID, receiverID}
	if len(statuses) > 0 {
		query += " AND a.status IN (" + placeholders(len(statuses)) + ")"
		for _, st := range statuses {
			args = append(args, string(st))
		}
	}
	query += " ORDER BY a.created_at DESC, a.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations between users: %w", err)
	}
	defer rows.Close()

	var allocations []models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocations, nil
}

// ListAllocationsByItem returns the allocations generated for one expense item.
func (s *SQLiteStore) ListAllocationsByItem(ctx context.Context, itemID string) ([]models.Allocation, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+allocationColumns+" FROM allocations a WHERE a.item_id = ? ORDER BY a.created_at, a.id",
		itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to list allocations by item: %w", err)
	}
	defer rows.Close()

	var allocations []models.Allocation
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan allocation: %w", err)
		}
		allocations = append(allocations, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate allocations: %w", err)
	}
	return allocations, nil
}

// UpdateAllocationStatus advances one allocation's status, guarded by the
// expected current status. The WHERE clause doubles as the serialization
// point for racing transition attempts: whichever update matches first wins,
// the loser sees zero affected rows.
func (s *SQLiteStore) UpdateAllocationStatus(ctx context.Context, id string, from []models.SettlementStatus, to models.SettlementStatus) error {
	if len(from) == 0 {
		return apperr.New(apperr.CodeInvalidInput, "no source statuses given")
	}

	args := []any{string(to), id}
	for _, st := range from {
		args = append(args, string(st))
	}
	res, err := s.db.ExecContext(ctx,
		"UPDATE allocations SET status = ? WHERE id = ? AND status IN ("+placeholders(len(from))+")",
		args...)
	if err != nil {
		return fmt.Errorf("failed to update allocation status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected > 0 {
		return nil
	}

	// Distinguish a missing allocation from an illegal transition.
	var current string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM allocations WHERE id = ?", id).Scan(&current)
	if err == sql.ErrNoRows {
		return apperr.Newf(apperr.CodeNotFound, "allocation %s not found", id)
	}
	if err != nil {
		return fmt.Errorf("failed to read allocation status: %w", err)
	}
	return apperr.Newf(apperr.CodeInvalidInput, "allocation %s is %s, cannot move to %s", id, current, to)
}
