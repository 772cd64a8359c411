// Package expense records group expenses and derives their settlement
// allocations.
package expense

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/deepflow/settlement/internal/allocation"
	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
	"github.com/deepflow/settlement/internal/storage"
)

// Service creates and queries expenses. Allocation rows are derived at
// creation time and persisted atomically with the expense.
type Service struct {
	store storage.Store
	now   func() time.Time
}

// NewService creates a new expense service with the given storage backend.
func NewService(store storage.Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Create validates the expense, derives its allocations and persists both in
// one transaction. The caller must be a member of the group, and every
// referenced user must exist and belong to the group.
func (s *Service) Create(ctx context.Context, callerID string, exp *models.Expense) ([]models.Allocation, error) {
	if exp.Title == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "title required")
	}
	if exp.TotalAmount <= 0 {
		return nil, apperr.New(apperr.CodeInvalidInput, "total amount must be positive")
	}
	if !exp.Kind.Valid() {
		return nil, apperr.Newf(apperr.CodeInvalidInput, "unknown settlement kind %q", exp.Kind)
	}
	if exp.PayerID == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "payer required")
	}

	group, err := s.store.GetGroup(ctx, exp.GroupID)
	if err != nil {
		return nil, err
	}
	if !group.HasMember(callerID) {
		return nil, apperr.Newf(apperr.CodeNotGroupMember, "user %s is not a member of group %s", callerID, group.ID)
	}

	if err := s.checkReferencedUsers(ctx, group, exp); err != nil {
		return nil, err
	}

	now := s.now()
	exp.ID = uuid.New().String()
	exp.CreatedAt = now.Unix()
	if exp.SpentAt == 0 {
		exp.SpentAt = now.Unix()
	}
	for i := range exp.Items {
		exp.Items[i].ID = uuid.New().String()
		exp.Items[i].ExpenseID = exp.ID
	}

	allocations, err := allocation.Build(exp, now)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateExpense(ctx, exp, allocations); err != nil {
		return nil, err
	}

	slog.Info("expense created",
		"expense_id", exp.ID,
		"group_id", exp.GroupID,
		"kind", exp.Kind,
		"total", exp.TotalAmount,
		"allocations", len(allocations),
	)
	return allocations, nil
}

// checkReferencedUsers verifies that the payer and every participant exists
// and belongs to the group.
func (s *Service) checkReferencedUsers(ctx context.Context, group *models.Group, exp *models.Expense) error {
	ids := map[string]bool{exp.PayerID: true}
	for _, p := range exp.Participants {
		ids[p] = true
	}
	for i := range exp.Items {
		item := &exp.Items[i]
		if item.Name == "" {
			return apperr.New(apperr.CodeInvalidInput, "item name required")
		}
		if item.LineAmount <= 0 {
			return apperr.Newf(apperr.CodeInvalidInput, "item %q amount must be positive", item.Name)
		}
		for _, p := range item.Participants {
			ids[p] = true
		}
	}

	userIDs := make([]string, 0, len(ids))
	for id := range ids {
		userIDs = append(userIDs, id)
	}
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return err
	}
	for _, id := range userIDs {
		if users[id] == nil {
			return apperr.Newf(apperr.CodeUserNotFound, "user %s not found", id)
		}
		if !group.HasMember(id) {
			return apperr.Newf(apperr.CodeNotGroupMember, "user %s is not a member of group %s", id, group.ID)
		}
	}
	return nil
}

// Get retrieves an expense. The caller must be a member of the expense's
// group.
func (s *Service) Get(ctx context.Context, callerID, expenseID string) (*models.Expense, error) {
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		return nil, err
	}
	if err := s.requireMember(ctx, callerID, exp.GroupID); err != nil {
		return nil, err
	}
	return exp, nil
}

// ListByGroup returns a group's expenses, newest spending first. start/end
// bound the spending time when non-zero.
func (s *Service) ListByGroup(ctx context.Context, callerID, groupID string, start, end int64) ([]models.Expense, error) {
	if start != 0 && end != 0 && start > end {
		return nil, apperr.New(apperr.CodeInvalidInput, "start must not be after end")
	}
	if err := s.requireMember(ctx, callerID, groupID); err != nil {
		return nil, err
	}
	return s.store.ListExpensesByGroup(ctx, groupID, start, end)
}

// GroupTotal sums the total amounts of a group's expenses.
func (s *Service) GroupTotal(ctx context.Context, callerID, groupID string) (int64, error) {
	if err := s.requireMember(ctx, callerID, groupID); err != nil {
		return 0, err
	}
	return s.store.GroupExpenseTotal(ctx, groupID)
}

func (s *Service) requireMember(ctx context.Context, userID, groupID string) error {
	group, err := s.store.GetGroup(ctx, groupID)
	if err != nil {
		return err
	}
	if !group.HasMember(userID) {
		return apperr.Newf(apperr.CodeNotGroupMember, "user %s is not a member of group %s", userID, groupID)
	}
	return nil
}
