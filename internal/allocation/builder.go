// Package allocation materializes directed sender-to-receiver money
// obligations from a recorded expense. It has no storage of its own; the
// expense service persists the returned batch together with the expense.
package allocation

import (
	"time"

	"github.com/google/uuid"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
	"github.com/deepflow/settlement/internal/splitter"
)

// Build generates the allocation batch for an expense. Every allocation
// starts UNSETTLED, points at the expense payer as receiver, and skips the
// payer as sender: a payer never owes themselves.
//
// EVEN_SPLIT divides the expense total across all expense participants.
// ITEMIZED divides each line amount independently across that item's
// participants; the expense-level payer receives all of it, items carry no
// payer of their own.
//
// Output order follows participant order but is not part of the contract;
// callers identify an allocation by (sender, receiver, expense, item).
func Build(exp *models.Expense, now time.Time) ([]models.Allocation, error) {
	if !exp.Kind.Valid() {
		return nil, apperr.Newf(apperr.CodeInvalidInput, "unknown settlement kind %q", exp.Kind)
	}
	if exp.PayerID == "" {
		return nil, apperr.New(apperr.CodeInvalidInput, "expense has no payer")
	}

	switch exp.Kind {
	case models.EvenSplit:
		return buildEven(exp, now)
	default:
		return buildItemized(exp, now)
	}
}

func buildEven(exp *models.Expense, now time.Time) ([]models.Allocation, error) {
	share, err := splitter.EvenShare(exp.TotalAmount, len(exp.Participants))
	if err != nil {
		return nil, err
	}

	allocations := make([]models.Allocation, 0, len(exp.Participants))
	for _, senderID := range exp.Participants {
		if senderID == exp.PayerID {
			continue
		}
		allocations = append(allocations, newAllocation(exp, "", senderID, share, now))
	}
	return allocations, nil
}

func buildItemized(exp *models.Expense, now time.Time) ([]models.Allocation, error) {
	var allocations []models.Allocation
	for i := range exp.Items {
		item := &exp.Items[i]
		share, err := splitter.EvenShare(item.LineAmount, len(item.Participants))
		if err != nil {
			return nil, apperr.Wrap(apperr.CodeOf(err), "item "+item.Name, err)
		}
		for _, senderID := range item.Participants {
			if senderID == exp.PayerID {
				continue
			}
			allocations = append(allocations, newAllocation(exp, item.ID, senderID, share, now))
		}
	}
	return allocations, nil
}

func newAllocation(exp *models.Expense, itemID, senderID string, share int64, now time.Time) models.Allocation {
	return models.Allocation{
		ID:          uuid.New().String(),
		GroupID:     exp.GroupID,
		ExpenseID:   exp.ID,
		ItemID:      itemID,
		SenderID:    senderID,
		ReceiverID:  exp.PayerID,
		ShareAmount: share,
		Status:      models.StatusUnsettled,
		CreatedAt:   now.Unix(),
	}
}
