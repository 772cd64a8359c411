// Package settlement drives allocations through their settlement lifecycle:
// UNSETTLED -> REQUESTED -> COMPLETED.
package settlement

import (
	"context"
	"log/slog"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
	"github.com/deepflow/settlement/internal/storage"
)

// LineItem is one (description, amount) line of a payment request.
type LineItem struct {
	Name   string
	Amount int64
}

// NotifyRequest carries everything a notifier needs to ask the sender for
// payment.
type NotifyRequest struct {
	ReceiverID string
	SenderID   string
	GroupName  string
	Title      string
	Amount     int64
	Items      []LineItem
}

// Notifier delivers a payment request to the allocation's sender. A non-nil
// error means delivery was not confirmed and the allocation must not advance.
type Notifier interface {
	SendPaymentRequest(ctx context.Context, req NotifyRequest) error
}

// Service exposes the settlement operations on allocations. All transitions
// go through the store's guarded status update, so concurrent attempts on the
// same allocation resolve to exactly one winner.
type Service struct {
	store    storage.Store
	notifier Notifier
}

// NewService creates a settlement service. notifier may be nil, in which case
// requests advance without sending anything.
func NewService(store storage.Store, notifier Notifier) *Service {
	return &Service{store: store, notifier: notifier}
}

// Request asks the sender to pay. Only the allocation's receiver may request.
// The notification is sent first; the status moves to REQUESTED only after
// delivery is confirmed, so a failed send leaves the allocation untouched.
// Re-requesting a REQUESTED allocation resends the notification.
func (s *Service) Request(ctx context.Context, callerID, allocationID string) (*models.AllocationDetail, error) {
	detail, err := s.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if detail.ReceiverID != callerID {
		return nil, apperr.Newf(apperr.CodeNoAccessPermission, "only the receiver may request settlement of allocation %s", allocationID)
	}
	if detail.Status == models.StatusCompleted {
		return nil, apperr.Newf(apperr.CodeInvalidInput, "allocation %s is already settled", allocationID)
	}

	if s.notifier != nil {
		err := s.notifier.SendPaymentRequest(ctx, NotifyRequest{
			ReceiverID: detail.ReceiverID,
			SenderID:   detail.SenderID,
			GroupName:  detail.GroupName,
			Title:      detail.Title(),
			Amount:     detail.ShareAmount,
			Items:      []LineItem{{Name: detail.Title(), Amount: detail.ShareAmount}},
		})
		if err != nil {
			slog.Warn("payment request not delivered",
				"allocation_id", allocationID,
				"sender_id", detail.SenderID,
				"error", err,
			)
			return nil, err
		}
	}

	err = s.store.UpdateAllocationStatus(ctx, allocationID,
		[]models.SettlementStatus{models.StatusUnsettled, models.StatusRequested},
		models.StatusRequested)
	if err != nil {
		return nil, err
	}

	detail.Status = models.StatusRequested
	slog.Info("settlement requested",
		"allocation_id", allocationID,
		"receiver_id", detail.ReceiverID,
		"sender_id", detail.SenderID,
		"amount", detail.ShareAmount,
	)
	return detail, nil
}

// Complete marks a requested allocation as settled. Only the receiver may
// confirm, and only from REQUESTED: completing an UNSETTLED allocation is
// rejected.
func (s *Service) Complete(ctx context.Context, callerID, allocationID string) (*models.AllocationDetail, error) {
	detail, err := s.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if detail.ReceiverID != callerID {
		return nil, apperr.Newf(apperr.CodeNoAccessPermission, "only the receiver may complete allocation %s", allocationID)
	}

	err = s.store.UpdateAllocationStatus(ctx, allocationID,
		[]models.SettlementStatus{models.StatusRequested},
		models.StatusCompleted)
	if err != nil {
		return nil, err
	}

	detail.Status = models.StatusCompleted
	slog.Info("settlement completed",
		"allocation_id", allocationID,
		"receiver_id", detail.ReceiverID,
		"sender_id", detail.SenderID,
		"amount", detail.ShareAmount,
	)
	return detail, nil
}

// Status returns one allocation with its display fields. Only the sender and
// the receiver may look.
func (s *Service) Status(ctx context.Context, callerID, allocationID string) (*models.AllocationDetail, error) {
	detail, err := s.store.GetAllocation(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if detail.SenderID != callerID && detail.ReceiverID != callerID {
		return nil, apperr.Newf(apperr.CodeNoAccessPermission, "allocation %s does not involve user %s", allocationID, callerID)
	}
	return detail, nil
}

// List returns every allocation the caller is part of, newest first.
func (s *Service) List(ctx context.Context, callerID string) ([]models.AllocationDetail, error) {
	return s.store.ListAllocationsByUser(ctx, callerID)
}

// Summary aggregates the caller's allocations against one counterpart.
type Summary struct {
	CounterpartID       string `json:"counterpart_id"`
	CounterpartNickname string `json:"counterpart_nickname"`

	// Owed to the caller, by the counterpart.
	OwedUnsettled int64 `json:"owed_unsettled"`
	OwedRequested int64 `json:"owed_requested"`
	OwedCompleted int64 `json:"owed_completed"`
	OwedTotal     int64 `json:"owed_total"`

	// Owed by the caller, to the counterpart.
	OwingUnsettled int64 `json:"owing_unsettled"`
	OwingRequested int64 `json:"owing_requested"`
	OwingCompleted int64 `json:"owing_completed"`
	OwingTotal     int64 `json:"owing_total"`

	// Net outstanding: what the counterpart still owes the caller minus
	// what the caller still owes, completed amounts excluded.
	NetOutstanding int64 `json:"net_outstanding"`
}

// Summarize totals both directions between the caller and a counterpart.
// A pair with no allocations yields an all-zero summary.
func (s *Service) Summarize(ctx context.Context, callerID, counterpartID string) (*Summary, error) {
	counterpart, err := s.store.GetUserByID(ctx, counterpartID)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		CounterpartID:       counterpartID,
		CounterpartNickname: counterpart.Nickname,
	}

	owed, err := s.store.ListAllocationsBetween(ctx, counterpartID, callerID, nil)
	if err != nil {
		return nil, err
	}
	for _, a := range owed {
		switch a.Status {
		case models.StatusUnsettled:
			summary.OwedUnsettled += a.ShareAmount
		case models.StatusRequested:
			summary.OwedRequested += a.ShareAmount
		case models.StatusCompleted:
			summary.OwedCompleted += a.ShareAmount
		}
	}

	owing, err := s.store.ListAllocationsBetween(ctx, callerID, counterpartID, nil)
	if err != nil {
		return nil, err
	}
	for _, a := range owing {
		switch a.Status {
		case models.StatusUnsettled:
			summary.OwingUnsettled += a.ShareAmount
		case models.StatusRequested:
			summary.OwingRequested += a.ShareAmount
		case models.StatusCompleted:
			summary.OwingCompleted += a.ShareAmount
		}
	}

	summary.OwedTotal = summary.OwedUnsettled + summary.OwedRequested + summary.OwedCompleted
	summary.OwingTotal = summary.OwingUnsettled + summary.OwingRequested + summary.OwingCompleted
	summary.NetOutstanding = (summary.OwedUnsettled + summary.OwedRequested) -
		(summary.OwingUnsettled + summary.OwingRequested)
	return summary, nil
}
