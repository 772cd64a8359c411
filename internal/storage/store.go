// Package storage provides abstractions for persistent data storage.
package storage

import (
	"context"

	"github.com/deepflow/settlement/internal/models"
)

// Store defines the persistence interface for the settlement engine. This
// abstraction allows swapping storage backends (SQLite, PostgreSQL, etc.)
// without changing the service layer.
//
// Allocations are append-only: they are inserted with their expense in one
// transaction and only their status ever changes afterwards. No delete
// operations exist for them.
type Store interface {
	// CreateUser persists a new user. Fails with DUPLICATE_USER when the
	// email is already registered.
	CreateUser(ctx context.Context, user *models.User) error

	// GetUserByEmail retrieves a user by email address.
	// Returns (nil, nil) when no such user exists.
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUserByID retrieves a user. Fails with USER_NOT_FOUND.
	GetUserByID(ctx context.Context, id string) (*models.User, error)

	// GetUsersByIDs retrieves multiple users keyed by ID. Missing users are
	// omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// UpdateUserKakaoLink sets the user's external messaging ID and payment
	// key.
	UpdateUserKakaoLink(ctx context.Context, userID string, kakaoID int64, payKey string) error

	// CreateGroup persists a new group together with its initial members.
	CreateGroup(ctx context.Context, group *models.Group) error

	// GetGroup retrieves a group with its member IDs resolved. Fails with
	// GROUP_NOT_FOUND.
	GetGroup(ctx context.Context, id string) (*models.Group, error)

	// AddGroupMembers adds users to a group, ignoring ones already present.
	AddGroupMembers(ctx context.Context, groupID string, userIDs []string) error

	// CreateExpense persists an expense, its items, its participant links and
	// its allocation batch in one transaction: either everything is stored or
	// nothing is.
	CreateExpense(ctx context.Context, exp *models.Expense, allocations []models.Allocation) error

	// GetExpense retrieves an expense with items and participants resolved.
	// Fails with NOT_FOUND.
	GetExpense(ctx context.Context, id string) (*models.Expense, error)

	// ListExpensesByGroup returns a group's expenses, newest spending first.
	// start/end bound SpentAt when non-zero.
	ListExpensesByGroup(ctx context.Context, groupID string, start, end int64) ([]models.Expense, error)

	// GroupExpenseTotal sums the total amounts of a group's expenses.
	GroupExpenseTotal(ctx context.Context, groupID string) (int64, error)

	// ListAllocationsByUser returns every allocation where the user is sender
	// or receiver, with display fields resolved.
	ListAllocationsByUser(ctx context.Context, userID string) ([]models.AllocationDetail, error)

	// ListAllocationsByGroup returns every allocation generated for a group's
	// expenses.
	ListAllocationsByGroup(ctx context.Context, groupID string) ([]models.Allocation, error)

	// ListAllocationsBetween returns allocations from sender to receiver in
	// that direction only, optionally restricted to a status set.
	ListAllocationsBetween(ctx context.Context, senderID, receiverID string, statuses []models.SettlementStatus) ([]models.Allocation, error)

	// GetAllocation retrieves one allocation with sender, receiver, expense
	// and group resolved. Fails with NOT_FOUND.
	GetAllocation(ctx context.Context, id string) (*models.AllocationDetail, error)

	// ListAllocationsByItem returns the allocations generated for one expense
	// item.
	ListAllocationsByItem(ctx context.Context, itemID string) ([]models.Allocation, error)

	// UpdateAllocationStatus advances one allocation's status, but only if
	// its current status is in from. The guarded update is the serialization
	// point for concurrent transition attempts: a lost race fails with
	// INVALID_INPUT, a missing allocation with NOT_FOUND.
	UpdateAllocationStatus(ctx context.Context, id string, from []models.SettlementStatus, to models.SettlementStatus) error

	// SaveKakaoToken inserts or replaces the user's messaging credential.
	SaveKakaoToken(ctx context.Context, token *models.KakaoToken) error

	// GetKakaoToken retrieves the user's messaging credential. Fails with
	// INVALID_TOKEN when none is stored.
	GetKakaoToken(ctx context.Context, userID string) (*models.KakaoToken, error)

	// Close releases any resources held by the store.
	Close() error
}
