package models

// SettlementStatus is the three-state lifecycle of an allocation.
//
// Legal transitions are one-directional:
//
//	UNSETTLED -> REQUESTED -> COMPLETED
//
// Creation starts at UNSETTLED; no backward transition exists and COMPLETED
// is terminal.
type SettlementStatus string

const (
	StatusUnsettled SettlementStatus = "UNSETTLED"
	StatusRequested SettlementStatus = "REQUESTED"
	StatusCompleted SettlementStatus = "COMPLETED"
)

// Valid reports whether s is one of the three persisted status values.
func (s SettlementStatus) Valid() bool {
	return s == StatusUnsettled || s == StatusRequested || s == StatusCompleted
}

// Allocation is one directed, single-currency money obligation from a sender
// to a receiver, produced as a side effect of recording an expense.
//
// Invariants: SenderID != ReceiverID, the receiver is always the payer of the
// originating expense, and ShareAmount is a positive integer. Everything but
// Status is immutable after creation; allocations are never deleted.
type Allocation struct {
	// ID is the unique identifier for the allocation (UUID format).
	ID string

	// GroupID is the group the originating expense belongs to.
	GroupID string

	// ExpenseID is the originating expense.
	ExpenseID string

	// ItemID is the originating expense item. Empty for even-split
	// allocations, which derive from the expense total instead.
	ItemID string

	// SenderID is the user who owes the money.
	SenderID string

	// ReceiverID is the user who is owed the money (the expense payer).
	ReceiverID string

	// ShareAmount is the obligation amount in won.
	ShareAmount int64

	// Status is the settlement lifecycle state.
	Status SettlementStatus

	// CreatedAt is the Unix timestamp when the allocation was generated.
	CreatedAt int64
}

// AllocationDetail is an allocation with its related entities resolved for
// display: party nicknames, the originating expense/item title, and the group
// name. Produced by join-capable storage queries so callers never walk object
// graphs.
type AllocationDetail struct {
	Allocation

	SenderNickname   string
	ReceiverNickname string
	GroupName        string
	ExpenseTitle     string
	ItemName         string
}

// Title returns the display title for the obligation: the item name for an
// itemized allocation, the expense title otherwise.
func (d *AllocationDetail) Title() string {
	if d.ItemName != "" {
		return d.ItemName
	}
	return d.ExpenseTitle
}
