package models

// SettlementKind selects how an expense is divided among its participants.
type SettlementKind string

const (
	// EvenSplit divides the expense total evenly across all participants.
	EvenSplit SettlementKind = "EVEN_SPLIT"

	// Itemized divides each line item independently among the subset of
	// participants attached to that item.
	Itemized SettlementKind = "ITEMIZED"
)

// Valid reports whether k is one of the two supported kinds.
func (k SettlementKind) Valid() bool {
	return k == EvenSplit || k == Itemized
}

// Expense represents one spending event fronted by a single payer.
//
// The settlement kind is immutable once allocations exist; expenses are never
// updated after creation.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string

	// GroupID is the group this expense belongs to.
	GroupID string

	// PayerID is the user who fronted the money. Always the receiver of this
	// expense's allocations.
	PayerID string

	// Title is the store name or a short description of the spending.
	Title string

	// TotalAmount is the full amount in won. Must be a positive integer.
	TotalAmount int64

	// Kind is the settlement kind: EVEN_SPLIT or ITEMIZED.
	Kind SettlementKind

	// SpentAt is the Unix timestamp of the spending itself.
	SpentAt int64

	// ReceiptID optionally references an uploaded receipt. The receipt
	// pipeline (storage, OCR) is an external collaborator.
	ReceiptID string

	// Participants is the list of user IDs sharing this expense. Used
	// directly for EVEN_SPLIT; for ITEMIZED the per-item participant sets
	// drive allocation instead.
	Participants []string

	// Items are the priced lines of an ITEMIZED expense. Empty for EVEN_SPLIT.
	// The sum of line amounts is not cross-checked against TotalAmount.
	Items []ExpenseItem

	// CreatedAt is the Unix timestamp when the expense was recorded.
	CreatedAt int64
}

// ExpenseItem represents one priced line belonging to an itemized expense.
type ExpenseItem struct {
	// ID is the unique identifier for the item (UUID format).
	ID string

	// ExpenseID is the owning expense.
	ExpenseID string

	// Name is the purchased item name as read off the receipt.
	Name string

	// LineAmount is the price of this line in won. Must be a positive integer.
	LineAmount int64

	// Participants is the list of user IDs who share this line.
	Participants []string
}
