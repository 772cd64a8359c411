// Package balance aggregates a group's allocations into per-member net
// balances and a simplified debt graph.
package balance

import (
	"sort"

	"github.com/deepflow/settlement/internal/models"
)

// MemberBalance is the aggregate position of one group member.
type MemberBalance struct {
	UserID string `json:"user_id"`

	// Receivable is the outstanding amount others still owe this member.
	Receivable int64 `json:"receivable"`

	// Payable is the outstanding amount this member still owes others.
	Payable int64 `json:"payable"`

	// Net is Receivable minus Payable. Positive means the member is owed
	// money overall.
	Net int64 `json:"net"`
}

// DebtEdge is one transfer in the simplified debt graph.
type DebtEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Compute aggregates allocations into member balances and a minimal set of
// transfers that would settle the group. COMPLETED allocations are already
// paid and excluded. Members are ordered by user ID for stable output.
func Compute(allocations []models.Allocation) ([]MemberBalance, []DebtEdge) {
	byUser := make(map[string]*MemberBalance)
	touch := func(userID string) *MemberBalance {
		b, ok := byUser[userID]
		if !ok {
			b = &MemberBalance{UserID: userID}
			byUser[userID] = b
		}
		return b
	}

	for _, a := range allocations {
		if a.Status == models.StatusCompleted {
			continue
		}
		touch(a.SenderID).Payable += a.ShareAmount
		touch(a.ReceiverID).Receivable += a.ShareAmount
	}

	members := make([]MemberBalance, 0, len(byUser))
	for _, b := range byUser {
		b.Net = b.Receivable - b.Payable
		members = append(members, *b)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })

	return members, simplify(members)
}

// simplify greedily matches debtors against creditors so the whole group can
// settle with at most members-1 transfers.
func simplify(members []MemberBalance) []DebtEdge {
	var debtors, creditors []MemberBalance
	for _, m := range members {
		switch {
		case m.Net < 0:
			debtors = append(debtors, m)
		case m.Net > 0:
			creditors = append(creditors, m)
		}
	}

	var edges []DebtEdge
	i, j := 0, 0
	remainingDebt := make(map[string]int64, len(debtors))
	remainingCredit := make(map[string]int64, len(creditors))
	for _, d := range debtors {
		remainingDebt[d.UserID] = -d.Net
	}
	for _, c := range creditors {
		remainingCredit[c.UserID] = c.Net
	}

	for i < len(debtors) && j < len(creditors) {
		debtor := debtors[i].UserID
		creditor := creditors[j].UserID

		amount := remainingDebt[debtor]
		if remainingCredit[creditor] < amount {
			amount = remainingCredit[creditor]
		}
		if amount > 0 {
			edges = append(edges, DebtEdge{From: debtor, To: creditor, Amount: amount})
		}

		remainingDebt[debtor] -= amount
		remainingCredit[creditor] -= amount
		if remainingDebt[debtor] == 0 {
			i++
		}
		if remainingCredit[creditor] == 0 {
			j++
		}
	}
	return edges
}
