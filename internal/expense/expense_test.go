package expense

import (
	"context"
	"os"
	"testing"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
	"github.com/deepflow/settlement/internal/storage/sqlite"
)

func newTestService(t *testing.T) (*Service, *sqlite.SQLiteStore) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "expense-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return NewService(store), store
}

func seedGroupWithUsers(t *testing.T, store *sqlite.SQLiteStore, groupID string, userIDs ...string) {
	t.Helper()
	ctx := context.Background()
	for _, id := range userIDs {
		err := store.CreateUser(ctx, &models.User{
			ID:           id,
			Email:        id + "@example.com",
			Nickname:     id,
			PasswordHash: "x",
		})
		if err != nil {
			t.Fatalf("failed to seed user %s: %v", id, err)
		}
	}
	err := store.CreateGroup(ctx, &models.Group{ID: groupID, Name: "여행", Members: userIDs})
	if err != nil {
		t.Fatalf("failed to seed group: %v", err)
	}
}

func TestCreateEvenSplit(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seedGroupWithUsers(t, store, "g1", "alice", "bob", "carol")

	exp := &models.Expense{
		GroupID:      "g1",
		PayerID:      "alice",
		Title:        "저녁",
		TotalAmount:  7000,
		Kind:         models.EvenSplit,
		Participants: []string{"alice", "bob", "carol"},
	}
	allocations, err := svc.Create(ctx, "alice", exp)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(allocations) != 2 {
		t.Fatalf("got %d allocations, want 2 (payer skipped)", len(allocations))
	}
	for _, a := range allocations {
		if a.ShareAmount != 2334 {
			t.Errorf("share = %d, want 2334", a.ShareAmount)
		}
		if a.ReceiverID != "alice" {
			t.Errorf("receiver = %s, want alice", a.ReceiverID)
		}
		if a.Status != models.StatusUnsettled {
			t.Errorf("status = %s, want %s", a.Status, models.StatusUnsettled)
		}
	}

	// Everything landed in storage atomically.
	stored, err := store.GetExpense(ctx, exp.ID)
	if err != nil {
		t.Fatalf("GetExpense failed: %v", err)
	}
	if len(stored.Participants) != 3 {
		t.Errorf("stored participants = %d, want 3", len(stored.Participants))
	}
	details, err := store.ListAllocationsByUser(ctx, "bob")
	if err != nil {
		t.Fatal(err)
	}
	if len(details) != 1 {
		t.Errorf("bob has %d allocations, want 1", len(details))
	}
}

func TestCreateItemized(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seedGroupWithUsers(t, store, "g1", "alice", "bob", "carol")

	exp := &models.Expense{
		GroupID:     "g1",
		PayerID:     "alice",
		Title:       "장보기",
		TotalAmount: 7000,
		Kind:        models.Itemized,
		Items: []models.ExpenseItem{
			{Name: "과일", LineAmount: 4000, Participants: []string{"alice", "bob"}},
			{Name: "음료", LineAmount: 3000, Participants: []string{"bob", "carol"}},
		},
	}
	allocations, err := svc.Create(ctx, "alice", exp)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(allocations) != 3 {
		t.Fatalf("got %d allocations, want 3", len(allocations))
	}

	shares := map[string]int64{}
	for _, a := range allocations {
		shares[a.SenderID] += a.ShareAmount
		if a.ItemID == "" {
			t.Error("itemized allocation missing item reference")
		}
	}
	if shares["bob"] != 3500 {
		t.Errorf("bob owes %d, want 3500", shares["bob"])
	}
	if shares["carol"] != 1500 {
		t.Errorf("carol owes %d, want 1500", shares["carol"])
	}

	stored, err := store.GetExpense(ctx, exp.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(stored.Items) != 2 {
		t.Errorf("stored items = %d, want 2", len(stored.Items))
	}
}

func TestCreateValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seedGroupWithUsers(t, store, "g1", "alice", "bob")

	tests := []struct {
		name     string
		callerID string
		exp      *models.Expense
		wantCode apperr.Code
	}{
		{
			name:     "caller not a member",
			callerID: "stranger",
			exp: &models.Expense{GroupID: "g1", PayerID: "alice", Title: "x",
				TotalAmount: 100, Kind: models.EvenSplit, Participants: []string{"alice", "bob"}},
			wantCode: apperr.CodeNotGroupMember,
		},
		{
			name:     "unknown group",
			callerID: "alice",
			exp: &models.Expense{GroupID: "nope", PayerID: "alice", Title: "x",
				TotalAmount: 100, Kind: models.EvenSplit, Participants: []string{"alice", "bob"}},
			wantCode: apperr.CodeGroupNotFound,
		},
		{
			name:     "unknown participant",
			callerID: "alice",
			exp: &models.Expense{GroupID: "g1", PayerID: "alice", Title: "x",
				TotalAmount: 100, Kind: models.EvenSplit, Participants: []string{"alice", "ghost"}},
			wantCode: apperr.CodeUserNotFound,
		},
		{
			name:     "missing payer",
			callerID: "alice",
			exp: &models.Expense{GroupID: "g1", Title: "x",
				TotalAmount: 100, Kind: models.EvenSplit, Participants: []string{"alice", "bob"}},
			wantCode: apperr.CodeInvalidInput,
		},
		{
			name:     "zero total",
			callerID: "alice",
			exp: &models.Expense{GroupID: "g1", PayerID: "alice", Title: "x",
				TotalAmount: 0, Kind: models.EvenSplit, Participants: []string{"alice", "bob"}},
			wantCode: apperr.CodeInvalidInput,
		},
		{
			name:     "bad kind",
			callerID: "alice",
			exp: &models.Expense{GroupID: "g1", PayerID: "alice", Title: "x",
				TotalAmount: 100, Kind: "HALFSIES", Participants: []string{"alice", "bob"}},
			wantCode: apperr.CodeInvalidInput,
		},
		{
			name:     "itemized with zero line amount",
			callerID: "alice",
			exp: &models.Expense{GroupID: "g1", PayerID: "alice", Title: "x",
				TotalAmount: 100, Kind: models.Itemized,
				Items: []models.ExpenseItem{{Name: "과일", LineAmount: 0, Participants: []string{"alice"}}}},
			wantCode: apperr.CodeInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.callerID, tt.exp)
			if !apperr.IsCode(err, tt.wantCode) {
				t.Errorf("got %v, want code %s", err, tt.wantCode)
			}
		})
	}

	// Nothing was persisted by the failed attempts.
	total, err := store.GroupExpenseTotal(ctx, "g1")
	if err != nil {
		t.Fatal(err)
	}
	if total != 0 {
		t.Errorf("group total = %d after failed creates, want 0", total)
	}
}

func TestListByGroup(t *testing.T) {
	svc, store := newTestService(t)
	ctx := context.Background()

	seedGroupWithUsers(t, store, "g1", "alice", "bob")

	exp := &models.Expense{
		GroupID:      "g1",
		PayerID:      "alice",
		Title:        "점심",
		TotalAmount:  10000,
		Kind:         models.EvenSplit,
		Participants: []string{"alice", "bob"},
	}
	if _, err := svc.Create(ctx, "alice", exp); err != nil {
		t.Fatal(err)
	}

	expenses, err := svc.ListByGroup(ctx, "bob", "g1", 0, 0)
	if err != nil {
		t.Fatalf("ListByGroup failed: %v", err)
	}
	if len(expenses) != 1 {
		t.Errorf("got %d expenses, want 1", len(expenses))
	}

	if _, err := svc.ListByGroup(ctx, "stranger", "g1", 0, 0); !apperr.IsCode(err, apperr.CodeNotGroupMember) {
		t.Errorf("expected NOT_GROUP_MEMBER, got %v", err)
	}

	if _, err := svc.ListByGroup(ctx, "alice", "g1", 200, 100); !apperr.IsCode(err, apperr.CodeInvalidInput) {
		t.Errorf("expected INVALID_INPUT for inverted range, got %v", err)
	}

	total, err := svc.GroupTotal(ctx, "alice", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if total != 10000 {
		t.Errorf("group total = %d, want 10000", total)
	}
}
