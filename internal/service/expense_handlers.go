package service

import (
	"net/http"
	"strconv"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/middleware"
	"github.com/deepflow/settlement/internal/models"
)

type expenseItemRequest struct {
	Name         string   `json:"name"`
	Amount       int64    `json:"amount"`
	Participants []string `json:"participants"`
}

type createExpenseRequest struct {
	GroupID      string               `json:"group_id"`
	PayerID      string               `json:"payer_id"`
	Title        string               `json:"title"`
	TotalAmount  int64                `json:"total_amount"`
	Kind         string               `json:"kind"`
	SpentAt      int64                `json:"spent_at"`
	ReceiptID    string               `json:"receipt_id"`
	Participants []string             `json:"participants"`
	Items        []expenseItemRequest `json:"items"`
}

type expenseItemResponse struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Amount       int64    `json:"amount"`
	Participants []string `json:"participants"`
}

type expenseResponse struct {
	ID           string                `json:"id"`
	GroupID      string                `json:"group_id"`
	PayerID      string                `json:"payer_id"`
	Title        string                `json:"title"`
	TotalAmount  int64                 `json:"total_amount"`
	Kind         string                `json:"kind"`
	SpentAt      int64                 `json:"spent_at"`
	ReceiptID    string                `json:"receipt_id,omitempty"`
	Participants []string              `json:"participants,omitempty"`
	Items        []expenseItemResponse `json:"items,omitempty"`
	CreatedAt    int64                 `json:"created_at"`
}

type allocationResponse struct {
	ID          string `json:"id"`
	ExpenseID   string `json:"expense_id"`
	ItemID      string `json:"item_id,omitempty"`
	SenderID    string `json:"sender_id"`
	ReceiverID  string `json:"receiver_id"`
	ShareAmount int64  `json:"share_amount"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"created_at"`
}

func toExpenseResponse(exp *models.Expense) expenseResponse {
	resp := expenseResponse{
		ID:           exp.ID,
		GroupID:      exp.GroupID,
		PayerID:      exp.PayerID,
		Title:        exp.Title,
		TotalAmount:  exp.TotalAmount,
		Kind:         string(exp.Kind),
		SpentAt:      exp.SpentAt,
		ReceiptID:    exp.ReceiptID,
		Participants: exp.Participants,
		CreatedAt:    exp.CreatedAt,
	}
	for _, item := range exp.Items {
		resp.Items = append(resp.Items, expenseItemResponse{
			ID:           item.ID,
			Name:         item.Name,
			Amount:       item.LineAmount,
			Participants: item.Participants,
		})
	}
	return resp
}

func toAllocationResponse(a models.Allocation) allocationResponse {
	return allocationResponse{
		ID:          a.ID,
		ExpenseID:   a.ExpenseID,
		ItemID:      a.ItemID,
		SenderID:    a.SenderID,
		ReceiverID:  a.ReceiverID,
		ShareAmount: a.ShareAmount,
		Status:      string(a.Status),
		CreatedAt:   a.CreatedAt,
	}
}

func (s *Service) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req createExpenseRequest
	if !decodeBody(w, r, &req) {
		return
	}

	exp := &models.Expense{
		GroupID:      req.GroupID,
		PayerID:      req.PayerID,
		Title:        req.Title,
		TotalAmount:  req.TotalAmount,
		Kind:         models.SettlementKind(req.Kind),
		SpentAt:      req.SpentAt,
		ReceiptID:    req.ReceiptID,
		Participants: req.Participants,
	}
	for _, item := range req.Items {
		exp.Items = append(exp.Items, models.ExpenseItem{
			Name:         item.Name,
			LineAmount:   item.Amount,
			Participants: item.Participants,
		})
	}

	callerID := middleware.GetUserID(r.Context())
	allocations, err := s.expenses.Create(r.Context(), callerID, exp)
	if err != nil {
		writeError(w, err)
		return
	}

	allocResponses := make([]allocationResponse, len(allocations))
	for i, a := range allocations {
		allocResponses[i] = toAllocationResponse(a)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"expense":     toExpenseResponse(exp),
		"allocations": allocResponses,
	})
}

func (s *Service) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	exp, err := s.expenses.Get(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toExpenseResponse(exp))
}

func (s *Service) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	start, ok := queryInt64(w, r, "start")
	if !ok {
		return
	}
	end, ok := queryInt64(w, r, "end")
	if !ok {
		return
	}

	callerID := middleware.GetUserID(r.Context())
	expenses, err := s.expenses.ListByGroup(r.Context(), callerID, r.PathValue("id"), start, end)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]expenseResponse, len(expenses))
	for i := range expenses {
		responses[i] = toExpenseResponse(&expenses[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"expenses": responses})
}

// queryInt64 parses an optional integer query parameter, zero when absent.
func queryInt64(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, apperr.Newf(apperr.CodeInvalidInput, "invalid %s parameter", name))
		return 0, false
	}
	return v, true
}
