package service

import (
	"net/http"

	"github.com/deepflow/settlement/internal/middleware"
	"github.com/deepflow/settlement/internal/models"
)

type allocationDetailResponse struct {
	allocationResponse
	GroupID          string `json:"group_id"`
	GroupName        string `json:"group_name"`
	ExpenseTitle     string `json:"expense_title"`
	ItemName         string `json:"item_name,omitempty"`
	SenderNickname   string `json:"sender_nickname"`
	ReceiverNickname string `json:"receiver_nickname"`
}

func toDetailResponse(d *models.AllocationDetail) allocationDetailResponse {
	return allocationDetailResponse{
		allocationResponse: toAllocationResponse(d.Allocation),
		GroupID:            d.GroupID,
		GroupName:          d.GroupName,
		ExpenseTitle:       d.ExpenseTitle,
		ItemName:           d.ItemName,
		SenderNickname:     d.SenderNickname,
		ReceiverNickname:   d.ReceiverNickname,
	}
}

func (s *Service) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	details, err := s.settlements.List(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}

	responses := make([]allocationDetailResponse, len(details))
	for i := range details {
		responses[i] = toDetailResponse(&details[i])
	}
	writeJSON(w, http.StatusOK, map[string]any{"settlements": responses})
}

func (s *Service) handleSettlementStatus(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	detail, err := s.settlements.Status(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (s *Service) handleRequestSettlement(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	detail, err := s.settlements.Request(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (s *Service) handleCompleteSettlement(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	detail, err := s.settlements.Complete(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDetailResponse(detail))
}

func (s *Service) handleSettlementSummary(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	summary, err := s.settlements.Summarize(r.Context(), callerID, r.PathValue("userId"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
