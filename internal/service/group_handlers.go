package service

import (
	"net/http"

	"github.com/deepflow/settlement/internal/balance"
	"github.com/deepflow/settlement/internal/middleware"
	"github.com/deepflow/settlement/internal/models"
)

type createGroupRequest struct {
	Name    string   `json:"name"`
	Members []string `json:"members"`
}

type addMembersRequest struct {
	Members []string `json:"members"`
}

type groupResponse struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Members   []string `json:"members"`
	CreatedAt int64    `json:"created_at"`
}

func toGroupResponse(g *models.Group) groupResponse {
	return groupResponse{
		ID:        g.ID,
		Name:      g.Name,
		Members:   g.Members,
		CreatedAt: g.CreatedAt,
	}
}

func (s *Service) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	callerID := middleware.GetUserID(r.Context())
	group, err := s.groups.Create(r.Context(), callerID, req.Name, req.Members)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toGroupResponse(group))
}

func (s *Service) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	group, err := s.groups.Get(r.Context(), callerID, r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

func (s *Service) handleAddMembers(w http.ResponseWriter, r *http.Request) {
	var req addMembersRequest
	if !decodeBody(w, r, &req) {
		return
	}

	callerID := middleware.GetUserID(r.Context())
	group, err := s.groups.AddMembers(r.Context(), callerID, r.PathValue("id"), req.Members)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toGroupResponse(group))
}

// handleGroupBalances reports the group's outstanding positions: per-member
// net balances plus a minimal transfer set that would settle everyone up.
func (s *Service) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	groupID := r.PathValue("id")
	if _, err := s.groups.Get(r.Context(), callerID, groupID); err != nil {
		writeError(w, err)
		return
	}

	allocations, err := s.store.ListAllocationsByGroup(r.Context(), groupID)
	if err != nil {
		writeError(w, err)
		return
	}

	members, edges := balance.Compute(allocations)
	writeJSON(w, http.StatusOK, map[string]any{
		"group_id":  groupID,
		"members":   members,
		"transfers": edges,
	})
}

func (s *Service) handleGroupTotal(w http.ResponseWriter, r *http.Request) {
	callerID := middleware.GetUserID(r.Context())
	groupID := r.PathValue("id")
	total, err := s.expenses.GroupTotal(r.Context(), callerID, groupID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group_id": groupID,
		"total":    total,
	})
}
