package service

import (
	"net/http"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/middleware"
	"github.com/deepflow/settlement/internal/models"
)

type linkKakaoRequest struct {
	KakaoID      int64  `json:"kakao_id"`
	PayKey       string `json:"pay_key"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// handleLinkKakao stores the caller's messaging account link: numeric kakao
// ID, pay key and access token in one shot.
func (s *Service) handleLinkKakao(w http.ResponseWriter, r *http.Request) {
	var req linkKakaoRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.KakaoID == 0 {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "kakao_id required"))
		return
	}
	if req.AccessToken == "" {
		writeError(w, apperr.New(apperr.CodeInvalidInput, "access_token required"))
		return
	}

	callerID := middleware.GetUserID(r.Context())
	if err := s.store.UpdateUserKakaoLink(r.Context(), callerID, req.KakaoID, req.PayKey); err != nil {
		writeError(w, err)
		return
	}
	err := s.store.SaveKakaoToken(r.Context(), &models.KakaoToken{
		UserID:       callerID,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
		ExpiresAt:    req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	user, err := s.store.GetUserByID(r.Context(), callerID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toUserResponse(user))
}
