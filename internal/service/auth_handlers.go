package service

import (
	"net/http"

	"github.com/deepflow/settlement/internal/models"
)

type signupRequest struct {
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Nickname  string `json:"nickname"`
	KakaoID   int64  `json:"kakao_id,omitempty"`
	PayKey    string `json:"pay_key,omitempty"`
	CreatedAt int64  `json:"created_at"`
}

type authResponse struct {
	Token string       `json:"token"`
	User  userResponse `json:"user"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		Nickname:  u.Nickname,
		KakaoID:   u.KakaoID,
		PayKey:    u.PayKey,
		CreatedAt: u.CreatedAt,
	}
}

func (s *Service) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.authn.Register(r.Context(), req.Email, req.Nickname, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{Token: token, User: toUserResponse(user)})
}

func (s *Service) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}

	user, err := s.authn.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	token, err := s.jwt.Generate(user)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token, User: toUserResponse(user)})
}
