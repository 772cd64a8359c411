package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
)

// SaveKakaoToken inserts or replaces the user's messaging credential.
func (s *SQLiteStore) SaveKakaoToken(ctx context.Context, token *models.KakaoToken) error {
	if token.UpdatedAt == 0 {
		token.UpdatedAt = time.Now().Unix()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO kakao_tokens (user_id, access_token, refresh_token, expires_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(user_id) DO UPDATE SET
		   access_token = excluded.access_token,
		   refresh_token = excluded.refresh_token,
		   expires_at = excluded.expires_at,
		   updated_at = excluded.updated_at`,
		token.UserID, token.AccessToken, token.RefreshToken, token.ExpiresAt, token.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save kakao token: %w", err)
	}
	return nil
}

// GetKakaoToken retrieves the user's messaging credential.
func (s *SQLiteStore) GetKakaoToken(ctx context.Context, userID string) (*models.KakaoToken, error) {
	token := &models.KakaoToken{}
	err := s.db.QueryRowContext(ctx,
		"SELECT user_id, access_token, refresh_token, expires_at, updated_at FROM kakao_tokens WHERE user_id = ?",
		userID,
	).Scan(&token.UserID, &token.AccessToken, &token.RefreshToken, &token.ExpiresAt, &token.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, apperr.Newf(apperr.CodeInvalidToken, "no kakao token stored for user %s", userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get kakao token: %w", err)
	}
	return token, nil
}
