// Package kakao talks to the Kakao REST API and delivers settlement
// notifications over KakaoTalk.
package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/deepflow/settlement/internal/apperr"
)

const defaultFriendsPageSize = 100

// Friend is one entry of the token owner's KakaoTalk friend list.
type Friend struct {
	ID   int64  `json:"id"`
	UUID string `json:"uuid"`
}

// FriendsPage is one page of the friend list.
type FriendsPage struct {
	Elements   []Friend `json:"elements"`
	TotalCount int      `json:"total_count"`
	AfterURL   string   `json:"after_url"`
}

// Client is a thin HTTP client for the Kakao REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a Kakao API client against the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// GetFriends fetches one page of the token owner's friend list.
func (c *Client) GetFriends(ctx context.Context, accessToken string, offset, limit int) (*FriendsPage, error) {
	if limit <= 0 {
		limit = defaultFriendsPageSize
	}
	endpoint := fmt.Sprintf("%s/v1/api/talk/friends?offset=%d&limit=%d", c.baseURL, offset, limit)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build friends request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeExternalServerError, "kakao friends request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, apperr.New(apperr.CodeInvalidToken, "kakao rejected the access token")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, apperr.Newf(apperr.CodeExternalServerError, "kakao friends returned %d: %s", resp.StatusCode, body)
	}

	var page FriendsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, apperr.Wrap(apperr.CodeExternalServerError, "failed to decode friends response", err)
	}
	return &page, nil
}

// messageTemplate is the KakaoTalk default text template.
type messageTemplate struct {
	ObjectType string       `json:"object_type"`
	Text       string       `json:"text"`
	Link       templateLink `json:"link"`
	ButtonText string       `json:"button_title,omitempty"`
}

type templateLink struct {
	WebURL       string `json:"web_url"`
	MobileWebURL string `json:"mobile_web_url"`
}

type sendResponse struct {
	SuccessfulReceiverUUIDs []string `json:"successful_receiver_uuids"`
}

// SendMessage posts a text message with a link button to one friend,
// identified by the friend UUID. Delivery is confirmed only when the UUID
// comes back in successful_receiver_uuids.
func (c *Client) SendMessage(ctx context.Context, accessToken, receiverUUID, text, linkURL, buttonText string) error {
	template := messageTemplate{
		ObjectType: "text",
		Text:       text,
		Link:       templateLink{WebURL: linkURL, MobileWebURL: linkURL},
		ButtonText: buttonText,
	}
	templateJSON, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal message template: %w", err)
	}
	uuidsJSON, err := json.Marshal([]string{receiverUUID})
	if err != nil {
		return fmt.Errorf("failed to marshal receiver uuids: %w", err)
	}

	form := url.Values{}
	form.Set("receiver_uuids", string(uuidsJSON))
	form.Set("template_object", string(templateJSON))

	endpoint := c.baseURL + "/v1/api/talk/friends/message/default/send"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build message request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return apperr.Wrap(apperr.CodeExternalServerError, "kakao message request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return apperr.New(apperr.CodeInvalidToken, "kakao rejected the access token")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return apperr.Newf(apperr.CodeExternalServerError, "kakao message returned %d: %s", resp.StatusCode, body)
	}

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return apperr.Wrap(apperr.CodeExternalServerError, "failed to decode message response", err)
	}
	for _, uuid := range result.SuccessfulReceiverUUIDs {
		if uuid == receiverUUID {
			return nil
		}
	}
	return apperr.Newf(apperr.CodeExternalServerError, "kakao did not confirm delivery to %s", receiverUUID)
}
