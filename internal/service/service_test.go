package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/deepflow/settlement/internal/auth"
	"github.com/deepflow/settlement/internal/expense"
	"github.com/deepflow/settlement/internal/group"
	"github.com/deepflow/settlement/internal/settlement"
	"github.com/deepflow/settlement/internal/storage/sqlite"
)

type recordingNotifier struct {
	sent int
}

func (n *recordingNotifier) SendPaymentRequest(context.Context, settlement.NotifyRequest) error {
	n.sent++
	return nil
}

func newTestServer(t *testing.T) (*httptest.Server, *recordingNotifier) {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "service-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpFile.Close()

	store, err := sqlite.New(tmpFile.Name())
	if err != nil {
		os.Remove(tmpFile.Name())
		t.Fatalf("failed to create store: %v", err)
	}

	notifier := &recordingNotifier{}
	svc := New(
		auth.NewPasswordAuthenticator(store),
		auth.NewJWTManager("test-secret-key-32-bytes-long!!!", time.Hour),
		group.NewService(store),
		expense.NewService(store),
		settlement.NewService(store, notifier),
		store,
	)

	server := httptest.NewServer(svc.Handler())
	t.Cleanup(func() {
		server.Close()
		store.Close()
		os.Remove(tmpFile.Name())
	})
	return server, notifier
}

// doJSON fires a JSON request and decodes the response into out (when
// non-nil), returning the status code.
func doJSON(t *testing.T, method, url, token string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("failed to decode %s %s response: %v", method, url, err)
		}
	}
	return resp.StatusCode
}

// signup registers a user and returns its token and ID.
func signup(t *testing.T, baseURL, email, nickname string) (token, id string) {
	t.Helper()
	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID string `json:"id"`
		} `json:"user"`
	}
	status := doJSON(t, http.MethodPost, baseURL+"/api/auth/signup", "", map[string]string{
		"email":    email,
		"nickname": nickname,
		"password": "long enough password",
	}, &resp)
	if status != http.StatusCreated {
		t.Fatalf("signup returned %d", status)
	}
	return resp.Token, resp.User.ID
}

func TestAuthFlow(t *testing.T) {
	server, _ := newTestServer(t)

	token, _ := signup(t, server.URL, "minsoo@example.com", "민수")
	if token == "" {
		t.Fatal("signup returned empty token")
	}

	var login struct {
		Token string `json:"token"`
	}
	status := doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "minsoo@example.com",
		"password": "long enough password",
	}, &login)
	if status != http.StatusOK || login.Token == "" {
		t.Errorf("login returned %d", status)
	}

	var errResp struct {
		Code string `json:"code"`
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/auth/login", "", map[string]string{
		"email":    "minsoo@example.com",
		"password": "wrong password!",
	}, &errResp)
	if status != http.StatusUnauthorized || errResp.Code != "UNAUTHORIZED" {
		t.Errorf("bad login returned %d code %s", status, errResp.Code)
	}

	// Protected routes reject missing and garbage tokens.
	if status := doJSON(t, http.MethodGet, server.URL+"/api/settlements", "", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("missing token returned %d", status)
	}
	if status := doJSON(t, http.MethodGet, server.URL+"/api/settlements", "garbage", nil, nil); status != http.StatusUnauthorized {
		t.Errorf("garbage token returned %d", status)
	}
}

func TestExpenseToSettlementFlow(t *testing.T) {
	server, notifier := newTestServer(t)

	aliceToken, aliceID := signup(t, server.URL, "alice@example.com", "앨리스")
	bobToken, bobID := signup(t, server.URL, "bob@example.com", "밥")

	// Alice creates a group with bob.
	var groupResp struct {
		ID string `json:"id"`
	}
	status := doJSON(t, http.MethodPost, server.URL+"/api/groups", aliceToken, map[string]any{
		"name":    "회식",
		"members": []string{bobID},
	}, &groupResp)
	if status != http.StatusCreated {
		t.Fatalf("create group returned %d", status)
	}

	// Alice records a 7000 won dinner she paid for.
	var expResp struct {
		Expense struct {
			ID string `json:"id"`
		} `json:"expense"`
		Allocations []struct {
			ID          string `json:"id"`
			SenderID    string `json:"sender_id"`
			ShareAmount int64  `json:"share_amount"`
			Status      string `json:"status"`
		} `json:"allocations"`
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/expenses", aliceToken, map[string]any{
		"group_id":     groupResp.ID,
		"payer_id":     aliceID,
		"title":        "삼겹살집",
		"total_amount": 7000,
		"kind":         "EVEN_SPLIT",
		"participants": []string{aliceID, bobID},
	}, &expResp)
	if status != http.StatusCreated {
		t.Fatalf("create expense returned %d", status)
	}
	if len(expResp.Allocations) != 1 {
		t.Fatalf("got %d allocations, want 1", len(expResp.Allocations))
	}
	alloc := expResp.Allocations[0]
	if alloc.SenderID != bobID || alloc.ShareAmount != 3500 || alloc.Status != "UNSETTLED" {
		t.Errorf("unexpected allocation: %+v", alloc)
	}

	// Bob cannot request his own debt; alice can.
	if status := doJSON(t, http.MethodPost, server.URL+"/api/settlements/"+alloc.ID+"/request", bobToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("sender request returned %d", status)
	}
	var detail struct {
		Status string `json:"status"`
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/settlements/"+alloc.ID+"/request", aliceToken, nil, &detail)
	if status != http.StatusOK || detail.Status != "REQUESTED" {
		t.Fatalf("request returned %d status %s", status, detail.Status)
	}
	if notifier.sent != 1 {
		t.Errorf("sent %d notifications, want 1", notifier.sent)
	}

	// Both parties see the settlement; the summary nets out.
	var list struct {
		Settlements []struct {
			ID string `json:"id"`
		} `json:"settlements"`
	}
	status = doJSON(t, http.MethodGet, server.URL+"/api/settlements", bobToken, nil, &list)
	if status != http.StatusOK || len(list.Settlements) != 1 {
		t.Errorf("bob's list returned %d with %d entries", status, len(list.Settlements))
	}

	var summary struct {
		OwedRequested  int64 `json:"owed_requested"`
		NetOutstanding int64 `json:"net_outstanding"`
	}
	status = doJSON(t, http.MethodGet, server.URL+"/api/settlements/summary/"+bobID, aliceToken, nil, &summary)
	if status != http.StatusOK || summary.OwedRequested != 3500 || summary.NetOutstanding != 3500 {
		t.Errorf("summary returned %d: %+v", status, summary)
	}

	// Group balances before completion: bob owes alice 3500.
	var balances struct {
		Members []struct {
			UserID string `json:"user_id"`
			Net    int64  `json:"net"`
		} `json:"members"`
		Transfers []struct {
			From   string `json:"from"`
			To     string `json:"to"`
			Amount int64  `json:"amount"`
		} `json:"transfers"`
	}
	status = doJSON(t, http.MethodGet, server.URL+"/api/groups/"+groupResp.ID+"/balances", bobToken, nil, &balances)
	if status != http.StatusOK {
		t.Fatalf("balances returned %d", status)
	}
	if len(balances.Transfers) != 1 || balances.Transfers[0].From != bobID || balances.Transfers[0].Amount != 3500 {
		t.Errorf("transfers = %+v", balances.Transfers)
	}

	// Completion, receiver only.
	if status := doJSON(t, http.MethodPost, server.URL+"/api/settlements/"+alloc.ID+"/complete", bobToken, nil, nil); status != http.StatusForbidden {
		t.Errorf("sender complete returned %d", status)
	}
	status = doJSON(t, http.MethodPost, server.URL+"/api/settlements/"+alloc.ID+"/complete", aliceToken, nil, &detail)
	if status != http.StatusOK || detail.Status != "COMPLETED" {
		t.Errorf("complete returned %d status %s", status, detail.Status)
	}

	// Completed allocations accept no further requests.
	if status := doJSON(t, http.MethodPost, server.URL+"/api/settlements/"+alloc.ID+"/request", aliceToken, nil, nil); status != http.StatusBadRequest {
		t.Errorf("request on completed returned %d", status)
	}
}

func TestLinkKakao(t *testing.T) {
	server, _ := newTestServer(t)

	token, _ := signup(t, server.URL, "alice@example.com", "앨리스")

	var user struct {
		KakaoID int64  `json:"kakao_id"`
		PayKey  string `json:"pay_key"`
	}
	status := doJSON(t, http.MethodPut, server.URL+"/api/me/kakao", token, map[string]any{
		"kakao_id":     111,
		"pay_key":      "alice-pay",
		"access_token": "kakao-token",
		"expires_at":   time.Now().Add(time.Hour).Unix(),
	}, &user)
	if status != http.StatusOK {
		t.Fatalf("link returned %d", status)
	}
	if user.KakaoID != 111 || user.PayKey != "alice-pay" {
		t.Errorf("linked user = %+v", user)
	}

	status = doJSON(t, http.MethodPut, server.URL+"/api/me/kakao", token, map[string]any{
		"pay_key": "no-id",
	}, nil)
	if status != http.StatusBadRequest {
		t.Errorf("missing kakao_id returned %d", status)
	}
}
