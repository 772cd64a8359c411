package kakao

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/models"
	"github.com/deepflow/settlement/internal/settlement"
	"github.com/deepflow/settlement/internal/storage/sqlite"
)

func TestGetFriendsPagination(t *testing.T) {
	// Two pages of one friend each.
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/talk/friends" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
		page := FriendsPage{TotalCount: 2}
		switch offset {
		case 0:
			page.Elements = []Friend{{ID: 111, UUID: "uuid-111"}}
			page.AfterURL = "next"
		default:
			page.Elements = []Friend{{ID: 222, UUID: "uuid-222"}}
		}
		json.NewEncoder(w).Encode(page)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	page, err := client.GetFriends(ctx, "token-1", 0, 1)
	if err != nil {
		t.Fatalf("GetFriends failed: %v", err)
	}
	if len(page.Elements) != 1 || page.Elements[0].UUID != "uuid-111" {
		t.Errorf("first page = %+v", page)
	}

	page, err = client.GetFriends(ctx, "token-1", 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Elements) != 1 || page.Elements[0].ID != 222 {
		t.Errorf("second page = %+v", page)
	}

	if _, err := client.GetFriends(ctx, "bad-token", 0, 1); !apperr.IsCode(err, apperr.CodeInvalidToken) {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestSendMessage(t *testing.T) {
	var gotTemplate string
	confirm := true
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/api/talk/friends/message/default/send" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseForm(); err != nil {
			t.Fatal(err)
		}
		gotTemplate = r.PostForm.Get("template_object")
		resp := sendResponse{}
		if confirm {
			var uuids []string
			json.Unmarshal([]byte(r.PostForm.Get("receiver_uuids")), &uuids)
			resp.SuccessfulReceiverUUIDs = uuids
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	ctx := context.Background()

	err := client.SendMessage(ctx, "token-1", "uuid-111", "정산 요청", "https://pay.example/abc", "송금하기")
	if err != nil {
		t.Fatalf("SendMessage failed: %v", err)
	}

	var template messageTemplate
	if err := json.Unmarshal([]byte(gotTemplate), &template); err != nil {
		t.Fatalf("template not valid JSON: %v", err)
	}
	if template.ObjectType != "text" || template.Link.WebURL != "https://pay.example/abc" {
		t.Errorf("template = %+v", template)
	}

	// Kakao accepted the call but did not confirm the receiver.
	confirm = false
	err = client.SendMessage(ctx, "token-1", "uuid-111", "정산 요청", "https://pay.example/abc", "송금하기")
	if !apperr.IsCode(err, apperr.CodeExternalServerError) {
		t.Errorf("expected EXTERNAL_SERVER_ERROR, got %v", err)
	}
}

func newTestStore(t *testing.T) *sqlite.SQLiteStore {
	t.Helper()

	tmpFile, err := os.CreateTemp("", "kakao-test-*.db")
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
	return store
}

// seedPair stores a linked receiver (alice, with pay key and token) and a
// linked sender (bob, kakao account 222).
func seedPair(t *testing.T, store *sqlite.SQLiteStore, tokenExpiry int64) {
	t.Helper()
	ctx := context.Background()

	for _, u := range []struct{ id, nickname string }{{"alice", "앨리스"}, {"bob", "밥"}} {
		err := store.CreateUser(ctx, &models.User{
			ID: u.id, Email: u.id + "@example.com", Nickname: u.nickname, PasswordHash: "x",
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if err := store.UpdateUserKakaoLink(ctx, "alice", 111, "alice-pay"); err != nil {
		t.Fatal(err)
	}
	if err := store.UpdateUserKakaoLink(ctx, "bob", 222, ""); err != nil {
		t.Fatal(err)
	}
	err := store.SaveKakaoToken(ctx, &models.KakaoToken{
		UserID: "alice", AccessToken: "token-1", ExpiresAt: tokenExpiry,
	})
	if err != nil {
		t.Fatal(err)
	}
}

func kakaoStub(t *testing.T, sent *[]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/api/talk/friends":
			json.NewEncoder(w).Encode(FriendsPage{
				Elements:   []Friend{{ID: 222, UUID: "uuid-bob"}},
				TotalCount: 1,
			})
		case "/v1/api/talk/friends/message/default/send":
			r.ParseForm()
			*sent = append(*sent, r.PostForm.Get("template_object"))
			json.NewEncoder(w).Encode(sendResponse{SuccessfulReceiverUUIDs: []string{"uuid-bob"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestOrchestratorSendPaymentRequest(t *testing.T) {
	store := newTestStore(t)
	seedPair(t, store, time.Now().Add(time.Hour).Unix())

	var sent []string
	server := kakaoStub(t, &sent)
	defer server.Close()

	orch := NewOrchestrator(NewClient(server.URL), store, "https://pay.example")
	err := orch.SendPaymentRequest(context.Background(), settlement.NotifyRequest{
		ReceiverID: "alice",
		SenderID:   "bob",
		GroupName:  "회식",
		Title:      "삼겹살집",
		Amount:     12345,
		Items:      []settlement.LineItem{{Name: "삼겹살집", Amount: 12345}},
	})
	if err != nil {
		t.Fatalf("SendPaymentRequest failed: %v", err)
	}
	if len(sent) != 1 {
		t.Fatalf("sent %d messages, want 1", len(sent))
	}

	var template messageTemplate
	if err := json.Unmarshal([]byte(sent[0]), &template); err != nil {
		t.Fatal(err)
	}
	if template.Link.WebURL != "https://pay.example/alice-pay" {
		t.Errorf("pay link = %q", template.Link.WebURL)
	}
	want := "회식 · 삼겹살집\n- 삼겹살집 12,345원\n앨리스님에게 12,345원 정산 요청이 도착했어요."
	if template.Text != want {
		t.Errorf("text = %q, want %q", template.Text, want)
	}
}

func TestOrchestratorErrors(t *testing.T) {
	var sent []string
	server := kakaoStub(t, &sent)
	defer server.Close()

	base := settlement.NotifyRequest{
		ReceiverID: "alice", SenderID: "bob", GroupName: "회식", Title: "삼겹살집", Amount: 1000,
	}

	t.Run("no token stored", func(t *testing.T) {
		store := newTestStore(t)
		seedPair(t, store, 0)
		ctx := context.Background()
		// Wipe the token by never saving one for carol; easier: new users.
		err := store.CreateUser(ctx, &models.User{
			ID: "carol", Email: "carol@example.com", Nickname: "캐롤", PasswordHash: "x",
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := store.UpdateUserKakaoLink(ctx, "carol", 333, "carol-pay"); err != nil {
			t.Fatal(err)
		}

		orch := NewOrchestrator(NewClient(server.URL), store, "https://pay.example")
		req := base
		req.ReceiverID = "carol"
		if err := orch.SendPaymentRequest(ctx, req); !apperr.IsCode(err, apperr.CodeInvalidToken) {
			t.Errorf("expected INVALID_TOKEN, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		store := newTestStore(t)
		seedPair(t, store, time.Now().Add(-time.Hour).Unix())

		orch := NewOrchestrator(NewClient(server.URL), store, "https://pay.example")
		err := orch.SendPaymentRequest(context.Background(), base)
		if !apperr.IsCode(err, apperr.CodeTokenExpired) {
			t.Errorf("expected TOKEN_EXPIRED, got %v", err)
		}
	})

	t.Run("receiver without pay key", func(t *testing.T) {
		store := newTestStore(t)
		seedPair(t, store, time.Now().Add(time.Hour).Unix())
		ctx := context.Background()
		if err := store.UpdateUserKakaoLink(ctx, "alice", 111, ""); err != nil {
			t.Fatal(err)
		}

		orch := NewOrchestrator(NewClient(server.URL), store, "https://pay.example")
		err := orch.SendPaymentRequest(ctx, base)
		if !apperr.IsCode(err, apperr.CodeInvalidInput) {
			t.Errorf("expected INVALID_INPUT, got %v", err)
		}
	})

	t.Run("sender not in friend list", func(t *testing.T) {
		store := newTestStore(t)
		seedPair(t, store, time.Now().Add(time.Hour).Unix())
		ctx := context.Background()
		// Relink bob to a kakao account the stub does not know.
		if err := store.UpdateUserKakaoLink(ctx, "bob", 999, ""); err != nil {
			t.Fatal(err)
		}

		orch := NewOrchestrator(NewClient(server.URL), store, "https://pay.example")
		err := orch.SendPaymentRequest(ctx, base)
		if !apperr.IsCode(err, apperr.CodeUserNotFound) {
			t.Errorf("expected USER_NOT_FOUND, got %v", err)
		}
	})

	t.Run("kakao server error", func(t *testing.T) {
		failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, "boom")
		}))
		defer failing.Close()

		store := newTestStore(t)
		seedPair(t, store, time.Now().Add(time.Hour).Unix())

		orch := NewOrchestrator(NewClient(failing.URL), store, "https://pay.example")
		err := orch.SendPaymentRequest(context.Background(), base)
		if !apperr.IsCode(err, apperr.CodeExternalServerError) {
			t.Errorf("expected EXTERNAL_SERVER_ERROR, got %v", err)
		}
	})
}
