package kakao

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/deepflow/settlement/internal/apperr"
	"github.com/deepflow/settlement/internal/money"
	"github.com/deepflow/settlement/internal/settlement"
	"github.com/deepflow/settlement/internal/storage"
)

// maxFriendPages bounds the friend-list scan so a huge friend list cannot
// turn one notification into hundreds of API calls.
const maxFriendPages = 10

// Orchestrator implements settlement.Notifier over KakaoTalk. The receiver's
// stored token is used to message the sender, who must be in the receiver's
// friend list, with a payment link built from the receiver's pay key.
type Orchestrator struct {
	client     *Client
	store      storage.Store
	payBaseURL string
	now        func() time.Time
}

// NewOrchestrator creates an orchestrator. payBaseURL is the KakaoPay
// transfer URL prefix the receiver's pay key is appended to.
func NewOrchestrator(client *Client, store storage.Store, payBaseURL string) *Orchestrator {
	return &Orchestrator{
		client:     client,
		store:      store,
		payBaseURL: payBaseURL,
		now:        time.Now,
	}
}

// SendPaymentRequest messages the sender asking for payment. It returns an
// error unless Kakao confirms delivery, so callers can safely gate status
// transitions on the result.
func (o *Orchestrator) SendPaymentRequest(ctx context.Context, req settlement.NotifyRequest) error {
	receiver, err := o.store.GetUserByID(ctx, req.ReceiverID)
	if err != nil {
		return err
	}
	if receiver.PayKey == "" {
		return apperr.Newf(apperr.CodeInvalidInput, "user %s has no pay key configured", req.ReceiverID)
	}

	sender, err := o.store.GetUserByID(ctx, req.SenderID)
	if err != nil {
		return err
	}
	if sender.KakaoID == 0 {
		return apperr.Newf(apperr.CodeInvalidInput, "user %s has no kakao account linked", req.SenderID)
	}

	token, err := o.store.GetKakaoToken(ctx, req.ReceiverID)
	if err != nil {
		return err
	}
	if token.Expired(o.now()) {
		return apperr.Newf(apperr.CodeTokenExpired, "kakao token for user %s has expired", req.ReceiverID)
	}

	friendUUID, err := o.findFriendUUID(ctx, token.AccessToken, sender.KakaoID)
	if err != nil {
		return err
	}

	text := buildMessageText(req, receiver.Nickname)
	payLink := o.payBaseURL + "/" + receiver.PayKey

	if err := o.client.SendMessage(ctx, token.AccessToken, friendUUID, text, payLink, "송금하기"); err != nil {
		return err
	}

	slog.Info("payment request delivered",
		"receiver_id", req.ReceiverID,
		"sender_id", req.SenderID,
		"amount", req.Amount,
	)
	return nil
}

// buildMessageText lays out the request: group header, one line per billed
// item, then the total and a call to action.
func buildMessageText(req settlement.NotifyRequest, receiverNickname string) string {
	var b strings.Builder
	b.WriteString(req.GroupName + " · " + req.Title + "\n")
	for _, item := range req.Items {
		b.WriteString("- " + item.Name + " " + money.Format(item.Amount, money.KRW) + "\n")
	}
	b.WriteString(receiverNickname + "님에게 " + money.Format(req.Amount, money.KRW) + " 정산 요청이 도착했어요.")
	return b.String()
}

// findFriendUUID scans the token owner's friend list for the given kakao
// account ID and returns the messaging UUID.
func (o *Orchestrator) findFriendUUID(ctx context.Context, accessToken string, kakaoID int64) (string, error) {
	offset := 0
	for page := 0; page < maxFriendPages; page++ {
		friends, err := o.client.GetFriends(ctx, accessToken, offset, defaultFriendsPageSize)
		if err != nil {
			return "", err
		}
		for _, f := range friends.Elements {
			if f.ID == kakaoID {
				return f.UUID, nil
			}
		}
		offset += len(friends.Elements)
		if friends.AfterURL == "" || len(friends.Elements) == 0 || offset >= friends.TotalCount {
			break
		}
	}
	return "", apperr.Newf(apperr.CodeUserNotFound, "kakao account %d is not in the friend list", kakaoID)
}
