package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Hidiczent/Behere-Backend/internal/matching"
	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/pkg/ratelimit"
)

// SessionStore 영속화 경계 (구현: service.ChatStore)
// Hub는 결과를 기다리지 않는다: 실패는 로그만 남기고 무시
type SessionStore interface {
	CreateSession(ctx context.Context, talkerID, listenerID int64) (int64, error)
	SetSessionStatus(ctx context.Context, sessionID int64, status models.ConversationStatus, endedAt *time.Time) error
	SetUserStatus(ctx context.Context, userIDs []int64, status models.UserStatus) error
	SaveMessage(ctx context.Context, sessionID, senderID int64, text string) error
}

// Config Hub 동작 설정
type Config struct {
	GracePeriod       time.Duration // 끊김 → 진짜 끊김 판정까지의 유예
	ReplaceCloseDelay time.Duration // 교체된 이전 소켓 종료 지연
	RetryDelay        time.Duration // 큐 참가 직후 재매칭 시도 지연
	MessageRateLimit  int64         // 연결당 초당 메시지 허용량
}

// entry 연결 레지스트리 항목: uid당 정확히 하나
type entry struct {
	client *Client
	room   string // 참여 중인 방 태그 ("c:<conversationId>", 없으면 "")
}

type inboundEvent struct {
	client *Client
	data   []byte
}

// Hub 연결 레지스트리 + 방 코디네이터
// 모든 상태 변경은 Run 루프 한 곳에서만 일어난다. 타이머로 미루는 작업도
// tasks 채널을 통해 루프로 돌아와 실행되며, 재연결/상태 변화로 취소될 수 있다.
type Hub struct {
	clients     map[int64]*entry
	graceTimers map[int64]*time.Timer

	register chan *Client
	closed   chan *Client
	inbound  chan inboundEvent
	tasks    chan func()

	matcher *matching.Matcher
	store   SessionStore
	limiter *ratelimit.RateLimiter
	cfg     Config
	logger  *zap.Logger
}

// NewHub Hub 생성 (Run은 별도 고루틴에서 호출, logger가 nil이면 기본 로거 사용)
func NewHub(matcher *matching.Matcher, store SessionStore, cfg Config, logger *zap.Logger) *Hub {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	if cfg.MessageRateLimit <= 0 {
		cfg.MessageRateLimit = 10
	}

	return &Hub{
		clients:     make(map[int64]*entry),
		graceTimers: make(map[int64]*time.Timer),
		register:    make(chan *Client),
		closed:      make(chan *Client),
		inbound:     make(chan inboundEvent, 256),
		tasks:       make(chan func(), 64),
		matcher:     matcher,
		store:       store,
		limiter:     ratelimit.NewRateLimiter(cfg.MessageRateLimit, cfg.MessageRateLimit),
		cfg:         cfg,
		logger:      logger,
	}
}

// Run Hub 이벤트 루프 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.handleRegister(client)

		case client := <-h.closed:
			h.handleClose(client)

		case event := <-h.inbound:
			h.handleInbound(event.client, event.data)

		case task := <-h.tasks:
			task()
		}
	}
}

func roomTag(conversationID int64) string {
	return fmt.Sprintf("c:%d", conversationID)
}

func roomConversationID(tag string) int64 {
	id, err := strconv.ParseInt(strings.TrimPrefix(tag, "c:"), 10, 64)
	if err != nil {
		return 0
	}
	return id
}

// handleRegister 연결 등록: uid당 1연결 유지, 진행 중인 방은 새 연결로 승계
func (h *Hub) handleRegister(c *Client) {
	uid := c.userID

	// 유예 타이머가 돌고 있으면 재연결로 보고 해제 취소
	if timer, ok := h.graceTimers[uid]; ok {
		timer.Stop()
		delete(h.graceTimers, uid)
		h.logger.Info("reconnected within grace period", zap.Int64("userId", uid))
	}

	prev := h.clients[uid]
	e := &entry{client: c}
	if prev != nil {
		e.room = prev.room // 진행 중인 방은 재연결 후에도 유지
	}
	h.clients[uid] = e

	if prev != nil && prev.client != c {
		h.send(prev.client, &OutboundMessage{Type: TypeReplaced})
		old := prev.client
		// 이전 소켓의 늦은 teardown이 새 세션을 덮지 않도록 약간 늦게 닫는다
		time.AfterFunc(h.cfg.ReplaceCloseDelay, func() {
			old.closeWithCode(CloseReplaced, "replaced by a new connection")
		})
		h.logger.Info("replaced existing WebSocket connection", zap.Int64("userId", uid))
	}

	h.setUserStatus([]int64{uid}, models.UserStatusOnline)
	h.send(c, &OutboundMessage{Type: TypeHello, UID: uid})

	h.logger.Info("WebSocket client registered",
		zap.Int64("userId", uid),
		zap.Int("totalClients", len(h.clients)))
}

// handleClose 소켓이 닫힘: 바로 정리하지 않고 유예 타이머를 건다
func (h *Hub) handleClose(c *Client) {
	uid := c.userID

	e := h.clients[uid]
	if e == nil || e.client != c {
		return // 이미 새 연결로 교체된 소켓
	}

	if timer, ok := h.graceTimers[uid]; ok {
		timer.Stop()
	}

	h.graceTimers[uid] = time.AfterFunc(h.cfg.GracePeriod, func() {
		h.tasks <- func() { h.teardown(uid, c) }
	})
}

// teardown 유예 기간 내 재연결이 없었을 때의 실제 해제 처리
func (h *Hub) teardown(uid int64, c *Client) {
	delete(h.graceTimers, uid)

	e := h.clients[uid]
	if e == nil || e.client != c {
		h.logger.Info("close skipped, reconnected in grace", zap.Int64("userId", uid))
		return
	}

	h.logger.Info("WebSocket client disconnected", zap.Int64("userId", uid))

	h.matcher.LeaveQueue(uid)
	room := e.room
	delete(h.clients, uid)
	close(c.send)

	if room != "" {
		partnerFound := false
		for otherUID, oe := range h.clients {
			if oe.room != room {
				continue
			}
			partnerFound = true
			oe.room = ""
			h.send(oe.client, &OutboundMessage{Type: TypePartnerDisconnected})
			h.matcher.MarkChatEnded(uid, otherUID)
			h.setUserStatus([]int64{otherUID}, models.UserStatusOnline)
		}
		if !partnerFound {
			h.matcher.ClearInChat(uid, uid)
		}

		if cid := roomConversationID(room); cid > 0 {
			h.setSessionStatus(cid, models.ConversationDropped)
		}
	} else if h.matcher.InChat(uid) {
		// 매칭은 됐지만 방 공지가 아직 도착하지 않은 상태에서 끊김:
		// 선점된 in-chat만 풀어 준다 (공지 task가 빠진 멤버를 보고 drop 처리)
		h.matcher.ClearInChat(uid, uid)
	}

	h.setUserStatus([]int64{uid}, models.UserStatusOffline)
}

// handleInbound 클라이언트 요청 분기
func (h *Hub) handleInbound(c *Client, data []byte) {
	uid := c.userID

	e := h.clients[uid]
	if e == nil || e.client != c {
		return // 옛 소켓에서 온 메시지는 무시
	}

	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Bad JSON"})
		return
	}

	switch msg.Type {
	case TypeQueueJoin:
		h.handleQueueJoin(c, msg.Role)
	case TypeQueueLeave:
		h.handleQueueLeave(c)
	case TypeMessage:
		// 메시지 홍수만 제한: 종료/큐 제어 요청은 막히면 안 된다
		if !h.limiter.Allow(strconv.FormatInt(uid, 10)) {
			h.send(c, &OutboundMessage{Type: TypeError, Message: "Too many messages"})
			return
		}
		h.handleMessage(c, msg.ConversationID, msg.Text)
	case TypeEnd:
		h.handleEnd(c, msg.ConversationID)
	default:
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Unknown message type"})
	}
}

// handleQueueJoin 대기 큐 참가 + 즉시/지연 매칭 시도
func (h *Hub) handleQueueJoin(c *Client, role string) {
	uid := c.userID

	if !matching.ValidRole(role) {
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Invalid role"})
		return
	}

	if h.matcher.InChat(uid) {
		return // 이미 방에 있음: 클라이언트 재시도를 관대하게 무시
	}

	h.setUserStatus([]int64{uid}, models.UserStatusInQueue)
	h.matcher.JoinQueue(uid, matching.Role(role))

	if pair, ok := h.matcher.TryMatch(); ok {
		h.openRoom(pair)
		return
	}

	// 거의 동시에 줄을 선 상대를 기다렸다가 한 번 더 시도
	time.AfterFunc(h.cfg.RetryDelay, func() {
		h.tasks <- func() { h.retryMatch(uid, c) }
	})
}

// retryMatch 지연 재매칭: 그 사이 상태가 바뀌었으면 no-op
func (h *Hub) retryMatch(uid int64, c *Client) {
	e := h.clients[uid]
	if e == nil || e.client != c {
		return
	}

	if pair, ok := h.matcher.TryMatch(); ok {
		h.openRoom(pair)
		return
	}

	if h.matcher.Queued(uid) {
		h.send(c, &OutboundMessage{Type: TypeQueued})
	}
}

// handleQueueLeave 대기 큐 이탈
func (h *Hub) handleQueueLeave(c *Client) {
	h.matcher.LeaveQueue(c.userID)
	h.setUserStatus([]int64{c.userID}, models.UserStatusOnline)
}

// openRoom 세션 생성은 루프 밖에서, 방 공지는 task로 루프에 되돌아와 실행
func (h *Hub) openRoom(pair matching.Pair) {
	go func() {
		cid, err := h.store.CreateSession(context.Background(), pair.TalkerID, pair.ListenerID)
		h.tasks <- func() { h.announceRoom(pair, cid, err) }
	}()
}

// announceRoom 방 태그 부여 + 양쪽에 MATCH_FOUND 통지
func (h *Hub) announceRoom(pair matching.Pair, conversationID int64, err error) {
	ids := []int64{pair.TalkerID, pair.ListenerID}

	if err != nil {
		h.logger.Error("failed to create session",
			zap.Int64("talker", pair.TalkerID),
			zap.Int64("listener", pair.ListenerID),
			zap.Error(err))
		// 쿨다운 없이 in-chat만 풀어 다시 줄을 설 수 있게 한다
		h.matcher.ClearInChat(pair.TalkerID, pair.ListenerID)
		for _, id := range ids {
			if e := h.clients[id]; e != nil {
				h.send(e.client, &OutboundMessage{Type: TypeError, Message: "Failed to start conversation"})
			}
		}
		return
	}

	// 공지 전에 한쪽이 이미 끊겼으면 유령 방을 만들지 않고 바로 drop 처리
	if h.clients[pair.TalkerID] == nil || h.clients[pair.ListenerID] == nil {
		h.matcher.MarkChatEnded(pair.TalkerID, pair.ListenerID)
		h.setSessionStatus(conversationID, models.ConversationDropped)
		for _, id := range ids {
			if e := h.clients[id]; e != nil {
				h.send(e.client, &OutboundMessage{Type: TypePartnerDisconnected})
				h.setUserStatus([]int64{id}, models.UserStatusOnline)
			}
		}
		h.logger.Info("match dropped before announcement",
			zap.Int64("talker", pair.TalkerID),
			zap.Int64("listener", pair.ListenerID),
			zap.Int64("conversationId", conversationID))
		return
	}

	room := roomTag(conversationID)
	h.setUserStatus(ids, models.UserStatusInChat)

	for _, id := range ids {
		e := h.clients[id]
		e.room = room
		h.send(e.client, &OutboundMessage{Type: TypeMatchFound, ConversationID: conversationID})
	}

	h.logger.Info("match announced",
		zap.String("room", room),
		zap.Int64("talker", pair.TalkerID),
		zap.Int64("listener", pair.ListenerID))
}

// handleMessage 방 멤버십 확인 후 방 전체에 릴레이
func (h *Hub) handleMessage(c *Client, conversationID int64, text string) {
	uid := c.userID

	if conversationID <= 0 {
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Bad conversationId"})
		return
	}

	room := roomTag(conversationID)
	e := h.clients[uid]
	if e == nil || e.room != room {
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Not in conversation"})
		return
	}

	out := &OutboundMessage{
		Type:           TypeMessageNew,
		ConversationID: conversationID,
		From:           uid,
		Text:           text,
		At:             time.Now().UnixMilli(),
	}
	for _, oe := range h.clients {
		if oe.room == room {
			h.send(oe.client, out)
		}
	}

	h.saveMessage(conversationID, uid, text)
}

// handleEnd 명시적 종료: 방 해체 + 쿨다운 + 상태 영속화
// 방을 들고 있지 않으면 거부 (중복 END가 중복 통지를 만들지 않도록)
func (h *Hub) handleEnd(c *Client, conversationID int64) {
	uid := c.userID

	if conversationID <= 0 {
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Bad conversationId"})
		return
	}

	room := roomTag(conversationID)
	e := h.clients[uid]
	if e == nil || e.room != room {
		h.send(c, &OutboundMessage{Type: TypeError, Message: "Not in conversation"})
		return
	}

	var memberIDs []int64
	for otherUID, oe := range h.clients {
		if oe.room != room {
			continue
		}
		memberIDs = append(memberIDs, otherUID)
		h.send(oe.client, &OutboundMessage{Type: TypeConversationEnded, ConversationID: conversationID, By: uid})
		oe.room = ""
	}

	partnerID := uid
	for _, id := range memberIDs {
		if id != uid {
			partnerID = id
		}
	}
	h.matcher.MarkChatEnded(uid, partnerID)

	h.setSessionStatus(conversationID, models.ConversationEnded)
	h.setUserStatus(memberIDs, models.UserStatusOnline)

	h.logger.Info("conversation ended",
		zap.Int64("by", uid),
		zap.Int64("conversationId", conversationID))
}

// send 루프 안에서의 비차단 전송
func (h *Hub) send(c *Client, msg *OutboundMessage) {
	select {
	case c.send <- msg:
	default:
		h.logger.Warn("client send channel full, dropping message",
			zap.Int64("userId", c.userID),
			zap.String("type", msg.Type))
	}
}

// setUserStatus 사용자 상태 영속화 (best-effort)
func (h *Hub) setUserStatus(ids []int64, status models.UserStatus) {
	go func() {
		if err := h.store.SetUserStatus(context.Background(), ids, status); err != nil {
			h.logger.Error("failed to persist user status",
				zap.Int64s("userIds", ids),
				zap.String("status", string(status)),
				zap.Error(err))
		}
	}()
}

// setSessionStatus 세션 상태 영속화 (best-effort)
func (h *Hub) setSessionStatus(conversationID int64, status models.ConversationStatus) {
	endedAt := time.Now()
	go func() {
		if err := h.store.SetSessionStatus(context.Background(), conversationID, status, &endedAt); err != nil {
			h.logger.Error("failed to persist session status",
				zap.Int64("conversationId", conversationID),
				zap.String("status", string(status)),
				zap.Error(err))
		}
	}()
}

// saveMessage 메시지 영속화 (best-effort)
func (h *Hub) saveMessage(conversationID, senderID int64, text string) {
	go func() {
		if err := h.store.SaveMessage(context.Background(), conversationID, senderID, text); err != nil {
			h.logger.Error("failed to persist message",
				zap.Int64("conversationId", conversationID),
				zap.Error(err))
		}
	}()
}
