package websocket

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Hidiczent/Behere-Backend/internal/matching"
	"github.com/Hidiczent/Behere-Backend/internal/models"
)

type fakeMessage struct {
	conversationID int64
	senderID       int64
	text           string
}

// fakeStore 테스트용 SessionStore (Hub의 비동기 쓰기를 기록만 한다)
type fakeStore struct {
	mu         sync.Mutex
	nextID     int64
	sessions   map[int64]models.ConversationStatus
	statuses   map[int64]models.UserStatus
	messages   []fakeMessage
	createErr  error
	createGate chan struct{} // non-nil이면 CreateSession이 신호가 올 때까지 대기
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		sessions: make(map[int64]models.ConversationStatus),
		statuses: make(map[int64]models.UserStatus),
	}
}

func (s *fakeStore) CreateSession(ctx context.Context, talkerID, listenerID int64) (int64, error) {
	s.mu.Lock()
	gate := s.createGate
	s.mu.Unlock()
	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.createErr != nil {
		return 0, s.createErr
	}
	s.nextID++
	s.sessions[s.nextID] = models.ConversationActive
	return s.nextID, nil
}

func (s *fakeStore) SetSessionStatus(ctx context.Context, sessionID int64, status models.ConversationStatus, endedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sessionID] = status
	return nil
}

func (s *fakeStore) SetUserStatus(ctx context.Context, userIDs []int64, status models.UserStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range userIDs {
		s.statuses[id] = status
	}
	return nil
}

func (s *fakeStore) SaveMessage(ctx context.Context, sessionID, senderID int64, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, fakeMessage{sessionID, senderID, text})
	return nil
}

func (s *fakeStore) sessionStatus(id int64) models.ConversationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[id]
}

func (s *fakeStore) userStatus(id int64) models.UserStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[id]
}

func (s *fakeStore) messageCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

// newTestHubWithConfig 타이머가 테스트 중에 끼어들지 않도록 교체/재시도 지연은 크게 잡는다
// 미뤄진 작업은 runTask로 직접 실행한다
func newTestHubWithConfig(store *fakeStore, cfg Config) *Hub {
	matcher := matching.NewMatcher(matching.Config{
		Cooldown:        10 * time.Minute,
		LongWait:        2 * time.Minute,
		RequireBothLong: true,
	}, zap.NewNop())
	return NewHub(matcher, store, cfg, zap.NewNop())
}

func newTestHub(store *fakeStore) *Hub {
	return newTestHubWithConfig(store, Config{
		GracePeriod:       time.Millisecond,
		ReplaceCloseDelay: time.Hour,
		RetryDelay:        time.Hour,
		MessageRateLimit:  1000,
	})
}

func newTestClient(h *Hub, uid int64) *Client {
	return &Client{
		hub:    h,
		send:   make(chan *OutboundMessage, 256),
		userID: uid,
		logger: zap.NewNop(),
	}
}

func recv(t *testing.T, c *Client) *OutboundMessage {
	t.Helper()
	select {
	case msg := <-c.send:
		if msg == nil {
			t.Fatal("send channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for outbound message")
		return nil
	}
}

func runTask(t *testing.T, h *Hub) {
	t.Helper()
	select {
	case task := <-h.tasks:
		task()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hub task")
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// setupRoom 두 클라이언트를 등록하고 매칭시켜 방을 연다
func setupRoom(t *testing.T, h *Hub) (*Client, *Client, int64) {
	t.Helper()

	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)
	h.handleRegister(c1)
	h.handleRegister(c2)
	if msg := recv(t, c1); msg.Type != TypeHello || msg.UID != 1 {
		t.Fatalf("c1 greeting = %+v, want HELLO uid=1", msg)
	}
	recv(t, c2)

	h.handleQueueJoin(c1, "talker")
	h.handleQueueJoin(c2, "listener")
	runTask(t, h) // 방 공지

	m1 := recv(t, c1)
	m2 := recv(t, c2)
	if m1.Type != TypeMatchFound || m2.Type != TypeMatchFound {
		t.Fatalf("expected MATCH_FOUND for both, got %q / %q", m1.Type, m2.Type)
	}
	if m1.ConversationID != m2.ConversationID || m1.ConversationID <= 0 {
		t.Fatalf("conversation ids = %d / %d", m1.ConversationID, m2.ConversationID)
	}
	return c1, c2, m1.ConversationID
}

func TestHub_RegisterReplacesExistingConnection(t *testing.T) {
	h := newTestHub(newFakeStore())

	c1 := newTestClient(h, 1)
	h.handleRegister(c1)
	recv(t, c1) // HELLO

	c2 := newTestClient(h, 1)
	h.handleRegister(c2)

	if msg := recv(t, c1); msg.Type != TypeReplaced {
		t.Errorf("old connection got %q, want REPLACED", msg.Type)
	}
	if msg := recv(t, c2); msg.Type != TypeHello {
		t.Errorf("new connection got %q, want HELLO", msg.Type)
	}
	if h.clients[1].client != c2 {
		t.Error("registry should point to the new connection")
	}
}

func TestHub_GraceReconnectKeepsRoom(t *testing.T) {
	h := newTestHub(newFakeStore())
	h.cfg.GracePeriod = time.Hour // teardown 타이머가 발동하지 않게

	c1, _, cid := setupRoom(t, h)

	h.handleClose(c1)
	if _, ok := h.graceTimers[1]; !ok {
		t.Fatal("close should arm a grace timer")
	}

	c1b := newTestClient(h, 1)
	h.handleRegister(c1b)

	if _, ok := h.graceTimers[1]; ok {
		t.Error("reconnect should cancel the grace timer")
	}
	if got := h.clients[1].room; got != roomTag(cid) {
		t.Errorf("room = %q, want %q (inherited across reconnect)", got, roomTag(cid))
	}
	if h.clients[1].client != c1b {
		t.Error("registry should point to the reconnected client")
	}
}

func TestHub_DisconnectTearsDownRoom(t *testing.T) {
	store := newFakeStore()
	h := newTestHub(store)

	c1, c2, cid := setupRoom(t, h)

	h.handleClose(c1)
	runTask(t, h) // 유예 만료 → teardown

	if msg := recv(t, c2); msg.Type != TypePartnerDisconnected {
		t.Errorf("partner got %q, want PARTNER_DISCONNECTED", msg.Type)
	}
	if _, ok := h.clients[1]; ok {
		t.Error("disconnected user should be removed from registry")
	}
	if h.clients[2].room != "" {
		t.Error("partner room tag should be cleared")
	}

	waitFor(t, func() bool { return store.sessionStatus(cid) == models.ConversationDropped },
		"session should be marked dropped")
	waitFor(t, func() bool { return store.userStatus(1) == models.UserStatusOffline },
		"disconnected user should be offline")
	waitFor(t, func() bool { return store.userStatus(2) == models.UserStatusOnline },
		"partner should be back online")

	// 비정상 종료도 쿨다운을 남겨 즉시 재매칭을 막는다
	h.matcher.JoinQueue(1, matching.RoleTalker)
	h.matcher.JoinQueue(2, matching.RoleListener)
	if _, ok := h.matcher.TryMatch(); ok {
		t.Error("pair should be under cooldown after disconnect teardown")
	}
}

func TestHub_MessageRelay(t *testing.T) {
	store := newFakeStore()
	h := newTestHub(store)

	c1, c2, cid := setupRoom(t, h)

	h.handleMessage(c1, cid, "hello there")

	for _, c := range []*Client{c1, c2} {
		msg := recv(t, c)
		if msg.Type != TypeMessageNew {
			t.Fatalf("got %q, want MESSAGE_NEW", msg.Type)
		}
		if msg.From != 1 || msg.Text != "hello there" || msg.ConversationID != cid {
			t.Errorf("relayed message = %+v", msg)
		}
		if msg.At <= 0 {
			t.Error("relayed message should carry a timestamp")
		}
	}

	waitFor(t, func() bool { return store.messageCount() == 1 }, "message should be persisted")
}

func TestHub_MessageFromNonMemberRejected(t *testing.T) {
	h := newTestHub(newFakeStore())

	_, _, cid := setupRoom(t, h)

	c3 := newTestClient(h, 3)
	h.handleRegister(c3)
	recv(t, c3) // HELLO

	h.handleMessage(c3, cid, "let me in")

	if msg := recv(t, c3); msg.Type != TypeError {
		t.Errorf("got %q, want ERROR for non-member", msg.Type)
	}
}

func TestHub_EndConversation(t *testing.T) {
	store := newFakeStore()
	h := newTestHub(store)

	c1, c2, cid := setupRoom(t, h)

	h.handleEnd(c1, cid)

	for _, c := range []*Client{c1, c2} {
		msg := recv(t, c)
		if msg.Type != TypeConversationEnded || msg.By != 1 {
			t.Errorf("got %+v, want CONVERSATION_ENDED by=1", msg)
		}
	}
	if h.clients[1].room != "" || h.clients[2].room != "" {
		t.Error("room tags should be cleared after END")
	}

	waitFor(t, func() bool { return store.sessionStatus(cid) == models.ConversationEnded },
		"session should be marked ended")

	// 중복 END는 거부된다 (이미 방을 들고 있지 않음)
	h.handleEnd(c1, cid)
	if msg := recv(t, c1); msg.Type != TypeError {
		t.Errorf("second END got %q, want ERROR", msg.Type)
	}

	// 쿨다운이 즉시 재매칭을 막는다
	h.matcher.JoinQueue(1, matching.RoleTalker)
	h.matcher.JoinQueue(2, matching.RoleListener)
	if _, ok := h.matcher.TryMatch(); ok {
		t.Error("pair should be under cooldown right after END")
	}
}

func TestHub_QueueJoinWhileInChatIgnored(t *testing.T) {
	h := newTestHub(newFakeStore())

	c1, _, _ := setupRoom(t, h)

	h.handleQueueJoin(c1, "talker")

	if h.matcher.Queued(1) {
		t.Error("in-chat user must not re-enter the queue")
	}
	select {
	case msg := <-c1.send:
		t.Errorf("unexpected message %q", msg.Type)
	default:
	}
}

func TestHub_RetrySendsQueued(t *testing.T) {
	h := newTestHub(newFakeStore())

	c1 := newTestClient(h, 1)
	h.handleRegister(c1)
	recv(t, c1) // HELLO

	h.handleQueueJoin(c1, "talker")
	h.retryMatch(1, c1)

	if msg := recv(t, c1); msg.Type != TypeQueued {
		t.Errorf("got %q, want QUEUED while still waiting", msg.Type)
	}
}

func TestHub_InvalidRoleRejected(t *testing.T) {
	h := newTestHub(newFakeStore())

	c1 := newTestClient(h, 1)
	h.handleRegister(c1)
	recv(t, c1)

	h.handleQueueJoin(c1, "judge")

	if msg := recv(t, c1); msg.Type != TypeError {
		t.Errorf("got %q, want ERROR for invalid role", msg.Type)
	}
	if h.matcher.Queued(1) {
		t.Error("user with invalid role must not be queued")
	}
}

func TestHub_BadInboundPayload(t *testing.T) {
	h := newTestHub(newFakeStore())

	c1 := newTestClient(h, 1)
	h.handleRegister(c1)
	recv(t, c1)

	h.handleInbound(c1, []byte("{not json"))
	if msg := recv(t, c1); msg.Type != TypeError || msg.Message != "Bad JSON" {
		t.Errorf("got %+v, want Bad JSON error", msg)
	}

	h.handleInbound(c1, []byte(`{"type":"DANCE"}`))
	if msg := recv(t, c1); msg.Type != TypeError {
		t.Errorf("got %q, want ERROR for unknown type", msg.Type)
	}
}

func TestHub_SessionCreateFailureRecovers(t *testing.T) {
	store := newFakeStore()
	store.createErr = context.DeadlineExceeded
	h := newTestHub(store)

	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)
	h.handleRegister(c1)
	h.handleRegister(c2)
	recv(t, c1)
	recv(t, c2)

	h.handleQueueJoin(c1, "talker")
	h.handleQueueJoin(c2, "listener")
	runTask(t, h) // 실패한 방 공지

	if msg := recv(t, c1); msg.Type != TypeError {
		t.Errorf("got %q, want ERROR after session create failure", msg.Type)
	}
	if msg := recv(t, c2); msg.Type != TypeError {
		t.Errorf("got %q, want ERROR after session create failure", msg.Type)
	}

	// 쿨다운 없이 in-chat만 풀려 즉시 다시 매칭을 시도할 수 있어야 한다
	store.mu.Lock()
	store.createErr = nil
	store.mu.Unlock()

	h.handleQueueJoin(c1, "talker")
	h.handleQueueJoin(c2, "listener")
	runTask(t, h)

	if msg := recv(t, c1); msg.Type != TypeMatchFound {
		t.Errorf("got %q, want MATCH_FOUND on retry", msg.Type)
	}
}

func TestHub_StaleSocketIgnored(t *testing.T) {
	h := newTestHub(newFakeStore())

	c1 := newTestClient(h, 1)
	h.handleRegister(c1)
	recv(t, c1)

	c1b := newTestClient(h, 1)
	h.handleRegister(c1b)
	recv(t, c1)  // REPLACED
	recv(t, c1b) // HELLO

	// 교체된 옛 소켓의 close는 새 연결을 건드리지 않는다
	h.handleClose(c1)
	if _, ok := h.graceTimers[1]; ok {
		t.Error("stale close must not arm a grace timer")
	}

	// 옛 소켓에서 온 메시지도 무시된다
	h.handleInbound(c1, []byte(`{"type":"QUEUE_JOIN","role":"talker"}`))
	if h.matcher.Queued(1) {
		t.Error("inbound from a stale socket must be ignored")
	}
}

func TestHub_DisconnectWhileQueuedLeavesQueue(t *testing.T) {
	store := newFakeStore()
	h := newTestHub(store)

	c1 := newTestClient(h, 1)
	h.handleRegister(c1)
	recv(t, c1) // HELLO

	h.handleQueueJoin(c1, "talker")
	if !h.matcher.Queued(1) {
		t.Fatal("user should be queued before disconnect")
	}

	h.handleClose(c1)
	runTask(t, h) // 유예 만료 → teardown

	if h.matcher.Queued(1) {
		t.Error("queue membership must be torn down after grace expiry")
	}
	if _, ok := h.clients[1]; ok {
		t.Error("disconnected user should be removed from registry")
	}

	waitFor(t, func() bool { return store.userStatus(1) == models.UserStatusOffline },
		"disconnected user should be offline")
}

func TestHub_DisconnectBeforeAnnouncementDropsMatch(t *testing.T) {
	store := newFakeStore()
	store.createGate = make(chan struct{})
	h := newTestHub(store)

	c1 := newTestClient(h, 1)
	c2 := newTestClient(h, 2)
	h.handleRegister(c1)
	h.handleRegister(c2)
	recv(t, c1)
	recv(t, c2)

	// 매칭은 성사되지만 세션 생성이 gate에 막혀 공지가 늦어진다
	h.handleQueueJoin(c1, "talker")
	h.handleQueueJoin(c2, "listener")
	if !h.matcher.InChat(1) || !h.matcher.InChat(2) {
		t.Fatal("pair should be pre-marked in-chat after match")
	}

	// 공지가 도착하기 전에 talker가 끊기고 유예가 만료된다
	h.handleClose(c1)
	runTask(t, h) // teardown

	if h.matcher.InChat(1) {
		t.Error("in-chat flag must be cleared when leaving before announcement")
	}

	// 늦게 도착한 공지는 빠진 멤버를 보고 drop 처리해야 한다
	close(store.createGate)
	runTask(t, h) // announce

	if msg := recv(t, c2); msg.Type != TypePartnerDisconnected {
		t.Errorf("surviving member got %q, want PARTNER_DISCONNECTED", msg.Type)
	}
	if h.matcher.InChat(2) {
		t.Error("surviving member must not stay in-chat for a ghost room")
	}
	if h.clients[2].room != "" {
		t.Error("surviving member must not hold a room tag")
	}

	waitFor(t, func() bool { return store.sessionStatus(1) == models.ConversationDropped },
		"session should be marked dropped")

	// 재접속한 사용자는 다시 줄을 설 수 있어야 한다
	c1b := newTestClient(h, 1)
	h.handleRegister(c1b)
	recv(t, c1b) // HELLO
	h.handleQueueJoin(c1b, "talker")
	if !h.matcher.Queued(1) {
		t.Error("user must be able to queue again after the dropped match")
	}
}

func TestHub_FloodLimitDoesNotBlockEnd(t *testing.T) {
	store := newFakeStore()
	h := newTestHubWithConfig(store, Config{
		GracePeriod:       time.Millisecond,
		ReplaceCloseDelay: time.Hour,
		RetryDelay:        time.Hour,
		MessageRateLimit:  2,
	})

	c1, c2, cid := setupRoom(t, h)

	chat := []byte(fmt.Sprintf(`{"type":"MESSAGE","conversationId":%d,"text":"hi"}`, cid))
	h.handleInbound(c1, chat)
	h.handleInbound(c1, chat)
	h.handleInbound(c1, chat) // 버킷 소진 후의 3번째는 제한

	if msg := recv(t, c1); msg.Type != TypeMessageNew {
		t.Fatalf("got %q, want MESSAGE_NEW", msg.Type)
	}
	if msg := recv(t, c1); msg.Type != TypeMessageNew {
		t.Fatalf("got %q, want MESSAGE_NEW", msg.Type)
	}
	if msg := recv(t, c1); msg.Type != TypeError {
		t.Fatalf("got %q, want ERROR for flooded message", msg.Type)
	}

	// 버킷이 빈 상태에서도 END는 처리되어야 한다
	h.handleInbound(c1, []byte(fmt.Sprintf(`{"type":"END","conversationId":%d}`, cid)))

	if msg := recv(t, c1); msg.Type != TypeConversationEnded {
		t.Errorf("got %q, want CONVERSATION_ENDED despite exhausted bucket", msg.Type)
	}

	// 파트너 쪽에서도 종료 통지 확인
	recv(t, c2) // MESSAGE_NEW
	recv(t, c2) // MESSAGE_NEW
	if msg := recv(t, c2); msg.Type != TypeConversationEnded {
		t.Errorf("partner got %q, want CONVERSATION_ENDED", msg.Type)
	}
}
