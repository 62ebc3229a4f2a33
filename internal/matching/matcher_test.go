package matching

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestMatcher(cfg Config) (*Matcher, *time.Time) {
	m := NewMatcher(cfg, zap.NewNop())
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	return m, &now
}

func defaultConfig() Config {
	return Config{
		Cooldown:        10 * time.Minute,
		LongWait:        2 * time.Minute,
		RequireBothLong: true,
	}
}

func TestMatcher_ImmediateMatch(t *testing.T) {
	m, now := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	*now = now.Add(10 * time.Millisecond)
	m.JoinQueue(2, RoleListener)

	pair, ok := m.TryMatch()
	if !ok {
		t.Fatal("expected a match on first attempt")
	}
	if pair.TalkerID != 1 || pair.ListenerID != 2 {
		t.Errorf("pair = %+v, want {1 2}", pair)
	}

	if !m.InChat(1) || !m.InChat(2) {
		t.Error("matched users should be marked in-chat")
	}
	if m.Queued(1) || m.Queued(2) {
		t.Error("matched users should be removed from the queue")
	}
}

func TestMatcher_QueueOrderIsFIFO(t *testing.T) {
	m, _ := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleTalker)
	m.JoinQueue(3, RoleListener)

	pair, ok := m.TryMatch()
	if !ok {
		t.Fatal("expected a match")
	}
	if pair.TalkerID != 1 {
		t.Errorf("talker = %d, want first-joined talker 1", pair.TalkerID)
	}
}

func TestMatcher_CooldownBlocksRematch(t *testing.T) {
	m, now := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)
	if _, ok := m.TryMatch(); !ok {
		t.Fatal("expected initial match")
	}

	m.MarkChatEnded(1, 2)

	// 바로 다시 줄을 서면 쿨다운 때문에 매칭되지 않아야 한다
	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)
	if _, ok := m.TryMatch(); ok {
		t.Fatal("pair under cooldown should not be rematched")
	}

	// 쿨다운이 지나면 매칭된다
	*now = now.Add(10*time.Minute + time.Second)
	pair, ok := m.TryMatch()
	if !ok {
		t.Fatal("expected match after cooldown expiry")
	}
	if pair.TalkerID != 1 || pair.ListenerID != 2 {
		t.Errorf("pair = %+v, want {1 2}", pair)
	}
}

func TestMatcher_FallbackRequireBoth(t *testing.T) {
	m, now := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)
	m.TryMatch()
	m.MarkChatEnded(1, 2)

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)

	// 한쪽만 오래 기다린 상태에서는 fallback이 발동하지 않는다
	if _, ok := m.TryMatch(); ok {
		t.Fatal("cooldown should still block before long wait")
	}

	// 양쪽 모두 long-wait 임계값을 넘기면 쿨다운을 무시하고 매칭
	*now = now.Add(2*time.Minute + time.Second)
	pair, ok := m.TryMatch()
	if !ok {
		t.Fatal("expected fallback match when both waited long")
	}
	if pair.TalkerID != 1 || pair.ListenerID != 2 {
		t.Errorf("pair = %+v, want {1 2}", pair)
	}
}

func TestMatcher_FallbackEitherSide(t *testing.T) {
	cfg := defaultConfig()
	cfg.RequireBothLong = false
	m, now := newTestMatcher(cfg)

	// talker 1이 3분째 대기, 신규 listener 3이 방금 합류
	// 쿨다운 충돌이 전혀 없어도 fallback 경로로 매칭되어야 한다
	m.JoinQueue(1, RoleTalker)
	*now = now.Add(3 * time.Minute)
	m.JoinQueue(3, RoleListener)

	// 1차 패스에서 잡히는 것을 막기 위해 쿨다운을 걸어 둔다
	m.MarkChatEnded(1, 3)

	pair, ok := m.TryMatch()
	if !ok {
		t.Fatal("expected fallback match with one long waiter")
	}
	if pair.TalkerID != 1 || pair.ListenerID != 3 {
		t.Errorf("pair = %+v, want {1 3}", pair)
	}
}

func TestMatcher_FallbackEitherSide_NoCooldownConflict(t *testing.T) {
	cfg := Config{
		Cooldown:        10 * time.Minute,
		LongWait:        120000 * time.Millisecond,
		RequireBothLong: false,
	}
	m, now := newTestMatcher(cfg)

	// talker만 3분 대기 후 신규 listener 합류 (과거 이력 없음)
	m.JoinQueue(1, RoleTalker)
	*now = now.Add(3 * time.Minute)
	m.JoinQueue(2, RoleListener)

	pair, ok := m.TryMatch()
	if !ok {
		t.Fatal("expected a match")
	}
	if pair.TalkerID != 1 || pair.ListenerID != 2 {
		t.Errorf("pair = %+v, want {1 2}", pair)
	}
}

func TestMatcher_JoinWhileInChatIgnored(t *testing.T) {
	m, _ := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)
	m.TryMatch()

	// 방에 있는 동안의 큐 참가는 무시된다
	m.JoinQueue(1, RoleTalker)
	if m.Queued(1) {
		t.Error("in-chat user must not be queued")
	}
	if !m.InChat(1) {
		t.Error("in-chat flag should be untouched")
	}
}

func TestMatcher_RoleSwitchKeepsSingleEntry(t *testing.T) {
	m, _ := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(1, RoleListener)

	if len(m.talkers) != 0 {
		t.Error("user should have been removed from talker queue")
	}
	if len(m.listeners) != 1 {
		t.Errorf("listeners = %d, want 1", len(m.listeners))
	}
}

func TestMatcher_LeaveQueueIdempotent(t *testing.T) {
	m, _ := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.LeaveQueue(1)
	m.LeaveQueue(1)

	if m.Queued(1) {
		t.Error("user should not be queued after leave")
	}
	if len(m.talkers) != 0 {
		t.Errorf("talkers = %d, want 0", len(m.talkers))
	}
}

func TestMatcher_NoCandidates(t *testing.T) {
	m, _ := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	if _, ok := m.TryMatch(); ok {
		t.Error("match with no listener should fail")
	}
}

func TestMatcher_ClearInChatWithoutCooldown(t *testing.T) {
	m, _ := newTestMatcher(defaultConfig())

	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)
	m.TryMatch()

	m.ClearInChat(1, 2)

	// 쿨다운이 걸리지 않았으므로 즉시 재매칭 가능
	m.JoinQueue(1, RoleTalker)
	m.JoinQueue(2, RoleListener)
	if _, ok := m.TryMatch(); !ok {
		t.Error("expected immediate rematch after ClearInChat")
	}
}
