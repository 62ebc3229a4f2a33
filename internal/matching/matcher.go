package matching

import (
	"time"

	"go.uber.org/zap"
)

type Role string

const (
	RoleTalker   Role = "talker"
	RoleListener Role = "listener"
)

// ValidRole 큐 참가 요청의 role 값 검증
func ValidRole(s string) bool {
	return s == string(RoleTalker) || s == string(RoleListener)
}

// Pair 매칭된 쌍
type Pair struct {
	TalkerID   int64
	ListenerID int64
}

type pairKey struct {
	lo, hi int64
}

func newPairKey(a, b int64) pairKey {
	if a < b {
		return pairKey{lo: a, hi: b}
	}
	return pairKey{lo: b, hi: a}
}

// Config 매칭 정책 설정
type Config struct {
	Cooldown        time.Duration // 같은 쌍 재매칭 금지 기간
	LongWait        time.Duration // 이 시간보다 오래 기다리면 fallback 대상
	RequireBothLong bool          // fallback 시 양쪽 모두 오래 기다려야 하는지
}

// Matcher 역할별 대기 큐 + 쿨다운 기반 매칭 엔진
// 동시성 안전하지 않음: 소유자(Hub 이벤트 루프) 한 곳에서만 호출해야 한다
type Matcher struct {
	cfg Config

	// 큐는 삽입 순서 유지 (slice) + 멤버십은 map으로 관리
	talkers   []int64
	listeners []int64
	role      map[int64]Role
	joinedAt  map[int64]time.Time

	inChat      map[int64]struct{}
	recentPairs map[pairKey]time.Time // key -> 쿨다운 만료 시각

	now    func() time.Time
	logger *zap.Logger
}

// NewMatcher 매칭 엔진 생성 (logger가 nil이면 기본 로거 사용)
func NewMatcher(cfg Config, logger *zap.Logger) *Matcher {
	if logger == nil {
		logger, _ = zap.NewProduction()
	}

	return &Matcher{
		cfg:         cfg,
		role:        make(map[int64]Role),
		joinedAt:    make(map[int64]time.Time),
		inChat:      make(map[int64]struct{}),
		recentPairs: make(map[pairKey]time.Time),
		now:         time.Now,
		logger:      logger,
	}
}

// JoinQueue 대기 큐 참가
// 이미 방에 있으면 무시, 다른 역할로 대기 중이었으면 그쪽에서 제거 후 재등록
func (m *Matcher) JoinQueue(uid int64, role Role) {
	if _, ok := m.inChat[uid]; ok {
		return
	}

	m.removeFromQueues(uid)

	if role == RoleListener {
		m.listeners = append(m.listeners, uid)
	} else {
		m.talkers = append(m.talkers, uid)
	}
	m.role[uid] = role
	m.joinedAt[uid] = m.now()

	m.logger.Debug("queue join",
		zap.Int64("uid", uid),
		zap.String("role", string(role)),
		zap.Int("talkers", len(m.talkers)),
		zap.Int("listeners", len(m.listeners)))
}

// LeaveQueue 대기 큐 이탈 (멱등)
func (m *Matcher) LeaveQueue(uid int64) {
	m.removeFromQueues(uid)
}

func (m *Matcher) removeFromQueues(uid int64) {
	if _, ok := m.role[uid]; !ok {
		return
	}
	m.talkers = removeID(m.talkers, uid)
	m.listeners = removeID(m.listeners, uid)
	delete(m.role, uid)
	delete(m.joinedAt, uid)
}

func removeID(ids []int64, uid int64) []int64 {
	for i, id := range ids {
		if id == uid {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

// Queued 대기 중인지 확인
func (m *Matcher) Queued(uid int64) bool {
	_, ok := m.role[uid]
	return ok
}

// InChat 방에 들어가 있는지 확인
func (m *Matcher) InChat(uid int64) bool {
	_, ok := m.inChat[uid]
	return ok
}

// TryMatch talker/listener 한 쌍 선택
// 1차 패스: 쿨다운에 걸리지 않은 쌍을 큐 순서대로 탐색
// fallback: 오래 기다린 쪽이 있으면 쿨다운을 무시하고라도 매칭 (정책에 따라 양쪽/한쪽)
// 반환된 쌍은 이미 큐에서 빠지고 in-chat으로 표시된 상태
func (m *Matcher) TryMatch() (Pair, bool) {
	m.purgeExpiredPairs()

	if len(m.talkers) == 0 || len(m.listeners) == 0 {
		return Pair{}, false
	}

	// ---- 1차 패스: 쿨다운 회피 ----
	for _, t := range m.talkers {
		if _, busy := m.inChat[t]; busy {
			continue
		}
		for _, l := range m.listeners {
			if _, busy := m.inChat[l]; busy {
				continue
			}
			if m.underCooldown(t, l) {
				continue
			}
			return m.take(t, l, "primary"), true
		}
	}

	// ---- fallback: 오래 기다린 쪽은 재회를 허용 ----
	longTalker, hasLongTalker := m.firstLongWaiter(m.talkers)
	longListener, hasLongListener := m.firstLongWaiter(m.listeners)

	if m.cfg.RequireBothLong {
		if hasLongTalker && hasLongListener {
			return m.take(longTalker, longListener, "fallback-both"), true
		}
		return Pair{}, false
	}

	if hasLongTalker {
		if l, ok := m.firstAvailable(m.listeners); ok {
			return m.take(longTalker, l, "fallback-talker"), true
		}
	}
	if hasLongListener {
		if t, ok := m.firstAvailable(m.talkers); ok {
			return m.take(t, longListener, "fallback-listener"), true
		}
	}

	return Pair{}, false
}

// MarkChatEnded 방 종료 처리: in-chat 해제 + 해당 쌍에 쿨다운 부여
func (m *Matcher) MarkChatEnded(a, b int64) {
	delete(m.inChat, a)
	delete(m.inChat, b)

	if a > 0 && b > 0 && a != b {
		m.recentPairs[newPairKey(a, b)] = m.now().Add(m.cfg.Cooldown)
	}
}

// ClearInChat 쿨다운 없이 in-chat만 해제 (방 생성 실패 복구용)
func (m *Matcher) ClearInChat(a, b int64) {
	delete(m.inChat, a)
	delete(m.inChat, b)
}

func (m *Matcher) take(talkerID, listenerID int64, pass string) Pair {
	m.removeFromQueues(talkerID)
	m.removeFromQueues(listenerID)
	m.inChat[talkerID] = struct{}{}
	m.inChat[listenerID] = struct{}{}

	m.logger.Info("matched",
		zap.Int64("talker", talkerID),
		zap.Int64("listener", listenerID),
		zap.String("pass", pass))

	return Pair{TalkerID: talkerID, ListenerID: listenerID}
}

func (m *Matcher) underCooldown(a, b int64) bool {
	exp, ok := m.recentPairs[newPairKey(a, b)]
	if !ok {
		return false
	}
	if m.now().After(exp) {
		delete(m.recentPairs, newPairKey(a, b))
		return false
	}
	return true
}

func (m *Matcher) purgeExpiredPairs() {
	now := m.now()
	for key, exp := range m.recentPairs {
		if !exp.After(now) {
			delete(m.recentPairs, key)
		}
	}
}

func (m *Matcher) firstLongWaiter(ids []int64) (int64, bool) {
	now := m.now()
	for _, id := range ids {
		if _, busy := m.inChat[id]; busy {
			continue
		}
		if joined, ok := m.joinedAt[id]; ok && now.Sub(joined) > m.cfg.LongWait {
			return id, true
		}
	}
	return 0, false
}

func (m *Matcher) firstAvailable(ids []int64) (int64, bool) {
	for _, id := range ids {
		if _, busy := m.inChat[id]; !busy {
			return id, true
		}
	}
	return 0, false
}
