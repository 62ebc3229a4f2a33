package websocket

// 클라이언트 → 서버 메시지 타입
const (
	TypeQueueJoin  = "QUEUE_JOIN"
	TypeQueueLeave = "QUEUE_LEAVE"
	TypeMessage    = "MESSAGE"
	TypeEnd        = "END"
)

// 서버 → 클라이언트 메시지 타입
const (
	TypeHello               = "HELLO"
	TypeQueued              = "QUEUED"
	TypeMatchFound          = "MATCH_FOUND"
	TypeMessageNew          = "MESSAGE_NEW"
	TypeConversationEnded   = "CONVERSATION_ENDED"
	TypePartnerDisconnected = "PARTNER_DISCONNECTED"
	TypeReplaced            = "REPLACED"
	TypeError               = "ERROR"
)

// WebSocket 종료 코드
const (
	CloseNoToken  = 4001
	CloseBadToken = 4002
	CloseBadUID   = 4003
	CloseReplaced = 4004
)

// InboundMessage 클라이언트 요청
type InboundMessage struct {
	Type           string `json:"type"`
	Role           string `json:"role,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
	Text           string `json:"text,omitempty"`
}

// OutboundMessage 서버 알림 (타입별로 필요한 필드만 채움)
type OutboundMessage struct {
	Type           string `json:"type"`
	UID            int64  `json:"uid,omitempty"`
	ConversationID int64  `json:"conversationId,omitempty"`
	From           int64  `json:"from,omitempty"`
	By             int64  `json:"by,omitempty"`
	Text           string `json:"text,omitempty"`
	At             int64  `json:"at,omitempty"` // unix millis
	Message        string `json:"message,omitempty"`
}
