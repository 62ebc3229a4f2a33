package models

import "time"

type ConversationStatus string

const (
	ConversationActive  ConversationStatus = "active"
	ConversationEnded   ConversationStatus = "ended"   // 멤버가 명시적으로 종료
	ConversationDropped ConversationStatus = "dropped" // 연결 끊김으로 종료
)

type Conversation struct {
	ID         int64              `db:"id" json:"id"`
	TalkerID   int64              `db:"talker_id" json:"talkerId"`
	ListenerID int64              `db:"listener_id" json:"listenerId"`
	Status     ConversationStatus `db:"status" json:"status"`
	StartedAt  time.Time          `db:"started_at" json:"startedAt"`
	EndedAt    *time.Time         `db:"ended_at" json:"endedAt,omitempty"`
}

type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversationId"`
	SenderID       int64     `db:"sender_id" json:"senderId"`
	Content        string    `db:"content" json:"content"`
	SentAt         time.Time `db:"sent_at" json:"sentAt"`
}
