package models

import "time"

type Rating struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversationId"`
	RaterID        int64     `db:"rater_id" json:"raterId"`
	PartnerID      int64     `db:"partner_id" json:"partnerId"`
	Rating         int       `db:"rating" json:"rating"`
	Feedback       *string   `db:"feedback" json:"feedback,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

type ReportReason string

const (
	ReportReasonSpam       ReportReason = "spam"
	ReportReasonHarassment ReportReason = "harassment"
	ReportReasonOther      ReportReason = "other"
)

type Report struct {
	ID             int64        `db:"id" json:"id"`
	ConversationID int64        `db:"conversation_id" json:"conversationId"`
	ReporterID     int64        `db:"reporter_id" json:"reporterId"`
	ReportedUserID int64        `db:"reported_user_id" json:"reportedUserId"`
	Reason         ReportReason `db:"reason" json:"reason"`
	Detail         *string      `db:"detail" json:"detail,omitempty"`
	Status         string       `db:"status" json:"status"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
}
