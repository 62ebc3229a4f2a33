package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/pkg/database"
)

type ConversationRepository struct {
	db *database.DB
}

func NewConversationRepository(db *database.DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Create 새 대화 세션 생성 (status=active)
func (r *ConversationRepository) Create(talkerID, listenerID int64) (*models.Conversation, error) {
	query := `
		INSERT INTO conversations (talker_id, listener_id, status, started_at)
		VALUES ($1, $2, 'active', NOW())
		RETURNING id, talker_id, listener_id, status, started_at, ended_at
	`

	conv := &models.Conversation{}
	err := r.db.QueryRow(query, talkerID, listenerID).Scan(
		&conv.ID,
		&conv.TalkerID,
		&conv.ListenerID,
		&conv.Status,
		&conv.StartedAt,
		&conv.EndedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	return conv, nil
}

// SetStatus 대화 상태 변경 (ended/dropped 시 ended_at 기록)
// active는 terminal 상태를 덮어쓰지 않도록 WHERE로 막는다
func (r *ConversationRepository) SetStatus(id int64, status models.ConversationStatus, endedAt *time.Time) error {
	query := `
		UPDATE conversations
		SET status = $2, ended_at = $3
		WHERE id = $1 AND status = 'active'
	`
	_, err := r.db.Exec(query, id, status, endedAt)
	if err != nil {
		return fmt.Errorf("failed to set conversation status: %w", err)
	}
	return nil
}

// FindByID ID로 대화 찾기
func (r *ConversationRepository) FindByID(id int64) (*models.Conversation, error) {
	query := `
		SELECT id, talker_id, listener_id, status, started_at, ended_at
		FROM conversations
		WHERE id = $1
	`

	conv := &models.Conversation{}
	err := r.db.QueryRow(query, id).Scan(
		&conv.ID,
		&conv.TalkerID,
		&conv.ListenerID,
		&conv.Status,
		&conv.StartedAt,
		&conv.EndedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}

	return conv, nil
}

// ListByUser 사용자가 참여한 대화 목록 (최신순)
func (r *ConversationRepository) ListByUser(userID int64, limit, offset int) ([]models.Conversation, error) {
	query := `
		SELECT id, talker_id, listener_id, status, started_at, ended_at
		FROM conversations
		WHERE talker_id = $1 OR listener_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var convs []models.Conversation
	for rows.Next() {
		var conv models.Conversation
		if err := rows.Scan(
			&conv.ID,
			&conv.TalkerID,
			&conv.ListenerID,
			&conv.Status,
			&conv.StartedAt,
			&conv.EndedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		convs = append(convs, conv)
	}

	return convs, nil
}
