package repository

import (
	"fmt"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/pkg/database"
)

type MessageRepository struct {
	db *database.DB
}

func NewMessageRepository(db *database.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// Create 메시지 저장
func (r *MessageRepository) Create(conversationID, senderID int64, content string) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, sent_at)
		VALUES ($1, $2, $3, NOW())
	`
	_, err := r.db.Exec(query, conversationID, senderID, content)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// ListByConversation 대화의 메시지 목록 (시간순)
func (r *MessageRepository) ListByConversation(conversationID int64, limit, offset int) ([]models.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, sent_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY sent_at ASC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.db.Query(query, conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var msg models.Message
		if err := rows.Scan(&msg.ID, &msg.ConversationID, &msg.SenderID, &msg.Content, &msg.SentAt); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		messages = append(messages, msg)
	}

	return messages, nil
}
