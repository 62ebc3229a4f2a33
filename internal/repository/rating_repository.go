package repository

import (
	"fmt"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/pkg/database"
)

type RatingRepository struct {
	db *database.DB
}

func NewRatingRepository(db *database.DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Upsert 대화당 rater별 1건만 유지 (재평가 시 덮어쓰기)
func (r *RatingRepository) Upsert(conversationID, raterID, partnerID int64, rating int, feedback *string) (*models.Rating, error) {
	query := `
		INSERT INTO ratings (conversation_id, rater_id, partner_id, rating, feedback)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (conversation_id, rater_id)
		DO UPDATE SET
			partner_id = EXCLUDED.partner_id,
			rating = EXCLUDED.rating,
			feedback = EXCLUDED.feedback
		RETURNING id, conversation_id, rater_id, partner_id, rating, feedback, created_at
	`

	out := &models.Rating{}
	err := r.db.QueryRow(query, conversationID, raterID, partnerID, rating, feedback).Scan(
		&out.ID,
		&out.ConversationID,
		&out.RaterID,
		&out.PartnerID,
		&out.Rating,
		&out.Feedback,
		&out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert rating: %w", err)
	}

	return out, nil
}

// StatsForPartner 파트너가 받은 평점의 COUNT/AVG
func (r *RatingRepository) StatsForPartner(partnerID int64) (count int, avg *float64, err error) {
	query := `
		SELECT COUNT(id), AVG(rating)
		FROM ratings
		WHERE partner_id = $1
	`

	if err := r.db.QueryRow(query, partnerID).Scan(&count, &avg); err != nil {
		return 0, nil, fmt.Errorf("failed to get rating stats: %w", err)
	}

	return count, avg, nil
}
