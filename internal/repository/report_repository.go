package repository

import (
	"fmt"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/pkg/database"
)

type ReportRepository struct {
	db *database.DB
}

func NewReportRepository(db *database.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create 신고 접수 (status=pending)
func (r *ReportRepository) Create(conversationID, reporterID, reportedUserID int64, reason models.ReportReason, detail *string) (*models.Report, error) {
	query := `
		INSERT INTO reports (conversation_id, reporter_id, reported_user_id, reason, detail)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, conversation_id, reporter_id, reported_user_id, reason, detail, status, created_at
	`

	report := &models.Report{}
	err := r.db.QueryRow(query, conversationID, reporterID, reportedUserID, reason, detail).Scan(
		&report.ID,
		&report.ConversationID,
		&report.ReporterID,
		&report.ReportedUserID,
		&report.Reason,
		&report.Detail,
		&report.Status,
		&report.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	return report, nil
}
