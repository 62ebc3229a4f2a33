package service

import (
	"fmt"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/internal/repository"
)

type ReportService struct {
	reportRepo *repository.ReportRepository
	convRepo   *repository.ConversationRepository
	userRepo   *repository.UserRepository
}

func NewReportService(
	reportRepo *repository.ReportRepository,
	convRepo *repository.ConversationRepository,
	userRepo *repository.UserRepository,
) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		convRepo:   convRepo,
		userRepo:   userRepo,
	}
}

// CreateReport 대화 상대 신고
// reportedUserID는 받지 않고 대화 기록에서 추론
func (s *ReportService) CreateReport(conversationID, reporterID int64, reason models.ReportReason, detail *string) (*models.Report, error) {
	switch reason {
	case models.ReportReasonSpam, models.ReportReasonHarassment, models.ReportReasonOther:
	default:
		return nil, ErrInvalidReportReason
	}

	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if conv.Status == models.ConversationActive {
		return nil, ErrConversationNotEnded
	}

	if conv.TalkerID != reporterID && conv.ListenerID != reporterID {
		return nil, ErrNotInConversation
	}

	reportedUserID := conv.TalkerID
	if reportedUserID == reporterID {
		reportedUserID = conv.ListenerID
	}

	report, err := s.reportRepo.Create(conversationID, reporterID, reportedUserID, reason, detail)
	if err != nil {
		return nil, fmt.Errorf("failed to create report: %w", err)
	}

	if err := s.userRepo.IncrementReportsCount(reportedUserID); err != nil {
		return nil, fmt.Errorf("failed to increment reports count: %w", err)
	}

	return report, nil
}
