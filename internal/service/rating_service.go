package service

import (
	"fmt"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/internal/repository"
)

type RatingService struct {
	ratingRepo *repository.RatingRepository
	convRepo   *repository.ConversationRepository
	userRepo   *repository.UserRepository
}

func NewRatingService(
	ratingRepo *repository.RatingRepository,
	convRepo *repository.ConversationRepository,
	userRepo *repository.UserRepository,
) *RatingService {
	return &RatingService{
		ratingRepo: ratingRepo,
		convRepo:   convRepo,
		userRepo:   userRepo,
	}
}

// RateConversation 끝난 대화의 상대를 평가하고 상대의 평점 집계를 갱신
// - 대화가 ended 상태여야 함
// - rater가 대화 멤버여야 함
// - 파트너는 대화 기록에서 추론 (클라이언트 입력을 믿지 않음)
func (s *RatingService) RateConversation(conversationID, raterID int64, rating int, feedback *string) (*models.Rating, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}

	conv, err := s.convRepo.FindByID(conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to find conversation: %w", err)
	}
	if conv == nil {
		return nil, ErrConversationNotFound
	}
	if conv.Status != models.ConversationEnded || conv.EndedAt == nil {
		return nil, ErrConversationNotEnded
	}

	if conv.TalkerID != raterID && conv.ListenerID != raterID {
		return nil, ErrNotInConversation
	}

	partnerID := conv.TalkerID
	if partnerID == raterID {
		partnerID = conv.ListenerID
	}

	out, err := s.ratingRepo.Upsert(conversationID, raterID, partnerID, rating, feedback)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert rating: %w", err)
	}

	// 파트너 프로필의 COUNT/AVG 재계산
	count, avg, err := s.ratingRepo.StatsForPartner(partnerID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute rating stats: %w", err)
	}
	if err := s.userRepo.UpdateRatingStats(partnerID, avg, count); err != nil {
		return nil, fmt.Errorf("failed to update rating stats: %w", err)
	}

	return out, nil
}
