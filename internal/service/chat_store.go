package service

import (
	"context"
	"fmt"
	"time"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/internal/repository"
)

// ChatStore 실시간 코어가 쓰는 영속화 경계
// Hub는 이 타입을 통해서만 DB를 건드린다 (모든 호출은 best-effort)
type ChatStore struct {
	convRepo    *repository.ConversationRepository
	userRepo    *repository.UserRepository
	messageRepo *repository.MessageRepository
}

func NewChatStore(
	convRepo *repository.ConversationRepository,
	userRepo *repository.UserRepository,
	messageRepo *repository.MessageRepository,
) *ChatStore {
	return &ChatStore{
		convRepo:    convRepo,
		userRepo:    userRepo,
		messageRepo: messageRepo,
	}
}

// CreateSession 대화 세션 생성, 새 conversation id 반환
func (s *ChatStore) CreateSession(ctx context.Context, talkerID, listenerID int64) (int64, error) {
	conv, err := s.convRepo.Create(talkerID, listenerID)
	if err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return conv.ID, nil
}

// SetSessionStatus 세션 상태 전이 (ended/dropped)
func (s *ChatStore) SetSessionStatus(ctx context.Context, sessionID int64, status models.ConversationStatus, endedAt *time.Time) error {
	return s.convRepo.SetStatus(sessionID, status, endedAt)
}

// SetUserStatus 사용자 상태 일괄 변경
func (s *ChatStore) SetUserStatus(ctx context.Context, userIDs []int64, status models.UserStatus) error {
	return s.userRepo.UpdateStatus(userIDs, status)
}

// SaveMessage 릴레이된 메시지 저장
func (s *ChatStore) SaveMessage(ctx context.Context, sessionID, senderID int64, text string) error {
	return s.messageRepo.Create(sessionID, senderID, text)
}
