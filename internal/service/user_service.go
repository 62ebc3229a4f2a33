package service

import (
	"fmt"
	"time"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/internal/repository"
)

type UserService struct {
	userRepo *repository.UserRepository
}

func NewUserService(userRepo *repository.UserRepository) *UserService {
	return &UserService{userRepo: userRepo}
}

// Register 새 사용자 등록
func (s *UserService) Register(email, name, password string) (*models.User, error) {
	if email == "" || name == "" || password == "" {
		return nil, ErrInvalidInput
	}

	// 이메일 중복 확인
	existing, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if existing != nil {
		return nil, ErrUserAlreadyExists
	}

	passwordHash, err := models.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.userRepo.Create(email, name, passwordHash)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

// Login 이메일/비밀번호 인증
func (s *UserService) Login(email, password string) (*models.User, error) {
	user, err := s.userRepo.FindByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// lastseen 갱신은 best-effort
	_ = s.userRepo.TouchLastSeen(user.ID, time.Now())

	return user, nil
}

// GetByID 사용자 조회
func (s *UserService) GetByID(id int64) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// UpdateProfile 프로필 변경
func (s *UserService) UpdateProfile(id int64, req models.UpdateUserRequest) (*models.User, error) {
	if req.Role != nil && *req.Role != "talker" && *req.Role != "listener" {
		return nil, ErrInvalidInput
	}

	user, err := s.userRepo.UpdateProfile(id, req.Name, req.Role, req.Lang)
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}
