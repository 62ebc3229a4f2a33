package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/pkg/database"
)

type UserRepository struct {
	db *database.DB
}

func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, email, name, password_hash, role, status, lastseen, lang,
	rating, ratingscount, reportscount, blockeduntil, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.PasswordHash,
		&user.Role,
		&user.Status,
		&user.LastSeen,
		&user.Lang,
		&user.Rating,
		&user.RatingsCount,
		&user.ReportsCount,
		&user.BlockedUntil,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil // 사용자 없음
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}

// Create 새 사용자 생성
func (r *UserRepository) Create(email, name, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(query, email, name, passwordHash))
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// FindByEmail 이메일로 사용자 찾기
func (r *UserRepository) FindByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRow(query, email))
}

// FindByID ID로 사용자 찾기
func (r *UserRepository) FindByID(id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRow(query, id))
}

// UpdateStatus 여러 사용자의 상태 일괄 변경 (lastseen 갱신 포함)
func (r *UserRepository) UpdateStatus(ids []int64, status models.UserStatus) error {
	if len(ids) == 0 {
		return nil
	}

	query := `
		UPDATE users
		SET status = $1, lastseen = NOW(), updated_at = NOW()
		WHERE id = ANY($2)
	`
	_, err := r.db.Exec(query, status, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("failed to update user status: %w", err)
	}
	return nil
}

// UpdateProfile 프로필 변경 (이름/역할/언어)
func (r *UserRepository) UpdateProfile(id int64, name string, role, lang *string) (*models.User, error) {
	query := `
		UPDATE users
		SET name = COALESCE(NULLIF($2, ''), name),
		    role = COALESCE($3, role),
		    lang = COALESCE($4, lang),
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + userColumns

	user, err := scanUser(r.db.QueryRow(query, id, name, role, lang))
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}
	return user, nil
}

// UpdateRatingStats 파트너의 평점 집계 갱신
func (r *UserRepository) UpdateRatingStats(id int64, avg *float64, count int) error {
	query := `
		UPDATE users
		SET rating = $2, ratingscount = $3, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id, avg, count)
	if err != nil {
		return fmt.Errorf("failed to update rating stats: %w", err)
	}
	return nil
}

// IncrementReportsCount 신고당한 횟수 증가
func (r *UserRepository) IncrementReportsCount(id int64) error {
	query := `
		UPDATE users
		SET reportscount = reportscount + 1, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to increment reports count: %w", err)
	}
	return nil
}

// TouchLastSeen lastseen만 갱신
func (r *UserRepository) TouchLastSeen(id int64, at time.Time) error {
	query := `UPDATE users SET lastseen = $2 WHERE id = $1`
	_, err := r.db.Exec(query, id, at)
	if err != nil {
		return fmt.Errorf("failed to touch lastseen: %w", err)
	}
	return nil
}
