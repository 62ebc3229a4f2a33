package models

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

type UserStatus string

const (
	UserStatusOffline UserStatus = "offline"
	UserStatusOnline  UserStatus = "online"
	UserStatusInQueue UserStatus = "in_queue"
	UserStatusInChat  UserStatus = "in_chat"
)

type User struct {
	ID           int64      `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	Name         string     `db:"name" json:"name"`
	PasswordHash string     `db:"password_hash" json:"-"` // JSON에서 숨김
	Role         *string    `db:"role" json:"role,omitempty"`
	Status       UserStatus `db:"status" json:"status"`
	LastSeen     *time.Time `db:"lastseen" json:"lastSeen,omitempty"`
	Lang         *string    `db:"lang" json:"lang,omitempty"`
	Rating       *float64   `db:"rating" json:"rating,omitempty"`
	RatingsCount int        `db:"ratingscount" json:"ratingsCount"`
	ReportsCount int        `db:"reportscount" json:"reportsCount"`
	BlockedUntil *time.Time `db:"blockeduntil" json:"blockedUntil,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updatedAt"`
}

type UpdateUserRequest struct {
	Name string  `json:"name"`
	Role *string `json:"role"`
	Lang *string `json:"lang"`
}

// HashPassword 비밀번호 해싱
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPassword 비밀번호 검증
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}
