package service

import "errors"

// Common service errors
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("resource not found")
)

// User service specific errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
)

// Rating/report service specific errors
var (
	ErrConversationNotFound  = errors.New("conversation not found")
	ErrConversationNotEnded  = errors.New("conversation not ended")
	ErrNotInConversation     = errors.New("not a member of conversation")
	ErrInvalidRating         = errors.New("rating must be between 1 and 5")
	ErrInvalidReportReason   = errors.New("invalid report reason")
)
