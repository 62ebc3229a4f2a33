package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Hidiczent/Behere-Backend/internal/service"
	"github.com/Hidiczent/Behere-Backend/pkg/logger"
)

type RatingHandler struct {
	ratingService *service.RatingService
}

func NewRatingHandler(ratingService *service.RatingService) *RatingHandler {
	return &RatingHandler{
		ratingService: ratingService,
	}
}

type RateRequest struct {
	Rating   int     `json:"rating" binding:"required,min=1,max=5"`
	Feedback *string `json:"feedback"`
}

// RateConversation 끝난 대화의 상대 평가
func (h *RatingHandler) RateConversation(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid conversation id",
		})
		return
	}

	var req RateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	userId, _ := c.Get("userId")

	rating, err := h.ratingService.RateConversation(conversationID, userId.(int64), req.Rating, req.Feedback)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case errors.Is(err, service.ErrNotInConversation):
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this conversation"})
		case errors.Is(err, service.ErrConversationNotEnded):
			c.JSON(http.StatusConflict, gin.H{"error": "Conversation is not ended yet"})
		case errors.Is(err, service.ErrInvalidRating):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Rating must be between 1 and 5"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save rating"})
		}
		return
	}

	logger.Info("Conversation rated",
		"conversationId", conversationID,
		"raterId", userId,
		"rating", req.Rating,
	)

	c.JSON(http.StatusCreated, gin.H{"rating": rating})
}
