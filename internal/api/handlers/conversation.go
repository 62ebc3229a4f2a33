package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Hidiczent/Behere-Backend/internal/repository"
)

type ConversationHandler struct {
	convRepo    *repository.ConversationRepository
	messageRepo *repository.MessageRepository
}

func NewConversationHandler(
	convRepo *repository.ConversationRepository,
	messageRepo *repository.MessageRepository,
) *ConversationHandler {
	return &ConversationHandler{
		convRepo:    convRepo,
		messageRepo: messageRepo,
	}
}

// ListMyConversations 내 대화 기록 조회 (최신순)
func (h *ConversationHandler) ListMyConversations(c *gin.Context) {
	userId, _ := c.Get("userId")

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	conversations, err := h.convRepo.ListByUser(userId.(int64), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list conversations",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversations": conversations,
		"limit":         limit,
		"offset":        offset,
	})
}

// GetConversationMessages 대화 메시지 조회 (멤버만)
func (h *ConversationHandler) GetConversationMessages(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid conversation id",
		})
		return
	}

	userId, _ := c.Get("userId")

	conv, err := h.convRepo.FindByID(conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get conversation",
		})
		return
	}
	if conv == nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Conversation not found",
		})
		return
	}

	uid := userId.(int64)
	if conv.TalkerID != uid && conv.ListenerID != uid {
		c.JSON(http.StatusForbidden, gin.H{
			"error": "Not a member of this conversation",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 || limit > 500 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	messages, err := h.messageRepo.ListByConversation(conversationID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list messages",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"conversation": conv,
		"messages":     messages,
	})
}
