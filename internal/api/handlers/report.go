package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Hidiczent/Behere-Backend/internal/models"
	"github.com/Hidiczent/Behere-Backend/internal/service"
	"github.com/Hidiczent/Behere-Backend/pkg/logger"
)

type ReportHandler struct {
	reportService *service.ReportService
}

func NewReportHandler(reportService *service.ReportService) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
	}
}

type ReportRequest struct {
	Reason string  `json:"reason" binding:"required"`
	Detail *string `json:"detail"`
}

// ReportConversation 대화 상대 신고
func (h *ReportHandler) ReportConversation(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || conversationID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid conversation id",
		})
		return
	}

	var req ReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	userId, _ := c.Get("userId")

	report, err := h.reportService.CreateReport(conversationID, userId.(int64), models.ReportReason(req.Reason), req.Detail)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
		case errors.Is(err, service.ErrNotInConversation):
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this conversation"})
		case errors.Is(err, service.ErrInvalidReportReason):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid report reason"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save report"})
		}
		return
	}

	logger.Info("Conversation reported",
		"conversationId", conversationID,
		"reporterId", userId,
		"reason", req.Reason,
	)

	c.JSON(http.StatusCreated, gin.H{"report": report})
}
