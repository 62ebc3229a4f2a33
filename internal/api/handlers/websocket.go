package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/Hidiczent/Behere-Backend/internal/websocket"
)

// WebSocketHandler WebSocket 연결 처리
type WebSocketHandler struct {
	hub      *websocket.Hub
	verifier websocket.IdentityVerifier
}

// NewWebSocketHandler WebSocketHandler 생성
func NewWebSocketHandler(hub *websocket.Hub, verifier websocket.IdentityVerifier) *WebSocketHandler {
	return &WebSocketHandler{
		hub:      hub,
		verifier: verifier,
	}
}

// HandleWebSocket WebSocket 연결 엔드포인트
// 토큰은 쿼리/쿠키로 받아 업그레이드 후 검증한다 (실패는 종료 코드로 통지)
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	websocket.ServeWs(h.hub, h.verifier, c.Writer, c.Request)
}
