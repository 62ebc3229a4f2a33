package websocket

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	jwtutil "github.com/Hidiczent/Behere-Backend/pkg/jwt"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 64 * 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 프로덕션에서는 특정 origin만 허용
		return true
	},
}

// IdentityVerifier WS 핸드셰이크 토큰 검증 경계
type IdentityVerifier interface {
	VerifyUserID(token string) (int64, error)
}

// Client 한 사용자와의 WebSocket 연결
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan *OutboundMessage
	userID int64
	logger *zap.Logger
}

// NewClient 클라이언트 생성
func NewClient(hub *Hub, conn *websocket.Conn, userID int64) *Client {
	logger, _ := zap.NewProduction()
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan *OutboundMessage, 256),
		userID: userID,
		logger: logger,
	}
}

// readPump 클라이언트 요청을 읽어 Hub 이벤트 루프로 전달
func (c *Client) readPump() {
	defer func() {
		c.hub.closed <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket read error",
					zap.Int64("userId", c.userID),
					zap.Error(err))
			}
			break
		}
		c.hub.inbound <- inboundEvent{client: c, data: data}
	}
}

// writePump Hub로부터 메시지를 받아 클라이언트에게 전송 (핑 유지 포함)
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub가 채널을 닫음
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := json.Marshal(message)
			if err != nil {
				c.logger.Error("Failed to marshal message",
					zap.Int64("userId", c.userID),
					zap.Error(err))
				continue
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				c.logger.Error("Failed to write message",
					zap.Int64("userId", c.userID),
					zap.Error(err))
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeWithCode 종료 코드를 보내고 연결 닫기
func (c *Client) closeWithCode(code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = c.conn.Close()
}

func closeConn(conn *websocket.Conn, code int, reason string) {
	msg := websocket.FormatCloseMessage(code, reason)
	_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	_ = conn.Close()
}

// tokenFromRequest 쿼리 ?token= 또는 token 쿠키에서 토큰 추출
func tokenFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}

// ServeWs WebSocket 업그레이드 + 토큰 검증 + 클라이언트 시작
// 인증 실패는 업그레이드 이후 종료 코드로 구분해 알린다
func ServeWs(hub *Hub, verifier IdentityVerifier, w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger, _ := zap.NewProduction()
		logger.Error("Failed to upgrade WebSocket connection", zap.Error(err))
		return
	}

	token := tokenFromRequest(r)
	if token == "" {
		closeConn(conn, CloseNoToken, "no token")
		return
	}

	uid, err := verifier.VerifyUserID(token)
	if err != nil {
		code := CloseBadToken
		if errors.Is(err, jwtutil.ErrBadUserID) {
			code = CloseBadUID
		}
		closeConn(conn, code, "bad token")
		return
	}

	client := NewClient(hub, conn, uid)
	hub.register <- client

	go client.writePump()
	go client.readPump()
}
