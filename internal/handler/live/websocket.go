package live

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/zhouzirui/cv-master/backend/internal/service/ai"
	"github.com/zhouzirui/cv-master/backend/internal/service/session"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	writeWait  = 10 * time.Second

	inboundQueueSize = 256
)

// Session 连接可以驱动的会话操作
type Session interface {
	Snapshot() session.Snapshot
	Reset() session.Snapshot
	SubmitAnswer(ctx context.Context, text string) error
	SelectTemplate(ctx context.Context, id int) error
	RetryGeneration(ctx context.Context) error
}

// WebSocketHandler 实时推送会话状态的WebSocket处理器
type WebSocketHandler struct {
	session  Session
	hub      *Hub
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 创建WebSocket处理器
func NewWebSocketHandler(sess Session, hub *Hub) *WebSocketHandler {
	return &WebSocketHandler{
		session: sess,
		hub:     hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes 注册WebSocket路由
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws", h.handleWebSocket)
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// AnswerMessage 文字回答
type AnswerMessage struct {
	Text string `json:"text"`
}

// TemplateMessage 模板选择
type TemplateMessage struct {
	ID int `json:"id"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

// handleWebSocket 处理WebSocket连接
func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	c := h.hub.subscribe()
	defer h.hub.unsubscribe(c)

	// 先订阅再取快照，队列中只会留下更新的状态
	if err := writeMessage(conn, "snapshot", h.session.Snapshot()); err != nil {
		log.Printf("[websocket] initial snapshot failed: %v", err)
		return
	}

	log.Printf("[websocket] new connection, clients=%d", h.hub.Count())

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go h.writeLoop(ctx, conn, c)

	// 生成可能持续很久，交给单独的 worker 按到达顺序处理，读循环只负责心跳和收包
	inbound := make(chan *inboundMessage, inboundQueueSize)
	defer close(inbound)
	go h.dispatchLoop(ctx, c, inbound)

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg inboundMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[websocket] read error: %v", err)
			}
			return
		}

		conn.SetReadDeadline(time.Now().Add(pongWait))

		select {
		case inbound <- &msg:
		default:
			c.fail("too many pending messages")
		}
	}
}

// dispatchLoop 逐条处理同一连接的消息
func (h *WebSocketHandler) dispatchLoop(ctx context.Context, c *client, inbound <-chan *inboundMessage) {
	for msg := range inbound {
		h.handleMessage(ctx, c, msg)
	}
}

// handleMessage 根据消息类型调用会话操作
func (h *WebSocketHandler) handleMessage(ctx context.Context, c *client, msg *inboundMessage) {
	var err error

	switch msg.Type {
	case "answer":
		var payload AnswerMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.fail("invalid answer payload")
			return
		}
		err = h.session.SubmitAnswer(ctx, payload.Text)
	case "template":
		var payload TemplateMessage
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			c.fail("invalid template payload")
			return
		}
		err = h.session.SelectTemplate(ctx, payload.ID)
	case "retry":
		err = h.session.RetryGeneration(ctx)
	case "reset":
		h.session.Reset()
	default:
		c.fail("unsupported message type: " + msg.Type)
		return
	}

	if err == nil {
		return
	}

	var genErr *ai.GenerationError
	if errors.As(err, &genErr) {
		c.fail(genErr.Error())
		return
	}
	c.fail(err.Error())
}

// writeLoop 是连接上唯一的写入方
func (h *WebSocketHandler) writeLoop(ctx context.Context, conn *websocket.Conn, c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-c.snapshots:
			if err := writeMessage(conn, "snapshot", snap); err != nil {
				log.Printf("[websocket] write snapshot failed: %v", err)
				return
			}
		case message := <-c.errors:
			if err := writeMessage(conn, "error", map[string]string{"message": message}); err != nil {
				log.Printf("[websocket] write error failed: %v", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func writeMessage(conn *websocket.Conn, msgType string, data interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(outgoingMessage{
		Type:      msgType,
		Data:      data,
		Timestamp: time.Now().Unix(),
	})
}
