package live

import (
	"sync"

	"github.com/zhouzirui/cv-master/backend/internal/service/session"
)

// client 单个连接的待发送队列
type client struct {
	snapshots chan session.Snapshot
	errors    chan string
}

func newClient() *client {
	return &client{
		snapshots: make(chan session.Snapshot, 1),
		errors:    make(chan string, 8),
	}
}

// offer 只保留最新的快照，旧快照被覆盖
func (c *client) offer(snap session.Snapshot) {
	select {
	case c.snapshots <- snap:
		return
	default:
	}

	select {
	case <-c.snapshots:
	default:
	}

	select {
	case c.snapshots <- snap:
	default:
	}
}

func (c *client) fail(message string) {
	select {
	case c.errors <- message:
	default:
	}
}

// Hub 将会话状态变化广播给所有连接
type Hub struct {
	mu      sync.Mutex
	clients map[*client]struct{}
}

// NewHub 创建广播中心
func NewHub() *Hub {
	return &Hub{clients: make(map[*client]struct{})}
}

// Broadcast 推送快照，不会阻塞调用方
func (h *Hub) Broadcast(snap session.Snapshot) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.offer(snap)
	}
}

// Count 返回当前连接数
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) subscribe() *client {
	c := newClient()
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	return c
}

func (h *Hub) unsubscribe(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}
