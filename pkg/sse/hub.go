package sse

import "sync"

// Hub 按用户（topic）管理 SSE 订阅者，job 完成时把槽位事件推给任务所有者。
// 订阅通道由 handler 创建并负责关闭，Hub 只往里发消息。
type Hub struct {
	mu     sync.Mutex
	topics map[string]map[chan []byte]bool
}

var defaultHub *Hub

func NewHub() *Hub {
	return &Hub{topics: make(map[string]map[chan []byte]bool)}
}

// SetDefaultHub 设置包级默认 hub
func SetDefaultHub(h *Hub) {
	defaultHub = h
}

// GetHub 返回默认 hub（未设置时为 nil）
func GetHub() *Hub {
	return defaultHub
}

// PublishTopic 将消息发布到指定 topic 的所有订阅者，订阅者不读则丢弃
func (h *Hub) PublishTopic(topic string, msg []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.topics[topic] {
		select {
		case ch <- msg:
		default:
			// drop if client not reading
		}
	}
}

// Subscribe 将指定通道注册为 topic 的订阅者，通道应有缓冲（例如 16）
func (h *Hub) Subscribe(ch chan []byte, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[chan []byte]bool)
		h.topics[topic] = subs
	}
	subs[ch] = true
}

// Unsubscribe 取消某个通道对 topic 的订阅
func (h *Hub) Unsubscribe(ch chan []byte, topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.topics[topic]; ok {
		delete(subs, ch)
		if len(subs) == 0 {
			delete(h.topics, topic)
		}
	}
}
