// cache.go

package ws

import (
	"sync"
	"time"
)

// cachedMessage 为离线客户端暂存的出站消息
type cachedMessage struct {
	data     []byte
	cachedAt time.Time
}

// MessageCache 按设备缓存未能送达的出站消息
// 重连时按入队顺序重放，超过有效期的消息被周期清理。
type MessageCache struct {
	mu      sync.Mutex
	entries map[string][]cachedMessage
	ttl     time.Duration
}

// NewMessageCache 创建消息缓存
func NewMessageCache(ttl time.Duration) *MessageCache {
	return &MessageCache{
		entries: make(map[string][]cachedMessage),
		ttl:     ttl,
	}
}

// Add 追加一条待重放消息
func (mc *MessageCache) Add(deviceID string, data []byte) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.entries[deviceID] = append(mc.entries[deviceID], cachedMessage{
		data:     data,
		cachedAt: time.Now(),
	})
}

// Drain 取出并清空某设备的全部缓存消息，保持FIFO顺序
func (mc *MessageCache) Drain(deviceID string) [][]byte {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	cached, ok := mc.entries[deviceID]
	if !ok {
		return nil
	}
	delete(mc.entries, deviceID)

	now := time.Now()
	messages := make([][]byte, 0, len(cached))
	for _, m := range cached {
		if now.Sub(m.cachedAt) <= mc.ttl {
			messages = append(messages, m.data)
		}
	}
	return messages
}

// Len 某设备当前缓存的消息数
func (mc *MessageCache) Len(deviceID string) int {
	mc.mu.Lock()
	defer mc.mu.Unlock()
	return len(mc.entries[deviceID])
}

// Sweep 清理过期消息
func (mc *MessageCache) Sweep() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	now := time.Now()
	for deviceID, cached := range mc.entries {
		kept := cached[:0]
		for _, m := range cached {
			if now.Sub(m.cachedAt) <= mc.ttl {
				kept = append(kept, m)
			}
		}
		if len(kept) == 0 {
			delete(mc.entries, deviceID)
		} else {
			mc.entries[deviceID] = kept
		}
	}
}
