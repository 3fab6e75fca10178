// manager.go

package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

// Redis键名
const (
	// ActiveConnectionsKey 在线设备集合
	ActiveConnectionsKey = "ws:active_connections"
	// UserStatusKeyPrefix 设备在线状态键前缀
	UserStatusKeyPrefix = "ws:user_status:"

	// 在线状态有效期
	presenceTTL = time.Hour

	// 心跳超过该时长标记为空闲，超过断开阈值则直接断开
	idleThreshold       = time.Minute
	disconnectThreshold = 2 * time.Minute

	// 机器人标识前缀，机器人永远不接收网络消息
	botIDPrefix = "bot_"
)

// ConnectionStatus 连接状态
type ConnectionStatus string

const (
	// StatusConnected 已连接
	StatusConnected ConnectionStatus = "connected"
	// StatusDisconnected 已断开
	StatusDisconnected ConnectionStatus = "disconnected"
	// StatusIdle 空闲
	StatusIdle ConnectionStatus = "idle"
)

// ConnectionInfo 单个设备的连接记录
type ConnectionInfo struct {
	DeviceID      string
	Channel       Channel
	User          *models.User
	Status        ConnectionStatus
	ConnectedAt   time.Time
	LastHeartbeat time.Time
}

// Manager 连接注册表
// 维护设备到通道的映射，负责心跳、在线状态登记和离线消息重放。
type Manager struct {
	connections map[string]*ConnectionInfo
	mu          sync.RWMutex

	cache  *MessageCache
	client *redis.Client
	ctx    context.Context

	// 被过滤的设备，发送时直接视为成功
	excluded   map[string]bool
	excludedMu sync.RWMutex

	shutdown  chan struct{}
	isRunning bool
}

// NewManager 创建连接注册表
func NewManager(client *redis.Client, cacheTTL time.Duration) *Manager {
	return &Manager{
		connections: make(map[string]*ConnectionInfo),
		cache:       NewMessageCache(cacheTTL),
		client:      client,
		ctx:         context.Background(),
		excluded:    make(map[string]bool),
		shutdown:    make(chan struct{}),
	}
}

// Start 启动后台维护协程
func (m *Manager) Start() error {
	if m.isRunning {
		return fmt.Errorf("连接管理器已经在运行")
	}
	m.isRunning = true

	go m.heartbeatMonitor()
	go m.cleanupLoop()

	// 清理上次运行遗留的在线状态
	m.cleanupRedisData()

	log.Println("连接管理器已启动")
	return nil
}

// Stop 停止连接管理器并断开所有连接
func (m *Manager) Stop() {
	if !m.isRunning {
		return
	}
	close(m.shutdown)
	m.isRunning = false

	m.mu.RLock()
	deviceIDs := make([]string, 0, len(m.connections))
	for id := range m.connections {
		deviceIDs = append(deviceIDs, id)
	}
	m.mu.RUnlock()

	for _, id := range deviceIDs {
		m.Disconnect(id, "Server shutdown")
	}

	m.cleanupRedisData()
	log.Println("连接管理器已停止")
}

// Connect 接收一个新连接
// 同一设备的旧连接会先被强制关闭；连接建立后发送欢迎消息，
// 然后按FIFO顺序重放离线期间缓存的消息。
func (m *Manager) Connect(channel Channel, deviceID string, user *models.User) error {
	if channel == nil {
		return fmt.Errorf("通道不能为空")
	}

	// 同设备旧连接先强制关闭
	m.mu.Lock()
	if old, ok := m.connections[deviceID]; ok {
		old.Channel.Close()
		delete(m.connections, deviceID)
	}

	now := time.Now()
	info := &ConnectionInfo{
		DeviceID:      deviceID,
		Channel:       channel,
		User:          user,
		Status:        StatusConnected,
		ConnectedAt:   now,
		LastHeartbeat: now,
	}
	m.connections[deviceID] = info
	m.mu.Unlock()

	m.updateConnectionInRedis(deviceID, info)

	// 欢迎消息
	welcome := &models.Message{
		Type: models.MsgConnected,
		Data: &models.ConnectedPayload{
			DeviceID:   deviceID,
			User:       user,
			ServerTime: now,
		},
	}
	if err := m.Send(deviceID, welcome); err != nil {
		log.Printf("发送欢迎消息失败 %s: %v", deviceID, err)
	}

	// 重放离线消息
	m.replayCached(deviceID, channel)

	log.Printf("设备 %s 已连接", deviceID)
	return nil
}

// RefreshConnection 替换设备的通道句柄，不走完整的连接握手
func (m *Manager) RefreshConnection(channel Channel, deviceID string, user *models.User) error {
	if channel == nil || channel.IsClosed() {
		return fmt.Errorf("无法刷新连接: 通道不可用")
	}

	m.mu.Lock()
	if old, ok := m.connections[deviceID]; ok {
		old.Channel.Close()
	}

	now := time.Now()
	info := &ConnectionInfo{
		DeviceID:      deviceID,
		Channel:       channel,
		User:          user,
		Status:        StatusConnected,
		ConnectedAt:   now,
		LastHeartbeat: now,
	}
	m.connections[deviceID] = info
	m.mu.Unlock()

	m.updateConnectionInRedis(deviceID, info)
	m.replayCached(deviceID, channel)

	log.Printf("设备 %s 的连接已刷新", deviceID)
	return nil
}

// Disconnect 断开设备连接
// 尽力通知客户端断开原因，对已关闭的通道不报错。
func (m *Manager) Disconnect(deviceID string, reason string) {
	m.mu.Lock()
	info, ok := m.connections[deviceID]
	if !ok {
		m.mu.Unlock()
		return
	}
	delete(m.connections, deviceID)
	m.mu.Unlock()

	if !info.Channel.IsClosed() {
		notice := &models.Message{
			Type: models.MsgDisconnected,
			Data: &models.DisconnectedPayload{Reason: reason},
		}
		if data, err := notice.Encode(); err == nil {
			info.Channel.Send(data)
		}
		info.Channel.Close()
	}

	m.removeConnectionFromRedis(deviceID)
	log.Printf("设备 %s 已断开连接: %s", deviceID, reason)
}

// DisconnectAll 断开一批设备
func (m *Manager) DisconnectAll(deviceIDs []string, reason string) {
	for _, id := range deviceIDs {
		m.Disconnect(id, reason)
	}
}

// Exclude 将设备加入过滤名单
func (m *Manager) Exclude(deviceID string) {
	m.excludedMu.Lock()
	defer m.excludedMu.Unlock()
	m.excluded[deviceID] = true
}

// canSend 机器人与被过滤设备不接收网络消息
func (m *Manager) canSend(deviceID string) bool {
	if strings.HasPrefix(deviceID, botIDPrefix) {
		return false
	}
	m.excludedMu.RLock()
	defer m.excludedMu.RUnlock()
	return !m.excluded[deviceID]
}

// Send 向指定设备发送消息
// 设备不在线或发送失败时消息进入离线缓存，等待重连后重放，
// 因此调用方不需要重试逻辑。
func (m *Manager) Send(deviceID string, msg *models.Message) error {
	if !m.canSend(deviceID) {
		return nil
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("序列化消息失败: %w", err)
	}

	m.mu.RLock()
	info, ok := m.connections[deviceID]
	m.mu.RUnlock()

	if !ok {
		m.cache.Add(deviceID, data)
		return nil
	}

	if info.Channel.IsClosed() {
		m.cache.Add(deviceID, data)
		m.cleanupConnection(deviceID, "通道已关闭")
		return nil
	}

	if err := info.Channel.Send(data); err != nil {
		log.Printf("向设备 %s 发送消息失败: %v", deviceID, err)
		m.cache.Add(deviceID, data)
		return nil
	}

	m.UpdateHeartbeat(deviceID)
	return nil
}

// Broadcast 向多个设备广播消息，返回成功送达的设备列表
func (m *Manager) Broadcast(deviceIDs []string, msg *models.Message) []string {
	successful := make([]string, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		if err := m.Send(id, msg); err == nil {
			successful = append(successful, id)
		}
	}
	return successful
}

// IsConnected 设备是否在线
func (m *Manager) IsConnected(deviceID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.connections[deviceID]
	return ok
}

// GetConnectionInfo 获取设备的连接记录
func (m *Manager) GetConnectionInfo(deviceID string) *ConnectionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.connections[deviceID]
}

// ConnectedDevices 所有在线设备ID
func (m *Manager) ConnectedDevices() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		ids = append(ids, id)
	}
	return ids
}

// ConnectionCount 在线设备数
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.connections)
}

// UpdateHeartbeat 刷新设备心跳时间，空闲状态随之恢复
func (m *Manager) UpdateHeartbeat(deviceID string) {
	m.mu.Lock()
	if info, ok := m.connections[deviceID]; ok {
		info.LastHeartbeat = time.Now()
		info.Status = StatusConnected
	}
	m.mu.Unlock()
}

// CachedMessageCount 某设备当前缓存的离线消息数
func (m *Manager) CachedMessageCount(deviceID string) int {
	return m.cache.Len(deviceID)
}

// replayCached 按顺序重放离线缓存的消息
func (m *Manager) replayCached(deviceID string, channel Channel) {
	messages := m.cache.Drain(deviceID)
	for i, data := range messages {
		if err := channel.Send(data); err != nil {
			// 通道中途失效，剩余消息放回缓存
			for _, rest := range messages[i:] {
				m.cache.Add(deviceID, rest)
			}
			log.Printf("重放离线消息失败 %s: %v", deviceID, err)
			return
		}
	}
	if len(messages) > 0 {
		log.Printf("已向设备 %s 重放 %d 条离线消息", deviceID, len(messages))
	}
}

// cleanupConnection 移除失效连接记录
func (m *Manager) cleanupConnection(deviceID string, reason string) {
	m.mu.Lock()
	info, ok := m.connections[deviceID]
	if ok {
		delete(m.connections, deviceID)
	}
	m.mu.Unlock()

	if !ok {
		return
	}

	info.Channel.Close()
	m.removeConnectionFromRedis(deviceID)
	log.Printf("连接已清理 %s: %s", deviceID, reason)
}

// heartbeatMonitor 监控心跳并断开失活连接
func (m *Manager) heartbeatMonitor() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			for _, id := range m.sweepHeartbeats(time.Now()) {
				m.Disconnect(id, "Heartbeat timeout")
			}
		case <-m.shutdown:
			return
		}
	}
}

// sweepHeartbeats 按心跳时间分级处理连接
// 超过空闲阈值先降级为idle，超过断开阈值的返回给调用方断开。
func (m *Manager) sweepHeartbeats(now time.Time) []string {
	stale := make([]string, 0)

	m.mu.Lock()
	for id, info := range m.connections {
		silence := now.Sub(info.LastHeartbeat)
		switch {
		case silence > disconnectThreshold:
			stale = append(stale, id)
		case silence > idleThreshold:
			info.Status = StatusIdle
		}
	}
	m.mu.Unlock()

	return stale
}

// cleanupLoop 周期清理过期缓存与Redis中的残留状态
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cache.Sweep()
			m.syncRedisPresence()
		case <-m.shutdown:
			return
		}
	}
}

// syncRedisPresence 将Redis在线集合与本地连接表对齐
func (m *Manager) syncRedisPresence() {
	if m.client == nil {
		return
	}

	members, err := m.client.SMembers(m.ctx, ActiveConnectionsKey).Result()
	if err != nil {
		log.Printf("读取在线集合失败: %v", err)
		return
	}

	for _, deviceID := range members {
		if !m.IsConnected(deviceID) {
			m.removeConnectionFromRedis(deviceID)
		}
	}
}

// updateConnectionInRedis 更新Redis中的在线状态
func (m *Manager) updateConnectionInRedis(deviceID string, info *ConnectionInfo) {
	if m.client == nil {
		return
	}

	var userID int64
	if info.User != nil {
		userID = info.User.ID
	}

	data, err := json.Marshal(map[string]interface{}{
		"device_id":      deviceID,
		"user_id":        userID,
		"status":         info.Status,
		"connected_at":   info.ConnectedAt,
		"last_heartbeat": info.LastHeartbeat,
	})
	if err != nil {
		return
	}

	if err := m.client.Set(m.ctx, UserStatusKeyPrefix+deviceID, data, presenceTTL).Err(); err != nil {
		log.Printf("更新设备 %s 在线状态失败: %v", deviceID, err)
	}
	if err := m.client.SAdd(m.ctx, ActiveConnectionsKey, deviceID).Err(); err != nil {
		log.Printf("更新在线集合失败: %v", err)
	}
}

// removeConnectionFromRedis 移除Redis中的在线状态
func (m *Manager) removeConnectionFromRedis(deviceID string) {
	if m.client == nil {
		return
	}

	if err := m.client.Del(m.ctx, UserStatusKeyPrefix+deviceID).Err(); err != nil {
		log.Printf("删除设备 %s 在线状态失败: %v", deviceID, err)
	}
	if err := m.client.SRem(m.ctx, ActiveConnectionsKey, deviceID).Err(); err != nil {
		log.Printf("更新在线集合失败: %v", err)
	}
}

// cleanupRedisData 清空全部在线状态数据
func (m *Manager) cleanupRedisData() {
	if m.client == nil {
		return
	}

	keys, err := m.client.Keys(m.ctx, UserStatusKeyPrefix+"*").Result()
	if err != nil {
		log.Printf("查询在线状态键失败: %v", err)
		return
	}

	keys = append(keys, ActiveConnectionsKey)
	if err := m.client.Del(m.ctx, keys...).Err(); err != nil {
		log.Printf("清理在线状态数据失败: %v", err)
		return
	}
	log.Printf("已清理 %d 个在线状态键", len(keys))
}
