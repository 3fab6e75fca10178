// manager.go

package lobby

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

// Lobby 赛前集合点
// 两名互相认识的玩家通过大厅码会合，双方的秘密单词凑齐后
// 触发就绪信号，由调用方创建对局。先加入者为房主。
type Lobby struct {
	Code      string
	CreatedAt time.Time

	mu          sync.Mutex
	players     map[string]ws.Channel
	secretWords map[string][]string
	hostID      string
	// 房主指定的对局设置
	settings *models.GameSettings

	readyOnce sync.Once
	ready     chan struct{}
}

// newLobby 创建大厅
func newLobby(code string) *Lobby {
	return &Lobby{
		Code:        code,
		CreatedAt:   time.Now(),
		players:     make(map[string]ws.Channel),
		secretWords: make(map[string][]string),
		ready:       make(chan struct{}),
	}
}

// AddPlayer 玩家加入大厅
// 第一个加入的玩家成为房主；第二个玩家加入后触发就绪信号。
// 是否成为房主在锁内判定并返回，调用方不要自行推断。
func (l *Lobby) AddPlayer(playerID string, channel ws.Channel, secretWords []string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.players[playerID]; !ok && len(l.players) >= 2 {
		return false, fmt.Errorf("大厅 %s 已满", l.Code)
	}

	becameHost := false
	if len(l.players) == 0 {
		l.hostID = playerID
		becameHost = true
	}

	l.players[playerID] = channel
	if len(secretWords) > 0 {
		l.secretWords[playerID] = secretWords
	}

	if len(l.players) == 2 {
		l.readyOnce.Do(func() { close(l.ready) })
	}
	return becameHost, nil
}

// RemovePlayer 玩家离开大厅
func (l *Lobby) RemovePlayer(playerID string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.players, playerID)
	delete(l.secretWords, playerID)
}

// SetSettings 房主设置对局参数
func (l *Lobby) SetSettings(playerID string, settings models.GameSettings) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if playerID != l.hostID {
		return fmt.Errorf("只有房主可以修改对局设置")
	}
	l.settings = &settings
	return nil
}

// Settings 获取对局设置，房主未设置时返回nil
func (l *Lobby) Settings() *models.GameSettings {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.settings
}

// HostID 房主ID
func (l *Lobby) HostID() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hostID
}

// PlayerIDs 按加入顺序无关的方式返回玩家ID，房主在前
func (l *Lobby) PlayerIDs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.players))
	if l.hostID != "" {
		if _, ok := l.players[l.hostID]; ok {
			ids = append(ids, l.hostID)
		}
	}
	for id := range l.players {
		if id != l.hostID {
			ids = append(ids, id)
		}
	}
	return ids
}

// SecretWords 玩家的秘密单词列表
func (l *Lobby) SecretWords(playerID string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.secretWords[playerID]
}

// WaitReady 等待双方到齐，超时返回错误
func (l *Lobby) WaitReady(timeout time.Duration) error {
	select {
	case <-l.ready:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("大厅 %s 等待超时", l.Code)
	}
}

// IsReady 双方是否已到齐
func (l *Lobby) IsReady() bool {
	select {
	case <-l.ready:
		return true
	default:
		return false
	}
}

// Manager 大厅管理器
type Manager struct {
	mu      sync.Mutex
	lobbies map[string]*Lobby

	shutdown  chan struct{}
	isRunning bool
}

// NewManager 创建大厅管理器
func NewManager() *Manager {
	return &Manager{
		lobbies:  make(map[string]*Lobby),
		shutdown: make(chan struct{}),
	}
}

// Start 启动过期大厅清理协程
func (m *Manager) Start() {
	if m.isRunning {
		return
	}
	m.isRunning = true
	go m.cleanupLoop()
}

// Stop 停止大厅管理器
func (m *Manager) Stop() {
	if !m.isRunning {
		return
	}
	close(m.shutdown)
	m.isRunning = false
}

// CreateLobby 按指定大厅码创建大厅
func (m *Manager) CreateLobby(code string) *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	l := newLobby(code)
	m.lobbies[code] = l
	return l
}

// GetLobby 查找大厅
func (m *Manager) GetLobby(code string) *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lobbies[code]
}

// GetOrCreateLobby 查找大厅，不存在时创建
func (m *Manager) GetOrCreateLobby(code string) *Lobby {
	m.mu.Lock()
	defer m.mu.Unlock()

	if l, ok := m.lobbies[code]; ok {
		return l
	}
	l := newLobby(code)
	m.lobbies[code] = l
	return l
}

// RemoveLobby 移除大厅
func (m *Manager) RemoveLobby(code string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lobbies, code)
}

// GenerateCode 生成未被占用的4位数字大厅码
func (m *Manager) GenerateCode() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for {
		code := fmt.Sprintf("%04d", 1000+rand.Intn(9000))
		if _, ok := m.lobbies[code]; !ok {
			return code
		}
	}
}

// cleanupLoop 周期清理长时间未就绪的大厅
func (m *Manager) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.cleanupStale(10 * time.Minute)
		case <-m.shutdown:
			return
		}
	}
}

// cleanupStale 移除超过maxAge仍未就绪的大厅
func (m *Manager) cleanupStale(maxAge time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for code, l := range m.lobbies {
		if !l.IsReady() && now.Sub(l.CreatedAt) > maxAge {
			delete(m.lobbies, code)
			log.Printf("清理过期大厅: %s", code)
		}
	}
}
