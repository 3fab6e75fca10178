// manager.go

package bot

import (
	"fmt"
	"math/rand"
	"sync"

	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

// BotIDPrefix 机器人ID前缀，出站消息按此前缀过滤
const BotIDPrefix = "bot_"

// 机器人显示名池
var botNames = []string{
	"WordWiz", "LetterLord", "GuessGuru", "VocabVictor",
	"WordSmith", "LetterLegend", "PuzzlePro", "WordWarden",
}

// 各难度的出手延迟区间（秒）
var difficultyDelays = map[string][2]float64{
	"easy":   {3, 7},
	"medium": {2, 5},
	"hard":   {1, 3},
}

// Manager 机器人管理器
// 负责创建机器人对手、分配秘密单词与策略，并跟踪在场机器人。
type Manager struct {
	mu    sync.Mutex
	bots  map[string]*Player
	words map[int][]string
}

// NewManager 创建机器人管理器
// words 按单词长度分组，作为机器人的秘密单词池和猜词词库。
func NewManager(words map[int][]string) *Manager {
	return &Manager{
		bots:  make(map[string]*Player),
		words: words,
	}
}

// CreateBot 创建指定难度的机器人
// easy使用随机策略，medium和hard使用收敛策略，难度只影响出手延迟。
func (m *Manager) CreateBot(difficulty string, wordLength int) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	pool := m.words[wordLength]
	if len(pool) == 0 {
		return nil, fmt.Errorf("没有长度为 %d 的机器人词库", wordLength)
	}

	delays, ok := difficultyDelays[difficulty]
	if !ok {
		difficulty = "medium"
		delays = difficultyDelays[difficulty]
	}

	var strategy Strategy
	if difficulty == "easy" {
		strategy = NewRandomStrategy(pool)
	} else {
		strategy = NewSmartStrategy(pool)
	}

	bot := &Player{
		ID:         fmt.Sprintf("%s%05d", BotIDPrefix, rand.Intn(100000)),
		Username:   botNames[rand.Intn(len(botNames))],
		SecretWord: pool[rand.Intn(len(pool))],
		Difficulty: difficulty,
		strategy:   strategy,
		minDelay:   delays[0],
		maxDelay:   delays[1],
		channel:    ws.NewVirtualChannel(),
	}

	m.bots[bot.ID] = bot
	return bot, nil
}

// GetBot 按ID查找机器人
func (m *Manager) GetBot(botID string) *Player {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.bots[botID]
}

// RemoveBot 移除机器人并关闭其虚拟通道
func (m *Manager) RemoveBot(botID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if bot, ok := m.bots[botID]; ok {
		bot.channel.Close()
		delete(m.bots, botID)
	}
}

// BotCount 在场机器人数量
func (m *Manager) BotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bots)
}

// IsBot 按ID前缀判断是否为机器人
func IsBot(playerID string) bool {
	return len(playerID) > len(BotIDPrefix) && playerID[:len(BotIDPrefix)] == BotIDPrefix
}
