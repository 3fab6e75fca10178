package models

import (
	"time"
)

// GameState 会话状态
type GameState string

const (
	// GameWaiting 等待双方连接
	GameWaiting GameState = "waiting"
	// GameInProgress 对局进行中
	GameInProgress GameState = "in_progress"
	// GamePaused 已暂停，需双方同意后恢复
	GamePaused GameState = "paused"
	// GameOver 已结束
	GameOver GameState = "game_over"
)

// PlayerRole 玩家角色
type PlayerRole string

const (
	// RolePlayer1 先手位
	RolePlayer1 PlayerRole = "player1"
	// RolePlayer2 后手位
	RolePlayer2 PlayerRole = "player2"
)

// Opposite 对方角色
func (r PlayerRole) Opposite() PlayerRole {
	if r == RolePlayer1 {
		return RolePlayer2
	}
	return RolePlayer1
}

// GameSettings 对局设置
type GameSettings struct {
	Rounds        int    `json:"rounds"`
	MaxAttempts   int    `json:"max_attempts"`
	WordLength    int    `json:"word_length"`
	TurnTimeLimit int    `json:"turn_time_limit"` // 秒
	Language      string `json:"language"`
	AllowPowerUps bool   `json:"allow_powerups"`
	VersusBot     bool   `json:"versus_bot"`
}

// DefaultGameSettings 默认对局设置
func DefaultGameSettings() GameSettings {
	return GameSettings{
		Rounds:        1,
		MaxAttempts:   6,
		WordLength:    4,
		TurnTimeLimit: 120,
		Language:      "en",
		AllowPowerUps: true,
	}
}

// GameOutcome 对局结果，仅在游戏结束时填充
type GameOutcome struct {
	WinnerID    string    `json:"winner_id,omitempty"`
	Reason      string    `json:"reason"`
	CompletedAt time.Time `json:"completed_at"`
}

// PlayerInfo 会话中单个玩家的状态
type PlayerInfo struct {
	PlayerID    string         `json:"player_id"`
	Username    string         `json:"username,omitempty"`
	Role        PlayerRole     `json:"role"`
	SecretWords []string       `json:"secret_words"`
	Attempts    []GuessAttempt `json:"attempts"`
	PowerUps    []PowerUp      `json:"power_ups"`
	Score       int            `json:"score"`
	Connected   bool           `json:"connected"`
}

// GetPowerUp 按类型查找道具
func (p *PlayerInfo) GetPowerUp(t PowerUpType) *PowerUp {
	for i := range p.PowerUps {
		if p.PowerUps[i].Type == t {
			return &p.PowerUps[i]
		}
	}
	return nil
}

// GameSession 一场对局的权威状态
type GameSession struct {
	SessionID          string                 `json:"session_id"`
	CreatedAt          time.Time              `json:"created_at"`
	Players            map[string]*PlayerInfo `json:"players"`
	CurrentTurn        PlayerRole             `json:"current_turn"`
	CurrentRound       int                    `json:"current_round"`
	State              GameState              `json:"game_state"`
	Settings           GameSettings           `json:"settings"`
	TurnTimerExpiresAt *time.Time             `json:"turn_timer_expires_at,omitempty"`
	Outcome            *GameOutcome           `json:"outcome,omitempty"`
	// 暂停后同意恢复的玩家集合，全体同意后清空
	ResumeVotes map[string]bool `json:"resume_votes,omitempty"`
}

// IsLastRound 是否处于最后一轮
func (s *GameSession) IsLastRound() bool {
	return s.CurrentRound == s.Settings.Rounds
}

// NextRound 推进到下一轮，已是最后一轮时返回false
func (s *GameSession) NextRound() bool {
	if s.CurrentRound < s.Settings.Rounds {
		s.CurrentRound++
		return true
	}
	return false
}

// NextTurn 切换行动方并重置回合计时
func (s *GameSession) NextTurn() {
	s.CurrentTurn = s.CurrentTurn.Opposite()
	expires := time.Now().Add(time.Duration(s.Settings.TurnTimeLimit) * time.Second)
	s.TurnTimerExpiresAt = &expires
}

// GetPlayerByRole 按角色查找玩家
func (s *GameSession) GetPlayerByRole(role PlayerRole) *PlayerInfo {
	for _, p := range s.Players {
		if p.Role == role {
			return p
		}
	}
	return nil
}

// GetPlayerByID 按ID查找玩家
func (s *GameSession) GetPlayerByID(playerID string) *PlayerInfo {
	return s.Players[playerID]
}

// GetOpponent 获取对手信息
func (s *GameSession) GetOpponent(playerID string) *PlayerInfo {
	current, ok := s.Players[playerID]
	if !ok {
		return nil
	}
	return s.GetPlayerByRole(current.Role.Opposite())
}

// GetCurrentWord 获取玩家当前轮的秘密单词
func (s *GameSession) GetCurrentWord(playerID string) string {
	player, ok := s.Players[playerID]
	if !ok || len(player.SecretWords) == 0 {
		return ""
	}
	// 每轮使用列表中对应位置的单词，轮数超出时使用最后一个
	idx := s.CurrentRound - 1
	if idx >= len(player.SecretWords) {
		idx = len(player.SecretWords) - 1
	}
	return player.SecretWords[idx]
}

// IsPlayerTurn 是否轮到该玩家行动
func (s *GameSession) IsPlayerTurn(playerID string) bool {
	player, ok := s.Players[playerID]
	if !ok {
		return false
	}
	return player.Role == s.CurrentTurn
}

// GetCurrentPlayer 获取当前行动方
func (s *GameSession) GetCurrentPlayer() *PlayerInfo {
	return s.GetPlayerByRole(s.CurrentTurn)
}

// PlayerIDs 所有玩家ID
func (s *GameSession) PlayerIDs() []string {
	ids := make([]string, 0, len(s.Players))
	for id := range s.Players {
		ids = append(ids, id)
	}
	return ids
}

// BothPlayersConnected 双方是否都在线
func (s *GameSession) BothPlayersConnected() bool {
	for _, p := range s.Players {
		if !p.Connected {
			return false
		}
	}
	return true
}

// TurnExpired 回合计时是否已过期
func (s *GameSession) TurnExpired(now time.Time) bool {
	return s.TurnTimerExpiresAt != nil && now.After(*s.TurnTimerExpiresAt)
}
