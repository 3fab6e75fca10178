package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// MessageType 消息类型
type MessageType string

const (
	// 对局消息
	MsgInit      MessageType = "init"
	MsgWaiting   MessageType = "waiting"
	MsgResult    MessageType = "result"
	MsgGuess     MessageType = "guess"
	MsgTurn      MessageType = "turn"
	MsgGameOver  MessageType = "game_over"
	MsgGameState MessageType = "game_state"
	MsgPause     MessageType = "pause"
	MsgResume    MessageType = "resume"

	// 道具消息
	MsgPowerUp       MessageType = "powerup"
	MsgPowerUpResult MessageType = "powerup_result"

	// 匹配消息
	MsgMatched           MessageType = "matched"
	MsgCancelMatchmaking MessageType = "cancel_matchmaking"
	MsgLeaveGame         MessageType = "leave_game"

	// 系统消息
	MsgConnected    MessageType = "connected"
	MsgDisconnected MessageType = "disconnected"
	MsgError        MessageType = "error"
	MsgInfo         MessageType = "info"
	MsgHeartbeat    MessageType = "heartbeat"
)

// Message 出站消息信封
type Message struct {
	Type MessageType `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Encode 序列化为JSON
func (m *Message) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// InboundMessage 入站消息信封，负载按类型延迟解析
type InboundMessage struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// DecodePayload 按消息类型解析负载，未知类型返回错误
func (m *InboundMessage) DecodePayload() (interface{}, error) {
	switch m.Type {
	case MsgPowerUp:
		var p PowerUpPayload
		if err := json.Unmarshal(m.Data, &p); err != nil {
			return nil, fmt.Errorf("解析powerup负载失败: %w", err)
		}
		return &p, nil
	case MsgHeartbeat:
		var p HeartbeatPayload
		if len(m.Data) > 0 {
			if err := json.Unmarshal(m.Data, &p); err != nil {
				return nil, fmt.Errorf("解析heartbeat负载失败: %w", err)
			}
		}
		return &p, nil
	case MsgPause, MsgResume, MsgLeaveGame, MsgCancelMatchmaking:
		// 无负载的控制消息
		return nil, nil
	default:
		return nil, fmt.Errorf("未知的入站消息类型: %s", m.Type)
	}
}

// ConnectedPayload 连接建立确认
type ConnectedPayload struct {
	DeviceID   string    `json:"device_id"`
	User       *User     `json:"user,omitempty"`
	ServerTime time.Time `json:"server_time"`
}

// DisconnectedPayload 断开连接通知
type DisconnectedPayload struct {
	Reason string `json:"reason"`
}

// WaitingPayload 等待提示
type WaitingPayload struct {
	Message    string     `json:"message,omitempty"`
	WaitingFor PlayerRole `json:"waiting_for,omitempty"`
}

// GuessPayload 猜测结果广播
type GuessPayload struct {
	AttemptResult *GuessAttempt `json:"attempt_result"`
	CurrentTurn   PlayerRole    `json:"current_turn"`
}

// TurnPayload 行动方变更
type TurnPayload struct {
	PlayerID    string     `json:"player_id"`
	CurrentTurn PlayerRole `json:"current_turn"`
}

// ResultPayload 单轮结束
type ResultPayload struct {
	RoundWinner string        `json:"round_winner"`
	Guess       string        `json:"guess"`
	Result      *GuessAttempt `json:"result"`
}

// GameOverPayload 对局结束
type GameOverPayload struct {
	WinnerID string      `json:"winner_id,omitempty"`
	Winner   *PlayerInfo `json:"winner,omitempty"`
	Reason   string      `json:"reason"`
}

// PowerUpPayload 道具使用请求
type PowerUpPayload struct {
	PowerUpType     PowerUpType `json:"powerup_type"`
	RevealedIndices []int       `json:"revealed_indices,omitempty"`
	FishedLetters   []string    `json:"fished_letters,omitempty"`
}

// PowerUpResultPayload 道具使用结果
type PowerUpResultPayload struct {
	PowerUpType PowerUpType    `json:"powerup_type"`
	Result      *PowerUpResult `json:"result"`
}

// MatchedPayload 匹配成功通知
type MatchedPayload struct {
	GameID     string     `json:"game_id"`
	PlayerID   string     `json:"player_id"`
	OpponentID string     `json:"opponent_id"`
	Role       PlayerRole `json:"role"`
}

// PausePayload 暂停/恢复状态广播
type PausePayload struct {
	State       GameState `json:"state"`
	RequestedBy string    `json:"requested_by"`
	// 已同意恢复的玩家
	ResumeVotes []string `json:"resume_votes,omitempty"`
}

// ErrorPayload 错误通知
type ErrorPayload struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}

// InfoPayload 提示消息
type InfoPayload struct {
	Message string `json:"message"`
}

// HeartbeatPayload 心跳
type HeartbeatPayload struct {
	TS float64 `json:"ts"`
}
