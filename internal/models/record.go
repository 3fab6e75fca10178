// record.go

package models

import (
	"strings"
	"time"
)

// GameRecord 对局历史记录
type GameRecord struct {
	ID          int64     `json:"id"`
	P1ID        int64     `json:"p1_id"`
	P2ID        int64     `json:"p2_id"`
	WinnerID    int64     `json:"winner_id,omitempty"`
	P1Username  string    `json:"p1_username"`
	P2Username  string    `json:"p2_username"`
	P1DeviceID  string    `json:"p1_device_id"`
	P2DeviceID  string    `json:"p2_device_id"`
	P1Words     []string  `json:"p1_secret_words"`
	P2Words     []string  `json:"p2_secret_words"`
	WordLength  int       `json:"word_length"`
	Rounds      int       `json:"rounds"`
	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at,omitempty"`
}

// LobbyRecord 大厅持久化记录
type LobbyRecord struct {
	ID            int64     `json:"id"`
	Code          string    `json:"code"`
	SessionID     string    `json:"session_id,omitempty"`
	P1DeviceID    string    `json:"p1_device_id,omitempty"`
	P2DeviceID    string    `json:"p2_device_id,omitempty"`
	P1Words       string    `json:"p1_words,omitempty"`
	P2Words       string    `json:"p2_words,omitempty"`
	TurnTimeLimit int       `json:"turn_time_limit"`
	WordLength    int       `json:"word_length"`
	Rounds        int       `json:"rounds"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// WordsList 解析逗号分隔的单词串
func WordsList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(strings.TrimRight(raw, ","), ",")
	words := make([]string, 0, len(parts))
	for _, p := range parts {
		if w := strings.TrimSpace(p); w != "" {
			words = append(words, w)
		}
	}
	return words
}
