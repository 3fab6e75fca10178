package models

import (
	"time"
)

// LetterState 字母判定状态
type LetterState string

const (
	// LetterCorrect 位置和字母都正确
	LetterCorrect LetterState = "correct"
	// LetterMisplaced 字母存在但位置错误
	LetterMisplaced LetterState = "misplaced"
	// LetterAbsent 字母不存在于目标单词
	LetterAbsent LetterState = "absent"
)

// LetterResult 单个字母的判定结果
type LetterResult struct {
	Letter string      `json:"letter"`
	State  LetterState `json:"state"`
}

// GuessResult 一次猜测的完整判定结果
type GuessResult struct {
	Letters []LetterResult      `json:"letters"`
	Stats   map[LetterState]int `json:"stats"`
}

// IsCorrect 是否完全猜中
func (r *GuessResult) IsCorrect() bool {
	return r.Stats[LetterCorrect] == len(r.Letters)
}

// GuessAttempt 玩家提交的一次猜测
type GuessAttempt struct {
	PlayerID  string       `json:"player_id"`
	Guess     string       `json:"guess"`
	Result    *GuessResult `json:"result,omitempty"`
	Timestamp time.Time    `json:"timestamp"`
}

// PowerUpType 道具类型
type PowerUpType string

const (
	// PowerUpRevealLetter 揭示对手单词中的一个字母
	PowerUpRevealLetter PowerUpType = "reveal_letter"
	// PowerUpFishOut 排除一个不存在的字母
	PowerUpFishOut PowerUpType = "fish_out"
	// PowerUpAIMeaning 获取单词释义
	PowerUpAIMeaning PowerUpType = "ai_meaning"
)

// PowerUp 道具及其剩余使用次数
type PowerUp struct {
	Type      PowerUpType `json:"type"`
	Remaining int         `json:"remaining"`
}

// RevealedLetter 被揭示的字母及其位置
type RevealedLetter struct {
	Letter string `json:"letter"`
	Index  int    `json:"index"`
}

// Definition 单词的一条释义
type Definition struct {
	PartOfSpeech string `json:"part_of_speech"`
	Meaning      string `json:"meaning"`
	Example      string `json:"example"`
}

// WordDefinition 词义生成服务的响应
type WordDefinition struct {
	Word        string       `json:"word"`
	Valid       bool         `json:"valid"`
	Definitions []Definition `json:"definitions"`
	Error       string       `json:"error,omitempty"`
}

// PowerUpResult 道具使用结果
type PowerUpResult struct {
	Type           PowerUpType     `json:"type"`
	FishedLetter   string          `json:"fished_letter,omitempty"`
	RevealedLetter *RevealedLetter `json:"revealed_letter,omitempty"`
	AIMeaning      *WordDefinition `json:"ai_meaning,omitempty"`
}
