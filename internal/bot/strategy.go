// strategy.go

package bot

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

// Strategy 机器人猜词策略
type Strategy interface {
	// MakeGuess 根据历史反馈生成下一个猜测
	MakeGuess(wordLength int, previousAttempts []*models.GuessResult, availableWords []string) (string, error)
}

// RandomStrategy 随机策略，从未用过的同长度单词中均匀选取
type RandomStrategy struct {
	wordList  []string
	usedWords map[string]bool
}

// NewRandomStrategy 创建随机策略
func NewRandomStrategy(wordList []string) *RandomStrategy {
	return &RandomStrategy{
		wordList:  wordList,
		usedWords: make(map[string]bool),
	}
}

// MakeGuess 随机挑选一个候选单词
func (s *RandomStrategy) MakeGuess(wordLength int, previousAttempts []*models.GuessResult, availableWords []string) (string, error) {
	available := availableWords
	if len(available) == 0 {
		for _, w := range s.wordList {
			if len(w) == wordLength && !s.usedWords[w] {
				available = append(available, w)
			}
		}
	}

	// 未用词池耗尽时退回全量同长度词池
	if len(available) == 0 {
		for _, w := range s.wordList {
			if len(w) == wordLength {
				available = append(available, w)
			}
		}
	}

	if len(available) == 0 {
		return "", fmt.Errorf("没有长度为 %d 的候选单词", wordLength)
	}

	guess := available[rand.Intn(len(available))]
	s.usedWords[guess] = true
	return guess, nil
}

// SmartStrategy 根据反馈收敛候选集的策略
// 维护三类约束：位置已确认的字母、全局排除的字母、
// 字母的已知错误位置，每次猜测前把全部历史反馈折叠进约束。
type SmartStrategy struct {
	wordList          []string
	possibleWords     map[string]bool
	eliminatedLetters map[string]bool
	confirmedLetters  map[int]string
	wrongPositions    map[string]map[int]bool
}

// NewSmartStrategy 创建智能策略
func NewSmartStrategy(wordList []string) *SmartStrategy {
	return &SmartStrategy{
		wordList:          wordList,
		possibleWords:     make(map[string]bool),
		eliminatedLetters: make(map[string]bool),
		confirmedLetters:  make(map[int]string),
		wrongPositions:    make(map[string]map[int]bool),
	}
}

// MakeGuess 在满足全部约束的候选词中随机选取
func (s *SmartStrategy) MakeGuess(wordLength int, previousAttempts []*models.GuessResult, availableWords []string) (string, error) {
	if len(s.possibleWords) == 0 {
		for _, w := range s.wordList {
			if len(w) == wordLength {
				s.possibleWords[w] = true
			}
		}
	}

	for _, attempt := range previousAttempts {
		if attempt != nil {
			s.updateKnowledge(attempt)
		}
	}

	valid := s.filterValidWords()

	if len(valid) == 0 {
		for w := range s.possibleWords {
			valid = append(valid, w)
		}
	}
	if len(valid) == 0 {
		for _, w := range s.wordList {
			if len(w) == wordLength {
				valid = append(valid, w)
			}
		}
	}
	if len(valid) == 0 {
		return "", fmt.Errorf("没有长度为 %d 的候选单词", wordLength)
	}

	return valid[rand.Intn(len(valid))], nil
}

// updateKnowledge 将一次反馈折叠进约束状态
func (s *SmartStrategy) updateKnowledge(result *models.GuessResult) {
	for i, lr := range result.Letters {
		letter := strings.ToLower(lr.Letter)

		switch lr.State {
		case models.LetterCorrect:
			s.confirmedLetters[i] = letter
		case models.LetterMisplaced:
			if s.wrongPositions[letter] == nil {
				s.wrongPositions[letter] = make(map[int]bool)
			}
			s.wrongPositions[letter][i] = true
		case models.LetterAbsent:
			// 已在别处确认的字母不能整体排除，否则会误杀重复字母
			if !s.isConfirmed(letter) {
				s.eliminatedLetters[letter] = true
			}
		}
	}
}

// isConfirmed 字母是否已在某个位置被确认
func (s *SmartStrategy) isConfirmed(letter string) bool {
	for _, l := range s.confirmedLetters {
		if l == letter {
			return true
		}
	}
	return false
}

// filterValidWords 过滤出与全部约束一致的候选词
func (s *SmartStrategy) filterValidWords() []string {
	valid := make([]string, 0, len(s.possibleWords))
	for w := range s.possibleWords {
		if s.isWordValid(w) {
			valid = append(valid, w)
		}
	}
	return valid
}

// isWordValid 单词是否满足全部约束
func (s *SmartStrategy) isWordValid(word string) bool {
	for pos, letter := range s.confirmedLetters {
		if pos >= len(word) || string(word[pos]) != letter {
			return false
		}
	}

	for letter := range s.eliminatedLetters {
		if strings.Contains(word, letter) {
			return false
		}
	}

	for letter, positions := range s.wrongPositions {
		if !strings.Contains(word, letter) {
			return false
		}
		for pos := range positions {
			if pos < len(word) && string(word[pos]) == letter {
				return false
			}
		}
	}

	return true
}
