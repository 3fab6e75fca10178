// algorithm.go

package game

import (
	"fmt"
	"math/rand"
	"strings"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

// EvaluateGuess 按两遍扫描判定猜测结果
// 第一遍标记位置正确的字母并占用对应的目标位置，
// 第二遍在未占用的位置中查找错位字母，保证重复字母不被多算。
func EvaluateGuess(secretWord, guess string) (*models.GuessResult, error) {
	secret := strings.ToUpper(secretWord)
	guess = strings.ToUpper(guess)

	if len(secret) != len(guess) {
		return nil, fmt.Errorf("猜测长度与目标单词不一致: %d != %d", len(guess), len(secret))
	}

	letters := make([]models.LetterResult, len(guess))
	used := make([]bool, len(secret))

	// 第一遍：标记correct
	for i := 0; i < len(guess); i++ {
		if guess[i] == secret[i] {
			letters[i] = models.LetterResult{
				Letter: string(guess[i]),
				State:  models.LetterCorrect,
			}
			used[i] = true
		}
	}

	// 第二遍：标记misplaced和absent
	for i := 0; i < len(guess); i++ {
		if letters[i].State == models.LetterCorrect {
			continue
		}

		found := false
		for j := 0; j < len(secret); j++ {
			if !used[j] && guess[i] == secret[j] {
				letters[i] = models.LetterResult{
					Letter: string(guess[i]),
					State:  models.LetterMisplaced,
				}
				used[j] = true
				found = true
				break
			}
		}

		if !found {
			letters[i] = models.LetterResult{
				Letter: string(guess[i]),
				State:  models.LetterAbsent,
			}
		}
	}

	// 统计各状态数量
	stats := map[models.LetterState]int{
		models.LetterCorrect:   0,
		models.LetterMisplaced: 0,
		models.LetterAbsent:    0,
	}
	for _, lr := range letters {
		stats[lr.State]++
	}

	return &models.GuessResult{Letters: letters, Stats: stats}, nil
}

// RevealLetter 从未揭示的位置中随机揭示一个字母
func RevealLetter(secretWord string, alreadyRevealed []int) (*models.RevealedLetter, error) {
	secret := strings.ToUpper(secretWord)

	revealed := make(map[int]bool, len(alreadyRevealed))
	for _, idx := range alreadyRevealed {
		revealed[idx] = true
	}

	candidates := make([]int, 0, len(secret))
	for i := 0; i < len(secret); i++ {
		if !revealed[i] {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		return nil, fmt.Errorf("单词的所有位置均已揭示")
	}

	idx := candidates[rand.Intn(len(candidates))]
	return &models.RevealedLetter{
		Letter: string(secret[idx]),
		Index:  idx,
	}, nil
}

// FishOut 随机挑选一个既不在单词中也未被排除过的字母
func FishOut(secretWord string, alreadyFished []string) (string, error) {
	secret := strings.ToUpper(secretWord)

	excluded := make(map[byte]bool, len(secret)+len(alreadyFished))
	for i := 0; i < len(secret); i++ {
		excluded[secret[i]] = true
	}
	for _, l := range alreadyFished {
		upper := strings.ToUpper(l)
		if len(upper) > 0 {
			excluded[upper[0]] = true
		}
	}

	candidates := make([]byte, 0, 26)
	for c := byte('A'); c <= 'Z'; c++ {
		if !excluded[c] {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return "", fmt.Errorf("没有可排除的字母了")
	}

	return string(candidates[rand.Intn(len(candidates))]), nil
}
