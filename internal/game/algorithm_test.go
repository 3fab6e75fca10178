package game

import (
	"strings"
	"testing"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

func TestEvaluateGuessAllCorrect(t *testing.T) {
	result, err := EvaluateGuess("word", "word")
	if err != nil {
		t.Fatalf("EvaluateGuess failed: %v", err)
	}
	if !result.IsCorrect() {
		t.Error("expected a fully correct result")
	}
	if result.Stats[models.LetterCorrect] != 4 {
		t.Errorf("expected 4 correct letters, got %d", result.Stats[models.LetterCorrect])
	}
}

func TestEvaluateGuessDuplicateLetters(t *testing.T) {
	// ERASE vs SPEED: 猜测里的两个E不能都算存在
	result, err := EvaluateGuess("speed", "erase")
	if err != nil {
		t.Fatalf("EvaluateGuess failed: %v", err)
	}

	states := make([]models.LetterState, len(result.Letters))
	for i, lr := range result.Letters {
		states[i] = lr.State
	}

	// E R A S E -> misplaced, absent, absent, misplaced, misplaced
	expected := []models.LetterState{
		models.LetterMisplaced,
		models.LetterAbsent,
		models.LetterAbsent,
		models.LetterMisplaced,
		models.LetterMisplaced,
	}
	for i, want := range expected {
		if states[i] != want {
			t.Errorf("position %d: expected %s, got %s", i, want, states[i])
		}
	}
}

func TestEvaluateGuessCorrectConsumesPosition(t *testing.T) {
	// ALLY vs LULL: 第二个L占住位置后，其余L的判定不能重复占用
	result, err := EvaluateGuess("ally", "lull")
	if err != nil {
		t.Fatalf("EvaluateGuess failed: %v", err)
	}

	if result.Letters[1].State != models.LetterAbsent {
		t.Errorf("expected U to be absent, got %s", result.Letters[1].State)
	}
	if result.Letters[2].State != models.LetterCorrect {
		t.Errorf("expected third L to be correct, got %s", result.Letters[2].State)
	}

	misplacedL := 0
	for i, lr := range result.Letters {
		if lr.Letter == "L" && i != 2 && lr.State == models.LetterMisplaced {
			misplacedL++
		}
	}
	// 目标里剩下一个未占用的L，只允许一个错位
	if misplacedL != 1 {
		t.Errorf("expected exactly 1 misplaced L, got %d", misplacedL)
	}
}

func TestEvaluateGuessLengthMismatch(t *testing.T) {
	if _, err := EvaluateGuess("word", "words"); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

func TestEvaluateGuessCaseInsensitive(t *testing.T) {
	result, err := EvaluateGuess("Word", "wOrD")
	if err != nil {
		t.Fatalf("EvaluateGuess failed: %v", err)
	}
	if !result.IsCorrect() {
		t.Error("evaluation should ignore case")
	}
}

func TestRevealLetter(t *testing.T) {
	revealed, err := RevealLetter("word", nil)
	if err != nil {
		t.Fatalf("RevealLetter failed: %v", err)
	}
	if revealed.Index < 0 || revealed.Index >= 4 {
		t.Errorf("revealed index out of range: %d", revealed.Index)
	}
	if revealed.Letter != strings.ToUpper(string("word"[revealed.Index])) {
		t.Errorf("revealed letter %s does not match index %d", revealed.Letter, revealed.Index)
	}
}

func TestRevealLetterExhausted(t *testing.T) {
	if _, err := RevealLetter("word", []int{0, 1, 2, 3}); err == nil {
		t.Error("expected error when all positions are revealed")
	}
}

func TestRevealLetterSkipsRevealed(t *testing.T) {
	revealed, err := RevealLetter("word", []int{0, 1, 2})
	if err != nil {
		t.Fatalf("RevealLetter failed: %v", err)
	}
	if revealed.Index != 3 {
		t.Errorf("expected index 3, got %d", revealed.Index)
	}
	if revealed.Letter != "D" {
		t.Errorf("expected letter D, got %s", revealed.Letter)
	}
}

func TestFishOut(t *testing.T) {
	letter, err := FishOut("word", nil)
	if err != nil {
		t.Fatalf("FishOut failed: %v", err)
	}
	if strings.Contains("WORD", letter) {
		t.Errorf("fished letter %s is in the secret word", letter)
	}
}

func TestFishOutExhausted(t *testing.T) {
	fished := make([]string, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		fished = append(fished, string(c))
	}
	if _, err := FishOut("word", fished); err == nil {
		t.Error("expected error when all letters are excluded")
	}
}
