package bot

import (
	"testing"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

var testWords = []string{"gold", "fish", "star", "lamp", "word", "fist"}

func guessResult(letters ...models.LetterResult) *models.GuessResult {
	stats := map[models.LetterState]int{}
	for _, lr := range letters {
		stats[lr.State]++
	}
	return &models.GuessResult{Letters: letters, Stats: stats}
}

func TestRandomStrategyAvoidsRepeats(t *testing.T) {
	s := NewRandomStrategy(testWords)

	seen := make(map[string]bool)
	for i := 0; i < len(testWords); i++ {
		guess, err := s.MakeGuess(4, nil, nil)
		if err != nil {
			t.Fatalf("MakeGuess failed: %v", err)
		}
		if seen[guess] {
			t.Errorf("word %s repeated before pool exhaustion", guess)
		}
		seen[guess] = true
	}

	// 词池耗尽后回退到全量词池而不是报错
	if _, err := s.MakeGuess(4, nil, nil); err != nil {
		t.Errorf("expected fallback after exhaustion, got error: %v", err)
	}
}

func TestRandomStrategyNoWords(t *testing.T) {
	s := NewRandomStrategy(nil)
	if _, err := s.MakeGuess(4, nil, nil); err == nil {
		t.Error("expected error with empty word list")
	}
}

func TestSmartStrategyRespectsEliminatedLetters(t *testing.T) {
	s := NewSmartStrategy(testWords)

	// 反馈：g、o、l、d全部absent
	feedback := guessResult(
		models.LetterResult{Letter: "G", State: models.LetterAbsent},
		models.LetterResult{Letter: "O", State: models.LetterAbsent},
		models.LetterResult{Letter: "L", State: models.LetterAbsent},
		models.LetterResult{Letter: "D", State: models.LetterAbsent},
	)

	for i := 0; i < 10; i++ {
		guess, err := s.MakeGuess(4, []*models.GuessResult{feedback}, nil)
		if err != nil {
			t.Fatalf("MakeGuess failed: %v", err)
		}
		for _, c := range "gold" {
			for _, gc := range guess {
				if gc == c {
					t.Errorf("guess %s contains eliminated letter %c", guess, c)
				}
			}
		}
	}
}

func TestSmartStrategyRespectsConfirmedLetters(t *testing.T) {
	s := NewSmartStrategy(testWords)

	// 反馈：F、I、S位置正确，T不存在 -> 候选只剩fish
	feedback := guessResult(
		models.LetterResult{Letter: "F", State: models.LetterCorrect},
		models.LetterResult{Letter: "I", State: models.LetterCorrect},
		models.LetterResult{Letter: "S", State: models.LetterCorrect},
		models.LetterResult{Letter: "T", State: models.LetterAbsent},
	)

	guess, err := s.MakeGuess(4, []*models.GuessResult{feedback}, nil)
	if err != nil {
		t.Fatalf("MakeGuess failed: %v", err)
	}
	if guess != "fish" {
		t.Errorf("expected fish, got %s", guess)
	}
}

func TestSmartStrategyMisplacedPositions(t *testing.T) {
	s := NewSmartStrategy([]string{"gold", "logd", "dock"})

	// 反馈：G在位置0错位 -> 排除所有0位是G的词
	feedback := guessResult(
		models.LetterResult{Letter: "G", State: models.LetterMisplaced},
		models.LetterResult{Letter: "X", State: models.LetterAbsent},
		models.LetterResult{Letter: "Y", State: models.LetterAbsent},
		models.LetterResult{Letter: "Z", State: models.LetterAbsent},
	)

	for i := 0; i < 10; i++ {
		guess, err := s.MakeGuess(4, []*models.GuessResult{feedback}, nil)
		if err != nil {
			t.Fatalf("MakeGuess failed: %v", err)
		}
		if guess[0] == 'g' {
			t.Errorf("guess %s keeps misplaced letter at the same position", guess)
		}
	}
}

func TestCreateBotDifficulties(t *testing.T) {
	m := NewManager(map[int][]string{4: testWords})

	for _, difficulty := range []string{"easy", "medium", "hard"} {
		b, err := m.CreateBot(difficulty, 4)
		if err != nil {
			t.Fatalf("CreateBot(%s) failed: %v", difficulty, err)
		}
		if !IsBot(b.ID) {
			t.Errorf("bot ID %s should match the bot prefix", b.ID)
		}
		if len(b.SecretWord) != 4 {
			t.Errorf("bot secret word %s has wrong length", b.SecretWord)
		}
		if b.Username == "" {
			t.Error("bot should get a display name")
		}
	}

	if m.BotCount() != 3 {
		t.Errorf("expected 3 bots, got %d", m.BotCount())
	}
}

func TestCreateBotUnknownDifficultyDefaultsToMedium(t *testing.T) {
	m := NewManager(map[int][]string{4: testWords})

	b, err := m.CreateBot("nightmare", 4)
	if err != nil {
		t.Fatalf("CreateBot failed: %v", err)
	}
	if b.Difficulty != "medium" {
		t.Errorf("expected medium fallback, got %s", b.Difficulty)
	}
}

func TestCreateBotNoWordPool(t *testing.T) {
	m := NewManager(map[int][]string{})
	if _, err := m.CreateBot("easy", 4); err == nil {
		t.Error("expected error without a word pool")
	}
}

func TestRemoveBotClosesChannel(t *testing.T) {
	m := NewManager(map[int][]string{4: testWords})
	b, _ := m.CreateBot("easy", 4)

	m.RemoveBot(b.ID)
	if m.GetBot(b.ID) != nil {
		t.Error("bot should be removed")
	}
	if !b.Channel().IsClosed() {
		t.Error("bot channel should be closed")
	}
}

func TestIsBot(t *testing.T) {
	if !IsBot("bot_12345") {
		t.Error("bot_12345 should be a bot")
	}
	if IsBot("device-1") {
		t.Error("device-1 should not be a bot")
	}
	if IsBot("bot_") {
		t.Error("bare prefix should not count as a bot")
	}
}

func TestPlayerPlayProducesGuess(t *testing.T) {
	p := &Player{
		ID:       "bot_99999",
		strategy: NewRandomStrategy(testWords),
	}

	guess := p.Play(4, nil)
	if len(guess) != 4 {
		t.Errorf("expected a 4-letter guess, got %q", guess)
	}

	// 策略无词可出时返回空串而不是报错
	empty := &Player{
		ID:       "bot_99998",
		strategy: NewRandomStrategy(nil),
	}
	if guess := empty.Play(4, nil); guess != "" {
		t.Errorf("expected empty guess without a word pool, got %q", guess)
	}
}
