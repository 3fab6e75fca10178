package game

import (
	"sync"
	"testing"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

func newTestManager() *Manager {
	return NewManager(ws.NewManager(nil, time.Minute), nil)
}

func testSettings(rounds int) models.GameSettings {
	settings := models.DefaultGameSettings()
	settings.Rounds = rounds
	settings.WordLength = 4
	return settings
}

func createTestGame(t *testing.T, m *Manager, rounds int, p1Words, p2Words []string) *models.GameSession {
	t.Helper()

	session, err := m.CreateGame("dev1", "dev2", p1Words, p2Words,
		map[string]string{"dev1": "alice", "dev2": "bob"}, testSettings(rounds))
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}

	// 固定先手，避免随机性影响断言
	session.CurrentTurn = models.RolePlayer1
	if err := m.StartGame(session.SessionID); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}
	return session
}

func TestCreateGameValidation(t *testing.T) {
	m := newTestManager()

	if _, err := m.CreateGame("dev1", "dev1", []string{"gold"}, []string{"fish"},
		nil, testSettings(1)); err == nil {
		t.Error("expected error for duplicate player IDs")
	}

	if _, err := m.CreateGame("dev1", "dev2", []string{"golden"}, []string{"fish"},
		nil, testSettings(1)); err == nil {
		t.Error("expected error for wrong word length")
	}

	if _, err := m.CreateGame("dev1", "dev2", nil, []string{"fish"},
		nil, testSettings(1)); err == nil {
		t.Error("expected error for missing words")
	}
}

func TestCreateGameDoubleBooking(t *testing.T) {
	m := newTestManager()
	createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	if _, err := m.CreateGame("dev1", "dev3", []string{"gold"}, []string{"fish"},
		nil, testSettings(1)); err == nil {
		t.Error("expected error when player is already in a game")
	}
}

func TestCreateGameBotGoesSecond(t *testing.T) {
	m := newTestManager()
	for i := 0; i < 5; i++ {
		session, err := m.CreateGame("dev1", "bot_00001", []string{"gold"}, []string{"fish"},
			nil, testSettings(1))
		if err != nil {
			t.Fatalf("CreateGame failed: %v", err)
		}
		if session.CurrentTurn != models.RolePlayer1 {
			t.Error("human should always move first against a bot")
		}
		if !session.Settings.VersusBot {
			t.Error("VersusBot should be set")
		}
		m.EndGame(session.SessionID, "", "test")
	}
}

func TestPlayTurnAlternation(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	// dev1猜错，轮到dev2
	if err := m.Play("dev1", "word"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if session.CurrentTurn != models.RolePlayer2 {
		t.Errorf("expected turn to pass to player2, got %s", session.CurrentTurn)
	}
	if len(session.GetPlayerByID("dev1").Attempts) != 1 {
		t.Error("attempt should be recorded")
	}

	// dev2猜错，轮回dev1
	if err := m.Play("dev2", "word"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if session.CurrentTurn != models.RolePlayer1 {
		t.Errorf("expected turn to return to player1, got %s", session.CurrentTurn)
	}
}

func TestPlayOutOfTurnIsIgnored(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	if err := m.Play("dev2", "gold"); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if len(session.GetPlayerByID("dev2").Attempts) != 0 {
		t.Error("out-of-turn guess must not be recorded")
	}
	if session.CurrentTurn != models.RolePlayer1 {
		t.Error("turn must not change on out-of-turn guess")
	}
}

func TestPlayWinningGuessEndsGame(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	// dev1猜中dev2的单词
	if err := m.Play("dev1", "fish"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if session.State != models.GameOver {
		t.Fatalf("expected game_over, got %s", session.State)
	}
	if session.Outcome == nil || session.Outcome.WinnerID != "dev1" {
		t.Error("dev1 should be the winner")
	}
	if session.Outcome.Reason != "win" {
		t.Errorf("expected reason win, got %s", session.Outcome.Reason)
	}

	// 结束后会话被移除
	if m.GetGameSession(session.SessionID) != nil {
		t.Error("finished session should be purged")
	}
	if m.GetPlayerGameSession("dev1") != nil {
		t.Error("player index should be purged")
	}
}

func TestPlayDrawOnFinalRound(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 2,
		[]string{"gold", "lamp"}, []string{"fish", "star"})

	// 第一轮dev1猜中，得分1:0，进入第二轮，轮到dev2
	if err := m.Play("dev1", "fish"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}
	if session.CurrentRound != 2 {
		t.Fatalf("expected round 2, got %d", session.CurrentRound)
	}
	if session.CurrentTurn != models.RolePlayer2 {
		t.Fatalf("round winner should lose the turn")
	}

	// 第二轮dev2猜中dev1的第二个单词，1:1平
	if err := m.Play("dev2", "lamp"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	if session.State != models.GameOver {
		t.Fatalf("expected game_over, got %s", session.State)
	}
	if session.Outcome.WinnerID != "" {
		t.Errorf("expected draw, got winner %s", session.Outcome.WinnerID)
	}
	if session.Outcome.Reason != "draw" {
		t.Errorf("expected reason draw, got %s", session.Outcome.Reason)
	}
}

func TestEndGameIdempotent(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	if !m.EndGame(session.SessionID, "dev1", "test") {
		t.Error("first EndGame should return true")
	}
	if m.EndGame(session.SessionID, "dev2", "test") {
		t.Error("second EndGame should return false")
	}
	if session.Outcome.WinnerID != "dev1" {
		t.Error("outcome must not be overwritten")
	}
}

func TestPauseAndResumeConsensus(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	if err := m.RequestPause("dev1"); err != nil {
		t.Fatalf("RequestPause failed: %v", err)
	}
	if session.State != models.GamePaused {
		t.Fatalf("expected paused, got %s", session.State)
	}
	if session.TurnTimerExpiresAt != nil {
		t.Error("pause should freeze the turn timer")
	}

	// 暂停期间不能猜词
	if err := m.Play("dev1", "fish"); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}
	if len(session.GetPlayerByID("dev1").Attempts) != 0 {
		t.Error("guesses must be ignored while paused")
	}

	// 单方同意不恢复
	resumed, err := m.RequestResume("dev1")
	if err != nil {
		t.Fatalf("RequestResume failed: %v", err)
	}
	if resumed {
		t.Error("one vote must not resume the game")
	}
	if session.State != models.GamePaused {
		t.Error("game should stay paused")
	}

	// 双方同意后恢复
	resumed, err = m.RequestResume("dev2")
	if err != nil {
		t.Fatalf("RequestResume failed: %v", err)
	}
	if !resumed {
		t.Error("unanimous votes should resume the game")
	}
	if session.State != models.GameInProgress {
		t.Errorf("expected in_progress, got %s", session.State)
	}
	if len(session.ResumeVotes) != 0 {
		t.Error("votes should be cleared after resume")
	}
	if session.TurnTimerExpiresAt == nil {
		t.Error("turn timer should be rearmed after resume")
	}
}

func TestResumeWithBotAutoVotes(t *testing.T) {
	m := newTestManager()
	session, err := m.CreateGame("dev1", "bot_00002", []string{"gold"}, []string{"fish"},
		nil, testSettings(1))
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if err := m.StartGame(session.SessionID); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	if err := m.RequestPause("dev1"); err != nil {
		t.Fatalf("RequestPause failed: %v", err)
	}

	resumed, err := m.RequestResume("dev1")
	if err != nil {
		t.Fatalf("RequestResume failed: %v", err)
	}
	if !resumed {
		t.Error("bot should auto-vote, single human vote must resume")
	}
}

func TestUsePowerUpDecrements(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	payload := &models.PowerUpPayload{PowerUpType: models.PowerUpRevealLetter}
	if err := m.UsePowerUp("dev1", payload); err != nil {
		t.Fatalf("UsePowerUp failed: %v", err)
	}

	powerUp := session.GetPlayerByID("dev1").GetPowerUp(models.PowerUpRevealLetter)
	if powerUp.Remaining != 0 {
		t.Errorf("expected 0 remaining, got %d", powerUp.Remaining)
	}

	// 次数耗尽后再次使用被拒绝，次数不会变成负数
	if err := m.UsePowerUp("dev1", payload); err != nil {
		t.Fatalf("UsePowerUp returned error: %v", err)
	}
	if powerUp.Remaining != 0 {
		t.Errorf("remaining must never go negative, got %d", powerUp.Remaining)
	}
}

func TestUsePowerUpNotYourTurn(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	payload := &models.PowerUpPayload{PowerUpType: models.PowerUpFishOut}
	if err := m.UsePowerUp("dev2", payload); err != nil {
		t.Fatalf("UsePowerUp returned error: %v", err)
	}

	powerUp := session.GetPlayerByID("dev2").GetPowerUp(models.PowerUpFishOut)
	if powerUp.Remaining != 1 {
		t.Error("power-up must not be consumed out of turn")
	}
}

func TestTurnTimeoutForfeits(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	expired := time.Now().Add(-time.Second)
	session.TurnTimerExpiresAt = &expired

	m.sweepExpired()

	if session.State != models.GameOver {
		t.Fatalf("expected game_over, got %s", session.State)
	}
	if session.Outcome.WinnerID != "dev2" {
		t.Errorf("opponent should win on timeout, got %s", session.Outcome.WinnerID)
	}
	if session.Outcome.Reason != "turn_timeout" {
		t.Errorf("expected reason turn_timeout, got %s", session.Outcome.Reason)
	}
}

func TestSessionMaxAgeEnforced(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	session.CreatedAt = time.Now().Add(-3 * time.Hour)
	m.sweepExpired()

	if session.State != models.GameOver {
		t.Fatalf("expected game_over, got %s", session.State)
	}
	if session.Outcome.Reason != "session_expired" {
		t.Errorf("expected reason session_expired, got %s", session.Outcome.Reason)
	}
}

func TestLeaveGameForfeits(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	if !m.LeaveGame("dev1") {
		t.Fatal("LeaveGame should succeed")
	}
	if session.Outcome.WinnerID != "dev2" {
		t.Errorf("opponent should win when a player leaves, got %s", session.Outcome.WinnerID)
	}
	if session.Outcome.Reason != "opponent_left" {
		t.Errorf("expected reason opponent_left, got %s", session.Outcome.Reason)
	}
}

func TestHandleReconnectMarksConnected(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	m.MarkDisconnected("dev1")
	if session.GetPlayerByID("dev1").Connected {
		t.Error("player should be marked disconnected")
	}

	if !m.HandleReconnect("dev1") {
		t.Fatal("HandleReconnect should find the session")
	}
	if !session.GetPlayerByID("dev1").Connected {
		t.Error("player should be marked connected after reconnect")
	}
}

func TestDecideWinnerByScore(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 2,
		[]string{"gold", "lamp"}, []string{"fish", "star"})

	session.GetPlayerByID("dev2").Score = 1
	winnerID, reason := decideWinner(session)
	if winnerID != "dev2" || reason != "win" {
		t.Errorf("expected dev2/win, got %s/%s", winnerID, reason)
	}
}

func TestSweepExpiredConcurrentWithPlay(t *testing.T) {
	m := newTestManager()
	session := createTestGame(t, m, 1, []string{"gold"}, []string{"fish"})

	// 双方轮流出错误猜测，同时巡检高频执行，
	// 状态读写必须全部落在会话锁内
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			m.Play("dev1", "word")
			m.Play("dev2", "word")
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 300; i++ {
			m.sweepExpired()
		}
	}()
	wg.Wait()

	// 回合未超时、会话未超龄，巡检不得误杀对局
	if m.GetGameSession(session.SessionID) == nil {
		t.Fatal("session should survive concurrent sweeps")
	}
}

func TestSnapshotBotTurn(t *testing.T) {
	m := newTestManager()
	session, err := m.CreateGame("dev1", "bot_00001", []string{"gold"}, []string{"fish"},
		nil, testSettings(1))
	if err != nil {
		t.Fatalf("CreateGame failed: %v", err)
	}
	if err := m.StartGame(session.SessionID); err != nil {
		t.Fatalf("StartGame failed: %v", err)
	}

	// 人类先手，机器人回合快照为空
	if view := m.SnapshotBotTurn(session.SessionID); view != nil {
		t.Errorf("no snapshot expected on a human turn, got %+v", view)
	}

	if err := m.Play("dev1", "word"); err != nil {
		t.Fatalf("Play failed: %v", err)
	}

	view := m.SnapshotBotTurn(session.SessionID)
	if view == nil {
		t.Fatal("expected snapshot on the bot's turn")
	}
	if view.BotID != "bot_00001" {
		t.Errorf("expected bot_00001, got %s", view.BotID)
	}
	if view.TargetWord != "gold" {
		t.Errorf("bot should target the human's word, got %s", view.TargetWord)
	}
	if len(view.Attempts) != 0 {
		t.Errorf("bot has no attempts yet, got %d", len(view.Attempts))
	}

	m.EndGame(session.SessionID, "", "test")
	if view := m.SnapshotBotTurn(session.SessionID); view != nil {
		t.Error("no snapshot expected after the game ends")
	}
}
