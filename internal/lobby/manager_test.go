package lobby

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

func TestFirstPlayerBecomesHost(t *testing.T) {
	l := newLobby("1234")

	becameHost, err := l.AddPlayer("p1", nil, []string{"gold"})
	if err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}
	if !becameHost {
		t.Error("first player should become host")
	}
	if l.HostID() != "p1" {
		t.Errorf("expected p1 as host, got %s", l.HostID())
	}
	if l.IsReady() {
		t.Error("lobby must not be ready with one player")
	}
}

func TestLobbyReadyOnSecondPlayer(t *testing.T) {
	l := newLobby("1234")
	l.AddPlayer("p1", nil, []string{"gold"})

	becameHost, err := l.AddPlayer("p2", nil, []string{"fish"})
	if err != nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}
	if becameHost {
		t.Error("second player must not become host")
	}
	if !l.IsReady() {
		t.Error("lobby should be ready with two players")
	}

	ids := l.PlayerIDs()
	if len(ids) != 2 || ids[0] != "p1" {
		t.Errorf("host should come first, got %v", ids)
	}
}

func TestLobbyRejectsThirdPlayer(t *testing.T) {
	l := newLobby("1234")
	l.AddPlayer("p1", nil, []string{"gold"})
	l.AddPlayer("p2", nil, []string{"fish"})

	if _, err := l.AddPlayer("p3", nil, []string{"star"}); err == nil {
		t.Error("third player should be rejected")
	}
}

func TestConcurrentJoinSingleHost(t *testing.T) {
	l := newLobby("1234")

	var hostCount int32
	var wg sync.WaitGroup
	for _, id := range []string{"p1", "p2"} {
		wg.Add(1)
		go func(playerID string) {
			defer wg.Done()
			becameHost, err := l.AddPlayer(playerID, nil, []string{"gold"})
			if err != nil {
				t.Errorf("AddPlayer %s failed: %v", playerID, err)
				return
			}
			if becameHost {
				atomic.AddInt32(&hostCount, 1)
			}
		}(id)
	}
	wg.Wait()

	if hostCount != 1 {
		t.Errorf("expected exactly one host, got %d", hostCount)
	}
	if l.HostID() == "" {
		t.Error("a host must be recorded")
	}
}

func TestOnlyHostSetsSettings(t *testing.T) {
	l := newLobby("1234")
	l.AddPlayer("p1", nil, []string{"gold"})
	l.AddPlayer("p2", nil, []string{"fish"})

	settings := models.DefaultGameSettings()
	settings.Rounds = 3

	if err := l.SetSettings("p2", settings); err == nil {
		t.Error("non-host must not change settings")
	}
	if err := l.SetSettings("p1", settings); err != nil {
		t.Fatalf("host SetSettings failed: %v", err)
	}
	if l.Settings().Rounds != 3 {
		t.Error("settings should be stored")
	}
}

func TestWaitReadyTimeout(t *testing.T) {
	l := newLobby("1234")
	l.AddPlayer("p1", nil, []string{"gold"})

	if err := l.WaitReady(50 * time.Millisecond); err == nil {
		t.Error("expected timeout error")
	}
}

func TestWaitReadyUnblocks(t *testing.T) {
	l := newLobby("1234")
	l.AddPlayer("p1", nil, []string{"gold"})

	done := make(chan error, 1)
	go func() {
		done <- l.WaitReady(2 * time.Second)
	}()

	time.Sleep(20 * time.Millisecond)
	l.AddPlayer("p2", nil, []string{"fish"})

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("WaitReady failed: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("WaitReady did not unblock")
	}
}

func TestGenerateCodeUnique(t *testing.T) {
	m := NewManager()

	seen := make(map[string]bool)
	for i := 0; i < 20; i++ {
		code := m.GenerateCode()
		if len(code) != 4 {
			t.Errorf("expected 4-digit code, got %q", code)
		}
		if seen[code] {
			t.Errorf("duplicate code %s", code)
		}
		seen[code] = true
		m.CreateLobby(code)
	}
}

func TestGetOrCreateLobby(t *testing.T) {
	m := NewManager()

	l1 := m.GetOrCreateLobby("1234")
	l2 := m.GetOrCreateLobby("1234")
	if l1 != l2 {
		t.Error("same code should return the same lobby")
	}

	m.RemoveLobby("1234")
	if m.GetLobby("1234") != nil {
		t.Error("lobby should be removed")
	}
}

func TestCleanupStale(t *testing.T) {
	m := NewManager()
	l := m.CreateLobby("1234")
	l.CreatedAt = time.Now().Add(-time.Hour)

	m.cleanupStale(10 * time.Minute)
	if m.GetLobby("1234") != nil {
		t.Error("stale unready lobby should be removed")
	}

	// 已就绪的大厅不清理
	ready := m.CreateLobby("5678")
	ready.CreatedAt = time.Now().Add(-time.Hour)
	ready.AddPlayer("p1", nil, []string{"gold"})
	ready.AddPlayer("p2", nil, []string{"fish"})

	m.cleanupStale(10 * time.Minute)
	if m.GetLobby("5678") == nil {
		t.Error("ready lobby must not be cleaned up")
	}
}
