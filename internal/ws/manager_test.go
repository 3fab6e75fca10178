package ws

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
)

// fakeChannel 记录全部出站数据的测试通道
type fakeChannel struct {
	sent    [][]byte
	failing bool
	closed  bool
}

func (c *fakeChannel) Send(data []byte) error {
	if c.failing {
		return fmt.Errorf("send failed")
	}
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeChannel) Receive() ([]byte, error) {
	return nil, fmt.Errorf("not implemented")
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func (c *fakeChannel) IsClosed() bool {
	return c.closed
}

func decodeType(t *testing.T, data []byte) models.MessageType {
	t.Helper()
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("failed to decode message: %v", err)
	}
	return msg.Type
}

func TestConnectSendsWelcome(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ch := &fakeChannel{}

	if err := m.Connect(ch, "dev1", nil); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if !m.IsConnected("dev1") {
		t.Error("device should be connected")
	}
	if len(ch.sent) != 1 {
		t.Fatalf("expected 1 welcome message, got %d", len(ch.sent))
	}
	if decodeType(t, ch.sent[0]) != models.MsgConnected {
		t.Error("first message should be the welcome")
	}
}

func TestConnectReplacesOldChannel(t *testing.T) {
	m := NewManager(nil, time.Minute)
	old := &fakeChannel{}
	m.Connect(old, "dev1", nil)

	fresh := &fakeChannel{}
	m.Connect(fresh, "dev1", nil)

	if !old.closed {
		t.Error("old channel should be force-closed")
	}
	if m.GetConnectionInfo("dev1").Channel != fresh {
		t.Error("registry should point at the new channel")
	}
}

func TestSendToOfflineDeviceCaches(t *testing.T) {
	m := NewManager(nil, time.Minute)

	msg := &models.Message{Type: models.MsgInfo, Data: &models.InfoPayload{Message: "hello"}}
	if err := m.Send("dev1", msg); err != nil {
		t.Fatalf("Send should not fail for offline devices: %v", err)
	}
	if m.CachedMessageCount("dev1") != 1 {
		t.Errorf("expected 1 cached message, got %d", m.CachedMessageCount("dev1"))
	}
}

func TestReconnectReplaysCachedInOrder(t *testing.T) {
	m := NewManager(nil, time.Minute)

	for i := 0; i < 3; i++ {
		m.Send("dev1", &models.Message{
			Type: models.MsgInfo,
			Data: &models.InfoPayload{Message: fmt.Sprintf("msg-%d", i)},
		})
	}

	ch := &fakeChannel{}
	if err := m.Connect(ch, "dev1", nil); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	// 欢迎消息在前，之后按FIFO重放3条
	if len(ch.sent) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(ch.sent))
	}
	for i := 1; i < 4; i++ {
		var msg struct {
			Data models.InfoPayload `json:"data"`
		}
		if err := json.Unmarshal(ch.sent[i], &msg); err != nil {
			t.Fatalf("failed to decode replayed message: %v", err)
		}
		want := fmt.Sprintf("msg-%d", i-1)
		if msg.Data.Message != want {
			t.Errorf("replay out of order: expected %s, got %s", want, msg.Data.Message)
		}
	}

	if m.CachedMessageCount("dev1") != 0 {
		t.Error("cache should be drained after replay")
	}
}

func TestSendToBotIsFiltered(t *testing.T) {
	m := NewManager(nil, time.Minute)

	msg := &models.Message{Type: models.MsgInfo, Data: &models.InfoPayload{Message: "hi"}}
	if err := m.Send("bot_12345", msg); err != nil {
		t.Fatalf("Send to bot should be a no-op: %v", err)
	}
	if m.CachedMessageCount("bot_12345") != 0 {
		t.Error("bot messages must not be cached")
	}
}

func TestSendFailureFallsBackToCache(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ch := &fakeChannel{}
	m.Connect(ch, "dev1", nil)
	ch.failing = true

	msg := &models.Message{Type: models.MsgInfo, Data: &models.InfoPayload{Message: "hi"}}
	if err := m.Send("dev1", msg); err != nil {
		t.Fatalf("Send should swallow channel errors: %v", err)
	}
	if m.CachedMessageCount("dev1") != 1 {
		t.Errorf("failed send should be cached, got %d", m.CachedMessageCount("dev1"))
	}
}

func TestDisconnectRemovesDevice(t *testing.T) {
	m := NewManager(nil, time.Minute)
	ch := &fakeChannel{}
	m.Connect(ch, "dev1", nil)

	m.Disconnect("dev1", "test")

	if m.IsConnected("dev1") {
		t.Error("device should be removed")
	}
	if !ch.closed {
		t.Error("channel should be closed")
	}
}

func TestBroadcastReturnsSuccessful(t *testing.T) {
	m := NewManager(nil, time.Minute)
	m.Connect(&fakeChannel{}, "dev1", nil)

	msg := &models.Message{Type: models.MsgInfo, Data: &models.InfoPayload{Message: "hi"}}
	successful := m.Broadcast([]string{"dev1", "dev2", "bot_1"}, msg)

	// 离线与机器人目标的发送也视为成功，不阻塞广播
	if len(successful) != 3 {
		t.Errorf("expected 3 successful sends, got %d", len(successful))
	}
}

func TestMessageCacheTTL(t *testing.T) {
	cache := NewMessageCache(10 * time.Millisecond)
	cache.Add("dev1", []byte("stale"))

	time.Sleep(20 * time.Millisecond)

	if msgs := cache.Drain("dev1"); len(msgs) != 0 {
		t.Errorf("expired messages must not be replayed, got %d", len(msgs))
	}
}

func TestMessageCacheSweep(t *testing.T) {
	cache := NewMessageCache(10 * time.Millisecond)
	cache.Add("dev1", []byte("stale"))

	time.Sleep(20 * time.Millisecond)
	cache.Sweep()

	if cache.Len("dev1") != 0 {
		t.Error("sweep should purge expired messages")
	}
}

func TestHeartbeatSweepMarksIdleThenDisconnects(t *testing.T) {
	m := NewManager(nil, time.Minute)
	m.Connect(&fakeChannel{}, "dev1", nil)

	// 心跳沉默超过空闲阈值，降级为idle但不断开
	stale := m.sweepHeartbeats(time.Now().Add(idleThreshold + time.Second))
	if len(stale) != 0 {
		t.Errorf("idle device must not be scheduled for disconnect, got %v", stale)
	}
	if m.GetConnectionInfo("dev1").Status != StatusIdle {
		t.Error("device should be marked idle")
	}

	// 心跳恢复后状态回到connected
	m.UpdateHeartbeat("dev1")
	if m.GetConnectionInfo("dev1").Status != StatusConnected {
		t.Error("heartbeat should restore connected status")
	}

	// 沉默超过断开阈值则列入断开名单
	stale = m.sweepHeartbeats(time.Now().Add(disconnectThreshold + time.Second))
	if len(stale) != 1 || stale[0] != "dev1" {
		t.Errorf("expected dev1 scheduled for disconnect, got %v", stale)
	}
}
