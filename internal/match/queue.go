// queue.go

package match

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

// 匹配轮询间隔
const pollInterval = 100 * time.Millisecond

// Match 匹配结果，由消费方一次性取走
type Match struct {
	Player1 string
	Player2 string
}

// entry 队列中的一个等待者
type entry struct {
	playerID string
	channel  ws.Channel
}

// Queue 匹配队列
// 先进先出，最早的两名等待者总是优先配对；
// 所有队列变更都在同一把互斥锁下进行。
type Queue struct {
	mu          sync.Mutex
	queue       []entry
	secretWords map[string]string
	// 已由对方完成的配对，等待本方取走
	pendingMatches map[string]*Match
}

// NewQueue 创建匹配队列
func NewQueue() *Queue {
	return &Queue{
		secretWords:    make(map[string]string),
		pendingMatches: make(map[string]*Match),
	}
}

// Add 将玩家加入队列
func (q *Queue) Add(playerID string, channel ws.Channel, secretWord string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.queue = append(q.queue, entry{playerID: playerID, channel: channel})
	q.secretWords[playerID] = secretWord
	log.Printf("玩家 %s 加入匹配队列，当前队列长度 %d", playerID, len(q.queue))
}

// Remove 将玩家移出队列并清除其秘密单词
// 若该玩家有一个尚未取走的配对，一并清除并返回给调用方，
// 由调用方负责安置配对中的另一方。
func (q *Queue) Remove(playerID string) *Match {
	q.mu.Lock()
	defer q.mu.Unlock()

	kept := q.queue[:0]
	for _, e := range q.queue {
		if e.playerID != playerID {
			kept = append(kept, e)
		}
	}
	q.queue = kept
	delete(q.secretWords, playerID)

	m := q.pendingMatches[playerID]
	delete(q.pendingMatches, playerID)
	return m
}

// SecretWord 查询玩家声明的秘密单词
func (q *Queue) SecretWord(playerID string) string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.secretWords[playerID]
}

// Len 当前队列长度
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queue)
}

// WaitForMatch 在超时时间内等待配对
// 返回nil表示超时，调用方应回退到机器人对手。
func (q *Queue) WaitForMatch(ctx context.Context, playerID string, timeout time.Duration) *Match {
	deadline := time.Now().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		if m := q.tryMatch(playerID); m != nil {
			return m
		}

		if time.Now().After(deadline) {
			return nil
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return nil
		}
	}
}

// tryMatch 尝试为玩家完成一次配对
func (q *Queue) tryMatch(playerID string) *Match {
	q.mu.Lock()
	defer q.mu.Unlock()

	// 对方可能已经完成配对
	if m, ok := q.pendingMatches[playerID]; ok {
		delete(q.pendingMatches, playerID)
		return m
	}

	if len(q.queue) < 2 {
		return nil
	}

	// 只有位于队首两位之一的玩家才能发起配对，保证严格FIFO
	pos := -1
	for i, e := range q.queue {
		if e.playerID == playerID {
			pos = i
			break
		}
	}
	if pos != 0 && pos != 1 {
		return nil
	}

	first := q.queue[0]
	second := q.queue[1]
	q.queue = q.queue[2:]

	m := &Match{Player1: first.playerID, Player2: second.playerID}

	// 另一方稍后来取
	other := first.playerID
	if playerID == first.playerID {
		other = second.playerID
	}
	q.pendingMatches[other] = m

	log.Printf("匹配成功: %s vs %s", m.Player1, m.Player2)
	return m
}
