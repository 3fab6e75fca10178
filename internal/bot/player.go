// player.go

package bot

import (
	"log"
	"math/rand"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

// Player 机器人玩家
// 持有一个虚拟通道占据连接位，按策略产出猜测，
// 每次出手前随机延迟以模拟真人思考。
type Player struct {
	ID         string
	Username   string
	SecretWord string
	Difficulty string

	strategy Strategy
	// 出手延迟的上下界（秒）
	minDelay float64
	maxDelay float64

	channel *ws.VirtualChannel
}

// Channel 机器人占位用的虚拟通道
func (p *Player) Channel() *ws.VirtualChannel {
	return p.channel
}

// thinkDelay 随机思考时长
func (p *Player) thinkDelay() time.Duration {
	span := p.maxDelay - p.minDelay
	seconds := p.minDelay + rand.Float64()*span
	return time.Duration(seconds * float64(time.Second))
}

// Play 基于回合快照产出一次猜测
// 快照由调用方在会话锁内摘取，这里只负责思考延迟和选词，
// 策略无词可出时返回空串。
func (p *Player) Play(wordLength int, previousAttempts []*models.GuessResult) string {
	time.Sleep(p.thinkDelay())

	guess, err := p.strategy.MakeGuess(wordLength, previousAttempts, nil)
	if err != nil {
		log.Printf("机器人 %s 无法产出猜测: %v", p.ID, err)
		return ""
	}
	return guess
}
