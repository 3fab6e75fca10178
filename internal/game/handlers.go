// handlers.go

package game

import (
	"fmt"
	"log"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/notify"
	"github.com/jacl-coder/WordDuel-Server/internal/repository"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

// AfterGameHandler 对局结束后的结算处理器
// 处理器串行执行，单个失败只记录日志，不影响其余处理器。
type AfterGameHandler interface {
	HandleGameEnd(session *models.GameSession, outcome *models.GameOutcome) error
}

// ScoringHandler 经验与金币结算
// 胜者的奖励随尝试次数衰减，败者拿保底奖励，机器人不结算。
type ScoringHandler struct {
	users   *repository.UserRepository
	rewards *RewardManager
}

// NewScoringHandler 创建结算处理器
func NewScoringHandler(users *repository.UserRepository, rewards *RewardManager) *ScoringHandler {
	return &ScoringHandler{users: users, rewards: rewards}
}

// HandleGameEnd 按胜负和尝试次数发放奖励
func (h *ScoringHandler) HandleGameEnd(session *models.GameSession, outcome *models.GameOutcome) error {
	for playerID, player := range session.Players {
		if IsBot(playerID) {
			continue
		}

		won := playerID == outcome.WinnerID
		xp, coins := computeRewards(won, len(player.Attempts))

		if err := h.users.AddRewards(playerID, xp, coins); err != nil {
			log.Printf("发放奖励失败 %s: %v", playerID, err)
			continue
		}
		log.Printf("玩家 %s 获得 %d 经验 %d 金币 (won=%v)", playerID, xp, coins, won)

		if won && h.rewards != nil {
			h.rewards.MaybeDropPowerUp(playerID)
		}
	}
	return nil
}

// computeRewards 奖励公式
// 胜者: xp = max(100-(attempts-1)*15, 20)，coins = max(20-(attempts-1)*3, 5)
// 败者: xp = 10，coins = 5
func computeRewards(won bool, attempts int) (int64, int64) {
	if !won {
		return 10, 5
	}
	if attempts < 1 {
		attempts = 1
	}

	xp := int64(100 - (attempts-1)*15)
	if xp < 20 {
		xp = 20
	}
	coins := int64(20 - (attempts-1)*3)
	if coins < 5 {
		coins = 5
	}
	return xp, coins
}

// PowerUpPersistenceHandler 把对局内的道具消耗写回账号
type PowerUpPersistenceHandler struct {
	users *repository.UserRepository
}

// NewPowerUpPersistenceHandler 创建道具持久化处理器
func NewPowerUpPersistenceHandler(users *repository.UserRepository) *PowerUpPersistenceHandler {
	return &PowerUpPersistenceHandler{users: users}
}

// HandleGameEnd 写回每名玩家的道具剩余次数
func (h *PowerUpPersistenceHandler) HandleGameEnd(session *models.GameSession, outcome *models.GameOutcome) error {
	if !session.Settings.AllowPowerUps {
		return nil
	}

	for playerID, player := range session.Players {
		if IsBot(playerID) {
			continue
		}
		for _, powerUp := range player.PowerUps {
			if err := h.users.SetPowerUpCount(playerID, powerUp.Type, powerUp.Remaining); err != nil {
				log.Printf("写回道具次数失败 %s/%s: %v", playerID, powerUp.Type, err)
			}
		}
	}
	return nil
}

// GameRecordHandler 落库对局历史
type GameRecordHandler struct {
	users *repository.UserRepository
	games *repository.GameRepository
}

// NewGameRecordHandler 创建对局历史处理器
func NewGameRecordHandler(users *repository.UserRepository, games *repository.GameRepository) *GameRecordHandler {
	return &GameRecordHandler{users: users, games: games}
}

// HandleGameEnd 写入一条对局记录
// 机器人没有账号行，对应的玩家ID列写0。
func (h *GameRecordHandler) HandleGameEnd(session *models.GameSession, outcome *models.GameOutcome) error {
	p1 := session.GetPlayerByRole(models.RolePlayer1)
	p2 := session.GetPlayerByRole(models.RolePlayer2)
	if p1 == nil || p2 == nil {
		return fmt.Errorf("会话 %s 玩家信息不完整", session.SessionID)
	}

	record := &models.GameRecord{
		P1Username:  p1.Username,
		P2Username:  p2.Username,
		P1DeviceID:  p1.PlayerID,
		P2DeviceID:  p2.PlayerID,
		P1Words:     p1.SecretWords,
		P2Words:     p2.SecretWords,
		WordLength:  session.Settings.WordLength,
		Rounds:      session.Settings.Rounds,
		CreatedAt:   session.CreatedAt,
		CompletedAt: outcome.CompletedAt,
	}
	if record.CompletedAt.IsZero() {
		record.CompletedAt = time.Now()
	}

	record.P1ID = h.lookupUserID(p1.PlayerID)
	record.P2ID = h.lookupUserID(p2.PlayerID)
	if outcome.WinnerID != "" {
		record.WinnerID = h.lookupUserID(outcome.WinnerID)
	}

	return h.games.Insert(record)
}

// NotificationHandler 给不在线的玩家推送对局结果
type NotificationHandler struct {
	notifier    notify.Notifier
	connections *ws.Manager
}

// NewNotificationHandler 创建结果推送处理器
func NewNotificationHandler(notifier notify.Notifier, connections *ws.Manager) *NotificationHandler {
	return &NotificationHandler{notifier: notifier, connections: connections}
}

// HandleGameEnd 对掉线的人类玩家异步推送结果
func (h *NotificationHandler) HandleGameEnd(session *models.GameSession, outcome *models.GameOutcome) error {
	for playerID := range session.Players {
		if IsBot(playerID) || h.connections.IsConnected(playerID) {
			continue
		}

		body := "The game ended in a draw"
		switch {
		case outcome.WinnerID == playerID:
			body = "You won! Come back for your rewards"
		case outcome.WinnerID != "":
			body = "Your opponent won this one"
		}

		notify.NotifyAsync(h.notifier, playerID, "Game over", body, map[string]string{
			"session_id": session.SessionID,
			"reason":     outcome.Reason,
		})
	}
	return nil
}

// lookupUserID 设备ID换取账号ID，机器人和未注册设备返回0
func (h *GameRecordHandler) lookupUserID(deviceID string) int64 {
	if IsBot(deviceID) {
		return 0
	}
	user, err := h.users.GetByDeviceID(deviceID)
	if err != nil {
		return 0
	}
	return user.ID
}
