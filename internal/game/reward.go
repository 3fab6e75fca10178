// reward.go

package game

import (
	"log"
	"math/rand"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/repository"
)

// 胜利后道具掉落概率
const powerUpDropChance = 0.2

// RewardManager 额外奖励发放
type RewardManager struct {
	users *repository.UserRepository
	// 可供掉落的道具类型
	dropPool []models.PowerUpType
}

// NewRewardManager 创建奖励管理器
func NewRewardManager(users *repository.UserRepository) *RewardManager {
	return &RewardManager{
		users: users,
		dropPool: []models.PowerUpType{
			models.PowerUpRevealLetter,
			models.PowerUpFishOut,
			models.PowerUpAIMeaning,
		},
	}
}

// MaybeDropPowerUp 按概率掉落一个随机道具
func (r *RewardManager) MaybeDropPowerUp(deviceID string) {
	if rand.Float64() >= powerUpDropChance {
		return
	}

	powerUp := r.dropPool[rand.Intn(len(r.dropPool))]
	if err := r.users.AddPowerUp(deviceID, powerUp, 1); err != nil {
		log.Printf("道具掉落发放失败 %s: %v", deviceID, err)
		return
	}
	log.Printf("玩家 %s 掉落道具: %s", deviceID, powerUp)
}
