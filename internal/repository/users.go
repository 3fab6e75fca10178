// users.go

package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/pkg/db"
)

// 玩家缓存有效期
const userCacheTTL = 5 * time.Minute

// UserRepository 玩家数据访问
type UserRepository struct{}

// NewUserRepository 创建玩家数据访问器
func NewUserRepository() *UserRepository {
	return &UserRepository{}
}

// GetByDeviceID 按设备ID查询玩家，优先读缓存
func (r *UserRepository) GetByDeviceID(deviceID string) (*models.User, error) {
	cacheKey := userCacheKeyPrefix + deviceID

	var cached models.User
	if cacheGet(cacheKey, &cached) {
		return &cached, nil
	}

	user := &models.User{}
	err := db.DB.QueryRow(`
		SELECT id, device_id, username, COALESCE(email, ''),
		       xp, coins, games_played,
		       reveal_letter, fish_out, ai_meaning,
		       created_at, updated_at
		FROM players WHERE device_id = $1`, deviceID).Scan(
		&user.ID, &user.DeviceID, &user.Username, &user.Email,
		&user.XP, &user.Coins, &user.GamesPlayed,
		&user.RevealLetter, &user.FishOut, &user.AIMeaning,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	cacheSet(cacheKey, user, userCacheTTL)
	return user, nil
}

// GetOrCreate 按设备ID查询玩家，不存在时自动注册
func (r *UserRepository) GetOrCreate(deviceID, username string) (*models.User, error) {
	user, err := r.GetByDeviceID(deviceID)
	if err == nil {
		return user, nil
	}
	if err != sql.ErrNoRows {
		return nil, err
	}

	if username == "" {
		username = fmt.Sprintf("player_%s", deviceID)
	}

	user = &models.User{DeviceID: deviceID, Username: username}
	err = db.DB.QueryRow(`
		INSERT INTO players (device_id, username)
		VALUES ($1, $2)
		ON CONFLICT (device_id) DO UPDATE SET updated_at = CURRENT_TIMESTAMP
		RETURNING id, xp, coins, games_played,
		          reveal_letter, fish_out, ai_meaning,
		          created_at, updated_at`, deviceID, username).Scan(
		&user.ID, &user.XP, &user.Coins, &user.GamesPlayed,
		&user.RevealLetter, &user.FishOut, &user.AIMeaning,
		&user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// AddRewards 累加玩家的经验和金币
func (r *UserRepository) AddRewards(deviceID string, xp, coins int64) error {
	_, err := db.DB.Exec(`
		UPDATE players
		SET xp = xp + $1, coins = coins + $2,
		    games_played = games_played + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE device_id = $3`, xp, coins, deviceID)
	if err != nil {
		return err
	}

	cacheDelete(userCacheKeyPrefix + deviceID)
	return nil
}

// AddPowerUp 为玩家增加道具次数
func (r *UserRepository) AddPowerUp(deviceID string, powerUp models.PowerUpType, count int) error {
	column, err := powerUpColumn(powerUp)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE players
		SET %s = %s + $1, updated_at = CURRENT_TIMESTAMP
		WHERE device_id = $2`, column, column)
	if _, err := db.DB.Exec(query, count, deviceID); err != nil {
		return err
	}

	cacheDelete(userCacheKeyPrefix + deviceID)
	return nil
}

// SetPowerUpCount 写回玩家的道具剩余次数，次数不会写成负值
func (r *UserRepository) SetPowerUpCount(deviceID string, powerUp models.PowerUpType, remaining int) error {
	if remaining < 0 {
		remaining = 0
	}

	column, err := powerUpColumn(powerUp)
	if err != nil {
		return err
	}

	query := fmt.Sprintf(`
		UPDATE players
		SET %s = $1, updated_at = CURRENT_TIMESTAMP
		WHERE device_id = $2`, column)
	if _, err := db.DB.Exec(query, remaining, deviceID); err != nil {
		return err
	}

	cacheDelete(userCacheKeyPrefix + deviceID)
	return nil
}

// powerUpColumn 道具类型到列名的映射，只接受白名单内的列
func powerUpColumn(powerUp models.PowerUpType) (string, error) {
	switch powerUp {
	case models.PowerUpRevealLetter:
		return "reveal_letter", nil
	case models.PowerUpFishOut:
		return "fish_out", nil
	case models.PowerUpAIMeaning:
		return "ai_meaning", nil
	default:
		return "", fmt.Errorf("未知的道具类型: %s", powerUp)
	}
}
