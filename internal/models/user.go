// user.go

package models

import (
	"time"
)

// User 玩家账号模型
type User struct {
	ID       int64  `json:"id"`
	DeviceID string `json:"device_id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`

	// 游戏相关属性
	XP          int64 `json:"xp"`
	Coins       int64 `json:"coins"`
	GamesPlayed int   `json:"games_played"`

	// 道具剩余次数
	RevealLetter int `json:"reveal_letter"`
	FishOut      int `json:"fish_out"`
	AIMeaning    int `json:"ai_meaning"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
