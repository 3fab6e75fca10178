// config.go

package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 服务器配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Game     GameConfig     `mapstructure:"game"`
	AI       AIConfig       `mapstructure:"ai"`
	FCM      FCMConfig      `mapstructure:"fcm"`
}

// ServerConfig 服务器基本配置
type ServerConfig struct {
	GamePort int    `mapstructure:"game_port"`
	Debug    bool   `mapstructure:"debug"`
	LogLevel string `mapstructure:"log_level"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// GameConfig 游戏配置
type GameConfig struct {
	// 默认回合数和单词长度
	DefaultRounds     int `mapstructure:"default_rounds"`
	DefaultWordLength int `mapstructure:"default_word_length"`
	// 每回合限时(秒)
	TurnTimeLimit int `mapstructure:"turn_time_limit"`
	// 匹配等待超时(秒)，超时后分配机器人对手
	MatchmakingTimeout int `mapstructure:"matchmaking_timeout"`
	// 大厅等待超时(秒)
	LobbyTimeout int `mapstructure:"lobby_timeout"`
	// 会话最长存活时间(分钟)，超过后强制结束
	SessionMaxAge int `mapstructure:"session_max_age"`
	// 机器人回合兜底检查间隔(秒)
	BotTurnSweepInterval int `mapstructure:"bot_turn_sweep_interval"`
	// 离线消息缓存有效期(秒)
	MessageCacheTTL int `mapstructure:"message_cache_ttl"`
}

// AIConfig 词义生成服务配置
type AIConfig struct {
	APIKey  string `mapstructure:"api_key"`
	APIURL  string `mapstructure:"api_url"`
	Model   string `mapstructure:"model"`
	Timeout int    `mapstructure:"timeout"` // 请求超时(秒)
}

// FCMConfig 推送通知配置
type FCMConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ServerKey string `mapstructure:"server_key"`
	Endpoint  string `mapstructure:"endpoint"`
}

var (
	// GlobalConfig 全局配置实例
	GlobalConfig Config
)

// LoadConfig 从文件加载配置
func LoadConfig(configPath string) error {
	viper.SetConfigFile(configPath)
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("无法读取配置文件: %w", err)
	}

	if err := viper.Unmarshal(&GlobalConfig); err != nil {
		return fmt.Errorf("无法解析配置文件: %w", err)
	}

	return nil
}

// setDefaults 设置游戏相关默认值
func setDefaults() {
	viper.SetDefault("game.default_rounds", 1)
	viper.SetDefault("game.default_word_length", 4)
	viper.SetDefault("game.turn_time_limit", 120)
	viper.SetDefault("game.matchmaking_timeout", 10)
	viper.SetDefault("game.lobby_timeout", 60)
	viper.SetDefault("game.session_max_age", 120)
	viper.SetDefault("game.bot_turn_sweep_interval", 60)
	viper.SetDefault("game.message_cache_ttl", 300)
	viper.SetDefault("ai.model", "gemini-1.5-flash")
	viper.SetDefault("ai.timeout", 10)
}

// GetDSN 获取PostgreSQL连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// GetRedisAddr 获取Redis连接地址
func (c *RedisConfig) GetRedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// TurnTimeLimitDuration 回合限时
func (c *GameConfig) TurnTimeLimitDuration() time.Duration {
	return time.Duration(c.TurnTimeLimit) * time.Second
}

// MatchmakingTimeoutDuration 匹配超时
func (c *GameConfig) MatchmakingTimeoutDuration() time.Duration {
	return time.Duration(c.MatchmakingTimeout) * time.Second
}

// LobbyTimeoutDuration 大厅超时
func (c *GameConfig) LobbyTimeoutDuration() time.Duration {
	return time.Duration(c.LobbyTimeout) * time.Second
}
