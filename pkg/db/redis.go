package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jacl-coder/WordDuel-Server/config"
)

var (
	// RedisClient 全局Redis客户端，会话快照、在线状态和查询缓存共用
	RedisClient *redis.Client
	// Ctx 全局上下文
	Ctx = context.Background()
)

// InitRedis 建立Redis连接
func InitRedis() error {
	cfg := config.GlobalConfig.Redis

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.GetRedisAddr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     16,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(Ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("Redis连通性检查失败: %w", err)
	}

	RedisClient = client
	log.Println("Redis连接就绪")
	return nil
}

// CloseRedis 关闭Redis连接
func CloseRedis() {
	if RedisClient == nil {
		return
	}
	if err := RedisClient.Close(); err != nil {
		log.Printf("关闭Redis连接失败: %v", err)
		return
	}
	log.Println("Redis连接已关闭")
}
