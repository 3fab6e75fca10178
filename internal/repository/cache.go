// cache.go

package repository

import (
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/jacl-coder/WordDuel-Server/pkg/db"
)

// 缓存键前缀
const (
	userCacheKeyPrefix  = "cache:user:"
	wordsCacheKeyPrefix = "cache:words:"
)

// cacheGet 从Redis读取缓存对象
// 缓存不可用或未命中时返回false，调用方回源数据库。
func cacheGet(key string, dest interface{}) bool {
	if db.RedisClient == nil {
		return false
	}

	data, err := db.RedisClient.Get(db.Ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("读取缓存失败 %s: %v", key, err)
		}
		return false
	}

	if err := json.Unmarshal(data, dest); err != nil {
		log.Printf("解析缓存失败 %s: %v", key, err)
		return false
	}
	return true
}

// cacheSet 将对象写入Redis缓存
func cacheSet(key string, value interface{}, ttl time.Duration) {
	if db.RedisClient == nil {
		return
	}

	data, err := json.Marshal(value)
	if err != nil {
		log.Printf("序列化缓存失败 %s: %v", key, err)
		return
	}

	if err := db.RedisClient.Set(db.Ctx, key, data, ttl).Err(); err != nil {
		log.Printf("写入缓存失败 %s: %v", key, err)
	}
}

// cacheDelete 删除缓存键，写库后调用保证读到新值
func cacheDelete(keys ...string) {
	if db.RedisClient == nil || len(keys) == 0 {
		return
	}

	if err := db.RedisClient.Del(db.Ctx, keys...).Err(); err != nil {
		log.Printf("删除缓存失败 %v: %v", keys, err)
	}
}
