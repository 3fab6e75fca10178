// words.go

package repository

import (
	"fmt"
	"strings"
	"time"

	"github.com/jacl-coder/WordDuel-Server/pkg/db"
)

// 词库缓存有效期，词表几乎不变所以缓存较久
const wordsCacheTTL = time.Hour

// WordRepository 词库数据访问
type WordRepository struct{}

// NewWordRepository 创建词库访问器
func NewWordRepository() *WordRepository {
	return &WordRepository{}
}

// ListByLength 查询指定长度的全部单词，优先读缓存
func (r *WordRepository) ListByLength(length int, language string) ([]string, error) {
	if language == "" {
		language = "en"
	}
	cacheKey := fmt.Sprintf("%s%s:%d", wordsCacheKeyPrefix, language, length)

	var cached []string
	if cacheGet(cacheKey, &cached) {
		return cached, nil
	}

	rows, err := db.DB.Query(`
		SELECT word FROM words
		WHERE length = $1 AND language = $2
		ORDER BY word`, length, language)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var words []string
	for rows.Next() {
		var word string
		if err := rows.Scan(&word); err != nil {
			return nil, err
		}
		words = append(words, strings.ToLower(word))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(words) > 0 {
		cacheSet(cacheKey, words, wordsCacheTTL)
	}
	return words, nil
}

// SeedWords 批量导入词表，已存在的单词跳过
func (r *WordRepository) SeedWords(words map[int][]string, language string) error {
	if language == "" {
		language = "en"
	}

	tx, err := db.DB.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO words (word, length, language)
		VALUES ($1, $2, $3)
		ON CONFLICT (word) DO NOTHING`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for length, list := range words {
		for _, word := range list {
			if _, err := stmt.Exec(strings.ToLower(word), length, language); err != nil {
				tx.Rollback()
				return err
			}
		}
	}
	return tx.Commit()
}
