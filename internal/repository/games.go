// games.go

package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/pkg/db"
)

// GameRepository 对局记录数据访问
type GameRepository struct{}

// NewGameRepository 创建对局记录访问器
func NewGameRepository() *GameRepository {
	return &GameRepository{}
}

// Insert 写入一条已完成的对局记录
func (r *GameRepository) Insert(record *models.GameRecord) error {
	p1Words, err := json.Marshal(record.P1Words)
	if err != nil {
		return err
	}
	p2Words, err := json.Marshal(record.P2Words)
	if err != nil {
		return err
	}

	var winnerID sql.NullInt64
	if record.WinnerID != 0 {
		winnerID = sql.NullInt64{Int64: record.WinnerID, Valid: true}
	}

	completedAt := record.CompletedAt
	if completedAt.IsZero() {
		completedAt = time.Now()
	}

	return db.DB.QueryRow(`
		INSERT INTO games (p1_id, p2_id, winner_id,
		                   p1_username, p2_username,
		                   p1_device_id, p2_device_id,
		                   p1_secret_words, p2_secret_words,
		                   word_length, rounds, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		record.P1ID, record.P2ID, winnerID,
		record.P1Username, record.P2Username,
		record.P1DeviceID, record.P2DeviceID,
		p1Words, p2Words,
		record.WordLength, record.Rounds, completedAt,
	).Scan(&record.ID)
}

// ListByDeviceID 查询某设备最近的对局记录
func (r *GameRepository) ListByDeviceID(deviceID string, limit int) ([]*models.GameRecord, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := db.DB.Query(`
		SELECT id, p1_id, p2_id, COALESCE(winner_id, 0),
		       p1_username, p2_username,
		       p1_device_id, p2_device_id,
		       p1_secret_words, p2_secret_words,
		       word_length, rounds, created_at,
		       COALESCE(completed_at, created_at)
		FROM games
		WHERE p1_device_id = $1 OR p2_device_id = $1
		ORDER BY created_at DESC
		LIMIT $2`, deviceID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.GameRecord
	for rows.Next() {
		record := &models.GameRecord{}
		var p1Words, p2Words []byte
		if err := rows.Scan(
			&record.ID, &record.P1ID, &record.P2ID, &record.WinnerID,
			&record.P1Username, &record.P2Username,
			&record.P1DeviceID, &record.P2DeviceID,
			&p1Words, &p2Words,
			&record.WordLength, &record.Rounds, &record.CreatedAt,
			&record.CompletedAt,
		); err != nil {
			return nil, err
		}

		if err := json.Unmarshal(p1Words, &record.P1Words); err != nil {
			record.P1Words = nil
		}
		if err := json.Unmarshal(p2Words, &record.P2Words); err != nil {
			record.P2Words = nil
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
