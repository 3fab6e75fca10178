// lobbies.go

package repository

import (
	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/pkg/db"
)

// LobbyRepository 大厅持久化访问
// 大厅的实时状态在内存里，这里只落库供排障和统计使用。
type LobbyRepository struct{}

// NewLobbyRepository 创建大厅持久化访问器
func NewLobbyRepository() *LobbyRepository {
	return &LobbyRepository{}
}

// Upsert 按大厅码写入或更新大厅记录
func (r *LobbyRepository) Upsert(record *models.LobbyRecord) error {
	return db.DB.QueryRow(`
		INSERT INTO lobbies (code, session_id,
		                     p1_device_id, p2_device_id,
		                     p1_words, p2_words,
		                     turn_time_limit, word_length, rounds)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (code) DO UPDATE SET
		    session_id = EXCLUDED.session_id,
		    p1_device_id = EXCLUDED.p1_device_id,
		    p2_device_id = EXCLUDED.p2_device_id,
		    p1_words = EXCLUDED.p1_words,
		    p2_words = EXCLUDED.p2_words,
		    turn_time_limit = EXCLUDED.turn_time_limit,
		    word_length = EXCLUDED.word_length,
		    rounds = EXCLUDED.rounds,
		    updated_at = CURRENT_TIMESTAMP
		RETURNING id`,
		record.Code, record.SessionID,
		record.P1DeviceID, record.P2DeviceID,
		record.P1Words, record.P2Words,
		record.TurnTimeLimit, record.WordLength, record.Rounds,
	).Scan(&record.ID)
}

// GetByCode 按大厅码查询记录
func (r *LobbyRepository) GetByCode(code string) (*models.LobbyRecord, error) {
	record := &models.LobbyRecord{}
	err := db.DB.QueryRow(`
		SELECT id, code, COALESCE(session_id, ''),
		       COALESCE(p1_device_id, ''), COALESCE(p2_device_id, ''),
		       COALESCE(p1_words, ''), COALESCE(p2_words, ''),
		       turn_time_limit, word_length, rounds,
		       created_at, updated_at
		FROM lobbies WHERE code = $1`, code).Scan(
		&record.ID, &record.Code, &record.SessionID,
		&record.P1DeviceID, &record.P2DeviceID,
		&record.P1Words, &record.P2Words,
		&record.TurnTimeLimit, &record.WordLength, &record.Rounds,
		&record.CreatedAt, &record.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return record, nil
}

// Delete 删除大厅记录
func (r *LobbyRepository) Delete(code string) error {
	_, err := db.DB.Exec(`DELETE FROM lobbies WHERE code = $1`, code)
	return err
}
