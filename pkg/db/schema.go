// schema.go

package db

// 统一的数据库表结构定义

// CreateAllTablesSQL 创建所有表的SQL语句
const CreateAllTablesSQL = `
-- 玩家表
CREATE TABLE IF NOT EXISTS players (
    id SERIAL PRIMARY KEY,
    device_id VARCHAR(255) UNIQUE NOT NULL,
    username VARCHAR(255) UNIQUE NOT NULL,
    email VARCHAR(255),
    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,

    -- 玩家等级和货币
    xp BIGINT DEFAULT 0,
    coins BIGINT DEFAULT 500,
    games_played INT DEFAULT 0,

    -- 道具剩余次数
    reveal_letter INT DEFAULT 1,
    fish_out INT DEFAULT 1,
    ai_meaning INT DEFAULT 1
);

-- 对局记录表
CREATE TABLE IF NOT EXISTS games (
    id SERIAL PRIMARY KEY,
    p1_id INT NOT NULL REFERENCES players(id),
    p2_id INT NOT NULL REFERENCES players(id),
    winner_id INT REFERENCES players(id),
    p1_username VARCHAR(255) NOT NULL,
    p2_username VARCHAR(255) NOT NULL,
    p1_device_id VARCHAR(255) NOT NULL,
    p2_device_id VARCHAR(255) NOT NULL,
    p1_secret_words JSONB NOT NULL DEFAULT '[]',
    p2_secret_words JSONB NOT NULL DEFAULT '[]',
    word_length INT NOT NULL DEFAULT 4,
    rounds INT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    completed_at TIMESTAMP WITH TIME ZONE
);

-- 大厅表
CREATE TABLE IF NOT EXISTS lobbies (
    id SERIAL PRIMARY KEY,
    code VARCHAR(4) UNIQUE NOT NULL,
    session_id VARCHAR(255),
    p1_device_id VARCHAR(255),
    p2_device_id VARCHAR(255),
    p1_words TEXT,
    p2_words TEXT,
    turn_time_limit INT NOT NULL DEFAULT 120,
    word_length INT NOT NULL DEFAULT 4,
    rounds INT NOT NULL DEFAULT 1,
    created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
    updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
);

-- 词库表
CREATE TABLE IF NOT EXISTS words (
    id SERIAL PRIMARY KEY,
    word VARCHAR(12) UNIQUE NOT NULL,
    length INT NOT NULL,
    language VARCHAR(8) NOT NULL DEFAULT 'en'
);

CREATE INDEX IF NOT EXISTS idx_words_length ON words(length);
CREATE INDEX IF NOT EXISTS idx_games_p1 ON games(p1_id);
CREATE INDEX IF NOT EXISTS idx_games_p2 ON games(p2_id);
`

// InitSchema 初始化数据库表结构
func InitSchema() error {
	_, err := DB.Exec(CreateAllTablesSQL)
	return err
}
