package db

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/jacl-coder/WordDuel-Server/config"
	_ "github.com/lib/pq"
)

// DB 全局PostgreSQL句柄，进程内共享
var DB *sql.DB

// 落库只发生在建号、结算和查询历史时，连接池压得比较小
const (
	maxOpenConns    = 20
	maxIdleConns    = 5
	connMaxLifetime = 30 * time.Minute
)

// InitPostgres 建立PostgreSQL连接并配置连接池
func InitPostgres() error {
	handle, err := sql.Open("postgres", config.GlobalConfig.Database.GetDSN())
	if err != nil {
		return fmt.Errorf("打开数据库连接失败: %w", err)
	}

	handle.SetMaxOpenConns(maxOpenConns)
	handle.SetMaxIdleConns(maxIdleConns)
	handle.SetConnMaxLifetime(connMaxLifetime)

	if err = handle.Ping(); err != nil {
		return fmt.Errorf("数据库连通性检查失败: %w", err)
	}

	DB = handle
	log.Println("PostgreSQL连接就绪")
	return nil
}

// Close 关闭数据库连接
func Close() {
	if DB != nil {
		DB.Close()
		log.Println("PostgreSQL连接已关闭")
	}
}
