// main.go

package main

import (
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jacl-coder/WordDuel-Server/config"
	"github.com/jacl-coder/WordDuel-Server/internal/ai"
	"github.com/jacl-coder/WordDuel-Server/internal/bot"
	"github.com/jacl-coder/WordDuel-Server/internal/game"
	"github.com/jacl-coder/WordDuel-Server/internal/lobby"
	"github.com/jacl-coder/WordDuel-Server/internal/match"
	"github.com/jacl-coder/WordDuel-Server/internal/notify"
	"github.com/jacl-coder/WordDuel-Server/internal/repository"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
	"github.com/jacl-coder/WordDuel-Server/pkg/db"
)

func main() {
	// 解析命令行参数
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	flag.Parse()

	// 加载配置
	if err := config.LoadConfig(*configPath); err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	cfg := &config.GlobalConfig

	// 初始化数据库连接
	if err := db.InitPostgres(); err != nil {
		log.Fatalf("初始化PostgreSQL失败: %v", err)
	}
	defer db.Close()

	// 初始化Redis连接
	if err := db.InitRedis(); err != nil {
		log.Fatalf("初始化Redis失败: %v", err)
	}
	defer db.CloseRedis()

	// 初始化表结构
	if err := db.InitSchema(); err != nil {
		log.Fatalf("初始化数据库表结构失败: %v", err)
	}

	// 数据访问器
	users := repository.NewUserRepository()
	games := repository.NewGameRepository()
	words := repository.NewWordRepository()
	lobbyStore := repository.NewLobbyRepository()

	// 首次启动时导入内置词库
	if err := words.SeedWords(game.BuiltinWordMap(), "en"); err != nil {
		log.Printf("导入内置词库失败: %v", err)
	}

	// 连接注册表
	cacheTTL := time.Duration(cfg.Game.MessageCacheTTL) * time.Second
	connections := ws.NewManager(db.RedisClient, cacheTTL)
	if err := connections.Start(); err != nil {
		log.Fatalf("启动连接管理器失败: %v", err)
	}

	// 机器人词库：数据库词表优先，查不到时用内置词库
	botWords := make(map[int][]string)
	for _, length := range []int{3, 4, 5, 6} {
		list, err := words.ListByLength(length, "en")
		if err != nil || len(list) == 0 {
			list = game.BuiltinWords(length)
		}
		botWords[length] = list
	}
	bots := bot.NewManager(botWords)

	// 会话管理器
	manager := game.NewManager(connections, db.RedisClient)
	manager.SetAIService(ai.NewService(&cfg.AI))
	manager.SetSessionMaxAge(time.Duration(cfg.Game.SessionMaxAge) * time.Minute)
	manager.SetBotSweepInterval(time.Duration(cfg.Game.BotTurnSweepInterval) * time.Second)

	// 结算处理器
	rewards := game.NewRewardManager(users)
	manager.RegisterAfterGameHandler(game.NewScoringHandler(users, rewards))
	manager.RegisterAfterGameHandler(game.NewPowerUpPersistenceHandler(users))
	manager.RegisterAfterGameHandler(game.NewGameRecordHandler(users, games))
	manager.RegisterAfterGameHandler(game.NewBotCleanupHandler(bots))
	if notifier := notify.NewFCMNotifier(&cfg.FCM); notifier != nil {
		manager.RegisterAfterGameHandler(game.NewNotificationHandler(notifier, connections))
	}

	manager.Startup()

	// 匹配队列与大厅
	matchQueue := match.NewQueue()
	lobbies := lobby.NewManager()
	lobbies.Start()

	// 游戏服务器
	server := game.NewGameServer(cfg, connections, manager, bots, matchQueue, lobbies)
	server.SetRepositories(users, lobbyStore)
	if err := server.Start(); err != nil {
		log.Fatalf("启动游戏服务器失败: %v", err)
	}

	// 等待中断信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	log.Println("接收到关闭信号，正在关闭服务器...")

	server.Stop()
	manager.Shutdown()
	lobbies.Stop()
	connections.Stop()

	log.Println("服务器已安全关闭")
}
