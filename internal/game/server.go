// server.go

package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/jacl-coder/WordDuel-Server/config"
	"github.com/jacl-coder/WordDuel-Server/internal/bot"
	"github.com/jacl-coder/WordDuel-Server/internal/lobby"
	"github.com/jacl-coder/WordDuel-Server/internal/match"
	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/repository"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// 允许所有跨域请求
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameServer 游戏服务器
// 承载三个WebSocket入口：对局、快速匹配和好友大厅。
type GameServer struct {
	config      *config.Config
	connections *ws.Manager
	manager     *Manager
	bots        *bot.Manager
	matchQueue  *match.Queue
	lobbies     *lobby.Manager

	// 数据访问，未接数据库时为nil
	users      *repository.UserRepository
	lobbyStore *repository.LobbyRepository

	httpServer *http.Server
	isRunning  bool
}

// NewGameServer 创建游戏服务器
func NewGameServer(cfg *config.Config, connections *ws.Manager, manager *Manager,
	bots *bot.Manager, matchQueue *match.Queue, lobbies *lobby.Manager) *GameServer {
	return &GameServer{
		config:      cfg,
		connections: connections,
		manager:     manager,
		bots:        bots,
		matchQueue:  matchQueue,
		lobbies:     lobbies,
	}
}

// SetRepositories 注入数据访问器
func (s *GameServer) SetRepositories(users *repository.UserRepository, lobbyStore *repository.LobbyRepository) {
	s.users = users
	s.lobbyStore = lobbyStore
}

// Start 启动游戏服务器
func (s *GameServer) Start() error {
	if s.isRunning {
		return fmt.Errorf("服务器已经在运行")
	}

	s.httpServer = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.config.Server.GamePort),
		Handler: s.createHandler(),
	}

	go func() {
		log.Printf("游戏服务器启动，监听端口: %d", s.config.Server.GamePort)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP服务器错误: %v", err)
		}
	}()

	s.isRunning = true
	return nil
}

// Stop 停止游戏服务器
func (s *GameServer) Stop() error {
	if !s.isRunning {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP服务器关闭错误: %w", err)
	}

	s.isRunning = false
	log.Println("游戏服务器已停止")
	return nil
}

// createHandler 注册HTTP路由
func (s *GameServer) createHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/game/", s.handleGameWS)
	mux.HandleFunc("/ws/matchmaking", s.handleMatchmakingWS)
	mux.HandleFunc("/ws/lobby/", s.handleLobbyWS)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// handleHealth 健康检查
func (s *GameServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":       "ok",
		"active_games": s.manager.ActiveGameCount(),
		"connections":  s.connections.ConnectionCount(),
	})
}

// upgrade 升级WebSocket连接并登记设备
func (s *GameServer) upgrade(w http.ResponseWriter, r *http.Request, deviceID string) (*ws.WSChannel, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}

	channel := ws.NewWSChannel(conn)
	if err := s.connections.Connect(channel, deviceID, s.lookupUser(r, deviceID)); err != nil {
		channel.Close()
		return nil, err
	}
	return channel, nil
}

// lookupUser 查询或注册设备对应的账号，数据库未接入时返回nil
func (s *GameServer) lookupUser(r *http.Request, deviceID string) *models.User {
	if s.users == nil {
		return nil
	}
	user, err := s.users.GetOrCreate(deviceID, r.URL.Query().Get("username"))
	if err != nil {
		log.Printf("查询玩家账号失败 %s: %v", deviceID, err)
		return nil
	}
	return user
}

// handleGameWS 对局WebSocket入口
// 路径为 /ws/game/{session_id}，重连的玩家会收到完整状态快照。
func (s *GameServer) handleGameWS(w http.ResponseWriter, r *http.Request) {
	sessionID := strings.TrimPrefix(r.URL.Path, "/ws/game/")
	deviceID := r.URL.Query().Get("device_id")
	if sessionID == "" || deviceID == "" {
		http.Error(w, "missing session_id or device_id", http.StatusBadRequest)
		return
	}

	session := s.manager.GetGameSession(sessionID)
	if session == nil || session.GetPlayerByID(deviceID) == nil {
		http.Error(w, "game not found", http.StatusNotFound)
		return
	}

	channel, err := s.upgrade(w, r, deviceID)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	s.manager.HandleReconnect(deviceID)
	s.readLoop(deviceID, channel)
}

// handleMatchmakingWS 快速匹配入口
// 在配置的等待时间内没有对手就分配机器人。
func (s *GameServer) handleMatchmakingWS(w http.ResponseWriter, r *http.Request) {
	deviceID := r.URL.Query().Get("device_id")
	word := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("word")))
	if deviceID == "" || word == "" {
		http.Error(w, "missing device_id or word", http.StatusBadRequest)
		return
	}

	channel, err := s.upgrade(w, r, deviceID)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	s.connections.Send(deviceID, &models.Message{
		Type: models.MsgWaiting,
		Data: &models.WaitingPayload{Message: "Searching for an opponent"},
	})

	s.matchQueue.Add(deviceID, channel, word)
	go s.runMatchmaking(deviceID, r.URL.Query().Get("difficulty"))

	s.readLoop(deviceID, channel)
}

// runMatchmaking 等待配对，超时后回退到机器人对手
func (s *GameServer) runMatchmaking(deviceID, difficulty string) {
	timeout := s.config.Game.MatchmakingTimeoutDuration()
	m := s.matchQueue.WaitForMatch(context.Background(), deviceID, timeout)

	if m == nil {
		// 玩家可能已主动取消
		if s.matchQueue.SecretWord(deviceID) == "" {
			return
		}
		s.startBotGame(deviceID, difficulty)
		return
	}

	// 两侧都会取到同一个配对，由Player1一侧负责建局
	if m.Player1 != deviceID {
		return
	}
	s.startMatchedGame(m)
}

// startMatchedGame 为一对匹配成功的玩家建局
func (s *GameServer) startMatchedGame(m *match.Match) {
	p1Word := s.matchQueue.SecretWord(m.Player1)
	p2Word := s.matchQueue.SecretWord(m.Player2)

	// 取消或掉线可能与配对完成竞争，单词已被清除的一方视为退出，
	// 幸存方转入机器人对局而不是被晾在原地
	if p1Word == "" || p2Word == "" {
		log.Printf("配对 %s vs %s 有玩家已退出，放弃建局", m.Player1, m.Player2)
		survivor := m.Player2
		if p2Word == "" {
			survivor = m.Player1
		}
		s.fallBackToBot(survivor)
		return
	}
	s.matchQueue.Remove(m.Player1)
	s.matchQueue.Remove(m.Player2)

	// 快速匹配每人只声明一个单词，固定单轮
	settings := s.defaultSettings(len(p1Word))
	settings.Rounds = 1
	session, err := s.manager.CreateGame(m.Player1, m.Player2,
		[]string{p1Word}, []string{p2Word}, s.usernamesFor(m.Player1, m.Player2), settings)
	if err != nil {
		log.Printf("建局失败 %s vs %s: %v", m.Player1, m.Player2, err)
		s.sendError(m.Player1, ClientMessage(err))
		s.sendError(m.Player2, ClientMessage(err))
		return
	}

	s.notifyMatched(session, m.Player1, m.Player2)
	if err := s.manager.StartGame(session.SessionID); err != nil {
		log.Printf("开局失败 %s: %v", session.SessionID, err)
	}
}

// startBotGame 匹配超时后与机器人开局
func (s *GameServer) startBotGame(deviceID, difficulty string) {
	word := s.matchQueue.SecretWord(deviceID)
	s.matchQueue.Remove(deviceID)
	if word == "" {
		return
	}

	botPlayer, err := s.bots.CreateBot(difficulty, len(word))
	if err != nil {
		log.Printf("创建机器人失败: %v", err)
		s.connections.Send(deviceID, &models.Message{
			Type: models.MsgError,
			Data: &models.ErrorPayload{Message: "Matchmaking failed, please try again"},
		})
		return
	}

	s.connections.Connect(botPlayer.Channel(), botPlayer.ID, nil)

	settings := s.defaultSettings(len(word))
	settings.Rounds = 1
	settings.VersusBot = true
	usernames := s.usernamesFor(deviceID)
	usernames[botPlayer.ID] = botPlayer.Username

	session, err := s.manager.CreateGame(deviceID, botPlayer.ID,
		[]string{word}, []string{botPlayer.SecretWord}, usernames, settings)
	if err != nil {
		log.Printf("机器人建局失败 %s: %v", deviceID, err)
		s.bots.RemoveBot(botPlayer.ID)
		return
	}

	s.notifyMatched(session, deviceID, botPlayer.ID)
	if err := s.manager.StartGame(session.SessionID); err != nil {
		log.Printf("开局失败 %s: %v", session.SessionID, err)
		return
	}

	// 机器人可能是先手
	s.driveBots(session.SessionID)
}

// fallBackToBot 配对落空后把仍在等待的玩家转入机器人对局
func (s *GameServer) fallBackToBot(deviceID string) {
	if s.matchQueue.SecretWord(deviceID) == "" {
		return
	}
	s.connections.Send(deviceID, &models.Message{
		Type: models.MsgInfo,
		Data: &models.InfoPayload{Message: "Opponent left, matching you with a bot"},
	})
	go s.startBotGame(deviceID, "")
}

// rescueMatchPartner 一方在取走配对前退出，为另一方兜底
func (s *GameServer) rescueMatchPartner(leaverID string, m *match.Match) {
	partner := m.Player1
	if partner == leaverID {
		partner = m.Player2
	}
	s.fallBackToBot(partner)
}

// notifyMatched 向双方通报匹配结果
func (s *GameServer) notifyMatched(session *models.GameSession, player1ID, player2ID string) {
	pairs := [][2]string{{player1ID, player2ID}, {player2ID, player1ID}}
	for _, pair := range pairs {
		player := session.GetPlayerByID(pair[0])
		if player == nil {
			continue
		}
		s.connections.Send(pair[0], &models.Message{
			Type: models.MsgMatched,
			Data: &models.MatchedPayload{
				GameID:     session.SessionID,
				PlayerID:   pair[0],
				OpponentID: pair[1],
				Role:       player.Role,
			},
		})
	}
}

// handleLobbyWS 好友大厅入口
// 路径为 /ws/lobby/{code}，code为new时生成新大厅码。
// 房主先进入并等待，第二名玩家到齐后自动开局。
func (s *GameServer) handleLobbyWS(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimPrefix(r.URL.Path, "/ws/lobby/")
	deviceID := r.URL.Query().Get("device_id")
	words := models.WordsList(strings.ToLower(r.URL.Query().Get("words")))
	if deviceID == "" || len(words) == 0 {
		http.Error(w, "missing device_id or words", http.StatusBadRequest)
		return
	}

	if code == "" || code == "new" {
		code = s.lobbies.GenerateCode()
	}
	l := s.lobbies.GetOrCreateLobby(code)

	channel, err := s.upgrade(w, r, deviceID)
	if err != nil {
		log.Printf("WebSocket升级失败: %v", err)
		return
	}

	becameHost, err := l.AddPlayer(deviceID, channel, words)
	if err != nil {
		s.connections.Send(deviceID, &models.Message{
			Type: models.MsgError,
			Data: &models.ErrorPayload{Message: "Lobby is full"},
		})
		s.connections.Disconnect(deviceID, "Lobby is full")
		return
	}

	if becameHost {
		s.applyLobbySettings(l, deviceID, r, len(words[0]))
		s.connections.Send(deviceID, &models.Message{
			Type: models.MsgWaiting,
			Data: &models.WaitingPayload{
				Message:    fmt.Sprintf("Lobby code: %s", code),
				WaitingFor: models.RolePlayer2,
			},
		})
		// 房主一侧负责等待开局
		go s.runLobby(l)
	}

	s.persistLobby(l)
	s.readLoop(deviceID, channel)
}

// applyLobbySettings 按房主的查询参数覆盖对局设置
func (s *GameServer) applyLobbySettings(l *lobby.Lobby, hostID string, r *http.Request, wordLength int) {
	settings := s.defaultSettings(wordLength)

	if v := r.URL.Query().Get("rounds"); v != "" {
		if rounds, err := strconv.Atoi(v); err == nil && rounds > 0 {
			settings.Rounds = rounds
		}
	}
	if v := r.URL.Query().Get("turn_time"); v != "" {
		if turnTime, err := strconv.Atoi(v); err == nil && turnTime > 0 {
			settings.TurnTimeLimit = turnTime
		}
	}

	if err := l.SetSettings(hostID, settings); err != nil {
		log.Printf("设置大厅 %s 参数失败: %v", l.Code, err)
	}
}

// runLobby 等待大厅就绪并开局
func (s *GameServer) runLobby(l *lobby.Lobby) {
	if err := l.WaitReady(s.config.Game.LobbyTimeoutDuration()); err != nil {
		for _, id := range l.PlayerIDs() {
			s.connections.Send(id, &models.Message{
				Type: models.MsgError,
				Data: &models.ErrorPayload{Message: "Lobby timed out"},
			})
			s.connections.Disconnect(id, "Lobby timed out")
		}
		s.lobbies.RemoveLobby(l.Code)
		return
	}

	ids := l.PlayerIDs()
	if len(ids) < 2 {
		s.lobbies.RemoveLobby(l.Code)
		return
	}
	hostID, guestID := ids[0], ids[1]

	settings := l.Settings()
	if settings == nil {
		defaults := s.defaultSettings(s.config.Game.DefaultWordLength)
		settings = &defaults
	}

	// 轮数不能超过双方提供的单词数，多余的单词截掉
	hostWords := l.SecretWords(hostID)
	guestWords := l.SecretWords(guestID)
	if len(hostWords) < settings.Rounds {
		settings.Rounds = len(hostWords)
	}
	if len(guestWords) < settings.Rounds {
		settings.Rounds = len(guestWords)
	}
	hostWords = hostWords[:settings.Rounds]
	guestWords = guestWords[:settings.Rounds]

	session, err := s.manager.CreateGame(hostID, guestID, hostWords, guestWords,
		s.usernamesFor(hostID, guestID), *settings)
	if err != nil {
		log.Printf("大厅 %s 建局失败: %v", l.Code, err)
		for _, id := range ids {
			s.sendError(id, ClientMessage(err))
		}
		s.lobbies.RemoveLobby(l.Code)
		return
	}

	s.persistLobbySession(l, session.SessionID)
	s.notifyMatched(session, hostID, guestID)
	if err := s.manager.StartGame(session.SessionID); err != nil {
		log.Printf("开局失败 %s: %v", session.SessionID, err)
	}
	s.lobbies.RemoveLobby(l.Code)
}

// persistLobby 大厅状态落库
func (s *GameServer) persistLobby(l *lobby.Lobby) {
	if s.lobbyStore == nil {
		return
	}

	record := &models.LobbyRecord{Code: l.Code}
	if settings := l.Settings(); settings != nil {
		record.TurnTimeLimit = settings.TurnTimeLimit
		record.WordLength = settings.WordLength
		record.Rounds = settings.Rounds
	}

	ids := l.PlayerIDs()
	if len(ids) > 0 {
		record.P1DeviceID = ids[0]
		record.P1Words = strings.Join(l.SecretWords(ids[0]), ",")
	}
	if len(ids) > 1 {
		record.P2DeviceID = ids[1]
		record.P2Words = strings.Join(l.SecretWords(ids[1]), ",")
	}

	if err := s.lobbyStore.Upsert(record); err != nil {
		log.Printf("大厅 %s 落库失败: %v", l.Code, err)
	}
}

// persistLobbySession 把建好的会话ID写回大厅记录
func (s *GameServer) persistLobbySession(l *lobby.Lobby, sessionID string) {
	if s.lobbyStore == nil {
		return
	}

	record, err := s.lobbyStore.GetByCode(l.Code)
	if err != nil {
		return
	}
	record.SessionID = sessionID
	if err := s.lobbyStore.Upsert(record); err != nil {
		log.Printf("大厅 %s 更新会话ID失败: %v", l.Code, err)
	}
}

// defaultSettings 基于配置的默认对局设置
func (s *GameServer) defaultSettings(wordLength int) models.GameSettings {
	settings := models.DefaultGameSettings()
	settings.WordLength = wordLength
	if s.config.Game.DefaultRounds > 0 {
		settings.Rounds = s.config.Game.DefaultRounds
	}
	if s.config.Game.TurnTimeLimit > 0 {
		settings.TurnTimeLimit = s.config.Game.TurnTimeLimit
	}
	return settings
}

// usernamesFor 批量获取显示名，查不到时退回设备ID
func (s *GameServer) usernamesFor(deviceIDs ...string) map[string]string {
	usernames := make(map[string]string, len(deviceIDs))
	for _, id := range deviceIDs {
		usernames[id] = id
		if info := s.connections.GetConnectionInfo(id); info != nil && info.User != nil {
			usernames[id] = info.User.Username
		}
	}
	return usernames
}

// readLoop 客户端消息主循环
// 纯文本帧按猜测处理，以'{'开头的帧按JSON信封解析。
func (s *GameServer) readLoop(deviceID string, channel ws.Channel) {
	defer s.handleConnectionClosed(deviceID, channel)

	for {
		data, err := channel.Receive()
		if err != nil {
			return
		}

		text := strings.TrimSpace(string(data))
		if text == "" {
			continue
		}

		if strings.HasPrefix(text, "{") {
			s.handleEnvelope(deviceID, []byte(text))
		} else {
			s.handleGuess(deviceID, text)
		}
	}
}

// handleConnectionClosed 连接断开后的清理
// 玩家可能已用新通道重连，只有当前通道仍然有效时才登记掉线。
func (s *GameServer) handleConnectionClosed(deviceID string, channel ws.Channel) {
	info := s.connections.GetConnectionInfo(deviceID)
	if info == nil || info.Channel != channel {
		return
	}

	if orphan := s.matchQueue.Remove(deviceID); orphan != nil {
		s.rescueMatchPartner(deviceID, orphan)
	}
	s.manager.MarkDisconnected(deviceID)
	s.connections.Disconnect(deviceID, "Connection closed")
}

// handleGuess 处理一次猜测，随后驱动机器人对手
func (s *GameServer) handleGuess(deviceID, guess string) {
	session := s.manager.GetPlayerGameSession(deviceID)
	if session == nil {
		s.connections.Send(deviceID, &models.Message{
			Type: models.MsgInfo,
			Data: &models.InfoPayload{Message: "You are not in an active game"},
		})
		return
	}

	if err := s.manager.Play(deviceID, guess); err != nil {
		log.Printf("处理猜测失败 %s: %v", deviceID, err)
		return
	}

	s.driveBots(session.SessionID)
}

// handleEnvelope 处理JSON信封消息
func (s *GameServer) handleEnvelope(deviceID string, data []byte) {
	var msg models.InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.sendError(deviceID, "Malformed message")
		return
	}

	payload, err := msg.DecodePayload()
	if err != nil {
		s.sendError(deviceID, "Unsupported message type")
		return
	}

	switch msg.Type {
	case models.MsgHeartbeat:
		s.connections.UpdateHeartbeat(deviceID)
	case models.MsgPause:
		s.manager.RequestPause(deviceID)
	case models.MsgResume:
		session := s.manager.GetPlayerGameSession(deviceID)
		resumed, _ := s.manager.RequestResume(deviceID)
		if resumed && session != nil {
			s.driveBots(session.SessionID)
		}
	case models.MsgLeaveGame:
		s.manager.LeaveGame(deviceID)
	case models.MsgCancelMatchmaking:
		if orphan := s.matchQueue.Remove(deviceID); orphan != nil {
			s.rescueMatchPartner(deviceID, orphan)
		}
		s.connections.Send(deviceID, &models.Message{
			Type: models.MsgInfo,
			Data: &models.InfoPayload{Message: "Matchmaking cancelled"},
		})
	case models.MsgPowerUp:
		if p, ok := payload.(*models.PowerUpPayload); ok {
			s.manager.UsePowerUp(deviceID, p)
		}
	default:
		s.sendError(deviceID, "Unsupported message type")
	}
}

// BotCleanupHandler 对局结束后回收机器人
type BotCleanupHandler struct {
	bots *bot.Manager
}

// NewBotCleanupHandler 创建机器人回收处理器
func NewBotCleanupHandler(bots *bot.Manager) *BotCleanupHandler {
	return &BotCleanupHandler{bots: bots}
}

// HandleGameEnd 移除会话中的机器人
func (h *BotCleanupHandler) HandleGameEnd(session *models.GameSession, outcome *models.GameOutcome) error {
	for playerID := range session.Players {
		if IsBot(playerID) {
			h.bots.RemoveBot(playerID)
		}
	}
	return nil
}

// sendError 发送错误通知
func (s *GameServer) sendError(deviceID, message string) {
	s.connections.Send(deviceID, &models.Message{
		Type: models.MsgError,
		Data: &models.ErrorPayload{Message: message},
	})
}

// driveBots 驱动会话中的机器人行动
// 每次行动只依赖会话锁内摘取的快照，快照过期时由Play兜底拒绝。
// 循环上限只是防御，双机器人对局并不存在。
func (s *GameServer) driveBots(sessionID string) {
	go func() {
		for i := 0; i < 8; i++ {
			view := s.manager.SnapshotBotTurn(sessionID)
			if view == nil {
				return
			}

			botPlayer := s.bots.GetBot(view.BotID)
			if botPlayer == nil {
				return
			}

			guess := botPlayer.Play(len(view.TargetWord), view.Attempts)
			if guess == "" {
				return
			}
			if err := s.manager.Play(view.BotID, guess); err != nil {
				log.Printf("机器人 %s 出手失败: %v", view.BotID, err)
				return
			}
		}
	}()
}
