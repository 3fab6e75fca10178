// manager.go

package game

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/jacl-coder/WordDuel-Server/internal/ai"
	"github.com/jacl-coder/WordDuel-Server/internal/models"
	"github.com/jacl-coder/WordDuel-Server/internal/ws"
)

// Redis键名
const (
	// SessionKeyPrefix 会话快照键前缀
	SessionKeyPrefix = "game:session:"
	// PlayerKeyPrefix 玩家到会话的反向索引键前缀
	PlayerKeyPrefix = "game:player:"
	// ActiveSessionsKey 活跃会话集合
	ActiveSessionsKey = "game:active_sessions"

	// 会话快照有效期
	sessionTTL = time.Hour

	// 回合超时巡检间隔
	turnSweepInterval = 10 * time.Second

	// 机器人标识前缀
	botIDPrefix = "bot_"
)

// Manager 对局会话管理器
// 内存中的会话是权威状态，Redis只存快照用于进程重启后恢复。
// 每个会话有独立的互斥锁，同一会话的操作串行执行，
// 不同会话互不阻塞。
type Manager struct {
	mu              sync.RWMutex
	activeGames     map[string]*models.GameSession
	playerToSession map[string]string

	locksMu      sync.Mutex
	sessionLocks map[string]*sync.Mutex

	connections *ws.Manager
	aiService   *ai.Service
	client      *redis.Client
	ctx         context.Context

	afterGameHandlers []AfterGameHandler

	// 机器人回合兜底巡检间隔，为0时使用默认值
	botSweepInterval time.Duration
	// 会话最长存活时间，超过后强制结束
	sessionMaxAge time.Duration

	shutdown  chan struct{}
	isRunning bool
}

// NewManager 创建会话管理器
func NewManager(connections *ws.Manager, client *redis.Client) *Manager {
	return &Manager{
		activeGames:     make(map[string]*models.GameSession),
		playerToSession: make(map[string]string),
		sessionLocks:    make(map[string]*sync.Mutex),
		connections:     connections,
		client:          client,
		ctx:             context.Background(),
		sessionMaxAge:   2 * time.Hour,
		shutdown:        make(chan struct{}),
	}
}

// SetAIService 注入词义服务
func (m *Manager) SetAIService(service *ai.Service) {
	m.aiService = service
}

// SetSessionMaxAge 设置会话最长存活时间
func (m *Manager) SetSessionMaxAge(maxAge time.Duration) {
	if maxAge > 0 {
		m.sessionMaxAge = maxAge
	}
}

// SetBotSweepInterval 设置机器人回合兜底巡检间隔
func (m *Manager) SetBotSweepInterval(interval time.Duration) {
	m.botSweepInterval = interval
}

// RegisterAfterGameHandler 注册对局结束后的处理器
func (m *Manager) RegisterAfterGameHandler(handler AfterGameHandler) {
	m.afterGameHandlers = append(m.afterGameHandlers, handler)
}

// Startup 恢复Redis中的会话快照并启动巡检协程
func (m *Manager) Startup() {
	if m.isRunning {
		return
	}
	m.isRunning = true

	m.restoreActiveGames()

	go m.turnSweepLoop()
	go m.botSweepLoop()

	log.Println("会话管理器已启动")
}

// Shutdown 强制结束所有会话并停止管理器
func (m *Manager) Shutdown() {
	if !m.isRunning {
		return
	}
	close(m.shutdown)
	m.isRunning = false

	m.mu.RLock()
	sessionIDs := make([]string, 0, len(m.activeGames))
	for id := range m.activeGames {
		sessionIDs = append(sessionIDs, id)
	}
	m.mu.RUnlock()

	for _, id := range sessionIDs {
		m.EndGame(id, "", "server_shutdown")
	}

	log.Println("会话管理器已停止")
}

// sessionLock 获取会话专属锁，不存在时创建
func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()

	lock, ok := m.sessionLocks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.sessionLocks[sessionID] = lock
	}
	return lock
}

// dropSessionLock 会话结束后释放锁记录
func (m *Manager) dropSessionLock(sessionID string) {
	m.locksMu.Lock()
	defer m.locksMu.Unlock()
	delete(m.sessionLocks, sessionID)
}

// IsBot 按ID前缀判断是否为机器人
func IsBot(playerID string) bool {
	return strings.HasPrefix(playerID, botIDPrefix)
}

// CreateGame 创建一场新对局
// 双方各自提供与轮数相同数量的秘密单词；任一方已在对局中时拒绝。
func (m *Manager) CreateGame(player1ID, player2ID string, p1Words, p2Words []string,
	usernames map[string]string, settings models.GameSettings) (*models.GameSession, error) {

	if player1ID == "" || player2ID == "" || player1ID == player2ID {
		return nil, newGameError("invalid_players", "Invalid player pairing")
	}
	if settings.Rounds <= 0 {
		settings.Rounds = 1
	}
	if err := validateWords(p1Words, settings); err != nil {
		return nil, fmt.Errorf("玩家 %s 的单词无效: %w", player1ID, err)
	}
	if err := validateWords(p2Words, settings); err != nil {
		return nil, fmt.Errorf("玩家 %s 的单词无效: %w", player2ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// 禁止一人同时参加多场对局
	for _, id := range []string{player1ID, player2ID} {
		if existing, ok := m.playerToSession[id]; ok {
			log.Printf("玩家 %s 已在对局 %s 中，拒绝创建", id, existing)
			return nil, newGameError("already_in_game", "Player is already in an active game")
		}
	}

	session := &models.GameSession{
		SessionID:    uuid.New().String(),
		CreatedAt:    time.Now(),
		CurrentRound: 1,
		State:        models.GameWaiting,
		Settings:     settings,
		ResumeVotes:  make(map[string]bool),
		Players: map[string]*models.PlayerInfo{
			player1ID: {
				PlayerID:    player1ID,
				Username:    usernames[player1ID],
				Role:        models.RolePlayer1,
				SecretWords: normalizeWords(p1Words),
				PowerUps:    defaultPowerUps(settings),
			},
			player2ID: {
				PlayerID:    player2ID,
				Username:    usernames[player2ID],
				Role:        models.RolePlayer2,
				SecretWords: normalizeWords(p2Words),
				PowerUps:    defaultPowerUps(settings),
			},
		},
	}

	// 对战机器人时人类先手，否则随机先手
	if IsBot(player2ID) {
		session.CurrentTurn = models.RolePlayer1
		session.Settings.VersusBot = true
	} else if rand.Intn(2) == 0 {
		session.CurrentTurn = models.RolePlayer1
	} else {
		session.CurrentTurn = models.RolePlayer2
	}

	m.activeGames[session.SessionID] = session
	m.playerToSession[player1ID] = session.SessionID
	m.playerToSession[player2ID] = session.SessionID

	m.saveSession(session)
	log.Printf("对局已创建: %s (%s vs %s)", session.SessionID, player1ID, player2ID)
	return session, nil
}

// validateWords 校验秘密单词的数量与长度，每轮恰好一个单词
func validateWords(words []string, settings models.GameSettings) error {
	if len(words) != settings.Rounds {
		return newGameError("invalid_words",
			fmt.Sprintf("Need %d secret words, got %d", settings.Rounds, len(words)))
	}
	for _, w := range words {
		if len(w) != settings.WordLength {
			return newGameError("invalid_words",
				fmt.Sprintf("Word %q is not %d letters", w, settings.WordLength))
		}
	}
	return nil
}

// normalizeWords 统一小写
func normalizeWords(words []string) []string {
	out := make([]string, len(words))
	for i, w := range words {
		out[i] = strings.ToLower(strings.TrimSpace(w))
	}
	return out
}

// defaultPowerUps 对局内的初始道具
func defaultPowerUps(settings models.GameSettings) []models.PowerUp {
	if !settings.AllowPowerUps {
		return nil
	}
	return []models.PowerUp{
		{Type: models.PowerUpRevealLetter, Remaining: 1},
		{Type: models.PowerUpFishOut, Remaining: 1},
		{Type: models.PowerUpAIMeaning, Remaining: 1},
	}
}

// StartGame 开始对局
// 双方各收到一条个性化的init消息，对手的秘密单词被隐去。
func (m *Manager) StartGame(sessionID string) error {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session := m.GetGameSession(sessionID)
	if session == nil {
		return newGameError("session_not_found", "Game session not found")
	}
	if session.State != models.GameWaiting {
		log.Printf("对局 %s 状态为 %s，无法开始", sessionID, session.State)
		return newGameError("invalid_state", "Game cannot be started in its current state")
	}

	session.State = models.GameInProgress
	for _, p := range session.Players {
		p.Connected = true
	}
	expires := time.Now().Add(time.Duration(session.Settings.TurnTimeLimit) * time.Second)
	session.TurnTimerExpiresAt = &expires

	for _, playerID := range session.PlayerIDs() {
		m.connections.Send(playerID, &models.Message{
			Type: models.MsgInit,
			Data: m.buildStateView(session, playerID),
		})
	}

	m.saveSession(session)
	log.Printf("对局 %s 已开始，先手: %s", sessionID, session.CurrentTurn)
	return nil
}

// Play 处理一次猜测
// 状态不对、没轮到自己或长度不符时回info提示而不是错误，
// 客户端的过期输入不应中断连接。
func (m *Manager) Play(playerID, guess string) error {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return m.sendInfo(playerID, "You are not in an active game")
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	// 拿锁后重新校验状态
	if session.State != models.GameInProgress {
		return m.sendInfo(playerID, "Game is not in progress")
	}
	if !session.IsPlayerTurn(playerID) {
		return m.sendInfo(playerID, "Not your turn")
	}

	opponent := session.GetOpponent(playerID)
	if opponent == nil {
		return m.sendInfo(playerID, "Opponent not found")
	}
	target := session.GetCurrentWord(opponent.PlayerID)

	guess = strings.ToLower(strings.TrimSpace(guess))
	if len(guess) != len(target) {
		return m.sendInfo(playerID, fmt.Sprintf("Guess must be %d letters", len(target)))
	}

	result, err := EvaluateGuess(target, guess)
	if err != nil {
		return m.sendInfo(playerID, "Invalid guess")
	}

	player := session.GetPlayerByID(playerID)
	attempt := models.GuessAttempt{
		PlayerID:  playerID,
		Guess:     guess,
		Result:    result,
		Timestamp: time.Now(),
	}
	player.Attempts = append(player.Attempts, attempt)

	if result.IsCorrect() {
		player.Score++

		if session.IsLastRound() {
			winnerID, reason := decideWinner(session)
			m.saveSession(session)
			m.endGameLocked(session, winnerID, reason)
			return nil
		}

		// 进入下一轮，猜中方失去行动权
		session.NextRound()
		session.NextTurn()
		m.broadcast(session, &models.Message{
			Type: models.MsgResult,
			Data: &models.ResultPayload{
				RoundWinner: playerID,
				Guess:       guess,
				Result:      &attempt,
			},
		})
		m.broadcastTurn(session)
	} else {
		session.NextTurn()
		m.broadcast(session, &models.Message{
			Type: models.MsgGuess,
			Data: &models.GuessPayload{
				AttemptResult: &attempt,
				CurrentTurn:   session.CurrentTurn,
			},
		})
	}

	m.saveSession(session)
	return nil
}

// decideWinner 最后一轮结束时按得分判定胜者，平分为平局
func decideWinner(session *models.GameSession) (string, string) {
	p1 := session.GetPlayerByRole(models.RolePlayer1)
	p2 := session.GetPlayerByRole(models.RolePlayer2)

	switch {
	case p1.Score > p2.Score:
		return p1.PlayerID, "win"
	case p2.Score > p1.Score:
		return p2.PlayerID, "win"
	default:
		return "", "draw"
	}
}

// UsePowerUp 处理道具使用请求，结果只发给使用者
func (m *Manager) UsePowerUp(playerID string, payload *models.PowerUpPayload) error {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return m.sendInfo(playerID, "You are not in an active game")
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if session.State != models.GameInProgress {
		return m.sendInfo(playerID, "Game is not in progress")
	}
	if !session.IsPlayerTurn(playerID) {
		return m.sendInfo(playerID, "Power-ups can only be used on your turn")
	}

	player := session.GetPlayerByID(playerID)
	powerUp := player.GetPowerUp(payload.PowerUpType)
	if powerUp == nil || powerUp.Remaining <= 0 {
		return m.sendInfo(playerID, "No uses remaining for this power-up")
	}

	opponent := session.GetOpponent(playerID)
	target := session.GetCurrentWord(opponent.PlayerID)

	result := &models.PowerUpResult{Type: payload.PowerUpType}
	switch payload.PowerUpType {
	case models.PowerUpRevealLetter:
		revealed, err := RevealLetter(target, payload.RevealedIndices)
		if err != nil {
			return m.sendInfo(playerID, "All letters already revealed")
		}
		result.RevealedLetter = revealed
	case models.PowerUpFishOut:
		letter, err := FishOut(target, payload.FishedLetters)
		if err != nil {
			return m.sendInfo(playerID, "No letters left to rule out")
		}
		result.FishedLetter = letter
	case models.PowerUpAIMeaning:
		if m.aiService == nil {
			return m.sendInfo(playerID, "Definition service unavailable")
		}
		result.AIMeaning = m.aiService.GetWordMeaning(target)
	default:
		return m.sendInfo(playerID, "Unknown power-up")
	}

	powerUp.Remaining--
	m.saveSession(session)

	return m.connections.Send(playerID, &models.Message{
		Type: models.MsgPowerUpResult,
		Data: &models.PowerUpResultPayload{
			PowerUpType: payload.PowerUpType,
			Result:      result,
		},
	})
}

// RequestPause 请求暂停对局
// 暂停冻结回合计时，恢复需要全体玩家同意。
func (m *Manager) RequestPause(playerID string) error {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return m.sendInfo(playerID, "You are not in an active game")
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if session.State != models.GameInProgress {
		return m.sendInfo(playerID, "Game cannot be paused now")
	}

	session.State = models.GamePaused
	session.TurnTimerExpiresAt = nil
	session.ResumeVotes = make(map[string]bool)

	m.broadcast(session, &models.Message{
		Type: models.MsgPause,
		Data: &models.PausePayload{
			State:       models.GamePaused,
			RequestedBy: playerID,
		},
	})

	m.saveSession(session)
	log.Printf("对局 %s 已由 %s 暂停", session.SessionID, playerID)
	return nil
}

// RequestResume 投票恢复对局
// 机器人自动同意，全体同意后对局恢复并重置回合计时。
func (m *Manager) RequestResume(playerID string) (bool, error) {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return false, m.sendInfo(playerID, "You are not in an active game")
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if session.State != models.GamePaused {
		return false, m.sendInfo(playerID, "Game is not paused")
	}

	if session.ResumeVotes == nil {
		session.ResumeVotes = make(map[string]bool)
	}
	session.ResumeVotes[playerID] = true
	for _, id := range session.PlayerIDs() {
		if IsBot(id) {
			session.ResumeVotes[id] = true
		}
	}

	if len(session.ResumeVotes) < len(session.Players) {
		votes := make([]string, 0, len(session.ResumeVotes))
		for id := range session.ResumeVotes {
			votes = append(votes, id)
		}
		m.broadcast(session, &models.Message{
			Type: models.MsgPause,
			Data: &models.PausePayload{
				State:       models.GamePaused,
				RequestedBy: playerID,
				ResumeVotes: votes,
			},
		})
		m.saveSession(session)
		return false, nil
	}

	session.State = models.GameInProgress
	session.ResumeVotes = make(map[string]bool)
	expires := time.Now().Add(time.Duration(session.Settings.TurnTimeLimit) * time.Second)
	session.TurnTimerExpiresAt = &expires

	m.broadcast(session, &models.Message{
		Type: models.MsgResume,
		Data: &models.PausePayload{
			State:       models.GameInProgress,
			RequestedBy: playerID,
		},
	})

	m.saveSession(session)
	log.Printf("对局 %s 已恢复", session.SessionID)
	return true, nil
}

// HandleReconnect 玩家重连后补发完整对局状态
func (m *Manager) HandleReconnect(playerID string) bool {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return false
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if player := session.GetPlayerByID(playerID); player != nil {
		player.Connected = true
	}

	m.connections.Send(playerID, &models.Message{
		Type: models.MsgGameState,
		Data: m.buildStateView(session, playerID),
	})
	m.saveSession(session)
	return true
}

// BotTurnView 驱动机器人行动所需的会话快照
// 在会话锁内构造，调用方可以在锁外安全读取。
type BotTurnView struct {
	BotID      string
	TargetWord string
	Attempts   []*models.GuessResult
}

// SnapshotBotTurn 为当前的机器人回合生成快照
// 对局不在进行中或当前不是机器人回合时返回nil。
func (m *Manager) SnapshotBotTurn(sessionID string) *BotTurnView {
	session := m.GetGameSession(sessionID)
	if session == nil {
		return nil
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if session.State != models.GameInProgress {
		return nil
	}
	current := session.GetCurrentPlayer()
	if current == nil || !IsBot(current.PlayerID) {
		return nil
	}
	opponent := session.GetOpponent(current.PlayerID)
	if opponent == nil {
		return nil
	}
	target := session.GetCurrentWord(opponent.PlayerID)
	if target == "" {
		return nil
	}

	attempts := make([]*models.GuessResult, 0, len(current.Attempts))
	for _, a := range current.Attempts {
		attempts = append(attempts, a.Result)
	}
	return &BotTurnView{
		BotID:      current.PlayerID,
		TargetWord: target,
		Attempts:   attempts,
	}
}

// MarkDisconnected 记录玩家掉线，对局继续等待其重连
func (m *Manager) MarkDisconnected(playerID string) {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	if player := session.GetPlayerByID(playerID); player != nil {
		player.Connected = false
	}
	m.saveSession(session)
}

// LeaveGame 玩家主动退出，对手获胜
func (m *Manager) LeaveGame(playerID string) bool {
	session := m.GetPlayerGameSession(playerID)
	if session == nil {
		return false
	}

	lock := m.sessionLock(session.SessionID)
	lock.Lock()
	defer lock.Unlock()

	var winnerID string
	if opponent := session.GetOpponent(playerID); opponent != nil {
		winnerID = opponent.PlayerID
	}
	return m.endGameLocked(session, winnerID, "opponent_left")
}

// EndGame 结束对局，重复调用安全返回false
func (m *Manager) EndGame(sessionID, winnerID, reason string) bool {
	lock := m.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	session := m.GetGameSession(sessionID)
	if session == nil {
		return false
	}
	return m.endGameLocked(session, winnerID, reason)
}

// endGameLocked 在持有会话锁的前提下结束对局
func (m *Manager) endGameLocked(session *models.GameSession, winnerID, reason string) bool {
	if session.State == models.GameOver {
		return false
	}

	session.State = models.GameOver
	session.TurnTimerExpiresAt = nil
	outcome := &models.GameOutcome{
		WinnerID:    winnerID,
		Reason:      reason,
		CompletedAt: time.Now(),
	}
	session.Outcome = outcome

	var winner *models.PlayerInfo
	if winnerID != "" {
		winner = session.GetPlayerByID(winnerID)
	}
	m.broadcast(session, &models.Message{
		Type: models.MsgGameOver,
		Data: &models.GameOverPayload{
			WinnerID: winnerID,
			Winner:   winner,
			Reason:   reason,
		},
	})

	// 结算处理器逐个执行，单个失败不影响其余
	for _, handler := range m.afterGameHandlers {
		if err := handler.HandleGameEnd(session, outcome); err != nil {
			log.Printf("对局 %s 结算处理失败: %v", session.SessionID, err)
		}
	}

	playerIDs := session.PlayerIDs()
	m.connections.DisconnectAll(playerIDs, "Game over")

	m.mu.Lock()
	delete(m.activeGames, session.SessionID)
	for _, id := range playerIDs {
		delete(m.playerToSession, id)
	}
	m.mu.Unlock()

	m.cleanupSessionData(session.SessionID, playerIDs)
	m.dropSessionLock(session.SessionID)

	log.Printf("对局 %s 已结束: winner=%s reason=%s", session.SessionID, winnerID, reason)
	return true
}

// GetGameSession 查询会话，内存未命中时尝试Redis快照
func (m *Manager) GetGameSession(sessionID string) *models.GameSession {
	m.mu.RLock()
	session, ok := m.activeGames[sessionID]
	m.mu.RUnlock()
	if ok {
		return session
	}

	session = m.loadSession(sessionID)
	if session == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.activeGames[sessionID]; ok {
		return existing
	}
	m.activeGames[sessionID] = session
	for _, id := range session.PlayerIDs() {
		m.playerToSession[id] = sessionID
	}
	return session
}

// GetPlayerGameSession 查询玩家所在的会话
func (m *Manager) GetPlayerGameSession(playerID string) *models.GameSession {
	m.mu.RLock()
	sessionID, ok := m.playerToSession[playerID]
	m.mu.RUnlock()

	if !ok {
		sessionID = m.loadPlayerSessionID(playerID)
		if sessionID == "" {
			return nil
		}
	}
	return m.GetGameSession(sessionID)
}

// ActiveGameCount 当前活跃对局数
func (m *Manager) ActiveGameCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.activeGames)
}

// sendInfo 向玩家发送提示消息
func (m *Manager) sendInfo(playerID, message string) error {
	return m.connections.Send(playerID, &models.Message{
		Type: models.MsgInfo,
		Data: &models.InfoPayload{Message: message},
	})
}

// broadcast 向会话内全部玩家发送消息
func (m *Manager) broadcast(session *models.GameSession, msg *models.Message) {
	m.connections.Broadcast(session.PlayerIDs(), msg)
}

// broadcastTurn 广播当前行动方
func (m *Manager) broadcastTurn(session *models.GameSession) {
	current := session.GetCurrentPlayer()
	if current == nil {
		return
	}
	m.broadcast(session, &models.Message{
		Type: models.MsgTurn,
		Data: &models.TurnPayload{
			PlayerID:    current.PlayerID,
			CurrentTurn: session.CurrentTurn,
		},
	})
}

// buildStateView 构造发给某个玩家的会话视图
// 对手的秘密单词被隐去，其余状态完整返回。
func (m *Manager) buildStateView(session *models.GameSession, viewerID string) *models.GameSession {
	view := &models.GameSession{
		SessionID:          session.SessionID,
		CreatedAt:          session.CreatedAt,
		CurrentTurn:        session.CurrentTurn,
		CurrentRound:       session.CurrentRound,
		State:              session.State,
		Settings:           session.Settings,
		TurnTimerExpiresAt: session.TurnTimerExpiresAt,
		Outcome:            session.Outcome,
		Players:            make(map[string]*models.PlayerInfo, len(session.Players)),
	}

	for id, p := range session.Players {
		copied := *p
		if id != viewerID {
			copied.SecretWords = nil
		}
		view.Players[id] = &copied
	}
	return view
}

// turnSweepLoop 巡检回合超时与超龄会话
func (m *Manager) turnSweepLoop() {
	ticker := time.NewTicker(turnSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepExpired()
		case <-m.shutdown:
			return
		}
	}
}

// sweepExpired 回合超时判负，会话超龄强制结束
// 状态检查与结束动作都在会话锁内完成，避免与Play交错。
func (m *Manager) sweepExpired() {
	m.mu.RLock()
	sessions := make([]*models.GameSession, 0, len(m.activeGames))
	for _, s := range m.activeGames {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, session := range sessions {
		lock := m.sessionLock(session.SessionID)
		lock.Lock()

		switch {
		case now.Sub(session.CreatedAt) > m.sessionMaxAge:
			log.Printf("对局 %s 超过最长存活时间，强制结束", session.SessionID)
			m.endGameLocked(session, "", "session_expired")

		case session.State == models.GameInProgress && session.TurnExpired(now):
			// 机器人回合超时交给botSweepLoop处理
			current := session.GetCurrentPlayer()
			if current != nil && !IsBot(current.PlayerID) {
				var winnerID string
				if opponent := session.GetOpponent(current.PlayerID); opponent != nil {
					winnerID = opponent.PlayerID
				}
				log.Printf("对局 %s 玩家 %s 回合超时", session.SessionID, current.PlayerID)
				m.endGameLocked(session, winnerID, "turn_timeout")
			}
		}

		lock.Unlock()
	}
}

// botSweepLoop 机器人回合兜底巡检
// 正常情况下机器人在人类行动后被内联驱动，这里只兜住
// 驱动失败导致机器人卡住回合的情况，超时后直接跳过其回合。
func (m *Manager) botSweepLoop() {
	interval := m.botSweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.sweepStuckBots()
		case <-m.shutdown:
			return
		}
	}
}

// sweepStuckBots 跳过卡住的机器人回合
func (m *Manager) sweepStuckBots() {
	m.mu.RLock()
	sessions := make([]*models.GameSession, 0, len(m.activeGames))
	for _, s := range m.activeGames {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	now := time.Now()
	for _, session := range sessions {
		lock := m.sessionLock(session.SessionID)
		lock.Lock()

		current := session.GetCurrentPlayer()
		if session.State == models.GameInProgress &&
			current != nil && IsBot(current.PlayerID) &&
			session.TurnExpired(now) {

			log.Printf("对局 %s 机器人 %s 回合卡住，跳过", session.SessionID, current.PlayerID)
			session.NextTurn()
			m.broadcastTurn(session)
			m.saveSession(session)
		}

		lock.Unlock()
	}
}

// saveSession 将会话快照写入Redis
func (m *Manager) saveSession(session *models.GameSession) {
	if m.client == nil {
		return
	}

	data, err := json.Marshal(session)
	if err != nil {
		log.Printf("序列化会话 %s 失败: %v", session.SessionID, err)
		return
	}

	if err := m.client.Set(m.ctx, SessionKeyPrefix+session.SessionID, data, sessionTTL).Err(); err != nil {
		log.Printf("保存会话 %s 快照失败: %v", session.SessionID, err)
		return
	}
	for _, id := range session.PlayerIDs() {
		m.client.Set(m.ctx, PlayerKeyPrefix+id, session.SessionID, sessionTTL)
	}
	m.client.SAdd(m.ctx, ActiveSessionsKey, session.SessionID)
}

// loadSession 从Redis加载会话快照
func (m *Manager) loadSession(sessionID string) *models.GameSession {
	if m.client == nil {
		return nil
	}

	data, err := m.client.Get(m.ctx, SessionKeyPrefix+sessionID).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("读取会话 %s 快照失败: %v", sessionID, err)
		}
		return nil
	}

	session := &models.GameSession{}
	if err := json.Unmarshal(data, session); err != nil {
		log.Printf("解析会话 %s 快照失败: %v", sessionID, err)
		return nil
	}
	return session
}

// loadPlayerSessionID 从Redis查玩家的会话索引
func (m *Manager) loadPlayerSessionID(playerID string) string {
	if m.client == nil {
		return ""
	}

	sessionID, err := m.client.Get(m.ctx, PlayerKeyPrefix+playerID).Result()
	if err != nil {
		return ""
	}
	return sessionID
}

// cleanupSessionData 清除会话在Redis中的快照与索引
func (m *Manager) cleanupSessionData(sessionID string, playerIDs []string) {
	if m.client == nil {
		return
	}

	keys := []string{SessionKeyPrefix + sessionID}
	for _, id := range playerIDs {
		keys = append(keys, PlayerKeyPrefix+id)
	}
	m.client.Del(m.ctx, keys...)
	m.client.SRem(m.ctx, ActiveSessionsKey, sessionID)
}

// restoreActiveGames 进程重启后从Redis恢复会话
// 恢复的会话里所有玩家标记为离线，等待各自重连。
func (m *Manager) restoreActiveGames() {
	if m.client == nil {
		return
	}

	sessionIDs, err := m.client.SMembers(m.ctx, ActiveSessionsKey).Result()
	if err != nil {
		log.Printf("读取活跃会话集合失败: %v", err)
		return
	}

	restored := 0
	for _, sessionID := range sessionIDs {
		session := m.loadSession(sessionID)
		if session == nil || session.State == models.GameOver {
			m.client.SRem(m.ctx, ActiveSessionsKey, sessionID)
			continue
		}

		for _, p := range session.Players {
			if !IsBot(p.PlayerID) {
				p.Connected = false
			}
		}

		m.mu.Lock()
		m.activeGames[sessionID] = session
		for _, id := range session.PlayerIDs() {
			m.playerToSession[id] = sessionID
		}
		m.mu.Unlock()
		restored++
	}

	if restored > 0 {
		log.Printf("已从Redis恢复 %d 场对局", restored)
	}
}
