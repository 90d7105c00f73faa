package puyo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket" // WebSocketライブラリのインポート

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/database"
)

// セッション関連のエラー
var (
	ErrRoomNotFound   = errors.New("room not found")
	ErrRoomNotWaiting = errors.New("room is not waiting for players")
	ErrNotRoomOwner   = errors.New("user is not the owner of this room")
)

// セッションの状態
const (
	StatusWaiting  = "waiting"
	StatusPlaying  = "playing"
	StatusFinished = "finished"
)

// Client はWebSocket接続を持つ単一のクライアントを表します。
type Client struct {
	UserID string          // このクライアントに紐づくユーザーのID
	Conn   *websocket.Conn // クライアントとの実際のWebSocketコネクション
	Send   chan []byte     // クライアントへメッセージを送信するためのバッファ付きチャネル
	RoomID string          // このクライアントが現在参加しているルームのID
	closed bool            // チャネルが閉じられたかどうかのフラグ
	mu     sync.Mutex      // closedフラグ保護用
}

// SafeSend は安全にチャネルにメッセージを送信します（closedチェック付き）
func (c *Client) SafeSend(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false // 既に閉じられている
	}

	select {
	case c.Send <- message:
		return true // 送信成功
	default:
		return false // チャネルがフル
	}
}

// SafeClose は安全にチャネルを閉じます
func (c *Client) SafeClose() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.closed {
		close(c.Send)
		c.closed = true
	}
}

func (c *Client) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// PlayerInputEvent はクライアントからの操作入力を表す構造体です。
type PlayerInputEvent struct {
	UserID string `json:"-"`      // 操作を行ったプレイヤーのID（サーバー側で設定）
	RoomID string `json:"-"`      // 操作対象のルームID（サーバー側で設定）
	Action string `json:"action"` // "move_left", "rotate_cw", "hard_drop" など
}

// GameSession は1人用のゲーム部屋です。
type GameSession struct {
	ID        string
	OwnerID   string
	State     *PlayerGameState // Run ゴルーチンだけが操作する
	Status    string
	StartedAt time.Time
	EndedAt   time.Time

	snapshot            *LightweightGameState // sm.mu で保護
	ticksSinceBroadcast int
}

// LightweightGameState はWebSocket送信用の軽量なゲーム状態構造体です。
type LightweightGameState struct {
	ID        string                  `json:"id"`
	Status    string                  `json:"status"`
	Player    *LightweightPlayerState `json:"player"`
	StartedAt time.Time               `json:"started_at,omitempty"`
	EndedAt   time.Time               `json:"ended_at,omitempty"`
}

// ToLightweight はGameSessionから軽量な構造体に変換します。
func (gs *GameSession) ToLightweight() *LightweightGameState {
	return &LightweightGameState{
		ID:        gs.ID,
		Status:    gs.Status,
		Player:    gs.State.ToLightweight(),
		StartedAt: gs.StartedAt,
		EndedAt:   gs.EndedAt,
	}
}

// SessionSettings はゲームループの速度設定です。
type SessionSettings struct {
	TickInterval        time.Duration // 1ティックの実時間
	BroadcastEveryTicks int           // 何ティックごとに状態を送信するか
}

// SessionManager はゲームセッションとWebSocketクライアント接続の全体を管理します。
// ゲーム状態の更新はすべて Run ゴルーチンの中で行われます。
type SessionManager struct {
	sessions    map[string]*GameSession // roomID -> GameSession
	clients     map[string]*Client      // userID -> Client
	register    chan *Client
	unregister  chan *Client
	inputEvents chan PlayerInputEvent
	quit        chan struct{}
	done        chan struct{}
	mu          sync.RWMutex // sessions, clients, snapshot を保護
	resultRepo  database.ResultRepository
	settings    SessionSettings
	newSeed     func() int64
	shutdown    sync.Once
}

// NewSessionManager は新しい SessionManager インスタンスを作成し、そのメインイベントループをバックグラウンドで開始します。
//
// Parameters:
//   resultRepo : ゲーム結果の保存先（nil の場合は保存しない）
//   settings   : ゲームループの速度設定
// Returns:
//   *SessionManager: 初期化されたセッションマネージャーのポインタ
func NewSessionManager(resultRepo database.ResultRepository, settings SessionSettings) *SessionManager {
	if settings.TickInterval <= 0 {
		settings.TickInterval = 16 * time.Millisecond
	}
	if settings.BroadcastEveryTicks <= 0 {
		settings.BroadcastEveryTicks = 1
	}
	sm := &SessionManager{
		sessions:    make(map[string]*GameSession),
		clients:     make(map[string]*Client),
		register:    make(chan *Client),
		unregister:  make(chan *Client),
		inputEvents: make(chan PlayerInputEvent, 512),
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		resultRepo:  resultRepo,
		settings:    settings,
		newSeed:     func() int64 { return time.Now().UnixNano() },
	}
	go sm.Run() // SessionManager のメインイベントループをゴルーチンで開始
	return sm
}

// Run は SessionManager のメインイベントループです。
// クライアントの登録/解除、プレイヤー入力、ティックの進行、状態のブロードキャストを処理します。
func (sm *SessionManager) Run() {
	defer close(sm.done)

	ticker := time.NewTicker(sm.settings.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-sm.register:
			if client.isClosed() {
				continue // 登録前に切断された
			}
			sm.mu.Lock()
			if existing, ok := sm.clients[client.UserID]; ok && existing != client {
				log.Printf("[SessionManager] Replacing existing connection for user %s", client.UserID)
				existing.SafeClose()
			}
			sm.clients[client.UserID] = client
			sm.mu.Unlock()
			log.Printf("[SessionManager] Client registered: %s (Room: %s)", client.UserID, client.RoomID)

			sm.CheckAndStartGame(client.RoomID)
			sm.sendTo(client)

		case client := <-sm.unregister:
			sm.mu.Lock()
			registered, ok := sm.clients[client.UserID]
			current := ok && registered == client
			if current {
				delete(sm.clients, client.UserID)
			}
			client.SafeClose()
			session, hasSession := sm.sessions[client.RoomID]
			sm.mu.Unlock()

			if !current {
				continue // 再接続で置き換えられた古い接続
			}
			log.Printf("[SessionManager] Client unregistered: %s (Room: %s)", client.UserID, client.RoomID)

			// プレイヤーがゲーム中に退出した場合、セッションを終了させる
			if hasSession && session.Status == StatusPlaying {
				log.Printf("[SessionManager] Player %s left room %s during game. Ending session.", client.UserID, client.RoomID)
				sm.EndGameSession(client.RoomID)
			}

		case event := <-sm.inputEvents:
			sm.mu.RLock()
			session, ok := sm.sessions[event.RoomID]
			sm.mu.RUnlock()
			if !ok || session.Status != StatusPlaying || session.OwnerID != event.UserID {
				continue // 存在しないか、プレイ中でない部屋への入力は無視
			}

			action, err := ParseAction(event.Action)
			if err != nil {
				log.Printf("[SessionManager] Dropping input from user %s: %v (%q)", event.UserID, err, event.Action)
				continue
			}
			if ApplyPlayerInput(session.State, action) {
				// 自分の操作は即座に反映する
				sm.publish(session)
			}

		case <-ticker.C:
			sm.tickSessions()

		case <-sm.quit:
			log.Printf("[SessionManager] シャットダウンシグナルを受信、メインループを終了します")
			return
		}
	}
}

// tickSessions はプレイ中の全セッションを1ティック進めます。
func (sm *SessionManager) tickSessions() {
	sm.mu.RLock()
	active := make([]*GameSession, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		if session.Status == StatusPlaying {
			active = append(active, session)
		}
	}
	sm.mu.RUnlock()

	for _, session := range active {
		session.State.Tick()
		session.ticksSinceBroadcast++

		if session.State.IsGameOver {
			sm.EndGameSession(session.ID)
			continue
		}
		if session.ticksSinceBroadcast >= sm.settings.BroadcastEveryTicks {
			sm.publish(session)
		}
	}
}

// CreateSession は新しい1人用のゲームセッションを作成します。
//
// Parameters:
//   ownerID : 部屋を作成したプレイヤーのユーザーID
// Returns:
//   string: 作成されたルームのID
//   error : エラーが発生した場合
func (sm *SessionManager) CreateSession(ownerID string) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}
	roomID := uuid.New().String()

	session := &GameSession{
		ID:      roomID,
		OwnerID: ownerID,
		State:   NewPlayerGameState(ownerID, sm.newSeed()),
		Status:  StatusWaiting,
	}
	session.snapshot = session.ToLightweight()

	sm.mu.Lock()
	sm.sessions[roomID] = session
	sm.mu.Unlock()

	log.Printf("[SessionManager] Created new game session: %s for player %s", roomID, ownerID)
	return roomID, nil
}

// GetRoomStatus は指定されたルームの最新のスナップショットを返します。
func (sm *SessionManager) GetRoomStatus(roomID string) (*LightweightGameState, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return session.snapshot, nil
}

// CanJoin はユーザーが指定された部屋にWebSocketで接続できるかを確認します。
func (sm *SessionManager) CanJoin(roomID, userID string) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, ok := sm.sessions[roomID]
	if !ok {
		return ErrRoomNotFound
	}
	if session.OwnerID != userID {
		return ErrNotRoomOwner
	}
	if session.Status == StatusFinished {
		return ErrRoomNotWaiting
	}
	return nil
}

// CheckAndStartGame は部屋の持ち主が接続済みであればゲームを開始します。
func (sm *SessionManager) CheckAndStartGame(roomID string) {
	sm.mu.Lock()
	session, ok := sm.sessions[roomID]
	if !ok || session.Status != StatusWaiting {
		sm.mu.Unlock()
		return
	}
	if _, connected := sm.clients[session.OwnerID]; !connected {
		sm.mu.Unlock()
		return
	}
	session.Status = StatusPlaying
	session.StartedAt = time.Now()
	session.snapshot = session.ToLightweight()
	sm.mu.Unlock()

	log.Printf("[SessionManager] Game session %s started for player %s", roomID, session.OwnerID)
}

// RegisterClient は新しいWebSocketクライアントをSessionManagerに登録します。
//
// Parameters:
//   roomID : クライアントが参加するルームのID
//   userID : クライアントのユーザーID
//   conn   : WebSocketコネクション
// Returns:
//   error: エラーが発生した場合
func (sm *SessionManager) RegisterClient(roomID, userID string, conn *websocket.Conn) error {
	if err := sm.CanJoin(roomID, userID); err != nil {
		return fmt.Errorf("failed to register client %s to room %s: %w", userID, roomID, err)
	}

	client := &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 512),
		RoomID: roomID,
	}

	go sm.readPump(client)
	go client.writePump()

	select {
	case sm.register <- client:
	case <-sm.quit:
		client.SafeClose()
		return errors.New("session manager is shutting down")
	}
	return nil
}

// readPump はクライアントからのWebSocketメッセージを読み込み、 inputEvents チャネルに送信します。
func (sm *SessionManager) readPump(client *Client) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[SessionManager] Panic in readPump for user %s: %v", client.UserID, r)
		}
		select {
		case sm.unregister <- client:
		case <-sm.quit:
		}
		client.Conn.Close()
	}()

	client.Conn.SetReadLimit(1024)
	client.Conn.SetReadDeadline(time.Now().Add(300 * time.Second))
	client.Conn.SetPongHandler(func(string) error {
		client.Conn.SetReadDeadline(time.Now().Add(300 * time.Second))
		return nil
	})

	for {
		_, message, err := client.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[SessionManager] WebSocket unexpected close error for user %s: %v", client.UserID, err)
			}
			return
		}
		if len(message) == 0 {
			continue
		}

		var inputEvent PlayerInputEvent
		if err := json.Unmarshal(message, &inputEvent); err != nil {
			log.Printf("[SessionManager] Failed to unmarshal input message from %s: %v", client.UserID, err)
			continue
		}
		// 受信したメッセージのUserIDとRoomIDは接続情報で上書きする
		inputEvent.UserID = client.UserID
		inputEvent.RoomID = client.RoomID

		select {
		case sm.inputEvents <- inputEvent:
		default:
			log.Printf("[SessionManager] Input events channel is full, dropping message from user %s", client.UserID)
		}
	}
}

// writePump は Client の Send チャネルからのメッセージをWebSocketコネクションに書き込みます。
func (c *Client) writePump() {
	ticker := time.NewTicker(60 * time.Second)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				// マネージャーがチャネルを閉じた
				c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[Client] Error writing message for user %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// publish はセッションのスナップショットを更新し、部屋のクライアントに送信します。
func (sm *SessionManager) publish(session *GameSession) {
	snapshot := session.ToLightweight()
	session.ticksSinceBroadcast = 0

	stateJSON, err := json.Marshal(snapshot)
	if err != nil {
		log.Printf("[SessionManager] Error marshaling game state for room %s: %v", session.ID, err)
		return
	}

	sm.mu.Lock()
	session.snapshot = snapshot
	client := sm.clients[session.OwnerID]
	sm.mu.Unlock()

	if client != nil && client.RoomID == session.ID {
		if !client.SafeSend(stateJSON) {
			log.Printf("[SessionManager] Failed to send to client %s (channel closed or full)", client.UserID)
		}
	}
}

// sendTo は1つのクライアントに部屋の現在の状態を送信します。
func (sm *SessionManager) sendTo(client *Client) {
	sm.mu.RLock()
	session, ok := sm.sessions[client.RoomID]
	var snapshot *LightweightGameState
	if ok {
		snapshot = session.snapshot
	}
	sm.mu.RUnlock()
	if snapshot == nil {
		return
	}

	stateJSON, err := json.Marshal(snapshot)
	if err != nil {
		return
	}
	client.SafeSend(stateJSON)
}

// EndGameSession はゲームセッションを終了させ、結果を記録し、セッションをクリーンアップします。
//
// Parameters:
//   roomID : 終了するルームのID
func (sm *SessionManager) EndGameSession(roomID string) {
	sm.mu.Lock()
	session, ok := sm.sessions[roomID]
	if !ok || session.Status == StatusFinished {
		sm.mu.Unlock()
		return
	}
	session.Status = StatusFinished
	session.EndedAt = time.Now()
	sm.mu.Unlock()

	log.Printf("[SessionManager] Game session %s ended. Player %s scored %d (max combo %d)",
		roomID, session.OwnerID, session.State.Score.TotalScore, session.State.Score.MaxCombo)

	// 最後の状態を送信してから接続を閉じる
	sm.publish(session)
	sm.saveResult(session.OwnerID, session.State.Score.TotalScore, session.State.Score.MaxCombo)

	sm.mu.Lock()
	if client, ok := sm.clients[session.OwnerID]; ok && client.RoomID == roomID {
		client.SafeClose()
		delete(sm.clients, session.OwnerID)
	}
	delete(sm.sessions, roomID)
	sm.mu.Unlock()
}

// saveResult はゲーム結果をバックグラウンドで保存します。
func (sm *SessionManager) saveResult(userID string, score, maxChain int) {
	if sm.resultRepo == nil {
		return
	}
	go func() {
		if _, err := sm.resultRepo.CreateResult(nil, userID, score, maxChain); err != nil {
			log.Printf("[SessionManager] Failed to save result for user %s: %v", userID, err)
		}
	}()
}

// Shutdown はSessionManagerを安全にシャットダウンします
func (sm *SessionManager) Shutdown() {
	sm.shutdown.Do(func() {
		log.Printf("[SessionManager] シャットダウン開始...")
		close(sm.quit)
		<-sm.done

		sm.mu.Lock()
		for _, client := range sm.clients {
			client.SafeClose()
		}
		sm.clients = make(map[string]*Client)
		sm.sessions = make(map[string]*GameSession)
		sm.mu.Unlock()
		log.Printf("[SessionManager] シャットダウン完了")
	})
}
