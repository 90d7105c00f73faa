package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket" // WebSocketライブラリ

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/api/middleware"
	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/services/puyo" // SessionManager をインポート
)

// authTimeout は接続後に認証メッセージを待つ時間です。
const authTimeout = 10 * time.Second

// upgrader はHTTP接続をWebSocketプロトコルにアップグレードするための設定です。
// Origin のチェックは CORS ミドルウェアの許可リストに任せます。
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// GameHandler はゲーム関連のHTTPリクエスト（部屋作成、状態取得、WebSocket接続）を処理します。
type GameHandler struct {
	sessionManager *puyo.SessionManager // ゲームセッションの管理サービス
	jwtSecret      string               // WebSocket認証用のJWTシークレット
	bypassAuth     bool                 // true の場合は BYPASS_AUTH トークンを受け付ける
}

// NewGameHandler は新しい GameHandler インスタンスを作成します。
//
// Parameters:
//   sm         : セッションマネージャーへのポインタ
//   jwtSecret  : WebSocket認証で使うJWTシークレット
//   bypassAuth : 開発用の認証スキップを許可するかどうか
// Returns:
//   *GameHandler: 新しく作成された GameHandler のポインタ
func NewGameHandler(sm *puyo.SessionManager, jwtSecret string, bypassAuth bool) *GameHandler {
	return &GameHandler{
		sessionManager: sm,
		jwtSecret:      jwtSecret,
		bypassAuth:     bypassAuth,
	}
}

// WriteErrorResponse はエラーレスポンスをJSON形式で書き込みます。
func WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// WriteJSONResponse はJSONレスポンスを書き込みます。
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// CreateRoom は新しい1人用のゲームセッション（部屋）を作成するためのHTTPハンドラーです。
// POST /api/rooms
func (h *GameHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	// ユーザー認証情報をコンテキストから取得する
	userID, err := ExtractUserIDFromContext(r)
	if err != nil {
		WriteErrorResponse(w, http.StatusUnauthorized, "認証が必要です")
		return
	}

	roomID, err := h.sessionManager.CreateSession(userID)
	if err != nil {
		log.Printf("[GameHandler] Failed to create room for user %s: %v", userID, err)
		WriteErrorResponse(w, http.StatusInternalServerError, fmt.Sprintf("ルームの作成に失敗しました: %v", err))
		return
	}

	WriteJSONResponse(w, http.StatusCreated, map[string]string{"room_id": roomID, "message": "ルームを作成しました"})
}

// GetRoomStatus は特定のルームの現在の状態を返すハンドラーです。
// GET /api/rooms/{roomID}
func (h *GameHandler) GetRoomStatus(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	if roomID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "ルームIDが必要です")
		return
	}

	status, err := h.sessionManager.GetRoomStatus(roomID)
	if err != nil {
		WriteErrorResponse(w, http.StatusNotFound, "指定されたルームは見つかりませんでした")
		return
	}

	WriteJSONResponse(w, http.StatusOK, status)
}

// authMessage は接続直後にクライアントが送る認証メッセージです。
type authMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

// HandleWebSocketConnection はHTTP接続をWebSocketプロトコルにアップグレードし、
// 認証メッセージを確認したあと、コネクションをセッションマネージャーに引き渡します。
// GET /ws/{roomID}
func (h *GameHandler) HandleWebSocketConnection(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["roomID"]
	if roomID == "" {
		WriteErrorResponse(w, http.StatusBadRequest, "WebSocket接続にはルームIDが必要です")
		return
	}

	// HTTP接続をWebSocket接続にアップグレード
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[GameHandler] Failed to upgrade to websocket for room %s: %v", roomID, err)
		return // アップグレード失敗時はエラーログのみ
	}
	log.Printf("[GameHandler] WebSocket upgraded for room %s.", roomID)

	userID, err := h.authenticate(conn, roomID)
	if err != nil {
		log.Printf("[GameHandler] WebSocket auth failed for room %s: %v", roomID, err)
		conn.WriteJSON(map[string]string{"error": err.Error()})
		conn.Close()
		return
	}
	if err := h.sessionManager.CanJoin(roomID, userID); err != nil {
		log.Printf("[GameHandler] User %s cannot join room %s: %v", userID, roomID, err)
		conn.WriteJSON(map[string]string{"error": joinErrorMessage(err)})
		conn.Close()
		return
	}
	conn.WriteJSON(map[string]string{"type": "auth_success", "message": "Authentication successful"})

	// SessionManager に新しいWebSocket接続を登録
	if err := h.sessionManager.RegisterClient(roomID, userID, conn); err != nil {
		log.Printf("[GameHandler] Failed to register client %s to room %s: %v", userID, roomID, err)
		conn.Close() // 登録失敗時はコネクションを閉じる
		return
	}
	// readPump と writePump は RegisterClient の中で開始される
}

// authenticate は最初のメッセージを認証メッセージとして読み、ユーザーIDを返します。
func (h *GameHandler) authenticate(conn *websocket.Conn, roomID string) (string, error) {
	conn.SetReadDeadline(time.Now().Add(authTimeout))
	defer conn.SetReadDeadline(time.Time{}) // タイムアウトを解除

	_, message, err := conn.ReadMessage()
	if err != nil {
		return "", fmt.Errorf("failed to read auth message: %w", err)
	}

	var msg authMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return "", errors.New("expected auth message")
	}
	if msg.Type != "auth" {
		return "", errors.New("expected auth message")
	}

	if h.bypassAuth && msg.Token == middleware.BypassToken {
		// 開発用: 部屋の持ち主として接続する
		status, err := h.sessionManager.GetRoomStatus(roomID)
		if err != nil {
			return "", err
		}
		log.Printf("[GameHandler] Using BYPASS_AUTH for room %s", roomID)
		return status.Player.UserID, nil
	}

	userID, err := middleware.ParseUserID(msg.Token, h.jwtSecret)
	if err != nil {
		if errors.Is(err, middleware.ErrMissingSecret) {
			return "", errors.New("server configuration error: JWT secret missing")
		}
		return "", err
	}
	log.Printf("[GameHandler] Successfully authenticated user via JWT: %s", userID)
	return userID, nil
}

func joinErrorMessage(err error) string {
	switch {
	case errors.Is(err, puyo.ErrRoomNotFound):
		return "Room not found"
	case errors.Is(err, puyo.ErrNotRoomOwner):
		return "You are not the owner of this room"
	case errors.Is(err, puyo.ErrRoomNotWaiting):
		return "Room is not available"
	default:
		return "Failed to join room"
	}
}
