package puyo

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models"
)

type savedResult struct {
	userID   string
	score    int
	maxChain int
}

// fakeResultRepository は保存された結果をチャネルに流すテスト用のリポジトリです。
type fakeResultRepository struct {
	saved chan savedResult
}

func newFakeResultRepository() *fakeResultRepository {
	return &fakeResultRepository{saved: make(chan savedResult, 4)}
}

func (f *fakeResultRepository) CreateResult(_ *sql.Tx, userID string, score, maxChain int) (*models.Result, error) {
	f.saved <- savedResult{userID: userID, score: score, maxChain: maxChain}
	return &models.Result{UserID: userID, Score: score, MaxChain: maxChain}, nil
}

func (f *fakeResultRepository) GetTopResults(int) ([]models.ResultResponse, error) {
	return nil, nil
}

func (f *fakeResultRepository) GetUserBestScore(string) (*models.Result, error) {
	return nil, nil
}

func (f *fakeResultRepository) GetUserRanking(string) (*models.ResultResponse, error) {
	return nil, nil
}

func newTestManager(t *testing.T, repo *fakeResultRepository) *SessionManager {
	t.Helper()
	sm := NewSessionManager(repo, SessionSettings{TickInterval: time.Millisecond, BroadcastEveryTicks: 5})
	sm.newSeed = func() int64 { return 1 }
	t.Cleanup(sm.Shutdown)
	return sm
}

func TestCreateSessionStartsWaiting(t *testing.T) {
	sm := newTestManager(t, nil)

	roomID, err := sm.CreateSession("owner-1")
	require.NoError(t, err)
	require.NotEmpty(t, roomID)

	status, err := sm.GetRoomStatus(roomID)
	require.NoError(t, err)
	assert.Equal(t, roomID, status.ID)
	assert.Equal(t, StatusWaiting, status.Status)
	require.NotNil(t, status.Player)
	assert.Equal(t, "owner-1", status.Player.UserID)
	assert.Len(t, status.Player.Cells, 2, "first pair is already on the board")
	assert.Equal(t, 0, status.Player.Tick)

	_, err = sm.CreateSession("")
	assert.Error(t, err)
}

func TestGetRoomStatusUnknownRoom(t *testing.T) {
	sm := newTestManager(t, nil)
	_, err := sm.GetRoomStatus("missing")
	assert.ErrorIs(t, err, ErrRoomNotFound)
}

func TestCanJoin(t *testing.T) {
	sm := newTestManager(t, nil)
	roomID, err := sm.CreateSession("owner-1")
	require.NoError(t, err)

	assert.NoError(t, sm.CanJoin(roomID, "owner-1"))
	assert.ErrorIs(t, sm.CanJoin(roomID, "someone-else"), ErrNotRoomOwner)
	assert.ErrorIs(t, sm.CanJoin("missing", "owner-1"), ErrRoomNotFound)

	// 接続前に弾かれるので conn は使われない
	assert.ErrorIs(t, sm.RegisterClient("missing", "owner-1", nil), ErrRoomNotFound)
}

func TestEndGameSessionSavesResult(t *testing.T) {
	repo := newFakeResultRepository()
	sm := newTestManager(t, repo)
	roomID, err := sm.CreateSession("owner-1")
	require.NoError(t, err)

	sm.EndGameSession(roomID)

	select {
	case saved := <-repo.saved:
		assert.Equal(t, savedResult{userID: "owner-1"}, saved)
	case <-time.After(2 * time.Second):
		t.Fatal("result was not saved")
	}

	_, err = sm.GetRoomStatus(roomID)
	assert.ErrorIs(t, err, ErrRoomNotFound, "finished sessions are removed")

	// 2回目は何もしない
	sm.EndGameSession(roomID)
	assert.Empty(t, repo.saved)
}

func TestEndGameSessionWithoutRepository(t *testing.T) {
	sm := newTestManager(t, nil)
	roomID, err := sm.CreateSession("owner-1")
	require.NoError(t, err)

	assert.NotPanics(t, func() { sm.EndGameSession(roomID) })
}

// dialRoom はテスト用のWebSocketサーバーを立ててルームに接続します。
func dialRoom(t *testing.T, sm *SessionManager, roomID, userID string) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if err := sm.RegisterClient(roomID, userID, conn); err != nil {
			conn.Close()
		}
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	return conn
}

func readState(t *testing.T, conn *websocket.Conn) LightweightGameState {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, message, err := conn.ReadMessage()
	require.NoError(t, err)

	var state LightweightGameState
	require.NoError(t, json.Unmarshal(message, &state))
	return state
}

func TestWebSocketGameFlow(t *testing.T) {
	repo := newFakeResultRepository()
	sm := newTestManager(t, repo)
	roomID, err := sm.CreateSession("owner-1")
	require.NoError(t, err)

	conn := dialRoom(t, sm, roomID, "owner-1")

	// 接続するとゲームが始まり、現在の状態が届く
	first := readState(t, conn)
	assert.Equal(t, roomID, first.ID)
	assert.Equal(t, StatusPlaying, first.Status)
	require.NotNil(t, first.Player)

	// ティックが進むと状態が配信され続ける
	var later LightweightGameState
	for i := 0; i < 5; i++ {
		later = readState(t, conn)
	}
	assert.Greater(t, later.Player.Tick, first.Player.Tick)

	// 不正な入力は無視され、接続は維持される
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteJSON(PlayerInputEvent{Action: "hold"}))
	require.NoError(t, conn.WriteJSON(PlayerInputEvent{Action: string(ActionHardDrop)}))
	readState(t, conn)

	// 切断するとセッションが終了し、結果が保存される
	require.NoError(t, conn.Close())
	select {
	case saved := <-repo.saved:
		assert.Equal(t, "owner-1", saved.userID)
	case <-time.After(2 * time.Second):
		t.Fatal("result was not saved after disconnect")
	}

	assert.Eventually(t, func() bool {
		_, err := sm.GetRoomStatus(roomID)
		return err != nil
	}, 2*time.Second, 10*time.Millisecond)
}
