package puyo

import (
	"log"
	"math/rand"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

// PlayerGameState は単一プレイヤーのぷよぷよのゲーム状態です。
// ボード・操作中の組ぷよ・ネクスト・スコア・予約イベントをすべてこの構造体が所有します。
// 同時に複数のゴルーチンから操作してはいけません。
type PlayerGameState struct {
	UserID        string           `json:"user_id"`
	Board         *Board           `json:"-"`
	CurrentPair   *FallingPair     `json:"current_pair"`   // 現在操作中の組ぷよ（出現待ちの間は nil）
	NextPairs     []puyo.ColorPair `json:"next_pairs"`     // ネクスト（先頭が次に出現する）
	Score         *ScoreTracker    `json:"score"`          // コンボとスコア
	CurrentTick   int              `json:"current_tick"`   // 経過ティック数
	IsGameOver    bool             `json:"is_game_over"`   // ゲームオーバー状態かどうか
	ExcludedColor puyo.Color       `json:"excluded_color"` // このゲームで出現しない色

	scheduler     *Scheduler
	resolver      *ChainResolver
	randGenerator *rand.Rand
}

// NewPlayerGameState は新しいプレイヤーのゲーム状態を初期化して返します。
// 出現しない色を1つ選び、ネクストを埋めて最初の組ぷよを出現させます。
//
// Parameters:
//   userID : プレイヤーのユーザーID
//   seed   : 色の乱数シード
// Returns:
//   *PlayerGameState: 初期化されたゲーム状態のポインタ
func NewPlayerGameState(userID string, seed int64) *PlayerGameState {
	s := newEmptyGameState(userID, seed)
	s.ExcludedColor = puyo.Color(s.randGenerator.Intn(puyo.ColorCount))
	for len(s.NextPairs) < QueueDepth {
		s.NextPairs = append(s.NextPairs, s.randomPair())
	}
	s.SpawnNextPair()
	return s
}

// newEmptyGameState は組ぷよもネクストもない空のゲーム状態を作成します。
func newEmptyGameState(userID string, seed int64) *PlayerGameState {
	board := NewBoard(puyo.NewGrid())
	return &PlayerGameState{
		UserID:        userID,
		Board:         board,
		Score:         NewScoreTracker(),
		scheduler:     NewScheduler(),
		resolver:      NewChainResolver(board),
		randGenerator: rand.New(rand.NewSource(seed)),
	}
}

// randomColor は出現しない色を除いた4色から1色を選びます。
func (s *PlayerGameState) randomColor() puyo.Color {
	c := puyo.Color(s.randGenerator.Intn(puyo.ColorCount - 1))
	if c >= s.ExcludedColor {
		c++
	}
	return c
}

func (s *PlayerGameState) randomPair() puyo.ColorPair {
	return puyo.ColorPair{Primary: s.randomColor(), Secondary: s.randomColor()}
}

// SpawnNextPair はネクストの先頭を出現位置に置き、ネクストを1つ補充します。
// 出現位置が埋まっている場合は何もせず false を返します。
func (s *PlayerGameState) SpawnNextPair() bool {
	if len(s.NextPairs) == 0 {
		s.NextPairs = append(s.NextPairs, s.randomPair())
	}
	pair := SpawnPair(s.Board, s.NextPairs[0])
	if pair == nil {
		log.Printf("[PuyoGame] Player %s spawn blocked at tick %d (column height %d)",
			s.UserID, s.CurrentTick, s.Board.ColumnHeight(puyo.SpawnPrimary.X))
		return false
	}
	s.CurrentPair = pair
	s.NextPairs = append(s.NextPairs[1:], s.randomPair())
	return true
}

// PendingEvents は未実行の予約イベント数を返します。
func (s *PlayerGameState) PendingEvents() int {
	return s.scheduler.Pending()
}
