package puyo

import (
	"errors"
	"log"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

// GameLoopSettings はゲーム全体のタイミングに関わる定数です。単位はすべてティックです。
const (
	GravityPeriod = 60                // 組ぷよが1マス自動落下する間隔
	SpawnDelay    = GravityPeriod / 2 // 着地してから次の組ぷよが出現するまで
	BlastDelay    = 35                // 消滅待ちになってから実際に取り除かれるまで
	ComboWindow   = 50                // この間隔以内に次の消滅が起きればコンボが続く
	QueueDepth    = 3                 // ネクストに積んでおく組ぷよの数
)

// Action はプレイヤーの操作です。
type Action string

const (
	ActionMoveLeft  Action = "move_left"
	ActionMoveRight Action = "move_right"
	ActionMoveDown  Action = "move_down"
	ActionRotateCW  Action = "rotate_cw"
	ActionRotateCCW Action = "rotate_ccw"
	ActionHardDrop  Action = "hard_drop"
)

// ErrUnknownAction は未定義の操作文字列を受け取った場合のエラーです。
var ErrUnknownAction = errors.New("unknown action")

// ParseAction はクライアントから届いた操作文字列を Action に変換します。
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionMoveLeft, ActionMoveRight, ActionMoveDown, ActionRotateCW, ActionRotateCCW, ActionHardDrop:
		return a, nil
	default:
		return "", ErrUnknownAction
	}
}

// ApplyPlayerInput はプレイヤーの操作をゲーム状態に適用します。
// 塞がっている方向への移動・回転は黙って無視します。
//
// Parameters:
//   state  : 更新するプレイヤーのゲーム状態のポインタ
//   action : プレイヤーの操作
// Returns:
//   bool: ゲーム状態が実際に変更された場合はtrue、変更されなかった場合はfalse
func ApplyPlayerInput(state *PlayerGameState, action Action) bool {
	pair := state.CurrentPair
	if state.IsGameOver || pair == nil || pair.Locked {
		return false // ゲームオーバー、または操作できる組ぷよがない
	}

	switch action {
	case ActionMoveLeft:
		return pair.MoveHorizontal(state.Board, -1)
	case ActionMoveRight:
		return pair.MoveHorizontal(state.Board, 1)
	case ActionMoveDown:
		return pair.MoveDown(state.Board)
	case ActionRotateCW:
		return pair.Rotate(state.Board, puyo.RotateCW)
	case ActionRotateCCW:
		return pair.Rotate(state.Board, puyo.RotateCCW)
	case ActionHardDrop:
		state.lockCurrentPair()
		return true
	}
	return false
}

// Tick はゲームを1ティック進めます。
// 処理順は 自動落下 → 着地判定 → 連鎖判定 → 消滅と得点 → 予約イベントの実行 です。
func (s *PlayerGameState) Tick() {
	if s.IsGameOver {
		return
	}
	s.CurrentTick++
	now := s.CurrentTick

	// 自動落下と着地
	if pair := s.CurrentPair; pair != nil && !pair.Locked {
		if now%GravityPeriod == 0 {
			pair.MoveDown(s.Board)
		}
		if pair.Landed(s.Board) {
			s.lockCurrentPair()
		}
	}

	// 連鎖判定と消滅
	for _, chain := range s.resolver.Scan() {
		chain.Blast(s.Board, s.scheduler, s.Score, now)
	}

	s.dispatch(now)
	if s.IsGameOver {
		return
	}

	s.Score.Expire(now)
}

// lockCurrentPair は操作中の組ぷよを固定し、次の組ぷよの出現を予約します。
func (s *PlayerGameState) lockCurrentPair() {
	pair := s.CurrentPair
	if pair == nil || pair.Locked {
		return
	}
	pair.Lock(s.Board)
	s.CurrentPair = nil
	s.scheduler.After(s.CurrentTick, SpawnDelay, EventSpawnPair, 0)
}

// dispatch は発火時刻を迎えた予約イベントを実行します。
// 消滅と落下を先に済ませ、組ぷよの出現は詰め直した後のボードで判定します。
func (s *PlayerGameState) dispatch(now int) {
	due := s.scheduler.Due(now)

	destroyed := false
	for _, ev := range due {
		if ev.Kind == EventDestroyCell && s.Board.Remove(ev.Target) {
			destroyed = true
		}
	}
	if destroyed {
		s.Board.Cascade()
	}

	for _, ev := range due {
		if ev.Kind != EventSpawnPair {
			continue
		}
		if !s.SpawnNextPair() {
			s.endGame()
			return
		}
	}
}

// endGame はゲームオーバー状態に遷移させ、未実行の予約イベントをすべて取り消します。
func (s *PlayerGameState) endGame() {
	s.IsGameOver = true
	s.CurrentPair = nil
	s.scheduler.CancelAll()
	log.Printf("[PuyoGame] Player %s Game Over! Final Score: %d, Max Combo: %d", s.UserID, s.Score.TotalScore, s.Score.MaxCombo)
}
