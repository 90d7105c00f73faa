package puyo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

func tickN(s *PlayerGameState, n int) {
	for i := 0; i < n; i++ {
		s.Tick()
	}
}

func TestNewPlayerGameState(t *testing.T) {
	state := NewPlayerGameState("player-1", 42)

	require.NotNil(t, state.CurrentPair)
	assert.Len(t, state.NextPairs, QueueDepth)
	assert.Equal(t, puyo.SpawnPrimary, state.CurrentPair.Primary.Index)
	assert.Equal(t, puyo.SpawnSecondary, state.CurrentPair.Secondary.Index)
	assert.False(t, state.IsGameOver)

	for _, pair := range state.NextPairs {
		assert.NotEqual(t, state.ExcludedColor, pair.Primary)
		assert.NotEqual(t, state.ExcludedColor, pair.Secondary)
	}
}

func TestRandomColorsSkipExcludedColor(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		state := NewPlayerGameState("p", seed)
		for i := 0; i < 200; i++ {
			c := state.randomColor()
			require.True(t, c.Valid())
			require.NotEqual(t, state.ExcludedColor, c, "seed %d", seed)
		}
	}
}

func TestSameSeedSameGame(t *testing.T) {
	a := NewPlayerGameState("p", 7)
	b := NewPlayerGameState("p", 7)
	assert.Equal(t, a.ExcludedColor, b.ExcludedColor)
	assert.Equal(t, a.NextPairs, b.NextPairs)
}

func TestFreeFallToBottom(t *testing.T) {
	state := NewPlayerGameState("player-1", 1)
	first := state.CurrentPair
	primary, secondary := first.Primary, first.Secondary

	tickN(state, 700)

	assert.Equal(t, idx(2, 12), primary.Index)
	assert.Equal(t, idx(2, 11), secondary.Index)
	assert.False(t, primary.Falling)
	assert.False(t, secondary.Falling)

	// 着地から SpawnDelay 後に次の組ぷよが出ている
	require.NotNil(t, state.CurrentPair)
	assert.NotSame(t, first, state.CurrentPair)
	assert.Len(t, state.NextPairs, QueueDepth)
	assert.False(t, state.IsGameOver)
}

func TestLandingSchedulesSpawn(t *testing.T) {
	state := NewPlayerGameState("player-1", 3)
	landingTick := GravityPeriod * 11 // 出現位置 y=1 から y=12 まで11マス

	tickN(state, landingTick-1)
	require.NotNil(t, state.CurrentPair)

	state.Tick()
	assert.Nil(t, state.CurrentPair, "pair locks on the landing tick")
	assert.Equal(t, 1, state.PendingEvents())

	tickN(state, SpawnDelay-1)
	assert.Nil(t, state.CurrentPair)
	state.Tick()
	assert.NotNil(t, state.CurrentPair)
}

func TestApplyPlayerInput(t *testing.T) {
	state := NewPlayerGameState("player-1", 5)
	pair := state.CurrentPair

	assert.True(t, ApplyPlayerInput(state, ActionMoveLeft))
	assert.Equal(t, idx(1, 1), pair.Primary.Index)

	assert.True(t, ApplyPlayerInput(state, ActionMoveRight))
	assert.True(t, ApplyPlayerInput(state, ActionMoveDown))
	assert.Equal(t, idx(2, 2), pair.Primary.Index)

	assert.True(t, ApplyPlayerInput(state, ActionRotateCW))
	assert.Equal(t, puyo.OrientationRight, pair.Orientation)
	assert.True(t, ApplyPlayerInput(state, ActionRotateCCW))
	assert.Equal(t, puyo.OrientationAbove, pair.Orientation)

	assert.True(t, ApplyPlayerInput(state, ActionHardDrop))
	assert.Nil(t, state.CurrentPair)
	assert.True(t, pair.Locked)
	assert.Equal(t, idx(2, 12), pair.Primary.Index)

	// 出現待ちの間は操作できない
	assert.False(t, ApplyPlayerInput(state, ActionMoveLeft))
}

func TestParseAction(t *testing.T) {
	for _, s := range []string{"move_left", "move_right", "move_down", "rotate_cw", "rotate_ccw", "hard_drop"} {
		a, err := ParseAction(s)
		require.NoError(t, err)
		assert.Equal(t, Action(s), a)
	}

	_, err := ParseAction("hold")
	assert.ErrorIs(t, err, ErrUnknownAction)
}

func TestBlastRemovesCellsAfterDelay(t *testing.T) {
	state := newEmptyGameState("player-1", 1)
	b := state.Board
	for _, i := range []puyo.Index{idx(0, 12), idx(1, 12), idx(0, 11), idx(1, 11)} {
		settle(t, b, i.X, i.Y, puyo.ColorRed)
	}
	blue := settle(t, b, 0, 10, puyo.ColorBlue)

	state.Tick()
	assert.Equal(t, 40, state.Score.TotalScore)
	assert.Equal(t, 1, state.Score.ComboCount)
	assert.Equal(t, 4, state.PendingEvents())

	tickN(state, BlastDelay-1)
	assert.Equal(t, 5, b.Len(), "blasted cells remain until the delay elapses")

	state.Tick()
	assert.Equal(t, 1, b.Len())
	assert.Equal(t, idx(0, 12), blue.Index, "cascade drops the cell above the gap")
	assert.Equal(t, 40, state.Score.TotalScore)
}

func TestCascadeChainCombo(t *testing.T) {
	state := newEmptyGameState("player-1", 1)
	b := state.Board

	// 青3つの上に赤の縦4つ、その上に青1つ。赤が消えると青が落ちて4つになる
	settle(t, b, 0, 12, puyo.ColorBlue)
	settle(t, b, 1, 12, puyo.ColorBlue)
	settle(t, b, 1, 11, puyo.ColorBlue)
	for y := 8; y <= 11; y++ {
		settle(t, b, 0, y, puyo.ColorRed)
	}
	settle(t, b, 0, 7, puyo.ColorBlue)

	state.Tick() // tick 1: 赤が消える
	assert.Equal(t, 1, state.Score.ComboCount)
	assert.Equal(t, 40, state.Score.TotalScore)

	tickN(state, BlastDelay) // tick 36: 赤が取り除かれ、青が落ちる
	assert.Equal(t, 4, b.Len())
	assert.Equal(t, 1, state.Score.ComboCount, "second chain is scanned on the next tick")

	state.Tick() // tick 37: 青の連鎖
	assert.Equal(t, 2, state.Score.ComboCount)
	assert.Equal(t, "2 CHAIN!", state.Score.ChainText())
	assert.Equal(t, 40+4*10*(9+0+3+1), state.Score.TotalScore)
	assert.Equal(t, 2, state.Score.MaxCombo)

	tickN(state, BlastDelay)
	assert.Equal(t, 0, b.Len())

	tickN(state, ComboWindow)
	assert.Equal(t, 0, state.Score.ComboCount, "combo expires without further blasts")
	assert.Equal(t, "", state.Score.ChainText())
}

func TestSettledClusterBlastsBesideFallingPair(t *testing.T) {
	state := newEmptyGameState("player-1", 1)
	b := state.Board
	for y := 9; y <= 12; y++ {
		settle(t, b, 0, y, puyo.ColorRed)
	}
	// 軸ぷよ（赤）が赤の列に接している
	pair := placePair(t, b, idx(1, 9), puyo.OrientationAbove)
	state.CurrentPair = pair

	state.Tick()
	assert.Equal(t, 40, state.Score.TotalScore)
	assert.Equal(t, 1, state.Score.ComboCount)
	assert.Equal(t, 4, state.PendingEvents())

	assert.Same(t, pair, state.CurrentPair)
	assert.False(t, pair.Locked)
	assert.False(t, pair.Primary.Blasted)
	assert.True(t, pair.Primary.Falling)
	assert.Equal(t, idx(1, 9), pair.Primary.Index)
	assert.Equal(t, idx(1, 8), pair.Secondary.Index)
	assertBoardConsistent(t, b)
}

func TestSpawnSeesCompactedBoard(t *testing.T) {
	state := newEmptyGameState("player-1", 1)
	b := state.Board
	for y := 5; y < b.Grid.Rows; y++ {
		c := puyo.ColorBlue
		if y%2 == 0 {
			c = puyo.ColorGreen
		}
		settle(t, b, 2, y, c)
	}
	// 出現位置を塞ぐ赤の縦4つ
	for y := 1; y <= 4; y++ {
		settle(t, b, 2, y, puyo.ColorRed)
	}
	state.NextPairs = []puyo.ColorPair{{Primary: puyo.ColorYellow, Secondary: puyo.ColorPurple}}

	// 赤の取り除きと同じティックに出現が来るよう、先に予約しておく
	state.scheduler.After(0, 1+BlastDelay, EventSpawnPair, 0)

	state.Tick()
	require.Equal(t, 5, state.PendingEvents())

	tickN(state, BlastDelay)
	assert.False(t, state.IsGameOver, "spawn runs after the blasted cells are removed")
	require.NotNil(t, state.CurrentPair)
	assert.Equal(t, puyo.SpawnPrimary, state.CurrentPair.Primary.Index)
	assert.Equal(t, puyo.ColorYellow, state.CurrentPair.Primary.Color)
	assert.Equal(t, 10, b.Len())
	assertBoardConsistent(t, b)
}

func TestGameOverWhenSpawnBlocked(t *testing.T) {
	state := newEmptyGameState("player-1", 1)
	b := state.Board
	// 列2を交互の色で埋める（4つ以上つながらない）
	for y := 2; y < b.Grid.Rows; y++ {
		c := puyo.ColorBlue
		if y%2 == 0 {
			c = puyo.ColorGreen
		}
		settle(t, b, 2, y, c)
	}
	state.NextPairs = []puyo.ColorPair{
		{Primary: puyo.ColorYellow, Secondary: puyo.ColorPurple},
		{Primary: puyo.ColorYellow, Secondary: puyo.ColorPurple},
	}
	require.True(t, state.SpawnNextPair())

	state.Tick() // すぐに着地する
	assert.Nil(t, state.CurrentPair)

	tickN(state, SpawnDelay)
	assert.True(t, state.IsGameOver)
	assert.Equal(t, 0, state.PendingEvents())

	// ゲームオーバー後は何も進まない
	tick := state.CurrentTick
	state.Tick()
	assert.Equal(t, tick, state.CurrentTick)
	assert.False(t, ApplyPlayerInput(state, ActionMoveLeft))
}

func TestGameOverCancelsPendingBlasts(t *testing.T) {
	state := newEmptyGameState("player-1", 1)
	for x := 0; x < 4; x++ {
		settle(t, state.Board, x, 12, puyo.ColorRed)
	}
	state.Tick()
	require.Equal(t, 4, state.PendingEvents())

	state.endGame()
	assert.Equal(t, 0, state.PendingEvents())
	assert.Equal(t, 4, state.Board.Len(), "cancelled removals never run")
}

func TestRandomPlayInvariants(t *testing.T) {
	actions := []Action{ActionMoveLeft, ActionMoveRight, ActionMoveDown, ActionRotateCW, ActionRotateCCW, ActionHardDrop}

	for seed := int64(1); seed <= 5; seed++ {
		state := NewPlayerGameState("fuzz", seed)
		r := rand.New(rand.NewSource(seed))

		for i := 0; i < 6000 && !state.IsGameOver; i++ {
			if i%7 == 0 {
				ApplyPlayerInput(state, actions[r.Intn(len(actions))])
			}
			state.Tick()

			assertBoardConsistent(t, state.Board)
			if pair := state.CurrentPair; pair != nil && !pair.Locked {
				d := pair.Primary.Index.Add(pair.Orientation.Offset())
				require.Equal(t, d, pair.Secondary.Index, "seed %d tick %d: pair members must stay adjacent", seed, state.CurrentTick)
			}
		}
		assert.GreaterOrEqual(t, state.Score.TotalScore, 0)
	}
}
