package main

import (
	"strings"
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
	game "github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/services/puyo"
)

// recordingCanvas は描画された文字を座標ごとに記録します。
type recordingCanvas struct {
	cells map[[2]int]rune
}

func newRecordingCanvas() *recordingCanvas {
	return &recordingCanvas{cells: make(map[[2]int]rune)}
}

func (c *recordingCanvas) SetContent(x, y int, primary rune, _ []rune, _ tcell.Style) {
	c.cells[[2]int{x, y}] = primary
}

func (c *recordingCanvas) at(x, y int) rune {
	return c.cells[[2]int{x, y}]
}

func (c *recordingCanvas) row(y, from, to int) string {
	var b strings.Builder
	for x := from; x < to; x++ {
		if r, ok := c.cells[[2]int{x, y}]; ok {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return b.String()
}

func TestActionForKey(t *testing.T) {
	testCases := []struct {
		key      tcell.Key
		r        rune
		expected game.Action
	}{
		{tcell.KeyLeft, 0, game.ActionMoveLeft},
		{tcell.KeyRight, 0, game.ActionMoveRight},
		{tcell.KeyDown, 0, game.ActionMoveDown},
		{tcell.KeyRune, 'r', game.ActionRotateCW},
		{tcell.KeyRune, 'e', game.ActionRotateCCW},
		{tcell.KeyRune, 'd', game.ActionHardDrop},
	}
	for _, tc := range testCases {
		action, ok := actionForKey(tc.key, tc.r)
		require.True(t, ok)
		assert.Equal(t, tc.expected, action)
	}

	_, ok := actionForKey(tcell.KeyRune, 'x')
	assert.False(t, ok)
	_, ok = actionForKey(tcell.KeyUp, 0)
	assert.False(t, ok)
}

func TestIsQuitKey(t *testing.T) {
	assert.True(t, isQuitKey(tcell.KeyEscape, 0))
	assert.True(t, isQuitKey(tcell.KeyCtrlC, 0))
	assert.True(t, isQuitKey(tcell.KeyRune, 'q'))
	assert.False(t, isQuitKey(tcell.KeyRune, 'd'))
}

func TestDrawStateShowsBoardAndPanel(t *testing.T) {
	state := game.NewPlayerGameState("local", 1)
	snapshot := state.ToLightweight()
	c := newRecordingCanvas()

	drawState(c, snapshot)

	// 出現直後の組ぷよ
	x, y := cellOrigin(puyo.SpawnPrimary)
	assert.Equal(t, puyoRune, c.at(x, y))
	x, y = cellOrigin(puyo.SpawnSecondary)
	assert.Equal(t, puyoRune, c.at(x, y))

	// 枠
	assert.Equal(t, wallRune, c.at(boardLeft, boardTop))
	assert.Equal(t, cornerLeft, c.at(boardLeft, boardTop+snapshot.Rows))

	panelX := boardLeft + 2 + snapshot.Cols*cellWidth + panelGap
	assert.Equal(t, "SCORE", c.row(boardTop, panelX, panelX+5))
	assert.Equal(t, "NEXT", c.row(boardTop+3, panelX, panelX+4))
	assert.Contains(t, c.row(boardTop+9, panelX, panelX+20), "MAX COMBO 0")
	assert.NotContains(t, c.row(boardTop+11, panelX, panelX+20), "GAME OVER")
}

func TestDrawStateChainAndGameOver(t *testing.T) {
	snapshot := &game.LightweightPlayerState{
		Cols:       6,
		Rows:       13,
		Cells:      []game.CellView{{Index: puyo.Index{X: 0, Y: 12}, Color: puyo.ColorRed, Blasted: true}},
		ChainText:  "2 CHAIN!",
		MaxCombo:   2,
		IsGameOver: true,
	}
	c := newRecordingCanvas()
	drawState(c, snapshot)

	x, y := cellOrigin(puyo.Index{X: 0, Y: 12})
	assert.Equal(t, blastRune, c.at(x, y))

	panelX := boardLeft + 2 + snapshot.Cols*cellWidth + panelGap
	assert.Equal(t, "2 CHAIN!", c.row(boardTop+7, panelX, panelX+8))
	assert.Equal(t, "GAME OVER", c.row(boardTop+11, panelX, panelX+9))
}

func TestTerminalGameOnSimulationScreen(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, screen.Init())
	t.Cleanup(screen.Fini)
	screen.SetSize(60, 20)

	g := newTerminalGame(screen, 3)
	g.draw()

	pair := g.state.CurrentPair
	require.NotNil(t, pair)

	assert.True(t, g.handleKey(tcell.KeyLeft, 0))
	assert.Equal(t, 1, pair.Primary.Index.X)

	assert.True(t, g.handleKey(tcell.KeyRune, 'd'))
	assert.Nil(t, g.state.CurrentPair, "hard drop locks the pair")
	g.draw()

	assert.False(t, g.handleKey(tcell.KeyRune, 'q'))
}
