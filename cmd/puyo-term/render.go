package main

import (
	"fmt"

	"github.com/gdamore/tcell/v2"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
	game "github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/services/puyo"
)

// 画面レイアウト
const (
	boardLeft   = 2 // 枠の左端
	boardTop    = 1 // 枠の上端
	cellWidth   = 2 // 1マスの横幅（文字数）
	panelGap    = 3 // 枠と情報パネルの間隔
	puyoRune    = '●'
	blastRune   = '◎'
	wallRune    = '│'
	floorRune   = '─'
	cornerLeft  = '└'
	cornerRight = '┘'
)

// canvas は描画先です。tcell.Screen がこれを満たします。
type canvas interface {
	SetContent(x int, y int, primary rune, combining []rune, style tcell.Style)
}

var colorStyles = map[puyo.Color]tcell.Style{
	puyo.ColorRed:    tcell.StyleDefault.Foreground(tcell.ColorRed),
	puyo.ColorPurple: tcell.StyleDefault.Foreground(tcell.ColorPurple),
	puyo.ColorYellow: tcell.StyleDefault.Foreground(tcell.ColorYellow),
	puyo.ColorGreen:  tcell.StyleDefault.Foreground(tcell.ColorGreen),
	puyo.ColorBlue:   tcell.StyleDefault.Foreground(tcell.ColorBlue),
}

var (
	frameStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	textStyle  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
	chainStyle = tcell.StyleDefault.Foreground(tcell.ColorYellow).Bold(true)
	overStyle  = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
)

func styleFor(c puyo.Color) tcell.Style {
	if s, ok := colorStyles[c]; ok {
		return s
	}
	return textStyle
}

// cellOrigin はマスの左端の画面座標を返します。
func cellOrigin(i puyo.Index) (int, int) {
	return boardLeft + 1 + i.X*cellWidth, boardTop + i.Y
}

func drawText(c canvas, x, y int, style tcell.Style, text string) {
	for _, r := range text {
		c.SetContent(x, y, r, nil, style)
		x++
	}
}

// drawState はスナップショットを1フレーム分描画します。画面のクリアと表示は呼び出し側で行います。
func drawState(c canvas, s *game.LightweightPlayerState) {
	drawFrame(c, s.Cols, s.Rows)

	for _, cell := range s.Cells {
		x, y := cellOrigin(cell.Index)
		r := puyoRune
		if cell.Blasted {
			r = blastRune
		}
		c.SetContent(x, y, r, nil, styleFor(cell.Color))
	}

	panelX := boardLeft + 2 + s.Cols*cellWidth + panelGap
	drawText(c, panelX, boardTop, textStyle, "SCORE")
	drawText(c, panelX, boardTop+1, textStyle, fmt.Sprintf("%8d", s.Score))

	drawText(c, panelX, boardTop+3, textStyle, "NEXT")
	for n, pair := range s.NextPairs {
		// 子ぷよを上、軸ぷよを下に並べる
		x := panelX + n*(cellWidth+1)
		c.SetContent(x, boardTop+4, puyoRune, nil, styleFor(pair.Secondary))
		c.SetContent(x, boardTop+5, puyoRune, nil, styleFor(pair.Primary))
	}

	if s.ChainText != "" {
		drawText(c, panelX, boardTop+7, chainStyle, s.ChainText)
	}
	drawText(c, panelX, boardTop+9, textStyle, fmt.Sprintf("MAX COMBO %d", s.MaxCombo))

	if s.IsGameOver {
		drawText(c, panelX, boardTop+11, overStyle, "GAME OVER")
		drawText(c, panelX, boardTop+12, textStyle, "q: quit")
	}
}

func drawFrame(c canvas, cols, rows int) {
	right := boardLeft + 1 + cols*cellWidth
	for y := boardTop; y < boardTop+rows; y++ {
		c.SetContent(boardLeft, y, wallRune, nil, frameStyle)
		c.SetContent(right, y, wallRune, nil, frameStyle)
	}
	bottom := boardTop + rows
	c.SetContent(boardLeft, bottom, cornerLeft, nil, frameStyle)
	for x := boardLeft + 1; x < right; x++ {
		c.SetContent(x, bottom, floorRune, nil, frameStyle)
	}
	c.SetContent(right, bottom, cornerRight, nil, frameStyle)
}
