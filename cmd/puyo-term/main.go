// puyo-term はサーバーを介さずに端末上でぷよぷよを遊ぶためのクライアントです。
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	game "github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/services/puyo"
)

// terminalGame は1つのゲーム状態と描画先の端末をまとめたものです。
// ゲーム状態は run のゴルーチンだけが操作します。
type terminalGame struct {
	screen tcell.Screen
	state  *game.PlayerGameState
}

func newTerminalGame(screen tcell.Screen, seed int64) *terminalGame {
	return &terminalGame{
		screen: screen,
		state:  game.NewPlayerGameState("local", seed),
	}
}

// actionForKey はキー入力を操作に変換します。
func actionForKey(key tcell.Key, r rune) (game.Action, bool) {
	switch key {
	case tcell.KeyLeft:
		return game.ActionMoveLeft, true
	case tcell.KeyRight:
		return game.ActionMoveRight, true
	case tcell.KeyDown:
		return game.ActionMoveDown, true
	case tcell.KeyRune:
		switch r {
		case 'r':
			return game.ActionRotateCW, true
		case 'e':
			return game.ActionRotateCCW, true
		case 'd':
			return game.ActionHardDrop, true
		}
	}
	return "", false
}

func isQuitKey(key tcell.Key, r rune) bool {
	return key == tcell.KeyEscape || key == tcell.KeyCtrlC || (key == tcell.KeyRune && r == 'q')
}

// handleEvent は1つの端末イベントを処理します。終了する場合は false を返します。
func (g *terminalGame) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		return g.handleKey(ev.Key(), ev.Rune())
	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

func (g *terminalGame) handleKey(key tcell.Key, r rune) bool {
	if isQuitKey(key, r) {
		return false
	}
	if action, ok := actionForKey(key, r); ok {
		game.ApplyPlayerInput(g.state, action)
	}
	return true
}

func (g *terminalGame) draw() {
	g.screen.Clear()
	drawState(g.screen, g.state.ToLightweight())
	g.screen.Show()
}

// run はティックごとにゲームを進めて描画します。終了キーが押されるまで戻りません。
func (g *terminalGame) run(tick time.Duration) {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return // Fini された
			}
			eventChan <- ev
		}
	}()

	g.draw()
	for {
		select {
		case ev := <-eventChan:
			if !g.handleEvent(ev) {
				return
			}
			g.draw()

		case <-ticker.C:
			g.state.Tick()
			g.draw()
		}
	}
}

func main() {
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed for the color sequence")
	tick := flag.Duration("tick", 16*time.Millisecond, "length of one game tick")
	flag.Parse()

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize: %v\n", err)
		os.Exit(1)
	}

	g := newTerminalGame(screen, *seed)
	g.run(*tick)
	screen.Fini()

	score := g.state.Score
	log.Printf("[PuyoTerm] score %d, max combo %d", score.TotalScore, score.MaxCombo)
}
