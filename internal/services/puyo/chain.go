package puyo

import (
	"log"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

// MinChainSize は連鎖として消えるのに必要な最小の連結数です。
const MinChainSize = 4

// ChainStatus は連鎖の処理状態です。
type ChainStatus int

const (
	ChainPending  ChainStatus = iota // 検出済み、未消滅
	ChainResolved                    // 消滅処理済み
)

// ChainMember は検出時点のぷよ1個分のスナップショットです。
type ChainMember struct {
	Index puyo.Index `json:"index"`
	Color puyo.Color `json:"color"`
}

// Chain は検出された同色の連結成分です。
// 検出時に座標と色を写し取るので、その後ボードが変化しても中身は変わりません。
type Chain struct {
	Members []ChainMember `json:"members"`
	Status  ChainStatus   `json:"status"`
}

// Len は連結しているぷよの数です。
func (c *Chain) Len() int {
	return len(c.Members)
}

// Color は連鎖の色です。
func (c *Chain) Color() puyo.Color {
	if len(c.Members) == 0 {
		return 0
	}
	return c.Members[0].Color
}

// Blast は連鎖を消滅させます。
// 各ぷよを消滅待ちにして一定ティック後の削除を予約し、得点はこの時点で加算します。
//
// Parameters:
//   b     : ボード
//   sched : 削除イベントを登録するスケジューラ
//   score : 得点を記録するトラッカー
//   now   : 現在のティック
// Returns:
//   int: 加算された得点（処理済みの連鎖なら0）
func (c *Chain) Blast(b *Board, sched *Scheduler, score *ScoreTracker, now int) int {
	if c.Status == ChainResolved {
		return 0
	}
	c.Status = ChainResolved

	for _, m := range c.Members {
		cell := b.At(m.Index)
		if cell == nil || !cell.Alive() || cell.Color != m.Color {
			continue
		}
		cell.Blasted = true
		sched.After(now, BlastDelay, EventDestroyCell, cell.ID)
	}

	gained := score.RecordBlast(now, c.Len(), c.Color())
	log.Printf("[PuyoGame] Chain blasted: color=%s size=%d combo=%d gained=%d", c.Color(), c.Len(), score.ComboCount, gained)
	return gained
}

// ChainResolver はボード上の同色連結成分を探して連鎖を作ります。
type ChainResolver struct {
	board   *Board
	visited map[puyo.CellID]struct{}
	stack   []*puyo.Cell
}

// NewChainResolver はボードに対する連鎖判定器を作成します。
func NewChainResolver(b *Board) *ChainResolver {
	return &ChainResolver{
		board:   b,
		visited: make(map[puyo.CellID]struct{}, b.Grid.Cols*b.Grid.Rows),
	}
}

// Scan は隣接関係を再計算し、MinChainSize 以上つながった同色の成分を連鎖として返します。
// 登録順に走査し、一度どこかの成分に含まれたぷよは同じ走査の中で再び起点になりません。
// 消滅待ちのぷよを含む成分は返しません。操作中のぷよは成分に含めず、たどりません。
func (r *ChainResolver) Scan() []*Chain {
	r.board.UpdateAdjacency()
	clear(r.visited)

	var chains []*Chain
	for _, origin := range r.board.Cells() {
		if _, seen := r.visited[origin.ID]; seen {
			continue
		}
		if origin.Falling || len(origin.Neighbors) == 0 {
			continue
		}

		component, eligible := r.collect(origin)
		if !eligible || len(component) < MinChainSize {
			continue
		}

		chain := &Chain{Members: make([]ChainMember, 0, len(component)), Status: ChainPending}
		for _, cell := range component {
			chain.Members = append(chain.Members, ChainMember{Index: cell.Index, Color: cell.Color})
		}
		chains = append(chains, chain)
	}
	return chains
}

// collect は origin から同色の隣接を深さ優先でたどり、成分全体を返します。
// 操作中のぷよの手前で探索を止めます。成分に消滅待ちのぷよが含まれていれば eligible は false です。
func (r *ChainResolver) collect(origin *puyo.Cell) (component []*puyo.Cell, eligible bool) {
	eligible = true
	r.stack = append(r.stack[:0], origin)
	r.visited[origin.ID] = struct{}{}

	for len(r.stack) > 0 {
		cell := r.stack[len(r.stack)-1]
		r.stack = r.stack[:len(r.stack)-1]
		component = append(component, cell)
		if cell.Blasted {
			eligible = false
		}

		for _, id := range cell.Neighbors {
			if _, seen := r.visited[id]; seen {
				continue
			}
			next := r.board.Cell(id)
			if next == nil || next.Falling {
				continue
			}
			r.visited[id] = struct{}{}
			r.stack = append(r.stack, next)
		}
	}
	return component, eligible
}
