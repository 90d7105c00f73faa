package puyo

import (
	"github.com/kamstrup/intmap"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

// neighborDirs は隣接判定を行う4方向です。順番は 左, 右, 下, 上 です。
var neighborDirs = [4]puyo.Index{
	{X: -1, Y: 0},
	{X: 1, Y: 0},
	{X: 0, Y: 1},
	{X: 0, Y: -1},
}

// Board はフィールド上の全ぷよを所有する登録簿です。
// 登録順のスライスと、マス座標をキーにした占有テーブルを常に同期して保持します。
// 生存中の2つのぷよが同じマスを占めることはありません。
type Board struct {
	Grid      puyo.Grid
	cells     []*puyo.Cell                  // 登録順（連鎖判定の走査順）
	byID      map[puyo.CellID]*puyo.Cell    // ID -> ぷよ
	occupancy *intmap.Map[int, puyo.CellID] // マスキー -> ぷよID
	nextID    puyo.CellID
}

// cellMove は Relocate に渡す移動1件分です。
type cellMove struct {
	cell *puyo.Cell
	to   puyo.Index
}

// NewBoard は空のボードを作成します。
func NewBoard(grid puyo.Grid) *Board {
	return &Board{
		Grid:      grid,
		cells:     make([]*puyo.Cell, 0, grid.Cols*grid.Rows),
		byID:      make(map[puyo.CellID]*puyo.Cell, grid.Cols*grid.Rows),
		occupancy: intmap.New[int, puyo.CellID](grid.Cols * grid.Rows),
	}
}

// Spawn は指定マスに新しいぷよを配置します。
// 範囲外、既に占有されている、または色が不正な場合は nil を返します。
func (b *Board) Spawn(index puyo.Index, color puyo.Color, falling bool) *puyo.Cell {
	key := b.Grid.Key(index)
	if key < 0 || !color.Valid() {
		return nil
	}
	if _, occupied := b.occupancy.Get(key); occupied {
		return nil
	}

	b.nextID++
	cell := &puyo.Cell{
		ID:      b.nextID,
		Index:   index,
		Color:   color,
		Falling: falling,
		Shape:   puyo.ShapeNormal,
	}
	b.cells = append(b.cells, cell)
	b.byID[cell.ID] = cell
	b.occupancy.Put(key, cell.ID)
	return cell
}

// At は指定マスを占めているぷよを返します。空きマスまたは範囲外なら nil です。
func (b *Board) At(index puyo.Index) *puyo.Cell {
	key := b.Grid.Key(index)
	if key < 0 {
		return nil
	}
	id, ok := b.occupancy.Get(key)
	if !ok {
		return nil
	}
	return b.byID[id]
}

// Cell はIDからぷよを引きます。
func (b *Board) Cell(id puyo.CellID) *puyo.Cell {
	return b.byID[id]
}

// Cells は登録順の全ぷよを返します。返り値を変更してはいけません。
func (b *Board) Cells() []*puyo.Cell {
	return b.cells
}

// Len は登録されているぷよの数を返します。
func (b *Board) Len() int {
	return len(b.cells)
}

// IsBlockedBy は index が範囲外、または excluding 以外のぷよに占有されているかを判定します。
// 移動・回転・落下の衝突判定はすべてこの述語を通します。
func (b *Board) IsBlockedBy(index puyo.Index, excluding ...puyo.CellID) bool {
	key := b.Grid.Key(index)
	if key < 0 {
		return true
	}
	id, ok := b.occupancy.Get(key)
	if !ok {
		return false
	}
	for _, ex := range excluding {
		if ex == id {
			return false
		}
	}
	return true
}

// Relocate は複数のぷよを一括で移動させます。
// 移動先のいずれかが範囲外、または移動対象以外のぷよに占有されている場合は何もせず false を返します。
func (b *Board) Relocate(moves ...cellMove) bool {
	moving := make([]puyo.CellID, 0, len(moves))
	for _, m := range moves {
		moving = append(moving, m.cell.ID)
	}
	for _, m := range moves {
		if b.IsBlockedBy(m.to, moving...) {
			return false
		}
	}

	for _, m := range moves {
		b.occupancy.Del(b.Grid.Key(m.cell.Index))
	}
	for _, m := range moves {
		m.cell.Index = m.to
		b.occupancy.Put(b.Grid.Key(m.to), m.cell.ID)
	}
	return true
}

// Move は1個のぷよを移動させます。
func (b *Board) Move(cell *puyo.Cell, to puyo.Index) bool {
	if cell.Index == to {
		return true
	}
	return b.Relocate(cellMove{cell: cell, to: to})
}

// Remove はぷよを登録簿と占有テーブルから取り除きます。
func (b *Board) Remove(id puyo.CellID) bool {
	cell, ok := b.byID[id]
	if !ok {
		return false
	}

	if occupant, ok := b.occupancy.Get(b.Grid.Key(cell.Index)); ok && occupant == id {
		b.occupancy.Del(b.Grid.Key(cell.Index))
	}
	delete(b.byID, id)
	for i, c := range b.cells {
		if c.ID == id {
			b.cells = append(b.cells[:i], b.cells[i+1:]...)
			break
		}
	}
	return true
}

// UpdateAdjacency は全ぷよの同色隣接リストと描画用形状を再計算します。
// 操作中・消滅待ちのぷよ自身は隣接を持ちませんが、他のぷよからの接続先にはなります。
func (b *Board) UpdateAdjacency() {
	for _, cell := range b.cells {
		cell.Neighbors = cell.Neighbors[:0]

		if cell.Falling {
			cell.Shape = puyo.ShapeNormal
			continue
		}
		if cell.Blasted {
			continue // 消滅待ちのぷよは形状を固定しておく
		}

		var linked [4]bool
		for i, dir := range neighborDirs {
			other := b.At(cell.Index.Add(dir))
			if other == nil || other.Color != cell.Color {
				continue
			}
			linked[i] = true
			cell.Neighbors = append(cell.Neighbors, other.ID)
		}
		cell.Shape = puyo.ClassifyShape(linked[0], linked[1], linked[2], linked[3])
	}
}

// Cascade は列ごとに固定済みのぷよを下詰めします。
// 消滅したぷよの上に残ったぷよが隙間を埋めるように落ちます。操作中のぷよは動かしません。
func (b *Board) Cascade() {
	for x := 0; x < b.Grid.Cols; x++ {
		target := b.Grid.Rows - 1
		for y := b.Grid.Rows - 1; y >= 0; y-- {
			cell := b.At(puyo.Index{X: x, Y: y})
			if cell == nil || cell.Falling {
				continue
			}
			for target >= 0 {
				occupant := b.At(puyo.Index{X: x, Y: target})
				if occupant == nil || !occupant.Falling {
					break
				}
				target--
			}
			b.Move(cell, puyo.Index{X: x, Y: target})
			target--
		}
	}
}

// ColumnHeight は列に積まれている固定済みぷよの数を返します。
func (b *Board) ColumnHeight(x int) int {
	height := 0
	for y := 0; y < b.Grid.Rows; y++ {
		cell := b.At(puyo.Index{X: x, Y: y})
		if cell != nil && !cell.Falling {
			height++
		}
	}
	return height
}
