package puyo

import "fmt"

// Color はぷよの色を表します。
type Color int

const (
	ColorRed    Color = iota // 0: 赤
	ColorPurple              // 1: 紫
	ColorYellow              // 2: 黄
	ColorGreen               // 3: 緑
	ColorBlue                // 4: 青
)

// ColorCount は色の種類数です。
const ColorCount = 5

// String は色の文字列表現を返します。
func (c Color) String() string {
	switch c {
	case ColorRed:
		return "red"
	case ColorPurple:
		return "purple"
	case ColorYellow:
		return "yellow"
	case ColorGreen:
		return "green"
	case ColorBlue:
		return "blue"
	default:
		return fmt.Sprintf("color(%d)", int(c))
	}
}

// Valid は有効な色かどうかを判定します。
func (c Color) Valid() bool {
	return c >= 0 && c < ColorCount
}

// CellID はぷよを一意に識別するIDです。0は無効なIDとして扱います。
type CellID uint32

// Cell はフィールド上（または落下中）の1個のぷよです。
type Cell struct {
	ID      CellID   `json:"id"`
	Index   Index    `json:"index"`   // 現在のマス座標
	Color   Color    `json:"color"`   // 生成時に決まり、以後変わらない
	Blasted bool     `json:"blasted"` // 連鎖で消滅待ちになったかどうか
	Falling bool     `json:"falling"` // 操作中の組ぷよに属しているかどうか
	Shape   ShapeTag `json:"shape"`   // 描画用の連結形状
	// Neighbors は同色で上下左右に接しているぷよのIDです。毎ティック再計算されます。
	Neighbors []CellID `json:"-"`
}

// Alive は消滅待ちでないぷよかどうかを返します。
func (c *Cell) Alive() bool {
	return !c.Blasted
}

// ShapeTag はスプライトアトラス上の形状セル（列, 行）です。
// 描画専用の派生属性で、連鎖判定には一切影響しません。
type ShapeTag struct {
	Col int `json:"col"`
	Row int `json:"row"`
}

// NORMAL と 3x3 の基本形状です。列は横方向（右のみ/両方/左のみ）、行は縦方向（下のみ/両方/上のみ）を表します。
var (
	ShapeNormal    = ShapeTag{Col: 0, Row: 3}
	ShapeUpLeft    = ShapeTag{Col: 0, Row: 0}
	ShapeUpBoth    = ShapeTag{Col: 1, Row: 0}
	ShapeUpRight   = ShapeTag{Col: 2, Row: 0}
	ShapeBothLeft  = ShapeTag{Col: 0, Row: 1}
	ShapeBothBoth  = ShapeTag{Col: 1, Row: 1}
	ShapeBothRight = ShapeTag{Col: 2, Row: 1}
	ShapeDownLeft  = ShapeTag{Col: 0, Row: 2}
	ShapeDownBoth  = ShapeTag{Col: 1, Row: 2}
	ShapeDownRight = ShapeTag{Col: 2, Row: 2}
)

// BlastedRowOffset は消滅中スプライトの行オフセットです。
const BlastedRowOffset = 6

// ColorColumnStride はアトラス上で色ごとにずれる列数です。
const ColorColumnStride = 3

const linkNone = -1

// ClassifyShape は上下左右の連結状態から描画用の形状タグを決定します。
// 色には依存しないため、異なる色同士が干渉することはありません。
//
// Parameters:
//
//	left, right, down, up : それぞれの方向に同色のぷよが接しているか
//
// Returns:
//
//	ShapeTag: スプライトアトラス上の形状セル
func ClassifyShape(left, right, down, up bool) ShapeTag {
	if !left && !right && !down && !up {
		return ShapeNormal
	}

	col := linkNone
	switch {
	case left && right:
		col = 1
	case left:
		col = 2
	case right:
		col = 0
	}

	row := linkNone
	switch {
	case down && up:
		row = 1
	case down:
		row = 0
	case up:
		row = 2
	}

	// 片方向の連結しかない場合は端・角用の専用セルに退化させる
	if col == linkNone {
		if row == 1 {
			return ShapeTag{Col: 2, Row: 3}
		}
		return ShapeTag{Col: 1, Row: row + 3}
	}
	if row == linkNone {
		return ShapeTag{Col: col, Row: 4}
	}
	return ShapeTag{Col: col, Row: row}
}

// AtlasCell は色と消滅状態を反映したスプライトアトラス上の座標を返します。
func (s ShapeTag) AtlasCell(c Color, blasted bool) ShapeTag {
	out := ShapeTag{Col: s.Col + int(c)*ColorColumnStride, Row: s.Row}
	if blasted {
		out.Row += BlastedRowOffset
	}
	return out
}
