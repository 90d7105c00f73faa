package puyo

const (
	GridCols = 6  // ぷよぷよフィールドの列数
	GridRows = 13 // ぷよぷよフィールドの行数（最上段は出現用）

	DefaultCellSize = 32.0 // 1マスの描画サイズ（ピクセル）
	DefaultGap      = 0.0  // マス同士の隙間
	DefaultAnchorX  = 15.0 // フィールド左上の描画座標X
	DefaultAnchorY  = 15.0 // フィールド左上の描画座標Y
)

// Index はグリッド上のマス座標です。yは上から下に向かって増加します。
type Index struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Add は2つの座標を足し合わせた座標を返します。
func (i Index) Add(o Index) Index {
	return Index{X: i.X + o.X, Y: i.Y + o.Y}
}

// ScreenPosition は描画側に渡すスクリーン座標（マスの中心）です。
type ScreenPosition struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Grid はマス座標からスクリーン座標への変換だけを担う固定の格子です。
// ぷよは所有せず、構築後に変更されることはありません。
type Grid struct {
	Cols     int
	Rows     int
	CellSize float64
	Gap      float64
	Anchor   ScreenPosition
}

// NewGrid は標準サイズ（6x13）のグリッドを返します。
func NewGrid() Grid {
	return NewGridWithLayout(GridCols, GridRows, DefaultCellSize, DefaultGap, ScreenPosition{X: DefaultAnchorX, Y: DefaultAnchorY})
}

// NewGridWithLayout は任意の寸法・マスサイズ・隙間・基準点でグリッドを作成します。
func NewGridWithLayout(cols, rows int, cellSize, gap float64, anchor ScreenPosition) Grid {
	return Grid{
		Cols:     cols,
		Rows:     rows,
		CellSize: cellSize,
		Gap:      gap,
		Anchor:   anchor,
	}
}

// Contains は座標がグリッドの範囲内かどうかを判定します。
func (g Grid) Contains(i Index) bool {
	return i.X >= 0 && i.X < g.Cols && i.Y >= 0 && i.Y < g.Rows
}

// ContainsColumn は列番号が範囲内かどうかを判定します。
func (g Grid) ContainsColumn(x int) bool {
	return x >= 0 && x < g.Cols
}

// AnchorOf はマス座標に対応するスクリーン座標（マスの中心）を返します。
func (g Grid) AnchorOf(i Index) ScreenPosition {
	step := g.CellSize + g.Gap
	return ScreenPosition{
		X: g.Anchor.X + float64(i.X)*step + g.CellSize/2,
		Y: g.Anchor.Y + float64(i.Y)*step + g.CellSize/2,
	}
}

// Key はマス座標を占有テーブル用の整数キーに変換します。
// 範囲外の座標に対しては -1 を返します。
func (g Grid) Key(i Index) int {
	if !g.Contains(i) {
		return -1
	}
	return i.Y*g.Cols + i.X
}
