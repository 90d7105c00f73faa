package puyo

import "github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"

// CellView は描画側に渡すぷよ1個分の情報です。
type CellView struct {
	ID       puyo.CellID         `json:"id"`
	Index    puyo.Index          `json:"index"`
	Position puyo.ScreenPosition `json:"position"` // マスの中心のスクリーン座標
	Color    puyo.Color          `json:"color"`
	Shape    puyo.ShapeTag       `json:"shape"` // 色と消滅状態を反映したアトラス上のセル
	Blasted  bool                `json:"blasted"`
	Falling  bool                `json:"falling"`
}

// Views は現在のボード上の全ぷよの描画情報を登録順に返します。
func (s *PlayerGameState) Views() []CellView {
	cells := s.Board.Cells()
	views := make([]CellView, 0, len(cells))
	for _, c := range cells {
		views = append(views, CellView{
			ID:       c.ID,
			Index:    c.Index,
			Position: s.Board.Grid.AnchorOf(c.Index),
			Color:    c.Color,
			Shape:    c.Shape.AtlasCell(c.Color, c.Blasted),
			Blasted:  c.Blasted,
			Falling:  c.Falling,
		})
	}
	return views
}

// LightweightPlayerState はWebSocket送信用のプレイヤー状態です。
type LightweightPlayerState struct {
	UserID      string            `json:"user_id"`
	Cols        int               `json:"cols"`
	Rows        int               `json:"rows"`
	Cells       []CellView        `json:"cells"`
	Orientation *puyo.Orientation `json:"orientation,omitempty"` // 操作中の組ぷよの向き（なければ省略）
	NextPairs   []puyo.ColorPair  `json:"next_pairs"`
	Score       int               `json:"score"`
	Combo       int               `json:"combo"`
	ChainText   string            `json:"chain_text"`
	MaxCombo    int               `json:"max_combo"`
	Tick        int               `json:"tick"`
	IsGameOver  bool              `json:"is_game_over"`
}

// ToLightweight は現在のゲーム状態をスナップショットに変換します。
// 返り値はゲーム状態と領域を共有しないので、別のゴルーチンに渡しても安全です。
func (s *PlayerGameState) ToLightweight() *LightweightPlayerState {
	lw := &LightweightPlayerState{
		UserID:     s.UserID,
		Cols:       s.Board.Grid.Cols,
		Rows:       s.Board.Grid.Rows,
		Cells:      s.Views(),
		NextPairs:  append([]puyo.ColorPair(nil), s.NextPairs...),
		Score:      s.Score.TotalScore,
		Combo:      s.Score.ComboCount,
		ChainText:  s.Score.ChainText(),
		MaxCombo:   s.Score.MaxCombo,
		Tick:       s.CurrentTick,
		IsGameOver: s.IsGameOver,
	}
	if s.CurrentPair != nil {
		o := s.CurrentPair.Orientation
		lw.Orientation = &o
	}
	return lw
}
