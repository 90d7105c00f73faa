package puyo

import (
	"fmt"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

// 得点計算用のボーナステーブルです。
var (
	chainBonusTable   = []int{0, 9, 16, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448, 480, 512}
	connectBonusTable = []int{0, 2, 3, 4, 5, 6, 7, 10}
	colorBonusTable   = []int{0, 3, 6, 12, 24}
)

// connectBonusFlat は12個以上つながった場合の連結ボーナスです。
const connectBonusFlat = 10

// ScoreTracker はコンボ（連鎖）の状態と累計スコアを管理します。
// ゲームごとに1つ作られ、リスタートまでリセットされません。
type ScoreTracker struct {
	ComboCount      int          `json:"combo_count"`
	ColorsThisCombo []puyo.Color `json:"colors_this_combo"`
	TotalScore      int          `json:"total_score"`
	MaxCombo        int          `json:"max_combo"`
	lastBlastTick   int
	hasBlast        bool
}

// NewScoreTracker は空のスコアトラッカーを作成します。
func NewScoreTracker() *ScoreTracker {
	return &ScoreTracker{}
}

// RecordBlast は1つの連鎖の消滅を記録し、加算された得点を返します。
// 前回の消滅からコンボ受付時間内であればコンボ数を増やし、そうでなければ新しいコンボを始めます。
//
// Parameters:
//   now   : 消滅が起きたティック
//   size  : 消えたぷよの数
//   color : 消えたぷよの色
// Returns:
//   int: 今回加算された得点
func (t *ScoreTracker) RecordBlast(now, size int, color puyo.Color) int {
	if t.hasBlast && now-t.lastBlastTick <= ComboWindow {
		t.ComboCount++
	} else {
		t.ComboCount = 1
		t.ColorsThisCombo = t.ColorsThisCombo[:0]
	}
	t.addColor(color)

	gained := CalculateScore(size, t.ComboCount, len(t.ColorsThisCombo))
	t.TotalScore += gained
	if t.ComboCount > t.MaxCombo {
		t.MaxCombo = t.ComboCount
	}
	t.lastBlastTick = now
	t.hasBlast = true
	return gained
}

func (t *ScoreTracker) addColor(color puyo.Color) {
	for _, c := range t.ColorsThisCombo {
		if c == color {
			return
		}
	}
	t.ColorsThisCombo = append(t.ColorsThisCombo, color)
}

// Expire は最後の消滅からコンボ受付時間を超えていればコンボをリセットします。毎ティック呼び出されます。
func (t *ScoreTracker) Expire(now int) bool {
	if !t.hasBlast || t.ComboCount == 0 {
		return false
	}
	if now-t.lastBlastTick <= ComboWindow {
		return false
	}
	t.ComboCount = 0
	t.ColorsThisCombo = t.ColorsThisCombo[:0]
	return true
}

// ChainText はコンボ表示用の文字列です。コンボ中でなければ空文字列を返します。
func (t *ScoreTracker) ChainText() string {
	if t.ComboCount <= 0 {
		return ""
	}
	return fmt.Sprintf("%d CHAIN!", t.ComboCount)
}

// CalculateScore は1つの連鎖で得られる得点を計算します。
// テーブルの範囲を超えるコンボ数・色数は最後の値で頭打ちにします。
//
// Parameters:
//   size       : 消えたぷよの数（4以上）
//   combo      : 現在のコンボ数（1以上）
//   colorCount : このコンボで消えた色の種類数（1以上）
// Returns:
//   int: 得点
func CalculateScore(size, combo, colorCount int) int {
	chain := chainBonusTable[clampIndex(combo-1, len(chainBonusTable))]

	connect := connectBonusFlat
	if size < 12 {
		connect = connectBonusTable[clampIndex(size-MinChainSize, len(connectBonusTable))]
	}

	color := colorBonusTable[clampIndex(colorCount-1, len(colorBonusTable))]

	return size * 10 * (chain + connect + color + 1)
}

func clampIndex(i, length int) int {
	if i < 0 {
		return 0
	}
	if i >= length {
		return length - 1
	}
	return i
}
