package puyo

// Orientation は組ぷよの子ぷよ（secondary）が軸ぷよ（primary）から見てどこにあるかを表します。
type Orientation int

const (
	OrientationBelow Orientation = iota // 0: 子ぷよが下
	OrientationRight                    // 1: 子ぷよが右
	OrientationAbove                    // 2: 子ぷよが上（出現時）
	OrientationLeft                     // 3: 子ぷよが左
)

// RotationDirection は回転方向です。
type RotationDirection int

const (
	RotateCW  RotationDirection = iota // 時計回り
	RotateCCW                          // 反時計回り
)

// Opposite は逆方向の回転を返します。
func (d RotationDirection) Opposite() RotationDirection {
	if d == RotateCW {
		return RotateCCW
	}
	return RotateCW
}

// orientationOffsets は各向きにおける軸ぷよからの子ぷよの相対座標です。
var orientationOffsets = [4]Index{
	OrientationBelow: {X: 0, Y: 1},
	OrientationRight: {X: 1, Y: 0},
	OrientationAbove: {X: 0, Y: -1},
	OrientationLeft:  {X: -1, Y: 0},
}

// rotationTable は（現在の向き, 回転方向）から回転後の向きを引く固定テーブルです。
// 時計回りは 上→右→下→左→上 の順に回ります。
var rotationTable = [4][2]Orientation{
	OrientationBelow: {RotateCW: OrientationLeft, RotateCCW: OrientationRight},
	OrientationRight: {RotateCW: OrientationBelow, RotateCCW: OrientationAbove},
	OrientationAbove: {RotateCW: OrientationRight, RotateCCW: OrientationLeft},
	OrientationLeft:  {RotateCW: OrientationAbove, RotateCCW: OrientationBelow},
}

// Offset はこの向きでの子ぷよの相対座標を返します。
func (o Orientation) Offset() Index {
	return orientationOffsets[o&3]
}

// Rotated は指定方向に回転した後の向きを返します。
func (o Orientation) Rotated(d RotationDirection) Orientation {
	return rotationTable[o&3][d&1]
}

// String は向きの文字列表現を返します。
func (o Orientation) String() string {
	switch o {
	case OrientationBelow:
		return "below"
	case OrientationRight:
		return "right"
	case OrientationAbove:
		return "above"
	case OrientationLeft:
		return "left"
	default:
		return "unknown"
	}
}

// ColorPair はキューに積まれる組ぷよ1つ分の色の組み合わせです。
type ColorPair struct {
	Primary   Color `json:"primary"`
	Secondary Color `json:"secondary"`
}

// 組ぷよの出現位置です。
var (
	SpawnPrimary   = Index{X: 2, Y: 1}
	SpawnSecondary = Index{X: 2, Y: 0}
)
