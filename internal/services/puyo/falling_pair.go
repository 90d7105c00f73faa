package puyo

import "github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"

var stepDown = puyo.Index{X: 0, Y: 1}

// FallingPair はプレイヤーが操作中の組ぷよです。
// Primary が回転の軸、Secondary は Orientation が示す方向に隣接します。
// Locked になるまで2つのぷよは常に上下左右のいずれかで接しています。
type FallingPair struct {
	Primary     *puyo.Cell       `json:"primary"`
	Secondary   *puyo.Cell       `json:"secondary"`
	Orientation puyo.Orientation `json:"orientation"`
	Locked      bool             `json:"locked"`
}

// SpawnPair は出現位置に組ぷよを配置します。どちらかの出現マスが埋まっている場合は nil を返します。
//
// Parameters:
//   b     : 配置先のボード
//   color : 組ぷよの色
// Returns:
//   *FallingPair: 配置された組ぷよ（配置できなかった場合は nil）
func SpawnPair(b *Board, color puyo.ColorPair) *FallingPair {
	if b.IsBlockedBy(puyo.SpawnPrimary) || b.IsBlockedBy(puyo.SpawnSecondary) {
		return nil
	}
	primary := b.Spawn(puyo.SpawnPrimary, color.Primary, true)
	secondary := b.Spawn(puyo.SpawnSecondary, color.Secondary, true)
	return &FallingPair{
		Primary:     primary,
		Secondary:   secondary,
		Orientation: puyo.OrientationAbove,
	}
}

// Members は組ぷよの2つのぷよを返します。
func (p *FallingPair) Members() [2]*puyo.Cell {
	return [2]*puyo.Cell{p.Primary, p.Secondary}
}

func (p *FallingPair) ids() []puyo.CellID {
	return []puyo.CellID{p.Primary.ID, p.Secondary.ID}
}

func (p *FallingPair) partnerOf(c *puyo.Cell) *puyo.Cell {
	if c == p.Primary {
		return p.Secondary
	}
	return p.Primary
}

// MoveHorizontal は組ぷよを左右に1マス動かします。
// どちらか一方でも移動先が範囲外・固定済みぷよで塞がっていれば、何も動かさずに false を返します。
//
// Parameters:
//   b   : ボード
//   dir : -1 で左、+1 で右
// Returns:
//   bool: 移動した場合は true
func (p *FallingPair) MoveHorizontal(b *Board, dir int) bool {
	if p.Locked {
		return false
	}
	if !b.Grid.ContainsColumn(p.Primary.Index.X+dir) || !b.Grid.ContainsColumn(p.Secondary.Index.X+dir) {
		return false
	}
	shift := puyo.Index{X: dir, Y: 0}
	return b.Relocate(
		cellMove{cell: p.Primary, to: p.Primary.Index.Add(shift)},
		cellMove{cell: p.Secondary, to: p.Secondary.Index.Add(shift)},
	)
}

// OnGround はそのぷよがこれ以上下に落ちられないかを判定します。
// 真下が床か固定済みぷよなら接地、相方のぷよなら相方が接地しているかで決まります。
func (p *FallingPair) OnGround(b *Board, c *puyo.Cell) bool {
	below := c.Index.Add(stepDown)
	if !b.Grid.Contains(below) {
		return true
	}
	occupant := b.At(below)
	if occupant == nil {
		return false
	}
	if partner := p.partnerOf(c); occupant.ID == partner.ID {
		return p.OnGround(b, partner)
	}
	return true
}

// Landed はどちらかのぷよが接地しているかを返します。
func (p *FallingPair) Landed(b *Board) bool {
	return p.OnGround(b, p.Primary) || p.OnGround(b, p.Secondary)
}

// MoveDown は組ぷよを1マス下に動かします。
// 両方の接地判定を先に行い、どちらかが接地している場合は動かしません（着地処理に任せます）。
func (p *FallingPair) MoveDown(b *Board) bool {
	if p.Locked || p.Landed(b) {
		return false
	}
	return b.Relocate(
		cellMove{cell: p.Primary, to: p.Primary.Index.Add(stepDown)},
		cellMove{cell: p.Secondary, to: p.Secondary.Index.Add(stepDown)},
	)
}

// Rotate は軸ぷよを中心に子ぷよを回転させます。
// 回転先が塞がっている場合は逆方向に一度だけ試し、それも塞がっていれば何もしません。
//
// Parameters:
//   b   : ボード
//   dir : 回転方向
// Returns:
//   bool: 回転した場合は true
func (p *FallingPair) Rotate(b *Board, dir puyo.RotationDirection) bool {
	if p.Locked {
		return false
	}
	for _, d := range [2]puyo.RotationDirection{dir, dir.Opposite()} {
		next := p.Orientation.Rotated(d)
		dest := p.Primary.Index.Add(next.Offset())
		if b.IsBlockedBy(dest, p.ids()...) {
			continue
		}
		if b.Move(p.Secondary, dest) {
			p.Orientation = next
			return true
		}
	}
	return false
}

// HardDrop は2つのぷよをそれぞれの列で落ちられるところまで一気に落とします。
// 下にあるぷよから処理するので、同じ列の上側のぷよは相方の上に乗ります。
func (p *FallingPair) HardDrop(b *Board) {
	lower, upper := p.Primary, p.Secondary
	if upper.Index.Y > lower.Index.Y {
		lower, upper = upper, lower
	}
	for _, c := range [2]*puyo.Cell{lower, upper} {
		dest := c.Index
		for !b.IsBlockedBy(dest.Add(stepDown), c.ID) {
			dest = dest.Add(stepDown)
		}
		b.Move(c, dest)
	}
}

// Lock は組ぷよを固定します。両方のぷよを落としきり、操作中フラグを外します。
func (p *FallingPair) Lock(b *Board) {
	if p.Locked {
		return
	}
	p.Locked = true
	p.HardDrop(b)
	for _, c := range p.Members() {
		c.Falling = false
	}
}
