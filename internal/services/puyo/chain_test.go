package puyo

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"
)

func TestScanSquareOfFour(t *testing.T) {
	b := NewBoard(puyo.NewGrid())
	for _, i := range []puyo.Index{idx(0, 12), idx(1, 12), idx(0, 11), idx(1, 11)} {
		settle(t, b, i.X, i.Y, puyo.ColorRed)
	}
	resolver := NewChainResolver(b)
	sched := NewScheduler()
	score := NewScoreTracker()

	chains := resolver.Scan()
	require.Len(t, chains, 1)
	assert.Equal(t, 4, chains[0].Len())
	assert.Equal(t, puyo.ColorRed, chains[0].Color())
	assert.Equal(t, ChainPending, chains[0].Status)

	gained := chains[0].Blast(b, sched, score, 1)
	assert.Equal(t, 40, gained)
	assert.Equal(t, 40, score.TotalScore)
	assert.Equal(t, ChainResolved, chains[0].Status)
	assert.Equal(t, 4, sched.Pending())
	for _, c := range b.Cells() {
		assert.True(t, c.Blasted)
	}

	// 2回目の消滅は何もしない
	assert.Equal(t, 0, chains[0].Blast(b, sched, score, 2))
	assert.Equal(t, 4, sched.Pending())

	// 消滅待ちのぷよを含む成分は再検出されない
	assert.Empty(t, resolver.Scan())
	assert.Empty(t, resolver.Scan())
}

func TestScanClusterOfThreeNeverBlasts(t *testing.T) {
	b := NewBoard(puyo.NewGrid())
	settle(t, b, 0, 12, puyo.ColorBlue)
	settle(t, b, 1, 12, puyo.ColorBlue)
	settle(t, b, 1, 11, puyo.ColorBlue)
	resolver := NewChainResolver(b)

	assert.Empty(t, resolver.Scan())
	assert.Empty(t, resolver.Scan())
}

func TestScanSeparatesColors(t *testing.T) {
	b := NewBoard(puyo.NewGrid())
	// 赤の横4つと、その上に青の横4つ
	for x := 0; x < 4; x++ {
		settle(t, b, x, 12, puyo.ColorRed)
		settle(t, b, x, 11, puyo.ColorBlue)
	}
	chains := NewChainResolver(b).Scan()
	require.Len(t, chains, 2)

	colors := []puyo.Color{chains[0].Color(), chains[1].Color()}
	assert.ElementsMatch(t, []puyo.Color{puyo.ColorRed, puyo.ColorBlue}, colors)
	for _, chain := range chains {
		assert.Equal(t, 4, chain.Len())
		for _, m := range chain.Members {
			assert.Equal(t, chain.Color(), m.Color)
		}
	}
}

func TestScanLongSnakeDetectedOnce(t *testing.T) {
	b := NewBoard(puyo.NewGrid())
	// どのぷよから辿っても同じ1つの成分になる蛇行形
	path := []puyo.Index{idx(0, 12), idx(1, 12), idx(2, 12), idx(2, 11), idx(1, 11), idx(0, 11), idx(0, 10)}
	for _, i := range path {
		settle(t, b, i.X, i.Y, puyo.ColorGreen)
	}
	chains := NewChainResolver(b).Scan()
	require.Len(t, chains, 1)
	assert.Equal(t, len(path), chains[0].Len())
}

func TestScanIgnoresFallingNeighbors(t *testing.T) {
	b := NewBoard(puyo.NewGrid())
	settle(t, b, 0, 12, puyo.ColorYellow)
	settle(t, b, 1, 12, puyo.ColorYellow)
	settle(t, b, 2, 12, puyo.ColorYellow)
	falling := b.Spawn(idx(3, 12), puyo.ColorYellow, true)
	require.NotNil(t, falling)
	resolver := NewChainResolver(b)

	// 操作中のぷよは数に入らない
	assert.Empty(t, resolver.Scan())

	// 固定済みの4つは隣に操作中の同色があってもそのまま消える
	settle(t, b, 2, 11, puyo.ColorYellow)
	chains := resolver.Scan()
	require.Len(t, chains, 1)
	assert.Equal(t, 4, chains[0].Len())
	for _, m := range chains[0].Members {
		assert.NotEqual(t, falling.Index, m.Index)
	}
	assert.False(t, falling.Blasted)
}

func TestChainSnapshotIsDecoupled(t *testing.T) {
	b := NewBoard(puyo.NewGrid())
	cells := make([]*puyo.Cell, 0, 4)
	for x := 0; x < 4; x++ {
		cells = append(cells, settle(t, b, x, 12, puyo.ColorPurple))
	}
	chains := NewChainResolver(b).Scan()
	require.Len(t, chains, 1)
	before := append([]ChainMember(nil), chains[0].Members...)

	b.Move(cells[0], idx(0, 5))
	assert.Equal(t, before, chains[0].Members)
}

func TestScanRandomBoardsInvariants(t *testing.T) {
	colors := []puyo.Color{puyo.ColorRed, puyo.ColorBlue, puyo.ColorGreen}

	for seed := int64(1); seed <= 30; seed++ {
		r := rand.New(rand.NewSource(seed))
		b := NewBoard(puyo.NewGrid())
		for x := 0; x < b.Grid.Cols; x++ {
			height := r.Intn(b.Grid.Rows)
			for y := b.Grid.Rows - 1; y >= b.Grid.Rows-height; y-- {
				settle(t, b, x, y, colors[r.Intn(len(colors))])
			}
		}

		chains := NewChainResolver(b).Scan()
		seen := make(map[puyo.Index]bool)
		for _, chain := range chains {
			require.GreaterOrEqual(t, chain.Len(), MinChainSize)
			members := make(map[puyo.Index]bool, chain.Len())
			for _, m := range chain.Members {
				assert.Equal(t, chain.Color(), m.Color, "seed %d", seed)
				assert.False(t, seen[m.Index], "seed %d: %v in two chains", seed, m.Index)
				seen[m.Index] = true
				members[m.Index] = true
			}
			assert.Equal(t, chain.Len(), reachable(chain.Members[0].Index, members), "seed %d: chain is not connected", seed)
		}
	}
}

// reachable は members の中で start から4方向にたどれるマスの数を数えます。
func reachable(start puyo.Index, members map[puyo.Index]bool) int {
	visited := map[puyo.Index]bool{start: true}
	queue := []puyo.Index{start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range neighborDirs {
			next := cur.Add(d)
			if members[next] && !visited[next] {
				visited[next] = true
				queue = append(queue, next)
			}
		}
	}
	return len(visited)
}
