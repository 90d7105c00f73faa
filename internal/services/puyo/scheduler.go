package puyo

import "github.com/progate-hackathon-strawberry-flavor/PUYORIS-backend/internal/models/puyo"

// EventKind は遅延実行されるイベントの種類です。
type EventKind int

const (
	EventDestroyCell EventKind = iota // 消滅待ちのぷよを取り除き、下詰めする
	EventSpawnPair                    // 次の組ぷよを出現させる（出現位置が埋まっていればゲームオーバー）
)

// String はイベント種別の文字列表現を返します。
func (k EventKind) String() string {
	switch k {
	case EventDestroyCell:
		return "destroy_cell"
	case EventSpawnPair:
		return "spawn_pair"
	default:
		return "unknown"
	}
}

// EventID はスケジュール済みイベントの識別子です。
type EventID uint64

// ScheduledEvent は「種類 + 対象ID + 発火ティック」で表される遅延イベントです。
// クロージャを保持しないので、外側の可変状態を暗黙に捕まえることはありません。
type ScheduledEvent struct {
	ID          EventID
	Kind        EventKind
	Target      puyo.CellID // EventSpawnPair では未使用
	ScheduledAt int
	Delay       int
	cancelled   bool
}

// FireTick はこのイベントが発火する最初のティックです。
func (e ScheduledEvent) FireTick() int {
	return e.ScheduledAt + e.Delay
}

// Scheduler はティック数で遅延を数えるイベントキューです。
// 各イベントは currentTick - scheduledAt >= delay となった最初のティックで一度だけ発火します。
type Scheduler struct {
	pending []*ScheduledEvent
	nextID  EventID
}

// NewScheduler は空のスケジューラを作成します。
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// After は now から delay ティック後に発火するイベントを登録し、そのIDを返します。
func (s *Scheduler) After(now, delay int, kind EventKind, target puyo.CellID) EventID {
	s.nextID++
	s.pending = append(s.pending, &ScheduledEvent{
		ID:          s.nextID,
		Kind:        kind,
		Target:      target,
		ScheduledAt: now,
		Delay:       delay,
	})
	return s.nextID
}

// Cancel は未発火のイベントを無効化します。無効化されたイベントは発火しても何も起きません。
func (s *Scheduler) Cancel(id EventID) bool {
	for _, ev := range s.pending {
		if ev.ID == id && !ev.cancelled {
			ev.cancelled = true
			return true
		}
	}
	return false
}

// CancelAll は全ての未発火イベントを無効化します。
func (s *Scheduler) CancelAll() {
	for _, ev := range s.pending {
		ev.cancelled = true
	}
	s.pending = s.pending[:0]
}

// Due は now の時点で発火すべきイベントを登録順に取り出して返します。
// 取り出したイベントはキューから削除されます。無効化済みのイベントは返さずに捨てます。
func (s *Scheduler) Due(now int) []ScheduledEvent {
	var due []ScheduledEvent
	remaining := s.pending[:0]
	for _, ev := range s.pending {
		switch {
		case ev.cancelled:
			// 破棄
		case ev.FireTick() <= now:
			due = append(due, *ev)
		default:
			remaining = append(remaining, ev)
		}
	}
	// 取り残された末尾のポインタを解放
	for i := len(remaining); i < len(s.pending); i++ {
		s.pending[i] = nil
	}
	s.pending = remaining
	return due
}

// Pending は未発火（かつ無効化されていない）イベントの数を返します。
func (s *Scheduler) Pending() int {
	n := 0
	for _, ev := range s.pending {
		if !ev.cancelled {
			n++
		}
	}
	return n
}
