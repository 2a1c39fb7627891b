package scheduler

import (
	"container/heap"
	"math"
	"sync"
	"time"
)

// Virtual is a deterministic scheduler driven by a logical clock.
// Work only runs when the clock is advanced, in due-time order, ties broken by insertion order.
type Virtual struct {
	mu sync.Mutex

	epoch time.Time

	// logical time elapsed since epoch
	clock time.Duration

	// insertion counter, breaks ties between items due at the same time
	seq uint64

	queue workQueue

	running bool
}

func NewVirtual() *Virtual {
	return &Virtual{
		epoch: time.Unix(0, 0).UTC(),
	}
}

func (v *Virtual) Now() time.Time {
	return v.epoch.Add(v.Clock())
}

// Clock returns the logical time elapsed since the scheduler was created.
func (v *Virtual) Clock() time.Duration {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.clock
}

// Pending returns the number of queued actions.
func (v *Virtual) Pending() int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.queue.Len()
}

func (v *Virtual) Schedule(action func()) error {
	return v.ScheduleAfter(0, action)
}

func (v *Virtual) ScheduleAfter(delay time.Duration, action func()) error {
	if action == nil {
		return ErrNilAction
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	v.seq++
	heap.Push(&v.queue, &workItem{
		due:    v.clock + max(delay, 0),
		seq:    v.seq,
		action: action,
	})

	return nil
}

// AdvanceTo runs everything due at or before target, including work scheduled by the
// actions themselves, then leaves the clock at target.
func (v *Virtual) AdvanceTo(target time.Duration) error {
	return v.advance(target)
}

// AdvanceBy moves the clock forward by d.
func (v *Virtual) AdvanceBy(d time.Duration) error {
	return v.advance(v.Clock() + d)
}

// Run drains the queue completely. The clock ends at the due time of the last action.
func (v *Virtual) Run() error {
	return v.advance(math.MaxInt64)
}

func (v *Virtual) advance(target time.Duration) error {
	v.mu.Lock()
	if v.running {
		v.mu.Unlock()
		return ErrReentrantAdvance
	}
	v.running = true
	v.mu.Unlock()

	defer func() {
		v.mu.Lock()
		v.running = false
		v.mu.Unlock()
	}()

	for {
		item := v.next(target)
		if item == nil {
			break
		}

		item.action()
	}

	v.mu.Lock()
	if target != math.MaxInt64 && target > v.clock {
		v.clock = target
	}
	v.mu.Unlock()

	return nil
}

func (v *Virtual) next(target time.Duration) *workItem {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.queue.Len() == 0 || v.queue[0].due > target {
		return nil
	}

	item := heap.Pop(&v.queue).(*workItem)
	if item.due > v.clock {
		v.clock = item.due
	}

	return item
}

type workItem struct {
	due    time.Duration
	seq    uint64
	action func()
}

// workQueue is a min-heap on (due, seq).
type workQueue []*workItem

func (q workQueue) Len() int { return len(q) }

func (q workQueue) Less(i, j int) bool {
	if q[i].due != q[j].due {
		return q[i].due < q[j].due
	}
	return q[i].seq < q[j].seq
}

func (q workQueue) Swap(i, j int) { q[i], q[j] = q[j], q[i] }

func (q *workQueue) Push(x any) {
	*q = append(*q, x.(*workItem))
}

func (q *workQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}
