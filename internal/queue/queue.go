// Package queue holds the priority-ordered working set of validated tasks.
package queue

import (
	"errors"
	"sort"
	"sync"

	"github.com/scavenger/hunter-service/internal/types"
)

// ErrDuplicateID rejects a task whose id is already queued.
var ErrDuplicateID = errors.New("task id already queued")

// ErrInvalidTask rejects a task failing basic invariants.
var ErrInvalidTask = errors.New("invalid task")

// Queue is an in-memory priority queue ordered by PriorityScore descending.
// It is safe for concurrent use; the operator API reads it while the
// orchestrator owns mutation.
type Queue struct {
	mu    sync.Mutex
	tasks []*types.Task
	ids   map[string]bool
}

// New creates an empty queue.
func New() *Queue {
	return &Queue{ids: make(map[string]bool)}
}

// Enqueue inserts a queued task, maintaining priority order.
func (q *Queue) Enqueue(task *types.Task) error {
	if task == nil || task.Reward <= 0 || task.Status != types.StatusQueued {
		return ErrInvalidTask
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ids[task.ID] {
		return ErrDuplicateID
	}
	q.ids[task.ID] = true
	q.tasks = append(q.tasks, task)
	q.sortLocked()
	return nil
}

// Merge enqueues a batch, skipping duplicates and invalid entries, and
// returns how many were accepted.
func (q *Queue) Merge(tasks []*types.Task) int {
	accepted := 0
	for _, task := range tasks {
		if err := q.Enqueue(task); err == nil {
			accepted++
		}
	}
	return accepted
}

// Dequeue removes and returns the highest-priority queued task, or nil when
// the queue is empty.
func (q *Queue) Dequeue() *types.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return nil
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	delete(q.ids, task.ID)
	return task
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Resort re-sorts after priority scores changed.
func (q *Queue) Resort() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sortLocked()
}

// Snapshot returns a copy of the current ordering for inspection.
func (q *Queue) Snapshot() []types.Task {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]types.Task, len(q.tasks))
	for i, t := range q.tasks {
		out[i] = *t
	}
	return out
}

// sortLocked orders by priority descending, id ascending for determinism.
// Caller must hold q.mu.
func (q *Queue) sortLocked() {
	sort.SliceStable(q.tasks, func(i, j int) bool {
		if q.tasks[i].PriorityScore != q.tasks[j].PriorityScore {
			return q.tasks[i].PriorityScore > q.tasks[j].PriorityScore
		}
		return q.tasks[i].ID < q.tasks[j].ID
	})
}
