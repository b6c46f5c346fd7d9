// Reelcast - Video Platform Recommendation and Moderation Backend
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/reelcast

package scheduler

import (
	"container/heap"
	"time"
)

// entry is one task's position in the due-time queue.
type entry struct {
	task  *task
	due   time.Time
	index int
}

// dueQueue is a min-heap ordered by due time, then registration order.
type dueQueue []*entry

func (q dueQueue) Len() int { return len(q) }

func (q dueQueue) Less(i, j int) bool {
	if q[i].due.Equal(q[j].due) {
		return q[i].task.seq < q[j].task.seq
	}
	return q[i].due.Before(q[j].due)
}

func (q dueQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *dueQueue) Push(x any) {
	e := x.(*entry) //nolint:errcheck // only *entry is ever pushed
	e.index = len(*q)
	*q = append(*q, e)
}

func (q *dueQueue) Pop() any {
	old := *q
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	e.index = -1
	*q = old[:n-1]
	return e
}

func (q *dueQueue) schedule(t *task, due time.Time) {
	heap.Push(q, &entry{task: t, due: due})
}

// peek returns the earliest entry without removing it.
func (q dueQueue) peek() *entry {
	if len(q) == 0 {
		return nil
	}
	return q[0]
}

func (q *dueQueue) pop() *entry {
	return heap.Pop(q).(*entry) //nolint:errcheck // only *entry is ever pushed
}
