package crawler

import (
	"fmt"

	"github.com/goran-ethernal/DDOIndexor/pkg/indexer"
)

// PushResult tells what the inbox did with a submitted task.
type PushResult int

const (
	// Queued means the task became a new entry at the back of the inbox.
	Queued PushResult = iota
	// Merged means the task collapsed into an entry already queued.
	Merged
)

func (r PushResult) String() string {
	if r == Merged {
		return "merged"
	}
	return "queued"
}

// Inbox is the ordered queue of pending reindex items of one worker.
// Tasks for the same transaction or DID, and overlapping block ranges, collapse
// into one entry: the entry keeps the position of the first submission and takes
// the parameters of the last one. Ranges only merge with ranges of the same rewind
// flag, so a rewind never grows past the blocks it was asked for.
// Owned by the worker goroutine; not safe for concurrent use.
type Inbox struct {
	capacity int
	items    []indexer.ReindexTask
}

// NewInbox creates an inbox holding at most capacity distinct entries.
func NewInbox(capacity int) *Inbox {
	return &Inbox{capacity: capacity}
}

// Len returns the number of pending entries.
func (i *Inbox) Len() int {
	return len(i.items)
}

// Push queues task or merges it into a matching entry.
// Returns ErrInboxFull when the task is new and the inbox is at capacity.
func (i *Inbox) Push(task indexer.ReindexTask) (PushResult, error) {
	if task.Selector() == indexer.SelectorRange {
		return i.pushRange(task)
	}

	key := task.Key()
	for idx, queued := range i.items {
		if queued.Key() == key {
			i.items[idx] = task
			return Merged, nil
		}
	}

	return Queued, i.append(task)
}

func (i *Inbox) pushRange(task indexer.ReindexTask) (PushResult, error) {
	merged := *task.Range
	mergeable := func(queued indexer.ReindexTask) bool {
		return queued.Selector() == indexer.SelectorRange &&
			queued.Rewind == task.Rewind &&
			queued.Range.Overlaps(merged)
	}

	// grow the range until it absorbs every queued range it is connected to
	for grown := true; grown; {
		grown = false
		for _, queued := range i.items {
			if !mergeable(queued) {
				continue
			}
			if union := merged.Union(*queued.Range); union != merged {
				merged = union
				grown = true
			}
		}
	}

	first := -1
	kept := i.items[:0]
	for _, queued := range i.items {
		if mergeable(queued) {
			if first != -1 {
				continue
			}
			first = len(kept)
		}
		kept = append(kept, queued)
	}
	i.items = kept

	if first == -1 {
		return Queued, i.append(task)
	}

	task.Range = &merged
	i.items[first] = task
	return Merged, nil
}

func (i *Inbox) append(task indexer.ReindexTask) error {
	if len(i.items) >= i.capacity {
		return fmt.Errorf("%w: %d pending", ErrInboxFull, len(i.items))
	}
	i.items = append(i.items, task)
	return nil
}

// Pop removes and returns the oldest entry.
func (i *Inbox) Pop() (indexer.ReindexTask, bool) {
	if len(i.items) == 0 {
		return indexer.ReindexTask{}, false
	}

	task := i.items[0]
	i.items[0] = indexer.ReindexTask{}
	i.items = i.items[1:]
	return task, true
}

// PushFront puts task back at the head of the inbox.
// It is meant for the remainder of an entry just popped, so capacity is not checked.
func (i *Inbox) PushFront(task indexer.ReindexTask) {
	i.items = append([]indexer.ReindexTask{task}, i.items...)
}

// Pending returns a copy of the queued entries, oldest first.
func (i *Inbox) Pending() []indexer.ReindexTask {
	out := make([]indexer.ReindexTask, len(i.items))
	copy(out, i.items)
	return out
}
