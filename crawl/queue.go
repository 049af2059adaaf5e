// Package crawl: BFS queue with deduplication.
// Index pages and notebook URLs each get their own queue so a notebook
// linked from several pages is reported once.
package crawl

// Queue is a FIFO of unique items.
type Queue struct {
	items []string
	seen  map[string]bool
	next  int
}

// NewQueue creates an empty Queue.
func NewQueue() *Queue {
	return &Queue{seen: make(map[string]bool)}
}

// Add enqueues item unless it was added before, and reports whether it
// was new.
func (q *Queue) Add(item string) bool {
	if q.seen[item] {
		return false
	}
	q.seen[item] = true
	q.items = append(q.items, item)
	return true
}

// HasNext returns true if there are unprocessed items.
func (q *Queue) HasNext() bool {
	return q.next < len(q.items)
}

// Next returns the next unprocessed item and advances the pointer.
func (q *Queue) Next() string {
	item := q.items[q.next]
	q.next++
	return item
}

// Processed returns how many items Next has returned.
func (q *Queue) Processed() int {
	return q.next
}

// All returns every item added, in insertion order.
func (q *Queue) All() []string {
	return q.items
}
