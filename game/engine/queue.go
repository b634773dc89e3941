package engine

import "sync"

// CommandQueue is the FIFO between external producers and the tick loop
type CommandQueue struct {
	mu    sync.Mutex
	items []Command
}

// NewCommandQueue creates an empty queue
func NewCommandQueue() *CommandQueue {
	return &CommandQueue{}
}

// Push appends a command; safe for concurrent producers
func (q *CommandQueue) Push(cmd Command) {
	q.mu.Lock()
	q.items = append(q.items, cmd)
	q.mu.Unlock()
}

// Drain removes and returns every queued command in arrival order
func (q *CommandQueue) Drain() []Command {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	q.items = nil
	return out
}

// Len returns the number of pending commands
func (q *CommandQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
