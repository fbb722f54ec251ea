// Package queue holds the in-memory work queue the batch CLI drains.
// Scraping is strictly sequential (one browser, one operator), so the queue
// orders work rather than parallelizing it.
package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrQueueEmpty  = errors.New("queue is empty")
	ErrQueueClosed = errors.New("queue is closed")
)

// Task is one product to scrape. OwnProduct decides the review polarity
// filter; higher Priority pops first.
type Task struct {
	ID         string
	ProductID  string
	OwnProduct bool
	MaxPages   int
	Priority   int
	CreatedAt  time.Time
}

// NewTask builds a task with a fresh ID.
func NewTask(productID string, ownProduct bool, maxPages int) *Task {
	return &Task{
		ID:         uuid.NewString(),
		ProductID:  productID,
		OwnProduct: ownProduct,
		MaxPages:   maxPages,
		CreatedAt:  time.Now(),
	}
}

type Queue interface {
	Push(task *Task) error
	Pop(ctx context.Context) (*Task, error)
	Size() int
	Close() error
}

type InMemoryQueue struct {
	tasks  []*Task
	mu     sync.Mutex
	closed bool

	// wake is closed and replaced on every Push and Close; a blocked Pop
	// holds a reference to the old channel and never the mutex while it
	// waits.
	wake chan struct{}
}

func NewInMemoryQueue() *InMemoryQueue {
	return &InMemoryQueue{
		tasks: make([]*Task, 0),
		wake:  make(chan struct{}),
	}
}

func (q *InMemoryQueue) Push(task *Task) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.tasks = append(q.tasks, task)
	q.sortByPriority()
	q.wakeWaiters()

	return nil
}

func (q *InMemoryQueue) Pop(ctx context.Context) (*Task, error) {
	for {
		q.mu.Lock()

		if len(q.tasks) > 0 {
			task := q.tasks[0]
			q.tasks = q.tasks[1:]
			q.mu.Unlock()
			return task, nil
		}

		if q.closed {
			q.mu.Unlock()
			return nil, ErrQueueClosed
		}

		wake := q.wake
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

func (q *InMemoryQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.closed = true
	q.wakeWaiters()

	return nil
}

// wakeWaiters releases every blocked Pop. Callers must hold q.mu.
func (q *InMemoryQueue) wakeWaiters() {
	close(q.wake)
	q.wake = make(chan struct{})
}

// Stable insertion sort; FIFO order is preserved within a priority band.
func (q *InMemoryQueue) sortByPriority() {
	for i := 1; i < len(q.tasks); i++ {
		for j := i; j > 0 && q.tasks[j-1].Priority < q.tasks[j].Priority; j-- {
			q.tasks[j-1], q.tasks[j] = q.tasks[j], q.tasks[j-1]
		}
	}
}
