// Package events carries the "tasks changed" broadcast between views.
package events

import (
	"sync"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

type ChangeKind int

const (
	Upsert ChangeKind = iota
	Delete
)

func (k ChangeKind) String() string {
	if k == Delete {
		return "delete"
	}
	return "upsert"
}

// TaskChange is either an upsert carrying the task or a deletion carrying
// only the id.
type TaskChange struct {
	Kind ChangeKind
	Task models.Task
	ID   string
}

func Upserted(task models.Task) TaskChange {
	return TaskChange{Kind: Upsert, Task: task, ID: task.ID}
}

func Deleted(id string) TaskChange {
	return TaskChange{Kind: Delete, ID: id}
}

// Bus delivers each change synchronously to every current subscriber.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(TaskChange)
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(TaskChange))}
}

// Subscribe returns a func that removes the handler; calling it twice is
// harmless.
func (b *Bus) Subscribe(fn func(TaskChange)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
		})
	}
}

func (b *Bus) Publish(change TaskChange) {
	b.mu.RLock()
	handlers := make([]func(TaskChange), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(change)
	}
}

func (b *Bus) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}
