package router

import "sync"

// Location is the current fragment plus a change signal. Pending changes
// coalesce: a reader that wakes up sees only the newest fragment.
type Location struct {
	mu      sync.Mutex
	hash    string
	changes chan struct{}
	closed  bool
}

func NewLocation(initial string) *Location {
	return &Location{
		hash:    initial,
		changes: make(chan struct{}, 1),
	}
}

func (l *Location) Hash() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hash
}

// Go navigates to fragment and signals a change.
func (l *Location) Go(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.hash = fragment
	select {
	case l.changes <- struct{}{}:
	default:
	}
}

// Replace rewrites the fragment without signalling a change.
func (l *Location) Replace(fragment string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hash = fragment
}

// rewrite replaces from with to unless a newer navigation already moved the
// location elsewhere.
func (l *Location) rewrite(from, to string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hash == from {
		l.hash = to
	}
}

// Changes fires after Go and is closed by Close.
func (l *Location) Changes() <-chan struct{} {
	return l.changes
}

// Close ends navigation; the router's Run returns.
func (l *Location) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.changes)
}
