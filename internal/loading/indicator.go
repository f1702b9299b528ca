// Package loading implements the busy spinner timing: once shown, the
// indicator stays visible for at least a floor and at most a ceiling,
// whatever the request latency.
package loading

import (
	"sync"
	"time"
)

type Indicator struct {
	mu       sync.Mutex
	floor    time.Duration
	ceiling  time.Duration
	onChange func(visible bool)

	visible bool
	active  int
	shownAt time.Time
	gen     uint64
	hide    *time.Timer
	limit   *time.Timer
	now     func() time.Time
}

// New returns a hidden indicator. onChange may be nil.
func New(floor, ceiling time.Duration, onChange func(visible bool)) *Indicator {
	if ceiling < floor {
		ceiling = floor
	}
	if onChange == nil {
		onChange = func(bool) {}
	}
	return &Indicator{
		floor:    floor,
		ceiling:  ceiling,
		onChange: onChange,
		now:      time.Now,
	}
}

// Start shows the indicator and counts one more running operation.
// Starting an already visible indicator restarts its ceiling.
func (i *Indicator) Start() {
	i.mu.Lock()
	i.active++
	i.gen++
	gen := i.gen
	i.stopTimersLocked()
	wasVisible := i.visible
	i.visible = true
	if !wasVisible {
		i.shownAt = i.now()
	}
	i.limit = time.AfterFunc(i.ceiling, func() { i.hideIf(gen) })
	i.mu.Unlock()

	if !wasVisible {
		i.onChange(true)
	}
}

// Stop ends one operation. The last one hides the indicator once the floor
// has elapsed since it was shown.
func (i *Indicator) Stop() {
	i.mu.Lock()
	if i.active > 0 {
		i.active--
	}
	if !i.visible || i.active > 0 {
		i.mu.Unlock()
		return
	}
	gen := i.gen
	remaining := i.floor - i.now().Sub(i.shownAt)
	if remaining > 0 {
		if i.hide != nil {
			i.hide.Stop()
		}
		i.hide = time.AfterFunc(remaining, func() { i.hideIf(gen) })
		i.mu.Unlock()
		return
	}
	i.mu.Unlock()

	i.hideIf(gen)
}

func (i *Indicator) Visible() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.visible
}

// Track shows the indicator around fn.
func (i *Indicator) Track(fn func() error) error {
	i.Start()
	defer i.Stop()
	return fn()
}

func (i *Indicator) hideIf(gen uint64) {
	i.mu.Lock()
	if gen != i.gen || !i.visible {
		i.mu.Unlock()
		return
	}
	i.visible = false
	i.active = 0
	i.stopTimersLocked()
	i.mu.Unlock()

	i.onChange(false)
}

func (i *Indicator) stopTimersLocked() {
	if i.hide != nil {
		i.hide.Stop()
		i.hide = nil
	}
	if i.limit != nil {
		i.limit.Stop()
		i.limit = nil
	}
}
