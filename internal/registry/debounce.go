package registry

import (
	"sort"
	"sync"
	"time"
)

// dirChange is the net change to one shard directory within a debounce window.
type dirChange int

const (
	dirTouched dirChange = iota
	dirAppeared
	dirVanished
)

// debouncer coalesces filesystem events per shard directory and emits the
// net changes once no event has arrived for window:
//   - appeared + vanished = nothing
//   - vanished + appeared = appeared (the directory was replaced)
//   - anything + touched keeps the earlier change
type debouncer struct {
	window  time.Duration
	mu      sync.Mutex
	pending map[string]dirChange
	timer   *time.Timer
	output  chan map[string]dirChange
	stopped bool
}

func newDebouncer(window time.Duration) *debouncer {
	return &debouncer{
		window:  window,
		pending: make(map[string]dirChange),
		output:  make(chan map[string]dirChange, 1),
	}
}

// add records change for the shard directory name and restarts the window.
func (d *debouncer) add(name string, change dirChange) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	prev, ok := d.pending[name]
	switch {
	case !ok:
		d.pending[name] = change
	case prev == dirAppeared && change == dirVanished:
		delete(d.pending, name)
	case prev == dirVanished && change == dirAppeared:
		d.pending[name] = dirAppeared
	case change != dirTouched:
		d.pending[name] = change
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

func (d *debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := d.pending
	d.pending = make(map[string]dirChange)

	// A batch still waiting to be read absorbs this one.
	select {
	case d.output <- batch:
	case old := <-d.output:
		for name, change := range batch {
			old[name] = change
		}
		d.output <- old
	}
}

// Output delivers coalesced batches. It is closed by stop.
func (d *debouncer) Output() <-chan map[string]dirChange {
	return d.output
}

// stop discards pending changes. Safe to call more than once.
func (d *debouncer) stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.output)
}

// names returns the directories in batch with the given change, sorted.
func names(batch map[string]dirChange, change dirChange) []string {
	var out []string
	for name, c := range batch {
		if c == change {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
