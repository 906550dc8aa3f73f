package stats

import (
	"context"
	"sync"
	"time"

	"github.com/zalepa/crashmap/crash"
)

// Position is the group value the cycler currently shows.
type Position struct {
	Value   string `json:"value,omitempty"`
	Index   int    `json:"index"`
	Count   int    `json:"count"`
	Paused  bool   `json:"paused"`
	Version uint64 `json:"version"`
}

// Cycler steps through the group values of the latest snapshot on a timer
// so each value gets its turn on the color scale. It only reads published
// snapshots, so recomputes never race with it.
type Cycler struct {
	store    *Store
	interval time.Duration

	mu      sync.Mutex
	index   int
	paused  bool
	version uint64
	group   *crash.Split
}

func NewCycler(store *Store, interval time.Duration) *Cycler {
	return &Cycler{store: store, interval: interval}
}

// Run advances the cycle every interval until ctx is done.
func (c *Cycler) Run(ctx context.Context) {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			c.mu.Lock()
			if !c.paused {
				c.move(1)
			}
			c.mu.Unlock()
		}
	}
}

// Current returns the position against the latest snapshot.
func (c *Cycler) Current() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.move(0)
}

// Step moves delta values forward (or back when negative) and pauses the
// automatic cycle.
func (c *Cycler) Step(delta int) Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = true
	return c.move(delta)
}

// TogglePause pauses or resumes the automatic cycle.
func (c *Cycler) TogglePause() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = !c.paused
	return c.move(0)
}

// move syncs with the latest snapshot, then moves delta values with
// wrap-around. c.mu must be held.
func (c *Cycler) move(delta int) Position {
	res := c.store.Latest()
	if res == nil {
		return Position{Paused: c.paused}
	}
	if res.Version != c.version {
		g, grouped := res.Settings.GroupSplit()
		if !grouped || c.group == nil || *c.group != g {
			c.index = 0
		}
		if grouped {
			c.group = &g
		} else {
			c.group = nil
		}
		c.version = res.Version
	}

	n := len(res.GroupValues)
	if n == 0 {
		c.index = 0
		return Position{Paused: c.paused, Version: res.Version}
	}
	c.index = ((c.index+delta)%n + n) % n
	return Position{
		Value:   res.GroupValues[c.index],
		Index:   c.index,
		Count:   n,
		Paused:  c.paused,
		Version: res.Version,
	}
}
