package stats

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zalepa/crashmap/crash"
)

// Observer is called after every published recompute.
type Observer func(res *Result, elapsed time.Duration)

// Store owns the dataset and the latest published Result. Recomputes are
// serialized; readers always get the most recent completed snapshot and
// never see a pass in progress.
type Store struct {
	ds  *crash.Dataset
	log *logrus.Entry

	mu        sync.Mutex
	version   uint64
	observers []Observer

	latest atomic.Pointer[Result]
}

// NewStore creates a store. Call Recompute once before serving readers.
func NewStore(ds *crash.Dataset, log *logrus.Entry) *Store {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Store{ds: ds, log: log.WithField("component", "stats.store")}
}

// Dataset returns the record store the snapshots are computed from.
func (st *Store) Dataset() *crash.Dataset { return st.ds }

// Observe registers fn to run after each recompute.
func (st *Store) Observe(fn Observer) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.observers = append(st.observers, fn)
}

// Latest returns the most recent snapshot, or nil before the first pass.
func (st *Store) Latest() *Result {
	return st.latest.Load()
}

// Recompute validates s, runs a full aggregation pass and publishes the
// result under the next version. Invalid settings leave the current
// snapshot in place.
func (st *Store) Recompute(s Settings) (*Result, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.recompute(s), nil
}

// Update applies change to the settings of the latest snapshot and
// recomputes. The check and the recompute happen under one lock, so a
// change is always validated against the settings it replaces. A rejected
// change leaves the snapshot untouched.
func (st *Store) Update(change func(Settings) (Settings, error)) (*Result, error) {
	st.mu.Lock()
	defer st.mu.Unlock()

	cur := DefaultSettings()
	if res := st.latest.Load(); res != nil {
		cur = res.Settings
	}
	next, err := change(cur)
	if err != nil {
		return nil, err
	}
	if err := next.Validate(); err != nil {
		return nil, err
	}
	return st.recompute(next), nil
}

func (st *Store) recompute(s Settings) *Result {
	start := time.Now()
	res := Aggregate(st.ds, s)
	elapsed := time.Since(start)

	st.version++
	res.Version = st.version
	st.latest.Store(res)

	log := st.log.WithFields(logrus.Fields{
		"version":  res.Version,
		"selected": res.Selected,
		"metric":   s.Metric.Key(),
		"mode":     s.Mode.String(),
		"elapsed":  elapsed,
	})
	if g, ok := s.GroupSplit(); ok {
		log = log.WithField("group", g.Key())
	}
	for _, name := range sortedKeys(res.Unmatched) {
		log.WithField("area", name).WithField("records", res.Unmatched[name]).
			Debug("records reference an unknown area")
	}
	if s.Threshold > 0 && !res.HasData(s.Metric, s.Mode) {
		log.WithField("threshold", s.Threshold).Warn("threshold excluded every area")
	}
	log.Info("statistics recomputed")

	for _, fn := range st.observers {
		fn(res, elapsed)
	}
	return res
}
