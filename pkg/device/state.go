package device

import (
	"sync"
	"time"

	"github.com/guregu/null"
)

// State is the single explicit device state owned by the scheduler. It is
// handed by pointer to each component call and only ever touched from the
// scheduler goroutine.
type State struct {
	Readings ReadingSet
	Trend    TrendCategory

	Sample  Timer
	Display Timer
	Upload  Timer
	Resync  Timer

	PrimaryOK    bool
	TimeResolved bool

	LastUpload null.Time
	LastTrend  null.Time
	LastSync   null.Time
}

// Intervals configures the four periodic timers.
type Intervals struct {
	Sample  time.Duration
	Display time.Duration
	Upload  time.Duration
	Resync  time.Duration
}

// NewState returns a state with timers configured but never fired.
func NewState(intervals Intervals) *State {
	return &State{
		Trend:   Flat,
		Sample:  Timer{Interval: intervals.Sample},
		Display: Timer{Interval: intervals.Display},
		Upload:  Timer{Interval: intervals.Upload},
		Resync:  Timer{Interval: intervals.Resync},
	}
}

// Snapshot is a copy of the observable parts of State, safe to hand to other
// goroutines.
type Snapshot struct {
	Readings     ReadingSet    `json:"readings"`
	Trend        TrendCategory `json:"trend"`
	PrimaryOK    bool          `json:"primaryOK"`
	TimeResolved bool          `json:"timeResolved"`
	LastUpload   null.Time     `json:"lastUpload"`
	LastTrend    null.Time     `json:"lastTrend"`
	LastSync     null.Time     `json:"lastSync"`
}

// Snapshot copies the current state.
func (s *State) Snapshot() Snapshot {
	return Snapshot{
		Readings:     s.Readings,
		Trend:        s.Trend,
		PrimaryOK:    s.PrimaryOK,
		TimeResolved: s.TimeResolved,
		LastUpload:   s.LastUpload,
		LastTrend:    s.LastTrend,
		LastSync:     s.LastSync,
	}
}

// Store holds the most recently published snapshot for readers outside the
// scheduler, i.e. the status server.
type Store struct {
	snapshot Snapshot
	sync.RWMutex
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish replaces the stored snapshot.
func (s *Store) Publish(snapshot Snapshot) {
	s.Lock()
	defer s.Unlock()
	s.snapshot = snapshot
}

// Snapshot returns the last published snapshot.
func (s *Store) Snapshot() Snapshot {
	s.RLock()
	defer s.RUnlock()
	return s.snapshot
}
