package playback

import "sync"

const subscriptionBuffer = 8

// Snapshot is the playback state shown to views.
type Snapshot struct {
	Status   Status
	Playing  bool
	Position float64
	Duration float64
	Speed    float64
	Volume   float64
	BookID   string
	Chapter  int
	Title    string
	Err      string
}

// Fraction returns the position as a fraction of the duration.
func (s Snapshot) Fraction() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return s.Position / s.Duration
}

// Store holds the shared playback state.
// Views read it; only the controller writes it.
type Store struct {
	mu   sync.RWMutex
	snap Snapshot
	subs map[*Subscription]struct{}
}

// NewStore creates a store with the default speed and volume.
func NewStore(speed, volume float64) *Store {
	return &Store{
		snap: Snapshot{Speed: speed, Volume: volume},
		subs: make(map[*Subscription]struct{}),
	}
}

// Snapshot returns the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Subscribe returns a subscription receiving every subsequent state.
func (s *Store) Subscribe() *Subscription {
	sub := &Subscription{ch: make(chan Snapshot, subscriptionBuffer), store: s}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	return sub
}

// Reset closes every subscription and clears the state.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for sub := range s.subs {
		close(sub.ch)
	}
	s.subs = make(map[*Subscription]struct{})
	s.snap = Snapshot{Speed: s.snap.Speed, Volume: s.snap.Volume}
}

func (s *Store) update(fn func(*Snapshot)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before := s.snap
	fn(&s.snap)
	if before == s.snap {
		return
	}

	for sub := range s.subs {
		sub.send(s.snap)
	}
}

// Subscription delivers state changes. Slow readers miss intermediate states
// but always receive the latest one.
type Subscription struct {
	ch    chan Snapshot
	store *Store
}

// C returns the channel of states. It is closed by Close or Store.Reset.
func (sub *Subscription) C() <-chan Snapshot {
	return sub.ch
}

// Close stops delivery.
func (sub *Subscription) Close() {
	s := sub.store
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subs[sub]; ok {
		delete(s.subs, sub)
		close(sub.ch)
	}
}

// send never blocks; when the buffer is full the oldest state is dropped.
func (sub *Subscription) send(snap Snapshot) {
	for {
		select {
		case sub.ch <- snap:
			return
		default:
		}
		select {
		case <-sub.ch:
		default:
		}
	}
}
