package lot

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/parkd-io/parkd/internal/domain"
	"github.com/parkd-io/parkd/internal/snapshot"
)

// ErrNoPersistence is returned by Snapshot and Restore on a lot built
// without WithPersistence.
var ErrNoPersistence = errors.New("parkd: persistence not configured")

// Lot is the monitor guarding the occupant map and capacity counters.
//
// All mutations (Admit, Release, SetRates) are linearized under the write
// lock; Lookup and the list operations take the read lock. Persistence is
// serialized by its own lock and always performed after the data lock is
// released, so an in-memory mutation and its durable write are not atomic
// with respect to a crash. A failed write is logged and never rolled back;
// the lot keeps operating on memory-only state.
type Lot struct {
	mu       sync.RWMutex
	vehicles map[string]domain.Vehicle
	capacity int
	occupied int
	rates    Rates
	waiters  []*waiter

	strategy RateStrategy
	now      func() time.Time
	logger   zerolog.Logger

	saveMu sync.Mutex
	codec  snapshot.Codec
	repo   snapshot.Repository
}

// waiter is one blocked Admit call. Release hands the freed slot hint to
// the oldest waiter; the wake is a hint, not a reservation, so the woken
// caller re-checks capacity under the lock.
type waiter struct {
	ch chan struct{}
}

// Config holds the initial parameters of a lot.
type Config struct {
	Capacity  int
	SmallRate float64
	LargeRate float64
}

// Option configures optional behavior of a Lot.
type Option func(*Lot)

// WithLogger sets the logger used for persistence and admission events.
func WithLogger(logger zerolog.Logger) Option {
	return func(l *Lot) { l.logger = logger }
}

// WithPersistence attaches a codec and repository. Every successful
// mutation triggers an encode-and-save round trip.
func WithPersistence(codec snapshot.Codec, repo snapshot.Repository) Option {
	return func(l *Lot) {
		l.codec = codec
		l.repo = repo
	}
}

// WithRateStrategy replaces the default table-backed rate lookup.
func WithRateStrategy(s RateStrategy) Option {
	return func(l *Lot) { l.strategy = s }
}

// WithClock overrides the time source. Tests use this to pin entry and
// exit instants.
func WithClock(now func() time.Time) Option {
	return func(l *Lot) { l.now = now }
}

// New creates a lot with the given capacity and rates.
func New(cfg Config, opts ...Option) *Lot {
	l := &Lot{
		vehicles: make(map[string]domain.Vehicle),
		capacity: cfg.Capacity,
		rates:    Rates{Small: cfg.SmallRate, Large: cfg.LargeRate},
		now:      time.Now,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.strategy == nil {
		l.strategy = l.tableRate
	}
	return l
}

// tableRate is the default RateStrategy, reading the live rate table.
// Callers hold at least the read lock.
func (l *Lot) tableRate(class domain.Class) float64 {
	return l.rates.For(class)
}

// Admit claims one space for plate, blocking up to wait for a slot when
// the lot is full. With wait == 0 a full lot fails immediately with
// ErrLotFull; otherwise the caller suspends until a slot frees, the wait
// elapses (ErrWaitTimeout), or ctx is done. A plate that is already
// known, present or departed, fails with ErrDuplicate regardless of
// capacity: records are never deleted, so a departed plate stays in the
// history and cannot re-enter.
//
// Waiters are served in FIFO order among themselves, but a new caller
// arriving between a release and the woken waiter's re-check can still
// take the slot first.
func (l *Lot) Admit(ctx context.Context, plate string, class domain.Class, wait time.Duration) error {
	deadline := l.now().Add(wait)

	l.mu.Lock()
	woken := false
	for {
		if _, ok := l.vehicles[plate]; ok {
			if woken {
				// Not taking the slot; hand the wake to the next waiter.
				l.wakeOneLocked()
			}
			l.mu.Unlock()
			return domain.ErrDuplicate
		}
		if l.occupied < l.capacity {
			break
		}
		if wait <= 0 {
			l.mu.Unlock()
			return domain.ErrLotFull
		}
		remaining := deadline.Sub(l.now())
		if remaining <= 0 {
			l.mu.Unlock()
			return domain.ErrWaitTimeout
		}

		w := &waiter{ch: make(chan struct{}, 1)}
		l.waiters = append(l.waiters, w)
		l.mu.Unlock()

		timer := time.NewTimer(remaining)
		select {
		case <-w.ch:
			timer.Stop()
			l.mu.Lock()
			woken = true
		case <-timer.C:
			l.abandonWait(w)
			return domain.ErrWaitTimeout
		case <-ctx.Done():
			timer.Stop()
			l.abandonWait(w)
			return ctx.Err()
		}
	}

	v := domain.Vehicle{
		Plate:     plate,
		Class:     class,
		EntryTime: l.now(),
	}
	l.vehicles[plate] = v
	l.occupied++
	st := l.stateLocked()
	l.mu.Unlock()

	l.logger.Debug().Str("plate", plate).Str("class", string(class)).Msg("vehicle admitted")
	l.persist(st)
	return nil
}

// abandonWait removes w from the queue after a timeout or cancellation.
// If a wake raced in before removal, the signal is handed to the next
// waiter so a freed slot is never lost.
func (l *Lot) abandonWait(w *waiter) {
	l.mu.Lock()
	for i, q := range l.waiters {
		if q == w {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			break
		}
	}
	select {
	case <-w.ch:
		l.wakeOneLocked()
	default:
	}
	l.mu.Unlock()
}

// wakeOneLocked signals the oldest waiter, if any. Callers hold the
// write lock.
func (l *Lot) wakeOneLocked() {
	if len(l.waiters) == 0 {
		return
	}
	w := l.waiters[0]
	l.waiters = l.waiters[1:]
	w.ch <- struct{}{}
}

// Release finalizes the record for plate: sets the exit time, computes
// the fee from the elapsed hours and the class rate, frees the slot, and
// wakes the oldest blocked Admit. Returns ErrNotFound for an unknown or
// already departed plate.
func (l *Lot) Release(plate string) (float64, error) {
	l.mu.Lock()
	v, ok := l.vehicles[plate]
	if !ok || v.Departed() {
		l.mu.Unlock()
		return 0, domain.ErrNotFound
	}

	exit := l.now()
	v.ExitTime = exit
	v.Fee = fee(exit.Sub(v.EntryTime).Seconds(), l.strategy(v.Class))
	l.vehicles[plate] = v
	l.occupied--
	l.wakeOneLocked()
	st := l.stateLocked()
	l.mu.Unlock()

	l.logger.Debug().Str("plate", plate).Float64("fee", v.Fee).Msg("vehicle released")
	l.persist(st)
	return v.Fee, nil
}

// Lookup returns the record for plate, present or departed.
func (l *Lot) Lookup(plate string) (domain.Vehicle, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	v, ok := l.vehicles[plate]
	return v, ok
}

// AvailableCount returns the number of free spaces.
func (l *Lot) AvailableCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capacity - l.occupied
}

// OccupiedCount returns the number of spaces in use.
func (l *Lot) OccupiedCount() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.occupied
}

// Capacity returns the total number of spaces.
func (l *Lot) Capacity() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.capacity
}

// Rates returns the current tariff table.
func (l *Lot) Rates() Rates {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.rates
}

// SetRates replaces the tariff table. Non-positive rates are rejected
// with ErrInvalidArgument.
func (l *Lot) SetRates(smallRate, largeRate float64) error {
	if smallRate <= 0 || largeRate <= 0 {
		return domain.ErrInvalidArgument
	}

	l.mu.Lock()
	l.rates = Rates{Small: smallRate, Large: largeRate}
	st := l.stateLocked()
	l.mu.Unlock()

	l.logger.Info().Float64("small_rate", smallRate).Float64("large_rate", largeRate).Msg("rates updated")
	l.persist(st)
	return nil
}

// ListPresent returns a copy of all records with no exit time.
func (l *Lot) ListPresent() []domain.Vehicle {
	return l.list(func(v domain.Vehicle) bool { return !v.Departed() })
}

// ListDeparted returns a copy of all records with an exit time.
func (l *Lot) ListDeparted() []domain.Vehicle {
	return l.list(func(v domain.Vehicle) bool { return v.Departed() })
}

func (l *Lot) list(keep func(domain.Vehicle) bool) []domain.Vehicle {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Vehicle, 0, len(l.vehicles))
	for _, v := range l.vehicles {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

// stateLocked copies the lot into a snapshot.State. Callers hold a lock.
func (l *Lot) stateLocked() snapshot.State {
	st := snapshot.State{
		Capacity:  l.capacity,
		Occupied:  l.occupied,
		SmallRate: l.rates.Small,
		LargeRate: l.rates.Large,
		Vehicles:  make([]domain.Vehicle, 0, len(l.vehicles)),
	}
	for _, v := range l.vehicles {
		st.Vehicles = append(st.Vehicles, v)
	}
	return st
}

// Snapshot encodes the current state. Requires persistence to be
// configured.
func (l *Lot) Snapshot() ([]byte, error) {
	if l.codec == nil {
		return nil, ErrNoPersistence
	}
	l.mu.RLock()
	st := l.stateLocked()
	l.mu.RUnlock()
	return l.codec.Encode(st)
}

// loadCapacityMax bounds the capacity accepted from a snapshot; an
// out-of-range value keeps the configured capacity.
const loadCapacityMax = 1000

// Restore replaces the lot's state with a decoded snapshot. The occupied
// counter is recomputed from the records rather than trusted from the
// stream, keeping the counter invariant even against a stale snapshot.
func (l *Lot) Restore(data []byte) error {
	if l.codec == nil {
		return ErrNoPersistence
	}
	st, err := l.codec.Decode(data)
	if err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if st.Capacity > 0 && st.Capacity <= loadCapacityMax {
		l.capacity = st.Capacity
	}
	if st.SmallRate > 0 {
		l.rates.Small = st.SmallRate
	}
	if st.LargeRate > 0 {
		l.rates.Large = st.LargeRate
	}

	l.vehicles = make(map[string]domain.Vehicle, len(st.Vehicles))
	l.occupied = 0
	for _, v := range st.Vehicles {
		l.vehicles[v.Plate] = v
		if !v.Departed() {
			l.occupied++
		}
	}
	return nil
}

// Save encodes the current state and writes it through the repository.
// Used for the final snapshot at shutdown.
func (l *Lot) Save(ctx context.Context) error {
	if l.repo == nil || l.codec == nil {
		return nil
	}
	l.mu.RLock()
	st := l.stateLocked()
	l.mu.RUnlock()
	return l.save(ctx, st)
}

// persist writes a snapshot built under the data lock. The write happens
// outside the data lock; failures are logged and never undo the mutation.
func (l *Lot) persist(st snapshot.State) {
	if l.repo == nil || l.codec == nil {
		return
	}
	if err := l.save(context.Background(), st); err != nil {
		l.logger.Error().Err(err).Msg("snapshot write failed; continuing on in-memory state")
	}
}

func (l *Lot) save(ctx context.Context, st snapshot.State) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	data, err := l.codec.Encode(st)
	if err != nil {
		return err
	}
	return l.repo.Save(ctx, data)
}
