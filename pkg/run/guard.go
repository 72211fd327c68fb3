package run

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when a run of the same kind already holds the lease
var ErrRunInProgress = errors.New("run already in progress")

// Kind names a class of run that must not overlap with itself
type Kind string

const (
	KindHarvest  Kind = "harvest"
	KindMutation Kind = "mutation"
)

// Lease is held for the lifetime of one run
type Lease struct {
	ID      string
	Kind    Kind
	Started time.Time

	token *Token
	guard *Guard
	once  sync.Once
}

// Release frees the lease. Safe to call more than once.
func (l *Lease) Release() {
	l.once.Do(func() {
		l.guard.mu.Lock()
		defer l.guard.mu.Unlock()
		if l.guard.active[l.Kind] == l {
			delete(l.guard.active, l.Kind)
		}
	})
}

// Guard admits at most one active run per Kind
type Guard struct {
	mu     sync.Mutex
	active map[Kind]*Lease
	now    func() time.Time
}

// NewGuard returns an empty guard
func NewGuard() *Guard {
	return &Guard{active: make(map[Kind]*Lease), now: time.Now}
}

// Acquire takes the lease for kind and associates tok with it so that Stop
// can cancel the run. It fails with ErrRunInProgress if the lease is held.
func (g *Guard) Acquire(kind Kind, tok *Token) (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if held, ok := g.active[kind]; ok {
		return nil, fmt.Errorf("%w: %s run %s started %s", ErrRunInProgress, kind, held.ID, held.Started.Format(time.RFC3339))
	}

	lease := &Lease{
		ID:      uuid.NewString(),
		Kind:    kind,
		Started: g.now(),
		token:   tok,
		guard:   g,
	}
	g.active[kind] = lease
	return lease, nil
}

// Active returns the lease currently held for kind, if any
func (g *Guard) Active(kind Kind) (*Lease, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	l, ok := g.active[kind]
	return l, ok
}

// Stop cancels the token of the active run of kind. It reports whether a run was active.
func (g *Guard) Stop(kind Kind) bool {
	l, ok := g.Active(kind)
	if !ok {
		return false
	}
	if l.token != nil {
		l.token.Cancel()
	}
	return true
}
