package UC

import (
	"sync"

	Go_Utils "github.com/cx-project/cx"
)

// Participants is the one-shot registration table spec.md §7 asks for:
// using an unregistered, out-of-range, or still-claimed tid at the
// hazard-pointer layer is undefined behavior, so callers that don't already
// manage their own stable tids should claim one here first.
type Participants struct {
	mu               sync.Mutex
	claimed          Go_Utils.BitArray
	participantCount int
	registered       Go_Utils.AtomicInt
}

func newParticipants(participantCount int) *Participants {
	return &Participants{claimed: Go_Utils.New(participantCount), participantCount: participantCount}
}

// Registered reports how many tids are currently claimed, for tests and
// instrumentation that want to assert every participant unregistered
// cleanly at teardown.
func (p *Participants) Registered() int {
	return p.registered.Load()
}

// Register claims the lowest free tid in [0, participantCount).
func (p *Participants) Register() (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for tid := 0; tid < p.participantCount; tid++ {
		if !p.claimed.Get(tid) {
			p.claimed.Up(tid)
			p.registered.Add(1)
			return tid, nil
		}
	}
	return -1, &NoFreeParticipantError{}
}

// RegisterAt claims a specific tid, for callers that need deterministic
// thread-to-tid assignment (benchmarks pinning goroutines to tids, tests
// replaying a fixed schedule).
func (p *Participants) RegisterAt(tid int) error {
	if tid < 0 || tid >= p.participantCount {
		return &ParticipantOutOfRangeError{Tid: tid, ParticipantCount: p.participantCount}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.claimed.Get(tid) {
		return &DuplicateParticipantError{Tid: tid}
	}
	p.claimed.Up(tid)
	p.registered.Add(1)
	return nil
}

// Unregister releases tid, recycling it for a future Register/RegisterAt
// call. The caller must have already cleared its hazard slots and have no
// in-flight submission node, per spec.md §5 — Unregister itself can't check
// either.
func (p *Participants) Unregister(tid int) error {
	if tid < 0 || tid >= p.participantCount {
		return &ParticipantOutOfRangeError{Tid: tid, ParticipantCount: p.participantCount}
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.claimed.Get(tid) {
		return &ParticipantOutOfRangeError{Tid: tid, ParticipantCount: p.participantCount}
	}
	p.claimed.Down(tid)
	p.registered.Add(-1)
	return nil
}
