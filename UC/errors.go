package UC

import "fmt"

// PoolExhaustedError describes the case where ApplyUpdate finds every
// Combined in the pool held exclusively or draining at once; ApplyUpdate
// logs its message and returns R's zero value. Sizing the pool at
// >= 2*participantCount (what New does) makes this provably unreachable; seeing it means the
// pool was constructed too small, a programmer error rather than a
// transient condition worth retrying.
type PoolExhaustedError struct{}

func (e *PoolExhaustedError) Error() string {
	return "UC: Combined pool exhausted; pool must be sized >= 2*participantCount"
}

// ParticipantOutOfRangeError is returned by Participants.RegisterAt and
// Participants.Unregister when tid falls outside [0, participantCount).
// Unregister also returns it for an in-range tid that isn't registered.
type ParticipantOutOfRangeError struct {
	Tid, ParticipantCount int
}

func (e *ParticipantOutOfRangeError) Error() string {
	return fmt.Sprintf("UC: participant id %d out of range [0, %d)", e.Tid, e.ParticipantCount)
}

// DuplicateParticipantError is returned by Participants.RegisterAt when tid
// is already claimed by another (still-registered) participant.
type DuplicateParticipantError struct {
	Tid int
}

func (e *DuplicateParticipantError) Error() string {
	return fmt.Sprintf("UC: participant id %d is already registered", e.Tid)
}

// NoFreeParticipantError is returned by Participants.Register when every
// slot in [0, participantCount) is already claimed.
type NoFreeParticipantError struct{}

func (e *NoFreeParticipantError) Error() string {
	return "UC: no free participant id available"
}
