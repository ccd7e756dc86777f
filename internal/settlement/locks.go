package settlement

import "sync"

// bookingLocks serializes settlement operations per booking with a fixed
// set of striped mutexes. Two bookings may share a stripe; that only
// costs contention, never correctness. The database CAS on booking
// status remains the backstop across processes.
type bookingLocks struct {
	stripes [64]sync.Mutex
}

func (l *bookingLocks) lock(bookingID int) func() {
	m := &l.stripes[uint(bookingID)%uint(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
