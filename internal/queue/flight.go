package queue

// Flight is the system-wide single-submission guard. The queue drain and the
// orchestrator's direct-submit path share one Flight so at most one
// interpreter call is outstanding at any time.
type Flight struct {
	sem chan struct{}
}

func NewFlight() *Flight {
	return &Flight{sem: make(chan struct{}, 1)}
}

// Acquire blocks until the flight slot is free. Used by direct submits,
// where the user is waiting anyway.
func (f *Flight) Acquire() {
	f.sem <- struct{}{}
}

// TryAcquire takes the slot without blocking. Used by drains, which simply
// wait for the next trigger when a submission is already in flight.
func (f *Flight) TryAcquire() bool {
	select {
	case f.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (f *Flight) Release() {
	<-f.sem
}
