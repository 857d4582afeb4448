package bytering

import (
	"runtime"
	"time"
)

const (
	backoffSpins  = 16
	backoffYields = 64
	backoffMinNap = time.Microsecond
	backoffMaxNap = time.Millisecond
)

// backoff paces a publish loop that is waiting for an earlier reservation to
// commit. The preceding copy is normally already in flight, so the wait
// starts with cheap spins, moves to scheduler yields and finally sleeps with
// a doubling, capped nap so a descheduled peer cannot pin a CPU.
type backoff struct {
	n   int
	nap time.Duration
}

func (b *backoff) wait() {
	b.n++
	switch {
	case b.n <= backoffSpins:
		// spin
	case b.n <= backoffSpins+backoffYields:
		runtime.Gosched()
	default:
		if b.nap == 0 {
			b.nap = backoffMinNap
		}
		time.Sleep(b.nap)
		b.nap = min(b.nap*2, backoffMaxNap)
	}
}
