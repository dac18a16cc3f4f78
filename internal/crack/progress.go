package crack

import "time"

// Progress is a snapshot of a running dictionary attack, delivered to the
// caller at most ten times per second.
type Progress struct {
	Password     string  // last candidate handed to the verifier
	Tested       int     // cumulative candidates tested
	Total        int     // wordlist size
	HashesPerSec float64 // current rate
	Mode         string  // "GPU" or "CPU"
}

// reportInterval caps progress delivery at 10 Hz. UI updates are expensive
// relative to hashing and must never become the bottleneck.
const reportInterval = 100 * time.Millisecond

// reporter throttles progress delivery onto a non-blocking channel. A full
// channel drops the update rather than stalling the hashing path.
type reporter struct {
	ch    chan Progress
	start time.Time
	last  time.Time
}

func newReporter() *reporter {
	return &reporter{
		ch:    make(chan Progress, 16),
		start: time.Now(),
	}
}

// report sends a snapshot if the throttle window has elapsed. force bypasses
// the throttle for terminal updates.
func (r *reporter) report(password string, tested, total int, mode string, force bool) {
	now := time.Now()
	if !force && now.Sub(r.last) < reportInterval {
		return
	}
	r.last = now

	elapsed := now.Sub(r.start).Seconds()
	var rate float64
	if elapsed > 0 {
		rate = float64(tested) / elapsed
	}

	select {
	case r.ch <- Progress{
		Password:     password,
		Tested:       tested,
		Total:        total,
		HashesPerSec: rate,
		Mode:         mode,
	}:
	default:
	}
}

func (r *reporter) close() {
	close(r.ch)
}
