package arbitrage

type key struct {
	cycle int
	ret   float64
}

// recent is a fixed-size ring of the last recorded (cycle, return) pairs
// across all cycles.
type recent struct {
	buf  []key
	next int
	n    int
}

func newRecent(size int) *recent {
	return &recent{buf: make([]key, size)}
}

func (r *recent) contains(cycle int, ret float64) bool {
	for i := 0; i < r.n; i++ {
		if k := r.buf[i]; k.cycle == cycle && k.ret == ret {
			return true
		}
	}
	return false
}

func (r *recent) add(cycle int, ret float64) {
	if len(r.buf) == 0 {
		return
	}
	r.buf[r.next] = key{cycle: cycle, ret: ret}
	r.next = (r.next + 1) % len(r.buf)
	if r.n < len(r.buf) {
		r.n++
	}
}
