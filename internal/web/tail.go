package web

import "sync"

// tailBuffer keeps the most recent lines, oldest first.
type tailBuffer struct {
	mu       sync.Mutex
	maxLines int
	lines    []string
	total    uint64
}

func newTailBuffer(maxLines int) *tailBuffer {
	if maxLines < 0 {
		maxLines = 0
	}
	return &tailBuffer{maxLines: maxLines, lines: make([]string, 0, maxLines)}
}

func (t *tailBuffer) add(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.total++
	if t.maxLines == 0 {
		return
	}
	if len(t.lines) < t.maxLines {
		t.lines = append(t.lines, line)
		return
	}
	copy(t.lines, t.lines[1:])
	t.lines[len(t.lines)-1] = line
}

// snapshot returns up to n of the newest lines and how many were ever added.
func (t *tailBuffer) snapshot(n int) ([]string, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if n <= 0 || n > len(t.lines) {
		n = len(t.lines)
	}
	out := make([]string, 0, n)
	out = append(out, t.lines[len(t.lines)-n:]...)
	return out, t.total
}
