package nmea

// MaxSentenceLen bounds a framed sentence, start marker included and
// terminator excluded. NMEA-0183 allows 82 bytes; the rest is headroom for
// receivers that do not respect it.
const MaxSentenceLen = 128

const (
	startMarker = '$'
	terminator  = '\n'
	carriage    = '\r'
)

// Sentence is one framed line: it starts with '$' and carries neither the
// terminating '\n' nor any '\r'.
type Sentence string

// FramerStats counts what the framer did with its input.
type FramerStats struct {
	Emitted   uint64
	Overflows uint64
	// Noise counts bytes dropped because no sentence was in progress.
	Noise uint64
}

// Framer turns a byte stream into sentences.
//
// The accumulation buffer is a fixed array, so memory use never depends on
// the input. A Framer is not safe for concurrent use.
type Framer struct {
	buf    [MaxSentenceLen]byte
	n      int
	active bool
	stats  FramerStats
}

// Feed consumes one byte and reports a sentence when b completed one.
func (f *Framer) Feed(b byte) (Sentence, bool) {
	switch b {
	case startMarker:
		// A new '$' always wins over whatever was in progress.
		f.buf[0] = b
		f.n = 1
		f.active = true
		return "", false
	case carriage:
		return "", false
	case terminator:
		if !f.active || f.n == 0 {
			f.reset()
			return "", false
		}
		s := Sentence(f.buf[:f.n])
		f.reset()
		f.stats.Emitted++
		return s, true
	}

	if !f.active {
		f.stats.Noise++
		return "", false
	}
	if f.n == len(f.buf) {
		f.reset()
		f.stats.Overflows++
		return "", false
	}
	f.buf[f.n] = b
	f.n++
	return "", false
}

// FeedChunk feeds every byte of p in order and calls emit for each completed
// sentence. The result is the same as calling Feed once per byte.
func (f *Framer) FeedChunk(p []byte, emit func(Sentence)) {
	for _, b := range p {
		if s, ok := f.Feed(b); ok && emit != nil {
			emit(s)
		}
	}
}

// Pending reports how many bytes of an unterminated sentence are buffered.
func (f *Framer) Pending() int {
	if !f.active {
		return 0
	}
	return f.n
}

func (f *Framer) Stats() FramerStats {
	return f.stats
}

// Reset drops any partial sentence and clears the counters.
func (f *Framer) Reset() {
	f.reset()
	f.stats = FramerStats{}
}

func (f *Framer) reset() {
	f.n = 0
	f.active = false
}
