package nmea

// DefaultMaxBufferSize bounds a frame when no newline ever arrives.
const DefaultMaxBufferSize = 2000

// FeedResult tells what a single byte did to the framer.
type FeedResult int

const (
	// FeedIgnored: the framer was idle and the byte was not '$'.
	FeedIgnored FeedResult = iota
	// FeedBuffered: the byte was appended to the frame in progress.
	FeedBuffered
	// FeedComplete: the byte was '\n' and completed a frame.
	FeedComplete
	// FeedOverflow: the frame hit the size bound and was discarded.
	FeedOverflow
)

// Framer cuts a byte stream into "$...\n" frames.
type Framer struct {
	buf     []byte
	filling bool
	max     int
}

// NewFramer returns an idle framer. max <= 0 selects DefaultMaxBufferSize.
func NewFramer(max int) *Framer {
	if max <= 0 {
		max = DefaultMaxBufferSize
	}
	return &Framer{max: max, buf: make([]byte, 0, 128)}
}

// Feed advances the framer by one byte. On FeedComplete the frame (ending in
// '\n') is returned and the framer is already idle again.
func (f *Framer) Feed(b byte) (string, FeedResult) {
	if !f.filling {
		if b != '$' {
			return "", FeedIgnored
		}
		f.filling = true
		f.buf = append(f.buf[:0], b)
		return "", FeedBuffered
	}

	if b == '\n' {
		f.buf = append(f.buf, b)
		frame := string(f.buf)
		f.Reset()
		return frame, FeedComplete
	}
	if len(f.buf) >= f.max {
		f.Reset()
		return "", FeedOverflow
	}
	f.buf = append(f.buf, b)
	return "", FeedBuffered
}

// Reset drops any partial frame and returns to idle.
func (f *Framer) Reset() {
	f.buf = f.buf[:0]
	f.filling = false
}

// Filling reports whether a frame is in progress.
func (f *Framer) Filling() bool {
	return f.filling
}

// Len returns the size of the frame in progress.
func (f *Framer) Len() int {
	return len(f.buf)
}

// Max returns the frame size bound.
func (f *Framer) Max() int {
	return f.max
}
