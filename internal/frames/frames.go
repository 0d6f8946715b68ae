// Package frames turns a video file into an ordered sequence of frames.
package frames

// Frame is one decoded video frame. Index is 1-based so the first frame's
// timestamp is 1/fps, not zero.
type Frame struct {
	Index int
	Data  []byte
}

// Source yields frames in playback order. Next returns io.EOF once the
// stream is exhausted.
type Source interface {
	Next() (*Frame, error)
	// FPS is the stream's frame rate, or 0 when it could not be
	// determined.
	FPS() float64
	Close() error
}
