package frames

import (
	"bufio"
	"fmt"
	"io"
)

// JPEG markers relevant to stream splitting.
const (
	markerSOI = 0xD8
	markerEOI = 0xD9
	markerSOS = 0xDA
	markerTEM = 0x01
)

// readJPEG extracts the next complete JPEG image from a concatenated
// MJPEG stream. It walks the segment structure rather than scanning for
// the EOI byte pair, so entropy-coded data containing 0xFF bytes does not
// split a frame early. Returns io.EOF when no further image starts.
func readJPEG(r *bufio.Reader) ([]byte, error) {
	if err := skipToSOI(r); err != nil {
		return nil, err
	}

	buf := []byte{0xFF, markerSOI}
	marker, err := readMarker(r)
	if err != nil {
		return nil, fmt.Errorf("truncated jpeg: %w", err)
	}
	for {
		buf = append(buf, 0xFF, marker)

		switch {
		case marker == markerEOI:
			return buf, nil
		case marker == markerTEM || (marker >= 0xD0 && marker <= 0xD7):
			// Standalone markers carry no payload.
			marker, err = readMarker(r)
			if err != nil {
				return nil, fmt.Errorf("truncated jpeg: %w", err)
			}
		case marker == markerSOS:
			var data []byte
			data, marker, err = readEntropy(r)
			if err != nil {
				return nil, fmt.Errorf("truncated scan data: %w", err)
			}
			// The marker after the scan (EOI, or a progressive-mode
			// segment) goes back through the dispatch above.
			buf = append(buf, data...)
		default:
			payload, err := readSegmentPayload(r, marker)
			if err != nil {
				return nil, err
			}
			buf = append(buf, payload...)
			marker, err = readMarker(r)
			if err != nil {
				return nil, fmt.Errorf("truncated jpeg: %w", err)
			}
		}
	}
}

// skipToSOI discards bytes until the next FFD8 start-of-image.
func skipToSOI(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return io.EOF
		}
		if b != 0xFF {
			continue
		}
		next, err := r.ReadByte()
		if err != nil {
			return io.EOF
		}
		if next == markerSOI {
			return nil
		}
	}
}

// readMarker consumes 0xFF fill bytes and returns the marker code.
func readMarker(r *bufio.Reader) (byte, error) {
	b, err := r.ReadByte()
	if err != nil {
		return 0, err
	}
	if b != 0xFF {
		return 0, fmt.Errorf("expected marker prefix, got 0x%02X", b)
	}
	for {
		m, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		if m != 0xFF {
			return m, nil
		}
	}
}

// readSegmentPayload reads a marker segment's 2-byte length and body.
// Standalone markers must not be passed here.
func readSegmentPayload(r *bufio.Reader, marker byte) ([]byte, error) {
	if marker == markerTEM || (marker >= 0xD0 && marker <= 0xD9) {
		return nil, nil
	}

	lenBytes := make([]byte, 2)
	if _, err := io.ReadFull(r, lenBytes); err != nil {
		return nil, fmt.Errorf("truncated segment length: %w", err)
	}

	length := int(lenBytes[0])<<8 | int(lenBytes[1])
	if length < 2 {
		return nil, fmt.Errorf("invalid segment length %d", length)
	}

	payload := make([]byte, length-2)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, fmt.Errorf("truncated segment body: %w", err)
	}

	return append(lenBytes, payload...), nil
}

// readEntropy consumes entropy-coded scan data up to the next real marker.
// Byte-stuffed FF00 pairs and restart markers belong to the scan and are
// kept; the terminating marker code is returned separately.
func readEntropy(r *bufio.Reader) ([]byte, byte, error) {
	var data []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		if b != 0xFF {
			data = append(data, b)
			continue
		}

		next, err := r.ReadByte()
		if err != nil {
			return nil, 0, err
		}
		if next == 0x00 || (next >= 0xD0 && next <= 0xD7) {
			data = append(data, b, next)
			continue
		}
		if next == 0xFF {
			// Fill byte, keep looking for the marker code.
			if err := r.UnreadByte(); err != nil {
				return nil, 0, err
			}
			continue
		}
		return data, next, nil
	}
}
