package frames

import (
	"bufio"
	"bytes"
	"io"
	"testing"
)

// fakeJPEG builds a minimal but structurally valid JPEG: SOI, one APP0
// segment, an SOS header, the given entropy data, EOI.
func fakeJPEG(entropy []byte) []byte {
	var b []byte
	b = append(b, 0xFF, 0xD8)                         // SOI
	b = append(b, 0xFF, 0xE0, 0x00, 0x04, 0x4A, 0x46) // APP0, len 4
	b = append(b, 0xFF, 0xDA, 0x00, 0x04, 0x01, 0x00) // SOS, len 4
	b = append(b, entropy...)
	b = append(b, 0xFF, 0xD9) // EOI
	return b
}

func TestReadJPEG_SplitsConcatenatedStream(t *testing.T) {
	first := fakeJPEG([]byte{0x11, 0x22, 0x33})
	second := fakeJPEG([]byte{0x44, 0x55})

	r := bufio.NewReader(bytes.NewReader(append(append([]byte{}, first...), second...)))

	got1, err := readJPEG(r)
	if err != nil {
		t.Fatalf("Failed to read first frame: %v", err)
	}
	if !bytes.Equal(got1, first) {
		t.Errorf("First frame mismatch:\ngot  %x\nwant %x", got1, first)
	}

	got2, err := readJPEG(r)
	if err != nil {
		t.Fatalf("Failed to read second frame: %v", err)
	}
	if !bytes.Equal(got2, second) {
		t.Errorf("Second frame mismatch:\ngot  %x\nwant %x", got2, second)
	}

	if _, err := readJPEG(r); err != io.EOF {
		t.Errorf("Expected io.EOF after last frame, got %v", err)
	}
}

func TestReadJPEG_StuffedBytesDoNotSplit(t *testing.T) {
	// Entropy data containing a stuffed FF00 and a restart marker must
	// stay inside one frame.
	entropy := []byte{0x12, 0xFF, 0x00, 0x34, 0xFF, 0xD1, 0x56}
	frame := fakeJPEG(entropy)

	r := bufio.NewReader(bytes.NewReader(frame))
	got, err := readJPEG(r)
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("Frame mismatch:\ngot  %x\nwant %x", got, frame)
	}
}

func TestReadJPEG_SkipsLeadingGarbage(t *testing.T) {
	frame := fakeJPEG([]byte{0x01})
	stream := append([]byte{0x00, 0xAB, 0xFF, 0x13}, frame...)

	r := bufio.NewReader(bytes.NewReader(stream))
	got, err := readJPEG(r)
	if err != nil {
		t.Fatalf("Failed to read frame: %v", err)
	}
	if !bytes.Equal(got, frame) {
		t.Errorf("Frame mismatch after garbage prefix")
	}
}

func TestReadJPEG_EmptyStream(t *testing.T) {
	r := bufio.NewReader(bytes.NewReader(nil))
	if _, err := readJPEG(r); err != io.EOF {
		t.Errorf("Expected io.EOF for empty stream, got %v", err)
	}
}

func TestParseRate(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"30/1", 30},
		{"25", 25},
		{"0/0", 0},
		{"", 0},
		{"garbage", 0},
	}

	for _, c := range cases {
		if got := parseRate(c.in); got != c.want {
			t.Errorf("parseRate(%q) = %v, want %v", c.in, got, c.want)
		}
	}

	// NTSC rational rate.
	got := parseRate("30000/1001")
	if got < 29.96 || got > 29.98 {
		t.Errorf("parseRate(30000/1001) = %v, want ~29.97", got)
	}
}
