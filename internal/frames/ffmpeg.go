package frames

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegSource decodes a video file through an external ffmpeg process,
// reading frames off an MJPEG pipe in playback order.
type FFmpegSource struct {
	cmd    *exec.Cmd
	stdout io.ReadCloser
	reader *bufio.Reader
	stderr bytes.Buffer
	fps    float64
	index  int
	waited bool
}

func NewFFmpegSource(videoPath string) (*FFmpegSource, error) {
	ffmpegPath, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("ffmpeg not found in PATH: %w", err)
	}

	// Missing or broken fps metadata does not block decoding; the
	// aggregation layer substitutes a default rate.
	fps := probeFPS(videoPath)

	cmd := exec.Command(ffmpegPath,
		"-i", videoPath,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "2",
		"pipe:1",
	)

	src := &FFmpegSource{cmd: cmd, fps: fps}
	cmd.Stderr = &src.stderr

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open ffmpeg stdout: %w", err)
	}
	src.stdout = stdout
	src.reader = bufio.NewReaderSize(stdout, 1<<20)

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start ffmpeg: %w", err)
	}

	return src, nil
}

// Next returns the next frame, or io.EOF at end of stream.
func (s *FFmpegSource) Next() (*Frame, error) {
	data, err := readJPEG(s.reader)
	if err == io.EOF {
		waitErr := s.wait()
		if s.index == 0 && waitErr != nil {
			return nil, fmt.Errorf("ffmpeg produced no frames: %w (%s)",
				waitErr, strings.TrimSpace(s.stderr.String()))
		}
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read frame: %w", err)
	}

	s.index++
	return &Frame{Index: s.index, Data: data}, nil
}

func (s *FFmpegSource) FPS() float64 {
	return s.fps
}

func (s *FFmpegSource) Close() error {
	if !s.waited && s.cmd.Process != nil {
		s.cmd.Process.Kill()
	}
	s.stdout.Close()
	s.wait()
	return nil
}

func (s *FFmpegSource) wait() error {
	if s.waited {
		return nil
	}
	s.waited = true
	return s.cmd.Wait()
}

// probeFPS asks ffprobe for the stream's average frame rate. Returns 0 on
// any failure so callers can fall back to a default.
func probeFPS(videoPath string) float64 {
	ffprobePath, err := exec.LookPath("ffprobe")
	if err != nil {
		return 0
	}

	cmd := exec.Command(ffprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=avg_frame_rate",
		"-of", "default=noprint_wrappers=1:nokey=1",
		videoPath,
	)

	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return 0
	}

	return parseRate(strings.TrimSpace(stdout.String()))
}

// parseRate handles ffprobe rate strings, either rational ("30000/1001")
// or plain decimal ("25").
func parseRate(s string) float64 {
	if s == "" {
		return 0
	}

	if num, den, ok := strings.Cut(s, "/"); ok {
		n, err1 := strconv.ParseFloat(num, 64)
		d, err2 := strconv.ParseFloat(den, 64)
		if err1 != nil || err2 != nil || d == 0 {
			return 0
		}
		return n / d
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return f
}
