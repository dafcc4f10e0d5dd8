// Package camera provides capture.Device implementations: a webcam driven
// through ffmpeg and a directory of stills for headless use.
package camera

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"github.com/dohr-michael/moodstream/internal/capture"
)

var (
	soi = []byte{0xFF, 0xD8}
	eoi = []byte{0xFF, 0xD9}
)

const maxFrameSize = 16 << 20

// FFmpegDevice opens a webcam with ffmpeg and reads MJPEG frames from its stdout.
type FFmpegDevice struct {
	Path      string // ffmpeg binary
	Format    string // v4l2, avfoundation, dshow
	Input     string // /dev/video0, "0", "video=Integrated Camera"
	FrameRate int
	Logger    *slog.Logger

	// command builds the process; tests replace it.
	command func(ctx context.Context, name string, args ...string) *exec.Cmd
}

// NewFFmpegDevice creates a device for the given ffmpeg input.
func NewFFmpegDevice(path, format, input string, logger *slog.Logger) *FFmpegDevice {
	if path == "" {
		path = "ffmpeg"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FFmpegDevice{Path: path, Format: format, Input: input, Logger: logger}
}

func (d *FFmpegDevice) args(p capture.Profile) []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-f", d.Format}
	if d.FrameRate > 0 {
		args = append(args, "-framerate", strconv.Itoa(d.FrameRate))
	}
	if p.Width > 0 && p.Height > 0 {
		args = append(args, "-video_size", fmt.Sprintf("%dx%d", p.Width, p.Height))
	}
	return append(args,
		"-i", d.Input,
		"-an",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"-",
	)
}

// Open starts ffmpeg and waits for the first frame. A process that exits
// before producing one is classified from its stderr.
func (d *FFmpegDevice) Open(ctx context.Context, p capture.Profile) (capture.Stream, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	command := d.command
	if command == nil {
		command = exec.CommandContext
	}

	// The stream outlives ctx, so the process gets its own lifetime.
	procCtx, cancel := context.WithCancel(context.Background())
	args := d.args(p)
	cmd := command(procCtx, d.Path, args...)

	stderr := &tailBuffer{limit: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}

	logger.Debug("starting ffmpeg", "args", args, "profile", p.Name)
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	s := &ffmpegStream{
		cancel: cancel,
		first:  make(chan struct{}),
		done:   make(chan struct{}),
		logger: logger,
	}
	go s.run(cmd, stdout)

	select {
	case <-s.first:
		return s, nil
	case <-s.done:
		cancel()
		return nil, classifyStderr(stderr.String(), s.waitErr)
	case <-ctx.Done():
		_ = s.Stop()
		return nil, ctx.Err()
	}
}

type ffmpegStream struct {
	cancel context.CancelFunc
	logger *slog.Logger

	mu     sync.RWMutex
	frame  []byte
	width  int
	height int

	first     chan struct{}
	firstOnce sync.Once
	done      chan struct{}
	waitErr   error
	stopOnce  sync.Once
}

func (s *ffmpegStream) run(cmd *exec.Cmd, stdout io.Reader) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 256<<10), maxFrameSize)
	scanner.Split(splitJPEG)

	for scanner.Scan() {
		frame := bytes.Clone(scanner.Bytes())
		s.mu.Lock()
		s.frame = frame
		if s.width == 0 {
			if cfg, _, err := image.DecodeConfig(bytes.NewReader(frame)); err == nil {
				s.width, s.height = cfg.Width, cfg.Height
			}
		}
		s.mu.Unlock()
		s.firstOnce.Do(func() { close(s.first) })
	}
	if err := scanner.Err(); err != nil {
		s.logger.Debug("ffmpeg frame reader stopped", "error", err)
		_, _ = io.Copy(io.Discard, stdout)
	}

	s.waitErr = cmd.Wait()
	close(s.done)
}

func (s *ffmpegStream) Metadata(ctx context.Context) (int, int, error) {
	select {
	case <-s.first:
	case <-s.done:
		return 0, 0, fmt.Errorf("camera stream ended: %v", s.waitErr)
	case <-ctx.Done():
		return 0, 0, ctx.Err()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.width == 0 || s.height == 0 {
		return 0, 0, errors.New("could not decode frame dimensions")
	}
	return s.width, s.height, nil
}

func (s *ffmpegStream) Snapshot(ctx context.Context) (capture.Still, error) {
	if err := ctx.Err(); err != nil {
		return capture.Still{}, err
	}
	select {
	case <-s.done:
		return capture.Still{}, fmt.Errorf("camera stream ended: %v", s.waitErr)
	default:
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.frame) == 0 {
		return capture.Still{}, errors.New("no frame available")
	}
	return capture.Still{
		Data:     bytes.Clone(s.frame),
		Width:    s.width,
		Height:   s.height,
		MIMEType: "image/jpeg",
	}, nil
}

func (s *ffmpegStream) Stop() error {
	s.stopOnce.Do(func() {
		s.cancel()
		<-s.done
	})
	return nil
}

// splitJPEG is a bufio.SplitFunc yielding one JPEG image (SOI..EOI) per token.
func splitJPEG(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}
	start := bytes.Index(data, soi)
	if start < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		// Keep a trailing 0xFF that may start the next marker.
		return max(len(data)-1, 0), nil, nil
	}
	end := bytes.Index(data[start+len(soi):], eoi)
	if end < 0 {
		if atEOF {
			return len(data), nil, nil
		}
		return start, nil, nil
	}
	end += start + len(soi) + len(eoi)
	return end, data[start:end], nil
}

// classifyStderr maps an ffmpeg failure onto the capture device errors.
func classifyStderr(stderr string, waitErr error) error {
	lower := strings.ToLower(stderr)
	detail := lastLine(stderr)
	if detail == "" && waitErr != nil {
		detail = waitErr.Error()
	}

	var sentinel error
	switch {
	case containsAny(lower, "permission denied", "operation not permitted", "not authorized"):
		sentinel = capture.ErrPermissionDenied
	case containsAny(lower, "device or resource busy", "resource busy"):
		sentinel = capture.ErrDeviceBusy
	case containsAny(lower, "video size", "not supported", "invalid argument", "could not set video options"):
		sentinel = capture.ErrProfileUnsupported
	case containsAny(lower, "no such file or directory", "no such device", "could not find video device", "cannot open video device", "could not enumerate"):
		sentinel = capture.ErrDeviceNotFound
	default:
		return fmt.Errorf("ffmpeg exited: %s", detail)
	}
	return fmt.Errorf("%w: %s", sentinel, detail)
}

func containsAny(s string, substrs ...string) bool {
	for _, sub := range substrs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func lastLine(s string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	return strings.TrimSpace(lines[len(lines)-1])
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	buf   []byte
	limit int
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf = append(b.buf, p...)
	if len(b.buf) > b.limit {
		b.buf = b.buf[len(b.buf)-b.limit:]
	}
	return len(p), nil
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return string(b.buf)
}
