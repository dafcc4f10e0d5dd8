package camera

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/dohr-michael/moodstream/internal/capture"
)

var stillTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// DirDevice serves image files matched by a glob pattern ("**" supported)
// as if they were camera frames. Each snapshot takes the next file.
type DirDevice struct {
	Pattern string
}

// NewDirDevice creates a device over the files matching pattern.
func NewDirDevice(pattern string) *DirDevice {
	return &DirDevice{Pattern: pattern}
}

// Open lists the matching stills. The profile is ignored: stills keep their
// own dimensions.
func (d *DirDevice) Open(ctx context.Context, _ capture.Profile) (capture.Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	matches, err := doublestar.FilepathGlob(d.Pattern)
	if err != nil {
		return nil, fmt.Errorf("glob %q: %w", d.Pattern, err)
	}

	files := matches[:0]
	for _, m := range matches {
		if _, ok := stillTypes[strings.ToLower(filepath.Ext(m))]; ok {
			files = append(files, m)
		}
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no image matches %q", capture.ErrDeviceNotFound, d.Pattern)
	}
	sort.Strings(files)
	return &dirStream{files: files}, nil
}

type dirStream struct {
	mu      sync.Mutex
	files   []string
	next    int
	stopped bool
}

func (s *dirStream) Metadata(ctx context.Context) (int, int, error) {
	s.mu.Lock()
	path := s.files[0]
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, 0, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return cfg.Width, cfg.Height, nil
}

func (s *dirStream) Snapshot(ctx context.Context) (capture.Still, error) {
	if err := ctx.Err(); err != nil {
		return capture.Still{}, err
	}
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return capture.Still{}, fmt.Errorf("stream stopped")
	}
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return capture.Still{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return capture.Still{}, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return capture.Still{
		Data:     data,
		Width:    cfg.Width,
		Height:   cfg.Height,
		MIMEType: stillTypes[strings.ToLower(filepath.Ext(path))],
	}, nil
}

func (s *dirStream) Stop() error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}
