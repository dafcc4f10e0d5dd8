package capture

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/dohr-michael/moodstream/internal/mood"
)

// SharedClassifier wraps a classifier so that initialization happens once per
// process. Concurrent callers share a single in-flight initialization. A failed
// initialization is not remembered, so the next caller tries again.
type SharedClassifier struct {
	inner Classifier
	group singleflight.Group
	ready atomic.Bool
}

// NewSharedClassifier wraps c.
func NewSharedClassifier(c Classifier) *SharedClassifier {
	return &SharedClassifier{inner: c}
}

// Initialize returns immediately once the wrapped classifier is initialized.
// The initialization itself is detached from the caller's cancellation; a
// caller whose context ends stops waiting without aborting it for the others.
func (s *SharedClassifier) Initialize(ctx context.Context) error {
	if s.ready.Load() {
		return nil
	}

	ch := s.group.DoChan("init", func() (any, error) {
		if s.ready.Load() {
			return nil, nil
		}
		if err := s.inner.Initialize(context.WithoutCancel(ctx)); err != nil {
			return nil, err
		}
		s.ready.Store(true)
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Ready reports whether initialization has completed successfully.
func (s *SharedClassifier) Ready() bool {
	return s.ready.Load()
}

func (s *SharedClassifier) Classify(ctx context.Context, still Still) (mood.Distribution, error) {
	return s.inner.Classify(ctx, still)
}
