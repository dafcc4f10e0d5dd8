package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dohr-michael/moodstream/internal/events"
	"github.com/dohr-michael/moodstream/internal/mood"
)

const (
	DefaultMaxAttempts  = 3
	DefaultDisplayDelay = 1500 * time.Millisecond
)

// Detection is handed to the continuation once a mood has been shown.
type Detection struct {
	SessionID  string            `json:"session_id"`
	Decision   mood.Decision     `json:"decision"`
	Scores     mood.Distribution `json:"scores"`
	DetectedAt time.Time         `json:"detected_at"`
}

// Options configures a Controller.
type Options struct {
	ID         string // session id, generated when empty
	Classifier Classifier
	Device     Device
	Profiles   []Profile // defaults to DefaultProfiles
	Policy     *mood.Policy

	MaxAttempts  int           // consecutive no-face outcomes tolerated, default 3
	DisplayDelay time.Duration // time the detected label is shown before the handoff

	// Zero disables the timeout. An expired deadline is reported like any
	// other device or classification failure.
	AcquireTimeout   time.Duration
	InferenceTimeout time.Duration

	// OnChange is called after every transition, outside the controller lock.
	OnChange func(State)
	// OnDetected is called once, DisplayDelay after the detected state is entered.
	OnDetected func(Detection)

	Logger *slog.Logger
}

// Controller owns one capture session: at most one stream and one pending
// classification at a time.
type Controller struct {
	id     string
	opts   Options
	policy mood.Policy
	logger *slog.Logger

	mu       sync.Mutex
	state    State
	attempts int
	stream   Stream
	cancel   context.CancelFunc
	handoff  *time.Timer
	handed   bool
	closed   bool
}

// New returns an idle controller.
func New(opts Options) *Controller {
	if opts.ID == "" {
		opts.ID = uuid.NewString()
	}
	if len(opts.Profiles) == 0 {
		opts.Profiles = DefaultProfiles()
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.DisplayDelay <= 0 {
		opts.DisplayDelay = DefaultDisplayDelay
	}
	policy := mood.DefaultPolicy()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		id:     opts.ID,
		opts:   opts,
		policy: policy,
		logger: logger.With("session", opts.ID),
		state:  Idle(),
	}
}

func (c *Controller) ID() string { return c.id }

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attempts returns the number of consecutive no-face outcomes.
func (c *Controller) Attempts() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attempts
}

// MaxAttempts returns the retry ceiling.
func (c *Controller) MaxAttempts() int { return c.opts.MaxAttempts }

// Closed reports whether Close has been called.
func (c *Controller) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Open loads the classifier and acquires a stream. Failures are reported
// through the state; the returned error only signals misuse.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.phase != PhaseIdle {
		c.mu.Unlock()
		return ErrNotIdle
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.state = LoadingClassifier()
	c.mu.Unlock()
	c.notify(LoadingClassifier())

	if err := c.opts.Classifier.Initialize(ctx); err != nil {
		c.fail(classifierInitFailure(err))
		return nil
	}
	if !c.transition(AcquiringCapture()) {
		return nil
	}

	stream, err := c.acquire(ctx)
	if err != nil {
		c.fail(deviceFailure(err))
		return nil
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		if err := stream.Stop(); err != nil {
			c.logger.Warn("stop stream after close", "error", err)
		}
		return nil
	}
	c.stream = stream
	c.attempts = 0
	c.cancel = nil
	c.state = Ready("")
	c.mu.Unlock()

	c.logger.Info("capture workflow ready")
	c.notify(Ready(""))
	return nil
}

func (c *Controller) acquire(ctx context.Context) (Stream, error) {
	if c.opts.AcquireTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.AcquireTimeout)
		defer cancel()
	}

	var lastErr error
	for _, p := range c.opts.Profiles {
		stream, err := c.opts.Device.Open(ctx, p)
		if err != nil {
			lastErr = err
			c.logger.Debug("capture profile rejected", "profile", p.Name, "error", err)
			// Denied permission and expired contexts end the ladder.
			if errors.Is(err, ErrPermissionDenied) || ctx.Err() != nil {
				break
			}
			continue
		}

		w, h, err := stream.Metadata(ctx)
		if err != nil {
			if serr := stream.Stop(); serr != nil {
				c.logger.Warn("stop stream", "error", serr)
			}
			lastErr = fmt.Errorf("stream metadata: %w", err)
			break
		}
		c.logger.Debug("capture profile granted", "profile", p.Name, "width", w, "height", h)
		return stream, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no capture profiles configured")
	}
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		lastErr = fmt.Errorf("camera acquisition timed out after %s: %w", c.opts.AcquireTimeout, lastErr)
	}
	return nil, lastErr
}

// Capture takes one still and classifies it. It returns ErrNotReady unless the
// workflow is ready; classification outcomes are reported through the state.
func (c *Controller) Capture(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	if c.state.phase != PhaseReady {
		c.mu.Unlock()
		return ErrNotReady
	}
	stream := c.stream
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.cancel = cancel
	c.state = Detecting()
	c.mu.Unlock()
	c.notify(Detecting())

	still, err := stream.Snapshot(ctx)
	if err != nil {
		c.fail(captureFailure(err))
		return nil
	}

	ictx := events.ContextWithSessionID(ctx, c.id)
	if c.opts.InferenceTimeout > 0 {
		var icancel context.CancelFunc
		ictx, icancel = context.WithTimeout(ictx, c.opts.InferenceTimeout)
		defer icancel()
	}

	dist, err := c.opts.Classifier.Classify(ictx, still)
	switch {
	case errors.Is(err, ErrNoSignal):
		c.noSignal()
	case err != nil:
		if errors.Is(ictx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("expression analysis timed out after %s", c.opts.InferenceTimeout)
		}
		c.fail(classificationFailure(err))
	default:
		if verr := dist.Validate(); verr != nil {
			c.fail(classificationFailure(verr))
			return nil
		}
		c.detected(c.policy.Label(dist), dist)
	}
	return nil
}

func (c *Controller) noSignal() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempts++
	attempts := c.attempts
	var next State
	if attempts < c.opts.MaxAttempts {
		next = Ready(noSignalNotice(attempts, c.opts.MaxAttempts))
	} else {
		next = Failed(noSignalFailure(attempts))
	}
	c.cancel = nil
	c.state = next
	c.mu.Unlock()

	c.logger.Info("no face detected", "attempt", attempts, "max_attempts", c.opts.MaxAttempts)
	c.notify(next)
}

func (c *Controller) detected(d mood.Decision, dist mood.Distribution) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.attempts = 0
	c.cancel = nil
	c.state = Detected(d.Label)
	c.mu.Unlock()

	c.logger.Info("mood detected", "label", d.Label, "expression", d.Expression, "score", d.Score, "fallback", d.Fallback)
	c.notify(Detected(d.Label))

	det := Detection{
		SessionID:  c.id,
		Decision:   d,
		Scores:     dist,
		DetectedAt: time.Now(),
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.handoff = time.AfterFunc(c.opts.DisplayDelay, func() { c.handOff(det) })
}

func (c *Controller) handOff(det Detection) {
	c.mu.Lock()
	if c.closed || c.handed {
		c.mu.Unlock()
		return
	}
	c.handed = true
	c.mu.Unlock()

	if c.opts.OnDetected != nil {
		c.opts.OnDetected(det)
	}
}

// Reset clears a failure raised while the stream was live and returns to
// ready without touching the camera.
func (c *Controller) Reset() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	f, ok := c.state.Failure()
	if !ok || !f.Resettable() || c.stream == nil {
		c.mu.Unlock()
		return ErrNotResettable
	}
	c.attempts = 0
	c.state = Ready("")
	c.mu.Unlock()

	c.notify(Ready(""))
	return nil
}

// Close releases the stream, cancels any pending work and the handoff.
// It can be called in any state and more than once.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	stream, cancel, timer := c.stream, c.cancel, c.handoff
	c.stream, c.cancel, c.handoff = nil, nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if timer != nil {
		timer.Stop()
	}
	if stream != nil {
		if err := stream.Stop(); err != nil {
			c.logger.Warn("stop stream", "error", err)
		}
	}
	c.logger.Debug("capture workflow closed")
	return nil
}

func (c *Controller) fail(f *Failure) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.cancel = nil
	c.state = Failed(f)
	c.mu.Unlock()

	c.logger.Warn("capture workflow failed", "kind", f.Kind, "error", f.Cause)
	c.notify(Failed(f))
}

func (c *Controller) transition(s State) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.state = s
	c.mu.Unlock()
	c.notify(s)
	return true
}

func (c *Controller) notify(s State) {
	if c.opts.OnChange != nil {
		c.opts.OnChange(s)
	}
}
