package capture

import (
	"encoding/json"

	"github.com/dohr-michael/moodstream/internal/mood"
)

// Phase identifies which variant of State is active.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseLoadingClassifier
	PhaseAcquiringCapture
	PhaseReady
	PhaseDetecting
	PhaseDetected
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:              "idle",
	PhaseLoadingClassifier: "loading_classifier",
	PhaseAcquiringCapture:  "acquiring_capture",
	PhaseReady:             "ready",
	PhaseDetecting:         "detecting",
	PhaseDetected:          "detected",
	PhaseError:             "error",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return "unknown"
}

// State is a snapshot of the workflow. Exactly one phase is active; a label is
// only present in the detected phase and a failure only in the error phase.
// Values are immutable and built through the constructors below.
type State struct {
	phase   Phase
	label   mood.Label
	notice  string
	failure *Failure
}

func Idle() State              { return State{phase: PhaseIdle} }
func LoadingClassifier() State { return State{phase: PhaseLoadingClassifier} }
func AcquiringCapture() State  { return State{phase: PhaseAcquiringCapture} }
func Detecting() State         { return State{phase: PhaseDetecting} }

// Ready returns the ready state. notice is shown above the capture prompt and
// is empty unless a previous attempt found no face.
func Ready(notice string) State { return State{phase: PhaseReady, notice: notice} }

func Detected(l mood.Label) State { return State{phase: PhaseDetected, label: l} }

// Failed returns the error state for f.
func Failed(f *Failure) State { return State{phase: PhaseError, failure: f} }

func (s State) Phase() Phase { return s.phase }

// Label returns the detected mood. ok is false outside the detected phase.
func (s State) Label() (mood.Label, bool) {
	return s.label, s.phase == PhaseDetected
}

// Notice returns the ready-state notice, if any.
func (s State) Notice() string { return s.notice }

// Failure returns the failure. ok is false outside the error phase.
func (s State) Failure() (*Failure, bool) {
	return s.failure, s.phase == PhaseError && s.failure != nil
}

// Message returns the user-facing status line for the state.
func (s State) Message() string {
	switch s.phase {
	case PhaseIdle:
		return "Getting things ready..."
	case PhaseLoadingClassifier:
		return "Loading expression model... (this may take a moment on first load)"
	case PhaseAcquiringCapture:
		return "Initializing camera..."
	case PhaseReady:
		if s.notice != "" {
			return s.notice
		}
		return "Position your face in the frame and capture your mood."
	case PhaseDetecting:
		return "Analyzing your expression..."
	case PhaseDetected:
		return "Mood detected! Curating your feed..."
	case PhaseError:
		if s.failure != nil {
			return s.failure.Message
		}
		return "An error occurred."
	}
	return ""
}

// Busy reports whether the workflow is waiting on a collaborator.
func (s State) Busy() bool {
	switch s.phase {
	case PhaseIdle, PhaseLoadingClassifier, PhaseAcquiringCapture, PhaseDetecting:
		return true
	}
	return false
}

type stateJSON struct {
	Phase      string     `json:"phase"`
	Message    string     `json:"message"`
	Label      mood.Label `json:"label,omitempty"`
	Kind       string     `json:"error_kind,omitempty"`
	Retryable  *bool      `json:"retryable,omitempty"`
	Resettable *bool      `json:"resettable,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	out := stateJSON{
		Phase:   s.phase.String(),
		Message: s.Message(),
	}
	if l, ok := s.Label(); ok {
		out.Label = l
	}
	if f, ok := s.Failure(); ok {
		retryable, resettable := f.Retryable, f.Resettable()
		out.Kind = f.Kind.String()
		out.Retryable = &retryable
		out.Resettable = &resettable
	}
	return json.Marshal(out)
}
