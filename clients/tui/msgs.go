package tui

import (
	"github.com/dohr-michael/moodstream/internal/capture"
	"github.com/dohr-michael/moodstream/internal/feed"
)

// feedLoadedMsg carries a fetched feed. seq identifies the request so that a
// slow, superseded load does not overwrite a newer one.
type feedLoadedMsg struct {
	seq  int
	feed feed.Feed
}

// feedFailedMsg reports a failed feed load.
type feedFailedMsg struct {
	seq int
	err error
}

// captureStateMsg mirrors a capture workflow transition.
type captureStateMsg struct {
	sessionID string
	state     capture.State
}

// moodDetectedMsg is delivered once the detected label has been shown.
type moodDetectedMsg struct {
	detection capture.Detection
}

// keySavedMsg signals the API key was stored.
type keySavedMsg struct{}

// keyFailedMsg carries a credential storage error.
type keyFailedMsg struct {
	err error
}

// captureErrMsg carries a misuse error returned by the controller.
type captureErrMsg struct {
	err error
}
