// Package mood defines the mood vocabulary, facial expression classes and the
// policy that turns an expression distribution into a single mood label.
package mood

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownLabel      = errors.New("unknown mood label")
	ErrUnknownExpression = errors.New("unknown expression")
	ErrScoreOutOfRange   = errors.New("expression score out of range")
)

// Label is a mood from the fixed vocabulary.
type Label string

const (
	Happy     Label = "happy"
	Sad       Label = "sad"
	Angry     Label = "angry"
	Surprised Label = "surprised"
	Neutral   Label = "neutral"
	Calm      Label = "calm"
)

var labels = []Label{Happy, Sad, Angry, Surprised, Neutral, Calm}

// Labels returns the vocabulary in display order.
func Labels() []Label {
	out := make([]Label, len(labels))
	copy(out, labels)
	return out
}

// ParseLabel resolves a case-insensitive label name.
func ParseLabel(s string) (Label, error) {
	l := Label(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range labels {
		if l == known {
			return l, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLabel, s)
}

// Emoji returns the decoration shown next to a label.
func (l Label) Emoji() string {
	switch l {
	case Happy:
		return "😊"
	case Sad:
		return "😢"
	case Angry:
		return "😠"
	case Surprised:
		return "😲"
	case Neutral:
		return "😐"
	case Calm:
		return "😌"
	}
	return ""
}

// Expression is a facial expression class reported by a classifier.
type Expression string

const (
	ExprNeutral   Expression = "neutral"
	ExprHappy     Expression = "happy"
	ExprSad       Expression = "sad"
	ExprAngry     Expression = "angry"
	ExprFearful   Expression = "fearful"
	ExprDisgusted Expression = "disgusted"
	ExprSurprised Expression = "surprised"
)

// canonical order, used to break ties.
var expressions = []Expression{
	ExprNeutral, ExprHappy, ExprSad, ExprAngry, ExprFearful, ExprDisgusted, ExprSurprised,
}

// Expressions returns the expression classes in canonical order.
func Expressions() []Expression {
	out := make([]Expression, len(expressions))
	copy(out, expressions)
	return out
}

func (e Expression) known() bool {
	for _, x := range expressions {
		if x == e {
			return true
		}
	}
	return false
}

// Label maps an expression onto the mood vocabulary.
func (e Expression) Label() Label {
	switch e {
	case ExprHappy:
		return Happy
	case ExprSad, ExprFearful:
		return Sad
	case ExprAngry, ExprDisgusted:
		return Angry
	case ExprSurprised:
		return Surprised
	default:
		return Neutral
	}
}

// Distribution holds one score in [0,1] per expression class.
type Distribution map[Expression]float64

// Validate rejects unknown expressions and scores outside [0,1], NaN included.
func (d Distribution) Validate() error {
	for e, s := range d {
		if !e.known() {
			return fmt.Errorf("%w: %q", ErrUnknownExpression, e)
		}
		if !(s >= 0 && s <= 1) {
			return fmt.Errorf("%w: %s=%g", ErrScoreOutOfRange, e, s)
		}
	}
	return nil
}

// Dominant returns the highest scoring expression. Ties go to the expression
// that comes first in canonical order. ok is false for an empty distribution.
func (d Distribution) Dominant() (expr Expression, score float64, ok bool) {
	for _, e := range expressions {
		s, present := d[e]
		if !present {
			continue
		}
		if !ok || s > score {
			expr, score, ok = e, s, true
		}
	}
	return expr, score, ok
}

// Empty reports whether no expression has a positive score.
func (d Distribution) Empty() bool {
	for _, s := range d {
		if s > 0 {
			return false
		}
	}
	return true
}
