package mood

// Policy turns a distribution into a label. Expressions in the lenient set are
// accepted at a lower confidence than the others.
type Policy struct {
	Lenient          []Expression `json:"lenient"`
	LenientThreshold float64      `json:"lenient_threshold"`
	StrictThreshold  float64      `json:"strict_threshold"`
	Default          Label        `json:"default"`
}

// DefaultPolicy returns the stock thresholds: happy and surprised at 0.3,
// everything else above 0.6, neutral otherwise.
func DefaultPolicy() Policy {
	return Policy{
		Lenient:          []Expression{ExprHappy, ExprSurprised},
		LenientThreshold: 0.3,
		StrictThreshold:  0.6,
		Default:          Neutral,
	}
}

// Decision is the outcome of applying a policy.
type Decision struct {
	Label      Label      `json:"label"`
	Expression Expression `json:"expression,omitempty"`
	Score      float64    `json:"score"`
	Fallback   bool       `json:"fallback"`
}

func (p Policy) lenient(e Expression) bool {
	for _, x := range p.Lenient {
		if x == e {
			return true
		}
	}
	return false
}

// Label applies the policy. The dominant expression wins when it exceeds the
// threshold of its class. When it does not, a lenient expression above the
// lenient threshold is taken instead, and failing that the default label.
func (p Policy) Label(d Distribution) Decision {
	dom, score, ok := d.Dominant()
	if !ok {
		return p.fallback()
	}

	if p.lenient(dom) {
		if score > p.LenientThreshold {
			return Decision{Label: dom.Label(), Expression: dom, Score: score}
		}
		return p.fallback()
	}
	if score > p.StrictThreshold {
		return Decision{Label: dom.Label(), Expression: dom, Score: score}
	}

	var (
		best      Expression
		bestScore float64
		found     bool
	)
	for _, e := range expressions {
		if !p.lenient(e) {
			continue
		}
		s, present := d[e]
		if !present || s <= p.LenientThreshold {
			continue
		}
		if !found || s > bestScore {
			best, bestScore, found = e, s, true
		}
	}
	if found {
		return Decision{Label: best.Label(), Expression: best, Score: bestScore}
	}
	return p.fallback()
}

func (p Policy) fallback() Decision {
	l := p.Default
	if l == "" {
		l = Neutral
	}
	return Decision{Label: l, Fallback: true}
}
