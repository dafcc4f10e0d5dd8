package mood

import (
	"fmt"
	"math/rand/v2"
	"sync"
)

var queries = map[Label][]string{
	Happy: {
		"funny comedy sketches english",
		"upbeat music videos 2024",
		"feel good movie scenes",
		"funny moments compilation",
		"comedy shows english",
		"happy music hits",
	},
	Sad: {
		"emotional movie scenes",
		"sad music videos",
		"inspirational speeches",
		"melancholic music",
		"dramatic movie clips",
		"emotional music performances",
	},
	Angry: {
		"action movie scenes",
		"heavy metal music videos",
		"intense movie clips",
		"rock music performances",
		"action movie trailers",
		"intense music videos",
	},
	Surprised: {
		"mind blowing movie scenes",
		"magic tricks revealed",
		"unexpected plot twists",
		"amazing movie moments",
		"surprising comedy sketches",
		"shocking movie scenes",
	},
	Neutral: {
		"documentary clips",
		"educational content",
		"lo-fi music",
		"tutorial videos",
		"informative content",
		"calm music videos",
	},
	Calm: {
		"peaceful music videos",
		"meditation music",
		"calm movie scenes",
		"relaxing music",
		"peaceful nature videos",
		"soothing music performances",
	},
}

var starterQueries = []string{
	"trending music videos 2024",
	"funny comedy sketches",
	"movie scenes compilation",
	"viral dance videos",
	"stand up comedy",
	"music video hits",
	"funny moments compilation",
	"movie trailers 2024",
	"comedy shows",
	"music performances",
	"funny pranks",
	"movie clips",
}

// Queries returns the search phrases associated with a label.
func Queries(l Label) []string {
	q := queries[l]
	out := make([]string, len(q))
	copy(out, q)
	return out
}

// StarterQueries returns the phrases used before any mood is known.
func StarterQueries() []string {
	out := make([]string, len(starterQueries))
	copy(out, starterQueries)
	return out
}

// Picker draws search phrases uniformly at random. Safe for concurrent use.
type Picker struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewPicker returns a picker backed by rnd, or by a randomly seeded source when nil.
func NewPicker(rnd *rand.Rand) *Picker {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Picker{rnd: rnd}
}

// ForMood picks one of the label's phrases.
func (p *Picker) ForMood(l Label) (string, error) {
	q, ok := queries[l]
	if !ok || len(q) == 0 {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, l)
	}
	return p.pick(q), nil
}

// Starter picks one of the starter phrases.
func (p *Picker) Starter() string {
	return p.pick(starterQueries)
}

func (p *Picker) pick(from []string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return from[p.rnd.IntN(len(from))]
}

// Title returns the feed heading for a label, a search query, or neither.
func Title(l Label, query string) string {
	if query != "" {
		return fmt.Sprintf("Search results for %q", query)
	}
	if l == "" {
		return "Random videos for you"
	}
	if _, ok := queries[l]; !ok {
		return "Timeline curated for you"
	}
	return fmt.Sprintf("Timeline curated for your %s mood %s", l, l.Emoji())
}

// Subtitle returns the line shown under the feed heading.
func Subtitle(l Label, query string) string {
	switch {
	case query != "":
		return "Search results for your query"
	case l != "":
		return "Videos selected based on your current mood"
	default:
		return "Random videos to get you started"
	}
}

// EmptyMessage returns the message shown when a feed has no videos.
func EmptyMessage(query string) string {
	if query != "" {
		return "No videos found for your search. Try different keywords!"
	}
	return "No videos found for this mood. Try again!"
}
