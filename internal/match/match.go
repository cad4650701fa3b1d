// Package match identifies a query signature against the enrollment cache.
package match

import (
	"fmt"
	"math"

	"github.com/andresmejia3/biopass/internal/enroll"
	"github.com/andresmejia3/biopass/internal/vision"
)

// DefaultThreshold is the cosine acceptance threshold calibrated for SFace
// signatures. It is tied to that model's score distribution.
const DefaultThreshold = 0.363

// Outcome of an identification.
type Outcome int

const (
	// CacheEmpty means nobody is enrolled yet. It is not a rejection.
	CacheEmpty Outcome = iota
	Unknown
	Accepted
)

func (o Outcome) String() string {
	switch o {
	case CacheEmpty:
		return "cache empty"
	case Unknown:
		return "unknown"
	case Accepted:
		return "accepted"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Result is the best candidate found. Score and Index are set for Unknown as
// well so callers can inspect near misses; Name is set only when Accepted.
type Result struct {
	Outcome Outcome
	Name    string
	Score   float64
	Index   int
}

func (r Result) String() string {
	switch r.Outcome {
	case Accepted:
		return fmt.Sprintf("%s (%.3f)", r.Name, r.Score)
	case Unknown:
		return fmt.Sprintf("unknown (%.3f)", r.Score)
	}
	return r.Outcome.String()
}

// Matcher applies the acceptance rule score >= Threshold.
type Matcher struct {
	Threshold float64
}

// New returns a matcher using DefaultThreshold.
func New() Matcher {
	return Matcher{Threshold: DefaultThreshold}
}

// Identify scans every cached identity once and keeps the highest score. On
// equal scores the earlier entry wins.
func (m Matcher) Identify(query vision.Signature, cache []enroll.Identity) Result {
	if len(cache) == 0 {
		return Result{Outcome: CacheEmpty, Index: -1}
	}

	best, bestIdx := Cosine(query, cache[0].Signature), 0
	for i := 1; i < len(cache); i++ {
		if s := Cosine(query, cache[i].Signature); s > best {
			best, bestIdx = s, i
		}
	}

	if best >= m.Threshold {
		return Result{Outcome: Accepted, Name: cache[bestIdx].Name, Score: best, Index: bestIdx}
	}
	return Result{Outcome: Unknown, Score: best, Index: bestIdx}
}

// Cosine returns the cosine similarity of a and b. Vectors of different
// length, empty vectors and zero vectors score 0.
func Cosine(a, b vision.Signature) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	s := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(s) {
		return 0
	}
	return s
}
