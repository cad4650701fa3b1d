package match

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresmejia3/biopass/internal/enroll"
	"github.com/andresmejia3/biopass/internal/vision"
)

// unitAt returns a 2D unit vector whose cosine with (1, 0) is s.
func unitAt(s float64) vision.Signature {
	return vision.Signature{float32(s), float32(math.Sqrt(1 - s*s))}
}

var query = vision.Signature{1, 0}

func TestIdentify_AcceptsSingleMatch(t *testing.T) {
	cache := []enroll.Identity{{Name: "Ana", Signature: unitAt(0.9)}}

	r := New().Identify(query, cache)
	assert.Equal(t, Accepted, r.Outcome)
	assert.Equal(t, "Ana", r.Name)
	assert.InDelta(t, 0.9, r.Score, 1e-6)
	assert.Equal(t, 0, r.Index)
}

func TestIdentify_EmptyCacheIsNotUnknown(t *testing.T) {
	for _, q := range []vision.Signature{query, nil, unitAt(0.1)} {
		r := New().Identify(q, nil)
		assert.Equal(t, CacheEmpty, r.Outcome)
		assert.NotEqual(t, Unknown, r.Outcome)
		assert.Empty(t, r.Name)
	}
}

func TestIdentify_PicksGlobalMaximum(t *testing.T) {
	cache := []enroll.Identity{
		{Name: "Ana", Signature: unitAt(0.5)},
		{Name: "Bea", Signature: unitAt(0.8)},
	}
	r := New().Identify(query, cache)
	require.Equal(t, Accepted, r.Outcome)
	assert.Equal(t, "Bea", r.Name)
	assert.InDelta(t, 0.8, r.Score, 1e-6)
	assert.Equal(t, 1, r.Index)
}

func TestIdentify_MaximumAnywhereInCache(t *testing.T) {
	scores := []float64{0.2, 0.7, 0.1, 0.95, 0.4, 0.3}
	cache := make([]enroll.Identity, len(scores))
	for i, s := range scores {
		cache[i] = enroll.Identity{Name: string(rune('A' + i)), Signature: unitAt(s)}
	}
	r := New().Identify(query, cache)
	assert.Equal(t, "D", r.Name)
	assert.Equal(t, 3, r.Index)
}

func TestIdentify_ThresholdIsInclusive(t *testing.T) {
	// Use exact vectors so the score equals the threshold bit for bit.
	cache := []enroll.Identity{{Name: "Ana", Signature: vision.Signature{1, 0}}}
	m := Matcher{Threshold: Cosine(query, cache[0].Signature)}

	r := m.Identify(query, cache)
	assert.Equal(t, Accepted, r.Outcome)
	assert.Equal(t, m.Threshold, r.Score)
}

func TestIdentify_BelowThresholdKeepsScore(t *testing.T) {
	cache := []enroll.Identity{{Name: "Ana", Signature: unitAt(0.3)}}
	r := New().Identify(query, cache)
	assert.Equal(t, Unknown, r.Outcome)
	assert.Empty(t, r.Name)
	assert.InDelta(t, 0.3, r.Score, 1e-6)
}

func TestIdentify_TieGoesToEarliestEntry(t *testing.T) {
	same := unitAt(0.7)
	cache := []enroll.Identity{
		{Name: "Low", Signature: unitAt(0.4)},
		{Name: "First", Signature: same},
		{Name: "Second", Signature: append(vision.Signature(nil), same...)},
	}
	for i := 0; i < 10; i++ {
		r := New().Identify(query, cache)
		assert.Equal(t, "First", r.Name)
		assert.Equal(t, 1, r.Index)
	}
}

func TestIdentify_MonotonicDecisionRule(t *testing.T) {
	cache := []enroll.Identity{{Name: "Ana", Signature: unitAt(0.5)}}
	score := Cosine(query, cache[0].Signature)

	for _, th := range []float64{-1, 0, 0.2, 0.363, 0.49, score, 0.51, 0.9, 1} {
		r := Matcher{Threshold: th}.Identify(query, cache)
		if score >= th {
			assert.Equal(t, Accepted, r.Outcome, "threshold %v", th)
		} else {
			assert.Equal(t, Unknown, r.Outcome, "threshold %v", th)
		}
		assert.Equal(t, score, r.Score)
	}
}

func TestCosine(t *testing.T) {
	assert.InDelta(t, 1.0, Cosine(vision.Signature{1, 2, 3}, vision.Signature{2, 4, 6}), 1e-9)
	assert.InDelta(t, -1.0, Cosine(vision.Signature{1, 0}, vision.Signature{-1, 0}), 1e-9)
	assert.InDelta(t, 0.0, Cosine(vision.Signature{1, 0}, vision.Signature{0, 1}), 1e-9)

	assert.Zero(t, Cosine(vision.Signature{1}, vision.Signature{1, 0}), "length mismatch")
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine(vision.Signature{0, 0}, vision.Signature{1, 0}))
}

func TestResultString(t *testing.T) {
	assert.Equal(t, "Ana (0.900)", Result{Outcome: Accepted, Name: "Ana", Score: 0.9}.String())
	assert.Equal(t, "unknown (0.120)", Result{Outcome: Unknown, Score: 0.12}.String())
	assert.Equal(t, "cache empty", Result{Outcome: CacheEmpty}.String())
}
