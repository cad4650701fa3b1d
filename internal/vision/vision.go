// Package vision exposes face detection and signature extraction as
// capability interfaces.
//
// The model-backed implementation wraps OpenCV's YuNet detector and SFace
// recognizer and is only available in cgo builds. When the models cannot be
// loaded, Load hands back null capabilities that never find a face, together
// with the load error, so callers can tell "models missing" apart from "no
// face in this frame".
package vision

import (
	"errors"
	"image"
	"math"

	"github.com/andresmejia3/biopass/internal/frame"
)

// SignatureDim is the length of an SFace feature vector.
const SignatureDim = 128

// ErrModelLoadFailed is wrapped by every model loading error.
var ErrModelLoadFailed = errors.New("face model load failed")

// Point is a landmark coordinate in frame pixels.
type Point struct {
	X, Y float32
}

// Landmark indices in FaceRegion.Landmarks, in YuNet output order.
const (
	RightEye = iota
	LeftEye
	NoseTip
	RightMouth
	LeftMouth
	NumLandmarks
)

// FaceRegion is one detection: box, alignment landmarks and confidence.
type FaceRegion struct {
	X, Y, W, H float32
	Landmarks  [NumLandmarks]Point
	Score      float32
}

// Rect is the integer bounding box, used for visual crops.
func (r FaceRegion) Rect() image.Rectangle {
	x, y := int(r.X), int(r.Y)
	return image.Rect(x, y, x+int(r.W), y+int(r.H))
}

// Valid rejects regions that cannot be aligned: non-positive or non-finite boxes and landmarks.
func (r FaceRegion) Valid() bool {
	if r.W <= 0 || r.H <= 0 {
		return false
	}
	vals := []float32{r.X, r.Y, r.W, r.H, r.Score}
	for _, p := range r.Landmarks {
		vals = append(vals, p.X, p.Y)
	}
	for _, v := range vals {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// Row packs the region into YuNet's 15-column layout:
// x, y, w, h, five landmark pairs, score.
func (r FaceRegion) Row() [15]float32 {
	var row [15]float32
	row[0], row[1], row[2], row[3] = r.X, r.Y, r.W, r.H
	for i, p := range r.Landmarks {
		row[4+2*i] = p.X
		row[5+2*i] = p.Y
	}
	row[14] = r.Score
	return row
}

// RegionFromRow is the inverse of Row.
func RegionFromRow(row [15]float32) FaceRegion {
	r := FaceRegion{X: row[0], Y: row[1], W: row[2], H: row[3], Score: row[14]}
	for i := range r.Landmarks {
		r.Landmarks[i] = Point{X: row[4+2*i], Y: row[5+2*i]}
	}
	return r
}

// Signature is an L2-normalized face feature vector. Two signatures are only
// comparable when produced by the same extractor configuration.
type Signature []float32

// Normalize scales v to unit length in place and returns it. A zero vector is left untouched.
func Normalize(v []float32) Signature {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

// Detector finds the highest-confidence face in a frame.
type Detector interface {
	Detect(f frame.Frame) (FaceRegion, bool)
}

// Extractor turns an aligned face into a signature.
type Extractor interface {
	Extract(f frame.Frame, region FaceRegion) (Signature, bool)
}

// Best returns the highest scoring region, keeping the first on ties.
func Best(regions []FaceRegion) (FaceRegion, bool) {
	if len(regions) == 0 {
		return FaceRegion{}, false
	}
	best := regions[0]
	for _, r := range regions[1:] {
		if r.Score > best.Score {
			best = r
		}
	}
	return best, true
}
