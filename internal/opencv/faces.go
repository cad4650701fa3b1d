//go:build cgo

package opencv

import (
	"errors"
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/vision"
	"gocv.io/x/gocv"
)

// yuNetDetector wraps cv::FaceDetectorYN. OpenCV objects are not safe for
// concurrent use, so every call holds mu.
type yuNetDetector struct {
	mu  sync.Mutex
	net gocv.FaceDetectorYN
}

// sfaceExtractor wraps cv::FaceRecognizerSF.
type sfaceExtractor struct {
	mu  sync.Mutex
	net gocv.FaceRecognizerSF
}

type nativeModels struct {
	det *yuNetDetector
	ext *sfaceExtractor
}

func (n *nativeModels) Close() error {
	n.det.mu.Lock()
	n.det.net.Close()
	n.det.mu.Unlock()
	n.ext.mu.Lock()
	n.ext.net.Close()
	n.ext.mu.Unlock()
	return nil
}

// LoadModels opens the YuNet detector and SFace recognizer. It satisfies
// vision.Loader. A model file OpenCV cannot parse is reported as an error.
func LoadModels(cfg vision.ModelConfig) (vision.Detector, vision.Extractor, io.Closer, error) {
	gocv.ClearLastException()
	// The initial input size is a placeholder; Detect resets it per frame.
	det := gocv.NewFaceDetectorYNWithParams(cfg.DetectorPath, "", image.Pt(320, 320),
		cfg.ScoreThreshold, cfg.NMSThreshold, cfg.TopK, 0, 0)
	if err := gocv.LastExceptionError(); err != nil {
		det.Close()
		return nil, nil, nil, fmt.Errorf("load detector %s: %w", cfg.DetectorPath, err)
	}

	gocv.ClearLastException()
	ext := gocv.NewFaceRecognizerSF(cfg.ExtractorPath, "")
	if err := gocv.LastExceptionError(); err != nil {
		ext.Close()
		det.Close()
		return nil, nil, nil, fmt.Errorf("load extractor %s: %w", cfg.ExtractorPath, err)
	}

	n := &nativeModels{
		det: &yuNetDetector{net: det},
		ext: &sfaceExtractor{net: ext},
	}
	return n.det, n.ext, n, nil
}

func toMat(f frame.Frame) (gocv.Mat, error) {
	if f.Empty() {
		return gocv.NewMat(), errors.New("empty frame")
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, f.Pix)
}

func (d *yuNetDetector) Detect(f frame.Frame) (vision.FaceRegion, bool) {
	img, err := toMat(f)
	if err != nil {
		img.Close()
		return vision.FaceRegion{}, false
	}
	defer img.Close()

	faces := gocv.NewMat()
	defer faces.Close()

	d.mu.Lock()
	d.net.SetInputSize(image.Pt(f.Width, f.Height))
	d.net.Detect(img, &faces)
	d.mu.Unlock()

	if faces.Empty() || faces.Cols() < 15 {
		return vision.FaceRegion{}, false
	}
	regions := make([]vision.FaceRegion, 0, faces.Rows())
	for r := 0; r < faces.Rows(); r++ {
		var row [15]float32
		for c := range row {
			row[c] = faces.GetFloatAt(r, c)
		}
		regions = append(regions, vision.RegionFromRow(row))
	}
	return vision.Best(regions)
}

func (e *sfaceExtractor) Extract(f frame.Frame, region vision.FaceRegion) (vision.Signature, bool) {
	if !region.Valid() {
		return nil, false
	}
	img, err := toMat(f)
	if err != nil {
		img.Close()
		return nil, false
	}
	defer img.Close()

	box := gocv.NewMatWithSize(1, 15, gocv.MatTypeCV32F)
	defer box.Close()
	for c, v := range region.Row() {
		box.SetFloatAt(0, c, v)
	}

	aligned := gocv.NewMat()
	defer aligned.Close()
	feature := gocv.NewMat()
	defer feature.Close()

	e.mu.Lock()
	e.net.AlignCrop(img, box, &aligned)
	if !aligned.Empty() {
		e.net.Feature(aligned, &feature)
	}
	e.mu.Unlock()

	if aligned.Empty() || feature.Empty() {
		return nil, false
	}
	data, err := feature.DataPtrFloat32()
	if err != nil || len(data) != vision.SignatureDim {
		return nil, false
	}
	sig := make([]float32, len(data))
	copy(sig, data)
	return vision.Normalize(sig), true
}
