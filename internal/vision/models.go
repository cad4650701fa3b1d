package vision

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/andresmejia3/biopass/internal/frame"
)

// ModelConfig locates the model files and the detector's fixed thresholds.
type ModelConfig struct {
	DetectorPath   string
	ExtractorPath  string
	ScoreThreshold float32
	NMSThreshold   float32
	TopK           int
}

// DefaultModelConfig matches the YuNet 2023mar / SFace 2021dec pair.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		DetectorPath:   "models/face_detection_yunet_2023mar.onnx",
		ExtractorPath:  "models/face_recognition_sface_2021dec.onnx",
		ScoreThreshold: 0.9,
		NMSThreshold:   0.3,
		TopK:           5000,
	}
}

// Loader opens a model-backed detector/extractor pair.
type Loader func(ModelConfig) (Detector, Extractor, io.Closer, error)

// Models is the capability pair chosen once at startup.
type Models struct {
	Detector  Detector
	Extractor Extractor
	// Err is non-nil when the real models could not be loaded and the null
	// capabilities are in use. It wraps ErrModelLoadFailed.
	Err    error
	closer io.Closer
}

// Available reports whether the model-backed capabilities are in use.
func (m Models) Available() bool {
	return m.Err == nil
}

// Close releases the native model handles.
func (m Models) Close() error {
	if m.closer == nil {
		return nil
	}
	return m.closer.Close()
}

// Load checks that both model files exist and opens them with load. It never
// fails hard: on error the returned Models carries null capabilities and the
// error.
func Load(cfg ModelConfig, load Loader, log *slog.Logger) Models {
	if log == nil {
		log = slog.Default()
	}
	for _, p := range []string{cfg.DetectorPath, cfg.ExtractorPath} {
		if _, err := os.Stat(p); err != nil {
			return Degraded(fmt.Errorf("%w: %v", ErrModelLoadFailed, err), log)
		}
	}

	det, ext, closer, err := load(cfg)
	if err != nil {
		return Degraded(fmt.Errorf("%w: %v", ErrModelLoadFailed, err), log)
	}
	log.Info("face models loaded",
		slog.String("detector", cfg.DetectorPath),
		slog.String("extractor", cfg.ExtractorPath),
	)
	return Models{Detector: det, Extractor: ext, closer: closer}
}

// NewModels wraps caller-provided capabilities.
func NewModels(det Detector, ext Extractor) Models {
	return Models{Detector: det, Extractor: ext}
}

// Degraded returns the null capabilities with err recorded as the reason.
func Degraded(err error, log *slog.Logger) Models {
	if log != nil {
		log.Error("face models unavailable, biometric features disabled", slog.Any("error", err))
	}
	return Models{Detector: NullDetector{}, Extractor: NullExtractor{}, Err: err}
}

// NullDetector is the degraded-mode stand-in: it never finds a face.
type NullDetector struct{}

func (NullDetector) Detect(frame.Frame) (FaceRegion, bool) { return FaceRegion{}, false }

// NullExtractor is the degraded-mode stand-in: it never produces a signature.
type NullExtractor struct{}

func (NullExtractor) Extract(frame.Frame, FaceRegion) (Signature, bool) { return nil, false }
