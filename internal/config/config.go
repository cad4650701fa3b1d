// Package config loads runtime settings from the environment and the camera
// backend list from YAML.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/andresmejia3/biopass/internal/camera"
	"github.com/andresmejia3/biopass/internal/match"
	"github.com/andresmejia3/biopass/internal/vision"
)

//go:embed backends.yaml
var defaultBackendsYAML []byte

// Prefix is prepended to every environment variable name.
const Prefix = "BIOPASS"

type Config struct {
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL"`

	// Models
	DetectorModel  string  `envconfig:"DETECTOR_MODEL" default:"models/face_detection_yunet_2023mar.onnx"`
	ExtractorModel string  `envconfig:"EXTRACTOR_MODEL" default:"models/face_recognition_sface_2021dec.onnx"`
	ScoreThreshold float32 `envconfig:"SCORE_THRESHOLD" default:"0.9"`
	NMSThreshold   float32 `envconfig:"NMS_THRESHOLD" default:"0.3"`
	TopK           int     `envconfig:"TOP_K" default:"5000"`
	MatchThreshold float64 `envconfig:"MATCH_THRESHOLD" default:"0.363"`

	// Camera
	CameraBackends string        `envconfig:"CAMERA_BACKENDS"`
	FrameWidth     int           `envconfig:"FRAME_WIDTH" default:"1280"`
	FrameHeight    int           `envconfig:"FRAME_HEIGHT" default:"720"`
	WarmupReads    int           `envconfig:"WARMUP_READS" default:"60"`
	WarmupDelay    time.Duration `envconfig:"WARMUP_DELAY" default:"50ms"`
	RetryDelay     time.Duration `envconfig:"RETRY_DELAY" default:"100ms"`

	// Kiosk
	HTTPAddr       string        `envconfig:"HTTP_ADDR" default:":8080"`
	RedrawInterval time.Duration `envconfig:"REDRAW_INTERVAL" default:"30ms"`

	// Events
	MQTTBroker string `envconfig:"MQTT_BROKER"`
	MQTTTopic  string `envconfig:"MQTT_TOPIC" default:"biopass/access"`
}

// Load reads an optional .env file and then the BIOPASS_* environment.
func Load() (*Config, error) {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if cfg.MatchThreshold < -1 || cfg.MatchThreshold > 1 {
		return nil, fmt.Errorf("load config: match threshold %v outside [-1, 1]", cfg.MatchThreshold)
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Models returns the model locations and detector thresholds.
func (c *Config) Models() vision.ModelConfig {
	return vision.ModelConfig{
		DetectorPath:   c.DetectorModel,
		ExtractorPath:  c.ExtractorModel,
		ScoreThreshold: c.ScoreThreshold,
		NMSThreshold:   c.NMSThreshold,
		TopK:           c.TopK,
	}
}

func (c *Config) Matcher() match.Matcher {
	return match.Matcher{Threshold: c.MatchThreshold}
}

func (c *Config) Camera() camera.Options {
	return camera.Options{
		WarmupReads: c.WarmupReads,
		WarmupDelay: c.WarmupDelay,
		RetryDelay:  c.RetryDelay,
	}
}

// Backends returns the configured camera candidates, or the built-in list
// when CameraBackends is unset.
func (c *Config) Backends() ([]camera.Backend, error) {
	if c.CameraBackends == "" {
		return DefaultBackends()
	}
	return LoadBackends(c.CameraBackends)
}

type backendFile struct {
	Backends []camera.Backend `yaml:"backends"`
}

// DefaultBackends parses the embedded candidate list.
func DefaultBackends() ([]camera.Backend, error) {
	return parseBackends(defaultBackendsYAML)
}

// LoadBackends reads a candidate list from a YAML file.
func LoadBackends(path string) ([]camera.Backend, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read camera backends: %w", err)
	}
	return parseBackends(data)
}

func parseBackends(data []byte) ([]camera.Backend, error) {
	var f backendFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse camera backends: %w", err)
	}
	if len(f.Backends) == 0 {
		return nil, fmt.Errorf("parse camera backends: list is empty")
	}
	for i, b := range f.Backends {
		if b.Hint == "" {
			return nil, fmt.Errorf("parse camera backends: entry %d has no backend", i)
		}
		if b.Device < 0 {
			return nil, fmt.Errorf("parse camera backends: entry %d has negative device", i)
		}
	}
	return f.Backends, nil
}
