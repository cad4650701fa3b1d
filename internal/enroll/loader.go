package enroll

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/andresmejia3/biopass/internal/frame"
	"github.com/andresmejia3/biopass/internal/types"
	"github.com/andresmejia3/biopass/internal/vision"
	"github.com/schollz/progressbar/v3"
)

var (
	errUndecodable = errors.New("photo could not be decoded")
	errNoFace      = errors.New("no face in photo")
	errNoSignature = errors.New("signature extraction failed")
)

// Lister is the read side of the persistence collaborator.
type Lister interface {
	ListAll(ctx context.Context) ([]types.User, error)
}

// LoadReport summarizes a cache build. Failed users are skipped, never cached.
type LoadReport struct {
	Total  int
	Loaded int
	Failed int
}

func (r LoadReport) String() string {
	return fmt.Sprintf("loaded %d users (failed %d)", r.Loaded, r.Failed)
}

// Loader replays persisted users through the detector and extractor.
type Loader struct {
	Users     Lister
	Detector  vision.Detector
	Extractor vision.Extractor
	Log       *slog.Logger
	// Progress, when set, receives a progress bar.
	Progress io.Writer
}

// Load builds a new cache. Only a failure to list users is returned as an
// error; per-user failures are counted in the report.
func (l Loader) Load(ctx context.Context) (*Cache, LoadReport, error) {
	log := l.Log
	if log == nil {
		log = slog.Default()
	}
	users, err := l.Users.ListAll(ctx)
	if err != nil {
		return nil, LoadReport{}, fmt.Errorf("failed to list users: %w", err)
	}

	report := LoadReport{Total: len(users)}
	cache := &Cache{entries: make([]Identity, 0, len(users))}

	var bar *progressbar.ProgressBar
	if l.Progress != nil && len(users) > 0 {
		bar = progressbar.NewOptions(len(users),
			progressbar.OptionSetDescription("Loading users"),
			progressbar.OptionSetWriter(l.Progress),
			progressbar.OptionShowCount(),
			progressbar.OptionClearOnFinish(),
		)
	}

	for _, u := range users {
		if err := ctx.Err(); err != nil {
			return nil, report, err
		}
		sig, err := l.signature(u.Photo)
		if bar != nil {
			bar.Add(1)
		}
		if err != nil {
			report.Failed++
			log.Debug("skipping user", slog.Int64("id", u.ID), slog.String("name", u.Name), slog.Any("error", err))
			continue
		}
		cache.entries = append(cache.entries, Identity{Name: u.Name, Signature: sig})
		report.Loaded++
	}
	if bar != nil {
		bar.Finish()
	}

	log.Info("enrollment cache ready",
		slog.Int("loaded", report.Loaded),
		slog.Int("failed", report.Failed),
		slog.Int("total", report.Total),
	)
	return cache, report, nil
}

func (l Loader) signature(photo []byte) (vision.Signature, error) {
	f, err := frame.Decode(photo)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errUndecodable, err)
	}
	region, ok := l.Detector.Detect(f)
	if !ok {
		return nil, errNoFace
	}
	sig, ok := l.Extractor.Extract(f, region)
	if !ok {
		return nil, errNoSignature
	}
	return sig, nil
}
