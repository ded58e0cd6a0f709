// Package media relays uploaded files to object storage and removes them again in the background.
package media

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/sony/gobreaker"

	"github.com/vidtube/backend/internal/logging"
)

// Kind selects the processing applied before upload.
type Kind int

const (
	KindImage Kind = iota + 1
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindVideo:
		return "video"
	default:
		return "unknown"
	}
}

// Asset describes an uploaded object.
type Asset struct {
	URL      string
	PublicID string
	Duration float64
}

// ObjectStore persists and removes objects by key.
type ObjectStore interface {
	Save(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Remove(ctx context.Context, key string) error
}

// DurationProber measures the playback length of a local video file in seconds.
type DurationProber interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Fitter shrinks a local image file in place.
type Fitter interface {
	Fit(path string) error
}

// RelayOptions tunes the relay. Zero values fall back to defaults.
type RelayOptions struct {
	Prober             DurationProber
	Fitter             Fitter
	Logger             *slog.Logger
	BreakerMaxFailures uint32
	BreakerCooldown    time.Duration
	DeleteWorkers      int
	DeleteQueueSize    int
	DeleteTimeout      time.Duration
}

// Relay uploads local files to object storage behind a circuit breaker and deletes them through a
// background queue.
type Relay struct {
	store   ObjectStore
	prober  DurationProber
	fitter  Fitter
	breaker *gobreaker.CircuitBreaker
	queue   *DeleteQueue
	logger  *slog.Logger
}

// NewRelay constructs a relay over store and starts its delete workers.
func NewRelay(store ObjectStore, opts RelayOptions) *Relay {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.BreakerMaxFailures == 0 {
		opts.BreakerMaxFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	logger := opts.Logger
	r := &Relay{
		store:  store,
		prober: opts.Prober,
		fitter: opts.Fitter,
		logger: logger,
	}
	r.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: 1,
		Timeout:     opts.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= opts.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state", "name", name, "from", from.String(), "to", to.String())
		},
	})
	r.queue = NewDeleteQueue(r.remove, DeleteQueueConfig{
		Workers:   opts.DeleteWorkers,
		QueueSize: opts.DeleteQueueSize,
		Timeout:   opts.DeleteTimeout,
	}, logger)
	return r
}

// Upload relays the file at localPath and returns the stored asset. The local file is removed
// whether or not the upload succeeds.
func (r *Relay) Upload(ctx context.Context, localPath string, kind Kind) (Asset, error) {
	ctx, span := logging.StartSpan(ctx, "media.upload")
	defer span.End()
	logger := logging.FromContext(ctx)

	defer func() {
		if err := os.Remove(localPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("remove stashed upload", "path", localPath, "error", err)
		}
	}()

	if strings.TrimSpace(localPath) == "" {
		return Asset{}, fmt.Errorf("%w: no local file", ErrUploadFailed)
	}

	if kind == KindImage && r.fitter != nil {
		if err := r.fitter.Fit(localPath); err != nil {
			return Asset{}, fmt.Errorf("%w: %v", ErrUnreadableImage, err)
		}
	}

	var duration float64
	if kind == KindVideo && r.prober != nil {
		probed, err := r.prober.Duration(ctx, localPath)
		if err != nil {
			logger.Warn("probe video duration", "path", localPath, "error", err)
		} else {
			duration = probed
		}
	}

	contentType := ""
	if detected, err := mimetype.DetectFile(localPath); err == nil {
		contentType = detected.String()
	}

	file, err := os.Open(localPath)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: open %s: %v", ErrUploadFailed, localPath, err)
	}
	defer file.Close()

	publicID := uuid.NewString()
	location, err := r.breaker.Execute(func() (interface{}, error) {
		return r.store.Save(ctx, publicID, contentType, file)
	})
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}

	logger.Info("media uploaded", "publicId", publicID, "kind", kind.String(), "contentType", contentType)
	return Asset{URL: location.(string), PublicID: publicID, Duration: duration}, nil
}

// Delete schedules removal of the object behind assetURL and returns immediately. Blank or
// unparseable URLs are ignored.
func (r *Relay) Delete(ctx context.Context, assetURL string) {
	publicID := PublicIDFromURL(assetURL)
	if publicID == "" {
		return
	}
	if !r.queue.Enqueue(publicID) {
		logging.FromContext(ctx).Warn("media delete not scheduled", "publicId", publicID)
	}
}

// Shutdown drains pending deletes.
func (r *Relay) Shutdown(ctx context.Context) error {
	return r.queue.Shutdown(ctx)
}

func (r *Relay) remove(ctx context.Context, publicID string) error {
	_, err := r.breaker.Execute(func() (interface{}, error) {
		return nil, r.store.Remove(ctx, publicID)
	})
	return err
}

// PublicIDFromURL returns the last path segment of assetURL without its extension.
func PublicIDFromURL(assetURL string) string {
	assetURL = strings.TrimSpace(assetURL)
	if assetURL == "" {
		return ""
	}
	p := assetURL
	if parsed, err := url.Parse(assetURL); err == nil {
		p = parsed.Path
	}
	base := path.Base(p)
	if base == "." || base == "/" {
		return ""
	}
	return strings.TrimSuffix(base, path.Ext(base))
}
