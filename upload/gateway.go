package upload

import (
	"context"
	"fmt"
	"time"

	"city-samadhan/media"
	"city-samadhan/metrics"
	"city-samadhan/types"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Uploaded is a staged asset that now lives in the object store.
type Uploaded struct {
	URL  string     `firestore:"url" json:"url"`
	Path string     `firestore:"path" json:"path"`
	Kind media.Kind `firestore:"kind" json:"kind"`
}

type Gateway struct {
	store       Store
	timeout     time.Duration
	concurrency int
	log         logrus.FieldLogger
}

func NewGateway(store Store, timeout time.Duration, concurrency int, log logrus.FieldLogger) *Gateway {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Gateway{store: store, timeout: timeout, concurrency: concurrency, log: log}
}

// ObjectPath names a new object for an asset of the given kind.
func ObjectPath(kind media.Kind, ext string) string {
	dir := "images"
	if kind == media.Audio {
		dir = "voice"
	}
	return fmt.Sprintf("reports/%s/%s%s", dir, uuid.NewString(), ext)
}

// Upload sends one asset to the store. Every failure, timeouts included, is an UploadError.
func (g *Gateway) Upload(ctx context.Context, asset media.Asset) (Uploaded, error) {
	const op = "upload.Upload"

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	start := time.Now()
	path := ObjectPath(asset.Kind, asset.Extension)

	url, err := g.put(ctx, asset, path)
	metrics.UploadDurationSeconds.WithLabelValues(string(asset.Kind)).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.UploadsTotal.WithLabelValues(string(asset.Kind), "error").Inc()
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %v", ctxErr, err)
		}
		return Uploaded{}, types.Classify(types.KindUpload, op, err)
	}
	metrics.UploadsTotal.WithLabelValues(string(asset.Kind), "ok").Inc()

	g.log.WithFields(logrus.Fields{"asset": asset.ID, "path": path}).Debug("Uploaded media asset")
	return Uploaded{URL: url, Path: path, Kind: asset.Kind}, nil
}

func (g *Gateway) put(ctx context.Context, asset media.Asset, path string) (string, error) {
	rc, err := media.Open(asset)
	if err != nil {
		return "", err
	}
	defer rc.Close()

	return g.store.Put(ctx, path, rc, asset.Size, asset.ContentType)
}

// UploadAll uploads assets concurrently and returns their results in input
// order. The first failure cancels the remaining uploads. On error the
// returned slice holds only the uploads that did complete, so the caller can
// clean them up.
func (g *Gateway) UploadAll(ctx context.Context, assets []media.Asset) ([]Uploaded, error) {
	if len(assets) == 0 {
		return nil, nil
	}

	results := make([]Uploaded, len(assets))
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.concurrency)

	for i, asset := range assets {
		i, asset := i, asset
		eg.Go(func() error {
			up, err := g.Upload(egCtx, asset)
			if err != nil {
				return fmt.Errorf("asset %d of %d: %w", i+1, len(assets), err)
			}
			results[i] = up
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		done := make([]Uploaded, 0, len(results))
		for _, up := range results {
			if up.Path != "" {
				done = append(done, up)
			}
		}
		return done, types.Classify(types.KindUpload, "upload.UploadAll", err)
	}
	return results, nil
}

// Remove deletes uploaded objects, returning those that could not be deleted.
func (g *Gateway) Remove(ctx context.Context, uploads []Uploaded) []Uploaded {
	var failed []Uploaded
	for _, up := range uploads {
		if err := g.store.Delete(ctx, up.Path); err != nil {
			g.log.WithError(err).WithField("path", up.Path).Warn("Failed to delete uploaded object")
			failed = append(failed, up)
		}
	}
	return failed
}
