package report

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"city-samadhan/events"
	"city-samadhan/logger"
	"city-samadhan/media"
	"city-samadhan/types"
	"city-samadhan/upload"

	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	user types.User
	err  error
}

func (f fakeIdentity) CurrentUser(ctx context.Context) (types.User, error) {
	if f.err != nil {
		return types.User{}, f.err
	}
	return f.user, nil
}

// fakeStore is an object store keyed by object content.
type fakeStore struct {
	mu     sync.Mutex
	delays map[string]time.Duration
	fail   map[string]bool
	puts   []string
}

func (f *fakeStore) Put(ctx context.Context, path string, r io.Reader, size int64, contentType string) (string, error) {
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	content := string(body)
	if d := f.delays[content]; d > 0 {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if f.fail[content] {
		return "", errors.New("503 from cdn")
	}
	f.mu.Lock()
	f.puts = append(f.puts, content)
	f.mu.Unlock()
	return "https://cdn.example/reports/" + content + filepath.Ext(path), nil
}

func (f *fakeStore) Delete(ctx context.Context, path string) error { return nil }

func (f *fakeStore) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.puts)
}

type fakeRepo struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	entered chan struct{}
	ids     int
	created []types.Report
	// lateErr is returned after the report was stored.
	lateErr error
}

func (f *fakeRepo) NewReportID() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids++
	return "report-" + string(rune('0'+f.ids))
}

func (f *fakeRepo) CreateReport(ctx context.Context, r types.Report) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return "", f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, r)
	if f.lateErr != nil {
		return "", f.lateErr
	}
	return r.ID, nil
}

func (f *fakeRepo) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakeJournal struct {
	mu        sync.Mutex
	reasons   []string
	paths     []string
	reportIDs []string
}

func (f *fakeJournal) RecordOrphans(ctx context.Context, userID, reportID, reason string, uploads []upload.Uploaded) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, up := range uploads {
		f.reasons = append(f.reasons, reason)
		f.paths = append(f.paths, up.Path)
		f.reportIDs = append(f.reportIDs, reportID)
	}
	return nil
}

type fakePublisher struct {
	events []events.ReportSubmitted
	err    error
}

func (f *fakePublisher) PublishReportSubmitted(ctx context.Context, e events.ReportSubmitted) error {
	f.events = append(f.events, e)
	return f.err
}

type fakeDiscarder struct {
	mu        sync.Mutex
	discarded []string
}

func (f *fakeDiscarder) Discard(assets ...media.Asset) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range assets {
		f.discarded = append(f.discarded, a.ID)
	}
}

type harness struct {
	store     *fakeStore
	repo      *fakeRepo
	journal   *fakeJournal
	publisher *fakePublisher
	submitter *Submitter
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		store:     &fakeStore{delays: map[string]time.Duration{}, fail: map[string]bool{}},
		repo:      &fakeRepo{},
		journal:   &fakeJournal{},
		publisher: &fakePublisher{},
	}
	gw := upload.NewGateway(h.store, 2*time.Second, 4, logger.Discard())
	h.submitter = NewSubmitter(
		fakeIdentity{user: types.User{ID: "citizen-42"}},
		gw,
		h.repo,
		logger.Discard(),
		WithOrphanJournal(h.journal),
		WithEventPublisher(h.publisher),
		WithPersistTimeout(time.Second),
	)
	return h
}

func asset(t *testing.T, kind media.Kind, content string) media.Asset {
	t.Helper()
	path := filepath.Join(t.TempDir(), content)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	ext := ".jpg"
	if kind == media.Audio {
		ext = ".m4a"
	}
	return media.Asset{ID: content, Kind: kind, Path: path, ContentType: "application/octet-stream", Extension: ext, Size: int64(len(content))}
}

func mgRoad() *types.LocationRecord {
	return &types.LocationRecord{Latitude: 12.9, Longitude: 77.6, Address: "MG Road"}
}
