package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"city-samadhan/assistant"
	"city-samadhan/auth"
	"city-samadhan/feed"
	"city-samadhan/geocode"
	"city-samadhan/handlers"
	"city-samadhan/logger"
	"city-samadhan/media"
	"city-samadhan/report"
	"city-samadhan/routes"
	"city-samadhan/types"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte{
	0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
	0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
}

var wavBytes = append([]byte("RIFF\x24\x00\x00\x00WAVEfmt "), make([]byte, 32)...)

type fakeReports struct {
	mu      sync.Mutex
	reports map[string]types.Report
	votes   map[string]map[string]bool
	err     error
}

func newFakeReports(reports ...types.Report) *fakeReports {
	f := &fakeReports{reports: map[string]types.Report{}, votes: map[string]map[string]bool{}}
	for _, r := range reports {
		f.reports[r.ID] = r
	}
	return f
}

func (f *fakeReports) GetReport(ctx context.Context, id string) (types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[id]
	if !ok {
		return types.Report{}, types.Errorf(types.KindNotFound, "fake.GetReport", "report %s not found", id)
	}
	return r, nil
}

func (f *fakeReports) ListUserReports(ctx context.Context, userID string) ([]types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	var out []types.Report
	for _, r := range f.reports {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) ListRecentReports(ctx context.Context, category types.Category, limit int) ([]types.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []types.Report
	for _, r := range f.reports {
		if category == "" || r.Category == category {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeReports) Upvote(ctx context.Context, reportID, userID string) (int, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reports[reportID]
	if !ok {
		return 0, false, types.Errorf(types.KindNotFound, "fake.Upvote", "report %s not found", reportID)
	}
	if f.votes[reportID] == nil {
		f.votes[reportID] = map[string]bool{}
	}
	if f.votes[reportID][userID] {
		return r.Upvotes, false, nil
	}
	f.votes[reportID][userID] = true
	r.Upvotes++
	f.reports[reportID] = r
	return r.Upvotes, true, nil
}

// fakeSubmitter records drafts; with block set it waits until block is closed.
type fakeSubmitter struct {
	mu      sync.Mutex
	err     error
	block   chan struct{}
	entered chan struct{}
	got     []report.Draft
}

func (f *fakeSubmitter) Submit(ctx context.Context, d report.Draft) (string, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.got = append(f.got, d)
	return "report-1", nil
}

func (f *fakeSubmitter) drafts() []report.Draft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]report.Draft(nil), f.got...)
}

// chanSource serves every watcher from one channel of snapshots.
type chanSource struct {
	snaps   chan []types.Report
	stopped chan struct{}
	once    sync.Once
}

func newChanSource() *chanSource {
	return &chanSource{snaps: make(chan []types.Report), stopped: make(chan struct{})}
}

func (s *chanSource) WatchUserReports(ctx context.Context, userID string) (feed.Stream, error) {
	return &chanStream{ctx: ctx, src: s}, nil
}

type chanStream struct {
	ctx context.Context
	src *chanSource
}

func (s *chanStream) Next() ([]types.Report, error) {
	select {
	case r := <-s.src.snaps:
		return r, nil
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *chanStream) Stop() { s.src.once.Do(func() { close(s.src.stopped) }) }

type harness struct {
	router    *gin.Engine
	reports   *fakeReports
	submitter *fakeSubmitter
	drafts    *report.Registry
	source    *chanSource
	stageDir  string
}

// testAuth takes the user id from X-Test-User, defaulting to "u1".
func testAuth(c *gin.Context) {
	uid := c.GetHeader("X-Test-User")
	if uid == "" {
		uid = "u1"
	}
	ctx := c.Request.Context()
	c.Request = c.Request.WithContext(auth.WithUser(ctx, types.User{ID: uid}))
	c.Next()
}

func newHarness(t *testing.T, reports ...types.Report) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Discard()

	base := t.TempDir()
	stager, err := media.NewStager(base, 1<<20, log)
	require.NoError(t, err)

	h := &harness{
		reports:   newFakeReports(reports...),
		submitter: &fakeSubmitter{},
		source:    newChanSource(),
		stageDir:  filepath.Join(base, "city-samadhan-media"),
	}
	h.drafts = report.NewRegistry(h.submitter, stager, log)

	handler := handlers.New(handlers.Deps{
		Reports:   h.reports,
		Drafts:    h.drafts,
		Submitter: h.submitter,
		Guard:     report.NewMemoryGuard(),
		Stager:    stager,
		Locations: geocode.NewResolver(nil, 0, log),
		Feed:      feed.NewSubscriber(h.source, log),
		Assistant: assistant.New(nil, "", log),
		Log:       log,
	})
	h.router = routes.SetupRouter(handler, testAuth)
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func (h *harness) json(method, path string, body any) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		b, _ := json.Marshal(body)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	return h.do(req)
}

func (h *harness) stagedFiles(t *testing.T) int {
	t.Helper()
	entries, err := os.ReadDir(h.stageDir)
	require.NoError(t, err)
	return len(entries)
}

type filePart struct {
	field, name string
	body        []byte
}

func multipartRequest(t *testing.T, method, path string, fields map[string]string, files ...filePart) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write(f.body)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
