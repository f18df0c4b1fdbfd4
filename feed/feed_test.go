package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"city-samadhan/logger"
	"city-samadhan/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type snapshotOrError struct {
	reports []types.Report
	err     error
}

type fakeStream struct {
	ctx     context.Context
	updates chan snapshotOrError
	stopped chan struct{}
	once    sync.Once
	// returned, when set, is signalled as Next hands over a snapshot.
	returned chan struct{}
}

func (s *fakeStream) Next() ([]types.Report, error) {
	select {
	case u := <-s.updates:
		if s.returned != nil {
			s.returned <- struct{}{}
		}
		return u.reports, u.err
	case <-s.ctx.Done():
		return nil, s.ctx.Err()
	}
}

func (s *fakeStream) Stop() {
	s.once.Do(func() { close(s.stopped) })
}

type fakeSource struct {
	stream  *fakeStream
	err     error
	userIDs []string
}

func newFakeSource() *fakeSource {
	return &fakeSource{stream: &fakeStream{
		updates: make(chan snapshotOrError),
		stopped: make(chan struct{}),
	}}
}

func (f *fakeSource) WatchUserReports(ctx context.Context, userID string) (Stream, error) {
	f.userIDs = append(f.userIDs, userID)
	if f.err != nil {
		return nil, f.err
	}
	f.stream.ctx = ctx
	return f.stream, nil
}

func report(id string, created time.Time) types.Report {
	return types.Report{ID: id, Title: id, Status: types.Pending, UserID: "u1", CreatedAt: created}
}

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestSubscribeDeliversSnapshotsNewestFirst(t *testing.T) {
	src := newFakeSource()
	sub := NewSubscriber(src, logger.Discard())

	received := make(chan []types.Report, 3)
	s, err := sub.Subscribe(context.Background(), "u1", func(reports []types.Report) {
		received <- reports
	})
	require.NoError(t, err)
	defer s.Close()

	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	older := report("a", base)
	newer := report("b", base.Add(time.Hour))

	src.stream.updates <- snapshotOrError{reports: []types.Report{}}
	src.stream.updates <- snapshotOrError{reports: []types.Report{older}}
	// delivered out of order on purpose
	src.stream.updates <- snapshotOrError{reports: []types.Report{older, newer}}

	var snapshots [][]types.Report
	for i := 0; i < 3; i++ {
		select {
		case r := <-received:
			snapshots = append(snapshots, r)
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d snapshots delivered", i)
		}
	}

	assert.Len(t, snapshots[0], 0)
	assert.Equal(t, []types.Report{older}, snapshots[1])
	assert.Equal(t, []types.Report{newer, older}, snapshots[2])
	assert.Equal(t, []string{"u1"}, src.userIDs)
}

func TestCloseStopsCallbacksAndReleasesStream(t *testing.T) {
	src := newFakeSource()
	sub := NewSubscriber(src, logger.Discard())

	calls := 0
	var mu sync.Mutex
	delivered := make(chan struct{}, 1)
	s, err := sub.Subscribe(context.Background(), "u1", func([]types.Report) {
		mu.Lock()
		calls++
		mu.Unlock()
		delivered <- struct{}{}
	})
	require.NoError(t, err)

	src.stream.updates <- snapshotOrError{reports: []types.Report{}}
	<-delivered

	s.Close()
	s.Close()

	waitClosed(t, s.Done())
	waitClosed(t, src.stream.stopped)
	assert.NoError(t, s.Err())

	mu.Lock()
	assert.Equal(t, 1, calls)
	mu.Unlock()
}

func TestCancelFromInsideCallback(t *testing.T) {
	src := newFakeSource()
	sub := NewSubscriber(src, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	calls := 0
	s, err := sub.Subscribe(ctx, "u1", func([]types.Report) {
		calls++
		cancel()
	})
	require.NoError(t, err)

	src.stream.updates <- snapshotOrError{reports: []types.Report{}}
	waitClosed(t, s.Done())
	assert.Equal(t, 1, calls)
	assert.NoError(t, s.Err())
}

func TestCloseWaitsForRunningCallback(t *testing.T) {
	src := newFakeSource()
	sub := NewSubscriber(src, logger.Discard())

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	s, err := sub.Subscribe(context.Background(), "u1", func([]types.Report) {
		close(entered)
		<-release
		finished.Store(true)
	})
	require.NoError(t, err)

	src.stream.updates <- snapshotOrError{reports: []types.Report{}}
	<-entered

	closeReturned := make(chan struct{})
	go func() {
		s.Close()
		close(closeReturned)
	}()

	select {
	case <-closeReturned:
		t.Fatal("Close returned while a callback was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	waitClosed(t, closeReturned)
	assert.True(t, finished.Load())
	waitClosed(t, s.Done())
}

func TestCloseWhileSnapshotIsSortedSkipsDelivery(t *testing.T) {
	src := newFakeSource()
	src.stream.returned = make(chan struct{}, 1)
	sub := NewSubscriber(src, logger.Discard())

	var closeReturned atomic.Bool
	var late atomic.Int32
	s, err := sub.Subscribe(context.Background(), "u1", func([]types.Report) {
		if closeReturned.Load() {
			late.Add(1)
		}
	})
	require.NoError(t, err)

	// large enough that sorting outlasts the gap before Close
	base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	big := make([]types.Report, 200000)
	for i := range big {
		big[i] = report(fmt.Sprintf("r%06d", i), base.Add(time.Duration(i%977)*time.Second))
	}

	src.stream.updates <- snapshotOrError{reports: big}
	<-src.stream.returned
	time.Sleep(time.Millisecond)
	s.Close()
	closeReturned.Store(true)

	waitClosed(t, s.Done())
	assert.Zero(t, late.Load(), "onUpdate ran after Close returned")
}

func TestStreamErrorEndsSubscription(t *testing.T) {
	src := newFakeSource()
	sub := NewSubscriber(src, logger.Discard())

	s, err := sub.Subscribe(context.Background(), "u1", func([]types.Report) {})
	require.NoError(t, err)

	src.stream.updates <- snapshotOrError{err: errors.New("permission denied on query")}
	waitClosed(t, s.Done())
	assert.True(t, errors.Is(s.Err(), types.ErrPersistence))
}

func TestSubscribeSourceFailure(t *testing.T) {
	src := newFakeSource()
	src.err = errors.New("unavailable")
	sub := NewSubscriber(src, logger.Discard())

	s, err := sub.Subscribe(context.Background(), "u1", func([]types.Report) {})
	assert.Nil(t, s)
	assert.True(t, errors.Is(err, types.ErrPersistence))
}

func TestParentContextCancelEndsSubscription(t *testing.T) {
	src := newFakeSource()
	sub := NewSubscriber(src, logger.Discard())

	ctx, cancel := context.WithCancel(context.Background())
	s, err := sub.Subscribe(ctx, "u1", func([]types.Report) {})
	require.NoError(t, err)

	cancel()
	waitClosed(t, s.Done())
	assert.NoError(t, s.Err())
}

func TestSortNewestFirstTies(t *testing.T) {
	ts := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	reports := []types.Report{report("c", ts), report("a", ts), report("b", ts.Add(time.Second))}

	SortNewestFirst(reports)

	ids := []string{reports[0].ID, reports[1].ID, reports[2].ID}
	assert.Equal(t, []string{"b", "a", "c"}, ids)
}
