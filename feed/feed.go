package feed

import (
	"context"
	"sort"
	"sync"

	"city-samadhan/metrics"
	"city-samadhan/types"

	"github.com/sirupsen/logrus"
)

// Stream yields complete result sets of a standing query, one per change.
// Next blocks until the next snapshot. Stop must not be called while Next is running.
type Stream interface {
	Next() ([]types.Report, error)
	Stop()
}

// Source opens standing queries over a user's reports.
type Source interface {
	WatchUserReports(ctx context.Context, userID string) (Stream, error)
}

type Subscriber struct {
	source Source
	log    logrus.FieldLogger
}

func NewSubscriber(source Source, log logrus.FieldLogger) *Subscriber {
	return &Subscriber{source: source, log: log}
}

// Subscription is a live feed of one user's reports.
type Subscription struct {
	cancel context.CancelFunc

	// mu is held for the whole of a delivery.
	mu     sync.Mutex
	closed bool

	done chan struct{}
	err  error
}

// Subscribe delivers the full current list of userID's reports, newest first,
// every time it changes. Each call to onUpdate replaces the previous list.
// Callbacks run on a single goroutine owned by the subscription. onUpdate must
// not call Close; to stop from inside a callback, cancel ctx instead.
func (s *Subscriber) Subscribe(ctx context.Context, userID string, onUpdate func([]types.Report)) (*Subscription, error) {
	const op = "feed.Subscribe"

	ctx, cancel := context.WithCancel(ctx)
	stream, err := s.source.WatchUserReports(ctx, userID)
	if err != nil {
		cancel()
		return nil, types.Classify(types.KindPersistence, op, err)
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}
	metrics.FeedSubscriptions.Inc()
	log := s.log.WithField("user_id", userID)
	log.Debug("Feed subscription opened")

	go func() {
		defer func() {
			stream.Stop()
			cancel()
			metrics.FeedSubscriptions.Dec()
			close(sub.done)
			log.Debug("Feed subscription closed")
		}()

		for {
			reports, err := stream.Next()
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				log.WithError(err).Warn("Feed stream failed")
				sub.err = types.Classify(types.KindPersistence, op, err)
				return
			}

			SortNewestFirst(reports)
			if !sub.deliver(ctx, reports, onUpdate) {
				return
			}
		}
	}()

	return sub, nil
}

// deliver runs onUpdate unless the subscription was closed or cancelled
// after the snapshot arrived.
func (s *Subscription) deliver(ctx context.Context, reports []types.Report, onUpdate func([]types.Report)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ctx.Err() != nil {
		return false
	}
	metrics.FeedSnapshotsTotal.Inc()
	onUpdate(reports)
	return true
}

// Close stops further callbacks and releases the standing query. If a
// callback is running, Close waits for it to return; once Close returns no
// callback runs again. Calling it more than once is a no-op.
func (s *Subscription) Close() {
	s.cancel()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Done is closed once the feed goroutine has exited.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}

// Err reports why the feed ended. It is nil after Close and valid only once Done is closed.
func (s *Subscription) Err() error {
	<-s.done
	return s.err
}

// SortNewestFirst orders reports by createdAt descending, ties broken by id.
func SortNewestFirst(reports []types.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		a, b := reports[i], reports[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
