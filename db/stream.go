package db

import (
	"context"

	"city-samadhan/feed"
	"city-samadhan/types"

	"cloud.google.com/go/firestore"
)

type reportStream struct {
	it *firestore.QuerySnapshotIterator
}

// WatchUserReports opens a live query over userID's reports, newest first.
// The first Next returns the current result set.
func (r *Reports) WatchUserReports(ctx context.Context, userID string) (feed.Stream, error) {
	return &reportStream{it: r.userQuery(userID).Snapshots(ctx)}, nil
}

func (s *reportStream) Next() ([]types.Report, error) {
	snap, err := s.it.Next()
	if err != nil {
		return nil, err
	}
	docs, err := snap.Documents.GetAll()
	if err != nil {
		return nil, err
	}
	return decodeReports(docs)
}

func (s *reportStream) Stop() {
	s.it.Stop()
}
