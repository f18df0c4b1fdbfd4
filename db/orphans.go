package db

import (
	"context"
	"fmt"
	"time"

	"city-samadhan/upload"

	"cloud.google.com/go/firestore"
)

const orphansCollection = "orphaned_media"

// Orphan is an uploaded object that no report references.
type Orphan struct {
	ID        string    `firestore:"-"`
	Path      string    `firestore:"path"`
	URL       string    `firestore:"url"`
	Kind      string    `firestore:"kind"`
	UserID    string    `firestore:"userId"`
	ReportID  string    `firestore:"reportId"`
	Reason    string    `firestore:"reason"`
	CreatedAt time.Time `firestore:"createdAt,serverTimestamp"`
}

// Orphans is the journal the reconciliation sweep works from.
type Orphans struct {
	client *firestore.Client
}

func NewOrphans(client *firestore.Client) *Orphans {
	return &Orphans{client: client}
}

// RecordOrphans journals uploads left behind by a failed submission. reportID
// is the document the failed write targeted, if any.
func (o *Orphans) RecordOrphans(ctx context.Context, userID, reportID, reason string, uploads []upload.Uploaded) error {
	if len(uploads) == 0 {
		return nil
	}

	bw := o.client.BulkWriter(ctx)
	coll := o.client.Collection(orphansCollection)

	jobs := make([]*firestore.BulkWriterJob, 0, len(uploads))
	for _, up := range uploads {
		job, err := bw.Create(coll.NewDoc(), Orphan{
			Path:     up.Path,
			URL:      up.URL,
			Kind:     string(up.Kind),
			UserID:   userID,
			ReportID: reportID,
			Reason:   reason,
		})
		if err != nil {
			bw.End()
			return fmt.Errorf("error enqueueing orphan %s: %w", up.Path, err)
		}
		jobs = append(jobs, job)
	}
	bw.End()

	for i, job := range jobs {
		if _, err := job.Results(); err != nil {
			return fmt.Errorf("failed to journal orphan %s: %w", uploads[i].Path, err)
		}
	}
	return nil
}

// ListOrphans returns up to limit journal entries, oldest first.
func (o *Orphans) ListOrphans(ctx context.Context, limit int) ([]Orphan, error) {
	docs, err := o.client.Collection(orphansCollection).
		OrderBy("createdAt", firestore.Asc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, fmt.Errorf("error listing orphans: %w", err)
	}

	orphans := make([]Orphan, 0, len(docs))
	for _, doc := range docs {
		var orphan Orphan
		if err := doc.DataTo(&orphan); err != nil {
			return nil, fmt.Errorf("error decoding orphan %s: %w", doc.Ref.ID, err)
		}
		orphan.ID = doc.Ref.ID
		orphans = append(orphans, orphan)
	}
	return orphans, nil
}

func (o *Orphans) DeleteOrphan(ctx context.Context, id string) error {
	if _, err := o.client.Collection(orphansCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("error deleting orphan %s: %w", id, err)
	}
	return nil
}
