package db

import (
	"context"
	"fmt"

	"city-samadhan/types"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// Reports stores report documents in a single Firestore collection.
type Reports struct {
	client     *firestore.Client
	collection string
}

func NewReports(client *firestore.Client, collection string) *Reports {
	return &Reports{client: client, collection: collection}
}

// NewReportID reserves a document id without writing anything.
func (r *Reports) NewReportID() string {
	return r.client.Collection(r.collection).NewDoc().ID
}

// CreateReport writes a new report document under report.ID, or under a
// generated id when it is empty, and returns the id. It fails if the
// document already exists. CreatedAt is assigned by the server.
func (r *Reports) CreateReport(ctx context.Context, report types.Report) (string, error) {
	const op = "db.CreateReport"

	coll := r.client.Collection(r.collection)
	ref := coll.NewDoc()
	if report.ID != "" {
		ref = coll.Doc(report.ID)
	}
	if _, err := ref.Create(ctx, report); err != nil {
		return "", types.Classify(types.KindPersistence, op, fmt.Errorf("failed to create report %s: %w", ref.ID, err))
	}
	return ref.ID, nil
}

// GetReport reads one report by document id.
func (r *Reports) GetReport(ctx context.Context, id string) (types.Report, error) {
	const op = "db.GetReport"

	doc, err := r.client.Collection(r.collection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return types.Report{}, types.E(types.KindNotFound, op, err)
		}
		return types.Report{}, types.Classify(types.KindPersistence, op, err)
	}
	return decodeReport(doc)
}

// ListUserReports is the one-shot form of the live user query.
func (r *Reports) ListUserReports(ctx context.Context, userID string) ([]types.Report, error) {
	const op = "db.ListUserReports"

	docs, err := r.userQuery(userID).Documents(ctx).GetAll()
	if err != nil {
		return nil, types.Classify(types.KindPersistence, op, err)
	}
	return decodeReports(docs)
}

// ListRecentReports returns the newest reports across all users, optionally
// restricted to one category.
func (r *Reports) ListRecentReports(ctx context.Context, category types.Category, limit int) ([]types.Report, error) {
	const op = "db.ListRecentReports"

	q := r.client.Collection(r.collection).Query
	if category != "" {
		q = q.Where("category", "==", string(category))
	}
	q = q.OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var reports []types.Report
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, types.Classify(types.KindPersistence, op, fmt.Errorf("error iterating reports: %w", err))
		}
		report, err := decodeReport(doc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (r *Reports) userQuery(userID string) firestore.Query {
	return r.client.Collection(r.collection).
		Where("userId", "==", userID).
		OrderBy("createdAt", firestore.Desc)
}

func decodeReport(doc *firestore.DocumentSnapshot) (types.Report, error) {
	var report types.Report
	if err := doc.DataTo(&report); err != nil {
		return types.Report{}, types.E(types.KindPersistence, "db.decodeReport", fmt.Errorf("report %s: %w", doc.Ref.ID, err))
	}
	report.ID = doc.Ref.ID
	return report, nil
}

func decodeReports(docs []*firestore.DocumentSnapshot) ([]types.Report, error) {
	reports := make([]types.Report, 0, len(docs))
	for _, doc := range docs {
		report, err := decodeReport(doc)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}
