package db

import (
	"context"
	"fmt"

	"city-samadhan/types"

	"cloud.google.com/go/firestore"
)

const votesCollection = "votes"

// Upvote records userID's vote on a report, at most once per user. It
// returns the resulting vote count and whether this call added a vote.
func (r *Reports) Upvote(ctx context.Context, reportID, userID string) (int, bool, error) {
	const op = "db.Upvote"

	reportRef := r.client.Collection(r.collection).Doc(reportID)
	voteRef := reportRef.Collection(votesCollection).Doc(userID)

	var count int
	var added bool
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		added = false

		reportDoc, err := tx.Get(reportRef)
		if err != nil {
			if isNotFound(err) {
				return types.E(types.KindNotFound, op, err)
			}
			return fmt.Errorf("error getting report %s: %w", reportID, err)
		}

		var report types.Report
		if err := reportDoc.DataTo(&report); err != nil {
			return fmt.Errorf("error decoding report %s: %w", reportID, err)
		}
		count = report.Upvotes

		_, err = tx.Get(voteRef)
		if err == nil {
			return nil
		}
		if !isNotFound(err) {
			return fmt.Errorf("error getting vote for %s: %w", reportID, err)
		}

		if err := tx.Create(voteRef, map[string]interface{}{
			"userId":    userID,
			"createdAt": firestore.ServerTimestamp,
		}); err != nil {
			return fmt.Errorf("failed to create vote: %w", err)
		}
		if err := tx.Update(reportRef, []firestore.Update{
			{Path: "upvotes", Value: firestore.Increment(1)},
		}); err != nil {
			return fmt.Errorf("failed to increment upvotes: %w", err)
		}

		count++
		added = true
		return nil
	})
	if err != nil {
		return 0, false, types.Classify(types.KindPersistence, op, err)
	}
	return count, added, nil
}
