package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirstMatch returns the first result of q that keep accepts, or nil when
// none does. A nil keep accepts everything.
func FirstMatch(ctx context.Context, q firestore.Query, keep func(*firestore.DocumentSnapshot) bool) (*firestore.DocumentSnapshot, error) {
	if keep == nil {
		q = q.Limit(1)
	}
	it := q.Documents(ctx)
	defer it.Stop()
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to run firestore query: %w", err)
		}
		if keep == nil || keep(doc) {
			return doc, nil
		}
	}
}
