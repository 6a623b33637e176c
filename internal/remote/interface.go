package remote

import "context"

// Store is the document database the league syncs against. Implementations
// wrap every failure in an *Error so callers can branch on its Kind.
type Store interface {
	// AddDocument creates a document and returns the id the store assigned.
	AddDocument(ctx context.Context, collection string, data Document) (string, error)
	// UpdateDocument merges the top-level fields of data into an existing
	// document.
	UpdateDocument(ctx context.Context, collection, id string, data Document) error
	GetDocument(ctx context.Context, collection, id string) (Document, error)
	QueryDocuments(ctx context.Context, collection string, filters []Filter, order *Order) ([]Document, error)
	// Subscribe delivers the full matching result set once immediately and
	// again after every change. Setup failures are returned; failures after
	// setup go to onError, after which no more data is delivered.
	Subscribe(ctx context.Context, collection string, filters []Filter, order *Order, onData func([]Document), onError func(error)) (Unsubscribe, error)
	// BatchWrite applies up to MaxBatchSize writes.
	BatchWrite(ctx context.Context, writes []Write) error
	Close(ctx context.Context) error
}
