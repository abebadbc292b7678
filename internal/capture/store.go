package capture

import "context"

// Inserter persists new records.
type Inserter interface {
	Insert(ctx context.Context, rec NewRecord) (Record, error)
}

// Lister opens live record lists.
type Lister interface {
	// ListByParent delivers the parent's current records (newest first)
	// and every later change. Read errors are delivered as updates.
	ListByParent(ctx context.Context, parentID int64) Subscription
}

// RecordStore is the durable store behind sessions and registries.
type RecordStore interface {
	Inserter
	Lister
	GetByID(ctx context.Context, id int64) (*Record, error)
	DeleteByID(ctx context.Context, id int64) (bool, error)
	DeleteByParent(ctx context.Context, parentID int64) (int64, error)
}

// Subscription is one live record list. Close releases it and returns
// only once the store has stopped producing; Updates is closed by then.
type Subscription interface {
	Updates() <-chan ListUpdate
	Close()
}

// ListUpdate is one emission of a record list: the full list, or Err.
type ListUpdate struct {
	Records []Record
	Err     error
}
