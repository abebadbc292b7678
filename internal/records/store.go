// Package records is the SQLite backed record store: capture records and
// the parents that own them, with live per-parent record lists.
package records

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/biosim/geocap/internal/capture"
	"github.com/biosim/geocap/internal/database"
	sqldb "github.com/biosim/geocap/internal/database/sqlc"
	"github.com/biosim/geocap/internal/parent"
)

// Store implements capture.RecordStore over the database repositories.
type Store struct {
	db       *database.Context
	parents  *database.ParentRepository
	captures *database.CaptureRepository
	changes  *changeBroadcaster
	logger   *slog.Logger
}

var _ capture.RecordStore = (*Store)(nil)

// NewStore creates a store on dbCtx. Pass nil logger for default.
func NewStore(dbCtx *database.Context, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "record_store")
	return &Store{
		db:       dbCtx,
		parents:  database.NewParentRepository(dbCtx),
		captures: database.NewCaptureRepository(dbCtx),
		changes:  newChangeBroadcaster(logger),
		logger:   logger,
	}
}

// Close ends every live list subscription.
func (s *Store) Close() {
	s.changes.Close()
}

// Insert persists rec and notifies live lists of its parent once the
// row is committed. The row is read back and decoded inside the same
// transaction, so a record that cannot be returned is never kept.
func (s *Store) Insert(ctx context.Context, rec capture.NewRecord) (capture.Record, error) {
	if err := rec.Validate(); err != nil {
		return capture.Record{}, err
	}

	var created capture.Record
	err := s.withTx(ctx, func(ctx context.Context, tx *database.Context) error {
		captures := database.NewCaptureRepository(tx)

		id, err := captures.Create(ctx, rowFromRecord(rec))
		if err != nil {
			return fmt.Errorf("inserting capture record: %w", err)
		}

		row, err := captures.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("reading inserted capture record: %w", err)
		}
		if row == nil {
			return fmt.Errorf("capture record %d vanished after insert", id)
		}

		created, err = recordFromRow(*row)
		return err
	})
	if err != nil {
		return capture.Record{}, err
	}

	s.changes.Publish(rec.ParentID)
	return created, nil
}

// GetByID returns the record or nil when it does not exist.
func (s *Store) GetByID(ctx context.Context, id int64) (*capture.Record, error) {
	row, err := s.captures.FindByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	rec, err := recordFromRow(*row)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// List returns the parent's records, newest first.
func (s *Store) List(ctx context.Context, parentID int64) ([]capture.Record, error) {
	rows, err := s.captures.ListByParent(ctx, parentID)
	if err != nil {
		return nil, err
	}

	result := make([]capture.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := recordFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, nil
}

func (s *Store) DeleteByID(ctx context.Context, id int64) (bool, error) {
	row, err := s.captures.FindByID(ctx, id)
	if err != nil || row == nil {
		return false, err
	}

	deleted, err := s.captures.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.changes.Publish(row.ParentID)
	}
	return deleted, nil
}

func (s *Store) DeleteByParent(ctx context.Context, parentID int64) (int64, error) {
	count, err := s.captures.DeleteByParent(ctx, parentID)
	if err != nil {
		return 0, err
	}
	if count > 0 {
		s.changes.Publish(parentID)
	}
	return count, nil
}

// MediaRefs returns the image paths referenced by the parent's records.
func (s *Store) MediaRefs(ctx context.Context, parentID int64) ([]string, error) {
	return s.captures.MediaRefsByParent(ctx, parentID)
}

// CreateParent validates and persists p, returning it with its ID.
func (s *Store) CreateParent(ctx context.Context, p parent.Parent) (parent.Parent, error) {
	p.Label = strings.TrimSpace(p.Label)
	if err := parent.Validate(p); err != nil {
		return parent.Parent{}, err
	}

	var crop *string
	if p.Crop != "" {
		crop = &p.Crop
	}

	var created parent.Parent
	err := s.withTx(ctx, func(ctx context.Context, tx *database.Context) error {
		parents := database.NewParentRepository(tx)

		id, err := parents.Create(ctx, string(p.Kind), string(p.Category), p.Label, crop)
		if err != nil {
			return fmt.Errorf("inserting parent: %w", err)
		}

		row, err := parents.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if row == nil {
			return fmt.Errorf("parent %d vanished after insert", id)
		}

		created, err = parentFromRow(*row)
		return err
	})
	if err != nil {
		return parent.Parent{}, err
	}
	return created, nil
}

// GetParent returns the parent or nil when it does not exist.
func (s *Store) GetParent(ctx context.Context, id int64) (*parent.Parent, error) {
	row, err := s.parents.FindByID(ctx, id)
	if err != nil || row == nil {
		return nil, err
	}
	p, err := parentFromRow(*row)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListParents lists parents of kind, or all of them when kind is empty.
func (s *Store) ListParents(ctx context.Context, kind parent.Kind) ([]parent.Parent, error) {
	rows, err := s.parents.FindAll(ctx, string(kind))
	if err != nil {
		return nil, err
	}

	result := make([]parent.Parent, 0, len(rows))
	for _, row := range rows {
		p, err := parentFromRow(row)
		if err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, nil
}

// CaptureCount returns how many records the parent owns.
func (s *Store) CaptureCount(ctx context.Context, parentID int64) (int64, error) {
	counts, err := s.parents.Counts(ctx, parentID)
	if err != nil {
		return 0, err
	}
	return counts.CaptureCount, nil
}

// DeleteParent removes the parent and, through the cascade, its records.
// Live lists of the parent are notified.
func (s *Store) DeleteParent(ctx context.Context, id int64) (bool, error) {
	deleted, err := s.parents.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.changes.Publish(id)
	}
	return deleted, nil
}

// ListByParent opens a live list. It emits the current records and then
// reloads on every change to the parent. Read failures are emitted as
// *capture.StoreReadError and the list keeps running.
func (s *Store) ListByParent(ctx context.Context, parentID int64) capture.Subscription {
	ctx, cancel := context.WithCancel(ctx)
	changes, subID := s.changes.Subscribe(parentID)

	sub := &subscription{updates: make(chan capture.ListUpdate)}
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(sub.updates)
		defer s.changes.Unsubscribe(parentID, subID)
		s.pump(ctx, parentID, changes, sub.updates)
	}()

	sub.stop = sync.OnceFunc(func() {
		cancel()
		wg.Wait()
	})
	return sub
}

func (s *Store) pump(ctx context.Context, parentID int64, changes <-chan struct{}, out chan<- capture.ListUpdate) {
	for {
		recs, err := s.List(ctx, parentID)
		if ctx.Err() != nil {
			return
		}

		update := capture.ListUpdate{Records: recs}
		if err != nil {
			s.logger.Warn("loading record list failed", "parent_id", parentID, "error", err)
			update = capture.ListUpdate{Err: &capture.StoreReadError{ParentID: parentID, Err: err}}
		}

		select {
		case out <- update:
		case <-ctx.Done():
			return
		}

		select {
		case _, ok := <-changes:
			if !ok {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// withTx runs fn with repositories bound to one transaction. fn's error
// rolls the transaction back.
func (s *Store) withTx(ctx context.Context, fn func(context.Context, *database.Context) error) error {
	if s.db == nil || s.db.DB == nil {
		return fmt.Errorf("record store: missing database context")
	}

	tx, err := s.db.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	txCtx := &database.Context{DB: s.db.DB, Queries: sqldb.New(tx)}
	if err := fn(ctx, txCtx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		_ = tx.Rollback()
		return err
	}

	return nil
}

type subscription struct {
	updates chan capture.ListUpdate
	stop    func()
}

func (s *subscription) Updates() <-chan capture.ListUpdate { return s.updates }

// Close stops the list and waits for it to finish.
func (s *subscription) Close() { s.stop() }
