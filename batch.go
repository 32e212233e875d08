package fieldstore

import (
	"context"
	"time"
)

// Batch stages field writes against one loaded document. It is only valid
// inside the function passed to Accessor.Batch.
type Batch struct {
	location string
	doc      Document
	changes  []fieldChange
	strict   bool
}

// Batch loads the document at location once, runs fn, and saves the
// document once if fn staged any change. When fn returns an error nothing
// is saved.
//
// The location stays write-locked while fn runs and the lock is not
// reentrant: calling Read, Write, Record, Batch, Field.Get or Field.Set on
// the same location from inside fn deadlocks. Read staged values with
// Batch.Get or Field.Peek instead.
func (a *Accessor) Batch(ctx context.Context, location string, fn func(*Batch) error) (err error) {
	event := AccessEvent{Op: OpBatch, Location: location}
	defer a.track(&event, time.Now(), &err)

	if location == "" {
		event.Skipped = true
		return a.unbound()
	}
	if fn == nil {
		return nil
	}

	changes, err := a.runBatch(ctx, location, fn)
	if err != nil {
		return err
	}
	a.emit(ctx, location, changes...)
	return nil
}

// runBatch holds the location lock until it returns, panics in fn or in
// the store included.
func (a *Accessor) runBatch(ctx context.Context, location string, fn func(*Batch) error) ([]fieldChange, error) {
	unlock := a.locks.lock(location)
	defer unlock()

	doc, err := a.load(ctx, location)
	if err != nil {
		return nil, err
	}
	batch := &Batch{location: location, doc: doc, strict: a.cfg.strict}
	if err := fn(batch); err != nil {
		return nil, err
	}
	if len(batch.changes) == 0 {
		return nil, nil
	}
	if err := a.save(ctx, location, batch.doc); err != nil {
		return nil, err
	}
	return batch.changes, nil
}

// Location returns the location the batch was opened on.
func (b *Batch) Location() string {
	return b.location
}

// Len returns the number of staged writes.
func (b *Batch) Len() int {
	return len(b.changes)
}

// Get reads a field as currently staged.
func (b *Batch) Get(key, field string) (any, bool) {
	record, _ := b.doc.Record(key)
	return record.Get(field)
}

// Record returns a copy of record key as currently staged.
func (b *Batch) Record(key string) (Record, bool) {
	record, ok := b.doc.Record(key)
	return record.Clone(), ok
}

// Set stages a field write. An empty key is ignored unless the Accessor
// uses strict binding.
func (b *Batch) Set(key, field string, value any) error {
	if key == "" {
		if b.strict {
			return ErrUnbound
		}
		return nil
	}
	if field == "" {
		return ErrInvalidField
	}
	if err := checkValue(value); err != nil {
		return err
	}
	b.changes = append(b.changes, applyChange(b.doc, key, field, value))
	return nil
}
