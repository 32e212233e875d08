package fieldstore

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/goliatone/go-fieldstore/pkg/activity"
)

// Option configures an Accessor.
type Option func(*accessorConfig)

type accessorConfig struct {
	store   DocumentStore
	logger  AccessLogger
	emitter *activity.Emitter
	strict  bool
}

func applyOptions(opts []Option) accessorConfig {
	cfg := accessorConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithStore sets the DocumentStore backing the Accessor. Defaults to a
// FileStore.
func WithStore(store DocumentStore) Option {
	return func(cfg *accessorConfig) {
		cfg.store = store
	}
}

// WithStrictBinding makes accesses without a location or record key fail
// with ErrUnbound instead of being ignored.
func WithStrictBinding(strict bool) Option {
	return func(cfg *accessorConfig) {
		cfg.strict = strict
	}
}

// WithActivity emits record activity to hooks after each successful save.
func WithActivity(hooks activity.Hooks, cfg activity.Config) Option {
	emitter := activity.NewEmitter(hooks, cfg)
	return func(c *accessorConfig) {
		c.emitter = emitter
	}
}

// Accessor reads and writes single fields of records stored in JSON
// documents. Every operation loads the document fresh; nothing is cached
// between calls. Accesses to the same location are serialized within the
// process; callers sharing files across processes must lock externally.
type Accessor struct {
	cfg   accessorConfig
	locks locationLocks
}

func New(opts ...Option) *Accessor {
	return &Accessor{cfg: applyOptions(opts)}
}

var defaultAccessor = New()

// Read reads field of record key at location using a default Accessor.
func Read(ctx context.Context, location, key, field string) (any, bool, error) {
	return defaultAccessor.Read(ctx, location, key, field)
}

// Write writes field of record key at location using a default Accessor.
func Write(ctx context.Context, location, key, field string, value any) error {
	return defaultAccessor.Write(ctx, location, key, field, value)
}

// Read returns the value of field in record key. ok is false when the
// field, the record or the document does not exist; a stored null reads
// as (nil, true). Values come back in their JSON-decoded form.
func (a *Accessor) Read(ctx context.Context, location, key, field string) (value any, ok bool, err error) {
	event := AccessEvent{Op: OpRead, Location: location, Key: key, Field: field}
	defer a.track(&event, time.Now(), &err)

	if location == "" || key == "" {
		event.Skipped = true
		return nil, false, a.unbound()
	}
	if field == "" {
		return nil, false, ErrInvalidField
	}

	unlock := a.locks.rlock(location)
	defer unlock()

	doc, err := a.load(ctx, location)
	if err != nil {
		return nil, false, err
	}
	record, _ := doc.Record(key)
	value, ok = record.Get(field)
	return value, ok, nil
}

// Write sets field of record key to value, creating the record and the
// document as needed. Every other field and record is written back
// unchanged.
func (a *Accessor) Write(ctx context.Context, location, key, field string, value any) (err error) {
	event := AccessEvent{Op: OpWrite, Location: location, Key: key, Field: field}
	defer a.track(&event, time.Now(), &err)

	if location == "" || key == "" {
		event.Skipped = true
		return a.unbound()
	}
	if field == "" {
		return ErrInvalidField
	}
	if err := checkValue(value); err != nil {
		return err
	}

	change, err := a.writeLocked(ctx, location, key, field, value)
	if err != nil {
		return err
	}
	a.emit(ctx, location, change)
	return nil
}

func (a *Accessor) writeLocked(ctx context.Context, location, key, field string, value any) (fieldChange, error) {
	unlock := a.locks.lock(location)
	defer unlock()

	doc, err := a.load(ctx, location)
	if err != nil {
		return fieldChange{}, err
	}
	change := applyChange(doc, key, field, value)
	if err := a.save(ctx, location, doc); err != nil {
		return fieldChange{}, err
	}
	return change, nil
}

// Record returns a copy of record key. ok is false when the record does
// not exist.
func (a *Accessor) Record(ctx context.Context, location, key string) (record Record, ok bool, err error) {
	event := AccessEvent{Op: OpRecord, Location: location, Key: key}
	defer a.track(&event, time.Now(), &err)

	if location == "" || key == "" {
		event.Skipped = true
		return Record{}, false, a.unbound()
	}

	unlock := a.locks.rlock(location)
	defer unlock()

	doc, err := a.load(ctx, location)
	if err != nil {
		return nil, false, err
	}
	record, ok = doc.Record(key)
	return record.Clone(), ok, nil
}

func (a *Accessor) load(ctx context.Context, location string) (Document, error) {
	doc, err := a.store().Load(ctx, location)
	if err != nil {
		return nil, wrapStorageError("load", location, err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

func (a *Accessor) save(ctx context.Context, location string, doc Document) error {
	return wrapStorageError("save", location, a.store().Save(ctx, location, doc))
}

func (a *Accessor) store() DocumentStore {
	if a.cfg.store != nil {
		return a.cfg.store
	}
	return defaultFileStore
}

var defaultFileStore = NewFileStore()

func (a *Accessor) logger() AccessLogger {
	if a.cfg.logger != nil {
		return a.cfg.logger
	}
	return noopAccessLogger{}
}

func (a *Accessor) unbound() error {
	if a.cfg.strict {
		return ErrUnbound
	}
	return nil
}

func (a *Accessor) track(event *AccessEvent, start time.Time, err *error) {
	event.Duration = time.Since(start)
	event.Err = *err
	a.logger().LogAccess(*event)
}

func (a *Accessor) emit(ctx context.Context, location string, changes ...fieldChange) {
	if !a.cfg.emitter.Enabled() {
		return
	}
	actor, _ := activity.ActorFromContext(ctx)
	for _, change := range changes {
		input := activity.FieldChange{
			Actor:     actor,
			Channel:   a.cfg.emitter.Channel(),
			Location:  location,
			RecordKey: change.key,
			Field:     change.field,
			NewValue:  change.value,
			Created:   change.created,
		}
		if change.hadOld {
			input.OldValue = change.old
		}
		if err := a.cfg.emitter.Emit(ctx, activity.BuildFieldChangeEvent(input)); err != nil {
			a.logger().LogAccess(AccessEvent{
				Op:       OpActivity,
				Location: location,
				Key:      change.key,
				Field:    change.field,
				Err:      err,
			})
		}
	}
}

type fieldChange struct {
	key     string
	field   string
	value   any
	old     any
	hadOld  bool
	created bool
}

func applyChange(doc Document, key, field string, value any) fieldChange {
	record, existed := doc.Record(key)
	old, hadOld := record[field]
	record[field] = value
	doc[key] = record
	return fieldChange{
		key:     key,
		field:   field,
		value:   value,
		old:     old,
		hadOld:  hadOld,
		created: !existed,
	}
}

func checkValue(value any) error {
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return nil
}

// locationLocks hands out one RWMutex per normalized location.
type locationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.RWMutex
}

func (l *locationLocks) get(location string) *sync.RWMutex {
	key := normalizeLocation(location)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.locks == nil {
		l.locks = map[string]*sync.RWMutex{}
	}
	lock, ok := l.locks[key]
	if !ok {
		lock = &sync.RWMutex{}
		l.locks[key] = lock
	}
	return lock
}

func (l *locationLocks) lock(location string) func() {
	lock := l.get(location)
	lock.Lock()
	return lock.Unlock
}

func (l *locationLocks) rlock(location string) func() {
	lock := l.get(location)
	lock.RLock()
	return lock.RUnlock
}

func normalizeLocation(location string) string {
	abs, err := filepath.Abs(location)
	if err != nil {
		return filepath.Clean(location)
	}
	return abs
}
