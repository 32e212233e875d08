package fieldstore

import (
	"context"
	"fmt"

	"github.com/goliatone/go-fieldstore/internal/hydrate"
)

// Field is a managed property: a typed handle on one named field of the
// records an entity type is bound to. Entity methods call Get and Set
// explicitly in place of plain struct fields.
type Field[E any, T any] struct {
	accessor *Accessor
	binding  *Binding[E]
	name     string
}

// NewField declares field name on binding. A nil accessor uses the package
// default Accessor.
func NewField[E any, T any](accessor *Accessor, binding *Binding[E], name string) *Field[E, T] {
	binding.declare(name)
	return &Field[E, T]{accessor: accessor, binding: binding, name: name}
}

// Name returns the stored field name.
func (f *Field[E, T]) Name() string {
	return f.name
}

// Get reads the field for entity. ok is false when nothing was stored or
// the entity is not bound to a record. Inside a batch on the same
// location use Peek.
func (f *Field[E, T]) Get(ctx context.Context, entity E) (T, bool, error) {
	var zero T
	ref := f.binding.Resolve(entity)
	raw, ok, err := f.accessorOrDefault().Read(ctx, ref.Location, ref.Key, f.name)
	if err != nil || !ok {
		return zero, false, err
	}
	value, err := hydrate.Convert[T](raw)
	if err != nil {
		return zero, true, fmt.Errorf("fieldstore: field %q of %q: %w", f.name, ref.Key, err)
	}
	return value, true, nil
}

// Set writes the field for entity. Unbound entities are ignored unless
// the Accessor uses strict binding. Inside a batch on the same location
// use Stage.
func (f *Field[E, T]) Set(ctx context.Context, entity E, value T) error {
	ref := f.binding.Resolve(entity)
	return f.accessorOrDefault().Write(ctx, ref.Location, ref.Key, f.name, value)
}

// Stage sets the field for entity inside a batch opened on the entity's
// location.
func (f *Field[E, T]) Stage(b *Batch, entity E, value T) error {
	ref, ok, err := f.batchRef(b, entity)
	if !ok {
		return err
	}
	return b.Set(ref.Key, f.name, value)
}

// Peek reads the field for entity as currently staged in b, including
// writes staged earlier in the same batch. Use it in place of Get inside
// a batch function.
func (f *Field[E, T]) Peek(b *Batch, entity E) (T, bool, error) {
	var zero T
	ref, ok, err := f.batchRef(b, entity)
	if !ok {
		return zero, false, err
	}
	raw, ok := b.Get(ref.Key, f.name)
	if !ok {
		return zero, false, nil
	}
	value, err := hydrate.Convert[T](raw)
	if err != nil {
		return zero, true, fmt.Errorf("fieldstore: field %q of %q: %w", f.name, ref.Key, err)
	}
	return value, true, nil
}

// batchRef resolves entity against the batch location. ok is false when
// the entity is unbound or lives in another document.
func (f *Field[E, T]) batchRef(b *Batch, entity E) (Ref, bool, error) {
	ref := f.binding.Resolve(entity)
	if ref.Location == "" || ref.Key == "" {
		if b.strict {
			return ref, false, ErrUnbound
		}
		return ref, false, nil
	}
	if normalizeLocation(ref.Location) != normalizeLocation(b.location) {
		return ref, false, fmt.Errorf("%w: %q != %q", ErrLocationMismatch, ref.Location, b.location)
	}
	return ref, true, nil
}

func (f *Field[E, T]) accessorOrDefault() *Accessor {
	if f.accessor != nil {
		return f.accessor
	}
	return defaultAccessor
}
