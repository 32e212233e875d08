package fieldstore

import (
	"context"

	"github.com/goliatone/go-fieldstore/internal/hydrate"
)

// RecordContext identifies the record handed to decode hooks.
type RecordContext = hydrate.Context

// DecodeOption configures DecodeRecord.
type DecodeOption[T any] struct {
	apply hydrate.DecoderOption[T]
}

// DecodeWithPreHook rewrites the record before it is decoded.
func DecodeWithPreHook[T any](hook func(RecordContext, map[string]any) (map[string]any, error)) DecodeOption[T] {
	return DecodeOption[T]{apply: hydrate.WithPreHook[T](hook)}
}

// DecodeWithPostHook adjusts or validates the decoded value.
func DecodeWithPostHook[T any](hook func(RecordContext, *T) error) DecodeOption[T] {
	return DecodeOption[T]{apply: hydrate.WithPostHook[T](hook)}
}

// DecodeUseNumber decodes numbers into json.Number fields as written.
func DecodeUseNumber[T any]() DecodeOption[T] {
	return DecodeOption[T]{apply: hydrate.WithUseNumber[T]()}
}

// DecodeDisallowUnknownFields fails when the record holds a field T does
// not declare.
func DecodeDisallowUnknownFields[T any]() DecodeOption[T] {
	return DecodeOption[T]{apply: hydrate.WithDisallowUnknownFields[T]()}
}

// DecodeRecord loads record key at location and decodes it into T. ok is
// false when the record does not exist.
func DecodeRecord[T any](ctx context.Context, a *Accessor, location, key string, opts ...DecodeOption[T]) (T, bool, error) {
	var zero T
	if a == nil {
		a = defaultAccessor
	}
	record, ok, err := a.Record(ctx, location, key)
	if err != nil || !ok {
		return zero, false, err
	}

	decoderOpts := make([]hydrate.DecoderOption[T], 0, len(opts))
	for _, opt := range opts {
		if opt.apply != nil {
			decoderOpts = append(decoderOpts, opt.apply)
		}
	}
	value, err := hydrate.NewDecoder[T](decoderOpts...).Decode(hydrate.Context{Location: location, Key: key}, record)
	if err != nil {
		return zero, true, err
	}
	return value, true, nil
}

// DecodeEntity decodes the record entity is currently bound to.
func DecodeEntity[E any, T any](ctx context.Context, a *Accessor, binding *Binding[E], entity E, opts ...DecodeOption[T]) (T, bool, error) {
	ref := binding.Resolve(entity)
	return DecodeRecord[T](ctx, a, ref.Location, ref.Key, opts...)
}
