// Package hydrate turns JSON-decoded record values into typed Go values.
package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Context identifies the record being decoded.
type Context struct {
	Location string
	Key      string
}

func (c Context) String() string {
	return fmt.Sprintf("%s#%s", c.Location, c.Key)
}

// PreHook lets callers mutate or normalise the record before decoding.
type PreHook func(Context, map[string]any) (map[string]any, error)

// PostHook lets callers adjust or validate the decoded value.
type PostHook[T any] func(Context, *T) error

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts records into strongly typed structs.
type Decoder[T any] struct {
	preHooks     []PreHook
	postHooks    []PostHook[T]
	configureDec []func(*json.Decoder)
}

// WithPreHook applies hook prior to decoding.
func WithPreHook[T any](hook PreHook) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.preHooks = append(d.preHooks, hook)
	}
}

// WithPostHook applies hook after decoding completes.
func WithPostHook[T any](hook PostHook[T]) DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.postHooks = append(d.postHooks, hook)
	}
}

// WithUseNumber decodes numbers as json.Number.
func WithUseNumber[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.UseNumber()
		})
	}
}

// WithDisallowUnknownFields rejects record fields with no struct field.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.configureDec = append(d.configureDec, func(dec *json.Decoder) {
			dec.DisallowUnknownFields()
		})
	}
}

func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts record into T applying configured hooks. The input map
// is never mutated.
func (d *Decoder[T]) Decode(ctx Context, record map[string]any) (T, error) {
	var zero T

	if record == nil {
		return zero, fmt.Errorf("hydrate: record %s is nil", ctx)
	}

	current, err := cloneRecord(record)
	if err != nil {
		return zero, fmt.Errorf("hydrate: clone record %s: %w", ctx, err)
	}

	for _, hook := range d.preHooks {
		if hook == nil {
			continue
		}
		next, err := hook(ctx, current)
		if err != nil {
			return zero, fmt.Errorf("hydrate: pre-hook for record %s failed: %w", ctx, err)
		}
		if next != nil {
			current = next
		}
	}

	result, err := decodeInto[T](current, d.configureDec)
	if err != nil {
		return zero, fmt.Errorf("hydrate: decode record %s: %w", ctx, err)
	}

	for _, hook := range d.postHooks {
		if hook == nil {
			continue
		}
		if err := hook(ctx, &result); err != nil {
			return zero, fmt.Errorf("hydrate: post-hook for record %s failed: %w", ctx, err)
		}
	}

	return result, nil
}

// Convert turns a single JSON-decoded value into T. Values that already
// have type T are returned as is.
func Convert[T any](value any) (T, error) {
	if typed, ok := value.(T); ok {
		return typed, nil
	}
	var zero T
	if value == nil {
		return zero, nil
	}
	result, err := decodeInto[T](value, nil)
	if err != nil {
		return zero, fmt.Errorf("hydrate: convert %T to %T: %w", value, zero, err)
	}
	return result, nil
}

func decodeInto[T any](value any, configure []func(*json.Decoder)) (T, error) {
	var result T
	buffer, err := json.Marshal(value)
	if err != nil {
		return result, err
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	for _, fn := range configure {
		if fn != nil {
			fn(decoder)
		}
	}
	if err := decoder.Decode(&result); err != nil {
		return result, err
	}
	return result, nil
}

func cloneRecord(record map[string]any) (map[string]any, error) {
	buffer, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(buffer, &out); err != nil {
		return nil, err
	}
	return out, nil
}
