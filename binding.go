package fieldstore

import (
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// TagName is the struct tag key read by BindTags.
const TagName = "fieldstore"

const (
	tagLocation = "location"
	tagIdentity = "identity"
)

// Ref addresses one record inside one document.
type Ref struct {
	Location string
	Key      string
}

// Bound reports whether both the location and the key are set.
func (r Ref) Bound() bool {
	return r.Location != "" && r.Key != ""
}

// Binding declares how an entity type maps onto stored records: where its
// document lives, which record it is, and which fields it exposes. The
// location and identity are read off the entity on every access.
type Binding[E any] struct {
	location func(E) string
	identity func(E) string

	mu     sync.RWMutex
	fields []string
}

// NewBinding builds a Binding from explicit resolvers. A nil resolver
// always yields an unset value.
func NewBinding[E any](location, identity func(E) string) *Binding[E] {
	return &Binding[E]{location: location, identity: identity}
}

// BindTags builds a Binding for a struct type (or pointer to struct) from
// its `fieldstore:"location"` and `fieldstore:"identity"` tags. The type is
// inspected once; a missing tag makes that half of the Ref always unset.
func BindTags[E any]() (*Binding[E], error) {
	typ := reflect.TypeFor[E]()
	structType := typ
	if structType.Kind() == reflect.Pointer {
		structType = structType.Elem()
	}
	if structType.Kind() != reflect.Struct {
		return nil, fmt.Errorf("fieldstore: bind %s: not a struct type", typ)
	}

	var locationIndex, identityIndex []int
	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)
		tag, ok := field.Tag.Lookup(TagName)
		if !ok {
			continue
		}
		switch tag {
		case tagLocation:
			if locationIndex != nil {
				return nil, fmt.Errorf("fieldstore: bind %s: more than one %q field", typ, tagLocation)
			}
			if err := checkTaggedField(field, isLocationType); err != nil {
				return nil, fmt.Errorf("fieldstore: bind %s: %w", typ, err)
			}
			locationIndex = field.Index
		case tagIdentity:
			if identityIndex != nil {
				return nil, fmt.Errorf("fieldstore: bind %s: more than one %q field", typ, tagIdentity)
			}
			if err := checkTaggedField(field, isIdentityType); err != nil {
				return nil, fmt.Errorf("fieldstore: bind %s: %w", typ, err)
			}
			identityIndex = field.Index
		default:
			return nil, fmt.Errorf("fieldstore: bind %s: unknown tag %q on field %s", typ, tag, field.Name)
		}
	}

	return &Binding[E]{
		location: tagResolver[E](locationIndex),
		identity: tagResolver[E](identityIndex),
	}, nil
}

// MustBindTags is like BindTags but panics on error. Intended for package
// level declarations.
func MustBindTags[E any]() *Binding[E] {
	binding, err := BindTags[E]()
	if err != nil {
		panic(err)
	}
	return binding
}

// Resolve reads the entity's current location and record key.
func (b *Binding[E]) Resolve(entity E) Ref {
	if b == nil {
		return Ref{}
	}
	var ref Ref
	if b.location != nil {
		ref.Location = b.location(entity)
	}
	if b.identity != nil {
		ref.Key = b.identity(entity)
	}
	return ref
}

// Fields returns the field names declared through NewField, in
// declaration order.
func (b *Binding[E]) Fields() []string {
	if b == nil {
		return nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]string(nil), b.fields...)
}

func (b *Binding[E]) declare(name string) {
	if b == nil || name == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, existing := range b.fields {
		if existing == name {
			return
		}
	}
	b.fields = append(b.fields, name)
}

// NewRecordKey returns a fresh random record key.
func NewRecordKey() string {
	return uuid.NewString()
}

var (
	stringerType = reflect.TypeFor[fmt.Stringer]()
	uuidType     = reflect.TypeFor[uuid.UUID]()
)

func checkTaggedField(field reflect.StructField, allowed func(reflect.Type) bool) error {
	if !field.IsExported() {
		return fmt.Errorf("field %s must be exported", field.Name)
	}
	typ := field.Type
	if typ.Kind() == reflect.Pointer {
		typ = typ.Elem()
	}
	if !allowed(typ) {
		return fmt.Errorf("field %s has unsupported type %s", field.Name, field.Type)
	}
	return nil
}

func isLocationType(typ reflect.Type) bool {
	return typ.Kind() == reflect.String
}

func isIdentityType(typ reflect.Type) bool {
	if typ.Implements(stringerType) {
		return true
	}
	switch typ.Kind() {
	case reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

func tagResolver[E any](index []int) func(E) string {
	if index == nil {
		return nil
	}
	return func(entity E) string {
		value := reflect.ValueOf(&entity).Elem()
		if value.Kind() == reflect.Pointer {
			if value.IsNil() {
				return ""
			}
			value = value.Elem()
		}
		return formatKey(value.FieldByIndex(index))
	}
}

// formatKey renders a tagged field as a string. Nil pointers, empty
// strings and uuid.Nil are unset; a numeric zero is the key "0".
func formatKey(value reflect.Value) string {
	if value.Kind() == reflect.Pointer {
		if value.IsNil() {
			return ""
		}
		value = value.Elem()
	}
	if value.Type() == uuidType {
		if value.Interface().(uuid.UUID) == uuid.Nil {
			return ""
		}
	}
	if value.Type().Implements(stringerType) {
		return value.Interface().(fmt.Stringer).String()
	}
	switch value.Kind() {
	case reflect.String:
		return value.String()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(value.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return strconv.FormatUint(value.Uint(), 10)
	}
	return ""
}
