package fieldstore

// Record maps field names to JSON values for one entity.
type Record map[string]any

// Document maps record keys to records. It is the full content of one
// store location.
type Document map[string]Record

// Record returns the record stored under key. Missing keys and JSON null
// records yield an empty Record and false.
func (d Document) Record(key string) (Record, bool) {
	record, ok := d[key]
	if !ok || record == nil {
		return Record{}, false
	}
	return record, true
}

// Clone returns a copy of the document. Records are copied; field values
// are shared.
func (d Document) Clone() Document {
	if d == nil {
		return Document{}
	}
	out := make(Document, len(d))
	for key, record := range d {
		out[key] = record.Clone()
	}
	return out
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for field, value := range r {
		out[field] = value
	}
	return out
}

// Get returns the value stored for field and whether it was present.
func (r Record) Get(field string) (any, bool) {
	value, ok := r[field]
	return value, ok
}
