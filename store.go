package fieldstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	defaultIndent   = "    "
	defaultFileMode = fs.FileMode(0o644)
)

// DocumentStore loads and saves one whole document per location.
// Implementations must treat a missing location as an empty Document.
type DocumentStore interface {
	Load(ctx context.Context, location string) (Document, error)
	Save(ctx context.Context, location string, doc Document) error
}

// FileStoreOption configures a FileStore.
type FileStoreOption func(*FileStore)

// WithIndent sets the indentation used when writing documents. An empty
// indent writes compact JSON.
func WithIndent(indent string) FileStoreOption {
	return func(s *FileStore) {
		s.indent = indent
	}
}

// WithFileMode sets the permission bits of saved documents.
func WithFileMode(mode fs.FileMode) FileStoreOption {
	return func(s *FileStore) {
		s.mode = mode
	}
}

// FileStore persists each Document as a JSON object in the file named by
// its location.
type FileStore struct {
	indent string
	mode   fs.FileMode
}

func NewFileStore(opts ...FileStoreOption) *FileStore {
	s := &FileStore{
		indent: defaultIndent,
		mode:   defaultFileMode,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Load reads the document at location. A missing, empty or null file is
// an empty Document.
func (s *FileStore) Load(ctx context.Context, location string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, wrapStorageError("load", location, err)
	}

	raw, err := os.ReadFile(location)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Document{}, nil
		}
		return nil, wrapStorageError("load", location, err)
	}

	doc, err := decodeDocument(raw)
	if err != nil {
		return nil, wrapStorageError("load", location, err)
	}
	return doc, nil
}

// Save replaces the file at location with doc. The document is written to
// a sibling temporary file and renamed into place, so a failed save never
// leaves a partial document behind. The parent directory must exist.
func (s *FileStore) Save(ctx context.Context, location string, doc Document) error {
	if err := ctx.Err(); err != nil {
		return wrapStorageError("save", location, err)
	}

	payload, err := encodeDocument(doc, s.indent)
	if err != nil {
		return wrapStorageError("save", location, err)
	}
	return wrapStorageError("save", location, writeFileAtomic(location, payload, s.mode))
}

func decodeDocument(raw []byte) (Document, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return Document{}, nil
	}
	var doc Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	if doc == nil {
		return Document{}, nil
	}
	return doc, nil
}

func encodeDocument(doc Document, indent string) ([]byte, error) {
	if doc == nil {
		doc = Document{}
	}
	var (
		payload []byte
		err     error
	)
	if indent == "" {
		payload, err = json.Marshal(doc)
	} else {
		payload, err = json.MarshalIndent(doc, "", indent)
	}
	if err != nil {
		return nil, err
	}
	return append(payload, '\n'), nil
}

func writeFileAtomic(path string, data []byte, mode fs.FileMode) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	closed := false
	defer func() {
		if err == nil {
			return
		}
		if !closed {
			_ = tmp.Close()
		}
		_ = os.Remove(tmpName)
	}()

	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(mode); err != nil {
		return err
	}
	closed = true
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
