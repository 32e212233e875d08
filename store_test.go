package fieldstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestFileStoreLoadMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")

	doc, err := NewFileStore().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc == nil || len(doc) != 0 {
		t.Fatalf("expected empty document, got %#v", doc)
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected load not to create the file, stat err=%v", err)
	}
}

func TestFileStoreLoadBlankAndNullFiles(t *testing.T) {
	for name, content := range map[string]string{
		"empty":      "",
		"whitespace": " \n\t",
		"null":       "null",
		"object":     "{}",
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, content)
			doc, err := NewFileStore().Load(context.Background(), path)
			if err != nil {
				t.Fatalf("load: %v", err)
			}
			if doc == nil || len(doc) != 0 {
				t.Fatalf("expected empty document, got %#v", doc)
			}
		})
	}
}

func TestFileStoreLoadMalformed(t *testing.T) {
	for name, content := range map[string]string{
		"syntax":        `{"person-1": `,
		"array root":    `[]`,
		"scalar record": `{"person-1": 5}`,
	} {
		t.Run(name, func(t *testing.T) {
			path := writeFile(t, content)
			_, err := NewFileStore().Load(context.Background(), path)
			var storageErr *StorageError
			if !errors.As(err, &storageErr) {
				t.Fatalf("expected StorageError, got %v", err)
			}
			if storageErr.Op != "load" || storageErr.Location != path {
				t.Fatalf("unexpected metadata: %+v", storageErr)
			}
		})
	}
}

func TestFileStoreSaveRoundTripAndFormatting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	store := NewFileStore()
	doc := Document{
		"person-2": {"name": "Patricia Kaike"},
		"person-1": {"name": "James Schue", "age": 42},
	}

	if err := store.Save(context.Background(), path, doc); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	want := "{\n    \"person-1\": {\n        \"age\": 42,\n        \"name\": \"James Schue\"\n    },\n    \"person-2\": {\n        \"name\": \"Patricia Kaike\"\n    }\n}\n"
	if diff := cmp.Diff(want, string(raw)); diff != "" {
		t.Fatalf("unexpected file content (-want +got):\n%s", diff)
	}

	loaded, err := store.Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	expected := Document{
		"person-1": {"name": "James Schue", "age": float64(42)},
		"person-2": {"name": "Patricia Kaike"},
	}
	if diff := cmp.Diff(expected, loaded); diff != "" {
		t.Fatalf("unexpected document (-want +got):\n%s", diff)
	}
}

func TestFileStoreCompactIndentAndMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	store := NewFileStore(WithIndent(""), WithFileMode(0o600))

	if err := store.Save(context.Background(), path, Document{"a": {"b": true}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "{\"a\":{\"b\":true}}\n" {
		t.Fatalf("unexpected compact content %q", raw)
	}
	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("stat: %v", err)
		}
		if info.Mode().Perm() != 0o600 {
			t.Fatalf("expected mode 0600, got %v", info.Mode().Perm())
		}
	}
}

func TestFileStoreSaveNilDocumentWritesEmptyObject(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	if err := NewFileStore().Save(context.Background(), path, nil); err != nil {
		t.Fatalf("save: %v", err)
	}
	raw, _ := os.ReadFile(path)
	if strings.TrimSpace(string(raw)) != "{}" {
		t.Fatalf("expected empty object, got %q", raw)
	}
}

func TestFileStoreSaveMissingDirectoryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "people.json")

	err := NewFileStore().Save(context.Background(), path, Document{"a": {"b": 1}})
	var storageErr *StorageError
	if !errors.As(err, &storageErr) || storageErr.Op != "save" {
		t.Fatalf("expected save StorageError, got %v", err)
	}
	if _, err := os.Stat(filepath.Dir(path)); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected directory not to be created, stat err=%v", err)
	}
}

func TestFileStoreFailedSaveKeepsPriorDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "people.json")
	store := NewFileStore()
	if err := store.Save(context.Background(), path, Document{"person-1": {"name": "James Schue"}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	before, _ := os.ReadFile(path)

	err := store.Save(context.Background(), path, Document{"person-1": {"bad": make(chan int)}})
	if err == nil {
		t.Fatalf("expected marshal failure")
	}

	after, _ := os.ReadFile(path)
	if string(before) != string(after) {
		t.Fatalf("expected prior document unchanged:\nbefore: %s\nafter:  %s", before, after)
	}
	assertNoTempFiles(t, filepath.Dir(path))
}

func TestFileStoreHonoursCancelledContext(t *testing.T) {
	path := writeFile(t, "{}")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFileStore().Load(ctx, path); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled load, got %v", err)
	}
	if err := NewFileStore().Save(ctx, path, Document{"a": {}}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled save, got %v", err)
	}
	raw, _ := os.ReadFile(path)
	if string(raw) != "{}" {
		t.Fatalf("expected file untouched, got %q", raw)
	}
}

func TestMemoryStoreNormalizesValues(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	doc, err := store.Load(ctx, "people")
	if err != nil || len(doc) != 0 {
		t.Fatalf("expected empty document, got %v err=%v", doc, err)
	}

	if err := store.Save(ctx, "people", Document{"p": {"age": 42, "tags": []string{"a"}}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	loaded, err := store.Load(ctx, "people")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := Document{"p": {"age": float64(42), "tags": []any{"a"}}}
	if diff := cmp.Diff(want, loaded); diff != "" {
		t.Fatalf("unexpected document (-want +got):\n%s", diff)
	}

	raw, ok := store.Raw("people")
	if !ok || !json.Valid(raw) {
		t.Fatalf("expected raw JSON, got %q ok=%v", raw, ok)
	}
	if _, ok := store.Raw("other"); ok {
		t.Fatalf("expected no raw document for unknown location")
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "people.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func assertNoTempFiles(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	for _, entry := range entries {
		if strings.Contains(entry.Name(), ".tmp-") {
			t.Fatalf("unexpected temp file left behind: %s", entry.Name())
		}
	}
}
