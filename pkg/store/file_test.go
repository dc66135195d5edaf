package store

import (
	"context"
	"errors"
	"testing"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	return fs
}

func TestFileStorePutGet(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	if err := fs.Put(ctx, "records/alpha", record{Name: "alpha", Count: 1}); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	var got record
	if err := fs.Get(ctx, "records/alpha", &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Name != "alpha" || got.Count != 1 {
		t.Fatalf("unexpected record: %+v", got)
	}
}

func TestFileStoreGetAbsent(t *testing.T) {
	fs := newTestFileStore(t)

	var got record
	err := fs.Get(context.Background(), "records/missing", &got)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestFileStorePutOverwrites(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	_ = fs.Put(ctx, "records/alpha", record{Count: 1})
	if err := fs.Put(ctx, "records/alpha", record{Count: 2}); err != nil {
		t.Fatalf("second put failed: %v", err)
	}

	var got record
	if err := fs.Get(ctx, "records/alpha", &got); err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if got.Count != 2 {
		t.Fatalf("expected overwritten record, got count %d", got.Count)
	}
}

func TestFileStoreAppendAndReadLines(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if err := fs.AppendLine(ctx, "segments/day", record{Count: i}); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}

	lines, err := fs.ReadLines(ctx, "segments/day")
	if err != nil {
		t.Fatalf("read lines failed: %v", err)
	}
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %d", len(lines))
	}
}

func TestFileStoreReadLinesAbsent(t *testing.T) {
	fs := newTestFileStore(t)

	lines, err := fs.ReadLines(context.Background(), "segments/none")
	if err != nil {
		t.Fatalf("read lines failed: %v", err)
	}
	if len(lines) != 0 {
		t.Fatalf("expected no lines, got %d", len(lines))
	}
}

func TestFileStoreList(t *testing.T) {
	fs := newTestFileStore(t)
	ctx := context.Background()

	_ = fs.Put(ctx, "mailboxes/Developer", record{})
	_ = fs.Put(ctx, "mailboxes/QA", record{})
	_ = fs.Put(ctx, "messages/msg_1", record{})

	keys, err := fs.List(ctx, "mailboxes/")
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("expected 2 keys, got %v", keys)
	}
}

func TestFileStoreRejectsTraversal(t *testing.T) {
	fs := newTestFileStore(t)

	if err := fs.Put(context.Background(), "../escape", record{}); err == nil {
		t.Fatal("expected error for traversal key")
	}
	if err := fs.Put(context.Background(), "a//b", record{}); err == nil {
		t.Fatal("expected error for empty key element")
	}
}
