package storage

import (
	"context"
	"errors"
	"testing"
)

func TestDirStore_PutGet(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewDirStore: %v", err)
	}
	ctx := context.Background()

	body := []byte("date,path\n2025-01-01,/\n")
	if err := store.Put(ctx, "parsed/date=2025-01-01/access.csv", body); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := store.Get(ctx, "parsed/date=2025-01-01/access.csv")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != string(body) {
		t.Errorf("Get = %q, want %q", got, body)
	}
}

func TestDirStore_Overwrite(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	if err := store.Put(ctx, "k", []byte("one")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, "k", []byte("two")); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "two" {
		t.Errorf("Get = %q, want overwrite", got)
	}
}

func TestDirStore_NotFound(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.Get(context.Background(), "missing/key")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get = %v, want ErrNotFound", err)
	}
}

func TestDirStore_RejectsEscapingKeys(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	for _, key := range []string{"../outside", "/etc/passwd", "a/../../b"} {
		if err := store.Put(ctx, key, []byte("x")); err == nil {
			t.Errorf("Put(%q) succeeded, want rejection", key)
		}
	}
}
