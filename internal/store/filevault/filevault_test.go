package filevault

import (
	"context"
	"errors"
	"testing"
)

func TestMemoryRoundTrip(t *testing.T) {
	v := NewMemory()
	ctx := context.Background()

	if err := v.Put(ctx, "p1", "notes.txt", []byte("payload")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	got, err := v.Get(ctx, "p1", "notes.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("Get() = %q", got)
	}
}

func TestMemoryMissReturnsNotFound(t *testing.T) {
	v := NewMemory()
	if _, err := v.Get(context.Background(), "p1", "ghost.txt"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryDelete(t *testing.T) {
	v := NewMemory()
	ctx := context.Background()
	if err := v.Put(ctx, "p1", "a", []byte("x")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := v.Delete(ctx, "p1", "a"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := v.Get(ctx, "p1", "a"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get() after delete = %v, want ErrNotFound", err)
	}
}

func TestMemoryRejectsEmptyKey(t *testing.T) {
	v := NewMemory()
	if err := v.Put(context.Background(), "", "a", nil); err == nil {
		t.Fatal("Put() accepted an empty project id")
	}
}

func TestMemoryURLUnsupported(t *testing.T) {
	v := NewMemory()
	if _, err := v.URL(context.Background(), "p1", "a"); !errors.Is(err, ErrNoPresign) {
		t.Fatalf("URL() error = %v, want ErrNoPresign", err)
	}
}

func TestMemoryGetCopies(t *testing.T) {
	v := NewMemory()
	ctx := context.Background()
	if err := v.Put(ctx, "p1", "a", []byte("abc")); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	first, _ := v.Get(ctx, "p1", "a")
	first[0] = 'z'
	second, _ := v.Get(ctx, "p1", "a")
	if string(second) != "abc" {
		t.Fatalf("stored payload mutated through returned slice: %q", second)
	}
}
