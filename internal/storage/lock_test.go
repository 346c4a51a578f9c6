package storage

import (
	"path/filepath"
	"testing"
)

func TestRunLock_Exclusive(t *testing.T) {
	root := t.TempDir()
	a := NewRunLock(root)
	b := NewRunLock(root)
	if a.Path() != b.Path() {
		t.Fatalf("same root should share a lock file: %q vs %q", a.Path(), b.Path())
	}

	if err := a.Lock(); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	ok, err := b.TryLock()
	if err != nil {
		t.Fatalf("TryLock: %v", err)
	}
	if ok {
		t.Fatal("second lock should not be acquired while first is held")
	}

	if err := a.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	ok, err = b.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock after unlock = %v, %v", ok, err)
	}
	_ = b.Unlock()
}

func TestRunLock_DistinctRoots(t *testing.T) {
	a := NewRunLock(filepath.Join(t.TempDir(), "one"))
	b := NewRunLock(filepath.Join(t.TempDir(), "two"))
	if a.Path() == b.Path() {
		t.Error("different roots should not share a lock file")
	}
}

func TestRunLock_UnlockWithoutLock(t *testing.T) {
	l := NewRunLock(t.TempDir())
	if err := l.Unlock(); err != nil {
		t.Errorf("Unlock on unlocked lock: %v", err)
	}
}
