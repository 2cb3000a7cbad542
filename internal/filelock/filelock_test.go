package filelock

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
)

func writeString(s string) func(io.Writer) error {
	return func(w io.Writer) error {
		_, err := io.WriteString(w, s)
		return err
	}
}

func TestLockUnlock(t *testing.T) {
	lock := NewFileLock(filepath.Join(t.TempDir(), "test.lock"))

	if err := lock.Lock(context.Background()); err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	if err := lock.Unlock(); err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
}

func TestTryLock(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	holder := NewFileLock(lockPath)
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatalf("holder Lock() error = %v", err)
	}

	contender := NewFileLock(lockPath)
	acquired, err := contender.TryLock()
	if err != nil {
		t.Fatalf("TryLock() error = %v", err)
	}
	if acquired {
		t.Fatal("TryLock() should fail while the lock is held")
	}

	if err := holder.Unlock(); err != nil {
		t.Fatal(err)
	}

	acquired, err = contender.TryLock()
	if err != nil || !acquired {
		t.Fatalf("TryLock() after release = %v, %v", acquired, err)
	}
	contender.Unlock()
}

func TestLockWaitsForRelease(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	holder := NewFileLock(lockPath)
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(100 * time.Millisecond)
		holder.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	contender := NewFileLock(lockPath)
	start := time.Now()
	if err := contender.Lock(ctx); err != nil {
		t.Fatalf("Lock() should succeed once released: %v", err)
	}
	if wait := time.Since(start); wait < 90*time.Millisecond {
		t.Errorf("expected to wait for the lock, waited %v", wait)
	}
	contender.Unlock()
}

func TestLockTimeout(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "test.lock")

	holder := NewFileLock(lockPath)
	if err := holder.Lock(context.Background()); err != nil {
		t.Fatal(err)
	}
	defer holder.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	err := NewFileLock(lockPath).Lock(ctx)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
}

func TestAtomicWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "report.json")

	if err := AtomicWrite(path, writeString(`{"a": 1}`)); err != nil {
		t.Fatalf("AtomicWrite() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"a": 1}` {
		t.Errorf("content = %q", data)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("permissions = %v, want 0644", info.Mode().Perm())
	}
}

// TestAtomicWriteFailureKeepsOriginal verifies a failed encode leaves the
// previous file and no temp files behind.
func TestAtomicWriteFailureKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "report.json")
	if err := os.WriteFile(path, []byte("original"), 0644); err != nil {
		t.Fatal(err)
	}

	encodeErr := errors.New("encode failed")
	err := AtomicWrite(path, func(w io.Writer) error {
		io.WriteString(w, "partial")
		return encodeErr
	})
	if !errors.Is(err, encodeErr) {
		t.Fatalf("expected encode error, got %v", err)
	}

	data, _ := os.ReadFile(path)
	if string(data) != "original" {
		t.Errorf("original overwritten: %q", data)
	}

	entries, _ := os.ReadDir(dir)
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".tmp-") {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "report.yaml")

	if err := LockAndWrite(context.Background(), path, writeString("a: 1\n")); err != nil {
		t.Fatalf("LockAndWrite() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a: 1\n" {
		t.Errorf("content = %q", data)
	}
}

// TestConcurrentLockAndWrite verifies the file always holds one complete write.
func TestConcurrentLockAndWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.txt")

	const writers = 10
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			content := strings.Repeat(fmt.Sprintf("%d", id), 1000)
			if err := LockAndWrite(context.Background(), path, writeString(content)); err != nil {
				t.Errorf("writer %d: %v", id, err)
			}
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) == 0 {
		t.Fatal("empty file")
	}
	if strings.Count(string(data), string(data[:1])) != len(data) {
		t.Errorf("file mixes writes: %q...", data[:20])
	}
}
