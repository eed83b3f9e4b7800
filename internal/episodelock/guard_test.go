package episodelock_test

import (
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"podwatch/internal/episodelock"
)

func TestTryAcquireRejectsSecondHolderInProcess(t *testing.T) {
	guard, err := episodelock.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	release, ok, err := guard.TryAcquire("ep-1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := guard.TryAcquire("ep-1"); err != nil || ok {
		t.Fatalf("second acquire should be rejected: ok=%v err=%v", ok, err)
	}
	if guard.Held() != 1 {
		t.Fatalf("expected 1 held lock, got %d", guard.Held())
	}

	release()
	release()
	if guard.Held() != 0 {
		t.Fatalf("expected no held locks, got %d", guard.Held())
	}
	release2, ok, err := guard.TryAcquire("ep-1")
	if err != nil || !ok {
		t.Fatalf("reacquire after release: ok=%v err=%v", ok, err)
	}
	release2()
}

func TestTryAcquireRejectsAcrossLockHandles(t *testing.T) {
	dir := t.TempDir()
	first, err := episodelock.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	second, err := episodelock.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	release, ok, err := first.TryAcquire("ep-1")
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if _, ok, err := second.TryAcquire("ep-1"); err != nil || ok {
		t.Fatalf("other handle should see the episode as busy: ok=%v err=%v", ok, err)
	}
	if _, ok, err := second.TryAcquire("ep-2"); err != nil || !ok {
		t.Fatalf("unrelated episode should be free: ok=%v err=%v", ok, err)
	}

	release()
	release2, ok, err := second.TryAcquire("ep-1")
	if err != nil || !ok {
		t.Fatalf("acquire after release: ok=%v err=%v", ok, err)
	}
	release2()
}

func TestTryAcquireConcurrentSingleWinner(t *testing.T) {
	guard, err := episodelock.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	var (
		wins    atomic.Int32
		wg      sync.WaitGroup
		release = make(chan func(), 16)
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rel, ok, err := guard.TryAcquire("shared")
			if err != nil {
				t.Errorf("TryAcquire: %v", err)
				return
			}
			if ok {
				wins.Add(1)
				release <- rel
			}
		}()
	}
	wg.Wait()
	close(release)
	for rel := range release {
		rel()
	}
	if wins.Load() != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins.Load())
	}
}

func TestLockFileNames(t *testing.T) {
	dir := t.TempDir()
	guard, err := episodelock.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	release, ok, err := guard.TryAcquire("abc123")
	if err != nil || !ok {
		t.Fatalf("acquire: ok=%v err=%v", ok, err)
	}
	defer release()
	if _, err := os.Stat(filepath.Join(dir, "episode-abc123.lock")); err != nil {
		t.Fatalf("expected readable lock file: %v", err)
	}

	release2, ok, err := guard.TryAcquire("../../etc/passwd")
	if err != nil || !ok {
		t.Fatalf("acquire unsafe id: ok=%v err=%v", ok, err)
	}
	defer release2()
	entries, err := filepath.Glob(filepath.Join(dir, "episode-*.lock"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected both lock files inside dir, got %d entries", len(entries))
	}
}

func TestRejectsEmptyInputs(t *testing.T) {
	if _, err := episodelock.New("  "); err == nil {
		t.Fatal("expected error for empty dir")
	}
	guard, err := episodelock.New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if _, _, err := guard.TryAcquire(""); err == nil {
		t.Fatal("expected error for empty id")
	}
}

func TestReleaseRemovesLockFile(t *testing.T) {
	dir := t.TempDir()
	guard, err := episodelock.New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	for _, id := range []string{"ep-1", "ep-2", "ep-3"} {
		release, ok, err := guard.TryAcquire(id)
		if err != nil || !ok {
			t.Fatalf("acquire %s: ok=%v err=%v", id, ok, err)
		}
		release()
	}
	entries, err := filepath.Glob(filepath.Join(dir, "episode-*.lock"))
	if err != nil {
		t.Fatalf("Glob: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected released lock files to be removed, found %d", len(entries))
	}

	release, ok, err := guard.TryAcquire("ep-1")
	if err != nil || !ok {
		t.Fatalf("reacquire after removal: ok=%v err=%v", ok, err)
	}
	defer release()
	if _, err := os.Stat(filepath.Join(dir, "episode-ep-1.lock")); err != nil {
		t.Fatalf("expected lock file while held: %v", err)
	}
}
