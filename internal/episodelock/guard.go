package episodelock

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
)

const (
	lockSuffix  = ".lock"
	dirLockName = ".guard"
)

// Guard hands out non-blocking per-episode locks.
type Guard struct {
	dir string

	mu      sync.Mutex
	held    map[string]*flock.Flock
	dirLock *flock.Flock
}

// New prepares a guard whose lock files live in dir.
func New(dir string) (*Guard, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("episode lock directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return &Guard{
		dir:     dir,
		held:    make(map[string]*flock.Flock),
		dirLock: flock.New(filepath.Join(dir, dirLockName)),
	}, nil
}

// TryAcquire claims the episode. ok is false when another goroutine or
// process already holds it. The returned release func is idempotent.
func (g *Guard) TryAcquire(episodeID string) (release func(), ok bool, err error) {
	if strings.TrimSpace(episodeID) == "" {
		return nil, false, errors.New("episode id is required")
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.held[episodeID]; busy {
		return nil, false, nil
	}

	if err := g.dirLock.Lock(); err != nil {
		return nil, false, fmt.Errorf("lock episode directory: %w", err)
	}
	defer func() { _ = g.dirLock.Unlock() }()

	path := g.lockPath(episodeID)
	lock := flock.New(path)
	locked, err := lock.TryLock()
	if err != nil {
		return nil, false, fmt.Errorf("lock episode %s: %w", episodeID, err)
	}
	if !locked {
		return nil, false, nil
	}
	g.held[episodeID] = lock

	var once sync.Once
	release = func() {
		once.Do(func() {
			g.mu.Lock()
			defer g.mu.Unlock()
			delete(g.held, episodeID)
			// The directory lock keeps other processes from opening the file
			// between unlink and unlock.
			if err := g.dirLock.Lock(); err == nil {
				_ = os.Remove(path)
				defer func() { _ = g.dirLock.Unlock() }()
			}
			_ = lock.Unlock()
		})
	}
	return release, true, nil
}

// Held reports how many episodes this guard currently holds.
func (g *Guard) Held() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.held)
}

// lockPath keeps readable ids as file names and hashes anything else.
func (g *Guard) lockPath(episodeID string) string {
	name := episodeID
	if !safeName(name) {
		sum := sha256.Sum256([]byte(episodeID))
		name = hex.EncodeToString(sum[:16])
	}
	return filepath.Join(g.dir, "episode-"+name+lockSuffix)
}

func safeName(value string) bool {
	if len(value) > 64 {
		return false
	}
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
