package adapter

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// Flock is a cooperative lock file marking which automation currently owns a
// project tree. The permission governor probes it before mutating anything.
type Flock struct {
	file *os.File
	path string
}

// LockInfo describes a competing holder when acquisition fails.
type LockInfo struct {
	Holder string
}

// sanitizeIdentifier cleans the identifier for safe use in the info file.
func sanitizeIdentifier(id string) string {
	if id == "" {
		return "unknown"
	}

	result := strings.Map(func(r rune) rune {
		if r < 32 || r == '/' || r == '\\' {
			return '_'
		}

		return r
	}, id)

	const maxIdentifierLen = 100
	if len(result) > maxIdentifierLen {
		result = result[:maxIdentifierLen]
	}

	return result
}

// TryAcquireLock attempts a non-blocking exclusive lock in dir. When another
// automation already holds it, the holder's identifier is returned so the
// caller can yield cooperatively instead of treating it as an error.
func TryAcquireLock(dir, identifier string) (*Flock, *LockInfo, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create lock directory %s: %w", dir, err)
	}

	lockPath := filepath.Join(dir, "groundskeeper.lock")
	infoPath := lockPath + ".info"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open lock file %s: %w", lockPath, err)
	}

	if err := syscall.Flock(int(lockFile.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		holder := "unknown"
		if data, readErr := os.ReadFile(infoPath); readErr == nil {
			holder = strings.TrimSpace(string(data))
		}

		_ = lockFile.Close()

		return nil, &LockInfo{Holder: holder}, nil
	}

	info := fmt.Sprintf("%s (pid %d)", sanitizeIdentifier(identifier), os.Getpid())
	_ = os.WriteFile(infoPath, []byte(info), 0o600)

	return &Flock{file: lockFile, path: lockPath}, nil, nil
}

// Release drops the lock and removes the info file.
func (l *Flock) Release() {
	if l == nil || l.file == nil {
		return
	}

	_ = syscall.Flock(int(l.file.Fd()), syscall.LOCK_UN)
	_ = l.file.Close()
	_ = os.Remove(l.path + ".info")

	l.file = nil
}
