package storage

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// atomicWriter writes files through a temp file and rename, serialised per
// path. Replaced files can be kept in a backup directory.
type atomicWriter struct {
	locks     map[string]*sync.RWMutex
	locksMu   sync.Mutex
	backupDir string
	keep      int
	now       func() time.Time
}

func newAtomicWriter(backupDir string, keep int, now func() time.Time) *atomicWriter {
	if now == nil {
		now = time.Now
	}
	return &atomicWriter{
		locks:     make(map[string]*sync.RWMutex),
		backupDir: backupDir,
		keep:      keep,
		now:       now,
	}
}

// WriteFile replaces filename with data. Readers never observe a partial file.
func (w *atomicWriter) WriteFile(filename string, data []byte, perm os.FileMode) error {
	lock := w.fileLock(filename)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := w.backup(filename); err != nil {
		return fmt.Errorf("failed to create backup: %w", err)
	}

	tmp := filename + ".tmp." + tempSuffix(data)
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}

	written, err := os.ReadFile(tmp)
	if err != nil || !bytes.Equal(written, data) {
		os.Remove(tmp)
		return fmt.Errorf("file integrity check failed for %s", filename)
	}

	if err := os.Rename(tmp, filename); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// ReadFile reads filename under its read lock
func (w *atomicWriter) ReadFile(filename string) ([]byte, error) {
	lock := w.fileLock(filename)
	lock.RLock()
	defer lock.RUnlock()

	return os.ReadFile(filename)
}

func (w *atomicWriter) backup(filename string) error {
	if w.backupDir == "" {
		return nil
	}

	data, err := os.ReadFile(filename)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}

	dir := filepath.Join(w.backupDir, filepath.Base(filepath.Dir(filename)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	name := fmt.Sprintf("%s.%s.backup", filepath.Base(filename), w.now().UTC().Format("20060102-150405.000000000"))
	if err := os.WriteFile(filepath.Join(dir, name), data, 0o644); err != nil {
		return err
	}

	return w.prune(dir, filepath.Base(filename))
}

// prune keeps the newest w.keep backups of base in dir
func (w *atomicWriter) prune(dir, base string) error {
	if w.keep <= 0 {
		return nil
	}

	matches, err := filepath.Glob(filepath.Join(dir, base+".*.backup"))
	if err != nil {
		return err
	}
	if len(matches) <= w.keep {
		return nil
	}

	// Timestamped names sort chronologically.
	sort.Strings(matches)
	for _, old := range matches[:len(matches)-w.keep] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

// backups lists the retained backups of filename, oldest first
func (w *atomicWriter) backups(filename string) ([]string, error) {
	if w.backupDir == "" {
		return nil, nil
	}
	dir := filepath.Join(w.backupDir, filepath.Base(filepath.Dir(filename)))
	matches, err := filepath.Glob(filepath.Join(dir, filepath.Base(filename)+".*.backup"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (w *atomicWriter) fileLock(filename string) *sync.RWMutex {
	w.locksMu.Lock()
	defer w.locksMu.Unlock()

	if lock, ok := w.locks[filename]; ok {
		return lock
	}
	lock := &sync.RWMutex{}
	w.locks[filename] = lock
	return lock
}

func tempSuffix(data []byte) string {
	seed := fmt.Sprintf("%d-%d", time.Now().UnixNano(), len(data))
	hash := sha256.Sum256([]byte(seed))
	return strings.ToLower(hex.EncodeToString(hash[:4]))
}
