package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/agentsys/orchestrator/internal/errs"
)

// DefaultLockTimeout is the bounded retry deadline for lock acquisition
// (spec §4.A).
const DefaultLockTimeout = 5 * time.Second

func errLockTimeout(lockPath string) error {
	return errs.LockContention(lockPath, fmt.Errorf("exceeded retry deadline"))
}

// Store is the Locked Registry Store (spec §4.A): atomic read-modify-write
// of registry documents under an exclusive advisory lock, with tmp-file
// rename, directory fsync, and `.backup` corruption recovery.
type Store struct {
	LockTimeout time.Duration
}

// NewStore returns a Store using the given lock-acquisition timeout.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &Store{LockTimeout: lockTimeout}
}

// WithTask opens path under an exclusive lock, loads the Task document
// (creating an empty one if absent), invokes mutate, and atomically
// persists the result. mutate's error aborts the write but still releases
// the lock; the document on disk is untouched.
func (s *Store) WithTask(path string, mutate func(*Task) error) (*Task, error) {
	lock, err := acquireExclusive(path, s.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	doc, err := loadDocument[Task](path)
	if err != nil {
		return nil, err
	}

	if err := mutate(doc); err != nil {
		return nil, err
	}

	if err := persistAtomic(path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadTask loads a Task document under a shared lock without mutating it.
func (s *Store) ReadTask(path string) (*Task, error) {
	lock, err := acquireShared(path, s.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()
	return loadDocument[Task](path)
}

// WithGlobal is the Global-registry analogue of WithTask.
func (s *Store) WithGlobal(path string, mutate func(*Global) error) (*Global, error) {
	lock, err := acquireExclusive(path, s.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()

	doc, err := loadGlobalDocument(path)
	if err != nil {
		return nil, err
	}

	if err := mutate(doc); err != nil {
		return nil, err
	}

	if err := persistAtomic(path, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ReadGlobal loads a Global document under a shared lock.
func (s *Store) ReadGlobal(path string) (*Global, error) {
	lock, err := acquireShared(path, s.LockTimeout)
	if err != nil {
		return nil, err
	}
	defer lock.release()
	return loadGlobalDocument(path)
}

// loadDocument reads and decodes a Task document, recovering from a
// "<path>.backup" sibling if the primary file is corrupt (spec §4.A).
func loadDocument[T any](path string) (*T, error) {
	doc := new(T)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return doc, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return doc, nil
	}

	if jerr := json.Unmarshal(data, doc); jerr != nil {
		if recovered, rerr := recoverFromBackup[T](path); rerr == nil {
			return recovered, nil
		}
		return nil, errs.CorruptRegistry(path, jerr)
	}
	return doc, nil
}

func loadGlobalDocument(path string) (*Global, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewGlobal(), nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(data) == 0 {
		return NewGlobal(), nil
	}

	doc := NewGlobal()
	if jerr := json.Unmarshal(data, doc); jerr != nil {
		if recovered, rerr := recoverFromBackup[Global](path); rerr == nil {
			if recovered.Tasks == nil {
				recovered.Tasks = make(map[string]GlobalTaskEntry)
			}
			if recovered.Agents == nil {
				recovered.Agents = make(map[string]GlobalAgentEntry)
			}
			return recovered, nil
		}
		return nil, errs.CorruptRegistry(path, jerr)
	}
	if doc.Tasks == nil {
		doc.Tasks = make(map[string]GlobalTaskEntry)
	}
	if doc.Agents == nil {
		doc.Agents = make(map[string]GlobalAgentEntry)
	}
	return doc, nil
}

func recoverFromBackup[T any](path string) (*T, error) {
	backupPath := path + ".backup"
	data, err := os.ReadFile(backupPath)
	if err != nil {
		return nil, err
	}
	doc := new(T)
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// persistAtomic serializes doc, copies the current on-disk content (if any)
// to "<path>.backup", writes the new content to a temp sibling, renames it
// into place, and fsyncs the containing directory so a crash immediately
// after a successful mutation preserves the result (spec §4.A).
func persistAtomic(path string, doc any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	if existing, err := os.ReadFile(path); err == nil && len(existing) > 0 {
		_ = os.WriteFile(path+".backup", existing, 0o644)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename into %s: %w", path, err)
	}

	fsyncDir(dir)
	return nil
}

// fsyncDir syncs a directory so a preceding rename is durable across a
// crash. Best-effort: some filesystems/platforms don't support opening a
// directory for fsync, and that is not a fatal condition here.
func fsyncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	defer d.Close()
	_ = d.Sync()
}
