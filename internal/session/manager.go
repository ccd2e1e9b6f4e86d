// Package session owns the temporary extraction directories created when a
// bundle is scanned. Each scan gets its own directory named by a fresh uuid;
// the directory is removed when the session is imported, discarded, or the
// manager is closed.
package session

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned for an unknown, consumed or disposed session id.
var ErrNotFound = errors.New("session not found")

// Session is one extracted bundle awaiting import.
type Session struct {
	ID string
	// Dir is the extraction directory owned by the session.
	Dir string
	// Root is the effective bundle root inside Dir: Dir itself, or the
	// single wrapper folder the archive was packed with.
	Root    string
	Created time.Time

	once sync.Once
	err  error
}

// Cleanup removes the session directory. It is safe to call more than once
// and tolerates a directory that is already gone.
func (s *Session) Cleanup() error {
	if s == nil {
		return nil
	}
	s.once.Do(func() {
		if err := os.RemoveAll(s.Dir); err != nil && !os.IsNotExist(err) {
			s.err = fmt.Errorf("remove session dir: %w", err)
		}
	})
	return s.err
}

// Manager tracks live sessions under a root directory.
type Manager struct {
	root   string
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager returns a Manager that creates session directories under root.
func NewManager(root string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		root:     root,
		logger:   logger,
		sessions: make(map[string]*Session),
	}
}

// Root returns the directory sessions are created in.
func (m *Manager) Root() string {
	return m.root
}

// Create makes a fresh session directory and registers it.
func (m *Manager) Create() (*Session, error) {
	if err := os.MkdirAll(m.root, 0700); err != nil {
		return nil, fmt.Errorf("create session root: %w", err)
	}

	id := uuid.NewString()
	dir := filepath.Join(m.root, id)
	if err := os.Mkdir(dir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	s := &Session{ID: id, Dir: dir, Root: dir, Created: time.Now()}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("session created", "session", id, "dir", dir)
	return s, nil
}

// SetRoot records the effective bundle root for a registered session.
func (m *Manager) SetRoot(id, root string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	s.Root = root
	return nil
}

// Get returns a registered session without consuming it.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Take removes the session from the registry and hands it to the caller,
// who becomes responsible for calling Cleanup. A second Take for the same
// id returns ErrNotFound.
func (m *Manager) Take(id string) (*Session, error) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s, nil
}

// Dispose unregisters the session and removes its directory. Unknown ids
// are ignored.
func (m *Manager) Dispose(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return nil
	}
	m.logger.Debug("session disposed", "session", id)
	return s.Cleanup()
}

// Len returns the number of registered sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close disposes every registered session.
func (m *Manager) Close() error {
	m.mu.Lock()
	pending := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		pending = append(pending, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	var errs []error
	for _, s := range pending {
		if err := s.Cleanup(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
