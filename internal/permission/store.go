package permission

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"livescribe/internal/domain"
)

// Decision is one recorded answer to a permission prompt.
type Decision struct {
	Granted   bool      `yaml:"granted"`
	DecidedAt time.Time `yaml:"decided_at"`
}

type grantFile struct {
	Grants map[domain.Capability]Decision `yaml:"grants"`
}

// Store persists permission decisions in a YAML file.
type Store struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

func (s *Store) Path() string {
	return s.path
}

// Lookup returns the recorded decision for capability, if any. A missing
// file means nothing has been decided yet.
func (s *Store) Lookup(capability domain.Capability) (Decision, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return Decision{}, false, err
	}
	decision, ok := file.Grants[capability]
	return decision, ok, nil
}

// Record stores the answer for capability and rewrites the file.
func (s *Store) Record(capability domain.Capability, granted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.load()
	if err != nil {
		return err
	}
	if file.Grants == nil {
		file.Grants = map[domain.Capability]Decision{}
	}
	file.Grants[capability] = Decision{Granted: granted, DecidedAt: s.now().UTC()}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return fmt.Errorf("failed to encode permissions: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("failed to create permissions directory: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write permissions file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace permissions file: %w", err)
	}
	return nil
}

func (s *Store) load() (grantFile, error) {
	var file grantFile
	if s.path == "" {
		return file, errors.New("permissions file path is empty")
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return file, nil
		}
		return file, fmt.Errorf("failed to read permissions file: %w", err)
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return file, fmt.Errorf("failed to parse permissions file: %w", err)
	}
	return file, nil
}
