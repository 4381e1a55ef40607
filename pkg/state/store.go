// Package state persists per-table read offsets between sync runs
package state

import (
	"os"
	"sort"
	"sync"
	"time"

	"github.com/ajitpratap0/nebula-catapi/pkg/config"
	"github.com/ajitpratap0/nebula-catapi/pkg/connector/core"
	"github.com/ajitpratap0/nebula-catapi/pkg/errors"
)

// TableState is the saved position of one table
type TableState struct {
	Offset    core.Offset `yaml:"offset,omitempty"`
	Records   int64       `yaml:"records"`
	Completed bool        `yaml:"completed"`
	UpdatedAt time.Time   `yaml:"updated_at"`
}

type document struct {
	Connector string                 `yaml:"connector"`
	Tables    map[string]*TableState `yaml:"tables"`
}

// Store is a YAML file of table offsets. It is safe for concurrent use;
// changes reach disk on Save.
type Store struct {
	path string
	mu   sync.RWMutex
	doc  document
}

// Open loads the store at path. A missing file yields an empty store.
func Open(path, connector string) (*Store, error) {
	s := &Store{
		path: path,
		doc:  document{Connector: connector, Tables: make(map[string]*TableState)},
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to stat state file")
	}

	if err := config.Load(path, &s.doc); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to load state file")
	}
	if s.doc.Tables == nil {
		s.doc.Tables = make(map[string]*TableState)
	}
	if s.doc.Connector != "" && connector != "" && s.doc.Connector != connector {
		return nil, errors.Newf(errors.ErrorTypeConfig,
			"state file %s belongs to connector %q, not %q", path, s.doc.Connector, connector)
	}
	s.doc.Connector = connector
	return s, nil
}

// Path returns the backing file path
func (s *Store) Path() string {
	return s.path
}

// Get returns a copy of the saved state of table
func (s *Store) Get(table string) (TableState, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ts, ok := s.doc.Tables[table]
	if !ok {
		return TableState{}, false
	}
	out := *ts
	out.Offset = copyOffset(ts.Offset)
	return out, true
}

// Offset returns the saved offset of table, nil when none
func (s *Store) Offset(table string) core.Offset {
	ts, _ := s.Get(table)
	return ts.Offset
}

// Advance records a page read: the offset to resume from and the number of
// records the page held.
func (s *Store) Advance(table string, offset core.Offset, records int, completed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts, ok := s.doc.Tables[table]
	if !ok {
		ts = &TableState{}
		s.doc.Tables[table] = ts
	}
	ts.Offset = copyOffset(offset)
	ts.Records += int64(records)
	ts.Completed = completed
	ts.UpdatedAt = time.Now().UTC()
}

// Reset forgets the state of table
func (s *Store) Reset(table string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.doc.Tables, table)
}

// Tables returns the names of tables with saved state, sorted
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.doc.Tables))
	for name := range s.doc.Tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the store to disk atomically
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := config.Save(s.path, &s.doc); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to save state file")
	}
	return nil
}

func copyOffset(o core.Offset) core.Offset {
	if o == nil {
		return nil
	}
	out := make(core.Offset, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}
