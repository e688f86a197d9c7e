package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"

	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

var (
	// ErrNotFound is returned when no table is stored under a name
	ErrNotFound = errors.New("storage: table not found")
	// ErrInvalidName is returned for names that cannot be used as keys
	ErrInvalidName = errors.New("storage: invalid table name")
)

var validName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*$`)

func checkName(name string) error {
	if !validName.MatchString(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// Store archives result tables by name. Stores keep their own copy: the
// caller still owns the table passed to Save and owns the one Load returns.
type Store interface {
	Save(name string, table *rtab.Table) error
	Load(name string) (*rtab.Table, error)
	List() ([]string, error)
	Delete(name string) error
	Close() error
}

// MemoryStore keeps tables in a map
type MemoryStore struct {
	tables map[string]*rtab.Table
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tables: make(map[string]*rtab.Table),
	}
}

func (s *MemoryStore) Save(name string, table *rtab.Table) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[name] = table.Clone()
	return nil
}

func (s *MemoryStore) Load(name string) (*rtab.Table, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, exists := s.tables[name]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return table.Clone(), nil
}

func (s *MemoryStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *MemoryStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tables[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(s.tables, name)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}

// jsonTable is the on-disk form of a table, shared by the JSON and Parquet
// stores
type jsonTable struct {
	Columns []string   `json:"columns"`
	Types   []string   `json:"types"`
	Rows    [][]string `json:"rows,omitempty"`
	Status  int32      `json:"status"`
	Message string     `json:"message,omitempty"`
}

func toJSONTable(t *rtab.Table) *jsonTable {
	jt := &jsonTable{
		Columns: append([]string{}, t.Columns...),
		Types:   make([]string, len(t.Types)),
		Rows:    make([][]string, len(t.Rows)),
		Status:  int32(t.Status),
		Message: t.Message,
	}
	for i, ct := range t.Types {
		jt.Types[i] = ct.String()
	}
	for i, row := range t.Rows {
		jt.Rows[i] = append([]string{}, row...)
	}
	return jt
}

func fromJSONTable(jt *jsonTable) (*rtab.Table, error) {
	status := types.StatusCode(jt.Status)
	if !status.Valid() {
		return nil, fmt.Errorf("stored table has unknown status %d", jt.Status)
	}
	if status != types.StatusSuccess {
		return rtab.NewStatus(status, jt.Message), nil
	}

	colTypes := make([]types.ColumnType, len(jt.Types))
	for i, name := range jt.Types {
		ct, err := types.ParseColumnType(name)
		if err != nil {
			return nil, err
		}
		colTypes[i] = ct
	}
	t, err := rtab.NewWithSchema(jt.Columns, colTypes)
	if err != nil {
		return nil, err
	}
	t.Message = jt.Message
	for _, row := range jt.Rows {
		if err := t.AppendRow(row...); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// JSONStore keeps every table in a single JSON file, rewritten on change
type JSONStore struct {
	*MemoryStore
	filePath string
}

// NewJSONStore opens or creates the JSON file at filePath
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		MemoryStore: NewMemoryStore(),
		filePath:    filePath,
	}

	// Create directory if it doesn't exist
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, err
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		if err := store.save(); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	if err := store.load(); err != nil {
		return nil, err
	}
	return store, nil
}

type jsonDatabase struct {
	Tables map[string]*jsonTable `json:"tables"`
}

func (s *JSONStore) save() error {
	s.mu.RLock()
	db := &jsonDatabase{Tables: make(map[string]*jsonTable, len(s.tables))}
	for name, table := range s.tables {
		db.Tables[name] = toJSONTable(table)
	}
	s.mu.RUnlock()

	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

func (s *JSONStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	var db jsonDatabase
	if err := json.Unmarshal(data, &db); err != nil {
		return fmt.Errorf("failed to parse %s: %w", s.filePath, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for name, jt := range db.Tables {
		table, err := fromJSONTable(jt)
		if err != nil {
			return fmt.Errorf("table %s: %w", name, err)
		}
		s.tables[name] = table
	}
	return nil
}

// entry returns the table currently held under name, if any
func (s *JSONStore) entry(name string) (*rtab.Table, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	table, exists := s.tables[name]
	return table, exists
}

// restore puts back an entry after the file could not be written, so memory
// keeps matching what is on disk
func (s *JSONStore) restore(name string, table *rtab.Table, existed bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existed {
		s.tables[name] = table
	} else {
		delete(s.tables, name)
	}
}

func (s *JSONStore) Save(name string, table *rtab.Table) error {
	prev, existed := s.entry(name)
	if err := s.MemoryStore.Save(name, table); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		s.restore(name, prev, existed)
		return err
	}
	return nil
}

func (s *JSONStore) Delete(name string) error {
	prev, existed := s.entry(name)
	if err := s.MemoryStore.Delete(name); err != nil {
		return err
	}
	if err := s.save(); err != nil {
		s.restore(name, prev, existed)
		return err
	}
	return nil
}

func (s *JSONStore) Close() error {
	return s.save()
}
