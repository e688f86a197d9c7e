package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
	"github.com/zakazai/hwdb-rtab/internal/types"
)

const parquetExt = ".parquet"

// Record kinds inside an archive file
const (
	recordHeader = "header"
	recordRow    = "row"
)

// ParquetRow is one record of an archived table. The first record is the
// header (schema and status); each following record holds one row's cells.
type ParquetRow struct {
	TableName string `parquet:"name=table_name, type=BYTE_ARRAY, convertedtype=UTF8"`
	Kind      string `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8"`
	Seq       int64  `parquet:"name=seq, type=INT64"`
	DataJSON  string `parquet:"name=data_json, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// ParquetStore archives each table in its own SNAPPY-compressed Parquet file
type ParquetStore struct {
	baseDir string
	reader  *ParquetReader
	logger  *types.Logger
	mu      sync.RWMutex
}

// NewParquetStore creates a store rooted at dataDir
func NewParquetStore(dataDir string, logger *types.Logger) (*ParquetStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &ParquetStore{
		baseDir: dataDir,
		reader:  NewParquetReader(dataDir),
		logger:  logger.OrGlobal(),
	}, nil
}

func (s *ParquetStore) path(name string) string {
	return filepath.Join(s.baseDir, name+parquetExt)
}

func (s *ParquetStore) Save(name string, table *rtab.Table) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	// write next to the target and rename, so a failed write keeps the old archive
	tmp := s.path(name) + ".tmp"
	if err := s.writeParquetFile(tmp, name, table); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write archive %s: %w", name, err)
	}
	if err := os.Rename(tmp, s.path(name)); err != nil {
		return err
	}
	s.logger.Debug("archived table %s (%d rows) to %s", name, table.NumRows(), s.path(name))
	return nil
}

func (s *ParquetStore) writeParquetFile(filePath, name string, table *rtab.Table) error {
	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return err
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(ParquetRow), 4)
	if err != nil {
		return err
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	jt := toJSONTable(table)
	rows := jt.Rows
	jt.Rows = nil
	header, err := json.Marshal(jt)
	if err != nil {
		return err
	}
	if err := pw.Write(&ParquetRow{TableName: name, Kind: recordHeader, DataJSON: string(header)}); err != nil {
		return err
	}

	for i, row := range rows {
		cells, err := json.Marshal(row)
		if err != nil {
			return err
		}
		record := &ParquetRow{
			TableName: name,
			Kind:      recordRow,
			Seq:       int64(i),
			DataJSON:  string(cells),
		}
		if err := pw.Write(record); err != nil {
			return err
		}
	}

	return pw.WriteStop()
}

func (s *ParquetStore) Load(name string) (*rtab.Table, error) {
	if err := checkName(name); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, err := os.Stat(s.path(name)); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return s.reader.ReadTable(name)
}

func (s *ParquetStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), parquetExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), parquetExt))
	}
	sort.Strings(names)
	return names, nil
}

func (s *ParquetStore) Delete(name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(name)); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return err
	}
	return nil
}

func (s *ParquetStore) Close() error {
	// Nothing to close
	return nil
}
