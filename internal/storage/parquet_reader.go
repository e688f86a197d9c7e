package storage

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/reader"
	"github.com/zakazai/hwdb-rtab/internal/rtab"
)

// ParquetReader reads archived tables back from Parquet files
type ParquetReader struct {
	dataDir string
}

// NewParquetReader creates a new ParquetReader
func NewParquetReader(dataDir string) *ParquetReader {
	return &ParquetReader{
		dataDir: dataDir,
	}
}

// ReadRecords returns every record of a table's archive file
func (r *ParquetReader) ReadRecords(tableName string) ([]ParquetRow, error) {
	filePath := filepath.Join(r.dataDir, tableName+parquetExt)

	fr, err := local.NewLocalFileReader(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Parquet file: %w", err)
	}
	defer fr.Close()

	pr, err := reader.NewParquetReader(fr, new(ParquetRow), 4)
	if err != nil {
		return nil, fmt.Errorf("failed to create Parquet reader: %w", err)
	}
	defer pr.ReadStop()

	numRows := int(pr.GetNumRows())
	records := make([]ParquetRow, numRows)
	if numRows == 0 {
		return records, nil
	}
	if err := pr.Read(&records); err != nil {
		return nil, fmt.Errorf("failed to read Parquet rows: %w", err)
	}
	return records, nil
}

// ReadTable rebuilds a table from its archive file
func (r *ParquetReader) ReadTable(tableName string) (*rtab.Table, error) {
	records, err := r.ReadRecords(tableName)
	if err != nil {
		return nil, err
	}

	var header *jsonTable
	var rows []ParquetRow
	for _, record := range records {
		if record.TableName != tableName {
			continue
		}
		switch record.Kind {
		case recordHeader:
			header = &jsonTable{}
			if err := json.Unmarshal([]byte(record.DataJSON), header); err != nil {
				return nil, fmt.Errorf("failed to unmarshal table header: %w", err)
			}
		case recordRow:
			rows = append(rows, record)
		}
	}
	if header == nil {
		return nil, fmt.Errorf("archive %s has no header record", tableName)
	}

	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Seq < rows[j].Seq })
	header.Rows = make([][]string, len(rows))
	for i, record := range rows {
		if err := json.Unmarshal([]byte(record.DataJSON), &header.Rows[i]); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row data: %w", err)
		}
	}
	return fromJSONTable(header)
}
