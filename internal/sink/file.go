package sink

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/model"
)

// Format is an output file format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatCSV     Format = "csv"
	FormatJSONL   Format = "jsonl"
)

// ErrUnsupportedFormat is returned for an output format with no encoder.
var ErrUnsupportedFormat = eris.New("unsupported output format")

// FormatFor returns override when set, otherwise infers the format from the
// path's extension. Unknown extensions fall back to parquet.
func FormatFor(path, override string) (Format, error) {
	if override != "" {
		switch f := Format(strings.ToLower(override)); f {
		case FormatParquet, FormatCSV, FormatJSONL:
			return f, nil
		}
		return "", eris.Wrapf(ErrUnsupportedFormat, "sink: format %q", override)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV, nil
	case ".jsonl", ".ndjson":
		return FormatJSONL, nil
	}
	return FormatParquet, nil
}

// FileWriter writes observations to a local file. The file is replaced
// atomically so a failed attempt never leaves a partial output behind.
type FileWriter struct {
	path   string
	format Format
}

// NewFileWriter creates a FileWriter for path. format may be empty.
func NewFileWriter(path, format string) (*FileWriter, error) {
	if path == "" {
		return nil, eris.New("sink: output path is required")
	}
	f, err := FormatFor(path, format)
	if err != nil {
		return nil, err
	}
	return &FileWriter{path: path, format: f}, nil
}

// WriteObservations implements ObservationWriter.
func (w *FileWriter) WriteObservations(_ context.Context, obs []model.Observation) error {
	rows := ObservationRows(obs)
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.Values()
	}
	if err := writeFile(w.path, w.format, rows, ObservationColumns, values); err != nil {
		return err
	}
	zap.L().Info("sink: observations written",
		zap.String("path", w.path),
		zap.String("format", string(w.format)),
		zap.Int("rows", len(rows)),
	)
	return nil
}

// Close implements ObservationWriter.
func (w *FileWriter) Close() error { return nil }

// WriteDropped archives dropped records to path.
func WriteDropped(path, format string, dropped []model.DroppedRecord) error {
	f, err := FormatFor(path, format)
	if err != nil {
		return err
	}
	rows := DroppedRows(dropped)
	values := make([][]any, len(rows))
	for i, r := range rows {
		values[i] = r.values()
	}
	if err := writeFile(path, f, rows, DroppedColumns, values); err != nil {
		return err
	}
	zap.L().Info("sink: dropped rows archived",
		zap.String("path", path),
		zap.Int("rows", len(rows)),
	)
	return nil
}

func writeFile[T any](path string, format Format, rows []T, columns []string, values [][]any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "sink: create directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return eris.Wrapf(err, "sink: create temp file for %s", path)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if err := encode(tmp, format, rows, columns, values); err != nil {
		_ = tmp.Close()
		return eris.Wrapf(err, "sink: encode %s as %s", path, format)
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrapf(err, "sink: close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "sink: rename to %s", path)
	}
	return nil
}

func encode[T any](w io.Writer, format Format, rows []T, columns []string, values [][]any) error {
	switch format {
	case FormatParquet:
		return parquet.Write(w, rows)
	case FormatCSV:
		cw := csv.NewWriter(w)
		if err := cw.Write(columns); err != nil {
			return err
		}
		for _, v := range values {
			if err := cw.Write(csvRecord(v)); err != nil {
				return err
			}
		}
		cw.Flush()
		return cw.Error()
	case FormatJSONL:
		enc := json.NewEncoder(w)
		for _, r := range rows {
			if err := enc.Encode(r); err != nil {
				return err
			}
		}
		return nil
	}
	return eris.Wrapf(ErrUnsupportedFormat, "sink: format %q", format)
}
