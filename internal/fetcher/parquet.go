package fetcher

import (
	"bytes"
	"io"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
)

// naiveLayout formats timestamps not adjusted to UTC so that the normalizer
// treats them as local wall-clock time.
const naiveLayout = "2006-01-02 15:04:05.999999999"

// parquetLeaf describes how values of one leaf column land in a row.
type parquetLeaf struct {
	name     string        // top-level field the leaf belongs to
	repeated bool          // list column: values are collected into []any
	tsUnit   time.Duration // non-zero for TIMESTAMP columns
	tsUTC    bool
}

// ReadParquet decodes a parquet file. Top-level fields form the table's
// shape; list columns become []any, TIMESTAMP columns become time.Time (or a
// naive timestamp string when not adjusted to UTC) and byte arrays become
// strings.
func ReadParquet(data []byte) (*model.Table, error) {
	f, err := parquet.OpenFile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "parquet: open file")
	}

	schema := f.Schema()
	t := &model.Table{}
	for _, field := range schema.Fields() {
		t.AddColumn(field.Name())
	}

	var leaves []parquetLeaf
	for _, path := range schema.Columns() {
		leaf := parquetLeaf{name: path[0]}
		if col, ok := schema.Lookup(path...); ok {
			leaf.repeated = col.MaxRepetitionLevel > 0
			if lt := col.Node.Type().LogicalType(); lt != nil && lt.Timestamp != nil {
				leaf.tsUTC = lt.Timestamp.IsAdjustedToUTC
				switch {
				case lt.Timestamp.Unit.Millis != nil:
					leaf.tsUnit = time.Millisecond
				case lt.Timestamp.Unit.Micros != nil:
					leaf.tsUnit = time.Microsecond
				default:
					leaf.tsUnit = time.Nanosecond
				}
			}
		}
		leaves = append(leaves, leaf)
	}

	buf := make([]parquet.Row, 128)
	for _, rg := range f.RowGroups() {
		if err := readRowGroup(rg, leaves, buf, t); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func readRowGroup(rg parquet.RowGroup, leaves []parquetLeaf, buf []parquet.Row, t *model.Table) error {
	rows := rg.Rows()
	defer rows.Close() //nolint:errcheck

	for {
		n, err := rows.ReadRows(buf)
		for _, r := range buf[:n] {
			t.Rows = append(t.Rows, decodeParquetRow(r, leaves))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return eris.Wrap(err, "parquet: read rows")
		}
		if n == 0 {
			return nil
		}
	}
}

func decodeParquetRow(r parquet.Row, leaves []parquetLeaf) model.Row {
	row := make(model.Row, len(leaves))
	for _, v := range r {
		idx := v.Column()
		if idx < 0 || idx >= len(leaves) {
			continue
		}
		leaf := leaves[idx]
		if !leaf.repeated {
			if v.IsNull() {
				row[leaf.name] = nil
			} else {
				row[leaf.name] = parquetValue(v, leaf)
			}
			continue
		}

		list, _ := row[leaf.name].([]any)
		if v.IsNull() {
			// A null list (definition level 0) stays missing; an empty
			// list is kept as such.
			if _, ok := row[leaf.name]; !ok && v.DefinitionLevel() > 0 {
				row[leaf.name] = []any{}
			} else if !ok {
				row[leaf.name] = nil
			}
			continue
		}
		row[leaf.name] = append(list, parquetValue(v, leaf))
	}
	return row
}

func parquetValue(v parquet.Value, leaf parquetLeaf) any {
	switch v.Kind() {
	case parquet.Boolean:
		return v.Boolean()
	case parquet.Int32:
		return v.Int32()
	case parquet.Int64:
		if leaf.tsUnit != 0 {
			ts := time.Unix(0, v.Int64()*int64(leaf.tsUnit)).UTC()
			if !leaf.tsUTC {
				return ts.Format(naiveLayout)
			}
			return ts
		}
		return v.Int64()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Double:
		return v.Double()
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return string(v.ByteArray())
	default:
		return v.String()
	}
}
