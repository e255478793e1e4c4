package fetcher

import (
	"bytes"
	"context"
	"encoding/csv"
	"io"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/energy-etl/internal/model"
)

// CSVOptions configures the streaming CSV parser.
type CSVOptions struct {
	Delimiter  rune // default ','
	Comment    rune // comment character (0 = none)
	LazyQuotes bool
	TrimSpace  bool
	Charset    string // WHATWG encoding label, e.g. "windows-1257"; empty means UTF-8
}

// charsetReader decodes r from the named charset to UTF-8.
func charsetReader(r io.Reader, charset string) (io.Reader, error) {
	if charset == "" {
		return r, nil
	}
	enc, err := htmlindex.Get(charset)
	if err != nil {
		return nil, eris.Wrapf(err, "csv: unsupported charset %q", charset)
	}
	return enc.NewDecoder().Reader(r), nil
}

// StreamCSV reads CSV rows and sends them to a channel.
// Caller must consume the returned row channel. Errors are sent on the error channel.
// Both channels are closed when processing completes.
func StreamCSV(ctx context.Context, r io.Reader, opts CSVOptions) (<-chan []string, <-chan error) {
	rowCh := make(chan []string, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		in, err := charsetReader(r, opts.Charset)
		if err != nil {
			errCh <- err
			return
		}

		reader := csv.NewReader(in)
		if opts.Delimiter != 0 {
			reader.Comma = opts.Delimiter
		}
		if opts.Comment != 0 {
			reader.Comment = opts.Comment
		}
		reader.LazyQuotes = opts.LazyQuotes
		reader.FieldsPerRecord = -1 // allow variable fields

		for {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- eris.Wrap(err, "csv: read row")
				return
			}

			if opts.TrimSpace {
				for i, field := range record {
					record[i] = strings.TrimSpace(field)
				}
			}

			select {
			case rowCh <- record:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "csv: context cancelled")
				return
			}
		}
	}()

	return rowCh, errCh
}

// ReadCSV decodes CSV data whose first row is the header. Empty cells are
// missing values; every other cell is kept as a string.
func ReadCSV(ctx context.Context, data []byte, opts CSVOptions) (*model.Table, error) {
	rowCh, errCh := StreamCSV(ctx, bytes.NewReader(data), opts)

	t := &model.Table{}
	var header []string
	for record := range rowCh {
		if header == nil {
			header = record
			if len(header) > 0 {
				header[0] = strings.TrimPrefix(header[0], "\ufeff")
			}
			for _, h := range header {
				t.AddColumn(h)
			}
			continue
		}
		t.Rows = append(t.Rows, cellsToRow(header, record))
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	return t, nil
}

// cellsToRow zips a header with string cells. Short rows leave trailing
// columns missing.
func cellsToRow(header, cells []string) model.Row {
	row := make(model.Row, len(header))
	for i, h := range header {
		if i >= len(cells) || cells[i] == "" {
			row[h] = nil
			continue
		}
		row[h] = cells[i]
	}
	return row
}
