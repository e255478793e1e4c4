package fetcher

import (
	"context"
	"net/url"
	"path"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/resilience"
)

// Format is an input file format.
type Format string

const (
	FormatParquet Format = "parquet"
	FormatJSON    Format = "json"
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatZIP     Format = "zip"
)

// ErrUnsupportedFormat is returned for a location whose extension has no
// decoder.
var ErrUnsupportedFormat = eris.New("unsupported input format")

// FormatFor infers the format from the location's extension. Query strings
// and fragments of URLs are ignored.
func FormatFor(location string) (Format, error) {
	p := location
	if u, err := url.Parse(location); err == nil && u.Scheme != "" && u.Path != "" {
		p = u.Path
	}
	switch strings.ToLower(path.Ext(p)) {
	case ".parquet", ".pq":
		return FormatParquet, nil
	case ".json":
		return FormatJSON, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".zip":
		return FormatZIP, nil
	}
	return "", resilience.Permanent(eris.Wrapf(ErrUnsupportedFormat, "fetcher: %s", location))
}

// DecodeOptions configures the format decoders.
type DecodeOptions struct {
	CSV CSVOptions
}

// Decode parses data in the given format into a table.
func Decode(ctx context.Context, format Format, data []byte, opts DecodeOptions) (*model.Table, error) {
	switch format {
	case FormatParquet:
		return ReadParquet(data)
	case FormatJSON:
		return ReadJSON(ctx, data)
	case FormatCSV:
		return ReadCSV(ctx, data, opts.CSV)
	case FormatXLSX:
		return ReadXLSX(data, XLSXOptions{})
	case FormatZIP:
		return ReadZIP(ctx, data, opts)
	}
	return nil, resilience.Permanent(eris.Wrapf(ErrUnsupportedFormat, "fetcher: format %q", format))
}
