package fetcher

import (
	"archive/zip"
	"bytes"
	"context"
	"io"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
)

// ReadZIP decodes an archive holding exactly one data file in a supported
// format. Directories and entries with other extensions are ignored.
func ReadZIP(ctx context.Context, data []byte, opts DecodeOptions) (*model.Table, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, eris.Wrap(err, "zip: open archive")
	}

	var entry *zip.File
	var format Format
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		ff, err := FormatFor(f.Name)
		if err != nil || ff == FormatZIP {
			continue
		}
		if entry != nil {
			return nil, eris.Errorf("zip: expected exactly 1 data file, found %s and %s", entry.Name, f.Name)
		}
		entry, format = f, ff
	}
	if entry == nil {
		return nil, eris.New("zip: no data file in archive")
	}

	rc, err := entry.Open()
	if err != nil {
		return nil, eris.Wrap(err, "zip: open entry")
	}
	defer rc.Close() //nolint:errcheck

	inner, err := io.ReadAll(rc)
	if err != nil {
		return nil, eris.Wrapf(err, "zip: read %s", entry.Name)
	}
	return Decode(ctx, format, inner, opts)
}
