// Package fetcher resolves an input location (local path, http(s) URL or ftp
// URL) and decodes it into an in-memory record table.
package fetcher

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/energy-etl/internal/model"
	"github.com/sells-group/energy-etl/internal/resilience"
)

// Fetcher downloads a remote resource.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Source opens input locations, dispatching on the URL scheme.
type Source struct {
	http   Fetcher
	ftp    Fetcher
	decode DecodeOptions
}

// SourceOptions configures the remote fetchers of a Source.
type SourceOptions struct {
	HTTP HTTPOptions
	FTP  FTPOptions
	CSV  CSVOptions
}

// NewSource creates a Source with HTTP and FTP fetchers.
func NewSource(opts SourceOptions) *Source {
	return &Source{
		http:   NewHTTPFetcher(opts.HTTP),
		ftp:    NewFTPFetcher(opts.FTP),
		decode: DecodeOptions{CSV: opts.CSV},
	}
}

// NewSourceWith creates a Source from explicit fetchers. Either may be nil,
// in which case that scheme is rejected.
func NewSourceWith(httpFetcher, ftpFetcher Fetcher) *Source {
	return &Source{http: httpFetcher, ftp: ftpFetcher}
}

// Open returns a reader for location. A missing local file yields an error
// matching fs.ErrNotExist.
func (s *Source) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(location, "http://"), strings.HasPrefix(location, "https://"):
		if s.http == nil {
			return nil, resilience.Permanent(eris.Errorf("fetcher: http source not configured for %s", location))
		}
		return s.http.Download(ctx, location)
	case strings.HasPrefix(location, "ftp://"):
		if s.ftp == nil {
			return nil, resilience.Permanent(eris.Errorf("fetcher: ftp source not configured for %s", location))
		}
		return s.ftp.Download(ctx, location)
	default:
		f, err := os.Open(location)
		if err != nil {
			return nil, eris.Wrapf(err, "fetcher: open %s", location)
		}
		return f, nil
	}
}

// ReadAll reads the whole resource at location.
func (s *Source) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, err := s.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", location)
	}
	return buf.Bytes(), nil
}

// ReadTable reads location and decodes it according to its extension.
func (s *Source) ReadTable(ctx context.Context, location string) (*model.Table, error) {
	format, err := FormatFor(location)
	if err != nil {
		return nil, err
	}
	data, err := s.ReadAll(ctx, location)
	if err != nil {
		return nil, err
	}
	t, err := Decode(ctx, format, data, s.decode)
	if err != nil {
		// A corrupt file does not heal on retry.
		return nil, resilience.Permanent(eris.Wrapf(err, "fetcher: decode %s", location))
	}
	zap.L().Debug("fetcher: table read",
		zap.String("location", location),
		zap.String("format", string(format)),
		zap.Int("rows", t.Len()),
		zap.Strings("columns", t.Columns),
	)
	return t, nil
}
