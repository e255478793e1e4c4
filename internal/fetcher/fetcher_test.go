package fetcher

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/energy-etl/internal/resilience"
)

type stubFetcher struct {
	body string
	err  error
	urls []string
}

func (s *stubFetcher) Download(_ context.Context, url string) (io.ReadCloser, error) {
	s.urls = append(s.urls, url)
	if s.err != nil {
		return nil, s.err
	}
	return io.NopCloser(strings.NewReader(s.body)), nil
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		location string
		want     Format
		wantErr  bool
	}{
		{"data/energy.parquet", FormatParquet, false},
		{"data/ENERGY.PARQUET", FormatParquet, false},
		{"energy.json", FormatJSON, false},
		{"/tmp/energy.csv", FormatCSV, false},
		{"book.xlsx", FormatXLSX, false},
		{"drop.zip", FormatZIP, false},
		{"https://example.com/export/energy.csv?token=abc", FormatCSV, false},
		{"ftp://ftp.example.com/pub/energy.parquet", FormatParquet, false},
		{"energy.txt", "", true},
		{"energy", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			got, err := FormatFor(tt.location)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrUnsupportedFormat)
				assert.True(t, resilience.IsPermanent(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSource_ReadTable_Local(t *testing.T) {
	path := filepath.Join(t.TempDir(), "energy.csv")
	require.NoError(t, os.WriteFile(path, []byte("client_id,date\nA1,2023-01-01\n"), 0o644))

	tbl, err := NewSourceWith(nil, nil).ReadTable(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}

func TestSource_ReadTable_MissingLocalFile(t *testing.T) {
	_, err := NewSourceWith(nil, nil).ReadTable(context.Background(), filepath.Join(t.TempDir(), "absent.parquet"))
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.False(t, resilience.Retryable(err))
}

func TestSource_DispatchesByScheme(t *testing.T) {
	httpStub := &stubFetcher{body: `[{"client_id":"A1"}]`}
	ftpStub := &stubFetcher{body: "client_id\nA1\nA2\n"}
	src := NewSourceWith(httpStub, ftpStub)

	tbl, err := src.ReadTable(context.Background(), "https://example.com/energy.json")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
	assert.Equal(t, []string{"https://example.com/energy.json"}, httpStub.urls)

	tbl, err = src.ReadTable(context.Background(), "ftp://ftp.example.com/energy.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, []string{"ftp://ftp.example.com/energy.csv"}, ftpStub.urls)
}

func TestSource_UnconfiguredScheme(t *testing.T) {
	_, err := NewSourceWith(nil, nil).Open(context.Background(), "https://example.com/energy.csv")
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
}

func TestSource_DecodeErrorIsPermanent(t *testing.T) {
	src := NewSourceWith(&stubFetcher{body: `{"not": "an array"}`}, nil)
	_, err := src.ReadTable(context.Background(), "http://example.com/energy.json")
	require.Error(t, err)
	assert.True(t, resilience.IsPermanent(err))
}

func TestSource_FetchErrorPropagates(t *testing.T) {
	boom := errors.New("connection reset")
	src := NewSourceWith(&stubFetcher{err: boom}, nil)
	_, err := src.ReadTable(context.Background(), "http://example.com/energy.csv")
	assert.ErrorIs(t, err, boom)
}

func TestNewSource_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("client_id\nA1\n"))
	}))
	defer srv.Close()

	src := NewSource(SourceOptions{HTTP: HTTPOptions{RequestsPerSecond: 100}})
	tbl, err := src.ReadTable(context.Background(), srv.URL+"/energy.csv")
	require.NoError(t, err)
	assert.Equal(t, 1, tbl.Len())
}
