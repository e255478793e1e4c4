package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/energy-etl/internal/model"
)

// DecodeJSONArray decodes a JSON array streaming, sending each element to a channel.
// Expects input in the form [{...},{...}].
// Both channels are closed when processing completes.
func DecodeJSONArray[T any](ctx context.Context, r io.Reader) (<-chan T, <-chan error) {
	outCh := make(chan T, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(outCh)
		defer close(errCh)

		decoder := json.NewDecoder(r)

		tok, err := decoder.Token()
		if err != nil {
			if err == io.EOF {
				return
			}
			errCh <- eris.Wrap(err, "json: read opening token")
			return
		}

		delim, ok := tok.(json.Delim)
		if !ok || delim != '[' {
			errCh <- eris.Errorf("json: expected '[', got %v", tok)
			return
		}

		for decoder.More() {
			if ctx.Err() != nil {
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}

			var item T
			if err := decoder.Decode(&item); err != nil {
				errCh <- eris.Wrap(err, "json: decode element")
				return
			}

			select {
			case outCh <- item:
			case <-ctx.Done():
				errCh <- eris.Wrap(ctx.Err(), "json: context cancelled")
				return
			}
		}

		if _, err := decoder.Token(); err != nil && err != io.EOF {
			errCh <- eris.Wrap(err, "json: read closing token")
		}
	}()

	return outCh, errCh
}

// ReadJSON decodes a JSON array of objects. The table's shape is the sorted
// union of keys across all objects; a key absent from an object is a missing
// value in that row.
func ReadJSON(ctx context.Context, data []byte) (*model.Table, error) {
	outCh, errCh := DecodeJSONArray[map[string]any](ctx, bytes.NewReader(data))

	t := &model.Table{}
	seen := map[string]bool{}
	for obj := range outCh {
		for k := range obj {
			seen[k] = true
		}
		t.Rows = append(t.Rows, model.Row(obj))
	}
	if err := <-errCh; err != nil {
		return nil, err
	}

	for k := range seen {
		t.Columns = append(t.Columns, k)
	}
	sort.Strings(t.Columns)
	return t, nil
}
