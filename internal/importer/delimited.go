package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// StreamDelimited reads a delimited catalog file whose first row is the
// header of source-defined field names, and sends one Row per data record.
// A record with the wrong field count becomes a Row with Err set — the
// pipeline skips it and the reader keeps going. Both channels are closed
// when processing completes.
func StreamDelimited(ctx context.Context, r io.Reader, delimiter rune) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		reader := csv.NewReader(r)
		if delimiter != 0 {
			reader.Comma = delimiter
		}
		reader.LazyQuotes = true
		reader.FieldsPerRecord = -1

		header, err := reader.Read()
		if err == io.EOF {
			errCh <- fmt.Errorf("delimited: file is empty")
			return
		}
		if err != nil {
			errCh <- fmt.Errorf("delimited: read header: %w", err)
			return
		}
		for i := range header {
			header[i] = strings.TrimSpace(header[i])
		}

		rowNum := 0
		for {
			if ctx.Err() != nil {
				errCh <- fmt.Errorf("delimited: context cancelled: %w", ctx.Err())
				return
			}

			record, err := reader.Read()
			if err == io.EOF {
				return
			}

			rowNum++
			row := Row{Num: rowNum}

			switch {
			case err != nil:
				row.Err = fmt.Errorf("malformed record: %w", err)
			case len(record) != len(header):
				row.Err = fmt.Errorf("expected %d fields, got %d", len(header), len(record))
			default:
				row.Fields = make(map[string]string, len(header))
				for i, name := range header {
					row.Fields[name] = strings.TrimSpace(record[i])
				}
			}

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- fmt.Errorf("delimited: context cancelled: %w", ctx.Err())
				return
			}
		}
	}()

	return rowCh, errCh
}
