package importer

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/htmlindex"
)

// StreamXML decodes every element named elementName into a flat field map
// (attributes plus child-element character data) and sends it to a channel.
// ACES feeds vary in which fields are attributes and which are children, so
// both are collected under the same external name. Both channels are closed
// when processing completes; a value on the error channel is a structural
// failure of the file, not a row problem.
func StreamXML(ctx context.Context, r io.Reader, elementName string) (<-chan Row, <-chan error) {
	rowCh := make(chan Row, 64)
	errCh := make(chan error, 1)

	go func() {
		defer close(rowCh)
		defer close(errCh)

		decoder := xml.NewDecoder(r)
		decoder.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			enc, err := htmlindex.Get(charset)
			if err != nil {
				return nil, fmt.Errorf("xml: unsupported charset %q: %w", charset, err)
			}
			return enc.NewDecoder().Reader(input), nil
		}

		rowNum := 0
		for {
			if ctx.Err() != nil {
				errCh <- fmt.Errorf("xml: context cancelled: %w", ctx.Err())
				return
			}

			tok, err := decoder.Token()
			if err == io.EOF {
				return
			}
			if err != nil {
				errCh <- fmt.Errorf("xml: read token: %w", err)
				return
			}

			se, ok := tok.(xml.StartElement)
			if !ok || se.Name.Local != elementName {
				continue
			}

			rowNum++
			row := Row{Num: rowNum}
			row.Fields, row.Err = decodeElementFields(decoder, se)

			select {
			case rowCh <- row:
			case <-ctx.Done():
				errCh <- fmt.Errorf("xml: context cancelled: %w", ctx.Err())
				return
			}
		}
	}()

	return rowCh, errCh
}

// decodeElementFields flattens one row element: attributes first, then the
// trimmed character data of each direct child (child attributes like
// id="..." are kept under "<child>.<attr>").
func decodeElementFields(decoder *xml.Decoder, start xml.StartElement) (map[string]string, error) {
	fields := make(map[string]string)
	for _, attr := range start.Attr {
		fields[attr.Name.Local] = attr.Value
	}

	depth := 1
	var childName string
	var text strings.Builder

	for depth > 0 {
		tok, err := decoder.Token()
		if err != nil {
			return nil, fmt.Errorf("xml: row element truncated: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			depth++
			if depth == 2 {
				childName = t.Name.Local
				text.Reset()
				for _, attr := range t.Attr {
					fields[childName+"."+attr.Name.Local] = attr.Value
				}
			}
		case xml.CharData:
			if depth == 2 {
				text.Write(t)
			}
		case xml.EndElement:
			depth--
			if depth == 1 && childName != "" {
				if v := strings.TrimSpace(text.String()); v != "" {
					fields[childName] = v
				}
				childName = ""
			}
		}
	}

	return fields, nil
}
