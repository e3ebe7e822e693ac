// Package importer stream-parses catalog-exchange (ACES) files row by row.
// Files can be large, so neither parser ever holds more than one row in
// memory; rows travel over a channel and respect context cancellation.
package importer

import (
	"strconv"

	"partstream/fitment-engine/internal/fitment"
	"partstream/fitment-engine/internal/models/dtos"
)

// Row is one parsed application row. Fields is keyed by the source-defined
// external field names; the import schema maps them to internal attributes.
// A non-nil Err marks a row the parser could read past but not decode — the
// pipeline records it as skipped and continues.
type Row struct {
	Num    int
	Fields map[string]string
	Err    error
}

// DecodeRow applies the field-mapping schema to a raw row, returning the
// referenced product id and the normalized criteria set.
func DecodeRow(schema *dtos.ImportSchema, fields map[string]string) (string, fitment.Criteria, error) {
	var crit fitment.Criteria
	var productID string

	for i := range schema.Fields {
		fm := &schema.Fields[i]
		val, err := fm.DecodeField(fields)
		if err != nil {
			return "", fitment.Criteria{}, err
		}
		if val == "" {
			continue
		}

		switch fm.InternalName {
		case dtos.AttrProductID:
			productID = val
		case dtos.AttrMake:
			crit.Make = val
		case dtos.AttrModel:
			crit.Model = val
		case dtos.AttrSubModel:
			crit.SubModel = val
		case dtos.AttrEngine:
			crit.Engine = val
		case dtos.AttrYearFrom:
			crit.YearFrom, _ = strconv.Atoi(val)
		case dtos.AttrYearTo:
			crit.YearTo, _ = strconv.Atoi(val)
		case dtos.AttrYear:
			y, _ := strconv.Atoi(val)
			crit.YearFrom, crit.YearTo = y, y
		default:
			if crit.Attrs == nil {
				crit.Attrs = make(map[string]string)
			}
			crit.Attrs[fm.InternalName] = val
		}
	}

	return productID, crit, nil
}
