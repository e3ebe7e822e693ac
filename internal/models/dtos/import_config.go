package dtos

import (
	"fmt"
	"strconv"
	"strings"

	"partstream/fitment-engine/internal/constants"
)

// Internal attribute names the import schema may bind to.
const (
	AttrProductID = "product_id"
	AttrMake      = "make"
	AttrModel     = "model"
	AttrSubModel  = "submodel"
	AttrEngine    = "engine"
	AttrYearFrom  = "year_from"
	AttrYearTo    = "year_to"
	AttrYear      = "year" // single-year sources, expands to from==to
)

// FieldMapping binds one source-defined field to an internal attribute.
// ACES trading partners disagree on field names and order, so the schema is
// configuration, not code.
type FieldMapping struct {
	InternalName string  `json:"internal_name"` // what this core calls it
	ExternalName string  `json:"external_name"` // what the source file calls it
	DataType     string  `json:"data_type"`     // "string", "int"
	Required     bool    `json:"required"`
	DefaultValue *string `json:"default_value,omitempty"`
}

// ImportSchema describes how to read one catalog-exchange file.
type ImportSchema struct {
	// RowElement names the XML element holding one application row
	// (commonly "App"); ignored for delimited files.
	RowElement string         `json:"row_element,omitempty"`
	Delimiter  string         `json:"delimiter,omitempty"` // delimited files, default ","
	Fields     []FieldMapping `json:"fields"`
}

// GetFieldMapping returns the mapping for an internal name, or nil.
func (s *ImportSchema) GetFieldMapping(internalName string) *FieldMapping {
	for i := range s.Fields {
		if s.Fields[i].InternalName == internalName {
			return &s.Fields[i]
		}
	}
	return nil
}

// HasField checks if the schema binds a specific internal field name.
func (s *ImportSchema) HasField(internalName string) bool {
	return s.GetFieldMapping(internalName) != nil
}

// DecodeField applies the mapping to a raw row (external name → raw string
// value): default substitution, required check, typed decode. A zero value
// with ok=false means the field is absent and optional.
func (f *FieldMapping) DecodeField(row map[string]string) (string, error) {
	raw, ok := row[f.ExternalName]
	raw = strings.TrimSpace(raw)
	if (!ok || raw == "") && f.DefaultValue != nil {
		raw = *f.DefaultValue
	}
	if raw == "" {
		if f.Required {
			return "", fmt.Errorf("required field %q (%s) is empty", f.ExternalName, f.InternalName)
		}
		return "", nil
	}
	if f.DataType == "int" {
		if _, err := strconv.Atoi(raw); err != nil {
			return "", fmt.Errorf("field %q (%s): %q is not an integer", f.ExternalName, f.InternalName, raw)
		}
	}
	return raw, nil
}

// ImportParams configures one import run.
type ImportParams struct {
	// TrustedSource marks the feed as auto-validating: cleanly created or
	// merged mappings become Validated with provenance system-import.
	TrustedSource bool `json:"trusted_source"`

	// DryRun parses and reports without writing anything.
	DryRun bool `json:"dry_run"`

	ConflictPolicy constants.ConflictPolicy `json:"conflict_policy"`

	Schema ImportSchema `json:"schema"`
}

// Normalize fills defaults and validates the parameter set.
func (p *ImportParams) Normalize() error {
	if p.ConflictPolicy == "" {
		p.ConflictPolicy = constants.PolicyMergeDuplicates
	}
	switch p.ConflictPolicy {
	case constants.PolicySkipDuplicates, constants.PolicyMergeDuplicates, constants.PolicyOverwrite:
	default:
		return fmt.Errorf("unknown conflict policy %q", p.ConflictPolicy)
	}
	if p.Schema.RowElement == "" {
		p.Schema.RowElement = "App"
	}
	if p.Schema.Delimiter == "" {
		p.Schema.Delimiter = ","
	}
	if !p.Schema.HasField(AttrProductID) {
		return fmt.Errorf("import schema must bind %q", AttrProductID)
	}
	return nil
}
