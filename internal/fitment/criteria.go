package fitment

import (
	"sort"
	"strconv"
	"strings"
)

// Criteria is the set of vehicle attribute constraints a mapping applies to.
// Empty strings and zero years mean "unconstrained" (wildcard). Attributes
// holds source-defined extras (position, drive type, ...) keyed by internal
// attribute name.
type Criteria struct {
	Make     string            `json:"make,omitempty"`
	Model    string            `json:"model,omitempty"`
	SubModel string            `json:"submodel,omitempty"`
	Engine   string            `json:"engine,omitempty"`
	YearFrom int               `json:"year_from,omitempty"`
	YearTo   int               `json:"year_to,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
}

// IsZero reports whether no attribute is constrained at all.
func (c Criteria) IsZero() bool {
	return c.Make == "" && c.Model == "" && c.SubModel == "" && c.Engine == "" &&
		c.YearFrom == 0 && c.YearTo == 0 && len(c.Attrs) == 0
}

// normalized year range; a single constrained bound closes the other side.
func (c Criteria) yearRange() (int, int, bool) {
	if c.YearFrom == 0 && c.YearTo == 0 {
		return 0, 0, false
	}
	from, to := c.YearFrom, c.YearTo
	if from == 0 {
		from = to
	}
	if to == 0 {
		to = from
	}
	return from, to, true
}

func stringsOverlap(a, b string) bool {
	if a == "" || b == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

// Overlaps reports whether two criteria sets are compatible: every
// constrained attribute either matches (case-insensitive) or one side leaves
// it unconstrained, and constrained year ranges intersect. This is the
// comparison that prevents duplicate mapping creation during import.
func (c Criteria) Overlaps(o Criteria) bool {
	if !stringsOverlap(c.Make, o.Make) ||
		!stringsOverlap(c.Model, o.Model) ||
		!stringsOverlap(c.SubModel, o.SubModel) ||
		!stringsOverlap(c.Engine, o.Engine) {
		return false
	}

	if aFrom, aTo, aOK := c.yearRange(); aOK {
		if bFrom, bTo, bOK := o.yearRange(); bOK {
			if aTo < bFrom || bTo < aFrom {
				return false
			}
		}
	}

	for k, v := range c.Attrs {
		if ov, ok := o.Attrs[k]; ok && !stringsOverlap(v, ov) {
			return false
		}
	}
	return true
}

// Equal reports strict attribute-by-attribute equality (case-insensitive
// strings, exact year bounds).
func (c Criteria) Equal(o Criteria) bool {
	if !strings.EqualFold(c.Make, o.Make) ||
		!strings.EqualFold(c.Model, o.Model) ||
		!strings.EqualFold(c.SubModel, o.SubModel) ||
		!strings.EqualFold(c.Engine, o.Engine) ||
		c.YearFrom != o.YearFrom || c.YearTo != o.YearTo {
		return false
	}
	if len(c.Attrs) != len(o.Attrs) {
		return false
	}
	for k, v := range c.Attrs {
		if ov, ok := o.Attrs[k]; !ok || !strings.EqualFold(v, ov) {
			return false
		}
	}
	return true
}

// Merge folds constraints from o into a copy of c, filling attributes c
// leaves unconstrained and widening the year range to cover both. Used by
// the merge-duplicates conflict policy.
func (c Criteria) Merge(o Criteria) Criteria {
	out := c
	if out.Make == "" {
		out.Make = o.Make
	}
	if out.Model == "" {
		out.Model = o.Model
	}
	if out.SubModel == "" {
		out.SubModel = o.SubModel
	}
	if out.Engine == "" {
		out.Engine = o.Engine
	}

	if aFrom, aTo, aOK := c.yearRange(); aOK {
		if bFrom, bTo, bOK := o.yearRange(); bOK {
			if bFrom < aFrom {
				out.YearFrom = bFrom
			} else {
				out.YearFrom = aFrom
			}
			if bTo > aTo {
				out.YearTo = bTo
			} else {
				out.YearTo = aTo
			}
		}
	} else if bFrom, bTo, bOK := o.yearRange(); bOK {
		out.YearFrom = bFrom
		out.YearTo = bTo
	}

	if len(o.Attrs) > 0 {
		merged := make(map[string]string, len(c.Attrs)+len(o.Attrs))
		for k, v := range c.Attrs {
			merged[k] = v
		}
		for k, v := range o.Attrs {
			if _, ok := merged[k]; !ok {
				merged[k] = v
			}
		}
		out.Attrs = merged
	}
	return out
}

// String renders a stable human-readable form, used in history snapshots
// and skip reasons.
func (c Criteria) String() string {
	var parts []string
	add := func(name, val string) {
		if val != "" {
			parts = append(parts, name+"="+val)
		}
	}
	add("make", c.Make)
	add("model", c.Model)
	add("submodel", c.SubModel)
	add("engine", c.Engine)
	if from, to, ok := c.yearRange(); ok {
		if from == to {
			parts = append(parts, "year="+strconv.Itoa(from))
		} else {
			parts = append(parts, "year="+strconv.Itoa(from)+"-"+strconv.Itoa(to))
		}
	}
	keys := make([]string, 0, len(c.Attrs))
	for k := range c.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, c.Attrs[k])
	}
	if len(parts) == 0 {
		return "any"
	}
	return strings.Join(parts, " ")
}

