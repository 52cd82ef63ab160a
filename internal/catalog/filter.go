package catalog

// SearchFilter is a sparse component search. CategoryID is mandatory;
// every other field is optional and only contributes a predicate when
// set. All predicates are joined with AND — a caller wanting OR across
// fields issues separate searches.
//
// Match semantics, applied deliberately per field: ManufacturerPN and
// Description are SQLite LIKE patterns passed verbatim (the caller
// supplies the wildcards, nothing is escaped or added); Package is an
// exact match, since packages form a closed vocabulary ("0402",
// "SOT-23-5") where substring matching produces false positives.
type SearchFilter struct {
	CategoryID     int
	ManufacturerID *int
	ManufacturerPN string
	Description    string
	Package        string
	Basic          *bool
	Preferred      *bool
}

// Compile turns the filter into a WHERE clause body and its bound
// parameters. The category predicate always comes first so the generated
// text is deterministic. Every caller-supplied scalar is bound, never
// interpolated; the two booleans are the sole exception, rendered as
// literal 0/1 because their domain is closed.
func (f SearchFilter) Compile() (string, []any) {
	where := "category_id = ?"
	args := []any{f.CategoryID}

	if f.ManufacturerID != nil {
		where += " AND manufacturer_id = ?"
		args = append(args, *f.ManufacturerID)
	}
	if f.ManufacturerPN != "" {
		where += " AND mfr LIKE ?"
		args = append(args, f.ManufacturerPN)
	}
	if f.Description != "" {
		where += " AND description LIKE ?"
		args = append(args, f.Description)
	}
	if f.Package != "" {
		where += " AND package = ?"
		args = append(args, f.Package)
	}
	if f.Basic != nil {
		where += " AND basic = " + boolDigit(*f.Basic)
	}
	if f.Preferred != nil {
		where += " AND preferred = " + boolDigit(*f.Preferred)
	}

	return where, args
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
