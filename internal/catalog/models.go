package catalog

import "errors"

// ErrNotFound is returned when a lookup matches no row. It signals
// absence, not failure: the query itself executed fine.
var ErrNotFound = errors.New("not found")

type Category struct {
	ID          int
	Category    string
	Subcategory string
}

type Manufacturer struct {
	ID   int
	Name string
}

// Component is one row of the components table. Price and Extra hold the
// raw JSON documents as stored; both may be NULL, empty, or malformed and
// are decoded lazily by the render layer.
type Component struct {
	LCSC           int // JLCPCB part number, numeric portion
	CategoryID     int
	ManufacturerID int
	MFR            string // manufacturer part number
	Basic          bool
	Preferred      bool
	Description    string
	Package        string
	Stock          int
	Price          []byte
	Extra          []byte
}

// Stats holds per-table row counts for the catalog.
type Stats struct {
	Categories    int `json:"categories"`
	Manufacturers int `json:"manufacturers"`
	Components    int `json:"components"`
}
