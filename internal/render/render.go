// Package render turns catalog rows and their embedded JSON documents
// into markdown tables. Malformed or missing JSON in a single row
// degrades to a placeholder cell; it never fails the whole table.
package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/billmccartney/jlcpcb-parts-mcp/internal/catalog"
)

// NoInfo is the placeholder cell for price or attribute data that could
// not be decoded.
const NoInfo = "No info"

type priceTier struct {
	QFrom *json.Number `json:"qFrom"`
	QTo   *json.Number `json:"qTo"`
	Price *json.Number `json:"price"`
}

// PriceTiers renders the price JSON document as
// "<qFrom>-<qTo> <price>USD/pc" per tier, joined with ", ". Open-ended
// bounds (null) render as empty strings. Numbers render with their JSON
// literals intact, so re-rendering the same document is byte-identical.
func PriceTiers(raw []byte) string {
	tiers, err := decodePriceTiers(raw)
	if err != nil {
		slog.Debug("price document unusable", "error", err)
		return NoInfo
	}

	parts := make([]string, len(tiers))
	for i, t := range tiers {
		parts[i] = fmt.Sprintf("%s-%s %sUSD/pc", numberOrEmpty(t.QFrom), numberOrEmpty(t.QTo), *t.Price)
	}
	return strings.Join(parts, ", ")
}

func decodePriceTiers(raw []byte) ([]priceTier, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty price document")
	}
	var tiers []priceTier
	if err := json.Unmarshal(raw, &tiers); err != nil {
		return nil, err
	}
	for i, t := range tiers {
		// null bounds are fine; a missing or null price is not.
		if t.Price == nil {
			return nil, fmt.Errorf("tier %d has no price", i)
		}
	}
	return tiers, nil
}

func numberOrEmpty(n *json.Number) string {
	if n == nil {
		return ""
	}
	return n.String()
}

// Attributes renders extra.attributes as "<key>:<value>" pairs joined
// with ", ", preserving the document's key order. The decoder walks
// tokens instead of unmarshalling into a map, which would scramble the
// order.
func Attributes(extraRaw []byte) string {
	pairs, err := decodeAttributes(extraRaw)
	if err != nil {
		slog.Debug("attributes document unusable", "error", err)
		return NoInfo
	}

	parts := make([]string, len(pairs))
	for i, kv := range pairs {
		parts[i] = kv.key + ":" + kv.value
	}
	return strings.Join(parts, ", ")
}

type attrPair struct {
	key   string
	value string
}

func decodeAttributes(extraRaw []byte) ([]attrPair, error) {
	if len(extraRaw) == 0 {
		return nil, fmt.Errorf("empty extra document")
	}

	var extra struct {
		Attributes json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(extraRaw, &extra); err != nil {
		return nil, err
	}
	if len(extra.Attributes) == 0 {
		return nil, fmt.Errorf("extra has no attributes")
	}

	return walkObject(extra.Attributes)
}

// walkObject iterates a JSON object in document order, rendering each
// value as its bare scalar (strings unquoted, numbers verbatim).
func walkObject(raw json.RawMessage) ([]attrPair, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var pairs []attrPair
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("non-string key %v", keyTok)
		}

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		pairs = append(pairs, attrPair{key: key, value: scalarText(raw)})
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return pairs, nil
}

func scalarText(raw json.RawMessage) string {
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	// Numbers, booleans, null, and any nested document render as their
	// JSON text.
	return string(raw)
}

// OrderedValues iterates a JSON object in document order and returns its
// values as bare strings. The image selector uses it for the resolution
// label → URL manifest, whose order is assumed to track image size.
func OrderedValues(raw json.RawMessage) ([]string, error) {
	pairs, err := walkObject(raw)
	if err != nil {
		return nil, err
	}
	values := make([]string, len(pairs))
	for i, kv := range pairs {
		values[i] = kv.value
	}
	return values, nil
}

// CategoriesTable renders categories as a markdown table.
func CategoriesTable(categories []catalog.Category) string {
	var b strings.Builder
	b.WriteString("|Category ID|Category Name|Subcategory Name|\n|--|--|--|\n")
	for i, c := range categories {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "|%d|%s|%s|", c.ID, c.Category, c.Subcategory)
	}
	return b.String()
}

// SubcategoriesTable renders a subcategory search result.
func SubcategoriesTable(categories []catalog.Category) string {
	var b strings.Builder
	b.WriteString("|Category ID|Subcategory Name|\n|--|--|\n")
	for i, c := range categories {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "|%d|%s|", c.ID, c.Subcategory)
	}
	return b.String()
}

// ManufacturersTable renders manufacturers as a markdown table.
func ManufacturersTable(manufacturers []catalog.Manufacturer) string {
	var b strings.Builder
	b.WriteString("|Manufacturer ID|Manufacturer Name|\n|--|--|\n")
	for i, m := range manufacturers {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "|%d|%s|", m.ID, m.Name)
	}
	return b.String()
}

const componentsHeader = "|Part Number|Category ID|Manufacturer ID|Manufacturer PN|Basic Parts|Preferred Parts|Description|Package|Stock|Price|Attributes|\n|--|--|--|--|--|--|--|--|--|--|--|\n"

// ComponentsTable renders search results in query order, one line per
// part, with the price and attribute documents decoded per row.
func ComponentsTable(components []catalog.Component) string {
	var b strings.Builder
	b.WriteString(componentsHeader)
	for i, c := range components {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "|%d|%d|%d|%s|%s|%s|%s|%s|%d|%s|%s|",
			c.LCSC, c.CategoryID, c.ManufacturerID, c.MFR,
			boolDigit(c.Basic), boolDigit(c.Preferred),
			c.Description, c.Package, c.Stock,
			PriceTiers(c.Price), Attributes(c.Extra),
		)
	}
	return b.String()
}

func boolDigit(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
