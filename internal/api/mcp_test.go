package api

import (
	"context"
	"database/sql"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	_ "modernc.org/sqlite"

	"github.com/billmccartney/jlcpcb-parts-mcp/internal/catalog"
)

// --- mocks ---

type mockFetcher struct {
	data map[string][]byte
	err  error
	urls []string
}

func (m *mockFetcher) Fetch(_ context.Context, url string) ([]byte, error) {
	m.urls = append(m.urls, url)
	if m.err != nil {
		return nil, m.err
	}
	return m.data[url], nil
}

// --- helpers ---

const fixtureSchema = `
CREATE TABLE categories (id INTEGER PRIMARY KEY, category TEXT NOT NULL, subcategory TEXT NOT NULL);
CREATE TABLE manufacturers (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE components (
	lcsc INTEGER PRIMARY KEY, category_id INTEGER NOT NULL, manufacturer_id INTEGER NOT NULL,
	mfr TEXT NOT NULL, basic INTEGER NOT NULL, preferred INTEGER NOT NULL,
	description TEXT NOT NULL, package TEXT NOT NULL, stock INTEGER NOT NULL,
	datasheet TEXT, price TEXT, extra TEXT
);
INSERT INTO categories VALUES (1, 'Resistors', 'Chip Resistor - Surface Mount');
INSERT INTO categories VALUES (5, 'Capacitors', 'MLCC');
INSERT INTO manufacturers VALUES (10, 'UNI-ROYAL(Uniroyal Elec)');
INSERT INTO components VALUES (25804, 5, 10, 'RC0402FR-0710KL', 1, 0, 'basic 10k', '0402', 5000,
	'https://datasheet.example.com/25804.pdf',
	'[{"qFrom":1,"qTo":null,"price":0.001}]',
	'{"attributes":{"Resistance":"10k","Tolerance":"1%"},"images":[{"s":"https://img.example.com/s.jpg","m":"https://img.example.com/m.jpg","l":"https://img.example.com/l.jpg"}]}');
INSERT INTO components VALUES (25805, 5, 10, 'RC0402FR-0712KL', 0, 0, 'extended 12k', '0402', 100,
	NULL, 'oops', '{"images":[{}]}');
`

func newTestDeps(t *testing.T) MCPDeps {
	t.Helper()

	path := filepath.Join(t.TempDir(), "parts.db")
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("creating fixture db: %v", err)
	}
	if _, err := db.Exec(fixtureSchema); err != nil {
		t.Fatalf("seeding fixture: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("closing fixture db: %v", err)
	}

	store, err := catalog.Open(path)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	return MCPDeps{
		Store: store,
		Fetcher: &mockFetcher{data: map[string][]byte{
			"https://img.example.com/m.jpg": []byte("jpegbytes"),
		}},
	}
}

func makeCallToolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("no content in result")
	}
	tc, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected TextContent, got %T", result.Content[0])
	}
	return tc.Text
}

// --- tests ---

func TestMCPTool_ListCategories(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpListCategories(deps)

	result, err := handler(context.Background(), makeCallToolRequest("list_categories", nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	text := toolText(t, result)
	if !strings.HasPrefix(text, "|Category ID|Category Name|Subcategory Name|") {
		t.Errorf("missing header: %q", text)
	}
	if !strings.Contains(text, "|1|Resistors|Chip Resistor - Surface Mount|") {
		t.Errorf("missing row: %q", text)
	}
}

func TestMCPTool_GetCategory(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetCategory(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_category", map[string]interface{}{
		"category_id": 1,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "Category: Resistors, Subcategory: Chip Resistor - Surface Mount" {
		t.Errorf("text = %q", got)
	}
}

func TestMCPTool_GetCategory_NotFound(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetCategory(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_category", map[string]interface{}{
		"category_id": 999,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Absence is not a tool error.
	if result.IsError {
		t.Fatal("not-found must not be reported as an error")
	}
	if got := toolText(t, result); !strings.Contains(got, "999") {
		t.Errorf("text = %q", got)
	}
}

func TestMCPTool_GetCategory_InvalidID(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetCategory(deps)

	for _, args := range []map[string]interface{}{
		nil,
		{"category_id": 0},
		{"category_id": "five"},
	} {
		result, err := handler(context.Background(), makeCallToolRequest("get_category", args))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !result.IsError {
			t.Errorf("args %v should be rejected", args)
		}
	}
}

func TestMCPTool_GetManufacturer(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetManufacturer(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_manufacturer", map[string]interface{}{
		"manufacturer_id": 10,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "UNI-ROYAL(Uniroyal Elec)" {
		t.Errorf("text = %q", got)
	}
}

func TestMCPTool_SearchManufacturer(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpSearchManufacturer(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_manufacturer", map[string]interface{}{
		"name": "ROYAL",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); !strings.Contains(got, "|10|UNI-ROYAL(Uniroyal Elec)|") {
		t.Errorf("text = %q", got)
	}

	// Zero matches: explicit absence, not an error.
	result, err = handler(context.Background(), makeCallToolRequest("search_manufacturer", map[string]interface{}{
		"name": "nobody",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Error("zero matches must not be an error")
	}
}

func TestMCPTool_SearchSubcategories(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpSearchSubcategories(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_subcategories", map[string]interface{}{
		"name": "MLCC",
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); !strings.Contains(got, "|5|MLCC|") {
		t.Errorf("text = %q", got)
	}
}

func TestMCPTool_GetDatasheetURL(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetDatasheetURL(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_datasheet_url", map[string]interface{}{
		"part_id": 25804,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := toolText(t, result); got != "https://datasheet.example.com/25804.pdf" {
		t.Errorf("text = %q", got)
	}

	// NULL datasheet behaves as absent.
	result, err = handler(context.Background(), makeCallToolRequest("get_datasheet_url", map[string]interface{}{
		"part_id": 25805,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Error("missing datasheet must not be an error")
	}
}

func TestMCPTool_GetPartImage(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetPartImage(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_part_image", map[string]interface{}{
		"part_id": 25804,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	img, ok := result.Content[0].(mcp.ImageContent)
	if !ok {
		t.Fatalf("expected ImageContent, got %T", result.Content[0])
	}
	if img.MIMEType != "image/jpeg" {
		t.Errorf("MIMEType = %q, want image/jpeg (middle manifest entry is a .jpg)", img.MIMEType)
	}
	data, err := base64.StdEncoding.DecodeString(img.Data)
	if err != nil {
		t.Fatalf("decoding image data: %v", err)
	}
	if string(data) != "jpegbytes" {
		t.Errorf("data = %q", data)
	}

	fetcher := deps.Fetcher.(*mockFetcher)
	if len(fetcher.urls) != 1 || fetcher.urls[0] != "https://img.example.com/m.jpg" {
		t.Errorf("fetched %v, want the middle URL", fetcher.urls)
	}
}

func TestMCPTool_GetPartImage_Degrades(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpGetPartImage(deps)

	// Part 25805 has an empty image manifest; part 999 does not exist.
	// Both produce a not-found text result, never an error.
	for _, id := range []int{25805, 999} {
		result, err := handler(context.Background(), makeCallToolRequest("get_part_image", map[string]interface{}{
			"part_id": id,
		}))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if result.IsError {
			t.Errorf("part %d: image absence must not be an error", id)
		}
	}
}

func TestMCPTool_GetPartImage_FetchFailure(t *testing.T) {
	deps := newTestDeps(t)
	deps.Fetcher = &mockFetcher{err: fmt.Errorf("connection refused")}
	handler := mcpGetPartImage(deps)

	result, err := handler(context.Background(), makeCallToolRequest("get_part_image", map[string]interface{}{
		"part_id": 25804,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsError {
		t.Error("fetch failure must fold into not-found")
	}
}

func TestMCPTool_SearchParts(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpSearchParts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_parts", map[string]interface{}{
		"category_id": 5,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := toolText(t, result)
	if !strings.Contains(text, "|25804|") || !strings.Contains(text, "|25805|") {
		t.Errorf("expected both parts in:\n%s", text)
	}
	if !strings.Contains(text, "1- 0.001USD/pc") {
		t.Errorf("price cell missing:\n%s", text)
	}
	if !strings.Contains(text, "Resistance:10k, Tolerance:1%") {
		t.Errorf("attribute cell missing:\n%s", text)
	}
	// The row with malformed price still renders, with the fallback.
	if !strings.Contains(text, "|No info|") {
		t.Errorf("fallback cell missing:\n%s", text)
	}
}

func TestMCPTool_SearchParts_BasicFilter(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpSearchParts(deps)

	result, err := handler(context.Background(), makeCallToolRequest("search_parts", map[string]interface{}{
		"category_id":    5,
		"is_basic_parts": true,
	}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	text := toolText(t, result)
	if !strings.Contains(text, "|25804|") {
		t.Errorf("basic part missing:\n%s", text)
	}
	if strings.Contains(text, "|25805|") {
		t.Errorf("extended part should be excluded:\n%s", text)
	}
}

func TestMCPTool_SearchParts_InvalidInput(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpSearchParts(deps)

	for name, args := range map[string]map[string]interface{}{
		"missing category":        {},
		"category below range":    {"category_id": 0},
		"bad manufacturer":        {"category_id": 5, "manufacturer_id": 0},
		"non-boolean basic field": {"category_id": 5, "is_basic_parts": "yes"},
	} {
		result, err := handler(context.Background(), makeCallToolRequest("search_parts", args))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", name, err)
		}
		if !result.IsError {
			t.Errorf("%s: expected rejection", name)
		}
	}
}

func TestFilterFromRequest_TriState(t *testing.T) {
	req := makeCallToolRequest("search_parts", map[string]interface{}{
		"category_id":        5,
		"is_preferred_parts": false,
	})

	filter, err := filterFromRequest(req)
	if err != nil {
		t.Fatalf("filterFromRequest: %v", err)
	}
	if filter.Basic != nil {
		t.Error("is_basic_parts was not supplied; filter must leave it unset")
	}
	if filter.Preferred == nil || *filter.Preferred {
		t.Errorf("is_preferred_parts=false not captured: %v", filter.Preferred)
	}
}

func TestMCPResource_Stats(t *testing.T) {
	deps := newTestDeps(t)
	handler := mcpResourceStats(deps)

	contents, err := handler(context.Background(), mcp.ReadResourceRequest{
		Params: mcp.ReadResourceParams{URI: "catalog://stats"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(contents) != 1 {
		t.Fatalf("got %d contents", len(contents))
	}

	text := contents[0].(mcp.TextResourceContents).Text
	var stats catalog.Stats
	if err := json.Unmarshal([]byte(text), &stats); err != nil {
		t.Fatalf("parsing stats: %v", err)
	}
	if stats.Categories != 2 || stats.Manufacturers != 1 || stats.Components != 2 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestNewMCPServerRegisters(t *testing.T) {
	deps := newTestDeps(t)
	if s := NewMCPServer(deps); s == nil {
		t.Fatal("NewMCPServer returned nil")
	}
}
