package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/billmccartney/jlcpcb-parts-mcp/internal/catalog"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/datasheet"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/image"
	"github.com/billmccartney/jlcpcb-parts-mcp/internal/render"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store   *catalog.Store
	Fetcher image.Fetcher // outbound image/datasheet fetches
}

// NewMCPServer creates an MCP server with all catalog tools and
// resources registered.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"jlcpcb-parts",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("jlcpcb-parts — read-only JLCPCB electronic component catalog: categories, manufacturers, and part search with pricing and attributes."),
		server.WithRecovery(),
		server.WithToolHandlerMiddleware(toolLogging()),
	)

	// Tools
	s.AddTool(
		mcp.NewTool("list_categories",
			mcp.WithDescription("Get the list of JLCPCB part categories"),
		),
		mcpListCategories(deps),
	)

	s.AddTool(
		mcp.NewTool("list_manufacturers",
			mcp.WithDescription("Get the list of JLCPCB part manufacturers"),
		),
		mcpListManufacturers(deps),
	)

	s.AddTool(
		mcp.NewTool("get_category",
			mcp.WithDescription("Get the category name and subcategory name from a category ID"),
			mcp.WithNumber("category_id", mcp.Description("Category ID"), mcp.Required(), mcp.Min(1)),
		),
		mcpGetCategory(deps),
	)

	s.AddTool(
		mcp.NewTool("get_manufacturer",
			mcp.WithDescription("Get the manufacturer name from a manufacturer ID"),
			mcp.WithNumber("manufacturer_id", mcp.Description("Manufacturer ID"), mcp.Required(), mcp.Min(1)),
		),
		mcpGetManufacturer(deps),
	)

	s.AddTool(
		mcp.NewTool("search_manufacturer",
			mcp.WithDescription("Search manufacturers by partial name match and get their IDs"),
			mcp.WithString("name", mcp.Description("Partial manufacturer name"), mcp.Required()),
		),
		mcpSearchManufacturer(deps),
	)

	s.AddTool(
		mcp.NewTool("search_subcategories",
			mcp.WithDescription("Search subcategories by name and get their category IDs"),
			mcp.WithString("name", mcp.Description("Partial subcategory name"), mcp.Required()),
		),
		mcpSearchSubcategories(deps),
	)

	s.AddTool(
		mcp.NewTool("get_datasheet_url",
			mcp.WithDescription("Get the datasheet URL for a JLCPCB part number (numeric part only)"),
			mcp.WithNumber("part_id", mcp.Description("JLCPCB part number, numeric portion"), mcp.Required(), mcp.Min(1)),
		),
		mcpGetDatasheetURL(deps),
	)

	s.AddTool(
		mcp.NewTool("get_datasheet_text",
			mcp.WithDescription("Fetch a part's datasheet PDF and return its plain text"),
			mcp.WithNumber("part_id", mcp.Description("JLCPCB part number, numeric portion"), mcp.Required(), mcp.Min(1)),
		),
		mcpGetDatasheetText(deps),
	)

	s.AddTool(
		mcp.NewTool("get_part_image",
			mcp.WithDescription("Get the product image for a JLCPCB part number (numeric part only)"),
			mcp.WithNumber("part_id", mcp.Description("JLCPCB part number, numeric portion"), mcp.Required(), mcp.Min(1)),
		),
		mcpGetPartImage(deps),
	)

	s.AddTool(
		mcp.NewTool("search_parts",
			mcp.WithDescription("Search for JLCPCB parts. All supplied fields are combined with AND; issue separate searches for OR semantics or notation variants (e.g. presence/absence of hyphens)."),
			mcp.WithNumber("category_id", mcp.Description("Valid category ID, obtain from the list_categories tool"), mcp.Required(), mcp.Min(1)),
			mcp.WithNumber("manufacturer_id", mcp.Description("Valid manufacturer ID, obtain from the search_manufacturer or list_manufacturers tools"), mcp.Min(1)),
			mcp.WithString("manufacturer_pn", mcp.Description("Manufacturer part number, specified as a SQLite LIKE pattern")),
			mcp.WithString("description", mcp.Description("Description text (not part number), specified as a SQLite LIKE pattern")),
			mcp.WithString("package", mcp.Description("Exact package name, e.g. 0402")),
			mcp.WithBoolean("is_basic_parts", mcp.Description("Restrict to basic (true) or extended (false) parts; omit for both")),
			mcp.WithBoolean("is_preferred_parts", mcp.Description("Restrict to preferred (true) or non-preferred (false) parts; omit for both")),
		),
		mcpSearchParts(deps),
	)

	// Resources
	s.AddResource(
		mcp.NewResource(
			"catalog://stats",
			"Catalog Statistics",
			mcp.WithResourceDescription("Row counts for the categories, manufacturers, and components tables"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	return s
}

// toolLogging tags every invocation with a request id so concurrent tool
// calls can be told apart in the log.
func toolLogging() server.ToolHandlerMiddleware {
	return func(next server.ToolHandlerFunc) server.ToolHandlerFunc {
		return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			id := uuid.New().String()[:8]
			start := time.Now()

			result, err := next(ctx, req)

			attrs := []any{"id", id, "tool", req.Params.Name, "duration", time.Since(start)}
			switch {
			case err != nil:
				slog.Error("tool call failed", append(attrs, "error", err)...)
			case result != nil && result.IsError:
				slog.Warn("tool call rejected", attrs...)
			default:
				slog.Debug("tool call", attrs...)
			}
			return result, err
		}
	}
}

func mcpListCategories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		categories, err := deps.Store.Categories(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing categories: %v", err)), nil
		}
		return mcpText(render.CategoriesTable(categories)), nil
	}
}

func mcpListManufacturers(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		manufacturers, err := deps.Store.Manufacturers(ctx)
		if err != nil {
			return mcpError(fmt.Sprintf("listing manufacturers: %v", err)), nil
		}
		return mcpText(render.ManufacturersTable(manufacturers)), nil
	}
}

func mcpGetCategory(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requirePositiveInt(req, "category_id")
		if err != nil {
			return mcpError(err.Error()), nil
		}

		c, err := deps.Store.CategoryByID(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return mcpText(fmt.Sprintf("No category with ID %d", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("looking up category: %v", err)), nil
		}
		return mcpText(fmt.Sprintf("Category: %s, Subcategory: %s", c.Category, c.Subcategory)), nil
	}
}

func mcpGetManufacturer(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requirePositiveInt(req, "manufacturer_id")
		if err != nil {
			return mcpError(err.Error()), nil
		}

		m, err := deps.Store.ManufacturerByID(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return mcpText(fmt.Sprintf("No manufacturer with ID %d", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("looking up manufacturer: %v", err)), nil
		}
		return mcpText(m.Name), nil
	}
}

func mcpSearchManufacturer(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		manufacturers, err := deps.Store.SearchManufacturers(ctx, name)
		if err != nil {
			return mcpError(fmt.Sprintf("searching manufacturers: %v", err)), nil
		}
		if len(manufacturers) == 0 {
			return mcpText(fmt.Sprintf("No manufacturers matching %q", name)), nil
		}
		return mcpText(render.ManufacturersTable(manufacturers)), nil
	}
}

func mcpSearchSubcategories(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		name, err := req.RequireString("name")
		if err != nil {
			return mcpError("name is required"), nil
		}

		categories, err := deps.Store.SearchSubcategories(ctx, name)
		if err != nil {
			return mcpError(fmt.Sprintf("searching subcategories: %v", err)), nil
		}
		if len(categories) == 0 {
			return mcpText(fmt.Sprintf("No subcategories matching %q", name)), nil
		}
		return mcpText(render.SubcategoriesTable(categories)), nil
	}
}

func mcpGetDatasheetURL(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requirePositiveInt(req, "part_id")
		if err != nil {
			return mcpError(err.Error()), nil
		}

		url, err := deps.Store.DatasheetURL(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return mcpText(fmt.Sprintf("No datasheet for part %d", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("looking up datasheet: %v", err)), nil
		}
		return mcpText(url), nil
	}
}

func mcpGetDatasheetText(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requirePositiveInt(req, "part_id")
		if err != nil {
			return mcpError(err.Error()), nil
		}

		url, err := deps.Store.DatasheetURL(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return mcpText(fmt.Sprintf("No datasheet for part %d", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("looking up datasheet: %v", err)), nil
		}

		data, err := deps.Fetcher.Fetch(ctx, url)
		if err != nil {
			return mcpError(fmt.Sprintf("fetching datasheet: %v", err)), nil
		}

		text, err := datasheet.Extract(data, 0)
		if err != nil {
			return mcpError(fmt.Sprintf("extracting datasheet text: %v", err)), nil
		}
		return mcpText(text), nil
	}
}

func mcpGetPartImage(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id, err := requirePositiveInt(req, "part_id")
		if err != nil {
			return mcpError(err.Error()), nil
		}

		extra, err := deps.Store.ComponentExtra(ctx, id)
		if errors.Is(err, catalog.ErrNotFound) {
			return mcpText(fmt.Sprintf("No part with ID %d", id)), nil
		}
		if err != nil {
			return mcpError(fmt.Sprintf("looking up part: %v", err)), nil
		}

		img, err := image.Select(ctx, extra, deps.Fetcher)
		if err != nil {
			// Best-effort feature: malformed manifests, odd URLs, and
			// fetch failures all degrade to "no image".
			slog.Warn("image selection failed", "part", id, "error", err)
			return mcpText(fmt.Sprintf("No image available for part %d", id)), nil
		}

		return &mcp.CallToolResult{
			Content: []mcp.Content{
				mcp.ImageContent{
					Type:     "image",
					Data:     base64.StdEncoding.EncodeToString(img.Data),
					MIMEType: "image/" + img.Format,
				},
			},
		}, nil
	}
}

func mcpSearchParts(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		filter, err := filterFromRequest(req)
		if err != nil {
			return mcpError(err.Error()), nil
		}

		components, err := deps.Store.SearchComponents(ctx, filter)
		if err != nil {
			return mcpError(fmt.Sprintf("searching parts: %v", err)), nil
		}
		return mcpText(render.ComponentsTable(components)), nil
	}
}

// filterFromRequest builds the search filter from tool arguments. The
// tri-state booleans are read by argument presence: an omitted flag adds
// no predicate, which is not the same as false.
func filterFromRequest(req mcp.CallToolRequest) (catalog.SearchFilter, error) {
	categoryID, err := requirePositiveInt(req, "category_id")
	if err != nil {
		return catalog.SearchFilter{}, err
	}

	filter := catalog.SearchFilter{
		CategoryID:     categoryID,
		ManufacturerPN: req.GetString("manufacturer_pn", ""),
		Description:    req.GetString("description", ""),
		Package:        req.GetString("package", ""),
	}

	args := req.GetArguments()
	if _, ok := args["manufacturer_id"]; ok {
		id := req.GetInt("manufacturer_id", 0)
		if id < 1 {
			return catalog.SearchFilter{}, fmt.Errorf("manufacturer_id must be >= 1")
		}
		filter.ManufacturerID = &id
	}

	for name, dst := range map[string]**bool{
		"is_basic_parts":     &filter.Basic,
		"is_preferred_parts": &filter.Preferred,
	} {
		raw, ok := args[name]
		if !ok {
			continue
		}
		b, ok := raw.(bool)
		if !ok {
			return catalog.SearchFilter{}, fmt.Errorf("%s must be a boolean", name)
		}
		*dst = &b
	}

	return filter, nil
}

func requirePositiveInt(req mcp.CallToolRequest, key string) (int, error) {
	v, err := req.RequireInt(key)
	if err != nil {
		return 0, fmt.Errorf("%s is required and must be an integer", key)
	}
	if v < 1 {
		return 0, fmt.Errorf("%s must be >= 1", key)
	}
	return v, nil
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		stats, err := deps.Store.Stats(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading catalog stats: %w", err)
		}

		b, err := json.Marshal(stats)
		if err != nil {
			return nil, fmt.Errorf("marshalling stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
