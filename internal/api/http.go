package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/mark3labs/mcp-go/server"
)

// NewHTTPHandler exposes the MCP server over streamable HTTP at /mcp,
// plus a health endpoint. The catalog is read-only public data, so there
// is no authentication layer.
func NewHTTPHandler(mcpSrv *server.MCPServer) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	streamable := server.NewStreamableHTTPServer(mcpSrv)
	r.Handle("/mcp", streamable)
	r.Handle("/mcp/*", streamable)

	return r
}
