package mcp

import (
	"crypto/subtle"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/server"
)

// ServeHTTP serves the MCP tools over streamable HTTP at /mcp. A non-empty
// apiKey guards /mcp with a bearer token; /healthz stays open.
func ServeHTTP(addr, apiKey string) error {
	srv := &http.Server{
		Addr:    addr,
		Handler: newHTTPHandler(apiKey),
		// recommend_listings with detail enrichment can take minutes.
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 180 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	log.Printf("%s MCP HTTP server listening on %s", serverName, addr)
	return srv.ListenAndServe()
}

func newHTTPHandler(apiKey string) http.Handler {
	var tools http.Handler = server.NewStreamableHTTPServer(newServer(), server.WithStateLess(true))
	if apiKey != "" {
		tools = requireToken(apiKey, tools)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/mcp", tools)
	return mux
}

func requireToken(apiKey string, next http.Handler) http.Handler {
	want := []byte(apiKey)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		switch {
		case !ok:
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			w.Header().Set("WWW-Authenticate", `Bearer realm="mcp", error="invalid_token"`)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func bearerToken(r *http.Request) (string, bool) {
	token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !found || token == "" {
		return "", false
	}
	return token, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
