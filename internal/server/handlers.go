package server

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fraudy/flowgraph/pkg/buildinfo"
	ferrors "github.com/fraudy/flowgraph/pkg/errors"
	"github.com/fraudy/flowgraph/pkg/pipeline"
	"github.com/fraudy/flowgraph/pkg/theme"
)

// Response headers describing how an artifact was produced.
const (
	SeedHeader  = "X-Flowgraph-Seed"
	CacheHeader = "X-Flowgraph-Cache"
)

// =============================================================================
// Health
// =============================================================================

// HealthResponse is the /healthz body.
type HealthResponse struct {
	Status    string            `json:"status"`
	Service   string            `json:"service"`
	Timestamp string            `json:"timestamp"`
	Uptime    string            `json:"uptime"`
	Build     map[string]string `json:"build"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "healthy",
		Service:   "flowgraph",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(s.started).Round(time.Second).String(),
		Build:     buildinfo.Fields(),
	})
}

// =============================================================================
// Graphs
// =============================================================================

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	s.serveArtifact(w, r, chi.URLParam(r, "address"), pipeline.FormatJSON)
}

func (s *Server) handleArtifact(w http.ResponseWriter, r *http.Request) {
	file := chi.URLParam(r, "file")
	ext := path.Ext(file)
	address, format := strings.TrimSuffix(file, ext), strings.TrimPrefix(ext, ".")
	if format == "" {
		format = pipeline.FormatSVG
	}
	s.serveArtifact(w, r, address, format)
}

func (s *Server) serveArtifact(w http.ResponseWriter, r *http.Request, address, format string) {
	address, err := url.PathUnescape(address)
	if err != nil {
		writeError(w, r, ferrors.Wrap(ferrors.ErrCodeInvalidAddress, err, "address"))
		return
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		writeError(w, r, err)
		return
	}
	opts, err := s.options(r.URL.Query())
	if err != nil {
		writeError(w, r, err)
		return
	}
	opts.Address = address
	opts.Formats = []string{format}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()
	res, err := s.runner.Execute(ctx, opts)
	if err != nil {
		if ferrors.HTTPStatus(err) >= http.StatusInternalServerError {
			s.logger.Error("render failed", "address", address, "format", format, "error", err)
		}
		writeError(w, r, err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", pipeline.ContentTypes[format])
	h.Set(SeedHeader, strconv.FormatUint(res.Seed, 10))
	switch {
	case !res.CacheInfo.Cacheable:
		h.Set(CacheHeader, "bypass")
		h.Set("Cache-Control", "no-store")
	case res.CacheInfo.RenderHit:
		h.Set(CacheHeader, "hit")
		h.Set("Cache-Control", "public, max-age=3600")
	default:
		h.Set(CacheHeader, "miss")
		h.Set("Cache-Control", "public, max-age=3600")
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Artifacts[format])
}

// options overlays the query parameters on the server defaults.
func (s *Server) options(q url.Values) (pipeline.Options, error) {
	opts := s.defaults
	ints := []struct {
		name string
		dst  *int
	}{
		{"depth", &opts.MaxDepth},
		{"iterations", &opts.Iterations},
	}
	for _, p := range ints {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, ferrors.New(ferrors.ErrCodeInvalidOptions, "%s: %q is not an integer", p.name, v)
		}
		*p.dst = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return opts, ferrors.New(ferrors.ErrCodeInvalidOptions, "seed: %q is not an unsigned integer", v)
		}
		opts.Seed = n
	}
	for _, name := range []string{"refresh", "tooltips"} {
		v := q.Get(name)
		if v == "" {
			continue
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, ferrors.New(ferrors.ErrCodeInvalidOptions, "%s: %q is not a boolean", name, v)
		}
		if name == "refresh" {
			opts.Refresh = b
		} else {
			opts.Tooltips = b
		}
	}
	if v := q.Get("theme"); v != "" {
		opts.Theme = v
	}
	if v := q.Get("engine"); v != "" {
		opts.Engine = v
	}
	return opts, nil
}

// =============================================================================
// Search page
// =============================================================================

var indexTmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{if .Address}}{{.Address}} · {{end}}Transaction flow</title>
<style>
body { font-family: system-ui, sans-serif; margin: 0; background: {{.Background}}; color: {{.Foreground}}; }
form { padding: 12px 16px; display: flex; gap: 8px; }
input[name=address] { flex: 1; font-family: monospace; padding: 6px; }
object { display: block; width: 100%; height: calc(100vh - 60px); }
</style>
</head>
<body>
<form method="get" action="/">
<input name="address" value="{{.Address}}" placeholder="Account address" autofocus>
<select name="theme">
<option value="light"{{if eq .Theme "light"}} selected{{end}}>light</option>
<option value="dark"{{if eq .Theme "dark"}} selected{{end}}>dark</option>
</select>
<button type="submit">Show flow</button>
</form>
{{if .Address}}<object type="image/svg+xml" data="{{.Src}}"></object>{{end}}
</body>
</html>
`))

type indexData struct {
	Address    string
	Theme      string
	Src        string
	Background string
	Foreground string
}

// handleIndex serves the search page. Submitting an address replaces the
// embedded drawing; the browser discards the previous document, listeners
// included.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := s.defaults
	if v := q.Get("theme"); v != "" {
		opts.Theme = v
	}
	if _, err := theme.ParseMode(opts.Theme); err != nil {
		writeError(w, r, ferrors.Wrap(ferrors.ErrCodeInvalidTheme, err, "theme"))
		return
	}
	address := strings.TrimSpace(q.Get("address"))
	p := opts.Palette()
	data := indexData{
		Address:    address,
		Theme:      opts.Theme,
		Background: p.Color(theme.TokenBackground),
		Foreground: p.Color(theme.TokenTooltipFG),
	}
	if address != "" {
		src := url.URL{Path: "/graph/" + address + ".svg", RawQuery: url.Values{"theme": {opts.Theme}}.Encode()}
		data.Src = src.String()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTmpl.Execute(w, data); err != nil {
		s.logger.Error("index template", "error", err)
	}
}

// =============================================================================
// Responses
// =============================================================================

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

func errNotFound(p string) error {
	return ferrors.New(ferrors.ErrCodeNotFound, "no route for %s", p)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := ferrors.HTTPStatus(err)
	msg := ferrors.UserMessage(err)
	if status >= http.StatusInternalServerError && status != http.StatusGatewayTimeout {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, ErrorResponse{
		Error:     msg,
		Code:      string(ferrors.GetCode(err)),
		RequestID: RequestID(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
