package api

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/siepic/ebeam-cdc/internal/httputil"
	"github.com/siepic/ebeam-cdc/internal/layout"
)

// handleLayout produces the configured cell. ?format selects json
// (default), svg or text (the canonical shape stream).
func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "svg" && format != "text" {
		httputil.BadRequest(w, fmt.Sprintf("unsupported format %q", format))
		return
	}

	cfg, err := s.decodeConfig(r)
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := cfg.CellKind()
	if err != nil {
		writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	rec := layout.NewRecorder(cfg.GetDBU())
	cell, err := layout.Produce(kind, cfg.Spec(), cfg.LayoutOptions(), rec)
	if err != nil {
		writeError(w, err)
		return
	}

	var (
		buf         bytes.Buffer
		contentType string
	)
	switch format {
	case "svg":
		err = rec.WriteSVG(&buf, s.layers, layout.DefaultSVGOptions())
		contentType = "image/svg+xml"
	case "text":
		err = rec.WriteCanonical(&buf)
		contentType = "text/plain; charset=utf-8"
	default:
		err = rec.WriteJSON(&buf, cell)
		contentType = "application/json"
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("X-Layout-Hash", rec.Hash())
	httputil.WriteBody(w, contentType, buf.Bytes())
}
