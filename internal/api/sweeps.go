package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/siepic/ebeam-cdc/internal/httputil"
	"github.com/siepic/ebeam-cdc/internal/sweep"
)

func (s *Server) handleStartSweep(w http.ResponseWriter, r *http.Request) {
	var req sweep.Request
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Record && s.db == nil {
		writeError(w, errNoDatabase)
		return
	}
	// the sweep outlives the request
	id, err := s.runner.Start(context.Background(), req)
	if err != nil {
		if !errors.Is(err, sweep.ErrInProgress) {
			err = fmt.Errorf("%w: %v", errBadRequest, err)
		}
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, map[string]string{"id": id, "status": string(sweep.StatusRunning)})
}

func (s *Server) handleSweepState(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.runner.State())
}

func (s *Server) handleStopSweep(w http.ResponseWriter, r *http.Request) {
	s.runner.Stop()
	httputil.WriteJSONOK(w, map[string]string{"status": "stopping"})
}
