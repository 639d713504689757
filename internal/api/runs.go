package api

import (
	"context"
	"errors"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/engine"
	"github.com/nerrad567/plantline/internal/pipeline"
	"github.com/nerrad567/plantline/internal/topology"
)

const (
	defaultRunListLimit = 50
	maxRunListLimit     = 500
)

// simulateRequest is the body of POST /runs/simulate. Either Opcodes or
// Rows must be given; Rows are planned with Policy and Colors first.
type simulateRequest struct {
	Backends []engine.Backend   `json:"backends" validate:"omitempty,dive,oneof=physical virtual"`
	Opcodes  []string           `json:"opcodes" validate:"required_without=Rows"`
	Rows     []topology.SlotRow `json:"rows" validate:"required_without=Opcodes"`
	Policy   string             `json:"policy" validate:"omitempty,oneof=automatic custom"`
	Colors   []string           `json:"colors" validate:"omitempty,dive,oneof=red green blue"`
}

// runAccepted is the 202 body of a started run.
type runAccepted struct {
	RunID    string           `json:"run_id"`
	Kind     engine.RunKind   `json:"kind"`
	Backends []engine.Backend `json:"backends"`
	Total    int              `json:"total"`
}

func (s *Server) handleStartScan(w http.ResponseWriter, _ *http.Request) {
	if !slices.Contains(s.engine.Backends(), engine.Physical) {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "physical back-end is not connected")
		return
	}

	id, ok := s.reserveRun()
	if !ok {
		writeConflict(w, engine.ErrRunInProgress.Error())
		return
	}
	s.startRun(id, func(ctx context.Context) error {
		_, _, err := s.engine.Scan(ctx, nil)
		return err
	})

	writeJSON(w, http.StatusAccepted, runAccepted{
		RunID:    id,
		Kind:     engine.KindScan,
		Backends: []engine.Backend{engine.Physical},
		Total:    len(command.ScanScript(command.ScanSlots)),
	})
}

func (s *Server) handleStartSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	cmds, ok := s.simulationCommands(w, req)
	if !ok {
		return
	}

	backends := req.Backends
	if len(backends) == 0 {
		backends = s.engine.Backends()
	}
	if len(backends) == 0 {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavailable, "no back-end is connected")
		return
	}

	id, ok := s.reserveRun()
	if !ok {
		writeConflict(w, engine.ErrRunInProgress.Error())
		return
	}
	s.startRun(id, func(ctx context.Context) error {
		_, err := s.engine.Simulate(ctx, cmds, backends, nil)
		return err
	})

	writeJSON(w, http.StatusAccepted, runAccepted{
		RunID:    id,
		Kind:     engine.KindSimulate,
		Backends: backends,
		Total:    len(cmds),
	})
}

func (s *Server) simulationCommands(w http.ResponseWriter, req simulateRequest) ([]command.Command, bool) {
	if len(req.Opcodes) > 0 {
		cmds := make([]command.Command, 0, len(req.Opcodes))
		for _, op := range req.Opcodes {
			parsed, err := command.Parse(op)
			if err != nil {
				writeValidationError(w, err.Error())
				return nil, false
			}
			cmds = append(cmds, command.Command{Opcode: op, Class: parsed.Class})
		}
		return cmds, true
	}

	opts, err := s.planOptions(req.Policy, req.Colors)
	if err != nil {
		writeValidationError(w, err.Error())
		return nil, false
	}
	cmds, err := pipeline.Plan(req.Rows, opts)
	if err != nil {
		s.writePipelineError(w, err)
		return nil, false
	}
	return cmds, true
}

// reserveRun claims the single run slot and returns the id of the new run.
func (s *Server) reserveRun() (string, bool) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if s.activeRun != "" || s.engine.Running() || s.runCtx.Err() != nil {
		return "", false
	}
	s.activeRun = engine.GenerateID()
	return s.activeRun, true
}

// startRun executes fn in the background under the server's run context.
func (s *Server) startRun(id string, fn func(ctx context.Context) error) {
	s.runWG.Add(1)
	go func() {
		defer s.runWG.Done()
		defer func() {
			s.runMu.Lock()
			s.activeRun = ""
			s.runMu.Unlock()
		}()

		if err := fn(engine.WithRunID(s.runCtx, id)); err != nil {
			s.logger.Warn("background run ended with error", "run_id", id, "error", err)
		}
	}()
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := defaultRunListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = min(n, maxRunListLimit)
	}

	runs, err := s.runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.Error("listing runs", "error", err)
		writeInternalError(w, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []engine.Run{}
	}

	s.runMu.Lock()
	active := s.activeRun
	s.runMu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{
		"runs":       runs,
		"count":      len(runs),
		"active_run": active,
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleListRunCommands(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	records, err := s.runs.ListCommands(r.Context(), run.ID)
	if err != nil {
		s.logger.Error("listing run commands", "run_id", run.ID, "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	if records == nil {
		records = []engine.CommandRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id":   run.ID,
		"commands": records,
		"count":    len(records),
	})
}

func (s *Server) handleGetScanResults(w http.ResponseWriter, r *http.Request) {
	run, ok := s.lookupRun(w, r)
	if !ok {
		return
	}
	if run.Kind != engine.KindScan {
		writeNotFound(w, "run is not a scan")
		return
	}
	rows, err := s.runs.GetScanResults(r.Context(), run.ID)
	if err != nil {
		s.logger.Error("reading scan results", "run_id", run.ID, "error", err)
		writeInternalError(w, "failed to read scan results")
		return
	}
	if rows == nil {
		rows = []topology.SlotRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"run_id": run.ID,
		"slots":  rows,
	})
}

func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request) (*engine.Run, bool) {
	id := chi.URLParam(r, "id")
	run, err := s.runs.GetRun(r.Context(), id)
	if errors.Is(err, engine.ErrRunNotFound) {
		writeNotFound(w, "run not found")
		return nil, false
	}
	if err != nil {
		s.logger.Error("reading run", "run_id", id, "error", err)
		writeInternalError(w, "failed to read run")
		return nil, false
	}
	return run, true
}
