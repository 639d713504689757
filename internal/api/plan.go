package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nerrad567/plantline/internal/command"
	"github.com/nerrad567/plantline/internal/compiler"
	"github.com/nerrad567/plantline/internal/pipeline"
	"github.com/nerrad567/plantline/internal/plant"
	"github.com/nerrad567/plantline/internal/topology"
	"github.com/nerrad567/plantline/internal/transport"
)

var validate = validator.New()

// rowsRequest carries a slot table as JSON.
type rowsRequest struct {
	Rows []topology.SlotRow `json:"rows" validate:"required,min=1"`
}

// planRequest is the body of POST /plan.
type planRequest struct {
	Rows   []topology.SlotRow `json:"rows" validate:"required,min=1"`
	Policy string             `json:"policy" validate:"omitempty,oneof=automatic custom"`
	Colors []string           `json:"colors" validate:"omitempty,dive,oneof=red green blue"`
}

// planResponse lists the commands a plan produces.
type planResponse struct {
	Count    int               `json:"count"`
	Commands []command.Command `json:"commands"`
}

// handleTopology turns a slot table into a topology document. The table
// is a ';' separated CSV when the content type is text/csv, JSON otherwise.
func (s *Server) handleTopology(w http.ResponseWriter, r *http.Request) {
	rows, ok := s.readRows(w, r)
	if !ok {
		return
	}

	doc, err := pipeline.ExportTopology(rows, s.plantCfg.Hierarchy, nil)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := doc.Write(&buf); err != nil {
		s.logger.Error("encoding topology document", "error", err)
		writeInternalError(w, "failed to encode document")
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(buf.Bytes())
}

func (s *Server) readRows(w http.ResponseWriter, r *http.Request) ([]topology.SlotRow, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type")) //nolint:errcheck // empty type falls through to JSON
	if mediaType == "text/csv" {
		rows, err := topology.ReadCSV(r.Body)
		if err != nil {
			s.writePipelineError(w, err)
			return nil, false
		}
		return rows, true
	}

	var req rowsRequest
	if !decodeAndValidate(w, r, &req) {
		return nil, false
	}
	return req.Rows, true
}

// handlePlan runs the pipeline in memory and returns the command list.
func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	var req planRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	opts, err := s.planOptions(req.Policy, req.Colors)
	if err != nil {
		writeValidationError(w, err.Error())
		return
	}

	cmds, err := pipeline.Plan(req.Rows, opts)
	if err != nil {
		s.writePipelineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse{Count: len(cmds), Commands: cmds})
}

// planOptions fills the policy and colors from the planner configuration
// when the request leaves them out.
func (s *Server) planOptions(policy string, colors []string) (pipeline.PlanOptions, error) {
	if policy == "" {
		policy = s.planCfg.Policy
	}
	if len(colors) == 0 {
		colors = s.planCfg.ColorSequence
	}
	if policy == "" {
		return pipeline.PlanOptions{Policy: transport.Automatic, Colors: colors}, nil
	}
	p, err := transport.ParsePolicy(policy)
	if err != nil {
		return pipeline.PlanOptions{}, err
	}
	return pipeline.PlanOptions{Policy: p, Colors: colors}, nil
}

// writePipelineError maps domain errors to 422 and the rest to 500.
func (s *Server) writePipelineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, topology.ErrMalformedInput),
		errors.Is(err, topology.ErrUnknownColorOrType),
		errors.Is(err, transport.ErrUnknownPolicy),
		errors.Is(err, compiler.ErrMissingProduct),
		errors.Is(err, compiler.ErrInvalidPair),
		errors.Is(err, plant.ErrLookupNotFound),
		errors.Is(err, plant.ErrLookupAmbiguous),
		errors.Is(err, command.ErrUnknownOpcode),
		errors.Is(err, command.ErrMissingParameter):
		writeValidationError(w, err.Error())
	default:
		s.logger.Error("pipeline failed", "error", err)
		writeInternalError(w, "failed to build plan")
	}
}

// decodeAndValidate reads a JSON body into v and validates its tags.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(v); err != nil {
		writeValidationError(w, formatValidationError(err))
		return false
	}
	return true
}

func formatValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	if fe.Param() != "" {
		return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
	}
	return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
}
