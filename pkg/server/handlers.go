package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"mercator-hq/underwriter/pkg/orchestrator"
	"mercator-hq/underwriter/pkg/pipeline"
)

func (s *Server) handleDecision(w http.ResponseWriter, r *http.Request) {
	rec, errResp, status := s.decodeRecord(w, r)
	if errResp != nil {
		writeError(w, status, errResp)
		return
	}

	decision, err := s.engine.Evaluate(r.Context(), rec)
	if err != nil {
		var noEngine *orchestrator.NoValidEngineError
		var compileErr *pipeline.CompilationError
		switch {
		case errors.As(err, &noEngine):
			writeError(w, http.StatusUnprocessableEntity,
				newError(err.Error(), ErrorTypeUnprocessable, "", CodeNoValidEngine))
		case errors.As(err, &compileErr):
			s.logger.ErrorContext(r.Context(), "strategy compilation failed", "error", err)
			writeError(w, http.StatusInternalServerError,
				newError(err.Error(), ErrorTypeServerError, "", CodeCompileFailed))
		default:
			s.logger.ErrorContext(r.Context(), "evaluation failed", "error", err)
			writeError(w, http.StatusInternalServerError,
				newError("evaluation failed", ErrorTypeServerError, "", CodeInternalError))
		}
		return
	}

	writeJSON(w, http.StatusOK, decision)
}

// decodeRecord reads the application record from the request body. The
// body must be a single JSON object no larger than MaxBodyBytes.
func (s *Server) decodeRecord(w http.ResponseWriter, r *http.Request) (map[string]any, *ErrorResponse, int) {
	body := io.Reader(r.Body)
	if s.config.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.config.MaxBodyBytes)
	}

	var rec map[string]any
	if err := json.NewDecoder(body).Decode(&rec); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, newError("application record exceeds the maximum size", ErrorTypeInvalidRequest, "", CodeRequestTooLarge), http.StatusRequestEntityTooLarge
		}
		return nil, newError("request body must be a JSON object: "+err.Error(), ErrorTypeInvalidRequest, "", CodeInvalidJSON), http.StatusBadRequest
	}
	if rec == nil {
		return nil, newError("request body must be a JSON object", ErrorTypeInvalidRequest, "", CodeInvalidJSON), http.StatusBadRequest
	}
	if err := pipeline.CheckReserved(rec); err != nil {
		var reserved *pipeline.ReservedKeyError
		errors.As(err, &reserved)
		return nil, newError(err.Error(), ErrorTypeInvalidRequest, reserved.Key, CodeInvalidValue), http.StatusBadRequest
	}
	return rec, nil, 0
}

// ReloadResponse is returned by POST /v1/strategies/reload.
type ReloadResponse struct {
	Engines int       `json:"engines"`
	BuiltAt time.Time `json:"built_at"`
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	set, err := s.engine.Reload(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "strategy reload failed", "error", err)
		writeError(w, http.StatusInternalServerError,
			newError(err.Error(), ErrorTypeServerError, "", CodeCompileFailed))
		return
	}
	s.logger.InfoContext(r.Context(), "strategies reloaded", "engines", set.Len())
	writeJSON(w, http.StatusOK, ReloadResponse{Engines: set.Len(), BuiltAt: set.BuiltAt()})
}

// EngineSummary describes one loaded engine.
type EngineSummary struct {
	Name         string   `json:"name"`
	Organization string   `json:"organization"`
	Version      int      `json:"version,omitempty"`
	SegmentIDs   []string `json:"segment_ids"`
	Stages       []string `json:"stages"`
	Requirements bool     `json:"requirements"`
}

func (s *Server) handleStrategies(w http.ResponseWriter, r *http.Request) {
	engines, err := s.engine.Engines(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "failed to load strategies", "error", err)
		writeError(w, http.StatusInternalServerError,
			newError(err.Error(), ErrorTypeServerError, "", CodeCompileFailed))
		return
	}

	out := make([]EngineSummary, 0, len(engines))
	for _, e := range engines {
		summary := EngineSummary{
			Name:         e.Name,
			Organization: e.Organization,
			SegmentIDs:   e.SegmentIDs,
			Stages:       []string{},
			Requirements: e.RequirementsBearing(),
		}
		if summary.SegmentIDs == nil {
			summary.SegmentIDs = []string{}
		}
		if e.Config != nil {
			summary.Version = e.Config.Version
		}
		for _, st := range e.Pipeline.Stages() {
			summary.Stages = append(summary.Stages, st.Name)
		}
		out = append(out, summary)
	}
	writeJSON(w, http.StatusOK, map[string]any{"engines": out})
}
