package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"mercator-hq/gatehouse/pkg/admission"
	"mercator-hq/gatehouse/pkg/admission/registry"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// decodeBody decodes a JSON request body, rejecting unknown fields.
func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return false
	}
	return true
}

// handleValidation maps admission validation errors to 400s. Returns true
// if the error was handled.
func handleValidation(w http.ResponseWriter, err error) bool {
	if errors.Is(err, admission.ErrInvalidIdentity) ||
		errors.Is(err, admission.ErrInvalidOperation) ||
		errors.Is(err, admission.ErrInvalidConfig) {
		writeError(w, http.StatusBadRequest, "%v", err)
		return true
	}
	return false
}

// handleCheck serves POST /v1/check: one admission check, counted on success.
func (s *Server) handleCheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	decision, err := s.service.Check(req.Identity, req.Operation)
	if err != nil {
		if !handleValidation(w, err) {
			writeError(w, http.StatusInternalServerError, "admission check failed")
		}
		return
	}

	resp := toDecisionResponse(decision)
	if !decision.Allowed {
		w.Header().Set("Retry-After", fmt.Sprintf("%d", resp.RetryAfterSeconds))
		writeJSON(w, http.StatusTooManyRequests, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRecord serves POST /v1/record: unconditionally count a request.
func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.Record(req.Identity, req.Operation); err != nil {
		if !handleValidation(w, err) {
			writeError(w, http.StatusInternalServerError, "record failed")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleRemaining serves GET /v1/remaining?identity=...&operation=...
// It is read-only: no stamps are counted and no state is mutated.
func (s *Server) handleRemaining(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := r.URL.Query().Get("identity")
	operation := r.URL.Query().Get("operation")

	remaining, resetIn, err := s.service.Remaining(identity, operation)
	if err != nil {
		if !handleValidation(w, err) {
			writeError(w, http.StatusInternalServerError, "remaining lookup failed")
		}
		return
	}

	writeJSON(w, http.StatusOK, remainingResponse{
		Identity:       identity,
		Operation:      operation,
		Remaining:      remaining,
		ResetInSeconds: ceilSeconds(resetIn),
	})
}

// handleStats serves GET /v1/stats?identity=...: the full per-operation view.
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	identity := r.URL.Query().Get("identity")

	stats, err := s.service.Stats(identity)
	if err != nil {
		if !handleValidation(w, err) {
			writeError(w, http.StatusInternalServerError, "stats lookup failed")
		}
		return
	}

	out := make(map[string]operationStatusResponse, len(stats))
	for name, status := range stats {
		out[name] = toStatusResponse(status)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleReset serves POST /v1/reset: clear one (identity, operation) window.
// An active block on the identity is not lifted.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req checkRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.Reset(req.Identity, req.Operation); err != nil {
		if !handleValidation(w, err) {
			writeError(w, http.StatusInternalServerError, "reset failed")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleUnblock serves POST /v1/unblock: lift an identity's block early.
func (s *Server) handleUnblock(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req unblockRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if err := s.service.Unblock(req.Identity); err != nil {
		if !handleValidation(w, err) {
			writeError(w, http.StatusInternalServerError, "unblock failed")
		}
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleOperations serves /v1/operations:
//
//	GET  lists every registered operation budget
//	POST registers or replaces one budget
func (s *Server) handleOperations(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		ops := s.service.Registry().Operations()
		out := make([]operationConfigBody, 0, len(ops))
		for name, cfg := range ops {
			out = append(out, toOperationConfigBody(name, cfg))
		}
		writeJSON(w, http.StatusOK, out)

	case http.MethodPost:
		var req operationConfigBody
		if !decodeBody(w, r, &req) {
			return
		}

		window, err := time.ParseDuration(req.Window)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid window: %v", err)
			return
		}
		blockDuration, err := time.ParseDuration(req.BlockDuration)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid block_duration: %v", err)
			return
		}

		cfg := registry.OperationConfig{
			MaxRequests:   req.MaxRequests,
			Window:        window,
			BlockDuration: blockDuration,
		}
		if err := s.service.RegisterOperation(req.Operation, cfg); err != nil {
			if !handleValidation(w, err) {
				writeError(w, http.StatusInternalServerError, "register failed")
			}
			return
		}
		writeJSON(w, http.StatusCreated, toOperationConfigBody(req.Operation, cfg))

	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleSweep serves POST /v1/sweep: trigger a cleanup pass on demand.
// The scheduled sweep makes this unnecessary in normal operation; it exists
// for operational tooling.
func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, sweepResponse{Removed: s.service.Sweep()})
}

// handleHealth serves GET /healthz for liveness probes.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	})
}
