package server

import (
	"math"
	"time"

	"mercator-hq/gatehouse/pkg/admission"
	"mercator-hq/gatehouse/pkg/admission/registry"
)

// checkRequest is the body for POST /v1/check, /v1/record, and /v1/reset.
type checkRequest struct {
	Identity  string `json:"identity"`
	Operation string `json:"operation"`
}

// unblockRequest is the body for POST /v1/unblock.
type unblockRequest struct {
	Identity string `json:"identity"`
}

// decisionResponse is the wire form of an admission decision.
// Durations are whole seconds, rounded up so a client that waits the stated
// time is never early.
type decisionResponse struct {
	Allowed           bool   `json:"allowed"`
	Reason            string `json:"reason,omitempty"`
	Blocked           bool   `json:"blocked"`
	Limit             uint   `json:"limit"`
	Remaining         uint   `json:"remaining"`
	ResetInSeconds    int64  `json:"reset_in_seconds"`
	RetryAfterSeconds int64  `json:"retry_after_seconds,omitempty"`
}

func toDecisionResponse(d *admission.Decision) decisionResponse {
	return decisionResponse{
		Allowed:           d.Allowed,
		Reason:            d.Reason,
		Blocked:           d.Blocked,
		Limit:             d.Limit,
		Remaining:         d.Remaining,
		ResetInSeconds:    ceilSeconds(d.ResetIn),
		RetryAfterSeconds: ceilSeconds(d.RetryAfter),
	}
}

// remainingResponse is the wire form for GET /v1/remaining.
type remainingResponse struct {
	Identity       string `json:"identity"`
	Operation      string `json:"operation"`
	Remaining      uint   `json:"remaining"`
	ResetInSeconds int64  `json:"reset_in_seconds"`
}

// operationStatusResponse is the per-operation entry for GET /v1/stats.
type operationStatusResponse struct {
	Remaining      uint  `json:"remaining"`
	Limit          uint  `json:"limit"`
	WindowSeconds  int64 `json:"window_seconds"`
	ResetInSeconds int64 `json:"reset_in_seconds"`
	Blocked        bool  `json:"blocked"`
}

func toStatusResponse(status admission.OperationStatus) operationStatusResponse {
	return operationStatusResponse{
		Remaining:      status.Remaining,
		Limit:          status.Limit,
		WindowSeconds:  int64(status.Window.Seconds()),
		ResetInSeconds: ceilSeconds(status.ResetIn),
		Blocked:        status.Blocked,
	}
}

// operationConfigBody is the wire form of an operation budget, used both in
// the GET /v1/operations listing and as the POST body for registration.
// Durations are Go duration strings ("5m", "1h").
type operationConfigBody struct {
	Operation     string `json:"operation"`
	MaxRequests   uint   `json:"max_requests"`
	Window        string `json:"window"`
	BlockDuration string `json:"block_duration"`
}

func toOperationConfigBody(name string, cfg registry.OperationConfig) operationConfigBody {
	return operationConfigBody{
		Operation:     name,
		MaxRequests:   cfg.MaxRequests,
		Window:        cfg.Window.String(),
		BlockDuration: cfg.BlockDuration.String(),
	}
}

// sweepResponse is the wire form for POST /v1/sweep.
type sweepResponse struct {
	Removed int `json:"removed"`
}

// errorResponse is the wire form for all error replies.
type errorResponse struct {
	Error string `json:"error"`
}

// ceilSeconds converts a duration to whole seconds, rounding up.
func ceilSeconds(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	return int64(math.Ceil(d.Seconds()))
}
