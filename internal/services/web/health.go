package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// Check probes one dependency. Optional checks only degrade /healthz.
type Check struct {
	Name     string
	Optional bool
	Probe    func(ctx context.Context) error
}

type checkResult struct {
	Name  string `json:"name"`
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func runChecks(ctx context.Context, checks []Check, timeout time.Duration) ([]checkResult, bool, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	results := make([]checkResult, 0, len(checks))
	requiredOK, anyOK := true, len(checks) == 0
	for _, c := range checks {
		res := checkResult{Name: c.Name, OK: true}
		if err := c.Probe(ctx); err != nil {
			res.OK, res.Error = false, err.Error()
			if !c.Optional {
				requiredOK = false
			}
		} else {
			anyOK = true
		}
		results = append(results, res)
	}
	return results, requiredOK, anyOK
}

type healthHandler struct {
	checks  []Check
	timeout time.Duration
}

// NewHealthHandler reports ok, degraded or down with per-check detail. It always answers 200.
func NewHealthHandler(checks []Check, timeout time.Duration) http.Handler {
	return &healthHandler{checks: checks, timeout: timeout}
}

func (h *healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type status struct {
		Status string        `json:"status"`
		Checks []checkResult `json:"checks"`
	}
	results, requiredOK, anyOK := runChecks(r.Context(), h.checks, h.timeout)
	st := status{Checks: results}
	allOK := true
	for _, res := range results {
		allOK = allOK && res.OK
	}
	switch {
	case allOK:
		st.Status = "ok"
	case requiredOK || anyOK:
		st.Status = "degraded"
	default:
		st.Status = "down"
	}
	writeJSON(w, http.StatusOK, st)
}

type readyHandler struct {
	checks  []Check
	timeout time.Duration
}

// NewReadyHandler answers 200 only when every required check passes.
func NewReadyHandler(checks []Check, timeout time.Duration) http.Handler {
	return &readyHandler{checks: checks, timeout: timeout}
}

func (h *readyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_, ready, _ := runChecks(r.Context(), h.checks, h.timeout)
	code := http.StatusOK
	if !ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, struct {
		Ready bool `json:"ready"`
	}{ready})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
