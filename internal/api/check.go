package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
)

// maxBodyBytes bounds the event payload; agent writes can be large but a
// multi-megabyte body is a client bug, not an event.
const maxBodyBytes = 8 << 20

// handleCheck implements POST /v1/check: the raw hook payload in, the
// decision out. The engine fails open, so the only client errors here are
// transport-level ones.
func (d *Dependencies) handleCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp{Detail: "unreadable body"})
		return
	}

	dec := d.Dispatcher.Dispatch(r.Context(), body)
	writeJSON(w, http.StatusOK, dec)
}

// handleTrace implements GET /v1/trace?session_id=...&limit=N over the
// local trace store.
func (d *Dependencies) handleTrace(w http.ResponseWriter, r *http.Request) {
	if d.Trace == nil {
		writeJSON(w, http.StatusNotFound, errorResp{Detail: "trace store not configured"})
		return
	}

	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}

	rows, err := d.Trace.Recent(r.Context(), r.URL.Query().Get("session_id"), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp{Detail: "trace query failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"dispatches": rows})
}

type errorResp struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
