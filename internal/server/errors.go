package server

import (
	"encoding/json"
	"net/http"

	"github.com/Raman-Maurya/mystartup-sub001/errs"
)

// errorResponse is the JSON error envelope.
type errorResponse struct {
	Error  string `json:"error"`
	Kind   string `json:"kind"`
	Detail string `json:"detail,omitempty"`
}

// statusForKind maps the engine's error taxonomy onto HTTP codes.
func statusForKind(kind errs.Kind) int {
	switch kind {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindInsufficientBalance, errs.KindTradeLimitExceeded:
		return http.StatusUnprocessableEntity
	case errs.KindContestNotJoinable, errs.KindAlreadyClosed, errs.KindSettlementConflict:
		return http.StatusConflict
	case errs.KindNotFound:
		return http.StatusNotFound
	case errs.KindConcurrentModification:
		return http.StatusConflict
	case errs.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeEngineError(w http.ResponseWriter, err error) {
	kind := errs.KindOf(err)
	status := statusForKind(kind)

	detail := ""
	if status < http.StatusInternalServerError {
		// Client errors carry the reason; internal details stay in logs.
		detail = err.Error()
	}

	writeJSON(w, status, errorResponse{
		Error:  http.StatusText(status),
		Kind:   string(kind),
		Detail: detail,
	})
}

func writeError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
