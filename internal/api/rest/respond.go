package rest

import (
	"encoding/json"
	"net/http"
	"strconv"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondData(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, map[string]interface{}{"data": data})
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	if retry := retryAfterSeconds(err); retry > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retry))
	}
	writeJSON(w, status, errorResponse{
		Error:     body,
		RequestID: RequestIDFromContext(r.Context()),
	})
}
