package http

import (
	"encoding/json"
	"net/http"

	"iqplay/internal/domain"
)

type errorPayload struct {
	Code    domain.Kind `json:"code"`
	Message string      `json:"message"`
}

func newErrorPayload(err error) errorPayload {
	return errorPayload{Code: domain.KindOf(err), Message: err.Error()}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	payload := newErrorPayload(err)
	writeJSON(w, payload.Code.HTTPStatus(), payload)
}
