package web

import (
	"net/http"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// writeValue writes a codec value as the JSON response body. A nil value
// writes the status with an empty body.
func writeValue(w http.ResponseWriter, status int, v codec.Value) {
	w.Header().Set("Content-Type", "application/json")
	if v == nil {
		w.WriteHeader(status)
		return
	}
	encoded, err := codec.Encode(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "response encoding failed")
		return
	}
	w.WriteHeader(status)
	//nolint:errcheck // best-effort write; connection may be closed
	w.Write([]byte(encoded))
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, message string) {
	out := codec.NewMap()
	out.Set("status", codec.Number(status))
	out.Set("message", codec.String(message))
	writeValue(w, status, out)
}
