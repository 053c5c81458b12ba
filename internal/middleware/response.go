package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
)

// captureWriter records the status code of a response and, when keepBody is
// set, a copy of the body.
type captureWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
	keepBody   bool
	body       bytes.Buffer
}

func newCaptureWriter(w http.ResponseWriter, keepBody bool) *captureWriter {
	return &captureWriter{ResponseWriter: w, statusCode: http.StatusOK, keepBody: keepBody}
}

func (w *captureWriter) WriteHeader(statusCode int) {
	if !w.written {
		w.statusCode = statusCode
		w.written = true
		w.ResponseWriter.WriteHeader(statusCode)
	}
}

func (w *captureWriter) Write(b []byte) (int, error) {
	if !w.written {
		w.WriteHeader(http.StatusOK)
	}
	if w.keepBody && len(b) > 0 {
		_, _ = w.body.Write(b)
	}
	return w.ResponseWriter.Write(b)
}

// responseHasGraphQLErrors reports whether a GraphQL response body carries a
// non-empty errors list.
func responseHasGraphQLErrors(body []byte) bool {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return false
	}

	var payload struct {
		Errors []json.RawMessage `json:"errors"`
	}
	if err := json.Unmarshal(trimmed, &payload); err != nil {
		return false
	}
	return len(payload.Errors) > 0
}
