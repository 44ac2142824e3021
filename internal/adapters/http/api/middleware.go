package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/calmark/pkg/metrics"
)

// MetricsMiddleware wraps a handler with request counters and latency
// histograms. Failed requests are also counted by their error code, as
// written by writeError, so the labels match the JSON body the client saw.
func MetricsMiddleware(next http.HandlerFunc, endpoint string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rec, r)

		durationMs := float64(time.Since(start).Milliseconds())
		status := strconv.Itoa(rec.statusCode)
		metrics.RecordHTTPRequest(endpoint, r.Method, status)
		metrics.RecordHTTPRequestDuration(endpoint, r.Method, status, durationMs)

		if rec.statusCode >= http.StatusBadRequest {
			code, severity := errorClass(rec.statusCode, rec.errorCode)
			metrics.RecordErrorByEndpoint(endpoint, r.Method, code)
			metrics.RecordErrorByType(code, severity)
			metrics.RecordErrorByComponent("api", code)
		}
	}
}

// errorClass labels a failed response. code is the writeError code when
// the handler wrote one; router-level failures (405, unmatched routes) and
// bodies from other handlers fall back to the status.
func errorClass(status int, code string) (string, string) {
	if code == "" {
		switch status {
		case http.StatusMethodNotAllowed:
			code = "method_not_allowed"
		case http.StatusNotFound:
			code = "not_found"
		default:
			if status >= http.StatusInternalServerError {
				code = "internal_error"
			} else {
				code = "bad_request"
			}
		}
	}

	switch code {
	case "internal_error", "bad_upstream_data":
		return code, "high"
	case "feed_unavailable", "backpressure":
		return code, "medium"
	default:
		return code, "low"
	}
}

// responseWriter captures the status and error code of a response.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	errorCode  string
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("failed to write response: %w", err)
	}
	return n, nil
}

// setErrorCode tags the response for the error metrics.
func setErrorCode(w http.ResponseWriter, code string) {
	if rw, ok := w.(*responseWriter); ok {
		rw.errorCode = code
	}
}
