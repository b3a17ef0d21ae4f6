// Package serverutil holds the plumbing shared by HTTP handlers: JSON
// responses, validated request bodies, error rendering and access logs.
package serverutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	tserrs "github.com/dylantarre/trend-spotter/internal/errors"
	"github.com/dylantarre/trend-spotter/internal/logger"
	"github.com/dylantarre/trend-spotter/internal/metrics"
)

func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("error encoding json response: %s", err)
	}

	return nil
}

// Validator is a surface that can validate itself and return an error
// if something is wrong.
type Validator interface {
	Validate() error
}

// DecodeValid decodes a request and then validates it. Both failures are
// reported as 400s; a structured error from Validate keeps its details.
func DecodeValid[V Validator](r io.Reader) (V, error) {
	var v V
	if err := json.NewDecoder(r).Decode(&v); err != nil {
		return v, tserrs.E(http.StatusBadRequest, fmt.Sprintf("error decoding request: %s", err))
	}
	if err := v.Validate(); err != nil {
		var sErr *tserrs.Error
		if errors.As(err, &sErr) {
			return v, sErr
		}
		return v, tserrs.E(http.StatusBadRequest, fmt.Sprintf("error validating request: %s", err))
	}

	return v, nil
}

func AccessLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logger.Ctx(r.Context(), slog.String("method", r.Method), slog.String("path", r.URL.Path))
		r = r.WithContext(ctx)

		slog.DebugContext(ctx, "request received")
		start := time.Now()

		writer := &respCodeWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(writer, r)

		metrics.HTTPRequests.WithLabelValues(r.Method, strconv.Itoa(writer.code)).Inc()
		slog.InfoContext(ctx, "request completed",
			slog.String("url", r.URL.String()),
			slog.Duration("duration", time.Since(start)),
			slog.Int("status_code", writer.code),
		)
	})
}

// To trap the response status code for logging later.
type respCodeWriter struct {
	http.ResponseWriter
	code int
}

func (w *respCodeWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// HandlerFuncE is a modified type of [http.HandlerFunc] that returns an error.
//
// Structured errors are written with their own status. Anything else is
// logged and reported as a generic 500 so internals never reach the client.
type HandlerFuncE func(w http.ResponseWriter, r *http.Request) error

func (f HandlerFuncE) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := f(w, r)
	if err == nil {
		return
	}

	if tserrs.Status(err) >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "unhandled error", slog.String("error", err.Error()))
	}

	// Either it's already a structured error, or coerce it to one
	sErr := &tserrs.Error{}
	if !errors.As(err, &sErr) {
		sErr = tserrs.E(http.StatusInternalServerError, "internal server error")
	}

	if err := WriteJSON(w, sErr.Status, sErr); err != nil {
		slog.ErrorContext(r.Context(), "error writing response", slog.String("error", err.Error()))
	}
}

// ErrRouter is a newtype around a mux router that allows attaching handlers that return errors.
type ErrRouter struct {
	*mux.Router
}

func (r ErrRouter) HandleFuncE(path string, f HandlerFuncE) *mux.Route {
	return r.Handle(path, f)
}
