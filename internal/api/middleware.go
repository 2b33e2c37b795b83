package api

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/metrics"
	"voice-emotion-go/internal/types"
)

type ctxKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withRequestLog tags the request with an id, echoes it, and logs the
// outcome once the handler returns.
func (s *Server) withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := logger.RequestID(r)
		w.Header().Set(logger.RequestIDHeader, reqID)
		entry := s.log.WithRequest(r, reqID)
		r = r.WithContext(context.WithValue(r.Context(), ctxKey{}, entry))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(rec, r)

		done := entry.WithField("status", rec.status).WithField("duration_ms", time.Since(start).Milliseconds())
		if rec.status >= 500 {
			done.Warn("request failed")
			return
		}
		done.Info("request handled")
	})
}

// limitBody caps request bodies. Requests that announce a larger body are
// refused before any handler runs.
func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > s.cfg.MaxUploadBytes {
			s.fail(w, r, "", tooLarge(s.cfg.MaxUploadBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

func requestLog(r *http.Request) *logrus.Entry {
	if e, ok := r.Context().Value(ctxKey{}).(*logrus.Entry); ok {
		return e
	}
	return logger.New().Entry
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, endpoint string, e *Error) {
	log := requestLog(r).WithField("kind", string(e.Kind))
	if e.Err != nil {
		log = log.WithField("error", e.Err.Error())
	}
	if e.Kind == KindProcessing {
		log.Error(e.Message)
	} else {
		log.Warn(e.Message)
	}
	if endpoint != "" {
		metrics.RecordUpload(endpoint, e.Status())
	}
	writeJSON(w, e.Status(), types.ErrorResponse{Error: e.Message})
}
