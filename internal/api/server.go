// Package api exposes the upload endpoints over HTTP.
package api

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"voice-emotion-go/internal/audio"
	"voice-emotion-go/internal/config"
	"voice-emotion-go/internal/logger"
	"voice-emotion-go/internal/pipeline"
	"voice-emotion-go/internal/sink"
)

//go:embed static/index.html
var static embed.FS

// Runner executes the voice pipeline on a canonical WAV file.
type Runner interface {
	Run(ctx context.Context, audioPath, phone string) (pipeline.Result, error)
}

type Server struct {
	cfg        config.Config
	normalizer audio.Normalizer
	runner     Runner
	sink       *sink.Sink
	log        *logger.Logger
}

func NewServer(cfg config.Config, n audio.Normalizer, r Runner, s *sink.Sink) *Server {
	return &Server{
		cfg:        cfg,
		normalizer: n,
		runner:     r,
		sink:       s,
		log:        logger.New().Component("api"),
	}
}

// Routes returns the full handler chain.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "ok")
	})
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /upload", s.handleUpload)

	// any origin may post recordings to /api; rs/cors answers preflights
	apiCORS := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	mux.Handle("/api/upload_mp3", apiCORS.Handler(http.HandlerFunc(s.handleUploadMP3)))

	return s.withRequestLog(s.limitBody(mux))
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	page, err := static.ReadFile("static/index.html")
	if err != nil {
		s.fail(w, r, "", processingError(err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
