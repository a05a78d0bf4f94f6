// Package api exposes the scrape pipeline over HTTP for the companion web
// application.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/dvf-map/scrape/internal/auth"
	"github.com/dvf-map/scrape/internal/config"
	"github.com/dvf-map/scrape/internal/engine"
	"github.com/dvf-map/scrape/internal/perf"
	"github.com/dvf-map/scrape/internal/reqctx"
	"github.com/dvf-map/scrape/internal/session"
	urlutil "github.com/dvf-map/scrape/internal/utils/url"
	"github.com/dvf-map/scrape/pkg/models"
)

// Runner runs one scrape session. Implemented by session.Orchestrator.
type Runner interface {
	Run(ctx context.Context, listingURL string, target *session.Target) (*models.Listing, *models.SessionMetrics, error)
}

// Server hosts the scrape endpoint and serves downloaded images.
type Server struct {
	runner         Runner
	recorder       *perf.Recorder
	router         *mux.Router
	outputDir      string
	publicBaseURL  string
	allowedOrigins []string
	jwtSecret      string
	listenAddr     string
}

// NewServer builds the HTTP server around an orchestrator.
func NewServer(cfg *config.Config, runner Runner, recorder *perf.Recorder) *Server {
	s := &Server{
		runner:         runner,
		recorder:       recorder,
		outputDir:      cfg.OutputDir,
		publicBaseURL:  strings.TrimRight(cfg.PublicBaseURL, "/"),
		allowedOrigins: cfg.AllowedOrigins,
		jwtSecret:      cfg.JWTSecret,
		listenAddr:     cfg.ListenAddr,
	}

	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.logMiddleware, s.corsMiddleware)
	r.HandleFunc("/api/v1/scrape", s.handleScrape).Methods(http.MethodPut, http.MethodOptions)
	r.PathPrefix("/images/").Handler(
		http.StripPrefix("/images/", http.FileServer(http.Dir(cfg.OutputDir)))).Methods(http.MethodGet)
	s.router = r

	return s
}

// Handler returns the routing tree, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks serving HTTP until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.listenAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", s.listenAddr).Msg("HTTP API listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// scrapeRequest is the PUT /api/v1/scrape body. A non-nil ID selects update
// mode and requires a bearer token identifying the owner.
type scrapeRequest struct {
	URL string `json:"url"`
	ID  *int64 `json:"id,omitempty"`
}

// scrapeResponse reports the outcome. Scrape failures are part of the
// contract and travel as 200 with ScrapingSuccess false; HTTP error codes
// are reserved for requests the server could not process at all.
type scrapeResponse struct {
	ScrapingSuccess bool            `json:"scraping_success"`
	Message         string          `json:"message"`
	Metrics         string          `json:"metrics,omitempty"`
	Data            *models.Listing `json:"data,omitempty"`
}

func (s *Server) handleScrape(w http.ResponseWriter, r *http.Request) {
	var req scrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := urlutil.ValidateURL(strings.TrimSpace(req.URL)); err != nil {
		writeError(w, http.StatusBadRequest, "url is not a valid listing address")
		return
	}

	var target *session.Target
	if req.ID != nil {
		userID, err := auth.ExtractUserID(r.Header.Get("Authorization"), s.jwtSecret)
		if err != nil {
			log.Warn().Err(err).Msg("Rejected update request without valid token")
			writeError(w, http.StatusBadRequest, "valid bearer token required for updates")
			return
		}
		target = &session.Target{ID: *req.ID, UserID: userID}
	}

	listing, _, err := s.runner.Run(r.Context(), req.URL, target)
	if err != nil {
		if engine.CodeOf(err) == engine.ErrCodeMalformedInput {
			writeError(w, http.StatusBadRequest, "url is not a valid listing address")
			return
		}
		log.Error().
			Err(err).
			Str("request_id", reqctx.From(r.Context()).ID).
			Str("url", req.URL).
			Msg("Scrape failed")
		writeJSON(w, http.StatusOK, scrapeResponse{
			ScrapingSuccess: false,
			Message:         "Échec du scraping",
		})
		return
	}

	metricsMsg := ""
	if s.recorder != nil {
		msg, rerr := s.recorder.Render(filepath.Join(s.outputDir, "performances.html"))
		if rerr != nil {
			log.Warn().Err(rerr).Msg("Failed to render performance charts")
		} else {
			metricsMsg = msg
		}
	}

	s.publishPaths(listing)
	writeJSON(w, http.StatusOK, scrapeResponse{
		ScrapingSuccess: true,
		Message:         "Scraping réussi",
		Metrics:         metricsMsg,
		Data:            listing,
	})
}

// publishPaths rewrites local artifact paths into URLs under /images/ so the
// web application can load them. Placeholder entries stay empty.
func (s *Server) publishPaths(listing *models.Listing) {
	toURL := func(p string) string {
		if p == "" {
			return ""
		}
		rel, err := filepath.Rel(s.outputDir, p)
		if err != nil || strings.HasPrefix(rel, "..") {
			return p
		}
		return s.publicBaseURL + "/images/" + filepath.ToSlash(rel)
	}

	for i, p := range listing.ImagePaths {
		listing.ImagePaths[i] = toURL(p)
	}
	listing.ScreenshotPath = toURL(listing.ScreenshotPath)
	listing.ThumbnailPath = toURL(listing.ThumbnailPath)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
