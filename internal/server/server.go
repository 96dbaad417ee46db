// Package server implements the classification backend contract with a stub
// classifier, for local development and contract tests.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/alkime/drumtone/internal/audio"
	"github.com/alkime/drumtone/internal/clip"
	"github.com/alkime/drumtone/internal/config"
	"github.com/alkime/drumtone/internal/prediction"
	"github.com/alkime/drumtone/pkg/collections"
	"github.com/gin-gonic/gin"
)

const (
	analysisSampleRate = 22050
	shutdownTimeout    = 5 * time.Second
	// maxUpload bounds the clip read into memory.
	maxUpload = 32 << 20
)

const (
	msgModelMissing = "Model not loaded. Please train and export model first."
	msgModelReady   = "Model loaded and ready"
)

// Server represents the HTTP server
type Server struct {
	config     *config.Config
	logger     *slog.Logger
	router     *gin.Engine
	classifier Classifier

	modelLoaded atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithClassifier replaces the stub classifier.
func WithClassifier(c Classifier) Option {
	return func(s *Server) {
		if c != nil {
			s.classifier = c
		}
	}
}

// New creates a new Server instance
func New(cfg *config.Config, logger *slog.Logger, opts ...Option) *Server {
	// Set Gin mode based on environment
	switch cfg.Env {
	case config.EnvProduction:
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	}

	router := gin.New()
	router.MaxMultipartMemory = maxUpload

	server := &Server{
		config:     cfg,
		logger:     logger,
		router:     router,
		classifier: StubClassifier{},
	}
	server.modelLoaded.Store(cfg.ModelLoaded)
	for _, opt := range opts {
		opt(server)
	}

	// Setup middleware and routes
	router.Use(recovery(logger), requestLogger(logger))
	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler, mainly for httptest.
func (s *Server) Router() http.Handler {
	return s.router
}

// SetModelLoaded flips the reported model state.
func (s *Server) SetModelLoaded(loaded bool) {
	s.modelLoaded.Store(loaded)
}

// Run serves until ctx is done, then shuts down gracefully.
func Run(ctx context.Context, s *Server) error {
	//nolint:exhaustruct // defaults for the remaining http.Server fields
	httpServer := &http.Server{
		Addr:              ":" + s.config.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server listening", "port", s.config.Port, "model_loaded", s.modelLoaded.Load())
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/", s.handleRoot)
	s.router.GET("/health", s.handleHealth)
	s.router.GET("/model-info", s.handleModelInfo)
	s.router.GET("/notes", s.handleNotes)
	s.router.GET("/cultural-info/:note", s.handleCulturalInfo)
	s.router.POST("/predict", s.handlePredict)

	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"detail": "Not Found"})
	})
}

func (s *Server) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, prediction.Health{
		Status:      "online",
		ModelLoaded: s.modelLoaded.Load(),
		Message:     "Talking drum tone API is running",
	})
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	if !s.modelLoaded.Load() {
		c.JSON(http.StatusOK, prediction.Health{Status: "model_not_loaded", Message: msgModelMissing})
		return
	}

	c.JSON(http.StatusOK, prediction.Health{Status: "healthy", ModelLoaded: true, Message: msgModelReady})
}

func (s *Server) handleModelInfo(c *gin.Context) {
	classes := noteNames()

	c.JSON(http.StatusOK, prediction.ModelInfo{
		Architecture:  "Stub classifier (file name or checksum)",
		InputFeatures: 0,
		NumClasses:    len(classes),
		Classes:       classes,
		Accuracy:      "n/a",
		SampleRate:    analysisSampleRate,
	})
}

func (s *Server) handleNotes(c *gin.Context) {
	c.JSON(http.StatusOK, prediction.Catalog())
}

func (s *Server) handleCulturalInfo(c *gin.Context) {
	cat, ok := prediction.ParseCategory(c.Param("note"))
	if !ok {
		detail(c, http.StatusNotFound, "Note not found. Valid notes: "+validNotes())
		return
	}

	info, _ := prediction.CulturalInfoFor(cat)
	c.JSON(http.StatusOK, info)
}

func (s *Server) handlePredict(c *gin.Context) {
	if !s.modelLoaded.Load() {
		detail(c, http.StatusServiceUnavailable, msgModelMissing)
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		// mirrors a FastAPI validation error
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": []gin.H{{
			"loc":  []string{"body", "file"},
			"msg":  "Field required",
			"type": "missing",
		}}})

		return
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !clip.Accepted(ext) {
		detail(c, http.StatusBadRequest, "Invalid file type. Allowed: "+strings.Join(clip.Extensions, ", "))
		return
	}

	data, err := readUpload(header)
	if err != nil {
		detail(c, http.StatusInternalServerError, "Error processing audio: "+err.Error())
		return
	}

	duration, err := audio.Duration(data, ext)
	switch {
	case errors.Is(err, audio.ErrUnsupportedCodec):
		// no local decoder; the stub cannot measure it
		duration = 0
	case err != nil:
		detail(c, http.StatusBadRequest, "Failed to extract features from audio")
		return
	}

	label, scores := s.classifier.Classify(header.Filename, data)
	all := make(map[string]float64, len(scores))
	for cat, v := range scores {
		all[string(cat)] = v
	}
	info, _ := prediction.CulturalInfoFor(label)
	success := true

	s.logger.Info("clip classified",
		"file", header.Filename, "size", len(data), "label", label, "confidence", scores[label])

	c.JSON(http.StatusOK, prediction.WirePrediction{
		Success:        &success,
		PredictedNote:  string(label),
		Confidence:     scores[label],
		AllConfidences: all,
		CulturalInfo:   info,
		AudioDuration:  duration,
		SampleRate:     analysisSampleRate,
	})
}

func readUpload(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(io.LimitReader(f, maxUpload))
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}

func noteNames() []string {
	return collections.Apply(prediction.Categories(), func(c prediction.Category) string {
		return string(c)
	})
}

func validNotes() string {
	return strings.Join(noteNames(), ", ")
}
