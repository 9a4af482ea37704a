// Package server exposes the solver over HTTP.
package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"knapevo/internal/catalog"
	"knapevo/internal/config"
	"knapevo/internal/evo"
	"knapevo/internal/model"
	"knapevo/pkg/knapevo"
)

type Options struct {
	// Defaults seeds every run request before the body's settings apply.
	Defaults config.Settings
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type Server struct {
	client   *knapevo.Client
	defaults config.Settings
	gatherer prometheus.Gatherer
	logger   *zap.Logger
}

type runRequest struct {
	Catalog  model.Catalog   `json:"catalog" binding:"required"`
	Capacity float64         `json:"capacity"`
	Settings json.RawMessage `json:"settings"`
}

type runResponse struct {
	Run          model.RunSummary    `json:"run"`
	Best         model.FitnessRecord `json:"best"`
	UsedSpace    float64             `json:"used_space"`
	TotalValue   float64             `json:"total_value"`
	ArtifactsDir string              `json:"artifacts_dir,omitempty"`
}

func New(client *knapevo.Client, opts Options) *Server {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{client: client, defaults: opts.Defaults, gatherer: gatherer, logger: logger}
}

func (s *Server) Handler() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := r.Group("/v1")
	v1.POST("/runs", s.handleRun)
	v1.GET("/runs", s.handleListRuns)
	v1.GET("/runs/:id", s.handleGetRun)
	v1.GET("/runs/:id/fitness", s.handleFitness)
	v1.DELETE("/runs/:id", s.handleDeleteRun)
	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	s.logger.Info("http server stopped")
	return nil
}

func (s *Server) handleRun(c *gin.Context) {
	var body runRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return
	}
	if err := catalog.Validate(body.Catalog); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	settings := s.defaults
	if len(body.Settings) > 0 {
		decoder := json.NewDecoder(bytes.NewReader(body.Settings))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&settings); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings: " + err.Error()})
			return
		}
	}
	if body.Capacity != 0 {
		settings.VanVolume = body.Capacity
	}
	if err := settings.Validate(); err != nil {
		if !writeConfigurationError(c, err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		}
		return
	}

	summary, err := s.client.Run(c.Request.Context(), knapevo.RunRequest{Settings: settings, Catalog: body.Catalog})
	if err != nil {
		if writeConfigurationError(c, err) {
			return
		}
		s.logger.Error("run failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	record := summary.Record
	c.JSON(http.StatusCreated, runResponse{
		Run:          record.Summary(),
		Best:         record.Best,
		UsedSpace:    record.UsedSpace,
		TotalValue:   record.TotalValue,
		ArtifactsDir: summary.ArtifactsDir,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}
	runs, err := s.client.Runs(c.Request.Context(), knapevo.RunsRequest{Limit: limit})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if runs == nil {
		runs = []model.RunSummary{}
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	record, err := s.client.Best(c.Request.Context(), knapevo.RunRef{RunID: c.Param("id")})
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) handleFitness(c *gin.Context) {
	history, err := s.client.FitnessHistory(c.Request.Context(), knapevo.FitnessHistoryRequest{
		RunRef: knapevo.RunRef{RunID: c.Param("id")},
	})
	if err != nil {
		writeLookupError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"run_id": c.Param("id"), "best_by_generation": history})
}

func (s *Server) handleDeleteRun(c *gin.Context) {
	if err := s.client.DeleteRun(c.Request.Context(), c.Param("id")); err != nil {
		writeLookupError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// writeConfigurationError answers 400 with the problem list when err is a
// settings or engine configuration error.
func writeConfigurationError(c *gin.Context, err error) bool {
	var settingsErr *config.ConfigurationError
	if errors.As(err, &settingsErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings", "problems": settingsErr.Problems})
		return true
	}
	var monitorErr *evo.ConfigurationError
	if errors.As(err, &monitorErr) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid settings", "problems": monitorErr.Problems})
		return true
	}
	return false
}

func writeLookupError(c *gin.Context, err error) {
	if errors.Is(err, knapevo.ErrRunNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
