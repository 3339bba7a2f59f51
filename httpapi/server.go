// Package httpapi serves decode inspection over HTTP.
//
// Routes:
//
//	GET  /api/ping          liveness
//	POST /api/v1/inspect    body = encoded image, returns stream info
//	POST /api/v1/frames     body = encoded image, decodes every frame
//	GET  /metrics           prometheus exposition of the shared collector
package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/justapithecus/jxlframe/decoder"
	"github.com/justapithecus/jxlframe/engine"
	"github.com/justapithecus/jxlframe/iox"
	"github.com/justapithecus/jxlframe/log"
	"github.com/justapithecus/jxlframe/metrics"
	"github.com/justapithecus/jxlframe/types"
)

// DefaultMaxBodyBytes caps request bodies when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes int64 = 64 << 20

// shutdownTimeout bounds graceful shutdown in ListenAndServe.
const shutdownTimeout = 10 * time.Second

// Config configures a Server.
type Config struct {
	// Backend is the engine backend decoders open. Empty means
	// engine.DefaultBackend.
	Backend string
	// Workers bounds the backend's parallel runner.
	Workers int
	// MaxBodyBytes caps request bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// Collector is shared by all requests and served on /metrics. May be nil.
	Collector *metrics.Collector
	// Logger defaults to a nop logger.
	Logger *log.Logger
	// OpenEngine overrides backend selection. Used by tests.
	OpenEngine func() (engine.Engine, error)
}

// Server wraps the HTTP router with its dependencies.
type Server struct {
	router *gin.Engine
	cfg    Config
	logger *log.Logger
}

// New creates a new server.
func New(cfg Config) *Server {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	s := &Server{cfg: cfg, logger: logger}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLog)

	api := router.Group("/api")
	{
		api.GET("/ping", s.handlePing)
		api.POST("/v1/inspect", s.handleInspect)
		api.POST("/v1/frames", s.handleFrames)
	}

	registry := metrics.NewRegistry(s.cfg.Collector)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	s.router = router
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", map[string]any{"addr": addr})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) requestLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debug("http request", map[string]any{
		"method":   c.Request.Method,
		"path":     c.FullPath(),
		"status":   c.Writer.Status(),
		"duration": time.Since(start).String(),
	})
}

func (s *Server) handlePing(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
		"time":    time.Now().Unix(),
	})
}

// InspectResponse is the body of a successful /api/v1/inspect call.
type InspectResponse struct {
	SessionID string       `json:"session_id"`
	Info      decoder.Info `json:"info"`
	// Metadata presence as known after the headers; boxes that trail the
	// codestream are only reported by /api/v1/frames.
	HasICC  bool `json:"has_icc"`
	HasEXIF bool `json:"has_exif"`
	HasXMP  bool `json:"has_xmp"`
}

func (s *Server) handleInspect(c *gin.Context) {
	dec, sessionID, ok := s.open(c)
	if !ok {
		return
	}
	defer func() { _ = dec.Close() }()

	info, err := dec.Info()
	if err != nil {
		s.decodeFailed(c, err)
		return
	}
	_, hasICC := dec.ICC()
	_, hasEXIF := dec.EXIF()
	_, hasXMP := dec.XMP()

	c.JSON(http.StatusOK, InspectResponse{
		SessionID: sessionID,
		Info:      info,
		HasICC:    hasICC,
		HasEXIF:   hasEXIF,
		HasXMP:    hasXMP,
	})
}

// FrameSummary describes one decoded frame.
type FrameSummary struct {
	Index      int     `json:"index"`
	Name       string  `json:"name,omitempty"`
	Duration   uint32  `json:"duration"`
	DurationMs float64 `json:"duration_ms"`
	Timecode   uint32  `json:"timecode"`
	IsLast     bool    `json:"is_last"`
	Bytes      int     `json:"bytes"`
	Hash       string  `json:"hash"`
}

// FramesResponse is the body of a successful /api/v1/frames call.
type FramesResponse struct {
	SessionID string         `json:"session_id"`
	Info      decoder.Info   `json:"info"`
	Frames    []FrameSummary `json:"frames"`
	// Truncated is set when decoding stopped at the limit query parameter.
	Truncated bool `json:"truncated"`
	HasICC    bool `json:"has_icc"`
	HasEXIF   bool `json:"has_exif"`
	HasXMP    bool `json:"has_xmp"`
}

func (s *Server) handleFrames(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
			return
		}
		limit = n
	}

	dec, sessionID, ok := s.open(c)
	if !ok {
		return
	}
	defer func() { _ = dec.Close() }()

	info, err := dec.Info()
	if err != nil {
		s.decodeFailed(c, err)
		return
	}

	resp := FramesResponse{SessionID: sessionID, Info: info, Frames: []FrameSummary{}}
	for {
		if limit > 0 && len(resp.Frames) == limit {
			resp.Truncated = int64(len(resp.Frames)) < info.FrameCount
			break
		}
		if err := c.Request.Context().Err(); err != nil {
			c.AbortWithStatus(http.StatusRequestTimeout)
			return
		}
		frame, err := dec.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			s.decodeFailed(c, err)
			return
		}
		resp.Frames = append(resp.Frames, FrameSummary{
			Index:      frame.Index,
			Name:       frame.Name,
			Duration:   frame.Duration,
			DurationMs: info.DurationMillis(frame.Duration),
			Timecode:   frame.Timecode,
			IsLast:     frame.IsLast,
			Bytes:      len(frame.Pixels),
			Hash:       strconv.FormatUint(xxhash.Sum64(frame.Pixels), 16),
		})
	}

	_, resp.HasICC = dec.ICC()
	_, resp.HasEXIF = dec.EXIF()
	_, resp.HasXMP = dec.XMP()
	c.JSON(http.StatusOK, resp)
}

// open reads the request body and opens a decoder over it. On failure the
// response is written and ok is false.
func (s *Server) open(c *gin.Context) (_ *decoder.Decoder, sessionID string, ok bool) {
	body, err := iox.ReadAllLimit(c.Request.Body, s.cfg.MaxBodyBytes)
	if err != nil {
		if errors.Is(err, iox.ErrTooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
			return nil, "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	meta := &types.SessionMeta{
		SessionID:  uuid.NewString(),
		Source:     "http",
		InputBytes: int64(len(body)),
	}
	opts := []decoder.Option{
		decoder.WithLogger(s.logger.ForSession(meta)),
		decoder.WithCollector(s.cfg.Collector),
	}
	if s.cfg.Backend != "" {
		opts = append(opts, decoder.WithBackend(s.cfg.Backend))
	}
	if s.cfg.Workers > 0 {
		opts = append(opts, decoder.WithWorkers(s.cfg.Workers))
	}
	if s.cfg.OpenEngine != nil {
		eng, err := s.cfg.OpenEngine()
		if err != nil {
			s.decodeFailed(c, err)
			return nil, "", false
		}
		opts = append(opts, decoder.WithEngine(eng))
	}

	dec, err := decoder.New(body, opts...)
	if err != nil {
		s.decodeFailed(c, err)
		return nil, "", false
	}
	return dec, meta.SessionID, true
}

func (s *Server) decodeFailed(c *gin.Context, err error) {
	kind := decoder.KindName(err)
	status := http.StatusUnprocessableEntity
	if errors.Is(err, engine.ErrUnknownBackend) {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{"error": err.Error(), "kind": kind})
}
