// Package server exposes the workspace over HTTP (gin) and reports liveness
// over the gRPC health protocol.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joseph-ayodele/docsheet/internal/common"
	"github.com/joseph-ayodele/docsheet/internal/workspace"
)

type Server struct {
	engine *gin.Engine
	http   *http.Server
	cfg    common.ServerConfig
	logger *slog.Logger
}

func NewServer(cfg common.ServerConfig, ws *workspace.Service, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(RequestLogger(logger))
	engine.Use(MaxBodySize(cfg.MaxUploadBytes))
	engine.Use(CORS(cfg.CORSOrigins))

	api := NewAPI(ws, cfg, logger)
	registerRoutes(engine, api)

	return &Server{
		engine: engine,
		http:   &http.Server{Addr: cfg.HTTPAddr, Handler: engine, ReadHeaderTimeout: 10 * time.Second},
		cfg:    cfg,
		logger: logger,
	}
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until Shutdown is called.
func (s *Server) Run() error {
	s.logger.Info("http.listen", "addr", s.cfg.HTTPAddr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
