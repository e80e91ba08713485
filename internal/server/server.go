package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/Wikid82/warden/internal/api/routes"
	"github.com/Wikid82/warden/internal/config"
)

// Server wraps the HTTP engine and shared dependencies for easier testing.
// The API is only reachable over a local endpoint (unix socket, or a named
// pipe on Windows), never a network socket.
type Server struct {
	Engine *gin.Engine
	cfg    config.Config
}

// New wires up the HTTP router and registers routes.
func New(db *gorm.DB, cfg config.Config, deps routes.Deps) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	if err := routes.Register(router, db, cfg, deps); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	return &Server{Engine: router, cfg: cfg}, nil
}

// Run serves on the local endpoint with proper shutdown semantics.
func (s *Server) Run(ctx context.Context) error {
	ln, err := listen(s.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.SocketPath, err)
	}

	srv := &http.Server{Handler: s.Engine}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
