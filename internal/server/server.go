// Package server exposes the decoder over HTTP for tools that would rather
// post a captured log than link the library.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/litelog/internal/auth"
	"github.com/danmuck/litelog/internal/decoder"
	"github.com/danmuck/litelog/internal/header"
	"github.com/danmuck/litelog/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const nodeName = "litelog"

type Server struct {
	Addr    string
	Started time.Time

	defs   *header.Definitions
	opts   decoder.Options
	router *gin.Engine
	guard  gin.HandlerFunc
}

func New(addr string, corsOrigins []string, defs *header.Definitions, opts decoder.Options) *Server {
	observability.RegisterMetrics()
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(nodeName))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	if defs == nil {
		defs = &header.Definitions{}
	}
	return &Server{
		Addr:    addr,
		Started: time.Now(),
		defs:    defs,
		opts:    opts,
		router:  r,
	}
}

// Protect requires a bearer token accepted by v on POST /decode. Call it
// before RegisterRoutes.
func (s *Server) Protect(v auth.Validator) {
	s.guard = auth.Middleware(v)
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

// Serve blocks until ctx is cancelled or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.Addr).Msg("server: listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info().Str("addr", s.Addr).Msg("server: shutting down")
		return srv.Shutdown(shutdownCtx)
	}
}

func normalizeOrigins(origins []string) []string {
	out := make([]string, 0, len(origins))
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o != "" {
			out = append(out, o)
		}
	}
	if len(out) == 0 {
		return []string{"http://localhost:3000"}
	}
	return out
}
