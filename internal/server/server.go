// Package server exposes the retrieval service as a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/tacticalblog/pieces/internal/logger"
	"github.com/tacticalblog/pieces/internal/piece"
	"github.com/tacticalblog/pieces/internal/semantic"
)

// ShutdownTimeout bounds graceful shutdown.
const ShutdownTimeout = 5 * time.Second

// Retriever is the part of *semantic.Service the API uses.
type Retriever interface {
	RetrieveContext(ctx context.Context, query string, opts semantic.Options) (semantic.Result, error)
	Pieces(ctx context.Context) ([]piece.Piece, error)
	Piece(ctx context.Context, slug string) (piece.Piece, error)
}

// New builds the gin engine with request logging and panic recovery.
func New(r Retriever) *gin.Engine {
	engine := gin.New()
	engine.Use(RequestLogger(), gin.Recovery())

	h := &handler{retriever: r}
	api := engine.Group("/api")
	{
		api.GET("/pieces", h.listPieces)
		api.GET("/pieces/:slug", h.getPiece)
		api.POST("/retrieve", h.retrieve)
	}
	return engine
}

// Run serves h on addr until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(logger.L()),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infow("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Infow("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

// RequestLogger logs one line per request through the process logger.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
			"clientIP", c.ClientIP(),
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "error", c.Errors.String())
		}

		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			logger.Errorw("request", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			logger.Warnw("request", fields...)
		default:
			logger.Infow("request", fields...)
		}
	}
}
