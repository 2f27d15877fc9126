// Package server 对外提供 HTTP 接口：健康检查、JSON/表单抠图、背景合成。
package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/chaos-io/cutout/compose"
	"github.com/chaos-io/cutout/config"
	"github.com/chaos-io/cutout/rembg"
	"github.com/chaos-io/cutout/util"
)

const (
	ServiceName = "cutout background removal API"

	// 输入已带透明信息时跳过抠图
	MethodPassthrough = "passthrough"

	defaultShutdownTimeout = 10 * time.Second
)

// HealthSource 远程模型服务的健康状态
type HealthSource interface {
	Snapshot() rembg.Snapshot
}

type methodRemover interface {
	RemoveWithMethod(ctx context.Context, img image.Image) (image.Image, string, error)
}

type Server struct {
	cfg     *config.Config
	remover rembg.Remover
	health  HealthSource
	library *compose.Library
	engine  *gin.Engine
}

type Option func(*Server)

func WithHealth(h HealthSource) Option {
	return func(s *Server) {
		s.health = h
	}
}

func WithLibrary(lib *compose.Library) Option {
	return func(s *Server) {
		s.library = lib
	}
}

func New(cfg *config.Config, remover rembg.Remover, opts ...Option) *Server {
	s := &Server{
		cfg:     cfg,
		remover: remover,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.engine = s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(
		recovery(),
		requestID(),
		accessLog(),
	)
	if mw := corsMiddleware(s.cfg); mw != nil {
		r.Use(mw)
	}
	r.Use(bodyLimit(s.cfg.Server.MaxBodyBytes))

	r.GET("/health", s.handleHealth)
	r.GET("/api", s.handleIndex)
	r.POST("/remove-background", s.handleRemoveBackground)
	r.POST("/api/background-removal", s.handleBackgroundRemovalForm)
	r.POST("/customize-product", s.handleCustomizeProduct)

	return r
}

// Run 监听并服务，ctx 取消后优雅关闭
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr(), err)
	}
	return s.Serve(ctx, ln)
}

func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", ln.Addr().String(), "env", s.cfg.Env)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	slog.Info("server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// removeBackground 按 max_side 缩放后去除背景，返回结果与实际使用的方法
func (s *Server) removeBackground(ctx context.Context, img image.Image) (image.Image, string, error) {
	defer util.Trace("remove background")()

	src := compose.ResizeWithinMax(img, s.cfg.Server.MaxSide)
	if m, ok := s.remover.(methodRemover); ok {
		return m.RemoveWithMethod(ctx, src)
	}

	out, err := s.remover.Remove(ctx, src)
	if err != nil {
		return nil, "", err
	}
	return out, s.remover.Name(), nil
}
