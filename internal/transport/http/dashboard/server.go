package dashboardhttp

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"tradelens/internal/logger"
	"tradelens/internal/store"
	"tradelens/internal/visual"

	"github.com/gin-gonic/gin"
)

// SnapshotProvider 提供当前交易批次，由 store.Repository 实现。
type SnapshotProvider interface {
	Snapshot(ctx context.Context) (*store.Snapshot, error)
	Reload(ctx context.Context) (*store.Snapshot, error)
}

// Server 提供看板页面、图表与 JSON 接口。
type Server struct {
	addr   string
	router *gin.Engine
}

// ServerConfig 描述看板服务依赖。
type ServerConfig struct {
	Addr       string
	Trades     SnapshotProvider
	Charts     visual.Options
	PNGEnabled bool
	PNGTimeout time.Duration
	// Location is used to read from/to dates; nil means UTC.
	Location *time.Location
}

// NewServer 构建看板 HTTP server。
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Trades == nil {
		return nil, errors.New("dashboard http server requires a trade snapshot provider")
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8501"
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger())

	if err := loadTemplates(router); err != nil {
		return nil, err
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	r.Register(router)

	return &Server{addr: cfg.Addr, router: router}, nil
}

func loadTemplates(router *gin.Engine) error {
	tmpl, err := template.New("dashboard").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return fmt.Errorf("parse dashboard templates failed: %w", err)
	}
	router.SetHTMLTemplate(tmpl)
	return nil
}

// requestLogger 记录每次请求，便于追踪刷新与调用。
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		method := c.Request.Method
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery
		client := c.ClientIP()
		c.Next()
		dur := time.Since(start)
		status := c.Writer.Status()
		fullPath := path
		if query != "" {
			fullPath = path + "?" + query
		}
		logger.Debugf("HTTP %s %s status=%d ip=%s dur=%s", method, fullPath, status, client, dur)
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr 返回监听地址。
func (s *Server) Addr() string {
	if s == nil {
		return ""
	}
	return s.addr
}

// Start 启动 HTTP 服务，直到 ctx 取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	srv := &http.Server{Addr: s.addr, Handler: s.router, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	logger.Infof("[http] dashboard listening on %s", s.addr)

	select {
	case <-ctx.Done():
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
