package web

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"invoice-extractor/internal/invoice"
)

const requestIDHeader = "X-Request-ID"

// Submitter runs one submit event.
type Submitter interface {
	Submit(ctx context.Context, sub invoice.Submission) (invoice.Response, error)
}

type Options struct {
	Addr      string
	Submitter Submitter
	Logger    *slog.Logger
}

// Server serves the invoice form, its JSON twin and a health check.
type Server struct {
	addr      string
	router    *gin.Engine
	submitter Submitter
	logger    *slog.Logger
}

func NewServer(opts Options) (*Server, error) {
	if opts.Submitter == nil {
		return nil, errors.New("web server requires a submitter")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	tmpl, err := loadTemplates()
	if err != nil {
		return nil, err
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestID(), requestLogger(logger))
	router.SetHTMLTemplate(tmpl)

	s := &Server{
		addr:      opts.Addr,
		router:    router,
		submitter: opts.Submitter,
		logger:    logger,
	}

	router.GET("/", s.handleIndex)
	router.POST("/", s.handleSubmit)
	router.POST("/api/ask", s.handleAPIAsk)
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return s, nil
}

func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       90 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		s.logger.Info("web started", "addr", s.addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("http",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"request_id", c.GetString("request_id"),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	}
}
