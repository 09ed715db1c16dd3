package harness

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/danmuck/durctl/internal/dur"
	"github.com/danmuck/durctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

const version = "0.1.0"

// Runner is the slice of dur.Service the harness drives.
type Runner interface {
	RequestAuthCode(ctx context.Context, identifier string) (string, error)
	ExtractAuthCode(raw string) (string, bool)
	RunTest(ctx context.Context, tt dur.TestType, identifier, authCode string) dur.Result
}

type Server struct {
	ID       string
	Addr     string
	Appeared time.Time

	runner Runner
	router *gin.Engine
}

type authRequest struct {
	Identifier string `form:"jumin" json:"jumin"`
}

type authResponse struct {
	Success     bool    `json:"success"`
	DebugAuthNo *string `json:"debugAuthNo"`
}

type runRequest struct {
	TestType   string `form:"testType" json:"testType"`
	Identifier string `form:"jumin" json:"jumin"`
	AuthCode   string `form:"authNo" json:"authNo"`
}

func New(id, addr string, corsOrigins []string, runner Runner) *Server {
	observability.RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observability.RequestLogger(log.Logger))
	r.Use(observability.RequestMetricsMiddleware(id))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(corsOrigins),
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	return &Server{
		ID:       id,
		Addr:     addr,
		Appeared: time.Now(),
		runner:   runner,
		router:   r,
	}
}

func (s *Server) HTTPRouter() *gin.Engine {
	return s.router
}

func (s *Server) RegisterRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/ready", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"ready":   s.runner != nil,
			"uptime":  time.Since(s.Appeared).String(),
			"service": s.ID,
			"version": version,
		})
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	s.router.GET("/tests", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"testTypes": dur.TestTypes()})
	})

	s.router.POST("/auth", s.handleAuth)
	s.router.POST("/run", s.handleRun)
}

func (s *Server) handleAuth(c *gin.Context) {
	var req authRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// a failed auth exchange is reported as an absent code
	resp := authResponse{Success: true}
	raw, err := s.runner.RequestAuthCode(c.Request.Context(), req.Identifier)
	if err != nil {
		log.Warn().Str("harness", s.ID).Err(err).Msg("auth request failed")
		c.JSON(http.StatusOK, resp)
		return
	}

	if code, ok := s.runner.ExtractAuthCode(raw); ok {
		resp.DebugAuthNo = &code
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleRun(c *gin.Context) {
	var req runRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res := s.runner.RunTest(c.Request.Context(), dur.TestType(req.TestType), req.Identifier, req.AuthCode)
	log.Info().
		Str("harness", s.ID).
		Str("test_type", req.TestType).
		Str("outcome", res.Outcome()).
		Msg("test executed")
	c.JSON(http.StatusOK, res)
}

// Serve blocks until ctx is done or the listener fails.
func (s *Server) Serve(ctx context.Context) error {
	s.RegisterRoutes()
	srv := &http.Server{
		Addr:              s.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
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
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
