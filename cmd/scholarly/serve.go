package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scholarlyreport/scholarly/internal/metrics"
	"github.com/scholarlyreport/scholarly/internal/network"
	"github.com/scholarlyreport/scholarly/internal/pipeline"
	"github.com/scholarlyreport/scholarly/internal/reference"
	"github.com/scholarlyreport/scholarly/internal/stats"
	"github.com/scholarlyreport/scholarly/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the report, a JSON API and Prometheus metrics",
	Long: `Serve loads the stored author files and serves:

  /                      the rendered report (output directory)
  /api/authors           per-author statistics for the configured period
  /api/authors/:id       one author with their publications
  /api/journals          the journal ranking
  /api/network           the coauthorship network (?level=group for groups)
  /metrics               Prometheus metrics
  /healthz               liveness

The address defaults to serve_addr in scholarly.yml.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	runner, cfg, logger := mustNewRunner()
	defer logger.Sync()

	if serveAddr != "" {
		cfg.ServeAddr = serveAddr
	}

	srv := newServer(runner, cfg.OutputDir, logger)
	if err := srv.reload(); err != nil {
		exitWithError(exitCodeFor(err), "loading data: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := listen(ctx, cfg.ServeAddr, newRouter(srv, logger), logger); err != nil {
		exitWithError(ExitError, "%v", err)
	}
	return nil
}

// listen runs an HTTP server until ctx is done, then shuts it down.
func listen(ctx context.Context, addr string, handler http.Handler, logger *zap.Logger) error {
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("starting server", zap.String("addr", addr))
		errc <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

// server holds the loaded store shared by the API handlers. reload swaps it
// after a scheduled run.
type server struct {
	runner    *pipeline.Runner
	metrics   *metrics.Metrics
	outputDir string
	logger    *zap.Logger

	mu       sync.RWMutex
	store    *store.Store
	authors  *network.Graph
	groups   *network.Graph
	loadedAt time.Time
}

func newServer(runner *pipeline.Runner, outputDir string, logger *zap.Logger) *server {
	return &server{
		runner:    runner,
		metrics:   runner.Metrics(),
		outputDir: outputDir,
		logger:    logger,
	}
}

// reload rebuilds the store from the data directory.
func (s *server) reload() error {
	res, err := s.runner.Load()
	if err != nil {
		return err
	}
	s.set(res.Store)
	return nil
}

func (s *server) set(st *store.Store) {
	authors := network.Build(st)
	groups := network.BuildGroups(st)
	s.metrics.ObserveStore(st.Registry().Len(), st.Len(), len(authors.Links))

	s.mu.Lock()
	s.store = st
	s.authors = authors
	s.groups = groups
	s.loadedAt = time.Now()
	s.mu.Unlock()
}

func (s *server) snapshot() (*store.Store, *network.Graph, *network.Graph) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.store, s.authors, s.groups
}

// newRouter wires the API, metrics and report routes.
func newRouter(s *server, logger *zap.Logger) *gin.Engine {
	if !verbose {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	router.GET("/healthz", func(c *gin.Context) {
		s.mu.RLock()
		loadedAt := s.loadedAt
		s.mu.RUnlock()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "loaded_at": loadedAt})
	})

	setupAuthorRoutes(router, s)
	setupJournalRoutes(router, s)
	setupNetworkRoutes(router, s)

	// Everything else is the static report.
	router.NoRoute(gin.WrapH(http.FileServer(http.Dir(s.outputDir))))
	return router
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)))
	}
}

// AuthorResponse is one author with their publications.
type AuthorResponse struct {
	Author       reference.Author        `json:"author"`
	Summary      stats.Summary           `json:"summary"`
	Publications []reference.Publication `json:"publications"`
}

func setupAuthorRoutes(router *gin.Engine, s *server) {
	rg := router.Group("/api/authors")
	period := s.runner.Period()

	rg.GET("", func(c *gin.Context) {
		st, _, _ := s.snapshot()
		summaries := make([]stats.Summary, 0, st.Registry().Len())
		for _, a := range st.Authors() {
			sum, _ := stats.AuthorSummary(st, a.ID, period)
			summaries = append(summaries, sum)
		}
		c.JSON(http.StatusOK, summaries)
	})

	rg.GET("/:id", func(c *gin.Context) {
		st, _, _ := s.snapshot()
		id := c.Param("id")
		a, ok := st.Registry().Get(id)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown author"})
			return
		}
		sum, _ := stats.AuthorSummary(st, id, period)
		pubs := stats.Filter(st.AuthorPublications(id), period)
		if pubs == nil {
			pubs = []reference.Publication{}
		}
		c.JSON(http.StatusOK, AuthorResponse{Author: a, Summary: sum, Publications: pubs})
	})
}

func setupJournalRoutes(router *gin.Engine, s *server) {
	period := s.runner.Period()
	router.GET("/api/journals", func(c *gin.Context) {
		st, _, _ := s.snapshot()
		ranking := stats.JournalRanking(stats.Filter(st.Publications(), period))
		if ranking == nil {
			ranking = []stats.JournalStat{}
		}
		c.JSON(http.StatusOK, ranking)
	})
}

func setupNetworkRoutes(router *gin.Engine, s *server) {
	router.GET("/api/network", func(c *gin.Context) {
		_, authors, groups := s.snapshot()
		switch c.DefaultQuery("level", "author") {
		case "author":
			c.JSON(http.StatusOK, authors)
		case "group":
			c.JSON(http.StatusOK, groups)
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "level must be author or group"})
		}
	})
}
