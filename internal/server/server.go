package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/atikulmunna/tailview/internal/aggregator"
	"github.com/atikulmunna/tailview/internal/filter"
	"github.com/atikulmunna/tailview/internal/hub"
	"github.com/atikulmunna/tailview/internal/model"
	"github.com/atikulmunna/tailview/internal/output"
)

// Controller is the inbound control surface of the ingestion pipeline.
type Controller interface {
	Snapshot() model.Snapshot
	Reload()
	Clear()
	TogglePause() bool
	SetFollowTail(follow bool)
}

// Server holds the Gin engine and dependencies for the display transport.
type Server struct {
	engine     *gin.Engine
	ctrl       Controller
	hub        *hub.Hub
	aggregator *aggregator.Aggregator
	addr       string
	log        *slog.Logger
}

// New creates the HTTP server.
func New(ctrl Controller, h *hub.Hub, agg *aggregator.Aggregator, addr string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	// Disable automatic redirects that cause 301 issues.
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false

	s := &Server{
		engine:     engine,
		ctrl:       ctrl,
		hub:        h,
		aggregator: agg,
		addr:       addr,
		log:        log,
	}

	s.setupRoutes()
	return s
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) setupRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		stats := s.aggregator.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"status":        "ok",
			"uptime":        stats.Uptime,
			"files_watched": stats.FilesWatched,
			"eps":           stats.EPS,
			"dropped_logs":  stats.DroppedLogs,
		})
	})

	api := s.engine.Group("/api")
	api.GET("/stats", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.aggregator.Snapshot())
	})
	api.GET("/snapshot", func(c *gin.Context) {
		c.JSON(http.StatusOK, s.ctrl.Snapshot())
	})
	api.GET("/entries", s.handleEntries)
	api.GET("/export", s.handleExport)
	api.POST("/reload", func(c *gin.Context) {
		s.ctrl.Reload()
		c.Status(http.StatusAccepted)
	})
	api.POST("/clear", func(c *gin.Context) {
		s.ctrl.Clear()
		c.Status(http.StatusAccepted)
	})
	api.POST("/pause", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"paused": s.ctrl.TogglePause()})
	})
	api.POST("/follow", func(c *gin.Context) {
		follow, err := strconv.ParseBool(c.DefaultQuery("on", "true"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "on must be a boolean"})
			return
		}
		s.ctrl.SetFollowTail(follow)
		c.JSON(http.StatusOK, gin.H{"followTail": follow})
	})

	s.engine.GET("/ws", s.handleWebSocket)

	// pprof profiling endpoints.
	s.engine.GET("/debug/pprof/", gin.WrapF(pprof.Index))
	s.engine.GET("/debug/pprof/cmdline", gin.WrapF(pprof.Cmdline))
	s.engine.GET("/debug/pprof/profile", gin.WrapF(pprof.Profile))
	s.engine.GET("/debug/pprof/symbol", gin.WrapF(pprof.Symbol))
	s.engine.GET("/debug/pprof/trace", gin.WrapF(pprof.Trace))
	s.engine.GET("/debug/pprof/heap", gin.WrapH(pprof.Handler("heap")))
	s.engine.GET("/debug/pprof/goroutine", gin.WrapH(pprof.Handler("goroutine")))
}

// view is the filtered, searched slice of the current snapshot.
type view struct {
	Session      string           `json:"session"`
	Entries      []model.LogEntry `json:"entries"`
	Matches      []int            `json:"matches"`
	Cursor       int              `json:"cursor"`
	DroppedCount int              `json:"droppedCount"`
}

// buildView applies ?producer=, ?level=, ?q=, ?cursor= and ?dir= to the
// snapshot. Missing producer or level selections select everything.
func (s *Server) buildView(c *gin.Context) view {
	snap := s.ctrl.Snapshot()

	producers := c.QueryArray("producer")
	if len(producers) == 0 {
		producers = snap.KnownProducers
	}
	var levels []model.Level
	for _, l := range c.QueryArray("level") {
		levels = append(levels, model.Level(l))
	}
	if len(levels) == 0 {
		levels = model.AllLevels
	}

	entries := filter.Entries(snap.Entries, producers, levels)
	matches := filter.MatchIndices(entries, c.Query("q"))

	cursor := -1
	if raw := c.Query("cursor"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			cursor = n
		}
	}
	if dir := c.Query("dir"); dir != "" {
		cursor = filter.NextCursor(matches, cursor, filter.Direction(dir))
	} else if len(matches) == 0 {
		cursor = -1
	}

	if matches == nil {
		matches = []int{}
	}
	return view{
		Session:      snap.Session,
		Entries:      entries,
		Matches:      matches,
		Cursor:       cursor,
		DroppedCount: snap.DroppedCount,
	}
}

func (s *Server) handleEntries(c *gin.Context) {
	c.JSON(http.StatusOK, s.buildView(c))
}

// handleExport returns the visible lines as plain text.
func (s *Server) handleExport(c *gin.Context) {
	v := s.buildView(c)
	c.Header("Content-Type", "text/plain; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="tailview-export.txt"`)
	c.Status(http.StatusOK)
	r := output.NewRawRenderer(c.Writer)
	for _, e := range v.Entries {
		if err := r.Render(e); err != nil {
			s.log.Warn("export write failed", "error", err)
			return
		}
	}
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.addr)
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
		return srv.Shutdown(shutdownCtx)
	}
}
