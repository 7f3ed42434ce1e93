package gateway

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stellarlinkco/remindme/internal/config"
	"github.com/stellarlinkco/remindme/internal/cron"
	"github.com/stellarlinkco/remindme/internal/metrics"
	"github.com/stellarlinkco/remindme/internal/notify"
	"github.com/stellarlinkco/remindme/internal/skill"
	"github.com/stellarlinkco/remindme/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	requestIDHeader = "X-Request-Id"

	// unsupportedLabel replaces request types and intents the skill does not handle.
	unsupportedLabel = "unsupported"

	// requestSendBudget bounds notification retries inside a skill request.
	// The scheduler keeps the notifier's full budget.
	requestSendBudget = 2 * time.Second
)

// Options for creating a Gateway
type Options struct {
	// Notifier replaces the one built from config.
	Notifier skill.Notifier
	// Registry receives the metrics. A fresh registry is created when nil.
	Registry   *prometheus.Registry
	SignalChan chan os.Signal // for testing signal handling
	Clock      func() time.Time
}

type Gateway struct {
	cfg        *config.Config
	logger     *zap.Logger
	store      *store.Store
	skill      *skill.Skill
	scheduler  *cron.Service
	metrics    *metrics.Metrics
	registry   *prometheus.Registry
	engine     *gin.Engine
	signalChan chan os.Signal
}

// New creates a Gateway with default options
func New(cfg *config.Config, logger *zap.Logger) (*Gateway, error) {
	return NewWithOptions(cfg, logger, Options{})
}

func NewWithOptions(cfg *config.Config, logger *zap.Logger, opts Options) (*Gateway, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &Gateway{
		cfg:        cfg,
		logger:     logger.Named("gateway"),
		signalChan: opts.SignalChan,
	}

	st, err := store.Open(cfg.Store.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	g.store = st

	phones, err := store.NewCachedPhones(st, cfg.Store.PhoneCacheSize)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("create phone cache: %w", err)
	}

	notifier, requestNotifier := opts.Notifier, opts.Notifier
	if notifier == nil {
		retrying, err := notify.New(cfg.Notify, logger)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
		notifier = retrying
		requestNotifier = retrying.WithMaxElapsed(requestSendBudget)
	}

	g.registry = opts.Registry
	if g.registry == nil {
		g.registry = prometheus.NewRegistry()
		g.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	g.metrics = metrics.MustNewMetrics(g.registry)

	g.skill = skill.New(skill.Options{
		AppID:        cfg.Skill.AppID,
		NotifyTarget: cfg.Notify.Target,
		Phones:       phones,
		Reminders:    st,
		Notifier:     requestNotifier,
		Logger:       logger,
		Clock:        opts.Clock,
	})

	if cfg.Scheduler.Enabled {
		g.scheduler = cron.NewService(st, notifier, cron.Options{
			Interval: cfg.Scheduler.SweepInterval(),
			Target:   cfg.Notify.Target,
			Phones:   phones,
			Logger:   logger,
			Clock:    opts.Clock,
			OnDelivery: func(_ skill.Reminder, err error) {
				g.metrics.ObserveDelivery(err)
			},
		})
	}

	g.engine = g.routes()
	return g, nil
}

func (g *Gateway) routes() *gin.Engine {
	if gin.Mode() == gin.DebugMode && g.cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery(), g.requestLogger())

	engine.POST("/skill", g.handleSkill)
	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g.registry, promhttp.HandlerOpts{})))
	return engine
}

func (g *Gateway) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(requestIDHeader, id)

		start := time.Now()
		c.Next()

		g.logger.Info("http request",
			zap.String("id", id),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("elapsed", time.Since(start)))
	}
}

func (g *Gateway) handleSkill(c *gin.Context) {
	var ev skill.Event
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event"})
		return
	}

	env, err := g.Dispatch(c.Request.Context(), &ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "request failed"})
		return
	}
	if env == nil {
		c.Status(http.StatusOK)
		return
	}
	c.JSON(http.StatusOK, env)
}

// Dispatch hands one event to the skill and records the outcome.
func (g *Gateway) Dispatch(ctx context.Context, ev *skill.Event) (*skill.Envelope, error) {
	start := time.Now()
	env, err := g.skill.Dispatch(ctx, ev)

	requestType, intent := g.dispatchLabels(ev)
	g.metrics.ObserveDispatch(requestType, intent, err, time.Since(start))
	return env, err
}

// dispatchLabels names ev for metrics using only known request types and
// registered intents.
func (g *Gateway) dispatchLabels(ev *skill.Event) (requestType, intent string) {
	if ev == nil {
		return unsupportedLabel, ""
	}
	switch ev.Request.Type {
	case skill.LaunchRequest, skill.SessionEndedRequest:
		return string(ev.Request.Type), ""
	case skill.IntentRequest:
		if ev.Request.Intent != nil && g.skill.Handles(ev.Request.Intent.Name) {
			return string(ev.Request.Type), string(ev.Request.Intent.Name)
		}
		return string(ev.Request.Type), unsupportedLabel
	}
	return unsupportedLabel, ""
}

func (g *Gateway) Handler() http.Handler {
	return g.engine
}

// Sweep delivers due reminders once, outside the schedule.
func (g *Gateway) Sweep(ctx context.Context) (int, error) {
	if g.scheduler == nil {
		return 0, errors.New("scheduler disabled")
	}
	return g.scheduler.Sweep(ctx)
}

func (g *Gateway) PendingReminders(ctx context.Context) (int, error) {
	return g.store.PendingReminders(ctx)
}

// Run serves the skill endpoint and the reminder schedule until a signal
// arrives or ctx is done.
func (g *Gateway) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              g.cfg.Gateway.Addr(),
		Handler:           g.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigCh := g.signalChan
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	eg, egCtx := errgroup.WithContext(ctx)

	if g.scheduler != nil {
		if err := g.scheduler.Start(egCtx); err != nil {
			g.logger.Warn("scheduler start failed", zap.Error(err))
		}
	}

	eg.Go(func() error {
		g.logger.Info("listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		select {
		case <-sigCh:
			g.logger.Info("shutting down")
		case <-egCtx.Done():
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err := eg.Wait()
	if serr := g.Shutdown(); err == nil {
		err = serr
	}
	return err
}

func (g *Gateway) Shutdown() error {
	if g.scheduler != nil {
		g.scheduler.Stop()
	}
	if g.store != nil {
		if err := g.store.Close(); err != nil {
			return fmt.Errorf("close store: %w", err)
		}
	}
	return nil
}
