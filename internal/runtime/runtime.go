package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/altavoxlabs/altavox-core/internal/api"
	"github.com/altavoxlabs/altavox-core/internal/audit"
	"github.com/altavoxlabs/altavox-core/internal/bus"
	"github.com/altavoxlabs/altavox-core/internal/config"
	"github.com/altavoxlabs/altavox-core/internal/natsserver"
	"github.com/altavoxlabs/altavox-core/internal/pipeline"
	"github.com/altavoxlabs/altavox-core/internal/speechbus"
	"github.com/altavoxlabs/altavox-core/internal/synth"
	"github.com/altavoxlabs/altavox-core/internal/synth/azure"
)

// Runtime assembles the gateway: synthesis backend, batch scheduler, audit
// store, HTTP API, and the optional bus transport. Start blocks until the
// context is cancelled, then shuts the pieces down in reverse order.
type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry

	synthesizer, err := r.buildSynthesizer()
	if err != nil {
		return err
	}
	sched := pipeline.NewScheduler(synthesizer, r.logger)

	store, err := audit.Open(ctx, r.cfg.Audit, r.logger)
	if err != nil {
		return fmt.Errorf("failed to open audit store: %w", err)
	}

	var (
		embedded  *natsserver.EmbeddedServer
		busClient *bus.Client
		busSvc    *speechbus.Service
	)
	if r.cfg.Bus.Enabled {
		embedded, err = natsserver.Start(r.cfg.Bus, r.logger)
		if err != nil {
			return fmt.Errorf("failed to start embedded bus: %w", err)
		}
		busCfg := r.cfg.Bus
		if embedded != nil && len(busCfg.Servers) == 0 {
			busCfg.Servers = []string{embedded.ClientURL()}
		}
		busClient, err = bus.Connect(busCfg, r.logger)
		if err != nil {
			embedded.Shutdown()
			return fmt.Errorf("failed to connect to bus: %w", err)
		}
		busSvc = speechbus.NewService(ctx, r.cfg.Speech, busClient, sched, store, r.logger)
		if err := busSvc.Start(); err != nil {
			busClient.Close()
			embedded.Shutdown()
			return fmt.Errorf("failed to start bus speech service: %w", err)
		}
	}

	handler := api.NewHandler(r.cfg, sched, store, r.logger)
	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.ready.Store(true)
	r.logger.Info("gateway started",
		slog.String("addr", addr),
		slog.String("backend", r.cfg.Backend.Mode),
		slog.Bool("bus", r.cfg.Bus.Enabled))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("gateway stopping")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()

	if busSvc != nil {
		busSvc.Close()
	}
	if busClient != nil {
		busClient.Close()
	}
	if embedded != nil {
		embedded.Shutdown()
	}
	if err := store.Close(); err != nil {
		r.logger.Error("audit store close error", slog.String("error", err.Error()))
	}
	if r.tracerClose != nil {
		if err := r.tracerClose(shutdownCtx); err != nil {
			r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
		}
	}

	return nil
}

func (r *Runtime) buildSynthesizer() (synth.Synthesizer, error) {
	skew := time.Duration(r.cfg.Speech.RefreshSkewMin) * time.Minute
	switch r.cfg.Backend.Mode {
	case "azure":
		return azure.NewClient(r.cfg.Backend, skew, r.logger), nil
	case "exec":
		return synth.NewExecSynth(r.cfg.Backend.Command)
	case "mock":
		return synth.NewMockSynth(0), nil
	default:
		return nil, fmt.Errorf("unknown backend mode %q", r.cfg.Backend.Mode)
	}
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.ready.Load() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}
