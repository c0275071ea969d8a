package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Abhichasma/StateMQ/internal/config"
	"github.com/Abhichasma/StateMQ/internal/engine"
	"github.com/Abhichasma/StateMQ/internal/journal"
	"github.com/Abhichasma/StateMQ/internal/metrics"
	"github.com/Abhichasma/StateMQ/internal/scheduler"
	"github.com/Abhichasma/StateMQ/internal/transport/mqtt"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal     string
	MetricsAddr string
	RunOnStart  bool

	// ClientFactory overrides the paho client (for testing).
	ClientFactory mqtt.ClientFactory

	// RunIDs overrides the journal run id generator (for testing).
	// If nil, defaults to journal.UUIDv7Generator.
	RunIDs journal.RunIDGenerator
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	return newRunCommand(&RunOptions{RootOptions: rootOpts})
}

func newRunCommand(opts *RunOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run <config>",
		Short: "Connect a device to its broker",
		Long: `Run a device: declare its rules and tasks, connect to the broker,
apply inbound messages to the state machine and run the periodic tasks
until interrupted.

Transitions can be journaled to a SQLite database for later inspection
with the trace command, and Prometheus metrics served over HTTP.

Examples:
  statemq run ./lab-node.yaml
  statemq run ./lab-node.yaml --journal ./lab-node.db
  statemq run ./lab-node.yaml --metrics-addr :9108 --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevice(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "path to a SQLite transition journal (optional)")
	cmd.Flags().StringVar(&opts.MetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (optional)")
	cmd.Flags().BoolVar(&opts.RunOnStart, "run-on-start", false, "run each enabled task once at startup")

	return cmd
}

func runDevice(opts *RunOptions, path string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
		Level: logLevel,
	}))

	cfg, err := config.Load(path)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load config", err)
	}
	env := &actionEnv{cfg: cfg, logger: logger, out: cmd.OutOrStdout()}
	if errs := cfg.Validate(env.actions()); len(errs) > 0 {
		return WrapExitError(ExitCommandError, fmt.Sprintf("invalid config (%d problem(s))", len(errs)), errs[0])
	}

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	observers := []engine.Observer{engine.NewLoggingObserver(logger)}

	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if closeErr := j.Close(); closeErr != nil {
				logger.Error("error closing journal", "error", closeErr)
			}
		}()

		runIDs := opts.RunIDs
		if runIDs == nil {
			runIDs = journal.UUIDv7Generator{}
		}
		rec, err := j.Recorder(ctx, runIDs.Generate(), cfg.Node, journal.WithRecorderLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to begin journal run", err)
		}
		logger.Info("journaling transitions", "path", opts.Journal, "run_id", rec.RunID())
		observers = append(observers, rec)
	}

	var reg *prometheus.Registry
	if opts.MetricsAddr != "" {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector())
		observers = append(observers, metrics.NewObserver(reg))
	}

	eng := engine.New(engine.WithLogger(logger), engine.WithObserver(observers...))

	mc, err := cfg.MQTT()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid broker settings", err)
	}
	binding, err := mqtt.New(eng, mc, mqtt.WithLogger(logger), mqtt.WithClientFactory(opts.ClientFactory))
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid broker settings", err)
	}
	for topic, qos := range cfg.SubscribeQoS() {
		binding.SetSubscribeQoS(topic, qos)
	}
	for _, sub := range cfg.RawSubscriptions() {
		binding.Subscribe(sub.Topic, sub.QoS)
	}

	env.state = eng
	env.bus = binding
	if _, err := cfg.Apply(eng, env.actions()); err != nil {
		return WrapExitError(ExitCommandError, "failed to declare config", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	if err := binding.Start(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return WrapExitError(ExitCommandError, "failed to connect to broker", err)
	}
	defer binding.Stop()

	fmt.Fprintf(cmd.OutOrStdout(), "Device %s started (state %s).\n", cfg.Node, eng.State())
	fmt.Fprintln(cmd.OutOrStdout(), "Press Ctrl-C to stop.")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return scheduler.New(eng,
			scheduler.WithLogger(logger),
			scheduler.RunOnStart(opts.RunOnStart),
		).Run(gctx)
	})
	if reg != nil {
		g.Go(func() error {
			return serveMetrics(gctx, opts.MetricsAddr, reg, logger)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "device error", err)
	}

	logger.Info("device stopped", "state", eng.State())
	return nil
}

// serveMetrics serves /metrics until ctx is done.
func serveMetrics(ctx context.Context, addr string, reg *prometheus.Registry, logger *slog.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("serving metrics", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("metrics server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
