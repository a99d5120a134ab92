// Command medteam runs a multidisciplinary review of one medical report.
//
// Three specialist agents analyse the report concurrently; a team agent then
// synthesizes their findings into a single diagnosis file. All settings come
// from the environment, an optional medteam.yaml and apikey.env.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/scttfrdmn/agenkit/medteam-go/agenkit"
	"github.com/scttfrdmn/agenkit/medteam-go/agent"
	"github.com/scttfrdmn/agenkit/medteam-go/config"
	"github.com/scttfrdmn/agenkit/medteam-go/observability"
	"github.com/scttfrdmn/agenkit/medteam-go/pipeline"
	"github.com/scttfrdmn/agenkit/medteam-go/runner"
)

const (
	exitOK      = 0
	exitFailure = 1
)

const shutdownTimeout = 5 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, configPath(), nil)
	stop()
	os.Exit(code)
}

func configPath() string {
	if p, ok := os.LookupEnv("MEDTEAM_CONFIG"); ok {
		return p
	}
	return config.DefaultConfigPath
}

// run executes one pipeline and returns the process exit code. builder
// overrides backend construction when non-nil.
func run(ctx context.Context, cfgPath string, builder agent.ModelBuilder) int {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitFailure
	}

	level, _ := observability.ParseLevel(cfg.Log.Level)
	logger := observability.ConfigureLogging(level, cfg.Log.Structured, cfg.Log.TraceContext)

	if cfg.Telemetry.TracingEnabled() {
		var console io.Writer
		if cfg.Telemetry.ConsoleTraces {
			console = os.Stderr
		}
		tp, err := observability.InitTracing(ctx, cfg.Telemetry.ServiceName, cfg.Telemetry.OTLPEndpoint, console)
		if err != nil {
			logger.Error("Failed to initialize tracing", "error", err)
			return exitFailure
		}
		defer shutdown(logger, "tracer provider", tp.Shutdown)
	}

	var metrics *observability.InvocationMetrics
	if cfg.Telemetry.MetricsEnabled() {
		registry := promclient.NewRegistry()
		mp, err := observability.InitMetrics(ctx, cfg.Telemetry.ServiceName, registry)
		if err != nil {
			logger.Error("Failed to initialize metrics", "error", err)
			return exitFailure
		}
		defer shutdown(logger, "meter provider", mp.Shutdown)
		defer func() {
			if err := observability.WriteMetricsFile(cfg.Telemetry.MetricsFile, registry); err != nil {
				logger.Warn("Metrics snapshot not written", "error", err)
			}
		}()

		metrics, err = observability.NewInvocationMetrics()
		if err != nil {
			logger.Error("Failed to create metrics", "error", err)
			return exitFailure
		}
	}

	data, err := os.ReadFile(cfg.ReportPath)
	if err != nil {
		logger.Error("Cannot read medical report", "error", &agenkit.MissingInputError{Path: cfg.ReportPath, Cause: err})
		return exitFailure
	}

	agentCfg := cfg.AgentConfig()
	agentCfg.Builder = builder
	factory, err := agent.NewFactory(ctx, agentCfg)
	if err != nil {
		logger.Error("Cannot create agents", "error", err)
		return exitFailure
	}

	invoker := runner.NewInvoker(runner.WithLogger(logger), runner.WithMetrics(metrics))
	p := pipeline.New(factory, cfg.OutputPath, pipeline.WithInvoker(invoker), pipeline.WithLogger(logger))

	outcome, err := p.Run(ctx, string(data))
	var (
		incomplete *agenkit.IncompleteSpecialistSetError
		synthErr   *agenkit.TeamSynthesisError
	)
	switch {
	case err == nil:
		logger.Info("Run complete", "run_id", outcome.RunID, "output", outcome.OutputPath)
	case errors.As(err, &incomplete), errors.As(err, &synthErr):
		logger.Error("Run finished without a diagnosis; failure marker written",
			"run_id", outcome.RunID, "output", outcome.OutputPath, "error", err)
	default:
		logger.Error("Run failed", "error", err)
		return exitFailure
	}
	return exitOK
}

func shutdown(logger *slog.Logger, name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		logger.Warn("Shutdown failed", "component", name, "error", err)
	}
}
