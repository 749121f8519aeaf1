// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package shared

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/tombee/sluice/internal/debug"
	"github.com/tombee/sluice/internal/engine"
	"github.com/tombee/sluice/internal/log"
	"github.com/tombee/sluice/internal/tracing"
)

// NewLogger builds the command logger from the environment and the global
// flags. Without an explicit level the CLI only logs warnings.
func NewLogger(w io.Writer) *slog.Logger {
	cfg := log.FromEnv()
	if os.Getenv("SLUICE_DEBUG") == "" && os.Getenv("SLUICE_LOG_LEVEL") == "" && os.Getenv("LOG_LEVEL") == "" {
		cfg.Level = "warn"
	}
	if verboseFlag {
		cfg.Level = "debug"
	}
	if quietFlag {
		cfg.Level = "error"
	}
	if logFormatFlag != "" {
		cfg.Format = log.Format(logFormatFlag)
	}
	cfg.Output = w
	return log.New(cfg)
}

// Runtime holds the ambient services of one command invocation.
type Runtime struct {
	Logger *slog.Logger
	Tracer trace.Tracer

	provider *tracing.Provider
	metrics  *http.Server
}

// NewRuntime sets up logging, and tracing and the metrics endpoint when
// requested by the global flags.
func NewRuntime(stderr io.Writer) (*Runtime, error) {
	rt := &Runtime{Logger: NewLogger(stderr)}

	if traceFlag {
		provider, err := tracing.NewProvider(tracing.Config{
			ServiceVersion: version,
			Writer:         stderr,
		})
		if err != nil {
			return nil, err
		}
		rt.provider = provider
		rt.Tracer = provider.Tracer("github.com/tombee/sluice")
	}

	if metricsAddrFlag != "" {
		srv, err := StartMetricsServer(metricsAddrFlag, rt.Logger)
		if err != nil {
			return nil, err
		}
		rt.metrics = srv
	}
	return rt, nil
}

// Close flushes spans and stops the metrics endpoint.
func (rt *Runtime) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if rt.provider != nil {
		if err := rt.provider.Shutdown(ctx); err != nil {
			rt.Logger.Warn("failed to flush spans", log.Error(err))
		}
	}
	if rt.metrics != nil {
		if err := rt.metrics.Shutdown(ctx); err != nil {
			rt.Logger.Warn("failed to stop metrics endpoint", log.Error(err))
		}
	}
}

// StartMetricsServer serves the Prometheus registry on addr at /metrics.
// The returned server's Addr holds the bound address.
func StartMetricsServer(addr string, logger *slog.Logger) (*http.Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics endpoint failed", log.Error(err))
		}
	}()
	logger.Info("metrics endpoint listening", "addr", srv.Addr)
	return srv, nil
}

// LoadTransformation resolves path, loads the definition and prepares a
// transformation for it.
func LoadTransformation(path string, logger *slog.Logger) (*engine.Trans, error) {
	resolved, err := ResolveTransformationPath(path)
	if err != nil {
		return nil, NewInvalidTransformationError("cannot load transformation", err)
	}

	def, err := engine.LoadDefinition(resolved)
	if err != nil {
		return nil, NewInvalidTransformationError("cannot load transformation", err)
	}

	trans := engine.New(def, engine.WithLogger(logger))
	if err := trans.Prepare(); err != nil {
		return nil, NewInvalidTransformationError("cannot prepare transformation", err)
	}
	return trans, nil
}

// RunTransformation starts trans and waits for it. An interrupt stops the
// transformation gracefully.
func RunTransformation(ctx context.Context, trans *engine.Trans) error {
	if err := trans.Start(ctx); err != nil {
		return NewExecutionError("cannot start transformation", err)
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan error, 1)
	go func() { done <- trans.Wait() }()

	var err error
	select {
	case err = <-done:
	case <-sigCtx.Done():
		trans.Stop()
		err = <-done
	}
	if err != nil {
		return NewExecutionError("transformation failed", err)
	}
	return nil
}

// StepStatsFor collects rows written per step in definition order.
func StepStatsFor(trans *engine.Trans) []StepStats {
	var out []StepStats
	for _, step := range trans.Definition().Steps {
		instances := trans.StepInstances(step.Name)
		stats := StepStats{Step: step.Name, Copies: len(instances)}
		for _, inst := range instances {
			stats.RowsWritten += inst.RowsWritten()
		}
		out = append(out, stats)
	}
	return out
}

// CapturedFor snapshots the buffer of every configured step.
func CapturedFor(td *debug.TransDebug) []CapturedRows {
	var out []CapturedRows
	for _, name := range td.Steps() {
		sd := td.StepDebug(name)
		meta, rows := sd.Snapshot()

		captured := CapturedRows{
			Step: name,
			Mode: sd.Mode().String(),
			Hits: sd.Hits(),
			Rows: debug.NewInspector(meta, rows).Records(),
		}
		if meta != nil {
			captured.Columns = meta.Names()
		}
		out = append(out, captured)
	}
	return out
}

// NewRunResponse builds the JSON result of a finished run. td may be nil.
func NewRunResponse(command string, trans *engine.Trans, td *debug.TransDebug, err error) RunResponse {
	resp := RunResponse{
		JSONResponse:   NewJSONResponse(command, err),
		Transformation: trans.Name(),
		Stopped:        trans.IsStopped(),
		Steps:          StepStatsFor(trans),
	}
	if td != nil {
		resp.Captured = CapturedFor(td)
	}
	return resp
}

// PrintStepStats writes one line per step.
func PrintStepStats(w io.Writer, stats []StepStats) {
	for _, s := range stats {
		fmt.Fprintf(w, "  %-20s %s\n", s.Step, Muted.Render(fmt.Sprintf("%d rows, %d copies", s.RowsWritten, s.Copies)))
	}
}
