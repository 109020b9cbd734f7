package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/RowanDark/glyphpack/internal/config"
	"github.com/RowanDark/glyphpack/internal/logging"
	"github.com/RowanDark/glyphpack/internal/observability/metrics"
	"github.com/RowanDark/glyphpack/internal/rpc"
)

const shutdownGrace = 2 * time.Second

type options struct {
	addr        string
	metricsAddr string
	token       string
	payloadType string
	auditLog    string
	maxInput    int64
}

func main() {
	// Legacy GLYPH_* warnings are logged while the config resolves.
	boot, err := logging.New("warn", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.SetLogger(boot)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	addr := flag.String("addr", cfg.Daemon.Addr, "address for the gRPC server to listen on")
	metricsAddr := flag.String("metrics-addr", cfg.Daemon.MetricsAddr, "address for the Prometheus /metrics endpoint (empty disables it)")
	token := flag.String("token", cfg.Daemon.Token, "bearer token required from clients (empty disables auth)")
	logLevel := flag.String("log-level", cfg.LogLevel, "log level")
	flag.Parse()

	logger, err := logging.New(*logLevel, true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()
	logging.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := options{
		addr:        *addr,
		metricsAddr: *metricsAddr,
		token:       *token,
		payloadType: cfg.PayloadType,
		auditLog:    cfg.AuditLog,
		maxInput:    cfg.Fetch.MaxBytes,
	}
	if err := run(ctx, opts); err != nil {
		logger.Error("glyphpackd exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	lis, err := net.Listen("tcp", opts.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", opts.addr, err)
	}
	defer func() {
		if err := lis.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			logging.Logger().Warn("failed to close listener", zap.Error(err))
		}
	}()

	var metricsLis net.Listener
	if opts.metricsAddr != "" {
		metricsLis, err = net.Listen("tcp", opts.metricsAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", opts.metricsAddr, err)
		}
	}
	return serve(ctx, lis, metricsLis, opts)
}

// serve runs the gRPC server on lis and, when metricsLis is non-nil, the
// metrics endpoint, until ctx is cancelled.
func serve(ctx context.Context, lis, metricsLis net.Listener, opts options) error {
	log := logging.Logger()

	auditOpts := []logging.Option{}
	if opts.auditLog != "" {
		auditOpts = append(auditOpts, logging.WithFile(opts.auditLog))
	}
	audit, err := logging.NewAuditLogger("glyphpackd", auditOpts...)
	if err != nil {
		return fmt.Errorf("open audit log: %w", err)
	}
	defer audit.Close()

	m := metrics.New()
	srv := rpc.NewServer(
		rpc.WithToken(opts.token),
		rpc.WithPayloadType(opts.payloadType),
		rpc.WithMaxInputBytes(opts.maxInput),
		rpc.WithAudit(audit.WithComponent("glyphpackd.rpc")),
		rpc.WithLogger(log),
		rpc.WithMetrics(m),
	).GRPCServer()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("serving gRPC", zap.String("addr", lis.Addr().String()), zap.Bool("auth", opts.token != ""))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			return err
		}
		return nil
	})

	var httpSrv *http.Server
	if metricsLis != nil {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		httpSrv = &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			log.Info("serving metrics", zap.String("addr", metricsLis.Addr().String()))
			if err := httpSrv.Serve(metricsLis); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(shutdownGrace):
			srv.Stop()
		}

		if httpSrv != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := httpSrv.Shutdown(shutdownCtx); err != nil {
				_ = httpSrv.Close()
			}
		}
		return nil
	})

	return g.Wait()
}
