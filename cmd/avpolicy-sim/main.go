// avpolicy-sim runs a simulated A2DP stream through the stream policy.
//
// The simulator negotiates a stream with a peer that exposes every default
// codec of the opposite role, opens it with the given link MTU and streams
// synthetic frames over an in-memory link until all frames are sent or it
// is interrupted.
//
// Usage:
//
//	avpolicy-sim [options]
//
// Options:
//
//	-config    Policy configuration file (default: built-in)
//	-env       Environment file (default: .env)
//	-frames    Frames to stream (default: 500)
//	-size      Full-quality frame size (default: 119)
//	-interval  Frame cadence (default: 10ms)
//	-mtu       Link MTU (default: 672)
//	-metrics   Metrics listen address (default: from config)
//
// The environment variables AVPOLICY_CONFIG, AVPOLICY_METRICS_ADDR,
// AVPOLICY_MTU and AVPOLICY_INTERVAL apply when the matching flag is not set.
//
// Example:
//
//	avpolicy-sim -config policy.yaml -mtu 335 -metrics :9100
package main

import (
	"context"
	"errors"
	"io/fs"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/backkem/avpolicy/pkg/config"
	"github.com/backkem/avpolicy/pkg/metrics"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

func main() {
	opts := ParseFlags()

	if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Fatalf("Failed to load %s: %v", opts.EnvFile, err)
	}
	if err := opts.applyEnv(isFlagSet); err != nil {
		log.Fatalf("Invalid environment: %v", err)
	}

	cfg := config.Default()
	if opts.ConfigPath != "" {
		var err error
		if cfg, err = config.Load(opts.ConfigPath); err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Address = opts.MetricsAddr
	}

	if err := run(opts, cfg); err != nil {
		log.Fatalf("Simulation failed: %v", err)
	}
}

func run(opts Options, cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	lf := cfg.Logging.LoggerFactory()
	logger := lf.NewLogger("sim")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	session, err := NewSession(ctx, cfg, opts, lf, m)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	done := make(chan struct{})

	if cfg.Metrics.Enabled {
		srv := &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Infof("serving metrics on %s", cfg.Metrics.Address)
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			select {
			case <-gctx.Done():
			case <-done:
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	g.Go(func() error {
		defer close(done)
		sum, err := session.Run(gctx)
		if err != nil {
			return err
		}
		logger.Infof("codec=%v mtu=%d produced=%d evicted=%d sent=%d dropped=%d received=%d level=%d delay=%v copy=%v protected=%v",
			sum.Codec, sum.MTU, sum.Produced, sum.Evicted, sum.Sent, sum.Dropped, sum.Received, sum.Level, sum.PeerDelay, sum.CopyMode, sum.Protected)
		return nil
	})

	return g.Wait()
}
