package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"sandwich-guard/internal/activity"
	"sandwich-guard/internal/alert"
	"sandwich-guard/internal/config"
	"sandwich-guard/internal/discovery"
	"sandwich-guard/internal/domain"
	"sandwich-guard/internal/engine"
	"sandwich-guard/internal/monitor"
	"sandwich-guard/internal/observability"
	"sandwich-guard/internal/solana"
	"sandwich-guard/internal/storage"
	"sandwich-guard/internal/storage/memory"
	"sandwich-guard/internal/storage/migrations"
	pgstore "sandwich-guard/internal/storage/postgres"
	"sandwich-guard/internal/wallet"
)

func main() {
	configPath := flag.String("config", "config.yaml", "Path to YAML config file")
	rpcEndpoint := flag.String("rpc-endpoint", "", "Solana RPC HTTP endpoint (overrides config)")
	wsEndpoint := flag.String("ws-endpoint", "", "Solana WebSocket endpoint (overrides config)")
	walletKey := flag.String("wallet", "", "Wallet public key to monitor (overrides config)")
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL DSN for signature cursors (overrides config)")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics HTTP address (overrides config, \"off\" to disable)")
	logLevel := flag.String("log-level", "", "Log level (overrides config)")

	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}
	applyFlags(cfg, *rpcEndpoint, *wsEndpoint, *walletKey, *postgresDSN, *metricsAddr, *logLevel)
	if err := cfg.Validate(); err != nil {
		logrus.WithError(err).Fatal("invalid config")
	}

	logger := newLogger(cfg.Log)
	log := logger.WithField("component", "detector")

	if cfg.Metrics.Addr != "off" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", observability.Handler())
			mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
				w.Write([]byte("ok"))
			})
			log.WithField("addr", cfg.Metrics.Addr).Info("starting metrics server")
			if err := http.ListenAndServe(cfg.Metrics.Addr, mux); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("metrics server error")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	done := make(chan error, 1)

	go func() {
		sig := <-sigCh
		log.WithField("signal", sig.String()).Info("initiating graceful shutdown")
		cancel()

		select {
		case sig := <-sigCh:
			log.WithField("signal", sig.String()).Warn("second signal, forcing immediate shutdown")
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Error("graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
		}
	}()

	err = run(ctx, cfg, logger)

	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		log.WithError(err).Fatal("detector failed")
	}
	log.Info("shutdown complete")
}

func applyFlags(cfg *config.Config, rpc, ws, walletKey, dsn, metricsAddr, level string) {
	if rpc != "" {
		cfg.Detection.RPCEndpoint = rpc
	}
	if ws != "" {
		cfg.Solana.WSEndpoint = ws
	}
	if walletKey != "" {
		cfg.Wallet.PublicKey = walletKey
	}
	if dsn != "" {
		cfg.Storage.PostgresDSN = dsn
	}
	if metricsAddr != "" {
		cfg.Metrics.Addr = metricsAddr
	}
	if level != "" {
		cfg.Log.Level = level
	}
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	if level, err := logrus.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	}
	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// run wires the detector and blocks until ctx is cancelled.
func run(ctx context.Context, cfg *config.Config, logger *logrus.Logger) error {
	log := logger.WithField("component", "detector")

	rpc := solana.NewHTTPClient(cfg.Detection.RPCEndpoint,
		solana.WithTimeout(cfg.Solana.Timeout),
		solana.WithMaxRetries(cfg.Solana.MaxRetries),
	)
	slot, err := rpc.GetSlot(ctx)
	if err != nil {
		return fmt.Errorf("probe rpc endpoint: %w", err)
	}
	log.WithFields(logrus.Fields{"endpoint": rpc.Endpoint(), "slot": slot}).Info("rpc endpoint reachable")

	wsCfg := solana.DefaultWSConfig()
	wsCfg.Logger = logger
	ws, err := solana.NewWSClient(ctx, cfg.Solana.WSEndpoint, &wsCfg)
	if err != nil {
		return fmt.Errorf("create websocket client: %w", err)
	}
	defer ws.Close()

	registry := discovery.NewRegistry()
	for _, id := range cfg.Monitor.ExtraDEXPrograms {
		registry.RegisterProgramID("custom", id)
	}
	log.WithField("programs", registry.Len()).Info("dex registry ready")

	var cursors storage.CursorStore = memory.NewCursorStore()
	if cfg.Storage.PostgresDSN != "" {
		pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer pool.Close()
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
		cursors = pgstore.NewCursorStore(pool)
		log.Info("using postgres cursor store")
	}

	dispatcher, closeChannels, err := newDispatcher(ctx, cfg.Alerts, logger)
	if err != nil {
		return err
	}
	defer closeChannels()
	// The dispatcher outlives ctx so the stop notice is still delivered.
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())
	defer stopDispatch()
	go dispatcher.Run(dispatchCtx)

	store, err := config.NewStore(cfg.Detection)
	if err != nil {
		return err
	}

	mon, err := monitor.New(monitor.Options{
		RPC:        rpc,
		WS:         ws,
		Classifier: discovery.NewClassifier(registry),
		Ledger:     activity.NewLedger(),
		Config:     store,
		Sink:       dispatcher,
		Cursors:    cursors,
		Settings:   cfg.Monitor,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	eng, err := engine.New(engine.Options{
		Wallet:  wallet.NewWatchOnly(cfg.Wallet.PublicKey),
		Monitor: mon,
		Config:  store,
		Sink:    dispatcher,
		Logger:  logger,
	})
	if err != nil {
		return err
	}

	id, err := eng.ConnectWallet(ctx)
	if err != nil {
		return fmt.Errorf("connect wallet: %w", err)
	}
	if err := eng.Start(ctx, id); err != nil {
		return fmt.Errorf("start monitoring: %w", err)
	}

	<-ctx.Done()
	eng.Close()
	stopDispatch()
	<-dispatcher.Done()
	return ctx.Err()
}

// newDispatcher builds the alert fan-out from config. The log channel is always on.
func newDispatcher(ctx context.Context, cfg config.AlertsConfig, logger *logrus.Logger) (*alert.Dispatcher, func(), error) {
	channels := []alert.Channel{alert.NewLogChannel(logger)}
	closers := []func(){}

	if cfg.Telegram.Enabled() {
		minLevel, err := domain.ParseRiskLevel(cfg.Telegram.MinLevel)
		if err != nil {
			return nil, nil, err
		}
		channels = append(channels, alert.MinLevel(alert.NewTelegramChannel(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger), minLevel))
	}

	if cfg.Redis.Addr != "" {
		client, err := alert.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { _ = client.Close() })
		channels = append(channels, alert.NewRedisChannel(client, cfg.Redis.Channel))
	}

	closeAll := func() {
		for _, c := range closers {
			c()
		}
	}
	return alert.NewDispatcher(cfg.QueueSize, logger, channels...), closeAll, nil
}
