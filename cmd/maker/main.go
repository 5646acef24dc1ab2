package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"as-maker-go/alert"
	"as-maker-go/config"
	"as-maker-go/engine"
	"as-maker-go/gateway"
	"as-maker-go/inventory"
	"as-maker-go/logger"
	"as-maker-go/market"
	"as-maker-go/metrics"
	"as-maker-go/order"
	"as-maker-go/position"
	"as-maker-go/risk"
	"as-maker-go/strategy/asmm"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to YAML config")
	flag.Parse()

	// Secrets may live in a local .env; absence is fine.
	_ = godotenv.Load()

	cfg, err := config.LoadWithEnvOverrides(*configPath)
	if err != nil {
		return err
	}

	log, err := logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Metrics.Addr != "" {
		metrics.Serve(cfg.Metrics.Addr, log.Named("metrics"))
		log.Info("metrics endpoint up", zap.String("addr", cfg.Metrics.Addr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gw, kraken := buildGateway(cfg, log)

	lambdaB, lambdaA := cfg.Model.LambdaB, cfg.Model.LambdaA
	if cfg.Model.EstimateLambdas && kraken != nil {
		estCtx, cancel := context.WithTimeout(ctx, time.Minute)
		lb, la, err := kraken.EstimateLambdas(estCtx, cfg.Symbol, 3, 5*time.Second)
		cancel()
		if err != nil {
			log.Warn("lambda estimation failed, using configured values", zap.Error(err))
		} else {
			lambdaB, lambdaA = lb, la
			log.Info("seeded lambdas from order book",
				zap.Float64("lambda_b", lambdaB),
				zap.Float64("lambda_a", lambdaA))
		}
	}

	model, err := asmm.New(cfg.Model.Gamma, lambdaB, lambdaA)
	if err != nil {
		return err
	}
	invMgr, err := inventory.NewManager(cfg.Inventory.MaxInventoryPct, *cfg.Inventory.SkewThreshold)
	if err != nil {
		return err
	}
	breakers := risk.NewBreakers(cfg.Risk.CircuitBreakerPct)
	orders := order.NewManager(gw, cfg.Symbol, cfg.Order.BaseSize, cfg.Order.PriceThreshold, log.Named("order"))
	tracker := position.NewTracker()
	alerts := buildAlerts(cfg, log)

	eng := engine.New(gw, orders, breakers, invMgr, model, tracker, alerts,
		log.Named("engine"), engine.Options{
			Symbol:    cfg.Symbol,
			Timeframe: cfg.Timeframe,
			VolConfig: market.VolConfig{
				Method:    market.VolMethod(cfg.Volatility.Method),
				Window:    cfg.Volatility.Window,
				Annualize: cfg.Timeframe == "1d",
			},
		})

	go watchConfig(ctx, *configPath, eng, log)
	if cfg.Stream.Enabled {
		stream := gateway.NewTickerStream(cfg.Symbol, log.Named("ws"), func(t market.Ticker) {
			metrics.MidPrice.Set(t.Mid())
		})
		go stream.Run(ctx)
	}
	startWatchdog(ctx, log)

	eng.Run(ctx, time.Duration(cfg.CycleSeconds)*time.Second)
	log.Info("shutdown complete")
	return nil
}

// buildGateway returns the gateway plus the live client when one exists
// (lambda estimation needs the concrete Kraken client).
func buildGateway(cfg config.AppConfig, log *zap.Logger) (gateway.Gateway, *gateway.KrakenClient) {
	if cfg.Env == "live" {
		client := gateway.NewKrakenClient(cfg.Gateway.APIKey, cfg.Gateway.APISecret)
		if cfg.Gateway.BaseURL != "" {
			client.BaseURL = cfg.Gateway.BaseURL
		}
		return client, client
	}
	log.Info("paper mode: using simulated gateway")
	sim := gateway.NewSimulator(paperBars(), market.Ticker{Bid: 0.9995, Ask: 1.0005, Last: 1.0}, 100, 100)
	return sim, nil
}

// paperBars seeds the simulator with a flat window around the peg.
func paperBars() market.Snapshot {
	bars := make(market.Snapshot, 0, 48)
	ts := time.Now().Add(-48 * 5 * time.Minute).Truncate(time.Minute)
	for i := 0; i < 48; i++ {
		bars = append(bars, market.Kline{
			Ts:     ts.Add(time.Duration(i) * 5 * time.Minute),
			Open:   1.0,
			High:   1.0005,
			Low:    0.9995,
			Close:  1.0,
			Volume: 100,
		})
	}
	return bars
}

func buildAlerts(cfg config.AppConfig, log *zap.Logger) *alert.Manager {
	channels := []alert.Channel{alert.ZapChannel{Log: log.Named("alert")}}
	if cfg.Alert.TelegramToken != "" && cfg.Alert.TelegramChatID != 0 {
		tg, err := alert.NewTelegramChannel(cfg.Alert.TelegramToken, cfg.Alert.TelegramChatID)
		if err != nil {
			log.Warn("telegram alerts disabled", zap.Error(err))
		} else {
			channels = append(channels, tg)
		}
	}
	return alert.NewManager(channels, time.Duration(cfg.Alert.ThrottleSeconds)*time.Second, log)
}

func watchConfig(ctx context.Context, path string, eng *engine.Engine, log *zap.Logger) {
	err := config.Watch(ctx, path,
		func(cfg config.AppConfig) {
			log.Info("config file changed, queueing reload")
			eng.SetPending(cfg)
		},
		func(err error) {
			log.Warn("config reload rejected", zap.Error(err))
		})
	if err != nil && ctx.Err() == nil {
		log.Warn("config watcher stopped", zap.Error(err))
	}
}

// startWatchdog keeps systemd's watchdog fed when one is configured.
func startWatchdog(ctx context.Context, log *zap.Logger) {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval == 0 {
		return
	}
	log.Info("systemd watchdog enabled", zap.Duration("interval", interval))
	go func() {
		t := time.NewTicker(interval / 2)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
			}
		}
	}()
}
