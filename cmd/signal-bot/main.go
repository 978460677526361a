package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ducminhle1904/crypto-signal-bot/internal/config"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/monitoring"
)

func main() {
	var (
		configFile = flag.String("config", "", "Configuration file (e.g., btc_macd_vol.json)")
		preset     = flag.String("preset", "", "Built-in preset ("+strings.Join(config.PresetNames(), ", ")+")")
		envFile    = flag.String("env", ".env", "Environment file path")
		once       = flag.Bool("once", false, "Run a single polling round and exit")
	)
	flag.Parse()

	if *configFile == "" && *preset == "" {
		log.Fatal("Please specify a config file with -config or a preset with -preset")
	}
	if err := config.LoadEnvFile(*envFile); err != nil {
		log.Printf("Warning: could not load %s: %v", *envFile, err)
	}

	var (
		cfg *config.BotConfig
		err error
	)
	if *configFile != "" {
		cfg, err = config.LoadBotConfig(*configFile)
	} else {
		cfg, err = config.Preset(*preset)
	}
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	botLog, err := logger.NewLoggerWithConfig(logger.Config{
		Dir:     cfg.Logging.Dir,
		Name:    cfg.Name,
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer botLog.Close()

	a, err := buildApp(cfg, nil, botLog, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to create signal bot: %v", err)
	}
	defer a.Close()

	a.bot.PrintBanner(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := runOnce(ctx, a); err != nil {
			botLog.LogError("single round", err)
			os.Exit(1)
		}
		return
	}

	if cfg.Monitoring.Listen != "" {
		server := monitoring.NewServer(cfg.Monitoring.Listen, a.health, a.metrics,
			func() interface{} { return a.bot.Stats() }, botLog)
		if err := server.Start(); err != nil {
			log.Fatalf("Failed to start monitoring server: %v", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			server.Shutdown(shutdownCtx)
		}()
	}

	fmt.Println("🚀 Signal bot running, press Ctrl+C to stop")
	if err := a.bot.Run(ctx); err != nil {
		botLog.LogError("signal bot", err)
	}
	fmt.Println("\n🛑 Signal bot stopped")
}

// runOnce loads state, polls one round and saves
func runOnce(ctx context.Context, a *app) error {
	if err := a.gate.Load(ctx); err != nil {
		return err
	}
	stats, roundErr := a.bot.RunOnce(ctx)
	fmt.Printf("📊 %s\n", stats)

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.gate.Flush(flushCtx); err != nil {
		return err
	}
	return roundErr
}
