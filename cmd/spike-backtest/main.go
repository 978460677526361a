package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ducminhle1904/crypto-signal-bot/internal/backtest"
	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/logger"
	"github.com/ducminhle1904/crypto-signal-bot/internal/strategy"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/data"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/reporting"
)

func main() {
	var (
		dataFile   = flag.String("data", "", "Candle CSV file (located under -data-root when empty)")
		dataRoot   = flag.String("data-root", "data", "Data root for data/{exchange}/{category}/{symbol}/{minutes}/candles.csv")
		exchange   = flag.String("exchange", "bybit", "Exchange directory under -data-root")
		symbol     = flag.String("symbol", "BTCUSDT", "Trading symbol")
		timeframe  = flag.String("timeframe", "1h", "Candle timeframe")
		balance    = flag.Float64("balance", 10000, "Initial balance")
		risk       = flag.Float64("risk", 0.02, "Fraction of balance risked per trade")
		commission = flag.Float64("commission", 0.0005, "Commission per side")
		period     = flag.Duration("period", 0, "Only replay the trailing period, e.g. 720h")
		xlsx       = flag.Bool("xlsx", false, "Write trades.xlsx to the output directory")
		csvOut     = flag.Bool("csv", false, "Write trades.csv to the output directory")
		outDir     = flag.String("out", "", "Output directory (results/SYMBOL_timeframe when empty)")
	)
	flag.Parse()

	if err := candle.Validate(*timeframe); err != nil {
		log.Fatalf("Invalid timeframe: %v", err)
	}

	nop := logger.NewNopLogger()
	path := *dataFile
	if path == "" {
		path = data.NewDefaultFileLocator(nop).FindDataFile(*dataRoot, *exchange, *symbol, *timeframe)
		if path == "" {
			log.Fatalf("No data file found for %s %s under %s", *symbol, *timeframe, *dataRoot)
		}
	}

	candles, err := data.NewCSVProvider(nop).LoadData(path)
	if err != nil {
		log.Fatalf("Failed to load %s: %v", path, err)
	}
	candles = data.Normalize(candles)
	if *period > 0 {
		candles = data.FilterByPeriod(candles, *period)
	}
	fmt.Printf("📊 Loaded %d candles from %s\n", len(candles), path)

	spike, err := strategy.NewSpike(strategy.DefaultSpikeConfig())
	if err != nil {
		log.Fatalf("Failed to create detector: %v", err)
	}

	cfg := backtest.DefaultConfig()
	cfg.InitialBalance = *balance
	cfg.RiskPerTrade = *risk
	cfg.Commission = *commission
	engine, err := backtest.NewSpikeEngine(cfg, spike)
	if err != nil {
		log.Fatalf("Invalid backtest config: %v", err)
	}

	start := time.Now()
	results := engine.Run(*symbol, *timeframe, candles)
	fmt.Printf("⏱️ Replay took %s\n\n", time.Since(start).Round(time.Millisecond))

	reporting.OutputConsole(os.Stdout, results)

	dir := *outDir
	if dir == "" {
		dir = reporting.DefaultOutputDir(*symbol, *timeframe)
	}
	if *xlsx {
		out := filepath.Join(dir, "trades.xlsx")
		if err := reporting.WriteTradesXLSX(results, out); err != nil {
			log.Fatalf("Failed to write %s: %v", out, err)
		}
		fmt.Printf("💾 Trades written to %s\n", out)
	}
	if *csvOut {
		out := filepath.Join(dir, "trades.csv")
		if err := reporting.WriteTradesCSV(results, out); err != nil {
			log.Fatalf("Failed to write %s: %v", out, err)
		}
		fmt.Printf("💾 Trades written to %s\n", out)
	}
}
