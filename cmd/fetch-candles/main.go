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

	"github.com/ducminhle1904/crypto-signal-bot/internal/candle"
	"github.com/ducminhle1904/crypto-signal-bot/internal/exchange/bybit"
	"github.com/ducminhle1904/crypto-signal-bot/internal/retry"
	"github.com/ducminhle1904/crypto-signal-bot/pkg/data"
)

const dateLayout = "2006-01-02"

func main() {
	var (
		symbols    = flag.String("symbols", "BTCUSDT", "Comma-separated symbols")
		timeframes = flag.String("timeframes", "1h", "Comma-separated timeframes (1m, 3m, 5m, 15m, 30m, 1h, 2h, 4h, 6h, 12h, 1d)")
		category   = flag.String("category", "linear", "Market category (spot, linear, inverse)")
		startDate  = flag.String("start", "", "Start date (YYYY-MM-DD), 90 days ago when empty")
		endDate    = flag.String("end", "", "End date (YYYY-MM-DD, exclusive), now when empty")
		dataRoot   = flag.String("data-root", "data", "Root directory for data/bybit/{category}/{symbol}/{minutes}/candles.csv")
		testnet    = flag.Bool("testnet", false, "Use the Bybit testnet")
	)
	flag.Parse()

	end := time.Now().UTC().Truncate(time.Minute)
	if *endDate != "" {
		t, err := time.Parse(dateLayout, *endDate)
		if err != nil {
			log.Fatalf("Invalid -end: %v", err)
		}
		end = t
	}
	start := end.AddDate(0, 0, -90)
	if *startDate != "" {
		t, err := time.Parse(dateLayout, *startDate)
		if err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
		start = t
	}

	tfs := splitList(*timeframes, strings.ToLower)
	if err := candle.Validate(tfs...); err != nil {
		log.Fatalf("Invalid timeframes: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := bybit.NewClient(bybit.Config{
		Testnet:  *testnet,
		Category: *category,
		Retry:    retry.DefaultConfig(),
	})
	fmt.Printf("📥 Downloading %s → %s from %s\n", start.Format(dateLayout), end.Format(dateLayout), client.GetEnvironment())

	failed := 0
	for _, symbol := range splitList(*symbols, strings.ToUpper) {
		for _, tf := range tfs {
			candles, err := client.DownloadHistory(ctx, symbol, tf, start, end, func(n int, last time.Time) {
				fmt.Printf("\r   %s %s: %d candles up to %s", symbol, tf, n, last.Format("2006-01-02 15:04"))
			})
			fmt.Println()
			if err != nil {
				log.Printf("❌ %s %s: %v", symbol, tf, err)
				failed++
				if ctx.Err() != nil {
					os.Exit(1)
				}
				continue
			}

			path := data.DataPath(*dataRoot, "bybit", *category, symbol, tf)
			if err := data.SaveCSV(path, candles); err != nil {
				log.Printf("❌ %s %s: %v", symbol, tf, err)
				failed++
				continue
			}
			fmt.Printf("💾 %d candles written to %s\n", len(candles), path)
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func splitList(s string, norm func(string) string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := norm(strings.TrimSpace(part)); v != "" {
			out = append(out, v)
		}
	}
	return out
}
