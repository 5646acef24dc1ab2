// lambda_probe estimates order arrival rates for one or more pairs from
// live order-book snapshots, for seeding the model config.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"as-maker-go/gateway"
)

func main() {
	pairs := flag.String("pairs", "USDT/USD", "comma-separated pairs")
	samples := flag.Int("samples", 3, "order book snapshots per pair")
	interval := flag.Duration("interval", 5*time.Second, "delay between snapshots")
	flag.Parse()

	client := gateway.NewKrakenClient("", "")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for _, pair := range strings.Split(*pairs, ",") {
		pair = strings.TrimSpace(pair)
		lb, la, err := client.EstimateLambdas(ctx, pair, *samples, *interval)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", pair, err)
			continue
		}
		db, da := gateway.DefaultLambdas(pair)
		fmt.Printf("%s: lambda_b=%.2f lambda_a=%.2f (defaults %.1f/%.1f)\n", pair, lb, la, db, da)
	}
}
