package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"main/internal/bus"
	"main/internal/ingest"
	"main/internal/mdg"
	"main/internal/obs"

	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("mdg: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	busFlag := flag.String("bus", "memory", "bus connection string")
	symbolFlag := flag.String("symbol", "BTCUSDT", "symbol to generate")
	priceFlag := flag.Float64("price", 50000, "base price")
	seedFlag := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	tickFlag := flag.Duration("tick", 100*time.Millisecond, "tick interval")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bus.Connect(ctx, *busFlag)
	if err != nil {
		return err
	}
	defer b.Close()

	gen, err := mdg.NewGenerator(mdg.Config{
		Symbol:    *symbolFlag,
		BasePrice: *priceFlag,
		Seed:      *seedFlag,
		TickEvery: *tickFlag,
	})
	if err != nil {
		return err
	}

	pub := ingest.NewPublisher(b, obs.NewMetrics())
	logs.Infof("generating %s ticks every %s", *symbolFlag, *tickFlag)
	return gen.Run(ctx, pub)
}
