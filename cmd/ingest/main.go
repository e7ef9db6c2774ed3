package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"main/internal/bus"
	"main/internal/ingest"
	"main/internal/ingest/binance"
	"main/internal/ingest/bybit"
	"main/internal/ingest/okx"
	"main/internal/obs"
	"main/internal/ops"

	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("ingest: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "config.json", "config file path")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopProfiler, err := ops.StartProfiler("marketdata/ingest", cfg.Profiling)
	if err != nil {
		return err
	}
	defer stopProfiler()

	b, err := bus.Connect(ctx, cfg.BusConn)
	if err != nil {
		return err
	}
	defer b.Close()

	metrics := obs.NewMetrics()
	pub := ingest.NewPublisher(b, metrics)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		obs.LogLoop(ctx, metrics, time.Minute)
	}()
	for _, inst := range cfg.Instruments {
		feed, err := feedFor(inst.Exchange)
		if err != nil {
			return err
		}
		runner := ingest.NewRunner(feed, inst.Symbol, pub)
		wg.Add(1)
		go func() {
			defer wg.Done()
			runner.Run(ctx)
		}()
		logs.Infof("ingesting %s %s", inst.Exchange, inst.Symbol)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

func feedFor(exchange string) (ingest.Feed, error) {
	switch exchange {
	case binance.Exchange:
		return binance.NewFeed(), nil
	case bybit.Exchange:
		return bybit.NewFeed(), nil
	case okx.Exchange:
		return okx.NewFeed(), nil
	default:
		return nil, fmt.Errorf("unknown exchange: %s", exchange)
	}
}
