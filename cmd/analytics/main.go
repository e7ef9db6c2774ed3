package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"main/internal/bus"
	"main/internal/detect"
	"main/internal/exhaustion"
	"main/internal/heatmap"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/reversal"
	"main/internal/score"
	"main/internal/trend"

	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("analytics: %+v", err)
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

	stopProfiler, err := ops.StartProfiler("marketdata/analytics", cfg.Profiling)
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

	var wg sync.WaitGroup
	start := func(run func(context.Context)) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(ctx)
		}()
	}

	// Topic-driven engines track every instrument internally.
	start(score.NewCandleEngine(b, metrics).Run)
	start(score.NewVolumeEngine(b, metrics, score.DefaultBarDuration).Run)
	start(func(ctx context.Context) { obs.LogLoop(ctx, metrics, time.Minute) })

	weights := trend.Weights{
		Candle:    cfg.TrendWeights[0],
		Volume:    cfg.TrendWeights[1],
		Orderbook: cfg.TrendWeights[2],
	}
	for _, inst := range cfg.Instruments {
		exchange, symbol := inst.Exchange, inst.Symbol
		start(score.NewOrderbookEngine(b, metrics, exchange, symbol).Run)
		start(trend.NewCombiner(b, metrics, exchange, symbol, cfg.TrendWindow, weights).Run)
		start(exhaustion.NewEngine(b, metrics, exchange, symbol).Run)
		start(detect.NewIcebergDetector(b, metrics, exchange, symbol).Run)
		start(detect.NewWallSpoofDetector(b, metrics, exchange, symbol).Run)
		start(heatmap.NewSampler(b, metrics, exchange, symbol).Run)
		start(heatmap.NewFootprintEngine(b, metrics, exchange, symbol).Run)
		start(reversal.NewEngine(b, metrics, exchange, symbol).Run)
		logs.Infof("analytics running for %s %s", exchange, symbol)
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}
