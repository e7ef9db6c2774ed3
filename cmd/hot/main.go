package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"main/internal/book"
	"main/internal/bus"
	"main/internal/obs"
	"main/internal/ops"
	"main/internal/recorder"
	"main/internal/tape"

	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("hot: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	configFlag := flag.String("config", "config.json", "config file path")
	recordFlag := flag.String("record-dir", "", "capture raw topics into this directory")
	flag.Parse()

	cfg, err := ops.Load(*configFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stopProfiler, err := ops.StartProfiler("marketdata/hot", cfg.Profiling)
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

	engine := book.NewEngine(b, metrics).
		WithThrottle(cfg.BookThrottle).
		WithDepth(cfg.BookDepth)
	start(engine.Run)
	start(tape.NewAggregator(b, metrics).Run)
	start(func(ctx context.Context) { obs.LogLoop(ctx, metrics, time.Minute) })

	if *recordFlag != "" {
		writerCfg := recorder.DefaultConfig(*recordFlag)
		writerCfg.CopyPayload = true
		writer, err := recorder.NewWriter(writerCfg)
		if err != nil {
			return err
		}
		if err := writer.Start(ctx); err != nil {
			return err
		}
		defer func() {
			if err := writer.Close(); err != nil {
				logs.Errorf("close capture writer, err: %+v", err)
			}
		}()
		tap := recorder.NewTap(b, writer, []bus.Topic{
			bus.TopicOrderbookUpdates,
			bus.TopicTrades,
			bus.TopicKline,
			bus.TopicOpenInterest,
			bus.TopicLiquidations,
		})
		start(tap.Run)
		logs.Infof("capturing raw topics to %s", *recordFlag)
	}

	logs.Info("hot path running")
	<-ctx.Done()
	wg.Wait()
	return nil
}
