package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"main/internal/bus"
	"main/internal/recorder"

	"github.com/yanun0323/logs"
)

func main() {
	if err := run(); err != nil {
		logs.Errorf("replay: %+v", err)
		os.Exit(1)
	}
}

func run() error {
	dirFlag := flag.String("dir", "", "capture directory")
	busFlag := flag.String("bus", "memory", "bus connection string")
	speedFlag := flag.Float64("speed", 1.0, "replay speed multiplier, 0 replays as fast as possible")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	b, err := bus.Connect(ctx, *busFlag)
	if err != nil {
		return err
	}
	defer b.Close()

	playback, err := recorder.NewPlayback(recorder.PlaybackConfig{
		Dir:   *dirFlag,
		Speed: *speedFlag,
	})
	if err != nil {
		return err
	}

	var replayed int
	err = playback.Run(ctx, func(rec recorder.Record) error {
		if err := b.Append(ctx, bus.Topic(rec.Topic), rec.Payload); err != nil {
			return err
		}
		replayed++
		return nil
	})
	logs.Infof("replayed %d records", replayed)
	return err
}
