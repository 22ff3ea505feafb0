package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/microgrid-lab/mgsim/config"
	"github.com/microgrid-lab/mgsim/infra/ingest"
	"github.com/microgrid-lab/mgsim/infra/logger"
	"github.com/microgrid-lab/mgsim/infra/mqtt"
)

var (
	feedSteps    int
	feedInterval time.Duration
)

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Publish synthetic samples to the live sample topic",
	RunE:  feed,
}

func init() {
	feedCmd.Flags().IntVar(&feedSteps, "steps", 24, "number of samples to publish")
	feedCmd.Flags().DurationVar(&feedInterval, "interval", time.Second, "delay between samples")
	rootCmd.AddCommand(feedCmd)
}

func feed(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logg := logger.New("feed-command")
	client, err := mqtt.NewPahoClient(cfg.Realtime.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	gen, err := ingest.NewSyntheticSource(ingest.SyntheticConfig{
		Steps:      feedSteps,
		DeltaHours: cfg.Battery.DeltaHours,
		Start:      time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}

	logg.Infof("feeding %d samples to %s every %s", feedSteps, cfg.Realtime.SampleTopic, feedInterval)
	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()
	for {
		sample, err := gen.Next(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			return err
		}
		payload, err := json.Marshal(sample)
		if err != nil {
			return err
		}
		if err := client.Publish(cfg.Realtime.SampleTopic, payload); err != nil {
			logg.Errorf("publish sample: %v", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
