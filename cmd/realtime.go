package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/microgrid-lab/mgsim/app"
	"github.com/microgrid-lab/mgsim/config"
	"github.com/microgrid-lab/mgsim/infra/logger"
)

var realtimeCmd = &cobra.Command{
	Use:   "realtime",
	Short: "Consume live samples over MQTT and republish step results",
	RunE:  realtime,
}

func init() {
	rootCmd.AddCommand(realtimeCmd)
}

func realtime(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	svc, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(); err != nil {
			logger.New("realtime-command").Errorf("service close: %v", err)
		}
	}()
	return svc.RunRealtime(ctx)
}
