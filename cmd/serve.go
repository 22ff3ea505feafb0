package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/microgrid-lab/mgsim/api"
	"github.com/microgrid-lab/mgsim/app"
	"github.com/microgrid-lab/mgsim/config"
	"github.com/microgrid-lab/mgsim/infra/logger"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the simulation HTTP API",
	RunE:  serve,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(cmd *cobra.Command, args []string) error {
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
	logg := logger.New("serve-command")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	srv, err := api.NewServer(cfg.API, api.Deps{
		Defaults:  cfg,
		Store:     svc.Ledger(),
		Sink:      svc.Sink(),
		Eco:       svc.EcoStore(),
		EcoFactor: cfg.Eco.CO2GramsPerKWh,
		Log:       logger.New("api"),
	})
	if err != nil {
		return fmt.Errorf("api server: %w", err)
	}
	return srv.Start(ctx)
}
