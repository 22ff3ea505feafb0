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
	"github.com/microgrid-lab/mgsim/core/microgrid"
	"github.com/microgrid-lab/mgsim/infra/logger"
	"github.com/microgrid-lab/mgsim/pkg/export"
)

var (
	cfgPath   string
	outPath   string
	outFormat string
)

var rootCmd = &cobra.Command{
	Use:   "mgsim",
	Short: "Microgrid storage simulator",
	RunE:  run,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "config.yaml", "configuration file")
	rootCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the step series to this file")
	rootCmd.Flags().StringVar(&outFormat, "format", "json", "export format: json, csv or html")
}

// Execute runs the CLI.
func Execute() error { return rootCmd.Execute() }

func run(cmd *cobra.Command, args []string) error {
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
	logg := logger.New("main")
	defer func() {
		if err := svc.Close(); err != nil {
			logg.Errorf("service close: %v", err)
		}
	}()

	total, err := svc.Run(ctx)
	if err != nil {
		return err
	}
	mg := svc.Microgrid()
	logg.Infof("run %s finished after %d steps, total cost %.2f EUR", mg.RunID(), len(mg.Steps()), total)
	if outPath == "" {
		return nil
	}
	return exportSteps(outPath, outFormat, mg.Steps())
}

func exportSteps(path, format string, steps []microgrid.StepOutcome) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	switch format {
	case "json":
		err = export.WriteJSON(f, steps)
	case "csv":
		err = export.WriteCSV(f, steps)
	case "html":
		err = export.WriteChartHTML(f, steps)
	default:
		err = fmt.Errorf("unknown export format %q", format)
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
