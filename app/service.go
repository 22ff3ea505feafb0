// Package app assembles a simulator from the configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/microgrid-lab/mgsim/config"
	"github.com/microgrid-lab/mgsim/core/battery"
	"github.com/microgrid-lab/mgsim/core/dispatch"
	"github.com/microgrid-lab/mgsim/core/dispatch/ledger"
	"github.com/microgrid-lab/mgsim/core/economics"
	coreingest "github.com/microgrid-lab/mgsim/core/ingest"
	coremetrics "github.com/microgrid-lab/mgsim/core/metrics"
	"github.com/microgrid-lab/mgsim/core/metrics/eco"
	"github.com/microgrid-lab/mgsim/core/microgrid"
	coremon "github.com/microgrid-lab/mgsim/core/monitoring"
	"github.com/microgrid-lab/mgsim/infra/ingest"
	"github.com/microgrid-lab/mgsim/infra/kpi"
	"github.com/microgrid-lab/mgsim/infra/logger"
	"github.com/microgrid-lab/mgsim/infra/metrics"
	"github.com/microgrid-lab/mgsim/infra/monitoring"
	"github.com/microgrid-lab/mgsim/infra/mqtt"
	"github.com/microgrid-lab/mgsim/infra/pricing"
	"github.com/microgrid-lab/mgsim/internal/eventbus"
)

// Service owns the assembled simulator and its backing stores.
type Service struct {
	cfg   *config.Config
	log   logger.Logger
	mon   coremon.Monitor
	store ledger.Store
	sink  coremetrics.MetricsSink
	eco   *metrics.EcoSink
	mg    *microgrid.Microgrid
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	bm, err := battery.New(cfg.Battery, logger.New("battery"))
	if err != nil {
		return nil, fmt.Errorf("battery model: %w", err)
	}
	disp, err := dispatch.New(bm, cfg.Dispatch, logger.New("dispatch"))
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}

	start, err := cfg.Simulation.StartTime()
	if err != nil {
		return nil, err
	}
	tariffs := cfg.Tariffs
	if cfg.Pricing.Enabled {
		purchase, err := fetchPurchaseTariff(cfg.Pricing, start)
		if err != nil {
			return nil, err
		}
		tariffs.Purchase = purchase
		logg.Infof("purchase tariff from day-ahead market: peak %.4f standard %.4f offpeak %.4f EUR/kWh",
			purchase.PeakEURPerKWh, purchase.StandardEURPerKWh, purchase.OffPeakEURPerKWh)
	}
	acct, err := economics.NewAccountant(tariffs, cfg.Battery.DeltaHours, bm, logger.New("economics"))
	if err != nil {
		return nil, fmt.Errorf("accountant: %w", err)
	}
	store, err := ledger.New(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("ledger store: %w", err)
	}

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sinks: %w", err)
	}
	var ecoSink *metrics.EcoSink
	if cfg.Eco.Enabled {
		es, err := NewEcoStore(cfg.Eco)
		if err != nil {
			return nil, fmt.Errorf("eco store: %w", err)
		}
		ecoSink, err = metrics.NewEcoSink(es, cfg.Eco.CO2GramsPerKWh, nil)
		if err != nil {
			return nil, fmt.Errorf("eco sink: %w", err)
		}
		sink = coremetrics.NewMultiSink(sink, ecoSink)
	}

	mg, err := microgrid.New(microgrid.Config{RunID: cfg.Simulation.RunID, Start: start}, disp, acct, store, sink, mon, logg)
	if err != nil {
		return nil, err
	}
	return &Service{cfg: cfg, log: logg, mon: mon, store: store, sink: sink, eco: ecoSink, mg: mg}, nil
}

// fetchPurchaseTariff pulls the day-ahead prices covering the run's
// first day and folds them into a time-of-use tariff.
func fetchPurchaseTariff(cfg pricing.Config, start time.Time) (economics.PurchaseTariff, error) {
	client, err := pricing.New(cfg)
	if err != nil {
		return economics.PurchaseTariff{}, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout())
	defer cancel()
	if start.IsZero() {
		start = time.Now().UTC()
	}
	prices, err := client.FetchDayAhead(ctx, start, start.AddDate(0, 0, 1))
	if err != nil {
		return economics.PurchaseTariff{}, err
	}
	return pricing.PurchaseTariff(prices)
}

// NewEcoStore builds the KPI backend selected by the configuration.
func NewEcoStore(cfg config.EcoConfig) (eco.Store, error) {
	switch cfg.Store {
	case "", "memory":
		return eco.NewMemoryStore(), nil
	case "sqlite":
		return kpi.NewSQLiteStore(cfg.Path)
	default:
		return nil, fmt.Errorf("eco: unknown store %q", cfg.Store)
	}
}

// Microgrid exposes the assembled run for API handlers.
func (s *Service) Microgrid() *microgrid.Microgrid { return s.mg }

// Ledger exposes the step store for API handlers.
func (s *Service) Ledger() ledger.Store { return s.store }

// Sink exposes the assembled metrics sink.
func (s *Service) Sink() coremetrics.MetricsSink { return s.sink }

// EcoStore exposes community KPI records. It is nil when eco tracking
// is disabled.
func (s *Service) EcoStore() eco.Store {
	if s.eco == nil {
		return nil
	}
	return s.eco.Store()
}

// Run replays the configured sample source and returns the total cost
// in EUR.
func (s *Service) Run(ctx context.Context) (float64, error) {
	src, err := coreingest.NewSource(s.cfg.Ingest.Source)
	if err != nil {
		return 0, fmt.Errorf("sample source: %w", err)
	}
	defer closeSource(src)
	return s.mg.Run(ctx, src)
}

// RunRealtime consumes live samples from the broker until the context
// ends. Step events fan out on a bus and are republished to the result
// topic, so a slow broker write never stalls the step loop.
func (s *Service) RunRealtime(ctx context.Context) error {
	client, err := mqtt.NewPahoClient(s.cfg.Realtime.MQTT)
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer client.Disconnect()

	src, err := ingest.NewMQTTSource(client, s.cfg.Realtime.SampleTopic, s.cfg.Realtime.Buffer)
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	bus := eventbus.NewTyped[coremetrics.StepEvent]()
	defer bus.Close()
	s.mg.SetEventBus(bus)
	defer s.mg.SetEventBus(nil)
	pub := mqtt.NewResultPublisher(client, s.cfg.Realtime.ResultTopic)
	metrics.StartStepCollector(ctx, bus, pub)

	s.log.Infof("realtime run %s: consuming %s", s.mg.RunID(), s.cfg.Realtime.SampleTopic)
	for {
		sample, err := src.Next(ctx)
		if err == io.EOF || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := s.mg.Step(ctx, sample); err != nil {
			s.log.Warnf("sample rejected: %v", err)
		}
	}
}

// Close releases the ledger store, closes sinks and flushes the monitor.
func (s *Service) Close() error {
	var errs []error
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("ledger: %w", err))
	}
	if c, ok := s.sink.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("sinks: %w", err))
		}
	}
	if c, ok := s.EcoStore().(io.Closer); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("eco store: %w", err))
		}
	}
	s.mon.Flush(2 * time.Second)
	return errors.Join(errs...)
}

func closeSource(src coreingest.Source) {
	if c, ok := src.(io.Closer); ok {
		_ = c.Close()
	}
}
