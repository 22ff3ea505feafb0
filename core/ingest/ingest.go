// Package ingest defines the sample source abstraction feeding a
// simulation run. Sources hide where power samples come from: a CSV
// trace, a synthetic profile generator or a live MQTT feed.
package ingest

import (
	"context"

	"github.com/microgrid-lab/mgsim/core/factory"
	"github.com/microgrid-lab/mgsim/core/model"
)

// Source yields power samples one at a time. Next returns io.EOF once
// the source is drained.
type Source interface {
	Next(ctx context.Context) (model.PowerSample, error)
}

// Config selects and configures the sample source of a run.
type Config struct {
	Source factory.ModuleConfig `json:"source"`
}

var sourceRegistry = factory.NewRegistry[Source]()

// RegisterSource adds a sample source factory identified by name.
func RegisterSource(name string, f factory.Factory[Source]) error {
	return sourceRegistry.Register(name, f)
}

// NewSource creates a Source from the provided configuration.
func NewSource(cfg factory.ModuleConfig) (Source, error) {
	return sourceRegistry.Create(cfg)
}

// SourceTypes lists the registered source type names.
func SourceTypes() []string {
	return sourceRegistry.Types()
}
