package ingest

import (
	"github.com/microgrid-lab/mgsim/core/factory"
	"github.com/microgrid-lab/mgsim/core/ingest"
	"github.com/microgrid-lab/mgsim/infra/mqtt"
)

// init registers built-in sample sources.
func init() {
	_ = ingest.RegisterSource("csv", func(conf map[string]any) (ingest.Source, error) {
		var c CSVConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewCSVSource(c)
	})

	_ = ingest.RegisterSource("synthetic", func(conf map[string]any) (ingest.Source, error) {
		var c SyntheticConfig
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSyntheticSource(c)
	})

	_ = ingest.RegisterSource("mqtt", func(conf map[string]any) (ingest.Source, error) {
		var c struct {
			MQTT   mqtt.Config `json:"mqtt"`
			Topic  string      `json:"topic"`
			Buffer int         `json:"buffer"`
		}
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		client, err := mqtt.NewPahoClient(c.MQTT)
		if err != nil {
			return nil, err
		}
		return NewMQTTSource(client, c.Topic, c.Buffer)
	})
}
