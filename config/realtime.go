package config

import (
	"github.com/microgrid-lab/mgsim/infra/mqtt"
)

// RealtimeConfig wires the MQTT-fed loop and the feed publisher.
type RealtimeConfig struct {
	MQTT mqtt.Config `json:"mqtt"`
	// SampleTopic carries incoming power samples.
	SampleTopic string `json:"sample_topic"`
	// ResultTopic carries published step results.
	ResultTopic string `json:"result_topic"`
	// Buffer bounds the number of samples held between steps.
	Buffer int `json:"buffer"`
}

// SetDefaults applies sane defaults.
func (c *RealtimeConfig) SetDefaults() {
	if c.SampleTopic == "" {
		c.SampleTopic = "microgrid/samples"
	}
	if c.ResultTopic == "" {
		c.ResultTopic = "microgrid/results"
	}
}
