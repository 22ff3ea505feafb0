// Package metrics defines the observability records of a simulation run and
// the sink interfaces that receive them. Concrete sinks register themselves
// through the factory under a configuration name; NewMetricsSink assembles
// the configured set and combines several sinks into a MultiSink.
package metrics
