// Package factory provides a small generic registry used to instantiate
// pluggable components from configuration. A component is selected by a
// type string and parameterized by a map of raw settings; factories decode
// the settings into typed structs and return the concrete implementation.
// Metrics sinks and ingestion sources are wired through it.
//
// Example usage:
//
//	reg := factory.NewRegistry[ledger.Store]()
//	reg.Register("jsonl", func(conf map[string]any) (ledger.Store, error) {
//	    var c struct {
//	        Path string `json:"path"`
//	    }
//	    if err := factory.Decode(conf, &c); err != nil {
//	        return nil, err
//	    }
//	    return ledger.NewJSONLStore(c.Path)
//	})
//	s, err := reg.Create(factory.ModuleConfig{Type: "jsonl", Conf: map[string]any{"path": "run.jsonl"}})
package factory
