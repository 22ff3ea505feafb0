package config

// APIConfig configures the HTTP results server.
type APIConfig struct {
	Addr string `json:"addr"`
	// AllowedOrigins feeds the CORS middleware.
	AllowedOrigins []string `json:"allowed_origins"`
	// Token guards the ledger endpoint when non-empty.
	Token string `json:"token"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
}
