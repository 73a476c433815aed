package proxy

import (
	"time"

	"github.com/papercomputeco/localchat/pkg/config"
)

// Config is the proxy server configuration.
type Config struct {
	// Address to listen on (e.g., ":3000")
	ListenAddr string

	// Models is the catalogue served at /api/models and used to validate
	// workspace model selections.
	Models []config.ModelConfig

	// SessionTTL caps the lifetime of the session cookie. The cookie never
	// outlives the session itself; zero leaves it at the session's expiry.
	SessionTTL time.Duration

	// SecureCookie marks the session cookie Secure. Enable behind TLS.
	SecureCookie bool
}

func (c Config) model(id string) (config.ModelConfig, bool) {
	for _, m := range c.Models {
		if m.ID == id {
			return m, true
		}
	}
	return config.ModelConfig{}, false
}
