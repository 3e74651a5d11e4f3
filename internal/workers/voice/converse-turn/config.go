// internal/workers/voice/converse-turn/config.go
package converseturn

import "time"

// Config bounds a whole turn: classification plus the optional dashboard
// pre-warm.
type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 6 * time.Second,
	}
}
