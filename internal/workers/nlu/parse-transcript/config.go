// internal/workers/nlu/parse-transcript/config.go
package parsetranscript

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 2 * time.Second,
	}
}
