// internal/workers/rewards/analyze-wallet-gaps/config.go
package analyzewalletgaps

import (
	"time"

	"rewards-strategist/internal/common/config"
)

type Config struct {
	Timeout time.Duration
}

func LoadConfig(wc config.WorkerConfig) *Config {
	timeout := config.GetDuration(wc.Timeout)
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Config{Timeout: timeout}
}
