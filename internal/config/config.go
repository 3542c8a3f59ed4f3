package config

import (
	"fmt"
	"time"
)

type RateLimit struct {
	Burst    int
	Interval time.Duration
}

type Config struct {
	ServerAddr      string
	AllowedOrigins  []string
	HistoryCapacity int
	BackfillLimit   int
	TypingWindow    time.Duration
	RateLimit       RateLimit
}

func NewConfig(serverAddr string, allowedOrigins []string, historyCapacity, backfillLimit int, typingWindow time.Duration, rl RateLimit) (*Config, error) {
	if serverAddr == "" {
		return nil, fmt.Errorf("server address cannot be empty")
	}
	if historyCapacity <= 0 {
		return nil, fmt.Errorf("history capacity must be positive, got %d", historyCapacity)
	}
	if backfillLimit <= 0 || backfillLimit > historyCapacity {
		return nil, fmt.Errorf("backfill limit must be between 1 and %d, got %d", historyCapacity, backfillLimit)
	}
	if typingWindow <= 0 {
		return nil, fmt.Errorf("typing window must be positive, got %s", typingWindow)
	}
	if rl.Burst <= 0 {
		return nil, fmt.Errorf("rate limit burst must be positive, got %d", rl.Burst)
	}
	if rl.Interval <= 0 {
		return nil, fmt.Errorf("rate limit interval must be positive, got %s", rl.Interval)
	}

	return &Config{
		ServerAddr:      serverAddr,
		AllowedOrigins:  allowedOrigins,
		HistoryCapacity: historyCapacity,
		BackfillLimit:   backfillLimit,
		TypingWindow:    typingWindow,
		RateLimit:       rl,
	}, nil
}
