package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewConfig(t *testing.T) {
	var (
		addr   = "localhost:8080"
		orig   = []string{"http://localhost:3000"}
		window = 3 * time.Second
		rl     = RateLimit{Burst: 10, Interval: time.Second}
	)

	tcases := []struct {
		name     string
		addr     string
		capacity int
		backfill int
		window   time.Duration
		rl       RateLimit
		err      bool
	}{
		{
			name:     "valid config",
			addr:     addr,
			capacity: 1000,
			backfill: 50,
			window:   window,
			rl:       rl,
		},
		{
			name:     "empty address",
			addr:     "",
			capacity: 1000,
			backfill: 50,
			window:   window,
			rl:       rl,
			err:      true,
		},
		{
			name:     "zero capacity",
			addr:     addr,
			capacity: 0,
			backfill: 50,
			window:   window,
			rl:       rl,
			err:      true,
		},
		{
			name:     "backfill larger than capacity",
			addr:     addr,
			capacity: 10,
			backfill: 11,
			window:   window,
			rl:       rl,
			err:      true,
		},
		{
			name:     "zero typing window",
			addr:     addr,
			capacity: 1000,
			backfill: 50,
			window:   0,
			rl:       rl,
			err:      true,
		},
		{
			name:     "zero burst",
			addr:     addr,
			capacity: 1000,
			backfill: 50,
			window:   window,
			rl:       RateLimit{Burst: 0, Interval: time.Second},
			err:      true,
		},
		{
			name:     "zero interval",
			addr:     addr,
			capacity: 1000,
			backfill: 50,
			window:   window,
			rl:       RateLimit{Burst: 1},
			err:      true,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			config, err := NewConfig(tc.addr, orig, tc.capacity, tc.backfill, tc.window, tc.rl)
			if tc.err {
				assert.Error(t, err, "expected error for config: %s", tc.name)
				return
			}
			assert.NoError(t, err, "expected no error for config: %s", tc.name)

			assert.Equal(t, tc.addr, config.ServerAddr, "expected server address to match")
			assert.Equal(t, orig, config.AllowedOrigins, "expected allowed origins to match")
			assert.Equal(t, tc.capacity, config.HistoryCapacity)
			assert.Equal(t, tc.backfill, config.BackfillLimit)
			assert.Equal(t, tc.window, config.TypingWindow)
			assert.Equal(t, tc.rl, config.RateLimit)
		})
	}
}
