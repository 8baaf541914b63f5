package snapshot

import "time"

// Config controls the monthly snapshot job.
type Config struct {
	Schedule   string
	RunTimeout time.Duration
	LockTTL    time.Duration
}

func DefaultConfig() Config {
	return Config{
		Schedule:   "0 0 1 * *",
		RunTimeout: 5 * time.Minute,
		LockTTL:    10 * time.Minute,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Schedule == "" {
		c.Schedule = defaults.Schedule
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = defaults.RunTimeout
	}
	if c.LockTTL <= 0 {
		c.LockTTL = defaults.LockTTL
	}
	return c
}
