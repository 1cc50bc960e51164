package config

import "time"

// JobxConfig configures the background job queue.
type JobxConfig struct {
	Concurrency       int           `env:"CONCURRENCY" envDefault:"2"`
	Queues            []string      `env:"QUEUES" envSeparator:"," envDefault:"default,mail"`
	PollInterval      time.Duration `env:"POLL_INTERVAL" envDefault:"1s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	DequeueTimeout    time.Duration `env:"DEQUEUE_TIMEOUT" envDefault:"5s"`
	DefaultRetryDelay time.Duration `env:"DEFAULT_RETRY_DELAY" envDefault:"30s"`
}
