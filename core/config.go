package core

import (
	"strings"
	"time"
)

const (
	defaultMaxMailboxDrain = 100
	defaultBatchSize       = 1000
	defaultMaxAttempts     = 10
	defaultBackoffInterval = 3 * time.Minute
	defaultBackoffRate     = 1.4
	defaultMaxBackoff      = 60 * time.Minute
	defaultRequestTimeout  = 10 * time.Second
)

type Config struct {
	ServiceName string `koanf:"service_name" mapstructure:"service_name"`
	// MaxMailboxDrain caps the payloads one drain invocation delivers and the
	// prefix the scheduler pushes forward per mailbox.
	MaxMailboxDrain int `koanf:"max_mailbox_drain" mapstructure:"max_mailbox_drain"`
	// BatchSize caps the mailboxes scheduled per tick.
	BatchSize int `koanf:"batch_size" mapstructure:"batch_size"`
	// BatchScheduleOffset is how far ahead a prefetched batch is pushed when
	// a tick dispatches it.
	BatchScheduleOffset time.Duration `koanf:"batch_schedule_offset" mapstructure:"batch_schedule_offset"`
	MaxAttempts         int           `koanf:"max_attempts" mapstructure:"max_attempts"`
	BackoffInterval     time.Duration `koanf:"backoff_interval" mapstructure:"backoff_interval"`
	BackoffRate         float64       `koanf:"backoff_rate" mapstructure:"backoff_rate"`
	MaxBackoff          time.Duration `koanf:"max_backoff" mapstructure:"max_backoff"`
	RequestTimeout      time.Duration `koanf:"request_timeout" mapstructure:"request_timeout"`
	// AllowPrivateAddresses lets the default HTTP transport dial loopback,
	// private and link-local destinations. Off by default.
	AllowPrivateAddresses bool `koanf:"allow_private_addresses" mapstructure:"allow_private_addresses"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName:         "mailbox",
		MaxMailboxDrain:     defaultMaxMailboxDrain,
		BatchSize:           defaultBatchSize,
		BatchScheduleOffset: defaultBackoffInterval,
		MaxAttempts:         defaultMaxAttempts,
		BackoffInterval:     defaultBackoffInterval,
		BackoffRate:         defaultBackoffRate,
		MaxBackoff:          defaultMaxBackoff,
		RequestTimeout:      defaultRequestTimeout,
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return invalidInput("service_name is required")
	}
	if c.MaxMailboxDrain <= 0 {
		return invalidInput("max_mailbox_drain must be positive")
	}
	if c.BatchSize <= 0 {
		return invalidInput("batch_size must be positive")
	}
	if c.BatchScheduleOffset <= 0 {
		return invalidInput("batch_schedule_offset must be positive")
	}
	if c.MaxAttempts <= 0 {
		return invalidInput("max_attempts must be positive")
	}
	if c.BackoffInterval <= 0 {
		return invalidInput("backoff_interval must be positive")
	}
	if c.BackoffRate < 1 {
		return invalidInput("backoff_rate must be at least 1")
	}
	if c.MaxBackoff < c.BackoffInterval {
		return invalidInput("max_backoff must not be lower than backoff_interval")
	}
	if c.RequestTimeout < 0 {
		return invalidInput("request_timeout must not be negative")
	}
	return nil
}

// BackoffPolicy returns the retry policy described by the config.
func (c Config) BackoffPolicy() BackoffPolicy {
	return BackoffPolicy{
		Interval: c.BackoffInterval,
		Rate:     c.BackoffRate,
		Max:      c.MaxBackoff,
	}
}
