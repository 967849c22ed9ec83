package listener

import (
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

const (
	NetworkUnix = "unix"
	NetworkTCP  = "tcp"
)

type Config struct {
	// Network is either "unix" or "tcp".
	Network string
	Address string
	// OutboundQueueCapacity bounds the responses buffered per connection. Responses
	// beyond it are dropped.
	OutboundQueueCapacity int
	WriteTimeout          time.Duration
	// RequestRate and RequestBurst limit the requests accepted per connection.
	RequestRate  rate.Limit
	RequestBurst int
}

func DefaultConfig() Config {
	return Config{
		Network:               NetworkUnix,
		OutboundQueueCapacity: 256,
		WriteTimeout:          5 * time.Second,
		RequestRate:           100,
		RequestBurst:          200,
	}
}

func (c Config) validate() error {
	if c.Network != NetworkUnix && c.Network != NetworkTCP {
		return fmt.Errorf("unsupported client network %q", c.Network)
	}
	if c.Address == "" {
		return fmt.Errorf("missing client listen address")
	}
	if c.OutboundQueueCapacity < 1 {
		return fmt.Errorf("outbound queue capacity must be positive, got %d", c.OutboundQueueCapacity)
	}
	if c.WriteTimeout <= 0 {
		return fmt.Errorf("write timeout must be positive")
	}
	if c.RequestBurst < 1 {
		return fmt.Errorf("request burst must be positive, got %d", c.RequestBurst)
	}
	return nil
}
