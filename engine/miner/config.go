package miner

import (
	"fmt"
	"runtime"
)

type Config struct {
	// Workers is the number of partitions the nonce space is split into.
	Workers int
	// BatchSize is the number of nonces a worker hashes between cancellation checks.
	BatchSize uint64
	// SolvedCacheSize bounds the number of remembered solutions.
	SolvedCacheSize int
}

func DefaultConfig() Config {
	return Config{
		Workers:         runtime.NumCPU(),
		BatchSize:       1024,
		SolvedCacheSize: 128,
	}
}

func (c Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("miner needs at least one worker, got %d", c.Workers)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("batch size must be positive")
	}
	if c.SolvedCacheSize < 1 {
		return fmt.Errorf("solved cache size must be positive, got %d", c.SolvedCacheSize)
	}
	return nil
}
