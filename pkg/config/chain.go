package config

import (
	"errors"
	"time"

	internalcommon "github.com/goran-ethernal/ChainLedger/internal/common"
)

// ChainConfig describes the node the jobs read from.
type ChainConfig struct {
	RPCURL string `yaml:"rpc_url" json:"rpc_url" toml:"rpc_url" jsonschema:"format=uri"`

	// ChunkSize caps the block span of a single eth_getLogs request.
	ChunkSize uint64 `yaml:"chunk_size" json:"chunk_size" toml:"chunk_size" jsonschema:"default=5000"`

	// Finality picks the block tag that bounds ingestion.
	Finality string `yaml:"finality" json:"finality" toml:"finality" jsonschema:"enum=finalized,enum=safe,enum=latest,default=finalized"` //nolint:lll

	// FinalizedLag is subtracted from the latest block in "latest" mode.
	FinalizedLag uint64 `yaml:"finalized_lag" json:"finalized_lag" toml:"finalized_lag"`

	Retry *RetryConfig `yaml:"retry,omitempty" json:"retry,omitempty" toml:"retry,omitempty"`
}

func (c *ChainConfig) ApplyDefaults() {
	if c.ChunkSize == 0 {
		c.ChunkSize = 5000
	}
	if c.Finality == "" {
		c.Finality = "finalized"
	}
	if c.Retry == nil {
		c.Retry = &RetryConfig{}
	}
	c.Retry.ApplyDefaults()
}

func (c *ChainConfig) Validate() error {
	if c.RPCURL == "" {
		return errors.New("rpc_url is required")
	}

	if err := oneOf("finality", c.Finality, "finalized", "safe", "latest"); err != nil {
		return err
	}

	if c.Retry != nil {
		return c.Retry.Validate()
	}

	return nil
}

// RetryConfig is the exponential backoff applied to transient RPC failures.
type RetryConfig struct {
	// MaxAttempts counts the first request; 1 disables retries.
	MaxAttempts int `yaml:"max_attempts" json:"max_attempts" toml:"max_attempts" jsonschema:"default=5"`

	InitialBackoff internalcommon.Duration `yaml:"initial_backoff" json:"initial_backoff" toml:"initial_backoff"`
	MaxBackoff     internalcommon.Duration `yaml:"max_backoff" json:"max_backoff" toml:"max_backoff"`

	// BackoffMultiplier grows the wait after every failed attempt.
	BackoffMultiplier float64 `yaml:"backoff_multiplier" json:"backoff_multiplier" toml:"backoff_multiplier" jsonschema:"default=2"` //nolint:lll
}

func (r *RetryConfig) ApplyDefaults() {
	if r.MaxAttempts == 0 {
		r.MaxAttempts = 5
	}
	if r.InitialBackoff.Duration == 0 {
		r.InitialBackoff = internalcommon.NewDuration(time.Second)
	}
	if r.MaxBackoff.Duration == 0 {
		r.MaxBackoff = internalcommon.NewDuration(30 * time.Second) //nolint:mnd
	}
	if r.BackoffMultiplier == 0 {
		r.BackoffMultiplier = 2
	}
}

func (r *RetryConfig) Validate() error {
	switch {
	case r.MaxAttempts < 1:
		return errors.New("retry.max_attempts must be at least 1")
	case r.BackoffMultiplier < 1:
		return errors.New("retry.backoff_multiplier must be at least 1")
	case r.MaxBackoff.Duration < r.InitialBackoff.Duration:
		return errors.New("retry.max_backoff must not be below retry.initial_backoff")
	}

	return nil
}
