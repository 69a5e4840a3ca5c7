// Package config holds the file configuration of chainledger.
// Every section fills its own defaults and validates itself; Config wires them together.
package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Config is the root of the configuration file.
type Config struct {
	Chain       ChainConfig        `yaml:"chain" json:"chain" toml:"chain"`
	Database    DatabaseConfig     `yaml:"database" json:"database" toml:"database"`
	Maintenance *MaintenanceConfig `yaml:"maintenance,omitempty" json:"maintenance,omitempty" toml:"maintenance,omitempty"`

	// Contracts binds the well-known contract names (Dev, Lockup, PropertyGroup, ...) to addresses.
	Contracts []ContractConfig `yaml:"contracts" json:"contracts" toml:"contracts"`

	// Jobs are scheduled independently, each on its own interval.
	Jobs []JobConfig `yaml:"jobs" json:"jobs" toml:"jobs" jsonschema:"minItems=1"`

	Logging *LoggingConfig `yaml:"logging,omitempty" json:"logging,omitempty" toml:"logging,omitempty"`
	Metrics *MetricsConfig `yaml:"metrics,omitempty" json:"metrics,omitempty" toml:"metrics,omitempty"`
}

// ContractConfig binds a contract name to its deployed address.
type ContractConfig struct {
	Name    string `yaml:"name" json:"name" toml:"name"`
	Address string `yaml:"address" json:"address" toml:"address" jsonschema:"pattern=^0x[0-9a-fA-F]{40}$"`

	// ABIPath replaces the embedded ABI with a JSON ABI file.
	ABIPath string `yaml:"abi_path,omitempty" json:"abi_path,omitempty" toml:"abi_path,omitempty"`
}

// ApplyDefaults fills every optional field left empty. Logging is always present afterwards.
func (c *Config) ApplyDefaults() {
	c.Chain.ApplyDefaults()
	c.Database.ApplyDefaults()

	if c.Maintenance != nil {
		c.Maintenance.ApplyDefaults()
	}

	for i := range c.Jobs {
		c.Jobs[i].ApplyDefaults()
	}

	if c.Logging == nil {
		c.Logging = &LoggingConfig{}
	}
	c.Logging.ApplyDefaults()

	if c.Metrics != nil {
		c.Metrics.ApplyDefaults()
	}
}

type validator interface {
	Validate() error
}

// Validate reports the first problem found, prefixed with the section it belongs to.
func (c *Config) Validate() error {
	sections := map[string]validator{
		"chain":    &c.Chain,
		"database": &c.Database,
	}
	if c.Maintenance != nil {
		sections["maintenance"] = c.Maintenance
	}
	if c.Logging != nil {
		sections["logging"] = c.Logging
	}
	if c.Metrics != nil {
		sections["metrics"] = c.Metrics
	}

	for _, name := range []string{"chain", "database", "maintenance", "logging", "metrics"} {
		section, ok := sections[name]
		if !ok {
			continue
		}
		if err := section.Validate(); err != nil {
			return fmt.Errorf("%s.%w", name, err)
		}
	}

	if err := c.validateContracts(); err != nil {
		return err
	}

	return c.validateJobs()
}

func (c *Config) validateContracts() error {
	seen := make(map[string]struct{}, len(c.Contracts))
	for i, contract := range c.Contracts {
		if contract.Name == "" {
			return fmt.Errorf("contracts[%d]: name is required", i)
		}
		if _, dup := seen[contract.Name]; dup {
			return fmt.Errorf("contracts[%d]: duplicate contract name '%s'", i, contract.Name)
		}
		seen[contract.Name] = struct{}{}

		if !common.IsHexAddress(contract.Address) {
			return fmt.Errorf("contracts[%d] (%s): invalid address '%s'", i, contract.Name, contract.Address)
		}
	}

	return nil
}

func (c *Config) validateJobs() error {
	if len(c.Jobs) == 0 {
		return fmt.Errorf("at least one job must be configured")
	}

	seen := make(map[string]struct{}, len(c.Jobs))
	for i, job := range c.Jobs {
		if err := job.Validate(); err != nil {
			return fmt.Errorf("jobs[%d] (%s): %w", i, job.Name, err)
		}
		if _, dup := seen[job.Name]; dup {
			return fmt.Errorf("jobs[%d]: duplicate job name '%s'", i, job.Name)
		}
		seen[job.Name] = struct{}{}
	}

	return nil
}

// Job looks a job up by name.
func (c *Config) Job(name string) (JobConfig, bool) {
	i := slices.IndexFunc(c.Jobs, func(j JobConfig) bool { return j.Name == name })
	if i < 0 {
		return JobConfig{}, false
	}

	return c.Jobs[i], true
}

// oneOf fails unless value is one of allowed.
func oneOf(field, value string, allowed ...string) error {
	if slices.Contains(allowed, value) {
		return nil
	}

	return fmt.Errorf("%s must be one of: %s", field, strings.Join(allowed, ", "))
}
