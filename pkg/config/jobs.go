package config

import (
	"errors"
	"time"

	internalcommon "github.com/goran-ethernal/ChainLedger/internal/common"
)

const (
	// UnresolvedModeFail aborts the run when a deposit cannot be correlated to a lock event.
	UnresolvedModeFail = "fail"
	// UnresolvedModeIgnore records the deposit in the ignored events table and skips it.
	UnresolvedModeIgnore = "ignore"

	// MismatchModeFail aborts the run when a withdrawal differs from the locked value.
	MismatchModeFail = "fail"
	// MismatchModeSubtract keeps a reduced ledger entry when a withdrawal differs from the locked value.
	MismatchModeSubtract = "subtract"
)

// JobConfig schedules one registered job type.
type JobConfig struct {
	// Name keys the job's watermark; it defaults to Type, so a type runs once unless renamed.
	Name string `yaml:"name" json:"name" toml:"name"`
	Type string `yaml:"type" json:"type" toml:"type"`

	Interval internalcommon.Duration `yaml:"interval" json:"interval" toml:"interval"`

	// BatchSize caps the records one materialization run applies.
	BatchSize int `yaml:"batch_size" json:"batch_size" toml:"batch_size" jsonschema:"default=100"`

	// WindowSize caps the blocks one ingestion run fetches.
	WindowSize uint64 `yaml:"window_size" json:"window_size" toml:"window_size" jsonschema:"default=50000"`

	// StartBlock is where ingestion begins before the job has a watermark.
	StartBlock uint64 `yaml:"start_block" json:"start_block" toml:"start_block"`

	UnresolvedMode string `yaml:"unresolved_mode,omitempty" json:"unresolved_mode,omitempty" toml:"unresolved_mode,omitempty" jsonschema:"enum=fail,enum=ignore,default=fail"`  //nolint:lll
	MismatchMode   string `yaml:"mismatch_mode,omitempty" json:"mismatch_mode,omitempty" toml:"mismatch_mode,omitempty" jsonschema:"enum=fail,enum=subtract,default=fail"`       //nolint:lll
}

func (j *JobConfig) ApplyDefaults() {
	if j.Name == "" {
		j.Name = j.Type
	}
	if j.Interval.Duration == 0 {
		j.Interval = internalcommon.NewDuration(time.Minute)
	}
	if j.BatchSize == 0 {
		j.BatchSize = 100
	}
	if j.WindowSize == 0 {
		j.WindowSize = 50000
	}
	if j.UnresolvedMode == "" {
		j.UnresolvedMode = UnresolvedModeFail
	}
	if j.MismatchMode == "" {
		j.MismatchMode = MismatchModeFail
	}
}

func (j *JobConfig) Validate() error {
	switch {
	case j.Type == "":
		return errors.New("type is required")
	case j.BatchSize < 0:
		return errors.New("batch_size must not be negative")
	case j.Interval.Duration < 0:
		return errors.New("interval must not be negative")
	}

	if err := oneOf("unresolved_mode", j.UnresolvedMode, UnresolvedModeFail, UnresolvedModeIgnore); err != nil {
		return err
	}

	return oneOf("mismatch_mode", j.MismatchMode, MismatchModeFail, MismatchModeSubtract)
}
