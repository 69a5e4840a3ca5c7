package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
)

const day = 24 * time.Hour

// Duration is a time.Duration that config files spell as text, e.g. "90s", "5m" or "2d".
type Duration struct {
	time.Duration
}

func NewDuration(duration time.Duration) Duration {
	return Duration{duration}
}

// UnmarshalText accepts time.ParseDuration syntax plus a whole number of days ("7d").
func (d *Duration) UnmarshalText(data []byte) error {
	text := strings.TrimSpace(string(data))

	if days, ok := strings.CutSuffix(text, "d"); ok {
		n, err := strconv.ParseUint(days, 10, 16)
		if err != nil {
			return fmt.Errorf("invalid duration %q", text)
		}
		d.Duration = time.Duration(n) * day
		return nil
	}

	parsed, err := time.ParseDuration(text)
	if err != nil {
		return err
	}
	d.Duration = parsed

	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// JSONSchema describes Duration as a string in the generated config schema.
func (Duration) JSONSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Title:       "Duration",
		Description: "Duration with a unit suffix: ns, us, ms, s, m, h, or a whole number of days with d",
		Pattern:     `^\s*(\d+d|([0-9.]+(ns|us|µs|ms|s|m|h))+)\s*$`,
		Examples:    []any{"1m", "300ms", "7d"},
	}
}
