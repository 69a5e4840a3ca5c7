package chainlog

import "fmt"

// Finality selects which block tag bounds ingestion.
type Finality string

const (
	Finalized Finality = "finalized"
	Safe      Finality = "safe"
	// Latest trails the chain tip by a configured lag.
	Latest Finality = "latest"
)

// ParseFinality accepts "finalized", "safe" or "latest".
func ParseFinality(s string) (Finality, error) {
	switch f := Finality(s); f {
	case Finalized, Safe, Latest:
		return f, nil
	default:
		return "", fmt.Errorf("unknown finality %q, expected finalized, safe or latest", s)
	}
}
