package lockup

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/ChainLedger/pkg/config"
	"github.com/shopspring/decimal"
)

// PreHistoryEventID is the correlated event id of deposits older than any recorded lock event.
const PreHistoryEventID = "dummy-lockup-id"

// UnresolvedMode selects how a deposit without a matching lock event is handled.
type UnresolvedMode int

const (
	UnresolvedFail UnresolvedMode = iota
	UnresolvedIgnore
)

// ParseUnresolvedMode maps the configured mode name.
func ParseUnresolvedMode(s string) (UnresolvedMode, error) {
	switch s {
	case "", config.UnresolvedModeFail:
		return UnresolvedFail, nil
	case config.UnresolvedModeIgnore:
		return UnresolvedIgnore, nil
	default:
		return 0, fmt.Errorf("unknown unresolved mode %q", s)
	}
}

// MismatchMode selects how a withdrawal that differs from the locked value is handled.
type MismatchMode int

const (
	MismatchFail MismatchMode = iota
	MismatchSubtract
)

// ParseMismatchMode maps the configured mode name.
func ParseMismatchMode(s string) (MismatchMode, error) {
	switch s {
	case "", config.MismatchModeFail:
		return MismatchFail, nil
	case config.MismatchModeSubtract:
		return MismatchSubtract, nil
	default:
		return 0, fmt.Errorf("unknown mismatch mode %q", s)
	}
}

// Transfer is a raw Dev token transfer between an account and a property.
type Transfer struct {
	EventID          string          `meddler:"event_id"`
	BlockNumber      uint64          `meddler:"block_number"`
	LogIndex         uint            `meddler:"log_index"`
	TransactionIndex uint            `meddler:"transaction_index"`
	From             common.Address  `meddler:"from_address,address"`
	To               common.Address  `meddler:"to_address,address"`
	Value            decimal.Decimal `meddler:"value"`
	IsLockup         bool            `meddler:"is_lockup"`
	RawData          string          `meddler:"raw_data"`
}

// GetBlockNumber returns the block of the transfer.
func (t *Transfer) GetBlockNumber() uint64 {
	return t.BlockNumber
}

// Parties returns the ledger key of the transfer: the holder is the account side,
// the counterparty the property side.
func (t *Transfer) Parties() (holder, counterparty common.Address) {
	if t.IsLockup {
		return t.From, t.To
	}

	return t.To, t.From
}

// Entry is the amount a holder currently has locked against a counterparty.
type Entry struct {
	AccountAddress  common.Address  `meddler:"account_address,address"`
	PropertyAddress common.Address  `meddler:"property_address,address"`
	Value           decimal.Decimal `meddler:"value"`
	LockedUpEventID string          `meddler:"locked_up_event_id"`
	BlockNumber     uint64          `meddler:"block_number"`
}

// IgnoredEvent records a deposit skipped because it could not be correlated.
type IgnoredEvent struct {
	JobName     string `meddler:"job_name"`
	EventID     string `meddler:"event_id"`
	BlockNumber uint64 `meddler:"block_number"`
	Reason      string `meddler:"reason"`
	RawData     string `meddler:"raw_data"`
}
