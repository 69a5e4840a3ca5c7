package jobs

import (
	"github.com/goran-ethernal/ChainLedger/internal/balance"
	"github.com/goran-ethernal/ChainLedger/internal/chainlog"
)

func toBalanceTransfer(e *chainlog.Entry) (balance.Transfer, error) {
	from, err := e.AddressValue("from")
	if err != nil {
		return balance.Transfer{}, err
	}
	to, err := e.AddressValue("to")
	if err != nil {
		return balance.Transfer{}, err
	}
	value, err := e.DecimalValue("value")
	if err != nil {
		return balance.Transfer{}, err
	}

	return balance.Transfer{From: from, To: to, Value: value, BlockNumber: e.BlockNumber}, nil
}
